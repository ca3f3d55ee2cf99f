package analytics

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topQueryCount     = 10
)

// AggregatedStats is the analytics summary served over HTTP and persisted
// as snapshots.
type AggregatedStats struct {
	TotalSuggestions     int64                `json:"total_suggestions"`
	CacheHits            int64                `json:"cache_hits"`
	CacheMisses          int64                `json:"cache_misses"`
	FallbackCount        int64                `json:"fallback_count"`
	ZeroResultCount      int64                `json:"zero_result_count"`
	Views                map[string]ViewStats `json:"views"`
	AvgReturned          float64              `json:"avg_returned"`
	AvgLatencyMs         float64              `json:"avg_latency_ms"`
	P50LatencyMs         int64                `json:"p50_latency_ms"`
	P95LatencyMs         int64                `json:"p95_latency_ms"`
	P99LatencyMs         int64                `json:"p99_latency_ms"`
	TopQueries           []QueryCount         `json:"top_queries"`
	FallbackQueries      []QueryCount         `json:"fallback_queries"`
	SuggestionsPerMinute float64              `json:"suggestions_per_minute"`
	Since                time.Time            `json:"since"`
}

// ViewStats counts lookups for one view.
type ViewStats struct {
	Lookups     int64 `json:"lookups"`
	Fallbacks   int64 `json:"fallbacks"`
	ZeroResults int64 `json:"zero_results"`
	CacheHits   int64 `json:"cache_hits"`
}

// Snapshot is one persisted copy of the aggregated stats.
type Snapshot struct {
	CapturedAt time.Time       `json:"captured_at"`
	Stats      AggregatedStats `json:"stats"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds suggestion events into running totals. Only the most
// recent maxLatencySamples latencies feed the percentiles.
type Aggregator struct {
	mu              sync.RWMutex
	total           int64
	cacheHits       int64
	fallbacks       int64
	zeroResults     int64
	returned        int64
	views           map[string]ViewStats
	latencies       []int64
	latencyNext     int
	queryCounts     map[string]int64
	fallbackQueries map[string]int64
	startTime       time.Time
	now             func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		views:           make(map[string]ViewStats),
		latencies:       make([]int64, 0, 1024),
		queryCounts:     make(map[string]int64),
		fallbackQueries: make(map[string]int64),
		startTime:       time.Now(),
		now:             time.Now,
		logger:          slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged and skipped so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SuggestionEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		if event.Type != "" && event.Type != EventSuggestion {
			agg.logger.Debug("ignoring analytics event", "type", event.Type)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record adds one event to the totals.
func (a *Aggregator) Record(event SuggestionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.returned += int64(event.Returned)
	view := a.views[event.View]
	view.Lookups++
	if event.CacheHit {
		a.cacheHits++
		view.CacheHits++
	}
	if event.Fallback() {
		a.fallbacks++
		view.Fallbacks++
	}
	if event.Returned == 0 {
		a.zeroResults++
		view.ZeroResults++
	}
	a.views[event.View] = view

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = event.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % maxLatencySamples
	}

	query := normalizeQuery(event.Query)
	if query == "" {
		return
	}
	a.queryCounts[query]++
	if event.Fallback() {
		a.fallbackQueries[query]++
	}
}

// Restore seeds the counters from a persisted snapshot so totals survive a
// restart. The rate window starts at the snapshot's Since so the restored
// totals are not spread over the new uptime only. Latency samples are not
// part of a snapshot and start empty.
func (a *Aggregator) Restore(stats AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total = stats.TotalSuggestions
	if !stats.Since.IsZero() {
		a.startTime = stats.Since
	}
	a.cacheHits = stats.CacheHits
	a.fallbacks = stats.FallbackCount
	a.zeroResults = stats.ZeroResultCount
	a.returned = int64(stats.AvgReturned * float64(stats.TotalSuggestions))
	a.views = make(map[string]ViewStats, len(stats.Views))
	for name, v := range stats.Views {
		a.views[name] = v
	}
	a.queryCounts = make(map[string]int64, len(stats.TopQueries))
	for _, q := range stats.TopQueries {
		a.queryCounts[q.Query] = q.Count
	}
	a.fallbackQueries = make(map[string]int64, len(stats.FallbackQueries))
	for _, q := range stats.FallbackQueries {
		a.fallbackQueries[q.Query] = q.Count
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSuggestions: a.total,
		CacheHits:        a.cacheHits,
		CacheMisses:      a.total - a.cacheHits,
		FallbackCount:    a.fallbacks,
		ZeroResultCount:  a.zeroResults,
		Views:            make(map[string]ViewStats, len(a.views)),
		Since:            a.startTime,
	}
	for name, v := range a.views {
		stats.Views[name] = v
	}
	if a.total > 0 {
		stats.AvgReturned = float64(a.returned) / float64(a.total)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topQueryCount)
	stats.FallbackQueries = topN(a.fallbackQueries, topQueryCount)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.SuggestionsPerMinute = float64(stats.TotalSuggestions) / elapsed
	}

	return stats
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
