package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/middleware"
)

// Config describes one load test run against the suggestion endpoint.
type Config struct {
	BaseURL     string
	Owner       string
	Concurrency int
	Duration    time.Duration
	Views       []string
	Queries     []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	perView       map[string]*atomic.Int64
	mu            sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
		perView:     make(map[string]*atomic.Int64),
	}
}

// RecordRequest counts one request. Transport errors carry no status code
// and no latency sample.
func (s *Stats) RecordRequest(view string, duration time.Duration, statusCode int, cache string, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	if cache == "hit" {
		s.cacheHits.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.mu.Lock()
	counter(s.statusCodes, statusCode).Add(1)
	counter(s.perView, view).Add(1)
	s.mu.Unlock()
}

func counter[K comparable](m map[K]*atomic.Int64, key K) *atomic.Int64 {
	c, ok := m[key]
	if !ok {
		c = &atomic.Int64{}
		m[key] = c
	}
	return c
}

var errNoRequests = errors.New("no requests completed, is the suggest service running?")

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the suggest service")
	owner := flag.String("owner", "loadtest", "owner ID sent in the "+middleware.OwnerHeader+" header")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	views := flag.String("views", "full,summary,inline", "comma-separated views to request")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Owner:       *owner,
		Concurrency: *concurrency,
		Duration:    *duration,
		Views:       strings.Split(*views, ","),
		Queries: []string{
			"grocery list",
			"meeting notes",
			"project ideas",
			"recipe for pancakes",
			"book recommendations",
			"travel plans",
			"workout routine",
			"quarterly review",
			"birthday gifts",
			"reading list",
		},
	}

	fmt.Println("=== Suggestion Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Owner:       %s\n", cfg.Owner)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Views:       %s\n", strings.Join(cfg.Views, ", "))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	stats := runLoadTest(ctx, cfg, os.Stdout)
	if err := printReport(os.Stdout, stats, cfg.Duration); err != nil {
		fmt.Fprintln(os.Stderr, "WARNING:", err)
		os.Exit(1)
	}
}

// suggestionURL builds the request for the n-th iteration of a worker,
// rotating through views and queries. Inline requests also send the last
// word of the query as the word being typed.
func suggestionURL(cfg Config, n int) (view, rawURL string) {
	view = cfg.Views[n%len(cfg.Views)]
	query := cfg.Queries[n%len(cfg.Queries)]

	params := url.Values{}
	params.Set("view", view)
	params.Set("q", query)
	if view == "inline" {
		words := strings.Fields(query)
		params.Set("word", words[len(words)-1])
	}
	return view, cfg.BaseURL + "/api/v1/suggestions?" + params.Encode()
}

func runLoadTest(ctx context.Context, cfg Config, progress io.Writer) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var wg sync.WaitGroup
	fmt.Fprint(progress, "Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			n := workerID

			for ctx.Err() == nil {
				view, rawURL := suggestionURL(cfg, n)
				n++

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
				if err != nil {
					stats.RecordRequest(view, 0, 0, "", err)
					return
				}
				req.Header.Set(middleware.OwnerHeader, cfg.Owner)

				start := time.Now()
				resp, err := client.Do(req)
				duration := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.RecordRequest(view, duration, 0, "", err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				stats.RecordRequest(view, duration, resp.StatusCode, resp.Header.Get("X-Cache"), nil)
			}
		}(w)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprint(progress, ".")
			}
		}
	}()

	wg.Wait()
	fmt.Fprintln(progress, " done!")
	fmt.Fprintln(progress)
	return stats
}

func printReport(w io.Writer, stats *Stats, duration time.Duration) error {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	failed := stats.errorCount.Load()
	hits := stats.cacheHits.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", failed)

	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(hits)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P90:    %s\n", percentile(latencies, 90))
		fmt.Fprintf(w, "P95:    %s\n", percentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])

		var sumSquared float64
		avgFloat := float64(avg)
		for _, l := range latencies {
			diff := float64(l) - avgFloat
			sumSquared += diff * diff
		}
		fmt.Fprintf(w, "StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(latencies)))))
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, stats.statusCodes[code].Load())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Views ===")
	views := make([]string, 0, len(stats.perView))
	for view := range stats.perView {
		views = append(views, view)
	}
	sort.Strings(views)
	for _, view := range views {
		fmt.Fprintf(w, "  %s: %d\n", view, stats.perView[view].Load())
	}

	if total == 0 {
		return errNoRequests
	}
	return nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
