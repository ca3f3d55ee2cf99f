// Package metrics defines the Prometheus collectors used by the suggestion
// and analytics services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the services.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SuggestionsTotal     *prometheus.CounterVec
	SuggestionLatency    *prometheus.HistogramVec
	SuggestionResults    *prometheus.HistogramVec
	SuggestionCandidates prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	NoteWritesTotal      *prometheus.CounterVec
	NoteEventsTotal      *prometheus.CounterVec
	RateLimitedTotal     prometheus.Counter
	AnalyticsDropped     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg
// registers with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SuggestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suggestions_total",
				Help: "Suggestion lookups by view and mode (suggestions, latest, error).",
			},
			[]string{"view", "mode"},
		),
		SuggestionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "suggestion_latency_seconds",
				Help:    "Suggestion lookup latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"view", "cache_status"},
		),
		SuggestionResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "suggestion_results_count",
				Help:    "Number of notes returned per suggestion lookup.",
				Buckets: []float64{0, 1, 3, 5, 10, 25, 50, 100},
			},
			[]string{"view"},
		),
		SuggestionCandidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "suggestion_candidates_count",
				Help:    "Number of notes scored per suggestion lookup.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of suggestion cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of suggestion cache misses.",
			},
		),
		NoteWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "note_writes_total",
				Help: "Note writes by operation (create, update, delete) and status.",
			},
			[]string{"op", "status"},
		),
		NoteEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "note_events_total",
				Help: "Note change events by direction (published, consumed) and status.",
			},
			[]string{"direction", "status"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Requests rejected by the per-owner rate limiter.",
			},
		),
		AnalyticsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_events_dropped_total",
				Help: "Suggestion analytics events dropped because the buffer was full.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SuggestionsTotal,
		m.SuggestionLatency,
		m.SuggestionResults,
		m.SuggestionCandidates,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.NoteWritesTotal,
		m.NoteEventsTotal,
		m.RateLimitedTotal,
		m.AnalyticsDropped,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
