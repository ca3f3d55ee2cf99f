package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/middleware"
)

func TestSuggestionURL(t *testing.T) {
	cfg := Config{
		BaseURL: "http://localhost:8080",
		Views:   []string{"full", "inline"},
		Queries: []string{"grocery list", "meeting notes"},
	}

	view, raw := suggestionURL(cfg, 0)
	assert.Equal(t, "full", view)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/suggestions", u.Path)
	assert.Equal(t, "grocery list", u.Query().Get("q"))
	assert.Empty(t, u.Query().Get("word"))

	view, raw = suggestionURL(cfg, 1)
	assert.Equal(t, "inline", view)
	u, err = url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", u.Query().Get("q"))
	assert.Equal(t, "notes", u.Query().Get("word"))
}

func TestRunLoadTest(t *testing.T) {
	var served atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(middleware.OwnerHeader) != "alice" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if served.Add(1)%2 == 0 {
			w.Header().Set("X-Cache", "hit")
		} else {
			w.Header().Set("X-Cache", "miss")
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	cfg := Config{
		BaseURL:     srv.URL,
		Owner:       "alice",
		Concurrency: 2,
		Duration:    200 * time.Millisecond,
		Views:       []string{"full", "summary"},
		Queries:     []string{"grocery list"},
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var progress bytes.Buffer
	stats := runLoadTest(ctx, cfg, &progress)
	assert.Contains(t, progress.String(), "done!")

	total := stats.totalRequests.Load()
	require.Positive(t, total)
	assert.Equal(t, total, stats.successCount.Load())
	assert.Zero(t, stats.errorCount.Load())
	assert.Positive(t, stats.cacheHits.Load())

	var report bytes.Buffer
	require.NoError(t, printReport(&report, stats, cfg.Duration))
	assert.Contains(t, report.String(), "Cache Hit Rate:")
	assert.Contains(t, report.String(), "  200: ")
	assert.Contains(t, report.String(), "  full: ")
	assert.Contains(t, report.String(), "  summary: ")
}

func TestPrintReportWithoutRequests(t *testing.T) {
	var report bytes.Buffer
	err := printReport(&report, NewStats(), time.Second)
	assert.ErrorIs(t, err, errNoRequests)
	assert.Contains(t, report.String(), "Total Requests:  0")
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}
