package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/scrappr/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/tracing"
)

type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request) (*suggest.Result, error)
	Limit(view suggest.View, requested int) int
}

type Handler struct {
	service Suggester
	cache   *cache.SuggestionCache
	tracker analytics.Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires the suggestion API. cache, tracker and m may be nil.
func New(service Suggester, suggestionCache *cache.SuggestionCache, tracker analytics.Tracker, m *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		cache:   suggestionCache,
		tracker: tracker,
		metrics: m,
		logger:  slog.Default().With("component", "suggest-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/suggestions", h.Suggest)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Suggest answers GET /api/v1/suggestions?q=&view=&word=&limit=. In the
// inline view q is the sentence being written and word the word under the
// cursor.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	view, err := suggest.ParseView(params.Get("view"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requested := 0
	if limitStr := params.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		requested = parsed
	}

	req := suggest.Request{
		Owner: middleware.GetOwner(ctx),
		View:  view,
		Query: params.Get("q"),
		Word:  params.Get("word"),
		Limit: h.service.Limit(view, requested),
	}

	var (
		result   *suggest.Result
		cacheHit bool
	)
	cacheStatus := "disabled"
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, req, func(ctx context.Context) (*suggest.Result, error) {
			return h.service.Suggest(ctx, req)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.service.Suggest(ctx, req)
	}

	if err != nil {
		h.observeError(view)
		status := apperrors.HTTPStatusCode(err)
		if status < http.StatusInternalServerError {
			h.writeError(w, status, err.Error())
			return
		}
		log.Error("suggestion failed", "view", view, "error", err)
		message := "suggestion failed"
		if errors.Is(err, apperrors.ErrSourceFailure) {
			message = apperrors.ErrSourceFailure.Error()
		}
		h.writeError(w, status, message)
		return
	}

	elapsed := time.Since(start)
	h.observe(result, cacheStatus, elapsed)
	if span := tracing.SpanFromContext(ctx); span != nil {
		span.SetAttr("cache", cacheStatus)
	}

	log.Info("suggestions served",
		"view", result.View,
		"mode", result.Mode,
		"candidates", result.Candidates,
		"returned", len(result.Results),
		"cache", cacheStatus,
		"latency_ms", elapsed.Milliseconds(),
	)

	if h.tracker != nil {
		h.tracker.Track(analytics.SuggestionEvent{
			Type:       analytics.EventSuggestion,
			View:       string(result.View),
			Mode:       string(result.Mode),
			Query:      req.Query,
			Terms:      result.Terms,
			Returned:   len(result.Results),
			Candidates: result.Candidates,
			LatencyMs:  elapsed.Milliseconds(),
			CacheHit:   cacheHit,
			Owner:      req.Owner,
			RequestID:  middleware.GetRequestID(ctx),
			Timestamp:  time.Now().UTC(),
		})
	}

	if h.cache != nil {
		w.Header().Set("X-Cache", cacheStatus)
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

// CacheInvalidate drops the caller's cached suggestions, or every owner's
// with ?scope=all.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	scope := r.URL.Query().Get("scope")
	var err error
	switch scope {
	case "", "owner":
		scope = "owner"
		err = h.cache.InvalidateOwner(r.Context(), middleware.GetOwner(r.Context()))
	case "all":
		err = h.cache.Invalidate(r.Context())
	default:
		h.writeError(w, http.StatusBadRequest, "scope must be owner or all")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "scope", scope, "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "scope": scope})
}

func (h *Handler) observe(result *suggest.Result, cacheStatus string, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	view := string(result.View)
	h.metrics.SuggestionsTotal.WithLabelValues(view, string(result.Mode)).Inc()
	h.metrics.SuggestionLatency.WithLabelValues(view, cacheStatus).Observe(elapsed.Seconds())
	h.metrics.SuggestionResults.WithLabelValues(view).Observe(float64(len(result.Results)))
	h.metrics.SuggestionCandidates.Observe(float64(result.Candidates))
}

func (h *Handler) observeError(view suggest.View) {
	if h.metrics != nil {
		h.metrics.SuggestionsTotal.WithLabelValues(string(view), "error").Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
