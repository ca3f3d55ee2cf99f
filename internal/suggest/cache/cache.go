// Package cache stores computed suggestion results in Redis, keyed per owner
// so that a note change only invalidates that owner's entries. Concurrent
// misses for the same key are collapsed with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/scrappr/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/resilience"
)

const keyPrefix = "suggest:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type SuggestionCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New builds a cache over store. m may be nil.
func New(store Store, ttl time.Duration, breaker *resilience.CircuitBreaker, m *metrics.Metrics) *SuggestionCache {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{})
	}
	return &SuggestionCache{
		store:   store,
		ttl:     ttl,
		breaker: breaker,
		metrics: m,
		logger:  slog.Default().With("component", "suggestion-cache"),
	}
}

func (c *SuggestionCache) Get(ctx context.Context, req suggest.Request) (*suggest.Result, bool) {
	key := BuildKey(req)
	var data string
	err := c.breaker.Execute(func() error {
		var getErr error
		data, getErr = c.store.Get(ctx, key)
		if pkgredis.IsNilError(getErr) {
			return nil
		}
		return getErr
	})
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	if data == "" {
		c.recordMiss()
		return nil, false
	}
	var result suggest.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "owner", req.Owner, "key", key)
	return &result, true
}

func (c *SuggestionCache) Set(ctx context.Context, req suggest.Request, result *suggest.Result) {
	key := BuildKey(req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result or computes, stores and returns a
// fresh one. The bool reports a cache hit. Concurrent misses for the same
// key share one computation, which runs detached from any single caller's
// cancellation; each caller still returns when its own ctx is done.
func (c *SuggestionCache) GetOrCompute(
	ctx context.Context,
	req suggest.Request,
	computeFn func(ctx context.Context) (*suggest.Result, error),
) (*suggest.Result, bool, error) {
	if result, ok := c.Get(ctx, req); ok {
		return result, true, nil
	}
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(BuildKey(req), func() (interface{}, error) {
		result, err := computeFn(flightCtx)
		if err != nil {
			return nil, err
		}
		c.Set(flightCtx, req, result)
		return result, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*suggest.Result), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// InvalidateOwner removes every cached result for owner.
func (c *SuggestionCache) InvalidateOwner(ctx context.Context, owner string) error {
	return c.flush(ctx, ownerPrefix(owner)+"*")
}

// Invalidate removes every cached result.
func (c *SuggestionCache) Invalidate(ctx context.Context) error {
	return c.flush(ctx, keyPrefix+"*")
}

func (c *SuggestionCache) flush(ctx context.Context, pattern string) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var flushErr error
		deleted, flushErr = c.store.FlushByPattern(ctx, pattern)
		return flushErr
	})
	if err != nil {
		return fmt.Errorf("invalidating cache %s: %w", pattern, err)
	}
	c.logger.Info("cache invalidate", "pattern", pattern, "keys_deleted", deleted)
	return nil
}

func (c *SuggestionCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the state of the circuit guarding Redis.
func (c *SuggestionCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *SuggestionCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *SuggestionCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the Redis key for a request. The query is kept verbatim
// because the substring boost is sensitive to word order and punctuation.
func BuildKey(req suggest.Request) string {
	view, err := suggest.ParseView(string(req.View))
	if err != nil {
		view = req.View
	}
	raw := fmt.Sprintf("%s|%s|%s|limit=%d", view, req.Query, req.Word, req.Limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", ownerPrefix(req.Owner), hash[:16])
}

func ownerPrefix(owner string) string {
	if owner == "" {
		owner = "default"
	}
	return keyPrefix + owner + ":"
}
