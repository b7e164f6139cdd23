// Package cache memoizes search and answer responses in Redis. Concurrent
// misses for the same key are collapsed with singleflight, and a circuit
// breaker takes Redis out of the path after repeated failures so queries
// fall through to the engine.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "lexsearch:"

const (
	KindSearch = "search"
	KindAnswer = "answer"
)

// Store is the key-value backend. *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies a cached response.
type Key struct {
	Kind   string
	Query  string
	Limit  int
	Rerank bool
}

// Stats are the counters reported by the cache status endpoint.
type Stats struct {
	Hits    int64                   `json:"hits"`
	Misses  int64                   `json:"misses"`
	Errors  int64                   `json:"errors"`
	Breaker resilience.BreakerStats `json:"breaker"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
}

// New creates a QueryCache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store: store,
		ttl:   ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. hit reports whether the value came from the cache. Cache
// failures never fail the query.
func GetOrCompute[T any](ctx context.Context, c *QueryCache, key Key, compute func() (*T, error)) (result *T, hit bool, err error) {
	redisKey := BuildKey(key)
	if v, ok := lookup[T](ctx, c, redisKey); ok {
		return v, true, nil
	}
	val, err, _ := c.group.Do(redisKey, func() (any, error) {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.put(ctx, redisKey, v)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*T), false, nil
}

func lookup[T any](ctx context.Context, c *QueryCache, redisKey string) (*T, bool) {
	var data []byte
	var found bool
	err := c.breaker.Execute(func() error {
		var err error
		data, found, err = c.store.Get(ctx, redisKey)
		return err
	})
	if err != nil {
		c.recordError("get", redisKey, err)
		c.miss()
		return nil, false
	}
	if !found {
		c.miss()
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", redisKey, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &v, true
}

func (c *QueryCache) put(ctx context.Context, redisKey string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", redisKey, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, redisKey, data, c.ttl)
	})
	if err != nil {
		c.recordError("set", redisKey, err)
	}
}

// Invalidate drops every cached response.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.DeleteByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.failures.Load(),
		Breaker: c.breaker.Stats(),
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) recordError(op, key string, err error) {
	c.failures.Add(1)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Debug("cache bypassed", "op", op, "key", key)
		return
	}
	c.logger.Warn("cache operation failed", "op", op, "key", key, "error", err)
}

// BuildKey hashes the query with the options that change the response. The
// query is used verbatim because responses echo it back.
func BuildKey(k Key) string {
	raw := fmt.Sprintf("%s|%s|limit=%d|rerank=%t", k.Kind, k.Query, k.Limit, k.Rerank)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, k.Kind, hash[:16])
}
