// Package query implements the cached read path: keyed reads with shared
// in-flight fetches, manual refetch, and invalidation by key.
package query

import (
	"context"
	"fmt"
	"sync"

	"github.com/sajilostore/storefront/internal/logging"
	"github.com/sajilostore/storefront/internal/metrics"
)

// Cache holds read results by key. Two readers asking for the same key
// share one in-flight fetch and its result.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]*call
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

type entry struct {
	value interface{}
	stale bool
}

type call struct {
	done  chan struct{}
	value interface{}
	err   error
}

// NewCache creates an empty cache.
func NewCache(m *metrics.Metrics, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Cache{
		entries:  make(map[string]*entry),
		inflight: make(map[string]*call),
		metrics:  m,
		logger:   logger,
	}
}

// Invalidate marks the entry under key stale so the next read refetches.
// Implements the invalidator the mutation path expects.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

// Drop removes the entry under key entirely.
func (c *Cache) Drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// fetch returns the cached value under key, or runs fn once and shares the
// result with every concurrent caller of the same key.
func (c *Cache) fetch(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	c.mu.Lock()

	if e, ok := c.entries[key]; ok && !e.stale {
		c.mu.Unlock()
		c.metrics.CacheHit()
		return e.value, nil
	}

	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-cl.done:
			return cl.value, cl.err
		}
	}

	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()
	c.metrics.CacheMiss()

	value, err := fn(ctx)
	cl.value, cl.err = value, err

	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil {
		c.entries[key] = &entry{value: value}
	}
	c.mu.Unlock()
	close(cl.done)

	if err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("fetch failed")
	}
	return value, err
}

// Query is one cached read: a key, a fetch function, and an enabled flag.
// While disabled it serves its default value without touching the network.
type Query[T any] struct {
	cache *Cache
	key   string
	fetch func(context.Context) (T, error)

	mu      sync.Mutex
	enabled bool
	def     T
}

// New creates an enabled query under the given cache key.
func New[T any](cache *Cache, key string, fetch func(context.Context) (T, error)) *Query[T] {
	return &Query[T]{cache: cache, key: key, fetch: fetch, enabled: true}
}

// WithDefault sets the value served while disabled or on error.
func (q *Query[T]) WithDefault(v T) *Query[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.def = v
	return q
}

// SetEnabled toggles fetching. Transitioning to enabled marks the entry
// stale so the next read hits the backend, mirroring a read keyed off a
// state change such as authentication.
func (q *Query[T]) SetEnabled(enabled bool) {
	q.mu.Lock()
	was := q.enabled
	q.enabled = enabled
	q.mu.Unlock()
	if enabled && !was {
		q.cache.Invalidate(q.key)
	}
}

// Enabled reports whether the query fetches.
func (q *Query[T]) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled
}

// Key returns the cache key.
func (q *Query[T]) Key() string { return q.key }

// Get returns the cached value, fetching when needed. Disabled queries
// return the default without error; failed fetches return the default
// alongside the error.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	q.mu.Lock()
	enabled, def := q.enabled, q.def
	q.mu.Unlock()

	if !enabled {
		return def, nil
	}

	value, err := q.cache.fetch(ctx, q.key, func(ctx context.Context) (interface{}, error) {
		return q.fetch(ctx)
	})
	if err != nil {
		return def, err
	}

	typed, ok := value.(T)
	if !ok {
		return def, fmt.Errorf("query %s: cached value has unexpected type %T", q.key, value)
	}
	return typed, nil
}

// Refetch bypasses the cache and fetches fresh data.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	q.cache.Invalidate(q.key)
	return q.Get(ctx)
}
