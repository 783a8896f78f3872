// Package cache provides a TTL cache that coalesces concurrent loads of the
// same key into a single loader call.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"

	"defiScope/internal/metrics"
)

// Loader computes a value for a key. ok=false reports that the value is
// legitimately absent; absence is cached like any other result.
type Loader[T any] func(ctx context.Context) (value T, ok bool, err error)

type entry struct {
	value   any
	ok      bool
	expires time.Time
}

// Cache is safe for concurrent use. Keys are independent: a slow loader only
// blocks callers of its own key.
type Cache struct {
	entries *xsync.Map[string, entry]
	flight  singleflight.Group
	now     func() time.Time
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMetrics records hits, misses and loader errors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: xsync.NewMap[string, entry](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key, calling load when there is no
// unexpired entry. Concurrent callers for the same key share one load and its
// result, including its error. Errors are not cached.
func Get[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load Loader[T]) (T, bool, error) {
	var zero T

	if e, hit := c.lookup(key); hit {
		c.count("hit")
		return typed[T](key, e)
	}
	c.count("miss")

	res, err, _ := c.flight.Do(key, func() (any, error) {
		// A previous flight may have stored the entry after our lookup.
		if e, hit := c.lookup(key); hit {
			return e, nil
		}

		value, ok, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		e := entry{value: value, ok: ok, expires: c.now().Add(ttl)}
		c.entries.Store(key, e)
		return e, nil
	})
	if err != nil {
		c.count("error")
		return zero, false, err
	}
	return typed[T](key, res.(entry))
}

// Delete drops key so the next Get reloads it.
func (c *Cache) Delete(key string) {
	c.entries.Delete(key)
}

func (c *Cache) lookup(key string) (entry, bool) {
	e, ok := c.entries.Load(key)
	if !ok {
		return entry{}, false
	}
	if !c.now().Before(e.expires) {
		return entry{}, false
	}
	return e, true
}

func (c *Cache) count(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.CacheRequests.WithLabelValues(result).Inc()
}

func typed[T any](key string, e entry) (T, bool, error) {
	var zero T
	if !e.ok {
		return zero, false, nil
	}
	value, ok := e.value.(T)
	if !ok {
		return zero, false, fmt.Errorf("cache key %s holds %T", key, e.value)
	}
	return value, true, nil
}
