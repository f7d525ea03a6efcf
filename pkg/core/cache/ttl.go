// Package cache keeps recent extraction results in memory with a freshness
// window. Concurrent misses on one key share a single load, and a failed
// refresh falls back to the last good value.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Result is a cached value with its provenance.
type Result[V any] struct {
	Value    V
	LoadedAt time.Time
	Stale    bool // Served after a failed refresh
	Hit      bool // Served without calling the loader
}

// Loader produces a fresh value for a key.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value    V
	loadedAt time.Time
}

// DefaultLoadTimeout bounds a shared load once it no longer follows any
// caller's context.
const DefaultLoadTimeout = 2 * time.Minute

type settings struct {
	now         func() time.Time
	log         *zap.Logger
	loadTimeout time.Duration
}

// Option configures a TTL cache.
type Option func(*settings)

// WithClock sets the clock used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLoadTimeout bounds each shared load.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// TTL is an in-memory cache whose entries are fresh for a fixed duration.
// Expired entries are kept as fallbacks until replaced or invalidated.
type TTL[V any] struct {
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger
	group       singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry[V]
}

// New creates a cache. A non-positive ttl makes every entry stale on arrival,
// so each Get reloads.
func New[V any](ttl time.Duration, opts ...Option) *TTL[V] {
	s := settings{now: time.Now, log: zap.NewNop(), loadTimeout: DefaultLoadTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return &TTL[V]{
		ttl:         ttl,
		loadTimeout: s.loadTimeout,
		now:         s.now,
		log:         s.log,
		entries:     make(map[string]entry[V]),
	}
}

// Get returns the fresh value for key, loading it when missing or expired.
// Concurrent loads of one key are collapsed into a single call. The shared
// load keeps the values of the first caller's context but not its
// cancellation: a caller that gives up stops waiting while the others still
// receive the result. When the load fails and an older value exists, that
// value is returned with Stale set and a nil error.
func (c *TTL[V]) Get(ctx context.Context, key string, load Loader[V]) (Result[V], error) {
	if e, ok := c.lookup(key); ok && c.fresh(e) {
		return Result[V]{Value: e.value, LoadedAt: e.loadedAt, Hit: true}, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		e := entry[V]{value: v, loadedAt: c.now()}
		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
		return e, nil
	})

	var (
		res singleflight.Result
		err error
	)
	select {
	case res = <-ch:
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err == nil {
		e := res.Val.(entry[V])
		return Result[V]{Value: e.value, LoadedAt: e.loadedAt}, nil
	}

	if e, ok := c.lookup(key); ok {
		c.log.Warn("refresh failed, serving stale value",
			zap.String("key", key),
			zap.Time("loaded_at", e.loadedAt),
			zap.Error(err))
		return Result[V]{Value: e.value, LoadedAt: e.loadedAt, Stale: true}, nil
	}
	var zero V
	return Result[V]{Value: zero}, err
}

// Peek returns the cached value for key without loading, fresh or not.
func (c *TTL[V]) Peek(key string) (Result[V], bool) {
	e, ok := c.lookup(key)
	if !ok {
		return Result[V]{}, false
	}
	return Result[V]{Value: e.value, LoadedAt: e.loadedAt, Stale: !c.fresh(e), Hit: true}, true
}

// Invalidate drops the entry for key, including its stale fallback.
func (c *TTL[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of cached entries, expired ones included.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *TTL[V]) lookup(key string) (entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *TTL[V]) fresh(e entry[V]) bool {
	return c.now().Sub(e.loadedAt) < c.ttl
}
