package cache

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fills a Manager on misses. Concurrent misses for the same key share
// one call to the load function. Errors are returned to every waiter and
// never cached.
type Loader[V any] struct {
	cache *Manager[V]
	group singleflight.Group
}

// NewLoader creates a Loader over m.
func NewLoader[V any](m *Manager[V]) *Loader[V] {
	return &Loader[V]{cache: m}
}

// Cache returns the underlying Manager.
func (l *Loader[V]) Cache() *Manager[V] { return l.cache }

// GetOrLoad returns the cached value for key or calls load and caches its
// result for ttl (ttl <= 0 uses the cache default). A result is not cached
// when the cache was invalidated (Delete, DeletePrefix or Clear) while load
// ran, and callers arriving after the invalidation start a fresh load.
func (l *Loader[V]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	gen := l.cache.generation()
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	flight := strconv.FormatUint(gen, 10) + "/" + key
	out, err, _ := l.group.Do(flight, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		l.cache.setIfCurrent(key, v, ttl, gen)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := out.(V)
	return v, nil
}
