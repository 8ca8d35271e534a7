package cachemanager

import (
	"context"
	"sync"
	"time"
)

// ReadThroughCache computes values on a miss and stores the result.
// I is the input handed to the loader; K is derived from it by the caller.
// A value whose load overlapped an Invalidate is returned but not stored.
type ReadThroughCache[K ~string, V any, I any] struct {
	cache           CacheManager[K, V]
	fn              func(ctx context.Context, input I) (V, error)
	shouldSkipCache bool

	// mu guards generation; Invalidate bumps it under the write lock.
	mu         sync.RWMutex
	generation uint64
}

// NewReadThroughCache wraps cache with loader fn. When shouldSkipCache is
// true every Get calls fn directly.
func NewReadThroughCache[K ~string, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	shouldSkipCache bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:           cache,
		fn:              fn,
		shouldSkipCache: shouldSkipCache,
	}
}

// Get returns the cached value for key, loading it from input on a miss.
// Loader errors are returned and never cached.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, input)
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	gen := r.currentGeneration()
	value, err := r.fn(ctx, input)
	if err != nil {
		return value, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.generation != gen {
		return value, nil
	}
	r.cache.Set(ctx, key, value, ttl)
	return value, nil
}

func (r *ReadThroughCache[K, V, I]) currentGeneration() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Invalidate drops every cached value and discards loads still in flight.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	return r.cache.Flush(ctx)
}

// Stats exposes the underlying cache statistics.
func (r *ReadThroughCache[K, V, I]) Stats() Stats {
	return r.cache.Stats()
}
