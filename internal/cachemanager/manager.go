// Package cachemanager provides typed caches used by the registry service.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed key/value cache with per-entry expiration.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	Stats() Stats
}

// Stats reports cache effectiveness since creation or the last Flush.
type Stats struct {
	UseCase string
	Items   int
	Hits    uint64
	Misses  uint64
}
