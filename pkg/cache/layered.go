package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// LayeredStats counts where reads were served from.
type LayeredStats struct {
	L1Hits uint64
	L2Hits uint64
	Misses uint64
}

// LayeredCache puts a process-local MemoryCache in front of a shared remote
// cache (Redis in production). Writes go through to the remote first.
type LayeredCache struct {
	l1    *MemoryCache
	l2    Service
	l1TTL time.Duration

	l1Hits, l2Hits, misses atomic.Uint64
}

func NewLayeredCache(remote Service, opts ...LayeredOption) *LayeredCache {
	cfg := LayeredConfig{MemoryMaxSize: 1000, MemoryTTL: 10 * time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &LayeredCache{
		l1:    NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize), WithMemoryTTL(cfg.MemoryTTL)),
		l2:    remote,
		l1TTL: cfg.MemoryTTL,
	}
}

// Set writes to the remote, then to L1. L1 is still populated when the
// remote write fails so this process keeps its warm entry.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := lc.l2.Set(ctx, key, value, expiration)
	_ = lc.l1.Set(ctx, key, value, lc.ttlFor(expiration))
	return err
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.l1.Get(ctx, key, dest); err == nil {
		lc.l1Hits.Add(1)
		return nil
	}
	if err := lc.l2.Get(ctx, key, dest); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			lc.misses.Add(1)
		}
		return err
	}
	lc.l2Hits.Add(1)
	_ = lc.l1.Set(ctx, key, dest, lc.l1TTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.l1.DeleteByPattern(ctx, pattern)
	return lc.l2.DeleteByPattern(ctx, pattern)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.l1.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

// Stats returns a snapshot of the hit counters.
func (lc *LayeredCache) Stats() LayeredStats {
	return LayeredStats{L1Hits: lc.l1Hits.Load(), L2Hits: lc.l2Hits.Load(), Misses: lc.misses.Load()}
}

func (lc *LayeredCache) ttlFor(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.l1TTL {
		return expiration
	}
	return lc.l1TTL
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}
