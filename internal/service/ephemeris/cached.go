package ephemeris

import (
	"context"
	"errors"
	"time"

	"AstroTransit/internal/domain/models"
	drepo "AstroTransit/internal/domain/repository"
	"AstroTransit/pkg/cache"
	"AstroTransit/pkg/logger"
)

const positionKeyPrefix = "pos"

// CachedResolver memoizes successful lookups of an inner resolver.
// Unavailable positions are never cached.
type CachedResolver struct {
	inner drepo.PositionResolver
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedResolver wraps inner with cache c.
func NewCachedResolver(inner drepo.PositionResolver, c cache.Service, ttl time.Duration, log *logger.Logger) *CachedResolver {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedResolver{inner: inner, cache: c, ttl: ttl, log: log}
}

func positionKey(body string, at time.Time) string {
	return cache.Key(positionKeyPrefix, body, at.UTC().Unix())
}

func (r *CachedResolver) Resolve(ctx context.Context, at time.Time, body string) (models.Position, error) {
	key := positionKey(body, at)

	var pos models.Position
	err := r.cache.Get(ctx, key, &pos)
	if err == nil {
		return pos, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.log.Warn("position cache read failed", logger.String("key", key), logger.Error(err))
	}

	pos, err = r.inner.Resolve(ctx, at, body)
	if err != nil {
		return models.Position{}, err
	}
	if err := r.cache.Set(ctx, key, pos, r.ttl); err != nil {
		r.log.Warn("position cache write failed", logger.String("key", key), logger.Error(err))
	}
	return pos, nil
}

// Houses delegates to the inner resolver when it can compute houses.
func (r *CachedResolver) Houses(ctx context.Context, at time.Time, latitude, longitude float64) (models.Houses, error) {
	hr, ok := r.inner.(drepo.HouseResolver)
	if !ok {
		return models.Houses{}, errors.New("inner resolver cannot compute houses")
	}
	return hr.Houses(ctx, at, latitude, longitude)
}

// Invalidate drops one cached position.
func (r *CachedResolver) Invalidate(ctx context.Context, body string, at time.Time) error {
	return r.cache.Delete(ctx, positionKey(body, at))
}

// Purge drops every cached position.
func (r *CachedResolver) Purge(ctx context.Context) error {
	return r.cache.DeleteByPattern(ctx, cache.BuildPattern(positionKeyPrefix+":"))
}

var _ drepo.Ephemeris = (*CachedResolver)(nil)
