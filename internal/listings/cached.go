package listings

import (
	"context"

	"github.com/beshoynasry/estates/internal/cache"
	"github.com/beshoynasry/estates/internal/model"
	"github.com/sirupsen/logrus"
)

// CachedSource reads listings through a cache. Cache errors degrade to a
// direct fetch and are only logged.
type CachedSource struct {
	src   Source
	cache cache.Cache
	log   logrus.FieldLogger
}

var _ Source = (*CachedSource)(nil)

// NewCachedSource wraps src with c.
func NewCachedSource(src Source, c cache.Cache, log logrus.FieldLogger) *CachedSource {
	return &CachedSource{src: src, cache: c, log: log}
}

// List returns the cached set or fetches and stores it.
func (s *CachedSource) List(ctx context.Context, cat model.Category) ([]model.Listing, error) {
	cached, ok, err := s.cache.Get(ctx, cat)
	if err != nil {
		s.log.WithError(err).WithField("category", cat.Path()).Warn("cache read failed")
	} else if ok {
		return cached, nil
	}
	return s.Refresh(ctx, cat)
}

// Refresh fetches from the source unconditionally and replaces the cache entry.
func (s *CachedSource) Refresh(ctx context.Context, cat model.Category) ([]model.Listing, error) {
	fresh, err := s.src.List(ctx, cat)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cat, fresh); err != nil {
		s.log.WithError(err).WithField("category", cat.Path()).Warn("cache write failed")
	}
	return fresh, nil
}

// Delete removes a listing and drops the category's cache entry on success.
func (s *CachedSource) Delete(ctx context.Context, cat model.Category, id string) error {
	if err := s.src.Delete(ctx, cat, id); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, cat); err != nil {
		s.log.WithError(err).WithField("category", cat.Path()).Warn("cache invalidate failed")
	}
	return nil
}
