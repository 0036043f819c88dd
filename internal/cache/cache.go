// Package cache stores fetched listing sets per category.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/beshoynasry/estates/internal/model"
)

// Cache holds the latest listing set of each category.
type Cache interface {
	// Get returns the cached set and whether it was present.
	Get(ctx context.Context, c model.Category) ([]model.Listing, bool, error)
	Set(ctx context.Context, c model.Category, listings []model.Listing) error
	Invalidate(ctx context.Context, c model.Category) error
}

type memoryEntry struct {
	listings []model.Listing
	expires  time.Time
}

// Memory is an in-process Cache with a fixed TTL.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[model.Category]memoryEntry
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an in-memory cache.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[model.Category]memoryEntry),
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, c model.Category) ([]model.Listing, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[c]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, c)
		return nil, false, nil
	}
	return cloneListings(e.listings), true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, c model.Category, listings []model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[c] = memoryEntry{listings: cloneListings(listings), expires: m.now().Add(m.ttl)}
	return nil
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(_ context.Context, c model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, c)
	return nil
}

func cloneListings(in []model.Listing) []model.Listing {
	if in == nil {
		return nil
	}
	out := make([]model.Listing, len(in))
	copy(out, in)
	return out
}
