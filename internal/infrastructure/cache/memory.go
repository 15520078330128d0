package cache

import (
	"context"
	"sync"
	"time"

	"github.com/apkrank/apk/internal/domain"
)

// cacheItem represents a single snapshot in the cache with expiration
type cacheItem struct {
	Value      *domain.CatalogSnapshot
	Expiration time.Time
}

// MemoryCache is an in-process snapshot cache with per-entry expiry
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
	now   func() time.Time
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithClock replaces the time source used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a new in-memory snapshot cache
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		data: make(map[string]cacheItem),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a snapshot from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.CatalogSnapshot, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	if c.now().After(item.Expiration) {
		return nil, domain.ErrCacheMiss
	}

	return item.Value, nil
}

// Set stores a snapshot until expiresAt. The pointer is kept as is: metric
// annotation mutates the cached snapshot in place.
func (c *MemoryCache) Set(ctx context.Context, key string, snapshot *domain.CatalogSnapshot, expiresAt time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		Value:      snapshot,
		Expiration: expiresAt,
	}
	return nil
}

// Delete removes a snapshot from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Size returns the current number of entries, expired ones included
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all entries
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}
