package cache

import (
	"context"
	"sync"
	"time"
)

// memoryCache is a process-local Cache used in tests and when no Valkey URL
// is configured
type memoryCache struct {
	items map[string]memoryItem
	mu    sync.RWMutex
}

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache
func NewMemoryCache() Cache {
	return &memoryCache{
		items: make(map[string]memoryItem),
	}
}

// Get retrieves a value, expiring entries lazily
func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, nil
	}

	return item.data, nil
}

// Set stores a value with expiration; zero expiration means no expiry
func (c *memoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	item := memoryItem{data: value}
	if expiration > 0 {
		item.expiresAt = time.Now().Add(expiration)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

// Delete removes a key
func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory cache
func (c *memoryCache) Close() error {
	return nil
}

// Health always succeeds
func (c *memoryCache) Health(_ context.Context) error {
	return nil
}
