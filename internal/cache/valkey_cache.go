package cache

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

// valkeyCache implements Cache interface using Valkey
type valkeyCache struct {
	client valkey.Client
}

// NewValkeyCache creates a new Valkey-backed cache
func NewValkeyCache(valkeyURL string) (Cache, error) {
	addr, password, err := parseValkeyURL(valkeyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Valkey URL: %w", err)
	}

	clientOption := valkey.ClientOption{
		InitAddress: []string{addr},
	}
	if password != "" {
		clientOption.Password = password
	}

	client, err := valkey.NewClient(clientOption)
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	c := &valkeyCache{client: client}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Health(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return c, nil
}

// Get retrieves a value from Valkey
func (c *valkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.B().Get().Key(key).Build()
	result := c.client.Do(ctx, cmd)

	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil // Key doesn't exist
		}
		return nil, &CacheError{Operation: "get", Key: key, Err: result.Error()}
	}

	data, err := result.AsBytes()
	if err != nil {
		return nil, &CacheError{Operation: "get", Key: key, Err: err}
	}

	return data, nil
}

// Set stores a value in Valkey with expiration
func (c *valkeyCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	var cmd valkey.Completed

	if expiration > 0 {
		cmd = c.client.B().Set().Key(key).Value(string(value)).Ex(expiration).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(string(value)).Build()
	}

	result := c.client.Do(ctx, cmd)
	if result.Error() != nil {
		return &CacheError{Operation: "set", Key: key, Err: result.Error()}
	}

	return nil
}

// Delete removes a key from Valkey
func (c *valkeyCache) Delete(ctx context.Context, key string) error {
	cmd := c.client.B().Del().Key(key).Build()
	result := c.client.Do(ctx, cmd)

	if result.Error() != nil {
		return &CacheError{Operation: "delete", Key: key, Err: result.Error()}
	}

	return nil
}

// Close closes the Valkey connection
func (c *valkeyCache) Close() error {
	c.client.Close()
	return nil
}

// Health checks Valkey health
func (c *valkeyCache) Health(ctx context.Context) error {
	cmd := c.client.B().Ping().Build()
	result := c.client.Do(ctx, cmd)

	if result.Error() != nil {
		return fmt.Errorf("Valkey health check failed: %w", result.Error())
	}

	return nil
}

// parseValkeyURL extracts connection details from Valkey URL
func parseValkeyURL(valkeyURL string) (address, password string, err error) {
	u, err := url.Parse(valkeyURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Host == "" {
		return "", "", fmt.Errorf("missing host in URL")
	}
	address = u.Host

	if u.User != nil {
		password, _ = u.User.Password()
	}

	return address, password, nil
}

// MultiLevelCache layers an in-memory L1 over a Valkey L2 so hot resolution
// keys skip the network entirely
type MultiLevelCache struct {
	l1Cache    map[string]cacheItem
	l2Cache    Cache
	l1MaxItems int
	mu         sync.RWMutex // Protects l1Cache
}

type cacheItem struct {
	data      []byte
	expiresAt time.Time
}

// NewMultiLevelCache creates a new multi-level cache
func NewMultiLevelCache(valkeyURL string, l1MaxItems int) (Cache, error) {
	l2Cache, err := NewValkeyCache(valkeyURL)
	if err != nil {
		return nil, err
	}

	return &MultiLevelCache{
		l1Cache:    make(map[string]cacheItem),
		l2Cache:    l2Cache,
		l1MaxItems: l1MaxItems,
	}, nil
}

// Get retrieves from L1 first, then L2
func (c *MultiLevelCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	if item, exists := c.l1Cache[key]; exists {
		if time.Now().Before(item.expiresAt) {
			c.mu.RUnlock()
			return item.data, nil
		}
		c.mu.RUnlock()
		c.mu.Lock()
		// Double-check after acquiring write lock
		if item, exists := c.l1Cache[key]; exists && !time.Now().Before(item.expiresAt) {
			delete(c.l1Cache, key)
		}
		c.mu.Unlock()
	} else {
		c.mu.RUnlock()
	}

	data, err := c.l2Cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if data != nil {
		c.setL1(key, data, time.Hour)
	}

	return data, nil
}

// Set stores in both L1 and L2
func (c *MultiLevelCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := c.l2Cache.Set(ctx, key, value, expiration); err != nil {
		return err
	}

	l1Expiration := expiration
	if l1Expiration > time.Hour {
		l1Expiration = time.Hour
	}
	c.setL1(key, value, l1Expiration)

	return nil
}

// Delete removes from both levels
func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.l1Cache, key)
	c.mu.Unlock()

	return c.l2Cache.Delete(ctx, key)
}

// Close closes L2 connection
func (c *MultiLevelCache) Close() error {
	return c.l2Cache.Close()
}

// Health checks L2 health
func (c *MultiLevelCache) Health(ctx context.Context) error {
	return c.l2Cache.Health(ctx)
}

// setL1 sets a value in L1 cache, evicting the entry closest to expiry when
// at capacity
func (c *MultiLevelCache) setL1(key string, value []byte, expiration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.l1Cache) >= c.l1MaxItems {
		oldestKey := ""
		oldestTime := time.Now().Add(24 * time.Hour)

		for k, item := range c.l1Cache {
			if item.expiresAt.Before(oldestTime) {
				oldestKey = k
				oldestTime = item.expiresAt
			}
		}

		if oldestKey != "" {
			delete(c.l1Cache, oldestKey)
		}
	}

	c.l1Cache[key] = cacheItem{
		data:      value,
		expiresAt: time.Now().Add(expiration),
	}
}
