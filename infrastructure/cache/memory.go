package cache

import (
	"context"
	"sync"
	"time"

	"social-hub/domain/repository"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache is an in-process fallback for environments without Redis
// (local development, tests). The mutex gives GetDel the same at-most-once
// consume semantics as the Redis GETDEL path.
func NewMemoryCache() repository.ICache {
	return &memoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

// NewMemoryCacheWithClock lets tests control expiry.
func NewMemoryCacheWithClock(now func() time.Time) repository.ICache {
	return &memoryCache{entries: map[string]memoryEntry{}, now: now}
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *memoryCache) GetDel(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	if !ok {
		return nil, false, nil
	}
	delete(c.entries, key)
	return e.value, true, nil
}

func (c *memoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live(key)
	delete(c.entries, key)
	return ok, nil
}

func (c *memoryCache) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	if !ok {
		return 0, false, nil
	}
	return e.expiresAt.Sub(c.now()), true, nil
}

// live returns the entry for key, lazily evicting it when expired.
// Caller must hold mu.
func (c *memoryCache) live(key string) (memoryEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
