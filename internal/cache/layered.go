package cache

import "time"

// LayeredCache combines a memory layer with a disk layer. Reads check memory
// first and promote disk hits; writes go to both.
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get retrieves a value, checking memory first, then disk
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if val, found := c.disk.Get(key); found {
		c.memory.Set(key, val, 0) // Promote with default TTL
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear() error {
	c.memory.Clear()
	return c.disk.Clear()
}

// Noop is a Cache that stores nothing. Used when caching is disabled so the
// stages never need a nil check.
type Noop struct{}

// Get always misses
func (Noop) Get(string) ([]byte, bool) { return nil, false }

// Set discards the value
func (Noop) Set(string, []byte, time.Duration) error { return nil }

// Delete is a no-op
func (Noop) Delete(string) error { return nil }

// Clear is a no-op
func (Noop) Clear() error { return nil }
