package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCounterCache is an in-process CounterCache for single-node
// deployments and tests. Entries honor their TTL lazily: an expired
// entry behaves exactly like an evicted one and restarts at zero.
type MemoryCounterCache struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	now      func() time.Time
}

type memoryCounter struct {
	value     int64
	expiresAt time.Time
}

// NewMemoryCounterCache creates an empty in-memory counter cache
func NewMemoryCounterCache() *MemoryCounterCache {
	return &MemoryCounterCache{
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

// Increment atomically increments the counter and refreshes its TTL
func (c *MemoryCounterCache) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.live(key)
	entry.value++
	entry.expiresAt = c.now().Add(ttl)
	return entry.value, nil
}

// FastForward raises the counter to at least floor and increments it
func (c *MemoryCounterCache) FastForward(_ context.Context, key string, floor int64, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.live(key)
	if floor > entry.value {
		entry.value = floor
	}
	entry.value++
	entry.expiresAt = c.now().Add(ttl)
	return entry.value, nil
}

// Flush drops all counters, simulating a full cache eviction.
func (c *MemoryCounterCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = make(map[string]*memoryCounter)
}

// live returns the entry for key, discarding it first if expired.
// Caller must hold the mutex.
func (c *MemoryCounterCache) live(key string) *memoryCounter {
	entry, ok := c.counters[key]
	if !ok || c.now().After(entry.expiresAt) {
		entry = &memoryCounter{}
		c.counters[key] = entry
	}
	return entry
}

// Ensure MemoryCounterCache implements CounterCache
var _ CounterCache = (*MemoryCounterCache)(nil)
