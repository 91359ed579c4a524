// Package cache provides a small TTL key-value cache used for
// cross-request state: the resolved best-model probe and the dashboard's
// most recent balance-point computation. It replaces what the dashboard
// kept in ambient page-global storage with an injectable object passed
// through constructors.
package cache

import (
	"sync"
	"time"
)

// Entry pairs a cached value with the time it was stored.
type Entry struct {
	Value    any
	StoredAt time.Time
}

// Cache is a TTL key-value store. Safe for concurrent use. Expired
// entries are evicted lazily on read and on Set.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]expiringEntry
	nowFunc func() time.Time
}

type expiringEntry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration // zero means no expiry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]expiringEntry),
		nowFunc: time.Now,
	}
}

// Set stores value under key with the given TTL. A zero TTL means the
// entry never expires (callers can still inspect its age).
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	now := c.nowFunc()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistic sweep keeps the map from accumulating dead entries
	// on write-heavy keys.
	for k, e := range c.entries {
		if e.ttl > 0 && now.Sub(e.storedAt) > e.ttl {
			delete(c.entries, k)
		}
	}

	c.entries[key] = expiringEntry{value: value, storedAt: now, ttl: ttl}
}

// Get returns the live value for key, or false when absent or expired.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.get(key)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// GetWithAge returns the value together with how long ago it was stored.
// Used by consumers that apply their own freshness policy (e.g., the
// balance-point section accepts results younger than an hour).
func (c *Cache) GetWithAge(key string) (any, time.Duration, bool) {
	e, ok := c.get(key)
	if !ok {
		return nil, 0, false
	}
	return e.Value, c.nowFunc().Sub(e.StoredAt), true
}

func (c *Cache) get(key string) (Entry, bool) {
	now := c.nowFunc()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return Entry{}, false
	}
	if e.ttl > 0 && now.Sub(e.storedAt) > e.ttl {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry since we released the read lock.
		if cur, stillThere := c.entries[key]; stillThere && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Entry{}, false
	}
	return Entry{Value: e.value, StoredAt: e.storedAt}, true
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries, including any not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
