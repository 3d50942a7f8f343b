package resolve

import (
	"sync"
	"time"
)

// Cache holds fully-resolved include content keyed by resolution key.
// One cache instance belongs to one page session; the caller may share it
// across multiple resolution calls (page navigations) and clears it
// explicitly. Entries carry their store time; validity is judged against
// the TTL supplied per lookup, so different resolution calls can apply
// different freshness windows to the same cache.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]cacheEntry
	timeNow func() time.Time
}

type cacheEntry struct {
	content  string
	storedAt time.Time
}

// NewCache creates an empty cache with real time.
func NewCache() *Cache {
	return NewCacheWithClock(time.Now)
}

// NewCacheWithClock creates a cache with an injectable clock.
func NewCacheWithClock(timeNow func() time.Time) *Cache {
	return &Cache{
		entries: make(map[Key]cacheEntry),
		timeNow: timeNow,
	}
}

// Get returns the cached content for k if it was stored within ttl.
func (c *Cache) Get(k Key, ttl time.Duration) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[k]
	if !ok {
		return "", false
	}
	if c.timeNow().Sub(entry.storedAt) >= ttl {
		delete(c.entries, k)
		return "", false
	}
	return entry.content, true
}

// Put stores content under k with the current timestamp.
func (c *Cache) Put(k Key, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = cacheEntry{content: content, storedAt: c.timeNow()}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]cacheEntry)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
