package reputation

import (
	"sync"

	"signalhound/internal/core"
)

// Cache memoizes domain lookups for the duration of a single ingestion
// run. It caches absence as well as hits, so a domain with no stored
// reputation costs one query per run instead of one per source. The
// pipeline creates one per run and clears it when the run ends; it is
// never shared across runs.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	record core.DomainReputation
	found  bool
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func (c *Cache) get(domain string) (core.DomainReputation, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[domain]
	if !ok {
		return core.DomainReputation{}, false, false
	}
	return entry.record, entry.found, true
}

func (c *Cache) put(domain string, record core.DomainReputation, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[domain] = cacheEntry{record: record, found: found}
}

// Size reports how many domains have been resolved so far.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every memoized lookup. Called once at run end.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
