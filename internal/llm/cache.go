package llm

import (
	"strings"
	"sync"
	"time"
)

// cacheEntry represents a cached category suggestion.
type cacheEntry struct {
	expiry   time.Time
	category string
}

// suggestionCache provides thread-safe caching for category suggestions so
// identical notes do not burn rate-limit budget on repeat lookups.
type suggestionCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newSuggestionCache creates a new cache with the specified TTL.
func newSuggestionCache(ttl time.Duration) *suggestionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &suggestionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// cacheKey normalizes a note for lookup.
func cacheKey(note string) string {
	return strings.ToLower(strings.TrimSpace(note))
}

// get retrieves a suggestion from the cache if it exists and hasn't expired.
func (c *suggestionCache) get(note string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[cacheKey(note)]
	if !exists || time.Now().After(entry.expiry) {
		return "", false
	}

	return entry.category, true
}

// set stores a suggestion in the cache.
func (c *suggestionCache) set(note, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(note)] = cacheEntry{
		category: category,
		expiry:   time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *suggestionCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (c *suggestionCache) Close() {
	close(c.stopCh)
}
