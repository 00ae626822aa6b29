package interview

import (
	"sync"

	"github.com/dotsetlabs/bellwether/internal/baseline"
)

// cacheKey uniquely identifies a (persona, tool, canonical-args) triple.
// Args are canonicalized via baseline.Canonicalize before hashing so that
// key-order-insignificant argument maps hit the same cache entry (§4.10
// step 5).
type cacheKey string

func makeCacheKey(persona, tool string, args map[string]any) (cacheKey, error) {
	canonical := baseline.Canonicalize(args)
	hash, err := baseline.ShortHash(map[string]any{"persona": persona, "tool": tool, "args": canonical})
	if err != nil {
		return "", err
	}
	return cacheKey(hash), nil
}

// cacheEntry is what a hit replays: both the tool response and its
// outcome assessment, so a cache hit skips the LLM assessment call too.
type cacheEntry struct {
	Interaction Interaction
}

// responseCache is process-local and cleared at the start of every
// interview run, per §4.10 step 5.
type responseCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

func newResponseCache() *responseCache {
	return &responseCache{entries: map[cacheKey]cacheEntry{}}
}

func (c *responseCache) get(key cacheKey) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *responseCache) put(key cacheKey, entry cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}
