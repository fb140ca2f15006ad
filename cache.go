package reqflow

import "sync"

// InMemoryCache is the default per-controller cache store: one entry per
// resolved URL, unbounded lifetime, cleared only by explicit invalidation.
type InMemoryCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
}

// NewInMemoryCache creates an empty in-memory cache store.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		store: make(map[string]*CacheEntry),
	}
}

// Get retrieves the entry stored for url.
func (c *InMemoryCache) Get(url string) (*CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[url]
	return entry, exists
}

// Set stores an entry for url, replacing any previous one.
func (c *InMemoryCache) Set(url string, entry *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[url] = entry
}

// Delete removes the entry stored for url, if any.
func (c *InMemoryCache) Delete(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.store, url)
}

// Clear removes every entry.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*CacheEntry)
}

// Len reports the number of stored entries.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.store)
}

// lookupCache reports a reusable entry for url: one must exist and its
// stored config must be structurally equal to the current stripped config.
func (c *Controller) lookupCache(url string, stripped RequestConfig) (*CacheEntry, bool) {
	entry, found := c.cache.Get(url)
	if !found || entry == nil {
		return nil, false
	}
	if !c.deepEqual(entry.Config, stripped) {
		return nil, false
	}
	return entry, true
}
