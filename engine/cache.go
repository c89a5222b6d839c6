package engine

import (
	"container/list"
	"sync"
)

// ============================================================================
// RESULT CACHE — bounded LRU of computed bundles
// ============================================================================
// Keys combine the dataset version with FilterState.Key(), so a reload
// invalidates every entry by exact mismatch. Entries hold the bundle without
// its sample plus the filtered view, so a hit can still draw a fresh sample.
// ============================================================================

type cachedResult struct {
	bundle   ResultBundle
	filtered RecordView
}

type cacheItem struct {
	key   string
	value cachedResult
}

// resultCache is a thread-safe LRU keyed by string.
type resultCache struct {
	capacity int
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
	mu       sync.Mutex
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		return nil
	}
	return &resultCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached value and marks it most recently used.
func (c *resultCache) Get(key string) (cachedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return cachedResult{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).value, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *resultCache) Set(key string, value cachedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheItem).value = value
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheItem{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheItem).key)
	}
}

// Len returns the number of cached entries.
func (c *resultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
