package api

import (
	"container/list"
	"sync"

	"github.com/destinyclock/destinyclock/pkg/series"
)

// SeriesCache is a thread-safe LRU of generation results keyed by subject
// and range. A result carries its failed days alongside the series.
type SeriesCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List // front is most recent
}

type cacheEntry struct {
	key string
	res *series.Result
}

// NewSeriesCache creates a cache holding up to maxSize results. If
// maxSize <= 0, it defaults to 32.
func NewSeriesCache(maxSize int) *SeriesCache {
	if maxSize <= 0 {
		maxSize = 32
	}
	return &SeriesCache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns a cached result, or nil.
func (c *SeriesCache) Get(key string) *series.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).res
}

// Put adds a result, evicting the least recently used one if full.
func (c *SeriesCache) Put(key string, res *series.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).res = res
		c.order.MoveToFront(el)
		return
	}
	for c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, res: res})
}

// Len reports the number of cached results.
func (c *SeriesCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
