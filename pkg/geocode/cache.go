package geocode

import "sync"

// Cache memoizes resolver results for the life of the process.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]Result)}
}

func (c *Cache) Get(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[key]
	return res, ok
}

func (c *Cache) Put(key string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = res
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// DropFailures removes service-error entries and reports how many were dropped.
func (c *Cache) DropFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for k, res := range c.entries {
		if res.Status == StatusServiceError {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// DropUnresolved removes every entry that is not a hit, misses included.
func (c *Cache) DropUnresolved() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for k, res := range c.entries {
		if res.Status != StatusFound {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}
