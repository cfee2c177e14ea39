package cache

import "sync"

// Cache memoizes values keyed by string.
type Cache[T any] struct {
	mu    sync.Mutex
	items map[string]T
}

// New creates an empty Cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{
		items: make(map[string]T),
	}
}

// Get returns a cached value and whether it exists.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.items[key]
	return value, ok
}

// Set stores a value in the cache.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = value
}

// GetOrLoad returns the cached value for key, calling load exactly once per key
// to populate it. The lock is held while load runs, so concurrent callers for
// any key wait for it.
func (c *Cache[T]) GetOrLoad(key string, load func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, ok := c.items[key]; ok {
		return value
	}

	value := load()
	c.items[key] = value

	return value
}

// Len returns the number of cached keys.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
