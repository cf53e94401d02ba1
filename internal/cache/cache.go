package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// LRUCache is a size-bounded cache whose entries expire after a TTL.
// A zero TTL keeps entries until they are evicted by size or purged.
type LRUCache[T any] struct {
	lru *expirable.LRU[string, T]
}

// NewLRUCache creates a new LRU cache with TTL
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{lru: expirable.NewLRU[string, T](maxSize, nil, ttl)}
}

// Get retrieves a value from the cache
func (c *LRUCache[T]) Get(key string) (T, bool) {
	return c.lru.Get(key)
}

// Set stores a value in the cache
func (c *LRUCache[T]) Set(key string, data T) {
	c.lru.Add(key, data)
}

// Delete removes a key from the cache
func (c *LRUCache[T]) Delete(key string) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *LRUCache[T]) Purge() {
	c.lru.Purge()
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	return c.lru.Len()
}

// Purger is implemented by caches that can be emptied in one call.
type Purger interface {
	Purge()
}

// Manager invalidates a group of caches together, e.g. after the
// underlying aggregate has been replaced.
type Manager struct {
	mu     sync.Mutex
	caches []Purger
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a cache to the manager
func (m *Manager) Register(c Purger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// PurgeAll empties every registered cache.
func (m *Manager) PurgeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.caches {
		c.Purge()
	}
}
