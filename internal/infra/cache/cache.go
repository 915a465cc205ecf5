// Package cache keeps fetched exchange-rate quotes between provider
// calls so conversions do not hit the rates API on every request.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value    T
	deadline time.Time
}

// InMemory is a concurrency-safe cache whose entries expire after a
// fixed TTL. A background janitor sweeps expired entries so an idle
// process does not hold stale rate tables.
type InMemory[T any] struct {
	mu   sync.RWMutex
	data map[string]entry[T]
	ttl  time.Duration
}

// New creates a cache. A non-positive ttl disables expiry.
func New[T any](ttl time.Duration) *InMemory[T] {
	c := &InMemory[T]{
		data: make(map[string]entry[T]),
		ttl:  ttl,
	}
	if ttl > 0 {
		go c.sweep()
	}
	return c
}

// Get returns the value stored under key, or false when the key is
// absent or its entry has expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()

	if !ok || (c.ttl > 0 && time.Now().After(e.deadline)) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	c.data[key] = entry[T]{value: value, deadline: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete drops key from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

func (c *InMemory[T]) sweep() {
	for now := range time.Tick(c.ttl) {
		c.mu.Lock()
		for k, e := range c.data {
			if now.After(e.deadline) {
				delete(c.data, k)
			}
		}
		c.mu.Unlock()
	}
}
