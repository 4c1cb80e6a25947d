package cache

import (
	"sync"
	"time"

	"github.com/hostwise/nightly/internal/clock"
	"golang.org/x/sync/singleflight"
)

// TTLCache is a concurrency-safe in-memory cache with per-entry expiry.
// Concurrent misses for the same key are coalesced into one fill.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	clock   clock.Clock
	group   singleflight.Group
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// New builds a TTLCache with the given entry lifetime.
func New[V any](ttl time.Duration, clk clock.Clock) *TTLCache[V] {
	if clk == nil {
		clk = clock.System{}
	}
	return &TTLCache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		clock:   clk,
	}
}

// Get returns the cached value for key if present and fresh.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.clock.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes key from the cache.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// GetOrFill returns the cached value, or calls fill once per key across
// concurrent callers and caches a successful result.
func (c *TTLCache[V]) GetOrFill(key string, fill func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fill()
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Purge drops expired entries. Callers run it periodically.
func (c *TTLCache[V]) Purge() {
	now := c.clock.Now()
	c.mu.Lock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
