// Package cache provides the bounded in-memory caches shared across
// conversation handlers: a TTL+LRU map with synchronous eviction callbacks,
// and a memoized single-flight lookup for slow-to-fetch values.
//
// The caches hold no protocol knowledge. The session manager uses Cache to
// bound live sessions, and the model catalog uses Memo for the backend model
// list.
package cache

import (
	"sync"
	"time"
)

// EvictFunc is invoked synchronously, before removal, for every entry that
// leaves the cache through LRU eviction, TTL expiry, Delete, or Clear. It is
// called without the cache lock held, so it may safely call back into the
// cache.
type EvictFunc[K comparable, V any] func(key K, value V)

// entry is one cached value with its bookkeeping.
type entry[V any] struct {
	value          V
	expiresAt      time.Time // zero = no expiry
	lastAccessedAt time.Time
}

// Cache is a thread-safe bounded map with per-entry TTL and LRU eviction.
// When the cache is at capacity, inserting a new key evicts the least
// recently accessed entry. A zero ttl disables expiry; a zero maxEntries
// disables the size bound.
type Cache[K comparable, V any] struct {
	// entries maps keys to live entries
	entries map[K]*entry[V]

	// ttl is the time-to-live applied to new entries (0 = no expiry)
	ttl time.Duration

	// maxEntries bounds the cache size (0 = unlimited)
	maxEntries int

	// onEvict is called for every removed entry (may be nil)
	onEvict EvictFunc[K, V]

	// mu protects entries
	mu sync.Mutex

	// stopCh signals the background sweep goroutine to stop
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a cache with the given TTL and capacity. If ttl is positive a
// background goroutine sweeps expired entries every ttl/2 (at least every
// 10 seconds); call Close to stop it.
func New[K comparable, V any](ttl time.Duration, maxEntries int, onEvict EvictFunc[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		entries:    make(map[K]*entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		onEvict:    onEvict,
		stopCh:     make(chan struct{}),
	}

	if ttl > 0 {
		interval := ttl / 2
		if interval < 10*time.Second {
			interval = 10 * time.Second
		}
		go c.sweep(interval)
	}

	return c
}

// Get retrieves the value for key. An expired entry is treated as absent
// (and removed, with its eviction callback invoked).
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.mu.Unlock()
		if c.onEvict != nil {
			c.onEvict(key, e.value)
		}
		var zero V
		return zero, false
	}

	e.lastAccessedAt = time.Now()
	v := e.value
	c.mu.Unlock()
	return v, true
}

// Set stores value under key, evicting the least recently used entry first
// if the cache is at capacity and key is not already present.
func (c *Cache[K, V]) Set(key K, value V) {
	var evictedKey K
	var evictedValue V
	evicted := false

	c.mu.Lock()
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			evictedKey, evictedValue, evicted = c.removeLRU()
		}
	}

	now := time.Now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}
	c.entries[key] = &entry[V]{
		value:          value,
		expiresAt:      expiresAt,
		lastAccessedAt: now,
	}
	c.mu.Unlock()

	if evicted && c.onEvict != nil {
		c.onEvict(evictedKey, evictedValue)
	}
}

// Delete removes key and invokes the eviction callback if it was present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if ok && c.onEvict != nil {
		c.onEvict(key, e.value)
	}
}

// Remove removes key without invoking the eviction callback. Used when the
// caller has already performed the entry's teardown itself.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the current number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes every entry, invoking the eviction callback for each.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	old := c.entries
	c.entries = make(map[K]*entry[V])
	c.mu.Unlock()

	if c.onEvict != nil {
		for k, e := range old {
			c.onEvict(k, e.value)
		}
	}
}

// Close stops the background sweep goroutine. The cache remains usable.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// removeLRU removes the least recently accessed entry. Caller holds mu.
func (c *Cache[K, V]) removeLRU() (K, V, bool) {
	var oldestKey K
	var oldestTime time.Time
	found := false

	for key, e := range c.entries {
		if !found || e.lastAccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessedAt
			found = true
		}
	}

	if !found {
		var zeroK K
		var zeroV V
		return zeroK, zeroV, false
	}

	e := c.entries[oldestKey]
	delete(c.entries, oldestKey)
	return oldestKey, e.value, true
}

// sweep periodically removes expired entries until Close is called.
func (c *Cache[K, V]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

// removeExpired evicts every entry past its expiry.
func (c *Cache[K, V]) removeExpired() {
	now := time.Now()

	c.mu.Lock()
	var victims []struct {
		key   K
		value V
	}
	for key, e := range c.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			victims = append(victims, struct {
				key   K
				value V
			}{key, e.value})
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, v := range victims {
			c.onEvict(v.key, v.value)
		}
	}
}
