// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// Package cache provides a small generic TTL cache with a capacity bound.
//
// Expired entries are dropped lazily on access and swept whenever an insert
// would exceed capacity; there is no background goroutine. When the cache
// is still full after the sweep, the entry closest to expiry is evicted.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats are cumulative counters since creation.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// Cache is a concurrency-safe TTL cache keyed by string.
type Cache[V any] struct {
	mu       sync.Mutex
	entries  map[string]entry[V]
	ttl      time.Duration
	capacity int
	stats    Stats
	now      func() time.Time
}

// New returns a cache whose entries live for ttl. capacity <= 0 means 1024.
func New[V any](ttl time.Duration, capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache[V]{
		entries:  make(map[string]entry[V], capacity),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the live value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().Before(e.expiresAt) {
		c.stats.Hits++
		return e.value, true
	}
	if ok {
		delete(c.entries, key)
		c.stats.Evictions++
	}
	c.stats.Misses++
	var zero V
	return zero, false
}

// Set stores value under key for the cache TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

// SeenOrAdd reports whether key is live; if not, it is added. Used for
// duplicate suppression within a TTL window.
func (c *Cache[V]) SeenOrAdd(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		c.stats.Hits++
		return true
	}
	c.stats.Misses++
	c.setLocked(key, value)
	return false
}

func (c *Cache[V]) setLocked(key string, value V) {
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.sweepLocked()
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// sweepLocked drops expired entries, then the soonest-expiring one if the
// cache is still full.
func (c *Cache[V]) sweepLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			c.stats.Evictions++
		}
	}
	if len(c.entries) < c.capacity {
		return
	}
	var (
		victim string
		oldest time.Time
	)
	for k, e := range c.entries {
		if victim == "" || e.expiresAt.Before(oldest) {
			victim, oldest = k, e.expiresAt
		}
	}
	delete(c.entries, victim)
	c.stats.Evictions++
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.stats.Evictions++
	}
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Evictions += int64(len(c.entries))
	c.entries = make(map[string]entry[V], c.capacity)
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}
