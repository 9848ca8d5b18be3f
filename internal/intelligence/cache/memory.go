// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// DefaultHighWaterMark is the entry count above which the cache trims itself.
const DefaultHighWaterMark = 100

// entry is a cached intent.
type entry struct {
	key       string
	intent    *types.Intent
	expiresAt time.Time

	// element is the LRU list element (for eviction)
	element *list.Element
}

// Metrics tracks cache performance statistics.
type Metrics struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Expired   int64 `json:"expired"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// MemoryCache is the in-process Store. Expired entries are dropped lazily on
// lookup; once the high-water mark is exceeded expired entries are swept and
// then least recently used entries are evicted down to the mark.
type MemoryCache struct {
	// highWaterMark is the maximum number of entries kept after a write
	highWaterMark int

	// entries maps key to cache entry
	entries map[string]*entry

	// lruList maintains LRU order for eviction
	lruList *list.List

	// mu protects concurrent access
	mu sync.Mutex

	metrics Metrics
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache.
//
// Parameters:
//   - highWaterMark: Maximum number of entries (default: 100)
func NewMemoryCache(highWaterMark int) *MemoryCache {
	if highWaterMark <= 0 {
		highWaterMark = DefaultHighWaterMark
	}
	return &MemoryCache{
		highWaterMark: highWaterMark,
		entries:       make(map[string]*entry),
		lruList:       list.New(),
		now:           time.Now,
	}
}

// Get returns a copy of the cached intent, or ErrCacheMiss. An expired entry is
// evicted and reported as a miss.
func (c *MemoryCache) Get(_ context.Context, key string) (*types.Intent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.Misses++
		return nil, ErrCacheMiss
	}
	if c.now().After(e.expiresAt) {
		c.remove(e)
		c.metrics.Expired++
		c.metrics.Misses++
		return nil, ErrCacheMiss
	}

	c.metrics.Hits++
	c.lruList.MoveToFront(e.element)
	return e.intent.Clone(), nil
}

// Set stores a copy of intent for ttl. A non-positive ttl uses DefaultTTL.
func (c *MemoryCache) Set(_ context.Context, key string, intent *types.Intent, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if e, ok := c.entries[key]; ok {
		e.intent = intent.Clone()
		e.expiresAt = expiresAt
		c.lruList.MoveToFront(e.element)
		return nil
	}

	e := &entry{key: key, intent: intent.Clone(), expiresAt: expiresAt}
	e.element = c.lruList.PushFront(e)
	c.entries[key] = e

	if len(c.entries) > c.highWaterMark {
		c.evictExpiredLocked()
		for len(c.entries) > c.highWaterMark {
			c.evictLRU()
		}
	}
	return nil
}

// EvictExpired removes every expired entry.
func (c *MemoryCache) EvictExpired(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictExpiredLocked(), nil
}

// Must be called with lock held.
func (c *MemoryCache) evictExpiredLocked() int {
	now := c.now()
	removed := 0
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			c.remove(e)
			c.metrics.Expired++
			removed++
		}
	}
	return removed
}

// evictLRU removes the least recently used entry from the cache.
// Must be called with lock held.
func (c *MemoryCache) evictLRU() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	c.remove(oldest.Value.(*entry))
	c.metrics.Evictions++
}

func (c *MemoryCache) remove(e *entry) {
	delete(c.entries, e.key)
	c.lruList.Remove(e.element)
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.lruList = list.New()
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), nil
}

// GetMetrics returns current cache performance metrics.
func (c *MemoryCache) GetMetrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics := c.metrics
	metrics.Size = len(c.entries)
	return metrics
}

// GetHitRate returns the cache hit rate (0.0-1.0).
func (c *MemoryCache) GetHitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.metrics.Hits + c.metrics.Misses
	if total == 0 {
		return 0.0
	}
	return float64(c.metrics.Hits) / float64(total)
}
