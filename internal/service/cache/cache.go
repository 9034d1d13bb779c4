// Package cache provides the process-wide synthesized audio cache.
package cache

import (
	"sort"
	"sync"
)

// DefaultCapacity is used when a non-positive capacity is given.
const DefaultCapacity = 100

// Stats describes cache occupancy.
type Stats struct {
	Size     int      `json:"size"`
	Capacity int      `json:"capacity"`
	Keys     []string `json:"keys"`
}

// Cache maps exact reply text to synthesized audio. It never evicts: once
// full, new inserts are dropped and existing entries stay until Clear.
// Safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string][]byte
	capacity int
}

// New creates an empty cache.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  make(map[string][]byte, capacity),
		capacity: capacity,
	}
}

// Get returns the audio stored for text. Keys match byte for byte.
func (c *Cache) Get(text string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	audio, ok := c.entries[text]
	return audio, ok
}

// Put stores audio for text and reports whether it was stored. A put at
// capacity is a no-op, as is a put for an existing key.
func (c *Cache) Put(text string, audio []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[text]; ok {
		return true
	}
	if len(c.entries) >= c.capacity {
		return false
	}
	c.entries[text] = audio
	return true
}

// Clear removes all entries and returns how many were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string][]byte, c.capacity)
	return n
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns size, capacity and the stored keys in sorted order.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Stats{
		Size:     len(c.entries),
		Capacity: c.capacity,
		Keys:     keys,
	}
}
