// Package memory holds in-process shared caches.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"weblogger/internal/domain/entry"
)

var _ entry.AnchorCache = (*AnchorCache)(nil)

// AnchorCache maps "handle:anchor" keys to entry ids. It is populated
// lazily on lookup and is purely a best-effort accelerator: it holds no
// truth of its own, so losing it entirely costs a database round trip and
// nothing else. Safe for concurrent use.
type AnchorCache struct {
	mu sync.RWMutex
	m  map[string]entry.ID
}

// NewAnchorCache creates an empty AnchorCache.
func NewAnchorCache() *AnchorCache {
	return &AnchorCache{m: make(map[string]entry.ID)}
}

// Get returns the mapped entry id for key.
func (c *AnchorCache) Get(key string) (entry.ID, bool) {
	c.mu.RLock()
	id, ok := c.m[key]
	c.mu.RUnlock()
	return id, ok
}

// Put stores a mapping.
func (c *AnchorCache) Put(key string, id entry.ID) {
	if id == uuid.Nil {
		return
	}
	c.mu.Lock()
	c.m[key] = id
	c.mu.Unlock()
}

// Evict drops a mapping.
func (c *AnchorCache) Evict(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// Len reports the number of cached mappings.
func (c *AnchorCache) Len() int {
	c.mu.RLock()
	n := len(c.m)
	c.mu.RUnlock()
	return n
}

var _ entry.AnchorCache = NopAnchorCache{}

// NopAnchorCache caches nothing. Used in tests to verify that correctness
// does not depend on the cache.
type NopAnchorCache struct{}

func (NopAnchorCache) Get(string) (entry.ID, bool) { return uuid.Nil, false }
func (NopAnchorCache) Put(string, entry.ID)        {}
func (NopAnchorCache) Evict(string)                {}
