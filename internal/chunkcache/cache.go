// Package chunkcache bounds the number of decoded haplotype chunks kept
// resident in memory. It wraps internal/chunkstore with an LRU eviction
// policy (hashicorp/golang-lru/v2) and a singleflight guard so that two
// concurrent readers asking for the same cold chunk id trigger exactly one
// decode, not two. The panel's workload — repeated, skewed access to a
// handful of hot chunks out of potentially thousands — calls for a
// bounded, recency-aware cache rather than the unbounded map-plus-mutex
// cache a simpler object store might use.
package chunkcache

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/selphi-project/srp/internal/sparsematrix"
)

// DefaultCapacity is the number of decoded chunks kept resident when no
// explicit capacity is configured.
const DefaultCapacity = 2

// Loader fetches and decodes a chunk by id on a cache miss. Implemented by
// *chunkstore.Store.
type Loader interface {
	Read(chunkID int) (sparsematrix.RawCSC, error)
}

// Cache is a bounded LRU in front of a Loader, deduplicating concurrent
// loads of the same chunk id.
type Cache struct {
	loader Loader
	lru    *lru.Cache[int, sparsematrix.RawCSC]
	group  singleflight.Group
}

// New builds a cache of the given capacity backed by loader. capacity <= 0
// uses DefaultCapacity.
func New(loader Loader, capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := lru.New[int, sparsematrix.RawCSC](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{loader: loader, lru: l}, nil
}

// Get returns chunk id, decoding and caching it on a miss. Concurrent
// calls for the same id share one decode.
func (c *Cache) Get(chunkID int) (sparsematrix.RawCSC, error) {
	if m, ok := c.lru.Get(chunkID); ok {
		return m, nil
	}

	key := strconv.Itoa(chunkID)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: another goroutine may have populated the cache while
		// this call waited to become the leader for key.
		if m, ok := c.lru.Get(chunkID); ok {
			return m, nil
		}
		m, err := c.loader.Read(chunkID)
		if err != nil {
			return sparsematrix.RawCSC{}, err
		}
		c.lru.Add(chunkID, m)
		return m, nil
	})
	if err != nil {
		return sparsematrix.RawCSC{}, err
	}
	return v.(sparsematrix.RawCSC), nil
}

// Len reports how many chunks currently sit in the cache.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge evicts all cached chunks.
func (c *Cache) Purge() {
	c.lru.Purge()
}
