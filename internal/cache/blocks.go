// Package cache holds the block cache the chain store decorator uses to
// keep ancestor walks off the backing store. Blocks are immutable once
// stored, so entries never need invalidation, only eviction.
package cache

import (
	"container/list"
	"sync"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

// BlockCache is an LRU cache of block records keyed by chain + hash.
type BlockCache struct {
	mu       sync.Mutex
	capacity int
	items    map[blockKey]*list.Element
	order    *list.List

	hits   uint64
	misses uint64
}

type blockKey struct {
	chain model.Chain
	hash  string
}

type blockEntry struct {
	key   blockKey
	block model.BlockRecord
}

func NewBlockCache(capacity int) *BlockCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &BlockCache{
		capacity: capacity,
		items:    make(map[blockKey]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns a copy of the cached block, if present.
func (c *BlockCache) Get(chain model.Chain, hash string) (*model.BlockRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[blockKey{chain, hash}]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits++

	block := elem.Value.(*blockEntry).block
	return &block, true
}

// Put caches a block, evicting the least recently used entry when full.
func (c *BlockCache) Put(chain model.Chain, block *model.BlockRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := blockKey{chain, block.Hash}
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*blockEntry).block = *block
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*blockEntry).key)
		}
	}
	c.items[key] = c.order.PushFront(&blockEntry{key: key, block: *block})
}

// Stats returns cumulative hit and miss counts.
func (c *BlockCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached blocks.
func (c *BlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
