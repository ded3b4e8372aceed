// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cache provides bounded in-memory header and height-index
// caches built on a generic LRU map. No cache entry outlives the
// underlying store row: a cache is purely an optimization in front of
// storage.Store, never a second source of truth.
package cache

import (
	"github.com/decred/dcrd/container/lru"

	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/wire"
)

// DefaultCapacity is the recommended bound for both caches: 64k entries.
const DefaultCapacity = 64 * 1024

// HeaderCache is a bounded LRU of block hash to header.
type HeaderCache struct {
	m *lru.Map[chainhash.Hash, *wire.BlockHeader]
}

// NewHeaderCache returns a HeaderCache bounded to capacity entries.
func NewHeaderCache(capacity uint) *HeaderCache {
	return &HeaderCache{m: lru.NewMap[chainhash.Hash, *wire.BlockHeader](uint32(capacity))}
}

// Get returns the cached header for hash, if present.
func (c *HeaderCache) Get(hash chainhash.Hash) (*wire.BlockHeader, bool) {
	return c.m.Get(hash)
}

// Add inserts or refreshes header under hash.
func (c *HeaderCache) Add(hash chainhash.Hash, header *wire.BlockHeader) {
	c.m.Put(hash, header)
}

// Delete removes hash from the cache.
func (c *HeaderCache) Delete(hash chainhash.Hash) {
	c.m.Delete(hash)
}

// HeightIndexCache is a bounded LRU of height to best-chain block hash.
type HeightIndexCache struct {
	m *lru.Map[int32, chainhash.Hash]
}

// NewHeightIndexCache returns a HeightIndexCache bounded to capacity entries.
func NewHeightIndexCache(capacity uint) *HeightIndexCache {
	return &HeightIndexCache{m: lru.NewMap[int32, chainhash.Hash](uint32(capacity))}
}

// Get returns the cached hash for height, if present.
func (c *HeightIndexCache) Get(height int32) (chainhash.Hash, bool) {
	return c.m.Get(height)
}

// Add inserts or refreshes the hash at height.
func (c *HeightIndexCache) Add(height int32, hash chainhash.Hash) {
	c.m.Put(height, hash)
}

// Delete removes height from the cache.
func (c *HeightIndexCache) Delete(height int32) {
	c.m.Delete(height)
}
