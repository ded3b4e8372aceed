// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage declares the persistence contract the chain state
// writes through: header/index storage, the single tip marker, and opaque
// accumulator root snapshots keyed by height. The chain state is the sole
// writer; it never considers a write durable until Flush returns.
package storage

import (
	"errors"

	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/wire"
)

// ErrNotFound is returned by a lookup method when the requested row does
// not exist in the store.
var ErrNotFound = errors.New("storage: not found")

// Store is the collaborator contract the chain state persists through.
// Implementations must make Flush a true durability barrier: once it
// returns nil, every write issued before it survives a crash.
type Store interface {
	// GetHeader returns the header stored under hash.
	GetHeader(hash chainhash.Hash) (*wire.BlockHeader, error)

	// GetHeaderByHeight returns the header of the best-chain block at height.
	GetHeaderByHeight(height int32) (*wire.BlockHeader, error)

	// SaveHeader persists header, keyed by its own block hash.
	SaveHeader(header *wire.BlockHeader) error

	// UpdateBlockIndex records that height maps to hash on the best chain.
	UpdateBlockIndex(height int32, hash chainhash.Hash) error

	// GetBlockHash returns the best-chain block hash at height.
	GetBlockHash(height int32) (chainhash.Hash, error)

	// LoadHeight returns the persisted best-chain tip height and hash.
	LoadHeight() (height int32, hash chainhash.Hash, err error)

	// SaveHeight persists the best-chain tip marker.
	SaveHeight(height int32, hash chainhash.Hash) error

	// LoadRootsForBlock returns the opaque accumulator snapshot saved for
	// the best-chain block at height.
	LoadRootsForBlock(height int32) ([]byte, error)

	// SaveRootsForBlock persists an opaque accumulator snapshot for height.
	SaveRootsForBlock(height int32, roots []byte) error

	// Flush makes every prior write durable before returning.
	Flush() error

	// Close releases any resources the store holds.
	Close() error
}
