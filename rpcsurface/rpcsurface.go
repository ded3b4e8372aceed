// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpcsurface declares the read-only query surface a JSON control
// interface (JSON-RPC, Electrum, or similar) would sit in front of. The
// server itself is an external collaborator that lives outside this
// module; this package names the shape of the data it would serve,
// directly off blockchain.ChainState's own read methods.
package rpcsurface

import (
	"time"

	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/wire"
)

// ChainReader is the subset of blockchain.ChainState's behavior a read-only
// control surface needs. blockchain.ChainState satisfies this interface
// directly; it is declared here, rather than in package blockchain, so
// that a JSON server package can depend on the query shape alone.
type ChainReader interface {
	// GetBestBlock returns the current best-chain height and hash.
	GetBestBlock() (int32, chainhash.Hash)

	// GetValidationIndex returns the height up to which blocks have been
	// fully validated.
	GetValidationIndex() int32

	// IsInIBD reports whether the chain state considers itself still in
	// initial block download as of now.
	IsInIBD(now time.Time) bool

	// GetHeader returns the header stored under hash.
	GetHeader(hash chainhash.Hash) (*wire.BlockHeader, error)

	// GetBlockHash returns the best-chain block hash at height.
	GetBlockHash(height int32) (chainhash.Hash, error)
}
