// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package p2p declares the external collaborator contract this module
// expects a peer-to-peer networking layer to satisfy. Network transport,
// peer discovery, and message framing are deliberately out of scope
// here: this package names the shape of the data a sync driver feeds
// into blockchain.ChainState, nothing more.
package p2p

import (
	"github.com/JoseSK999/floresta/blockchain"
	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/wire"
)

// BlockSource supplies headers and the block/proof bundles a chain state
// needs to validate and connect a block, however it obtains them (a real
// implementation would speak the Bitcoin P2P wire protocol to one or more
// peers; none is provided here).
type BlockSource interface {
	// FetchHeaders returns up to count headers starting immediately after
	// locatorHash, in increasing height order.
	FetchHeaders(locatorHash chainhash.Hash, count int) ([]*wire.BlockHeader, error)

	// FetchConnectInput returns the block body, the batched Utreexo
	// inclusion proof, and the spent-output data needed to connect the
	// block at hash.
	FetchConnectInput(hash chainhash.Hash) (blockchain.ConnectInput, error)
}

// BanReason identifies why a peer is being penalized.
type BanReason int

const (
	// BanReasonInvalidBlock indicates a peer relayed a block that failed
	// consensus validation.
	BanReasonInvalidBlock BanReason = iota

	// BanReasonInvalidHeader indicates a peer relayed a header that
	// failed the header validator.
	BanReasonInvalidHeader

	// BanReasonProtocolViolation indicates a peer violated the wire
	// protocol in a way unrelated to consensus validity.
	BanReasonProtocolViolation
)

// PeerBanner lets the validation layer report misbehavior without knowing
// anything about peer identity, scoring, or connection management.
type PeerBanner interface {
	// BanPeer penalizes the peer that supplied badData for reason.
	BanPeer(reason BanReason, badData chainhash.Hash) error
}
