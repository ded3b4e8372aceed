// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the per-network consensus parameters the
// validators need: subsidy schedule, BIP34 activation, difficulty
// retargeting window, the genesis block, and which script-verification
// flags are active at a given height.
package chaincfg

import (
	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/internal/primitives"
	"github.com/JoseSK999/floresta/txscript"
	"github.com/JoseSK999/floresta/wire"
)

// AssumeUtreexoSnapshot pins a known-good accumulator state at a height, let
// initial sync skip verifying every block below it.
type AssumeUtreexoSnapshot struct {
	Height uint32
	Roots  []chainhash.Hash
	Leaves uint64
}

// Checkpoint is a known-good block hash at a height. Sync drivers use
// these to reject side chains that diverge deep in settled history
// without waiting for full validation to reach the fork point.
type Checkpoint struct {
	Height int32
	Hash   chainhash.Hash
}

// Params holds every consensus-critical constant for one Bitcoin network.
type Params struct {
	Name string

	GenesisBlock wire.MsgBlock
	GenesisHash  chainhash.Hash
	PowLimit     primitives.Uint256
	PowLimitBits uint32
	EnforceBIP94 bool

	// SubsidyHalvingInterval is the number of blocks between subsidy halvings.
	SubsidyHalvingInterval int32

	// BIP34Height is the height at which BIP34 coinbase-height encoding
	// becomes mandatory.
	BIP34Height int32

	// TargetTimespan is, in seconds, the desired amount of time that should
	// elapse for all blocks in a difficulty retarget period.
	TargetTimespan int64

	// TargetTimePerBlock is, in seconds, the desired amount of time to allow
	// between each block.
	TargetTimePerBlock int64

	// DifficultyAdjustmentInterval is the number of blocks between difficulty
	// retargets, derived as TargetTimespan / TargetTimePerBlock.
	DifficultyAdjustmentInterval int64

	// CoinbaseMaturity is the number of blocks required before a coinbase
	// output may be spent.
	CoinbaseMaturity uint32

	// AssumeValidHash, when set, is a block hash known to have a valid
	// history; script checks below it may be skipped as an optimization.
	AssumeValidHash *chainhash.Hash

	// AssumeUtreexoSnapshot, when set, is a known-good accumulator state that
	// initial sync may start from instead of height zero.
	AssumeUtreexoSnapshot *AssumeUtreexoSnapshot

	// UnspendableLeafHashes lists leaf hashes the accumulator must never
	// delete: the two historical BIP30 duplicate coinbases.
	UnspendableLeafHashes []chainhash.Hash

	// Checkpoints is an ordered list of known-good block hashes at
	// ascending heights, consulted by sync drivers.
	Checkpoints []Checkpoint

	// Deployment heights for the script-flag schedule consulted by
	// ValidationFlagsFor.
	BIP16Height   int32
	BIP65Height   int32
	BIP66Height   int32
	CSVHeight     int32
	SegwitHeight  int32
	TaprootHeight int32
}

// TotalSubsidyHalvings returns the halving epoch active at height.
func (p *Params) TotalSubsidyHalvings(height int32) int64 {
	if p.SubsidyHalvingInterval <= 0 {
		return 0
	}
	return int64(height) / int64(p.SubsidyHalvingInterval)
}

// ValidationFlagsFor returns the bitfield of script-verification options
// active at height: segwit, taproot, cleanstack, nulldummy, BIP65, BIP66,
// CSV, each is phased in at its own deployment height. Once active, a flag
// is always active for all later heights: there are no flag-only non-goals
// here to retire a check already in force on mainnet history.
func (p *Params) ValidationFlagsFor(height int32) txscript.ScriptFlags {
	var flags txscript.ScriptFlags
	if height >= p.BIP16Height {
		flags |= txscript.ScriptBip16
	}
	if height >= p.BIP65Height {
		flags |= txscript.ScriptVerifyCheckLockTimeVerify
	}
	if height >= p.BIP66Height {
		flags |= txscript.ScriptVerifyDERSignatures
	}
	if height >= p.CSVHeight {
		flags |= txscript.ScriptVerifyCheckSequenceVerify
	}
	if height >= p.SegwitHeight {
		flags |= txscript.ScriptVerifyWitness | txscript.ScriptVerifyNullDummy |
			txscript.ScriptVerifyCleanStack
	}
	if height >= p.TaprootHeight {
		flags |= txscript.ScriptVerifyTaproot
	}
	return flags
}
