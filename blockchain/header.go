// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/JoseSK999/floresta/chaincfg"
	"github.com/JoseSK999/floresta/internal/primitives"
	"github.com/JoseSK999/floresta/wire"
)

// bip94MaxTimeRewind is the largest amount, in seconds, a header's
// timestamp may precede its parent's on a network enforcing BIP94.
const bip94MaxTimeRewind = 600

// CheckHeaderLink verifies that header links onto parent: its prev_hash
// must equal parent's block hash.
func CheckHeaderLink(header, parent *wire.BlockHeader) error {
	if header.PrevBlock != parent.BlockHash() {
		return ruleError(ErrUnknownHeader, "header does not link to the given parent")
	}
	return nil
}

// CheckProofOfWork decodes header.Bits into a 256-bit target and verifies
// the header's hash does not exceed it. The hash is read as an unsigned
// integer with its last byte most significant, i.e. its byte-reversed
// display hex taken as a big-endian number.
func CheckProofOfWork(header *wire.BlockHeader) error {
	target := primitives.DiffBitsToUint256(header.Bits)
	if target.IsZero() {
		return ruleError(ErrBadPoW, "header bits decode to a zero or invalid target")
	}

	hash := header.BlockHash()
	hashNum := primitives.HashToUint256(&hash)
	if hashNum.GT(target) {
		return ruleError(ErrBadPoW, "block hash exceeds the target difficulty")
	}
	return nil
}

// CheckBIP94Time enforces BIP94's anti-timewarp bound on networks that
// require it: a header's time must not precede its parent's by more than
// bip94MaxTimeRewind seconds.
func CheckBIP94Time(header, parent *wire.BlockHeader, params *chaincfg.Params) error {
	if !params.EnforceBIP94 {
		return nil
	}
	if header.Timestamp.Unix() < parent.Timestamp.Unix()-bip94MaxTimeRewind {
		return ruleError(ErrBIP94TimeWarp, "header time precedes parent by more than 600 seconds")
	}
	return nil
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NextRequiredTarget computes the difficulty target for the block that
// follows lastBlockInPeriod, given the period's first block. The actual
// timespan between them is clamped to one quarter and four times the
// network's target timespan before rescaling; the clamp applies
// unconditionally, on every network. The base bits retargeted from come from
// firstBlockInPeriod when the network enforces BIP94, and from
// lastBlockInPeriod otherwise.
func NextRequiredTarget(lastBlockInPeriod, firstBlockInPeriod *wire.BlockHeader, params *chaincfg.Params) uint32 {
	actualTimespan := lastBlockInPeriod.Timestamp.Unix() - firstBlockInPeriod.Timestamp.Unix()
	actualTimespan = clampInt64(actualTimespan, params.TargetTimespan/4, params.TargetTimespan*4)

	baseBits := lastBlockInPeriod.Bits
	if params.EnforceBIP94 {
		baseBits = firstBlockInPeriod.Bits
	}

	target := primitives.DiffBitsToUint256(baseBits)
	target = target.MulUint64(uint64(actualTimespan))
	target = target.DivUint64(uint64(params.TargetTimespan))

	if target.GT(params.PowLimit) {
		target = params.PowLimit
	}
	return primitives.Uint256ToDiffBits(target)
}
