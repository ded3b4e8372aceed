// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
)

// ErrShuttingDown is returned by ValidateBlockNoAcc/ConnectBlock when a
// shutdown signal is observed between transactions; it is not a RuleError
// since the block itself was never judged invalid, only abandoned.
var ErrShuttingDown = errors.New("blockchain: validation cancelled by shutdown")

// ErrorCode identifies a kind of error the validators can return. All of
// them are fatal for the offending block only; none leak across blocks.
type ErrorCode int

const (
	// ErrBadMerkleRoot indicates the block's computed Merkle root over
	// txids does not match the value in its header.
	ErrBadMerkleRoot ErrorCode = iota

	// ErrBadBip34 indicates the coinbase's height push does not match the
	// block's actual height once BIP34 is active.
	ErrBadBip34

	// ErrBadWitnessCommitment indicates a segwit block's coinbase is
	// missing, or carries a mismatching, witness commitment output.
	ErrBadWitnessCommitment

	// ErrBlockTooBig indicates the block's weight exceeds the consensus
	// limit.
	ErrBlockTooBig

	// ErrEmptyBlock indicates a block has no transactions, or a transaction
	// has no inputs or no outputs.
	ErrEmptyBlock

	// ErrFirstTxIsNotCoinbase indicates the block's first transaction is
	// not a coinbase.
	ErrFirstTxIsNotCoinbase

	// ErrBadCoinbaseOutValue indicates the coinbase claims more than the
	// subsidy plus collected fees.
	ErrBadCoinbaseOutValue

	// ErrBadPoW indicates a header's hash does not satisfy its claimed
	// difficulty target, or its claimed bits do not match the difficulty
	// the chain requires at its height.
	ErrBadPoW

	// ErrBIP94TimeWarp indicates a header's timestamp violates BIP94's
	// anti-timewarp bound on a network that enforces it.
	ErrBIP94TimeWarp

	// ErrUtxoNotFound indicates a transaction input references an output
	// not present in the supplied UTXO table, including a double-spend
	// within the same block.
	ErrUtxoNotFound

	// ErrPrematureCoinbaseSpend indicates a coinbase output is spent before
	// reaching coinbase maturity, or an input violates its BIP68 relative
	// locktime.
	ErrPrematureCoinbaseSpend

	// ErrBadScript indicates script execution failed for an input.
	ErrBadScript

	// ErrNegativeFee indicates a transaction's outputs exceed its inputs.
	ErrNegativeFee

	// ErrAmountOverflow indicates a value sum exceeded the maximum money
	// supply or overflowed its accumulator.
	ErrAmountOverflow

	// ErrDuplicateInput indicates a transaction spends the same outpoint
	// twice.
	ErrDuplicateInput

	// ErrBadAccumulatorProof indicates an inclusion proof failed to
	// establish membership of every claimed leaf.
	ErrBadAccumulatorProof

	// ErrUnspendableUTXO indicates del_hashes named a leaf on the fixed
	// unspendable list.
	ErrUnspendableUTXO

	// ErrStorageFailure indicates the storage collaborator returned an
	// error while reading or persisting chain state.
	ErrStorageFailure

	// ErrChainNotInitialized indicates an operation was attempted before
	// the chain state loaded a genesis tip.
	ErrChainNotInitialized

	// ErrUnknownHeader indicates a lookup or AcceptHeader referenced a
	// hash the chain state has not seen a header for, or a header or block
	// does not attach where it must: its prev_hash does not match the given
	// parent, it does not extend the validated tip at the indexed height, or
	// a reorg branch does not carry more work than the current tip.
	ErrUnknownHeader
)

var errorCodeStrings = map[ErrorCode]string{
	ErrBadMerkleRoot:          "ErrBadMerkleRoot",
	ErrBadBip34:               "ErrBadBip34",
	ErrBadWitnessCommitment:   "ErrBadWitnessCommitment",
	ErrBlockTooBig:            "ErrBlockTooBig",
	ErrEmptyBlock:             "ErrEmptyBlock",
	ErrFirstTxIsNotCoinbase:   "ErrFirstTxIsNotCoinbase",
	ErrBadCoinbaseOutValue:    "ErrBadCoinbaseOutValue",
	ErrBadPoW:                 "ErrBadPoW",
	ErrBIP94TimeWarp:          "ErrBIP94TimeWarp",
	ErrUtxoNotFound:           "ErrUtxoNotFound",
	ErrPrematureCoinbaseSpend: "ErrPrematureCoinbaseSpend",
	ErrBadScript:              "ErrBadScript",
	ErrNegativeFee:            "ErrNegativeFee",
	ErrAmountOverflow:         "ErrAmountOverflow",
	ErrDuplicateInput:         "ErrDuplicateInput",
	ErrBadAccumulatorProof:    "ErrBadAccumulatorProof",
	ErrUnspendableUTXO:        "ErrUnspendableUTXO",
	ErrStorageFailure:         "ErrStorageFailure",
	ErrChainNotInitialized:    "ErrChainNotInitialized",
	ErrUnknownHeader:          "ErrUnknownHeader",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// RuleError identifies a rule violation found while validating a header,
// transaction, or block. It carries the ErrorCode callers should switch on
// plus a human-readable description for logs.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode reports whether err is a RuleError with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	rerr, ok := err.(RuleError)
	return ok && rerr.ErrorCode == c
}
