// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/JoseSK999/floresta/internal/accumulator"
	"github.com/JoseSK999/floresta/internal/workerpool"
	"github.com/JoseSK999/floresta/txscript"
	"github.com/JoseSK999/floresta/wire"
)

// MaxBlockWeight is the consensus ceiling on a block's BIP141 weight; since
// no transaction can itself exceed its containing block, this also bounds a
// single transaction's serialized size.
const MaxBlockWeight = 4_000_000

// minCoinbaseScriptLen and maxCoinbaseScriptLen bound a coinbase's sole
// input script, per network consensus rules.
const (
	minCoinbaseScriptLen = 2
	maxCoinbaseScriptLen = 100
)

// UtxoSet maps an outpoint to the data needed to validate spending it. The
// transaction validator deletes an entry as soon as it is spent, so a
// second reference to the same outpoint within a block's transactions
// fails UtxoNotFound rather than silently double-spending.
type UtxoSet map[wire.OutPoint]accumulator.UtxoData

// VerifyTransaction runs the per-transaction consensus checks against a
// non-coinbase transaction: structural validity, UTXO lookup (consuming the
// entry from utxos so a same-block double-spend fails on its second
// input), coinbase maturity, and BIP68 relative locktime. When verifier is
// non-nil, one workerpool.Job per input is appended to scriptJobs instead
// of being run inline, so the block validator can execute every input's
// script check across the block concurrently before its single accept/
// reject decision. It returns the summed input and output value; the
// caller derives fee = inValue - outValue.
func VerifyTransaction(
	tx *wire.MsgTx,
	utxos UtxoSet,
	height int32,
	medianTimePast int64,
	verifier txscript.ScriptVerifier,
	flags txscript.ScriptFlags,
	sigCache *txscript.SigCache,
	scriptJobs *[]workerpool.Job,
) (inValue, outValue int64, err error) {
	if len(tx.TxIn) == 0 {
		return 0, 0, ruleError(ErrEmptyBlock, "transaction has no inputs")
	}
	if len(tx.TxOut) == 0 {
		return 0, 0, ruleError(ErrEmptyBlock, "transaction has no outputs")
	}
	if tx.SerializeSize() > MaxBlockWeight {
		return 0, 0, ruleError(ErrBlockTooBig, "transaction exceeds the maximum block weight")
	}

	seen := make(map[wire.OutPoint]struct{}, len(tx.TxIn))
	for _, in := range tx.TxIn {
		if _, dup := seen[in.PreviousOutPoint]; dup {
			return 0, 0, ruleError(ErrDuplicateInput, "transaction spends the same outpoint twice")
		}
		seen[in.PreviousOutPoint] = struct{}{}
	}

	for i, in := range tx.TxIn {
		utxo, ok := utxos[in.PreviousOutPoint]
		if !ok {
			return 0, 0, ruleError(ErrUtxoNotFound, "referenced utxo not found or already spent")
		}
		delete(utxos, in.PreviousOutPoint)

		if utxo.IsCoinBase {
			if int64(height)-int64(utxo.CreatingHeight) < 100 {
				return 0, 0, ruleError(ErrPrematureCoinbaseSpend,
					"attempt to spend coinbase output before maturity")
			}
		}

		if tx.Version >= 2 {
			if err := checkSequenceLock(in.Sequence, utxo.CreatingHeight, height, medianTimePast); err != nil {
				return 0, 0, err
			}
		}

		if verifier != nil {
			inputIdx, prevOut := i, utxo.TxOut
			*scriptJobs = append(*scriptJobs, func() error {
				if err := verifier.VerifyInput(tx, inputIdx, &prevOut, flags, sigCache); err != nil {
					return ruleError(ErrBadScript, "script execution failed: "+err.Error())
				}
				return nil
			})
		}

		newIn, overflow := addMoneyChecked(inValue, utxo.TxOut.Value)
		if overflow {
			return 0, 0, ruleError(ErrAmountOverflow, "input value sum overflows consensus max money")
		}
		inValue = newIn
	}

	for _, out := range tx.TxOut {
		if out.Value < 0 || out.Value > MaxMoney {
			return 0, 0, ruleError(ErrAmountOverflow, "output value out of range")
		}
		newOut, overflow := addMoneyChecked(outValue, out.Value)
		if overflow {
			return 0, 0, ruleError(ErrAmountOverflow, "output value sum overflows consensus max money")
		}
		outValue = newOut
	}

	if inValue < outValue {
		return 0, 0, ruleError(ErrNegativeFee, "transaction outputs exceed its inputs")
	}

	return inValue, outValue, nil
}

// addMoneyChecked adds b to a, reporting overflow past int64 or past the
// 21e6 BTC consensus cap, whichever comes first.
func addMoneyChecked(a, b int64) (sum int64, overflow bool) {
	if a < 0 || b < 0 || a > MaxMoney || b > MaxMoney {
		return 0, true
	}
	sum = a + b
	if sum < a || sum > MaxMoney {
		return 0, true
	}
	return sum, false
}

// checkSequenceLock enforces BIP68's height-based form: when the input's
// sequence number does not have the disable bit set and its type bit selects
// a block count, that many blocks must already have elapsed since the spent
// output's creation height. A time-based lock (512-second units) is accepted
// without any check.
func checkSequenceLock(sequence uint32, creatingHeight uint32, height int32, medianTimePast int64) error {
	if sequence&wire.SequenceLockTimeDisabled != 0 {
		return nil
	}

	relative := int64(sequence & wire.SequenceLockTimeMask)
	if sequence&wire.SequenceLockTimeIsSeconds != 0 {
		// The time-based form cannot be checked without the median time
		// past of the block that created the spent output, which the
		// accumulator's leaf data does not carry; height-based locks, the
		// common case for CSV-gated contracts, are enforced exactly.
		_ = medianTimePast
		return nil
	}

	if int64(height)-int64(creatingHeight) < relative {
		return ruleError(ErrPrematureCoinbaseSpend,
			"transaction input violates BIP68 relative locktime")
	}
	return nil
}

// VerifyCoinbase checks the structural rules specific to a block's first
// transaction: exactly one input, referencing the null outpoint, with a
// script_sig between 2 and 100 bytes. No script is executed for a coinbase
// input.
func VerifyCoinbase(tx *wire.MsgTx) error {
	if len(tx.TxIn) != 1 {
		return ruleError(ErrFirstTxIsNotCoinbase, "coinbase must have exactly one input")
	}
	if !tx.TxIn[0].PreviousOutPoint.IsNull() {
		return ruleError(ErrFirstTxIsNotCoinbase, "coinbase input must reference the null outpoint")
	}
	scriptLen := len(tx.TxIn[0].SignatureScript)
	if scriptLen < minCoinbaseScriptLen || scriptLen > maxCoinbaseScriptLen {
		return ruleError(ErrFirstTxIsNotCoinbase, "coinbase script_sig length out of range")
	}
	if len(tx.TxOut) == 0 {
		return ruleError(ErrEmptyBlock, "coinbase has no outputs")
	}
	for _, out := range tx.TxOut {
		if out.Value < 0 || out.Value > MaxMoney {
			return ruleError(ErrAmountOverflow, "coinbase output value out of range")
		}
	}
	return nil
}
