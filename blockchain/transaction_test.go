// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/JoseSK999/floresta/internal/accumulator"
	"github.com/JoseSK999/floresta/internal/workerpool"
	"github.com/JoseSK999/floresta/wire"
)

func simpleUtxo(value int64, creatingHeight uint32, isCoinbase bool) accumulator.UtxoData {
	return accumulator.UtxoData{
		TxOut:          wire.TxOut{Value: value, PkScript: []byte{0x76, 0xa9, 0x14}},
		CreatingHeight: creatingHeight,
		IsCoinBase:     isCoinbase,
	}
}

func txSpending(outpoints []wire.OutPoint, outValues ...int64) *wire.MsgTx {
	tx := &wire.MsgTx{Version: 1}
	for _, op := range outpoints {
		tx.TxIn = append(tx.TxIn, &wire.TxIn{PreviousOutPoint: op, Sequence: wire.MaxTxInSequenceNum})
	}
	for _, v := range outValues {
		tx.TxOut = append(tx.TxOut, &wire.TxOut{Value: v, PkScript: []byte{0x00}})
	}
	return tx
}

// TestVerifyTransactionPrematureCoinbaseSpend checks that spending a
// coinbase output one block short of maturity fails, and the identical
// structure at exactly 100 blocks is accepted.
func TestVerifyTransactionPrematureCoinbaseSpend(t *testing.T) {
	op := wire.OutPoint{Index: 0}

	immature := UtxoSet{op: simpleUtxo(5000, 1, true)}
	tx := txSpending([]wire.OutPoint{op}, 4000)
	_, _, err := VerifyTransaction(tx, immature, 1+99, 0, nil, 0, nil, &[]workerpool.Job{})
	if !IsErrorCode(err, ErrPrematureCoinbaseSpend) {
		t.Fatalf("expected ErrPrematureCoinbaseSpend at height-creatingHeight=99, got %v", err)
	}

	mature := UtxoSet{op: simpleUtxo(5000, 1, true)}
	tx2 := txSpending([]wire.OutPoint{op}, 4000)
	_, _, err = VerifyTransaction(tx2, mature, 1+100, 0, nil, 0, nil, &[]workerpool.Job{})
	if err != nil {
		t.Fatalf("expected acceptance at height-creatingHeight=100, got %v", err)
	}
}

// TestVerifyTransactionDuplicateInput exercises the same-transaction
// double-spend structural check.
func TestVerifyTransactionDuplicateInput(t *testing.T) {
	op := wire.OutPoint{Index: 0}
	tx := txSpending([]wire.OutPoint{op, op}, 1000)
	utxos := UtxoSet{op: simpleUtxo(5000, 0, false)}
	_, _, err := VerifyTransaction(tx, utxos, 10, 0, nil, 0, nil, &[]workerpool.Job{})
	if !IsErrorCode(err, ErrDuplicateInput) {
		t.Fatalf("expected ErrDuplicateInput, got %v", err)
	}
}

// TestVerifyTransactionDoubleSpendAcrossBlock confirms that consuming an
// entry from utxos makes a second reference to the same outpoint (e.g. via
// two distinct inputs that happen to reuse it across calls, modeling a
// within-block double-spend across transactions) fail UtxoNotFound on its
// second lookup.
func TestVerifyTransactionDoubleSpendAcrossBlock(t *testing.T) {
	op := wire.OutPoint{Index: 0}
	utxos := UtxoSet{op: simpleUtxo(5000, 0, false)}

	firstTx := txSpending([]wire.OutPoint{op}, 1000)
	if _, _, err := VerifyTransaction(firstTx, utxos, 10, 0, nil, 0, nil, &[]workerpool.Job{}); err != nil {
		t.Fatalf("expected first spend to succeed, got %v", err)
	}

	secondTx := txSpending([]wire.OutPoint{op}, 1000)
	_, _, err := VerifyTransaction(secondTx, utxos, 10, 0, nil, 0, nil, &[]workerpool.Job{})
	if !IsErrorCode(err, ErrUtxoNotFound) {
		t.Fatalf("expected ErrUtxoNotFound for a utxo already consumed earlier in the block, got %v", err)
	}
}

// TestVerifyTransactionNegativeFee exercises the in_value >= out_value
// requirement.
func TestVerifyTransactionNegativeFee(t *testing.T) {
	op := wire.OutPoint{Index: 0}
	utxos := UtxoSet{op: simpleUtxo(1000, 0, false)}
	tx := txSpending([]wire.OutPoint{op}, 2000)
	_, _, err := VerifyTransaction(tx, utxos, 10, 0, nil, 0, nil, &[]workerpool.Job{})
	if !IsErrorCode(err, ErrNegativeFee) {
		t.Fatalf("expected ErrNegativeFee, got %v", err)
	}
}

// TestVerifyTransactionAmountOverflow exercises the 21e6 BTC consensus cap.
func TestVerifyTransactionAmountOverflow(t *testing.T) {
	op1 := wire.OutPoint{Index: 0}
	op2 := wire.OutPoint{Index: 1}
	utxos := UtxoSet{
		op1: simpleUtxo(MaxMoney, 0, false),
		op2: simpleUtxo(1, 0, false),
	}
	tx := txSpending([]wire.OutPoint{op1, op2}, 1000)
	_, _, err := VerifyTransaction(tx, utxos, 10, 0, nil, 0, nil, &[]workerpool.Job{})
	if !IsErrorCode(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow when input sum exceeds MaxMoney, got %v", err)
	}
}

// TestVerifyTransactionRejectsEmptyInputsOrOutputs exercises the structural
// minimum of at least one input and one output.
func TestVerifyTransactionRejectsEmptyInputsOrOutputs(t *testing.T) {
	noInputs := &wire.MsgTx{Version: 1, TxOut: []*wire.TxOut{{Value: 1}}}
	if _, _, err := VerifyTransaction(noInputs, UtxoSet{}, 10, 0, nil, 0, nil, &[]workerpool.Job{}); err == nil {
		t.Fatal("expected a transaction with no inputs to be rejected")
	}

	noOutputs := &wire.MsgTx{Version: 1, TxIn: []*wire.TxIn{{PreviousOutPoint: wire.OutPoint{Index: 0}}}}
	if _, _, err := VerifyTransaction(noOutputs, UtxoSet{}, 10, 0, nil, 0, nil, &[]workerpool.Job{}); err == nil {
		t.Fatal("expected a transaction with no outputs to be rejected")
	}
}

// TestVerifyCoinbase exercises the coinbase structural rules: exactly one
// input referencing the null outpoint, with a script_sig between 2 and
// 100 bytes inclusive.
func TestVerifyCoinbase(t *testing.T) {
	valid := coinbaseTx(make([]byte, 2), 100)
	if err := VerifyCoinbase(valid); err != nil {
		t.Fatalf("expected a minimal valid coinbase to pass, got %v", err)
	}

	tooShort := coinbaseTx(make([]byte, 1), 100)
	if err := VerifyCoinbase(tooShort); err == nil {
		t.Fatal("expected a 1-byte script_sig to be rejected")
	}

	tooLong := coinbaseTx(make([]byte, 101), 100)
	if err := VerifyCoinbase(tooLong); err == nil {
		t.Fatal("expected a 101-byte script_sig to be rejected")
	}

	atMax := coinbaseTx(make([]byte, 100), 100)
	if err := VerifyCoinbase(atMax); err != nil {
		t.Fatalf("expected a 100-byte script_sig to be accepted, got %v", err)
	}

	notNullOutpoint := coinbaseTx(make([]byte, 2), 100)
	notNullOutpoint.TxIn[0].PreviousOutPoint.Index = 0
	if err := VerifyCoinbase(notNullOutpoint); err == nil {
		t.Fatal("expected a coinbase referencing a non-null outpoint to be rejected")
	}
}

// TestCheckSequenceLockHeightBased exercises BIP68's height-based relative
// locktime.
func TestCheckSequenceLockHeightBased(t *testing.T) {
	const creatingHeight = 100
	const relative = 10

	if err := checkSequenceLock(relative, creatingHeight, creatingHeight+relative-1, 0); err == nil {
		t.Fatal("expected a relative locktime one block short of elapsed to be rejected")
	}
	if err := checkSequenceLock(relative, creatingHeight, creatingHeight+relative, 0); err != nil {
		t.Fatalf("expected a fully elapsed relative locktime to be accepted, got %v", err)
	}
}

// TestCheckSequenceLockDisabled confirms the disable bit skips enforcement
// entirely regardless of the encoded value.
func TestCheckSequenceLockDisabled(t *testing.T) {
	seq := uint32(wire.SequenceLockTimeDisabled) | 0xffff
	if err := checkSequenceLock(seq, 100, 100, 0); err != nil {
		t.Fatalf("expected the disable bit to skip BIP68 enforcement, got %v", err)
	}
}
