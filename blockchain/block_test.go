// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/JoseSK999/floresta/chaincfg"
	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/internal/accumulator"
	"github.com/JoseSK999/floresta/wire"
)

// minimalScriptNum encodes value the way Bitcoin's CScriptNum does: a
// little-endian magnitude with the sign carried in the top bit of the last
// byte, extended by one zero/0x80 byte whenever the magnitude alone would
// leave that bit ambiguous. Zero encodes as the empty byte string.
func minimalScriptNum(value int32) []byte {
	if value == 0 {
		return nil
	}
	neg := value < 0
	abs := uint32(value)
	if neg {
		abs = uint32(-value)
	}

	var b []byte
	for abs != 0 {
		b = append(b, byte(abs&0xff))
		abs >>= 8
	}
	if b[len(b)-1]&0x80 != 0 {
		if neg {
			b = append(b, 0x80)
		} else {
			b = append(b, 0x00)
		}
	} else if neg {
		b[len(b)-1] |= 0x80
	}
	return b
}

// heightPushScript returns a direct-push script_sig whose sole push is
// height's minimal CScriptNum encoding, as BIP34 requires.
func heightPushScript(height int32) []byte {
	b := minimalScriptNum(height)
	return append([]byte{byte(len(b))}, b...)
}

func coinbaseTx(scriptSig []byte, outValue int64) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
			SignatureScript:  scriptSig,
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: outValue, PkScript: []byte{0x76, 0xa9, 0x14}}},
	}
}

// TestCheckBIP34 checks that a coinbase script_sig beginning with a
// minimally-encoded push of the 3-byte little-endian integer equal to the
// block's height validates, and mutating that push to one past the real
// height fails BadBip34.
func TestCheckBIP34(t *testing.T) {
	const height = 227_836
	params := &chaincfg.Params{BIP34Height: 0}

	good := &wire.MsgBlock{Transactions: []*wire.MsgTx{coinbaseTx(heightPushScript(height), 1)}}
	if err := checkBIP34(good, height, params); err != nil {
		t.Fatalf("expected a correct height push to validate, got %v", err)
	}

	mutated := &wire.MsgBlock{Transactions: []*wire.MsgTx{coinbaseTx(heightPushScript(height+1), 1)}}
	err := checkBIP34(mutated, height, params)
	if !IsErrorCode(err, ErrBadBip34) {
		t.Fatalf("expected ErrBadBip34 for a mismatching height push, got %v", err)
	}
}

// TestCheckBIP34SkippedBeforeActivation confirms the check is a no-op below
// the network's activation height.
func TestCheckBIP34SkippedBeforeActivation(t *testing.T) {
	params := &chaincfg.Params{BIP34Height: 1000}
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{coinbaseTx([]byte{0xff, 0xff}, 1)}}
	if err := checkBIP34(block, 500, params); err != nil {
		t.Fatalf("expected no BIP34 enforcement below activation height, got %v", err)
	}
}

// TestCheckMerkleRootMismatch exercises the structural Merkle root check.
func TestCheckMerkleRootMismatch(t *testing.T) {
	block := &wire.MsgBlock{
		Header:       wire.BlockHeader{},
		Transactions: []*wire.MsgTx{coinbaseTx(heightPushScript(1), 1)},
	}
	block.Header.MerkleRoot[0] = 0xff // deliberately wrong
	err := checkMerkleRoot(block)
	if !IsErrorCode(err, ErrBadMerkleRoot) {
		t.Fatalf("expected ErrBadMerkleRoot, got %v", err)
	}

	block.Header.MerkleRoot = block.MerkleRoot()
	if err := checkMerkleRoot(block); err != nil {
		t.Fatalf("expected a correctly recomputed merkle root to validate, got %v", err)
	}
}

func buildOverclaimBlock(t *testing.T, height int32, coinbaseOut int64) (*wire.MsgBlock, *chaincfg.Params) {
	t.Helper()
	params := chaincfg.RegTestParams()

	block := &wire.MsgBlock{
		Transactions: []*wire.MsgTx{coinbaseTx(heightPushScript(height), coinbaseOut)},
	}
	block.Header.MerkleRoot = block.MerkleRoot()
	block.Header.Timestamp = time.Unix(1_700_000_000, 0)
	return block, params
}

// TestValidateBlockNoAccCoinbaseOverclaim checks that a coinbase claiming
// one satoshi more than subsidy+fees fails BadCoinbaseOutValue, while one
// satoshi less is accepted (under-claim is permitted).
func TestValidateBlockNoAccCoinbaseOverclaim(t *testing.T) {
	const height = 1
	const subsidy = 5_000_000_000

	over, params := buildOverclaimBlock(t, height, subsidy+1)
	_, err := ValidateBlockNoAcc(over, height, 0, UtxoSet{}, nil, nil, params, nil)
	if !IsErrorCode(err, ErrBadCoinbaseOutValue) {
		t.Fatalf("expected ErrBadCoinbaseOutValue for an over-claiming coinbase, got %v", err)
	}

	under, params := buildOverclaimBlock(t, height, subsidy-1)
	if _, err := ValidateBlockNoAcc(under, height, 0, UtxoSet{}, nil, nil, params, nil); err != nil {
		t.Fatalf("expected an under-claiming coinbase to be accepted, got %v", err)
	}
}

// TestConnectBlockBindsProofPayload checks that the spend context supplied
// alongside a proof must hash to the leaves being deleted: forged UtxoData
// (here, an inflated value) riding on a real leaf hash is rejected before
// any of it reaches transaction validation.
func TestConnectBlockBindsProofPayload(t *testing.T) {
	params := chaincfg.RegTestParams()
	op := wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 0}
	honest := simpleUtxo(5000, 1, false)
	leaf := accumulator.LeafHash(op, honest)

	forged := honest
	forged.TxOut.Value = 5_000_000

	block := &wire.MsgBlock{
		Transactions: []*wire.MsgTx{coinbaseTx(heightPushScript(200), 1)},
	}
	block.Header.MerkleRoot = block.MerkleRoot()

	_, _, err := ConnectBlock(block, 200, 0, accumulator.Stump{}, accumulator.Proof{},
		[]chainhash.Hash{leaf}, []wire.OutPoint{op}, []accumulator.UtxoData{forged},
		nil, nil, params, nil)
	if !IsErrorCode(err, ErrBadAccumulatorProof) {
		t.Fatalf("expected ErrBadAccumulatorProof for utxo data that does not hash to the deleted leaf, got %v", err)
	}

	_, _, err = ConnectBlock(block, 200, 0, accumulator.Stump{}, accumulator.Proof{},
		[]chainhash.Hash{leaf}, []wire.OutPoint{op}, nil,
		nil, nil, params, nil)
	if !IsErrorCode(err, ErrBadAccumulatorProof) {
		t.Fatalf("expected ErrBadAccumulatorProof for a payload length mismatch, got %v", err)
	}
}

// TestValidateBlockNoAccRejectsEmptyBlock exercises the minimum of one
// (coinbase) transaction per block.
func TestValidateBlockNoAccRejectsEmptyBlock(t *testing.T) {
	params := chaincfg.RegTestParams()
	block := &wire.MsgBlock{}
	_, err := ValidateBlockNoAcc(block, 1, 0, UtxoSet{}, nil, nil, params, nil)
	if !IsErrorCode(err, ErrEmptyBlock) {
		t.Fatalf("expected ErrEmptyBlock for a block with no transactions, got %v", err)
	}
}

// TestValidateBlockNoAccRequiresCoinbaseFirst exercises FirstTxIsNotCoinbase.
func TestValidateBlockNoAccRequiresCoinbaseFirst(t *testing.T) {
	params := chaincfg.RegTestParams()
	notCoinbase := &wire.MsgTx{
		Version: 1,
		TxIn:    []*wire.TxIn{{PreviousOutPoint: wire.OutPoint{Index: 0}}},
		TxOut:   []*wire.TxOut{{Value: 1, PkScript: []byte{0x00}}},
	}
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{notCoinbase}}
	_, err := ValidateBlockNoAcc(block, 1, 0, UtxoSet{}, nil, nil, params, nil)
	if !IsErrorCode(err, ErrFirstTxIsNotCoinbase) {
		t.Fatalf("expected ErrFirstTxIsNotCoinbase, got %v", err)
	}
}
