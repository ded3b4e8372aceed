// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"runtime"

	"github.com/JoseSK999/floresta/chaincfg"
	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/internal/accumulator"
	"github.com/JoseSK999/floresta/internal/workerpool"
	"github.com/JoseSK999/floresta/txscript"
	"github.com/JoseSK999/floresta/wire"
)

// scriptWorkers runs one block's worth of per-input script checks
// concurrently; its result is joined before ValidateBlockNoAcc makes its
// single-threaded accept/reject decision.
var scriptWorkers = workerpool.New(runtime.NumCPU())

// checkMerkleRoot recomputes the block's Merkle root over txids and
// compares it against the header's claimed value.
func checkMerkleRoot(block *wire.MsgBlock) error {
	if block.Header.MerkleRoot != block.MerkleRoot() {
		return ruleError(ErrBadMerkleRoot, "computed merkle root does not match header")
	}
	return nil
}

// checkBIP34 requires the coinbase's first script_sig push, read as a
// minimally-encoded signed integer (with OP_1..OP_16 decoded to 1..16), to
// equal the block's own height, once BIP34 is active.
func checkBIP34(block *wire.MsgBlock, height int32, params *chaincfg.Params) error {
	if height < params.BIP34Height {
		return nil
	}
	coinbase := block.Transactions[0]
	if len(coinbase.TxIn) == 0 {
		return ruleError(ErrBadBip34, "coinbase has no input to carry the height push")
	}
	script := coinbase.TxIn[0].SignatureScript
	pushed, ok := decodeHeightPush(script)
	if !ok || pushed != height {
		return ruleError(ErrBadBip34, "coinbase height push does not match block height")
	}
	return nil
}

// decodeHeightPush reads the leading push of script as a block height: a
// direct push of a minimally-encoded little-endian signed integer, or one
// of the single-byte OP_1..OP_16 opcodes decoded to 1..16.
func decodeHeightPush(script []byte) (int32, bool) {
	if len(script) == 0 {
		return 0, false
	}

	op := script[0]
	switch {
	case op >= 0x51 && op <= 0x60: // OP_1..OP_16
		return int32(op - 0x50), true
	case op >= 0x01 && op <= 0x4b:
		n := int(op)
		if len(script) < 1+n {
			return 0, false
		}
		return decodeMinimalScriptNum(script[1 : 1+n])
	default:
		return 0, false
	}
}

// decodeMinimalScriptNum decodes b as a minimally-encoded, little-endian,
// sign-magnitude script integer, failing closed on a non-minimal encoding.
func decodeMinimalScriptNum(b []byte) (int32, bool) {
	if len(b) == 0 {
		return 0, false
	}
	if b[len(b)-1]&0x7f == 0 {
		// Top byte's magnitude bits are all zero: only valid if the sign
		// bit carries into a new byte, otherwise a shorter encoding exists.
		if len(b) <= 1 || b[len(b)-2]&0x80 == 0 {
			return 0, false
		}
	}

	var result int64
	for i, bb := range b {
		result |= int64(bb) << uint(8*i)
	}
	if b[len(b)-1]&0x80 != 0 {
		result &^= int64(0x80) << uint(8*(len(b)-1))
		result = -result
	}
	if result < -(1<<31) || result > (1<<31)-1 {
		return 0, false
	}
	return int32(result), true
}

// checkWitnessCommitment requires, when any transaction in the block
// carries a witness, that the coinbase contains an OP_RETURN output whose
// payload is the magic bytes followed by SHA-256d(witness_root ||
// witness_reserved_value), where witness_reserved_value is the 32-byte
// value carried in the coinbase input's own (single-element) witness.
func checkWitnessCommitment(block *wire.MsgBlock) error {
	if !block.HasWitness() {
		return nil
	}

	coinbase := block.Transactions[0]
	var reserved [32]byte
	if len(coinbase.TxIn) > 0 && len(coinbase.TxIn[0].Witness) == 1 &&
		len(coinbase.TxIn[0].Witness[0]) == 32 {
		copy(reserved[:], coinbase.TxIn[0].Witness[0])
	}

	witnessRoot := block.WitnessMerkleRoot()
	var preimage [64]byte
	copy(preimage[:32], witnessRoot[:])
	copy(preimage[32:], reserved[:])
	commitment := chainhash.HashH(preimage[:])

	for i := len(coinbase.TxOut) - 1; i >= 0; i-- {
		script := coinbase.TxOut[i].PkScript
		if len(script) != wire.WitnessCommitmentScriptLen {
			continue
		}
		if script[0] != 0x6a || script[1] != 0x24 {
			continue
		}
		if !bytes.Equal(script[2:6], wire.WitnessMagicBytes[:]) {
			continue
		}
		if bytes.Equal(script[6:38], commitment[:]) {
			return nil
		}
		return ruleError(ErrBadWitnessCommitment, "witness commitment hash mismatch")
	}
	return ruleError(ErrBadWitnessCommitment, "segwit block's coinbase lacks a witness commitment output")
}

// ValidateBlockNoAcc runs the full consensus rule set for a block except
// the accumulator update: Merkle root, BIP34, witness commitment, weight,
// coinbase/subsidy, and every non-coinbase transaction. utxos must already
// contain an entry for every outpoint from an earlier block that a
// non-coinbase input references; outputs created earlier in this block are
// added to it as validation proceeds. verifier may be nil, in which case only structural checks run (the
// engine's documented assume-valid mode).
func ValidateBlockNoAcc(
	block *wire.MsgBlock,
	height int32,
	medianTimePast int64,
	utxos UtxoSet,
	verifier txscript.ScriptVerifier,
	sigCache *txscript.SigCache,
	params *chaincfg.Params,
	stop <-chan struct{},
) (fee int64, err error) {
	if len(block.Transactions) == 0 {
		return 0, ruleError(ErrEmptyBlock, "block has no transactions")
	}
	if !block.Transactions[0].IsCoinBase() {
		return 0, ruleError(ErrFirstTxIsNotCoinbase, "block's first transaction is not coinbase")
	}
	if block.Weight() > MaxBlockWeight {
		return 0, ruleError(ErrBlockTooBig, "block weight exceeds consensus limit")
	}
	if err := checkMerkleRoot(block); err != nil {
		return 0, err
	}
	if err := checkBIP34(block, height, params); err != nil {
		return 0, err
	}
	if err := checkWitnessCommitment(block); err != nil {
		return 0, err
	}
	if err := VerifyCoinbase(block.Transactions[0]); err != nil {
		return 0, err
	}

	flags := params.ValidationFlagsFor(height)
	blockHash := block.BlockHash()

	// Outputs created by this block become spendable by transactions later
	// in the same block. They are inserted as each transaction passes
	// validation, so an input can only reference an output of an earlier
	// transaction, matching the consensus topological-order requirement.
	addCreatedOutputs(utxos, block.Transactions[0], blockHash, height, true)

	var totalFee int64
	var scriptJobs []workerpool.Job
	for _, tx := range block.Transactions[1:] {
		if stop != nil {
			select {
			case <-stop:
				return 0, ErrShuttingDown
			default:
			}
		}
		inVal, outVal, err := VerifyTransaction(tx, utxos, height, medianTimePast, verifier, flags, sigCache, &scriptJobs)
		if err != nil {
			return 0, err
		}
		addCreatedOutputs(utxos, tx, blockHash, height, false)
		newFee, overflow := addMoneyChecked(totalFee, inVal-outVal)
		if overflow {
			return 0, ruleError(ErrAmountOverflow, "accumulated fee overflows consensus max money")
		}
		totalFee = newFee
	}

	if err := scriptWorkers.Run(scriptJobs); err != nil {
		return 0, err
	}

	var coinbaseOut int64
	for _, out := range block.Transactions[0].TxOut {
		newOut, overflow := addMoneyChecked(coinbaseOut, out.Value)
		if overflow {
			return 0, ruleError(ErrAmountOverflow, "coinbase output sum overflows consensus max money")
		}
		coinbaseOut = newOut
	}

	subsidy := CalcBlockSubsidy(height, params)
	maxClaim, overflow := addMoneyChecked(subsidy, totalFee)
	if overflow || coinbaseOut > maxClaim {
		return 0, ruleError(ErrBadCoinbaseOutValue, "coinbase claims more than subsidy plus fees")
	}

	return totalFee, nil
}

// addCreatedOutputs inserts tx's economically spendable outputs into utxos
// so a later transaction in the same block can spend them. Provably
// unspendable outputs are excluded, mirroring how non-accumulator nodes
// never admit them to the UTXO set.
func addCreatedOutputs(utxos UtxoSet, tx *wire.MsgTx, blockHash chainhash.Hash, height int32, isCoinbase bool) {
	txHash := tx.TxHash()
	for i, out := range tx.TxOut {
		if accumulator.IsUnspendableOutput(out) {
			continue
		}
		op := wire.OutPoint{Hash: txHash, Index: uint32(i)}
		utxos[op] = accumulator.UtxoData{
			TxOut:             *out,
			CreatingBlockHash: blockHash,
			CreatingHeight:    uint32(height),
			IsCoinBase:        isCoinbase,
		}
	}
}

// ConnectBlockInputs pairs each non-coinbase input's outpoint with its
// matching UtxoData entry, in the order the proof payload supplies them,
// to rebuild the UtxoSet ValidateBlockNoAcc and the accumulator both need.
func ConnectBlockInputs(block *wire.MsgBlock, outpoints []wire.OutPoint, utxoData []accumulator.UtxoData) (UtxoSet, error) {
	if len(outpoints) != len(utxoData) {
		return nil, ruleError(ErrBadAccumulatorProof, "proof payload outpoint/utxo-data length mismatch")
	}
	utxos := make(UtxoSet, len(outpoints))
	for i, op := range outpoints {
		utxos[op] = utxoData[i]
	}
	return utxos, nil
}

// ConnectBlock runs ValidateBlockNoAcc and, on success, verifies proof
// against stump and atomically deletes delHashes / adds the block's own
// new leaves, returning the resulting Stump. The chain tip must not be
// advanced unless this returns a nil error.
func ConnectBlock(
	block *wire.MsgBlock,
	height int32,
	medianTimePast int64,
	stump accumulator.Stump,
	proof accumulator.Proof,
	delHashes []chainhash.Hash,
	outpoints []wire.OutPoint,
	utxoData []accumulator.UtxoData,
	verifier txscript.ScriptVerifier,
	sigCache *txscript.SigCache,
	params *chaincfg.Params,
	stop <-chan struct{},
) (accumulator.Stump, int64, error) {
	utxos, err := ConnectBlockInputs(block, outpoints, utxoData)
	if err != nil {
		return accumulator.Stump{}, 0, err
	}

	// Bind the proof payload to the leaves being deleted: delHashes,
	// outpoints, and utxoData all come from an untrusted peer, and the
	// UtxoData is what the block is validated against. Recomputing each
	// leaf hash from (outpoint, utxo data) and requiring it to match the
	// claimed deletion means forged spend context (an inflated value, a
	// cleared coinbase flag) can no longer ride on a real leaf's proof.
	if len(delHashes) != len(outpoints) {
		return accumulator.Stump{}, 0, ruleError(ErrBadAccumulatorProof,
			"proof payload outpoint/del-hash length mismatch")
	}
	for i, op := range outpoints {
		if accumulator.LeafHash(op, utxoData[i]) != delHashes[i] {
			return accumulator.Stump{}, 0, ruleError(ErrBadAccumulatorProof,
				"deleted leaf hash does not commit to the supplied utxo data")
		}
	}

	// The skip set for leaf addition is every outpoint the block's own
	// inputs consume: an output created and spent within this block never
	// round-trips through the accumulator, and an output from a prior block
	// is deleted via delHashes rather than added.
	spent := make(map[wire.OutPoint]bool)
	for _, tx := range block.Transactions[1:] {
		for _, in := range tx.TxIn {
			spent[in.PreviousOutPoint] = true
		}
	}

	fee, err := ValidateBlockNoAcc(block, height, medianTimePast, utxos, verifier, sigCache, params, stop)
	if err != nil {
		return accumulator.Stump{}, 0, err
	}

	blockHash := block.BlockHash()
	adds, _ := accumulator.BlockAdds(block, blockHash, uint32(height), spent)

	newStump, err := accumulator.Modify(stump, adds, delHashes, proof, params.UnspendableLeafHashes)
	if err != nil {
		if err == accumulator.ErrUnspendableUTXO {
			return accumulator.Stump{}, 0, ruleError(ErrUnspendableUTXO, err.Error())
		}
		return accumulator.Stump{}, 0, ruleError(ErrBadAccumulatorProof, err.Error())
	}

	return newStump, fee, nil
}
