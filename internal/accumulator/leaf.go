// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package accumulator

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/txscript/stdscript"
	"github.com/JoseSK999/floresta/wire"
)

// UtxoData is the context required to decide whether a previously-created
// output may be spent and to reconstruct its leaf hash. CreatingBlockHash
// is carried for callers that need to audit or re-derive provenance; the
// leaf hash itself (per the fixed wire format below) does not depend on it.
type UtxoData struct {
	TxOut             wire.TxOut
	CreatingBlockHash chainhash.Hash
	CreatingHeight    uint32
	IsCoinBase        bool
}

// HeaderCode packs the creation height and coinbase flag into one value:
// the height shifted left one bit, with the coinbase flag in the low bit.
func HeaderCode(u UtxoData) uint32 {
	code := u.CreatingHeight << 1
	if u.IsCoinBase {
		code |= 1
	}
	return code
}

// LeafHash computes the 32-byte accumulator leaf for a spent output,
// deterministic and bijective on (outpoint, utxo data).
//
//	H( tag || tag || outpoint || header_code || value_sats_le || script_pubkey )
//
// H is SHA-512/256; the tag is the fixed UtreexoTagV1 constant, doubled per
// BIP-340-style domain separation.
func LeafHash(outpoint wire.OutPoint, u UtxoData) chainhash.Hash {
	h := sha512.New512_256()
	h.Write(UtreexoTagV1[:])
	h.Write(UtreexoTagV1[:])
	h.Write(outpoint.Hash[:])

	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], outpoint.Index)
	h.Write(idx[:])

	var code [4]byte
	binary.LittleEndian.PutUint32(code[:], HeaderCode(u))
	h.Write(code[:])

	var value [8]byte
	binary.LittleEndian.PutUint64(value[:], uint64(u.TxOut.Value))
	h.Write(value[:])

	h.Write(u.TxOut.PkScript)

	var out chainhash.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// IsUnspendableOutput reports whether an output is provably unspendable and
// therefore must never be added as a leaf: an OP_RETURN script, a script
// longer than the consensus maximum, or one containing a disabled opcode.
func IsUnspendableOutput(out *wire.TxOut) bool {
	return stdscript.IsUnspendable(out.PkScript)
}

// BlockAdds returns, in transaction then output order, the leaf hashes and
// matching outpoints for every economically spendable output a block
// creates at the given height. skip identifies outputs consumed by a later
// input within the same block; those are excluded since they never need an
// accumulator round-trip.
func BlockAdds(block *wire.MsgBlock, blockHash chainhash.Hash, height uint32, skip map[wire.OutPoint]bool) ([]chainhash.Hash, []wire.OutPoint) {
	var leaves []chainhash.Hash
	var outpoints []wire.OutPoint

	for txIdx, tx := range block.Transactions {
		txHash := tx.TxHash()
		for i, out := range tx.TxOut {
			op := wire.OutPoint{Hash: txHash, Index: uint32(i)}
			if IsUnspendableOutput(out) {
				continue
			}
			if skip != nil && skip[op] {
				continue
			}
			u := UtxoData{
				TxOut:             *out,
				CreatingBlockHash: blockHash,
				CreatingHeight:    height,
				IsCoinBase:        txIdx == 0,
			}
			leaves = append(leaves, LeafHash(op, u))
			outpoints = append(outpoints, op)
		}
	}
	return leaves, outpoints
}
