// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/JoseSK999/floresta/chainhash"
)

// maxTxPerBlock bounds the allocation ReadVarInt can trigger when decoding a
// peer-supplied block.
const maxTxPerBlock = 1_000_000

// WitnessCommitmentScriptLen is the length, in bytes, of the OP_RETURN
// output a segwit-carrying block's coinbase must contain: 1-byte OP_RETURN,
// 1-byte push-36, the 4-byte commitment header, and the 32-byte commitment
// hash.
const WitnessCommitmentScriptLen = 38

// WitnessMagicBytes prefix the 32-byte commitment hash inside the coinbase's
// commitment output.
var WitnessMagicBytes = [4]byte{0xaa, 0x21, 0xa9, 0xed}

// MsgBlock implements the canonical Bitcoin block wire encoding: a header
// followed by the transaction list, first of which must be coinbase.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// AddTransaction appends tx to the block's transaction list.
func (m *MsgBlock) AddTransaction(tx *MsgTx) {
	m.Transactions = append(m.Transactions, tx)
}

// BlockHash returns the header's block hash.
func (m *MsgBlock) BlockHash() chainhash.Hash {
	return m.Header.BlockHash()
}

// TxHashes returns the txid of every transaction in the block, in order.
func (m *MsgBlock) TxHashes() []chainhash.Hash {
	hashes := make([]chainhash.Hash, len(m.Transactions))
	for i, tx := range m.Transactions {
		hashes[i] = tx.TxHash()
	}
	return hashes
}

// WitnessHashes returns the wtxid of every transaction in the block, in
// order, with the coinbase's wtxid replaced by the zero hash as BIP141
// requires for witness root computation.
func (m *MsgBlock) WitnessHashes() []chainhash.Hash {
	hashes := make([]chainhash.Hash, len(m.Transactions))
	for i, tx := range m.Transactions {
		if i == 0 {
			hashes[i] = chainhash.Hash{}
			continue
		}
		hashes[i] = tx.WitnessHash()
	}
	return hashes
}

// HasWitness reports whether any transaction in the block carries witness
// data.
func (m *MsgBlock) HasWitness() bool {
	for _, tx := range m.Transactions {
		if tx.HasWitness() {
			return true
		}
	}
	return false
}

// SerializeSize returns the number of bytes the block's witness-included
// encoding occupies.
func (m *MsgBlock) SerializeSize() int {
	size := MaxBlockHeaderPayload + VarIntSerializeSize(uint64(len(m.Transactions)))
	for _, tx := range m.Transactions {
		size += tx.SerializeSize()
	}
	return size
}

// SerializeSizeNoWitness returns the number of bytes the block's legacy
// encoding occupies, used for the consensus weight formula.
func (m *MsgBlock) SerializeSizeNoWitness() int {
	size := MaxBlockHeaderPayload + VarIntSerializeSize(uint64(len(m.Transactions)))
	for _, tx := range m.Transactions {
		size += tx.SerializeSizeNoWitness()
	}
	return size
}

// Weight returns the block's BIP141 weight: three times the legacy size
// plus the witness-included size.
func (m *MsgBlock) Weight() int {
	return m.SerializeSizeNoWitness()*3 + m.SerializeSize()
}

// BtcDecode reads a block from r.
func (m *MsgBlock) BtcDecode(r io.Reader) error {
	if err := m.Header.BtcDecode(r); err != nil {
		return err
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxTxPerBlock {
		return errTooManyElements("block transactions", count, maxTxPerBlock)
	}

	m.Transactions = make([]*MsgTx, count)
	for i := range m.Transactions {
		tx := new(MsgTx)
		if err := tx.BtcDecode(r); err != nil {
			return err
		}
		m.Transactions[i] = tx
	}
	return nil
}

// BtcEncode writes the block to w using the witness-included encoding.
func (m *MsgBlock) BtcEncode(w io.Writer) error {
	if err := m.Header.BtcEncode(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(m.Transactions))); err != nil {
		return err
	}
	for _, tx := range m.Transactions {
		if err := tx.BtcEncode(w, true); err != nil {
			return err
		}
	}
	return nil
}
