// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/JoseSK999/floresta/chainhash"
)

// MaxBlockHeaderPayload is the number of bytes a block header's fixed-size
// serialization occupies.
const MaxBlockHeaderPayload = 4 + chainhash.HashSize + chainhash.HashSize + 4 + 4 + 4

// BlockHeader defines the 80-byte header every block carries.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// BtcDecode reads the fixed-size header encoding from r.
func (h *BlockHeader) BtcDecode(r io.Reader) error {
	var ts uint32
	if err := readElement(r, &h.Version); err != nil {
		return err
	}
	if err := readElement(r, &h.PrevBlock); err != nil {
		return err
	}
	if err := readElement(r, &h.MerkleRoot); err != nil {
		return err
	}
	if err := readElement(r, &ts); err != nil {
		return err
	}
	h.Timestamp = time.Unix(int64(ts), 0)
	if err := readElement(r, &h.Bits); err != nil {
		return err
	}
	return readElement(r, &h.Nonce)
}

// BtcEncode writes the fixed-size header encoding to w.
func (h *BlockHeader) BtcEncode(w io.Writer) error {
	if err := writeElement(w, h.Version); err != nil {
		return err
	}
	if err := writeElement(w, h.PrevBlock); err != nil {
		return err
	}
	if err := writeElement(w, h.MerkleRoot); err != nil {
		return err
	}
	if err := writeElement(w, uint32(h.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeElement(w, h.Bits); err != nil {
		return err
	}
	return writeElement(w, h.Nonce)
}

// Serialize returns the canonical 80-byte header encoding.
func (h *BlockHeader) Serialize() []byte {
	var buf bytes.Buffer
	_ = h.BtcEncode(&buf)
	return buf.Bytes()
}

// BlockHash returns the double-SHA-256 of the header's 80-byte serialization.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	return chainhash.HashH(h.Serialize())
}

// NewBlockHeader returns a new header populated with the given fields and a
// zero nonce.
func NewBlockHeader(version int32, prevBlock, merkleRoot chainhash.Hash, bits uint32, timestamp time.Time) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  prevBlock,
		MerkleRoot: merkleRoot,
		Timestamp:  timestamp,
		Bits:       bits,
	}
}
