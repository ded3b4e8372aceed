// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/JoseSK999/floresta/chainhash"

// CalcMerkleRoot computes the root of the binary Merkle tree built over
// leaves in order, duplicating the last element of a level whenever that
// level has an odd number of nodes, matching Bitcoin's (CVE-2012-2459-
// preserving, i.e. not fixed) original construction.
func CalcMerkleRoot(leaves []chainhash.Hash) chainhash.Hash {
	if len(leaves) == 0 {
		return chainhash.Hash{}
	}
	level := make([]chainhash.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			var buf [2 * chainhash.HashSize]byte
			copy(buf[:chainhash.HashSize], level[2*i][:])
			copy(buf[chainhash.HashSize:], level[2*i+1][:])
			next[i] = chainhash.HashH(buf[:])
		}
		level = next
	}
	return level[0]
}

// MerkleRoot returns the root computed over the block's txids (not
// witness transaction ids).
func (m *MsgBlock) MerkleRoot() chainhash.Hash {
	return CalcMerkleRoot(m.TxHashes())
}

// WitnessMerkleRoot returns the root computed over the block's wtxids, with
// the coinbase's wtxid replaced by the zero hash as BIP141 requires.
func (m *MsgBlock) WitnessMerkleRoot() chainhash.Hash {
	return CalcMerkleRoot(m.WitnessHashes())
}
