// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package accumulator

import (
	"encoding/hex"

	"github.com/JoseSK999/floresta/chainhash"
)

// UtreexoTagV1 is the fixed 64-byte domain-separation tag every leaf hash is
// computed under. It is the SHA-512 digest of the literal string
// "UtreexoV1", reproduced here as a constant rather than computed at
// startup so the accumulator never depends on crypto/sha512 agreeing with a
// value baked into consensus.
var UtreexoTagV1 = [64]byte{
	0x5b, 0x83, 0x2d, 0xb8, 0xca, 0x26, 0xc2, 0x5b, 0xe1, 0xc5, 0x42, 0xd6, 0xcc, 0xed, 0xdd, 0xa8,
	0xc1, 0x45, 0x61, 0x5c, 0xff, 0x5c, 0x35, 0x72, 0x7f, 0xb3, 0x46, 0x26, 0x10, 0x80, 0x7e, 0x20,
	0xae, 0x53, 0x4d, 0xc3, 0xf6, 0x42, 0x99, 0x19, 0x99, 0x31, 0x77, 0x2e, 0x03, 0x78, 0x7d, 0x18,
	0x15, 0x6e, 0xb3, 0x15, 0x1e, 0x0e, 0xd1, 0xb3, 0x09, 0x8b, 0xdc, 0x84, 0x45, 0x86, 0x18, 0x85,
}

// unspendableHexes are the two leaf hashes produced by the BIP30 duplicate
// coinbases at heights 91,722 and 91,812. An accumulator modify must refuse
// to delete either, forever, to stay in consensus with non-accumulator
// nodes that special-cased those two transactions.
var unspendableHexes = [2]string{
	"84b3af0783b410b4564c5d1f361868559f7cf77cfc65ce2be951210357022fe3",
	"bc6b4bf7cebbd33a18d6b0fe1f8ecc7aa5403083c39ee343b985d51fd0295ad8",
}

// UnspendableLeafHashes returns the two fixed leaf hashes a Stump must never
// delete. Unlike a block or transaction hash, a leaf hash has no
// byte-reversed display convention, so these are decoded straight from hex
// rather than through chainhash.NewHashFromStr.
func UnspendableLeafHashes() []chainhash.Hash {
	hashes := make([]chainhash.Hash, len(unspendableHexes))
	for i, s := range unspendableHexes {
		raw, err := hex.DecodeString(s)
		if err != nil {
			panic(err)
		}
		h, err := chainhash.NewHash(raw)
		if err != nil {
			panic(err)
		}
		hashes[i] = *h
	}
	return hashes
}
