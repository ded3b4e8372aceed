// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/internal/primitives"
	"github.com/JoseSK999/floresta/wire"
)

// regTestPowLimit is the highest proof-of-work target a regtest block can
// have: 2^255 - 1, deliberately trivial so blocks can be mined instantly in
// tests.
var regTestPowLimit = primitives.Uint256{
	0xffffffffffffffff, 0xffffffffffffffff, 0xffffffffffffffff, 0x7fffffffffffffff,
}

// RegTestParams returns the consensus parameters for regtest: a private,
// locally-mined network with a short halving interval used by the testable-
// property fixtures.
func RegTestParams() *Params {
	genesisBlock := wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  chainhash.Hash{},
			MerkleRoot: mustHashFromStr("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"),
			Timestamp:  time.Unix(1296688602, 0),
			Bits:       0x207fffff,
			Nonce:      2,
		},
	}

	return &Params{
		Name:                         "regtest",
		GenesisBlock:                 genesisBlock,
		GenesisHash:                  genesisBlock.BlockHash(),
		PowLimit:                     regTestPowLimit,
		PowLimitBits:                 0x207fffff,
		EnforceBIP94:                 false,
		SubsidyHalvingInterval:       150,
		BIP34Height:                  0,
		TargetTimespan:               14 * 24 * 60 * 60,
		TargetTimePerBlock:           10 * 60,
		DifficultyAdjustmentInterval: (14 * 24 * 60 * 60) / (10 * 60),
		CoinbaseMaturity:             100,
		AssumeValidHash:              nil,
		AssumeUtreexoSnapshot:        nil,
		UnspendableLeafHashes:        nil,
		BIP16Height:                  0,
		BIP65Height:                  0,
		BIP66Height:                  0,
		CSVHeight:                    0,
		SegwitHeight:                 0,
		TaprootHeight:                0,
	}
}
