// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/wire"
)

// testNetPowLimit is the highest proof-of-work target a testnet3 block can
// have: 2^224 - 1, same ceiling as mainnet.
var testNetPowLimit = mainPowLimit

// TestNetParams returns the consensus parameters for testnet3. BIP94 is
// enforced here since testnet's much lower difficulty makes it the network
// where the anti-timewarp exploit is actually exercised in practice.
func TestNetParams() *Params {
	genesisBlock := wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  chainhash.Hash{},
			MerkleRoot: mustHashFromStr("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"),
			Timestamp:  time.Unix(1296688602, 0),
			Bits:       0x1d00ffff,
			Nonce:      414098458,
		},
	}

	return &Params{
		Name:                         "testnet3",
		GenesisBlock:                 genesisBlock,
		GenesisHash:                  genesisBlock.BlockHash(),
		PowLimit:                     testNetPowLimit,
		PowLimitBits:                 0x1d00ffff,
		EnforceBIP94:                 true,
		SubsidyHalvingInterval:       210000,
		BIP34Height:                  21111,
		TargetTimespan:               14 * 24 * 60 * 60,
		TargetTimePerBlock:           10 * 60,
		DifficultyAdjustmentInterval: (14 * 24 * 60 * 60) / (10 * 60),
		CoinbaseMaturity:             100,
		AssumeValidHash:              nil,
		AssumeUtreexoSnapshot:        nil,
		UnspendableLeafHashes:        nil,
		Checkpoints: []Checkpoint{
			{546, mustHashFromStr("000000002a936ca763904c3c35fce2f3556c559c0214345d31b1bcebf76acb70")},
		},
		BIP16Height:                  514,
		BIP65Height:                  581885,
		BIP66Height:                  330776,
		CSVHeight:                    770112,
		SegwitHeight:                 834624,
		TaprootHeight:                2011968,
	}
}
