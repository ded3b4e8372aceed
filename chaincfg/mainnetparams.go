// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/internal/accumulator"
	"github.com/JoseSK999/floresta/internal/primitives"
	"github.com/JoseSK999/floresta/wire"
)

// mainPowLimit is the highest proof-of-work target a mainnet block can
// have: 2^224 - 1.
var mainPowLimit = primitives.Uint256{0xffffffffffffffff, 0xffffffffffffffff, 0xffffffffffffffff, 0x00000000ffffffff}

// MainNetParams returns the consensus parameters for the Bitcoin main
// network.
func MainNetParams() *Params {
	genesisBlock := wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  chainhash.Hash{},
			MerkleRoot: mustHashFromStr("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"),
			Timestamp:  time.Unix(1231006505, 0),
			Bits:       0x1d00ffff,
			Nonce:      2083236893,
		},
	}

	return &Params{
		Name:                         "mainnet",
		GenesisBlock:                 genesisBlock,
		GenesisHash:                  genesisBlock.BlockHash(),
		PowLimit:                     mainPowLimit,
		PowLimitBits:                 0x1d00ffff,
		EnforceBIP94:                 false,
		SubsidyHalvingInterval:       210000,
		BIP34Height:                  227931,
		TargetTimespan:               14 * 24 * 60 * 60,
		TargetTimePerBlock:           10 * 60,
		DifficultyAdjustmentInterval: (14 * 24 * 60 * 60) / (10 * 60),
		CoinbaseMaturity:             100,
		AssumeValidHash:              nil,
		AssumeUtreexoSnapshot:        nil,
		UnspendableLeafHashes:        accumulator.UnspendableLeafHashes(),
		Checkpoints: []Checkpoint{
			{11111, mustHashFromStr("0000000069e244f73d78e8fd29ba2fd2ed618bd6fa2ee92559f542fdb26e7c1d")},
			{33333, mustHashFromStr("000000002dd5588a74784eaa7ab0507a18ad16a236e7b1ce69f00d7ddfb5d0a6")},
			{105000, mustHashFromStr("00000000000291ce28027faea320c8d2b054b2e0fe44a773f3eefb151d6bdc97")},
			{216116, mustHashFromStr("00000000000001b4f4b433e81ee46494af945cf96014816a4e2370f11b23df4e")},
			{382320, mustHashFromStr("00000000000000000a8dc6ed5b133d0eb2fd6af56203e4159789b092defd8ab2")},
		},
		BIP16Height:                  173805,
		BIP65Height:                  388381,
		BIP66Height:                  363725,
		CSVHeight:                    419328,
		SegwitHeight:                 481824,
		TaprootHeight:                709632,
	}
}

func mustHashFromStr(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return *h
}
