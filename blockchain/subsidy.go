// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/JoseSK999/floresta/chaincfg"

// baseSubsidy is the starting block subsidy, in satoshis, before any
// halvings: 50 BTC.
const baseSubsidy = 50 * 1e8

// MaxMoney is the maximum transaction amount allowed in satoshis: 21
// million bitcoin.
const MaxMoney = 21_000_000 * 1e8

// CalcBlockSubsidy returns the block subsidy for the given height under
// params' halving schedule: 50·10^8 >> (height / halving_interval),
// clamped to zero once the shift would be 64 or more.
func CalcBlockSubsidy(height int32, params *chaincfg.Params) int64 {
	halvings := params.TotalSubsidyHalvings(height)
	if halvings >= 64 {
		return 0
	}
	return baseSubsidy >> uint(halvings)
}
