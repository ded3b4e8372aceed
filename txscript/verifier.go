// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "github.com/JoseSK999/floresta/wire"

// ScriptVerifier executes the locking and unlocking script pair for one
// transaction input. It is a seam: the transaction validator calls it once
// per non-coinbase input when ScriptVerifyWitness-class structural checks
// pass and a concrete script engine has been wired in. A nil ScriptVerifier
// makes the block validator fall back to structural-only validation, per
// the engine's documented no-verifier mode.
type ScriptVerifier interface {
	VerifyInput(tx *wire.MsgTx, inputIndex int, prevOut *wire.TxOut, flags ScriptFlags, cache *SigCache) error
}
