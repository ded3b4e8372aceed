// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// ScriptFlags is a bitmask defining additional operations or tests that will
// be done when executing a script pair that are not consensus-critical
// changes to the original Bitcoin script engine, or that flip on rules that
// activated at a known deployment height.
type ScriptFlags uint32

const (
	// ScriptBip16 defines whether the bip16 threshold has passed and thus
	// pay-to-script-hash transactions will be fully validated.
	ScriptBip16 ScriptFlags = 1 << iota

	// ScriptVerifyDERSignatures defines that signatures are required to
	// compily with the DER format (BIP66).
	ScriptVerifyDERSignatures

	// ScriptVerifyCheckLockTimeVerify defines that a stack item representing
	// a block height or timestamp may be compared against the transaction's
	// LockTime field to determine if a transaction's inputs are locked (BIP65).
	ScriptVerifyCheckLockTimeVerify

	// ScriptVerifyCheckSequenceVerify defines that a stack item representing
	// a relative lock time may be compared against the transaction's input's
	// Sequence field to determine if a transaction's inputs are locked (BIP68/112).
	ScriptVerifyCheckSequenceVerify

	// ScriptVerifyWitness defines whether or not to verify a transaction
	// output using a witness program template (BIP141/143/144).
	ScriptVerifyWitness

	// ScriptVerifyNullDummy defines that signatures must be verified such
	// that the dummy value consumed by CHECKMULTISIG is an empty byte slice.
	ScriptVerifyNullDummy

	// ScriptVerifyCleanStack defines that the stack must contain only a
	// single stack element upon completion of script execution, and that
	// the element must be true if interpreted as a boolean.
	ScriptVerifyCleanStack

	// ScriptVerifyTaproot defines whether or not to verify a transaction
	// output using the taproot (BIP340/341/342) verification rules.
	ScriptVerifyTaproot

	// ScriptVerifyMinimalData defines that signatures must use the smallest
	// possible push operator in order to be considered valid.
	ScriptVerifyMinimalData
)

// HasFlag reports whether flags has f set.
func (flags ScriptFlags) HasFlag(f ScriptFlags) bool {
	return flags&f == f
}
