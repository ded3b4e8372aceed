// Copyright (c) 2021 The Decred developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import (
	"testing"

	"github.com/JoseSK999/floresta/chainhash"
)

func TestDiffBitsRoundTrip(t *testing.T) {
	tests := []uint32{
		0x1d00ffff, // mainnet genesis difficulty
		0x207fffff, // regtest's trivial difficulty
		0x1b0404cb, // an arbitrary historical mainnet value
	}

	for _, bits := range tests {
		target := DiffBitsToUint256(bits)
		got := Uint256ToDiffBits(target)
		if got != bits {
			t.Errorf("round trip of 0x%x produced 0x%x", bits, got)
		}
	}
}

func TestDiffBitsToUint256RejectsNegative(t *testing.T) {
	// The sign bit (0x00800000) set makes the encoding invalid; it must
	// decode to zero so it always fails a proof-of-work check.
	target := DiffBitsToUint256(0x01800000)
	if !target.IsZero() {
		t.Fatalf("expected a negative-encoded target to decode to zero, got %+v", target)
	}
}

func TestDiffBitsToUint256RejectsOverflowingExponent(t *testing.T) {
	target := DiffBitsToUint256(0xff123456)
	if !target.IsZero() {
		t.Fatalf("expected an overflowing exponent to decode to zero, got %+v", target)
	}
}

func TestCalcWorkMonotonic(t *testing.T) {
	// A smaller target (harder difficulty) must always represent more
	// accumulated work than a larger one.
	harder := CalcWork(0x1d00ffff)
	easier := CalcWork(0x207fffff)
	if !harder.GT(easier) {
		t.Fatalf("expected harder target's work %+v to exceed easier target's work %+v", harder, easier)
	}
}

func TestCalcWorkZeroTarget(t *testing.T) {
	if got := CalcWork(0); !got.IsZero() {
		t.Fatalf("expected CalcWork of an invalid target to be zero, got %+v", got)
	}
}

func TestUint256AddCarry(t *testing.T) {
	a := Uint256{^uint64(0), 0, 0, 0}
	b := Uint256{1, 0, 0, 0}
	sum := a.Add(b)
	want := Uint256{0, 1, 0, 0}
	if sum != want {
		t.Fatalf("Add carry propagation failed: got %+v, want %+v", sum, want)
	}
}

func TestHashToUint256LittleEndian(t *testing.T) {
	var h chainhash.Hash
	h[31] = 0x01
	n := HashToUint256(&h)
	// Hash bytes are little-endian, so the last byte is the number's most
	// significant and must land in the top word's top byte.
	if n[3] != 0x01<<56 {
		t.Fatalf("expected trailing hash byte in the top word's top byte, got %+v", n)
	}

	var low chainhash.Hash
	low[0] = 0x02
	m := HashToUint256(&low)
	if m[0] != 0x02 {
		t.Fatalf("expected leading hash byte in the bottom word, got %+v", m)
	}
}
