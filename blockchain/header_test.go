// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/JoseSK999/floresta/chaincfg"
	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/wire"
)

func newTestHeader(prevBlock chainhash.Hash, bits uint32, ts int64) *wire.BlockHeader {
	return &wire.BlockHeader{
		Version:   1,
		PrevBlock: prevBlock,
		Timestamp: time.Unix(ts, 0),
		Bits:      bits,
	}
}

func TestCheckHeaderLink(t *testing.T) {
	parent := newTestHeader(chainhash.Hash{}, 0x207fffff, 1000)
	child := newTestHeader(parent.BlockHash(), 0x207fffff, 1600)

	if err := CheckHeaderLink(child, parent); err != nil {
		t.Fatalf("expected valid link to be accepted, got %v", err)
	}

	wrongParent := newTestHeader(chainhash.Hash{0x01}, 0x207fffff, 1000)
	if err := CheckHeaderLink(child, wrongParent); err == nil {
		t.Fatal("expected header with mismatching prev_hash to be rejected")
	}
}

func TestCheckProofOfWorkZeroTarget(t *testing.T) {
	h := newTestHeader(chainhash.Hash{}, 0, 1000)
	if err := CheckProofOfWork(h); err == nil {
		t.Fatal("expected a header whose bits decode to a zero target to be rejected")
	}
}

func TestCheckProofOfWorkImpossibleTarget(t *testing.T) {
	// Bits 0x03000001 decodes to a target of exactly 1: no real block hash
	// will ever be below it, so this is a deterministic failure case.
	h := newTestHeader(chainhash.Hash{}, 0x03000001, 1000)
	if err := CheckProofOfWork(h); err == nil {
		t.Fatal("expected a header hash to exceed a target of 1")
	}
}

func TestCheckBIP94Time(t *testing.T) {
	params := chaincfg.MainNetParams()
	params.EnforceBIP94 = true
	parent := newTestHeader(chainhash.Hash{}, 0x1d00ffff, 1_000_000)

	tests := []struct {
		name    string
		delta   int64
		wantErr bool
	}{
		{"at the boundary", -bip94MaxTimeRewind, false},
		{"one second past the boundary", -(bip94MaxTimeRewind + 1), true},
		{"ahead of parent", 600, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			child := newTestHeader(parent.BlockHash(), 0x1d00ffff, parent.Timestamp.Unix()+tc.delta)
			err := CheckBIP94Time(child, parent, params)
			if tc.wantErr && err == nil {
				t.Fatal("expected BIP94 timewarp rejection")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected acceptance, got %v", err)
			}
		})
	}
}

func TestCheckBIP94TimeDisabledNetwork(t *testing.T) {
	params := chaincfg.RegTestParams()
	parent := newTestHeader(chainhash.Hash{}, 0x207fffff, 1_000_000)
	child := newTestHeader(parent.BlockHash(), 0x207fffff, parent.Timestamp.Unix()-10_000)

	if err := CheckBIP94Time(child, parent, params); err != nil {
		t.Fatalf("network without BIP94 enforcement should accept any timestamp, got %v", err)
	}
}

func TestNextRequiredTargetClampsTimespan(t *testing.T) {
	params := chaincfg.MainNetParams()

	first := newTestHeader(chainhash.Hash{}, 0x1d00ffff, 0)
	// An actual timespan wildly below the target: the clamp should treat
	// it as TargetTimespan/4, not the raw value.
	fast := newTestHeader(first.BlockHash(), 0x1d00ffff, params.TargetTimespan/100)
	fastBits := NextRequiredTarget(fast, first, params)

	// An actual timespan wildly above the target: clamped to
	// TargetTimespan*4.
	slow := newTestHeader(first.BlockHash(), 0x1d00ffff, params.TargetTimespan*100)
	slowBits := NextRequiredTarget(slow, first, params)

	fastQuarter := newTestHeader(first.BlockHash(), 0x1d00ffff, params.TargetTimespan/4)
	wantFastBits := NextRequiredTarget(fastQuarter, first, params)
	if fastBits != wantFastBits {
		t.Errorf("fast retarget not clamped: got bits 0x%x, want 0x%x", fastBits, wantFastBits)
	}

	slowQuadruple := newTestHeader(first.BlockHash(), 0x1d00ffff, params.TargetTimespan*4)
	wantSlowBits := NextRequiredTarget(slowQuadruple, first, params)
	if slowBits != wantSlowBits {
		t.Errorf("slow retarget not clamped: got bits 0x%x, want 0x%x", slowBits, wantSlowBits)
	}
}
