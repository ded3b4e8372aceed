// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package accumulator implements the Utreexo forest: a set commitment kept
// as a small list of Merkle roots, one per populated power-of-two-sized
// tree, instead of the full leaf set. A caller can prove membership of a
// batch of leaves and, atomically with that proof, delete them and add new
// ones, without the accumulator ever holding more than its roots.
//
// The exact internal addressing of nodes within a tree and the shape of a
// Proof are this package's own choice: nothing outside it inspects them,
// and nothing about wire-compatibility with any other Utreexo
// implementation is required.
package accumulator

import (
	"crypto/sha512"
	"errors"

	"github.com/JoseSK999/floresta/chainhash"
)

// ErrBadProof is returned when a Proof fails to establish that every
// claimed leaf is a member of the Stump, or is structurally malformed.
var ErrBadProof = errors.New("accumulator: inclusion proof does not verify")

// ErrUnspendableUTXO is returned when del_hashes names a leaf on the fixed
// unspendable list; such a leaf must never be deleted.
var ErrUnspendableUTXO = errors.New("accumulator: refusing to delete an unspendable leaf")

// emptyLeaf is the sentinel hash standing in for a deleted leaf, and for any
// internal node whose entire subtree has been deleted. It propagates
// upward like any other node hash; the one-in-2^256 chance of a genuine
// leaf hash colliding with it is the same negligible risk every hash-based
// accumulator accepts.
var emptyLeaf chainhash.Hash

// Stump is the accumulator's full externally-visible state: the roots of
// every currently-populated tree, ordered from the largest tree to the
// smallest (matching the descending bit order of NumLeaves), plus the
// total number of leaves ever added. NumLeaves never decreases; it is a
// position counter, not a live-set size.
type Stump struct {
	Roots     []chainhash.Hash
	NumLeaves uint64
}

// Proof batches a standalone Merkle path per deleted leaf: for each target
// position, the sibling hashes encountered climbing from that leaf to the
// root of the tree it belongs to, bottom-up. Proof does not attempt to
// deduplicate siblings shared between two targets in the same tree;
// Modify reconciles that redundancy itself (see combineTree).
type Proof struct {
	Targets  []uint64
	Siblings [][]chainhash.Hash
}

// treeRowsDesc returns, from largest to smallest, the row (log2 of tree
// size) of every populated tree for a given leaf count: the set bits of
// numLeaves, high to low.
func treeRowsDesc(numLeaves uint64) []uint8 {
	var rows []uint8
	for r := int8(63); r >= 0; r-- {
		if numLeaves&(uint64(1)<<uint(r)) != 0 {
			rows = append(rows, uint8(r))
		}
	}
	return rows
}

// treeOffset locates which populated tree a global leaf position belongs
// to and its index local to that tree's own leaf row.
func treeOffset(pos, numLeaves uint64) (row uint8, localIdx uint64, ok bool) {
	var offset uint64
	for _, r := range treeRowsDesc(numLeaves) {
		size := uint64(1) << r
		if pos < offset+size {
			return r, pos - offset, true
		}
		offset += size
	}
	return 0, 0, false
}

// combine hashes two child node values into their parent's value under the
// same domain tag as leaf hashing, but singly (not doubled) to keep
// internal nodes distinguishable from leaves.
func combine(left, right chainhash.Hash) chainhash.Hash {
	h := sha512.New512_256()
	h.Write(UtreexoTagV1[:])
	h.Write(left[:])
	h.Write(right[:])
	var out chainhash.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// rootsToMap re-expresses a Stump's ordered root list as a row-keyed map,
// the representation Verify and Modify operate on internally.
func rootsToMap(roots []chainhash.Hash, numLeaves uint64) map[uint8]chainhash.Hash {
	rows := treeRowsDesc(numLeaves)
	m := make(map[uint8]chainhash.Hash, len(rows))
	for i, r := range rows {
		m[r] = roots[i]
	}
	return m
}

func mapToRoots(m map[uint8]chainhash.Hash, numLeaves uint64) []chainhash.Hash {
	rows := treeRowsDesc(numLeaves)
	roots := make([]chainhash.Hash, len(rows))
	for i, r := range rows {
		roots[i] = m[r]
	}
	return roots
}

// Verify reports whether proof establishes that every hash in delHashes is
// currently a member of stump. It never mutates stump and always
// terminates with accept or ErrBadProof, never an ambiguous result.
func Verify(stump Stump, proof Proof, delHashes []chainhash.Hash) error {
	if len(proof.Targets) != len(delHashes) || len(proof.Siblings) != len(delHashes) {
		return ErrBadProof
	}
	roots := rootsToMap(stump.Roots, stump.NumLeaves)

	for i, pos := range proof.Targets {
		row, localIdx, ok := treeOffset(pos, stump.NumLeaves)
		if !ok {
			return ErrBadProof
		}
		if len(proof.Siblings[i]) != int(row) {
			return ErrBadProof
		}

		cur := delHashes[i]
		idx := localIdx
		for level := 0; level < int(row); level++ {
			sib := proof.Siblings[i][level]
			if idx%2 == 0 {
				cur = combine(cur, sib)
			} else {
				cur = combine(sib, cur)
			}
			idx /= 2
		}

		root, known := roots[row]
		if !known || cur != root {
			return ErrBadProof
		}
	}
	return nil
}

// Modify returns the Stump that results from deleting delHashes (witnessed
// by proof) and then adding adds, leaving stump itself untouched. Deletion
// always happens before addition, so a leaf created and spent within the
// same block never needs to round-trip through the accumulator at all:
// callers simply omit it from both adds and delHashes.
func Modify(stump Stump, adds, delHashes []chainhash.Hash, proof Proof, unspendable []chainhash.Hash) (Stump, error) {
	for _, d := range delHashes {
		for _, u := range unspendable {
			if d == u {
				return Stump{}, ErrUnspendableUTXO
			}
		}
	}

	if err := Verify(stump, proof, delHashes); err != nil {
		return Stump{}, err
	}

	roots := rootsToMap(stump.Roots, stump.NumLeaves)

	byTree := make(map[uint8][]int)
	for i, pos := range proof.Targets {
		row, _, _ := treeOffset(pos, stump.NumLeaves)
		byTree[row] = append(byTree[row], i)
	}

	for row, targetIdxs := range byTree {
		newRoot, err := combineTree(row, stump.NumLeaves, targetIdxs, proof, delHashes)
		if err != nil {
			return Stump{}, err
		}
		roots[row] = newRoot
	}

	finalRoots, finalLeaves := appendLeaves(roots, stump.NumLeaves, adds)

	return Stump{Roots: finalRoots, NumLeaves: finalLeaves}, nil
}

// combineTree recomputes a single tree's root after deleting the leaves
// named by targetIdxs (indexes into proof.Targets/delHashes belonging to
// this tree). Each deletion contributes its own standalone sibling path;
// where two deletions' paths touch the same ancestor node, the freshly
// recomputed value always takes priority over the other's stale,
// pre-deletion sibling hint for that address (see fresh/hint below).
func combineTree(row uint8, numLeaves uint64, targetIdxs []int, proof Proof, delHashes []chainhash.Hash) (chainhash.Hash, error) {
	if row == 0 {
		// A single-leaf tree's root is the leaf; deleting it empties the
		// tree outright.
		return emptyLeaf, nil
	}

	fresh := make([]map[uint64]chainhash.Hash, row+1)
	hint := make([]map[uint64]chainhash.Hash, row)
	for l := range fresh {
		fresh[l] = make(map[uint64]chainhash.Hash)
	}
	for l := range hint {
		hint[l] = make(map[uint64]chainhash.Hash)
	}

	for _, i := range targetIdxs {
		_, localIdx, _ := treeOffset(proof.Targets[i], numLeaves)
		fresh[0][localIdx] = emptyLeaf

		idx := localIdx
		for level := 0; level < int(row); level++ {
			sibIdx := idx ^ 1
			hint[level][sibIdx] = proof.Siblings[i][level]
			idx /= 2
		}
	}

	lookup := func(level int, idx uint64) (chainhash.Hash, bool) {
		if h, ok := fresh[level][idx]; ok {
			return h, true
		}
		h, ok := hint[level][idx]
		return h, ok
	}

	for level := 0; level < int(row); level++ {
		for idx := range fresh[level] {
			parentIdx := idx / 2
			if _, done := fresh[level+1][parentIdx]; done {
				continue
			}
			left, lok := lookup(level, parentIdx*2)
			right, rok := lookup(level, parentIdx*2+1)
			if !lok || !rok {
				return chainhash.Hash{}, ErrBadProof
			}
			fresh[level+1][parentIdx] = combine(left, right)
		}
	}

	root, ok := fresh[row][0]
	if !ok {
		return chainhash.Hash{}, ErrBadProof
	}
	return root, nil
}

// appendLeaves grows the forest by one-at-a-time binary-counter carry
// merging: a new leaf starts a row-0 tree; if a row is already populated,
// the two roots at that row merge into a row+1 candidate, carrying up
// exactly like incrementing a binary counter.
func appendLeaves(roots map[uint8]chainhash.Hash, numLeaves uint64, adds []chainhash.Hash) ([]chainhash.Hash, uint64) {
	for _, leaf := range adds {
		row := uint8(0)
		carry := leaf
		for {
			existing, populated := roots[row]
			if !populated {
				roots[row] = carry
				break
			}
			delete(roots, row)
			carry = combine(existing, carry)
			row++
		}
		numLeaves++
	}
	return mapToRoots(roots, numLeaves), numLeaves
}
