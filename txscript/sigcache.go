// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2016-2020 The Decred developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/dchest/siphash"

	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/wire"
)

// ProactiveEvictionDepth is the depth of the block at which the signatures
// for the transactions within the block are nearly guaranteed to no longer
// be useful.
const ProactiveEvictionDepth = 2

// shortTxHashKeySize is the size of the byte array required for key material
// for the SipHash keyed shortTxHash function.
const shortTxHashKeySize = 16

// sigCacheEntry represents an entry in the SigCache. Entries are keyed by
// the signature hash; a cache hit requires the stored signature and public
// key bytes to compare equal to the ones presented, which the script engine
// has already parsed. Keeping the cache opaque to signature scheme (ECDSA
// vs Schnorr, secp256k1 vs any future curve) avoids binding this package to
// a concrete elliptic-curve library, since the actual script engine is a
// pluggable seam (see ScriptVerifier) rather than something this package
// implements.
type sigCacheEntry struct {
	sig         []byte
	pubKey      []byte
	shortTxHash uint64
}

// SigCache implements a signature verification cache with a randomized entry
// eviction policy. Only valid signatures are added. Caching a verification
// result mitigates a DoS attack where an attacker repeatedly forces re-
// verification of the same signature in both mempool and block-validation
// contexts, and speeds up validating a block whose transactions were already
// seen and verified while relaying.
type SigCache struct {
	sync.RWMutex
	validSigs      map[chainhash.Hash]sigCacheEntry
	maxEntries     uint
	shortTxHashKey [shortTxHashKeySize]byte
}

// NewSigCache creates and initializes a new instance of SigCache. Its sole
// parameter 'maxEntries' represents the maximum number of entries allowed to
// exist in the SigCache at any particular moment. Random entries are evicted
// to make room for new entries that would cause the number of entries in the
// cache to exceed the max.
func NewSigCache(maxEntries uint) (*SigCache, error) {
	shortTxHashKey, err := createShortTxHashKey()
	if err != nil {
		return nil, err
	}

	return &SigCache{
		validSigs:      make(map[chainhash.Hash]sigCacheEntry, maxEntries),
		maxEntries:     maxEntries,
		shortTxHashKey: shortTxHashKey,
	}, nil
}

// Exists returns true if an existing entry of 'sig' over 'sigHash' for public
// key 'pubKey' is found within the SigCache.
//
// NOTE: This function is safe for concurrent access. Readers won't be
// blocked unless there exists a writer adding an entry to the SigCache.
func (s *SigCache) Exists(sigHash chainhash.Hash, sig, pubKey []byte) bool {
	s.RLock()
	entry, ok := s.validSigs[sigHash]
	s.RUnlock()

	return ok && byteSliceEqual(entry.pubKey, pubKey) && byteSliceEqual(entry.sig, sig)
}

// Add adds an entry for a signature over 'sigHash' under public key 'pubKey'
// to the signature cache. If the cache is full, an existing entry is
// randomly chosen to be evicted in order to make space for the new entry.
//
// NOTE: This function is safe for concurrent access. Writers will block
// simultaneous readers until function execution has concluded.
func (s *SigCache) Add(sigHash chainhash.Hash, sig, pubKey []byte, tx *wire.MsgTx) {
	s.Lock()
	defer s.Unlock()

	if s.maxEntries == 0 {
		return
	}

	if uint(len(s.validSigs)+1) > s.maxEntries {
		// Relying on the random starting point of Go's map iteration to pick
		// an eviction victim: manipulating which entry gets evicted would
		// require a preimage attack on the hash used as the map key.
		for sigEntry := range s.validSigs {
			delete(s.validSigs, sigEntry)
			break
		}
	}
	s.validSigs[sigHash] = sigCacheEntry{
		sig:         append([]byte(nil), sig...),
		pubKey:      append([]byte(nil), pubKey...),
		shortTxHash: shortTxHash(tx, s.shortTxHashKey),
	}
}

// EvictEntries removes all entries from the SigCache that correspond to the
// transactions in the given block. The block should be ProactiveEvictionDepth
// blocks deep, the depth at which its signatures are nearly guaranteed to no
// longer be useful.
func (s *SigCache) EvictEntries(block *wire.MsgBlock) {
	s.RLock()
	empty := len(s.validSigs) == 0
	s.RUnlock()
	if empty {
		return
	}

	go s.evictEntries(block)
}

// evictEntries must be run from a goroutine and should not be run during
// block validation.
func (s *SigCache) evictEntries(block *wire.MsgBlock) {
	shortTxHashSet := make(map[uint64]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		shortTxHashSet[shortTxHash(tx, s.shortTxHashKey)] = struct{}{}
	}

	s.Lock()
	for sigHash, sigEntry := range s.validSigs {
		if _, ok := shortTxHashSet[sigEntry.shortTxHash]; ok {
			delete(s.validSigs, sigHash)
		}
	}
	s.Unlock()
}

func createShortTxHashKey() ([shortTxHashKeySize]byte, error) {
	var key [shortTxHashKeySize]byte
	_, err := rand.Read(key[:])
	return key, err
}

// shortTxHash generates a short hash from the standard transaction hash
// using SipHash-2-4, a keyed function producing a 64-bit hash. The key must
// be cryptographically random.
func shortTxHash(msg *wire.MsgTx, key [shortTxHashKeySize]byte) uint64 {
	k0 := binary.LittleEndian.Uint64(key[0:8])
	k1 := binary.LittleEndian.Uint64(key[8:16])
	txHash := msg.TxHash()
	return siphash.Hash(k0, k1, txHash[:])
}

func byteSliceEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
