// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldb implements storage.Store on top of goleveldb. Writes
// are buffered in a pending batch so that nothing is considered durable
// until Flush commits it with fsync; reads check the pending batch first
// so a single process always observes its own unflushed writes.
package leveldb

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/storage"
	"github.com/JoseSK999/floresta/wire"
)

const (
	prefixHeader = 'h'
	prefixIndex  = 'i'
	prefixRoots  = 'r'
)

var tipKey = []byte("tip")

// Store is a goleveldb-backed storage.Store.
type Store struct {
	mu sync.Mutex
	db *leveldb.DB

	pending        *leveldb.Batch
	pendingHeaders map[chainhash.Hash][]byte
	pendingIndex   map[int32]chainhash.Hash
	pendingRoots   map[int32][]byte
	pendingTip     []byte
}

// Open opens (creating if absent) a LevelDB database at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:             db,
		pending:        new(leveldb.Batch),
		pendingHeaders: make(map[chainhash.Hash][]byte),
		pendingIndex:   make(map[int32]chainhash.Hash),
		pendingRoots:   make(map[int32][]byte),
	}, nil
}

func headerKey(hash chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixHeader
	copy(key[1:], hash[:])
	return key
}

func indexKey(height int32) []byte {
	key := make([]byte, 5)
	key[0] = prefixIndex
	binary.BigEndian.PutUint32(key[1:], uint32(height))
	return key
}

func rootsKey(height int32) []byte {
	key := make([]byte, 5)
	key[0] = prefixRoots
	binary.BigEndian.PutUint32(key[1:], uint32(height))
	return key
}

// GetHeader implements storage.Store.
func (s *Store) GetHeader(hash chainhash.Hash) (*wire.BlockHeader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.pendingHeaders[hash]
	if !ok {
		var err error
		raw, err = s.db.Get(headerKey(hash), nil)
		if err == leveldb.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
	}
	return decodeHeader(raw)
}

// GetHeaderByHeight implements storage.Store.
func (s *Store) GetHeaderByHeight(height int32) (*wire.BlockHeader, error) {
	hash, err := s.GetBlockHash(height)
	if err != nil {
		return nil, err
	}
	return s.GetHeader(hash)
}

// SaveHeader implements storage.Store.
func (s *Store) SaveHeader(header *wire.BlockHeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := header.BlockHash()
	raw := header.Serialize()
	s.pending.Put(headerKey(hash), raw)
	s.pendingHeaders[hash] = raw
	return nil
}

// UpdateBlockIndex implements storage.Store.
func (s *Store) UpdateBlockIndex(height int32, hash chainhash.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending.Put(indexKey(height), hash[:])
	s.pendingIndex[height] = hash
	return nil
}

// GetBlockHash implements storage.Store.
func (s *Store) GetBlockHash(height int32) (chainhash.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hash, ok := s.pendingIndex[height]; ok {
		return hash, nil
	}
	raw, err := s.db.Get(indexKey(height), nil)
	if err == leveldb.ErrNotFound {
		return chainhash.Hash{}, storage.ErrNotFound
	}
	if err != nil {
		return chainhash.Hash{}, err
	}
	var hash chainhash.Hash
	copy(hash[:], raw)
	return hash, nil
}

// LoadHeight implements storage.Store.
func (s *Store) LoadHeight() (int32, chainhash.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.pendingTip
	if raw == nil {
		var err error
		raw, err = s.db.Get(tipKey, nil)
		if err == leveldb.ErrNotFound {
			return 0, chainhash.Hash{}, storage.ErrNotFound
		}
		if err != nil {
			return 0, chainhash.Hash{}, err
		}
	}
	height := int32(binary.BigEndian.Uint32(raw[:4]))
	var hash chainhash.Hash
	copy(hash[:], raw[4:])
	return height, hash, nil
}

// SaveHeight implements storage.Store.
func (s *Store) SaveHeight(height int32, hash chainhash.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := make([]byte, 4+chainhash.HashSize)
	binary.BigEndian.PutUint32(raw[:4], uint32(height))
	copy(raw[4:], hash[:])
	s.pending.Put(append([]byte(nil), tipKey...), raw)
	s.pendingTip = raw
	return nil
}

// LoadRootsForBlock implements storage.Store.
func (s *Store) LoadRootsForBlock(height int32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok := s.pendingRoots[height]; ok {
		return append([]byte(nil), raw...), nil
	}
	raw, err := s.db.Get(rootsKey(height), nil)
	if err == leveldb.ErrNotFound {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// SaveRootsForBlock implements storage.Store.
func (s *Store) SaveRootsForBlock(height int32, roots []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := append([]byte(nil), roots...)
	s.pending.Put(rootsKey(height), cp)
	s.pendingRoots[height] = cp
	return nil
}

// Flush implements storage.Store: commits the pending batch with a fsync
// barrier, after which every write issued since the last Flush is durable.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending.Len() == 0 {
		return nil
	}
	if err := s.db.Write(s.pending, &opt.WriteOptions{Sync: true}); err != nil {
		return err
	}
	s.pending = new(leveldb.Batch)
	s.pendingHeaders = make(map[chainhash.Hash][]byte)
	s.pendingIndex = make(map[int32]chainhash.Hash)
	s.pendingRoots = make(map[int32][]byte)
	s.pendingTip = nil
	return nil
}

// Close implements storage.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func decodeHeader(raw []byte) (*wire.BlockHeader, error) {
	h := new(wire.BlockHeader)
	if err := h.BtcDecode(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return h, nil
}
