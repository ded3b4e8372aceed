// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/JoseSK999/floresta/chaincfg"
	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/storage"
	"github.com/JoseSK999/floresta/wire"
)

// memStore is an in-memory storage.Store for chain-state tests. Unlike the
// leveldb store it has no pending batch: writes land immediately and Flush
// only counts calls, which is all these tests need to observe.
type memStore struct {
	headers map[chainhash.Hash]*wire.BlockHeader
	index   map[int32]chainhash.Hash
	roots   map[int32][]byte
	tipSet  bool
	tipH    int32
	tipHash chainhash.Hash
	flushes int
}

func newMemStore() *memStore {
	return &memStore{
		headers: make(map[chainhash.Hash]*wire.BlockHeader),
		index:   make(map[int32]chainhash.Hash),
		roots:   make(map[int32][]byte),
	}
}

func (m *memStore) GetHeader(hash chainhash.Hash) (*wire.BlockHeader, error) {
	h, ok := m.headers[hash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return h, nil
}

func (m *memStore) GetHeaderByHeight(height int32) (*wire.BlockHeader, error) {
	hash, err := m.GetBlockHash(height)
	if err != nil {
		return nil, err
	}
	return m.GetHeader(hash)
}

func (m *memStore) SaveHeader(header *wire.BlockHeader) error {
	cp := *header
	m.headers[header.BlockHash()] = &cp
	return nil
}

func (m *memStore) UpdateBlockIndex(height int32, hash chainhash.Hash) error {
	m.index[height] = hash
	return nil
}

func (m *memStore) GetBlockHash(height int32) (chainhash.Hash, error) {
	hash, ok := m.index[height]
	if !ok {
		return chainhash.Hash{}, storage.ErrNotFound
	}
	return hash, nil
}

func (m *memStore) LoadHeight() (int32, chainhash.Hash, error) {
	if !m.tipSet {
		return 0, chainhash.Hash{}, storage.ErrNotFound
	}
	return m.tipH, m.tipHash, nil
}

func (m *memStore) SaveHeight(height int32, hash chainhash.Hash) error {
	m.tipSet = true
	m.tipH = height
	m.tipHash = hash
	return nil
}

func (m *memStore) LoadRootsForBlock(height int32) ([]byte, error) {
	raw, ok := m.roots[height]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (m *memStore) SaveRootsForBlock(height int32, roots []byte) error {
	m.roots[height] = append([]byte(nil), roots...)
	return nil
}

func (m *memStore) Flush() error {
	m.flushes++
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestChain(t *testing.T) (*ChainState, *chaincfg.Params, *memStore) {
	t.Helper()
	params := chaincfg.RegTestParams()
	store := newMemStore()
	cs := New(store, params, nil, nil)
	if err := cs.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(cs.Shutdown)
	return cs, params, store
}

// mineBlock builds a coinbase-only block on parent and grinds the nonce
// until it satisfies regtest's trivial proof-of-work target.
func mineBlock(t *testing.T, params *chaincfg.Params, parent *wire.BlockHeader, height int32, ts int64) *wire.MsgBlock {
	t.Helper()
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: parent.BlockHash(),
			Timestamp: time.Unix(ts, 0),
			Bits:      params.PowLimitBits,
		},
		Transactions: []*wire.MsgTx{coinbaseTx(heightPushScript(height), 50 * 1e8)},
	}
	block.Header.MerkleRoot = block.MerkleRoot()
	for CheckProofOfWork(&block.Header) != nil {
		block.Header.Nonce++
	}
	return block
}

func acceptAndConnect(t *testing.T, cs *ChainState, block *wire.MsgBlock, height int32) {
	t.Helper()
	if _, err := cs.AcceptHeader(&block.Header); err != nil {
		t.Fatalf("AcceptHeader at height %d: %v", height, err)
	}
	if err := cs.ConnectBlock(ConnectInput{Block: block, Height: height}); err != nil {
		t.Fatalf("ConnectBlock at height %d: %v", height, err)
	}
}

func TestChainStateInitGenesis(t *testing.T) {
	cs, params, store := newTestChain(t)

	height, hash := cs.GetBestBlock()
	if height != 0 || hash != params.GenesisHash {
		t.Fatalf("expected genesis tip, got height %d hash %s", height, hash)
	}
	if cs.GetValidationIndex() != 0 {
		t.Fatalf("expected validation index 0, got %d", cs.GetValidationIndex())
	}
	if store.flushes == 0 {
		t.Fatal("expected genesis initialization to flush the store")
	}
	if _, err := store.LoadRootsForBlock(0); err != nil {
		t.Fatalf("expected an accumulator snapshot persisted for genesis, got %v", err)
	}
}

func TestChainStateHeaderFirstDownload(t *testing.T) {
	cs, params, _ := newTestChain(t)

	parent := &params.GenesisBlock.Header
	var blocks []*wire.MsgBlock
	for h := int32(1); h <= 3; h++ {
		block := mineBlock(t, params, parent, h, 1_600_000_000+int64(h)*600)
		if _, err := cs.AcceptHeader(&block.Header); err != nil {
			t.Fatalf("AcceptHeader at height %d: %v", h, err)
		}
		blocks = append(blocks, block)
		parent = &block.Header
	}

	bestHeight, bestHash := cs.GetBestBlock()
	if bestHeight != 3 || bestHash != blocks[2].BlockHash() {
		t.Fatalf("expected header tip at height 3, got height %d hash %s", bestHeight, bestHash)
	}
	if cs.GetValidationIndex() != 0 {
		t.Fatalf("expected validation to lag the headers at 0, got %d", cs.GetValidationIndex())
	}
	if !cs.IsInIBD(time.Now()) {
		t.Fatal("expected IBD while validation lags the best header")
	}

	for i, block := range blocks {
		if err := cs.ConnectBlock(ConnectInput{Block: block, Height: int32(i) + 1}); err != nil {
			t.Fatalf("ConnectBlock at height %d: %v", i+1, err)
		}
	}
	if cs.GetValidationIndex() != 3 {
		t.Fatalf("expected validation index 3 after connecting, got %d", cs.GetValidationIndex())
	}
}

// TestChainStateRejectsMutatedBlock exercises sync against a source that
// mutates a block's body while keeping its header:
// repeated copies of a block whose transaction list does not match its
// header are each rejected without moving the tip, and the honest copy then
// connects, leaving the chain on the honest branch.
func TestChainStateRejectsMutatedBlock(t *testing.T) {
	cs, params, _ := newTestChain(t)

	parent := &params.GenesisBlock.Header
	var honest []*wire.MsgBlock
	for h := int32(1); h <= 9; h++ {
		block := mineBlock(t, params, parent, h, 1_600_000_000+int64(h)*600)
		honest = append(honest, block)
		parent = &block.Header
	}

	for i, block := range honest {
		h := int32(i) + 1
		if _, err := cs.AcceptHeader(&block.Header); err != nil {
			t.Fatalf("AcceptHeader at height %d: %v", h, err)
		}
		if h == 7 {
			mutated := &wire.MsgBlock{Header: block.Header}
			mutated.Transactions = append(mutated.Transactions, block.Transactions...)
			mutated.AddTransaction(txSpending([]wire.OutPoint{{Index: 5}}, 1))

			for try := 0; try < 9; try++ {
				err := cs.ConnectBlock(ConnectInput{Block: mutated, Height: h})
				if !IsErrorCode(err, ErrBadMerkleRoot) {
					t.Fatalf("expected ErrBadMerkleRoot for mutated block, got %v", err)
				}
			}
			if cs.GetValidationIndex() != 6 {
				t.Fatalf("expected tip unchanged at 6 after rejections, got %d", cs.GetValidationIndex())
			}
		}
		if err := cs.ConnectBlock(ConnectInput{Block: block, Height: h}); err != nil {
			t.Fatalf("ConnectBlock at height %d: %v", h, err)
		}
	}

	if cs.GetValidationIndex() != 9 {
		t.Fatalf("expected validation height 9, got %d", cs.GetValidationIndex())
	}
	if _, bestHash := cs.GetBestBlock(); bestHash != honest[8].BlockHash() {
		t.Fatalf("expected best hash to match the honest height-9 header, got %s", bestHash)
	}
}

func TestChainStateReorganize(t *testing.T) {
	cs, params, store := newTestChain(t)

	// One block on branch A, then a longer branch B off genesis.
	blockA := mineBlock(t, params, &params.GenesisBlock.Header, 1, 1_600_000_600)
	acceptAndConnect(t, cs, blockA, 1)

	b1 := mineBlock(t, params, &params.GenesisBlock.Header, 1, 1_600_001_200)
	b2 := mineBlock(t, params, &b1.Header, 2, 1_600_001_800)
	if _, err := cs.AcceptHeader(&b1.Header); err != nil {
		t.Fatalf("AcceptHeader b1: %v", err)
	}
	if _, err := cs.AcceptHeader(&b2.Header); err != nil {
		t.Fatalf("AcceptHeader b2: %v", err)
	}

	branch := []ConnectInput{
		{Block: b1, Height: 1},
		{Block: b2, Height: 2},
	}
	if err := cs.Reorganize(branch); err != nil {
		t.Fatalf("Reorganize: %v", err)
	}

	if cs.GetValidationIndex() != 2 {
		t.Fatalf("expected validation index 2 after reorg, got %d", cs.GetValidationIndex())
	}
	hash, err := cs.GetBlockHash(1)
	if err != nil {
		t.Fatalf("GetBlockHash(1): %v", err)
	}
	if hash != b1.BlockHash() {
		t.Fatalf("expected height 1 to map to the reorged branch, got %s", hash)
	}
	tipH, tipHash, err := store.LoadHeight()
	if err != nil || tipH != 2 || tipHash != b2.BlockHash() {
		t.Fatalf("expected persisted tip (2, %s), got (%d, %s, %v)", b2.BlockHash(), tipH, tipHash, err)
	}
}

// TestChainStateReorganizeRollsBackOnFailure confirms a reorg whose branch
// contains an invalid block restores the prior tip and accumulator exactly,
// as if Reorganize had never been called.
func TestChainStateReorganizeRollsBackOnFailure(t *testing.T) {
	cs, params, store := newTestChain(t)

	blockA := mineBlock(t, params, &params.GenesisBlock.Header, 1, 1_600_000_600)
	acceptAndConnect(t, cs, blockA, 1)

	b1 := mineBlock(t, params, &params.GenesisBlock.Header, 1, 1_600_001_200)
	// b2 over-claims the subsidy, so the branch replay must fail there.
	b2 := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: b1.BlockHash(),
			Timestamp: time.Unix(1_600_001_800, 0),
			Bits:      params.PowLimitBits,
		},
		Transactions: []*wire.MsgTx{coinbaseTx(heightPushScript(2), 50*1e8+1)},
	}
	b2.Header.MerkleRoot = b2.MerkleRoot()
	for CheckProofOfWork(&b2.Header) != nil {
		b2.Header.Nonce++
	}

	if _, err := cs.AcceptHeader(&b1.Header); err != nil {
		t.Fatalf("AcceptHeader b1: %v", err)
	}
	if _, err := cs.AcceptHeader(&b2.Header); err != nil {
		t.Fatalf("AcceptHeader b2: %v", err)
	}

	branch := []ConnectInput{
		{Block: b1, Height: 1},
		{Block: b2, Height: 2},
	}
	err := cs.Reorganize(branch)
	if !IsErrorCode(err, ErrBadCoinbaseOutValue) {
		t.Fatalf("expected ErrBadCoinbaseOutValue from the invalid branch block, got %v", err)
	}

	if cs.GetValidationIndex() != 1 {
		t.Fatalf("expected validation index restored to 1, got %d", cs.GetValidationIndex())
	}
	tipH, tipHash, loadErr := store.LoadHeight()
	if loadErr != nil || tipH != 1 || tipHash != blockA.BlockHash() {
		t.Fatalf("expected persisted tip unchanged at (1, %s), got (%d, %s, %v)",
			blockA.BlockHash(), tipH, tipHash, loadErr)
	}
	hash, err := cs.GetBlockHash(1)
	if err != nil {
		t.Fatalf("GetBlockHash(1): %v", err)
	}
	if hash != blockA.BlockHash() {
		t.Fatalf("expected height 1 to still map to branch A, got %s", hash)
	}
}

func TestChainStateConnectRequiresKnownHeader(t *testing.T) {
	cs, params, _ := newTestChain(t)

	block := mineBlock(t, params, &params.GenesisBlock.Header, 1, 1_600_000_600)
	err := cs.ConnectBlock(ConnectInput{Block: block, Height: 1})
	if !IsErrorCode(err, ErrUnknownHeader) {
		t.Fatalf("expected ErrUnknownHeader for a block whose header was never accepted, got %v", err)
	}
}

// TestChainStateAcceptHeaderWrongBits checks that a header's claimed
// difficulty must equal what the chain requires at its height even when
// its hash satisfies the (here slightly harder) target it claims.
func TestChainStateAcceptHeaderWrongBits(t *testing.T) {
	cs, params, _ := newTestChain(t)

	block := mineBlock(t, params, &params.GenesisBlock.Header, 1, 1_600_000_600)
	block.Header.Bits = 0x207ffffe
	for CheckProofOfWork(&block.Header) != nil {
		block.Header.Nonce++
	}

	if _, err := cs.AcceptHeader(&block.Header); !IsErrorCode(err, ErrBadPoW) {
		t.Fatalf("expected ErrBadPoW for off-schedule difficulty bits, got %v", err)
	}
}

func TestChainStateAcceptHeaderUnknownParent(t *testing.T) {
	cs, params, _ := newTestChain(t)

	orphan := mineBlock(t, params, &wire.BlockHeader{Version: 1, Bits: params.PowLimitBits}, 5, 1_600_000_600)
	if _, err := cs.AcceptHeader(&orphan.Header); !IsErrorCode(err, ErrUnknownHeader) {
		t.Fatalf("expected ErrUnknownHeader for an orphan header, got %v", err)
	}
}
