// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/JoseSK999/floresta/chaincfg"
	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/internal/accumulator"
	"github.com/JoseSK999/floresta/internal/cache"
	"github.com/JoseSK999/floresta/internal/primitives"
	"github.com/JoseSK999/floresta/log"
	"github.com/JoseSK999/floresta/storage"
	"github.com/JoseSK999/floresta/txscript"
	"github.com/JoseSK999/floresta/wire"
)

// Snapshot is a consistent, point-in-time view of the chain tip. It is
// produced by the command goroutine after every state change and read
// without taking any lock that could span network or disk I/O, so a
// reader always observes a (height, hash) pair corresponding to some
// past serialized state.
type Snapshot struct {
	BestHash         chainhash.Hash
	BestHeight       int32
	ValidationHeight int32
	TotalWork        primitives.Uint256
	MedianTimePast   int64
}

// ConnectInput bundles the proof payload a caller (the P2P collaborator)
// supplies alongside one block: the block itself, the height it claims,
// the batched inclusion proof and deleted leaf hashes, and the per-input
// UtxoData the proof's leaves carry, keyed the same way as delHashes /
// Outpoints.
type ConnectInput struct {
	Block     *wire.MsgBlock
	Height    int32
	Proof     accumulator.Proof
	DelHashes []chainhash.Hash
	Outpoints []wire.OutPoint
	UtxoData  []accumulator.UtxoData
}

type headerNode struct {
	header *wire.BlockHeader
	height int32
	work   primitives.Uint256
}

// command is one unit of serialized work; ChainState processes these one
// at a time on a single goroutine so the accumulator and tip are never
// observed mid-update.
type command struct {
	run  func()
	done chan struct{}
}

// ChainState owns the current tip, the header index (by height and by
// hash), the best-chain marker, and the current accumulator root set. It
// mediates between the storage collaborator and the validators in this
// package: AcceptHeader, ConnectBlock, and Reorganize all run on one
// serialized command queue; GetBestBlock and friends read an immutable
// snapshot and never block on that queue.
type ChainState struct {
	store       storage.Store
	headerCache *cache.HeaderCache
	heightCache *cache.HeightIndexCache
	params      *chaincfg.Params
	verifier    txscript.ScriptVerifier
	sigCache    *txscript.SigCache

	cmdCh  chan command
	stopCh chan struct{}
	wg     sync.WaitGroup

	snapshot atomic.Pointer[Snapshot]

	// The fields below are only ever touched from the command goroutine;
	// no other goroutine may read or write them directly. validTip is the
	// last fully-validated block; bestHeader is the most-work header seen,
	// which may be ahead of validTip during header-first download.
	nodes             map[chainhash.Hash]*headerNode
	stump             accumulator.Stump
	validTip          *headerNode
	bestHeader        *headerNode
	assumeValidHeight int32
	initialized       bool
}

// New returns a ChainState backed by store, with bounded LRU caches of the
// recommended 64k-entry capacity, and starts its single command-processing
// goroutine.
func New(store storage.Store, params *chaincfg.Params, verifier txscript.ScriptVerifier, sigCache *txscript.SigCache) *ChainState {
	cs := &ChainState{
		store:             store,
		headerCache:       cache.NewHeaderCache(cache.DefaultCapacity),
		heightCache:       cache.NewHeightIndexCache(cache.DefaultCapacity),
		params:            params,
		verifier:          verifier,
		sigCache:          sigCache,
		cmdCh:             make(chan command, 64),
		stopCh:            make(chan struct{}),
		nodes:             make(map[chainhash.Hash]*headerNode),
		assumeValidHeight: -1,
	}
	cs.snapshot.Store(&Snapshot{})
	cs.wg.Add(1)
	go cs.loop()
	return cs
}

func (cs *ChainState) loop() {
	defer cs.wg.Done()
	for cmd := range cs.cmdCh {
		cmd.run()
		close(cmd.done)
	}
}

// do submits f to the serialized command queue and blocks until it has run.
func (cs *ChainState) do(f func()) {
	done := make(chan struct{})
	cs.cmdCh <- command{run: f, done: done}
	<-done
}

// Shutdown requests that any block validation in progress stop between
// transactions, then waits for the command goroutine to drain and exit. A
// block whose persistence cannot complete before shutdown is abandoned;
// the pre-block state remains authoritative since the tip is only advanced
// after a successful Flush.
func (cs *ChainState) Shutdown() {
	close(cs.stopCh)
	close(cs.cmdCh)
	cs.wg.Wait()
}

// Init seeds the chain state from genesis, or from the network's
// assume-utreexo snapshot if one is configured, when the store has no
// persisted tip yet; otherwise it loads the persisted tip and accumulator.
func (cs *ChainState) Init() error {
	var initErr error
	cs.do(func() {
		height, hash, err := cs.store.LoadHeight()
		if err == storage.ErrNotFound {
			initErr = cs.initGenesisLocked()
			return
		}
		if err != nil {
			initErr = ruleError(ErrStorageFailure, err.Error())
			return
		}

		header, err := cs.store.GetHeader(hash)
		if err != nil {
			initErr = ruleError(ErrStorageFailure, err.Error())
			return
		}
		raw, err := cs.store.LoadRootsForBlock(height)
		if err != nil {
			initErr = ruleError(ErrStorageFailure, err.Error())
			return
		}
		stump, err := decodeStump(raw)
		if err != nil {
			initErr = err
			return
		}

		cs.stump = stump
		node := &headerNode{
			header: header,
			height: height,
			work:   primitives.CalcWork(header.Bits),
		}
		cs.nodes[hash] = node
		cs.validTip = node
		cs.bestHeader = node
		cs.initialized = true
		cs.publishSnapshotLocked()
	})
	return initErr
}

func (cs *ChainState) initGenesisLocked() error {
	genesis := cs.params.GenesisBlock.Header
	hash := cs.params.GenesisHash

	if snap := cs.params.AssumeUtreexoSnapshot; snap != nil {
		cs.stump = accumulator.Stump{Roots: snap.Roots, NumLeaves: snap.Leaves}
	}

	if err := cs.store.SaveHeader(&genesis); err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}
	if err := cs.store.UpdateBlockIndex(0, hash); err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}
	if err := cs.store.SaveHeight(0, hash); err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}
	if err := cs.store.SaveRootsForBlock(0, encodeStump(cs.stump)); err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}
	if err := cs.store.Flush(); err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}

	node := &headerNode{header: &genesis, height: 0, work: primitives.CalcWork(genesis.Bits)}
	cs.nodes[hash] = node
	cs.validTip = node
	cs.bestHeader = node
	cs.initialized = true
	cs.publishSnapshotLocked()
	return nil
}

func (cs *ChainState) publishSnapshotLocked() {
	cs.snapshot.Store(&Snapshot{
		BestHash:         cs.bestHeader.header.BlockHash(),
		BestHeight:       cs.bestHeader.height,
		ValidationHeight: cs.validTip.height,
		TotalWork:        cs.bestHeader.work,
		MedianTimePast:   medianTimePast(cs.ancestorsLocked(cs.validTip, 11)),
	})
}

// GetBestBlock returns the best-chain tip's height and hash. During
// header-first download this is the most-work header, which may be ahead of
// the fully-validated height reported by GetValidationIndex.
func (cs *ChainState) GetBestBlock() (int32, chainhash.Hash) {
	s := cs.snapshot.Load()
	return s.BestHeight, s.BestHash
}

// GetValidationIndex returns the height up to which blocks have been fully
// validated; it never exceeds GetBestBlock's height, allowing header-first
// download.
func (cs *ChainState) GetValidationIndex() int32 {
	return cs.snapshot.Load().ValidationHeight
}

// IsInIBD reports whether the chain is still in initial block download:
// true until the validation height equals the best height and the tip's
// median time past is within 24 hours of wall clock.
func (cs *ChainState) IsInIBD(now time.Time) bool {
	s := cs.snapshot.Load()
	if s.ValidationHeight != s.BestHeight {
		return true
	}
	return now.Unix()-s.MedianTimePast > 24*60*60
}

// GetHeader returns the header stored under hash, consulting the LRU cache
// before the storage collaborator.
func (cs *ChainState) GetHeader(hash chainhash.Hash) (*wire.BlockHeader, error) {
	if h, ok := cs.headerCache.Get(hash); ok {
		return h, nil
	}
	h, err := cs.store.GetHeader(hash)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ruleError(ErrUnknownHeader, "unknown header")
		}
		return nil, ruleError(ErrStorageFailure, err.Error())
	}
	cs.headerCache.Add(hash, h)
	return h, nil
}

// GetBlockHash returns the best-chain block hash at height.
func (cs *ChainState) GetBlockHash(height int32) (chainhash.Hash, error) {
	if hash, ok := cs.heightCache.Get(height); ok {
		return hash, nil
	}
	hash, err := cs.store.GetBlockHash(height)
	if err != nil {
		if err == storage.ErrNotFound {
			return chainhash.Hash{}, ruleError(ErrUnknownHeader, "no block at height")
		}
		return chainhash.Hash{}, ruleError(ErrStorageFailure, err.Error())
	}
	cs.heightCache.Add(height, hash)
	return hash, nil
}

// AcceptHeader extends the header index with header, whose parent must
// already be known, running the link, proof-of-work, and BIP94 checks and
// verifying header.Bits against the difficulty required at its height: the
// parent's bits off a retarget boundary, the recomputed target on one.
// It returns the new header's height. A header whose branch accumulates
// more work than the current tip triggers no reorg by itself: reorg only
// happens once the caller supplies the branch's blocks via Reorganize.
func (cs *ChainState) AcceptHeader(header *wire.BlockHeader) (int32, error) {
	var height int32
	var err error
	cs.do(func() {
		height, err = cs.acceptHeaderLocked(header)
	})
	return height, err
}

func (cs *ChainState) acceptHeaderLocked(header *wire.BlockHeader) (int32, error) {
	if !cs.initialized {
		return 0, ruleError(ErrChainNotInitialized, "chain state has no genesis tip")
	}

	parent, ok := cs.nodes[header.PrevBlock]
	if !ok {
		return 0, ruleError(ErrUnknownHeader, "header's parent is unknown")
	}

	if err := CheckHeaderLink(header, parent.header); err != nil {
		return 0, err
	}
	if err := CheckProofOfWork(header); err != nil {
		return 0, err
	}
	if err := CheckBIP94Time(header, parent.header, cs.params); err != nil {
		return 0, err
	}

	// Every header's claimed difficulty is checked against the value the
	// chain requires at its height: the parent's bits off a retarget
	// boundary, the recomputed target on one. Checking hash <= target
	// alone would let a peer present mid-period headers mined against an
	// easier target of its own choosing.
	height := parent.height + 1
	expected := parent.header.Bits
	if interval := int32(cs.params.DifficultyAdjustmentInterval); interval > 0 && height%interval == 0 {
		if first := cs.ancestorAtHeightLocked(parent, height-interval); first != nil {
			expected = NextRequiredTarget(parent.header, first.header, cs.params)
		}
	}
	if header.Bits != expected {
		return 0, ruleError(ErrBadPoW, "header bits do not match the required difficulty")
	}

	hash := header.BlockHash()
	work := parent.work.Add(primitives.CalcWork(header.Bits))
	node := &headerNode{header: header, height: height, work: work}
	cs.nodes[hash] = node

	if err := cs.store.SaveHeader(header); err != nil {
		return 0, ruleError(ErrStorageFailure, err.Error())
	}
	cs.headerCache.Add(hash, header)

	if avHash := cs.params.AssumeValidHash; avHash != nil && hash == *avHash {
		cs.assumeValidHeight = height
	}
	if node.work.GT(cs.bestHeader.work) {
		cs.bestHeader = node
		cs.publishSnapshotLocked()
	}
	return height, nil
}

// ancestorAtHeightLocked walks parent pointers from node back to height,
// using the in-memory node index only (side branches are not persisted to
// the height index until they become best).
func (cs *ChainState) ancestorAtHeightLocked(node *headerNode, height int32) *headerNode {
	for node != nil && node.height > height {
		node = cs.nodes[node.header.PrevBlock]
	}
	if node != nil && node.height == height {
		return node
	}
	return nil
}

// ConnectBlock validates in against the current tip and, on success,
// advances it by one block: it requires in.Block's header to have been
// accepted already and to be the validated tip's immediate child (use
// Reorganize to switch branches).
func (cs *ChainState) ConnectBlock(in ConnectInput) error {
	var err error
	cs.do(func() {
		err = cs.connectBlockLocked(in)
	})
	return err
}

func (cs *ChainState) connectBlockLocked(in ConnectInput) error {
	if !cs.initialized {
		return ruleError(ErrChainNotInitialized, "chain state has no genesis tip")
	}

	tipNode := cs.validTip
	if in.Block.Header.PrevBlock != tipNode.header.BlockHash() {
		return ruleError(ErrUnknownHeader, "block does not extend the current validation tip")
	}

	node, ok := cs.nodes[in.Block.BlockHash()]
	if !ok {
		return ruleError(ErrUnknownHeader, "block's header was not accepted first")
	}
	if node.height != tipNode.height+1 || node.height != in.Height {
		return ruleError(ErrUnknownHeader, "block height does not match the header index")
	}

	mtp := medianTimePast(cs.ancestorsLocked(tipNode, 11))

	newStump, fee, err := ConnectBlock(
		in.Block, in.Height, mtp, cs.stump, in.Proof, in.DelHashes,
		in.Outpoints, in.UtxoData, cs.verifierFor(in.Height), cs.sigCache, cs.params, cs.stopCh,
	)
	if err != nil {
		return err
	}
	_ = fee

	hash := in.Block.BlockHash()
	if err := cs.store.UpdateBlockIndex(in.Height, hash); err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}
	if err := cs.store.SaveHeight(in.Height, hash); err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}
	if err := cs.store.SaveRootsForBlock(in.Height, encodeStump(newStump)); err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}
	if err := cs.store.Flush(); err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}

	cs.stump = newStump
	cs.validTip = node
	if node.work.GT(cs.bestHeader.work) {
		cs.bestHeader = node
	}
	cs.heightCache.Add(in.Height, hash)
	cs.publishSnapshotLocked()
	log.CHST.Debugf("connected block %s at height %d, %d accumulator roots",
		hash, in.Height, len(newStump.Roots))
	return nil
}

// verifierFor returns the script verifier to use at height: nil (skipping
// script execution) while still at or below the assume-valid block, once
// its header has been seen, and the configured verifier otherwise.
func (cs *ChainState) verifierFor(height int32) txscript.ScriptVerifier {
	if cs.assumeValidHeight >= 0 && height <= cs.assumeValidHeight {
		return nil
	}
	return cs.verifier
}

// ancestorsLocked returns up to n ancestors of node, starting with node
// itself and walking back through parent pointers, most recent first.
func (cs *ChainState) ancestorsLocked(node *headerNode, n int) []*headerNode {
	out := make([]*headerNode, 0, n)
	for node != nil && len(out) < n {
		out = append(out, node)
		node = cs.nodes[node.header.PrevBlock]
	}
	return out
}

// medianTimePast returns the median of up to the last 11 ancestors' times,
// the value BIP113 and BIP68's time-based locks are defined against.
func medianTimePast(ancestors []*headerNode) int64 {
	if len(ancestors) == 0 {
		return 0
	}
	times := make([]int64, len(ancestors))
	for i, a := range ancestors {
		times[i] = a.header.Timestamp.Unix()
	}
	for i := 1; i < len(times); i++ {
		for j := i; j > 0 && times[j-1] > times[j]; j-- {
			times[j-1], times[j] = times[j], times[j-1]
		}
	}
	return times[len(times)/2]
}

// Reorganize switches the best chain to newBranch, a sequence of
// ConnectInputs in increasing height order whose first block's header
// builds on some ancestor of the current tip (the fork point). It loads
// the accumulator snapshot saved at the fork height, then reconnects each
// block of newBranch in turn; if any reconnection fails, the previous best
// chain (tip and accumulator) is restored exactly and the failure is
// returned, leaving the engine as if Reorganize had never been called.
func (cs *ChainState) Reorganize(newBranch []ConnectInput) error {
	var err error
	cs.do(func() {
		err = cs.reorganizeLocked(newBranch)
	})
	return err
}

func (cs *ChainState) reorganizeLocked(newBranch []ConnectInput) error {
	if len(newBranch) == 0 {
		return nil
	}
	if !cs.initialized {
		return ruleError(ErrChainNotInitialized, "chain state has no genesis tip")
	}

	firstHeader := newBranch[0].Block.Header
	forkNode, ok := cs.nodes[firstHeader.PrevBlock]
	if !ok {
		return ruleError(ErrUnknownHeader, "reorg branch does not attach to a known header")
	}

	lastNode, ok := cs.nodes[newBranch[len(newBranch)-1].Block.BlockHash()]
	if !ok {
		return ruleError(ErrUnknownHeader, "reorg branch tip's header was not accepted first")
	}
	if !lastNode.work.GT(cs.validTip.work) {
		return ruleError(ErrUnknownHeader, "reorg branch does not have more cumulative work than the current tip")
	}

	savedStump := cs.stump
	savedValidTip := cs.validTip
	savedBestHeader := cs.bestHeader

	restore := func() {
		cs.stump = savedStump
		cs.validTip = savedValidTip
		cs.bestHeader = savedBestHeader
		cs.publishSnapshotLocked()
	}

	raw, err := cs.store.LoadRootsForBlock(forkNode.height)
	if err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}
	forkStump, err := decodeStump(raw)
	if err != nil {
		return ruleError(ErrStorageFailure, err.Error())
	}

	cs.stump = forkStump
	tip := forkNode
	stumpAtHeight := make(map[int32]accumulator.Stump, len(newBranch))
	for _, in := range newBranch {
		node, ok := cs.nodes[in.Block.BlockHash()]
		if !ok {
			restore()
			return ruleError(ErrUnknownHeader, "reorg block's header was not accepted first")
		}

		mtp := medianTimePast(cs.ancestorsLocked(tip, 11))
		newStump, _, connErr := ConnectBlock(
			in.Block, in.Height, mtp, cs.stump, in.Proof, in.DelHashes,
			in.Outpoints, in.UtxoData, cs.verifierFor(in.Height), cs.sigCache, cs.params, cs.stopCh,
		)
		if connErr != nil {
			restore()
			return connErr
		}

		cs.stump = newStump
		stumpAtHeight[in.Height] = newStump
		tip = node
	}

	for _, in := range newBranch {
		hash := in.Block.BlockHash()
		if err := cs.store.UpdateBlockIndex(in.Height, hash); err != nil {
			restore()
			return ruleError(ErrStorageFailure, err.Error())
		}
		if err := cs.store.SaveRootsForBlock(in.Height, encodeStump(stumpAtHeight[in.Height])); err != nil {
			restore()
			return ruleError(ErrStorageFailure, err.Error())
		}
	}

	tipHash := tip.header.BlockHash()
	if err := cs.store.SaveHeight(tip.height, tipHash); err != nil {
		restore()
		return ruleError(ErrStorageFailure, err.Error())
	}
	if err := cs.store.Flush(); err != nil {
		restore()
		return ruleError(ErrStorageFailure, err.Error())
	}

	for _, in := range newBranch {
		cs.heightCache.Add(in.Height, in.Block.BlockHash())
	}
	cs.validTip = tip
	if tip.work.GT(cs.bestHeader.work) {
		cs.bestHeader = tip
	}
	cs.publishSnapshotLocked()
	log.CHST.Infof("reorganized to new best chain, tip %s at height %d (%d blocks reconnected)",
		tipHash, tip.height, len(newBranch))
	return nil
}

// encodeStump serializes a Stump as a flat byte slice: an 8-byte leaf
// count followed by each root's 32 bytes, in order. The format is this
// repo's own on-disk choice; storage.Store treats it as opaque.
func encodeStump(s accumulator.Stump) []byte {
	buf := make([]byte, 8+len(s.Roots)*chainhash.HashSize)
	putUint64LE(buf[:8], s.NumLeaves)
	for i, r := range s.Roots {
		copy(buf[8+i*chainhash.HashSize:], r[:])
	}
	return buf
}

func decodeStump(raw []byte) (accumulator.Stump, error) {
	if len(raw) < 8 || (len(raw)-8)%chainhash.HashSize != 0 {
		return accumulator.Stump{}, ruleError(ErrStorageFailure, "malformed accumulator snapshot")
	}
	numLeaves := getUint64LE(raw[:8])
	count := (len(raw) - 8) / chainhash.HashSize
	roots := make([]chainhash.Hash, count)
	for i := range roots {
		copy(roots[i][:], raw[8+i*chainhash.HashSize:])
	}
	return accumulator.Stump{Roots: roots, NumLeaves: numLeaves}, nil
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func getUint64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}
