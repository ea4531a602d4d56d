// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain accepts blocks and chunk parts from the network and extends
// the canonical chain with them.
//
// A submitted block is validated against its parent, waits in the orphan
// pool if the parent is unknown, waits for its chunks to be assembled and
// for its parent to be applied, and is finally executed and handed to fork
// choice. Every verdict is persisted so that a block is applied at most once,
// including across restarts.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/shardchain/cache/lru"
	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/chunks"
	"github.com/ava-labs/shardchain/chain/epoch"
	"github.com/ava-labs/shardchain/chain/executor"
	"github.com/ava-labs/shardchain/chain/forkchoice"
	"github.com/ava-labs/shardchain/chain/job"
	"github.com/ava-labs/shardchain/chain/network"
	"github.com/ava-labs/shardchain/chain/orphan"
	"github.com/ava-labs/shardchain/chain/store"
	"github.com/ava-labs/shardchain/chain/validation"
	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/logging"
	"github.com/ava-labs/shardchain/utils/timer/mockable"
)

var (
	// ErrHalted is returned by every operation once the chain hit a fatal
	// error.
	ErrHalted = errors.New("chain halted")
	// ErrInvalidAncestor is the reason recorded for descendants of rejected
	// blocks.
	ErrInvalidAncestor = errors.New("invalid ancestor")
	// ErrStateRootMismatch is the reason recorded for blocks whose header
	// disagrees with the state reached by executing them.
	ErrStateRootMismatch = errors.New("state root mismatch")

	errGenesisMismatch = errors.New("database holds a different genesis")
)

// Updater is the chain's public surface.
type Updater interface {
	ProcessBlock(ctx context.Context, blk *block.Block) (Outcome, error)
	ProcessChunkPart(ctx context.Context, part *block.ChunkPart) error
	ProcessChunk(ctx context.Context, chunk *block.Chunk) error
	Sweep(ctx context.Context) error
	CurrentHead() *block.Header
	CurrentHeaderHead() *block.Header
	CurrentFinalHead() *block.Header
	GetBlock(blkID ids.ID) (*block.Block, error)
	Fatal() <-chan error
}

var _ Updater = (*Chain)(nil)

// Genesis describes the block at height 0.
type Genesis struct {
	// Timestamp is in unix nanoseconds.
	Timestamp  uint64
	ShardRoots []ids.ID
}

// Backends are the capabilities the chain is built on.
type Backends struct {
	DB     database.Database
	Epochs epoch.Manager
	VM     executor.VM
	Sender network.Sender
	// FinalityRule defaults to a QuorumRule over Epochs.
	FinalityRule forkchoice.FinalityRule
	// Clock defaults to the system clock.
	Clock      *mockable.Clock
	Log        logging.Logger
	Registerer prometheus.Registerer
}

// depKey is something a block may wait on: the application of a block, or
// the arrival of a chunk.
type depKey struct {
	id    ids.ID
	chunk bool
}

func blockDep(blkID ids.ID) depKey {
	return depKey{id: blkID}
}

func chunkDep(chunkID ids.ID) depKey {
	return depKey{id: chunkID, chunk: true}
}

// executionRetry tracks a block the VM failed to execute.
type executionRetry struct {
	attempts int
	next     time.Time
}

type Chain struct {
	config    Config
	clock     *mockable.Clock
	log       logging.Logger
	sender    network.Sender
	store     *store.Store
	validator *validation.Validator
	runner    *executor.Runner
	engine    *forkchoice.Engine
	orphans   *orphan.Pool
	assembler *chunks.Assembler
	metrics   *metrics
	fatal     chan error
	// ticker overrides the sweep ticker of Run.
	ticker ticker.Ticker

	// lock is held for every change to the store or to the fields below.
	lock     sync.Mutex
	fatalErr error
	// scheduler holds the application of validated blocks until their
	// parent is applied and their chunks are present.
	scheduler *job.Scheduler[depKey]
	// processing holds validated blocks that are not applied yet.
	processing map[ids.ID]*block.Block
	// waitingChunks holds the headers of chunks that processing blocks wait
	// on.
	waitingChunks map[ids.ID]block.ChunkHeader
	// readyChunks holds the chunks of processing blocks that are not applied
	// yet.
	readyChunks map[ids.ID]*block.Chunk
	// unclaimedChunks holds chunks that arrived before any block using them
	// was validated.
	unclaimedChunks *lru.Cache[ids.ID, *block.Chunk]
	// pendingExecution holds processing blocks the VM failed to execute.
	pendingExecution map[ids.ID]*executionRetry
}

// New opens the chain stored in [backends.DB], writing [genesis] first if the
// database is empty.
func New(config Config, genesis Genesis, backends Backends) (*Chain, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}
	clock := backends.Clock
	if clock == nil {
		clock = &mockable.Clock{}
	}
	rule := backends.FinalityRule
	if rule == nil {
		rule = forkchoice.NewQuorumRule(backends.Epochs)
	}
	reg := backends.Registerer

	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	s, err := store.New(config.Store, backends.DB, prometheus.WrapRegistererWithPrefix("store_", reg))
	if err != nil {
		return nil, err
	}
	runner, err := executor.New(
		backends.VM,
		s,
		backends.Log,
		prometheus.WrapRegistererWithPrefix("executor_", reg),
	)
	if err != nil {
		return nil, err
	}
	orphans, err := orphan.New(
		config.Orphans,
		clock,
		backends.Log,
		prometheus.WrapRegistererWithPrefix("orphan_", reg),
	)
	if err != nil {
		return nil, err
	}
	assembler, err := chunks.New(
		config.Chunks,
		backends.Sender,
		clock,
		backends.Log,
		prometheus.WrapRegistererWithPrefix("chunks_", reg),
	)
	if err != nil {
		return nil, err
	}

	c := &Chain{
		config:           config,
		clock:            clock,
		log:              backends.Log,
		sender:           backends.Sender,
		store:            s,
		validator:        validation.New(config.Params, backends.Epochs),
		runner:           runner,
		orphans:          orphans,
		assembler:        assembler,
		metrics:          m,
		fatal:            make(chan error, 1),
		scheduler:        job.NewScheduler[depKey](),
		processing:       make(map[ids.ID]*block.Block),
		waitingChunks:    make(map[ids.ID]block.ChunkHeader),
		readyChunks:      make(map[ids.ID]*block.Chunk),
		unclaimedChunks:  lru.NewCache[ids.ID, *block.Chunk](config.ChunkCacheSize),
		pendingExecution: make(map[ids.ID]*executionRetry),
	}
	state, err := c.bootstrap(genesis)
	if err != nil {
		return nil, err
	}
	c.engine = forkchoice.New(rule, state, backends.Log)
	c.updateStateMetrics(state)

	c.log.Info("chain initialized",
		zap.Stringer("headID", state.Head.ID()),
		zap.Uint64("headHeight", state.Head.Height),
		zap.Stringer("finalID", state.FinalHead.ID()),
		zap.Uint64("finalHeight", state.FinalHead.Height),
	)
	return c, nil
}

// bootstrap writes genesis to an empty store and loads the chain's pointers.
func (c *Chain) bootstrap(genesis Genesis) (forkchoice.ChainState, error) {
	genesisBlk, err := block.Genesis(genesis.Timestamp, genesis.ShardRoots)
	if err != nil {
		return forkchoice.ChainState{}, err
	}
	genesisID := genesisBlk.ID()

	initialized, err := c.store.IsInitialized()
	if err != nil {
		return forkchoice.ChainState{}, err
	}
	if !initialized {
		if err := c.writeGenesis(genesisBlk, genesis.ShardRoots); err != nil {
			return forkchoice.ChainState{}, fmt.Errorf("couldn't write genesis: %w", err)
		}
		c.log.Info("wrote genesis",
			zap.Stringer("genesisID", genesisID),
			zap.Int("numShards", len(genesis.ShardRoots)),
		)
	}

	storedGenesisID, err := c.store.GetCanonicalBlockID(0)
	if err != nil {
		return forkchoice.ChainState{}, err
	}
	if storedGenesisID != genesisID {
		return forkchoice.ChainState{}, fmt.Errorf("%w: %s != %s", errGenesisMismatch, storedGenesisID, genesisID)
	}

	var (
		state   forkchoice.ChainState
		getters = []struct {
			get    func() (ids.ID, error)
			header **block.Header
		}{
			{get: c.store.GetHead, header: &state.Head},
			{get: c.store.GetHeaderHead, header: &state.HeaderHead},
			{get: c.store.GetFinal, header: &state.FinalHead},
		}
	)
	for _, g := range getters {
		blkID, err := g.get()
		if err != nil {
			return forkchoice.ChainState{}, err
		}
		blk, err := c.store.GetBlock(blkID)
		if errors.Is(err, database.ErrNotFound) {
			// The header head may not have been applied.
			blk, err = c.store.GetBlock(storedGenesisID)
		}
		if err != nil {
			return forkchoice.ChainState{}, err
		}
		*g.header = &blk.Header
	}
	return state, nil
}

func (c *Chain) writeGenesis(genesis *block.Block, shardRoots []ids.ID) error {
	genesisID := genesis.ID()
	u := c.store.NewUpdate()
	for _, write := range []func() error{
		func() error { return u.PutBlock(genesis) },
		func() error { return u.SetStatus(genesisID, store.Status{State: store.Applied, HeadMoved: true}) },
		func() error { return u.SetCanonical(0, genesisID) },
		func() error { return u.PutStateRoots(genesis.Header.StateRoot, shardRoots) },
		func() error { return u.SetHead(genesisID) },
		func() error { return u.SetHeaderHead(genesisID) },
		func() error { return u.SetFinal(genesisID) },
	} {
		if err := write(); err != nil {
			u.Abort()
			return err
		}
	}
	return u.Commit()
}

// CurrentHead returns the tip of the canonical chain.
func (c *Chain) CurrentHead() *block.Header {
	return c.engine.State().Head
}

// CurrentHeaderHead returns the best validated header. Its block may still
// be waiting on chunks or execution.
func (c *Chain) CurrentHeaderHead() *block.Header {
	return c.engine.State().HeaderHead
}

func (c *Chain) CurrentFinalHead() *block.Header {
	return c.engine.State().FinalHead
}

// GetBlock returns an applied block.
func (c *Chain) GetBlock(blkID ids.ID) (*block.Block, error) {
	return c.store.GetBlock(blkID)
}

func (c *Chain) GetBlockIDsAtHeight(height uint64) ([]ids.ID, error) {
	return c.store.GetBlockIDsAtHeight(height)
}

func (c *Chain) GetCanonicalBlockID(height uint64) (ids.ID, error) {
	return c.store.GetCanonicalBlockID(height)
}

// Fatal reports the error that halted the chain.
func (c *Chain) Fatal() <-chan error {
	return c.fatal
}

// halted returns ErrHalted once the chain hit a fatal error. Must be called
// with the lock held.
func (c *Chain) halted() error {
	if c.fatalErr != nil {
		return fmt.Errorf("%w: %w", ErrHalted, c.fatalErr)
	}
	return nil
}

// halt stops the chain. Must be called with the lock held.
func (c *Chain) halt(err error) error {
	if c.fatalErr == nil {
		c.fatalErr = err
		c.log.Fatal("chain halted",
			zap.Error(err),
		)
		select {
		case c.fatal <- err:
		default:
		}
	}
	return c.halted()
}

func (c *Chain) updateStateMetrics(state forkchoice.ChainState) {
	c.metrics.headHeight.Set(float64(state.Head.Height))
	c.metrics.headerHeadHeight.Set(float64(state.HeaderHead.Height))
	c.metrics.finalHeight.Set(float64(state.FinalHead.Height))
	c.metrics.processing.Set(float64(len(c.processing)))
	c.metrics.pendingExecution.Set(float64(len(c.pendingExecution)))
}
