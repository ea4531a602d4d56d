// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executor applies the chunks of a block to the state left by its
// parent.
//
// Results are keyed by the prior state root and the chunks applied on top of
// it, and are persisted as soon as they are computed. Applying the same input
// twice, including across restarts, returns the stored result without calling
// the VM again.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/store"
	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/hashing"
	"github.com/ava-labs/shardchain/utils/logging"
)

var (
	// ErrInvalidTransition is returned when the chunks can never be applied
	// to the prior state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnavailable is returned when execution failed for a reason that may
	// not persist.
	ErrUnavailable = errors.New("execution unavailable")
	// ErrUnknownState is returned when the prior state root was never
	// recorded.
	ErrUnknownState = errors.New("unknown prior state")
)

// Result is the state reached by applying a block's chunks.
type Result struct {
	StateRoot  ids.ID
	ShardRoots []ids.ID
	// Outcomes holds the per transaction outcomes of every chunk, indexed by
	// shard.
	Outcomes [][][]byte
}

// ResultKey identifies an application of [chunkIDs] on top of [priorStateRoot].
func ResultKey(priorStateRoot ids.ID, chunkIDs []ids.ID) ids.ID {
	bufs := make([][]byte, 0, len(chunkIDs)+1)
	bufs = append(bufs, priorStateRoot[:])
	for _, chunkID := range chunkIDs {
		chunkID := chunkID
		bufs = append(bufs, chunkID[:])
	}
	return hashing.ComputeHash256Ranges(bufs...)
}

type Runner struct {
	vm      VM
	store   *store.Store
	log     logging.Logger
	metrics *metrics
}

func New(
	vm VM,
	s *store.Store,
	log logging.Logger,
	registerer prometheus.Registerer,
) (*Runner, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	return &Runner{
		vm:      vm,
		store:   s,
		log:     log,
		metrics: m,
	}, nil
}

// Apply executes [chunks], ordered by shard, on top of [priorStateRoot] for a
// block at [height]. Every chunk is handed to the VM at most once per call. A
// failure that may not persist is reported as ErrUnavailable and it is up to
// the caller to try again later.
//
// Callers must serialize calls to Apply with any other writes to the store.
func (r *Runner) Apply(ctx context.Context, height uint64, priorStateRoot ids.ID, chunks []*block.Chunk) (*Result, error) {
	chunkIDs := make([]ids.ID, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID()
	}
	key := ResultKey(priorStateRoot, chunkIDs)

	result, err := r.cachedResult(height, key)
	if err != nil {
		return nil, err
	}
	if result != nil {
		r.metrics.cached.Inc()
		return result, nil
	}

	shardRoots, err := r.store.GetStateRoots(priorStateRoot)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownState, priorStateRoot)
	}
	if err != nil {
		return nil, err
	}
	if len(chunks) != len(shardRoots) {
		return nil, fmt.Errorf("%w: %d chunks for %d shards",
			ErrInvalidTransition,
			len(chunks),
			len(shardRoots),
		)
	}

	for i, chunk := range chunks {
		if err := verifyPosition(i, chunkIDs[i], &chunk.Header, shardRoots[i]); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result = &Result{
		ShardRoots: make([]ids.ID, len(chunks)),
		Outcomes:   make([][][]byte, len(chunks)),
	}
	for i, chunk := range chunks {
		chunkResult, err := r.applyChunk(ctx, chunk, shardRoots[i])
		if err != nil {
			return nil, err
		}
		result.ShardRoots[i] = chunkResult.StateRoot
		result.Outcomes[i] = chunkResult.Outcomes
	}
	result.StateRoot = block.StateRoot(result.ShardRoots)

	if err := r.persist(height, key, result); err != nil {
		return nil, err
	}
	r.metrics.applied.Inc()
	r.metrics.applyLatency.Observe(time.Since(start).Seconds())
	r.log.Debug("applied chunks",
		zap.Uint64("height", height),
		zap.Stringer("priorStateRoot", priorStateRoot),
		zap.Stringer("stateRoot", result.StateRoot),
	)
	return result, nil
}

// verifyPosition checks that [header] is the chunk of shard [i] and extends
// the shard's current root.
func verifyPosition(i int, chunkID ids.ID, header *block.ChunkHeader, shardRoot ids.ID) error {
	if header.ShardID != uint32(i) {
		return fmt.Errorf("%w: chunk %s at position %d belongs to shard %d",
			ErrInvalidTransition,
			chunkID,
			i,
			header.ShardID,
		)
	}
	if header.PrevStateRoot != shardRoot {
		return fmt.Errorf("%w: chunk %s expects shard %d at %s but it is at %s",
			ErrInvalidTransition,
			chunkID,
			i,
			header.PrevStateRoot,
			shardRoot,
		)
	}
	return nil
}

func (r *Runner) applyChunk(ctx context.Context, chunk *block.Chunk, priorStateRoot ids.ID) (*ChunkResult, error) {
	r.metrics.vmCalls.Inc()
	result, err := r.vm.ApplyChunk(ctx, chunk.Header.ShardID, priorStateRoot, &chunk.Body)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, ErrInvalidTransition):
		return nil, err
	}

	r.metrics.vmFailures.Inc()
	r.log.Debug("chunk execution failed",
		zap.Uint32("shardID", chunk.Header.ShardID),
		zap.Stringer("priorStateRoot", priorStateRoot),
		zap.Error(err),
	)
	return nil, fmt.Errorf("%w: shard %d: %w", ErrUnavailable, chunk.Header.ShardID, err)
}

func (r *Runner) cachedResult(height uint64, key ids.ID) (*Result, error) {
	bytes, err := r.store.GetApplyResult(height, key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	result := &Result{}
	if err := rlp.DecodeBytes(bytes, result); err != nil {
		return nil, fmt.Errorf("couldn't parse result %s at height %d: %w", key, height, err)
	}
	return result, nil
}

// persist records the result and the shard roots behind its state root so
// that children can be applied on top of it.
func (r *Runner) persist(height uint64, key ids.ID, result *Result) error {
	bytes, err := rlp.EncodeToBytes(result)
	if err != nil {
		return err
	}
	update := r.store.NewUpdate()
	if err := update.PutApplyResult(height, key, bytes); err != nil {
		update.Abort()
		return err
	}
	if err := update.PutStateRoots(result.StateRoot, result.ShardRoots); err != nil {
		update.Abort()
		return err
	}
	return update.Commit()
}
