// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/executor"
	"github.com/ava-labs/shardchain/chain/forkchoice"
	"github.com/ava-labs/shardchain/chain/job"
	"github.com/ava-labs/shardchain/chain/store"
	"github.com/ava-labs/shardchain/chain/validation"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/set"
)

var _ job.Job[depKey] = (*applyJob)(nil)

// ProcessBlock submits [blk] and returns the verdict on it. Submitting a
// block again returns the verdict already reached without validating it a
// second time.
//
// Orphans that were waiting on [blk] are processed before returning.
func (c *Chain) ProcessBlock(ctx context.Context, blk *block.Block) (Outcome, error) {
	outcome, released, err := c.processBlock(ctx, blk)
	for len(released) > 0 {
		child := released[0]
		released = released[1:]

		_, more, err := c.processBlock(ctx, child)
		if errors.Is(err, ErrHalted) {
			return outcome, err
		}
		if err != nil {
			c.log.Debug("failed to process released orphan",
				zap.Stringer("blkID", child.ID()),
				zap.Error(err),
			)
			continue
		}
		released = append(released, more...)
	}
	return outcome, err
}

// processBlock returns the orphans released by admitting [blk].
func (c *Chain) processBlock(ctx context.Context, blk *block.Block) (Outcome, []*block.Block, error) {
	blkID := blk.ID()
	parentID := blk.Parent()

	c.lock.Lock()
	if err := c.halted(); err != nil {
		c.lock.Unlock()
		return Outcome{}, nil, err
	}
	outcome, known, err := c.knownOutcome(blkID)
	if err != nil || known {
		c.lock.Unlock()
		return outcome, nil, err
	}
	if blk.Height() <= c.engine.State().FinalHead.Height {
		outcome, err := c.rejectBelowFinality(ctx, blk)
		c.lock.Unlock()
		return outcome, nil, err
	}
	parent, parentRejected, err := c.parentHeader(parentID)
	if err != nil {
		c.lock.Unlock()
		return Outcome{}, nil, err
	}
	if parentRejected {
		outcome, err := c.reject(ctx, blk, fmt.Errorf("%w: %s", ErrInvalidAncestor, parentID))
		c.lock.Unlock()
		return outcome, nil, err
	}
	c.lock.Unlock()

	validationErr := c.validator.Validate(ctx, blk, parent)

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.halted(); err != nil {
		return Outcome{}, nil, err
	}
	// The block may have been submitted concurrently.
	outcome, known, err = c.knownOutcome(blkID)
	if err != nil || known {
		return outcome, nil, err
	}
	if validationErr == nil {
		// The parent may have been rejected or pruned while the block was
		// validated.
		parent, parentRejected, err := c.parentHeader(parentID)
		switch {
		case err != nil:
			return Outcome{}, nil, err
		case parentRejected:
			outcome, err := c.reject(ctx, blk, fmt.Errorf("%w: %s", ErrInvalidAncestor, parentID))
			return outcome, nil, err
		case parent == nil:
			return c.orphan(ctx, blk)
		}
	}

	switch {
	case errors.Is(validationErr, validation.ErrUnknownParent):
		return c.orphan(ctx, blk)
	case errors.Is(validationErr, block.ErrChunkRootMismatch), errors.Is(validationErr, block.ErrEndorsementRootMismatch):
		// The header may be valid with another body, so the verdict is not
		// recorded against its id.
		c.log.Debug("block body does not match header",
			zap.Stringer("blkID", blkID),
			zap.Error(validationErr),
		)
		return Outcome{
			Status: Invalid,
			Reason: validationErr.Error(),
		}, nil, nil
	case errors.Is(validationErr, validation.ErrInvalid):
		outcome, err := c.reject(ctx, blk, validationErr)
		return outcome, nil, err
	case validationErr != nil:
		return Outcome{}, nil, validationErr
	}
	return c.admit(ctx, blk)
}

// knownOutcome returns the verdict already reached on [blkID], if any.
func (c *Chain) knownOutcome(blkID ids.ID) (Outcome, bool, error) {
	if _, ok := c.processing[blkID]; ok {
		if _, ok := c.pendingExecution[blkID]; ok {
			return Outcome{Status: PendingExecution}, true, nil
		}
		return Outcome{Status: PendingChunks}, true, nil
	}
	if c.orphans.Has(blkID) {
		return Outcome{Status: Orphaned}, true, nil
	}

	status, err := c.store.GetStatus(blkID)
	if err != nil {
		return Outcome{}, false, err
	}
	switch status.State {
	case store.Applied:
		return Outcome{
			Status:  Accepted,
			NewHead: status.HeadMoved,
		}, true, nil
	case store.Rejected:
		return Outcome{
			Status: Invalid,
			Reason: status.Reason,
		}, true, nil
	default:
		return Outcome{}, false, nil
	}
}

// parentHeader returns the header of [parentID] if it was validated, or
// whether it was rejected.
func (c *Chain) parentHeader(parentID ids.ID) (*block.Header, bool, error) {
	if parent, ok := c.processing[parentID]; ok {
		return &parent.Header, false, nil
	}
	status, err := c.store.GetStatus(parentID)
	if err != nil {
		return nil, false, err
	}
	switch status.State {
	case store.Applied:
		parent, err := c.store.GetBlock(parentID)
		if err != nil {
			return nil, false, err
		}
		return &parent.Header, false, nil
	case store.Rejected:
		return nil, true, nil
	default:
		return nil, false, nil
	}
}

func (c *Chain) orphan(ctx context.Context, blk *block.Block) (Outcome, []*block.Block, error) {
	blkID := blk.ID()
	parentID := blk.Parent()
	if err := c.orphans.Add(blk); err != nil {
		return Outcome{}, nil, err
	}
	c.metrics.orphaned.Inc()
	c.log.Debug("orphaned block",
		zap.Stringer("blkID", blkID),
		zap.Uint64("height", blk.Height()),
		zap.Stringer("parentID", parentID),
	)

	// The parent may have been admitted while the block was validated.
	parent, parentRejected, err := c.parentHeader(parentID)
	if err != nil {
		return Outcome{}, nil, err
	}
	if parent != nil || parentRejected {
		return Outcome{Status: Orphaned}, c.orphans.Take(parentID), nil
	}

	c.requestMissingAncestors(ctx)
	return Outcome{Status: Orphaned}, nil, nil
}

// requestMissingAncestors asks the network for the blocks orphans wait on.
func (c *Chain) requestMissingAncestors(ctx context.Context) {
	for _, blkID := range c.orphans.PendingRequests() {
		if err := c.sender.RequestBlock(ctx, blkID); err != nil {
			c.log.Debug("failed to request block",
				zap.Stringer("blkID", blkID),
				zap.Error(err),
			)
			continue
		}
		c.orphans.MarkRequested(blkID)
	}
}

// admit schedules the application of a validated block. It returns the
// orphans that were waiting on it.
func (c *Chain) admit(ctx context.Context, blk *block.Block) (Outcome, []*block.Block, error) {
	blkID := blk.ID()
	c.processing[blkID] = blk
	if err := c.observeHeader(&blk.Header); err != nil {
		return Outcome{}, nil, err
	}

	var deps []depKey
	if _, ok := c.processing[blk.Parent()]; ok {
		deps = append(deps, blockDep(blk.Parent()))
	}
	for i, chunkID := range blk.ChunkIDs() {
		have, err := c.claimChunk(chunkID)
		if err != nil {
			return Outcome{}, nil, err
		}
		if have {
			continue
		}
		deps = append(deps, chunkDep(chunkID))
		if _, ok := c.waitingChunks[chunkID]; ok {
			continue
		}
		header := blk.Chunks[i]
		c.waitingChunks[chunkID] = header
		if _, err := c.assembler.RequestMissing(ctx, header); err != nil {
			return Outcome{}, nil, err
		}
	}

	j := &applyJob{
		chain: c,
		blk:   blk,
	}
	if err := c.scheduler.Schedule(ctx, j, deps...); err != nil {
		return Outcome{}, nil, err
	}
	c.updateStateMetrics(c.engine.State())

	released := c.orphans.Take(blkID)
	if j.done {
		return j.outcome, released, j.err
	}
	c.log.Debug("block waiting",
		zap.Stringer("blkID", blkID),
		zap.Uint64("height", blk.Height()),
		zap.Int("numDependencies", len(deps)),
	)
	return Outcome{Status: PendingChunks}, released, nil
}

// applyJob applies a block once its parent is applied and its chunks are
// present.
type applyJob struct {
	chain *Chain
	blk   *block.Block

	done    bool
	outcome Outcome
	err     error
}

// Execute only returns errors that halted the chain. Other failures are
// recorded on the job.
func (j *applyJob) Execute(ctx context.Context, _ []depKey, abandoned []depKey) error {
	j.done = true
	c := j.chain
	if _, ok := c.processing[j.blk.ID()]; !ok {
		// Rejected while waiting.
		j.outcome, _, j.err = c.knownOutcome(j.blk.ID())
		return nil
	}

	if len(abandoned) > 0 {
		reason := fmt.Errorf("%w: %s", forkchoice.ErrForkBelowFinality, abandoned[0].id)
		if !abandoned[0].chunk {
			reason = fmt.Errorf("%w: %s", ErrInvalidAncestor, abandoned[0].id)
		}
		j.outcome, j.err = c.reject(ctx, j.blk, reason)
	} else {
		j.outcome, j.err = c.apply(ctx, j.blk)
	}
	if errors.Is(j.err, ErrHalted) {
		return j.err
	}
	return nil
}

// apply executes [blk] and hands it to fork choice. The parent of [blk] must
// be applied and its chunks present.
func (c *Chain) apply(ctx context.Context, blk *block.Block) (Outcome, error) {
	blkID := blk.ID()
	if err := c.engine.CheckFork(c.store, &blk.Header); err != nil {
		if errors.Is(err, forkchoice.ErrForkBelowFinality) {
			return c.reject(ctx, blk, err)
		}
		return c.deferExecution(blk, err), nil
	}

	chunkIDs := blk.ChunkIDs()
	chunks := make([]*block.Chunk, len(chunkIDs))
	for i, chunkID := range chunkIDs {
		chunk, err := c.getChunk(chunkID)
		if err != nil {
			return c.deferExecution(blk, fmt.Errorf("couldn't get chunk %s: %w", chunkID, err)), nil
		}
		chunks[i] = chunk
	}
	parent, err := c.store.GetBlock(blk.Parent())
	if err != nil {
		return c.deferExecution(blk, fmt.Errorf("couldn't get parent: %w", err)), nil
	}

	result, err := c.runner.Apply(ctx, blk.Height(), parent.Header.StateRoot, chunks)
	switch {
	case errors.Is(err, executor.ErrInvalidTransition):
		return c.reject(ctx, blk, err)
	case err != nil:
		return c.deferExecution(blk, err), nil
	}
	if result.StateRoot != blk.Header.StateRoot {
		return c.reject(ctx, blk, fmt.Errorf("%w: executed to %s but header claims %s",
			ErrStateRootMismatch,
			result.StateRoot,
			blk.Header.StateRoot,
		))
	}

	u := c.store.NewUpdate()
	tr, err := c.writeApplied(ctx, u, blk, chunks)
	if err != nil {
		u.Abort()
		if errors.Is(err, forkchoice.ErrReorgBelowFinality) {
			return Outcome{}, c.halt(err)
		}
		return c.deferExecution(blk, err), nil
	}
	if err := u.Commit(); err != nil {
		return Outcome{}, c.halt(err)
	}
	c.engine.Commit(tr)

	delete(c.processing, blkID)
	delete(c.pendingExecution, blkID)
	for _, chunkID := range chunkIDs {
		delete(c.readyChunks, chunkID)
	}
	c.metrics.accepted.Inc()
	if len(tr.Reorged) > 0 {
		c.metrics.reorgs.Inc()
		c.metrics.reorgDepth.Observe(float64(len(tr.Reorged)))
	}
	c.updateStateMetrics(tr.Next)
	c.log.Debug("applied block",
		zap.Stringer("blkID", blkID),
		zap.Uint64("height", blk.Height()),
		zap.Bool("newHead", tr.HeadMoved()),
	)

	if tr.FinalMoved() {
		if err := c.onFinalized(ctx, tr.Next.FinalHead.Height); err != nil {
			return Outcome{}, err
		}
	}
	if err := c.scheduler.Fulfill(ctx, blockDep(blkID)); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Status:  Accepted,
		NewHead: tr.HeadMoved(),
	}, nil
}

// deferExecution leaves [blk] for a later sweep to apply. The delay before
// the next attempt grows with every failed one.
func (c *Chain) deferExecution(blk *block.Block, err error) Outcome {
	blkID := blk.ID()
	retry, ok := c.pendingExecution[blkID]
	if !ok {
		retry = &executionRetry{}
		c.pendingExecution[blkID] = retry
	}
	retry.attempts++
	retry.next = c.clock.Time().Add(c.config.Executor.Backoff().Delay(retry.attempts))

	c.log.Warn("block execution deferred",
		zap.Stringer("blkID", blkID),
		zap.Uint64("height", blk.Height()),
		zap.Int("attempts", retry.attempts),
		zap.Time("retryAt", retry.next),
		zap.Error(err),
	)
	c.metrics.pendingExecution.Set(float64(len(c.pendingExecution)))
	return Outcome{Status: PendingExecution}
}

func (c *Chain) writeApplied(
	ctx context.Context,
	u *store.Update,
	blk *block.Block,
	chunks []*block.Chunk,
) (*forkchoice.Transition, error) {
	if err := u.PutBlock(blk); err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		if err := u.PutChunk(chunk); err != nil {
			return nil, err
		}
	}
	tr, err := c.engine.Apply(ctx, u, blk)
	if err != nil {
		return nil, err
	}
	return tr, u.SetStatus(blk.ID(), store.Status{
		State:     store.Applied,
		HeadMoved: tr.HeadMoved(),
	})
}

// reject records [reason] against [blk] and rejects every known descendant.
func (c *Chain) reject(ctx context.Context, blk *block.Block, reason error) (Outcome, error) {
	blkID := blk.ID()
	u := c.store.NewUpdate()
	if err := u.Reject(blkID, blk.Height(), reason.Error()); err != nil {
		u.Abort()
		return Outcome{}, err
	}
	tr, err := c.engine.DropHeader(u, blkID)
	if err != nil {
		u.Abort()
		return Outcome{}, err
	}
	if err := u.Commit(); err != nil {
		return Outcome{}, c.halt(err)
	}
	c.engine.Commit(tr)

	delete(c.processing, blkID)
	delete(c.pendingExecution, blkID)
	c.metrics.rejected.Inc()
	c.updateStateMetrics(tr.Next)
	c.log.Debug("rejected block",
		zap.Stringer("blkID", blkID),
		zap.Uint64("height", blk.Height()),
		zap.Error(reason),
	)

	if err := c.releaseChunks(ctx, blk); err != nil {
		return Outcome{}, err
	}
	if err := c.scheduler.Abandon(ctx, blockDep(blkID)); err != nil {
		return Outcome{}, err
	}
	ancestorReason := fmt.Errorf("%w: %s", ErrInvalidAncestor, blkID)
	for _, child := range c.orphans.Take(blkID) {
		if _, err := c.reject(ctx, child, ancestorReason); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{
		Status: Invalid,
		Reason: reason.Error(),
	}, nil
}

// rejectBelowFinality answers a block that can no longer join the chain.
// The verdict follows from its height alone, so it is not recorded and
// nothing is left behind below the GC tail.
func (c *Chain) rejectBelowFinality(ctx context.Context, blk *block.Block) (Outcome, error) {
	blkID := blk.ID()
	reason := fmt.Errorf("%w: height %d", forkchoice.ErrForkBelowFinality, blk.Height())
	c.metrics.rejected.Inc()
	c.log.Debug("rejected block below finality",
		zap.Stringer("blkID", blkID),
		zap.Uint64("height", blk.Height()),
	)

	ancestorReason := fmt.Errorf("%w: %s", ErrInvalidAncestor, blkID)
	for _, child := range c.orphans.Take(blkID) {
		if _, err := c.reject(ctx, child, ancestorReason); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{
		Status: Invalid,
		Reason: reason.Error(),
	}, nil
}

// releaseChunks drops the chunks of a rejected block that no other
// processing block uses, and stops assembling the missing ones.
func (c *Chain) releaseChunks(ctx context.Context, blk *block.Block) error {
	var used set.Set[ids.ID]
	for _, other := range c.processing {
		if other.Height() == blk.Height() {
			used.Add(other.ChunkIDs()...)
		}
	}
	for _, chunkID := range blk.ChunkIDs() {
		if used.Contains(chunkID) {
			continue
		}
		delete(c.readyChunks, chunkID)
		if _, ok := c.waitingChunks[chunkID]; !ok {
			continue
		}
		c.assembler.Cancel(chunkID)
		delete(c.waitingChunks, chunkID)
		if err := c.scheduler.Abandon(ctx, chunkDep(chunkID)); err != nil {
			return err
		}
	}
	return nil
}

// onFinalized drops everything that can no longer join the canonical chain
// once the final block reached [height].
func (c *Chain) onFinalized(ctx context.Context, height uint64) error {
	for _, blkID := range c.orphans.RemoveAtOrBelow(height) {
		c.log.Debug("dropped orphan below finality",
			zap.Stringer("blkID", blkID),
		)
	}

	blkIDs := maps.Keys(c.processing)
	slices.SortFunc(blkIDs, ids.ID.Compare)
	for _, blkID := range blkIDs {
		blk, ok := c.processing[blkID]
		if !ok || blk.Height() > height {
			continue
		}
		reason := fmt.Errorf("%w: height %d is final", forkchoice.ErrForkBelowFinality, height)
		if _, err := c.reject(ctx, blk, reason); err != nil {
			return err
		}
	}

	chunkIDs := maps.Keys(c.waitingChunks)
	slices.SortFunc(chunkIDs, ids.ID.Compare)
	for _, chunkID := range chunkIDs {
		header, ok := c.waitingChunks[chunkID]
		if !ok || header.Height > height {
			continue
		}
		c.assembler.Cancel(chunkID)
		delete(c.waitingChunks, chunkID)
		if err := c.scheduler.Abandon(ctx, chunkDep(chunkID)); err != nil {
			return err
		}
	}
	for chunkID, chunk := range c.readyChunks {
		if chunk.Header.Height <= height {
			delete(c.readyChunks, chunkID)
		}
	}
	return nil
}

// observeHeader moves the header head to a newly validated header if it is
// preferred.
func (c *Chain) observeHeader(header *block.Header) error {
	u := c.store.NewUpdate()
	tr, err := c.engine.ObserveHeader(u, header)
	if err != nil {
		u.Abort()
		return err
	}
	if tr.Next.HeaderHead == tr.Prev.HeaderHead {
		u.Abort()
		return nil
	}
	if err := u.Commit(); err != nil {
		return c.halt(err)
	}
	c.engine.Commit(tr)
	c.metrics.headerHeadHeight.Set(float64(header.Height))
	return nil
}

func (c *Chain) haveChunk(chunkID ids.ID) (bool, error) {
	if _, ok := c.readyChunks[chunkID]; ok {
		return true, nil
	}
	if _, ok := c.unclaimedChunks.Get(chunkID); ok {
		return true, nil
	}
	return c.store.HasChunk(chunkID)
}

// claimChunk reports whether [chunkID] is present, keeping it until the block
// now using it is applied.
func (c *Chain) claimChunk(chunkID ids.ID) (bool, error) {
	if chunk, ok := c.unclaimedChunks.Get(chunkID); ok {
		c.unclaimedChunks.Evict(chunkID)
		c.readyChunks[chunkID] = chunk
		return true, nil
	}
	return c.haveChunk(chunkID)
}

func (c *Chain) getChunk(chunkID ids.ID) (*block.Chunk, error) {
	if chunk, ok := c.readyChunks[chunkID]; ok {
		return chunk, nil
	}
	return c.store.GetChunk(chunkID)
}
