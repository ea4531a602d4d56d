// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"errors"
	"slices"

	"github.com/lightningnetwork/lnd/ticker"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/ava-labs/shardchain/chain/store"
	"github.com/ava-labs/shardchain/ids"
)

// Run sweeps every SweepInterval until [ctx] is done or the chain halts.
func (c *Chain) Run(ctx context.Context) error {
	t := c.newTicker()
	t.Resume()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.Ticks():
		}

		err := c.Sweep(ctx)
		if errors.Is(err, ErrHalted) {
			return err
		}
		if err != nil {
			c.log.Warn("sweep failed",
				zap.Error(err),
			)
		}
	}
}

func (c *Chain) newTicker() ticker.Ticker {
	if c.ticker != nil {
		return c.ticker
	}
	return ticker.New(c.config.SweepInterval)
}

// Sweep performs the chain's periodic work:
//
//   - expired orphans are dropped
//   - missing ancestors are requested again
//   - chunk parts are requested again, and timed out chunks from scratch
//   - blocks the VM failed to execute are retried once their backoff elapsed
//   - forks far enough behind finality are pruned
func (c *Chain) Sweep(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.halted(); err != nil {
		return err
	}

	for _, blkID := range c.orphans.Expire() {
		c.log.Debug("orphan expired",
			zap.Stringer("blkID", blkID),
		)
	}
	c.requestMissingAncestors(ctx)

	for _, chunkID := range c.assembler.Retry(ctx) {
		header, ok := c.waitingChunks[chunkID]
		if !ok {
			continue
		}
		c.log.Debug("requesting timed out chunk again",
			zap.Stringer("chunkID", chunkID),
		)
		if _, err := c.assembler.RequestMissing(ctx, header); err != nil {
			return err
		}
	}

	now := c.clock.Time()
	blkIDs := maps.Keys(c.pendingExecution)
	slices.SortFunc(blkIDs, ids.ID.Compare)
	for _, blkID := range blkIDs {
		retry, ok := c.pendingExecution[blkID]
		if !ok || retry.next.After(now) {
			continue
		}
		blk, ok := c.processing[blkID]
		if !ok {
			delete(c.pendingExecution, blkID)
			continue
		}
		if _, err := c.apply(ctx, blk); err != nil {
			return err
		}
	}
	c.metrics.pendingExecution.Set(float64(len(c.pendingExecution)))

	return c.collectGarbage()
}

// collectGarbage prunes the forks of up to GCBatchSize heights that are more
// than GCHorizon behind the final block.
func (c *Chain) collectGarbage() error {
	result, err := c.store.CollectGarbage(c.config.GCHorizon, c.config.GCBatchSize)
	if errors.Is(err, store.ErrCommitFailed) {
		return c.halt(err)
	}
	if err != nil {
		return err
	}
	if result.To == result.From {
		return nil
	}

	c.metrics.pruned.Add(float64(len(result.Pruned)))
	c.log.Debug("pruned forks",
		zap.Uint64("from", result.From),
		zap.Uint64("to", result.To),
		zap.Int("numPruned", len(result.Pruned)),
	)
	return nil
}
