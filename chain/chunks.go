// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/chunks"
)

// ProcessChunkPart delivers a part of a chunk requested from the network.
// Parts that fail verification return chunks.ErrCorruptChunk and their source
// is not asked for the chunk again.
func (c *Chain) ProcessChunkPart(ctx context.Context, part *block.ChunkPart) error {
	c.lock.Lock()
	err := c.halted()
	c.lock.Unlock()
	if err != nil {
		return err
	}

	chunk, err := c.assembler.OnPartReceived(part)
	if err != nil {
		c.log.Debug("dropped chunk part",
			zap.Stringer("chunkID", part.ChunkID),
			zap.Uint32("index", part.Index),
			zap.Stringer("source", part.Source),
			zap.Error(err),
		)
		return err
	}
	if chunk == nil {
		return nil
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.halted(); err != nil {
		return err
	}
	return c.chunkArrived(ctx, chunk)
}

// ProcessChunk delivers a complete chunk, such as one produced locally.
func (c *Chain) ProcessChunk(ctx context.Context, chunk *block.Chunk) error {
	if numParts, maxParts := chunk.Header.NumParts, c.config.Params.MaxChunkParts; numParts > maxParts {
		return fmt.Errorf("%w: %s: %d parts exceeds %d", chunks.ErrCorruptChunk, chunk.ID(), numParts, maxParts)
	}
	if err := chunk.Verify(); err != nil {
		return fmt.Errorf("%w: %s: %w", chunks.ErrCorruptChunk, chunk.ID(), err)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.halted(); err != nil {
		return err
	}
	c.assembler.Cancel(chunk.ID())
	return c.chunkArrived(ctx, chunk)
}

// chunkArrived makes [chunk] available to the blocks waiting on it.
func (c *Chain) chunkArrived(ctx context.Context, chunk *block.Chunk) error {
	chunkID := chunk.ID()
	have, err := c.haveChunk(chunkID)
	if err != nil || have {
		return err
	}
	if chunk.Header.Height <= c.engine.State().FinalHead.Height {
		return nil
	}
	if _, ok := c.waitingChunks[chunkID]; !ok {
		c.unclaimedChunks.Put(chunkID, chunk)
		c.log.Debug("holding unclaimed chunk",
			zap.Stringer("chunkID", chunkID),
			zap.Uint32("shardID", chunk.Header.ShardID),
			zap.Uint64("height", chunk.Header.Height),
		)
		return nil
	}

	c.readyChunks[chunkID] = chunk
	delete(c.waitingChunks, chunkID)
	c.log.Debug("chunk arrived",
		zap.Stringer("chunkID", chunkID),
		zap.Uint32("shardID", chunk.Header.ShardID),
		zap.Uint64("height", chunk.Header.Height),
	)
	return c.scheduler.Fulfill(ctx, chunkDep(chunkID))
}
