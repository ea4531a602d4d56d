// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/ids"
)

// ChunkResult is the outcome of applying one chunk to its shard.
type ChunkResult struct {
	StateRoot ids.ID
	// Outcomes holds one opaque outcome per transaction.
	Outcomes [][]byte
}

// VM executes chunk bodies against shard state.
//
// ApplyChunk must be deterministic. Errors wrapping ErrInvalidTransition
// mean the chunk can never be applied; any other error is treated as
// temporary.
type VM interface {
	ApplyChunk(ctx context.Context, shardID uint32, priorStateRoot ids.ID, body *block.Body) (*ChunkResult, error)
}
