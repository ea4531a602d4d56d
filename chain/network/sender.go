// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package network is the chain's outbound view of the peer-to-peer layer.
package network

import (
	"context"

	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/set"
)

// PartRequest asks the network for one part of a chunk.
type PartRequest struct {
	ChunkID ids.ID
	ShardID uint32
	Height  uint64
	Index   uint32
	// Exclude are peers that served corrupt data for this chunk and must not
	// be asked again.
	Exclude set.Set[ids.NodeID]
}

// Sender issues requests to peers. Responses are delivered back to the chain
// asynchronously through ProcessBlock and ProcessChunkPart.
//
// The chain issues requests while holding its lock, so implementations must
// queue them rather than wait on peers.
type Sender interface {
	RequestBlock(ctx context.Context, blkID ids.ID) error
	RequestChunkPart(ctx context.Context, request PartRequest) error
}
