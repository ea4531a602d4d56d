// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/ava-labs/shardchain/chain/chunks"
)

func TestTraced(t *testing.T) {
	require := require.New(t)

	c := newTestChain(t, testConfig())
	u := Traced(c.chain, trace.NewNoopTracerProvider().Tracer(""))

	blk := c.build(c.builder.Genesis)
	blkChunks := c.builder.Chunks(blk)

	ctx := context.Background()
	outcome, err := u.ProcessBlock(ctx, blk)
	require.NoError(err)
	require.Equal(Outcome{Status: PendingChunks}, outcome)

	require.NoError(u.ProcessChunk(ctx, blkChunks[0]))
	parts, err := blkChunks[1].Parts(c.builder.NodeID(0))
	require.NoError(err)
	for _, part := range parts {
		require.NoError(u.ProcessChunkPart(ctx, part))
	}
	require.Equal(blk.ID(), u.CurrentHead().ID())

	// Every part was consumed by the assembled chunk.
	err = u.ProcessChunkPart(ctx, parts[0])
	require.ErrorIs(err, chunks.ErrUnknownChunk)

	require.NoError(u.Sweep(ctx))
	outcome, err = u.ProcessBlock(ctx, blk)
	require.NoError(err)
	require.Equal(Outcome{Status: Accepted, NewHead: true}, outcome)
}
