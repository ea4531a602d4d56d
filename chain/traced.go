// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ava-labs/shardchain/chain/block"
)

var _ Updater = (*tracedUpdater)(nil)

type tracedUpdater struct {
	Updater
	tracer oteltrace.Tracer
}

// Traced records a span for every operation of [u] that processes input.
func Traced(u Updater, tracer oteltrace.Tracer) Updater {
	return &tracedUpdater{
		Updater: u,
		tracer:  tracer,
	}
}

func (t *tracedUpdater) ProcessBlock(ctx context.Context, blk *block.Block) (Outcome, error) {
	ctx, span := t.tracer.Start(ctx, "chain.processBlock", oteltrace.WithAttributes(
		attribute.Stringer("blkID", blk.ID()),
		attribute.Int64("height", int64(blk.Header.Height)),
		attribute.Int("numChunks", len(blk.Chunks)),
	))
	defer span.End()

	outcome, err := t.Updater.ProcessBlock(ctx, blk)
	span.SetAttributes(
		attribute.Stringer("status", outcome.Status),
		attribute.Bool("newHead", outcome.NewHead),
	)
	return outcome, err
}

func (t *tracedUpdater) ProcessChunkPart(ctx context.Context, part *block.ChunkPart) error {
	ctx, span := t.tracer.Start(ctx, "chain.processChunkPart", oteltrace.WithAttributes(
		attribute.Stringer("chunkID", part.ChunkID),
		attribute.Int64("index", int64(part.Index)),
		attribute.Stringer("source", part.Source),
	))
	defer span.End()

	return t.Updater.ProcessChunkPart(ctx, part)
}

func (t *tracedUpdater) ProcessChunk(ctx context.Context, chunk *block.Chunk) error {
	ctx, span := t.tracer.Start(ctx, "chain.processChunk", oteltrace.WithAttributes(
		attribute.Stringer("chunkID", chunk.ID()),
		attribute.Int64("shardID", int64(chunk.Header.ShardID)),
		attribute.Int64("height", int64(chunk.Header.Height)),
	))
	defer span.End()

	return t.Updater.ProcessChunk(ctx, chunk)
}

func (t *tracedUpdater) Sweep(ctx context.Context) error {
	ctx, span := t.tracer.Start(ctx, "chain.sweep")
	defer span.End()

	return t.Updater.Sweep(ctx)
}
