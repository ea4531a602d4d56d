// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/chain/chaintest"
	"github.com/ava-labs/shardchain/ids"
)

func TestSweepRetriesExecution(t *testing.T) {
	require := require.New(t)

	c := newTestChain(t, testConfig())
	c.vm.OnApply = func(uint32, ids.ID) error {
		return errTest
	}
	blk := c.build(c.builder.Genesis)
	child := c.build(blk)
	c.deliverChunks(blk, child)

	require.Equal(Outcome{Status: PendingExecution}, c.process(blk))
	require.Equal(Outcome{Status: PendingChunks}, c.process(child))
	require.Equal(Outcome{Status: PendingExecution}, c.process(blk))

	// Still unavailable.
	c.advance(c.config.Executor.MaxBackoff)
	require.NoError(c.chain.Sweep(context.Background()))
	require.Equal(c.builder.Genesis.ID(), c.chain.CurrentHead().ID())

	c.vm.OnApply = nil
	c.advance(c.config.Executor.MaxBackoff)
	require.NoError(c.chain.Sweep(context.Background()))
	require.Equal(child.ID(), c.chain.CurrentHead().ID())
	require.Equal(Outcome{Status: Accepted, NewHead: true}, c.process(blk))
	require.Equal(Outcome{Status: Accepted, NewHead: true}, c.process(child))
}

func TestSweepWaitsForExecutionBackoff(t *testing.T) {
	require := require.New(t)

	config := testConfig()
	config.Executor.InitialBackoff = time.Second
	config.Executor.MaxBackoff = 4 * time.Second
	c := newTestChain(t, config)
	c.vm.OnApply = func(uint32, ids.ID) error {
		return errTest
	}
	blk := c.build(c.builder.Genesis)
	c.deliverChunks(blk)
	require.Equal(Outcome{Status: PendingExecution}, c.process(blk))
	calls := c.vm.Calls()

	// Not due yet.
	c.advance(time.Second - time.Millisecond)
	require.NoError(c.chain.Sweep(context.Background()))
	require.Equal(calls, c.vm.Calls())

	// The second attempt fails too and doubles the delay.
	c.advance(time.Millisecond)
	require.NoError(c.chain.Sweep(context.Background()))
	require.Greater(c.vm.Calls(), calls)
	calls = c.vm.Calls()

	c.vm.OnApply = nil
	c.advance(time.Second)
	require.NoError(c.chain.Sweep(context.Background()))
	require.Equal(calls, c.vm.Calls())
	require.Equal(Outcome{Status: PendingExecution}, c.process(blk))

	c.advance(time.Second)
	require.NoError(c.chain.Sweep(context.Background()))
	require.Equal(blk.ID(), c.chain.CurrentHead().ID())
	require.Equal(Outcome{Status: Accepted, NewHead: true}, c.process(blk))
}

func TestSweepRetriesParts(t *testing.T) {
	require := require.New(t)

	c := newTestChain(t, testConfig())
	blk := c.build(c.builder.Genesis)
	require.Equal(Outcome{Status: PendingChunks}, c.process(blk))
	require.Len(c.sender.TakePartRequests(), testShards*chaintest.NumParts)

	c.clock.Set(c.clock.Time().Add(c.config.Chunks.InitialBackoff))
	require.NoError(c.chain.Sweep(context.Background()))
	require.Len(c.sender.TakePartRequests(), testShards*chaintest.NumParts)

	// Timed out assemblies are started over.
	c.clock.Set(c.clock.Time().Add(c.config.Chunks.Timeout))
	require.NoError(c.chain.Sweep(context.Background()))
	require.Len(c.sender.TakePartRequests(), testShards*chaintest.NumParts)

	c.deliverParts(blk, c.builder.NodeID(3))
	require.Equal(blk.ID(), c.chain.CurrentHead().ID())
}

func TestSweepExpiresOrphans(t *testing.T) {
	require := require.New(t)

	c := newTestChain(t, testConfig())
	blks := c.buildChain(c.builder.Genesis, 2)
	require.Equal(Outcome{Status: Orphaned}, c.process(blks[1]))
	require.Equal([]ids.ID{blks[0].ID()}, c.sender.TakeBlockRequests())

	c.clock.Set(c.clock.Time().Add(c.config.Orphans.TTL))
	require.NoError(c.chain.Sweep(context.Background()))
	require.Empty(c.sender.TakeBlockRequests())

	// The orphan is forgotten, so it is judged again.
	require.Equal(Outcome{Status: Orphaned}, c.process(blks[1]))
}

func TestRunSweepsOnTick(t *testing.T) {
	require := require.New(t)

	c := newTestChain(t, testConfig())
	c.vm.OnApply = func(uint32, ids.ID) error {
		return errTest
	}
	blk := c.build(c.builder.Genesis)
	c.deliverChunks(blk)
	require.Equal(Outcome{Status: PendingExecution}, c.process(blk))
	c.vm.OnApply = nil

	c.advance(c.config.Executor.MaxBackoff)
	force := ticker.NewForce(time.Hour)
	c.chain.ticker = force

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.chain.Run(ctx)
	}()

	force.Force <- time.Now()
	require.Eventually(func() bool {
		return c.chain.CurrentHead().ID() == blk.ID()
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(<-done)
}

func TestRunStopsWhenHalted(t *testing.T) {
	require := require.New(t)

	c := newTestChain(t, testConfig())
	blk := c.build(c.builder.Genesis)
	c.deliverChunks(blk)
	c.db.fail = true
	_, err := c.chain.ProcessBlock(context.Background(), blk)
	require.ErrorIs(err, ErrHalted)

	force := ticker.NewForce(time.Hour)
	c.chain.ticker = force

	done := make(chan error, 1)
	go func() {
		done <- c.chain.Run(context.Background())
	}()

	force.Force <- time.Now()
	err = <-done
	require.ErrorIs(err, ErrHalted)
}
