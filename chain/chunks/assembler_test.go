// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chunks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/network"
	"github.com/ava-labs/shardchain/chain/network/networkmock"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/logging"
	"github.com/ava-labs/shardchain/utils/timer/mockable"
)

var errSend = errors.New("send failed")

type testEnv struct {
	assembler *Assembler
	sender    *networkmock.Sender
	clock     *mockable.Clock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	sender := networkmock.NewSender(ctrl)
	clock := &mockable.Clock{}
	clock.Set(time.Unix(1_000_000, 0))

	a, err := New(
		Config{
			InitialBackoff: time.Second,
			MaxBackoff:     4 * time.Second,
			Timeout:        10 * time.Second,
		},
		sender,
		clock,
		logging.NoLog{},
		prometheus.NewRegistry(),
	)
	require.NoError(t, err)
	return &testEnv{
		assembler: a,
		sender:    sender,
		clock:     clock,
	}
}

// expectRequests expects [n] part requests and records them.
func (e *testEnv) expectRequests(n int) *[]network.PartRequest {
	var requests []network.PartRequest
	e.sender.EXPECT().RequestChunkPart(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, request network.PartRequest) error {
			requests = append(requests, request)
			return nil
		},
	).Times(n)
	return &requests
}

func newTestChunk(t *testing.T, numParts uint32) *block.Chunk {
	t.Helper()

	chunk, err := block.NewChunk(1, 3, ids.GenerateTestID(), 10, numParts, block.Body{
		Transactions: [][]byte{[]byte("first transaction"), []byte("second transaction")},
		Receipts:     [][]byte{[]byte("receipt")},
	})
	require.NoError(t, err)
	return chunk
}

func testParts(t *testing.T, chunk *block.Chunk) []*block.ChunkPart {
	t.Helper()

	parts, err := chunk.Parts(ids.GenerateTestNodeID())
	require.NoError(t, err)
	for _, part := range parts {
		part.Source = ids.GenerateTestNodeID()
	}
	return parts
}

func TestConfigVerify(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectedErr error
	}{
		{
			name:   "default",
			modify: func(*Config) {},
		},
		{
			name: "zero initial backoff",
			modify: func(c *Config) {
				c.InitialBackoff = 0
			},
			expectedErr: errZeroInitialBackoff,
		},
		{
			name: "max below initial",
			modify: func(c *Config) {
				c.MaxBackoff = c.InitialBackoff / 2
			},
			expectedErr: errBackoffOrder,
		},
		{
			name: "timeout below initial",
			modify: func(c *Config) {
				c.Timeout = c.InitialBackoff
			},
			expectedErr: errTimeoutBelowRetry,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := DefaultConfig()
			test.modify(&c)
			require.ErrorIs(t, c.Verify(), test.expectedErr)
		})
	}
}

func TestAssembleOutOfOrder(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	chunk := newTestChunk(t, 4)
	parts := testParts(t, chunk)

	requests := env.expectRequests(4)
	req, err := env.assembler.RequestMissing(context.Background(), chunk.Header)
	require.NoError(err)
	require.Equal(chunk.ID(), req.ChunkID())
	require.Len(*requests, 4)
	for i, r := range *requests {
		require.Equal(chunk.ID(), r.ChunkID)
		require.Equal(uint32(i), r.Index)
		require.Equal(chunk.Header.ShardID, r.ShardID)
		require.Equal(chunk.Header.Height, r.Height)
		require.Zero(r.Exclude.Len())
	}

	// Requesting again returns the same handle without sending anything.
	again, err := env.assembler.RequestMissing(context.Background(), chunk.Header)
	require.NoError(err)
	require.Same(req, again)

	for _, i := range []int{2, 0, 3} {
		got, err := env.assembler.OnPartReceived(parts[i])
		require.NoError(err)
		require.Nil(got)
	}
	// Duplicates are ignored.
	got, err := env.assembler.OnPartReceived(parts[0])
	require.NoError(err)
	require.Nil(got)

	got, err = env.assembler.OnPartReceived(parts[1])
	require.NoError(err)
	require.NotNil(got)
	require.Equal(chunk.ID(), got.ID())
	require.Equal(chunk.Body, got.Body)
	require.NoError(got.Verify())

	require.Zero(env.assembler.Len())
	require.False(env.assembler.Has(chunk.ID()))
	require.Equal(float64(1), testutil.ToFloat64(env.assembler.metrics.completed))
}

func TestCorruptPartExcludesSource(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	chunk := newTestChunk(t, 3)
	parts := testParts(t, chunk)

	env.expectRequests(3)
	_, err := env.assembler.RequestMissing(context.Background(), chunk.Header)
	require.NoError(err)

	bad := *parts[1]
	bad.Data = append([]byte{}, bad.Data...)
	bad.Data[0] ^= 0xff
	_, err = env.assembler.OnPartReceived(&bad)
	require.ErrorIs(err, ErrCorruptChunk)
	require.ErrorIs(err, block.ErrPartProof)
	require.True(env.assembler.Has(chunk.ID()))

	_, err = env.assembler.OnPartReceived(parts[0])
	require.NoError(err)

	env.clock.Advance(time.Second)
	requests := env.expectRequests(2)
	require.Empty(env.assembler.Retry(context.Background()))
	require.Len(*requests, 2)
	for _, r := range *requests {
		require.NotEqual(uint32(0), r.Index)
		require.True(r.Exclude.Contains(bad.Source))
	}

	// The honest copy of the part still completes the chunk.
	_, err = env.assembler.OnPartReceived(parts[1])
	require.NoError(err)
	got, err := env.assembler.OnPartReceived(parts[2])
	require.NoError(err)
	require.Equal(chunk.ID(), got.ID())
}

func TestCorruptBodyDiscardsParts(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	chunk := newTestChunk(t, 2)

	// The parts are consistent with the parts root but the header lies about
	// the body.
	chunk.Header.BodyRoot = ids.GenerateTestID()
	parts := testParts(t, chunk)

	env.expectRequests(2)
	_, err := env.assembler.RequestMissing(context.Background(), chunk.Header)
	require.NoError(err)

	_, err = env.assembler.OnPartReceived(parts[0])
	require.NoError(err)
	got, err := env.assembler.OnPartReceived(parts[1])
	require.ErrorIs(err, ErrCorruptChunk)
	require.ErrorIs(err, block.ErrBodyRootMismatch)
	require.Nil(got)
	require.True(env.assembler.Has(chunk.ID()))
	require.Equal(float64(1), testutil.ToFloat64(env.assembler.metrics.corruptBodies))

	// Every part is requested again, excluding both sources.
	requests := env.expectRequests(2)
	require.Empty(env.assembler.Retry(context.Background()))
	require.Len(*requests, 2)
	for _, r := range *requests {
		require.True(r.Exclude.Contains(parts[0].Source))
		require.True(r.Exclude.Contains(parts[1].Source))
	}
}

func TestRetryBackoffAndTimeout(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	chunk := newTestChunk(t, 2)
	parts := testParts(t, chunk)

	env.expectRequests(2)
	_, err := env.assembler.RequestMissing(context.Background(), chunk.Header)
	require.NoError(err)
	_, err = env.assembler.OnPartReceived(parts[0])
	require.NoError(err)

	steps := []struct {
		advance     time.Duration
		requests    int
		expectTimed bool
	}{
		{advance: 500 * time.Millisecond, requests: 0}, // t=0.5
		{advance: 500 * time.Millisecond, requests: 1}, // t=1, next at 3
		{advance: time.Second, requests: 0},            // t=2
		{advance: time.Second, requests: 1},            // t=3, next at 7
		{advance: 3 * time.Second, requests: 0},        // t=6
		{advance: time.Second, requests: 1},            // t=7, next at 11
		{advance: 4 * time.Second, expectTimed: true},  // t=11
	}
	for _, step := range steps {
		env.clock.Advance(step.advance)
		requests := env.expectRequests(step.requests)
		timedOut := env.assembler.Retry(context.Background())
		if step.expectTimed {
			require.Equal([]ids.ID{chunk.ID()}, timedOut)
		} else {
			require.Empty(timedOut)
		}
		for _, r := range *requests {
			require.Equal(uint32(1), r.Index)
		}
	}
	require.Zero(env.assembler.Len())

	_, err = env.assembler.OnPartReceived(parts[1])
	require.ErrorIs(err, ErrUnknownChunk)
}

func TestCancelDiscardsPartialData(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	chunk := newTestChunk(t, 2)
	parts := testParts(t, chunk)

	env.expectRequests(2)
	req, err := env.assembler.RequestMissing(context.Background(), chunk.Header)
	require.NoError(err)
	_, err = env.assembler.OnPartReceived(parts[0])
	require.NoError(err)

	req.Cancel()
	require.Zero(env.assembler.Len())
	_, err = env.assembler.OnPartReceived(parts[1])
	require.ErrorIs(err, ErrUnknownChunk)

	// A new request starts from scratch.
	env.expectRequests(2)
	_, err = env.assembler.RequestMissing(context.Background(), chunk.Header)
	require.NoError(err)
	got, err := env.assembler.OnPartReceived(parts[1])
	require.NoError(err)
	require.Nil(got)
}

func TestRequestFailuresAreRetried(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	chunk := newTestChunk(t, 1)

	env.sender.EXPECT().RequestChunkPart(gomock.Any(), gomock.Any()).Return(errSend)
	_, err := env.assembler.RequestMissing(context.Background(), chunk.Header)
	require.NoError(err)
	require.Equal(float64(1), testutil.ToFloat64(env.assembler.metrics.requestFailures))

	env.clock.Advance(time.Second)
	env.expectRequests(1)
	require.Empty(env.assembler.Retry(context.Background()))
}

func TestRequestWithoutParts(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.assembler.RequestMissing(context.Background(), block.ChunkHeader{})
	require.ErrorIs(t, err, block.ErrNoParts)
}
