// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/executor"
	"github.com/ava-labs/shardchain/chain/executor/executormock"
	"github.com/ava-labs/shardchain/chain/executor/executortest"
	"github.com/ava-labs/shardchain/chain/store"
	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/database/memdb"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/logging"
)

var errTest = errors.New("non-nil error")

// newTestStore returns a store holding [numShards] initial shard roots and
// the combined root behind them.
func newTestStore(t *testing.T, numShards int) (*store.Store, ids.ID, []ids.ID) {
	t.Helper()
	require := require.New(t)

	s, err := store.New(store.DefaultConfig(), memdb.New(), prometheus.NewRegistry())
	require.NoError(err)

	shardRoots := make([]ids.ID, numShards)
	for i := range shardRoots {
		shardRoots[i] = ids.GenerateTestID()
	}
	root := block.StateRoot(shardRoots)

	u := s.NewUpdate()
	require.NoError(u.PutStateRoots(root, shardRoots))
	require.NoError(u.Commit())
	return s, root, shardRoots
}

func newTestChunks(t *testing.T, height uint64, shardRoots []ids.ID) []*block.Chunk {
	t.Helper()

	chunks := make([]*block.Chunk, len(shardRoots))
	for i, root := range shardRoots {
		chunk, err := block.NewChunk(uint32(i), height, root, 1000, 2, block.Body{
			Transactions: [][]byte{{byte(i), byte(height)}, {0xff}},
			Receipts:     [][]byte{{byte(i)}},
		})
		require.NoError(t, err)
		chunks[i] = chunk
	}
	return chunks
}

func newTestRunner(t *testing.T, vm executor.VM, s *store.Store) *executor.Runner {
	t.Helper()

	r, err := executor.New(vm, s, logging.NoLog{}, prometheus.NewRegistry())
	require.NoError(t, err)
	return r
}

func TestApply(t *testing.T) {
	require := require.New(t)

	s, root, shardRoots := newTestStore(t, 2)
	vm := &executortest.VM{}
	r := newTestRunner(t, vm, s)
	chunks := newTestChunks(t, 1, shardRoots)

	result, err := r.Apply(context.Background(), 1, root, chunks)
	require.NoError(err)
	require.Equal(2, vm.Calls())

	expectedRoots := []ids.ID{
		executortest.NextStateRoot(0, shardRoots[0], &chunks[0].Body),
		executortest.NextStateRoot(1, shardRoots[1], &chunks[1].Body),
	}
	require.Equal(expectedRoots, result.ShardRoots)
	require.Equal(block.StateRoot(expectedRoots), result.StateRoot)
	require.Len(result.Outcomes, 2)
	require.Len(result.Outcomes[0], 2)

	// The post state is recorded so children can build on it.
	roots, err := s.GetStateRoots(result.StateRoot)
	require.NoError(err)
	require.Equal(expectedRoots, roots)

	child := newTestChunks(t, 2, roots)
	_, err = r.Apply(context.Background(), 2, result.StateRoot, child)
	require.NoError(err)
	require.Equal(4, vm.Calls())
}

func TestApplyIsIdempotent(t *testing.T) {
	require := require.New(t)

	s, root, shardRoots := newTestStore(t, 2)
	vm := &executortest.VM{}
	chunks := newTestChunks(t, 1, shardRoots)

	first, err := newTestRunner(t, vm, s).Apply(context.Background(), 1, root, chunks)
	require.NoError(err)
	require.Equal(2, vm.Calls())

	// A fresh runner over the same store models a restart.
	second, err := newTestRunner(t, vm, s).Apply(context.Background(), 1, root, chunks)
	require.NoError(err)
	require.Equal(2, vm.Calls())
	require.Equal(first.StateRoot, second.StateRoot)
	require.Equal(first.ShardRoots, second.ShardRoots)
	require.Equal(first.Outcomes, second.Outcomes)
}

func TestApplyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(root ids.ID, chunks []*block.Chunk) (ids.ID, []*block.Chunk)
		expectedErr error
	}{
		{
			name: "unknown prior state",
			modify: func(_ ids.ID, chunks []*block.Chunk) (ids.ID, []*block.Chunk) {
				return ids.GenerateTestID(), chunks
			},
			expectedErr: executor.ErrUnknownState,
		},
		{
			name: "missing shard",
			modify: func(root ids.ID, chunks []*block.Chunk) (ids.ID, []*block.Chunk) {
				return root, chunks[:1]
			},
			expectedErr: executor.ErrInvalidTransition,
		},
		{
			name: "shards out of order",
			modify: func(root ids.ID, chunks []*block.Chunk) (ids.ID, []*block.Chunk) {
				return root, []*block.Chunk{chunks[1], chunks[0]}
			},
			expectedErr: executor.ErrInvalidTransition,
		},
		{
			name: "wrong prior shard root",
			modify: func(root ids.ID, chunks []*block.Chunk) (ids.ID, []*block.Chunk) {
				chunks[1].Header.PrevStateRoot = ids.GenerateTestID()
				return root, chunks
			},
			expectedErr: executor.ErrInvalidTransition,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			s, root, shardRoots := newTestStore(t, 2)
			vm := &executortest.VM{}
			r := newTestRunner(t, vm, s)

			root, chunks := test.modify(root, newTestChunks(t, 1, shardRoots))
			_, err := r.Apply(context.Background(), 1, root, chunks)
			require.ErrorIs(err, test.expectedErr)
			require.Zero(vm.Calls())
		})
	}
}

func TestApplyRejectsBadInputBeforeExecuting(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	s, root, shardRoots := newTestStore(t, 3)
	chunks := newTestChunks(t, 1, shardRoots)
	chunks[2].Header.PrevStateRoot = ids.GenerateTestID()

	// The last chunk is invalid so no shard reaches the vm.
	vm := executormock.NewVM(ctrl)
	_, err := newTestRunner(t, vm, s).Apply(context.Background(), 1, root, chunks)
	require.ErrorIs(err, executor.ErrInvalidTransition)
}

func TestApplyCallsVMOnce(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	s, root, shardRoots := newTestStore(t, 1)
	chunks := newTestChunks(t, 1, shardRoots)
	expectedRoot := ids.GenerateTestID()

	vm := executormock.NewVM(ctrl)
	gomock.InOrder(
		vm.EXPECT().ApplyChunk(gomock.Any(), uint32(0), shardRoots[0], gomock.Any()).Return(nil, errTest),
		vm.EXPECT().ApplyChunk(gomock.Any(), uint32(0), shardRoots[0], gomock.Any()).Return(&executor.ChunkResult{
			StateRoot: expectedRoot,
		}, nil),
	)
	r := newTestRunner(t, vm, s)

	_, err := r.Apply(context.Background(), 1, root, chunks)
	require.ErrorIs(err, executor.ErrUnavailable)
	require.ErrorIs(err, errTest)

	result, err := r.Apply(context.Background(), 1, root, chunks)
	require.NoError(err)
	require.Equal([]ids.ID{expectedRoot}, result.ShardRoots)
}

func TestApplyFails(t *testing.T) {
	tests := []struct {
		name        string
		vmErr       error
		expectedErr error
	}{
		{
			name:        "temporary failure",
			vmErr:       errTest,
			expectedErr: executor.ErrUnavailable,
		},
		{
			name:        "invalid transition",
			vmErr:       executor.ErrInvalidTransition,
			expectedErr: executor.ErrInvalidTransition,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)
			ctrl := gomock.NewController(t)

			s, root, shardRoots := newTestStore(t, 1)
			chunks := newTestChunks(t, 1, shardRoots)
			vm := executormock.NewVM(ctrl)
			vm.EXPECT().ApplyChunk(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, test.vmErr)

			_, err := newTestRunner(t, vm, s).Apply(context.Background(), 1, root, chunks)
			require.ErrorIs(err, test.expectedErr)

			// Nothing is recorded for a failed application.
			_, err = s.GetApplyResult(1, executor.ResultKey(root, []ids.ID{chunks[0].ID()}))
			require.ErrorIs(err, database.ErrNotFound)
		})
	}
}

func TestConfigVerify(t *testing.T) {
	tests := []struct {
		name        string
		config      executor.Config
		expectedErr bool
	}{
		{
			name:   "default",
			config: executor.DefaultConfig(),
		},
		{
			name:        "zero initial backoff",
			config:      executor.Config{MaxBackoff: time.Second},
			expectedErr: true,
		},
		{
			name: "max below initial",
			config: executor.Config{
				InitialBackoff: time.Second,
				MaxBackoff:     time.Millisecond,
			},
			expectedErr: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.config.Verify()
			if test.expectedErr {
				require.Error(t, err) //nolint:forbidigo
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestResultKey(t *testing.T) {
	require := require.New(t)

	root := ids.GenerateTestID()
	a, b := ids.GenerateTestID(), ids.GenerateTestID()
	require.Equal(executor.ResultKey(root, []ids.ID{a, b}), executor.ResultKey(root, []ids.ID{a, b}))
	require.NotEqual(executor.ResultKey(root, []ids.ID{a, b}), executor.ResultKey(root, []ids.ID{b, a}))
	require.NotEqual(executor.ResultKey(root, []ids.ID{a}), executor.ResultKey(ids.GenerateTestID(), []ids.ID{a}))
}
