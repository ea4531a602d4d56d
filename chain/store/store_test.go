// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/database/memdb"
	"github.com/ava-labs/shardchain/ids"
)

func newTestStore(t *testing.T, db database.Database) *Store {
	t.Helper()

	s, err := New(DefaultConfig(), db, prometheus.NewRegistry())
	require.NoError(t, err)
	return s
}

func newTestChunk(t *testing.T, shardID uint32, height uint64, tx byte) *block.Chunk {
	t.Helper()

	chunk, err := block.NewChunk(shardID, height, ids.GenerateTestID(), 1, 2, block.Body{
		Transactions: [][]byte{{tx, tx, tx}},
		Receipts:     [][]byte{{tx}},
	})
	require.NoError(t, err)
	return chunk
}

func newTestBlock(t *testing.T, parentID ids.ID, height uint64, chunks ...*block.Chunk) *block.Block {
	t.Helper()

	headers := make([]block.ChunkHeader, len(chunks))
	for i, c := range chunks {
		headers[i] = c.Header
	}
	blk, err := block.New(block.Header{
		Height:    height,
		ParentID:  parentID,
		StateRoot: ids.GenerateTestID(),
		ChunkRoot: block.ChunkRoot(headers),
		Timestamp: height,
	}, headers, nil)
	require.NoError(t, err)
	return blk
}

func TestUpdateVisibility(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, memdb.New())
	blk := newTestBlock(t, ids.GenerateTestID(), 1)

	u := s.NewUpdate()
	require.NoError(u.PutBlock(blk))

	has, err := u.HasBlock(blk.ID())
	require.NoError(err)
	require.True(has)

	has, err = s.HasBlock(blk.ID())
	require.NoError(err)
	require.False(has)

	_, err = s.GetBlock(blk.ID())
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(u.Commit())

	got, err := s.GetBlock(blk.ID())
	require.NoError(err)
	require.Equal(blk.ID(), got.ID())
	require.Equal(blk.Bytes(), got.Bytes())
}

func TestUpdateAbort(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, memdb.New())
	blk := newTestBlock(t, ids.GenerateTestID(), 1)

	u := s.NewUpdate()
	require.NoError(u.PutBlock(blk))
	require.NoError(u.SetHead(blk.ID()))
	u.Abort()

	has, err := u.HasBlock(blk.ID())
	require.NoError(err)
	require.False(has)

	initialized, err := s.IsInitialized()
	require.NoError(err)
	require.False(initialized)
}

func TestPointersAndIndexes(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := newTestStore(t, db)

	parentID := ids.GenerateTestID()
	blks := []*block.Block{
		newTestBlock(t, parentID, 3),
		newTestBlock(t, parentID, 3),
		newTestBlock(t, parentID, 3),
		newTestBlock(t, parentID, 4),
	}

	u := s.NewUpdate()
	for _, blk := range blks {
		require.NoError(u.PutBlock(blk))
	}
	require.NoError(u.SetCanonical(3, blks[1].ID()))
	require.NoError(u.SetHead(blks[3].ID()))
	require.NoError(u.SetFinal(blks[1].ID()))
	require.NoError(u.SetHeaderHead(blks[3].ID()))
	require.NoError(u.SetGCTail(2))
	require.NoError(u.Commit())

	// A store reopened over the same database sees the same data.
	for _, r := range []Reader{s, newTestStore(t, db)} {
		expected := []ids.ID{blks[0].ID(), blks[1].ID(), blks[2].ID()}
		slices.SortFunc(expected, ids.ID.Compare)

		atHeight, err := r.GetBlockIDsAtHeight(3)
		require.NoError(err)
		require.Equal(expected, atHeight)

		atHeight, err = r.GetBlockIDsAtHeight(5)
		require.NoError(err)
		require.Empty(atHeight)

		canonical, err := r.GetCanonicalBlockID(3)
		require.NoError(err)
		require.Equal(blks[1].ID(), canonical)

		_, err = r.GetCanonicalBlockID(4)
		require.ErrorIs(err, database.ErrNotFound)

		head, err := r.GetHead()
		require.NoError(err)
		require.Equal(blks[3].ID(), head)

		final, err := r.GetFinal()
		require.NoError(err)
		require.Equal(blks[1].ID(), final)

		headerHead, err := r.GetHeaderHead()
		require.NoError(err)
		require.Equal(blks[3].ID(), headerHead)

		tail, err := r.GetGCTail()
		require.NoError(err)
		require.Equal(uint64(2), tail)
	}

	initialized, err := s.IsInitialized()
	require.NoError(err)
	require.True(initialized)
}

func TestStatus(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, memdb.New())
	blkID := ids.GenerateTestID()

	status, err := s.GetStatus(blkID)
	require.NoError(err)
	require.Equal(Unknown, status.State)

	tests := []Status{
		{State: Applied, HeadMoved: true},
		{State: Applied},
		{State: Rejected, Reason: "invalid signature"},
	}
	for _, expected := range tests {
		u := s.NewUpdate()
		require.NoError(u.SetStatus(blkID, expected))
		require.NoError(u.Commit())

		status, err := s.GetStatus(blkID)
		require.NoError(err)
		require.Equal(expected, status)
	}
}

func TestChunksAndResults(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, memdb.New())
	chunk := newTestChunk(t, 0, 1, 7)
	stateRoot := ids.GenerateTestID()
	shardRoots := []ids.ID{ids.GenerateTestID(), ids.GenerateTestID()}
	resultKey := ids.GenerateTestID()

	u := s.NewUpdate()
	require.NoError(u.PutChunk(chunk))
	require.NoError(u.PutStateRoots(stateRoot, shardRoots))
	require.NoError(u.PutApplyResult(1, resultKey, []byte("result")))
	require.NoError(u.Commit())

	has, err := s.HasChunk(chunk.ID())
	require.NoError(err)
	require.True(has)

	got, err := s.GetChunk(chunk.ID())
	require.NoError(err)
	require.Equal(chunk.ID(), got.ID())
	require.Equal(chunk.Body, got.Body)
	require.NoError(got.Verify())

	roots, err := s.GetStateRoots(stateRoot)
	require.NoError(err)
	require.Equal(shardRoots, roots)

	result, err := s.GetApplyResult(1, resultKey)
	require.NoError(err)
	require.Equal([]byte("result"), result)

	_, err = s.GetApplyResult(2, resultKey)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestPrune(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, memdb.New())
	var (
		parentID  = ids.GenerateTestID()
		shared    = newTestChunk(t, 0, 2, 1)
		orphaned  = newTestChunk(t, 0, 2, 2)
		canonical = newTestBlock(t, parentID, 2, shared)
		stale     = newTestBlock(t, parentID, 2, orphaned)
		sibling   = newTestBlock(t, parentID, 2, shared)
		resultID  = ids.GenerateTestID()
		invalid   = ids.GenerateTestID()
		above     = ids.GenerateTestID()
	)

	u := s.NewUpdate()
	for _, blk := range []*block.Block{canonical, stale, sibling} {
		require.NoError(u.PutBlock(blk))
		require.NoError(u.SetStatus(blk.ID(), Status{State: Applied}))
		require.NoError(u.PutStateRoots(blk.Header.StateRoot, []ids.ID{blk.Header.StateRoot}))
	}
	require.NoError(u.PutChunk(shared))
	require.NoError(u.PutChunk(orphaned))
	require.NoError(u.PutApplyResult(2, resultID, []byte{1}))
	require.NoError(u.SetCanonical(2, canonical.ID()))
	require.NoError(u.Reject(invalid, 2, "invalid signature"))
	require.NoError(u.Reject(above, 3, "invalid signature"))
	require.NoError(u.Commit())

	// Populate the cache so that eviction is exercised.
	_, err := s.GetBlock(stale.ID())
	require.NoError(err)

	u = s.NewUpdate()
	pruned, err := u.Prune(2)
	require.NoError(err)
	require.ElementsMatch([]ids.ID{stale.ID(), sibling.ID()}, pruned)

	has, err := u.HasBlock(stale.ID())
	require.NoError(err)
	require.False(has)
	require.NoError(u.Commit())

	for _, blkID := range pruned {
		has, err := s.HasBlock(blkID)
		require.NoError(err)
		require.False(has)

		// The verdict outlives the block.
		status, err := s.GetStatus(blkID)
		require.NoError(err)
		require.Equal(Applied, status.State)
	}

	status, err := s.GetStatus(invalid)
	require.NoError(err)
	require.Equal(Unknown, status.State)
	status, err = s.GetStatus(above)
	require.NoError(err)
	require.Equal(Status{State: Rejected, Reason: "invalid signature"}, status)

	atHeight, err := s.GetBlockIDsAtHeight(2)
	require.NoError(err)
	require.Equal([]ids.ID{canonical.ID()}, atHeight)

	has, err = s.HasChunk(shared.ID())
	require.NoError(err)
	require.True(has)
	has, err = s.HasChunk(orphaned.ID())
	require.NoError(err)
	require.False(has)

	_, err = s.GetStateRoots(canonical.Header.StateRoot)
	require.NoError(err)
	_, err = s.GetStateRoots(stale.Header.StateRoot)
	require.ErrorIs(err, database.ErrNotFound)

	_, err = s.GetApplyResult(2, resultID)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestCommitFailure(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := newTestStore(t, db)

	u := s.NewUpdate()
	require.NoError(u.SetHead(ids.GenerateTestID()))
	require.NoError(db.Close())

	err := u.Commit()
	require.ErrorIs(err, ErrCommitFailed)
	require.ErrorIs(err, database.ErrClosed)
}

func TestCollectGarbage(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, memdb.New())
	var (
		canonical = make([]*block.Block, 6)
		forks     = make(map[uint64]*block.Block)
		parentID  = ids.Empty
	)
	u := s.NewUpdate()
	for height := range canonical {
		blk := newTestBlock(t, parentID, uint64(height))
		canonical[height] = blk
		parentID = blk.ID()
		require.NoError(u.PutBlock(blk))
		require.NoError(u.SetCanonical(uint64(height), blk.ID()))
	}
	for _, height := range []uint64{1, 3} {
		fork := newTestBlock(t, canonical[height-1].ID(), height)
		forks[height] = fork
		require.NoError(u.PutBlock(fork))
	}
	require.NoError(u.SetFinal(canonical[5].ID()))
	require.NoError(u.Commit())

	tests := []struct {
		from     uint64
		to       uint64
		prunedAt []uint64
	}{
		{from: 0, to: 2, prunedAt: []uint64{1}},
		{from: 2, to: 4, prunedAt: []uint64{3}},
		{from: 4, to: 4},
	}
	for _, test := range tests {
		result, err := s.CollectGarbage(1, 2)
		require.NoError(err)
		require.Equal(test.from, result.From)
		require.Equal(test.to, result.To)

		expectedPruned := make([]ids.ID, len(test.prunedAt))
		for i, height := range test.prunedAt {
			expectedPruned[i] = forks[height].ID()
		}
		require.ElementsMatch(expectedPruned, result.Pruned)

		tail, err := s.GetGCTail()
		require.NoError(err)
		require.Equal(test.to, tail)
	}

	for _, blk := range canonical {
		has, err := s.HasBlock(blk.ID())
		require.NoError(err)
		require.True(has)
	}
	for _, fork := range forks {
		has, err := s.HasBlock(fork.ID())
		require.NoError(err)
		require.False(has)
	}
}

func TestCollectGarbageWithinHorizon(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t, memdb.New())
	genesis := newTestBlock(t, ids.Empty, 0)
	u := s.NewUpdate()
	require.NoError(u.PutBlock(genesis))
	require.NoError(u.SetCanonical(0, genesis.ID()))
	require.NoError(u.SetFinal(genesis.ID()))
	require.NoError(u.Commit())

	result, err := s.CollectGarbage(0, 10)
	require.NoError(err)
	require.Equal(GCResult{}, result)
}
