// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linked

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/ids"
)

func TestHashmap(t *testing.T) {
	require := require.New(t)

	lh := NewHashmap[ids.ID, int]()
	require.Zero(lh.Len())

	key0 := ids.GenerateTestID()
	_, exists := lh.Get(key0)
	require.False(exists)

	_, _, exists = lh.Oldest()
	require.False(exists)

	lh.Put(key0, 0)
	require.Equal(1, lh.Len())

	key1 := ids.GenerateTestID()
	lh.Put(key1, 1)
	require.Equal(2, lh.Len())

	rkey, _, exists := lh.Oldest()
	require.True(exists)
	require.Equal(key0, rkey)

	rkey, _, exists = lh.Newest()
	require.True(exists)
	require.Equal(key1, rkey)

	// Re-putting a key moves it to the newest position.
	lh.Put(key0, 10)
	rkey, val, exists := lh.Newest()
	require.True(exists)
	require.Equal(key0, rkey)
	require.Equal(10, val)

	rkey, _, exists = lh.Oldest()
	require.True(exists)
	require.Equal(key1, rkey)

	require.True(lh.Delete(key1))
	require.False(lh.Delete(key1))
	require.Equal(1, lh.Len())

	rkey, _, exists = lh.Oldest()
	require.True(exists)
	require.Equal(key0, rkey)
}

func TestHashmapIterator(t *testing.T) {
	require := require.New(t)

	lh := NewHashmap[int, int]()
	iter := lh.NewIterator()
	require.False(iter.Next())

	for i := 0; i < 4; i++ {
		lh.Put(i, i*i)
	}

	var keys []int
	iter = lh.NewIterator()
	for iter.Next() {
		keys = append(keys, iter.Key())
		require.Equal(iter.Key()*iter.Key(), iter.Value())
		// Deleting already visited entries is allowed.
		lh.Delete(iter.Key())
	}
	require.Equal([]int{0, 1, 2, 3}, keys)
	require.Zero(lh.Len())
	require.False(iter.Next())
}
