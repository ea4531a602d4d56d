// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lru

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/ids"
)

func TestCache(t *testing.T) {
	require := require.New(t)

	c := NewCache[ids.ID, int64](1)

	id1 := ids.ID{1}
	_, found := c.Get(id1)
	require.False(found)

	c.Put(id1, 1)
	value, found := c.Get(id1)
	require.True(found)
	require.Equal(int64(1), value)
	require.Equal(1, c.Len())
	require.InDelta(1.0, c.PortionFilled(), 0)

	// Overwriting an existing key must not evict it.
	c.Put(id1, 2)
	value, found = c.Get(id1)
	require.True(found)
	require.Equal(int64(2), value)

	id2 := ids.ID{2}
	c.Put(id2, 3)
	_, found = c.Get(id1)
	require.False(found)
	value, found = c.Get(id2)
	require.True(found)
	require.Equal(int64(3), value)
}

func TestCacheEvictionOrder(t *testing.T) {
	require := require.New(t)

	c := NewCache[int, int](2)
	c.Put(1, 1)
	c.Put(2, 2)

	// Touch 1 so 2 becomes least recently used.
	_, found := c.Get(1)
	require.True(found)

	c.Put(3, 3)
	_, found = c.Get(2)
	require.False(found)
	_, found = c.Get(1)
	require.True(found)

	c.Evict(1)
	_, found = c.Get(1)
	require.False(found)
	require.Equal(1, c.Len())

	c.Flush()
	require.Zero(c.Len())
	require.Zero(c.PortionFilled())
}
