// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metercacher

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/cache/lru"
)

func TestCacheCounts(t *testing.T) {
	require := require.New(t)

	c, err := New[int, int]("", prometheus.NewRegistry(), lru.NewCache[int, int](2))
	require.NoError(err)

	c.Put(1, 1)
	_, found := c.Get(1)
	require.True(found)
	_, found = c.Get(2)
	require.False(found)

	require.InDelta(1.0, testutil.ToFloat64(c.metrics.hit), 0)
	require.InDelta(1.0, testutil.ToFloat64(c.metrics.miss), 0)
	require.InDelta(1.0, testutil.ToFloat64(c.metrics.len), 0)
	require.InDelta(0.5, testutil.ToFloat64(c.metrics.portionFilled), 0)

	c.Flush()
	require.Zero(testutil.ToFloat64(c.metrics.len))
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New[int, int]("blocks", reg, lru.NewCache[int, int](2))
	require.NoError(t, err)

	_, err = New[int, int]("blocks", reg, lru.NewCache[int, int](2))
	var alreadyRegistered prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &alreadyRegistered)
}
