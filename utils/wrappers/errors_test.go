// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	errTest0 = errors.New("0")
	errTest1 = errors.New("1")
)

func TestErrsKeepsFirst(t *testing.T) {
	require := require.New(t)

	errs := Errs{}
	require.False(errs.Errored())

	errs.Add(nil, nil)
	require.False(errs.Errored())

	errs.Add(nil, errTest0, errTest1)
	require.ErrorIs(errs.Err, errTest0)

	errs.Add(errTest1)
	require.ErrorIs(errs.Err, errTest0)
}

func TestCloserReverseOrder(t *testing.T) {
	require := require.New(t)

	var order []int
	c := Closer{}
	c.Add(func() error {
		order = append(order, 0)
		return errTest0
	})
	c.Add(func() error {
		order = append(order, 1)
		return errTest1
	})

	err := c.Close()
	require.ErrorIs(err, errTest0)
	require.ErrorIs(err, errTest1)
	require.Equal([]int{1, 0}, order)
	require.NoError(c.Close())
}
