// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{
		Initial: 100 * time.Millisecond,
		Max:     time.Second,
	}
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: 0, expected: 100 * time.Millisecond},
		{attempt: 1, expected: 100 * time.Millisecond},
		{attempt: 2, expected: 200 * time.Millisecond},
		{attempt: 4, expected: 800 * time.Millisecond},
		{attempt: 5, expected: time.Second},
		{attempt: 1000, expected: time.Second},
	}
	for _, test := range tests {
		require.Equal(t, test.expected, b.Delay(test.attempt), "attempt %d", test.attempt)
	}
}
