// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package timer

import "time"

// Backoff computes exponentially increasing retry delays.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay returns the delay to wait before attempt number [attempt], where the
// first retry is attempt 1. The delay doubles per attempt and is capped at
// [Max].
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return min(b.Initial, b.Max)
	}
	delay := b.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Max || delay <= 0 {
			return b.Max
		}
	}
	return delay
}
