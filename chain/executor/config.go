// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"errors"
	"time"

	"github.com/ava-labs/shardchain/utils/timer"
)

var (
	errZeroInitialBackoff = errors.New("initial backoff must be positive")
	errMaxBelowInitial    = errors.New("max backoff must not be below initial backoff")
)

// Config paces the retries of blocks whose execution was unavailable.
type Config struct {
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration `json:"initialBackoff"`
	// MaxBackoff caps the doubling retry delay.
	MaxBackoff time.Duration `json:"maxBackoff"`
}

func DefaultConfig() Config {
	return Config{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

func (c Config) Verify() error {
	switch {
	case c.InitialBackoff <= 0:
		return errZeroInitialBackoff
	case c.MaxBackoff < c.InitialBackoff:
		return errMaxBelowInitial
	default:
		return nil
	}
}

func (c Config) Backoff() timer.Backoff {
	return timer.Backoff{
		Initial: c.InitialBackoff,
		Max:     c.MaxBackoff,
	}
}
