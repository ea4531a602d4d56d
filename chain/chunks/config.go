// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chunks

import (
	"errors"
	"time"
)

var (
	errZeroInitialBackoff = errors.New("initial backoff must be positive")
	errBackoffOrder       = errors.New("max backoff must not be below initial backoff")
	errTimeoutBelowRetry  = errors.New("timeout must exceed initial backoff")
)

type Config struct {
	// InitialBackoff is the delay before missing parts are first requested
	// again.
	InitialBackoff time.Duration `json:"initialBackoff"`
	// MaxBackoff caps the doubling retry delay.
	MaxBackoff time.Duration `json:"maxBackoff"`
	// Timeout is how long an assembly may stay incomplete before it is
	// dropped.
	Timeout time.Duration `json:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Timeout:        time.Minute,
	}
}

func (c Config) Verify() error {
	switch {
	case c.InitialBackoff <= 0:
		return errZeroInitialBackoff
	case c.MaxBackoff < c.InitialBackoff:
		return errBackoffOrder
	case c.Timeout <= c.InitialBackoff:
		return errTimeoutBelowRetry
	default:
		return nil
	}
}
