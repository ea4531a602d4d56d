// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orphan

import (
	"errors"
	"time"
)

var (
	errZeroMaxSize = errors.New("max size must be positive")
	errZeroTTL     = errors.New("ttl must be positive")
)

type Config struct {
	// MaxSize is the maximum number of orphans held at once.
	MaxSize int `json:"maxSize"`
	// TTL is how long an orphan is held before it is dropped.
	TTL time.Duration `json:"ttl"`
	// RequestProtection is how long an orphan is shielded from eviction
	// after its missing ancestor was requested.
	RequestProtection time.Duration `json:"requestProtection"`
}

func DefaultConfig() Config {
	return Config{
		MaxSize:           1024,
		TTL:               10 * time.Minute,
		RequestProtection: 30 * time.Second,
	}
}

func (c Config) Verify() error {
	switch {
	case c.MaxSize <= 0:
		return errZeroMaxSize
	case c.TTL <= 0:
		return errZeroTTL
	default:
		return nil
	}
}
