// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"errors"
	"fmt"

	safemath "github.com/ava-labs/shardchain/utils/math"
)

var ErrGasLimitExceeded = errors.New("gas limit exceeded")

// GasCounter accumulates gas up to a hard limit.
type GasCounter struct {
	used  uint64
	limit uint64
}

func NewGasCounter(limit uint64) *GasCounter {
	return &GasCounter{limit: limit}
}

// Consume adds [gas] to the counter. On error the counter is unchanged.
func (g *GasCounter) Consume(gas uint64) error {
	used, err := safemath.Add64(g.used, gas)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGasLimitExceeded, err)
	}
	if used > g.limit {
		return fmt.Errorf("%w: %d > %d", ErrGasLimitExceeded, used, g.limit)
	}
	g.used = used
	return nil
}

func (g *GasCounter) Used() uint64 {
	return g.used
}

func (g *GasCounter) Remaining() uint64 {
	return g.limit - g.used
}
