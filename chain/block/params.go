// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"errors"

	"github.com/ava-labs/shardchain/utils/units"
)

var (
	errZeroMaxChunkParts  = errors.New("max chunk parts must be positive")
	errChunkGasAboveBlock = errors.New("max chunk gas exceeds max block gas")
	errZeroMaxBlockSize   = errors.New("max block size must be positive")
)

// Params are the protocol resource bounds every block is checked against.
type Params struct {
	MaxBlockGas      uint64 `json:"maxBlockGas"`
	MaxChunkGas      uint64 `json:"maxChunkGas"`
	MaxChunkBodySize uint64 `json:"maxChunkBodySize"`
	MaxChunkParts    uint32 `json:"maxChunkParts"`
	MaxBlockSize     uint64 `json:"maxBlockSize"`
}

func DefaultParams() Params {
	return Params{
		MaxBlockGas:      4 * units.PetaGas,
		MaxChunkGas:      units.PetaGas,
		MaxChunkBodySize: 4 * units.MiB,
		MaxChunkParts:    100,
		MaxBlockSize:     units.MiB,
	}
}

func (p Params) Verify() error {
	switch {
	case p.MaxChunkParts == 0:
		return errZeroMaxChunkParts
	case p.MaxChunkGas > p.MaxBlockGas:
		return errChunkGasAboveBlock
	case p.MaxBlockSize == 0:
		return errZeroMaxBlockSize
	default:
		return nil
	}
}
