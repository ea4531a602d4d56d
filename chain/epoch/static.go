// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package epoch

import (
	"context"
	"errors"
)

var (
	errZeroEpochLength = errors.New("epoch length must be positive")
	errZeroShards      = errors.New("number of shards must be positive")
)

var _ Manager = (*Static)(nil)

// Static is a Manager with fixed length epochs that all share one validator
// set and shard layout.
type Static struct {
	length     uint64
	numShards  uint32
	validators *ValidatorSet
}

func NewStatic(length uint64, numShards uint32, validators *ValidatorSet) (*Static, error) {
	switch {
	case length == 0:
		return nil, errZeroEpochLength
	case numShards == 0:
		return nil, errZeroShards
	case validators == nil:
		return nil, ErrNoValidators
	}
	return &Static{
		length:     length,
		numShards:  numShards,
		validators: validators,
	}, nil
}

func (s *Static) EpochOf(height uint64) (uint64, error) {
	return height / s.length, nil
}

func (s *Static) ValidatorSet(context.Context, uint64) (*ValidatorSet, error) {
	return s.validators, nil
}

func (s *Static) NumShards(uint64) (uint32, error) {
	return s.numShards, nil
}
