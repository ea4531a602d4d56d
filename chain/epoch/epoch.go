// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package epoch describes the validator sets and shard layouts the chain
// validates blocks against.
package epoch

import (
	"context"
	"errors"
	"fmt"

	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/crypto/bls"
	safemath "github.com/ava-labs/shardchain/utils/math"
)

var (
	ErrUnknownEpoch       = errors.New("unknown epoch")
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrZeroWeight         = errors.New("validator weight must be positive")
	ErrNoValidators       = errors.New("validator set is empty")
)

// Manager is the chain's view of epochs.
type Manager interface {
	// EpochOf returns the epoch that blocks at [height] belong to.
	EpochOf(height uint64) (uint64, error)
	// ValidatorSet returns the validators of [epoch].
	ValidatorSet(ctx context.Context, epoch uint64) (*ValidatorSet, error)
	// NumShards returns the number of shards active during [epoch].
	NumShards(epoch uint64) (uint32, error)
}

type Validator struct {
	NodeID    ids.NodeID
	PublicKey *bls.PublicKey
	Weight    uint64
}

// ValidatorSet is an immutable weighted set of validators.
type ValidatorSet struct {
	validators  map[ids.NodeID]*Validator
	ordered     []*Validator
	totalWeight uint64
}

// NewValidatorSet returns the set of [validators]. The node ID of each
// validator is derived from its public key.
func NewValidatorSet(validators ...*Validator) (*ValidatorSet, error) {
	if len(validators) == 0 {
		return nil, ErrNoValidators
	}
	s := &ValidatorSet{
		validators: make(map[ids.NodeID]*Validator, len(validators)),
		ordered:    make([]*Validator, 0, len(validators)),
	}
	for _, v := range validators {
		if v.Weight == 0 {
			return nil, fmt.Errorf("%w: %s", ErrZeroWeight, v.NodeID)
		}
		if _, ok := s.validators[v.NodeID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateValidator, v.NodeID)
		}
		total, err := safemath.Add64(s.totalWeight, v.Weight)
		if err != nil {
			return nil, err
		}
		s.totalWeight = total
		s.validators[v.NodeID] = v
		s.ordered = append(s.ordered, v)
	}
	return s, nil
}

func (s *ValidatorSet) Get(nodeID ids.NodeID) (*Validator, bool) {
	v, ok := s.validators[nodeID]
	return v, ok
}

func (s *ValidatorSet) Len() int {
	return len(s.ordered)
}

// List returns the validators in the order they were provided.
func (s *ValidatorSet) List() []*Validator {
	return s.ordered
}

func (s *ValidatorSet) TotalWeight() uint64 {
	return s.totalWeight
}

// Weight returns the summed weight of the distinct members of [nodeIDs].
// Node IDs outside of the set are ignored.
func (s *ValidatorSet) Weight(nodeIDs []ids.NodeID) uint64 {
	var (
		seen   = make(map[ids.NodeID]struct{}, len(nodeIDs))
		weight uint64
	)
	for _, nodeID := range nodeIDs {
		if _, ok := seen[nodeID]; ok {
			continue
		}
		seen[nodeID] = struct{}{}
		if v, ok := s.validators[nodeID]; ok {
			// Cannot overflow as the total weight did not.
			weight += v.Weight
		}
	}
	return weight
}
