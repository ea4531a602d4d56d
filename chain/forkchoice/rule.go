// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forkchoice

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/epoch"
	"github.com/ava-labs/shardchain/ids"
)

// FinalityRule decides which blocks are final.
type FinalityRule interface {
	// Final is given the canonical chain from the current final block,
	// chain[0], up to the head. It returns the highest block of the chain
	// that is final, or false if no block beyond chain[0] is known to be.
	Final(ctx context.Context, chain []*block.Block) (ids.ID, bool, error)
}

var _ FinalityRule = (*QuorumRule)(nil)

// QuorumRule finalizes a block once its child and grandchild each carry
// endorsements from more than two thirds of the stake of their epoch.
//
// Endorsements in a block sign its parent, so the rule is met when two
// consecutive blocks are each endorsed by a quorum.
type QuorumRule struct {
	epochs epoch.Manager
}

func NewQuorumRule(epochs epoch.Manager) *QuorumRule {
	return &QuorumRule{
		epochs: epochs,
	}
}

func (q *QuorumRule) Final(ctx context.Context, chain []*block.Block) (ids.ID, bool, error) {
	// Once a block is found to be endorsed by a quorum, the descendant
	// checked before it is known to be too.
	childHasQuorum := false
	for i := len(chain) - 2; i >= 0; i-- {
		hasQuorum, err := q.HasQuorum(ctx, chain[i+1])
		if err != nil {
			return ids.Empty, false, err
		}
		if hasQuorum && childHasQuorum {
			return chain[i].ID(), true, nil
		}
		childHasQuorum = hasQuorum
	}
	return ids.Empty, false, nil
}

// HasQuorum returns true if the endorsements carried by [blk] hold more than
// two thirds of the stake of its epoch.
func (q *QuorumRule) HasQuorum(ctx context.Context, blk *block.Block) (bool, error) {
	if len(blk.Endorsements) == 0 {
		return false, nil
	}
	vdrs, err := q.epochs.ValidatorSet(ctx, blk.Header.Epoch)
	if err != nil {
		return false, fmt.Errorf("couldn't get validators of epoch %d: %w", blk.Header.Epoch, err)
	}
	endorsers := make([]ids.NodeID, len(blk.Endorsements))
	for i, e := range blk.Endorsements {
		endorsers[i] = e.Validator
	}
	return isSupermajority(vdrs.Weight(endorsers), vdrs.TotalWeight()), nil
}

// isSupermajority returns weight*3 > total*2 without overflowing.
func isSupermajority(weight, total uint64) bool {
	weightHi, weightLo := bits.Mul64(weight, 3)
	totalHi, totalLo := bits.Mul64(total, 2)
	if weightHi != totalHi {
		return weightHi > totalHi
	}
	return weightLo > totalLo
}
