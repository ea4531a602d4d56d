// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package forkchoice picks the canonical chain among applied blocks and
// tracks how much of it is final.
//
// The preferred block is the highest one, with the lower block ID winning
// ties. Only descendants of the final block are ever considered and the
// final block never moves backwards.
package forkchoice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/store"
	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/logging"
)

var (
	// ErrForkBelowFinality is returned for blocks that do not descend from
	// the final block.
	ErrForkBelowFinality = errors.New("fork below finality")
	// ErrReorgBelowFinality is returned when the chain would have to
	// abandon a final block. It means the finality rule is broken.
	ErrReorgBelowFinality = errors.New("reorg below finality")
)

// ChainState holds the chain's pointers.
type ChainState struct {
	// Head is the tip of the canonical chain.
	Head *block.Header
	// HeaderHead is the best validated header, which may still wait on its
	// chunks or execution.
	HeaderHead *block.Header
	// FinalHead is the highest final block.
	FinalHead *block.Header
}

// Transition describes the effect of applying one block.
type Transition struct {
	Prev ChainState
	Next ChainState
	// Reorged lists the blocks that left the canonical chain, by height.
	Reorged []ids.ID
	// Finalized lists the blocks that became final, by height.
	Finalized []ids.ID
}

func (t *Transition) HeadMoved() bool {
	return t.Prev.Head.ID() != t.Next.Head.ID()
}

func (t *Transition) FinalMoved() bool {
	return t.Prev.FinalHead.ID() != t.Next.FinalHead.ID()
}

// Engine is safe for concurrent use. Apply and Commit must be called by one
// goroutine at a time, in that order, around the store commit.
type Engine struct {
	rule FinalityRule
	log  logging.Logger

	lock  sync.RWMutex
	state ChainState
	// IDs of the pointers in [state].
	headID, headerHeadID, finalID ids.ID
}

func New(rule FinalityRule, state ChainState, log logging.Logger) *Engine {
	e := &Engine{
		rule: rule,
		log:  log,
	}
	e.setState(state)
	return e
}

// State returns a snapshot of the chain's pointers.
func (e *Engine) State() ChainState {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.state
}

func (e *Engine) setState(state ChainState) {
	e.state = state
	e.headID = state.Head.ID()
	e.headerHeadID = state.HeaderHead.ID()
	e.finalID = state.FinalHead.ID()
}

// Compare returns a positive number if [a] is preferred over [b], a negative
// number if [b] is preferred and zero if they are the same block.
func (e *Engine) Compare(r store.Reader, a, b *block.Header) (int, error) {
	aDescends, err := e.descendsFromFinal(r, a)
	if err != nil {
		return 0, err
	}
	bDescends, err := e.descendsFromFinal(r, b)
	if err != nil {
		return 0, err
	}
	switch {
	case aDescends && !bDescends:
		return 1, nil
	case !aDescends && bDescends:
		return -1, nil
	}
	return compare(a, a.ID(), b, b.ID()), nil
}

// compare orders by height, then by lower block ID.
func compare(a *block.Header, aID ids.ID, b *block.Header, bID ids.ID) int {
	switch {
	case a.Height > b.Height:
		return 1
	case a.Height < b.Height:
		return -1
	}
	return bID.Compare(aID)
}

// CheckFork returns ErrForkBelowFinality if [header] does not descend from
// the final block. Ancestors of [header] must be readable from [r].
func (e *Engine) CheckFork(r store.Reader, header *block.Header) error {
	descends, err := e.descendsFromFinal(r, header)
	if err != nil {
		return err
	}
	if !descends {
		return fmt.Errorf("%w: block at height %d with parent %s",
			ErrForkBelowFinality,
			header.Height,
			header.ParentID,
		)
	}
	return nil
}

func (e *Engine) descendsFromFinal(r store.Reader, header *block.Header) (bool, error) {
	e.lock.RLock()
	finalHeight := e.state.FinalHead.Height
	finalID := e.finalID
	e.lock.RUnlock()

	if header.Height <= finalHeight {
		return header.ID() == finalID, nil
	}

	var (
		ancestorID = header.ParentID
		height     = header.Height - 1
	)
	for height > finalHeight {
		// The canonical chain above the final block descends from it.
		canonicalID, err := r.GetCanonicalBlockID(height)
		switch {
		case err == nil && canonicalID == ancestorID:
			return true, nil
		case err != nil && !errors.Is(err, database.ErrNotFound):
			return false, err
		}

		ancestor, err := r.GetBlock(ancestorID)
		if err != nil {
			return false, fmt.Errorf("couldn't get ancestor %s: %w", ancestorID, err)
		}
		ancestorID = ancestor.Parent()
		height--
	}
	return ancestorID == finalID, nil
}

// Apply records the effect of [blk], which must already be written to [u]
// and descend from the final block, on the chain's pointers and canonical
// index. The engine's state is left unchanged until Commit.
func (e *Engine) Apply(ctx context.Context, u *store.Update, blk *block.Block) (*Transition, error) {
	state := e.State()
	t := &Transition{
		Prev: state,
		Next: state,
	}

	blkID := blk.ID()
	if compare(&blk.Header, blkID, state.HeaderHead, e.headerHeadID) > 0 {
		if err := u.SetHeaderHead(blkID); err != nil {
			return nil, err
		}
		t.Next.HeaderHead = &blk.Header
	}
	if compare(&blk.Header, blkID, state.Head, e.headID) <= 0 {
		return t, nil
	}

	reorged, err := e.setCanonical(u, blk, state)
	if err != nil {
		return nil, err
	}
	if err := u.SetHead(blkID); err != nil {
		return nil, err
	}
	t.Reorged = reorged
	t.Next.Head = &blk.Header

	finalized, final, err := e.advanceFinality(ctx, u, blk, state)
	if err != nil {
		return nil, err
	}
	if final != nil {
		if err := u.SetFinal(final.ID()); err != nil {
			return nil, err
		}
		t.Finalized = finalized
		t.Next.FinalHead = &final.Header
	}
	return t, nil
}

// ObserveHeader moves the header head to [header] if it is preferred over
// the current one. [header] must have passed validation.
func (e *Engine) ObserveHeader(u *store.Update, header *block.Header) (*Transition, error) {
	state := e.State()
	t := &Transition{
		Prev: state,
		Next: state,
	}
	headerID := header.ID()
	if compare(header, headerID, state.HeaderHead, e.headerHeadID) <= 0 {
		return t, nil
	}
	if err := u.SetHeaderHead(headerID); err != nil {
		return nil, err
	}
	t.Next.HeaderHead = header
	return t, nil
}

// DropHeader moves the header head back to the head if it points at
// [blkID], which was rejected.
func (e *Engine) DropHeader(u *store.Update, blkID ids.ID) (*Transition, error) {
	state := e.State()
	t := &Transition{
		Prev: state,
		Next: state,
	}
	if e.headerHeadIs(blkID) {
		if err := u.SetHeaderHead(state.Head.ID()); err != nil {
			return nil, err
		}
		t.Next.HeaderHead = state.Head
	}
	return t, nil
}

func (e *Engine) headerHeadIs(blkID ids.ID) bool {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.headerHeadID == blkID
}

// Commit makes [t] the engine's state. It must be called once the update
// passed to Apply is committed.
func (e *Engine) Commit(t *Transition) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.setState(t.Next)
	if t.HeadMoved() {
		e.log.Debug("head moved",
			zap.Stringer("headID", e.headID),
			zap.Uint64("height", e.state.Head.Height),
			zap.Int("reorged", len(t.Reorged)),
		)
	}
	if t.FinalMoved() {
		e.log.Info("finalized blocks",
			zap.Stringer("finalID", e.finalID),
			zap.Uint64("height", e.state.FinalHead.Height),
			zap.Int("numFinalized", len(t.Finalized)),
		)
	}
}

// setCanonical rewrites the canonical index so that it ends at [blk].
func (e *Engine) setCanonical(u *store.Update, blk *block.Block, state ChainState) ([]ids.ID, error) {
	var (
		path []*block.Block
		fork = blk
	)
	for {
		canonicalID, err := u.GetCanonicalBlockID(fork.Height())
		if err == nil && canonicalID == fork.ID() {
			break
		}
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		if fork.Height() <= state.FinalHead.Height {
			return nil, fmt.Errorf("%w: %s forks off at height %d below final height %d",
				ErrReorgBelowFinality,
				blk.ID(),
				fork.Height(),
				state.FinalHead.Height,
			)
		}
		path = append(path, fork)

		fork, err = u.GetBlock(fork.Parent())
		if err != nil {
			return nil, fmt.Errorf("couldn't get ancestor of %s: %w", blk.ID(), err)
		}
	}

	var reorged []ids.ID
	for height := fork.Height() + 1; height <= state.Head.Height; height++ {
		blkID, err := u.GetCanonicalBlockID(height)
		if err != nil {
			return nil, err
		}
		reorged = append(reorged, blkID)
		if height > blk.Height() {
			if err := u.DeleteCanonical(height); err != nil {
				return nil, err
			}
		}
	}
	for i := len(path) - 1; i >= 0; i-- {
		if err := u.SetCanonical(path[i].Height(), path[i].ID()); err != nil {
			return nil, err
		}
	}
	return reorged, nil
}

// advanceFinality asks the rule about the canonical chain from the final
// block to [head]. It returns the new final block, or nil if finality did not
// move.
func (e *Engine) advanceFinality(
	ctx context.Context,
	u *store.Update,
	head *block.Block,
	state ChainState,
) ([]ids.ID, *block.Block, error) {
	finalHeight := state.FinalHead.Height
	chain := make([]*block.Block, 0, head.Height()-finalHeight+1)
	for height := finalHeight; height <= head.Height(); height++ {
		blkID, err := u.GetCanonicalBlockID(height)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't get canonical block at height %d: %w", height, err)
		}
		blk, err := u.GetBlock(blkID)
		if err != nil {
			return nil, nil, err
		}
		chain = append(chain, blk)
	}

	finalID, ok, err := e.rule.Final(ctx, chain)
	if err != nil {
		return nil, nil, err
	}
	if !ok || finalID == chain[0].ID() {
		return nil, nil, nil
	}
	for i := 1; i < len(chain); i++ {
		if chain[i].ID() != finalID {
			continue
		}
		finalized := make([]ids.ID, i)
		for j := range finalized {
			finalized[j] = chain[j+1].ID()
		}
		return finalized, chain[i], nil
	}
	return nil, nil, fmt.Errorf("%w: %s is not on the canonical chain above height %d",
		ErrReorgBelowFinality,
		finalID,
		finalHeight,
	)
}
