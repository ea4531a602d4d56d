// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package validation decides whether a block is acceptable on top of its
// parent, independent of state execution.
//
// Checks run in a fixed order and stop at the first failure:
//
//  1. well-formedness
//  2. lineage against the parent
//  3. signatures of the producer, chunk producers and endorsers
//  4. chunk and endorsement commitments
//  5. resource bounds
//
// The verdict and the reported reason depend only on the block, its parent
// and the epoch manager's answers.
package validation

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/epoch"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/crypto/bls"
	"github.com/ava-labs/shardchain/utils/set"
)

var (
	// ErrInvalid is wrapped by every permanent validation failure.
	ErrInvalid = errors.New("invalid block")
	// ErrUnknownParent means the block cannot be judged until its parent is
	// known.
	ErrUnknownParent = errors.New("unknown parent")

	errGenesis           = errors.New("height zero is reserved for genesis")
	errMissingProducer   = errors.New("missing producer")
	errMissingSignature  = errors.New("missing signature")
	errWrongEpoch        = errors.New("wrong epoch")
	errWrongChunkCount   = errors.New("wrong number of chunks")
	errWrongShard        = errors.New("wrong shard id")
	errWrongChunkHeight  = errors.New("wrong chunk height")
	errNoParts           = errors.New("chunk has no parts")
	errDuplicateEndorser = errors.New("duplicate endorser")
	errWrongParent       = errors.New("parent id mismatch")
	errWrongHeight       = errors.New("height is not parent height plus one")
	errTimestampNotAfter = errors.New("timestamp not after parent")
	errUnknownProducer   = errors.New("producer is not a validator")
	errUnknownEndorser   = errors.New("endorser is not a validator")
	errInvalidSignature  = errors.New("invalid signature")
	errBlockGasLimit     = errors.New("block gas limit exceeds maximum")
	errChunkGasLimit     = errors.New("chunk gas limit exceeds maximum")
	errTotalChunkGas     = errors.New("chunk gas exceeds block gas limit")
	errChunkBodySize     = errors.New("chunk body exceeds maximum size")
	errTooManyParts      = errors.New("chunk has too many parts")
	errBlockSize         = errors.New("block exceeds maximum size")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

// Validator is safe for concurrent use.
type Validator struct {
	params  block.Params
	epochs  epoch.Manager
	workers int
}

func New(params block.Params, epochs epoch.Manager) *Validator {
	return &Validator{
		params:  params,
		epochs:  epochs,
		workers: runtime.NumCPU(),
	}
}

// ValidateHeader runs every check that only needs the header and its
// parent's header.
func (v *Validator) ValidateHeader(ctx context.Context, header *block.Header, parent *block.Header) error {
	if err := v.headerWellFormed(header); err != nil {
		return err
	}
	if err := checkLineage(header, parent); err != nil {
		return err
	}
	vdrs, err := v.validatorSet(ctx, header.Epoch)
	if err != nil {
		return err
	}
	if err := verifyProducer(vdrs, header); err != nil {
		return err
	}
	if header.GasLimit > v.params.MaxBlockGas {
		return invalid(fmt.Errorf("%w: %d > %d", errBlockGasLimit, header.GasLimit, v.params.MaxBlockGas))
	}
	return nil
}

// ValidateBlockBody runs every check over the block's chunk headers and
// endorsements. The header is assumed to have been validated.
func (v *Validator) ValidateBlockBody(ctx context.Context, blk *block.Block) error {
	if err := v.bodyWellFormed(blk); err != nil {
		return err
	}
	vdrs, err := v.validatorSet(ctx, blk.Header.Epoch)
	if err != nil {
		return err
	}
	if err := v.verifySignatures(ctx, vdrs, blk, false); err != nil {
		return err
	}
	if err := blk.VerifyCommitments(); err != nil {
		return invalid(err)
	}
	return v.checkBounds(blk)
}

// Validate runs every stage over [blk]. A nil [parent] returns
// ErrUnknownParent once the block is known to be well formed.
func (v *Validator) Validate(ctx context.Context, blk *block.Block, parent *block.Header) error {
	// 1. well-formedness
	if err := v.headerWellFormed(&blk.Header); err != nil {
		return err
	}
	if err := v.bodyWellFormed(blk); err != nil {
		return err
	}

	// 2. lineage
	if err := checkLineage(&blk.Header, parent); err != nil {
		return err
	}

	// 3. signatures
	vdrs, err := v.validatorSet(ctx, blk.Header.Epoch)
	if err != nil {
		return err
	}
	if err := v.verifySignatures(ctx, vdrs, blk, true); err != nil {
		return err
	}

	// 4. commitments
	if err := blk.VerifyCommitments(); err != nil {
		return invalid(err)
	}

	// 5. resource bounds
	if blk.Header.GasLimit > v.params.MaxBlockGas {
		return invalid(fmt.Errorf("%w: %d > %d", errBlockGasLimit, blk.Header.GasLimit, v.params.MaxBlockGas))
	}
	return v.checkBounds(blk)
}

func (v *Validator) headerWellFormed(h *block.Header) error {
	switch {
	case h.Height == 0:
		return invalid(errGenesis)
	case h.Producer == ids.EmptyNodeID:
		return invalid(errMissingProducer)
	case len(h.Signature) == 0:
		return invalid(errMissingSignature)
	}
	expectedEpoch, err := v.epochs.EpochOf(h.Height)
	if err != nil {
		return fmt.Errorf("couldn't get epoch of height %d: %w", h.Height, err)
	}
	if h.Epoch != expectedEpoch {
		return invalid(fmt.Errorf("%w: %d != %d", errWrongEpoch, h.Epoch, expectedEpoch))
	}
	return nil
}

func (v *Validator) bodyWellFormed(blk *block.Block) error {
	numShards, err := v.epochs.NumShards(blk.Header.Epoch)
	if err != nil {
		return fmt.Errorf("couldn't get shard count of epoch %d: %w", blk.Header.Epoch, err)
	}
	if uint64(len(blk.Chunks)) != uint64(numShards) {
		return invalid(fmt.Errorf("%w: %d != %d", errWrongChunkCount, len(blk.Chunks), numShards))
	}
	for i := range blk.Chunks {
		c := &blk.Chunks[i]
		switch {
		case c.ShardID != uint32(i):
			return invalid(fmt.Errorf("%w: chunk %d has shard %d", errWrongShard, i, c.ShardID))
		case c.Height != blk.Header.Height:
			return invalid(fmt.Errorf("%w: chunk %d at %d", errWrongChunkHeight, i, c.Height))
		case c.NumParts == 0:
			return invalid(fmt.Errorf("%w: chunk %d", errNoParts, i))
		case c.Producer == ids.EmptyNodeID:
			return invalid(fmt.Errorf("%w: chunk %d", errMissingProducer, i))
		case len(c.Signature) == 0:
			return invalid(fmt.Errorf("%w: chunk %d", errMissingSignature, i))
		}
	}
	var endorsers set.Set[ids.NodeID]
	for i := range blk.Endorsements {
		nodeID := blk.Endorsements[i].Validator
		if endorsers.Contains(nodeID) {
			return invalid(fmt.Errorf("%w: %s", errDuplicateEndorser, nodeID))
		}
		endorsers.Add(nodeID)
	}
	return nil
}

func checkLineage(h *block.Header, parent *block.Header) error {
	if parent == nil {
		return fmt.Errorf("%w: %s", ErrUnknownParent, h.ParentID)
	}
	if parentID := parent.ID(); h.ParentID != parentID {
		return invalid(fmt.Errorf("%w: %s != %s", errWrongParent, h.ParentID, parentID))
	}
	if h.Height != parent.Height+1 {
		return invalid(fmt.Errorf("%w: %d after %d", errWrongHeight, h.Height, parent.Height))
	}
	if h.Timestamp <= parent.Timestamp {
		return invalid(fmt.Errorf("%w: %d <= %d", errTimestampNotAfter, h.Timestamp, parent.Timestamp))
	}
	return nil
}

func (v *Validator) validatorSet(ctx context.Context, epochNumber uint64) (*epoch.ValidatorSet, error) {
	vdrs, err := v.epochs.ValidatorSet(ctx, epochNumber)
	if err != nil {
		return nil, fmt.Errorf("couldn't get validators of epoch %d: %w", epochNumber, err)
	}
	return vdrs, nil
}

func verifyProducer(vdrs *epoch.ValidatorSet, h *block.Header) error {
	vdr, ok := vdrs.Get(h.Producer)
	if !ok {
		return invalid(fmt.Errorf("%w: %s", errUnknownProducer, h.Producer))
	}
	if !h.Verify(vdr.PublicKey) {
		return invalid(fmt.Errorf("%w: header by %s", errInvalidSignature, h.Producer))
	}
	return nil
}

// verifySignatures checks every signature of [blk] in parallel. The error
// of the first failing signature in block order is reported.
func (v *Validator) verifySignatures(
	ctx context.Context,
	vdrs *epoch.ValidatorSet,
	blk *block.Block,
	includeHeader bool,
) error {
	var checks []func() error
	if includeHeader {
		checks = append(checks, func() error {
			return verifyProducer(vdrs, &blk.Header)
		})
	}
	for i := range blk.Chunks {
		c := &blk.Chunks[i]
		checks = append(checks, func() error {
			vdr, ok := vdrs.Get(c.Producer)
			if !ok {
				return invalid(fmt.Errorf("%w: chunk %d by %s", errUnknownProducer, c.ShardID, c.Producer))
			}
			if !c.Verify(vdr.PublicKey) {
				return invalid(fmt.Errorf("%w: chunk %d by %s", errInvalidSignature, c.ShardID, c.Producer))
			}
			return nil
		})
	}
	msg := block.EndorsementMessage(blk.Header.ParentID)
	for i := range blk.Endorsements {
		e := &blk.Endorsements[i]
		checks = append(checks, func() error {
			vdr, ok := vdrs.Get(e.Validator)
			if !ok {
				return invalid(fmt.Errorf("%w: %s", errUnknownEndorser, e.Validator))
			}
			if !bls.VerifyBytes(vdr.PublicKey, e.Signature, msg) {
				return invalid(fmt.Errorf("%w: endorsement by %s", errInvalidSignature, e.Validator))
			}
			return nil
		})
	}

	var (
		errs = make([]error, len(checks))
		eg   errgroup.Group
	)
	eg.SetLimit(v.workers)
	for i, check := range checks {
		i, check := i, check
		if err := ctx.Err(); err != nil {
			return err
		}
		eg.Go(func() error {
			errs[i] = check()
			return nil
		})
	}
	_ = eg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) checkBounds(blk *block.Block) error {
	gas := block.NewGasCounter(blk.Header.GasLimit)
	for i := range blk.Chunks {
		c := &blk.Chunks[i]
		switch {
		case c.GasLimit > v.params.MaxChunkGas:
			return invalid(fmt.Errorf("%w: chunk %d %d > %d", errChunkGasLimit, i, c.GasLimit, v.params.MaxChunkGas))
		case c.BodySize > v.params.MaxChunkBodySize:
			return invalid(fmt.Errorf("%w: chunk %d %d > %d", errChunkBodySize, i, c.BodySize, v.params.MaxChunkBodySize))
		case c.NumParts > v.params.MaxChunkParts:
			return invalid(fmt.Errorf("%w: chunk %d %d > %d", errTooManyParts, i, c.NumParts, v.params.MaxChunkParts))
		}
		if err := gas.Consume(c.GasLimit); err != nil {
			return invalid(fmt.Errorf("%w: %w", errTotalChunkGas, err))
		}
	}
	if size := uint64(len(blk.Bytes())); size > v.params.MaxBlockSize {
		return invalid(fmt.Errorf("%w: %d > %d", errBlockSize, size, v.params.MaxBlockSize))
	}
	return nil
}
