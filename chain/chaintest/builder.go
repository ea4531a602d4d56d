// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chaintest builds signed chains of blocks for tests.
package chaintest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/epoch"
	"github.com/ava-labs/shardchain/chain/executor/executortest"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/crypto/bls"
)

const (
	Weight        = 100
	ChunkGasLimit = 1_000
	NumParts      = 3
)

var errUnknownParent = errors.New("unknown parent")

// NewSigner returns a deterministic signer derived from [seed].
func NewSigner(seed byte) (*bls.LocalSigner, error) {
	s := make([]byte, 32)
	for i := range s {
		s[i] = seed
	}
	sk, err := bls.SecretKeyFromSeed(s)
	if err != nil {
		return nil, err
	}
	return bls.NewLocalSigner(sk), nil
}

// NodeID returns the node ID [signer] signs as.
func NodeID(signer bls.Signer) ids.NodeID {
	return ids.NodeIDFromPublicKey(bls.PublicKeyToBytes(signer.PublicKey()))
}

// Builder produces valid blocks over a fixed validator set. Post states are
// the ones executortest.VM reaches.
type Builder struct {
	Signers           []*bls.LocalSigner
	Validators        *epoch.ValidatorSet
	Epochs            *epoch.Static
	NumShards         uint32
	Genesis           *block.Block
	GenesisShardRoots []ids.ID

	lock       sync.Mutex
	nonce      uint64
	chunks     map[ids.ID]*block.Chunk
	shardRoots map[ids.ID][]ids.ID
}

func NewBuilder(numValidators int, numShards uint32, epochLength uint64) (*Builder, error) {
	b := &Builder{
		Signers:           make([]*bls.LocalSigner, numValidators),
		NumShards:         numShards,
		GenesisShardRoots: make([]ids.ID, numShards),
		chunks:            make(map[ids.ID]*block.Chunk),
		shardRoots:        make(map[ids.ID][]ids.ID),
	}
	vdrs := make([]*epoch.Validator, numValidators)
	for i := range b.Signers {
		signer, err := NewSigner(byte(i + 1))
		if err != nil {
			return nil, err
		}
		b.Signers[i] = signer
		vdrs[i] = &epoch.Validator{
			NodeID:    NodeID(signer),
			PublicKey: signer.PublicKey(),
			Weight:    Weight,
		}
	}

	var err error
	b.Validators, err = epoch.NewValidatorSet(vdrs...)
	if err != nil {
		return nil, err
	}
	b.Epochs, err = epoch.NewStatic(epochLength, numShards, b.Validators)
	if err != nil {
		return nil, err
	}

	for i := range b.GenesisShardRoots {
		b.GenesisShardRoots[i] = ids.ID{'s', 'h', 'a', 'r', 'd', byte(i)}
	}
	b.Genesis, err = block.Genesis(0, b.GenesisShardRoots)
	if err != nil {
		return nil, err
	}
	b.shardRoots[b.Genesis.ID()] = b.GenesisShardRoots
	return b, nil
}

// NodeID returns the node ID of validator [i].
func (b *Builder) NodeID(i int) ids.NodeID {
	return NodeID(b.Signers[i])
}

type options struct {
	producer     int
	endorsers    []int
	allEndorse   bool
	timestamp    uint64
	transactions [][]byte
	modify       func(*block.Header)
}

type Option func(*options)

// WithProducer has validator [i] sign the header.
func WithProducer(i int) Option {
	return func(o *options) {
		o.producer = i
	}
}

// WithEndorsers has only the listed validators endorse the parent. By default
// every validator does.
func WithEndorsers(indices ...int) Option {
	return func(o *options) {
		o.allEndorse = false
		o.endorsers = indices
	}
}

func WithTimestamp(timestamp uint64) Option {
	return func(o *options) {
		o.timestamp = timestamp
	}
}

// WithTransactions sets the transactions of every chunk.
func WithTransactions(txs ...[]byte) Option {
	return func(o *options) {
		o.transactions = txs
	}
}

// WithHeader modifies the header before it is signed.
func WithHeader(f func(*block.Header)) Option {
	return func(o *options) {
		o.modify = f
	}
}

// Build returns a signed child of [parent]. Blocks built by separate calls
// always differ.
func (b *Builder) Build(parent *block.Block, opts ...Option) (*block.Block, error) {
	o := options{
		allEndorse: true,
		timestamp:  parent.Header.Timestamp + 1,
	}
	for _, opt := range opts {
		opt(&o)
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	prior, ok := b.shardRoots[parent.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownParent, parent.ID())
	}
	b.nonce++

	height := parent.Height() + 1
	epochNumber, err := b.Epochs.EpochOf(height)
	if err != nil {
		return nil, err
	}

	var (
		chunkHeaders = make([]block.ChunkHeader, b.NumShards)
		post         = make([]ids.ID, b.NumShards)
	)
	for i := range chunkHeaders {
		shardID := uint32(i)
		txs := o.transactions
		if txs == nil {
			txs = [][]byte{
				binary.BigEndian.AppendUint64([]byte{byte(shardID)}, b.nonce),
			}
		}
		body := block.Body{
			Transactions: txs,
			Receipts:     [][]byte{{byte(shardID)}},
		}
		chunk, err := block.NewChunk(shardID, height, prior[i], ChunkGasLimit, NumParts, body)
		if err != nil {
			return nil, err
		}
		chunk.Header.Sign(b.Signers[(o.producer+i)%len(b.Signers)])
		b.chunks[chunk.ID()] = chunk

		chunkHeaders[i] = chunk.Header
		post[i] = executortest.NextStateRoot(shardID, prior[i], &chunk.Body)
	}

	var endorsements []block.Endorsement
	if o.allEndorse {
		for _, signer := range b.Signers {
			endorsements = append(endorsements, block.Endorse(signer, parent.ID()))
		}
	} else {
		for _, i := range o.endorsers {
			endorsements = append(endorsements, block.Endorse(b.Signers[i], parent.ID()))
		}
	}

	header := block.Header{
		Height:          height,
		ParentID:        parent.ID(),
		Epoch:           epochNumber,
		StateRoot:       block.StateRoot(post),
		ChunkRoot:       block.ChunkRoot(chunkHeaders),
		EndorsementRoot: block.EndorsementRoot(endorsements),
		Timestamp:       o.timestamp,
		GasLimit:        uint64(b.NumShards) * ChunkGasLimit,
	}
	if o.modify != nil {
		o.modify(&header)
	}
	header.Sign(b.Signers[o.producer])

	blk, err := block.New(header, chunkHeaders, endorsements)
	if err != nil {
		return nil, err
	}
	b.shardRoots[blk.ID()] = post
	return blk, nil
}

// Chain returns [length] blocks extending [parent], each the child of the
// previous one.
func (b *Builder) Chain(parent *block.Block, length int, opts ...Option) ([]*block.Block, error) {
	blks := make([]*block.Block, length)
	for i := range blks {
		blk, err := b.Build(parent, opts...)
		if err != nil {
			return nil, err
		}
		blks[i] = blk
		parent = blk
	}
	return blks, nil
}

// Chunk returns a chunk produced by the builder.
func (b *Builder) Chunk(chunkID ids.ID) (*block.Chunk, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	chunk, ok := b.chunks[chunkID]
	return chunk, ok
}

// Chunks returns the full chunks referenced by [blk] in shard order.
func (b *Builder) Chunks(blk *block.Block) []*block.Chunk {
	b.lock.Lock()
	defer b.lock.Unlock()

	chunks := make([]*block.Chunk, 0, len(blk.Chunks))
	for _, chunkID := range blk.ChunkIDs() {
		if chunk, ok := b.chunks[chunkID]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// ShardRoots returns the shard states after [blkID] is applied.
func (b *Builder) ShardRoots(blkID ids.ID) ([]ids.ID, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	roots, ok := b.shardRoots[blkID]
	return roots, ok
}

// Resign replaces the header of [blk] with [modify]'d copy signed by
// validator [producer].
func (b *Builder) Resign(blk *block.Block, producer int, modify func(*block.Header)) (*block.Block, error) {
	header := blk.Header
	modify(&header)
	header.Sign(b.Signers[producer])
	return b.replaceHeader(blk, header)
}

// Tamper replaces the header of [blk] with [modify]'d copy without signing
// it again.
func (b *Builder) Tamper(blk *block.Block, modify func(*block.Header)) (*block.Block, error) {
	header := blk.Header
	modify(&header)
	return b.replaceHeader(blk, header)
}

// replaceHeader returns [blk] with [header]. Children of the result can be
// built as if it were [blk].
func (b *Builder) replaceHeader(blk *block.Block, header block.Header) (*block.Block, error) {
	replaced, err := block.New(header, blk.Chunks, blk.Endorsements)
	if err != nil {
		return nil, err
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if roots, ok := b.shardRoots[blk.ID()]; ok {
		b.shardRoots[replaced.ID()] = roots
	}
	return replaced, nil
}
