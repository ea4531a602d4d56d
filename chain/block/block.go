// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/crypto/bls"
	"github.com/ava-labs/shardchain/utils/hashing"
)

const endorsementDomain = "shardchain-endorsement"

var (
	ErrChunkRootMismatch       = errors.New("chunk root mismatch")
	ErrEndorsementRootMismatch = errors.New("endorsement root mismatch")
)

// Endorsement is a validator's signature over the id of the block's parent.
type Endorsement struct {
	Validator ids.NodeID
	Signature []byte
}

func (e *Endorsement) ID() ids.ID {
	bytes, err := rlp.EncodeToBytes(e)
	if err != nil {
		panic(err)
	}
	return hashing.ComputeHash256Array(bytes)
}

// EndorsementMessage is the message a validator signs to endorse [blkID].
func EndorsementMessage(blkID ids.ID) []byte {
	msg := make([]byte, 0, len(endorsementDomain)+ids.IDLen)
	msg = append(msg, endorsementDomain...)
	return append(msg, blkID[:]...)
}

// Endorse returns [signer]'s endorsement of [blkID].
func Endorse(signer bls.Signer, blkID ids.ID) Endorsement {
	return Endorsement{
		Validator: ids.NodeIDFromPublicKey(bls.PublicKeyToBytes(signer.PublicKey())),
		Signature: signer.Sign(EndorsementMessage(blkID)),
	}
}

// Block is an immutable header together with the chunk headers and
// endorsements it commits to. Chunks[i] is the chunk of shard i.
type Block struct {
	Header       Header
	Chunks       []ChunkHeader
	Endorsements []Endorsement

	id    ids.ID
	bytes []byte
}

// New returns a block over the provided contents. The header is expected to
// already commit to [chunks] and [endorsements].
func New(header Header, chunks []ChunkHeader, endorsements []Endorsement) (*Block, error) {
	blk := &Block{
		Header:       header,
		Chunks:       chunks,
		Endorsements: endorsements,
	}
	bytes, err := rlp.EncodeToBytes(blk)
	if err != nil {
		return nil, err
	}
	blk.initialize(bytes)
	return blk, nil
}

// Parse decodes a block from its canonical encoding.
func Parse(bytes []byte) (*Block, error) {
	blk := &Block{}
	if err := rlp.DecodeBytes(bytes, blk); err != nil {
		return nil, fmt.Errorf("couldn't parse block: %w", err)
	}
	blk.initialize(bytes)
	return blk, nil
}

func (b *Block) initialize(bytes []byte) {
	b.bytes = bytes
	b.id = b.Header.ID()
}

func (b *Block) ID() ids.ID {
	return b.id
}

func (b *Block) Parent() ids.ID {
	return b.Header.ParentID
}

func (b *Block) Height() uint64 {
	return b.Header.Height
}

func (b *Block) Bytes() []byte {
	return b.bytes
}

func (b *Block) String() string {
	return fmt.Sprintf("%s@%d", b.id, b.Header.Height)
}

// ChunkIDs returns the ids of the block's chunk headers in shard order.
func (b *Block) ChunkIDs() []ids.ID {
	chunkIDs := make([]ids.ID, len(b.Chunks))
	for i := range b.Chunks {
		chunkIDs[i] = b.Chunks[i].ID()
	}
	return chunkIDs
}

// VerifyCommitments returns nil if the header's chunk and endorsement roots
// commit to the block's contents.
func (b *Block) VerifyCommitments() error {
	if ChunkRoot(b.Chunks) != b.Header.ChunkRoot {
		return ErrChunkRootMismatch
	}
	if EndorsementRoot(b.Endorsements) != b.Header.EndorsementRoot {
		return ErrEndorsementRootMismatch
	}
	return nil
}

func ChunkRoot(chunks []ChunkHeader) ids.ID {
	leaves := make([]ids.ID, len(chunks))
	for i := range chunks {
		leaves[i] = chunks[i].ID()
	}
	return MerkleRoot(leaves)
}

func EndorsementRoot(endorsements []Endorsement) ids.ID {
	leaves := make([]ids.ID, len(endorsements))
	for i := range endorsements {
		leaves[i] = endorsements[i].ID()
	}
	return MerkleRoot(leaves)
}

// StateRoot combines per-shard state roots into the root carried by block
// headers.
func StateRoot(shardRoots []ids.ID) ids.ID {
	return MerkleRoot(shardRoots)
}

// Genesis returns the unsigned block at height 0 over the initial shard
// states.
func Genesis(timestamp uint64, shardRoots []ids.ID) (*Block, error) {
	return New(
		Header{
			StateRoot:       StateRoot(shardRoots),
			ChunkRoot:       ChunkRoot(nil),
			EndorsementRoot: EndorsementRoot(nil),
			Timestamp:       timestamp,
		},
		nil,
		nil,
	)
}
