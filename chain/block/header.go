// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/crypto/bls"
	"github.com/ava-labs/shardchain/utils/hashing"
)

// Header is the signed summary of a block. Everything else in the block is
// bound to it through ChunkRoot and EndorsementRoot.
type Header struct {
	Height          uint64
	ParentID        ids.ID
	Epoch           uint64
	StateRoot       ids.ID
	ChunkRoot       ids.ID
	EndorsementRoot ids.ID
	// Timestamp is in unix nanoseconds.
	Timestamp uint64
	GasLimit  uint64
	Producer  ids.NodeID
	Signature []byte
}

type unsignedHeader struct {
	Height          uint64
	ParentID        ids.ID
	Epoch           uint64
	StateRoot       ids.ID
	ChunkRoot       ids.ID
	EndorsementRoot ids.ID
	Timestamp       uint64
	GasLimit        uint64
	Producer        ids.NodeID
}

// ID is the hash of the full header, signature included.
func (h *Header) ID() ids.ID {
	return hashing.ComputeHash256Array(h.Bytes())
}

// UnsignedID is the hash the producer signs.
func (h *Header) UnsignedID() ids.ID {
	bytes, err := rlp.EncodeToBytes(&unsignedHeader{
		Height:          h.Height,
		ParentID:        h.ParentID,
		Epoch:           h.Epoch,
		StateRoot:       h.StateRoot,
		ChunkRoot:       h.ChunkRoot,
		EndorsementRoot: h.EndorsementRoot,
		Timestamp:       h.Timestamp,
		GasLimit:        h.GasLimit,
		Producer:        h.Producer,
	})
	if err != nil {
		// Every field has a fixed rlp encoding.
		panic(err)
	}
	return hashing.ComputeHash256Array(bytes)
}

func (h *Header) Bytes() []byte {
	bytes, err := rlp.EncodeToBytes(h)
	if err != nil {
		panic(err)
	}
	return bytes
}

// Sign sets the producer to the signer's node ID and signs the header.
func (h *Header) Sign(signer bls.Signer) {
	h.Producer = ids.NodeIDFromPublicKey(bls.PublicKeyToBytes(signer.PublicKey()))
	unsignedID := h.UnsignedID()
	h.Signature = signer.Sign(unsignedID[:])
}

// Verify returns true if the header carries a valid signature by [pk].
func (h *Header) Verify(pk *bls.PublicKey) bool {
	unsignedID := h.UnsignedID()
	return bls.VerifyBytes(pk, h.Signature, unsignedID[:])
}
