// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/crypto/bls"
	"github.com/ava-labs/shardchain/utils/hashing"
)

var (
	ErrNoParts              = errors.New("chunk must have at least one part")
	ErrPartIndex            = errors.New("part index out of range")
	ErrPartSize             = errors.New("unexpected part size")
	ErrPartProof            = errors.New("part proof does not match parts root")
	ErrPartMismatch         = errors.New("part does not belong to chunk")
	ErrBodySize             = errors.New("body size mismatch")
	ErrBodyRootMismatch     = errors.New("body does not hash to body root")
	ErrReceiptsRootMismatch = errors.New("receipts do not hash to receipts root")
	ErrPartsRootMismatch    = errors.New("parts do not hash to parts root")
	ErrMalformedBody        = errors.New("malformed chunk body")
)

// ChunkHeader commits to one shard's contribution to a block.
type ChunkHeader struct {
	ShardID uint32
	Height  uint64
	// PrevStateRoot is the shard state root before the chunk is applied.
	PrevStateRoot ids.ID
	ReceiptsRoot  ids.ID
	// BodyRoot is the hash of the rlp encoded body.
	BodyRoot ids.ID
	// PartsRoot is the merkle root over the hashes of the body's parts.
	PartsRoot ids.ID
	NumParts  uint32
	BodySize  uint64
	GasLimit  uint64
	Producer  ids.NodeID
	Signature []byte
}

type unsignedChunkHeader struct {
	ShardID       uint32
	Height        uint64
	PrevStateRoot ids.ID
	ReceiptsRoot  ids.ID
	BodyRoot      ids.ID
	PartsRoot     ids.ID
	NumParts      uint32
	BodySize      uint64
	GasLimit      uint64
	Producer      ids.NodeID
}

func (h *ChunkHeader) ID() ids.ID {
	bytes, err := rlp.EncodeToBytes(h)
	if err != nil {
		panic(err)
	}
	return hashing.ComputeHash256Array(bytes)
}

func (h *ChunkHeader) UnsignedID() ids.ID {
	bytes, err := rlp.EncodeToBytes(&unsignedChunkHeader{
		ShardID:       h.ShardID,
		Height:        h.Height,
		PrevStateRoot: h.PrevStateRoot,
		ReceiptsRoot:  h.ReceiptsRoot,
		BodyRoot:      h.BodyRoot,
		PartsRoot:     h.PartsRoot,
		NumParts:      h.NumParts,
		BodySize:      h.BodySize,
		GasLimit:      h.GasLimit,
		Producer:      h.Producer,
	})
	if err != nil {
		panic(err)
	}
	return hashing.ComputeHash256Array(bytes)
}

func (h *ChunkHeader) Sign(signer bls.Signer) {
	h.Producer = ids.NodeIDFromPublicKey(bls.PublicKeyToBytes(signer.PublicKey()))
	unsignedID := h.UnsignedID()
	h.Signature = signer.Sign(unsignedID[:])
}

func (h *ChunkHeader) Verify(pk *bls.PublicKey) bool {
	unsignedID := h.UnsignedID()
	return bls.VerifyBytes(pk, h.Signature, unsignedID[:])
}

// PartSize is the length of every part of the chunk's encoded body. The last
// part is zero padded.
func (h *ChunkHeader) PartSize() uint64 {
	if h.NumParts == 0 {
		return 0
	}
	n := uint64(h.NumParts)
	size := (h.BodySize + n - 1) / n
	if size == 0 {
		size = 1
	}
	return size
}

// VerifyPart checks that [part] is the part of this chunk it claims to be.
func (h *ChunkHeader) VerifyPart(part *ChunkPart) error {
	switch {
	case h.NumParts == 0:
		return ErrNoParts
	case part.ShardID != h.ShardID || part.Height != h.Height:
		return fmt.Errorf("%w: shard %d height %d", ErrPartMismatch, part.ShardID, part.Height)
	case part.Index >= h.NumParts:
		return fmt.Errorf("%w: %d >= %d", ErrPartIndex, part.Index, h.NumParts)
	case uint64(len(part.Data)) != h.PartSize():
		return fmt.Errorf("%w: %d != %d", ErrPartSize, len(part.Data), h.PartSize())
	}
	if !VerifyMerkleProof(h.PartsRoot, LeafHash(part.Data), int(part.Index), int(h.NumParts), part.Proof) {
		return ErrPartProof
	}
	return nil
}

// Body is the content of a chunk.
type Body struct {
	Transactions [][]byte
	Receipts     [][]byte
}

func (b *Body) Bytes() []byte {
	bytes, err := rlp.EncodeToBytes(b)
	if err != nil {
		panic(err)
	}
	return bytes
}

// ReceiptsRoot is the hash of the rlp encoded receipts list.
func ReceiptsRoot(receipts [][]byte) ids.ID {
	bytes, err := rlp.EncodeToBytes(receipts)
	if err != nil {
		panic(err)
	}
	return hashing.ComputeHash256Array(bytes)
}

// Chunk is a chunk header together with its body.
type Chunk struct {
	Header ChunkHeader
	Body   Body
}

func (c *Chunk) ID() ids.ID {
	return c.Header.ID()
}

// NewChunk builds an unsigned chunk whose header commits to [body] split
// into [numParts] parts.
func NewChunk(
	shardID uint32,
	height uint64,
	prevStateRoot ids.ID,
	gasLimit uint64,
	numParts uint32,
	body Body,
) (*Chunk, error) {
	if numParts == 0 {
		return nil, ErrNoParts
	}
	encoded := body.Bytes()
	header := ChunkHeader{
		ShardID:       shardID,
		Height:        height,
		PrevStateRoot: prevStateRoot,
		ReceiptsRoot:  ReceiptsRoot(body.Receipts),
		BodyRoot:      hashing.ComputeHash256Array(encoded),
		NumParts:      numParts,
		BodySize:      uint64(len(encoded)),
		GasLimit:      gasLimit,
	}
	header.PartsRoot = MerkleRoot(partLeaves(splitParts(encoded, &header)))
	return &Chunk{
		Header: header,
		Body:   body,
	}, nil
}

// Verify checks that the body matches every commitment in the header.
func (c *Chunk) Verify() error {
	h := &c.Header
	if h.NumParts == 0 {
		return ErrNoParts
	}
	encoded := c.Body.Bytes()
	if uint64(len(encoded)) != h.BodySize {
		return fmt.Errorf("%w: %d != %d", ErrBodySize, len(encoded), h.BodySize)
	}
	if hashing.ComputeHash256Array(encoded) != h.BodyRoot {
		return ErrBodyRootMismatch
	}
	if ReceiptsRoot(c.Body.Receipts) != h.ReceiptsRoot {
		return ErrReceiptsRootMismatch
	}
	if MerkleRoot(partLeaves(splitParts(encoded, h))) != h.PartsRoot {
		return ErrPartsRootMismatch
	}
	return nil
}

// Parts splits the chunk into proven parts attributed to [source].
func (c *Chunk) Parts(source ids.NodeID) ([]*ChunkPart, error) {
	h := &c.Header
	if h.NumParts == 0 {
		return nil, ErrNoParts
	}
	var (
		chunkID = h.ID()
		data    = splitParts(c.Body.Bytes(), h)
		leaves  = partLeaves(data)
		parts   = make([]*ChunkPart, len(data))
	)
	for i, d := range data {
		proof, err := MerkleProof(leaves, i)
		if err != nil {
			return nil, err
		}
		parts[i] = &ChunkPart{
			ChunkID: chunkID,
			ShardID: h.ShardID,
			Height:  h.Height,
			Index:   uint32(i),
			Data:    d,
			Proof:   proof,
			Source:  source,
		}
	}
	return parts, nil
}

// AssembleBody joins the ordered part data of a chunk and checks the result
// against the header's body and receipts commitments.
func AssembleBody(h *ChunkHeader, data [][]byte) (Body, error) {
	if uint32(len(data)) != h.NumParts {
		return Body{}, fmt.Errorf("%w: have %d parts, want %d", ErrPartIndex, len(data), h.NumParts)
	}
	encoded := bytes.Join(data, nil)
	if uint64(len(encoded)) < h.BodySize {
		return Body{}, fmt.Errorf("%w: %d < %d", ErrBodySize, len(encoded), h.BodySize)
	}
	encoded = encoded[:h.BodySize]
	if hashing.ComputeHash256Array(encoded) != h.BodyRoot {
		return Body{}, ErrBodyRootMismatch
	}

	var body Body
	if err := rlp.DecodeBytes(encoded, &body); err != nil {
		return Body{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if ReceiptsRoot(body.Receipts) != h.ReceiptsRoot {
		return Body{}, ErrReceiptsRootMismatch
	}
	return body, nil
}

func splitParts(encoded []byte, h *ChunkHeader) [][]byte {
	var (
		size   = h.PartSize()
		padded = make([]byte, size*uint64(h.NumParts))
		parts  = make([][]byte, h.NumParts)
	)
	copy(padded, encoded)
	for i := range parts {
		start := uint64(i) * size
		parts[i] = padded[start : start+size : start+size]
	}
	return parts
}

func partLeaves(parts [][]byte) []ids.ID {
	leaves := make([]ids.ID, len(parts))
	for i, p := range parts {
		leaves[i] = LeafHash(p)
	}
	return leaves
}

// ChunkPart is one fragment of a chunk's encoded body, proven against the
// chunk header's PartsRoot.
type ChunkPart struct {
	ChunkID ids.ID
	ShardID uint32
	Height  uint64
	Index   uint32
	Data    []byte
	Proof   []ids.ID
	// Source is the peer the part was received from.
	Source ids.NodeID
}
