// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/crypto/bls"
)

func newTestSigner(t *testing.T, seed byte) *bls.LocalSigner {
	t.Helper()

	s := make([]byte, 32)
	for i := range s {
		s[i] = seed
	}
	sk, err := bls.SecretKeyFromSeed(s)
	require.NoError(t, err)
	return bls.NewLocalSigner(sk)
}

func testBody() Body {
	return Body{
		Transactions: [][]byte{{1, 2, 3}, {4, 5}, []byte("a longer transaction payload")},
		Receipts:     [][]byte{{9}},
	}
}

func TestHeaderSignVerify(t *testing.T) {
	require := require.New(t)

	signer := newTestSigner(t, 1)
	other := newTestSigner(t, 2)

	h := &Header{
		Height:    7,
		ParentID:  ids.GenerateTestID(),
		Epoch:     1,
		StateRoot: ids.GenerateTestID(),
		Timestamp: 1000,
		GasLimit:  10,
	}
	unsignedID := h.UnsignedID()
	h.Sign(signer)

	require.Equal(ids.NodeIDFromPublicKey(bls.PublicKeyToBytes(signer.PublicKey())), h.Producer)
	require.NotEqual(unsignedID, h.UnsignedID(), "producer is part of the signed payload")
	require.True(h.Verify(signer.PublicKey()))
	require.False(h.Verify(other.PublicKey()))

	// The id commits to the signature while the unsigned id does not.
	signedID := h.ID()
	unsignedID = h.UnsignedID()
	h.Signature = other.Sign(unsignedID[:])
	require.NotEqual(signedID, h.ID())
	require.Equal(unsignedID, h.UnsignedID())
	require.False(h.Verify(signer.PublicKey()))

	h.Timestamp++
	require.NotEqual(unsignedID, h.UnsignedID())
}

func TestBlockParse(t *testing.T) {
	require := require.New(t)

	signer := newTestSigner(t, 1)
	chunk, err := NewChunk(0, 1, ids.GenerateTestID(), 100, 3, testBody())
	require.NoError(err)
	chunk.Header.Sign(signer)

	parentID := ids.GenerateTestID()
	endorsements := []Endorsement{Endorse(signer, parentID)}
	chunks := []ChunkHeader{chunk.Header}
	header := Header{
		Height:          1,
		ParentID:        parentID,
		ChunkRoot:       ChunkRoot(chunks),
		EndorsementRoot: EndorsementRoot(endorsements),
		Timestamp:       5,
		GasLimit:        100,
	}
	header.Sign(signer)

	blk, err := New(header, chunks, endorsements)
	require.NoError(err)
	require.Equal(header.ID(), blk.ID())
	require.Equal(parentID, blk.Parent())
	require.Equal(uint64(1), blk.Height())
	require.NoError(blk.VerifyCommitments())
	require.Equal([]ids.ID{chunk.ID()}, blk.ChunkIDs())

	parsed, err := Parse(blk.Bytes())
	require.NoError(err)
	require.Equal(blk.ID(), parsed.ID())
	require.Equal(blk.Bytes(), parsed.Bytes())
	require.Equal(blk.Header, parsed.Header)
	require.Equal(blk.Chunks, parsed.Chunks)
	require.Equal(blk.Endorsements, parsed.Endorsements)

	_, err = Parse(blk.Bytes()[:len(blk.Bytes())-1])
	require.Error(err) //nolint:forbidigo // rlp errors are not exported sentinels
}

func TestBlockVerifyCommitments(t *testing.T) {
	signer := newTestSigner(t, 3)
	parentID := ids.GenerateTestID()
	chunk, err := NewChunk(0, 1, ids.Empty, 0, 1, testBody())
	require.NoError(t, err)

	chunks := []ChunkHeader{chunk.Header}
	endorsements := []Endorsement{Endorse(signer, parentID)}

	tests := []struct {
		name         string
		chunks       []ChunkHeader
		endorsements []Endorsement
		expectedErr  error
	}{
		{
			name:         "matching",
			chunks:       chunks,
			endorsements: endorsements,
		},
		{
			name:         "missing chunk",
			endorsements: endorsements,
			expectedErr:  ErrChunkRootMismatch,
		},
		{
			name:        "missing endorsement",
			chunks:      chunks,
			expectedErr: ErrEndorsementRootMismatch,
		},
		{
			name:         "extra endorsement",
			chunks:       chunks,
			endorsements: append([]Endorsement{Endorse(newTestSigner(t, 4), parentID)}, endorsements...),
			expectedErr:  ErrEndorsementRootMismatch,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			blk, err := New(Header{
				Height:          1,
				ParentID:        parentID,
				ChunkRoot:       ChunkRoot(chunks),
				EndorsementRoot: EndorsementRoot(endorsements),
			}, test.chunks, test.endorsements)
			require.NoError(t, err)
			require.ErrorIs(t, blk.VerifyCommitments(), test.expectedErr)
		})
	}
}

func TestEndorse(t *testing.T) {
	require := require.New(t)

	signer := newTestSigner(t, 5)
	blkID := ids.GenerateTestID()
	e := Endorse(signer, blkID)
	require.Equal(ids.NodeIDFromPublicKey(bls.PublicKeyToBytes(signer.PublicKey())), e.Validator)
	require.True(bls.VerifyBytes(signer.PublicKey(), e.Signature, EndorsementMessage(blkID)))
	require.False(bls.VerifyBytes(signer.PublicKey(), e.Signature, EndorsementMessage(ids.GenerateTestID())))
}

func TestGenesis(t *testing.T) {
	require := require.New(t)

	roots := []ids.ID{ids.GenerateTestID(), ids.GenerateTestID()}
	genesis, err := Genesis(10, roots)
	require.NoError(err)
	require.Zero(genesis.Height())
	require.Equal(ids.Empty, genesis.Parent())
	require.Equal(StateRoot(roots), genesis.Header.StateRoot)
	require.NoError(genesis.VerifyCommitments())

	again, err := Genesis(10, roots)
	require.NoError(err)
	require.Equal(genesis.ID(), again.ID())
}

func TestChunkPartsRoundTrip(t *testing.T) {
	for _, numParts := range []uint32{1, 2, 3, 5, 16} {
		require := require.New(t)

		chunk, err := NewChunk(1, 9, ids.GenerateTestID(), 50, numParts, testBody())
		require.NoError(err)
		require.NoError(chunk.Verify())

		source := ids.GenerateTestNodeID()
		parts, err := chunk.Parts(source)
		require.NoError(err)
		require.Len(parts, int(numParts))

		data := make([][]byte, len(parts))
		for i, part := range parts {
			require.Equal(chunk.ID(), part.ChunkID)
			require.Equal(source, part.Source)
			require.NoError(chunk.Header.VerifyPart(part))
			data[i] = part.Data
		}

		body, err := AssembleBody(&chunk.Header, data)
		require.NoError(err)
		require.Equal(chunk.Body, body)
	}
}

func TestVerifyPart(t *testing.T) {
	chunk, err := NewChunk(2, 4, ids.GenerateTestID(), 50, 4, testBody())
	require.NoError(t, err)
	parts, err := chunk.Parts(ids.GenerateTestNodeID())
	require.NoError(t, err)

	tests := []struct {
		name        string
		modify      func(p *ChunkPart)
		expectedErr error
	}{
		{
			name:   "valid",
			modify: func(*ChunkPart) {},
		},
		{
			name: "wrong shard",
			modify: func(p *ChunkPart) {
				p.ShardID++
			},
			expectedErr: ErrPartMismatch,
		},
		{
			name: "index out of range",
			modify: func(p *ChunkPart) {
				p.Index = 4
			},
			expectedErr: ErrPartIndex,
		},
		{
			name: "truncated data",
			modify: func(p *ChunkPart) {
				p.Data = p.Data[1:]
			},
			expectedErr: ErrPartSize,
		},
		{
			name: "flipped byte",
			modify: func(p *ChunkPart) {
				p.Data[0] ^= 0xff
			},
			expectedErr: ErrPartProof,
		},
		{
			name: "proof of another part",
			modify: func(p *ChunkPart) {
				p.Proof = parts[2].Proof
			},
			expectedErr: ErrPartProof,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			part := *parts[1]
			part.Data = append([]byte{}, part.Data...)
			test.modify(&part)
			require.ErrorIs(t, chunk.Header.VerifyPart(&part), test.expectedErr)
		})
	}
}

func TestChunkVerify(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(c *Chunk)
		expectedErr error
	}{
		{
			name:   "valid",
			modify: func(*Chunk) {},
		},
		{
			name: "no parts",
			modify: func(c *Chunk) {
				c.Header.NumParts = 0
			},
			expectedErr: ErrNoParts,
		},
		{
			name: "extra transaction",
			modify: func(c *Chunk) {
				c.Body.Transactions = append(c.Body.Transactions, []byte{7})
			},
			expectedErr: ErrBodySize,
		},
		{
			name: "changed transaction",
			modify: func(c *Chunk) {
				c.Body.Transactions[0] = []byte{3, 2, 1}
			},
			expectedErr: ErrBodyRootMismatch,
		},
		{
			name: "wrong receipts root",
			modify: func(c *Chunk) {
				c.Header.ReceiptsRoot = ids.GenerateTestID()
			},
			expectedErr: ErrReceiptsRootMismatch,
		},
		{
			name: "wrong parts root",
			modify: func(c *Chunk) {
				c.Header.PartsRoot = ids.GenerateTestID()
			},
			expectedErr: ErrPartsRootMismatch,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			chunk, err := NewChunk(0, 1, ids.Empty, 0, 3, testBody())
			require.NoError(t, err)
			test.modify(chunk)
			require.ErrorIs(t, chunk.Verify(), test.expectedErr)
		})
	}
}

func TestAssembleBodyRejectsTamperedData(t *testing.T) {
	require := require.New(t)

	chunk, err := NewChunk(0, 1, ids.Empty, 0, 2, testBody())
	require.NoError(err)
	parts, err := chunk.Parts(ids.EmptyNodeID)
	require.NoError(err)

	data := [][]byte{
		append([]byte{}, parts[0].Data...),
		append([]byte{}, parts[1].Data...),
	}
	data[0][2] ^= 1
	_, err = AssembleBody(&chunk.Header, data)
	require.ErrorIs(err, ErrBodyRootMismatch)

	_, err = AssembleBody(&chunk.Header, data[:1])
	require.ErrorIs(err, ErrPartIndex)
}

func TestNewChunkWithoutParts(t *testing.T) {
	_, err := NewChunk(0, 1, ids.Empty, 0, 0, testBody())
	require.ErrorIs(t, err, ErrNoParts)
}

func TestParamsVerify(t *testing.T) {
	require := require.New(t)

	require.NoError(DefaultParams().Verify())

	p := DefaultParams()
	p.MaxChunkParts = 0
	require.ErrorIs(p.Verify(), errZeroMaxChunkParts)

	p = DefaultParams()
	p.MaxChunkGas = p.MaxBlockGas + 1
	require.ErrorIs(p.Verify(), errChunkGasAboveBlock)

	p = DefaultParams()
	p.MaxBlockSize = 0
	require.ErrorIs(p.Verify(), errZeroMaxBlockSize)
}
