// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"errors"

	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/hashing"
)

const (
	leafTag byte = 0x00
	nodeTag byte = 0x01
)

var errLeafIndexOutOfRange = errors.New("leaf index out of range")

// LeafHash is the merkle leaf for a raw piece of data.
func LeafHash(data []byte) ids.ID {
	return hashing.ComputeHash256Ranges([]byte{leafTag}, data)
}

func nodeHash(left, right ids.ID) ids.ID {
	return hashing.ComputeHash256Ranges([]byte{nodeTag}, left[:], right[:])
}

// MerkleRoot returns the root of a binary merkle tree over [leaves]. A level
// with an odd number of nodes carries its last node up unchanged. The root of
// an empty tree is ids.Empty.
func MerkleRoot(leaves []ids.ID) ids.ID {
	if len(leaves) == 0 {
		return ids.Empty
	}
	level := make([]ids.ID, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

func nextLevel(level []ids.ID) []ids.ID {
	next := make([]ids.ID, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 < len(level) {
			next = append(next, nodeHash(level[i], level[i+1]))
		} else {
			next = append(next, level[i])
		}
	}
	return next
}

// MerkleProof returns the sibling path from leaf [index] to the root.
func MerkleProof(leaves []ids.ID, index int) ([]ids.ID, error) {
	if index < 0 || index >= len(leaves) {
		return nil, errLeafIndexOutOfRange
	}
	var (
		proof []ids.ID
		level = leaves
	)
	for len(level) > 1 {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
		level = nextLevel(level)
	}
	return proof, nil
}

// VerifyMerkleProof returns true if [proof] shows that [leaf] is the leaf at
// [index] of a tree with [count] leaves and the given [root].
func VerifyMerkleProof(root ids.ID, leaf ids.ID, index int, count int, proof []ids.ID) bool {
	if index < 0 || index >= count {
		return false
	}
	var (
		hash = leaf
		used int
	)
	for n := count; n > 1; n = (n + 1) / 2 {
		switch {
		case index%2 == 1:
			if used >= len(proof) {
				return false
			}
			hash = nodeHash(proof[used], hash)
			used++
		case index+1 < n:
			if used >= len(proof) {
				return false
			}
			hash = nodeHash(hash, proof[used])
			used++
		}
		index /= 2
	}
	return used == len(proof) && hash == root
}
