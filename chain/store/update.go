// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/database/versiondb"
	"github.com/ava-labs/shardchain/ids"
	"github.com/ava-labs/shardchain/utils/set"
)

var ErrCommitFailed = errors.New("failed to commit chain update")

// Update stages writes on a versiondb over the store's database. Reads
// through an Update observe its own pending writes.
type Update struct {
	store *Store
	vdb   *versiondb.Database
	views

	putBlocks     map[ids.ID]*block.Block
	deletedBlocks set.Set[ids.ID]
}

func newUpdate(s *Store) *Update {
	vdb := versiondb.New(s.db)
	return &Update{
		store:     s,
		vdb:       vdb,
		views:     newViews(vdb),
		putBlocks: make(map[ids.ID]*block.Block),
	}
}

func (u *Update) GetBlock(blkID ids.ID) (*block.Block, error) {
	if blk, ok := u.putBlocks[blkID]; ok {
		return blk, nil
	}
	if u.deletedBlocks.Contains(blkID) {
		return nil, database.ErrNotFound
	}
	return u.store.GetBlock(blkID)
}

func (u *Update) HasBlock(blkID ids.ID) (bool, error) {
	if _, ok := u.putBlocks[blkID]; ok {
		return true, nil
	}
	if u.deletedBlocks.Contains(blkID) {
		return false, nil
	}
	return u.store.HasBlock(blkID)
}

// PutBlock stores [blk] and indexes it by height.
func (u *Update) PutBlock(blk *block.Block) error {
	blkID := blk.ID()
	if err := u.blocks.Put(blkID[:], blk.Bytes()); err != nil {
		return err
	}
	if err := u.heights.Put(heightKey(blk.Height(), blkID), nil); err != nil {
		return err
	}
	u.putBlocks[blkID] = blk
	u.deletedBlocks.Remove(blkID)
	return nil
}

func (u *Update) DeleteBlock(blk *block.Block) error {
	blkID := blk.ID()
	if err := u.blocks.Delete(blkID[:]); err != nil {
		return err
	}
	if err := u.heights.Delete(heightKey(blk.Height(), blkID)); err != nil {
		return err
	}
	delete(u.putBlocks, blkID)
	u.deletedBlocks.Add(blkID)
	return nil
}

func (u *Update) PutChunk(chunk *block.Chunk) error {
	bytes, err := rlp.EncodeToBytes(chunk)
	if err != nil {
		return err
	}
	chunkID := chunk.ID()
	return u.chunks.Put(chunkID[:], bytes)
}

func (u *Update) DeleteChunk(chunkID ids.ID) error {
	return u.chunks.Delete(chunkID[:])
}

func (u *Update) SetStatus(blkID ids.ID, status Status) error {
	bytes, err := rlp.EncodeToBytes(&status)
	if err != nil {
		return err
	}
	return u.statuses.Put(blkID[:], bytes)
}

func (u *Update) DeleteStatus(blkID ids.ID) error {
	return u.statuses.Delete(blkID[:])
}

// Reject records [reason] as the verdict on the block [blkID] at [height].
// The verdict is dropped once [height] is pruned.
func (u *Update) Reject(blkID ids.ID, height uint64, reason string) error {
	if err := u.SetStatus(blkID, Status{State: Rejected, Reason: reason}); err != nil {
		return err
	}
	return u.rejected.Put(heightKey(height, blkID), nil)
}

func (u *Update) SetCanonical(height uint64, blkID ids.ID) error {
	return database.PutID(u.canonical, database.PackUInt64(height), blkID)
}

func (u *Update) DeleteCanonical(height uint64) error {
	return u.canonical.Delete(database.PackUInt64(height))
}

func (u *Update) PutStateRoots(stateRoot ids.ID, shardRoots []ids.ID) error {
	bytes, err := rlp.EncodeToBytes(shardRoots)
	if err != nil {
		return err
	}
	return u.stateRoots.Put(stateRoot[:], bytes)
}

func (u *Update) DeleteStateRoots(stateRoot ids.ID) error {
	return u.stateRoots.Delete(stateRoot[:])
}

func (u *Update) PutApplyResult(height uint64, key ids.ID, result []byte) error {
	return u.results.Put(resultKey(height, key), result)
}

func (u *Update) SetHead(blkID ids.ID) error {
	return database.PutID(u.meta, headKey, blkID)
}

func (u *Update) SetFinal(blkID ids.ID) error {
	return database.PutID(u.meta, finalKey, blkID)
}

func (u *Update) SetHeaderHead(blkID ids.ID) error {
	return database.PutID(u.meta, headerHeadKey, blkID)
}

func (u *Update) SetGCTail(height uint64) error {
	return database.PutUInt64(u.meta, gcTailKey, height)
}

// Prune deletes every block at [height] other than the canonical one along
// with the chunks only it referenced. The status of a pruned block is kept so
// that it is still answered with its verdict. Rejected verdicts and apply
// results at [height] are dropped entirely. It returns the ids of the pruned
// blocks.
func (u *Update) Prune(height uint64) ([]ids.ID, error) {
	canonicalID, err := u.GetCanonicalBlockID(height)
	if err != nil {
		return nil, fmt.Errorf("couldn't get canonical block at %d: %w", height, err)
	}
	canonical, err := u.GetBlock(canonicalID)
	if err != nil {
		return nil, err
	}
	keep := set.Of(canonical.ChunkIDs()...)

	blkIDs, err := u.GetBlockIDsAtHeight(height)
	if err != nil {
		return nil, err
	}
	var pruned []ids.ID
	for _, blkID := range blkIDs {
		if blkID == canonicalID {
			continue
		}
		blk, err := u.GetBlock(blkID)
		if err != nil {
			return nil, err
		}
		for _, chunkID := range blk.ChunkIDs() {
			if keep.Contains(chunkID) {
				continue
			}
			if err := u.DeleteChunk(chunkID); err != nil {
				return nil, err
			}
		}
		if blk.Header.StateRoot != canonical.Header.StateRoot {
			if err := u.DeleteStateRoots(blk.Header.StateRoot); err != nil {
				return nil, err
			}
		}
		if err := u.DeleteBlock(blk); err != nil {
			return nil, err
		}
		pruned = append(pruned, blkID)
	}

	rejectedIDs, err := u.getRejectedIDsAtHeight(height)
	if err != nil {
		return nil, err
	}
	for _, blkID := range rejectedIDs {
		if err := u.DeleteStatus(blkID); err != nil {
			return nil, err
		}
		if err := u.rejected.Delete(heightKey(height, blkID)); err != nil {
			return nil, err
		}
	}

	err = database.AtomicClearPrefix(u.results, u.results, database.PackUInt64(height))
	return pruned, err
}

// Commit atomically writes every staged operation. The update must not be
// used afterwards.
func (u *Update) Commit() error {
	if err := u.vdb.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	for blkID, blk := range u.putBlocks {
		u.store.blockCache.Put(blkID, blk)
	}
	for blkID := range u.deletedBlocks {
		u.store.blockCache.Evict(blkID)
	}
	return nil
}

// Abort discards every staged operation.
func (u *Update) Abort() {
	u.vdb.Abort()
	clear(u.putBlocks)
	u.deletedBlocks.Clear()
}
