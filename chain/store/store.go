// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store persists blocks, chunks, verdicts and the chain's head
// pointers.
//
// Every key space lives under its own prefix of a single database. Writes are
// staged on an Update and become visible together when it commits.
package store

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/shardchain/cache"
	"github.com/ava-labs/shardchain/cache/lru"
	"github.com/ava-labs/shardchain/cache/metercacher"
	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/database/prefixdb"
	"github.com/ava-labs/shardchain/ids"
)

var (
	blockPrefix     = []byte("block")
	heightPrefix    = []byte("height")
	canonicalPrefix = []byte("canonical")
	chunkPrefix     = []byte("chunk")
	statusPrefix    = []byte("status")
	rejectedPrefix  = []byte("rejected")
	metaPrefix      = []byte("meta")
	stateRootPrefix = []byte("stateRoot")
	resultPrefix    = []byte("result")

	headKey       = []byte("head")
	finalKey      = []byte("final")
	headerHeadKey = []byte("headerHead")
	gcTailKey     = []byte("gcTail")

	errUnexpectedKeyLength = errors.New("unexpected key length")
)

// Reader is the read surface shared by the store and pending updates.
type Reader interface {
	GetBlock(blkID ids.ID) (*block.Block, error)
	HasBlock(blkID ids.ID) (bool, error)
	GetBlockIDsAtHeight(height uint64) ([]ids.ID, error)
	GetCanonicalBlockID(height uint64) (ids.ID, error)
	GetChunk(chunkID ids.ID) (*block.Chunk, error)
	HasChunk(chunkID ids.ID) (bool, error)
	GetStatus(blkID ids.ID) (Status, error)
	GetStateRoots(stateRoot ids.ID) ([]ids.ID, error)
	GetApplyResult(height uint64, key ids.ID) ([]byte, error)
	GetHead() (ids.ID, error)
	GetFinal() (ids.ID, error)
	GetHeaderHead() (ids.ID, error)
	GetGCTail() (uint64, error)
}

var (
	_ Reader = (*Store)(nil)
	_ Reader = (*Update)(nil)
)

type Config struct {
	BlockCacheSize int `json:"blockCacheSize"`
}

func DefaultConfig() Config {
	return Config{
		BlockCacheSize: 2048,
	}
}

// Store is safe for concurrent reads. Updates must be serialized by the
// caller.
type Store struct {
	db database.Database
	views

	blockCache cache.Cacher[ids.ID, *block.Block]
}

func New(config Config, db database.Database, registerer prometheus.Registerer) (*Store, error) {
	blockCache, err := metercacher.New[ids.ID, *block.Block](
		"block_cache",
		registerer,
		lru.NewCache[ids.ID, *block.Block](config.BlockCacheSize),
	)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:         db,
		views:      newViews(db),
		blockCache: blockCache,
	}, nil
}

// IsInitialized returns true once a head has been written.
func (s *Store) IsInitialized() (bool, error) {
	return s.meta.Has(headKey)
}

func (s *Store) GetBlock(blkID ids.ID) (*block.Block, error) {
	if blk, ok := s.blockCache.Get(blkID); ok {
		return blk, nil
	}
	blk, err := s.views.GetBlock(blkID)
	if err != nil {
		return nil, err
	}
	s.blockCache.Put(blkID, blk)
	return blk, nil
}

func (s *Store) HasBlock(blkID ids.ID) (bool, error) {
	if _, ok := s.blockCache.Get(blkID); ok {
		return true, nil
	}
	return s.views.HasBlock(blkID)
}

// NewUpdate starts a set of writes that become visible atomically on
// Commit.
func (s *Store) NewUpdate() *Update {
	return newUpdate(s)
}

// views are the key spaces of the store over one underlying database.
type views struct {
	blocks     database.Database
	heights    database.Database
	canonical  database.Database
	chunks     database.Database
	statuses   database.Database
	rejected   database.Database
	meta       database.Database
	stateRoots database.Database
	results    database.Database
}

func newViews(db database.Database) views {
	return views{
		blocks:     prefixdb.New(blockPrefix, db),
		heights:    prefixdb.New(heightPrefix, db),
		canonical:  prefixdb.New(canonicalPrefix, db),
		chunks:     prefixdb.New(chunkPrefix, db),
		statuses:   prefixdb.New(statusPrefix, db),
		rejected:   prefixdb.New(rejectedPrefix, db),
		meta:       prefixdb.New(metaPrefix, db),
		stateRoots: prefixdb.New(stateRootPrefix, db),
		results:    prefixdb.New(resultPrefix, db),
	}
}

func (v *views) GetBlock(blkID ids.ID) (*block.Block, error) {
	bytes, err := v.blocks.Get(blkID[:])
	if err != nil {
		return nil, err
	}
	return block.Parse(bytes)
}

func (v *views) HasBlock(blkID ids.ID) (bool, error) {
	return v.blocks.Has(blkID[:])
}

// GetBlockIDsAtHeight returns the ids of every stored block at [height],
// canonical or not, sorted by id.
func (v *views) GetBlockIDsAtHeight(height uint64) ([]ids.ID, error) {
	return idsAtHeight(v.heights, height)
}

// getRejectedIDsAtHeight returns the ids of the rejected blocks at [height].
func (v *views) getRejectedIDsAtHeight(height uint64) ([]ids.ID, error) {
	return idsAtHeight(v.rejected, height)
}

func idsAtHeight(db database.Iteratee, height uint64) ([]ids.ID, error) {
	it := db.NewIteratorWithPrefix(database.PackUInt64(height))
	defer it.Release()

	var blkIDs []ids.ID
	for it.Next() {
		key := it.Key()
		if len(key) != database.Uint64Size+ids.IDLen {
			return nil, fmt.Errorf("%w: %d", errUnexpectedKeyLength, len(key))
		}
		blkID, err := ids.ToID(key[database.Uint64Size:])
		if err != nil {
			return nil, err
		}
		blkIDs = append(blkIDs, blkID)
	}
	return blkIDs, it.Error()
}

func (v *views) GetCanonicalBlockID(height uint64) (ids.ID, error) {
	return database.GetID(v.canonical, database.PackUInt64(height))
}

func (v *views) GetChunk(chunkID ids.ID) (*block.Chunk, error) {
	bytes, err := v.chunks.Get(chunkID[:])
	if err != nil {
		return nil, err
	}
	chunk := &block.Chunk{}
	if err := rlp.DecodeBytes(bytes, chunk); err != nil {
		return nil, fmt.Errorf("couldn't parse chunk %s: %w", chunkID, err)
	}
	return chunk, nil
}

func (v *views) HasChunk(chunkID ids.ID) (bool, error) {
	return v.chunks.Has(chunkID[:])
}

// GetStatus returns the recorded status of [blkID], or a status with state
// Unknown if nothing is recorded.
func (v *views) GetStatus(blkID ids.ID) (Status, error) {
	bytes, err := v.statuses.Get(blkID[:])
	if errors.Is(err, database.ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	var status Status
	if err := rlp.DecodeBytes(bytes, &status); err != nil {
		return Status{}, fmt.Errorf("couldn't parse status of %s: %w", blkID, err)
	}
	return status, nil
}

// GetStateRoots returns the per-shard state roots behind a block state root.
func (v *views) GetStateRoots(stateRoot ids.ID) ([]ids.ID, error) {
	bytes, err := v.stateRoots.Get(stateRoot[:])
	if err != nil {
		return nil, err
	}
	var roots []ids.ID
	if err := rlp.DecodeBytes(bytes, &roots); err != nil {
		return nil, fmt.Errorf("couldn't parse state roots of %s: %w", stateRoot, err)
	}
	return roots, nil
}

func (v *views) GetApplyResult(height uint64, key ids.ID) ([]byte, error) {
	return v.results.Get(resultKey(height, key))
}

func (v *views) GetHead() (ids.ID, error) {
	return database.GetID(v.meta, headKey)
}

func (v *views) GetFinal() (ids.ID, error) {
	return database.GetID(v.meta, finalKey)
}

func (v *views) GetHeaderHead() (ids.ID, error) {
	return database.GetID(v.meta, headerHeadKey)
}

// GetGCTail returns the lowest height that may still hold pruneable blocks.
func (v *views) GetGCTail() (uint64, error) {
	return database.WithDefault(database.GetUInt64, v.meta, gcTailKey, 0)
}

func heightKey(height uint64, blkID ids.ID) []byte {
	key := make([]byte, database.Uint64Size+ids.IDLen)
	copy(key, database.PackUInt64(height))
	copy(key[database.Uint64Size:], blkID[:])
	return key
}

func resultKey(height uint64, key ids.ID) []byte {
	return heightKey(height, key)
}
