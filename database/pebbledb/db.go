// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebbledb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"go.uber.org/zap"

	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/utils"
	"github.com/ava-labs/shardchain/utils/logging"
	"github.com/ava-labs/shardchain/utils/units"
)

const (
	// Name is the name of this database for database switches
	Name = "pebbledb"

	// pebbleByteOverHead is the number of bytes of constant overhead that
	// should be added to a batch size per operation.
	pebbleByteOverHead = 8

	blockSize      = 64 * units.KiB
	indexBlockSize = 256 * units.KiB
	filterPolicy   = bloom.FilterPolicy(10)
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)

	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidConfig    = errors.New("invalid pebble config")
)

type Database struct {
	pebbleDB *pebble.DB
	closed   utils.Atomic[bool]
	sync     bool
}

type Config struct {
	CacheSize                   int  `json:"cacheSize"`
	BytesPerSync                int  `json:"bytesPerSync"`
	WALBytesPerSync             int  `json:"walBytesPerSync"` // 0 means no background syncing
	MemTableStopWritesThreshold int  `json:"memTableStopWritesThreshold"`
	MemTableSize                int  `json:"memTableSize"`
	MaxOpenFiles                int  `json:"maxOpenFiles"`
	Sync                        bool `json:"sync"`
}

func DefaultConfig() Config {
	return Config{
		CacheSize:                   512 * units.MiB,
		BytesPerSync:                units.MiB,
		WALBytesPerSync:             units.MiB,
		MemTableStopWritesThreshold: 8,
		MemTableSize:                16 * units.MiB,
		MaxOpenFiles:                4 * units.KiB,
	}
}

// New opens a pebble database at [file]. [configBytes] is an optional JSON
// encoded Config overriding the defaults.
func New(file string, configBytes []byte, log logging.Logger) (*Database, error) {
	cfg := DefaultConfig()
	if len(configBytes) > 0 {
		if err := json.Unmarshal(configBytes, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	// Original default settings are based on
	// https://github.com/ethereum/go-ethereum/blob/release/1.11/ethdb/pebble/pebble.go
	opts := &pebble.Options{
		Cache:        pebble.NewCache(int64(cfg.CacheSize)),
		BytesPerSync: cfg.BytesPerSync,
		// Unsynced writes still go through the WAL. Pebble fsyncs the WAL
		// during shutdown so a cleanly stopped node recovers every write.
		WALBytesPerSync:             cfg.WALBytesPerSync,
		MemTableStopWritesThreshold: cfg.MemTableStopWritesThreshold,
		MemTableSize:                cfg.MemTableSize,
		MaxOpenFiles:                cfg.MaxOpenFiles,
		MaxConcurrentCompactions:    runtime.NumCPU,
		Levels:                      make([]pebble.LevelOptions, 7),
	}

	// Default configuration sourced from:
	// https://github.com/cockroachdb/pebble/blob/crl-release-23.1/cmd/pebble/db.go
	for i := 0; i < len(opts.Levels); i++ {
		l := &opts.Levels[i]
		l.BlockSize = blockSize
		l.IndexBlockSize = indexBlockSize
		l.FilterPolicy = filterPolicy
		l.FilterType = pebble.TableFilter
		if i > 0 {
			l.TargetFileSize = opts.Levels[i-1].TargetFileSize * 2
		}
	}
	opts.Experimental.ReadSamplingMultiplier = -1 // explicitly disable seek compaction

	log.Info("opening pebble",
		zap.String("path", file),
		zap.Reflect("config", cfg),
	)

	db, err := pebble.Open(file, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", file, err)
	}
	return &Database{
		pebbleDB: db,
		sync:     cfg.Sync,
	}, nil
}

func (db *Database) writeOptions() *pebble.WriteOptions {
	if db.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func (db *Database) Close() error {
	// close a db twice will trigger panic by pebble instead of error
	if db.closed.Get() {
		return database.ErrClosed
	}
	db.closed.Set(true)

	err := updateError(db.pebbleDB.Close())
	if err != nil && strings.Contains(err.Error(), "leaked iterator") {
		// Iterators that were not released before Close are tolerated.
		return nil
	}
	return err
}

func (db *Database) Has(key []byte) (bool, error) {
	if db.closed.Get() {
		return false, database.ErrClosed
	}

	_, closer, err := db.pebbleDB.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, updateError(err)
	}
	return true, closer.Close()
}

func (db *Database) Get(key []byte) ([]byte, error) {
	if db.closed.Get() {
		return nil, database.ErrClosed
	}

	data, closer, err := db.pebbleDB.Get(key)
	if err != nil {
		return nil, updateError(err)
	}
	ret := slices.Clone(data)
	return ret, closer.Close()
}

func (db *Database) Put(key []byte, value []byte) error {
	// Put causes panic if the db has already been closed
	if db.closed.Get() {
		return database.ErrClosed
	}
	return updateError(db.pebbleDB.Set(key, value, db.writeOptions()))
}

func (db *Database) Delete(key []byte) error {
	// Delete causes panic if the db has already been closed
	if db.closed.Get() {
		return database.ErrClosed
	}
	return updateError(db.pebbleDB.Delete(key, db.writeOptions()))
}

func (db *Database) Compact(start []byte, limit []byte) error {
	// Compact causes panic if the db has already been closed
	if db.closed.Get() {
		return database.ErrClosed
	}

	// Pebble rejects an empty range, even when both bounds are nil.
	if bytes.Equal(start, limit) && limit != nil {
		return nil
	}
	if limit != nil {
		return updateError(db.pebbleDB.Compact(start, limit, true))
	}

	// A nil limit is treated as a key after all keys in the DB, but pebble
	// treats nil as a key before all keys.
	it := db.pebbleDB.NewIter(&pebble.IterOptions{})
	defer it.Close()

	if !it.Last() {
		// Nothing to compact.
		return nil
	}
	lastKey := slices.Clone(it.Key())
	if bytes.Compare(start, lastKey) >= 0 {
		return nil
	}
	return updateError(db.pebbleDB.Compact(start, lastKey, true))
}

// batch is a wrapper around a pebbleDB batch to contain sizes.
type batch struct {
	batch *pebble.Batch
	db    *Database
	size  int

	// Support batch rewrite
	applied atomic.Bool
}

func (db *Database) NewBatch() database.Batch {
	return &batch{
		db:    db,
		batch: db.pebbleDB.NewBatch(),
	}
}

func (b *batch) Put(key, value []byte) error {
	b.size += len(key) + len(value) + pebbleByteOverHead
	return b.batch.Set(key, value, nil)
}

func (b *batch) Delete(key []byte) error {
	b.size += len(key) + pebbleByteOverHead
	return b.batch.Delete(key, nil)
}

func (b *batch) Size() int {
	return b.size
}

func (b *batch) Write() error {
	// write causes panic if the db has already been closed
	if b.db.closed.Get() {
		return database.ErrClosed
	}

	// Pebble panics when a batch is committed twice, so a rewrite commits a
	// copy of the batch instead.
	if b.applied.Load() {
		newBatch := b.db.pebbleDB.NewBatch()
		if err := newBatch.Apply(b.batch, nil); err != nil {
			return err
		}
		return updateError(newBatch.Commit(b.db.writeOptions()))
	}
	b.applied.Store(true)

	return updateError(b.batch.Commit(b.db.writeOptions()))
}

func (b *batch) Reset() {
	b.batch.Reset()
	b.size = 0
	b.applied.Store(false)
}

func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	reader := b.batch.Reader()
	for {
		kind, k, v, ok := reader.Next()
		if !ok {
			return nil
		}
		switch kind {
		case pebble.InternalKeyKindSet:
			if err := w.Put(k, v); err != nil {
				return err
			}
		case pebble.InternalKeyKindDelete:
			if err := w.Delete(k); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %v", ErrInvalidOperation, kind)
		}
	}
}

func (b *batch) Inner() database.Batch {
	return b
}

// updateError casts pebble-specific errors to the errors callers of a
// database.Database expect.
func updateError(err error) error {
	switch err {
	case pebble.ErrClosed:
		return database.ErrClosed
	case pebble.ErrNotFound:
		return database.ErrNotFound
	default:
		return err
	}
}
