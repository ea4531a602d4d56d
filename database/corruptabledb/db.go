// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package corruptabledb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/shardchain/database"
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)
)

// Database is a wrapper around a database.Database that refuses every
// further operation once the underlying database reported an error other than
// [database.ErrNotFound] or [database.ErrClosed].
type Database struct {
	database.Database

	lock sync.RWMutex
	// The first unexpected error the underlying database returned.
	initialError error
}

func New(db database.Database) *Database {
	return &Database{Database: db}
}

func (db *Database) Has(key []byte) (bool, error) {
	if err := db.corrupted(); err != nil {
		return false, err
	}
	has, err := db.Database.Has(key)
	return has, db.handleError(err)
}

func (db *Database) Get(key []byte) ([]byte, error) {
	if err := db.corrupted(); err != nil {
		return nil, err
	}
	value, err := db.Database.Get(key)
	return value, db.handleError(err)
}

func (db *Database) Put(key []byte, value []byte) error {
	if err := db.corrupted(); err != nil {
		return err
	}
	return db.handleError(db.Database.Put(key, value))
}

func (db *Database) Delete(key []byte) error {
	if err := db.corrupted(); err != nil {
		return err
	}
	return db.handleError(db.Database.Delete(key))
}

func (db *Database) Compact(start []byte, limit []byte) error {
	if err := db.corrupted(); err != nil {
		return err
	}
	return db.handleError(db.Database.Compact(start, limit))
}

func (db *Database) Close() error {
	return db.handleError(db.Database.Close())
}

func (db *Database) NewBatch() database.Batch {
	return &batch{
		Batch: db.Database.NewBatch(),
		db:    db,
	}
}

func (db *Database) NewIterator() database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, nil)
}

func (db *Database) NewIteratorWithStart(start []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(start, nil)
}

func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, prefix)
}

func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	if err := db.corrupted(); err != nil {
		return &database.IteratorError{
			Err: err,
		}
	}
	return &iterator{
		Iterator: db.Database.NewIteratorWithStartAndPrefix(start, prefix),
		db:       db,
	}
}

// Corrupted returns a non-nil error if the database refuses operations.
func (db *Database) Corrupted() error {
	return db.corrupted()
}

func (db *Database) corrupted() error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.initialError == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", database.ErrAvoidCorruption, db.initialError)
}

func (db *Database) handleError(err error) error {
	switch {
	case err == nil, errors.Is(err, database.ErrNotFound), errors.Is(err, database.ErrClosed):
		return err
	}

	db.lock.Lock()
	defer db.lock.Unlock()

	// Avoid possible corruption by refusing every later operation.
	if db.initialError == nil {
		db.initialError = err
	}
	return err
}

type batch struct {
	database.Batch

	db *Database
}

func (b *batch) Write() error {
	if err := b.db.corrupted(); err != nil {
		return err
	}
	return b.db.handleError(b.Batch.Write())
}

type iterator struct {
	database.Iterator

	db *Database
}

func (it *iterator) Next() bool {
	if err := it.db.corrupted(); err != nil {
		return false
	}
	val := it.Iterator.Next()
	_ = it.db.handleError(it.Iterator.Error())
	return val
}

func (it *iterator) Error() error {
	if err := it.Iterator.Error(); err != nil {
		return err
	}
	return it.db.corrupted()
}
