// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memdb is an in-memory database for tests and for chains run without
// persistence.
package memdb

import (
	"slices"
	"strings"
	"sync"

	"github.com/ava-labs/shardchain/database"
)

const (
	Name = "memdb"

	// DefaultSize is the number of entries a new database has room for.
	DefaultSize = 1024
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)
	_ database.Iterator = (*iterator)(nil)
)

// Database holds every entry in a map. A nil map means the database is
// closed.
type Database struct {
	lock    sync.RWMutex
	entries map[string][]byte
}

func New() *Database {
	return &Database{
		entries: make(map[string][]byte, DefaultSize),
	}
}

func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.entries == nil {
		return database.ErrClosed
	}
	db.entries = nil
	return nil
}

func (db *Database) closed() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.entries == nil
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.entries == nil {
		return false, database.ErrClosed
	}
	_, ok := db.entries[string(key)]
	return ok, nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.entries == nil {
		return nil, database.ErrClosed
	}
	value, ok := db.entries[string(key)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return slices.Clone(value), nil
}

func (db *Database) Put(key []byte, value []byte) error {
	return db.write(database.BatchOp{
		Key:   key,
		Value: slices.Clone(value),
	})
}

func (db *Database) Delete(key []byte) error {
	return db.write(database.BatchOp{
		Key:    key,
		Delete: true,
	})
}

// write applies [ops] atomically. Values must not be modified afterwards.
func (db *Database) write(ops ...database.BatchOp) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.entries == nil {
		return database.ErrClosed
	}
	for _, op := range ops {
		if op.Delete {
			delete(db.entries, string(op.Key))
			continue
		}
		db.entries[string(op.Key)] = op.Value
	}
	return nil
}

func (db *Database) NewBatch() database.Batch {
	return &batch{db: db}
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

// NewIteratorWithStartAndPrefix iterates over a snapshot of the matching
// entries taken when it is created.
func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.entries == nil {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}

	it := &iterator{
		db:  db,
		pos: -1,
	}
	for key := range db.entries {
		if strings.HasPrefix(key, string(prefix)) && key >= string(start) {
			it.keys = append(it.keys, key)
		}
	}
	slices.Sort(it.keys)
	it.values = make([][]byte, len(it.keys))
	for i, key := range it.keys {
		it.values[i] = db.entries[key]
	}
	return it
}

// Compact is a no-op.
func (db *Database) Compact(_, _ []byte) error {
	if db.closed() {
		return database.ErrClosed
	}
	return nil
}

type batch struct {
	database.BatchOps

	db *Database
}

func (b *batch) Write() error {
	return b.db.write(b.Ops...)
}

func (b *batch) Inner() database.Batch {
	return b
}

type iterator struct {
	db     *Database
	keys   []string
	values [][]byte
	pos    int
	err    error
}

func (it *iterator) Next() bool {
	if it.db.closed() {
		it.Release()
		it.err = database.ErrClosed
		return false
	}
	if it.pos < len(it.keys) {
		it.pos++
	}
	return it.pos < len(it.keys)
}

func (it *iterator) Error() error {
	return it.err
}

func (it *iterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.pos])
}

func (it *iterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.values) {
		return nil
	}
	return it.values[it.pos]
}

func (it *iterator) Release() {
	it.keys = nil
	it.values = nil
}
