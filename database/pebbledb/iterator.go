// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebbledb

import (
	"bytes"
	"slices"

	"github.com/cockroachdb/pebble"

	"github.com/ava-labs/shardchain/database"
)

var _ database.Iterator = (*iter)(nil)

type iter struct {
	db       *Database
	iter     *pebble.Iterator
	setFirst bool

	valid bool
	err   error
}

func (db *Database) newIter(opts *pebble.IterOptions) *iter {
	// Don't call NewIter of pebble after the db closed. It panics otherwise.
	if db.closed.Get() {
		return &iter{
			db:  db,
			err: database.ErrClosed,
		}
	}
	return &iter{
		db:   db,
		iter: db.pebbleDB.NewIter(opts),
	}
}

func (db *Database) NewIterator() database.Iterator {
	return db.newIter(&pebble.IterOptions{})
}

func (db *Database) NewIteratorWithStart(start []byte) database.Iterator {
	return db.newIter(&pebble.IterOptions{LowerBound: start})
}

func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return db.newIter(bytesPrefix(prefix))
}

// NewIteratorWithStartAndPrefix creates a lexicographically ordered iterator
// over the database starting at start and ignoring keys that do not start with
// the provided prefix.
func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	iterRange := bytesPrefix(prefix)
	if bytes.Compare(start, prefix) == 1 {
		iterRange.LowerBound = start
	}
	return db.newIter(iterRange)
}

// bytesPrefix returns key range that satisfy the given prefix.
// This only applicable for the standard 'bytes comparer'.
func bytesPrefix(prefix []byte) *pebble.IterOptions {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c < 0xff {
			limit = make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			break
		}
	}
	return &pebble.IterOptions{LowerBound: prefix, UpperBound: limit}
}

func (it *iter) Next() bool {
	// Short-circuit and set an error if the underlying database has been closed.
	if it.iter == nil || it.db.closed.Get() {
		it.valid = false
		it.err = database.ErrClosed
		return false
	}

	var hasNext bool
	if !it.setFirst {
		hasNext = it.iter.First()
		it.setFirst = true
	} else {
		hasNext = it.iter.Next()
	}
	it.valid = hasNext
	return hasNext
}

func (it *iter) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.iter == nil {
		return nil
	}
	return updateError(it.iter.Error())
}

func (it *iter) Key() []byte {
	if !it.valid {
		return nil
	}
	return slices.Clone(it.iter.Key())
}

func (it *iter) Value() []byte {
	if !it.valid {
		return nil
	}
	return slices.Clone(it.iter.Value())
}

func (it *iter) Release() {
	if it.iter == nil || it.db.closed.Get() {
		return
	}
	_ = it.iter.Close()
	it.iter = nil
	it.valid = false
}
