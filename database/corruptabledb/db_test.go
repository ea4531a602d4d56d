// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package corruptabledb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/database/dbtest"
	"github.com/ava-labs/shardchain/database/memdb"
)

var errTest = errors.New("non-nil error")

func TestInterface(t *testing.T) {
	for name, test := range dbtest.Tests {
		t.Run(name, func(t *testing.T) {
			test(t, New(memdb.New()))
		})
	}
}

// failingDB fails every batch write.
type failingDB struct {
	*memdb.Database
}

func (db failingDB) NewBatch() database.Batch {
	return failingBatch{Batch: db.Database.NewBatch()}
}

type failingBatch struct {
	database.Batch
}

func (failingBatch) Write() error {
	return errTest
}

func TestCorruption(t *testing.T) {
	require := require.New(t)

	db := New(failingDB{Database: memdb.New()})

	key := []byte("hello")
	value := []byte("world")
	require.NoError(db.Put(key, value))
	require.NoError(db.Corrupted())

	b := db.NewBatch()
	require.NoError(b.Put(key, value))
	require.ErrorIs(b.Write(), errTest)

	tests := map[string]func() error{
		"has": func() error {
			_, err := db.Has(key)
			return err
		},
		"get": func() error {
			_, err := db.Get(key)
			return err
		},
		"put": func() error {
			return db.Put(key, value)
		},
		"delete": func() error {
			return db.Delete(key)
		},
		"batch": func() error {
			return db.NewBatch().Write()
		},
		"iterator": func() error {
			it := db.NewIterator()
			defer it.Release()
			return it.Error()
		},
	}
	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			err := f()
			require.ErrorIs(err, database.ErrAvoidCorruption)
			require.ErrorIs(err, errTest)
		})
	}
}
