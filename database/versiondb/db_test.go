// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package versiondb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/database/dbtest"
	"github.com/ava-labs/shardchain/database/memdb"
)

func TestInterface(t *testing.T) {
	for name, test := range dbtest.Tests {
		t.Run(name, func(t *testing.T) {
			test(t, New(memdb.New()))
		})
	}
}

func TestIterate(t *testing.T) {
	require := require.New(t)

	baseDB := memdb.New()
	db := New(baseDB)

	key1 := []byte("hello1")
	value1 := []byte("world1")

	key2 := []byte("z")
	value2 := []byte("world2")

	require.NoError(db.Put(key1, value1))
	require.NoError(db.Commit())

	iterator := db.NewIterator()
	require.True(iterator.Next())
	require.Equal(key1, iterator.Key())
	require.Equal(value1, iterator.Value())
	require.False(iterator.Next())
	require.NoError(iterator.Error())
	iterator.Release()

	require.NoError(db.Put(key2, value2))

	iterator = db.NewIterator()
	require.True(iterator.Next())
	require.Equal(key1, iterator.Key())
	require.True(iterator.Next())
	require.Equal(key2, iterator.Key())
	require.False(iterator.Next())
	iterator.Release()

	require.NoError(db.Delete(key1))

	iterator = db.NewIterator()
	require.True(iterator.Next())
	require.Equal(key2, iterator.Key())
	require.False(iterator.Next())
	iterator.Release()

	require.NoError(db.Commit())
	require.NoError(db.Put(key2, value1))

	iterator = db.NewIterator()
	require.True(iterator.Next())
	require.Equal(key2, iterator.Key())
	require.Equal(value1, iterator.Value())
	require.False(iterator.Next())
	iterator.Release()
}

func TestCommitAbort(t *testing.T) {
	require := require.New(t)

	baseDB := memdb.New()
	db := New(baseDB)

	key := []byte("hello")
	require.NoError(db.Put(key, []byte("world")))
	require.Equal(1, db.Len())

	has, err := baseDB.Has(key)
	require.NoError(err)
	require.False(has)

	db.Abort()
	require.Zero(db.Len())

	_, err = db.Get(key)
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(db.Put(key, []byte("world")))
	require.NoError(db.Commit())

	value, err := baseDB.Get(key)
	require.NoError(err)
	require.Equal([]byte("world"), value)
}

func TestCommitBatch(t *testing.T) {
	require := require.New(t)

	baseDB := memdb.New()
	db := New(baseDB)

	key1 := []byte("key1")
	require.NoError(db.Put(key1, []byte("value")))

	batch, err := db.CommitBatch()
	require.NoError(err)
	db.Abort()

	has, err := baseDB.Has(key1)
	require.NoError(err)
	require.False(has)

	require.NoError(batch.Write())

	has, err = baseDB.Has(key1)
	require.NoError(err)
	require.True(has)
}
