// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebbledb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/database/dbtest"
	"github.com/ava-labs/shardchain/utils/logging"
)

func newDB(t testing.TB) *Database {
	folder := t.TempDir()
	db, err := New(folder, []byte(`{"cacheSize":1048576}`), logging.NoLog{})
	require.NoError(t, err)
	return db
}

func TestInterface(t *testing.T) {
	for name, test := range dbtest.Tests {
		t.Run(name, func(t *testing.T) {
			db := newDB(t)
			test(t, db)
			_ = db.Close()
		})
	}
}

func TestBatchRewrite(t *testing.T) {
	require := require.New(t)

	db := newDB(t)
	defer db.Close()

	b := db.NewBatch()
	require.NoError(b.Put([]byte("key"), []byte("value")))
	require.NoError(b.Write())

	require.NoError(db.Delete([]byte("key")))
	require.NoError(b.Write())

	value, err := db.Get([]byte("key"))
	require.NoError(err)
	require.Equal([]byte("value"), value)
}

func TestCompactEmpty(t *testing.T) {
	db := newDB(t)
	defer db.Close()

	require.NoError(t, db.Compact(nil, nil))
}

func TestBytesPrefix(t *testing.T) {
	tests := []struct {
		name          string
		prefix        []byte
		expectedUpper []byte
	}{
		{
			name:          "nil",
			prefix:        nil,
			expectedUpper: nil,
		},
		{
			name:          "simple",
			prefix:        []byte{0x01, 0x02},
			expectedUpper: []byte{0x01, 0x03},
		},
		{
			name:          "trailing max byte",
			prefix:        []byte{0x01, 0xff},
			expectedUpper: []byte{0x02},
		},
		{
			name:          "all max bytes",
			prefix:        []byte{0xff, 0xff},
			expectedUpper: nil,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			opts := bytesPrefix(test.prefix)
			require.Equal(test.prefix, opts.LowerBound)
			require.Equal(test.expectedUpper, opts.UpperBound)
		})
	}
}
