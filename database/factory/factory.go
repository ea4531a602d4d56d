// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package factory

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/database/corruptabledb"
	"github.com/ava-labs/shardchain/database/leveldb"
	"github.com/ava-labs/shardchain/database/memdb"
	"github.com/ava-labs/shardchain/database/meterdb"
	"github.com/ava-labs/shardchain/database/pebbledb"
	"github.com/ava-labs/shardchain/database/versiondb"
	"github.com/ava-labs/shardchain/utils/logging"
)

var ErrUnknownDatabase = errors.New("unknown database type")

type DatabaseConfig struct {
	// If true, all writes are to memory and are discarded at shutdown.
	ReadOnly bool `json:"readOnly"`

	// Path to database
	Path string `json:"path"`

	// Name of the database type to use
	Name string `json:"name"`

	// Engine specific JSON config
	Config []byte `json:"-"`
}

// New creates a database of the configured type, wrapped so that
// unexpected engine errors stop all later writes and every call is metered.
func New(
	config DatabaseConfig,
	reg prometheus.Registerer,
	log logging.Logger,
) (database.Database, error) {
	var (
		db  database.Database
		err error
	)
	switch config.Name {
	case leveldb.Name:
		db, err = leveldb.New(config.Path, config.Config, log)
		if err != nil {
			return nil, fmt.Errorf("couldn't create %s at %s: %w", leveldb.Name, config.Path, err)
		}
	case memdb.Name:
		db = memdb.New()
	case pebbledb.Name:
		db, err = pebbledb.New(config.Path, config.Config, log)
		if err != nil {
			return nil, fmt.Errorf("couldn't create %s at %s: %w", pebbledb.Name, config.Path, err)
		}
	default:
		return nil, fmt.Errorf(
			"%w: db-type was %q but should have been one of {%s, %s, %s}",
			ErrUnknownDatabase,
			config.Name,
			leveldb.Name,
			memdb.Name,
			pebbledb.Name,
		)
	}

	db = corruptabledb.New(db)

	if config.ReadOnly && config.Name != memdb.Name {
		db = versiondb.New(db)
	}

	meterDB, err := meterdb.New(reg, db)
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("failed to create meterdb: %w", err),
			db.Close(),
		)
	}
	return meterDB, nil
}
