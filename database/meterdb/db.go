// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meterdb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/shardchain/database"
	"github.com/ava-labs/shardchain/utils/wrappers"
)

const methodLabel = "method"

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)

	methodLabels = []string{methodLabel}

	hasLabel         = prometheus.Labels{methodLabel: "has"}
	getLabel         = prometheus.Labels{methodLabel: "get"}
	putLabel         = prometheus.Labels{methodLabel: "put"}
	deleteLabel      = prometheus.Labels{methodLabel: "delete"}
	newIteratorLabel = prometheus.Labels{methodLabel: "new_iterator"}
	compactLabel     = prometheus.Labels{methodLabel: "compact"}
	closeLabel       = prometheus.Labels{methodLabel: "close"}
	batchPutLabel    = prometheus.Labels{methodLabel: "batch_put"}
	batchDeleteLabel = prometheus.Labels{methodLabel: "batch_delete"}
	batchWriteLabel  = prometheus.Labels{methodLabel: "batch_write"}
)

// Database tracks the amount of time each operation takes and how many bytes
// are read/written to the underlying database instance.
type Database struct {
	db database.Database

	calls    *prometheus.CounterVec
	duration *prometheus.GaugeVec
	size     *prometheus.CounterVec
}

// New returns a new database with added metrics
func New(
	reg prometheus.Registerer,
	db database.Database,
) (*Database, error) {
	meterDB := &Database{
		db: db,
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calls",
				Help: "number of calls to the database",
			},
			methodLabels,
		),
		duration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "duration",
				Help: "time spent in database calls (ns)",
			},
			methodLabels,
		),
		size: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "size",
				Help: "size of data passed in database calls",
			},
			methodLabels,
		),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(meterDB.calls),
		reg.Register(meterDB.duration),
		reg.Register(meterDB.size),
	)
	return meterDB, errs.Err
}

func (db *Database) observe(labels prometheus.Labels, start time.Time, size int) {
	db.calls.With(labels).Inc()
	db.duration.With(labels).Add(float64(time.Since(start)))
	db.size.With(labels).Add(float64(size))
}

func (db *Database) Has(key []byte) (bool, error) {
	start := time.Now()
	has, err := db.db.Has(key)
	db.observe(hasLabel, start, len(key))
	return has, err
}

func (db *Database) Get(key []byte) ([]byte, error) {
	start := time.Now()
	value, err := db.db.Get(key)
	db.observe(getLabel, start, len(key)+len(value))
	return value, err
}

func (db *Database) Put(key, value []byte) error {
	start := time.Now()
	err := db.db.Put(key, value)
	db.observe(putLabel, start, len(key)+len(value))
	return err
}

func (db *Database) Delete(key []byte) error {
	start := time.Now()
	err := db.db.Delete(key)
	db.observe(deleteLabel, start, len(key))
	return err
}

func (db *Database) NewBatch() database.Batch {
	return &batch{
		batch: db.db.NewBatch(),
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
	startTime := time.Now()
	it := db.db.NewIteratorWithStartAndPrefix(start, prefix)
	db.observe(newIteratorLabel, startTime, len(start)+len(prefix))
	return it
}

func (db *Database) Compact(start, limit []byte) error {
	startTime := time.Now()
	err := db.db.Compact(start, limit)
	db.observe(compactLabel, startTime, len(start)+len(limit))
	return err
}

func (db *Database) Close() error {
	start := time.Now()
	err := db.db.Close()
	db.observe(closeLabel, start, 0)
	return err
}

type batch struct {
	batch database.Batch
	db    *Database
}

func (b *batch) Put(key, value []byte) error {
	start := time.Now()
	err := b.batch.Put(key, value)
	b.db.observe(batchPutLabel, start, len(key)+len(value))
	return err
}

func (b *batch) Delete(key []byte) error {
	start := time.Now()
	err := b.batch.Delete(key)
	b.db.observe(batchDeleteLabel, start, len(key))
	return err
}

func (b *batch) Size() int {
	return b.batch.Size()
}

func (b *batch) Write() error {
	start := time.Now()
	err := b.batch.Write()
	b.db.observe(batchWriteLabel, start, b.batch.Size())
	return err
}

func (b *batch) Reset() {
	b.batch.Reset()
}

func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	return b.batch.Replay(w)
}

func (b *batch) Inner() database.Batch {
	return b.batch.Inner()
}
