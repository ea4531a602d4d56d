// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/shardchain/chain/block"
	"github.com/ava-labs/shardchain/chain/chunks"
	"github.com/ava-labs/shardchain/chain/executor"
	"github.com/ava-labs/shardchain/chain/orphan"
	"github.com/ava-labs/shardchain/chain/store"
)

var (
	errZeroSweepInterval = errors.New("sweep interval must be positive")
	errZeroGCBatch       = errors.New("gc batch size must be positive")
	errZeroChunkCache    = errors.New("chunk cache size must be positive")
)

type Config struct {
	Params   block.Params    `json:"params"`
	Store    store.Config    `json:"store"`
	Orphans  orphan.Config   `json:"orphans"`
	Chunks   chunks.Config   `json:"chunks"`
	Executor executor.Config `json:"executor"`

	// ChunkCacheSize bounds the chunks kept before any processing block
	// uses them.
	ChunkCacheSize int `json:"chunkCacheSize"`

	// SweepInterval is how often Run sweeps.
	SweepInterval time.Duration `json:"sweepInterval"`
	// GCHorizon is the number of heights below the final block whose forks
	// are kept.
	GCHorizon uint64 `json:"gcHorizon"`
	// GCBatchSize is the maximum number of heights pruned per sweep.
	GCBatchSize uint64 `json:"gcBatchSize"`
}

func DefaultConfig() Config {
	return Config{
		Params:         block.DefaultParams(),
		Store:          store.DefaultConfig(),
		Orphans:        orphan.DefaultConfig(),
		Chunks:         chunks.DefaultConfig(),
		Executor:       executor.DefaultConfig(),
		ChunkCacheSize: 256,
		SweepInterval:  time.Second,
		GCHorizon:      256,
		GCBatchSize:    64,
	}
}

func (c Config) Verify() error {
	switch {
	case c.SweepInterval <= 0:
		return errZeroSweepInterval
	case c.GCBatchSize == 0:
		return errZeroGCBatch
	case c.ChunkCacheSize <= 0:
		return errZeroChunkCache
	}
	if err := c.Params.Verify(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	if err := c.Orphans.Verify(); err != nil {
		return fmt.Errorf("invalid orphan config: %w", err)
	}
	if err := c.Chunks.Verify(); err != nil {
		return fmt.Errorf("invalid chunk config: %w", err)
	}
	if err := c.Executor.Verify(); err != nil {
		return fmt.Errorf("invalid executor config: %w", err)
	}
	return nil
}
