// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	ConfigFileKey = "config-file"

	// Database
	DBTypeKey     = "db-type"
	DBPathKey     = "db-dir"
	DBReadOnlyKey = "db-read-only"
	DBConfigKey   = "db-config-file-content"

	// Logging
	LogsDirKey           = "log-dir"
	LogLevelKey          = "log-level"
	LogDisplayLevelKey   = "log-display-level"
	LogFormatKey         = "log-format"
	LogMaxSizeKey        = "log-rotater-max-size"
	LogMaxFilesKey       = "log-rotater-max-files"
	LogMaxAgeKey         = "log-rotater-max-age"
	LogCompressKey       = "log-rotater-compress-enabled"
	LogDisableDisplayKey = "log-disable-display"

	// Protocol bounds
	MaxBlockGasKey      = "max-block-gas"
	MaxChunkGasKey      = "max-chunk-gas"
	MaxChunkBodySizeKey = "max-chunk-body-size"
	MaxChunkPartsKey    = "max-chunk-parts"
	MaxBlockSizeKey     = "max-block-size"

	// Store
	BlockCacheSizeKey = "block-cache-size"

	// Orphan pool
	OrphanPoolSizeKey          = "orphan-pool-size"
	OrphanTTLKey               = "orphan-ttl"
	OrphanRequestProtectionKey = "orphan-request-protection"

	// Chunk assembly
	ChunkInitialBackoffKey = "chunk-initial-backoff"
	ChunkMaxBackoffKey     = "chunk-max-backoff"
	ChunkTimeoutKey        = "chunk-timeout"
	ChunkCacheSizeKey      = "chunk-cache-size"

	// Execution
	ExecutorInitialBackoffKey = "executor-initial-backoff"
	ExecutorMaxBackoffKey     = "executor-max-backoff"

	// Sweeping
	SweepIntervalKey = "sweep-interval"
	GCHorizonKey     = "gc-horizon"
	GCBatchSizeKey   = "gc-batch-size"
)
