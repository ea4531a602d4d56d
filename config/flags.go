// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/shardchain/chain"
	"github.com/ava-labs/shardchain/database/leveldb"
	"github.com/ava-labs/shardchain/database/memdb"
	"github.com/ava-labs/shardchain/database/pebbledb"
	"github.com/ava-labs/shardchain/utils/logging"
)

const (
	AppName = "shardchain"

	// EnvPrefix is prepended to the upper-cased flag name, with dashes
	// replaced by underscores, to form the environment variable of a flag.
	EnvPrefix = "SHARDCHAIN"
)

var (
	defaultDataDir = filepath.Join("$HOME", "."+AppName)
	defaultDBDir   = filepath.Join(defaultDataDir, "db")
	defaultLogDir  = filepath.Join(defaultDataDir, "logs")
)

// BuildFlagSet returns the complete set of flags of the chain core.
func BuildFlagSet() *pflag.FlagSet {
	var (
		fs       = pflag.NewFlagSet(AppName, pflag.ContinueOnError)
		defaults = chain.DefaultConfig()
		logs     = logging.DefaultConfig()
	)

	fs.String(ConfigFileKey, "", "Specifies a config file")

	// Database
	fs.String(DBTypeKey, leveldb.Name, fmt.Sprintf("Database type to use. Must be one of {%s, %s, %s}", leveldb.Name, memdb.Name, pebbledb.Name))
	fs.String(DBPathKey, defaultDBDir, "Path to database directory")
	fs.Bool(DBReadOnlyKey, false, "If true, database writes are to memory and never persisted")
	fs.String(DBConfigKey, "", "Specifies the database engine config as JSON")

	// Logging
	fs.String(LogsDirKey, defaultLogDir, "Logging directory")
	fs.String(LogLevelKey, logs.LogLevel.String(), "The log level. Should be one of {verbo, debug, trace, info, warn, error, fatal, off}")
	fs.String(LogDisplayLevelKey, "", "The log display level. If left blank, will inherit the value of log-level")
	fs.String(LogFormatKey, logs.LogFormat.String(), "The structure of log format. Should be one of {plain, json}")
	fs.Int(LogMaxSizeKey, logs.MaxSize, "The maximum file size in megabytes of the log file before it gets rotated")
	fs.Int(LogMaxFilesKey, logs.MaxFiles, "The maximum number of old log files to retain")
	fs.Int(LogMaxAgeKey, logs.MaxAge, "The maximum number of days to retain old log files. 0 means retain all")
	fs.Bool(LogCompressKey, logs.Compress, "If true, rotated log files are compressed")
	fs.Bool(LogDisableDisplayKey, false, "If true, logs are not written to stdout")

	// Protocol bounds
	fs.Uint64(MaxBlockGasKey, defaults.Params.MaxBlockGas, "Maximum gas limit of a block")
	fs.Uint64(MaxChunkGasKey, defaults.Params.MaxChunkGas, "Maximum gas limit of a chunk")
	fs.Uint64(MaxChunkBodySizeKey, defaults.Params.MaxChunkBodySize, "Maximum size in bytes of a chunk body")
	fs.Uint32(MaxChunkPartsKey, defaults.Params.MaxChunkParts, "Maximum number of parts a chunk is split into")
	fs.Uint64(MaxBlockSizeKey, defaults.Params.MaxBlockSize, "Maximum size in bytes of an encoded block")

	// Store
	fs.Int(BlockCacheSizeKey, defaults.Store.BlockCacheSize, "Number of decoded blocks to cache")

	// Orphan pool
	fs.Int(OrphanPoolSizeKey, defaults.Orphans.MaxSize, "Maximum number of blocks held while their parent is unknown")
	fs.Duration(OrphanTTLKey, defaults.Orphans.TTL, "How long an orphan is held before it is dropped")
	fs.Duration(OrphanRequestProtectionKey, defaults.Orphans.RequestProtection, "How long an orphan is shielded from eviction after its ancestor was requested")

	// Chunk assembly
	fs.Duration(ChunkInitialBackoffKey, defaults.Chunks.InitialBackoff, "Delay before missing chunk parts are first requested again")
	fs.Duration(ChunkMaxBackoffKey, defaults.Chunks.MaxBackoff, "Maximum delay between requests for missing chunk parts")
	fs.Duration(ChunkTimeoutKey, defaults.Chunks.Timeout, "How long a chunk may stay incomplete before it is requested from scratch")
	fs.Int(ChunkCacheSizeKey, defaults.ChunkCacheSize, "Number of chunks kept that no processing block uses yet")

	// Execution
	fs.Duration(ExecutorInitialBackoffKey, defaults.Executor.InitialBackoff, "Delay before a block whose execution failed is retried")
	fs.Duration(ExecutorMaxBackoffKey, defaults.Executor.MaxBackoff, "Maximum delay between execution retries of a block")

	// Sweeping
	fs.Duration(SweepIntervalKey, defaults.SweepInterval, "How often orphans, chunk requests and deferred executions are revisited")
	fs.Uint64(GCHorizonKey, defaults.GCHorizon, "Number of heights below the final block whose forks are kept")
	fs.Uint64(GCBatchSizeKey, defaults.GCBatchSize, "Maximum number of heights pruned per sweep")

	return fs
}

// BuildViper parses [args] into [fs] and returns a viper instance that
// resolves every flag from, in order of precedence, the command line, the
// environment and the config file.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(EnvPrefix)
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if v.IsSet(ConfigFileKey) {
		v.SetConfigFile(os.ExpandEnv(v.GetString(ConfigFileKey)))
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}
