// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config resolves the configuration of the chain core from flags,
// environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/ava-labs/shardchain/chain"
	"github.com/ava-labs/shardchain/database/factory"
	"github.com/ava-labs/shardchain/utils/logging"
)

var errInvalidChainConfig = errors.New("invalid chain config")

type Config struct {
	Chain    chain.Config           `json:"chain"`
	Database factory.DatabaseConfig `json:"database"`
	Logging  logging.Config         `json:"logging"`
}

// GetConfig reads the config described by BuildFlagSet out of [v].
func GetConfig(v *viper.Viper) (Config, error) {
	logConfig, err := getLoggingConfig(v)
	if err != nil {
		return Config{}, err
	}
	chainConfig := getChainConfig(v)
	if err := chainConfig.Verify(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errInvalidChainConfig, err)
	}
	return Config{
		Chain:    chainConfig,
		Database: getDatabaseConfig(v),
		Logging:  logConfig,
	}, nil
}

func getDatabaseConfig(v *viper.Viper) factory.DatabaseConfig {
	return factory.DatabaseConfig{
		Name:     v.GetString(DBTypeKey),
		Path:     os.ExpandEnv(v.GetString(DBPathKey)),
		ReadOnly: v.GetBool(DBReadOnlyKey),
		Config:   []byte(v.GetString(DBConfigKey)),
	}
}

func getLoggingConfig(v *viper.Viper) (logging.Config, error) {
	config := logging.Config{
		Directory:               os.ExpandEnv(v.GetString(LogsDirKey)),
		MaxSize:                 v.GetInt(LogMaxSizeKey),
		MaxFiles:                v.GetInt(LogMaxFilesKey),
		MaxAge:                  v.GetInt(LogMaxAgeKey),
		Compress:                v.GetBool(LogCompressKey),
		DisableWriterDisplaying: v.GetBool(LogDisableDisplayKey),
	}

	var err error
	config.LogLevel, err = logging.ToLevel(v.GetString(LogLevelKey))
	if err != nil {
		return logging.Config{}, err
	}

	config.DisplayLevel = config.LogLevel
	if v.IsSet(LogDisplayLevelKey) {
		config.DisplayLevel, err = logging.ToLevel(v.GetString(LogDisplayLevelKey))
		if err != nil {
			return logging.Config{}, err
		}
	}

	config.LogFormat, err = logging.ToFormat(v.GetString(LogFormatKey))
	return config, err
}

func getChainConfig(v *viper.Viper) chain.Config {
	config := chain.DefaultConfig()

	config.Params.MaxBlockGas = v.GetUint64(MaxBlockGasKey)
	config.Params.MaxChunkGas = v.GetUint64(MaxChunkGasKey)
	config.Params.MaxChunkBodySize = v.GetUint64(MaxChunkBodySizeKey)
	config.Params.MaxChunkParts = v.GetUint32(MaxChunkPartsKey)
	config.Params.MaxBlockSize = v.GetUint64(MaxBlockSizeKey)

	config.Store.BlockCacheSize = v.GetInt(BlockCacheSizeKey)

	config.Orphans.MaxSize = v.GetInt(OrphanPoolSizeKey)
	config.Orphans.TTL = v.GetDuration(OrphanTTLKey)
	config.Orphans.RequestProtection = v.GetDuration(OrphanRequestProtectionKey)

	config.Chunks.InitialBackoff = v.GetDuration(ChunkInitialBackoffKey)
	config.Chunks.MaxBackoff = v.GetDuration(ChunkMaxBackoffKey)
	config.Chunks.Timeout = v.GetDuration(ChunkTimeoutKey)
	config.ChunkCacheSize = v.GetInt(ChunkCacheSizeKey)

	config.Executor.InitialBackoff = v.GetDuration(ExecutorInitialBackoffKey)
	config.Executor.MaxBackoff = v.GetDuration(ExecutorMaxBackoffKey)

	config.SweepInterval = v.GetDuration(SweepIntervalKey)
	config.GCHorizon = v.GetUint64(GCHorizonKey)
	config.GCBatchSize = v.GetUint64(GCBatchSizeKey)
	return config
}
