// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/shardchain/chain"
	"github.com/ava-labs/shardchain/database/leveldb"
	"github.com/ava-labs/shardchain/database/memdb"
	"github.com/ava-labs/shardchain/utils/logging"
)

func TestGetConfigDefaults(t *testing.T) {
	require := require.New(t)

	v, err := BuildViper(BuildFlagSet(), nil)
	require.NoError(err)

	config, err := GetConfig(v)
	require.NoError(err)
	require.Equal(chain.DefaultConfig(), config.Chain)
	require.Equal(leveldb.Name, config.Database.Name)
	require.False(config.Database.ReadOnly)
	require.Equal(logging.Info, config.Logging.LogLevel)
	require.Equal(logging.Info, config.Logging.DisplayLevel)
	require.Equal(logging.Plain, config.Logging.LogFormat)
}

func TestGetConfigFromFlags(t *testing.T) {
	require := require.New(t)

	v, err := BuildViper(BuildFlagSet(), []string{
		"--" + DBTypeKey + "=" + memdb.Name,
		"--" + OrphanPoolSizeKey + "=5",
		"--" + ChunkTimeoutKey + "=2m",
		"--" + ChunkCacheSizeKey + "=9",
		"--" + MaxChunkPartsKey + "=7",
		"--" + LogLevelKey + "=debug",
		"--" + LogDisplayLevelKey + "=warn",
	})
	require.NoError(err)

	config, err := GetConfig(v)
	require.NoError(err)
	require.Equal(memdb.Name, config.Database.Name)
	require.Equal(5, config.Chain.Orphans.MaxSize)
	require.Equal(2*time.Minute, config.Chain.Chunks.Timeout)
	require.Equal(9, config.Chain.ChunkCacheSize)
	require.Equal(uint32(7), config.Chain.Params.MaxChunkParts)
	require.Equal(logging.Debug, config.Logging.LogLevel)
	require.Equal(logging.Warn, config.Logging.DisplayLevel)
}

func TestGetConfigFromEnv(t *testing.T) {
	require := require.New(t)

	t.Setenv("SHARDCHAIN_GC_HORIZON", "10")
	t.Setenv("SHARDCHAIN_DB_READ_ONLY", "true")

	v, err := BuildViper(BuildFlagSet(), nil)
	require.NoError(err)

	config, err := GetConfig(v)
	require.NoError(err)
	require.Equal(uint64(10), config.Chain.GCHorizon)
	require.True(config.Database.ReadOnly)
}

func TestGetConfigFromFile(t *testing.T) {
	require := require.New(t)

	root := t.TempDir()
	configFile := setupConfigJSON(t, root, `{
		"sweep-interval": "5s",
		"log-format": "json",
		"gc-batch-size": 3,
		"db-dir": "$HOME/chain"
	}`)
	t.Setenv("HOME", root)

	v, err := BuildViper(BuildFlagSet(), []string{
		"--" + ConfigFileKey + "=" + configFile,
		// Flags take precedence over the file.
		"--" + GCBatchSizeKey + "=4",
	})
	require.NoError(err)

	config, err := GetConfig(v)
	require.NoError(err)
	require.Equal(5*time.Second, config.Chain.SweepInterval)
	require.Equal(uint64(4), config.Chain.GCBatchSize)
	require.Equal(logging.JSON, config.Logging.LogFormat)
	require.Equal(filepath.Join(root, "chain"), config.Database.Path)
}

func TestBuildViperMissingConfigFile(t *testing.T) {
	_, err := BuildViper(BuildFlagSet(), []string{
		"--" + ConfigFileKey + "=" + filepath.Join(t.TempDir(), "missing.json"),
	})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestGetConfigInvalid(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectedErr error
	}{
		{
			name:        "unknown log level",
			args:        []string{"--" + LogLevelKey + "=loud"},
			expectedErr: logging.ErrUnknownLevel,
		},
		{
			name:        "unknown display level",
			args:        []string{"--" + LogDisplayLevelKey + "=loud"},
			expectedErr: logging.ErrUnknownLevel,
		},
		{
			name:        "zero sweep interval",
			args:        []string{"--" + SweepIntervalKey + "=0s"},
			expectedErr: errInvalidChainConfig,
		},
		{
			name:        "chunk gas above block gas",
			args:        []string{"--" + MaxBlockGasKey + "=1", "--" + MaxChunkGasKey + "=2"},
			expectedErr: errInvalidChainConfig,
		},
		{
			name:        "empty orphan pool",
			args:        []string{"--" + OrphanPoolSizeKey + "=0"},
			expectedErr: errInvalidChainConfig,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			v, err := BuildViper(BuildFlagSet(), test.args)
			require.NoError(err)

			_, err = GetConfig(v)
			require.ErrorIs(err, test.expectedErr)
		})
	}
}

func TestBuildViperUnknownFlag(t *testing.T) {
	_, err := BuildViper(BuildFlagSet(), []string{"--not-a-flag"})
	require.Error(t, err) //nolint:forbidigo // pflag doesn't export its parse errors
}

func setupConfigJSON(t *testing.T, rootPath string, value string) string {
	configFilePath := filepath.Join(rootPath, "config.json")
	require.NoError(t, os.WriteFile(configFilePath, []byte(value), 0o600))
	return configFilePath
}
