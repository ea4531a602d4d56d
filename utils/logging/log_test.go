// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestLogLevels(t *testing.T) {
	require := require.New(t)

	buf := &bufferCloser{}
	log := NewLogger("test", NewWrappedCore(Info, buf, JSON.Encoder()))

	log.Debug("hidden")
	require.Zero(buf.Len())

	log.Info("shown", zap.Uint64("height", 5))
	var entry map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &entry))
	require.Equal("shown", entry["msg"])
	require.Equal("INFO", entry["level"])
	require.Equal("test", entry["logger"])
	require.InDelta(5.0, entry["height"], 0)

	buf.Reset()
	log.SetLevel(Debug)
	require.True(log.Enabled(Debug))
	log.Debug("now shown")
	require.NotZero(buf.Len())

	buf.Reset()
	log.Fatal("fatal does not exit")
	require.Contains(buf.String(), "FATAL")

	log.Stop()
	require.True(buf.closed)
}

func TestLogWith(t *testing.T) {
	require := require.New(t)

	buf := &bufferCloser{}
	log := NewLogger("", NewWrappedCore(Info, buf, JSON.Encoder())).With(zap.String("component", "store"))

	log.Warn("message")
	var entry map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &entry))
	require.Equal("store", entry["component"])
	require.Equal("WARN", entry["level"])
}

func TestFactoryWritesFile(t *testing.T) {
	require := require.New(t)

	config := DefaultConfig()
	config.Directory = t.TempDir()
	config.DisableWriterDisplaying = true
	f := NewFactory(config)

	log, err := f.Make("chain")
	require.NoError(err)
	_, err = f.Make("chain")
	require.Error(err) //nolint:forbidigo // error is created with fmt.Errorf
	require.Equal([]string{"chain"}, f.GetLoggerNames())

	log.Info("persisted")
	require.NoError(f.SetLogLevel("chain", Error))
	log.Info("dropped")
	f.Close()

	contents, err := os.ReadFile(filepath.Join(config.Directory, "chain.log"))
	require.NoError(err)
	require.Contains(string(contents), "persisted")
	require.NotContains(string(contents), "dropped")
}

func TestToLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected Level
		err      error
	}{
		{in: "info", expected: Info},
		{in: "VERBO", expected: Verbo},
		{in: "off", expected: Off},
		{in: "loud", expected: Off, err: ErrUnknownLevel},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			require := require.New(t)

			level, err := ToLevel(test.in)
			require.ErrorIs(err, test.err)
			require.Equal(test.expected, level)
		})
	}
}

func TestLevelJSON(t *testing.T) {
	require := require.New(t)

	b, err := json.Marshal(Trace)
	require.NoError(err)
	require.Equal(`"TRACE"`, string(b))

	var l Level
	require.NoError(json.Unmarshal(b, &l))
	require.Equal(Trace, l)
}
