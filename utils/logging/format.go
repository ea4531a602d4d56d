// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Format int

const (
	Plain Format = iota
	JSON
)

var (
	errUnknownFormat = errors.New("unknown log format")

	stdoutCloser = nopCloser{os.Stdout}
)

type nopCloser struct {
	*os.File
}

func (nopCloser) Close() error {
	return nil
}

// ToFormat parses a log format. The empty string selects the plain format.
func ToFormat(f string) (Format, error) {
	switch strings.ToLower(f) {
	case "", "plain", "auto":
		return Plain, nil
	case "json":
		return JSON, nil
	default:
		return Plain, fmt.Errorf("%w: %q", errUnknownFormat, f)
	}
}

func (f Format) String() string {
	if f == JSON {
		return "json"
	}
	return "plain"
}

func (f Format) Encoder() zapcore.Encoder {
	config := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("[01-02|15:04:05.000]"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if f == JSON {
		config.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(config)
	}
	config.ConsoleSeparator = " "
	return zapcore.NewConsoleEncoder(config)
}
