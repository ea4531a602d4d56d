// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/exp/maps"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Factory creates new instances of different types of Logger
type Factory interface {
	// Make creates a new logger with name [name]
	Make(name string) (Logger, error)

	// SetLogLevel sets the log level of the logger with the given name.
	SetLogLevel(name string, level Level) error

	// GetLoggerNames returns the names of all logs created by this factory
	GetLoggerNames() []string

	// Close stops and clears all of a Factory's instantiated loggers
	Close()
}

type factory struct {
	config Config
	lock   sync.RWMutex

	// Logger name --> the logger.
	loggers map[string]Logger
}

// NewFactory returns a new instance of a Factory producing loggers configured with
// the values set in the [config] parameter
func NewFactory(config Config) Factory {
	return &factory{
		config:  config,
		loggers: make(map[string]Logger),
	}
}

// Make creates a logger that displays to stdout and, if a directory is
// configured, writes to a rotated file named after the logger.
func (f *factory) Make(name string) (Logger, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if _, ok := f.loggers[name]; ok {
		return nil, fmt.Errorf("logger with name %q already exists", name)
	}

	encoder := f.config.LogFormat.Encoder()
	cores := make([]WrappedCore, 0, 2)
	if !f.config.DisableWriterDisplaying {
		cores = append(cores, NewWrappedCore(f.config.DisplayLevel, stdoutCloser, encoder))
	}
	if f.config.Directory != "" {
		writer := &lumberjack.Logger{
			Filename:   filepath.Join(f.config.Directory, name+".log"),
			MaxSize:    f.config.MaxSize,
			MaxBackups: f.config.MaxFiles,
			MaxAge:     f.config.MaxAge,
			Compress:   f.config.Compress,
		}
		cores = append(cores, NewWrappedCore(f.config.LogLevel, writer, JSON.Encoder()))
	}

	l := NewLogger(name, cores...)
	f.loggers[name] = l
	return l, nil
}

func (f *factory) SetLogLevel(name string, level Level) error {
	f.lock.RLock()
	defer f.lock.RUnlock()

	logger, ok := f.loggers[name]
	if !ok {
		return fmt.Errorf("logger with name %q not found", name)
	}
	logger.SetLevel(level)
	return nil
}

func (f *factory) GetLoggerNames() []string {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return maps.Keys(f.loggers)
}

func (f *factory) Close() {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, logger := range f.loggers {
		logger.Stop()
	}
	f.loggers = nil
}
