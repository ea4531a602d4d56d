// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

// Config defines the configuration of a logger
type Config struct {
	// Directory log files are written to. An empty directory disables file
	// logging.
	Directory    string `json:"directory"`
	LogLevel     Level  `json:"logLevel"`
	DisplayLevel Level  `json:"displayLevel"`
	LogFormat    Format `json:"logFormat"`

	// Rotation settings, passed through to lumberjack.
	MaxSize  int  `json:"maxSize"`  // megabytes
	MaxFiles int  `json:"maxFiles"` // old files to retain
	MaxAge   int  `json:"maxAge"`   // days
	Compress bool `json:"compress"`

	DisableWriterDisplaying bool `json:"disableWriterDisplaying"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:     Info,
		DisplayLevel: Info,
		LogFormat:    Plain,
		MaxSize:      8,
		MaxFiles:     7,
		MaxAge:       7,
		Compress:     false,
	}
}
