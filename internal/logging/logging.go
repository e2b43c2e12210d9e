// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the debug log.
//
// A TUI owns the terminal, so logs go to a file instead of stderr.
// Tail ~/.freechat/debug.log in a second terminal while developing.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultFileName is the log file under the app data directory.
const DefaultFileName = "debug.log"

// Setup initializes the global logger. An empty path uses the default
// location; an empty level defaults to info. Returns a closer for the
// log file.
func Setup(level, path string) (io.Closer, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(homeDir, ".freechat", DefaultFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}

	zerolog.SetGlobalLevel(parseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(file).With().Timestamp().Logger()

	return file, nil
}

// SetupDiscard routes logs nowhere. Used by tests and one-shot CLI runs
// where a log file would be noise.
func SetupDiscard() {
	log.Logger = zerolog.New(io.Discard)
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
