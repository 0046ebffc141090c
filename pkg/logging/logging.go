// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log level and outputs
type Options struct {
	Level   string    // trace, debug, info, warn, error; default info
	File    string    // optional rotating log file
	Console io.Writer // default os.Stderr
	NoColor bool
}

// Init replaces the global logger. Console output is human-readable; the
// optional file receives JSON lines and rotates at 1 MB.
func Init(opts Options) error {
	levelName := opts.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: "15:04:05.000",
		NoColor:    opts.NoColor,
	}}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    1,
			MaxBackups: 2,
		})
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(io.MultiWriter(writers...)).
		With().Timestamp().Logger()

	return nil
}
