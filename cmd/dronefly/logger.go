// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/dfloer/dronefly/lib/config"
)

// newLogger builds the process logger from the logging section. Format
// "auto" picks text when stderr is a terminal and JSON otherwise.
func newLogger(logging config.LoggingConfig) *slog.Logger {
	return buildLogger(logging, os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func buildLogger(logging config.LoggingConfig, output io.Writer, terminal bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLevel(logging.Level)}

	text := logging.Format == "text" || (logging.Format == "auto" && terminal)
	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(output, options)
	} else {
		handler = slog.NewJSONHandler(output, options)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
