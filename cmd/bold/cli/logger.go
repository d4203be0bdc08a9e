// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger for CLI command
// operations, writing to stderr. When stderr is a terminal it uses
// slog.TextHandler for human-readable output; when stderr is piped or
// redirected it uses slog.JSONHandler. verbose lowers the level to
// debug.
func NewCommandLogger(verbose bool) *slog.Logger {
	return NewLogger(os.Stderr, verbose)
}

// NewLogger is NewCommandLogger for an arbitrary writer. Only an
// *os.File can be a terminal; anything else gets JSON.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	terminal := false
	if file, ok := w.(*os.File); ok {
		terminal = term.IsTerminal(int(file.Fd()))
	}
	return newLogger(w, terminal, verbose)
}

func newLogger(w io.Writer, terminal, verbose bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		options.Level = slog.LevelDebug
	}
	if terminal {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
