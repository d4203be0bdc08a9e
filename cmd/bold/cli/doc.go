// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the bold CLI.
//
// The central type is [Command], which represents a named subcommand
// with optional nested [Command.Subcommands], a [pflag.FlagSet]
// factory, and a Run function. Commands are assembled into a tree in
// cmd/bold/commands and dispatched via [Command.Execute], which handles
// flag parsing, subcommand routing, and help output with examples.
//
// Flags are usually declared as tagged struct fields and bound with
// [FlagsFromParams]; embedding [JSONOutput] adds --json.
//
// Unknown subcommands and flags get a "did you mean" suggestion when
// the Levenshtein distance to a known name is at most 3.
//
// Errors returned by commands may be categorized with [Validation],
// [NotFound], [Conflict] and friends; [ExitError] requests a specific
// exit status without an extra error line.
package cli
