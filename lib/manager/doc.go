// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package manager implements bold's package operations on top of the
// index, resolver, binary cache and snapshot store.
//
// Every operation that changes the installed set commits exactly one
// new generation. The package index an operation reads from is the
// one belonging to the current generation (update builds a fresh one
// inside the staging directory), opened for the duration of the call
// and threaded explicitly through resolution, dependency expansion and
// materialization.
//
// The manager never writes to stdout. Operations return results
// describing what happened; the command layer decides how to present
// them.
package manager
