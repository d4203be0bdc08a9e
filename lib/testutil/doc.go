// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for bold packages.
//
// [Repository] builds package repository documents of the shape the
// evaluator produces, so tests can drive update, install and hack
// without QuickJS. Each package's install phase writes a single file
// named after the package.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) for tests that wait on another
// goroutine.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
