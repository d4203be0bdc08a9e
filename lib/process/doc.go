// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the exit path of the bold binary: the one place
// that writes to stderr without a logger and terminates the process.
package process
