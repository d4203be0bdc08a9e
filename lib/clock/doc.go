// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that stamp records with the current time or wait between
// retries hold a Clock instead of calling the time package directly.
// Production code passes Real(); tests pass Fake() and move time
// forward explicitly with Advance or Set, so timestamps written into
// snapshot metadata are deterministic.
package clock
