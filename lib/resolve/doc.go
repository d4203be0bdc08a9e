// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolve turns user selectors into exact package identities
// and expands identities into their transitive dependency closure.
//
// Selector resolution is all-or-nothing: every selector is checked
// inside one read transaction on the index, and a failure reports every
// selector that could not be resolved.
//
// Closure expansion walks declared dependencies with a visited set.
// Dependency cycles are tolerated: A -> B -> A expands to {A, B}. The
// resulting [Graph] also orders its nodes into levels so that callers
// can materialize dependencies before the packages that need them.
package resolve
