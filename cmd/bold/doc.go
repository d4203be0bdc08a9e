// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Bold is a source-based package manager. It evaluates a local
// package repository into an index, builds or downloads packages into
// a shared installed-packages area, and composes them into numbered
// generations under the bold root.
//
// Usage:
//
//	bold update [--check] [--from-file <document>]
//	bold install <package>...
//	bold remove <package>...
//	bold hack [--workspace <dir>] <package>...
//	bold list [--installed] [--manually] [--lines] [--json] [filter]
//	bold generations
//	bold switch <generation>
//
// Run "bold <command> --help" for details.
package main
