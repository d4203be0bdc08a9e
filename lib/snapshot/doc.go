// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot implements the generation ledger.
//
// A store lives in one directory:
//
//	snapshot/
//	  1/
//	    metadata.json
//	    cache.db3
//	    root/        merged view of every global package
//	      bold/      reserved marker
//	  2/
//	    parent -> ../1
//	    ...
//	  next/          staging area, exists only while a commit is prepared
//	  current -> 2
//
// Generations are immutable once committed. A commit proceeds by
// Prepare (creates next/ under the store lock), population of the
// staging directory by the caller, and Commit, which writes the
// metadata, merges the root with hardlinks, renames next/ to the next
// free number, and finally repoints current. The rename of current is
// the single point after which readers see the new generation; any
// failure before it leaves the previous generation untouched.
package snapshot
