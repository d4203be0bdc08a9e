// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package recipe defines the package document model: the repository
// document emitted by the evaluator, each package's recipe (externals
// and phases), and the fixed phase order every build follows.
//
// The evaluator output is loosely typed JSON. This package validates the
// fields the package manager depends on (shortDesc, recipe.externals,
// recipe.phases, depends) and keeps everything else as an opaque
// canonical JSON bag, so repository authors can attach arbitrary
// metadata without schema changes here.
//
// Canonical JSON means object keys sorted and no insignificant
// whitespace: the form stored in the package index and the form the
// content hash of a recipe is computed over.
package recipe
