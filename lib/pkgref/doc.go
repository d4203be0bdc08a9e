// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package pkgref provides the exact package identity type and the
// selector grammar used on the command line.
//
// An exact identity is the pair (name, content hash), written
// "name@hash". The hash is the digest the repository evaluator computed
// over the canonical recipe document, so an identity names exactly one
// immutable recipe. Identities double as directory names under the
// installed-packages area and as binary-cache artifact names, which is
// why [Parse] rejects path separators, control characters, and leading
// dots in either half.
//
// A selector is what a user types: either an exact identity (one "@")
// or a bare symbolic name (no "@") that the index resolves through its
// alias table. A selector with two or more "@" is a syntax error.
// [ParseSelectors] classifies a whole argument list at once and reports
// every malformed selector in a single [SelectorSyntaxError] rather
// than stopping at the first.
package pkgref
