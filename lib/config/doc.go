// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads bold's configuration file.
//
// Configuration comes from a single file chosen by, in order: the path
// passed to [Load] (the --config flag), the BOLD_CONFIG environment
// variable, or config.toml inside the bold root. The format follows
// the file extension: .toml (the default) or .yaml/.yml.
//
// Relative paths in the file are resolved against the root, so a
// minimal config.toml reads:
//
//	repo = "src/repo"
//	quickjsPath = "quickjs"
//	systemAlias = "desktop"
//
// ${HOME}, ${BOLD_ROOT} and ${VAR:-default} patterns are expanded in
// path fields after loading. Both spellings used by older
// configurations are accepted: localRepo for repo and systemName for
// systemAlias.
//
// Directories derived from the root (installed packages, caches,
// snapshots, sources) are exposed as methods rather than keys.
//
// This package depends on no other bold packages.
package config
