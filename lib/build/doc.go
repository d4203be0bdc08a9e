// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package build is the build orchestrator. It runs a recipe's phases
// in a workspace, packs the output into a binary-cache artifact, and
// writes the sourceable environment used by interactive "hack"
// workspaces.
//
// # Workspace layout
//
//	<workspace>/<name>@<hash>.<local>   staged externals
//	<workspace>/dest/<name>@<hash>      finished output tree
//	<workspace>/dest/<name>@<hash>.wip  output tree while phases run
//	<workspace>/activate.sh             hack environment
//
// # Phases
//
// Phases run in the fixed order of [recipe.Phases], each as "sh -c
// <cmd>" in the workspace directory, in its own process group. The
// environment is the caller's plus DESTDIR (the output tree) and one
// EXT_<local> per external of the package. Variables are set on the
// subprocess only.
//
// A phase that exits non-zero stops the build with a *PhaseError. The
// wip tree is left behind and discarded by the next attempt; only the
// rename from wip to the final name marks a package as built.
// Cancelling the context kills the phase's whole process group.
package build
