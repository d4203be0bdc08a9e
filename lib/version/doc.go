// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the bold binary.
//
// [Version], [GitCommit] and [BuildTime] may be injected at build time
// with -ldflags -X. When the commit is not injected, the VCS revision
// recorded by the Go toolchain is used instead.
//
//	go build -ldflags "-X github.com/boldos/bold/lib/version.Version=0.2.0" ./cmd/bold
package version
