// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at build time.
var (
	// Version is the release version.
	Version = "0.1.0-dev"

	// GitCommit is the short git SHA of the build.
	GitCommit = ""

	// BuildTime is the UTC timestamp of the build.
	BuildTime = ""
)

// Info returns the one-line version, e.g. "0.1.0-dev (abc1234-dirty)".
func Info() string {
	commit, dirty, built := buildInfo()
	detail := commit
	if dirty {
		detail += "-dirty"
	}
	if built != "" {
		detail += ", " + built
	}
	return fmt.Sprintf("%s (%s)", Version, detail)
}

// Full returns Info plus the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// buildInfo merges injected values with the toolchain's VCS stamps.
func buildInfo() (commit string, dirty bool, built string) {
	commit, built = GitCommit, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if commit == "" {
					commit = setting.Value
				}
			case "vcs.modified":
				dirty = setting.Value == "true"
			case "vcs.time":
				if built == "" {
					built = setting.Value
				}
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return commit, dirty, built
}
