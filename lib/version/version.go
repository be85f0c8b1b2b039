// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = ""

	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"
)

const projectURL = "https://github.com/dfloer/dronefly"

// Commit returns the build's git SHA, falling back to the VCS stamp
// the toolchain embedded, or "unknown".
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	return commitFromBuildInfo(debug.ReadBuildInfo())
}

func commitFromBuildInfo(info *debug.BuildInfo, ok bool) string {
	if !ok {
		return "unknown"
	}
	revision, dirty := "", false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision == "" {
		return "unknown"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}

// Info returns the --version line.
func Info() string {
	return fmt.Sprintf("dronefly %s (%s, %s %s/%s)",
		Version, Commit(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies the bot to upstream HTTP APIs.
func UserAgent() string {
	return fmt.Sprintf("dronefly/%s (+%s)", Version, projectURL)
}
