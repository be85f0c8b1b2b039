// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestCommitFromBuildInfo(t *testing.T) {
	t.Run("no build info", func(t *testing.T) {
		if got := commitFromBuildInfo(nil, false); got != "unknown" {
			t.Errorf("got %q, want unknown", got)
		}
	})

	t.Run("clean revision is shortened", func(t *testing.T) {
		info := &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "false"},
		}}
		if got := commitFromBuildInfo(info, true); got != "0123456789ab" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("dirty tree", func(t *testing.T) {
		info := &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.modified", Value: "true"},
		}}
		if got := commitFromBuildInfo(info, true); got != "abc123-dirty" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("no vcs stamp", func(t *testing.T) {
		if got := commitFromBuildInfo(&debug.BuildInfo{}, true); got != "unknown" {
			t.Errorf("got %q", got)
		}
	})
}

func TestInjectedCommitWins(t *testing.T) {
	saved := GitCommit
	t.Cleanup(func() { GitCommit = saved })
	GitCommit = "feedbee"
	if got := Commit(); got != "feedbee" {
		t.Errorf("Commit() = %q", got)
	}
	if !strings.Contains(Info(), "feedbee") {
		t.Errorf("Info() = %q does not mention commit", Info())
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); !strings.HasPrefix(got, "dronefly/"+Version) {
		t.Errorf("UserAgent() = %q", got)
	}
}
