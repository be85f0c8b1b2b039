// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the dronefly YAML configuration.
//
// The file is named either by the DRONEFLY_CONFIG environment variable
// (via [Load]) or by a --config flag (via [LoadFile]). There is no
// discovery and no fallback path: the bot runs with exactly the file
// it was given.
//
// The file may carry development, staging, and production sections
// whose non-empty values override the base values when
// [Config].Environment matches.
//
// After loading, ${HOME}, ${STATE_DIRECTORY} (set by systemd's
// StateDirectory=), and ${VAR:-default} patterns are expanded in path
// fields. No other environment variables override config values.
package config
