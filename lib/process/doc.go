// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for the dronefly binary:
// reporting a fatal error to stderr before (or after) the structured
// logger exists.
package process
