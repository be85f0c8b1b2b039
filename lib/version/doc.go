// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the dronefly binary.
//
// [Version] and [GitCommit] can be injected with -ldflags -X. When they
// are not, the commit is taken from the Go toolchain's embedded VCS
// stamp (runtime/debug.ReadBuildInfo), so a plain `go build` from a
// checkout still reports something useful.
//
// [UserAgent] is sent with every iNaturalist API request, which asks
// clients to identify themselves.
package version
