// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package keylock hands out one mutex per key, created on first use.
//
// The bot holds two registries: one keyed by message (serializing
// read-modify-write of a tally card) and one keyed by (room, user)
// (single-flighting interactive prompts). Mutexes are never evicted;
// the number of distinct keys a bot sees in its lifetime is small.
//
// [Mutex] differs from [sync.Mutex] in that Lock accepts a context, so
// a caller waiting behind a slow edit can be cancelled.
package keylock
