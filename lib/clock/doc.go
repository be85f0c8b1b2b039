// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that waits (prompt deadlines, delayed message cleanup, /sync
// retry backoff, periodic pruning) takes a Clock instead of calling
// the time package. Production wires Real(); tests wire Fake() and move
// time forward explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go prompter.Ask(ctx, request)
//	fake.WaitForTimers(1)      // the prompt deadline is registered
//	fake.Advance(15 * time.Second)
//
// WaitForTimers closes the race between a goroutine registering a
// deadline and the test advancing past it.
package clock
