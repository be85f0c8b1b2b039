// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap a channel wait in a
// wall-clock guard that keeps a broken test from hanging.
// They are the only place tests use real timeouts; everything that
// measures time in the code under test runs on lib/clock's fake.
//
// [UniqueID] generates monotonically increasing identifiers, e.g. for
// the event IDs a fake chat platform hands out.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
