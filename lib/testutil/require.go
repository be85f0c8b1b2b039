// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import "time"

// TB is the part of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed. what names the wait in
// the failure message.
//
//	outcome := testutil.RequireReceive(t, outcomes, 5*time.Second, "waiting for prompt outcome")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, what string) T {
	t.Helper()
	guard := time.NewTimer(timeout)
	defer guard.Stop()

	var value T
	select {
	case received, open := <-ch:
		if !open {
			t.Fatalf("%s: channel closed", what)
		}
		value = received
	case <-guard.C:
		t.Fatalf("%s: nothing received after %v", what, timeout)
	}
	return value
}

// RequireClosed waits until ch is closed or yields a value, failing
// the test after timeout.
//
//	testutil.RequireClosed(t, done, 5*time.Second, "handler finished")
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	guard := time.NewTimer(timeout)
	defer guard.Stop()

	select {
	case <-ch:
	case <-guard.C:
		t.Fatalf("%s: still open after %v", what, timeout)
	}
}
