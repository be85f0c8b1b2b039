// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/dfloer/dronefly/chat/chattest"
	"github.com/dfloer/dronefly/lib/clock"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/lib/testutil"
	"github.com/dfloer/dronefly/tally"
)

var (
	testBot  = ref.MustParseUserID("@dronefly:example.org")
	testRoom = ref.MustParseRoomID("!room1:example.org")
	alice    = ref.MustParseUserID("@alice:example.org")
)

const question = "Add or remove which member (you have 15 seconds to answer)?"

type result struct {
	outcome Outcome
	err     error
}

type harness struct {
	platform *chattest.Platform
	clock    *clock.FakeClock
	prompter *Prompter
	resolved []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		platform: chattest.New(testBot),
		clock:    clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.prompter = New(Config{
		Platform: h.platform,
		Clock:    h.clock,
		Prefixes: []string{"!", "$"},
	})
	return h
}

// resolve knows one member, "alice".
func (h *harness) resolve(_ context.Context, answer string) (tally.Subject, error) {
	h.resolved = append(h.resolved, answer)
	if answer == "alice" {
		return tally.UserSubject("alice_obs"), nil
	}
	return tally.Subject{}, fmt.Errorf("no member %q: %w", answer, tally.ErrNotFound)
}

// ask runs Ask in a goroutine and returns a channel for its result.
func (h *harness) ask() <-chan result {
	results := make(chan result, 1)
	go func() {
		outcome, err := h.prompter.Ask(context.Background(), Request{
			Room:    testRoom,
			User:    alice,
			Text:    question,
			Resolve: h.resolve,
		})
		results <- result{outcome, err}
	}()
	return results
}

func TestAskTimesOut(t *testing.T) {
	h := newHarness(t)
	results := h.ask()

	h.platform.WaitForWatches(1)
	h.clock.WaitForTimers(1)
	h.clock.Advance(DefaultTimeout)

	got := testutil.RequireReceive(t, results, 5*time.Second, "waiting for prompt outcome")
	if got.err != nil {
		t.Fatalf("Ask: %v", got.err)
	}
	if got.outcome.Status != NoAnswer {
		t.Errorf("status = %s, want no answer", got.outcome.Status)
	}
	if len(h.platform.Sent) != 1 || h.platform.Sent[0].Body != question {
		t.Fatalf("sent = %+v, want the prompt", h.platform.Sent)
	}
	if !slices.Equal(h.platform.Deleted, []ref.EventID{h.platform.Sent[0].ID}) {
		t.Errorf("deleted = %v, want only the prompt", h.platform.Deleted)
	}
	if len(h.resolved) != 0 {
		t.Errorf("resolver called on timeout: %v", h.resolved)
	}
}

func TestAskNotTimedOutEarly(t *testing.T) {
	h := newHarness(t)
	results := h.ask()

	h.platform.WaitForWatches(1)
	h.clock.WaitForTimers(1)
	h.clock.Advance(DefaultTimeout - time.Second)
	h.platform.Reply(testRoom, alice, "alice")

	got := testutil.RequireReceive(t, results, 5*time.Second, "waiting for prompt outcome")
	if got.err != nil || got.outcome.Status != Answered {
		t.Fatalf("Ask = %+v, %v; want answered", got.outcome, got.err)
	}
}

func TestAskAnswered(t *testing.T) {
	h := newHarness(t)
	results := h.ask()

	h.platform.WaitForWatches(1)
	replyID := h.platform.Reply(testRoom, alice, "  alice \n")

	got := testutil.RequireReceive(t, results, 5*time.Second, "waiting for prompt outcome")
	if got.err != nil {
		t.Fatalf("Ask: %v", got.err)
	}
	if got.outcome.Status != Answered || got.outcome.Reply != "alice" {
		t.Errorf("outcome = %+v", got.outcome)
	}
	if got.outcome.Subject != tally.UserSubject("alice_obs") {
		t.Errorf("subject = %+v", got.outcome.Subject)
	}
	want := []ref.EventID{h.platform.Sent[0].ID, replyID}
	if !slices.Equal(h.platform.Deleted, want) {
		t.Errorf("deleted = %v, want prompt and reply %v", h.platform.Deleted, want)
	}
	if h.clock.PendingCount() != 0 {
		t.Errorf("timeout still pending after answer")
	}
}

func TestAskAnsweredNotFound(t *testing.T) {
	h := newHarness(t)
	results := h.ask()

	h.platform.WaitForWatches(1)
	h.platform.Reply(testRoom, alice, "mallory")

	got := testutil.RequireReceive(t, results, 5*time.Second, "waiting for prompt outcome")
	if !errors.Is(got.err, tally.ErrNotFound) {
		t.Fatalf("err = %v, want tally.ErrNotFound", got.err)
	}
	if got.outcome.Status != Answered || got.outcome.Reply != "mallory" {
		t.Errorf("outcome = %+v", got.outcome)
	}
	if len(h.platform.Deleted) != 2 {
		t.Errorf("deleted = %v, want prompt and reply", h.platform.Deleted)
	}
}

func TestAskForeignReply(t *testing.T) {
	for _, reply := range []string{"!taxon titmouse", "$obs titmouse"} {
		t.Run(reply, func(t *testing.T) {
			h := newHarness(t)
			results := h.ask()

			h.platform.WaitForWatches(1)
			replyID := h.platform.Reply(testRoom, alice, reply)

			got := testutil.RequireReceive(t, results, 5*time.Second, "waiting for prompt outcome")
			if got.err != nil || got.outcome.Status != NoAnswer {
				t.Fatalf("Ask = %+v, %v; want no answer", got.outcome, got.err)
			}
			if len(h.resolved) != 0 {
				t.Errorf("resolver called for a command reply: %v", h.resolved)
			}
			if slices.Contains(h.platform.Deleted, replyID) {
				t.Error("the command reply must be left alone")
			}
			if !slices.Equal(h.platform.Deleted, []ref.EventID{h.platform.Sent[0].ID}) {
				t.Errorf("deleted = %v, want only the prompt", h.platform.Deleted)
			}
		})
	}
}

func TestAskSingleFlight(t *testing.T) {
	h := newHarness(t)
	first := h.ask()
	h.platform.WaitForWatches(1)

	outcome, err := h.prompter.Ask(context.Background(), Request{
		Room: testRoom, User: alice, Text: question, Resolve: h.resolve,
	})
	if err != nil || outcome.Status != Busy {
		t.Fatalf("second Ask = %+v, %v; want busy", outcome, err)
	}

	h.clock.WaitForTimers(1)
	h.clock.Advance(DefaultTimeout)
	testutil.RequireReceive(t, first, 5*time.Second, "waiting for first prompt")

	if len(h.platform.Sent) != 1 {
		t.Errorf("sent %d prompts, want 1", len(h.platform.Sent))
	}

	// The lock is released once the first prompt ends.
	third := h.ask()
	h.platform.WaitForWatches(2)
	h.platform.Reply(testRoom, alice, "alice")
	got := testutil.RequireReceive(t, third, 5*time.Second, "waiting for third prompt")
	if got.outcome.Status != Answered {
		t.Errorf("third Ask status = %s, want answered", got.outcome.Status)
	}
}

func TestAskCleanupFailureIsNotReturned(t *testing.T) {
	h := newHarness(t)
	h.platform.FailDelete = chattest.ErrInjected
	results := h.ask()

	h.platform.WaitForWatches(1)
	h.platform.Reply(testRoom, alice, "alice")

	got := testutil.RequireReceive(t, results, 5*time.Second, "waiting for prompt outcome")
	if got.err != nil {
		t.Fatalf("cleanup failure leaked: %v", got.err)
	}
	if got.outcome.Status != Answered {
		t.Errorf("status = %s, want answered", got.outcome.Status)
	}
}

func TestAskParentCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan result, 1)
	go func() {
		outcome, err := h.prompter.Ask(ctx, Request{Room: testRoom, User: alice, Text: question, Resolve: h.resolve})
		results <- result{outcome, err}
	}()

	h.platform.WaitForWatches(1)
	h.clock.WaitForTimers(1)
	cancel()

	got := testutil.RequireReceive(t, results, 5*time.Second, "waiting for prompt outcome")
	if !errors.Is(got.err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", got.err)
	}
	if len(h.platform.Deleted) != 1 {
		t.Errorf("prompt should still be deleted on shutdown, deleted = %v", h.platform.Deleted)
	}
}
