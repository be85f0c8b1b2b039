// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dfloer/dronefly/lib/ref"
)

// syncScript is a Session whose Sync calls replay canned responses in
// order. Other methods are unused by RoomWatcher.
type syncScript struct {
	Session

	mu        sync.Mutex
	responses []syncStep
	requests  []SyncOptions
	closed    int
}

type syncStep struct {
	response *SyncResponse
	err      error
}

func (s *syncScript) Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, options)
	if len(s.responses) == 0 {
		s.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	step := s.responses[0]
	s.responses = s.responses[1:]
	s.mu.Unlock()
	return step.response, step.err
}

func (s *syncScript) CloseIdleConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

func batch(next string, roomID ref.RoomID, events ...Event) syncStep {
	response := &SyncResponse{NextBatch: next}
	if len(events) > 0 {
		response.Rooms.Join = map[ref.RoomID]JoinedRoom{
			roomID: {Timeline: TimelineSection{Events: events}},
		}
	}
	return syncStep{response: response}
}

func textEvent(id, sender, body string) Event {
	content, _ := json.Marshal(NewTextMessage(body))
	return Event{
		EventID: ref.MustParseEventID(id),
		Type:    EventTypeMessage,
		Sender:  ref.MustParseUserID(sender),
		Content: content,
	}
}

func fromSender(sender string) func(Event) bool {
	userID := ref.MustParseUserID(sender)
	return func(event Event) bool { return event.Sender == userID }
}

func TestRoomWatcher(t *testing.T) {
	room := ref.MustParseRoomID(testRoom)

	t.Run("captures position then matches", func(t *testing.T) {
		script := &syncScript{responses: []syncStep{
			batch("s1", room),
			batch("s2", room, textEvent("$other", "@bob:example.org", "hi")),
			batch("s3", room, textEvent("$answer", "@alice:example.org", "@carol")),
		}}

		watcher, err := WatchRoom(context.Background(), script, room, &SyncFilter{TimelineTypes: []string{EventTypeMessage}})
		if err != nil {
			t.Fatalf("WatchRoom failed: %v", err)
		}
		event, err := watcher.WaitForEvent(context.Background(), fromSender("@alice:example.org"))
		if err != nil {
			t.Fatalf("WaitForEvent failed: %v", err)
		}
		if event.EventID.String() != "$answer" {
			t.Errorf("matched %s, want $answer", event.EventID)
		}

		if len(script.requests) != 3 {
			t.Fatalf("expected 3 syncs, got %d", len(script.requests))
		}
		initial := script.requests[0]
		if !initial.SetTimeout || initial.Timeout != 0 || initial.Since != "" {
			t.Errorf("initial sync options = %+v", initial)
		}
		if script.requests[1].Since != "s1" || script.requests[2].Since != "s2" {
			t.Errorf("since tokens not threaded: %+v", script.requests)
		}
		if script.requests[1].Timeout != longPollTimeout {
			t.Errorf("long poll timeout = %d", script.requests[1].Timeout)
		}
		if !strings.Contains(initial.Filter, testRoom) || !strings.Contains(initial.Filter, EventTypeMessage) {
			t.Errorf("filter = %s", initial.Filter)
		}
	})

	t.Run("buffers unmatched events from a batch", func(t *testing.T) {
		script := &syncScript{responses: []syncStep{
			batch("s1", room),
			batch("s2", room,
				textEvent("$first", "@alice:example.org", "one"),
				textEvent("$second", "@bob:example.org", "two"),
			),
		}}

		watcher, err := WatchRoom(context.Background(), script, room, nil)
		if err != nil {
			t.Fatalf("WatchRoom failed: %v", err)
		}
		if _, err := watcher.WaitForEvent(context.Background(), fromSender("@alice:example.org")); err != nil {
			t.Fatalf("first wait failed: %v", err)
		}
		event, err := watcher.WaitForEvent(context.Background(), fromSender("@bob:example.org"))
		if err != nil {
			t.Fatalf("second wait failed: %v", err)
		}
		if event.EventID.String() != "$second" {
			t.Errorf("matched %s, want $second", event.EventID)
		}
		if len(script.requests) != 2 {
			t.Errorf("buffered event should not need another sync; got %d syncs", len(script.requests))
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		script := &syncScript{responses: []syncStep{batch("s1", room)}}
		watcher, err := WatchRoom(context.Background(), script, room, nil)
		if err != nil {
			t.Fatalf("WatchRoom failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = watcher.WaitForEvent(ctx, fromSender("@alice:example.org"))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("retries then recovers", func(t *testing.T) {
		script := &syncScript{responses: []syncStep{
			batch("s1", room),
			{err: io.ErrUnexpectedEOF},
			{err: errors.New("gateway timeout")},
			batch("s2", room, textEvent("$answer", "@alice:example.org", "x")),
		}}
		watcher, err := WatchRoom(context.Background(), script, room, nil)
		if err != nil {
			t.Fatalf("WatchRoom failed: %v", err)
		}
		if _, err := watcher.WaitForEvent(context.Background(), fromSender("@alice:example.org")); err != nil {
			t.Fatalf("WaitForEvent failed: %v", err)
		}
		if script.closed != 1 {
			t.Errorf("idle connections closed %d times, want 1", script.closed)
		}
		if script.requests[2].Timeout != retryTimeout {
			t.Errorf("retry timeout = %d", script.requests[2].Timeout)
		}
	})

	t.Run("gives up after repeated failures", func(t *testing.T) {
		steps := []syncStep{batch("s1", room)}
		for range maxSyncRetries + 1 {
			steps = append(steps, syncStep{err: errors.New("boom")})
		}
		script := &syncScript{responses: steps}
		watcher, err := WatchRoom(context.Background(), script, room, nil)
		if err != nil {
			t.Fatalf("WatchRoom failed: %v", err)
		}
		if _, err := watcher.WaitForEvent(context.Background(), fromSender("@alice:example.org")); err == nil {
			t.Fatal("expected error after repeated sync failures")
		}
	})

	t.Run("zero room", func(t *testing.T) {
		if _, err := WatchRoom(context.Background(), &syncScript{}, ref.RoomID{}, nil); err == nil {
			t.Fatal("expected error for zero room ID")
		}
	})
}

func TestBuildInlineFilter(t *testing.T) {
	room := ref.MustParseRoomID(testRoom)
	filter := buildInlineFilter(room, &SyncFilter{
		TimelineTypes: []string{EventTypeMessage},
		Senders:       []ref.UserID{ref.MustParseUserID("@alice:example.org")},
		ExcludeState:  true,
	})

	var decoded struct {
		Room struct {
			Rooms    []string `json:"rooms"`
			Timeline struct {
				Types   []string `json:"types"`
				Senders []string `json:"senders"`
			} `json:"timeline"`
			State struct {
				Types []string `json:"types"`
			} `json:"state"`
		} `json:"room"`
	}
	if err := json.Unmarshal([]byte(filter), &decoded); err != nil {
		t.Fatalf("filter is not valid JSON: %v", err)
	}
	if len(decoded.Room.Rooms) != 1 || decoded.Room.Rooms[0] != testRoom {
		t.Errorf("rooms = %v", decoded.Room.Rooms)
	}
	if len(decoded.Room.Timeline.Senders) != 1 || decoded.Room.Timeline.Senders[0] != "@alice:example.org" {
		t.Errorf("senders = %v", decoded.Room.Timeline.Senders)
	}
	if decoded.Room.State.Types == nil || len(decoded.Room.State.Types) != 0 {
		t.Errorf("state types = %v", decoded.Room.State.Types)
	}
}
