// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dfloer/dronefly/card"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/messaging"
)

var (
	botID   = ref.MustParseUserID("@dronefly:example.org")
	aliceID = ref.MustParseUserID("@alice:example.org")
	roomID  = ref.MustParseRoomID("!room:example.org")
	cardID  = ref.MustParseEventID("$card")
)

// fakeSession implements the messaging.Session calls the adapter makes.
type fakeSession struct {
	messaging.Session

	events    map[ref.EventID]*messaging.Event
	relations []messaging.Event
	members   map[ref.UserID]messaging.JoinedMember
	sent      []messaging.MessageContent
	redacted  []ref.EventID
	redactErr error
	syncs     []*messaging.SyncResponse
}

func (s *fakeSession) UserID() ref.UserID { return botID }

func (s *fakeSession) GetEvent(_ context.Context, _ ref.RoomID, id ref.EventID) (*messaging.Event, error) {
	event, ok := s.events[id]
	if !ok {
		return nil, &messaging.MatrixError{Code: messaging.ErrCodeNotFound, StatusCode: 404}
	}
	return event, nil
}

func (s *fakeSession) Relations(context.Context, ref.RoomID, ref.EventID, string, messaging.RelationsOptions) (*messaging.RelationsResponse, error) {
	return &messaging.RelationsResponse{Chunk: s.relations}, nil
}

func (s *fakeSession) SendMessage(_ context.Context, _ ref.RoomID, content messaging.MessageContent) (ref.EventID, error) {
	s.sent = append(s.sent, content)
	return ref.MustParseEventID("$sent"), nil
}

func (s *fakeSession) SendEvent(_ context.Context, _ ref.RoomID, _ string, content any) (ref.EventID, error) {
	if reaction, ok := content.(messaging.ReactionContent); ok {
		s.sent = append(s.sent, messaging.MessageContent{Body: reaction.RelatesTo.Key})
	}
	return ref.MustParseEventID("$reaction"), nil
}

func (s *fakeSession) RedactEvent(_ context.Context, _ ref.RoomID, id ref.EventID, _ string) error {
	s.redacted = append(s.redacted, id)
	return s.redactErr
}

func (s *fakeSession) JoinedMembers(context.Context, ref.RoomID) (map[ref.UserID]messaging.JoinedMember, error) {
	return s.members, nil
}

func (s *fakeSession) Sync(ctx context.Context, _ messaging.SyncOptions) (*messaging.SyncResponse, error) {
	if len(s.syncs) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	response := s.syncs[0]
	s.syncs = s.syncs[1:]
	return response, nil
}

func messageEvent(t *testing.T, id string, sender ref.UserID, content any) messaging.Event {
	t.Helper()
	raw, err := json.Marshal(content)
	if err != nil {
		t.Fatal(err)
	}
	return messaging.Event{
		EventID: ref.MustParseEventID(id),
		Type:    messaging.EventTypeMessage,
		Sender:  sender,
		Content: raw,
	}
}

func TestFetchMessage(t *testing.T) {
	meta := card.Meta{TaxonID: 13632, TaxonName: "Baeolophus bicolor"}

	t.Run("unedited", func(t *testing.T) {
		original := messaging.NewTextMessage("**Title**")
		original.Card = meta.Encode()
		event := messageEvent(t, "$card", botID, original)
		platform := NewMatrix(&fakeSession{events: map[ref.EventID]*messaging.Event{cardID: &event}}, nil)

		message, err := platform.FetchMessage(context.Background(), roomID, cardID)
		if err != nil {
			t.Fatalf("FetchMessage failed: %v", err)
		}
		if message.Body != "**Title**" || message.Sender != botID {
			t.Errorf("message = %+v", message)
		}
		if message.Card == nil || *message.Card != meta {
			t.Errorf("card = %+v", message.Card)
		}
	})

	t.Run("bundled edit", func(t *testing.T) {
		replacement := messaging.NewTextMessage("edited")
		claimed := meta
		claimed.Dimension = card.DimensionUser
		replacement.Card = claimed.Encode()
		edit := messageEvent(t, "$edit", botID, messaging.NewEdit(cardID, replacement))

		event := messageEvent(t, "$card", botID, messaging.NewTextMessage("original"))
		event.Unsigned = &messaging.EventUnsigned{Relations: &messaging.BundledRelations{Replace: &edit}}
		platform := NewMatrix(&fakeSession{events: map[ref.EventID]*messaging.Event{cardID: &event}}, nil)

		message, err := platform.FetchMessage(context.Background(), roomID, cardID)
		if err != nil {
			t.Fatalf("FetchMessage failed: %v", err)
		}
		if message.Body != "edited" {
			t.Errorf("body = %q", message.Body)
		}
		if message.Card == nil || message.Card.Dimension != card.DimensionUser {
			t.Errorf("card = %+v", message.Card)
		}
	})

	t.Run("edit reference falls back to relations", func(t *testing.T) {
		original := messaging.NewTextMessage("original")
		original.Card = meta.Encode()
		event := messageEvent(t, "$card", botID, original)
		event.Unsigned = &messaging.EventUnsigned{Relations: &messaging.BundledRelations{
			Replace: &messaging.Event{EventID: ref.MustParseEventID("$edit2")},
		}}

		older := messageEvent(t, "$edit1", botID, messaging.NewEdit(cardID, messaging.NewTextMessage("older")))
		older.OriginServerTS = 100
		newer := messageEvent(t, "$edit2", botID, messaging.NewEdit(cardID, messaging.NewTextMessage("newer")))
		newer.OriginServerTS = 200
		forged := messageEvent(t, "$forged", aliceID, messaging.NewEdit(cardID, messaging.NewTextMessage("forged")))
		forged.OriginServerTS = 300

		session := &fakeSession{
			events:    map[ref.EventID]*messaging.Event{cardID: &event},
			relations: []messaging.Event{forged, older, newer},
		}
		message, err := NewMatrix(session, nil).FetchMessage(context.Background(), roomID, cardID)
		if err != nil {
			t.Fatalf("FetchMessage failed: %v", err)
		}
		if message.Body != "newer" {
			t.Errorf("body = %q, want newer", message.Body)
		}
		if message.Card == nil {
			t.Error("card metadata from the original should carry over an edit without it")
		}
	})

	t.Run("missing", func(t *testing.T) {
		platform := NewMatrix(&fakeSession{}, nil)
		_, err := platform.FetchMessage(context.Background(), roomID, cardID)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("redacted", func(t *testing.T) {
		event := messageEvent(t, "$card", botID, map[string]any{})
		event.Unsigned = &messaging.EventUnsigned{RedactedBecause: json.RawMessage(`{}`)}
		platform := NewMatrix(&fakeSession{events: map[ref.EventID]*messaging.Event{cardID: &event}}, nil)
		_, err := platform.FetchMessage(context.Background(), roomID, cardID)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEditMessage(t *testing.T) {
	session := &fakeSession{}
	platform := NewMatrix(session, nil)
	meta := &card.Meta{TaxonID: 1, Dimension: card.DimensionUser}

	err := platform.EditMessage(context.Background(), roomID, cardID, Content{
		Body:   "**Title**\n__obs# by user:__",
		Card:   meta,
		Footer: card.UserTotalFooter,
	})
	if err != nil {
		t.Fatalf("EditMessage failed: %v", err)
	}
	if len(session.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(session.sent))
	}
	edit := session.sent[0]
	if edit.RelatesTo == nil || edit.RelatesTo.EventID != cardID || edit.NewContent == nil {
		t.Fatalf("not an edit: %+v", edit)
	}
	if edit.NewContent.Body != "**Title**\n__obs# by user:__" {
		t.Errorf("new body = %q", edit.NewContent.Body)
	}
	if !strings.Contains(edit.NewContent.FormattedBody, "<strong>Title</strong>") ||
		!strings.Contains(edit.NewContent.FormattedBody, card.UserTotalFooter) {
		t.Errorf("formatted body = %q", edit.NewContent.FormattedBody)
	}
	decoded, err := card.Decode(edit.NewContent.Card)
	if err != nil || decoded == nil || *decoded != *meta {
		t.Errorf("card = %+v, %v", decoded, err)
	}
}

func TestDeleteMessages(t *testing.T) {
	t.Run("not found is not an error", func(t *testing.T) {
		session := &fakeSession{redactErr: &messaging.MatrixError{Code: messaging.ErrCodeNotFound}}
		err := NewMatrix(session, nil).DeleteMessages(context.Background(), roomID,
			ref.MustParseEventID("$a"), ref.MustParseEventID("$b"))
		if err != nil {
			t.Fatalf("DeleteMessages failed: %v", err)
		}
		if len(session.redacted) != 2 {
			t.Errorf("redacted = %v", session.redacted)
		}
	})

	t.Run("other errors attempt every message", func(t *testing.T) {
		session := &fakeSession{redactErr: &messaging.MatrixError{Code: messaging.ErrCodeForbidden}}
		err := NewMatrix(session, nil).DeleteMessages(context.Background(), roomID,
			ref.MustParseEventID("$a"), ref.MustParseEventID("$b"))
		if err == nil {
			t.Fatal("expected error")
		}
		if len(session.redacted) != 2 {
			t.Errorf("redacted = %v", session.redacted)
		}
	})
}

func TestSendAndReact(t *testing.T) {
	session := &fakeSession{}
	platform := NewMatrix(session, nil)

	if _, err := platform.Send(context.Background(), roomID, Content{Body: "hello"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if session.sent[0].Mentions == nil || len(session.sent[0].Mentions.UserIDs) != 0 {
		t.Errorf("mentions = %+v", session.sent[0].Mentions)
	}
	if err := platform.React(context.Background(), roomID, cardID, "🏠"); err != nil {
		t.Fatalf("React failed: %v", err)
	}
	if session.sent[1].Body != "🏠" {
		t.Errorf("reaction key = %q", session.sent[1].Body)
	}
}

func TestMembership(t *testing.T) {
	session := &fakeSession{members: map[ref.UserID]messaging.JoinedMember{
		aliceID: {DisplayName: "Alice"},
		botID:   {},
	}}
	platform := NewMatrix(session, nil)

	ok, err := platform.IsMember(context.Background(), roomID, aliceID)
	if err != nil || !ok {
		t.Errorf("IsMember(alice) = %v, %v", ok, err)
	}
	ok, _ = platform.IsMember(context.Background(), roomID, ref.MustParseUserID("@mallory:example.org"))
	if ok {
		t.Error("IsMember(mallory) = true")
	}

	members, err := platform.Members(context.Background(), roomID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0].ID != aliceID || members[0].DisplayName != "Alice" {
		t.Errorf("members = %+v", members)
	}
}

func TestWatchReplies(t *testing.T) {
	timeline := func(events ...messaging.Event) *messaging.SyncResponse {
		return &messaging.SyncResponse{
			NextBatch: "next",
			Rooms: messaging.RoomsSection{Join: map[ref.RoomID]messaging.JoinedRoom{
				roomID: {Timeline: messaging.TimelineSection{Events: events}},
			}},
		}
	}
	edit := messageEvent(t, "$edit", aliceID, messaging.NewEdit(ref.MustParseEventID("$old"), messaging.NewTextMessage("fixed")))
	answer := messageEvent(t, "$answer", aliceID, messaging.NewTextMessage("@bob:example.org"))

	t.Run("skips edits", func(t *testing.T) {
		session := &fakeSession{syncs: []*messaging.SyncResponse{{NextBatch: "start"}, timeline(edit, answer)}}
		watch, err := NewMatrix(session, nil).WatchReplies(context.Background(), roomID, aliceID)
		if err != nil {
			t.Fatalf("WatchReplies failed: %v", err)
		}
		reply, err := watch.Next(context.Background())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if reply.ID.String() != "$answer" || reply.Body != "@bob:example.org" || reply.Room != roomID {
			t.Errorf("reply = %+v", reply)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		session := &fakeSession{syncs: []*messaging.SyncResponse{{NextBatch: "start"}}}
		watch, err := NewMatrix(session, nil).WatchReplies(context.Background(), roomID, aliceID)
		if err != nil {
			t.Fatalf("WatchReplies failed: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := watch.Next(ctx); !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	})
}
