// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dfloer/dronefly/card"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/messaging"
)

// editLookback is how many m.replace relations FetchMessage scans for
// the sender's latest edit when the server did not bundle it.
const editLookback = 10

// Matrix implements Platform over a Matrix session.
type Matrix struct {
	session messaging.Session
	logger  *slog.Logger
}

var _ Platform = (*Matrix)(nil)

// NewMatrix wraps session. A nil logger means slog.Default().
func NewMatrix(session messaging.Session, logger *slog.Logger) *Matrix {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matrix{session: session, logger: logger}
}

// Self returns the session's user ID.
func (m *Matrix) Self() ref.UserID {
	return m.session.UserID()
}

// FetchMessage fetches the event and applies its latest edit by the
// original sender. Redacted events and non-message events are
// ErrNotFound.
func (m *Matrix) FetchMessage(ctx context.Context, room ref.RoomID, id ref.EventID) (*Message, error) {
	event, err := m.session.GetEvent(ctx, room, id)
	if err != nil {
		if messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			return nil, fmt.Errorf("chat: fetching %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("chat: fetching %s: %w", id, err)
	}
	if event.Type != messaging.EventTypeMessage || event.IsRedacted() {
		return nil, fmt.Errorf("chat: %s is not a live message: %w", id, ErrNotFound)
	}

	var content messaging.MessageContent
	if err := event.DecodeContent(&content); err != nil {
		return nil, fmt.Errorf("chat: decoding %s: %w", id, err)
	}

	latest, err := m.latestEdit(ctx, room, event)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		if latest.Card == nil {
			latest.Card = content.Card
		}
		content = *latest
	}

	meta, err := card.Decode(content.Card)
	if err != nil {
		m.logger.Debug("ignoring unreadable card metadata",
			"room_id", room,
			"event_id", id,
			"error", err,
		)
		meta = nil
	}
	return &Message{
		Room:   room,
		ID:     id,
		Sender: event.Sender,
		Body:   content.Body,
		Card:   meta,
	}, nil
}

// latestEdit returns the replacement content of the newest edit, or
// nil when the event was never edited.
func (m *Matrix) latestEdit(ctx context.Context, room ref.RoomID, event *messaging.Event) (*messaging.MessageContent, error) {
	if event.Unsigned == nil || event.Unsigned.Relations == nil || event.Unsigned.Relations.Replace == nil {
		return nil, nil
	}
	if content, ok := event.BundledEdit(); ok {
		return content, nil
	}

	response, err := m.session.Relations(ctx, room, event.EventID, messaging.RelationReplace,
		messaging.RelationsOptions{Direction: "b", Limit: editLookback})
	if err != nil {
		return nil, fmt.Errorf("chat: fetching edits of %s: %w", event.EventID, err)
	}
	edits := make([]messaging.Event, 0, len(response.Chunk))
	for _, edit := range response.Chunk {
		if edit.Sender == event.Sender && !edit.IsRedacted() {
			edits = append(edits, edit)
		}
	}
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].OriginServerTS > edits[j].OriginServerTS
	})
	for _, edit := range edits {
		var content messaging.MessageContent
		if err := edit.DecodeContent(&content); err != nil || content.NewContent == nil {
			continue
		}
		return content.NewContent, nil
	}
	return nil, nil
}

// EditMessage sends an m.replace edit carrying the new body, its HTML
// rendering, and the card metadata.
func (m *Matrix) EditMessage(ctx context.Context, room ref.RoomID, id ref.EventID, content Content) error {
	replacement, err := messageContent(content)
	if err != nil {
		return err
	}
	if _, err := m.session.SendMessage(ctx, room, messaging.NewEdit(id, replacement)); err != nil {
		if messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			return fmt.Errorf("chat: editing %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("chat: editing %s: %w", id, err)
	}
	return nil
}

// DeleteMessages redacts each event. Already-deleted events are not
// errors.
func (m *Matrix) DeleteMessages(ctx context.Context, room ref.RoomID, ids ...ref.EventID) error {
	var errs []error
	for _, id := range ids {
		err := m.session.RedactEvent(ctx, room, id, "")
		if err != nil && !messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			errs = append(errs, fmt.Errorf("chat: deleting %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Send posts a message. Sent messages mention nobody.
func (m *Matrix) Send(ctx context.Context, room ref.RoomID, content Content) (ref.EventID, error) {
	message, err := messageContent(content)
	if err != nil {
		return ref.EventID{}, err
	}
	message.Mentions = &messaging.Mentions{UserIDs: []ref.UserID{}}
	id, err := m.session.SendMessage(ctx, room, message)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("chat: sending to %s: %w", room, err)
	}
	return id, nil
}

// React annotates a message with emoji.
func (m *Matrix) React(ctx context.Context, room ref.RoomID, id ref.EventID, emoji string) error {
	if _, err := m.session.SendEvent(ctx, room, messaging.EventTypeReaction, messaging.NewReaction(id, emoji)); err != nil {
		return fmt.Errorf("chat: reacting %s to %s: %w", emoji, id, err)
	}
	return nil
}

// IsMember checks the room's joined members.
func (m *Matrix) IsMember(ctx context.Context, room ref.RoomID, user ref.UserID) (bool, error) {
	members, err := m.session.JoinedMembers(ctx, room)
	if err != nil {
		return false, fmt.Errorf("chat: members of %s: %w", room, err)
	}
	_, ok := members[user]
	return ok, nil
}

// Members lists the room's joined members, sorted by user ID.
func (m *Matrix) Members(ctx context.Context, room ref.RoomID) ([]Member, error) {
	joined, err := m.session.JoinedMembers(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("chat: members of %s: %w", room, err)
	}
	members := make([]Member, 0, len(joined))
	for id, member := range joined {
		members = append(members, Member{ID: id, DisplayName: member.DisplayName})
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].ID.String() < members[j].ID.String()
	})
	return members, nil
}

// WatchReplies opens a /sync watch for author's messages in room.
func (m *Matrix) WatchReplies(ctx context.Context, room ref.RoomID, author ref.UserID) (ReplyWatch, error) {
	watcher, err := messaging.WatchRoom(ctx, m.session, room, &messaging.SyncFilter{
		TimelineTypes: []string{messaging.EventTypeMessage},
		Senders:       []ref.UserID{author},
		ExcludeState:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: watching %s: %w", room, err)
	}
	return &matrixReplyWatch{watcher: watcher, author: author}, nil
}

type matrixReplyWatch struct {
	watcher *messaging.RoomWatcher
	author  ref.UserID
}

// Next skips edits and redacted events; an edit of an earlier message
// is not a reply.
func (w *matrixReplyWatch) Next(ctx context.Context) (*Message, error) {
	var content messaging.MessageContent
	event, err := w.watcher.WaitForEvent(ctx, func(event messaging.Event) bool {
		if event.Type != messaging.EventTypeMessage || event.Sender != w.author || event.IsRedacted() {
			return false
		}
		var candidate messaging.MessageContent
		if event.DecodeContent(&candidate) != nil {
			return false
		}
		if candidate.RelatesTo != nil && candidate.RelatesTo.RelType == messaging.RelationReplace {
			return false
		}
		content = candidate
		return true
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("chat: waiting for reply: %w", err)
	}
	return &Message{
		Room:   w.watcher.RoomID(),
		ID:     event.EventID,
		Sender: event.Sender,
		Body:   content.Body,
	}, nil
}

func messageContent(content Content) (messaging.MessageContent, error) {
	html, err := card.HTML(content.Body, content.Footer)
	if err != nil {
		return messaging.MessageContent{}, err
	}
	message := messaging.NewHTMLMessage(content.Body, html)
	if content.Card != nil {
		message.Card = content.Card.Encode()
	}
	return message, nil
}
