// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"

	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/messaging"
	"github.com/dfloer/dronefly/reaction"
	"github.com/dfloer/dronefly/registry"
)

// Event is an inbound event the bot acts on. The concrete type is one
// of ReactionAdded, ReactionRemoved, or TextMessage.
type Event interface {
	room() ref.RoomID
}

// ReactionAdded is a new m.reaction annotation.
type ReactionAdded struct {
	Room     ref.RoomID
	Reaction ref.EventID
	Target   ref.EventID
	Emoji    string
	Sender   ref.UserID
}

// ReactionRemoved is the redaction of an indexed reaction. Sender is
// the user whose reaction it was, not necessarily the redactor.
type ReactionRemoved struct {
	Room      ref.RoomID
	Redaction ref.EventID
	Reaction  ref.EventID
	Target    ref.EventID
	Emoji     string
	Sender    ref.UserID
}

// TextMessage is a new plain-text room message.
type TextMessage struct {
	Room   ref.RoomID
	ID     ref.EventID
	Sender ref.UserID
	Body   string
}

func (e ReactionAdded) room() ref.RoomID   { return e.Room }
func (e ReactionRemoved) room() ref.RoomID { return e.Room }
func (e TextMessage) room() ref.RoomID     { return e.Room }

// classify turns a timeline event into an Event, or nil for events the
// bot ignores. Reactions are indexed and redactions resolved here, so
// classify must see events in stream order.
func (b *Bot) classify(ctx context.Context, room ref.RoomID, event messaging.Event) (Event, error) {
	if event.Sender == b.self || event.IsRedacted() {
		return nil, nil
	}

	switch event.Type {
	case messaging.EventTypeReaction:
		var content messaging.ReactionContent
		if err := event.DecodeContent(&content); err != nil {
			b.logger.Debug("undecodable reaction", "event_id", event.EventID, "error", err)
			return nil, nil
		}
		relation := content.RelatesTo
		if relation.RelType != messaging.RelationAnnotation || relation.EventID.IsZero() || relation.Key == "" {
			return nil, nil
		}
		err := b.registry.RecordReaction(ctx, registry.Reaction{
			ID:     event.EventID,
			Room:   room,
			Target: relation.EventID,
			Emoji:  relation.Key,
			Sender: event.Sender,
		})
		if err != nil {
			return nil, err
		}
		return ReactionAdded{
			Room:     room,
			Reaction: event.EventID,
			Target:   relation.EventID,
			Emoji:    relation.Key,
			Sender:   event.Sender,
		}, nil

	case messaging.EventTypeRedaction:
		redacted := event.RedactedEventID()
		if redacted.IsZero() {
			return nil, nil
		}
		indexed, err := b.registry.TakeReaction(ctx, redacted)
		if errors.Is(err, registry.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if indexed.Room != room {
			return nil, nil
		}
		return ReactionRemoved{
			Room:      room,
			Redaction: event.EventID,
			Reaction:  indexed.ID,
			Target:    indexed.Target,
			Emoji:     indexed.Emoji,
			Sender:    indexed.Sender,
		}, nil

	case messaging.EventTypeMessage:
		var content messaging.MessageContent
		if err := event.DecodeContent(&content); err != nil {
			return nil, nil
		}
		if content.MsgType != "m.text" {
			return nil, nil
		}
		if content.RelatesTo != nil && content.RelatesTo.RelType == messaging.RelationReplace {
			return nil, nil
		}
		return TextMessage{Room: room, ID: event.EventID, Sender: event.Sender, Body: content.Body}, nil
	}
	return nil, nil
}

// dispatch handles one classified event.
func (b *Bot) dispatch(ctx context.Context, event Event) {
	switch event := event.(type) {
	case ReactionAdded:
		// Handle logs its own failures.
		b.dispatcher.Handle(ctx, reaction.Event{
			Action:  reaction.Added,
			Emoji:   event.Emoji,
			Room:    event.Room,
			Message: event.Target,
			Actor:   event.Sender,
		})
	case ReactionRemoved:
		b.dispatcher.Handle(ctx, reaction.Event{
			Action:  reaction.Removed,
			Emoji:   event.Emoji,
			Room:    event.Room,
			Message: event.Target,
			Actor:   event.Sender,
		})
	case TextMessage:
		if err := b.handleText(ctx, event); err != nil && ctx.Err() == nil {
			b.logger.Error("message handling failed",
				"room", event.Room,
				"event_id", event.ID,
				"sender", event.Sender,
				"error", err,
			)
		}
	}
}
