// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"

	"github.com/dfloer/dronefly/card"
	"github.com/dfloer/dronefly/lib/ref"
)

var (
	// ErrNotFound means the message does not exist, was deleted, or is
	// not visible to the bot.
	ErrNotFound = errors.New("chat: message not found")

	// ErrTimeout means a reply wait ended without a reply.
	ErrTimeout = errors.New("chat: timed out waiting for reply")
)

// Message is a room message as currently displayed.
type Message struct {
	Room   ref.RoomID
	ID     ref.EventID
	Sender ref.UserID

	// Body is the markdown text of the latest edit.
	Body string

	// Card is the tally metadata, nil for anything but a tally card.
	Card *card.Meta
}

// Content is what the bot writes: a markdown body, optional card
// metadata, and an optional small-print footer shown only in the
// formatted rendering.
type Content struct {
	Body   string
	Card   *card.Meta
	Footer string
}

// Member is a joined room member.
type Member struct {
	ID          ref.UserID
	DisplayName string
}

// ReplyWatch delivers one user's messages in one room, starting from
// when the watch was opened.
type ReplyWatch interface {
	// Next blocks for the next message. When ctx is done it returns an
	// error matching ErrTimeout.
	Next(ctx context.Context) (*Message, error)
}

// Platform is the chat platform as the tally core sees it.
type Platform interface {
	// Self returns the bot's own user ID.
	Self() ref.UserID

	// FetchMessage returns the current state of a message.
	FetchMessage(ctx context.Context, room ref.RoomID, id ref.EventID) (*Message, error)

	// EditMessage replaces a message's content.
	EditMessage(ctx context.Context, room ref.RoomID, id ref.EventID, content Content) error

	// DeleteMessages deletes each message, attempting all of them
	// even if some fail.
	DeleteMessages(ctx context.Context, room ref.RoomID, ids ...ref.EventID) error

	// Send posts a message and returns its ID.
	Send(ctx context.Context, room ref.RoomID, content Content) (ref.EventID, error)

	// React adds the bot's reaction to a message.
	React(ctx context.Context, room ref.RoomID, id ref.EventID, emoji string) error

	// WatchReplies opens a watch for author's messages in room. Open
	// it before sending whatever the reply answers.
	WatchReplies(ctx context.Context, room ref.RoomID, author ref.UserID) (ReplyWatch, error)

	// IsMember reports whether user is joined to room.
	IsMember(ctx context.Context, room ref.RoomID, user ref.UserID) (bool, error)

	// Members lists the room's joined members.
	Members(ctx context.Context, room ref.RoomID) ([]Member, error)
}
