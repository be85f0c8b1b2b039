// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package chattest provides an in-memory chat.Platform for tests.
//
// Platform keeps messages per room, records every call, and delivers
// replies typed with Reply to open watches. It is safe for concurrent
// use, so tests can drive a handler in one goroutine and answer its
// prompt from another.
package chattest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dfloer/dronefly/card"
	"github.com/dfloer/dronefly/chat"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/lib/testutil"
)

// Platform is a fake chat.Platform.
type Platform struct {
	self ref.UserID

	mu       sync.Mutex
	messages map[ref.EventID]*chat.Message
	members  map[ref.RoomID][]chat.Member
	watches  []*watch
	watchers *sync.Cond

	// Sent lists messages posted with Send, in order.
	Sent []chat.Message
	// Edits counts EditMessage calls per message.
	Edits map[ref.EventID]int
	// Deleted lists deleted message IDs, in order.
	Deleted []ref.EventID
	// Reactions lists the bot's reactions as "eventID emoji".
	Reactions []string

	// FailDelete, when set, makes DeleteMessages fail.
	FailDelete error
	// BeforeEdit, when set, runs at the start of EditMessage.
	BeforeEdit func(id ref.EventID)
}

var _ chat.Platform = (*Platform)(nil)

// New returns an empty Platform for the bot user self.
func New(self ref.UserID) *Platform {
	platform := &Platform{
		self:     self,
		messages: make(map[ref.EventID]*chat.Message),
		members:  make(map[ref.RoomID][]chat.Member),
		Edits:    make(map[ref.EventID]int),
	}
	platform.watchers = sync.NewCond(&platform.mu)
	return platform
}

func newEventID() ref.EventID {
	return ref.MustParseEventID("$" + testutil.UniqueID("event"))
}

// Join adds a room member.
func (p *Platform) Join(room ref.RoomID, user ref.UserID, displayName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members[room] = append(p.members[room], chat.Member{ID: user, DisplayName: displayName})
}

// Post stores a message as if sent by sender and returns its ID.
func (p *Platform) Post(room ref.RoomID, sender ref.UserID, body string, meta *card.Meta) ref.EventID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := newEventID()
	p.messages[id] = &chat.Message{Room: room, ID: id, Sender: sender, Body: body, Card: cloneMeta(meta)}
	return id
}

// Remove deletes a message out from under the bot.
func (p *Platform) Remove(id ref.EventID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.messages, id)
}

// Message returns a copy of the stored message, or nil.
func (p *Platform) Message(id ref.EventID) *chat.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	message, ok := p.messages[id]
	if !ok {
		return nil
	}
	copied := *message
	copied.Card = cloneMeta(message.Card)
	return &copied
}

// Self returns the bot's user ID.
func (p *Platform) Self() ref.UserID { return p.self }

// FetchMessage returns a copy of the stored message.
func (p *Platform) FetchMessage(_ context.Context, _ ref.RoomID, id ref.EventID) (*chat.Message, error) {
	if message := p.Message(id); message != nil {
		return message, nil
	}
	return nil, fmt.Errorf("chattest: %s: %w", id, chat.ErrNotFound)
}

// EditMessage replaces the stored body and card.
func (p *Platform) EditMessage(_ context.Context, _ ref.RoomID, id ref.EventID, content chat.Content) error {
	if p.BeforeEdit != nil {
		p.BeforeEdit(id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	message, ok := p.messages[id]
	if !ok {
		return fmt.Errorf("chattest: %s: %w", id, chat.ErrNotFound)
	}
	message.Body = content.Body
	message.Card = cloneMeta(content.Card)
	p.Edits[id]++
	return nil
}

// DeleteMessages removes the messages and records their IDs.
func (p *Platform) DeleteMessages(_ context.Context, _ ref.RoomID, ids ...ref.EventID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailDelete != nil {
		return p.FailDelete
	}
	for _, id := range ids {
		delete(p.messages, id)
		p.Deleted = append(p.Deleted, id)
	}
	return nil
}

// Send stores and records a message from the bot.
func (p *Platform) Send(_ context.Context, room ref.RoomID, content chat.Content) (ref.EventID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := newEventID()
	message := chat.Message{Room: room, ID: id, Sender: p.self, Body: content.Body, Card: cloneMeta(content.Card)}
	p.messages[id] = &message
	p.Sent = append(p.Sent, message)
	return id, nil
}

// React records a reaction.
func (p *Platform) React(_ context.Context, _ ref.RoomID, id ref.EventID, emoji string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reactions = append(p.Reactions, id.String()+" "+emoji)
	return nil
}

// IsMember reports whether user was added with Join.
func (p *Platform) IsMember(_ context.Context, room ref.RoomID, user ref.UserID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.ContainsFunc(p.members[room], func(member chat.Member) bool {
		return member.ID == user
	}), nil
}

// Members returns the members added with Join.
func (p *Platform) Members(_ context.Context, room ref.RoomID) ([]chat.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.members[room]), nil
}

// WatchReplies registers a watch that Reply feeds.
func (p *Platform) WatchReplies(_ context.Context, room ref.RoomID, author ref.UserID) (chat.ReplyWatch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := &watch{platform: p, room: room, author: author, replies: make(chan *chat.Message, 8)}
	p.watches = append(p.watches, w)
	p.watchers.Broadcast()
	return w, nil
}

// WaitForWatches blocks until n watches have been opened in total.
func (p *Platform) WaitForWatches(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.watches) < n {
		p.watchers.Wait()
	}
}

// Reply posts a message from author and delivers it to every open
// watch for that author and room. Returns the message ID.
func (p *Platform) Reply(room ref.RoomID, author ref.UserID, body string) ref.EventID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := newEventID()
	message := &chat.Message{Room: room, ID: id, Sender: author, Body: body}
	p.messages[id] = message
	for _, w := range p.watches {
		if w.room == room && w.author == author {
			copied := *message
			select {
			case w.replies <- &copied:
			default:
			}
		}
	}
	return id
}

type watch struct {
	platform *Platform
	room     ref.RoomID
	author   ref.UserID
	replies  chan *chat.Message
}

func (w *watch) Next(ctx context.Context) (*chat.Message, error) {
	select {
	case reply := <-w.replies:
		return reply, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", chat.ErrTimeout, ctx.Err())
	}
}

// ErrInjected is a convenience error for FailDelete.
var ErrInjected = errors.New("chattest: injected failure")

func cloneMeta(meta *card.Meta) *card.Meta {
	if meta == nil {
		return nil
	}
	copied := *meta
	return &copied
}
