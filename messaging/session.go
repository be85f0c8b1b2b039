// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"

	"github.com/dfloer/dronefly/lib/ref"
)

// Session is the set of authenticated operations the bot performs.
// *DirectSession is the production implementation; tests substitute
// fakes where an HTTP round trip adds nothing.
type Session interface {
	// UserID returns the session's fully-qualified user ID.
	UserID() ref.UserID

	// SendMessage sends an m.room.message. Returns the event ID.
	SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error)

	// SendEvent sends an event of any type. Returns the event ID.
	SendEvent(ctx context.Context, roomID ref.RoomID, eventType string, content any) (ref.EventID, error)

	// RedactEvent redacts (deletes) an event.
	RedactEvent(ctx context.Context, roomID ref.RoomID, eventID ref.EventID, reason string) error

	// GetEvent fetches a single event.
	GetEvent(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) (*Event, error)

	// Relations fetches events related to eventID by relType.
	Relations(ctx context.Context, roomID ref.RoomID, eventID ref.EventID, relType string, options RelationsOptions) (*RelationsResponse, error)

	// JoinedMembers returns the room's joined members.
	JoinedMembers(ctx context.Context, roomID ref.RoomID) (map[ref.UserID]JoinedMember, error)

	// JoinRoom joins a room the user was invited to.
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)

	// Sync performs a /sync request.
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)
}

var _ Session = (*DirectSession)(nil)
