// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package tally

import (
	"context"
	"errors"
	"fmt"

	"github.com/dfloer/dronefly/card"
	"github.com/dfloer/dronefly/inat"
	"github.com/dfloer/dronefly/lib/ref"
)

// ErrNotFound means a name did not resolve to a member or place.
var ErrNotFound = errors.New("tally: not found")

// Action is what a gesture does to its subject.
type Action int

const (
	// Toggle removes a present subject and adds an absent one.
	Toggle Action = iota
	Add
	Remove
)

func (a Action) String() string {
	switch a {
	case Toggle:
		return "toggle"
	case Add:
		return "add"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Subject is the observer or place a gesture names.
type Subject struct {
	Dimension card.Dimension

	// Key is the entry key: the iNaturalist login for a user, the
	// display name for a place.
	Key string

	// PlaceID is set for places.
	PlaceID int
}

// UserSubject returns the subject for an iNaturalist login.
func UserSubject(login string) Subject {
	return Subject{Dimension: card.DimensionUser, Key: login}
}

// PlaceSubject returns the subject for a place.
func PlaceSubject(place *inat.Place) Subject {
	return Subject{Dimension: card.DimensionPlace, Key: place.Label(), PlaceID: place.ID}
}

func (s Subject) String() string {
	return string(s.Dimension) + ":" + s.Key
}

// Target identifies a card message.
type Target struct {
	Room    ref.RoomID
	Message ref.EventID
}

// Counter reports observation counts.
type Counter interface {
	ObservationCount(ctx context.Context, filter inat.CountFilter) (int, error)
}

// Resolver turns a typed name into a subject. Both methods return an
// error matching ErrNotFound when nothing matches.
type Resolver interface {
	ResolveUser(ctx context.Context, room ref.RoomID, name string) (Subject, error)
	ResolvePlace(ctx context.Context, room ref.RoomID, name string) (Subject, error)
}
