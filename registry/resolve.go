// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dfloer/dronefly/inat"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/tally"
)

var _ tally.Resolver = (*Registry)(nil)

// ResolveUser finds the registered observer a name refers to, trying
// in order: a Matrix user ID, a display name or localpart among the
// room's joined members, and a registered iNaturalist login. Matches
// that are not registered are skipped.
func (r *Registry) ResolveUser(ctx context.Context, room ref.RoomID, name string) (tally.Subject, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return tally.Subject{}, fmt.Errorf("registry: empty member name: %w", tally.ErrNotFound)
	}

	if userID, err := ref.ParseUserID("@" + name); err == nil {
		member, err := r.Member(ctx, userID)
		if err == nil {
			return tally.UserSubject(member.Login), nil
		}
		if !errors.Is(err, ErrNotRegistered) {
			return tally.Subject{}, err
		}
	}

	if r.rooms != nil {
		member, err := r.memberByDisplayName(ctx, room, name)
		if err != nil {
			return tally.Subject{}, err
		}
		if member != nil {
			return tally.UserSubject(member.Login), nil
		}
	}

	member, err := r.MemberByLogin(ctx, name)
	if errors.Is(err, ErrNotRegistered) {
		return tally.Subject{}, fmt.Errorf("registry: no registered member %q: %w", name, tally.ErrNotFound)
	}
	if err != nil {
		return tally.Subject{}, err
	}
	return tally.UserSubject(member.Login), nil
}

// memberByDisplayName returns the first registered joined member whose
// display name or localpart folds equal to name, or nil.
func (r *Registry) memberByDisplayName(ctx context.Context, room ref.RoomID, name string) (*Member, error) {
	joined, err := r.rooms.Members(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("registry: listing members of %s: %w", room, err)
	}
	want := fold(name)
	for _, candidate := range joined {
		if fold(candidate.DisplayName) != want && fold(candidate.ID.Localpart()) != want {
			continue
		}
		member, err := r.Member(ctx, candidate.ID)
		if errors.Is(err, ErrNotRegistered) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return member, nil
	}
	return nil, nil
}

// ResolvePlace finds the place a name refers to: an alias first, then
// the iNaturalist place search.
func (r *Registry) ResolvePlace(ctx context.Context, _ ref.RoomID, name string) (tally.Subject, error) {
	place, err := r.LookupPlace(ctx, name)
	if err != nil {
		return tally.Subject{}, err
	}
	return tally.PlaceSubject(place), nil
}

// LookupPlace resolves a place name to a place. Unknown names return an
// error matching tally.ErrNotFound.
func (r *Registry) LookupPlace(ctx context.Context, name string) (*inat.Place, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("registry: empty place name: %w", tally.ErrNotFound)
	}

	place, err := r.Alias(ctx, name)
	if err == nil {
		return place, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if r.places == nil {
		return nil, fmt.Errorf("registry: no place %q: %w", name, tally.ErrNotFound)
	}
	place, err = r.places.SearchPlace(ctx, name)
	if errors.Is(err, inat.ErrNotFound) {
		return nil, fmt.Errorf("registry: no place %q: %w", name, tally.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: searching places: %w", err)
	}
	return place, nil
}
