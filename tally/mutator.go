// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package tally

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dfloer/dronefly/card"
	"github.com/dfloer/dronefly/chat"
	"github.com/dfloer/dronefly/inat"
	"github.com/dfloer/dronefly/lib/keylock"
	"github.com/dfloer/dronefly/lib/ledger"
	"github.com/dfloer/dronefly/lib/ref"
)

// Change reports what Apply did.
type Change int

const (
	// Unchanged means the gesture was a no-op: add of a present
	// subject, remove of an absent one, or a dimension the card does
	// not accept.
	Unchanged Change = iota
	Added
	Removed
	// Gone means the message no longer exists.
	Gone
)

func (c Change) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Gone:
		return "gone"
	default:
		return fmt.Sprintf("Change(%d)", int(c))
	}
}

// Config holds the Mutator's collaborators. Platform and Counter are
// required.
type Config struct {
	Platform chat.Platform
	Counter  Counter
	Links    inat.Links

	// Locks serializes mutations per message. Share it with anything
	// else that edits cards. If nil, the Mutator uses its own.
	Locks *keylock.Registry[ref.EventID]

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Mutator edits tally cards. Safe for concurrent use.
type Mutator struct {
	platform chat.Platform
	counter  Counter
	links    inat.Links
	locks    *keylock.Registry[ref.EventID]
	logger   *slog.Logger
}

// NewMutator returns a Mutator for cfg.
func NewMutator(cfg Config) *Mutator {
	locks := cfg.Locks
	if locks == nil {
		locks = &keylock.Registry[ref.EventID]{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		platform: cfg.Platform,
		counter:  cfg.Counter,
		links:    cfg.Links,
		locks:    locks,
		logger:   logger,
	}
}

// Apply performs action for subject on the card at target. A message
// that was deleted, is not a card, or does not accept the subject's
// dimension is left alone without error.
func (m *Mutator) Apply(ctx context.Context, target Target, subject Subject, action Action) (Change, error) {
	if subject.Dimension != card.DimensionUser && subject.Dimension != card.DimensionPlace {
		return Unchanged, fmt.Errorf("tally: subject %q has no dimension", subject.Key)
	}

	unlock, err := m.locks.Lock(ctx, target.Message)
	if err != nil {
		return Unchanged, fmt.Errorf("tally: waiting for %s: %w", target.Message, err)
	}
	defer unlock()

	message, err := m.platform.FetchMessage(ctx, target.Room, target.Message)
	if errors.Is(err, chat.ErrNotFound) {
		return Gone, nil
	}
	if err != nil {
		return Unchanged, fmt.Errorf("tally: fetching %s: %w", target.Message, err)
	}
	if message.Card == nil {
		return Unchanged, nil
	}
	meta := *message.Card
	if !meta.Accepts(subject.Dimension) {
		m.logger.Debug("subject ignored: card is claimed by the other dimension",
			"message", target.Message,
			"card_dimension", meta.Dimension,
			"subject", subject,
		)
		return Unchanged, nil
	}

	codec := meta.Codec(m.links)
	current := codec.Decode(message.Body)
	kind := subject.Dimension.Kind()
	present := current.Has(kind, subject.Key)

	var change Change
	switch {
	case action == Remove && !present, action == Add && present:
		return Unchanged, nil
	case present:
		current.Remove(kind, subject.Key)
		if current.Section(kind) == nil {
			meta.Release()
		}
		change = Removed
	default:
		entry, err := m.entry(ctx, meta, subject)
		if err != nil {
			return Unchanged, err
		}
		current.Add(kind, entry)
		meta.Claim(subject.Dimension)
		change = Added
	}

	content := chat.Content{
		Body:   codec.Encode(current),
		Card:   &meta,
		Footer: footer(current, subject.Dimension),
	}
	err = m.platform.EditMessage(ctx, target.Room, target.Message, content)
	if errors.Is(err, chat.ErrNotFound) {
		return Gone, nil
	}
	if err != nil {
		return Unchanged, fmt.Errorf("tally: editing %s: %w", target.Message, err)
	}

	m.logger.Info("tally updated",
		"room", target.Room,
		"message", target.Message,
		"subject", subject,
		"change", change,
	)
	return change, nil
}

// entry builds a fresh ledger entry for subject, with the count scoped
// by the card's filter.
func (m *Mutator) entry(ctx context.Context, meta card.Meta, subject Subject) (ledger.Entry, error) {
	var (
		filter inat.CountFilter
		link   string
	)
	if subject.Dimension == card.DimensionPlace {
		filter = meta.PlaceCount(subject.PlaceID)
		link = meta.PlaceLink(m.links, subject.PlaceID)
	} else {
		filter = meta.UserCount(subject.Key)
		link = meta.UserLink(m.links, subject.Key)
	}
	count, err := m.counter.ObservationCount(ctx, filter)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("tally: counting observations for %s: %w", subject, err)
	}
	return ledger.Entry{Key: subject.Key, Link: link, Count: count}, nil
}

func footer(current *ledger.Card, d card.Dimension) string {
	section := current.Section(d.Kind())
	if section == nil {
		return ""
	}
	_, hasTotal := section.Total()
	return card.Footer(d, hasTotal)
}
