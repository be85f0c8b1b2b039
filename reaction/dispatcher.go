// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package reaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dfloer/dronefly/card"
	"github.com/dfloer/dronefly/chat"
	"github.com/dfloer/dronefly/lib/clock"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/prompt"
	"github.com/dfloer/dronefly/registry"
	"github.com/dfloer/dronefly/tally"
)

// DefaultErrorDisplay is how long a not-found message stays up.
const DefaultErrorDisplay = 15 * time.Second

// Action says whether a reaction was added or removed.
type Action int

const (
	Added Action = iota
	Removed
)

func (a Action) String() string {
	if a == Removed {
		return "removed"
	}
	return "added"
}

// Event is one reaction change on a message.
type Event struct {
	Action  Action
	Emoji   string
	Room    ref.RoomID
	Message ref.EventID

	// Actor is the user whose reaction it is.
	Actor ref.UserID
}

// Directory looks up registered members.
type Directory interface {
	// Member returns an error matching registry.ErrNotRegistered for
	// users without a login.
	Member(ctx context.Context, user ref.UserID) (*registry.Member, error)
}

// Config holds the Dispatcher's collaborators. All but Bots, Clock,
// ErrorDisplay, and Logger are required.
type Config struct {
	Platform  chat.Platform
	Mutator   *tally.Mutator
	Prompter  *prompt.Prompter
	Directory Directory
	Resolver  tally.Resolver

	// Bots are other bot accounts whose reactions are ignored. The
	// bot's own reactions are always ignored.
	Bots []ref.UserID

	// Clock schedules removal of error messages. Defaults to the wall
	// clock.
	Clock clock.Clock

	// ErrorDisplay defaults to DefaultErrorDisplay.
	ErrorDisplay time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Dispatcher handles reaction events. Safe for concurrent use; run
// each event in its own goroutine, since a by-name gesture blocks
// until the user answers or the prompt times out.
type Dispatcher struct {
	platform     chat.Platform
	mutator      *tally.Mutator
	prompter     *prompt.Prompter
	directory    Directory
	resolver     tally.Resolver
	bots         []ref.UserID
	clock        clock.Clock
	errorDisplay time.Duration
	logger       *slog.Logger
}

// NewDispatcher returns a Dispatcher for cfg.
func NewDispatcher(cfg Config) *Dispatcher {
	dispatcher := &Dispatcher{
		platform:     cfg.Platform,
		mutator:      cfg.Mutator,
		prompter:     cfg.Prompter,
		directory:    cfg.Directory,
		resolver:     cfg.Resolver,
		bots:         cfg.Bots,
		clock:        cfg.Clock,
		errorDisplay: cfg.ErrorDisplay,
		logger:       cfg.Logger,
	}
	if dispatcher.clock == nil {
		dispatcher.clock = clock.Real()
	}
	if dispatcher.errorDisplay <= 0 {
		dispatcher.errorDisplay = DefaultErrorDisplay
	}
	if dispatcher.logger == nil {
		dispatcher.logger = slog.Default()
	}
	return dispatcher
}

// Handle applies the gesture an event carries. Events that are not
// valid gestures return nil. Errors are logged before being returned.
func (d *Dispatcher) Handle(ctx context.Context, event Event) error {
	gesture, ok := ParseGesture(event.Emoji)
	if !ok || d.isBot(event.Actor) {
		return nil
	}

	logger := d.logger.With(
		"gesture", gesture,
		"action", event.Action,
		"actor", event.Actor,
		"room", event.Room,
		"message", event.Message,
	)
	if err := d.handle(ctx, logger, event, gesture); err != nil {
		logger.Error("reaction handling failed", "error", err)
		return err
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, logger *slog.Logger, event Event, gesture Gesture) error {
	message, err := d.platform.FetchMessage(ctx, event.Room, event.Message)
	if errors.Is(err, chat.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reaction: fetching card: %w", err)
	}
	if message.Sender != d.platform.Self() || message.Card == nil {
		return nil
	}
	if !message.Card.Accepts(gesture.Dimension()) {
		logger.Debug("gesture ignored: card is claimed by the other dimension",
			"card_dimension", message.Card.Dimension)
		return nil
	}

	joined, err := d.platform.IsMember(ctx, event.Room, event.Actor)
	if err != nil {
		return fmt.Errorf("reaction: checking membership: %w", err)
	}
	if !joined {
		return nil
	}

	member, err := d.directory.Member(ctx, event.Actor)
	if errors.Is(err, registry.ErrNotRegistered) {
		logger.Debug("gesture ignored: actor is not registered")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reaction: looking up actor: %w", err)
	}

	subject, ok, err := d.subject(ctx, event, gesture, member)
	if err != nil || !ok {
		return err
	}

	target := tally.Target{Room: event.Room, Message: event.Message}
	change, err := d.mutator.Apply(ctx, target, subject, tally.Toggle)
	if err != nil {
		return err
	}
	logger.Debug("gesture applied", "subject", subject, "change", change)
	return nil
}

// subject works out who or what the gesture names. ok is false when
// the gesture should be dropped.
func (d *Dispatcher) subject(ctx context.Context, event Event, gesture Gesture, member *registry.Member) (subject tally.Subject, ok bool, err error) {
	if !gesture.ByName() {
		if gesture.Dimension() == card.DimensionUser {
			return tally.UserSubject(member.Login), true, nil
		}
		home := member.HomePlace()
		if home == nil {
			return tally.Subject{}, false, nil
		}
		return tally.PlaceSubject(home), true, nil
	}

	outcome, err := d.prompter.Ask(ctx, prompt.Request{
		Room: event.Room,
		User: event.Actor,
		Text: d.question(gesture),
		Resolve: func(ctx context.Context, answer string) (tally.Subject, error) {
			if gesture == PlaceByName {
				return d.resolver.ResolvePlace(ctx, event.Room, answer)
			}
			return d.resolver.ResolveUser(ctx, event.Room, answer)
		},
	})
	if errors.Is(err, tally.ErrNotFound) {
		d.showError(ctx, event.Room, notFoundText(gesture, outcome.Reply))
		return tally.Subject{}, false, nil
	}
	if err != nil {
		return tally.Subject{}, false, err
	}
	if outcome.Status != prompt.Answered {
		return tally.Subject{}, false, nil
	}
	return outcome.Subject, true, nil
}

func (d *Dispatcher) question(gesture Gesture) string {
	what := "member"
	if gesture.Dimension() == card.DimensionPlace {
		what = "place"
	}
	return fmt.Sprintf("Add or remove which %s (you have %d seconds to answer)?",
		what, int(d.prompter.Timeout()/time.Second))
}

func notFoundText(gesture Gesture, answer string) string {
	if gesture.Dimension() == card.DimensionPlace {
		return fmt.Sprintf("Place %q not found.", answer)
	}
	return fmt.Sprintf("Member %q not found or not registered.", answer)
}

// showError posts text and deletes it after the display period.
func (d *Dispatcher) showError(ctx context.Context, room ref.RoomID, text string) {
	id, err := d.platform.Send(ctx, room, chat.Content{Body: text})
	if err != nil {
		d.logger.Warn("posting error message failed", "room", room, "error", err)
		return
	}
	deleteCtx := context.WithoutCancel(ctx)
	d.clock.AfterFunc(d.errorDisplay, func() {
		if err := d.platform.DeleteMessages(deleteCtx, room, id); err != nil {
			d.logger.Debug("deleting error message failed", "room", room, "message", id, "error", err)
		}
	})
}

func (d *Dispatcher) isBot(user ref.UserID) bool {
	return user == d.platform.Self() || slices.Contains(d.bots, user)
}
