// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package prompt asks a user a question in a room and waits briefly
// for their answer.
//
// Each user has at most one prompt open at a time: a second request
// while one is pending is dropped without any visible effect. The
// prompt message is always deleted afterwards, and an answered reply
// is deleted with it, so a by-name gesture leaves nothing behind but
// the edited card.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dfloer/dronefly/chat"
	"github.com/dfloer/dronefly/lib/clock"
	"github.com/dfloer/dronefly/lib/keylock"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/tally"
)

// ErrCleanup marks a failure to delete the prompt or the reply. It is
// logged, never returned.
var ErrCleanup = errors.New("prompt: cleanup failed")

// DefaultTimeout is how long a user has to answer.
const DefaultTimeout = 15 * time.Second

// Status is how a prompt ended.
type Status int

const (
	// Answered means the user replied with something other than a
	// command.
	Answered Status = iota
	// Busy means the user already had a prompt open.
	Busy
	// NoAnswer means the wait timed out or the user replied with a
	// command for this or another bot.
	NoAnswer
)

func (s Status) String() string {
	switch s {
	case Answered:
		return "answered"
	case Busy:
		return "busy"
	case NoAnswer:
		return "no answer"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of Ask.
type Outcome struct {
	Status Status

	// Reply is the trimmed answer text when Status is Answered.
	Reply string

	// Subject is what the answer resolved to.
	Subject tally.Subject
}

// ResolveFunc turns an answer into a subject. It should return an
// error matching tally.ErrNotFound when nothing matches.
type ResolveFunc func(ctx context.Context, answer string) (tally.Subject, error)

// Request describes one prompt.
type Request struct {
	Room ref.RoomID
	User ref.UserID
	Text string

	Resolve ResolveFunc
}

// Config holds the Prompter's collaborators. Platform is required.
type Config struct {
	Platform chat.Platform

	// Locks holds one lock per user. If nil, the Prompter uses its
	// own.
	Locks *keylock.Registry[ref.UserID]

	// Clock measures the reply timeout. Defaults to the wall clock.
	Clock clock.Clock

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// Prefixes are command prefixes, this bot's and other bots'. A
	// reply starting with one abandons the prompt.
	Prefixes []string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Prompter asks questions. Safe for concurrent use.
type Prompter struct {
	platform chat.Platform
	locks    *keylock.Registry[ref.UserID]
	clock    clock.Clock
	timeout  time.Duration
	prefixes []string
	logger   *slog.Logger
}

// New returns a Prompter for cfg.
func New(cfg Config) *Prompter {
	prompter := &Prompter{
		platform: cfg.Platform,
		locks:    cfg.Locks,
		clock:    cfg.Clock,
		timeout:  cfg.Timeout,
		prefixes: cfg.Prefixes,
		logger:   cfg.Logger,
	}
	if prompter.locks == nil {
		prompter.locks = &keylock.Registry[ref.UserID]{}
	}
	if prompter.clock == nil {
		prompter.clock = clock.Real()
	}
	if prompter.timeout <= 0 {
		prompter.timeout = DefaultTimeout
	}
	if prompter.logger == nil {
		prompter.logger = slog.Default()
	}
	return prompter
}

// Timeout returns how long a user has to answer.
func (p *Prompter) Timeout() time.Duration { return p.timeout }

// Ask sends req.Text to req.Room and waits for req.User's next message
// there. An answer is passed to req.Resolve; a resolver error is
// returned wrapped with the Answered outcome. Timing out, a command
// reply, and a concurrent prompt for the same user are reported as
// outcomes, not errors.
func (p *Prompter) Ask(ctx context.Context, req Request) (Outcome, error) {
	unlock, ok := p.locks.TryLock(req.User)
	if !ok {
		p.logger.Debug("prompt already open", "user_id", req.User, "room", req.Room)
		return Outcome{Status: Busy}, nil
	}
	defer unlock()

	// The watch must exist before the prompt is visible, or a fast
	// answer could arrive before anything is listening.
	watch, err := p.platform.WatchReplies(ctx, req.Room, req.User)
	if err != nil {
		return Outcome{}, fmt.Errorf("prompt: watching replies: %w", err)
	}

	promptID, err := p.platform.Send(ctx, req.Room, chat.Content{Body: req.Text})
	if err != nil {
		return Outcome{}, fmt.Errorf("prompt: sending prompt: %w", err)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	timer := p.clock.AfterFunc(p.timeout, cancel)
	defer timer.Stop()

	reply, err := watch.Next(waitCtx)
	if err != nil {
		p.cleanup(ctx, req.Room, promptID)
		if ctx.Err() != nil {
			return Outcome{Status: NoAnswer}, ctx.Err()
		}
		if errors.Is(err, chat.ErrTimeout) {
			p.logger.Debug("prompt timed out", "user_id", req.User, "room", req.Room)
			return Outcome{Status: NoAnswer}, nil
		}
		return Outcome{}, fmt.Errorf("prompt: waiting for reply: %w", err)
	}
	timer.Stop()

	answer := strings.TrimSpace(reply.Body)
	if p.isCommand(answer) {
		p.cleanup(ctx, req.Room, promptID)
		p.logger.Debug("prompt abandoned for a command", "user_id", req.User, "room", req.Room)
		return Outcome{Status: NoAnswer}, nil
	}

	subject, resolveErr := req.Resolve(ctx, answer)
	p.cleanup(ctx, req.Room, promptID, reply.ID)

	outcome := Outcome{Status: Answered, Reply: answer, Subject: subject}
	if resolveErr != nil {
		return outcome, fmt.Errorf("prompt: resolving %q: %w", answer, resolveErr)
	}
	return outcome, nil
}

func (p *Prompter) isCommand(text string) bool {
	for _, prefix := range p.prefixes {
		if prefix != "" && strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

// cleanup deletes the prompt and, if given, the reply. Deletion runs
// even when ctx is done, so a shutdown does not strand prompts.
func (p *Prompter) cleanup(ctx context.Context, room ref.RoomID, ids ...ref.EventID) {
	if err := p.platform.DeleteMessages(context.WithoutCancel(ctx), room, ids...); err != nil {
		p.logger.Debug("prompt cleanup failed",
			"room", room,
			"messages", ids,
			"error", fmt.Errorf("%w: %w", ErrCleanup, err),
		)
	}
}
