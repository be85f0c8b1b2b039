// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dfloer/dronefly/chat"
	"github.com/dfloer/dronefly/inat"
	"github.com/dfloer/dronefly/lib/clock"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/messaging"
	"github.com/dfloer/dronefly/reaction"
	"github.com/dfloer/dronefly/registry"
)

// Naturalist is the part of the iNaturalist API commands use.
type Naturalist interface {
	SearchTaxon(ctx context.Context, query string) (*inat.Taxon, error)
	User(ctx context.Context, login string) (*inat.User, error)
}

// Config holds the Bot's collaborators and settings. Session,
// Platform, Dispatcher, Registry, and Naturalist are required.
type Config struct {
	Session    messaging.Session
	Platform   chat.Platform
	Dispatcher *reaction.Dispatcher
	Registry   *registry.Registry
	Naturalist Naturalist
	Links      inat.Links

	// Prefixes start this bot's commands. OtherBotPrefixes start
	// commands for other bots; such messages are ignored.
	Prefixes         []string
	OtherBotPrefixes []string

	// DotTaxon enables ".query." lookups in plain messages.
	DotTaxon bool

	// Bots are other bot accounts whose messages are ignored.
	Bots []ref.UserID

	// SyncStatePath is the CBOR file holding the /sync position. Empty
	// means the position is not persisted.
	SyncStatePath string

	// ReactionRetention bounds the reaction index. Zero disables
	// pruning.
	ReactionRetention time.Duration

	// Clock defaults to the wall clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Bot is the running service.
type Bot struct {
	session    messaging.Session
	self       ref.UserID
	platform   chat.Platform
	dispatcher *reaction.Dispatcher
	registry   *registry.Registry
	naturalist Naturalist
	links      inat.Links

	prefixes         []string
	otherBotPrefixes []string
	dotTaxon         bool
	bots             []ref.UserID

	syncStatePath     string
	reactionRetention time.Duration

	clock  clock.Clock
	logger *slog.Logger

	// handlers tracks event goroutines so Run can wait for them.
	handlers sync.WaitGroup
}

// New returns a Bot for cfg.
func New(cfg Config) *Bot {
	bot := &Bot{
		session:           cfg.Session,
		self:              cfg.Session.UserID(),
		platform:          cfg.Platform,
		dispatcher:        cfg.Dispatcher,
		registry:          cfg.Registry,
		naturalist:        cfg.Naturalist,
		links:             cfg.Links,
		prefixes:          cfg.Prefixes,
		otherBotPrefixes:  cfg.OtherBotPrefixes,
		dotTaxon:          cfg.DotTaxon,
		bots:              cfg.Bots,
		syncStatePath:     cfg.SyncStatePath,
		reactionRetention: cfg.ReactionRetention,
		clock:             cfg.Clock,
		logger:            cfg.Logger,
	}
	if bot.clock == nil {
		bot.clock = clock.Real()
	}
	if bot.logger == nil {
		bot.logger = slog.Default()
	}
	return bot
}

func (b *Bot) isBot(user ref.UserID) bool {
	return user == b.self || slices.Contains(b.bots, user)
}
