// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dfloer/dronefly/bot"
	"github.com/dfloer/dronefly/chat"
	"github.com/dfloer/dronefly/inat"
	"github.com/dfloer/dronefly/lib/config"
	"github.com/dfloer/dronefly/lib/keylock"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/lib/version"
	"github.com/dfloer/dronefly/messaging"
	"github.com/dfloer/dronefly/prompt"
	"github.com/dfloer/dronefly/reaction"
	"github.com/dfloer/dronefly/registry"
	"github.com/dfloer/dronefly/tally"
)

func runBot(args []string) error {
	var configPath string
	flagSet := pflag.NewFlagSet("dronefly run", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default $DRONEFLY_CONFIG)")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// serve builds the bot from cfg and runs it until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	saved, userID, err := loadSession(cfg.Matrix.SessionFile)
	if err != nil {
		return err
	}
	if saved.Homeserver != cfg.Matrix.Homeserver {
		return fmt.Errorf("session file %s was issued by %s, not %s; run \"dronefly login\" again",
			cfg.Matrix.SessionFile, saved.Homeserver, cfg.Matrix.Homeserver)
	}

	bots := make([]ref.UserID, 0, len(cfg.Matrix.Bots))
	for _, raw := range cfg.Matrix.Bots {
		// Validate already rejected malformed entries.
		bots = append(bots, ref.MustParseUserID(raw))
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Matrix.Homeserver,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	session := client.SessionFromToken(userID, saved.DeviceID, saved.AccessToken)
	defer session.CloseIdleConnections()

	platform := chat.NewMatrix(session, logger)

	naturalist, err := inat.NewClient(inat.Config{
		BaseURL:           cfg.INat.APIURL,
		WebURL:            cfg.INat.WebURL,
		RequestsPerSecond: cfg.INat.RequestsPerSecond,
		Burst:             cfg.INat.Burst,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	store, err := registry.Open(registry.Config{
		Path:   cfg.Storage.Database,
		Places: naturalist,
		Rooms:  platform,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Storage.PlaceAliases != "" {
		count, err := store.LoadAliases(ctx, cfg.Storage.PlaceAliases)
		if err != nil {
			return err
		}
		logger.Info("place aliases loaded", "path", cfg.Storage.PlaceAliases, "count", count)
	}

	mutator := tally.NewMutator(tally.Config{
		Platform: platform,
		Counter:  naturalist,
		Links:    naturalist.Links(),
		Locks:    &keylock.Registry[ref.EventID]{},
		Logger:   logger,
	})
	prompter := prompt.New(prompt.Config{
		Platform: platform,
		Locks:    &keylock.Registry[ref.UserID]{},
		Timeout:  cfg.Bot.PromptTimeout,
		Prefixes: cfg.CommandPrefixes(),
		Logger:   logger,
	})
	dispatcher := reaction.NewDispatcher(reaction.Config{
		Platform:     platform,
		Mutator:      mutator,
		Prompter:     prompter,
		Directory:    store,
		Resolver:     store,
		Bots:         bots,
		ErrorDisplay: cfg.Bot.ErrorDisplay,
		Logger:       logger,
	})

	service := bot.New(bot.Config{
		Session:           session,
		Platform:          platform,
		Dispatcher:        dispatcher,
		Registry:          store,
		Naturalist:        naturalist,
		Links:             naturalist.Links(),
		Prefixes:          cfg.Bot.Prefixes,
		OtherBotPrefixes:  cfg.Bot.OtherBotPrefixes,
		DotTaxon:          cfg.Bot.DotTaxon,
		Bots:              bots,
		SyncStatePath:     cfg.Storage.SyncState,
		ReactionRetention: cfg.Storage.ReactionRetention,
		Logger:            logger,
	})

	logger.Info("dronefly starting",
		"version", version.Info(),
		"user_id", userID,
		"environment", cfg.Environment,
		"homeserver", cfg.Matrix.Homeserver,
	)
	if err := service.Run(ctx); err != nil {
		return err
	}
	logger.Info("shut down")
	return nil
}
