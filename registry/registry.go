// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"

	"github.com/dfloer/dronefly/chat"
	"github.com/dfloer/dronefly/inat"
	"github.com/dfloer/dronefly/lib/clock"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/lib/sqlitepool"
)

var (
	// ErrNotRegistered means the user has not linked an iNaturalist
	// login.
	ErrNotRegistered = errors.New("registry: not registered")

	// ErrNotFound means a lookup matched no row.
	ErrNotFound = errors.New("registry: not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS members (
	matrix_user     TEXT PRIMARY KEY,
	inat_login      TEXT NOT NULL,
	home_place_id   INTEGER NOT NULL DEFAULT 0,
	home_place_name TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS members_login ON members (inat_login COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS place_aliases (
	alias        TEXT PRIMARY KEY,
	place_id     INTEGER NOT NULL,
	display_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reactions (
	event_id  TEXT PRIMARY KEY,
	room_id   TEXT NOT NULL,
	target_id TEXT NOT NULL,
	emoji     TEXT NOT NULL,
	sender    TEXT NOT NULL,
	seen_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS reactions_seen_at ON reactions (seen_at);
`

// PlaceSearcher finds a place by free text.
type PlaceSearcher interface {
	SearchPlace(ctx context.Context, query string) (*inat.Place, error)
}

// RoomMembers lists a room's joined members.
type RoomMembers interface {
	Members(ctx context.Context, room ref.RoomID) ([]chat.Member, error)
}

// Config holds the parameters for Open. Path is required.
type Config struct {
	// Path is the SQLite database file.
	Path string

	// Places resolves place names that are not aliases. If nil, only
	// aliases resolve.
	Places PlaceSearcher

	// Rooms resolves member display names. If nil, only user IDs and
	// logins resolve.
	Rooms RoomMembers

	// Clock stamps reaction rows. Defaults to the wall clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Registry is the bot's persistent store. Safe for concurrent use.
type Registry struct {
	pool   *sqlitepool.Pool
	places PlaceSearcher
	rooms  RoomMembers
	clock  clock.Clock
	logger *slog.Logger
}

// Open opens or creates the database. The caller must call Close.
func Open(cfg Config) (*Registry, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   cfg.Path,
		Schema: schema,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return &Registry{
		pool:   pool,
		places: cfg.Places,
		rooms:  cfg.Rooms,
		clock:  clk,
		logger: logger,
	}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.pool.Close()
}

// fold normalizes a name for case-insensitive comparison.
func fold(name string) string {
	// A Caser carries state and is not safe for concurrent use.
	return cases.Fold().String(name)
}
