// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/dfloer/dronefly/inat"
)

// aliasFile is the aliases document, keyed by alias:
//
//	{
//	    // Maritimes
//	    "ns": {"place_id": 13, "name": "Nova Scotia, CA"},
//	}
type aliasFile map[string]struct {
	PlaceID int    `json:"place_id"`
	Name    string `json:"name"`
}

// ParseAliases parses a JSONC aliases document into places keyed by
// folded alias.
func ParseAliases(data []byte) (map[string]inat.Place, error) {
	var file aliasFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("registry: parsing aliases: %w", err)
	}
	places := make(map[string]inat.Place, len(file))
	for alias, entry := range file {
		key := fold(strings.TrimSpace(alias))
		if key == "" {
			return nil, fmt.Errorf("registry: aliases: empty alias")
		}
		if entry.PlaceID <= 0 {
			return nil, fmt.Errorf("registry: aliases: %q has no place_id", alias)
		}
		if entry.Name == "" {
			return nil, fmt.Errorf("registry: aliases: %q has no name", alias)
		}
		if _, duplicate := places[key]; duplicate {
			return nil, fmt.Errorf("registry: aliases: %q differs only in case from another alias", alias)
		}
		places[key] = inat.Place{ID: entry.PlaceID, DisplayName: entry.Name}
	}
	return places, nil
}

// LoadAliases reads the aliases file at path and upserts every entry.
// Returns the number of aliases loaded.
func (r *Registry) LoadAliases(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("registry: reading aliases: %w", err)
	}
	places, err := ParseAliases(data)
	if err != nil {
		return 0, fmt.Errorf("%w (file: %s)", err, path)
	}

	conn, err := r.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("registry: loading aliases: %w", err)
	}
	defer r.pool.Put(conn)

	if err := storeAliases(conn, places); err != nil {
		return 0, fmt.Errorf("registry: storing aliases: %w", err)
	}
	r.logger.Info("place aliases loaded", "path", path, "count", len(places))
	return len(places), nil
}

func storeAliases(conn *sqlite.Conn, places map[string]inat.Place) (err error) {
	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return err
	}
	defer endTransaction(&err)

	for alias, place := range places {
		if err := upsertAlias(conn, alias, &place); err != nil {
			return err
		}
	}
	return nil
}

func upsertAlias(conn *sqlite.Conn, key string, place *inat.Place) error {
	return sqlitex.Execute(conn, `
		INSERT INTO place_aliases (alias, place_id, display_name) VALUES (?, ?, ?)
		ON CONFLICT (alias) DO UPDATE SET
			place_id = excluded.place_id,
			display_name = excluded.display_name`,
		&sqlitex.ExecOptions{Args: []any{key, place.ID, place.Label()}})
}

// PutAlias stores one alias.
func (r *Registry) PutAlias(ctx context.Context, alias string, place *inat.Place) error {
	key := fold(strings.TrimSpace(alias))
	if key == "" {
		return fmt.Errorf("registry: empty alias")
	}
	err := r.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return upsertAlias(conn, key, place)
	})
	if err != nil {
		return fmt.Errorf("registry: storing alias %q: %w", alias, err)
	}
	return nil
}

// Alias returns the place an alias names, or an error matching
// ErrNotFound.
func (r *Registry) Alias(ctx context.Context, alias string) (*inat.Place, error) {
	var place *inat.Place
	err := r.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT place_id, display_name FROM place_aliases WHERE alias = ?",
			&sqlitex.ExecOptions{
				Args: []any{fold(strings.TrimSpace(alias))},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					place = &inat.Place{ID: stmt.ColumnInt(0), DisplayName: stmt.ColumnText(1)}
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("registry: alias lookup: %w", err)
	}
	if place == nil {
		return nil, fmt.Errorf("registry: alias %q: %w", alias, ErrNotFound)
	}
	return place, nil
}
