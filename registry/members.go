// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/dfloer/dronefly/inat"
	"github.com/dfloer/dronefly/lib/ref"
)

// Member is a registered user.
type Member struct {
	UserID ref.UserID
	Login  string

	// HomePlaceID is zero when no home place is set.
	HomePlaceID   int
	HomePlaceName string
}

// HomePlace returns the member's home place, or nil.
func (m *Member) HomePlace() *inat.Place {
	if m.HomePlaceID == 0 {
		return nil
	}
	return &inat.Place{ID: m.HomePlaceID, DisplayName: m.HomePlaceName}
}

const memberColumns = "matrix_user, inat_login, home_place_id, home_place_name"

func scanMember(stmt *sqlite.Stmt) (*Member, error) {
	userID, err := ref.ParseUserID(stmt.ColumnText(0))
	if err != nil {
		return nil, fmt.Errorf("registry: stored member: %w", err)
	}
	return &Member{
		UserID:        userID,
		Login:         stmt.ColumnText(1),
		HomePlaceID:   stmt.ColumnInt(2),
		HomePlaceName: stmt.ColumnText(3),
	}, nil
}

// Member returns user's registration, or an error matching
// ErrNotRegistered.
func (r *Registry) Member(ctx context.Context, user ref.UserID) (*Member, error) {
	member, err := r.queryMember(ctx,
		"SELECT "+memberColumns+" FROM members WHERE matrix_user = ?",
		user.String())
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("registry: %s: %w", user, ErrNotRegistered)
	}
	return member, nil
}

// MemberByLogin returns a member registered with login, compared
// case-insensitively, or an error matching ErrNotRegistered. When
// several users share a login the earliest registration wins.
func (r *Registry) MemberByLogin(ctx context.Context, login string) (*Member, error) {
	member, err := r.queryMember(ctx,
		"SELECT "+memberColumns+" FROM members WHERE inat_login = ? COLLATE NOCASE ORDER BY rowid LIMIT 1",
		strings.TrimSpace(login))
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("registry: login %q: %w", login, ErrNotRegistered)
	}
	return member, nil
}

func (r *Registry) queryMember(ctx context.Context, query string, args ...any) (*Member, error) {
	var member *Member
	err := r.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				member, err = scanMember(stmt)
				return err
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("registry: member lookup: %w", err)
	}
	return member, nil
}

// Register links user to an iNaturalist login, replacing any earlier
// login. A home place already set is kept.
func (r *Registry) Register(ctx context.Context, user ref.UserID, login string) error {
	login = strings.TrimSpace(login)
	if login == "" {
		return fmt.Errorf("registry: empty login for %s", user)
	}
	err := r.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO members (matrix_user, inat_login) VALUES (?, ?)
			ON CONFLICT (matrix_user) DO UPDATE SET inat_login = excluded.inat_login`,
			&sqlitex.ExecOptions{Args: []any{user.String(), login}})
	})
	if err != nil {
		return fmt.Errorf("registry: registering %s: %w", user, err)
	}
	r.logger.Info("member registered", "user_id", user, "login", login)
	return nil
}

// SetHome records a registered member's home place. Unregistered users
// get an error matching ErrNotRegistered.
func (r *Registry) SetHome(ctx context.Context, user ref.UserID, place *inat.Place) error {
	var changed int
	err := r.pool.Do(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"UPDATE members SET home_place_id = ?, home_place_name = ? WHERE matrix_user = ?",
			&sqlitex.ExecOptions{Args: []any{place.ID, place.Label(), user.String()}})
		changed = conn.Changes()
		return err
	})
	if err != nil {
		return fmt.Errorf("registry: setting home for %s: %w", user, err)
	}
	if changed == 0 {
		return fmt.Errorf("registry: %s: %w", user, ErrNotRegistered)
	}
	r.logger.Info("home place set", "user_id", user, "place_id", place.ID)
	return nil
}
