// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/dfloer/dronefly/lib/ref"
)

// Reaction is an indexed m.reaction event.
type Reaction struct {
	ID     ref.EventID
	Room   ref.RoomID
	Target ref.EventID
	Emoji  string
	Sender ref.UserID
	SeenAt time.Time
}

// RecordReaction indexes a reaction. SeenAt defaults to now. Recording
// the same event twice keeps the first row.
func (r *Registry) RecordReaction(ctx context.Context, reaction Reaction) error {
	seenAt := reaction.SeenAt
	if seenAt.IsZero() {
		seenAt = r.clock.Now()
	}
	err := r.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT OR IGNORE INTO reactions (event_id, room_id, target_id, emoji, sender, seen_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				reaction.ID.String(),
				reaction.Room.String(),
				reaction.Target.String(),
				reaction.Emoji,
				reaction.Sender.String(),
				seenAt.UnixMilli(),
			}})
	})
	if err != nil {
		return fmt.Errorf("registry: recording reaction %s: %w", reaction.ID, err)
	}
	return nil
}

// TakeReaction removes an indexed reaction and returns it. A redaction
// consumes its reaction, so a second take of the same ID reports
// ErrNotFound.
func (r *Registry) TakeReaction(ctx context.Context, id ref.EventID) (reaction *Reaction, err error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: take reaction: %w", err)
	}
	defer r.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	var scanErr error
	err = sqlitex.Execute(conn,
		"SELECT room_id, target_id, emoji, sender, seen_at FROM reactions WHERE event_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{id.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				reaction, scanErr = scanReaction(id, stmt)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("registry: reaction lookup: %w", err)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	if reaction == nil {
		return nil, fmt.Errorf("registry: reaction %s: %w", id, ErrNotFound)
	}

	if err = sqlitex.Execute(conn, "DELETE FROM reactions WHERE event_id = ?",
		&sqlitex.ExecOptions{Args: []any{id.String()}}); err != nil {
		return nil, fmt.Errorf("registry: deleting reaction: %w", err)
	}
	return reaction, nil
}

func scanReaction(id ref.EventID, stmt *sqlite.Stmt) (*Reaction, error) {
	room, err := ref.ParseRoomID(stmt.ColumnText(0))
	if err != nil {
		return nil, fmt.Errorf("registry: stored reaction room: %w", err)
	}
	target, err := ref.ParseEventID(stmt.ColumnText(1))
	if err != nil {
		return nil, fmt.Errorf("registry: stored reaction target: %w", err)
	}
	sender, err := ref.ParseUserID(stmt.ColumnText(3))
	if err != nil {
		return nil, fmt.Errorf("registry: stored reaction sender: %w", err)
	}
	return &Reaction{
		ID:     id,
		Room:   room,
		Target: target,
		Emoji:  stmt.ColumnText(2),
		Sender: sender,
		SeenAt: time.UnixMilli(stmt.ColumnInt64(4)),
	}, nil
}

// PruneReactions drops reactions seen before cutoff and returns how
// many were dropped. Removing a pruned reaction is then ignored.
func (r *Registry) PruneReactions(ctx context.Context, cutoff time.Time) (int, error) {
	var pruned int
	err := r.pool.Do(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "DELETE FROM reactions WHERE seen_at < ?",
			&sqlitex.ExecOptions{Args: []any{cutoff.UnixMilli()}})
		pruned = conn.Changes()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("registry: pruning reactions: %w", err)
	}
	if pruned > 0 {
		r.logger.Info("reaction index pruned", "removed", pruned, "cutoff", cutoff)
	}
	return pruned, nil
}
