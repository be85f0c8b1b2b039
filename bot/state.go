// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"errors"
	"fmt"
	"os"

	"github.com/dfloer/dronefly/lib/codec"
	"github.com/dfloer/dronefly/lib/ref"
)

// syncState is the persisted /sync position.
type syncState struct {
	// UserID is the account the position belongs to. A state file
	// written by another account is ignored.
	UserID    ref.UserID `cbor:"user_id"`
	NextBatch string     `cbor:"next_batch"`
}

// loadSyncState returns the saved position for user, or "" when there
// is none.
func loadSyncState(path string, user ref.UserID) (string, error) {
	if path == "" {
		return "", nil
	}
	var state syncState
	err := codec.ReadFile(path, &state)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("bot: loading sync state: %w", err)
	}
	if state.UserID != user {
		return "", nil
	}
	return state.NextBatch, nil
}

func saveSyncState(path string, user ref.UserID, nextBatch string) error {
	if path == "" {
		return nil
	}
	if err := codec.WriteFile(path, syncState{UserID: user, NextBatch: nextBatch}, 0o600); err != nil {
		return fmt.Errorf("bot: saving sync state: %w", err)
	}
	return nil
}
