// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dfloer/dronefly/lib/codec"
	"github.com/dfloer/dronefly/lib/ref"
)

// savedSession is the CBOR session file written by `dronefly login`.
type savedSession struct {
	UserID      string `cbor:"user_id"`
	DeviceID    string `cbor:"device_id"`
	AccessToken string `cbor:"access_token"`

	// Homeserver is the URL the token was issued by. `run` refuses a
	// session from a different homeserver than the configured one.
	Homeserver string `cbor:"homeserver"`
}

func loadSession(path string) (*savedSession, ref.UserID, error) {
	var session savedSession
	if err := codec.ReadFile(path, &session); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ref.UserID{}, fmt.Errorf("no session at %s; run \"dronefly login\" first", path)
		}
		return nil, ref.UserID{}, err
	}

	userID, err := ref.ParseUserID(session.UserID)
	if err != nil {
		return nil, ref.UserID{}, fmt.Errorf("session file %s: %w", path, err)
	}
	if session.AccessToken == "" {
		return nil, ref.UserID{}, fmt.Errorf("session file %s has no access_token", path)
	}
	if session.Homeserver == "" {
		return nil, ref.UserID{}, fmt.Errorf("session file %s has no homeserver", path)
	}
	return &session, userID, nil
}

// saveSession writes session with owner-only permissions, creating the
// parent directory if needed.
func saveSession(path string, session *savedSession) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", directory, err)
	}
	return codec.WriteFile(path, session, 0o600)
}
