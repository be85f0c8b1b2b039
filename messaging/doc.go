// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is the subset of the Matrix client-server API the
// bot needs.
//
// [Client] is unauthenticated: it holds the homeserver URL and HTTP
// transport and performs password login. [DirectSession] adds an access
// token and covers everything else: sending messages, edits and
// reactions, redacting events, fetching a single event and its latest
// edit, listing a room's joined members, joining rooms, and /sync.
//
// [RoomWatcher] captures a position in the /sync stream for one room
// and then long-polls for the first event matching a predicate. The bot
// uses it to wait for a user's answer to a prompt without involving its
// main sync loop.
//
// API errors are returned as [*MatrixError] carrying the Matrix error
// code and HTTP status. [IsMatrixError] tests for a code. Request paths
// are built by concatenating url.PathEscape'd segments rather than
// through url.URL, which would re-encode escaped room IDs.
package messaging
