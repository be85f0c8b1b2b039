// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated, immutable value types for the Matrix
// identifiers the bot handles: users (@local:server), rooms
// (!opaque:server), and events ($opaque).
//
// Identifiers arrive from the homeserver as strings and are parsed into
// these types at the boundary (JSON decoding uses
// encoding.TextUnmarshaler). Code past the boundary never handles raw
// identifier strings, so a user ID can never be passed where a room ID
// is expected.
//
// The zero value of each type is "unset" and is reported by IsZero.
// Empty JSON strings decode to the zero value rather than failing, since
// optional fields in Matrix responses are commonly sent as "".
package ref
