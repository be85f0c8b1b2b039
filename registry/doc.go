// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry stores what the bot knows about people and places
// between restarts.
//
// Three tables live in one SQLite database opened through
// lib/sqlitepool:
//
//   - members maps a Matrix user to an iNaturalist login and an
//     optional home place. A user is "registered" once they have a
//     login here.
//   - place_aliases maps short names ("ns", "bc") to places, seeded
//     from a JSONC file and compared case-folded.
//   - reactions indexes the m.reaction events the bot has seen, so the
//     redaction that removes one can be traced back to its emoji,
//     sender, and target. Rows age out after a retention period.
//
// [Registry] also implements tally.Resolver: it turns a typed name into
// a registered observer or a place.
package registry
