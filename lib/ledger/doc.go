// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger parses and serializes the observation tally embedded
// in a card's message body.
//
// The message body is the only place tally state lives. Every mutation
// decodes the current body into a [Card], edits it, and encodes it
// back; nothing is cached between mutations.
//
// # Format
//
// A tally section is a fixed header line followed by one entry per
// line:
//
//	__obs# by user:__
//	[3](https://www.inaturalist.org/observations?taxon_id=3&user_id=alice) alice
//	[5](https://www.inaturalist.org/observations?taxon_id=3&user_id=bob) bob
//	[8](https://www.inaturalist.org/observations?taxon_id=3&user_id=alice,bob) *total*
//
// The section ends at a blank line, another header, any line that is
// not an entry, or the end of the body. The *total* line is synthetic:
// it is dropped on decode and recomputed on encode as the sum of the
// entry counts, and only written when a section has two or more
// entries. The header is only written when a section has at least one
// entry.
//
// Lines outside sections (the card title, description, anything a
// newer version adds) are kept verbatim and in place. Decode never
// fails: malformed input is normalized (empty sections, duplicate
// keys and stale totals are dropped) and everything else is passed
// through.
package ledger
