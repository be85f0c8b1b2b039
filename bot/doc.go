// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot connects the tally core to a Matrix homeserver.
//
// [Bot.Run] long-polls /sync, accepts room invites, and classifies
// each timeline event into one of three kinds: [ReactionAdded],
// [ReactionRemoved], or [TextMessage]. Every classified event is
// handled in its own goroutine, so a by-name gesture waiting on a
// prompt never holds up anything else.
//
// Matrix removes a reaction by redacting its m.reaction event, and the
// redaction carries only the reaction's event ID. The bot records each
// reaction in the registry's reaction index as it arrives and looks
// the redaction up there; redactions of unknown events are ignored.
// Classification runs in stream order before any handler goroutine
// starts, so a reaction is always indexed before its redaction is
// looked up.
//
// Text messages carry commands:
//
//	!iam <inat-login>           link your iNaturalist account
//	!home <place>               set your home place
//	!taxon <query> [by <member>] [from <place>]
//	                            post a tally card
//
// and, when enabled, dot-taxon lookups: a message containing
// ".tufted titmouse." posts a card for that taxon.
//
// The /sync position is saved to a CBOR state file after every batch
// so a restart resumes where the last run stopped.
package bot
