// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package tally applies add, remove, and toggle gestures to a tally
// card.
//
// A card's state is its message body. [Mutator.Apply] takes the
// message lock, fetches the current body, decodes it with the card's
// ledger codec, changes one entry, and edits the message, so gestures
// on the same card are serialized end to end and never work from a
// stale copy. Gestures on different cards run concurrently.
//
// The mutator enforces the card's dimension: a card that has committed
// to tallying observers ignores place gestures and vice versa. The
// claim is checked again under the lock, so two racing first adds of
// different dimensions cannot both win.
package tally
