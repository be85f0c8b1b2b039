// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package reaction turns reactions on tally cards into tally changes.
//
// Four emoji are gestures:
//
//	#️⃣  toggle yourself as an observer
//	📝  toggle an observer by name (the bot asks who)
//	🏠  toggle your home place
//	📍  toggle a place by name (the bot asks which)
//
// Adding and removing a reaction are the same gesture: both toggle.
// A reaction counts only when it is on a card the bot posted, in a
// room the reactor has joined, from a registered member who is not a
// bot, and for a dimension the card still accepts. Everything else is
// dropped silently.
package reaction
