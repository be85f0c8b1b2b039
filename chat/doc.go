// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat is the narrow view of the chat platform the tally core
// needs: fetch, edit, and delete messages, send text and reactions,
// check room membership, and wait for one user's next message.
//
// Platform is the contract. Matrix implements it over a
// messaging.Session; chattest provides an in-memory fake for tests.
//
// A message is always read fresh: FetchMessage returns the body of the
// latest edit, never a cached copy. Callers treat ErrNotFound from
// FetchMessage or EditMessage as "the message is gone" and stop
// quietly.
package chat
