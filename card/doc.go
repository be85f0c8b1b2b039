// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package card describes a posted tally card: the structured metadata
// stored beside the message body, the initial body text, and the HTML
// rendering Matrix clients display.
//
// The body is markdown and is the ledger's only persisted form. Meta
// carries what the body cannot express unambiguously: the taxon and
// filter the card was posted for, and which tally dimension (users or
// places) the card has committed to. Meta travels in the message
// content under "org.dronefly.card" and is rewritten with every edit.
package card
