// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR configuration for dronefly's on-disk state.
//
// JSON is used wherever the bot talks to something else (the Matrix
// and iNaturalist APIs). CBOR is used for the small files the bot keeps
// for itself: the Matrix session written by `dronefly login` and the
// /sync position saved between runs. Encoding uses Core Deterministic
// Encoding (RFC 8949 §4.2), so the same state always produces the same
// bytes.
//
// Types written only to state files carry `cbor` struct tags. Types
// that also cross a JSON boundary carry `json` tags, which fxamacker's
// decoder reads as a fallback. Never put both on one field.
package codec
