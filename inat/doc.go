// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

// Package inat is a small client for the iNaturalist v1 API: taxon and
// place lookup, user lookup, and observation counts.
//
// Every request passes through a token-bucket limiter (iNaturalist
// asks API clients for about one request per second) and identifies
// itself with the bot's User-Agent. A 404 or an empty result set is
// reported as ErrNotFound so callers can treat "no such thing" apart
// from transport failures:
//
//	taxon, err := client.SearchTaxon(ctx, "tufted titmouse")
//	if errors.Is(err, inat.ErrNotFound) { ... }
//
// Links builds the website URLs shown on tally cards. It needs no
// network access and is usable without a Client.
package inat
