// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package inat

import (
	"net/url"
	"strconv"
	"strings"
)

// Links builds iNaturalist website URLs.
type Links struct {
	// WebURL is the website root, e.g. "https://www.inaturalist.org".
	WebURL string
}

// Taxon returns the taxon page URL.
func (l Links) Taxon(id int) string {
	return l.root() + "/taxa/" + strconv.Itoa(id)
}

// Observations returns the observation search URL for a taxon,
// narrowed to any of the given places and users. Multiple IDs are
// comma-joined, which the site treats as a union.
func (l Links) Observations(taxonID int, placeIDs []int, userLogins []string) string {
	var builder strings.Builder
	builder.WriteString(l.root())
	builder.WriteString("/observations?taxon_id=")
	builder.WriteString(strconv.Itoa(taxonID))
	if len(placeIDs) > 0 {
		builder.WriteString("&place_id=")
		for i, id := range placeIDs {
			if i > 0 {
				builder.WriteByte(',')
			}
			builder.WriteString(strconv.Itoa(id))
		}
	}
	if len(userLogins) > 0 {
		builder.WriteString("&user_id=")
		for i, login := range userLogins {
			if i > 0 {
				builder.WriteByte(',')
			}
			builder.WriteString(url.QueryEscape(login))
		}
	}
	return builder.String()
}

// PlaceIDs extracts the place_id values from an observations URL
// produced by Observations. Unparseable input yields nil.
func PlaceIDs(link string) []int {
	parsed, err := url.Parse(link)
	if err != nil {
		return nil
	}
	var ids []int
	for _, field := range strings.Split(parsed.Query().Get("place_id"), ",") {
		if id, err := strconv.Atoi(field); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (l Links) root() string {
	if l.WebURL == "" {
		return defaultWebURL
	}
	return strings.TrimRight(l.WebURL, "/")
}
