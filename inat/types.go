// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package inat

import "fmt"

// Taxon is the subset of an iNaturalist taxon record the bot shows.
type Taxon struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	Rank                string `json:"rank"`
	PreferredCommonName string `json:"preferred_common_name,omitempty"`

	// MatchedTerm is the name or code a search matched. Empty for
	// lookups by ID.
	MatchedTerm string `json:"matched_term,omitempty"`

	DefaultPhoto      *Photo `json:"default_photo,omitempty"`
	ObservationsCount int    `json:"observations_count"`
}

// Photo is a taxon's default photo.
type Photo struct {
	SquareURL string `json:"square_url"`
	MediumURL string `json:"medium_url"`
}

// Label returns "Name (Common Name)", or the bare name.
func (t *Taxon) Label() string {
	if t.PreferredCommonName == "" {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.PreferredCommonName)
}

// Place is an iNaturalist place.
type Place struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Label returns the display name, falling back to the short name.
func (p *Place) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// User is an iNaturalist account.
type User struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
}

// CountFilter scopes an observation count. Zero fields are not
// applied; TaxonID is required.
type CountFilter struct {
	TaxonID   int
	UserLogin string
	PlaceID   int
}

// resultsPage is the envelope every v1 list endpoint returns.
type resultsPage[T any] struct {
	TotalResults int `json:"total_results"`
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	Results      []T `json:"results"`
}
