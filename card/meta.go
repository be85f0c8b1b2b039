// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package card

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dfloer/dronefly/inat"
	"github.com/dfloer/dronefly/lib/ledger"
)

// Dimension is what a card tallies: observers or places.
type Dimension string

const (
	// Unclaimed cards accept gestures for either dimension.
	Unclaimed      Dimension = ""
	DimensionUser  Dimension = "user"
	DimensionPlace Dimension = "place"
)

// Kind returns the ledger section kind for the dimension.
func (d Dimension) Kind() ledger.Kind {
	if d == DimensionPlace {
		return ledger.KindPlace
	}
	return ledger.KindUser
}

// Other returns the opposite dimension. Unclaimed has no opposite.
func (d Dimension) Other() Dimension {
	switch d {
	case DimensionUser:
		return DimensionPlace
	case DimensionPlace:
		return DimensionUser
	}
	return Unclaimed
}

// Meta is a card's structured metadata.
type Meta struct {
	TaxonID   int    `json:"taxon_id"`
	TaxonName string `json:"taxon_name"`

	// PlaceID and PlaceName are set on a card filtered to one place.
	// Every user count on such a card is scoped to the place.
	PlaceID   int    `json:"place_id,omitempty"`
	PlaceName string `json:"place_name,omitempty"`

	// UserLogin is set on a card filtered to one observer. Every place
	// count on such a card is scoped to the user.
	UserLogin string `json:"user_login,omitempty"`

	// Dimension is the dimension the card has committed to.
	Dimension Dimension `json:"dimension,omitempty"`

	// Fixed marks a dimension decided when the card was posted. A fixed
	// claim survives the section emptying.
	Fixed bool `json:"fixed,omitempty"`
}

// Filter narrows a new card to one place or one observer. At most one
// field may be set.
type Filter struct {
	Place *inat.Place
	User  *inat.User
}

// NewMeta returns the metadata for a new card. A card filtered by user
// can only tally places, and one filtered by place can only tally
// users; unfiltered cards start unclaimed.
func NewMeta(taxon *inat.Taxon, filter Filter) (Meta, error) {
	if taxon == nil || taxon.ID <= 0 {
		return Meta{}, errors.New("card: taxon is required")
	}
	if filter.Place != nil && filter.User != nil {
		return Meta{}, errors.New("card: a card is filtered by place or by user, not both")
	}

	meta := Meta{TaxonID: taxon.ID, TaxonName: taxon.Name}
	switch {
	case filter.Place != nil:
		meta.PlaceID = filter.Place.ID
		meta.PlaceName = filter.Place.Label()
		meta.Dimension, meta.Fixed = DimensionUser, true
	case filter.User != nil:
		meta.UserLogin = filter.User.Login
		meta.Dimension, meta.Fixed = DimensionPlace, true
	}
	return meta, nil
}

// Accepts reports whether gestures for d are meaningful on the card.
func (m Meta) Accepts(d Dimension) bool {
	return m.Dimension == Unclaimed || m.Dimension == d
}

// Gestures returns the dimensions that currently accept gestures.
func (m Meta) Gestures() []Dimension {
	if m.Dimension != Unclaimed {
		return []Dimension{m.Dimension}
	}
	return []Dimension{DimensionUser, DimensionPlace}
}

// Claim commits an unclaimed card to d. Returns false if the card is
// already claimed by the other dimension.
func (m *Meta) Claim(d Dimension) bool {
	if !m.Accepts(d) {
		return false
	}
	m.Dimension = d
	return true
}

// Release returns a card whose tally emptied to the unclaimed state,
// unless the claim is fixed.
func (m *Meta) Release() {
	if !m.Fixed {
		m.Dimension = Unclaimed
	}
}

// UserCount scopes an observation count to one observer on this card.
func (m Meta) UserCount(login string) inat.CountFilter {
	return inat.CountFilter{TaxonID: m.TaxonID, UserLogin: login, PlaceID: m.PlaceID}
}

// PlaceCount scopes an observation count to one place on this card.
func (m Meta) PlaceCount(placeID int) inat.CountFilter {
	return inat.CountFilter{TaxonID: m.TaxonID, PlaceID: placeID, UserLogin: m.UserLogin}
}

// UserLink is the observations link for one observer's entry.
func (m Meta) UserLink(links inat.Links, login string) string {
	return links.Observations(m.TaxonID, m.placeFilter(), []string{login})
}

// PlaceLink is the observations link for one place's entry.
func (m Meta) PlaceLink(links inat.Links, placeID int) string {
	return links.Observations(m.TaxonID, []int{placeID}, m.userFilter())
}

// Codec returns a ledger codec whose total lines link to the union of
// the section's subjects.
func (m Meta) Codec(links inat.Links) ledger.Codec {
	return ledger.Codec{TotalLink: func(kind ledger.Kind, entries []ledger.Entry) string {
		if kind == ledger.KindPlace {
			var placeIDs []int
			for _, entry := range entries {
				placeIDs = append(placeIDs, inat.PlaceIDs(entry.Link)...)
			}
			return links.Observations(m.TaxonID, placeIDs, m.userFilter())
		}
		logins := make([]string, 0, len(entries))
		for _, entry := range entries {
			logins = append(logins, entry.Key)
		}
		return links.Observations(m.TaxonID, m.placeFilter(), logins)
	}}
}

func (m Meta) placeFilter() []int {
	if m.PlaceID == 0 {
		return nil
	}
	return []int{m.PlaceID}
}

func (m Meta) userFilter() []string {
	if m.UserLogin == "" {
		return nil
	}
	return []string{m.UserLogin}
}

// Encode returns the JSON stored in the message content.
func (m Meta) Encode() json.RawMessage {
	// Meta has only string, int, and bool fields; Marshal cannot fail.
	data, _ := json.Marshal(m)
	return data
}

// Decode parses stored metadata. A card without metadata (not a tally
// card, or posted by something else) is reported as (nil, nil).
func Decode(raw json.RawMessage) (*Meta, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("card: decoding metadata: %w", err)
	}
	if meta.TaxonID <= 0 {
		return nil, fmt.Errorf("card: metadata has no taxon")
	}
	switch meta.Dimension {
	case Unclaimed, DimensionUser, DimensionPlace:
	default:
		return nil, fmt.Errorf("card: unknown dimension %q", meta.Dimension)
	}
	return &meta, nil
}
