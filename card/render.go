// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package card

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dfloer/dronefly/inat"
)

// Footers shown under a tally with a total line. Counts are fetched
// when an entry is added and never refreshed, so the sum can lag.
const (
	UserTotalFooter = "User counts may not add up to the total if they changed since they were added. " +
		"Remove, then add them again to update their counts."
	PlaceTotalFooter = "Non-overlapping place counts may not add up to the total if they changed since they were added. " +
		"Remove, then add them again to update their counts."
)

// Ranks at or below species are shown by name alone; higher ranks are
// prefixed ("Genus Baeolophus").
var speciesRanks = map[string]bool{
	"species":    true,
	"hybrid":     true,
	"subspecies": true,
	"variety":    true,
	"form":       true,
}

// Title returns the card's first line: the taxon name in bold, the
// rank for ranks above species, and the common name.
func Title(taxon *inat.Taxon) string {
	var builder strings.Builder
	if taxon.Rank != "" && !speciesRanks[taxon.Rank] {
		// A Caser is stateful; one per call.
		builder.WriteString(cases.Title(language.English).String(taxon.Rank))
		builder.WriteByte(' ')
	}
	fmt.Fprintf(&builder, "**%s**", taxon.Name)
	if taxon.PreferredCommonName != "" {
		fmt.Fprintf(&builder, " (%s)", taxon.PreferredCommonName)
	}
	return builder.String()
}

// Render returns the initial body of a new card. The body has no tally
// sections; reactions add them.
func Render(meta Meta, taxon *inat.Taxon, links inat.Links) string {
	lines := []string{
		Title(taxon),
		fmt.Sprintf("[View on iNaturalist](%s)", links.Taxon(taxon.ID)),
	}
	if taxon.MatchedTerm != "" && !strings.EqualFold(taxon.MatchedTerm, taxon.Name) &&
		!strings.EqualFold(taxon.MatchedTerm, taxon.PreferredCommonName) {
		lines = append(lines, "Matched: "+taxon.MatchedTerm)
	}
	switch {
	case meta.PlaceID != 0:
		lines = append(lines, fmt.Sprintf("Observations in [%s](%s)",
			meta.PlaceName, links.Observations(taxon.ID, []int{meta.PlaceID}, nil)))
	case meta.UserLogin != "":
		lines = append(lines, fmt.Sprintf("Observations by [%s](%s)",
			meta.UserLogin, links.Observations(taxon.ID, nil, []string{meta.UserLogin})))
	}
	return strings.Join(lines, "\n")
}

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

// getMarkdown returns the shared converter. Every body line is its own
// visual line, so soft breaks render as <br>.
func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return markdownInstance
}

// HTML renders body for formatted_body. footer, when non-empty, is
// appended as a small-print paragraph.
func HTML(body, footer string) (string, error) {
	var buffer bytes.Buffer
	if err := getMarkdown().Convert([]byte(body), &buffer); err != nil {
		return "", fmt.Errorf("card: rendering markdown: %w", err)
	}
	if footer != "" {
		fmt.Fprintf(&buffer, "<p><sub>%s</sub></p>\n", footer)
	}
	return buffer.String(), nil
}

// Footer returns the note for a card whose tally in dimension d shows
// a total, or "" when there is none.
func Footer(d Dimension, hasTotal bool) string {
	if !hasTotal {
		return ""
	}
	if d == DimensionPlace {
		return PlaceTotalFooter
	}
	return UserTotalFooter
}
