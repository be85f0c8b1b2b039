// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package inat

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Taxon fetches a taxon by ID.
func (client *Client) Taxon(ctx context.Context, id int) (*Taxon, error) {
	var page resultsPage[Taxon]
	if err := client.get(ctx, "/taxa/"+strconv.Itoa(id), nil, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, fmt.Errorf("inat: taxon %d: %w", id, ErrNotFound)
	}
	return &page.Results[0], nil
}

// SearchTaxon resolves a user query to one taxon. An all-digit query
// is a taxon ID. Otherwise the first autocomplete result the query
// names exactly (scientific name, common name, or matched term, case
// folded) wins; a four-letter query also matches an alphanumeric code
// (e.g. "TUTI"). With no such result, the top result is returned.
func (client *Client) SearchTaxon(ctx context.Context, query string) (*Taxon, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("inat: empty taxon query: %w", ErrNotFound)
	}
	if id, err := strconv.Atoi(query); err == nil && id > 0 {
		return client.Taxon(ctx, id)
	}

	var page resultsPage[Taxon]
	params := url.Values{"q": {query}, "per_page": {"10"}}
	if err := client.get(ctx, "/taxa/autocomplete", params, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, fmt.Errorf("inat: taxon %q: %w", query, ErrNotFound)
	}
	return &page.Results[bestTaxonMatch(page.Results, query)], nil
}

func bestTaxonMatch(results []Taxon, query string) int {
	code := ""
	if len(query) == 4 && !strings.Contains(query, " ") {
		code = strings.ToUpper(query)
	}
	for i, taxon := range results {
		for _, name := range []string{taxon.Name, taxon.PreferredCommonName, taxon.MatchedTerm} {
			if name != "" && strings.EqualFold(name, query) {
				return i
			}
		}
		if code != "" && taxon.MatchedTerm == code {
			return i
		}
	}
	return 0
}
