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

// Place fetches a place by ID.
func (client *Client) Place(ctx context.Context, id int) (*Place, error) {
	var page resultsPage[Place]
	if err := client.get(ctx, "/places/"+strconv.Itoa(id), nil, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, fmt.Errorf("inat: place %d: %w", id, ErrNotFound)
	}
	return &page.Results[0], nil
}

// SearchPlace returns the best autocomplete match for query. An
// all-digit query is a place ID.
func (client *Client) SearchPlace(ctx context.Context, query string) (*Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("inat: empty place query: %w", ErrNotFound)
	}
	if id, err := strconv.Atoi(query); err == nil && id > 0 {
		return client.Place(ctx, id)
	}

	var page resultsPage[Place]
	params := url.Values{"q": {query}, "per_page": {"1"}}
	if err := client.get(ctx, "/places/autocomplete", params, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, fmt.Errorf("inat: place %q: %w", query, ErrNotFound)
	}
	return &page.Results[0], nil
}
