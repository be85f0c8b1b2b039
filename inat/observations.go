// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package inat

import (
	"context"
	"errors"
	"net/url"
	"strconv"
)

// ObservationCount returns how many observations match filter. Only
// the total is requested (per_page=0); no records are transferred.
func (client *Client) ObservationCount(ctx context.Context, filter CountFilter) (int, error) {
	if filter.TaxonID <= 0 {
		return 0, errors.New("inat: observation count requires a taxon")
	}
	params := url.Values{
		"taxon_id": {strconv.Itoa(filter.TaxonID)},
		"per_page": {"0"},
	}
	if filter.UserLogin != "" {
		params.Set("user_id", filter.UserLogin)
	}
	if filter.PlaceID > 0 {
		params.Set("place_id", strconv.Itoa(filter.PlaceID))
	}

	var page resultsPage[struct{}]
	if err := client.get(ctx, "/observations", params, &page); err != nil {
		return 0, err
	}
	return page.TotalResults, nil
}
