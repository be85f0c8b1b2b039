// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package inat

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// User fetches an account by login. Logins compare case-insensitively
// on iNaturalist; the returned Login has the canonical case.
func (client *Client) User(ctx context.Context, login string) (*User, error) {
	login = strings.TrimSpace(login)
	if login == "" || strings.ContainsAny(login, "/?#") {
		return nil, fmt.Errorf("inat: user %q: %w", login, ErrNotFound)
	}

	var page resultsPage[User]
	if err := client.get(ctx, "/users/"+url.PathEscape(login), nil, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, fmt.Errorf("inat: user %q: %w", login, ErrNotFound)
	}
	return &page.Results[0], nil
}
