// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package inat

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("inat: not found")

// APIError is a non-2xx response from the API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the server's error text, or the raw body when the
	// body is not the usual {"error": ...} document.
	Message string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("inat: HTTP %d: %s", err.StatusCode, err.Message)
}

// Is makes a 404 APIError match ErrNotFound.
func (err *APIError) Is(target error) bool {
	return target == ErrNotFound && err.StatusCode == 404
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 429
}
