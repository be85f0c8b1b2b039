// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package inat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/dfloer/dronefly/lib/netutil"
	"github.com/dfloer/dronefly/lib/version"
)

const (
	defaultBaseURL = "https://api.inaturalist.org/v1"
	defaultWebURL  = "https://www.inaturalist.org"
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the API root. Defaults to
	// "https://api.inaturalist.org/v1".
	BaseURL string

	// WebURL is the website root used for links. Defaults to
	// "https://www.inaturalist.org".
	WebURL string

	// RequestsPerSecond is the sustained request rate. Defaults to 1.
	RequestsPerSecond float64

	// Burst is how many requests may go back to back. Defaults to 5.
	Burst int

	// HTTPClient is used for all requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a rate-limited iNaturalist API client. Safe for concurrent
// use.
type Client struct {
	baseURL    string
	links      Links
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a Client from config.
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("inat: invalid BaseURL %q: %w", baseURL, err)
	}
	webURL := config.WebURL
	if webURL == "" {
		webURL = defaultWebURL
	}

	requestsPerSecond := config.RequestsPerSecond
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	burst := config.Burst
	if burst < 1 {
		burst = 5
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		links:      Links{WebURL: webURL},
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		logger:     logger,
	}, nil
}

// Links returns the link builder for the configured website.
func (client *Client) Links() Links {
	return client.links
}

// get waits for the limiter, performs a GET, and decodes the JSON
// response into result.
func (client *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	if err := client.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("inat: waiting for rate limiter: %w", err)
	}

	requestURL := client.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("inat: creating request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", version.UserAgent())

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("inat: GET %s: %w", path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body := netutil.ErrorBody(response.Body)
		apiError := &APIError{StatusCode: response.StatusCode, Message: body}
		var document struct {
			Error string `json:"error"`
		}
		if json.Unmarshal([]byte(body), &document) == nil && document.Error != "" {
			apiError.Message = document.Error
		}
		client.logger.Debug("inat request failed",
			"path", path,
			"status", response.StatusCode,
		)
		return fmt.Errorf("inat: GET %s: %w", path, apiError)
	}

	if err := netutil.DecodeResponse(response.Body, result); err != nil {
		return fmt.Errorf("inat: decoding %s response: %w", path, err)
	}
	return nil
}
