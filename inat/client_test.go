// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package inat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient creates a Client pointing at a test server with the
// rate limit lifted.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:           server.URL + "/v1",
		WebURL:            "https://www.inaturalist.org",
		RequestsPerSecond: 1000,
		Burst:             100,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}

func results(items ...any) map[string]any {
	return map[string]any{"total_results": len(items), "page": 1, "per_page": len(items), "results": items}
}

func TestTaxon(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/v1/taxa/13632" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if !strings.HasPrefix(request.Header.Get("User-Agent"), "dronefly/") {
			t.Errorf("unexpected User-Agent: %q", request.Header.Get("User-Agent"))
		}
		writeJSON(writer, results(map[string]any{
			"id": 13632, "name": "Baeolophus bicolor", "rank": "species",
			"preferred_common_name": "Tufted Titmouse",
		}))
	}))

	taxon, err := client.Taxon(context.Background(), 13632)
	if err != nil {
		t.Fatalf("Taxon failed: %v", err)
	}
	if taxon.Label() != "Baeolophus bicolor (Tufted Titmouse)" {
		t.Errorf("Label() = %q", taxon.Label())
	}
}

func TestSearchTaxon(t *testing.T) {
	search := results(
		map[string]any{"id": 1, "name": "Baeolophus", "rank": "genus", "matched_term": "Titmice"},
		map[string]any{"id": 13632, "name": "Baeolophus bicolor", "rank": "species",
			"preferred_common_name": "Tufted Titmouse", "matched_term": "TUTI"},
		map[string]any{"id": 3, "name": "Parus major", "rank": "species",
			"preferred_common_name": "Great Tit", "matched_term": "Great Tit"},
	)

	tests := []struct {
		name   string
		query  string
		wantID int
	}{
		{"common name match wins", "great tit", 3},
		{"scientific name match wins", "Parus major", 3},
		{"four letter code", "tuti", 13632},
		{"fallback to first", "something else", 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				if request.URL.Path != "/v1/taxa/autocomplete" {
					t.Errorf("unexpected path: %s", request.URL.Path)
				}
				if request.URL.Query().Get("q") != test.query {
					t.Errorf("q = %q", request.URL.Query().Get("q"))
				}
				writeJSON(writer, search)
			}))
			taxon, err := client.SearchTaxon(context.Background(), test.query)
			if err != nil {
				t.Fatalf("SearchTaxon failed: %v", err)
			}
			if taxon.ID != test.wantID {
				t.Errorf("ID = %d, want %d", taxon.ID, test.wantID)
			}
		})
	}

	t.Run("numeric query is an ID", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path != "/v1/taxa/47219" {
				t.Errorf("unexpected path: %s", request.URL.Path)
			}
			writeJSON(writer, results(map[string]any{"id": 47219, "name": "Apis mellifera"}))
		}))
		if _, err := client.SearchTaxon(context.Background(), "47219"); err != nil {
			t.Fatalf("SearchTaxon failed: %v", err)
		}
	})

	t.Run("no results", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, results())
		}))
		_, err := client.SearchTaxon(context.Background(), "zzzz zzzz")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestNotFoundStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		writeJSON(writer, map[string]any{"error": "Not found", "status": 404})
	}))

	_, err := client.User(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiError *APIError
	if !errors.As(err, &apiError) || apiError.Message != "Not found" {
		t.Errorf("APIError = %+v", apiError)
	}
}

func TestRateLimitedStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusTooManyRequests)
		writer.Write([]byte("slow down"))
	}))

	_, err := client.Place(context.Background(), 1)
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("429 must not match ErrNotFound")
	}
}

func TestUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/v1/users/Alice" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, results(map[string]any{"id": 7, "login": "alice"}))
	}))

	user, err := client.User(context.Background(), " Alice ")
	if err != nil {
		t.Fatalf("User failed: %v", err)
	}
	if user.Login != "alice" {
		t.Errorf("Login = %q", user.Login)
	}

	if _, err := client.User(context.Background(), "a/b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("login with a slash should be ErrNotFound, got %v", err)
	}
}

func TestSearchPlace(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/v1/places/autocomplete" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, results(map[string]any{"id": 6712, "name": "Canada", "display_name": "Canada"}))
	}))

	place, err := client.SearchPlace(context.Background(), "canada")
	if err != nil {
		t.Fatalf("SearchPlace failed: %v", err)
	}
	if place.ID != 6712 || place.Label() != "Canada" {
		t.Errorf("place = %+v", place)
	}
}

func TestObservationCount(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		if request.URL.Path != "/v1/observations" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if query.Get("taxon_id") != "13632" || query.Get("per_page") != "0" {
			t.Errorf("unexpected query: %s", request.URL.RawQuery)
		}
		if query.Get("user_id") != "alice" || query.Get("place_id") != "6712" {
			t.Errorf("unexpected filter: %s", request.URL.RawQuery)
		}
		writeJSON(writer, map[string]any{"total_results": 42, "page": 1, "per_page": 0, "results": []any{}})
	}))

	count, err := client.ObservationCount(context.Background(), CountFilter{TaxonID: 13632, UserLogin: "alice", PlaceID: 6712})
	if err != nil {
		t.Fatalf("ObservationCount failed: %v", err)
	}
	if count != 42 {
		t.Errorf("count = %d, want 42", count)
	}

	if _, err := client.ObservationCount(context.Background(), CountFilter{}); err == nil {
		t.Error("expected error without a taxon")
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 0.001, Burst: 1})
	if err != nil {
		t.Fatal(err)
	}
	// Drain the single token so the next request has to wait.
	client.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Taxon(ctx, 1); err == nil {
		t.Fatal("expected error from a cancelled wait")
	}
}
