// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dronefly.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const minimalConfig = `
matrix:
  homeserver: https://matrix.example.org
`

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Bot.PromptTimeout != 15*time.Second {
		t.Errorf("expected prompt_timeout=15s, got %s", cfg.Bot.PromptTimeout)
	}
	if cfg.INat.RequestsPerSecond != 1 {
		t.Errorf("expected requests_per_second=1, got %v", cfg.INat.RequestsPerSecond)
	}
}

func TestLoad_RequiresEnvVar(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DRONEFLY_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "DRONEFLY_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithEnvVar(t *testing.T) {
	t.Setenv(EnvVar, writeConfig(t, minimalConfig))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Matrix.Homeserver != "https://matrix.example.org" {
		t.Errorf("homeserver = %q", cfg.Matrix.Homeserver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("minimal config should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: staging
matrix:
  homeserver: https://matrix.example.org
  bots: ["@otherbot:example.org"]
inat:
  requests_per_second: 0.5
storage:
  database: /srv/dronefly/db.sqlite
  reaction_retention: 48h
bot:
  prefixes: ["!", ","]
  other_bot_prefixes: ["$"]
  dot_taxon: false
  prompt_timeout: 20s
logging:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("environment = %s", cfg.Environment)
	}
	if cfg.INat.RequestsPerSecond != 0.5 {
		t.Errorf("requests_per_second = %v", cfg.INat.RequestsPerSecond)
	}
	if cfg.INat.Burst != 5 {
		t.Errorf("burst should keep its default, got %d", cfg.INat.Burst)
	}
	if cfg.Storage.ReactionRetention != 48*time.Hour {
		t.Errorf("reaction_retention = %s", cfg.Storage.ReactionRetention)
	}
	if cfg.Bot.DotTaxon {
		t.Error("dot_taxon should be false")
	}
	if cfg.Bot.PromptTimeout != 20*time.Second {
		t.Errorf("prompt_timeout = %s", cfg.Bot.PromptTimeout)
	}
	if got := cfg.CommandPrefixes(); strings.Join(got, " ") != "! , $" {
		t.Errorf("CommandPrefixes() = %v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	if _, err := LoadFile(writeConfig(t, "matrix: [unclosed")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Run("matching section applies", func(t *testing.T) {
		cfg, err := LoadFile(writeConfig(t, `
environment: development
matrix:
  homeserver: https://matrix.example.org
development:
  matrix:
    homeserver: http://localhost:6167
  storage:
    database: /tmp/dronefly.db
  logging:
    level: debug
production:
  matrix:
    homeserver: https://wrong.example.org
`))
		if err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if cfg.Matrix.Homeserver != "http://localhost:6167" {
			t.Errorf("homeserver = %q", cfg.Matrix.Homeserver)
		}
		if cfg.Storage.Database != "/tmp/dronefly.db" {
			t.Errorf("database = %q", cfg.Storage.Database)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("level = %q", cfg.Logging.Level)
		}
	})

	t.Run("production defaults to json logs", func(t *testing.T) {
		cfg, err := LoadFile(writeConfig(t, "environment: production\n"+minimalConfig))
		if err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if cfg.Logging.Format != "json" {
			t.Errorf("format = %q, want json", cfg.Logging.Format)
		}
	})
}

func TestExpandVars(t *testing.T) {
	t.Setenv("DRONEFLY_TEST_DIR", "/from/env")

	cases := []struct {
		input string
		want  string
	}{
		{"${HOME}/db", "/home/bot/db"},
		{"${DRONEFLY_TEST_DIR}/sync.cbor", "/from/env/sync.cbor"},
		{"${DRONEFLY_TEST_UNSET:-/fallback}/x", "/fallback/x"},
		{"${DRONEFLY_TEST_UNSET}/x", "/x"},
		{"/plain/path", "/plain/path"},
	}
	vars := map[string]string{"HOME": "/home/bot"}
	for _, tc := range cases {
		if got := expandVars(tc.input, vars); got != tc.want {
			t.Errorf("expandVars(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestStateDirectoryExpansion(t *testing.T) {
	t.Setenv("STATE_DIRECTORY", "/var/lib/private/dronefly")

	cfg, err := LoadFile(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Storage.SyncState != "/var/lib/private/dronefly/sync.cbor" {
		t.Errorf("sync_state = %q", cfg.Storage.SyncState)
	}
	if cfg.Matrix.SessionFile != "/var/lib/private/dronefly/session.cbor" {
		t.Errorf("session_file = %q", cfg.Matrix.SessionFile)
	}
}

func TestValidate(t *testing.T) {
	t.Run("reports every problem", func(t *testing.T) {
		cfg := Default()
		cfg.Environment = "qa"
		cfg.Matrix.Bots = []string{"otherbot"}
		cfg.INat.RequestsPerSecond = 0
		cfg.Bot.Prefixes = nil
		cfg.Logging.Level = "verbose"

		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected validation error")
		}
		for _, want := range []string{
			"invalid environment",
			"matrix.homeserver is required",
			"matrix.bots",
			"requests_per_second",
			"bot.prefixes",
			"logging.level",
		} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error missing %q:\n%v", want, err)
			}
		}
	})

	t.Run("rejects non-http homeserver", func(t *testing.T) {
		cfg := Default()
		cfg.Matrix.Homeserver = "matrix.example.org"
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "matrix.homeserver") {
			t.Errorf("Validate() = %v", err)
		}
	})

	t.Run("rejects blank prefix", func(t *testing.T) {
		cfg := Default()
		cfg.Matrix.Homeserver = "https://matrix.example.org"
		cfg.Bot.OtherBotPrefixes = []string{" "}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for blank prefix")
		}
	})
}
