// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dfloer/dronefly/lib/ref"
)

// EnvVar names the environment variable read by Load.
const EnvVar = "DRONEFLY_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete bot configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Matrix  MatrixConfig  `yaml:"matrix"`
	INat    INatConfig    `yaml:"inat"`
	Storage StorageConfig `yaml:"storage"`
	Bot     BotConfig     `yaml:"bot"`
	Logging LoggingConfig `yaml:"logging"`

	// Per-environment overrides, applied after the base config loads.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment block may override.
// Only non-empty values replace base values.
type Overrides struct {
	Matrix  *MatrixConfig  `yaml:"matrix,omitempty"`
	Storage *StorageConfig `yaml:"storage,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty"`
}

// MatrixConfig configures the homeserver connection.
type MatrixConfig struct {
	// Homeserver is the client-server API base URL.
	Homeserver string `yaml:"homeserver"`

	// SessionFile is the CBOR file `dronefly login` writes and `dronefly
	// run` reads: user ID, device ID, access token.
	SessionFile string `yaml:"session_file"`

	// Bots lists other bots' user IDs. Reactions and commands from them
	// are ignored, as are the bot's own.
	Bots []string `yaml:"bots"`
}

// INatConfig configures the iNaturalist API client.
type INatConfig struct {
	APIURL string `yaml:"api_url"`
	WebURL string `yaml:"web_url"`

	// RequestsPerSecond is the sustained request rate. iNaturalist asks
	// API clients to stay at or below one per second.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests allowed back to back.
	Burst int `yaml:"burst"`
}

// StorageConfig names the bot's local files.
type StorageConfig struct {
	// Database is the SQLite file holding registrations, place aliases,
	// and the reaction index.
	Database string `yaml:"database"`

	// SyncState is the CBOR file holding the /sync position.
	SyncState string `yaml:"sync_state"`

	// PlaceAliases is an optional JSONC file of place aliases loaded
	// into the database at startup.
	PlaceAliases string `yaml:"place_aliases"`

	// ReactionRetention bounds how long a reaction is remembered. A
	// reaction removed after this long is ignored.
	ReactionRetention time.Duration `yaml:"reaction_retention"`
}

// BotConfig configures commands and the prompt flow.
type BotConfig struct {
	// Prefixes start this bot's commands.
	Prefixes []string `yaml:"prefixes"`

	// OtherBotPrefixes start commands for other bots sharing the room.
	// A prompt answer starting with any known prefix is discarded.
	OtherBotPrefixes []string `yaml:"other_bot_prefixes"`

	// DotTaxon enables `.query.` lookups inside ordinary messages.
	DotTaxon bool `yaml:"dot_taxon"`

	// PromptTimeout bounds the wait for a by-name answer.
	PromptTimeout time.Duration `yaml:"prompt_timeout"`

	// ErrorDisplay is how long a "not found" reply stays up.
	ErrorDisplay time.Duration `yaml:"error_display"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is json, text, or auto (text on a terminal, else json).
	Format string `yaml:"format"`
}

// Default returns the configuration every file is loaded on top of.
func Default() *Config {
	return &Config{
		Environment: Development,
		Matrix: MatrixConfig{
			SessionFile: "${STATE_DIRECTORY:-/var/lib/dronefly}/session.cbor",
		},
		INat: INatConfig{
			APIURL:            "https://api.inaturalist.org/v1",
			WebURL:            "https://www.inaturalist.org",
			RequestsPerSecond: 1,
			Burst:             5,
		},
		Storage: StorageConfig{
			Database:          "${STATE_DIRECTORY:-/var/lib/dronefly}/dronefly.db",
			SyncState:         "${STATE_DIRECTORY:-/var/lib/dronefly}/sync.cbor",
			ReactionRetention: 30 * 24 * time.Hour,
		},
		Bot: BotConfig{
			Prefixes:      []string{"!"},
			DotTaxon:      true,
			PromptTimeout: 15 * time.Second,
			ErrorDisplay:  15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads the file named by DRONEFLY_CONFIG. It fails if the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your dronefly.yaml or use --config", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads path over Default, applies the matching environment
// section, and expands path variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{Logging: &LoggingConfig{Format: "json"}}
		}
	}
	if overrides == nil {
		return
	}

	if matrix := overrides.Matrix; matrix != nil {
		setString(&c.Matrix.Homeserver, matrix.Homeserver)
		setString(&c.Matrix.SessionFile, matrix.SessionFile)
		if len(matrix.Bots) > 0 {
			c.Matrix.Bots = matrix.Bots
		}
	}
	if storage := overrides.Storage; storage != nil {
		setString(&c.Storage.Database, storage.Database)
		setString(&c.Storage.SyncState, storage.SyncState)
		setString(&c.Storage.PlaceAliases, storage.PlaceAliases)
		if storage.ReactionRetention != 0 {
			c.Storage.ReactionRetention = storage.ReactionRetention
		}
	}
	if logging := overrides.Logging; logging != nil {
		setString(&c.Logging.Level, logging.Level)
		setString(&c.Logging.Format, logging.Format)
	}
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	for _, path := range []*string{
		&c.Matrix.SessionFile,
		&c.Storage.Database,
		&c.Storage.SyncState,
		&c.Storage.PlaceAliases,
	} {
		*path = expandVars(*path, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars is consulted
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text", "auto"}
)

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}

	if c.Matrix.Homeserver == "" {
		errs = append(errs, errors.New("matrix.homeserver is required"))
	} else if err := validateURL(c.Matrix.Homeserver); err != nil {
		errs = append(errs, fmt.Errorf("matrix.homeserver: %w", err))
	}
	if c.Matrix.SessionFile == "" {
		errs = append(errs, errors.New("matrix.session_file is required"))
	}
	for _, bot := range c.Matrix.Bots {
		if _, err := ref.ParseUserID(bot); err != nil {
			errs = append(errs, fmt.Errorf("matrix.bots: %w", err))
		}
	}

	if err := validateURL(c.INat.APIURL); err != nil {
		errs = append(errs, fmt.Errorf("inat.api_url: %w", err))
	}
	if err := validateURL(c.INat.WebURL); err != nil {
		errs = append(errs, fmt.Errorf("inat.web_url: %w", err))
	}
	if c.INat.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("inat.requests_per_second must be positive"))
	}
	if c.INat.Burst < 1 {
		errs = append(errs, errors.New("inat.burst must be at least 1"))
	}

	if c.Storage.Database == "" {
		errs = append(errs, errors.New("storage.database is required"))
	}
	if c.Storage.SyncState == "" {
		errs = append(errs, errors.New("storage.sync_state is required"))
	}
	if c.Storage.ReactionRetention <= 0 {
		errs = append(errs, errors.New("storage.reaction_retention must be positive"))
	}

	if len(c.Bot.Prefixes) == 0 {
		errs = append(errs, errors.New("bot.prefixes must not be empty"))
	}
	for _, prefix := range append(slices.Clone(c.Bot.Prefixes), c.Bot.OtherBotPrefixes...) {
		if strings.TrimSpace(prefix) == "" {
			errs = append(errs, errors.New("bot prefixes must not be blank"))
			break
		}
	}
	if c.Bot.PromptTimeout <= 0 {
		errs = append(errs, errors.New("bot.prompt_timeout must be positive"))
	}
	if c.Bot.ErrorDisplay <= 0 {
		errs = append(errs, errors.New("bot.error_display must be positive"))
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", logFormats))
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// CommandPrefixes returns this bot's prefixes followed by other bots'.
func (c *Config) CommandPrefixes() []string {
	return append(slices.Clone(c.Bot.Prefixes), c.Bot.OtherBotPrefixes...)
}
