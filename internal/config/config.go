// Package config loads CLI configuration from TASKDESK_ environment
// variables.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/taskdesk/taskdesk/internal/credstore"
)

// Prefix for all environment variables, e.g. TASKDESK_API_URL.
const Prefix = "TASKDESK"

// Config holds the client-side configuration.
type Config struct {
	// API root, without the /api suffix
	APIURL      string        `envconfig:"API_URL" default:"http://localhost:5000"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`

	// Where the session credential is kept: file, sqlite or memory
	CredentialBackend string `envconfig:"CREDENTIAL_BACKEND" default:"file"`
	// State directory; see credstore.DefaultDir
	Home string `envconfig:"-"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
	LogFile  string `envconfig:"LOG_FILE" default:""`
	Debug    bool   `envconfig:"DEBUG" default:"false"`

	// Attempts per background read; 1 disables retries
	FetchMaxAttempts int `envconfig:"FETCH_MAX_ATTEMPTS" default:"1"`
}

// ResolveDefaults validates the values and derives Home when unset.
func (c *Config) ResolveDefaults() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_URL: %q", c.APIURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0, got %s", c.HTTPTimeout)
	}
	switch c.CredentialBackend {
	case credstore.BackendFile, credstore.BackendSQLite, credstore.BackendMemory:
	default:
		return fmt.Errorf("unsupported CREDENTIAL_BACKEND: %s", c.CredentialBackend)
	}
	if c.FetchMaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be >= 1, got %d", c.FetchMaxAttempts)
	}
	if c.Home == "" {
		home, err := credstore.DefaultDir()
		if err != nil {
			return err
		}
		c.Home = home
	}
	return nil
}

// New creates a Config by parsing TASKDESK_ environment variables.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("api_url", cfg.APIURL).
		Dur("http_timeout", cfg.HTTPTimeout).
		Str("credential_backend", cfg.CredentialBackend).
		Str("home", cfg.Home).
		Str("log_level", cfg.LogLevel).
		Bool("debug", cfg.Debug).
		Int("fetch_max_attempts", cfg.FetchMaxAttempts).
		Msg("Configuration loaded")

	return &cfg, nil
}
