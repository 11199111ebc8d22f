// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

// Package config loads service configuration from defaults, an optional YAML
// file, AUTHD_-prefixed environment variables, and command-line flags, in
// that order of precedence (later wins).
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Defaults applied before any file, env, or flag values.
const (
	DefaultObservabilityAddr = "127.0.0.1:9100"
	DefaultAccessTTL         = 15 * time.Minute
	DefaultRefreshTTL        = 7 * 24 * time.Hour
	DefaultTokenIssuer       = "authd"
	DefaultSweepInterval     = time.Hour
	DefaultLogFormat         = "json"
)

// Config is the full service configuration.
type Config struct {
	Database      DatabaseConfig      `koanf:"database"`
	Tokens        TokensConfig        `koanf:"tokens"`
	Observability ObservabilityConfig `koanf:"observability"`
	Sweep         SweepConfig         `koanf:"sweep"`
	Log           LogConfig           `koanf:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// TokensConfig holds token issuance settings.
type TokensConfig struct {
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
	SigningKey string        `koanf:"signing_key"`
	Issuer     string        `koanf:"issuer"`
}

// ObservabilityConfig holds metrics/health endpoint settings.
type ObservabilityConfig struct {
	// Addr is the metrics/health HTTP listen address. Empty disables the
	// observability server.
	Addr string `koanf:"addr"`
}

// SweepConfig holds expired-session sweeper settings.
type SweepConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `koanf:"format"`
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then AUTHD_-prefixed environment variables
// (AUTHD_DATABASE_URL maps to database.url), then flags.
// flags may be nil when the caller has no flag set to merge.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"tokens.access_ttl":  DefaultAccessTTL,
		"tokens.refresh_ttl": DefaultRefreshTTL,
		"tokens.issuer":      DefaultTokenIssuer,
		"observability.addr": DefaultObservabilityAddr,
		"sweep.interval":     DefaultSweepInterval,
		"log.format":         DefaultLogFormat,
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).
				Wrapf(err, "failed to load config file")
		}
	}

	if err := k.Load(env.Provider("AUTHD_", ".", func(s string) string {
		// AUTHD_DATABASE_URL -> database.url; the first underscore separates
		// the section from the key.
		s = strings.ToLower(strings.TrimPrefix(s, "AUTHD_"))
		return strings.Replace(s, "_", ".", 1)
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "failed to load environment")
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "failed to load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable. requireSigningKey is
// false for commands that never issue tokens (migrate, status, sweep).
func (c *Config) Validate(requireSigningKey bool) error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (set AUTHD_DATABASE_URL)")
	}
	if requireSigningKey && c.Tokens.SigningKey == "" {
		return oops.Code("CONFIG_INVALID").Errorf("tokens.signing_key is required")
	}
	if c.Tokens.AccessTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("tokens.access_ttl must be positive, got %s", c.Tokens.AccessTTL)
	}
	if c.Tokens.RefreshTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("tokens.refresh_ttl must be positive, got %s", c.Tokens.RefreshTTL)
	}
	if c.Sweep.Interval <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("sweep.interval must be positive, got %s", c.Sweep.Interval)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}
