// Package config loads blackjack configuration from an HCL file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultFile is read when no --config flag is given.
const DefaultFile = "blackjack.hcl"

// Config represents the complete configuration
type Config struct {
	Server   ServerSettings
	Database DatabaseSettings
	Auth     AuthSettings
	Game     GameSettings
}

// ServerSettings controls the HTTP listener and logging
type ServerSettings struct {
	Address  string `hcl:"address,optional" env:"BLACKJACK_ADDR"`
	LogLevel string `hcl:"log_level,optional" env:"BLACKJACK_LOG_LEVEL"`
}

// DatabaseSettings locates the SQLite database
type DatabaseSettings struct {
	Path string `hcl:"path,optional" env:"BLACKJACK_DB"`
}

// AuthSettings controls token signing. Durations use Go syntax ("24h").
type AuthSettings struct {
	Secret        string `hcl:"secret,optional" env:"BLACKJACK_AUTH_SECRET"`
	TokenTTL      string `hcl:"token_ttl,optional" env:"BLACKJACK_TOKEN_TTL"`
	SweepInterval string `hcl:"sweep_interval,optional" env:"BLACKJACK_SWEEP_INTERVAL"`
}

// GameSettings holds process-level game options. Table rules such as the
// starting money live in the database.
type GameSettings struct {
	// Seed fixes the shuffle for reproducible play. Zero shuffles randomly.
	Seed int64 `hcl:"seed,optional" env:"BLACKJACK_SEED"`
}

// file mirrors the HCL layout; every block is optional
type file struct {
	Server   *ServerSettings   `hcl:"server,block"`
	Database *DatabaseSettings `hcl:"database,block"`
	Auth     *AuthSettings     `hcl:"auth,block"`
	Game     *GameSettings     `hcl:"game,block"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost:8080",
			LogLevel: "info",
		},
		Database: DatabaseSettings{
			Path: "blackjack.db",
		},
		Auth: AuthSettings{
			TokenTTL:      "24h",
			SweepInterval: "10m",
		},
	}
}

// Load reads filename, falling back to defaults when it does not exist, then
// applies environment overrides.
func Load(filename string) (*Config, error) {
	return load(filename, env.Options{})
}

func load(filename string, opts env.Options) (*Config, error) {
	cfg := Default()

	if filename != "" {
		_, err := os.Stat(filename)
		switch {
		case err == nil:
			if err := cfg.decodeFile(filename); err != nil {
				return nil, err
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) decodeFile(filename string) error {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw file
	diags = gohcl.DecodeBody(f.Body, nil, &raw)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if s := raw.Server; s != nil {
		setString(&c.Server.Address, s.Address)
		setString(&c.Server.LogLevel, s.LogLevel)
	}
	if d := raw.Database; d != nil {
		setString(&c.Database.Path, d.Path)
	}
	if a := raw.Auth; a != nil {
		setString(&c.Auth.Secret, a.Secret)
		setString(&c.Auth.TokenTTL, a.TokenTTL)
		setString(&c.Auth.SweepInterval, a.SweepInterval)
	}
	if g := raw.Game; g != nil {
		c.Game.Seed = g.Seed
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if _, err := c.SweepInterval(); err != nil {
		return err
	}
	return nil
}

// TokenTTL parses the token lifetime
func (c *Config) TokenTTL() (time.Duration, error) {
	return positiveDuration("token_ttl", c.Auth.TokenTTL)
}

// SweepInterval parses how often expired tokens are purged
func (c *Config) SweepInterval() (time.Duration, error) {
	return positiveDuration("sweep_interval", c.Auth.SweepInterval)
}

func positiveDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}
