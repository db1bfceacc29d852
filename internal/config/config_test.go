package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnv() env.Options {
	return env.Options{Environment: map[string]string{}}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := load(filepath.Join(t.TempDir(), "absent.hcl"), noEnv())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	ttl, err := cfg.TokenTTL()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
server {
  address   = "0.0.0.0:9000"
  log_level = "debug"
}

database {
  path = "/var/lib/blackjack/data.db"
}

auth {
  secret    = "s3cret"
  token_ttl = "2h"
}

game {
  seed = 42
}
`)

	cfg, err := load(path, noEnv())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "/var/lib/blackjack/data.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, "10m", cfg.Auth.SweepInterval, "unset keys keep defaults")
	assert.Equal(t, int64(42), cfg.Game.Seed)

	ttl, err := cfg.TokenTTL()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)
}

func TestLoadPartialFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `database { path = "other.db" }`)

	cfg, err := load(path, noEnv())
	require.NoError(t, err)
	assert.Equal(t, "other.db", cfg.Database.Path)
	assert.Equal(t, "localhost:8080", cfg.Server.Address)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `server { address = "0.0.0.0:9000" }`)

	cfg, err := load(path, env.Options{Environment: map[string]string{
		"BLACKJACK_ADDR":        ":7000",
		"BLACKJACK_DB":          ":memory:",
		"BLACKJACK_AUTH_SECRET": "from-env",
		"BLACKJACK_TOKEN_TTL":   "30m",
		"BLACKJACK_SEED":        "7",
	}})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, "30m", cfg.Auth.TokenTTL)
	assert.Equal(t, int64(7), cfg.Game.Seed)
}

func TestLoadInvalidFile(t *testing.T) {
	t.Parallel()
	_, err := load(writeConfig(t, `server { address = `), noEnv())
	assert.ErrorContains(t, err, "parse")

	_, err = load(writeConfig(t, `table "main" {}`), noEnv())
	assert.ErrorContains(t, err, "decode")
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }, "address"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }, "log level"},
		{"empty db", func(c *Config) { c.Database.Path = "" }, "database"},
		{"bad ttl", func(c *Config) { c.Auth.TokenTTL = "forever" }, "token_ttl"},
		{"negative ttl", func(c *Config) { c.Auth.TokenTTL = "-1h" }, "token_ttl"},
		{"zero sweep", func(c *Config) { c.Auth.SweepInterval = "0s" }, "sweep_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}
