package main

import (
	"context"
	"fmt"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/store/sqlite"
)

// runtime is the configuration, logger and open database a command works with
type runtime struct {
	cfg    *config.Config
	logger *log.Logger
	store  *sqlite.Store
}

// loadConfig merges the config file, environment and flags
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.DB != "" {
		cfg.Database.Path = g.DB
	}
	if g.LogLevel != "" {
		cfg.Server.LogLevel = g.LogLevel
	}
	if g.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (g *Globals) logger(cfg *config.Config) *log.Logger {
	logger := shared.SetupLogger(g.Debug, g.JSONLogs)
	if lvl, err := log.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// open loads config and opens the migrated database
func (g *Globals) open(ctx context.Context) (*runtime, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := g.logger(cfg)

	store, err := sqlite.OpenMigrated(ctx, cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Debug("Opened database", "path", cfg.Database.Path)
	return &runtime{cfg: cfg, logger: logger, store: store}, nil
}

func (rt *runtime) Close() error {
	return rt.store.Close()
}

func (rt *runtime) auth() (*auth.Service, error) {
	ttl, err := rt.cfg.TokenTTL()
	if err != nil {
		return nil, err
	}
	return auth.NewService(rt.store, rt.store, auth.Config{
		Secret:   []byte(rt.cfg.Auth.Secret),
		TokenTTL: ttl,
	}, rt.logger)
}

// rng returns the shuffle source. A zero seed shuffles randomly.
func (rt *runtime) rng(seed int64) *rand.Rand {
	if seed == 0 {
		seed = rt.cfg.Game.Seed
	}
	var opt *int64
	if seed != 0 {
		opt = &seed
	}
	rng, used := randutil.FromOptionalSeed(opt)
	rt.logger.Debug("Shuffling decks", "seed", used, "deterministic", opt != nil)
	return rng
}
