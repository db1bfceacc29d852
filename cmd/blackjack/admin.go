package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/x/term"

	"github.com/lox/blackjack/internal/cli"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/store/sqlite"
)

// LeaderboardCmd prints the top scores
type LeaderboardCmd struct {
	Limit   int  `short:"n" default:"10" help:"Number of entries to show"`
	NoColor bool `name:"no-color" help:"Disable colored output"`
}

func (c *LeaderboardCmd) Run(g *Globals) error {
	ctx := context.Background()
	rt, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	cli.ConfigureColor(c.NoColor)
	entries, err := game.NewService(rt.store, rt.logger).Leaderboard(ctx, c.Limit)
	if err != nil {
		return err
	}
	fmt.Println(cli.RenderLeaderboard(entries))
	return nil
}

// StatsCmd prints one player's statistics
type StatsCmd struct {
	Username string `arg:"" help:"Player to show"`
	NoColor  bool   `name:"no-color" help:"Disable colored output"`
}

func (c *StatsCmd) Run(g *Globals) error {
	ctx := context.Background()
	rt, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	u, err := rt.store.GetUserByUsername(ctx, c.Username)
	if err != nil {
		return fmt.Errorf("user %q: %w", c.Username, err)
	}
	st, err := game.NewService(rt.store, rt.logger).Statistics(ctx, u.ID)
	if err != nil {
		return err
	}
	cli.ConfigureColor(c.NoColor)
	fmt.Println(cli.RenderStats(u.Username, st))
	return nil
}

// SettingsCmd groups the game settings commands
type SettingsCmd struct {
	List SettingsListCmd `cmd:"" default:"1" help:"Show every game setting"`
	Set  SettingsSetCmd  `cmd:"" help:"Change a game setting"`
}

type SettingsListCmd struct{}

func (c *SettingsListCmd) Run(g *Globals) error {
	ctx := context.Background()
	rt, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	settings, err := rt.store.ListGameSettings(ctx)
	if err != nil {
		return err
	}
	fmt.Println(cli.RenderSettings(settings))
	return nil
}

type SettingsSetCmd struct {
	Key   string `arg:"" enum:"starting_money,tournament_rounds,blackjack_payout,min_bet" help:"Setting to change"`
	Value string `arg:"" help:"New value"`
	By    string `help:"Recorded as the admin who made the change"`
}

func (c *SettingsSetCmd) Run(g *Globals) error {
	if err := game.ValidateSetting(c.Key, c.Value); err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	by := c.By
	if by == "" {
		by = os.Getenv("USER")
	}
	if err := rt.store.SetGameSetting(ctx, c.Key, c.Value, by, time.Now()); err != nil {
		return err
	}
	rt.logger.Info("Game setting updated", "key", c.Key, "value", c.Value, "by", by)
	return nil
}

// RegisterCmd creates an account, prompting for the password when it is not
// given on the command line
type RegisterCmd struct {
	Username string `arg:"" help:"Username"`
	Email    string `arg:"" help:"Email address"`
	Password string `env:"BLACKJACK_PASSWORD" help:"Password (prompted when omitted)"`
	Admin    bool   `help:"Grant the admin role"`
}

func (c *RegisterCmd) Run(g *Globals) error {
	ctx := context.Background()
	rt, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	authSvc, err := rt.auth()
	if err != nil {
		return err
	}

	password := c.Password
	if password == "" {
		if password, err = readPassword(); err != nil {
			return err
		}
	}

	register := authSvc.Register
	if c.Admin {
		register = authSvc.RegisterAdmin
	}
	u, err := register(ctx, c.Username, c.Email, password)
	if err != nil {
		return err
	}
	rt.logger.Info("User registered", "user", u.Username, "role", u.Role)
	return nil
}

func readPassword() (string, error) {
	fd := os.Stdin.Fd()
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password required: pass --password or set BLACKJACK_PASSWORD")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// BanCmd bans a user
type BanCmd struct {
	Username string `arg:"" help:"User to ban"`
}

func (c *BanCmd) Run(g *Globals) error {
	ctx := context.Background()
	rt, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	authSvc, err := rt.auth()
	if err != nil {
		return err
	}
	_, err = authSvc.Ban(ctx, c.Username)
	return err
}

// MigrateCmd applies pending migrations, or lists them with --status
type MigrateCmd struct {
	Status bool `help:"List migrations without applying them"`
}

func (c *MigrateCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger := g.logger(cfg)

	store, err := sqlite.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if c.Status {
		migrations, err := store.MigrationStatus(ctx)
		if err != nil {
			return err
		}
		for _, m := range migrations {
			state := "pending"
			if m.Applied {
				state = "applied"
			}
			fmt.Printf("%-6d %-8s %s\n", m.Version, state, m.Source)
		}
		return nil
	}

	applied, err := store.Migrate(ctx)
	if err != nil {
		return err
	}
	for _, m := range applied {
		logger.Info("Applied migration", "version", m.Version, "source", m.Source, "duration", m.Duration)
	}
	if len(applied) == 0 {
		logger.Info("Database is up to date", "path", cfg.Database.Path)
	}
	return nil
}
