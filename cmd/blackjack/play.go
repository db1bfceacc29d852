package main

import (
	"fmt"
	"io"
	"os"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/cli"
	"github.com/lox/blackjack/internal/game"
)

// PlayCmd runs the interactive game against the local database
type PlayCmd struct {
	TUI     bool   `name:"tui" help:"Use the full-screen interface"`
	NoColor bool   `name:"no-color" help:"Disable colored output"`
	Seed    int64  `help:"Deterministic shuffle seed (0 shuffles randomly)"`
	LogFile string `name:"log-file" type:"path" help:"Write logs here while the full-screen interface is running"`
}

func (c *PlayCmd) Run(g *Globals) error {
	ctx := shared.SetupSignalHandler()

	rt, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	authSvc, err := rt.auth()
	if err != nil {
		return err
	}
	cli.ConfigureColor(c.NoColor)

	var term cli.Terminal
	if c.TUI {
		// the alt screen owns the terminal, so logs go to a file or nowhere
		var out io.Writer = io.Discard
		if c.LogFile != "" {
			f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		rt.logger.SetOutput(out)

		tui := cli.NewTUI(rt.logger)
		tui.Start()
		defer func() { _ = tui.Stop() }()
		term = tui
	} else {
		term = cli.NewLineTerminal(os.Stdin, os.Stdout)
	}

	games := game.NewService(rt.store, rt.logger,
		game.WithRand(rt.rng(c.Seed)),
		game.WithEventSink(term))
	return cli.NewApp(games, authSvc, term, rt.logger).Run(ctx)
}
