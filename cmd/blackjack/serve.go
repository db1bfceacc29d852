package main

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/friends"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/server"
)

// ServeCmd runs the HTTP API
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config)"`
	Seed int64  `help:"Deterministic shuffle seed (0 shuffles randomly)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	rt, err := g.open(context.Background())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	ctx := shared.SetupSignalHandlerWithLogger(rt.logger)
	if c.Addr != "" {
		rt.cfg.Server.Address = c.Addr
	}

	authSvc, err := rt.auth()
	if err != nil {
		return err
	}
	sweep, err := rt.cfg.SweepInterval()
	if err != nil {
		return err
	}

	hub := server.NewHub(rt.logger)
	games := game.NewService(rt.store, rt.logger,
		game.WithRand(rt.rng(c.Seed)),
		game.WithEventSink(hub))

	api := server.New(server.Deps{
		Games:    games,
		Auth:     authSvc,
		Friends:  friends.NewService(rt.store, rt.store, nil, rt.logger),
		Settings: rt.store,
		Hub:      hub,
		Logger:   rt.logger,
	})

	rt.logger.Info("Starting blackjack server",
		"address", rt.cfg.Server.Address,
		"database", rt.cfg.Database.Path,
		"token_ttl", rt.cfg.Auth.TokenTTL,
		"sweep_interval", sweep)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return hub.Run(gctx) })
	eg.Go(func() error { return authSvc.RunSweeper(gctx, sweep) })
	eg.Go(func() error { return api.ListenAndServe(gctx, rt.cfg.Server.Address) })
	return eg.Wait()
}
