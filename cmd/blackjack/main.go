package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command. Flags override the config file
// and environment.
type Globals struct {
	Config   string `short:"c" default:"blackjack.hcl" type:"path" help:"HCL config file (ignored when missing)"`
	DB       string `name:"db" help:"SQLite database path"`
	LogLevel string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	Debug    bool   `help:"Enable debug logging"`
	JSONLogs bool   `name:"json-logs" help:"Emit logs as JSON"`
}

type CLI struct {
	Globals

	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Play        PlayCmd          `cmd:"" default:"1" help:"Play blackjack in the terminal"`
	Serve       ServeCmd         `cmd:"" help:"Run the REST and websocket API"`
	Leaderboard LeaderboardCmd   `cmd:"" help:"Show the top scores"`
	Stats       StatsCmd         `cmd:"" help:"Show a player's statistics"`
	Settings    SettingsCmd      `cmd:"" help:"View or change game settings"`
	Register    RegisterCmd      `cmd:"" help:"Create a user account"`
	Ban         BanCmd           `cmd:"" help:"Ban a user and revoke their tokens"`
	Migrate     MigrateCmd       `cmd:"" help:"Apply database migrations"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Blackjack with tournaments, saved games and a leaderboard"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
