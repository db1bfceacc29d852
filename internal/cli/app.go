package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/game"
)

// App is the interactive menu-driven client
type App struct {
	games  *game.Service
	auth   *auth.Service
	term   Terminal
	logger *log.Logger

	user  *auth.User
	token string
}

// NewApp creates the interactive client. The game service should publish
// its events to term.
func NewApp(games *game.Service, authSvc *auth.Service, term Terminal, logger *log.Logger) *App {
	return &App{
		games:  games,
		auth:   authSvc,
		term:   term,
		logger: logger.WithPrefix("app"),
	}
}

type menuItem struct {
	label  string
	action func(ctx context.Context) error
}

var errLogout = errors.New("logout")

// Run shows the login menu and then the game menu until the player quits.
// Closing input or cancelling ctx ends Run without error; a round in play is
// saved first.
func (a *App) Run(ctx context.Context) error {
	err := a.run(ctx)
	if errors.Is(err, game.ErrInterrupted) || ctx.Err() != nil {
		a.term.Print("\nGoodbye!")
		return nil
	}
	return err
}

func (a *App) run(ctx context.Context) error {
	for {
		if a.user == nil {
			quit, err := a.loginMenu(ctx)
			if err != nil || quit {
				return err
			}
		}
		if err := a.mainMenu(ctx); err != nil && !errors.Is(err, errLogout) {
			return err
		}
	}
}

func (a *App) choose(ctx context.Context, title string, items []menuItem) (menuItem, error) {
	var b strings.Builder
	b.WriteString("\n" + Banner(title) + "\n")
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it.label)
	}
	a.term.Print(b.String())

	for {
		in, err := a.term.Ask(ctx, fmt.Sprintf("Select option (1-%d):", len(items)), false)
		if err != nil {
			return menuItem{}, err
		}
		n, err := strconv.Atoi(in)
		if err == nil && n >= 1 && n <= len(items) {
			return items[n-1], nil
		}
		a.term.Print(ErrorStyle.Render(fmt.Sprintf("Invalid choice. Please enter 1-%d.", len(items))))
	}
}

func (a *App) loginMenu(ctx context.Context) (bool, error) {
	quit := false
	items := []menuItem{
		{"Login", a.login},
		{"Register", a.register},
		{"Quit", func(context.Context) error { quit = true; return nil }},
	}
	for a.user == nil && !quit {
		item, err := a.choose(ctx, "WELCOME TO BLACKJACK!", items)
		if err != nil {
			return false, err
		}
		if err := item.action(ctx); err != nil {
			return false, err
		}
	}
	if quit {
		a.term.Print("\nGoodbye!")
	}
	return quit, nil
}

func (a *App) login(ctx context.Context) error {
	username, err := a.term.Ask(ctx, "Username:", false)
	if err != nil {
		return err
	}
	password, err := a.term.Ask(ctx, "Password:", true)
	if err != nil {
		return err
	}

	sess, err := a.auth.Login(ctx, username, password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		a.term.Print(ErrorStyle.Render("✗ Invalid username or password"))
		return nil
	case errors.Is(err, auth.ErrBanned):
		a.term.Print(ErrorStyle.Render("✗ This account has been banned"))
		return nil
	case err != nil:
		return err
	}

	a.user = sess.User
	a.token = sess.Token
	a.term.Print(SuccessStyle.Render(fmt.Sprintf("✓ Welcome back, %s!", a.user.Username)))
	return nil
}

func (a *App) register(ctx context.Context) error {
	a.term.Print("\n--- REGISTRATION ---")
	username, err := a.term.Ask(ctx, fmt.Sprintf("Username (min %d chars):", auth.MinUsernameLength), false)
	if err != nil {
		return err
	}
	email, err := a.term.Ask(ctx, "Email:", false)
	if err != nil {
		return err
	}
	password, err := a.term.Ask(ctx, fmt.Sprintf("Password (min %d chars):", auth.MinPasswordLength), true)
	if err != nil {
		return err
	}

	u, err := a.auth.Register(ctx, username, email, password)
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		a.term.Print(ErrorStyle.Render("✗ Username already exists"))
		return nil
	case errors.Is(err, auth.ErrInvalidInput):
		a.term.Print(ErrorStyle.Render("✗ " + promptError(err)))
		return nil
	case err != nil:
		return err
	}
	a.term.Print(SuccessStyle.Render(fmt.Sprintf("✓ Account %s created.", u.Username)))
	a.term.Print("Please login with your new account.")
	return nil
}

func (a *App) mainMenu(ctx context.Context) error {
	for {
		settings, err := a.games.Settings(ctx)
		if err != nil {
			return err
		}
		active, err := a.activeSession(ctx)
		if err != nil {
			return err
		}

		items := []menuItem{
			{fmt.Sprintf("Tournament Mode (%d rounds, save score)", settings.TournamentRounds),
				func(ctx context.Context) error { return a.start(ctx, game.ModeTournament) }},
			{"Free Play Mode (play until broke or quit)",
				func(ctx context.Context) error { return a.start(ctx, game.ModeFreeplay) }},
		}
		if active != nil {
			items = append(items, menuItem{"[SAVED] Resume Saved Game",
				func(ctx context.Context) error { return a.play(ctx, active) }})
		}
		items = append(items,
			menuItem{"View Leaderboard", a.showLeaderboard},
			menuItem{"View My Statistics", a.showStats},
			menuItem{"Logout", a.logout},
		)

		item, err := a.choose(ctx, "BLACKJACK - Welcome, "+a.user.Username+"!", items)
		if err != nil {
			return err
		}
		if err := item.action(ctx); err != nil {
			return err
		}
	}
}

func (a *App) activeSession(ctx context.Context) (*game.Session, error) {
	turn, err := a.games.ActiveSession(ctx, a.user.ID)
	if errors.Is(err, game.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &turn.Session, nil
}

// start begins a new session, offering to resume or abandon one in progress
func (a *App) start(ctx context.Context, mode game.Mode) error {
	active, err := a.activeSession(ctx)
	if err != nil {
		return err
	}
	if active != nil {
		for {
			in, err := a.term.Ask(ctx, "[SAVED GAME FOUND] Resume? (y/n):", false)
			if err != nil {
				return err
			}
			resume, err := game.ParseYesNo(in)
			if err != nil {
				a.term.Print(ErrorStyle.Render(promptError(err)))
				continue
			}
			if resume {
				return a.play(ctx, active)
			}
			break
		}
		if _, err := a.games.Abandon(ctx, a.user.ID); err != nil {
			return err
		}
		a.term.Print(WarningStyle.Render("Saved game abandoned."))
	}

	sess, err := a.games.Start(ctx, a.user.ID, mode)
	if err != nil {
		return err
	}
	if mode == game.ModeTournament {
		a.term.Print("\n" + Banner(fmt.Sprintf("TOURNAMENT MODE - %d ROUNDS", sess.MaxRounds)) +
			fmt.Sprintf("\nStarting money: %s\nComplete %d rounds or go broke!", Money(sess.StartingMoney), sess.MaxRounds))
	} else {
		a.term.Print("\n" + Banner("FREE PLAY MODE") +
			fmt.Sprintf("\nStarting money: %s\nPlay until you quit or go broke!", Money(sess.StartingMoney)))
	}
	return a.play(ctx, sess)
}

func (a *App) play(ctx context.Context, sess *game.Session) error {
	a.logger.Debug("Playing session", "session", sess.ID, "mode", sess.Mode)
	res, err := a.games.Play(ctx, a.user.ID, sess.ID, a.term)
	if err != nil {
		return err
	}
	if res.Completion != nil {
		a.term.Print("\n" + RenderCompletion(res.Session, res.Completion))
	}
	if res.Paused && ctx.Err() != nil {
		return game.ErrInterrupted
	}
	return nil
}

func (a *App) showLeaderboard(ctx context.Context) error {
	entries, err := a.games.Leaderboard(ctx, game.DefaultLeaderboardLimit)
	if err != nil {
		return err
	}
	a.term.Print("\n" + RenderLeaderboard(entries))
	return nil
}

func (a *App) showStats(ctx context.Context) error {
	st, err := a.games.Statistics(ctx, a.user.ID)
	if err != nil {
		return err
	}
	a.term.Print("\n" + RenderStats(a.user.Username, st))
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx, a.token); err != nil && !errors.Is(err, auth.ErrInvalidToken) {
		return err
	}
	a.term.Print(SuccessStyle.Render(fmt.Sprintf("✓ Logged out. Goodbye, %s!", a.user.Username)))
	a.user = nil
	a.token = ""
	return errLogout
}
