package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/store/sqlite"
)

type appFixture struct {
	store *sqlite.Store
	games *game.Service
	auth  *auth.Service
	out   *bytes.Buffer
	app   *App
}

// newAppFixture scripts the player's input. Every round is dealt from an
// unshuffled deck, so the player always has blackjack.
func newAppFixture(t *testing.T, script ...string) *appFixture {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()

	store, err := sqlite.OpenMigrated(ctx, sqlite.MemoryPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.SetGameSetting(ctx, game.SettingTournamentRounds, "2", "", time.Now()))

	authSvc, err := auth.NewService(store, store, auth.Config{Secret: []byte("test-secret"), BcryptCost: bcrypt.MinCost}, logger)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	term := NewLineTerminal(strings.NewReader(strings.Join(script, "\n")+"\n"), out)
	games := game.NewService(store, logger,
		game.WithEventSink(term),
		game.WithDeckFactory(func() *blackjack.Deck { return blackjack.NewDeck(nil) }))

	return &appFixture{
		store: store,
		games: games,
		auth:  authSvc,
		out:   out,
		app:   NewApp(games, authSvc, term, logger),
	}
}

func TestAppTournament(t *testing.T) {
	t.Parallel()
	f := newAppFixture(t,
		"2", "alice", "alice@example.com", "secret1", // register
		"1", "alice", "wrong-password", // failed login
		"1", "alice", "secret1",
		"1", "abc", "100", "100", // tournament: a bad bet then two rounds
		"3", // leaderboard
		"4", // stats
		"5", // logout
		"3", // quit
	)
	require.NoError(t, f.app.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "Account alice created")
	assert.Contains(t, out, "Invalid username or password")
	assert.Contains(t, out, "Welcome back, alice!")
	assert.Contains(t, out, "TOURNAMENT MODE - 2 ROUNDS")
	assert.Contains(t, out, `"abc" is not a whole number`)
	assert.Equal(t, 2, strings.Count(out, "Blackjack! You win $150!"))
	assert.Contains(t, out, "TOURNAMENT COMPLETE!")
	assert.Contains(t, out, "Score saved to leaderboard!")
	assert.Contains(t, out, "LEADERBOARD - Top 1 Players")
	assert.Contains(t, out, "PLAYER STATISTICS - alice")
	assert.Contains(t, out, "Logged out. Goodbye, alice!")

	top, err := f.games.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1300), top[0].FinalMoney)
}

func TestAppClosedInputSavesSession(t *testing.T) {
	t.Parallel()
	f := newAppFixture(t,
		"2", "bob", "bob@example.com", "secret1",
		"1", "bob", "secret1",
		"2", "100", // free play, one round, then input ends at the continue prompt
	)
	require.NoError(t, f.app.Run(context.Background()))
	assert.Contains(t, f.out.String(), "Goodbye!")

	u, err := f.store.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	turn, err := f.games.ActiveSession(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, turn.Paused)
	assert.Equal(t, int64(1150), turn.Session.CurrentMoney)
	assert.Equal(t, 1, turn.Session.RoundsCompleted)
}

func TestAppResumeOrAbandon(t *testing.T) {
	t.Parallel()
	f := newAppFixture(t,
		"2", "carol", "carol@example.com", "secret1",
		"1", "carol", "secret1",
		"2", "save", // free play, saved at the first bet prompt
		"1", "maybe", "n", "100", "100", // tournament: abandon the saved game
		"5", "3",
	)
	require.NoError(t, f.app.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "[SAVED] Game saved!")
	assert.Contains(t, out, "[SAVED] Resume Saved Game")
	assert.Contains(t, out, "enter y or n")
	assert.Contains(t, out, "Saved game abandoned.")
	assert.Contains(t, out, "TOURNAMENT COMPLETE!")

	u, err := f.store.GetUserByUsername(context.Background(), "carol")
	require.NoError(t, err)
	entries, err := f.games.UserLeaderboard(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1, "abandoned sessions are not scored")
	assert.Equal(t, int64(300), entries[0].Profit)
}
