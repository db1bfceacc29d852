package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/friends"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/store/sqlite"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// stackedDeck returns a deck whose first dealt cards are top, in order
func stackedDeck(top ...blackjack.Card) *blackjack.Deck {
	used := make(map[blackjack.Card]bool, len(top))
	for _, c := range top {
		used[c] = true
	}
	var data []blackjack.CardData
	for _, c := range blackjack.NewDeck(nil).Cards() {
		if !used[c] {
			data = append(data, c.Data())
		}
	}
	for i := len(top) - 1; i >= 0; i-- {
		data = append(data, top[i].Data())
	}
	d, err := blackjack.DeckFromSnapshot(data, nil)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	t     *testing.T
	store *sqlite.Store
	auth  *auth.Service
	ts    *httptest.Server

	mu    sync.Mutex
	decks [][]blackjack.Card
}

func (f *fixture) nextDeck() *blackjack.Deck {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.decks) == 0 {
		return blackjack.NewDeck(nil)
	}
	top := f.decks[0]
	f.decks = f.decks[1:]
	return stackedDeck(top...)
}

func newFixture(t *testing.T, decks ...[]blackjack.Card) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()

	store, err := sqlite.OpenMigrated(ctx, sqlite.MemoryPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	authSvc, err := auth.NewService(store, store, auth.Config{
		Secret:     []byte("test-secret"),
		BcryptCost: bcrypt.MinCost,
	}, logger)
	require.NoError(t, err)

	f := &fixture{t: t, store: store, auth: authSvc, decks: decks}
	srv := New(Deps{
		Games:    game.NewService(store, logger, game.WithDeckFactory(f.nextDeck)),
		Auth:     authSvc,
		Friends:  friends.NewService(store, store, nil, logger),
		Settings: store,
		Logger:   logger,
	})
	f.ts = httptest.NewServer(srv)
	t.Cleanup(f.ts.Close)
	return f
}

func (f *fixture) do(method, path, token string, body any) (int, map[string]any) {
	f.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, rd)
	require.NoError(f.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.ts.Client().Do(req)
	require.NoError(f.t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(f.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// signup registers and logs in, returning a bearer token
func (f *fixture) signup(username string) string {
	f.t.Helper()
	status, _ := f.do(http.MethodPost, "/api/register", "", map[string]string{
		"username": username, "email": username + "@example.com", "password": "secret123",
	})
	require.Equal(f.t, http.StatusCreated, status)
	status, body := f.do(http.MethodPost, "/api/login", "", map[string]string{
		"username": username, "password": "secret123",
	})
	require.Equal(f.t, http.StatusOK, status)
	return body["token"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func card(r blackjack.Rank, s blackjack.Suit) blackjack.Card { return blackjack.NewCard(r, s) }

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	status, body := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	token := f.signup("alice")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"duplicate username", "/api/register", map[string]string{"username": "Alice", "email": "a@b.c", "password": "secret123"}, http.StatusConflict, CodeConflict},
		{"short password", "/api/register", map[string]string{"username": "bob", "email": "b@b.c", "password": "123"}, http.StatusBadRequest, CodeInvalidRequest},
		{"unknown field", "/api/register", map[string]string{"user": "bob"}, http.StatusBadRequest, CodeInvalidRequest},
		{"wrong password", "/api/login", map[string]string{"username": "alice", "password": "nope-nope"}, http.StatusUnauthorized, CodeUnauthorized},
		{"unknown user", "/api/login", map[string]string{"username": "nobody", "password": "secret123"}, http.StatusUnauthorized, CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}

	status, body := f.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "player", body["role"])

	status, _ = f.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = f.do(http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = f.do(http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	// player 10+6 against the dealer's 10+7, then a hit to 20
	f := newFixture(t, []blackjack.Card{
		card(blackjack.Ten, blackjack.Hearts),
		card(blackjack.Ten, blackjack.Diamonds),
		card(blackjack.Six, blackjack.Hearts),
		card(blackjack.Seven, blackjack.Diamonds),
		card(blackjack.Four, blackjack.Clubs),
	})
	token := f.signup("alice")

	status, body := f.do(http.MethodPost, "/api/sessions", token, map[string]string{"mode": "freeplay"})
	require.Equal(t, http.StatusCreated, status)
	sess := body["session"].(map[string]any)
	id := sess["session_id"].(string)
	assert.Equal(t, float64(1000), sess["current_money"])

	status, body = f.do(http.MethodPost, "/api/sessions", token, map[string]string{"mode": "tournament"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeConflict, errorCode(body))

	status, _ = f.do(http.MethodPost, "/api/sessions/"+id+"/bet", token, map[string]int64{"amount": 5000})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(http.MethodPost, "/api/sessions/"+id+"/bet", token, map[string]int64{"amount": 100})
	require.Equal(t, http.StatusOK, status)
	round := body["round"].(map[string]any)
	assert.Equal(t, string(game.StatePlayerTurn), round["state"])
	assert.Equal(t, true, round["dealer_hidden"])
	assert.Len(t, round["dealer_cards"], 1)

	status, body = f.do(http.MethodPost, "/api/sessions/"+id+"/save", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["paused"])

	status, body = f.do(http.MethodPost, "/api/sessions/active/resume", token, nil)
	require.Equal(t, http.StatusOK, status)
	round = body["round"].(map[string]any)
	assert.Equal(t, float64(16), round["player_value"])

	status, _ = f.do(http.MethodPost, "/api/sessions/"+id+"/quit", token, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = f.do(http.MethodPost, "/api/sessions/"+id+"/hit", token, nil)
	require.Equal(t, http.StatusOK, status)
	round = body["round"].(map[string]any)
	assert.Equal(t, float64(20), round["player_value"])

	status, body = f.do(http.MethodPost, "/api/sessions/"+id+"/stand", token, nil)
	require.Equal(t, http.StatusOK, status)
	outcome := body["outcome"].(map[string]any)
	assert.Equal(t, "win", outcome["result"])
	assert.Equal(t, float64(100), outcome["winnings"])
	assert.Equal(t, float64(1100), outcome["balance_after"])

	status, body = f.do(http.MethodGet, "/api/sessions/"+id+"/rounds", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["rounds"], 1)

	status, body = f.do(http.MethodPost, "/api/sessions/"+id+"/quit", token, nil)
	require.Equal(t, http.StatusOK, status)
	completion := body["completion"].(map[string]any)
	assert.Equal(t, game.ReasonQuit, completion["reason"])

	status, _ = f.do(http.MethodGet, "/api/sessions/active", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(http.MethodGet, "/api/leaderboard?limit=5", "", nil)
	require.Equal(t, http.StatusOK, status)
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	top := entries[0].(map[string]any)
	assert.Equal(t, "alice", top["username"])
	assert.Equal(t, float64(100), top["profit"])

	status, body = f.do(http.MethodGet, "/api/me/leaderboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["entries"], 1)

	status, body = f.do(http.MethodGet, "/api/me/stats", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["games_played"])
	assert.Equal(t, float64(1), body["wins"])
}

func TestSessionsAreOwnerOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.signup("alice")
	bob := f.signup("bob")

	status, body := f.do(http.MethodPost, "/api/sessions", alice, map[string]string{"mode": "tournament"})
	require.Equal(t, http.StatusCreated, status)
	id := body["session"].(map[string]any)["session_id"].(string)

	status, _ = f.do(http.MethodGet, "/api/sessions/"+id, bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = f.do(http.MethodPost, "/api/sessions/"+id+"/bet", bob, map[string]int64{"amount": 10})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(http.MethodDelete, "/api/sessions/active", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["status"])

	status, body = f.do(http.MethodGet, "/api/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["entries"])
}

func TestLeaderboardRejectsBadLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	for _, limit := range []string{"abc", "0", "-3"} {
		status, body := f.do(http.MethodGet, "/api/leaderboard?limit="+limit, "", nil)
		assert.Equal(t, http.StatusBadRequest, status, limit)
		assert.Equal(t, CodeInvalidRequest, errorCode(body))
	}
}

func TestFriendsFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.signup("alice")
	bob := f.signup("bob")

	status, _ := f.do(http.MethodPost, "/api/friends/request", alice, map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(http.MethodPost, "/api/friends/request", alice, map[string]string{"username": "carol"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body := f.do(http.MethodPost, "/api/friends/request", alice, map[string]string{"username": "bob"})
	require.Equal(t, http.StatusCreated, status)
	fid := body["friendship_id"].(string)

	status, _ = f.do(http.MethodPost, "/api/friends/request", bob, map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = f.do(http.MethodGet, "/api/friends/pending", bob, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["requests"], 1)

	status, _ = f.do(http.MethodPost, "/api/friends/respond", alice, map[string]string{"friendship_id": fid, "action": "accept"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = f.do(http.MethodPost, "/api/friends/respond", bob, map[string]string{"friendship_id": fid, "action": "maybe"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(http.MethodPost, "/api/friends/respond", bob, map[string]string{"friendship_id": fid, "action": "accept"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "accepted", body["status"])

	status, _ = f.do(http.MethodPost, "/api/friends/respond", bob, map[string]string{"friendship_id": fid, "action": "reject"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = f.do(http.MethodGet, "/api/friends", alice, nil)
	require.Equal(t, http.StatusOK, status)
	list := body["friends"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].(map[string]any)["friend_name"])
}

func TestAdminSettings(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	player := f.signup("alice")

	_, err := f.auth.RegisterAdmin(context.Background(), "root", "root@example.com", "secret123")
	require.NoError(t, err)
	status, body := f.do(http.MethodPost, "/api/login", "", map[string]string{"username": "root", "password": "secret123"})
	require.Equal(t, http.StatusOK, status)
	admin := body["token"].(string)

	status, body = f.do(http.MethodGet, "/api/settings", player, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeForbidden, errorCode(body))

	status, body = f.do(http.MethodGet, "/api/settings", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["settings"], len(game.SettingKeys))

	status, _ = f.do(http.MethodPut, "/api/settings/"+game.SettingStartingMoney, admin, map[string]string{"value": "-5"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(http.MethodPut, "/api/settings/nonsense", admin, map[string]string{"value": "5"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(http.MethodPut, "/api/settings/"+game.SettingStartingMoney, admin, map[string]string{"value": "2500"})
	require.Equal(t, http.StatusOK, status)

	status, body = f.do(http.MethodPost, "/api/sessions", player, map[string]string{"mode": "tournament"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(2500), body["session"].(map[string]any)["starting_money"])

	status, _ = f.do(http.MethodPost, "/api/users/alice/ban", admin, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = f.do(http.MethodGet, "/api/me", player, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, body = f.do(http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeForbidden, errorCode(body))
}
