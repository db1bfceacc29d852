package game

import (
	"context"
	"io"
	"maps"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack/blackjack"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store. Atomic works on a copy and swaps it in
// only when fn succeeds.
type memStore struct {
	mu   sync.Mutex
	d    *memData
	fail map[string]error
}

type memData struct {
	sessions    map[string]Session
	states      map[string]GameState
	rounds      []RoundRecord
	leaderboard []LeaderboardEntry
	stats       map[string]UserStatistics
	settings    map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		d: &memData{
			sessions: make(map[string]Session),
			states:   make(map[string]GameState),
			stats:    make(map[string]UserStatistics),
			settings: make(map[string]string),
		},
		fail: make(map[string]error),
	}
}

func (d *memData) clone() *memData {
	return &memData{
		sessions:    maps.Clone(d.sessions),
		states:      maps.Clone(d.states),
		rounds:      slices.Clone(d.rounds),
		leaderboard: slices.Clone(d.leaderboard),
		stats:       maps.Clone(d.stats),
		settings:    maps.Clone(d.settings),
	}
}

func (m *memStore) err(op string) error { return m.fail[op] }

func (m *memStore) GetGameSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.d.settings[key]
	return v, ok, m.err("GetGameSetting")
}

func (m *memStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("CreateSession"); err != nil {
		return err
	}
	m.d.sessions[s.ID] = *s
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.d.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *memStore) GetActiveSession(_ context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.d.sessions {
		if s.UserID == userID && s.Status == StatusActive {
			return &s, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (m *memStore) UpdateSession(_ context.Context, id string, money int64, rounds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("UpdateSession"); err != nil {
		return err
	}
	s, ok := m.d.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.CurrentMoney, s.RoundsCompleted = money, rounds
	m.d.sessions[id] = s
	return nil
}

func (m *memStore) CompleteSession(_ context.Context, id string, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.d.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = StatusCompleted
	s.EndedAt = &endedAt
	m.d.sessions[id] = s
	return nil
}

func (m *memStore) CountCompletedSessions(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.d.sessions {
		if s.UserID == userID && s.Status == StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SaveGameState(_ context.Context, gs *GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("SaveGameState"); err != nil {
		return err
	}
	m.d.states[gs.SessionID] = *gs
	return nil
}

func (m *memStore) LoadGameState(_ context.Context, sessionID string) (*GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.d.states[sessionID]
	if !ok {
		return nil, ErrNoRoundInFlight
	}
	return &gs, nil
}

func (m *memStore) DeleteGameState(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.d.states, sessionID)
	return nil
}

func (m *memStore) SaveRoundResult(_ context.Context, r *RoundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err("SaveRoundResult"); err != nil {
		return err
	}
	m.d.rounds = append(m.d.rounds, *r)
	return nil
}

func (m *memStore) ListSessionRounds(_ context.Context, sessionID string) ([]RoundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RoundRecord
	for _, r := range m.d.rounds {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListUserRounds(_ context.Context, userID string) ([]RoundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RoundRecord
	for _, r := range m.d.rounds {
		if m.d.sessions[r.SessionID].UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) AddLeaderboardEntry(_ context.Context, e *LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.leaderboard = append(m.d.leaderboard, *e)
	return nil
}

func (m *memStore) TopLeaderboard(_ context.Context, limit int) ([]LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.d.leaderboard)
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalMoney > out[j].FinalMoney })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListUserLeaderboard(_ context.Context, userID string) ([]LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LeaderboardEntry
	for _, e := range m.d.leaderboard {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalMoney > out[j].FinalMoney })
	return out, nil
}

func (m *memStore) SaveUserStatistics(_ context.Context, s *UserStatistics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.stats[s.UserID] = *s
	return nil
}

func (m *memStore) GetUserStatistics(_ context.Context, userID string) (*UserStatistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.d.stats[userID]
	if !ok {
		return &UserStatistics{UserID: userID}, nil
	}
	return &s, nil
}

func (m *memStore) Atomic(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	tx := &memStore{d: m.d.clone(), fail: m.fail}
	m.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	m.d = tx.d
	m.mu.Unlock()
	return nil
}

func (m *memStore) snapshot() *memData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.clone()
}

// stackedDeck returns a deck that deals top in order, followed by the rest of
// a canonical deck from the Ace of Spades down.
func stackedDeck(t *testing.T, top ...blackjack.Card) *blackjack.Deck {
	t.Helper()
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

	deck, err := blackjack.DeckFromSnapshot(data, nil)
	require.NoError(t, err)
	return deck
}

// stackedDecks hands out one stacked deck per round.
func stackedDecks(t *testing.T, rounds ...[]blackjack.Card) func() *blackjack.Deck {
	t.Helper()
	i := 0
	return func() *blackjack.Deck {
		require.Less(t, i, len(rounds), "no stacked deck left for round %d", i+1)
		d := stackedDeck(t, rounds[i]...)
		i++
		return d
	}
}

func card(r blackjack.Rank, s blackjack.Suit) blackjack.Card {
	return blackjack.NewCard(r, s)
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func newTestService(t *testing.T, store *memStore, decks func() *blackjack.Deck, opts ...Option) (*Service, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	opts = append([]Option{
		WithClock(quartz.NewMock(t)),
		WithDeckFactory(decks),
		WithEventSink(sink),
	}, opts...)
	return NewService(store, testLogger(), opts...), sink
}

// scriptPrompter answers prompts from a fixed script and reports
// ErrInterrupted once the script runs out.
type scriptPrompter struct {
	answers []string
	prompts []Prompt
}

func (s *scriptPrompter) Prompt(_ context.Context, p Prompt) (string, error) {
	s.prompts = append(s.prompts, p)
	if len(s.answers) == 0 {
		return "", ErrInterrupted
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}
