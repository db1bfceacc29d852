package game

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/blackjack/blackjack"
)

// Reasons a session completes
const (
	ReasonBroke          = "broke"
	ReasonRoundsComplete = "rounds_complete"
	ReasonQuit           = "quit"
	ReasonAbandoned      = "abandoned"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// Completion describes how a session ended
type Completion struct {
	Reason string            `json:"reason"`
	Entry  *LeaderboardEntry `json:"leaderboard_entry,omitempty"`
}

// Turn is the result of one step-wise call: the session after the call, the
// round as the player sees it and, once settled, the outcome.
type Turn struct {
	Session    Session      `json:"session"`
	Round      *RoundView   `json:"round,omitempty"`
	Outcome    *RoundRecord `json:"outcome,omitempty"`
	Paused     bool         `json:"paused"`
	Completion *Completion  `json:"completion,omitempty"`
}

// Option configures a Service
type Option func(*Service)

// WithClock sets the clock used for timestamps
func WithClock(clock quartz.Clock) Option {
	return func(s *Service) { s.eng.clock = clock }
}

// WithRand shuffles every round's deck from rng
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.eng.newDeck = shuffledDecks(rng) }
}

// WithDeckFactory replaces deck creation entirely
func WithDeckFactory(f func() *blackjack.Deck) Option {
	return func(s *Service) { s.eng.newDeck = f }
}

// WithEventSink publishes round and session events to sink
func WithEventSink(sink EventSink) Option {
	return func(s *Service) { s.eng.sink = sink }
}

// Service sequences rounds into tournament and free-play sessions. Calls for
// the same session are serialised.
type Service struct {
	eng      engine
	logger   *log.Logger
	sessions keyedMutex
	users    keyedMutex
}

// NewService creates a session service backed by store
func NewService(store Store, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		eng: engine{
			store:   store,
			clock:   quartz.NewReal(),
			newDeck: shuffledDecks(nil),
			sink:    nopSink{},
			logger:  logger.WithPrefix("round"),
		},
		logger: logger.WithPrefix("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func shuffledDecks(rng *rand.Rand) func() *blackjack.Deck {
	var mu sync.Mutex
	return func() *blackjack.Deck {
		mu.Lock()
		defer mu.Unlock()
		return blackjack.NewShuffledDeck(rng)
	}
}

// Settings returns the current game settings
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return LoadSettings(ctx, s.eng.store)
}

// StartTournament starts a fixed-length scored session
func (s *Service) StartTournament(ctx context.Context, userID string) (*Session, error) {
	return s.Start(ctx, userID, ModeTournament)
}

// StartFreeplay starts an open-ended session
func (s *Service) StartFreeplay(ctx context.Context, userID string) (*Session, error) {
	return s.Start(ctx, userID, ModeFreeplay)
}

// Start creates a new session. A user with an active session must resume or
// abandon it first.
func (s *Service) Start(ctx context.Context, userID string, mode Mode) (*Session, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	unlock := s.users.Lock(userID)
	defer unlock()

	active, err := s.eng.store.GetActiveSession(ctx, userID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrActiveSession, active.ID)
	case !errors.Is(err, ErrSessionNotFound):
		return nil, fmt.Errorf("check active session: %w", err)
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		Mode:          mode,
		StartingMoney: settings.StartingMoney,
		CurrentMoney:  settings.StartingMoney,
		Status:        StatusActive,
		StartedAt:     s.eng.clock.Now().UTC(),
	}
	if mode == ModeTournament {
		sess.MaxRounds = settings.TournamentRounds
	}

	if err := s.eng.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("Session started", "session", sess.ID, "user", userID, "mode", mode, "money", sess.StartingMoney)
	return sess, nil
}

// ActiveSession returns the user's active session and, when a round is
// suspended, its view. Nothing is modified.
func (s *Service) ActiveSession(ctx context.Context, userID string) (*Turn, error) {
	sess, err := s.eng.store.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	turn := &Turn{Session: *sess}

	gs, err := s.eng.store.LoadGameState(ctx, sess.ID)
	switch {
	case errors.Is(err, ErrNoRoundInFlight):
		return turn, nil
	case err != nil:
		return nil, fmt.Errorf("load game state: %w", err)
	}

	turn.Paused = true
	if gs.Phase == PhasePlayerTurn {
		settings, err := s.Settings(ctx)
		if err != nil {
			return nil, err
		}
		r, err := s.eng.resumeRound(sess, settings, gs)
		if err != nil {
			return nil, err
		}
		v := r.View()
		turn.Round = &v
	}
	return turn, nil
}

// ResumeActiveSession picks the user's session back up. A snapshot taken at
// the bet prompt is discarded so the round restarts; a player-turn snapshot
// is rebuilt exactly. Returns ErrNothingToResume when there is no active
// session or nothing suspended.
func (s *Service) ResumeActiveSession(ctx context.Context, userID string) (*Turn, error) {
	sess, err := s.eng.store.GetActiveSession(ctx, userID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return nil, ErrNothingToResume
	case err != nil:
		return nil, fmt.Errorf("active session: %w", err)
	}

	return s.withSession(ctx, userID, sess.ID, func(sess *Session) (*Turn, error) {
		if _, err := s.eng.store.LoadGameState(ctx, sess.ID); err != nil {
			if errors.Is(err, ErrNoRoundInFlight) {
				return nil, ErrNothingToResume
			}
			return nil, fmt.Errorf("load game state: %w", err)
		}

		settings, err := s.Settings(ctx)
		if err != nil {
			return nil, err
		}
		r, err := s.pendingRound(ctx, sess, settings)
		if err != nil {
			return nil, err
		}
		if r == nil {
			s.logger.Info("Resumed at bet prompt", "session", sess.ID, "round", sess.NextRound())
			return &Turn{Session: *sess}, nil
		}
		s.logger.Info("Resumed mid-round", "session", sess.ID, "round", r.Number())
		return s.advance(ctx, sess, r)
	})
}

// PlaceBet opens the next round with bet and deals it.
func (s *Service) PlaceBet(ctx context.Context, userID, sessionID string, bet int64) (*Turn, error) {
	return s.withSession(ctx, userID, sessionID, func(sess *Session) (*Turn, error) {
		gs, err := s.eng.store.LoadGameState(ctx, sess.ID)
		switch {
		case err == nil && gs.Phase == PhasePlayerTurn:
			return nil, ErrRoundInProgress
		case err != nil && !errors.Is(err, ErrNoRoundInFlight):
			return nil, fmt.Errorf("load game state: %w", err)
		}

		c, err := s.terminal(ctx, sess)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return &Turn{Session: *sess, Completion: c}, nil
		}

		settings, err := s.Settings(ctx)
		if err != nil {
			return nil, err
		}
		r := s.eng.newRound(sess, settings)
		if err := r.validateBet(bet); err != nil {
			return nil, err
		}
		r.start()
		if err := r.PlaceBet(ctx, bet); err != nil {
			return nil, err
		}
		return s.advance(ctx, sess, r)
	})
}

// Hit draws a card for the player in the suspended round
func (s *Service) Hit(ctx context.Context, userID, sessionID string) (*Turn, error) {
	return s.act(ctx, userID, sessionID, (*Round).Hit)
}

// Stand ends the player's turn in the suspended round
func (s *Service) Stand(ctx context.Context, userID, sessionID string) (*Turn, error) {
	return s.act(ctx, userID, sessionID, (*Round).Stand)
}

func (s *Service) act(ctx context.Context, userID, sessionID string, action func(*Round, context.Context) error) (*Turn, error) {
	return s.withSession(ctx, userID, sessionID, func(sess *Session) (*Turn, error) {
		settings, err := s.Settings(ctx)
		if err != nil {
			return nil, err
		}
		r, err := s.pendingRound(ctx, sess, settings)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, ErrNoRoundInFlight
		}
		if r.State() == StatePlayerTurn {
			if err := action(r, ctx); err != nil {
				return nil, err
			}
		}
		return s.advance(ctx, sess, r)
	})
}

// Save suspends the session. Mid-round the hands and deck are kept; between
// rounds the next round is saved at its bet prompt.
func (s *Service) Save(ctx context.Context, userID, sessionID string) (*Turn, error) {
	return s.withSession(ctx, userID, sessionID, func(sess *Session) (*Turn, error) {
		settings, err := s.Settings(ctx)
		if err != nil {
			return nil, err
		}
		r, err := s.pendingRound(ctx, sess, settings)
		if err != nil {
			return nil, err
		}
		if r != nil && r.State() == StateSettled {
			return s.advance(ctx, sess, r)
		}
		if r == nil {
			r = s.eng.newRound(sess, settings)
		}
		if err := r.Save(ctx); err != nil {
			return nil, err
		}
		v := r.View()
		return &Turn{Session: *sess, Round: &v, Paused: true}, nil
	})
}

// Quit ends a free-play session between rounds and records it on the
// leaderboard.
func (s *Service) Quit(ctx context.Context, userID, sessionID string) (*Turn, error) {
	return s.withSession(ctx, userID, sessionID, func(sess *Session) (*Turn, error) {
		if sess.Mode != ModeFreeplay {
			return nil, invalidf(ErrInvalidAction, "only free-play sessions can be quit")
		}
		gs, err := s.eng.store.LoadGameState(ctx, sess.ID)
		switch {
		case err == nil && gs.Phase == PhasePlayerTurn:
			return nil, ErrRoundInProgress
		case err != nil && !errors.Is(err, ErrNoRoundInFlight):
			return nil, fmt.Errorf("load game state: %w", err)
		}

		c, err := s.finish(ctx, sess, ReasonQuit, true)
		if err != nil {
			return nil, err
		}
		return &Turn{Session: *sess, Completion: c}, nil
	})
}

// Abandon completes the user's active session without scoring it so a new
// one can start.
func (s *Service) Abandon(ctx context.Context, userID string) (*Session, error) {
	active, err := s.eng.store.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	turn, err := s.withSession(ctx, userID, active.ID, func(sess *Session) (*Turn, error) {
		c, err := s.finish(ctx, sess, ReasonAbandoned, false)
		return &Turn{Session: *sess, Completion: c}, err
	})
	if err != nil {
		return nil, err
	}
	return &turn.Session, nil
}

// Session returns one of the user's sessions
func (s *Service) Session(ctx context.Context, userID, sessionID string) (*Session, error) {
	sess, err := s.eng.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// SessionRounds returns the settled rounds of one of the user's sessions
func (s *Service) SessionRounds(ctx context.Context, userID, sessionID string) ([]RoundRecord, error) {
	if _, err := s.Session(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	rounds, err := s.eng.store.ListSessionRounds(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	return rounds, nil
}

// Leaderboard returns the best completed sessions by final money
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, MaxLeaderboardLimit)
	entries, err := s.eng.store.TopLeaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}

// UserLeaderboard returns every scored session of the user, best first
func (s *Service) UserLeaderboard(ctx context.Context, userID string) ([]LeaderboardEntry, error) {
	entries, err := s.eng.store.ListUserLeaderboard(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user leaderboard: %w", err)
	}
	return entries, nil
}

// Statistics returns the user's aggregate statistics
func (s *Service) Statistics(ctx context.Context, userID string) (*UserStatistics, error) {
	st, err := s.eng.store.GetUserStatistics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	return st, nil
}

// withSession runs fn under the session lock against the user's active
// session.
func (s *Service) withSession(ctx context.Context, userID, sessionID string, fn func(*Session) (*Turn, error)) (*Turn, error) {
	unlock := s.sessions.Lock(sessionID)
	defer unlock()

	sess, err := s.Session(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive() {
		return nil, ErrSessionCompleted
	}
	return fn(sess)
}

// pendingRound returns the suspended round for sess, or nil when the session
// is between rounds. A bet-prompt snapshot is discarded.
func (s *Service) pendingRound(ctx context.Context, sess *Session, settings Settings) (*Round, error) {
	gs, err := s.eng.store.LoadGameState(ctx, sess.ID)
	switch {
	case errors.Is(err, ErrNoRoundInFlight):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load game state: %w", err)
	}

	if gs.Phase == PhaseBetting {
		if err := s.eng.store.DeleteGameState(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("discard betting state: %w", err)
		}
		return nil, nil
	}

	r, err := s.eng.resumeRound(sess, settings, gs)
	if err != nil {
		return nil, err
	}
	if err := r.finishInterrupted(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// advance builds the Turn for r, completing the session when the round left
// it in a terminal state.
func (s *Service) advance(ctx context.Context, sess *Session, r *Round) (*Turn, error) {
	v := r.View()
	turn := &Turn{Round: &v}
	if r.State() == StateSettled {
		turn.Outcome = r.Outcome()
		c, err := s.terminal(ctx, sess)
		if err != nil {
			return nil, err
		}
		turn.Completion = c
	}
	turn.Session = *sess
	return turn, nil
}

// terminal applies the end-of-round rules: broke sessions complete unscored
// and finished tournaments complete scored.
func (s *Service) terminal(ctx context.Context, sess *Session) (*Completion, error) {
	switch {
	case sess.CurrentMoney <= 0:
		return s.finish(ctx, sess, ReasonBroke, false)
	case sess.RoundsExhausted():
		return s.finish(ctx, sess, ReasonRoundsComplete, true)
	}
	return nil, nil
}

func (s *Service) finish(ctx context.Context, sess *Session, reason string, scored bool) (*Completion, error) {
	now := s.eng.clock.Now().UTC()
	c := &Completion{Reason: reason}
	if scored {
		c.Entry = &LeaderboardEntry{
			ID:              uuid.NewString(),
			UserID:          sess.UserID,
			SessionID:       sess.ID,
			FinalMoney:      sess.CurrentMoney,
			RoundsCompleted: sess.RoundsCompleted,
			Profit:          sess.Profit(),
			RecordedAt:      now,
		}
	}

	err := s.eng.store.Atomic(ctx, func(tx Store) error {
		if err := tx.DeleteGameState(ctx, sess.ID); err != nil {
			return fmt.Errorf("delete game state: %w", err)
		}
		if err := tx.CompleteSession(ctx, sess.ID, now); err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		if c.Entry != nil {
			if err := tx.AddLeaderboardEntry(ctx, c.Entry); err != nil {
				return fmt.Errorf("add leaderboard entry: %w", err)
			}
		}
		return refreshStatistics(ctx, tx, sess.UserID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("finish session %s: %w", sess.ID, err)
	}

	sess.Status = StatusCompleted
	sess.EndedAt = &now

	s.logger.Info("Session completed", "session", sess.ID, "reason", reason, "money", sess.CurrentMoney, "rounds", sess.RoundsCompleted, "scored", scored)
	s.eng.sink.Publish(SessionCompletedEvent{Final: *sess, Reason: reason, Scored: scored, timestamp: now})
	return c, nil
}

func refreshStatistics(ctx context.Context, tx Store, userID string, now time.Time) error {
	rounds, err := tx.ListUserRounds(ctx, userID)
	if err != nil {
		return fmt.Errorf("list user rounds: %w", err)
	}
	games, err := tx.CountCompletedSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	if err := tx.SaveUserStatistics(ctx, ComputeStatistics(userID, rounds, games, now)); err != nil {
		return fmt.Errorf("save statistics: %w", err)
	}
	return nil
}
