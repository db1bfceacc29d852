package game

import (
	"context"
	"time"
)

// Store is the persistence collaborator for sessions, the per-session save
// slot, round history and the leaderboard.
//
// Lookups that find nothing return ErrSessionNotFound (sessions) or
// ErrNoRoundInFlight (game state). GetUserStatistics returns zero statistics
// for users who have never finished a session. SaveGameState replaces any
// prior state for the session. Atomic runs fn against a Store whose writes
// commit together or not at all.
type Store interface {
	SettingsReader

	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	GetActiveSession(ctx context.Context, userID string) (*Session, error)
	UpdateSession(ctx context.Context, id string, money int64, roundsCompleted int) error
	CompleteSession(ctx context.Context, id string, endedAt time.Time) error
	CountCompletedSessions(ctx context.Context, userID string) (int, error)

	SaveGameState(ctx context.Context, gs *GameState) error
	LoadGameState(ctx context.Context, sessionID string) (*GameState, error)
	DeleteGameState(ctx context.Context, sessionID string) error

	SaveRoundResult(ctx context.Context, r *RoundRecord) error
	ListSessionRounds(ctx context.Context, sessionID string) ([]RoundRecord, error)
	ListUserRounds(ctx context.Context, userID string) ([]RoundRecord, error)

	AddLeaderboardEntry(ctx context.Context, e *LeaderboardEntry) error
	TopLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	ListUserLeaderboard(ctx context.Context, userID string) ([]LeaderboardEntry, error)

	SaveUserStatistics(ctx context.Context, s *UserStatistics) error
	GetUserStatistics(ctx context.Context, userID string) (*UserStatistics, error)

	Atomic(ctx context.Context, fn func(Store) error) error
}
