package game

import (
	"time"

	"github.com/lox/blackjack/blackjack"
)

// Mode is the kind of session being played
type Mode string

const (
	ModeTournament Mode = "tournament"
	ModeFreeplay   Mode = "freeplay"
)

// ParseMode validates a mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTournament, ModeFreeplay:
		return Mode(s), nil
	default:
		return "", invalidf(ErrInvalidMode, "unknown mode %q", s)
	}
}

// Status of a session
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session is one tournament or free-play run owned by a single user.
type Session struct {
	ID              string     `json:"session_id"`
	UserID          string     `json:"user_id"`
	Mode            Mode       `json:"mode"`
	StartingMoney   int64      `json:"starting_money"`
	CurrentMoney    int64      `json:"current_money"`
	MaxRounds       int        `json:"max_rounds,omitempty"` // 0 for freeplay
	RoundsCompleted int        `json:"rounds_completed"`
	Status          Status     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// IsActive reports whether the session can still be played
func (s *Session) IsActive() bool {
	return s.Status == StatusActive
}

// NextRound returns the number of the round that would be played next
func (s *Session) NextRound() int {
	return s.RoundsCompleted + 1
}

// RoundsExhausted reports whether a tournament has played all its rounds
func (s *Session) RoundsExhausted() bool {
	return s.Mode == ModeTournament && s.MaxRounds > 0 && s.RoundsCompleted >= s.MaxRounds
}

// Profit returns current money relative to the starting stake
func (s *Session) Profit() int64 {
	return s.CurrentMoney - s.StartingMoney
}

// Phase is the suspend point recorded in a GameState
type Phase string

const (
	PhaseBetting    Phase = "betting"
	PhasePlayerTurn Phase = "player_turn"
)

// GameState is the single save slot for a session's in-flight round.
type GameState struct {
	SessionID   string               `json:"session_id"`
	RoundNumber int                  `json:"round_number"`
	PlayerHand  []blackjack.CardData `json:"player_hand"`
	DealerHand  []blackjack.CardData `json:"dealer_hand"`
	Deck        []blackjack.CardData `json:"deck"`
	Bet         int64                `json:"current_bet"`
	Phase       Phase                `json:"phase"`
	SavedAt     time.Time            `json:"saved_at"`
}

// Result of a settled round
type Result string

const (
	ResultBlackjack Result = "blackjack"
	ResultWin       Result = "win"
	ResultLoss      Result = "loss"
	ResultPush      Result = "push"
	ResultBust      Result = "bust"
)

// RoundRecord is the append-only history row for a settled round.
type RoundRecord struct {
	ID           string               `json:"round_id"`
	SessionID    string               `json:"session_id"`
	RoundNumber  int                  `json:"round_number"`
	Bet          int64                `json:"bet_amount"`
	PlayerHand   []blackjack.CardData `json:"player_hand"`
	DealerHand   []blackjack.CardData `json:"dealer_hand"`
	PlayerScore  int                  `json:"player_score"`
	DealerScore  int                  `json:"dealer_score"`
	Result       Result               `json:"result"`
	Winnings     int64                `json:"winnings"`
	BalanceAfter int64                `json:"balance_after"`
	PlayedAt     time.Time            `json:"played_at"`
}

// LeaderboardEntry is written once when a scored session completes.
type LeaderboardEntry struct {
	ID              string    `json:"leaderboard_id"`
	UserID          string    `json:"user_id"`
	Username        string    `json:"username,omitempty"`
	SessionID       string    `json:"session_id"`
	FinalMoney      int64     `json:"final_money"`
	RoundsCompleted int       `json:"rounds_completed"`
	Profit          int64     `json:"profit"`
	RecordedAt      time.Time `json:"recorded_at"`
}
