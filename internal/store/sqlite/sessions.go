package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/game"
)

const sessionColumns = `id, user_id, mode, starting_money, current_money, max_rounds,
	rounds_completed, status, started_at, ended_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*game.Session, error) {
	var (
		s       game.Session
		started int64
		ended   sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Mode, &s.StartingMoney, &s.CurrentMoney, &s.MaxRounds,
		&s.RoundsCompleted, &s.Status, &started, &ended); err != nil {
		return nil, err
	}
	s.StartedAt = fromMillis(started)
	s.EndedAt = fromNullMillis(ended)
	return &s, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *game.Session) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO game_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Mode, sess.StartingMoney, sess.CurrentMoney, sess.MaxRounds,
		sess.RoundsCompleted, sess.Status, toMillis(sess.StartedAt), nullMillis(sess.EndedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user %s", game.ErrActiveSession, sess.UserID)
	}
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*game.Session, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, notFound(err, game.ErrSessionNotFound)
	}
	return sess, nil
}

func (s *Store) GetActiveSession(ctx context.Context, userID string) (*game.Session, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM game_sessions
		WHERE user_id = ? AND status = 'active'`, userID)
	sess, err := scanSession(row)
	if err != nil {
		return nil, notFound(err, game.ErrSessionNotFound)
	}
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, id string, money int64, roundsCompleted int) error {
	res, err := s.q.ExecContext(ctx, `UPDATE game_sessions SET current_money = ?, rounds_completed = ?
		WHERE id = ?`, money, roundsCompleted, id)
	if err != nil {
		return err
	}
	return rowsAffected(res, game.ErrSessionNotFound)
}

func (s *Store) CompleteSession(ctx context.Context, id string, endedAt time.Time) error {
	res, err := s.q.ExecContext(ctx, `UPDATE game_sessions SET status = 'completed', ended_at = ?
		WHERE id = ?`, toMillis(endedAt), id)
	if err != nil {
		return err
	}
	return rowsAffected(res, game.ErrSessionNotFound)
}

func (s *Store) CountCompletedSessions(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_sessions
		WHERE user_id = ? AND status = 'completed'`, userID).Scan(&n)
	return n, err
}

func (s *Store) SaveGameState(ctx context.Context, gs *game.GameState) error {
	player, err := marshalJSON(gs.PlayerHand)
	if err != nil {
		return fmt.Errorf("encode player hand: %w", err)
	}
	dealer, err := marshalJSON(gs.DealerHand)
	if err != nil {
		return fmt.Errorf("encode dealer hand: %w", err)
	}
	deck, err := marshalJSON(gs.Deck)
	if err != nil {
		return fmt.Errorf("encode deck: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `INSERT INTO game_states
		(session_id, round_number, player_hand, dealer_hand, deck, current_bet, phase, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			round_number = excluded.round_number,
			player_hand = excluded.player_hand,
			dealer_hand = excluded.dealer_hand,
			deck = excluded.deck,
			current_bet = excluded.current_bet,
			phase = excluded.phase,
			saved_at = excluded.saved_at`,
		gs.SessionID, gs.RoundNumber, player, dealer, deck, gs.Bet, gs.Phase, toMillis(gs.SavedAt))
	return err
}

func (s *Store) LoadGameState(ctx context.Context, sessionID string) (*game.GameState, error) {
	var (
		gs                   game.GameState
		player, dealer, deck string
		saved                int64
	)
	err := s.q.QueryRowContext(ctx, `SELECT session_id, round_number, player_hand, dealer_hand, deck,
		current_bet, phase, saved_at FROM game_states WHERE session_id = ?`, sessionID).
		Scan(&gs.SessionID, &gs.RoundNumber, &player, &dealer, &deck, &gs.Bet, &gs.Phase, &saved)
	if err != nil {
		return nil, notFound(err, game.ErrNoRoundInFlight)
	}

	if err := json.Unmarshal([]byte(player), &gs.PlayerHand); err != nil {
		return nil, fmt.Errorf("decode player hand: %w", err)
	}
	if err := json.Unmarshal([]byte(dealer), &gs.DealerHand); err != nil {
		return nil, fmt.Errorf("decode dealer hand: %w", err)
	}
	if err := json.Unmarshal([]byte(deck), &gs.Deck); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	gs.SavedAt = fromMillis(saved)
	return &gs, nil
}

func (s *Store) DeleteGameState(ctx context.Context, sessionID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM game_states WHERE session_id = ?`, sessionID)
	return err
}

const roundColumns = `r.id, r.session_id, r.round_number, r.bet_amount, r.player_hand, r.dealer_hand,
	r.player_score, r.dealer_score, r.result, r.winnings, r.balance_after, r.played_at`

func (s *Store) SaveRoundResult(ctx context.Context, r *game.RoundRecord) error {
	player, err := marshalJSON(r.PlayerHand)
	if err != nil {
		return fmt.Errorf("encode player hand: %w", err)
	}
	dealer, err := marshalJSON(r.DealerHand)
	if err != nil {
		return fmt.Errorf("encode dealer hand: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `INSERT INTO game_rounds
		(id, session_id, round_number, bet_amount, player_hand, dealer_hand,
		 player_score, dealer_score, result, winnings, balance_after, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.RoundNumber, r.Bet, player, dealer,
		r.PlayerScore, r.DealerScore, r.Result, r.Winnings, r.BalanceAfter, toMillis(r.PlayedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("round %d of session %s already recorded: %w", r.RoundNumber, r.SessionID, game.ErrRoundSettled)
	}
	return err
}

func (s *Store) ListSessionRounds(ctx context.Context, sessionID string) ([]game.RoundRecord, error) {
	return s.queryRounds(ctx, `SELECT `+roundColumns+` FROM game_rounds r
		WHERE r.session_id = ? ORDER BY r.round_number`, sessionID)
}

func (s *Store) ListUserRounds(ctx context.Context, userID string) ([]game.RoundRecord, error) {
	return s.queryRounds(ctx, `SELECT `+roundColumns+` FROM game_rounds r
		JOIN game_sessions gs ON gs.id = r.session_id
		WHERE gs.user_id = ? ORDER BY r.played_at, r.round_number`, userID)
}

func (s *Store) queryRounds(ctx context.Context, query string, args ...any) ([]game.RoundRecord, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.RoundRecord
	for rows.Next() {
		var (
			r              game.RoundRecord
			player, dealer string
			played         int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.RoundNumber, &r.Bet, &player, &dealer,
			&r.PlayerScore, &r.DealerScore, &r.Result, &r.Winnings, &r.BalanceAfter, &played); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(player), &r.PlayerHand); err != nil {
			return nil, fmt.Errorf("decode round %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(dealer), &r.DealerHand); err != nil {
			return nil, fmt.Errorf("decode round %s: %w", r.ID, err)
		}
		r.PlayedAt = fromMillis(played)
		out = append(out, r)
	}
	return out, rows.Err()
}
