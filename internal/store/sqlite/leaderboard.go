package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lox/blackjack/internal/game"
)

func (s *Store) AddLeaderboardEntry(ctx context.Context, e *game.LeaderboardEntry) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO leaderboard
		(id, user_id, session_id, final_money, rounds_completed, profit, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.SessionID, e.FinalMoney, e.RoundsCompleted, e.Profit, toMillis(e.RecordedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("session %s already on the leaderboard: %w", e.SessionID, game.ErrSessionCompleted)
	}
	return err
}

func (s *Store) TopLeaderboard(ctx context.Context, limit int) ([]game.LeaderboardEntry, error) {
	return s.queryLeaderboard(ctx, `SELECT l.id, l.user_id, u.username, l.session_id, l.final_money,
		l.rounds_completed, l.profit, l.recorded_at
		FROM leaderboard l JOIN users u ON u.id = l.user_id
		ORDER BY l.final_money DESC, l.recorded_at ASC
		LIMIT ?`, limit)
}

func (s *Store) ListUserLeaderboard(ctx context.Context, userID string) ([]game.LeaderboardEntry, error) {
	return s.queryLeaderboard(ctx, `SELECT l.id, l.user_id, u.username, l.session_id, l.final_money,
		l.rounds_completed, l.profit, l.recorded_at
		FROM leaderboard l JOIN users u ON u.id = l.user_id
		WHERE l.user_id = ?
		ORDER BY l.final_money DESC, l.recorded_at ASC`, userID)
}

func (s *Store) queryLeaderboard(ctx context.Context, query string, args ...any) ([]game.LeaderboardEntry, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.LeaderboardEntry
	for rows.Next() {
		var (
			e        game.LeaderboardEntry
			recorded int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.SessionID, &e.FinalMoney,
			&e.RoundsCompleted, &e.Profit, &recorded); err != nil {
			return nil, err
		}
		e.RecordedAt = fromMillis(recorded)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SaveUserStatistics(ctx context.Context, st *game.UserStatistics) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO user_statistics
		(user_id, games_played, rounds_played, total_winnings, total_losses, highest_balance,
		 blackjacks, wins, losses, pushes, busts, mean_winnings, stddev_winnings, median_winnings, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			games_played = excluded.games_played,
			rounds_played = excluded.rounds_played,
			total_winnings = excluded.total_winnings,
			total_losses = excluded.total_losses,
			highest_balance = excluded.highest_balance,
			blackjacks = excluded.blackjacks,
			wins = excluded.wins,
			losses = excluded.losses,
			pushes = excluded.pushes,
			busts = excluded.busts,
			mean_winnings = excluded.mean_winnings,
			stddev_winnings = excluded.stddev_winnings,
			median_winnings = excluded.median_winnings,
			updated_at = excluded.updated_at`,
		st.UserID, st.GamesPlayed, st.RoundsPlayed, st.TotalWinnings, st.TotalLosses, st.HighestBalance,
		st.Blackjacks, st.Wins, st.Losses, st.Pushes, st.Busts,
		st.MeanWinnings, st.StdDevWinnings, st.MedianWinnings, toMillis(st.UpdatedAt))
	return err
}

func (s *Store) GetUserStatistics(ctx context.Context, userID string) (*game.UserStatistics, error) {
	var (
		st      = game.UserStatistics{UserID: userID}
		updated int64
	)
	err := s.q.QueryRowContext(ctx, `SELECT games_played, rounds_played, total_winnings, total_losses,
		highest_balance, blackjacks, wins, losses, pushes, busts,
		mean_winnings, stddev_winnings, median_winnings, updated_at
		FROM user_statistics WHERE user_id = ?`, userID).
		Scan(&st.GamesPlayed, &st.RoundsPlayed, &st.TotalWinnings, &st.TotalLosses,
			&st.HighestBalance, &st.Blackjacks, &st.Wins, &st.Losses, &st.Pushes, &st.Busts,
			&st.MeanWinnings, &st.StdDevWinnings, &st.MedianWinnings, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return &game.UserStatistics{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	st.UpdatedAt = fromMillis(updated)
	return &st, nil
}
