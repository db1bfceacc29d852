package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/game"
)

// Setting is a stored game setting row.
type Setting struct {
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
}

func (s *Store) GetGameSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.q.QueryRowContext(ctx, `SELECT setting_value FROM game_settings WHERE setting_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// ListGameSettings returns every stored setting ordered by key.
func (s *Store) ListGameSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT setting_key, setting_value, updated_at, updated_by
		FROM game_settings ORDER BY setting_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var (
			st      Setting
			updated int64
			by      sql.NullString
		)
		if err := rows.Scan(&st.Key, &st.Value, &updated, &by); err != nil {
			return nil, err
		}
		if updated > 0 {
			t := fromMillis(updated)
			st.UpdatedAt = &t
		}
		st.UpdatedBy = by.String
		out = append(out, st)
	}
	return out, rows.Err()
}

// SetGameSetting validates and stores a setting. Sessions already in
// progress keep the starting money and round count they began with.
func (s *Store) SetGameSetting(ctx context.Context, key, value, updatedBy string, at time.Time) error {
	if err := game.ValidateSetting(key, value); err != nil {
		return err
	}
	by := sql.NullString{String: updatedBy, Valid: updatedBy != ""}
	_, err := s.q.ExecContext(ctx, `INSERT INTO game_settings (setting_key, setting_value, updated_at, updated_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (setting_key) DO UPDATE SET
			setting_value = excluded.setting_value,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`,
		key, value, toMillis(at), by)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.logger.Info("Game setting updated", "key", key, "value", value, "by", updatedBy)
	return nil
}
