package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/auth"
)

const userColumns = `id, username, email, password_hash, role, is_banned, created_at, last_login`

func scanUser(row scanner) (*auth.User, error) {
	var (
		u         auth.User
		created   int64
		lastLogin sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Banned,
		&created, &lastLogin); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(created)
	u.LastLogin = fromNullMillis(lastLogin)
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Banned, toMillis(u.CreatedAt), nullMillis(u.LastLogin))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", auth.ErrUsernameTaken, u.Username)
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*auth.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, auth.ErrUserNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return nil, notFound(err, auth.ErrUserNotFound)
	}
	return u, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return err
	}
	return rowsAffected(res, auth.ErrUserNotFound)
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return err
	}
	return rowsAffected(res, auth.ErrUserNotFound)
}

func (s *Store) SetBanned(ctx context.Context, id string, banned bool) error {
	res, err := s.q.ExecContext(ctx, `UPDATE users SET is_banned = ? WHERE id = ?`, banned, id)
	if err != nil {
		return err
	}
	return rowsAffected(res, auth.ErrUserNotFound)
}

func (s *Store) SaveToken(ctx context.Context, t *auth.Token) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO auth_tokens (id, user_id, issued_at, expires_at)
		VALUES (?, ?, ?, ?)`, t.ID, t.UserID, toMillis(t.IssuedAt), toMillis(t.ExpiresAt))
	return err
}

func (s *Store) GetToken(ctx context.Context, id string) (*auth.Token, error) {
	var (
		t               auth.Token
		issued, expires int64
	)
	err := s.q.QueryRowContext(ctx, `SELECT id, user_id, issued_at, expires_at FROM auth_tokens WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &issued, &expires)
	if err != nil {
		return nil, notFound(err, auth.ErrInvalidToken)
	}
	t.IssuedAt = fromMillis(issued)
	t.ExpiresAt = fromMillis(expires)
	return &t, nil
}

func (s *Store) DeleteToken(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM auth_tokens WHERE id = ?`, id)
	return err
}

func (s *Store) DeleteUserTokens(ctx context.Context, userID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM auth_tokens WHERE user_id = ?`, userID)
	return err
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM auth_tokens WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
