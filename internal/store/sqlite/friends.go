package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/friends"
)

const friendshipColumns = `id, user_id, friend_id, status, created_at, responded_at`

func scanFriendship(row scanner) (*friends.Friendship, error) {
	var (
		f         friends.Friendship
		created   int64
		responded sql.NullInt64
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &created, &responded); err != nil {
		return nil, err
	}
	f.CreatedAt = fromMillis(created)
	f.RespondedAt = fromNullMillis(responded)
	return &f, nil
}

func (s *Store) CreateFriendship(ctx context.Context, f *friends.Friendship) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO friendships (`+friendshipColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.FriendID, f.Status, toMillis(f.CreatedAt), nullMillis(f.RespondedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s -> %s", friends.ErrRequestExists, f.UserID, f.FriendID)
	}
	return err
}

func (s *Store) GetFriendship(ctx context.Context, id string) (*friends.Friendship, error) {
	f, err := scanFriendship(s.q.QueryRowContext(ctx, `SELECT `+friendshipColumns+` FROM friendships WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, friends.ErrRequestNotFound)
	}
	return f, nil
}

func (s *Store) FindFriendship(ctx context.Context, userA, userB string) (*friends.Friendship, error) {
	f, err := scanFriendship(s.q.QueryRowContext(ctx, `SELECT `+friendshipColumns+` FROM friendships
		WHERE (user_id = ?1 AND friend_id = ?2) OR (user_id = ?2 AND friend_id = ?1)
		LIMIT 1`, userA, userB))
	if err != nil {
		return nil, notFound(err, friends.ErrRequestNotFound)
	}
	return f, nil
}

func (s *Store) RespondFriendship(ctx context.Context, id string, status friends.Status, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `UPDATE friendships SET status = ?, responded_at = ? WHERE id = ?`,
		status, toMillis(at), id)
	if err != nil {
		return err
	}
	return rowsAffected(res, friends.ErrRequestNotFound)
}

func (s *Store) ListFriends(ctx context.Context, userID string) ([]friends.Friend, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT f.id, u.id, u.username, COALESCE(f.responded_at, f.created_at)
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user_id = ?1 THEN f.friend_id ELSE f.user_id END
		WHERE f.status = 'accepted' AND (f.user_id = ?1 OR f.friend_id = ?1)
		ORDER BY u.username`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []friends.Friend
	for rows.Next() {
		var (
			fr    friends.Friend
			since int64
		)
		if err := rows.Scan(&fr.FriendshipID, &fr.UserID, &fr.Username, &since); err != nil {
			return nil, err
		}
		fr.Since = fromMillis(since)
		out = append(out, fr)
	}
	return out, rows.Err()
}

func (s *Store) ListPendingRequests(ctx context.Context, userID string) ([]friends.Request, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT f.id, u.id, u.username, f.created_at
		FROM friendships f JOIN users u ON u.id = f.user_id
		WHERE f.friend_id = ? AND f.status = 'pending'
		ORDER BY f.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []friends.Request
	for rows.Next() {
		var (
			r       friends.Request
			created int64
		)
		if err := rows.Scan(&r.FriendshipID, &r.FromUserID, &r.FromUsername, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = fromMillis(created)
		out = append(out, r)
	}
	return out, rows.Err()
}
