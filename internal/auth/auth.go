// Package auth registers players, checks their passwords and issues the
// bearer tokens the REST API accepts.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidToken indicates the token is malformed, expired or revoked.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrInvalidCredentials is returned for an unknown user or a wrong
	// password. The two are not distinguished.
	ErrInvalidCredentials = errors.New("auth: invalid username or password")

	// ErrBanned indicates the account exists but may not log in.
	ErrBanned = errors.New("auth: account banned")

	// ErrUsernameTaken is returned by Register and by UserStore.CreateUser.
	ErrUsernameTaken = errors.New("auth: username already exists")

	// ErrUserNotFound is returned by UserStore lookups.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrInvalidInput wraps registration and password-change validation
	// failures.
	ErrInvalidInput = errors.New("auth: invalid input")
)

// Role is a user's privilege level.
type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// Identity represents an authenticated user.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	TokenID  string `json:"-"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Validator validates authentication tokens.
type Validator interface {
	// Validate checks if a token is valid and returns the user identity.
	// Returns:
	//   - (*Identity, nil) if token is valid
	//   - (nil, ErrInvalidToken) if token is malformed, expired or revoked
	//   - (nil, ErrBanned) if the user was banned after the token was issued
	//   - (nil, err) for storage failures
	Validate(ctx context.Context, token string) (*Identity, error)
}

// User is a registered account.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Banned       bool       `json:"banned"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// UserStore persists accounts. Lookups of a missing user return
// ErrUserNotFound; CreateUser returns ErrUsernameTaken on a duplicate.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetBanned(ctx context.Context, id string, banned bool) error
}
