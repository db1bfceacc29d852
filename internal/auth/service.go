package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

// Config controls token signing and password hashing.
type Config struct {
	// Secret signs tokens. When empty a random secret is generated and
	// tokens do not survive a restart.
	Secret []byte
	// TokenTTL defaults to DefaultTokenTTL.
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Clock      quartz.Clock
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Service registers and authenticates users.
type Service struct {
	users  UserStore
	tokens TokenStore
	signer *signer
	cost   int
	clock  quartz.Clock
	logger *log.Logger
}

var _ Validator = (*Service)(nil)

// NewService wires a Service to its stores.
func NewService(users UserStore, tokens TokenStore, cfg Config, logger *log.Logger) (*Service, error) {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	logger = logger.WithPrefix("auth")

	secret := cfg.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		logger.Warn("No token secret configured, using an ephemeral one")
	}

	return &Service{
		users:  users,
		tokens: tokens,
		signer: &signer{secret: secret, ttl: cfg.TokenTTL, clock: cfg.Clock, store: tokens},
		cost:   cfg.BcryptCost,
		clock:  cfg.Clock,
		logger: logger,
	}, nil
}

// Register creates a player account.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	return s.register(ctx, username, email, password, RolePlayer)
}

// RegisterAdmin creates an account with the admin role.
func (s *Service) RegisterAdmin(ctx context.Context, username, email, password string) (*User, error) {
	return s.register(ctx, username, email, password, RoleAdmin)
}

func (s *Service) register(ctx context.Context, username, email, password string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if len(username) < MinUsernameLength {
		return nil, fmt.Errorf("%w: username must be at least %d characters", ErrInvalidInput, MinUsernameLength)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user", u.Username, "role", u.Role)
	return u, nil
}

// Login checks the password and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.Banned {
		return nil, ErrBanned
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.logger.Debug("Password mismatch", "user", u.Username)
		return nil, ErrInvalidCredentials
	}

	now := s.clock.Now()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	u.LastLogin = &now

	token, rec, err := s.signer.issue(ctx, u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "user", u.Username)
	return &Session{Token: token, ExpiresAt: rec.ExpiresAt, User: u}, nil
}

// Validate implements Validator.
func (s *Service) Validate(ctx context.Context, token string) (*Identity, error) {
	c, err := s.signer.parse(ctx, token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetUser(ctx, c.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if u.Banned {
		return nil, ErrBanned
	}

	return &Identity{UserID: u.ID, Username: u.Username, Role: u.Role, TokenID: c.ID}, nil
}

// Logout revokes the token. Logging out with an already revoked token
// returns ErrInvalidToken.
func (s *Service) Logout(ctx context.Context, token string) error {
	c, err := s.signer.parse(ctx, token)
	if err != nil {
		return err
	}
	if err := s.tokens.DeleteToken(ctx, c.ID); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("User logged out", "user", c.Username)
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, u.ID, string(hash))
}

// Ban marks the account banned and revokes its tokens.
func (s *Service) Ban(ctx context.Context, username string) (*User, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetBanned(ctx, u.ID, true); err != nil {
		return nil, err
	}
	if err := s.tokens.DeleteUserTokens(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("revoke tokens: %w", err)
	}
	u.Banned = true

	s.logger.Warn("User banned", "user", u.Username)
	return u, nil
}

// Sweep deletes expired token records and returns how many were removed.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	n, err := s.tokens.DeleteExpiredTokens(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("Swept expired tokens", "count", n)
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done. Sweep failures
// are logged and do not stop the loop.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	err := s.clock.TickerFunc(ctx, interval, func() error {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Token sweep failed", "error", err)
		}
		return nil
	}, "auth", "sweep").Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
