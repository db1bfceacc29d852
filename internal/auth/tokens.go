package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

const tokenIssuer = "blackjack"

// Token is the server-side record of an issued bearer token. A token whose
// record is missing has been revoked.
type Token struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is no longer valid at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenStore keeps the records of outstanding tokens. GetToken returns
// ErrInvalidToken when no record exists.
type TokenStore interface {
	SaveToken(ctx context.Context, t *Token) error
	GetToken(ctx context.Context, id string) (*Token, error)
	DeleteToken(ctx context.Context, id string) error
	DeleteUserTokens(ctx context.Context, userID string) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}

type claims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// signer issues and parses HS256 tokens against a TokenStore.
type signer struct {
	secret []byte
	ttl    time.Duration
	clock  quartz.Clock
	store  TokenStore
}

func (s *signer) issue(ctx context.Context, u *User) (string, *Token, error) {
	now := s.clock.Now()
	rec := &Token{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        rec.ID,
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(rec.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.store.SaveToken(ctx, rec); err != nil {
		return "", nil, fmt.Errorf("save token: %w", err)
	}
	return signed, rec, nil
}

// parse verifies the signature and expiry, then checks the token has not
// been revoked.
func (s *signer) parse(ctx context.Context, raw string) (*claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	rec, err := s.store.GetToken(ctx, parsed.ID)
	if err != nil {
		return nil, err
	}
	if rec.Expired(s.clock.Now()) || rec.UserID != parsed.Subject {
		return nil, ErrInvalidToken
	}
	return &parsed, nil
}

// MemoryTokenStore is a TokenStore held in process memory. Tokens do not
// survive a restart.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]Token
}

// NewMemoryTokenStore returns an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]Token)}
}

func (m *MemoryTokenStore) SaveToken(_ context.Context, t *Token) error {
	if t == nil || t.ID == "" {
		return errors.New("token id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.ID] = *t
	return nil
}

func (m *MemoryTokenStore) GetToken(_ context.Context, id string) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &t, nil
}

func (m *MemoryTokenStore) DeleteToken(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

func (m *MemoryTokenStore) DeleteUserTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *MemoryTokenStore) DeleteExpiredTokens(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, t := range m.tokens {
		if t.Expired(now) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of outstanding tokens.
func (m *MemoryTokenStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}
