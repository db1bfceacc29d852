// Package friends manages friend requests between registered users.
package friends

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/blackjack/internal/auth"
)

var (
	ErrSelfRequest     = errors.New("friends: cannot add yourself")
	ErrRequestExists   = errors.New("friends: request already exists or users are already friends")
	ErrRequestNotFound = errors.New("friends: request not found")
	ErrNotAddressee    = errors.New("friends: not allowed to respond to this request")
	ErrNotPending      = errors.New("friends: request is not pending")
	ErrInvalidResponse = errors.New("friends: response must be accept or reject")
)

// Status of a friendship row
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Friendship is a request from UserID to FriendID.
type Friendship struct {
	ID          string     `json:"friendship_id"`
	UserID      string     `json:"user_id"`
	FriendID    string     `json:"friend_id"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// Friend is an accepted friendship seen from one side.
type Friend struct {
	FriendshipID string    `json:"friendship_id"`
	UserID       string    `json:"friend_id"`
	Username     string    `json:"friend_name"`
	Since        time.Time `json:"since"`
}

// Request is a pending friendship addressed to the viewing user.
type Request struct {
	FriendshipID string    `json:"friendship_id"`
	FromUserID   string    `json:"requester_id"`
	FromUsername string    `json:"requester_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists friendships. GetFriendship and FindFriendship return
// ErrRequestNotFound when nothing matches. FindFriendship matches either
// direction and any status.
type Store interface {
	CreateFriendship(ctx context.Context, f *Friendship) error
	GetFriendship(ctx context.Context, id string) (*Friendship, error)
	FindFriendship(ctx context.Context, userA, userB string) (*Friendship, error)
	RespondFriendship(ctx context.Context, id string, status Status, at time.Time) error
	ListFriends(ctx context.Context, userID string) ([]Friend, error)
	ListPendingRequests(ctx context.Context, userID string) ([]Request, error)
}

// UserLookup resolves usernames to accounts.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*auth.User, error)
}

// Service implements the friend request workflow.
type Service struct {
	store  Store
	users  UserLookup
	clock  quartz.Clock
	logger *log.Logger
}

// NewService creates a Service. A nil clock uses the real clock.
func NewService(store Store, users UserLookup, clock quartz.Clock, logger *log.Logger) *Service {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Service{store: store, users: users, clock: clock, logger: logger.WithPrefix("friends")}
}

// Request sends a friend request from userID to the named user.
func (s *Service) Request(ctx context.Context, userID, username string) (*Friendship, error) {
	target, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if target.ID == userID {
		return nil, ErrSelfRequest
	}

	if _, err := s.store.FindFriendship(ctx, userID, target.ID); err == nil {
		return nil, ErrRequestExists
	} else if !errors.Is(err, ErrRequestNotFound) {
		return nil, err
	}

	f := &Friendship{
		ID:        uuid.NewString(),
		UserID:    userID,
		FriendID:  target.ID,
		Status:    StatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateFriendship(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("Friend request sent", "from", userID, "to", target.Username)
	return f, nil
}

// Respond accepts or rejects a pending request addressed to userID.
func (s *Service) Respond(ctx context.Context, userID, friendshipID, action string) (Status, error) {
	var status Status
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "accept":
		status = StatusAccepted
	case "reject":
		status = StatusRejected
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidResponse, action)
	}

	f, err := s.store.GetFriendship(ctx, friendshipID)
	if err != nil {
		return "", err
	}
	if f.FriendID != userID {
		return "", ErrNotAddressee
	}
	if f.Status != StatusPending {
		return "", ErrNotPending
	}

	if err := s.store.RespondFriendship(ctx, f.ID, status, s.clock.Now()); err != nil {
		return "", err
	}
	s.logger.Info("Friend request answered", "friendship", f.ID, "status", status)
	return status, nil
}

// Friends lists accepted friendships involving userID.
func (s *Service) Friends(ctx context.Context, userID string) ([]Friend, error) {
	return s.store.ListFriends(ctx, userID)
}

// Pending lists requests awaiting userID's answer.
func (s *Service) Pending(ctx context.Context, userID string) ([]Request, error) {
	return s.store.ListPendingRequests(ctx, userID)
}
