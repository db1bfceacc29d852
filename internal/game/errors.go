package game

import (
	"errors"
	"fmt"

	"github.com/lox/blackjack/blackjack"
)

// Validation errors are recovered by re-prompting or rejecting the request.
// They never mutate state.
var (
	ErrInvalidBet    = errors.New("game: invalid bet")
	ErrInvalidAction = errors.New("game: invalid action")
	ErrInvalidMode   = errors.New("game: invalid mode")
)

// Not-found errors.
var (
	ErrNothingToResume = errors.New("game: nothing to resume")
	ErrSessionNotFound = errors.New("game: session not found")
	ErrNoRoundInFlight = errors.New("game: no round in flight")
)

// Precondition violations indicate the state machine was driven out of order.
var (
	ErrDeckExhausted    = blackjack.ErrDeckExhausted
	ErrRoundSettled     = errors.New("game: round already settled")
	ErrRoundClosed      = errors.New("game: round saved and closed")
	ErrRoundInProgress  = errors.New("game: round in progress")
	ErrSessionCompleted = errors.New("game: session completed")
	ErrActiveSession    = errors.New("game: user already has an active session")
)

// ErrInterrupted is returned by a Prompter when the player closed input or
// pressed Ctrl-C. Play saves the round and pauses the session.
var ErrInterrupted = errors.New("game: interrupted")

// Kind groups errors for callers that map them onto responses.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Classify returns the Kind of err. Unknown errors, including storage
// failures and deck exhaustion, are internal.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidBet),
		errors.Is(err, ErrInvalidAction),
		errors.Is(err, ErrInvalidMode):
		return KindValidation
	case errors.Is(err, ErrNothingToResume),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrNoRoundInFlight):
		return KindNotFound
	case errors.Is(err, ErrRoundSettled),
		errors.Is(err, ErrRoundClosed),
		errors.Is(err, ErrRoundInProgress),
		errors.Is(err, ErrSessionCompleted),
		errors.Is(err, ErrActiveSession):
		return KindConflict
	default:
		return KindInternal
	}
}

func invalidf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
