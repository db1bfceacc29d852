package game

import (
	"time"

	"github.com/lox/blackjack/blackjack"
)

// EventType represents a game event type with type safety
type EventType string

// EventType constants for round and session events
const (
	EventTypeRoundStarted     EventType = "round_started"
	EventTypeCardsDealt       EventType = "cards_dealt"
	EventTypePlayerHit        EventType = "player_hit"
	EventTypeDealerDrew       EventType = "dealer_drew"
	EventTypeRoundSettled     EventType = "round_settled"
	EventTypeRoundSaved       EventType = "round_saved"
	EventTypeSessionCompleted EventType = "session_completed"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is anything published while a session is played
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	Session() string
}

// EventSink receives events. Publish must not block the round.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to an EventSink
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(e Event) { f(e) }

// MultiSink fans events out to several sinks
type MultiSink []EventSink

func (m MultiSink) Publish(e Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(e)
		}
	}
}

type nopSink struct{}

func (nopSink) Publish(Event) {}

// RoundView is what a player or spectator may see of a round. The dealer's
// hole card is withheld until the player's turn is over.
type RoundView struct {
	SessionID     string               `json:"session_id"`
	RoundNumber   int                  `json:"round_number"`
	State         State                `json:"state"`
	Bet           int64                `json:"bet"`
	Money         int64                `json:"money"`
	PlayerCards   []blackjack.CardData `json:"player_cards"`
	PlayerValue   int                  `json:"player_value"`
	PlayerSoft    bool                 `json:"player_soft,omitempty"`
	DealerCards   []blackjack.CardData `json:"dealer_cards"`
	DealerValue   int                  `json:"dealer_value"`
	DealerHidden  bool                 `json:"dealer_hidden"`
	DeckRemaining int                  `json:"deck_remaining"`
}

// RoundStartedEvent is published when a round opens for betting
type RoundStartedEvent struct {
	SessionID   string `json:"session_id"`
	RoundNumber int    `json:"round_number"`
	Money       int64  `json:"money"`
	timestamp   time.Time
}

func (e RoundStartedEvent) EventType() EventType { return EventTypeRoundStarted }
func (e RoundStartedEvent) Timestamp() time.Time { return e.timestamp }
func (e RoundStartedEvent) Session() string      { return e.SessionID }

// CardsDealtEvent is published after the initial four cards
type CardsDealtEvent struct {
	View      RoundView `json:"round"`
	timestamp time.Time
}

func (e CardsDealtEvent) EventType() EventType { return EventTypeCardsDealt }
func (e CardsDealtEvent) Timestamp() time.Time { return e.timestamp }
func (e CardsDealtEvent) Session() string      { return e.View.SessionID }

// PlayerHitEvent is published when the player draws a card
type PlayerHitEvent struct {
	Card      blackjack.CardData `json:"card"`
	View      RoundView          `json:"round"`
	timestamp time.Time
}

func (e PlayerHitEvent) EventType() EventType { return EventTypePlayerHit }
func (e PlayerHitEvent) Timestamp() time.Time { return e.timestamp }
func (e PlayerHitEvent) Session() string      { return e.View.SessionID }

// DealerDrewEvent is published for every dealer draw
type DealerDrewEvent struct {
	Card      blackjack.CardData `json:"card"`
	View      RoundView          `json:"round"`
	timestamp time.Time
}

func (e DealerDrewEvent) EventType() EventType { return EventTypeDealerDrew }
func (e DealerDrewEvent) Timestamp() time.Time { return e.timestamp }
func (e DealerDrewEvent) Session() string      { return e.View.SessionID }

// RoundSettledEvent is published once the settlement has been committed
type RoundSettledEvent struct {
	Outcome   RoundRecord `json:"outcome"`
	timestamp time.Time
}

func (e RoundSettledEvent) EventType() EventType { return EventTypeRoundSettled }
func (e RoundSettledEvent) Timestamp() time.Time { return e.timestamp }
func (e RoundSettledEvent) Session() string      { return e.Outcome.SessionID }

// RoundSavedEvent is published when play suspends with a save
type RoundSavedEvent struct {
	SessionID   string `json:"session_id"`
	RoundNumber int    `json:"round_number"`
	Phase       Phase  `json:"phase"`
	timestamp   time.Time
}

func (e RoundSavedEvent) EventType() EventType { return EventTypeRoundSaved }
func (e RoundSavedEvent) Timestamp() time.Time { return e.timestamp }
func (e RoundSavedEvent) Session() string      { return e.SessionID }

// SessionCompletedEvent is published when a session reaches a terminal state
type SessionCompletedEvent struct {
	Final     Session `json:"session"`
	Reason    string  `json:"reason"`
	Scored    bool    `json:"scored"`
	timestamp time.Time
}

func (e SessionCompletedEvent) EventType() EventType { return EventTypeSessionCompleted }
func (e SessionCompletedEvent) Timestamp() time.Time { return e.timestamp }
func (e SessionCompletedEvent) Session() string      { return e.Final.ID }
