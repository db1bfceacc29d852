package server

import (
	"encoding/json"
	"time"

	"github.com/lox/blackjack/internal/game"
)

// MessageType represents the type of websocket message
type MessageType string

const (
	// Client → Server
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"

	// Server → Client
	MessageTypeSubscribed MessageType = "subscribed"
	MessageTypeEvent      MessageType = "event"
	MessageTypeError      MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Message represents the base websocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// SubscribeData narrows the feed to one session. An empty SessionID
// follows every session.
type SubscribeData struct {
	SessionID string `json:"session_id"`
}

// EventData wraps a round or session event
type EventData struct {
	Event     game.EventType  `json:"event"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEventMessage converts a game event into a feed message
func NewEventMessage(e game.Event) (*Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	msg, err := NewMessage(MessageTypeEvent, EventData{
		Event:     e.EventType(),
		SessionID: e.Session(),
		Payload:   payload,
	})
	if err != nil {
		return nil, err
	}
	if ts := e.Timestamp(); !ts.IsZero() {
		msg.Timestamp = ts
	}
	return msg, nil
}
