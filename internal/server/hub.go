package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/game"
)

// Hub fans round and session events out to websocket spectators. It is a
// game.EventSink; Publish never blocks the round that produced the event.
type Hub struct {
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	broadcast   chan game.Event
	done        chan struct{}
	logger      *log.Logger
	mu          sync.RWMutex
}

var _ game.EventSink = (*Hub)(nil)

// NewHub creates a hub. Run must be called for it to deliver anything.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// spectators may watch from any origin
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan game.Event, 256),
		done:        make(chan struct{}),
		logger:      logger.WithPrefix("hub"),
	}
}

// Run handles connection lifecycle until ctx is done, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn] = true
			total := len(h.connections)
			h.mu.Unlock()
			h.logger.Info("Spectator connected", "total", total)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				_ = conn.Close()
			}
			total := len(h.connections)
			h.mu.Unlock()
			h.logger.Info("Spectator disconnected", "total", total)

		case e := <-h.broadcast:
			h.deliver(e)

		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.connections {
				_ = conn.Close()
				delete(h.connections, conn)
			}
			h.mu.Unlock()
			return nil
		}
	}
}

// Publish queues an event for delivery. Events are dropped when the queue
// is full or the hub has stopped.
func (h *Hub) Publish(e game.Event) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- e:
	default:
		h.logger.Warn("Event queue full, dropping event", "type", e.EventType(), "session", e.Session())
	}
}

func (h *Hub) deliver(e game.Event) {
	msg, err := NewEventMessage(e)
	if err != nil {
		h.logger.Error("Failed to encode event", "type", e.EventType(), "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for conn := range h.connections {
		if !conn.Wants(e.Session()) {
			continue
		}
		if err := conn.SendMessage(msg); err == nil {
			count++
		}
	}
	h.logger.Debug("Broadcasted event", "type", e.EventType(), "session", e.Session(), "recipients", count)
}

// Count returns the number of connected spectators
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// ServeHTTP upgrades the request to a spectator websocket. The optional
// session query parameter narrows the feed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(ws, h.logger, r.URL.Query().Get("session"))
	select {
	case h.register <- client:
	case <-h.done:
		_ = client.Close()
		return
	}
	client.Start()

	go func() {
		<-client.Done()
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()
}
