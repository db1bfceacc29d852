package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/friends"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/store/sqlite"
)

// SettingsStore lists and updates the game settings table
type SettingsStore interface {
	ListGameSettings(ctx context.Context) ([]sqlite.Setting, error)
	SetGameSetting(ctx context.Context, key, value, updatedBy string, at time.Time) error
}

// Deps are the services the HTTP API is built on. Hub may be nil, in which
// case /ws is not mounted.
type Deps struct {
	Games    *game.Service
	Auth     *auth.Service
	Friends  *friends.Service
	Settings SettingsStore
	Hub      *Hub
	Logger   *log.Logger
	Clock    quartz.Clock
}

// Server is the JSON API over the game, auth and friends services
type Server struct {
	games    *game.Service
	auth     *auth.Service
	friends  *friends.Service
	settings SettingsStore
	hub      *Hub
	logger   *log.Logger
	clock    quartz.Clock
	router   chi.Router
}

// New creates the API server and its routes
func New(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = quartz.NewReal()
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	s := &Server{
		games:    d.Games,
		auth:     d.Auth,
		friends:  d.Friends,
		settings: d.Settings,
		hub:      d.Hub,
		logger:   d.Logger.WithPrefix("api"),
		clock:    d.Clock,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
			r.Post("/me/password", s.handleChangePassword)
			r.Get("/me/stats", s.handleStats)
			r.Get("/me/leaderboard", s.handleUserLeaderboard)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", s.handleStartSession)
				r.Get("/active", s.handleActiveSession)
				r.Delete("/active", s.handleAbandon)
				r.Post("/active/resume", s.handleResume)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", s.handleGetSession)
					r.Get("/rounds", s.handleRounds)
					r.Post("/bet", s.handleBet)
					r.Post("/hit", s.handleHit)
					r.Post("/stand", s.handleStand)
					r.Post("/save", s.handleSave)
					r.Post("/quit", s.handleQuit)
				})
			})

			r.Route("/friends", func(r chi.Router) {
				r.Get("/", s.handleFriends)
				r.Get("/pending", s.handlePending)
				r.Post("/request", s.handleFriendRequest)
				r.Post("/respond", s.handleFriendRespond)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/settings", s.handleListSettings)
				r.Put("/settings/{key}", s.handleSetSetting)
				r.Post("/users/{username}/ban", s.handleBan)
			})
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.hub != nil {
		resp["spectators"] = s.hub.Count()
	}
	s.writeJSON(w, http.StatusOK, resp)
}
