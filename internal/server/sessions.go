package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lox/blackjack/internal/game"
)

type startRequest struct {
	Mode game.Mode `json:"mode"`
}

type betRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.games.Start(r.Context(), identity(r).UserID, req.Mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, game.Turn{Session: *sess})
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	turn, err := s.games.ActiveSession(r.Context(), identity(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	turn, err := s.games.ResumeActiveSession(r.Context(), identity(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	sess, err := s.games.Abandon(r.Context(), identity(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.games.Session(r.Context(), identity(r).UserID, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.games.SessionRounds(r.Context(), identity(r).UserID, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rounds": orEmpty(rounds)})
}

func (s *Server) handleBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.turn(w, r, func(ctx context.Context, userID, sessionID string) (*game.Turn, error) {
		return s.games.PlaceBet(ctx, userID, sessionID, req.Amount)
	})
}

func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	s.turn(w, r, s.games.Hit)
}

func (s *Server) handleStand(w http.ResponseWriter, r *http.Request) {
	s.turn(w, r, s.games.Stand)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.turn(w, r, s.games.Save)
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	s.turn(w, r, s.games.Quit)
}

type turnFunc func(ctx context.Context, userID, sessionID string) (*game.Turn, error)

// turn runs one session action for the caller and writes the resulting turn
func (s *Server) turn(w http.ResponseWriter, r *http.Request, fn turnFunc) {
	turn, err := fn(r.Context(), identity(r).UserID, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, turn)
}
