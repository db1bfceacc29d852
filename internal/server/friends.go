package server

import (
	"net/http"
)

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	list, err := s.friends.Friends(r.Context(), identity(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"friends": orEmpty(list)})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	list, err := s.friends.Pending(r.Context(), identity(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"requests": orEmpty(list)})
}

func (s *Server) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Username == "" {
		s.writeError(w, r, invalidRequest("username is required"))
		return
	}
	f, err := s.friends.Request(r.Context(), identity(r).UserID, req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleFriendRespond(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FriendshipID string `json:"friendship_id"`
		Action       string `json:"action"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := s.friends.Respond(r.Context(), identity(r).UserID, req.FriendshipID, req.Action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"friendship_id": req.FriendshipID,
		"status":        status,
	})
}
