package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/friends"
	"github.com/lox/blackjack/internal/game"
)

// Error codes returned in the JSON error envelope
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeInternal       = "internal"
)

// ErrorBody is the payload of every error response
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error ErrorBody `json:"error"`
}

var errBadJSON = errors.New("malformed JSON body")

type badRequest struct{ msg string }

func (b badRequest) Error() string { return b.msg }

func invalidRequest(format string, args ...any) error {
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

// classify maps service errors to an HTTP status and error code
func classify(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br), errors.Is(err, errBadJSON):
		return http.StatusBadRequest, CodeInvalidRequest

	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, auth.ErrBanned):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, auth.ErrUsernameTaken):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, CodeNotFound

	case errors.Is(err, friends.ErrSelfRequest), errors.Is(err, friends.ErrInvalidResponse):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, friends.ErrNotAddressee):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, friends.ErrRequestNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, friends.ErrRequestExists), errors.Is(err, friends.ErrNotPending):
		return http.StatusConflict, CodeConflict
	}

	switch game.Classify(err) {
	case game.KindValidation:
		return http.StatusBadRequest, CodeInvalidRequest
	case game.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case game.KindConflict:
		return http.StatusConflict, CodeConflict
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeError writes the JSON error envelope. Internal errors are logged and
// their details withheld.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	s.writeJSON(w, status, errorResponse{Error: ErrorBody{Code: code, Message: msg}})
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("Failed to write response", "error", err)
	}
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}
