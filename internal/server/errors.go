package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/splitx/internal/shared"
)

// HTTPError is an error with an explicit response status. It renders as {"error": Message, "details": Details}.
type HTTPError struct {
	Status  int
	Message string
	Details any
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates an [HTTPError] without details.
func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// StatusFor maps application errors to HTTP status codes.
func StatusFor(err error) int {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrEmptySplits),
		errors.Is(err, shared.ErrNoSplitTracks),
		errors.Is(err, shared.ErrEmptyGenres),
		errors.Is(err, shared.ErrNoMatchingTracks),
		errors.Is(err, shared.ErrNoRefreshToken):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrRefreshFailed),
		errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrSessionNotFound),
		errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrAPIRequest),
		errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes v with status. Encoding errors are logged; the header is already sent.
func writeJSON(w http.ResponseWriter, logger *log.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil && logger != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError renders err using [StatusFor]. Server errors are logged.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error()}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		body.Error, body.Details = httpErr.Message, httpErr.Details
	}

	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, logger, status, body)
}
