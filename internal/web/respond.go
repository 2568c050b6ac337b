package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-kids/internal/ai"
	"github.com/p-n-ai/pai-kids/internal/game"
)

// Error codes returned in JSON error bodies.
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeProviderError = "PROVIDER_ERROR"
	CodeInternal      = "INTERNAL"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeGameError maps an error from the game to a status and code.
func writeGameError(w http.ResponseWriter, r *http.Request, err error) {
	var providerErr *ai.ProviderError
	switch {
	case errors.Is(err, game.ErrNoRound), errors.Is(err, game.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, game.ErrUnknownOption), errors.Is(err, game.ErrUnknownSubject):
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, game.ErrStaleRound),
		errors.Is(err, game.ErrNotAnswerable),
		errors.Is(err, game.ErrNotAnswered),
		errors.Is(err, game.ErrNotRetryable),
		errors.Is(err, game.ErrNoQuestion),
		errors.Is(err, game.ErrNoSubject):
		writeError(w, http.StatusConflict, CodeConflict, err.Error())
	case errors.As(err, &providerErr):
		writeError(w, http.StatusBadGateway, CodeProviderError, "content provider unavailable")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return false
	}
	return true
}
