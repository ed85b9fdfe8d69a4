package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/ingestion"
	"github.com/poiesic/codex/mid"
	"github.com/poiesic/codex/storage"
)

// serviceContext keeps request values such as the request id but drops
// cancellation, so work started for a client that disconnects still
// runs to completion.
func serviceContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, ingestion.ErrNoSections):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateDocument):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with {"error": ...}. Server errors carry a generic
// summary and the detail goes to the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, summary string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(summary, "err", err, "path", r.URL.Path, "request_id", mid.RequestIDFrom(r.Context()))
		msg = summary
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrValidation, fmt.Sprintf(format, args...))
}

// intParam reads an integer query parameter, returning def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

// boolParam reads a boolean query parameter, returning false when absent.
func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest("%s must be a boolean", name)
	}
	return b, nil
}
