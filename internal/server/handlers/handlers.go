// Package handlers implements HTTP request handlers for the Standby API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/standby-systems/standby/internal/orchestrator"
	"github.com/standby-systems/standby/internal/store"
)

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	orch   *orchestrator.Orchestrator
	store  store.Store
	logger *slog.Logger
}

// New creates a new Handlers instance.
func New(orch *orchestrator.Orchestrator, st store.Store) *Handlers {
	return &Handlers{
		orch:   orch,
		store:  st,
		logger: slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (h *Handlers) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// writeJSON encodes v with the given status.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response encode failed", "error", err)
	}
}

// writeError logs the internal error and returns a sanitized JSON error to
// the client.
func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		h.logger.Error(msg, "error", err, "status", status)
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeOperatorError maps the orchestrator's sentinel errors onto HTTP
// statuses. Anything unmapped is a 500.
func (h *Handlers) writeOperatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrExecutionActive):
		h.writeError(w, http.StatusConflict, "an execution is already active", err)
	case errors.Is(err, store.ErrNoActiveExecution):
		h.writeError(w, http.StatusNotFound, "no active execution", err)
	case errors.Is(err, store.ErrExecutionNotFound):
		h.writeError(w, http.StatusNotFound, "execution not found", err)
	case errors.Is(err, orchestrator.ErrWrongPosture):
		h.writeError(w, http.StatusPreconditionFailed, "failback requires posture FAILED_OVER", err)
	case errors.Is(err, orchestrator.ErrNotAbortable):
		h.writeError(w, http.StatusConflict, "execution is past the point of no return", err)
	case errors.Is(err, orchestrator.ErrNotFailed):
		h.writeError(w, http.StatusConflict, "execution is not in a failed phase", err)
	case errors.Is(err, orchestrator.ErrNotAwaitingApproval):
		h.writeError(w, http.StatusConflict, "execution is not awaiting approval", err)
	case errors.Is(err, orchestrator.ErrUnknownRecoverMode):
		h.writeError(w, http.StatusBadRequest, "mode must be resume, retry, or abandon", err)
	default:
		h.writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

// decode parses a JSON request body into v. A bodyless POST is allowed and
// leaves v zeroed.
func (h *Handlers) decode(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
