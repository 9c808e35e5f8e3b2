package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/standby-systems/standby/internal/store"
)

// ListExecutions returns archived executions, most recent first. The active
// execution, if any, is included under a separate key.
func (h *Handlers) ListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	history, err := h.store.ListHistory(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list executions", err)
		return
	}

	resp := map[string]interface{}{"executions": history}
	if active, err := h.store.GetActive(r.Context()); err == nil {
		resp["activeExecution"] = active
	} else if !errors.Is(err, store.ErrNoActiveExecution) {
		h.writeError(w, http.StatusInternalServerError, "failed to read active execution", err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetExecution returns one execution, active or archived.
func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")

	exec, err := h.store.GetExecution(r.Context(), executionID)
	if err != nil {
		if errors.Is(err, store.ErrExecutionNotFound) {
			h.writeError(w, http.StatusNotFound, "execution not found", nil)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "failed to read execution", err)
		return
	}

	h.writeJSON(w, http.StatusOK, exec)
}

// ListEvents returns the audit trail for one execution.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.store.ListEvents(r.Context(), executionID, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list events", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
