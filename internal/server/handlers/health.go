package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/standby-systems/standby/internal/store"
)

// Health returns the server health status.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
	}

	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": status,
	}); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Status reports the current DR posture and, when present, the active
// execution.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	posture, err := h.store.GetPosture(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to read posture", err)
		return
	}

	resp := map[string]interface{}{"posture": posture}
	active, err := h.store.GetActive(r.Context())
	switch {
	case err == nil:
		resp["activeExecution"] = active
	case errors.Is(err, store.ErrNoActiveExecution):
	default:
		h.writeError(w, http.StatusInternalServerError, "failed to read active execution", err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}
