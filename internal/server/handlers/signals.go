package handlers

import (
	"net/http"
	"time"

	"github.com/standby-systems/standby/pkg/types"
)

type signalRequest struct {
	Region string             `json:"region"`
	Status types.HealthStatus `json:"status"`
	Source string             `json:"source"`
}

// SubmitSignal feeds an external health observation into the debounced
// trigger path. Used by the alarm lambda and by synthetic checks.
func (h *Handlers) SubmitSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Status != types.Healthy && req.Status != types.Unhealthy {
		h.writeError(w, http.StatusBadRequest, "status must be HEALTHY or UNHEALTHY", nil)
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	h.orch.SubmitSignal(types.HealthSignal{
		Region:     req.Region,
		Status:     req.Status,
		Source:     req.Source,
		ObservedAt: time.Now().UTC(),
	})
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
