package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/standby-systems/standby/internal/store"
)

type triggerRequest struct {
	Reason          string `json:"reason"`
	RequireApproval bool   `json:"requireApproval"`
}

type abortRequest struct {
	Reason string `json:"reason"`
}

type recoverRequest struct {
	Mode string `json:"mode"`
}

// StartFailover triggers a failover execution.
func (h *Handlers) StartFailover(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Reason == "" {
		req.Reason = "operator requested failover"
	}

	exec, err := h.orch.StartFailover(r.Context(), req.Reason, req.RequireApproval)
	if err != nil {
		h.writeOperatorError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, exec)
}

// StartFailback triggers a failback execution. Failback is never automatic.
func (h *Handlers) StartFailback(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Reason == "" {
		req.Reason = "operator requested failback"
	}

	exec, err := h.orch.StartFailback(r.Context(), req.Reason)
	if err != nil {
		h.writeOperatorError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, exec)
}

// AbortExecution cancels the active execution before its first side effect.
func (h *Handlers) AbortExecution(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")

	active, err := h.store.GetActive(r.Context())
	if err != nil {
		h.writeOperatorError(w, err)
		return
	}
	if active.ExecutionID != executionID {
		h.writeOperatorError(w, store.ErrExecutionNotFound)
		return
	}

	var req abortRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Reason == "" {
		req.Reason = "operator abort"
	}

	if err := h.orch.Abort(r.Context(), req.Reason); err != nil {
		h.writeOperatorError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "aborted"})
}

// RecoverExecution moves a failed execution forward per the requested mode.
func (h *Handlers) RecoverExecution(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")

	var req recoverRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Mode == "" {
		h.writeError(w, http.StatusBadRequest, "mode is required", nil)
		return
	}

	if err := h.orch.Recover(r.Context(), executionID, req.Mode); err != nil {
		h.writeOperatorError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "recovering", "mode": req.Mode})
}

// ConfirmExecution releases an execution awaiting operator approval.
func (h *Handlers) ConfirmExecution(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")

	if err := h.orch.Confirm(r.Context(), executionID); err != nil {
		h.writeOperatorError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "confirmed"})
}
