package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/standby-systems/standby/internal/server/handlers"
)

func (s *Server) registerRoutes(r chi.Router) {
	h := handlers.New(s.orch, s.store)
	h.SetLogger(s.logger)

	r.Route("/api", func(r chi.Router) {
		// Health and posture
		r.Get("/health", h.Health)
		r.Get("/status", h.Status)

		// Triggers
		r.Post("/failover", h.StartFailover)
		r.Post("/failback", h.StartFailback)
		r.Post("/signals", h.SubmitSignal)

		// Executions
		r.Get("/executions", h.ListExecutions)
		r.Get("/executions/{executionID}", h.GetExecution)
		r.Get("/executions/{executionID}/events", h.ListEvents)
		r.Post("/executions/{executionID}/abort", h.AbortExecution)
		r.Post("/executions/{executionID}/recover", h.RecoverExecution)
		r.Post("/executions/{executionID}/confirm", h.ConfirmExecution)
	})
}
