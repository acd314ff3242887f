package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)

		// Identity-scoped routes (bearer JWT required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.jwtSecret))
			r.Put("/draft", h.UpsertDraft)
			r.Get("/draft", h.GetDraft)
			r.Delete("/draft", h.DeleteDraft)
			r.Post("/raw-inputs", h.InsertRawInput)
			r.Post("/predictions", h.InsertPrediction)
			r.Get("/predictions/count", h.CountPredictions)
		})
	})

	return r
}
