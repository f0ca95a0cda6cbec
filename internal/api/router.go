package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Middleware stack (order matters)
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (unversioned clients poll this too)
		r.Get("/health", s.handleHealth)

		// Device registry
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{identity}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Post("/open", s.handleOpenDevice)
				r.Post("/configure", s.handleConfigureDevice)
				r.Post("/close", s.handleCloseDevice)
				r.Post("/reset", s.handleResetDevice)
				r.Post("/clear-halt", s.handleClearHalt)
			})
		})

		// Plug event history
		r.Get("/events", s.handleListEvents)

		// Runtime statistics
		r.Get("/stats", s.handleStats)
	})

	return r
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
