package api

import (
	"net/http"
)

// handleStats reports registry and worker statistics for monitoring.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.host.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"version": s.version,
		"stats":   stats,
	})
}
