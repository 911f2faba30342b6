package http

import (
	"log/slog"
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dashboard.Summary(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard aggregation failed", "error", err)
		// Dashboard errors carry a bare message body.
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
