package api

import (
	"net/http"
	"strings"
)

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(r.URL.Query().Get("subject"))
	summary, err := s.usage.Summary(r.Context(), subject)
	if err != nil {
		s.writeError(w, r, orInternal(err, "Failed to load usage"))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
