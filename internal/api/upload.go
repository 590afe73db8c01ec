package api

import (
	"net/http"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/dunamismax/launchpad/internal/webhook"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req domain.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, apperror.InvalidInput("Invalid request body", err))
		return
	}

	result, backend, err := s.uploads.Upload(r.Context(), req)
	if err != nil {
		if backend != "" {
			s.metrics.uploadsTotal.WithLabelValues(backend, "failed").Inc()
		}
		s.writeError(w, r, orInternal(err, "Failed to upload image"))
		return
	}

	s.metrics.uploadsTotal.WithLabelValues(backend, "stored").Inc()
	s.notify(r, webhook.EventUploadCompleted, map[string]any{
		"backend":   backend,
		"bucket":    result.Bucket,
		"path":      result.Path,
		"publicUrl": result.PublicURL,
	})
	writeJSON(w, http.StatusOK, result)
}
