package api

import (
	"errors"
	"net/http"

	"github.com/dunamismax/launchpad/internal/apperror"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeError logs err, reports server-side failures and answers with the
// status of its category.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.As(err)
	status := appErr.Kind.HTTPStatus()
	route := routeLabel(r.URL.Path)

	fields := []any{
		"request_id", requestIDFrom(r.Context()),
		"route", route,
		"status", status,
		"kind", appErr.Kind.String(),
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Errorw("request failed", fields...)
		s.reporter.Capture(r.Context(), err, map[string]string{
			"route":      route,
			"kind":       appErr.Kind.String(),
			"request_id": requestIDFrom(r.Context()),
		})
	} else {
		s.logger.Warnw("request rejected", fields...)
	}

	body := errorResponse{Error: appErr.Message}
	if appErr.Raw != nil && appErr.Raw.Error() != appErr.Message {
		body.Details = appErr.Raw.Error()
	}
	writeJSON(w, status, body)
}

// orInternal keeps categorized errors and files everything else as an
// internal failure with message.
func orInternal(err error, message string) error {
	var appErr apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(message, err)
}
