package api

import (
	"net/http"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/dunamismax/launchpad/internal/llm"
)

// streamErrorMessage hides provider details from the browser; the cause is logged.
const streamErrorMessage = "An error occurred."

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		s.writeError(w, r, apperror.MissingCredential("Chat API key not configured"))
		return
	}

	var req domain.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, apperror.InvalidInput("Invalid request body", err))
		return
	}

	chunks, err := s.chat.Stream(r.Context(), req)
	if err != nil {
		s.writeError(w, r, orInternal(err, "Failed to process chat request"))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set(llm.DataStreamHeader, llm.DataStreamVersion)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for chunk := range chunks {
		var writeErr error
		switch {
		case chunk.Err != nil:
			s.logger.Errorw("chat stream failed", "request_id", requestIDFrom(r.Context()), "error", chunk.Err)
			s.reporter.Capture(r.Context(), chunk.Err, map[string]string{"route": "/api/chat"})
			writeErr = llm.WriteErrorPart(w, streamErrorMessage)
		case chunk.FinishReason != "":
			writeErr = llm.WriteFinishPart(w, chunk.FinishReason)
		default:
			writeErr = llm.WriteTextPart(w, chunk.Text)
		}
		if writeErr != nil {
			// Client went away; the request context stops the producer.
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
