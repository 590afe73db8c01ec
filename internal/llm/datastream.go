package llm

import (
	"encoding/json"
	"fmt"
	"io"
)

// Data stream protocol understood by the AI SDK's useChat hook: one
// "<type>:<json>\n" line per part.
const (
	DataStreamHeader  = "X-Vercel-AI-Data-Stream"
	DataStreamVersion = "v1"
)

func WriteTextPart(w io.Writer, text string) error {
	return writePart(w, '0', text)
}

func WriteErrorPart(w io.Writer, message string) error {
	return writePart(w, '3', message)
}

func WriteFinishPart(w io.Writer, finishReason string) error {
	return writePart(w, 'd', struct {
		FinishReason string `json:"finishReason"`
	}{FinishReason: finishReason})
}

func writePart(w io.Writer, code byte, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode stream part: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%c:%s\n", code, payload); err != nil {
		return fmt.Errorf("write stream part: %w", err)
	}
	return nil
}
