package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamServer(t *testing.T, deltas []string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			*captured = body
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range deltas {
			chunk := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   "test",
				"choices": []map[string]any{{
					"index": 0,
					"delta": map[string]any{"content": delta},
				}},
			}
			payload, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestChatStreamPrependsSystemPrompt(t *testing.T) {
	var body map[string]any
	srv := streamServer(t, []string{"Hello", ", world"}, &body)
	defer srv.Close()

	client, err := NewChatClient(ChatConfig{
		APIKey:       "test",
		BaseURL:      srv.URL + "/v1",
		Model:        "test-model",
		SystemPrompt: "be brief",
	})
	require.NoError(t, err)

	chunks, err := client.Stream(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	var text strings.Builder
	var last Chunk
	for chunk := range chunks {
		text.WriteString(chunk.Text)
		last = chunk
	}
	require.NoError(t, last.Err)
	assert.Equal(t, "Hello, world", text.String())
	assert.Equal(t, FinishReasonStop, last.FinishReason)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "be brief", first["content"])
	assert.Equal(t, "test-model", body["model"])
}

func TestChatStreamValidation(t *testing.T) {
	client, err := NewChatClient(ChatConfig{APIKey: "test", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = client.Stream(context.Background(), domain.ChatRequest{})
	assert.Equal(t, apperror.KindInvalidInput, apperror.As(err).Kind)

	_, err = client.Stream(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: "tool", Content: "x"}},
	})
	assert.Equal(t, apperror.KindInvalidInput, apperror.As(err).Kind)
}

func TestNewChatClientRequiresKey(t *testing.T) {
	_, err := NewChatClient(ChatConfig{})
	assert.Equal(t, apperror.KindMissingCredential, apperror.As(err).Kind)
}

func TestChatStreamUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	client, err := NewChatClient(ChatConfig{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Stream(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	})
	assert.Equal(t, apperror.KindUnauthorized, apperror.As(err).Kind)
}

func TestChatStreamDeadlineEndsWithError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"test","choices":[{"index":0,"delta":{"content":"Hel"}}]}`+"\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client, err := NewChatClient(ChatConfig{APIKey: "test", BaseURL: srv.URL, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		chunks, err := client.Stream(context.Background(), domain.ChatRequest{
			Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		})
		require.NoError(t, err)

		var text strings.Builder
		var last Chunk
		for chunk := range chunks {
			text.WriteString(chunk.Text)
			last = chunk
		}
		assert.Equal(t, "Hel", text.String())
		require.Error(t, last.Err, "run %d ended without a terminal chunk", i)
	}
}

func TestDataStreamParts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTextPart(&buf, "say \"hi\"\n"))
	require.NoError(t, WriteErrorPart(&buf, "boom"))
	require.NoError(t, WriteFinishPart(&buf, FinishReasonStop))

	assert.Equal(t, "0:\"say \\\"hi\\\"\\n\"\n3:\"boom\"\nd:{\"finishReason\":\"stop\"}\n", buf.String())
}

func imageServer(t *testing.T, status int, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			*captured = req
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestGenerateImageDefaults(t *testing.T) {
	var sent map[string]any
	srv := imageServer(t, http.StatusOK, `{"created":1,"data":[{"url":"https://img.example/cat.png","revised_prompt":""}]}`, &sent)
	defer srv.Close()

	gen := NewImageGenerator(ImagesConfig{APIKey: "env-key", BaseURL: srv.URL})
	img, err := gen.Generate(context.Background(), domain.GenerateImageRequest{Prompt: "a cat"})
	require.NoError(t, err)

	assert.Equal(t, "https://img.example/cat.png", img.URL)
	assert.Equal(t, "a cat", img.RevisedPrompt)
	assert.Equal(t, "dall-e-3", sent["model"])
	assert.Equal(t, "1024x1024", sent["size"])
	assert.Equal(t, "vivid", sent["style"])
	assert.Equal(t, "url", sent["response_format"])
	assert.EqualValues(t, 1, sent["n"])
}

func TestGenerateImageErrors(t *testing.T) {
	gen := NewImageGenerator(ImagesConfig{})

	_, err := gen.Generate(context.Background(), domain.GenerateImageRequest{Prompt: "a cat"})
	assert.Equal(t, apperror.KindMissingCredential, apperror.As(err).Kind)

	_, err = gen.Generate(context.Background(), domain.GenerateImageRequest{Prompt: "a cat", Size: "10x10", APIKey: "k"})
	assert.Equal(t, apperror.KindInvalidInput, apperror.As(err).Kind)

	_, err = gen.Generate(context.Background(), domain.GenerateImageRequest{APIKey: "k"})
	assert.Equal(t, apperror.KindInvalidInput, apperror.As(err).Kind)

	cases := []struct {
		status int
		body   string
		want   apperror.Kind
	}{
		{http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`, apperror.KindUnauthorized},
		{http.StatusTooManyRequests, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`, apperror.KindQuotaExceeded},
		{http.StatusBadRequest, `{"error":{"message":"Your request was rejected","type":"invalid_request_error","code":"content_policy_violation"}}`, apperror.KindUpstream},
		{http.StatusOK, `{"created":1,"data":[]}`, apperror.KindUpstream},
	}
	for _, tc := range cases {
		srv := imageServer(t, tc.status, tc.body, nil)
		gen := NewImageGenerator(ImagesConfig{BaseURL: srv.URL})
		_, err := gen.Generate(context.Background(), domain.GenerateImageRequest{Prompt: "a cat", APIKey: "request-key"})
		srv.Close()
		require.Error(t, err)
		assert.Equal(t, tc.want, apperror.As(err).Kind, tc.body)
	}
}
