package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/sashabaranov/go-openai"
)

const (
	ProviderAnthropic = "anthropic"

	anthropicBaseURL = "https://api.anthropic.com/v1"

	FinishReasonStop = "stop"
)

type ChatConfig struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Timeout      time.Duration
}

// Chunk is one piece of a streamed completion. The last chunk of a stream
// carries either Err or FinishReason.
type Chunk struct {
	Text         string
	FinishReason string
	Err          error
}

// ChatClient streams completions from an OpenAI wire compatible endpoint.
type ChatClient struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxTokens    int
	timeout      time.Duration
}

func NewChatClient(cfg ChatConfig) (*ChatClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperror.MissingCredential("Chat API key not configured")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		clientConfig.BaseURL = cfg.BaseURL
	case strings.EqualFold(cfg.Provider, ProviderAnthropic):
		clientConfig.BaseURL = anthropicBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ChatClient{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		timeout:      timeout,
	}, nil
}

// Stream validates the conversation, prepends the system prompt and starts
// the completion. Errors before the first token are returned directly;
// later ones arrive as the final Chunk.
func (c *ChatClient) Stream(ctx context.Context, req domain.ChatRequest) (<-chan Chunk, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.InvalidInput(err.Error(), err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if strings.TrimSpace(c.systemPrompt) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.systemPrompt,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	// Chunks are delivered on the caller's context so the terminal chunk
	// survives the completion deadline.
	callerCtx := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
		Stream:    true,
	})
	if err != nil {
		cancel()
		return nil, classify(err, "Failed to process chat request")
	}

	chunks := make(chan Chunk, 16)
	go func() {
		defer close(chunks)
		defer cancel()
		defer stream.Close()

		finishReason := FinishReasonStop
		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(callerCtx, chunks, Chunk{FinishReason: finishReason})
				return
			}
			if err != nil {
				send(callerCtx, chunks, Chunk{Err: fmt.Errorf("receive completion: %w", err)})
				return
			}
			if len(response.Choices) == 0 {
				continue
			}

			choice := response.Choices[0]
			if choice.FinishReason != "" {
				finishReason = string(choice.FinishReason)
			}
			if choice.Delta.Content == "" {
				continue
			}
			if !send(callerCtx, chunks, Chunk{Text: choice.Delta.Content}) {
				return
			}
		}
	}()

	return chunks, nil
}

func send(ctx context.Context, chunks chan<- Chunk, chunk Chunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
