package domain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ImageSizeSquare    = "1024x1024"
	ImageSizeLandscape = "1792x1024"
	ImageSizePortrait  = "1024x1792"

	ImageStyleVivid   = "vivid"
	ImageStyleNatural = "natural"

	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return errors.New("messages must contain at least one message")
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("messages[%d].role is unsupported: %q", i, msg.Role)
		}
	}
	return nil
}

type GenerateImageRequest struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
	Style  string `json:"style,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}

// WithDefaults fills the size and style the way the playground UI expects.
func (r GenerateImageRequest) WithDefaults() GenerateImageRequest {
	if strings.TrimSpace(r.Size) == "" {
		r.Size = ImageSizeSquare
	}
	if strings.TrimSpace(r.Style) == "" {
		r.Style = ImageStyleVivid
	}
	return r
}

func (r GenerateImageRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.New("prompt is required")
	}
	switch r.Size {
	case ImageSizeSquare, ImageSizeLandscape, ImageSizePortrait:
	default:
		return fmt.Errorf("unsupported size: %s", r.Size)
	}
	switch r.Style {
	case ImageStyleVivid, ImageStyleNatural:
	default:
		return fmt.Errorf("unsupported style: %s", r.Style)
	}
	return nil
}

type GeneratedImage struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt"`
}
