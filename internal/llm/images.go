package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/sashabaranov/go-openai"
)

type ImagesConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// ImageGenerator proxies prompts to the image generation API. A key sent
// with the request wins over the configured one and is never stored.
type ImageGenerator struct {
	defaultKey string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewImageGenerator(cfg ImagesConfig) *ImageGenerator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &ImageGenerator{
		defaultKey: strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (g *ImageGenerator) Generate(ctx context.Context, req domain.GenerateImageRequest) (domain.GeneratedImage, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return domain.GeneratedImage{}, apperror.InvalidInput(err.Error(), err)
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = g.defaultKey
	}
	if apiKey == "" {
		return domain.GeneratedImage{}, apperror.MissingCredential("OpenAI API key not provided")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if g.baseURL != "" {
		clientConfig.BaseURL = g.baseURL
	}
	clientConfig.HTTPClient = g.httpClient
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          g.model,
		N:              1,
		Size:           req.Size,
		Style:          req.Style,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return domain.GeneratedImage{}, classify(err, "Failed to generate image")
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return domain.GeneratedImage{}, apperror.Upstream("No image URL returned from OpenAI", nil)
	}

	revised := resp.Data[0].RevisedPrompt
	if revised == "" {
		revised = req.Prompt
	}
	return domain.GeneratedImage{URL: resp.Data[0].URL, RevisedPrompt: revised}, nil
}
