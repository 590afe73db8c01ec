// Package mcpserver exposes the image tooling to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dunamismax/launchpad/internal/api"
	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/config"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/dunamismax/launchpad/internal/storage"
)

const (
	ToolGenerateAndProcess = "generate_and_process_image"
	ToolConvertImage       = "convert_image"

	ResourceConfig    = "stack://config"
	ResourceEndpoints = "stack://endpoints"
)

type imageGenerator interface {
	Generate(ctx context.Context, req domain.GenerateImageRequest) (domain.GeneratedImage, error)
}

type imageConverter interface {
	Convert(ctx context.Context, src domain.SourceImage, opts domain.ConvertOptions) (domain.ImageConversionResult, error)
}

type blobFetcher interface {
	Fetch(ctx context.Context, ref string) (storage.Blob, error)
}

type imageUploader interface {
	Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadResult, string, error)
}

type Deps struct {
	Logger    *zap.SugaredLogger
	Images    imageGenerator
	Converter imageConverter
	Fetcher   blobFetcher
	// Uploads is optional; without it generated images are only returned inline.
	Uploads imageUploader
	Config  config.Config
	Backend string
	Version string
}

type Server struct {
	logger    *zap.SugaredLogger
	images    imageGenerator
	converter imageConverter
	fetcher   blobFetcher
	uploads   imageUploader
	cfg       config.Config
	backend   string
	mcp       *server.MCPServer
}

func New(deps Deps) (*Server, error) {
	if deps.Images == nil || deps.Converter == nil || deps.Fetcher == nil {
		return nil, errors.New("image generator, converter and fetcher are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		logger:    logger,
		images:    deps.Images,
		converter: deps.Converter,
		fetcher:   deps.Fetcher,
		uploads:   deps.Uploads,
		cfg:       deps.Config,
		backend:   deps.Backend,
		mcp: server.NewMCPServer("launchpad", version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithLogging(),
		),
	}
	s.register()
	return s, nil
}

func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) register() {
	s.mcp.AddTool(mcp.NewTool(ToolGenerateAndProcess,
		mcp.WithDescription("Generate an image with DALL-E 3, convert it and optionally upload it to storage"),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("What the image should show")),
		mcp.WithString("size", mcp.Description("Image size"), mcp.Enum(domain.ImageSizeSquare, domain.ImageSizeLandscape, domain.ImageSizePortrait)),
		mcp.WithString("format", mcp.Description("Output format"), mcp.Enum(domain.FormatWebP, domain.FormatJPEG, domain.FormatPNG, domain.FormatGIF)),
		mcp.WithNumber("quality", mcp.Description("Output quality from 1 to 100")),
		mcp.WithString("bucket", mcp.Description("Upload the result to this bucket when storage is configured")),
	), s.handleGenerateAndProcess)

	s.mcp.AddTool(mcp.NewTool(ToolConvertImage,
		mcp.WithDescription("Fetch an image by URL or data URI and convert it"),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data URI of the source image")),
		mcp.WithString("format", mcp.Description("Output format"), mcp.Enum(domain.FormatWebP, domain.FormatJPEG, domain.FormatPNG, domain.FormatGIF)),
		mcp.WithNumber("quality", mcp.Description("Output quality from 1 to 100")),
		mcp.WithNumber("max_width", mcp.Description("Maximum output width in pixels")),
	), s.handleConvertImage)

	s.mcp.AddResource(mcp.NewResource(ResourceConfig, "Service configuration",
		mcp.WithResourceDescription("Runtime configuration of the launchpad services, without secrets"),
		mcp.WithMIMEType("application/json"),
	), s.readConfig)

	s.mcp.AddResource(mcp.NewResource(ResourceEndpoints, "HTTP endpoints",
		mcp.WithResourceDescription("Routes served by the launchpad API"),
		mcp.WithMIMEType("application/json"),
	), s.readEndpoints)
}

func (s *Server) handleGenerateAndProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	prompt := stringArg(args, "prompt")
	if strings.TrimSpace(prompt) == "" {
		return mcp.NewToolResultError("prompt is required"), nil
	}

	generated, err := s.images.Generate(ctx, domain.GenerateImageRequest{
		Prompt: prompt,
		Size:   stringArg(args, "size"),
	})
	if err != nil {
		return s.toolError(ToolGenerateAndProcess, err), nil
	}

	blob, err := s.fetcher.Fetch(ctx, generated.URL)
	if err != nil {
		return s.toolError(ToolGenerateAndProcess, err), nil
	}

	opts := domain.ConvertOptions{
		Format:  stringArg(args, "format"),
		Quality: intArg(args, "quality"),
	}.Normalize()
	converted, err := s.converter.Convert(ctx, domain.SourceImage{
		Name: "generated.png",
		Size: int64(len(blob.Data)),
		Data: blob.Data,
	}, opts)
	if err != nil {
		return s.toolError(ToolGenerateAndProcess, err), nil
	}

	summary := map[string]any{
		"prompt":        prompt,
		"revisedPrompt": generated.RevisedPrompt,
		"sourceUrl":     generated.URL,
		"format":        converted.Format,
		"width":         converted.Width,
		"height":        converted.Height,
		"originalSize":  converted.OriginalSize,
		"processedSize": converted.ProcessedSize,
	}

	if bucket := stringArg(args, "bucket"); bucket != "" {
		if s.uploads == nil {
			return mcp.NewToolResultError("storage is not configured"), nil
		}
		uploaded, backend, err := s.uploads.Upload(ctx, domain.UploadRequest{
			ImageURL: converted.URL,
			FileName: "generated." + converted.Format,
			Bucket:   bucket,
		})
		if err != nil {
			return s.toolError(ToolGenerateAndProcess, err), nil
		}
		summary["backend"] = backend
		summary["path"] = uploaded.Path
		summary["publicUrl"] = uploaded.PublicURL
	}

	text, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return mcp.NewToolResultImage(string(text), converted.Base64, domain.ImageContentType(converted.Format)), nil
}

func (s *Server) handleConvertImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ref := stringArg(args, "url")
	if strings.TrimSpace(ref) == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	blob, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		return s.toolError(ToolConvertImage, err), nil
	}

	converted, err := s.converter.Convert(ctx, domain.SourceImage{
		Name: sourceName(ref),
		Size: int64(len(blob.Data)),
		Data: blob.Data,
	}, domain.ConvertOptions{
		Format:   stringArg(args, "format"),
		Quality:  intArg(args, "quality"),
		MaxWidth: intArg(args, "max_width"),
	}.Normalize())
	if err != nil {
		return s.toolError(ToolConvertImage, err), nil
	}

	text := fmt.Sprintf("Converted %s to %s: %dx%d, %d -> %d bytes",
		converted.OriginalName, converted.Format, converted.Width, converted.Height,
		converted.OriginalSize, converted.ProcessedSize)
	return mcp.NewToolResultImage(text, converted.Base64, domain.ImageContentType(converted.Format)), nil
}

// toolError turns a failure into an error result the client model can read.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	appErr := apperror.As(err)
	s.logger.Warnw("tool failed", "tool", tool, "kind", appErr.Kind.String(), "error", err)
	if appErr.Kind == apperror.KindInternal {
		return mcp.NewToolResultError(tool + " failed: " + err.Error())
	}
	return mcp.NewToolResultError(appErr.Message)
}

type configView struct {
	ImageBackend       string `json:"imageBackend"`
	ConverterWorkers   int    `json:"converterWorkers"`
	MaxUploadBytes     int64  `json:"maxUploadBytes"`
	ChatProvider       string `json:"chatProvider"`
	ChatModel          string `json:"chatModel"`
	ChatConfigured     bool   `json:"chatConfigured"`
	ImageModel         string `json:"imageModel"`
	ImagesConfigured   bool   `json:"imagesConfigured"`
	SupabaseConfigured bool   `json:"supabaseConfigured"`
	ObjectStoreEnabled bool   `json:"objectStoreEnabled"`
	ObjectStoreBucket  string `json:"objectStoreBucket,omitempty"`
	QueueEnabled       bool   `json:"queueEnabled"`
	WebhooksEnabled    bool   `json:"webhooksEnabled"`
	RateLimitEnabled   bool   `json:"rateLimitEnabled"`
	RateLimitCapacity  int    `json:"rateLimitCapacity,omitempty"`
	RateLimitWindow    string `json:"rateLimitWindow,omitempty"`
	UsageStore         string `json:"usageStore"`
	VideoRetention     string `json:"videoRetention"`
	TraceExporter      string `json:"traceExporter"`
	ErrorReporting     bool   `json:"errorReporting"`
	Environment        string `json:"environment"`
}

func (s *Server) configView() configView {
	cfg := s.cfg
	view := configView{
		ImageBackend:       s.backend,
		ConverterWorkers:   cfg.Converter.Concurrency,
		MaxUploadBytes:     cfg.API.MaxUploadBytes,
		ChatProvider:       cfg.Chat.Provider,
		ChatModel:          cfg.Chat.Model,
		ChatConfigured:     cfg.Chat.APIKey != "",
		ImageModel:         cfg.Images.Model,
		ImagesConfigured:   cfg.Images.OpenAIKey != "",
		SupabaseConfigured: cfg.Supabase.URL != "" && cfg.Supabase.Key() != "",
		ObjectStoreEnabled: cfg.Storage.Enabled,
		QueueEnabled:       cfg.Queue.Enabled,
		WebhooksEnabled:    cfg.Queue.Enabled && cfg.Webhook.URL != "",
		RateLimitEnabled:   cfg.RateLimit.Enabled,
		UsageStore:         "memory",
		VideoRetention:     cfg.Video.Retention.String(),
		TraceExporter:      cfg.Telemetry.TraceExporter,
		ErrorReporting:     cfg.Telemetry.SentryDSN != "",
		Environment:        cfg.Telemetry.Environment,
	}
	if cfg.Storage.Enabled {
		view.ObjectStoreBucket = cfg.Storage.Bucket
	}
	if cfg.RateLimit.Enabled {
		view.RateLimitCapacity = cfg.RateLimit.Capacity
		view.RateLimitWindow = cfg.RateLimit.Window.String()
	}
	if cfg.Database.DSN != "" {
		view.UsageStore = "postgres"
	}
	return view
}

func (s *Server) readConfig(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(ResourceConfig, s.configView())
}

func (s *Server) readEndpoints(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(ResourceEndpoints, api.Endpoints())
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(raw)},
	}, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// intArg accepts JSON numbers and numeric strings; anything else is 0.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func sourceName(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		return "inline"
	}
	trimmed := strings.TrimRight(strings.SplitN(ref, "?", 2)[0], "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 && i < len(trimmed)-1 {
		return trimmed[i+1:]
	}
	return trimmed
}
