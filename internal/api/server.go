package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/dunamismax/launchpad/internal/llm"
	"github.com/dunamismax/launchpad/internal/pipeline"
	"github.com/dunamismax/launchpad/internal/store"
	"github.com/dunamismax/launchpad/internal/telemetry"
	"github.com/dunamismax/launchpad/internal/video"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultMaxUploadBytes = 64 << 20

type imageConverter interface {
	ConvertBatch(ctx context.Context, images []domain.SourceImage, opts domain.ConvertOptions) ([]domain.ImageConversionResult, pipeline.BatchStats, error)
}

type videoService interface {
	Convert(ctx context.Context, upload domain.VideoUpload, format, quality string) (domain.VideoConversionResult, error)
	Open(filename string) (video.Download, error)
}

type chatStreamer interface {
	Stream(ctx context.Context, req domain.ChatRequest) (<-chan llm.Chunk, error)
}

type imageGenerator interface {
	Generate(ctx context.Context, req domain.GenerateImageRequest) (domain.GeneratedImage, error)
}

type imageUploader interface {
	Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadResult, string, error)
}

// Notifier publishes domain events to subscribers outside the request path.
type Notifier interface {
	Notify(ctx context.Context, eventType string, data any) error
}

type Options struct {
	Logger          *zap.SugaredLogger
	Converter       imageConverter
	Videos          videoService
	Chat            chatStreamer
	Images          imageGenerator
	Uploads         imageUploader
	Usage           store.UsageStore
	Notifier        Notifier
	RateLimiter     RateLimiter
	Reporter        *telemetry.ErrorReporter
	MaxUploadBytes  int64
	CORSAllowOrigin string
	SubjectHeader   string
	Backend         string
}

type Server struct {
	logger          *zap.SugaredLogger
	converter       imageConverter
	videos          videoService
	chat            chatStreamer
	images          imageGenerator
	uploads         imageUploader
	usage           store.UsageStore
	notifier        Notifier
	rateLimiter     RateLimiter
	reporter        *telemetry.ErrorReporter
	metrics         *metrics
	tracer          trace.Tracer
	maxUploadBytes  int64
	corsAllowOrigin string
	subjectHeader   string
	backend         string
	mux             *http.ServeMux
}

func NewServer(opts Options) (*Server, error) {
	if opts.Converter == nil {
		return nil, errors.New("image converter is required")
	}
	if opts.Videos == nil {
		return nil, errors.New("video service is required")
	}
	if opts.Images == nil {
		return nil, errors.New("image generator is required")
	}
	if opts.Uploads == nil {
		return nil, errors.New("upload service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	usage := opts.Usage
	if usage == nil {
		usage = store.NewMemoryUsageStore()
	}
	maxUploadBytes := opts.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	corsAllowOrigin := strings.TrimSpace(opts.CORSAllowOrigin)
	if corsAllowOrigin == "" {
		corsAllowOrigin = "*"
	}
	subjectHeader := strings.TrimSpace(opts.SubjectHeader)
	if subjectHeader == "" {
		subjectHeader = "X-User-ID"
	}

	s := &Server{
		logger:          logger,
		converter:       opts.Converter,
		videos:          opts.Videos,
		chat:            opts.Chat,
		images:          opts.Images,
		uploads:         opts.Uploads,
		usage:           usage,
		notifier:        opts.Notifier,
		rateLimiter:     opts.RateLimiter,
		reporter:        opts.Reporter,
		metrics:         newMetrics(),
		tracer:          otel.Tracer("launchpad/api"),
		maxUploadBytes:  maxUploadBytes,
		corsAllowOrigin: corsAllowOrigin,
		subjectHeader:   subjectHeader,
		backend:         opts.Backend,
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler wraps the routes with the middleware chain. Request ids and CORS
// come first so even rejected requests carry them.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.withRateLimit(h)
	h = s.withTracing(h)
	h = s.metrics.withHTTPMetrics(h)
	h = s.withRecover(h)
	h = s.withRequestLogging(h)
	h = s.withCORS(h)
	return s.withRequestID(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())

	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/generate-image", s.handleGenerateImage)
	s.mux.HandleFunc("POST /api/image-converter", s.handleImageConverter)
	s.mux.HandleFunc("POST /api/upload-supabase", s.handleUpload)
	s.mux.HandleFunc("POST /api/video-converter", s.handleVideoConverter)
	s.mux.HandleFunc("GET /api/download/{filename}", s.handleDownload)
	s.mux.HandleFunc("GET /api/usage", s.handleUsage)
	s.mux.HandleFunc("OPTIONS /", s.handlePreflight)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":         "launchpad",
		"imageBackend":    s.backend,
		"chatConfigured":  s.chat != nil,
		"webhooksEnabled": s.notifier != nil,
		"endpoints":       Endpoints(),
	})
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Endpoint describes one public route.
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

func Endpoints() []Endpoint {
	return []Endpoint{
		{http.MethodPost, "/api/chat", "Streams a chat completion in the AI SDK data stream format"},
		{http.MethodPost, "/api/generate-image", "Generates an image with DALL-E 3"},
		{http.MethodPost, "/api/image-converter", "Converts and resizes a batch of uploaded images"},
		{http.MethodPost, "/api/upload-supabase", "Stores an image in Supabase Storage or the S3 bucket"},
		{http.MethodPost, "/api/video-converter", "Simulates a video conversion"},
		{http.MethodGet, "/api/download/{filename}", "Downloads a simulated conversion output"},
		{http.MethodGet, "/api/usage", "Summarizes recorded usage"},
	}
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
