package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

type Config struct {
	API       APIConfig
	Chat      ChatConfig
	Images    ImagesConfig
	Converter ConverterConfig
	Video     VideoConfig
	Supabase  SupabaseConfig
	Storage   StorageConfig
	Queue     QueueConfig
	RateLimit RateLimitConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	Webhook   WebhookConfig
	Worker    WorkerConfig
	Log       LogConfig
}

type APIConfig struct {
	Addr            string
	MaxUploadBytes  int64
	CORSAllowOrigin string
}

type ChatConfig struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Timeout      time.Duration
}

type ImagesConfig struct {
	OpenAIKey string
	BaseURL   string
	Model     string
}

type ConverterConfig struct {
	Concurrency int
}

type VideoConfig struct {
	TempDir   string
	Retention time.Duration
}

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	AnonKey        string
}

// Key prefers the service role key over the public anon key.
func (s SupabaseConfig) Key() string {
	if s.ServiceRoleKey != "" {
		return s.ServiceRoleKey
	}
	return s.AnonKey
}

type StorageConfig struct {
	Enabled       bool
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type QueueConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Name          string
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type RateLimitConfig struct {
	Enabled       bool
	Capacity      int
	Window        time.Duration
	SubjectHeader string
}

type DatabaseConfig struct {
	DSN string
}

type TelemetryConfig struct {
	ServiceName   string
	TraceExporter string
	OTLPEndpoint  string
	OTLPInsecure  bool
	SentryDSN     string
	Environment   string
}

type WebhookConfig struct {
	URL            string
	SigningSecret  string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type WorkerConfig struct {
	Concurrency   int
	SweepInterval time.Duration
	MetricsAddr   string
}

type LogConfig struct {
	Level  string
	Format string
}

const defaultChatSystemPrompt = `You are a helpful assistant for an e-commerce parts store.
You can help customers find parts, answer questions about products,
and provide technical support. Be friendly and professional.`

// Load reads configuration from the environment, after merging a .env file
// from the working directory when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		API: APIConfig{
			Addr:            env("LAUNCHPAD_API_ADDR", ":8080"),
			MaxUploadBytes:  envInt64("API_MAX_UPLOAD_BYTES", 64<<20),
			CORSAllowOrigin: env("API_CORS_ALLOW_ORIGIN", "*"),
		},
		Chat: ChatConfig{
			Provider:     env("CHAT_PROVIDER", "anthropic"),
			APIKey:       env("CHAT_API_KEY", env("ANTHROPIC_API_KEY", "")),
			BaseURL:      env("CHAT_BASE_URL", ""),
			Model:        env("CHAT_MODEL", "claude-3-5-sonnet-20241022"),
			SystemPrompt: env("CHAT_SYSTEM_PROMPT", defaultChatSystemPrompt),
			MaxTokens:    envInt("CHAT_MAX_TOKENS", 1024),
			Timeout:      envDuration("CHAT_TIMEOUT", 30*time.Second),
		},
		Images: ImagesConfig{
			OpenAIKey: env("OPENAI_API_KEY", ""),
			BaseURL:   env("OPENAI_BASE_URL", ""),
			Model:     env("IMAGE_MODEL", "dall-e-3"),
		},
		Converter: ConverterConfig{
			Concurrency: envInt("CONVERTER_CONCURRENCY", max(1, runtime.NumCPU())),
		},
		Video: VideoConfig{
			TempDir:   env("VIDEO_TEMP_DIR", "./temp"),
			Retention: envDuration("VIDEO_RETENTION", 24*time.Hour),
		},
		Supabase: SupabaseConfig{
			URL:            env("SUPABASE_URL", env("NEXT_PUBLIC_SUPABASE_URL", "")),
			ServiceRoleKey: env("SUPABASE_SERVICE_ROLE_KEY", ""),
			AnonKey:        env("SUPABASE_ANON_KEY", env("NEXT_PUBLIC_SUPABASE_ANON_KEY", "")),
		},
		Storage: StorageConfig{
			Enabled:       envBool("STORAGE_ENABLED", false),
			Endpoint:      env("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:     env("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey:     env("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:        env("MINIO_BUCKET", "launchpad-uploads"),
			UseSSL:        envBool("MINIO_USE_SSL", false),
			PublicBaseURL: env("MINIO_PUBLIC_BASE_URL", ""),
		},
		Queue: QueueConfig{
			Enabled:       envBool("QUEUE_ENABLED", false),
			RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
			Name:          env("ASYNC_QUEUE", "default"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       envBool("RATE_LIMIT_ENABLED", false),
			Capacity:      envInt("RATE_LIMIT_CAPACITY", 30),
			Window:        envDuration("RATE_LIMIT_WINDOW", time.Minute),
			SubjectHeader: env("RATE_LIMIT_SUBJECT_HEADER", "X-User-ID"),
		},
		Database: DatabaseConfig{
			DSN: env("POSTGRES_DSN", ""),
		},
		Telemetry: TelemetryConfig{
			ServiceName:   env("OTEL_SERVICE_NAME", "launchpad"),
			TraceExporter: env("OTEL_TRACES_EXPORTER", "none"),
			OTLPEndpoint:  env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure:  envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SentryDSN:     env("SENTRY_DSN", ""),
			Environment:   env("APP_ENV", "development"),
		},
		Webhook: WebhookConfig{
			URL:            env("WEBHOOK_URL", ""),
			SigningSecret:  env("WEBHOOK_SIGNING_SECRET", ""),
			Timeout:        envDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			MaxAttempts:    envInt("WEBHOOK_MAX_ATTEMPTS", 3),
			InitialBackoff: envDuration("WEBHOOK_INITIAL_BACKOFF", time.Second),
			MaxBackoff:     envDuration("WEBHOOK_MAX_BACKOFF", 10*time.Second),
		},
		Worker: WorkerConfig{
			Concurrency:   envInt("WORKER_CONCURRENCY", max(2, runtime.NumCPU())),
			SweepInterval: envDuration("WORKER_SWEEP_INTERVAL", 10*time.Minute),
			MetricsAddr:   env("WORKER_METRICS_ADDR", ":9091"),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "json"),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
