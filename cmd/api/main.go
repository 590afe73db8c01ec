package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dunamismax/launchpad/internal/api"
	"github.com/dunamismax/launchpad/internal/config"
	"github.com/dunamismax/launchpad/internal/llm"
	"github.com/dunamismax/launchpad/internal/logging"
	"github.com/dunamismax/launchpad/internal/pipeline"
	"github.com/dunamismax/launchpad/internal/queue"
	"github.com/dunamismax/launchpad/internal/ratelimit"
	"github.com/dunamismax/launchpad/internal/storage"
	"github.com/dunamismax/launchpad/internal/store"
	"github.com/dunamismax/launchpad/internal/telemetry"
	"github.com/dunamismax/launchpad/internal/video"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, "api")
	if err != nil {
		panic(err)
	}
	defer logging.Sync(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("api failed", "error", err)
	}
}

func run(cfg config.Config, logger *zap.SugaredLogger) error {
	ctx := context.Background()

	reporter, err := telemetry.SetupErrorReporting(telemetry.ErrorReportingConfig{
		DSN:         cfg.Telemetry.SentryDSN,
		Environment: cfg.Telemetry.Environment,
		Release:     version,
	})
	if err != nil {
		return err
	}
	defer reporter.Flush()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:    cfg.Telemetry.ServiceName + "-api",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		Exporter:       cfg.Telemetry.TraceExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warnw("tracing shutdown failed", "error", err)
		}
	}()

	if err := pipeline.Startup(); err != nil {
		return err
	}
	defer pipeline.Shutdown()

	converter, err := pipeline.NewConverter(cfg.Converter.Concurrency)
	if err != nil {
		return err
	}

	opts := api.Options{
		Logger:          logger,
		Converter:       converter,
		Videos:          video.NewSimulator(cfg.Video.TempDir, logger.Named("video")),
		Images:          llm.NewImageGenerator(llm.ImagesConfig{APIKey: cfg.Images.OpenAIKey, BaseURL: cfg.Images.BaseURL, Model: cfg.Images.Model}),
		Reporter:        reporter,
		MaxUploadBytes:  cfg.API.MaxUploadBytes,
		CORSAllowOrigin: cfg.API.CORSAllowOrigin,
		SubjectHeader:   cfg.RateLimit.SubjectHeader,
		Backend:         pipeline.Backend(),
	}

	chat, err := llm.NewChatClient(llm.ChatConfig{
		Provider:     cfg.Chat.Provider,
		APIKey:       cfg.Chat.APIKey,
		BaseURL:      cfg.Chat.BaseURL,
		Model:        cfg.Chat.Model,
		SystemPrompt: cfg.Chat.SystemPrompt,
		MaxTokens:    cfg.Chat.MaxTokens,
		Timeout:      cfg.Chat.Timeout,
	})
	if err != nil {
		logger.Warnw("chat disabled", "error", err)
	} else {
		opts.Chat = chat
	}

	var objectStore storage.Uploader
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(storage.Config{
			Endpoint:      cfg.Storage.Endpoint,
			Access:        cfg.Storage.AccessKey,
			Secret:        cfg.Storage.SecretKey,
			Bucket:        cfg.Storage.Bucket,
			UseSSL:        cfg.Storage.UseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return err
		}
		objectStore = client
		logger.Infow("object storage enabled", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	}
	opts.Uploads = storage.NewService(
		storage.NewFetcher(cfg.API.MaxUploadBytes),
		storage.SupabaseDefaults{URL: cfg.Supabase.URL, Key: cfg.Supabase.Key()},
		objectStore,
	)

	if cfg.Database.DSN != "" {
		usage, err := store.NewPostgresUsageStore(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer usage.Close()
		opts.Usage = usage
		logger.Infow("usage store", "backend", "postgres")
	} else {
		opts.Usage = store.NewMemoryUsageStore()
		logger.Infow("usage store", "backend", "memory")
	}

	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer redisClient.Close()

		limiter, err := ratelimit.NewTokenBucket(redisClient, ratelimit.Config{
			Capacity: cfg.RateLimit.Capacity,
			Window:   cfg.RateLimit.Window,
		})
		if err != nil {
			return err
		}
		opts.RateLimiter = limiter
		logger.Infow("rate limiting enabled", "capacity", cfg.RateLimit.Capacity, "window", cfg.RateLimit.Window.String())
	}

	if cfg.Queue.Enabled && cfg.Webhook.URL != "" {
		queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
		defer func() {
			if err := queueClient.Close(); err != nil {
				logger.Warnw("queue client close failed", "error", err)
			}
		}()
		opts.Notifier = queue.NewWebhookNotifier(queueClient, cfg.Webhook.URL)
		logger.Infow("webhook notifications enabled", "queue", cfg.Queue.Name)
	}

	app, err := api.NewServer(opts)
	if err != nil {
		return err
	}

	// Chat streams and simulated conversions outlive a short write timeout.
	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infow("listening", "addr", cfg.API.Addr, "image_backend", pipeline.Backend())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Infow("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
	return nil
}
