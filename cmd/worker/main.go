package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dunamismax/launchpad/internal/config"
	"github.com/dunamismax/launchpad/internal/logging"
	"github.com/dunamismax/launchpad/internal/telemetry"
	"github.com/dunamismax/launchpad/internal/video"
	"github.com/dunamismax/launchpad/internal/webhook"
	"github.com/dunamismax/launchpad/internal/worker"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, "worker")
	if err != nil {
		panic(err)
	}
	defer logging.Sync(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("worker failed", "error", err)
	}
}

func run(cfg config.Config, logger *zap.SugaredLogger) error {
	shutdownTracing, err := telemetry.SetupTracing(context.Background(), telemetry.TraceConfig{
		ServiceName:    cfg.Telemetry.ServiceName + "-worker",
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
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warnw("tracing shutdown failed", "error", err)
		}
	}()

	webhooks := webhook.NewClient(webhook.Config{
		SigningSecret:  cfg.Webhook.SigningSecret,
		Timeout:        cfg.Webhook.Timeout,
		MaxAttempts:    cfg.Webhook.MaxAttempts,
		InitialBackoff: cfg.Webhook.InitialBackoff,
		MaxBackoff:     cfg.Webhook.MaxBackoff,
	})
	if cfg.Webhook.SigningSecret == "" {
		logger.Warnw("webhook signing secret not set; deliveries will be unsigned")
	}

	srv, err := worker.NewServer(
		logger,
		cfg.Queue,
		cfg.Worker,
		cfg.Video.Retention,
		webhooks,
		video.NewSimulator(cfg.Video.TempDir, logger.Named("video")),
	)
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           srv.MetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server failed", "error", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(ctx)
	}()

	logger.Infow("starting worker",
		"concurrency", cfg.Worker.Concurrency,
		"queue", cfg.Queue.Name,
		"redis", cfg.Queue.RedisAddr,
		"sweep_every", cfg.Worker.SweepInterval.String(),
		"metrics_addr", cfg.Worker.MetricsAddr,
	)
	return srv.Run()
}
