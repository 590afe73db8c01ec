package main

import (
	"os"

	"github.com/dunamismax/launchpad/internal/config"
	"github.com/dunamismax/launchpad/internal/llm"
	"github.com/dunamismax/launchpad/internal/logging"
	"github.com/dunamismax/launchpad/internal/mcpserver"
	"github.com/dunamismax/launchpad/internal/pipeline"
	"github.com/dunamismax/launchpad/internal/storage"
)

var version = "dev"

func main() {
	cfg := config.Load()
	// zap writes to stderr; stdout carries the protocol.
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, "mcp")
	if err != nil {
		panic(err)
	}
	defer logging.Sync(logger)

	if err := pipeline.Startup(); err != nil {
		logger.Fatalw("start image pipeline", "error", err)
	}
	defer pipeline.Shutdown()

	converter, err := pipeline.NewConverter(cfg.Converter.Concurrency)
	if err != nil {
		logger.Fatalw("build converter", "error", err)
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
			logger.Fatalw("build object store", "error", err)
		}
		objectStore = client
	}
	fetcher := storage.NewFetcher(cfg.API.MaxUploadBytes)

	srv, err := mcpserver.New(mcpserver.Deps{
		Logger:    logger,
		Images:    llm.NewImageGenerator(llm.ImagesConfig{APIKey: cfg.Images.OpenAIKey, BaseURL: cfg.Images.BaseURL, Model: cfg.Images.Model}),
		Converter: converter,
		Fetcher:   fetcher,
		Uploads:   storage.NewService(fetcher, storage.SupabaseDefaults{URL: cfg.Supabase.URL, Key: cfg.Supabase.Key()}, objectStore),
		Config:    cfg,
		Backend:   pipeline.Backend(),
		Version:   version,
	})
	if err != nil {
		logger.Fatalw("build mcp server", "error", err)
	}

	logger.Infow("serving mcp over stdio", "image_backend", pipeline.Backend())
	if err := srv.ServeStdio(); err != nil {
		logger.Errorw("mcp server stopped", "error", err)
		logging.Sync(logger)
		os.Exit(1)
	}
}
