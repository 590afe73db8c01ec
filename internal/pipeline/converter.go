package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/dunamismax/launchpad/internal/id"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Converter runs the decode → fit → encode → measure pipeline over a batch.
type Converter struct {
	transformer Transformer
	concurrency int
	newID       func() string
	tracer      trace.Tracer
}

// BatchStats summarizes one converted batch for usage accounting.
type BatchStats struct {
	Items           int
	PixelsProcessed int64
	BytesIn         int64
	BytesOut        int64
	Duration        time.Duration
}

func NewConverter(concurrency int) (*Converter, error) {
	transformer, err := newTransformer()
	if err != nil {
		return nil, fmt.Errorf("build transformer: %w", err)
	}
	return newConverterWithTransformer(transformer, concurrency), nil
}

func newConverterWithTransformer(transformer Transformer, concurrency int) *Converter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Converter{
		transformer: transformer,
		concurrency: concurrency,
		newID:       id.Short,
		tracer:      otel.Tracer("launchpad/pipeline"),
	}
}

// ConvertBatch converts every image with the same options. Results keep the
// input order. The first failure cancels the remaining work and no partial
// results are returned.
func (c *Converter) ConvertBatch(ctx context.Context, images []domain.SourceImage, opts domain.ConvertOptions) ([]domain.ImageConversionResult, BatchStats, error) {
	startedAt := time.Now()
	opts = opts.Normalize()
	results := make([]domain.ImageConversionResult, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, img := range images {
		g.Go(func() error {
			res, err := c.Convert(gctx, img, opts)
			if err != nil {
				return fmt.Errorf("image %d (%s): %w", i, img.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, BatchStats{}, err
	}

	stats := BatchStats{Items: len(results), Duration: time.Since(startedAt)}
	for i, res := range results {
		stats.PixelsProcessed += int64(res.Width) * int64(res.Height)
		stats.BytesIn += int64(len(images[i].Data))
		stats.BytesOut += int64(res.ProcessedSize)
	}
	return results, stats, nil
}

// Convert runs the pipeline for a single image. opts are normalized here as
// well so callers outside a batch get the same defaults.
func (c *Converter) Convert(ctx context.Context, src domain.SourceImage, opts domain.ConvertOptions) (domain.ImageConversionResult, error) {
	opts = opts.Normalize()

	ctx, span := c.tracer.Start(ctx, "pipeline.convert")
	span.SetAttributes(
		attribute.String("image.name", src.Name),
		attribute.Int("image.input_bytes", len(src.Data)),
		attribute.String("image.format", opts.Format),
		attribute.Int("image.max_width", opts.MaxWidth),
	)
	defer span.End()

	output, err := c.transformer.Transform(ctx, src.Data, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transform failed")
		return domain.ImageConversionResult{}, fmt.Errorf("transform: %w", err)
	}

	width, height, err := measure(output)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "measure failed")
		return domain.ImageConversionResult{}, err
	}
	span.SetAttributes(attribute.Int("image.output_bytes", len(output)))

	payload := base64.StdEncoding.EncodeToString(output)
	return domain.ImageConversionResult{
		ID:            c.newID(),
		OriginalName:  src.Name,
		OriginalSize:  src.Size,
		ProcessedSize: len(output),
		Format:        opts.Format,
		Width:         width,
		Height:        height,
		URL:           InlineURL(opts.Format, payload),
		Base64:        payload,
	}, nil
}

// measure reads the dimensions back from the encoded output.
func measure(output []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(output))
	if err != nil {
		return 0, 0, fmt.Errorf("measure output: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// InlineURL builds the data URI the browser renders directly.
func InlineURL(format, base64Payload string) string {
	return "data:" + domain.ImageContentType(format) + ";base64," + base64Payload
}
