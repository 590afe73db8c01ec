package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBatchPreservesOrderAndCount(t *testing.T) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 3)

	sources := []domain.SourceImage{
		sourcePNG(t, "a.png", 40, 20),
		sourcePNG(t, "b.png", 60, 30),
		sourcePNG(t, "c.png", 80, 40),
		sourcePNG(t, "d.png", 10, 10),
	}

	results, stats, err := converter.ConvertBatch(context.Background(), sources, domain.ConvertOptions{Format: "png"})
	require.NoError(t, err)
	require.Len(t, results, len(sources))

	for i, res := range results {
		assert.Equal(t, sources[i].Name, res.OriginalName)
		assert.Equal(t, sources[i].Size, res.OriginalSize)
		assert.Equal(t, domain.FormatPNG, res.Format)
		assert.NotEmpty(t, res.Base64)
		assert.NotEmpty(t, res.ID)
	}
	assert.Equal(t, 40, results[0].Width)
	assert.Equal(t, 20, results[0].Height)
	assert.Equal(t, 80, results[2].Width)
	assert.Equal(t, 4, stats.Items)
	assert.Equal(t, int64(40*20+60*30+80*40+10*10), stats.PixelsProcessed)
}

func TestConvertBatchEmpty(t *testing.T) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 2)

	results, stats, err := converter.ConvertBatch(context.Background(), nil, domain.ConvertOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, stats.Items)
}

func TestConvertShrinksToMaxWidth(t *testing.T) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 1)

	res, err := converter.Convert(context.Background(), sourcePNG(t, "wide.png", 400, 200), domain.ConvertOptions{
		Format:   "jpeg",
		Quality:  70,
		MaxWidth: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)
	assert.True(t, strings.HasPrefix(res.URL, "data:image/jpeg;base64,"))
}

func TestConvertKeepsNarrowImages(t *testing.T) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 1)

	res, err := converter.Convert(context.Background(), sourcePNG(t, "small.png", 64, 48), domain.ConvertOptions{
		Format:   "png",
		MaxWidth: 1920,
	})
	require.NoError(t, err)
	assert.Equal(t, 64, res.Width)
	assert.Equal(t, 48, res.Height)
}

func TestConvertUnknownFormatFallsBackToWebP(t *testing.T) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 1)

	res, err := converter.Convert(context.Background(), sourcePNG(t, "x.png", 32, 16), domain.ConvertOptions{Format: "avif"})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatWebP, res.Format)
	assert.True(t, strings.HasPrefix(res.URL, "data:image/webp;base64,"))
	assert.Equal(t, 32, res.Width)
	assert.Equal(t, 16, res.Height)
}

func TestConvertGIF(t *testing.T) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 1)

	res, err := converter.Convert(context.Background(), sourcePNG(t, "anim.png", 24, 24), domain.ConvertOptions{Format: "gif", Quality: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatGIF, res.Format)
	assert.Equal(t, res.ProcessedSize, len(mustDecodeBase64(t, res.Base64)))
}

func TestConvertBatchAbortsOnCorruptInput(t *testing.T) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 2)

	sources := []domain.SourceImage{
		sourcePNG(t, "ok.png", 16, 16),
		{Name: "broken.png", Size: 5, Data: []byte("nope!")},
	}

	results, _, err := converter.ConvertBatch(context.Background(), sources, domain.ConvertOptions{Format: "png"})
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "broken.png")
}

func TestConvertBatchRespectsConcurrencyLimit(t *testing.T) {
	tracker := &trackingTransformer{inner: stdlibTransformer{}}
	converter := newConverterWithTransformer(tracker, 2)

	sources := make([]domain.SourceImage, 8)
	for i := range sources {
		sources[i] = sourcePNG(t, "img.png", 8, 8)
	}

	_, _, err := converter.ConvertBatch(context.Background(), sources, domain.ConvertOptions{Format: "png"})
	require.NoError(t, err)
	assert.LessOrEqual(t, tracker.peak.Load(), int64(2))
	assert.Equal(t, int64(8), tracker.calls.Load())
}

func TestConvertCancelledContext(t *testing.T) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := converter.Convert(ctx, sourcePNG(t, "a.png", 8, 8), domain.ConvertOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

type trackingTransformer struct {
	inner  Transformer
	active atomic.Int64
	peak   atomic.Int64
	calls  atomic.Int64
}

func (t *trackingTransformer) Transform(ctx context.Context, input []byte, opts domain.ConvertOptions) ([]byte, error) {
	t.calls.Add(1)
	n := t.active.Add(1)
	defer t.active.Add(-1)
	for {
		peak := t.peak.Load()
		if n <= peak || t.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return t.inner.Transform(ctx, input, opts)
}

func sourcePNG(t testing.TB, name string, w, h int) domain.SourceImage {
	t.Helper()
	data := gradientPNG(t, w, h)
	return domain.SourceImage{Name: name, Size: int64(len(data)), Data: data}
}

func gradientPNG(t testing.TB, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}

func mustDecodeBase64(t testing.TB, payload string) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	return data
}
