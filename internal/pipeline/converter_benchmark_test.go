package pipeline

import (
	"context"
	"testing"

	"github.com/dunamismax/launchpad/internal/domain"
)

func BenchmarkConvertJPEG(b *testing.B) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 1)
	src := sourcePNG(b, "bench.png", 1920, 1080)
	opts := domain.ConvertOptions{Format: "jpeg", Quality: 82, MaxWidth: 640}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := converter.Convert(context.Background(), src, opts); err != nil {
			b.Fatalf("convert: %v", err)
		}
	}
}

func BenchmarkConvertBatchWebP(b *testing.B) {
	converter := newConverterWithTransformer(stdlibTransformer{}, 4)
	sources := make([]domain.SourceImage, 4)
	for i := range sources {
		sources[i] = sourcePNG(b, "bench.png", 800, 600)
	}
	opts := domain.ConvertOptions{Format: "webp", MaxWidth: 400}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := converter.ConvertBatch(context.Background(), sources, opts); err != nil {
			b.Fatalf("convert batch: %v", err)
		}
	}
}
