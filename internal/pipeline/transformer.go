package pipeline

import (
	"context"
	"errors"

	"github.com/dunamismax/launchpad/internal/domain"
)

var ErrInvalidDimensions = errors.New("source image has invalid dimensions")

// Transformer decodes input, shrinks it to opts.MaxWidth when wider, and
// re-encodes it as opts.Format. opts must already be normalized.
type Transformer interface {
	Transform(ctx context.Context, input []byte, opts domain.ConvertOptions) ([]byte, error)
}

// scaledHeight keeps the aspect ratio when shrinking srcW to width.
func scaledHeight(srcW, srcH, width int) int {
	h := int(float64(srcH)*float64(width)/float64(srcW) + 0.5)
	if h < 1 {
		return 1
	}
	return h
}
