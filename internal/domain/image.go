package domain

import "strings"

const (
	FormatWebP = "webp"
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"

	DefaultImageFormat = FormatWebP
	DefaultQuality     = 85
	DefaultMaxWidth    = 1920
)

// ConvertOptions are the batch-wide settings applied to every image.
type ConvertOptions struct {
	Format   string `json:"format"`
	Quality  int    `json:"quality"`
	MaxWidth int    `json:"maxWidth"`
}

// Normalize resolves defaults. Unknown formats fall back to webp and quality
// is clamped into 1..100.
func (o ConvertOptions) Normalize() ConvertOptions {
	o.Format = NormalizeImageFormat(o.Format)
	switch {
	case o.Quality == 0:
		o.Quality = DefaultQuality
	case o.Quality < 1:
		o.Quality = 1
	case o.Quality > 100:
		o.Quality = 100
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	return o
}

func NormalizeImageFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "gif":
		return FormatGIF
	default:
		return FormatWebP
	}
}

// SupportsQuality reports whether the encoder for format honors a quality setting.
func SupportsQuality(format string) bool {
	switch NormalizeImageFormat(format) {
	case FormatJPEG, FormatWebP:
		return true
	default:
		return false
	}
}

func ImageContentType(format string) string {
	return "image/" + NormalizeImageFormat(format)
}

// SourceImage is one uploaded file of a batch.
type SourceImage struct {
	Name string
	Size int64
	Data []byte
}

// ImageConversionResult is the per-image response item of the converter.
type ImageConversionResult struct {
	ID            string `json:"id"`
	OriginalName  string `json:"originalName"`
	OriginalSize  int64  `json:"originalSize"`
	ProcessedSize int    `json:"processedSize"`
	Format        string `json:"format"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	URL           string `json:"url"`
	Base64        string `json:"base64"`
}
