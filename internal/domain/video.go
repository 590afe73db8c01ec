package domain

import "strings"

const (
	VideoQualityLow    = "low"
	VideoQualityMedium = "medium"
	VideoQualityHigh   = "high"

	SimulatedDuration = "00:00:30"
)

var (
	allowedVideoInputTypes = map[string]struct{}{
		"video/mp4":       {},
		"video/mov":       {},
		"video/quicktime": {},
	}
	allowedVideoOutputFormats = map[string]struct{}{
		"webm": {},
		"gif":  {},
		"mp4":  {},
		"mov":  {},
	}
	videoContentTypes = map[string]string{
		".webm": "video/webm",
		".gif":  "image/gif",
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
	}
)

// QualityPreset is the advertised encoder setting for a quality level.
type QualityPreset struct {
	Bitrate    string
	Resolution string
}

var videoQualityPresets = map[string]QualityPreset{
	VideoQualityLow:    {Bitrate: "500k", Resolution: "480:-1"},
	VideoQualityMedium: {Bitrate: "1M", Resolution: "720:-1"},
	VideoQualityHigh:   {Bitrate: "2M", Resolution: "1080:-1"},
}

// PresetForQuality falls back to the medium preset for unknown levels.
func PresetForQuality(quality string) QualityPreset {
	if preset, ok := videoQualityPresets[quality]; ok {
		return preset
	}
	return videoQualityPresets[VideoQualityMedium]
}

func IsAllowedVideoInputType(contentType string) bool {
	_, ok := allowedVideoInputTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ok
}

func IsAllowedVideoOutputFormat(format string) bool {
	_, ok := allowedVideoOutputFormats[format]
	return ok
}

// DownloadContentType returns the content type for a downloadable file name
// and whether its extension is on the allow-list.
func DownloadContentType(filename string) (string, bool) {
	for ext, contentType := range videoContentTypes {
		if strings.HasSuffix(filename, ext) {
			return contentType, true
		}
	}
	return "", false
}

type VideoUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type OriginalVideo struct {
	Name     string `json:"name"`
	Size     int    `json:"size"`
	Type     string `json:"type"`
	Duration string `json:"duration"`
}

type ConvertedVideo struct {
	Format         string `json:"format"`
	Quality        string `json:"quality"`
	EstimatedSize  int    `json:"estimatedSize"`
	Bitrate        string `json:"bitrate"`
	Resolution     string `json:"resolution"`
	ProcessingTime string `json:"processingTime"`
}

type VideoConversionResult struct {
	Success       bool           `json:"success"`
	OriginalFile  OriginalVideo  `json:"originalFile"`
	ConvertedFile ConvertedVideo `json:"convertedFile"`
	DownloadURL   string         `json:"downloadUrl"`
	Message       string         `json:"message"`
}
