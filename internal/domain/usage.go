package domain

import "time"

const (
	UsageOperationImageConvert = "image_convert"
	UsageOperationVideoConvert = "video_convert"
)

type UsageLog struct {
	Subject         string    `json:"subject"`
	RequestID       string    `json:"requestId"`
	Operation       string    `json:"operation"`
	Items           int       `json:"items"`
	PixelsProcessed int64     `json:"pixelsProcessed"`
	BytesIn         int64     `json:"bytesIn"`
	BytesOut        int64     `json:"bytesOut"`
	BytesSaved      int64     `json:"bytesSaved"`
	ComputeTimeMS   int64     `json:"computeTimeMs"`
	CreatedAt       time.Time `json:"createdAt"`
}

// UsageTotals aggregates usage logs of one operation.
type UsageTotals struct {
	Operation       string `json:"operation"`
	Requests        int64  `json:"requests"`
	Items           int64  `json:"items"`
	PixelsProcessed int64  `json:"pixelsProcessed"`
	BytesSaved      int64  `json:"bytesSaved"`
	ComputeTimeMS   int64  `json:"computeTimeMs"`
}

type UsageSummary struct {
	Operations []UsageTotals `json:"operations"`
}

// Normalize clamps bytes saved at zero, bills at least one millisecond of
// compute and stamps the creation time.
func (u UsageLog) Normalize(now time.Time) UsageLog {
	if u.BytesSaved < 0 {
		u.BytesSaved = 0
	}
	if u.ComputeTimeMS < 1 {
		u.ComputeTimeMS = 1
	}
	if u.Subject == "" {
		u.Subject = "anonymous"
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now.UTC()
	}
	return u
}
