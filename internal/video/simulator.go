package video

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	minDelay = time.Second
	maxDelay = 10 * time.Second

	downloadPrefix = "/api/download/"
)

var ErrFileNotFound = errors.New("file not found")

// Simulator pretends to transcode uploads. It waits in proportion to the
// upload size, stores the original bytes under the requested extension and
// reports estimated output figures.
type Simulator struct {
	dir    string
	logger *zap.SugaredLogger
	sleep  func(context.Context, time.Duration) error
	now    func() time.Time
}

func NewSimulator(dir string, logger *zap.SugaredLogger) *Simulator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Simulator{
		dir:    dir,
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

func (s *Simulator) Convert(ctx context.Context, upload domain.VideoUpload, format, quality string) (domain.VideoConversionResult, error) {
	contentType := resolveContentType(upload)
	if !domain.IsAllowedVideoInputType(contentType) {
		return domain.VideoConversionResult{}, apperror.InvalidInput("Invalid file type. Only MP4 and MOV files are supported.", nil)
	}
	if !domain.IsAllowedVideoOutputFormat(format) {
		return domain.VideoConversionResult{}, apperror.InvalidInput("Invalid output format. Supported formats: webm, gif, mp4, mov", nil)
	}
	if strings.TrimSpace(quality) == "" {
		quality = domain.VideoQualityMedium
	}

	size := len(upload.Data)
	delay := ProcessingDelay(size)
	if err := s.sleep(ctx, delay); err != nil {
		return domain.VideoConversionResult{}, fmt.Errorf("simulate conversion: %w", err)
	}

	filename := fmt.Sprintf("video-%d.%s", s.now().UnixMilli(), format)
	if err := s.store(filename, upload.Data); err != nil {
		s.logger.Warnw("video output not stored", "filename", filename, "error", err)
	}

	preset := domain.PresetForQuality(quality)
	return domain.VideoConversionResult{
		Success: true,
		OriginalFile: domain.OriginalVideo{
			Name:     upload.Name,
			Size:     size,
			Type:     contentType,
			Duration: domain.SimulatedDuration,
		},
		ConvertedFile: domain.ConvertedVideo{
			Format:         format,
			Quality:        quality,
			EstimatedSize:  EstimatedSize(size, format),
			Bitrate:        preset.Bitrate,
			Resolution:     preset.Resolution,
			ProcessingTime: fmt.Sprintf("%.1fs", delay.Seconds()),
		},
		DownloadURL: downloadPrefix + filename,
		Message:     "Video successfully converted to " + strings.ToUpper(format),
	}, nil
}

func (s *Simulator) store(filename string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// Download is a stored output ready to be served.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
}

// Open validates filename and reads the stored output. The extension check
// runs before any file system access.
func (s *Simulator) Open(filename string) (Download, error) {
	if strings.TrimSpace(filename) == "" {
		return Download{}, apperror.InvalidInput("Filename is required", nil)
	}
	contentType, ok := domain.DownloadContentType(filename)
	if !ok {
		return Download{}, apperror.InvalidInput("Invalid file type", nil)
	}
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return Download{}, apperror.InvalidInput("Invalid file name", nil)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Download{}, apperror.NotFound("File not found", ErrFileNotFound)
		}
		return Download{}, fmt.Errorf("read %s: %w", filename, err)
	}
	return Download{Name: filename, ContentType: contentType, Data: data}, nil
}

// Sweep removes stored outputs last modified before cutoff and returns how
// many were deleted.
func (s *Simulator) Sweep(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read temp dir: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "video-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// ProcessingDelay is one second per megabyte, clamped to 1..10 seconds.
func ProcessingDelay(size int) time.Duration {
	seconds := math.Min(math.Max(float64(size)/1e6, 1), 10)
	delay := time.Duration(seconds * float64(time.Second))
	return min(max(delay, minDelay), maxDelay)
}

func EstimatedSize(size int, format string) int {
	ratio := 0.6
	if format == "gif" {
		ratio = 0.8
	}
	return int(math.Floor(float64(size) * ratio))
}

// resolveContentType trusts the declared type unless it is missing or
// generic, in which case the bytes are sniffed.
func resolveContentType(upload domain.VideoUpload) string {
	declared := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(upload.Data) == 0 {
		return declared
	}
	detected := mimetype.Detect(upload.Data)
	for m := detected; m != nil; m = m.Parent() {
		if domain.IsAllowedVideoInputType(m.String()) {
			return m.String()
		}
	}
	return detected.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
