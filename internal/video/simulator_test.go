package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(t *testing.T) (*Simulator, *[]time.Duration) {
	t.Helper()
	sim := NewSimulator(t.TempDir(), nil)
	var slept []time.Duration
	sim.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	sim.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return sim, &slept
}

func TestConvertEchoesFormatAndSize(t *testing.T) {
	sim, slept := newTestSimulator(t)
	data := make([]byte, 2_500_000)

	res, err := sim.Convert(context.Background(), domain.VideoUpload{
		Name:        "clip.mp4",
		ContentType: "video/mp4",
		Data:        data,
	}, "webm", "high")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "webm", res.ConvertedFile.Format)
	assert.Equal(t, len(data), res.OriginalFile.Size)
	assert.Equal(t, "video/mp4", res.OriginalFile.Type)
	assert.Equal(t, domain.SimulatedDuration, res.OriginalFile.Duration)
	assert.Equal(t, 1_500_000, res.ConvertedFile.EstimatedSize)
	assert.Equal(t, "2M", res.ConvertedFile.Bitrate)
	assert.Equal(t, "1080:-1", res.ConvertedFile.Resolution)
	assert.Equal(t, "2.5s", res.ConvertedFile.ProcessingTime)
	assert.Equal(t, "/api/download/video-1700000000123.webm", res.DownloadURL)
	assert.Equal(t, "Video successfully converted to WEBM", res.Message)
	assert.Equal(t, []time.Duration{2500 * time.Millisecond}, *slept)

	stored, err := os.ReadFile(filepath.Join(sim.dir, "video-1700000000123.webm"))
	require.NoError(t, err)
	assert.Len(t, stored, len(data))
}

func TestConvertUnknownQualityUsesMediumPreset(t *testing.T) {
	sim, _ := newTestSimulator(t)

	res, err := sim.Convert(context.Background(), domain.VideoUpload{
		Name:        "clip.mov",
		ContentType: "video/quicktime",
		Data:        []byte("abc"),
	}, "gif", "ultra")
	require.NoError(t, err)
	assert.Equal(t, "ultra", res.ConvertedFile.Quality)
	assert.Equal(t, "1M", res.ConvertedFile.Bitrate)
	assert.Equal(t, "720:-1", res.ConvertedFile.Resolution)
	assert.Equal(t, 2, res.ConvertedFile.EstimatedSize)
	assert.Equal(t, "1.0s", res.ConvertedFile.ProcessingTime)
}

func TestConvertRejectsInvalidInput(t *testing.T) {
	sim, slept := newTestSimulator(t)

	_, err := sim.Convert(context.Background(), domain.VideoUpload{Name: "a.avi", ContentType: "video/x-msvideo", Data: []byte("x")}, "webm", "")
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidInput, apperror.As(err).Kind)

	_, err = sim.Convert(context.Background(), domain.VideoUpload{Name: "a.mp4", ContentType: "video/mp4", Data: []byte("x")}, "mkv", "")
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidInput, apperror.As(err).Kind)

	_, err = sim.Convert(context.Background(), domain.VideoUpload{Name: "a.bin", ContentType: "application/octet-stream", Data: []byte("plain text")}, "webm", "")
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidInput, apperror.As(err).Kind)

	assert.Empty(t, *slept)
}

func TestConvertStopsWhenContextEnds(t *testing.T) {
	sim := NewSimulator(t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Convert(ctx, domain.VideoUpload{Name: "a.mp4", ContentType: "video/mp4", Data: []byte("x")}, "mp4", "low")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOpen(t *testing.T) {
	sim, _ := newTestSimulator(t)
	require.NoError(t, os.WriteFile(filepath.Join(sim.dir, "video-1.gif"), []byte("GIF89a"), 0o644))

	dl, err := sim.Open("video-1.gif")
	require.NoError(t, err)
	assert.Equal(t, "image/gif", dl.ContentType)
	assert.Equal(t, []byte("GIF89a"), dl.Data)

	_, err = sim.Open("missing.mp4")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, apperror.KindNotFound, apperror.As(err).Kind)

	for _, name := range []string{"notes.txt", "video-1.gif.exe", "../secret.mp4", "a/b.mov"} {
		_, err := sim.Open(name)
		require.Error(t, err, name)
		assert.Equal(t, apperror.KindInvalidInput, apperror.As(err).Kind, name)
	}
}

func TestSweepRemovesOldOutputs(t *testing.T) {
	sim, _ := newTestSimulator(t)
	oldPath := filepath.Join(sim.dir, "video-1.mp4")
	newPath := filepath.Join(sim.dir, "video-2.mp4")
	otherPath := filepath.Join(sim.dir, "keep.txt")
	for _, p := range []string{oldPath, newPath, otherPath} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))
	require.NoError(t, os.Chtimes(otherPath, past, past))

	removed, err := sim.Sweep(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, newPath)
	assert.FileExists(t, otherPath)
}

func TestSweepMissingDir(t *testing.T) {
	sim := NewSimulator(filepath.Join(t.TempDir(), "absent"), nil)
	removed, err := sim.Sweep(time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestProcessingDelay(t *testing.T) {
	assert.Equal(t, time.Second, ProcessingDelay(0))
	assert.Equal(t, 3*time.Second, ProcessingDelay(3_000_000))
	assert.Equal(t, 10*time.Second, ProcessingDelay(50_000_000))
}
