package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/dunamismax/launchpad/internal/webhook"
)

const demoDownloadMessage = "This is a demo - actual video conversion would store files for download"

func (s *Server) handleVideoConverter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, apperror.InvalidInput("Invalid multipart form", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if errors.Is(err, http.ErrMissingFile) {
		s.writeError(w, r, apperror.InvalidInput("No video file provided", nil))
		return
	}
	if err != nil {
		s.writeError(w, r, apperror.InvalidInput("Failed to read video file", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, apperror.InvalidInput("Failed to read video file", err))
		return
	}

	format := r.FormValue("format")
	result, err := s.videos.Convert(r.Context(), domain.VideoUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, format, r.FormValue("quality"))
	if err != nil {
		s.writeError(w, r, orInternal(err, "Failed to process video file"))
		return
	}

	s.metrics.videoConversions.WithLabelValues(result.ConvertedFile.Format).Inc()
	s.recordUsage(r, domain.UsageLog{
		Operation:     domain.UsageOperationVideoConvert,
		Items:         1,
		BytesIn:       int64(len(data)),
		BytesOut:      int64(result.ConvertedFile.EstimatedSize),
		BytesSaved:    int64(len(data) - result.ConvertedFile.EstimatedSize),
		ComputeTimeMS: time.Since(start).Milliseconds(),
	})
	s.notify(r, webhook.EventVideoConverted, map[string]any{
		"downloadUrl":  result.DownloadURL,
		"format":       result.ConvertedFile.Format,
		"quality":      result.ConvertedFile.Quality,
		"originalName": result.OriginalFile.Name,
		"originalSize": result.OriginalFile.Size,
	})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	download, err := s.videos.Open(filename)
	if err != nil && apperror.As(err).Kind == apperror.KindNotFound {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":    "File not found",
			"message":  demoDownloadMessage,
			"filename": filename,
			"demo":     true,
		})
		return
	}
	if err != nil {
		s.writeError(w, r, orInternal(err, "Failed to download file"))
		return
	}

	h := w.Header()
	h.Set("Content-Type", download.ContentType)
	h.Set("Content-Disposition", `attachment; filename="`+download.Name+`"`)
	h.Set("Content-Length", strconv.Itoa(len(download.Data)))
	h.Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(download.Data)
}
