package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
)

const multipartMemory = 32 << 20

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateImageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, apperror.InvalidInput("Invalid request body", err))
		return
	}

	image, err := s.images.Generate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, orInternal(err, "Failed to generate image"))
		return
	}
	writeJSON(w, http.StatusOK, image)
}

func (s *Server) handleImageConverter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, apperror.InvalidInput("Invalid multipart form", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	sources := make([]domain.SourceImage, 0, len(headers))
	for _, fh := range headers {
		data, err := readFilePart(fh)
		if err != nil {
			s.writeError(w, r, apperror.InvalidInput("Failed to read uploaded image", err))
			return
		}
		sources = append(sources, domain.SourceImage{Name: fh.Filename, Size: fh.Size, Data: data})
	}

	opts := domain.ConvertOptions{
		Format:   r.FormValue("format"),
		Quality:  formInt(r, "quality"),
		MaxWidth: formInt(r, "maxWidth"),
	}.Normalize()

	results, stats, err := s.converter.ConvertBatch(r.Context(), sources, opts)
	if err != nil {
		s.writeError(w, r, apperror.Internal("Failed to process images", err))
		return
	}

	if results == nil {
		results = []domain.ImageConversionResult{}
	}
	if len(results) > 0 {
		s.metrics.imagesConverted.WithLabelValues(opts.Format).Add(float64(len(results)))
		if saved := stats.BytesIn - stats.BytesOut; saved > 0 {
			s.metrics.bytesSaved.Add(float64(saved))
		}
		s.recordUsage(r, domain.UsageLog{
			Operation:       domain.UsageOperationImageConvert,
			Items:           int(stats.Items),
			PixelsProcessed: stats.PixelsProcessed,
			BytesIn:         stats.BytesIn,
			BytesOut:        stats.BytesOut,
			BytesSaved:      stats.BytesIn - stats.BytesOut,
			ComputeTimeMS:   time.Since(start).Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, results)
}

func readFilePart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// formInt reads an optional integer field; anything unparsable means "use the default".
func formInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0
	}
	return v
}

func (s *Server) recordUsage(r *http.Request, entry domain.UsageLog) {
	entry.Subject = strings.TrimSpace(r.Header.Get(s.subjectHeader))
	entry.RequestID = requestIDFrom(r.Context())
	entry = entry.Normalize(time.Now())
	if err := s.usage.CreateUsageLog(r.Context(), entry); err != nil {
		s.logger.Warnw("record usage", "operation", entry.Operation, "request_id", entry.RequestID, "error", err)
	}
}

// notify hands an event to the notifier. Delivery problems never fail the request.
func (s *Server) notify(r *http.Request, eventType string, data any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(r.Context(), eventType, data); err != nil {
		s.logger.Warnw("notify", "event", eventType, "request_id", requestIDFrom(r.Context()), "error", err)
		return
	}
	s.metrics.webhooksEnqueued.WithLabelValues(eventType).Inc()
}
