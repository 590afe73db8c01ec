package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry          *prometheus.Registry
	requestTotal      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	rateLimitRejected *prometheus.CounterVec
	imagesConverted   *prometheus.CounterVec
	bytesSaved        prometheus.Counter
	videoConversions  *prometheus.CounterVec
	uploadsTotal      *prometheus.CounterVec
	webhooksEnqueued  *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_api_requests_total",
			Help: "Total HTTP requests handled by the API.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "launchpad_api_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_api_rate_limit_rejections_total",
			Help: "Total API requests rejected by rate limiting.",
		}, []string{"route"}),
		imagesConverted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_images_converted_total",
			Help: "Images converted by output format.",
		}, []string{"format"}),
		bytesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_images_bytes_saved_total",
			Help: "Bytes saved by image conversion across successful batches.",
		}),
		videoConversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_video_conversions_total",
			Help: "Simulated video conversions by output format.",
		}, []string{"format"}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_uploads_total",
			Help: "Storage uploads by backend and outcome.",
		}, []string{"backend", "outcome"}),
		webhooksEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_webhooks_enqueued_total",
			Help: "Webhook deliveries handed to the queue by event.",
		}, []string{"event"}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.rateLimitRejected,
		m.imagesConverted,
		m.bytesSaved,
		m.videoConversions,
		m.uploadsTotal,
		m.webhooksEnqueued,
	)
	return m
}

func (m *metrics) metricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := newStatusRecorder(w)
		next.ServeHTTP(recorder, r)

		route := routeLabel(r.URL.Path)
		status := strconv.Itoa(recorder.status)

		m.requestTotal.WithLabelValues(r.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

var knownRoutes = map[string]struct{}{
	"/":                    {},
	"/healthz":             {},
	"/metrics":             {},
	"/api/chat":            {},
	"/api/generate-image":  {},
	"/api/image-converter": {},
	"/api/upload-supabase": {},
	"/api/video-converter": {},
	"/api/usage":           {},
}

// routeLabel keeps metric and span names bounded.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/api/download/") {
		return "/api/download/{filename}"
	}
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	if !r.wroteHeader {
		r.status = statusCode
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Flush keeps streamed chat responses flowing through the wrappers.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
