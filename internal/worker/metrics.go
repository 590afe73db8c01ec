package worker

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry        *prometheus.Registry
	tasksTotal      *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	sweptFilesTotal prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_worker_tasks_total",
			Help: "Total worker tasks by type and outcome.",
		}, []string{"type", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "launchpad_worker_task_duration_seconds",
			Help:    "Processing duration of worker tasks.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type", "outcome"}),
		sweptFilesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_worker_swept_files_total",
			Help: "Simulated video outputs removed by the retention sweep.",
		}),
	}

	registry.MustRegister(m.tasksTotal, m.taskDuration, m.sweptFilesTotal)
	return m
}

func (m *metrics) observe(taskType, outcome string, elapsed time.Duration) {
	m.tasksTotal.WithLabelValues(taskType, outcome).Inc()
	m.taskDuration.WithLabelValues(taskType, outcome).Observe(elapsed.Seconds())
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
