package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dunamismax/launchpad/internal/config"
	"github.com/dunamismax/launchpad/internal/queue"
	"github.com/dunamismax/launchpad/internal/webhook"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
)

type webhookDeliverer interface {
	Deliver(ctx context.Context, endpoint string, event webhook.Event) error
}

type downloadSweeper interface {
	Sweep(cutoff time.Time) (int, error)
}

type Server struct {
	logger        *zap.SugaredLogger
	server        *asynq.Server
	scheduler     *asynq.Scheduler
	queueName     string
	webhooks      webhookDeliverer
	sweeper       downloadSweeper
	retention     time.Duration
	sweepInterval time.Duration
	metrics       *metrics
	tracer        trace.Tracer
	now           func() time.Time
}

func NewServer(
	logger *zap.SugaredLogger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	retention time.Duration,
	webhooks webhookDeliverer,
	sweeper downloadSweeper,
) (*Server, error) {
	if webhooks == nil {
		return nil, errors.New("webhook client is required")
	}
	if sweeper == nil {
		return nil, errors.New("download sweeper is required")
	}

	s := &Server{
		logger:        logger,
		queueName:     queueCfg.Name,
		webhooks:      webhooks,
		sweeper:       sweeper,
		retention:     retention,
		sweepInterval: workerCfg.SweepInterval,
		metrics:       newMetrics(),
		tracer:        otel.Tracer("launchpad/worker"),
		now:           time.Now,
	}

	s.server = asynq.NewServer(
		queueCfg.RedisClientOpt(),
		asynq.Config{
			Concurrency: max(1, workerCfg.Concurrency),
			Queues: map[string]int{
				queueCfg.Name: 1,
			},
			Logger:   logger,
			LogLevel: asynq.InfoLevel,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Errorw("task failed", "type", task.Type(), "retry", retried, "max_retry", maxRetry, "error", err)
			}),
		},
	)
	s.scheduler = asynq.NewScheduler(queueCfg.RedisClientOpt(), &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   logger,
		LogLevel: asynq.InfoLevel,
	})
	return s, nil
}

// Run registers the periodic sweep and blocks until the asynq server stops.
func (s *Server) Run() error {
	if s.retention > 0 && s.sweepInterval > 0 {
		task, err := queue.NewSweepDownloadsTask(s.retention)
		if err != nil {
			return err
		}
		spec := fmt.Sprintf("@every %s", s.sweepInterval)
		if _, err := s.scheduler.Register(spec, task, asynq.Queue(s.queueName), asynq.Unique(s.sweepInterval)); err != nil {
			return fmt.Errorf("register sweep schedule: %w", err)
		}
		if err := s.scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer s.scheduler.Shutdown()
		s.logger.Infow("download sweep scheduled", "every", s.sweepInterval.String(), "retention", s.retention.String())
	}

	return s.server.Run(s.Mux())
}

func (s *Server) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeDeliverWebhook, s.handleDeliverWebhook)
	mux.HandleFunc(queue.TypeSweepDownloads, s.handleSweepDownloads)
	return mux
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleDeliverWebhook(ctx context.Context, task *asynq.Task) error {
	startedAt := s.now()
	outcome := outcomeFailed
	defer func() {
		s.metrics.observe(queue.TypeDeliverWebhook, outcome, s.now().Sub(startedAt))
	}()

	payload, err := queue.ParseDeliverWebhookPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.deliver_webhook", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("webhook.event", payload.Event.Type),
		attribute.String("webhook.delivery", payload.Event.ID),
	)
	defer span.End()

	if err := s.webhooks.Deliver(ctx, payload.URL, payload.Event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		s.logger.Errorw("webhook delivery failed", "event", payload.Event.Type, "delivery", payload.Event.ID, "error", err)

		var permanent *webhook.PermanentError
		if errors.As(err, &permanent) {
			return fmt.Errorf("deliver webhook: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("deliver webhook: %w", err)
	}

	s.logger.Infow("webhook delivered", "event", payload.Event.Type, "delivery", payload.Event.ID, "lag", s.now().Sub(payload.RequestedAt).String())
	outcome = outcomeSucceeded
	span.SetStatus(codes.Ok, "delivered")
	return nil
}

func (s *Server) handleSweepDownloads(ctx context.Context, task *asynq.Task) error {
	startedAt := s.now()
	outcome := outcomeFailed
	defer func() {
		s.metrics.observe(queue.TypeSweepDownloads, outcome, s.now().Sub(startedAt))
	}()

	payload, err := queue.ParseSweepDownloadsPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	_, span := s.tracer.Start(ctx, "worker.sweep_downloads", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	removed, err := s.sweeper.Sweep(s.now().Add(-payload.Retention()))
	s.metrics.sweptFilesTotal.Add(float64(removed))
	span.SetAttributes(attribute.Int("sweep.removed", removed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sweep failed")
		return fmt.Errorf("sweep downloads: %w", err)
	}

	if removed > 0 {
		s.logger.Infow("swept expired downloads", "removed", removed, "retention", payload.Retention().String())
	}
	outcome = outcomeSucceeded
	return nil
}
