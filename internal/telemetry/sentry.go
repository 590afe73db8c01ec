package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

const FlushTime = 2 * time.Second

type ErrorReportingConfig struct {
	DSN         string
	Environment string
	Release     string
}

// ErrorReporter forwards server-side failures to Sentry. The zero value and
// a reporter built without a DSN drop every event.
type ErrorReporter struct {
	enabled bool
}

func SetupErrorReporting(cfg ErrorReportingConfig) (*ErrorReporter, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return &ErrorReporter{}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return &ErrorReporter{enabled: true}, nil
}

func (r *ErrorReporter) Enabled() bool {
	return r != nil && r.enabled
}

// Capture reports err with tags attached to a scope local to this event.
func (r *ErrorReporter) Capture(ctx context.Context, err error, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

func (r *ErrorReporter) Flush() {
	if r.Enabled() {
		sentry.Flush(FlushTime)
	}
}
