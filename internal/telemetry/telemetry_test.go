package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TraceConfig{ServiceName: "launchpad", Exporter: "none"}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("setup tracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := SetupTracing(context.Background(), TraceConfig{Exporter: "jaeger"}, zap.NewNop().Sugar()); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
	if _, err := SetupTracing(context.Background(), TraceConfig{Exporter: "otlp"}, zap.NewNop().Sugar()); err == nil {
		t.Fatal("expected error for otlp without endpoint")
	}
}

func TestErrorReporterWithoutDSN(t *testing.T) {
	reporter, err := SetupErrorReporting(ErrorReportingConfig{})
	if err != nil {
		t.Fatalf("setup error reporting: %v", err)
	}
	if reporter.Enabled() {
		t.Fatal("expected reporter to be disabled without a DSN")
	}
	reporter.Capture(context.Background(), errors.New("boom"), map[string]string{"route": "/api/chat"})
	reporter.Flush()

	var nilReporter *ErrorReporter
	nilReporter.Capture(context.Background(), errors.New("boom"), nil)
}
