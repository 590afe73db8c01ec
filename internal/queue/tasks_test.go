package queue

import (
	"testing"
	"time"

	"github.com/dunamismax/launchpad/internal/webhook"
)

func TestDeliverWebhookTaskRoundTrip(t *testing.T) {
	event, err := webhook.NewEvent("evt-123", webhook.EventVideoConverted, time.Now(), map[string]string{
		"downloadUrl": "/api/download/video-1.webm",
	})
	if err != nil {
		t.Fatalf("NewEvent returned error: %v", err)
	}
	payload := DeliverWebhookPayload{
		URL:         "https://hooks.example.com/launchpad",
		Event:       event,
		RequestedAt: time.Now().UTC(),
	}

	task, err := NewDeliverWebhookTask(payload)
	if err != nil {
		t.Fatalf("NewDeliverWebhookTask returned error: %v", err)
	}
	if task.Type() != TypeDeliverWebhook {
		t.Fatalf("expected task type %q, got %q", TypeDeliverWebhook, task.Type())
	}

	parsed, err := ParseDeliverWebhookPayload(task)
	if err != nil {
		t.Fatalf("ParseDeliverWebhookPayload returned error: %v", err)
	}
	if parsed.URL != payload.URL {
		t.Fatalf("expected url %q, got %q", payload.URL, parsed.URL)
	}
	if parsed.Event.ID != "evt-123" || parsed.Event.Type != webhook.EventVideoConverted {
		t.Fatalf("unexpected event: %+v", parsed.Event)
	}
	if string(parsed.Event.Data) != `{"downloadUrl":"/api/download/video-1.webm"}` {
		t.Fatalf("unexpected event data: %s", parsed.Event.Data)
	}
}

func TestSweepDownloadsTask(t *testing.T) {
	task, err := NewSweepDownloadsTask(24 * time.Hour)
	if err != nil {
		t.Fatalf("NewSweepDownloadsTask returned error: %v", err)
	}

	parsed, err := ParseSweepDownloadsPayload(task)
	if err != nil {
		t.Fatalf("ParseSweepDownloadsPayload returned error: %v", err)
	}
	if parsed.Retention() != 24*time.Hour {
		t.Fatalf("expected 24h retention, got %s", parsed.Retention())
	}

	if _, err := NewSweepDownloadsTask(0); err != nil {
		t.Fatalf("NewSweepDownloadsTask returned error: %v", err)
	}
	zero, _ := NewSweepDownloadsTask(0)
	if _, err := ParseSweepDownloadsPayload(zero); err == nil {
		t.Fatal("expected error for zero retention")
	}
}
