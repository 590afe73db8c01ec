package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunamismax/launchpad/internal/webhook"
	"github.com/hibiken/asynq"
)

const (
	TypeDeliverWebhook = "webhook:deliver"
	TypeSweepDownloads = "downloads:sweep"
)

type DeliverWebhookPayload struct {
	URL         string        `json:"url"`
	Event       webhook.Event `json:"event"`
	RequestedAt time.Time     `json:"requested_at"`
}

func NewDeliverWebhookTask(payload DeliverWebhookPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}
	return asynq.NewTask(TypeDeliverWebhook, body), nil
}

func ParseDeliverWebhookPayload(task *asynq.Task) (DeliverWebhookPayload, error) {
	var payload DeliverWebhookPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DeliverWebhookPayload{}, fmt.Errorf("unmarshal webhook payload: %w", err)
	}
	return payload, nil
}

// SweepDownloadsPayload asks the worker to delete simulated outputs older
// than RetentionSeconds.
type SweepDownloadsPayload struct {
	RetentionSeconds int64 `json:"retention_seconds"`
}

func (p SweepDownloadsPayload) Retention() time.Duration {
	return time.Duration(p.RetentionSeconds) * time.Second
}

func NewSweepDownloadsTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(SweepDownloadsPayload{RetentionSeconds: int64(retention / time.Second)})
	if err != nil {
		return nil, fmt.Errorf("marshal sweep payload: %w", err)
	}
	return asynq.NewTask(TypeSweepDownloads, body), nil
}

func ParseSweepDownloadsPayload(task *asynq.Task) (SweepDownloadsPayload, error) {
	var payload SweepDownloadsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SweepDownloadsPayload{}, fmt.Errorf("unmarshal sweep payload: %w", err)
	}
	if payload.RetentionSeconds <= 0 {
		return SweepDownloadsPayload{}, fmt.Errorf("sweep retention must be positive")
	}
	return payload, nil
}
