package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/dunamismax/launchpad/internal/id"
	"github.com/dunamismax/launchpad/internal/webhook"
	"github.com/hibiken/asynq"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(redisOpt asynq.RedisClientOpt, queueName string) *Client {
	return &Client{
		client: asynq.NewClient(redisOpt),
		queue:  queueName,
	}
}

func (c *Client) EnqueueWebhook(ctx context.Context, payload DeliverWebhookPayload) (*asynq.TaskInfo, error) {
	task, err := NewDeliverWebhookTask(payload)
	if err != nil {
		return nil, err
	}
	// The task id dedupes re-enqueues of the same event.
	return c.client.EnqueueContext(
		ctx,
		task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.TaskID("webhook:"+payload.Event.ID),
	)
}

func (c *Client) Close() error {
	return c.client.Close()
}

// WebhookNotifier turns domain events into queued webhook deliveries for a
// single subscriber URL.
type WebhookNotifier struct {
	client *Client
	url    string
	newID  func() string
	now    func() time.Time
}

func NewWebhookNotifier(client *Client, url string) *WebhookNotifier {
	return &WebhookNotifier{
		client: client,
		url:    url,
		newID:  id.New,
		now:    time.Now,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, eventType string, data any) error {
	now := n.now()
	event, err := webhook.NewEvent(n.newID(), eventType, now, data)
	if err != nil {
		return err
	}
	if _, err := n.client.EnqueueWebhook(ctx, DeliverWebhookPayload{
		URL:         n.url,
		Event:       event,
		RequestedAt: now.UTC(),
	}); err != nil {
		return fmt.Errorf("enqueue %s webhook: %w", eventType, err)
	}
	return nil
}
