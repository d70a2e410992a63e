// Package tasks defines the asynq task types exchanged between the API and
// the worker, plus the event-bus notifier that enqueues them.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clovershop/backoffice/internal/events"
)

const (
	// TypeEventWebhook delivers a domain event to the shop's webhook URL.
	TypeEventWebhook = "event:webhook"
	// TypeLowStockAlert notifies shop staff about a product running low.
	TypeLowStockAlert = "alert:low_stock"
)

// EventPayload is the serialized form of a domain event carried by a task.
type EventPayload struct {
	EventID     string          `json:"eventId"`
	ShopID      string          `json:"shopId"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// NewEventWebhookTask builds the webhook delivery task for an event.
func NewEventWebhookTask(ev events.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(EventPayload{
		EventID:     ev.ID.String(),
		ShopID:      ev.ShopID.String(),
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID.String(),
		Payload:     ev.Payload,
		OccurredAt:  ev.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("tasks: encode event payload: %w", err)
	}
	return asynq.NewTask(TypeEventWebhook, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// NewLowStockAlertTask builds the staff alert task for a low-stock event.
func NewLowStockAlertTask(ev events.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(EventPayload{
		EventID:     ev.ID.String(),
		ShopID:      ev.ShopID.String(),
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID.String(),
		Payload:     ev.Payload,
		OccurredAt:  ev.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("tasks: encode low stock payload: %w", err)
	}
	return asynq.NewTask(TypeLowStockAlert, payload, asynq.MaxRetry(3), asynq.Timeout(10*time.Second)), nil
}

// Enqueuer is the slice of asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier enqueues a webhook delivery task for every emitted event. It
// implements events.Notifier; enqueue failures surface to the emitter but do
// not undo the persisted event.
type Notifier struct {
	Client Enqueuer
	Queue  string
}

func (n *Notifier) Notify(ctx context.Context, ev events.Event) error {
	if n == nil || n.Client == nil {
		return nil
	}
	task, err := NewEventWebhookTask(ev)
	if err != nil {
		return err
	}
	queue := n.Queue
	if queue == "" {
		queue = "default"
	}
	if _, err := n.Client.EnqueueContext(ctx, task, asynq.Queue(queue)); err != nil {
		return fmt.Errorf("tasks: enqueue %s: %w", ev.Topic, err)
	}
	if ev.Topic == events.TopicProductLowStock {
		alert, err := NewLowStockAlertTask(ev)
		if err != nil {
			return err
		}
		if _, err := n.Client.EnqueueContext(ctx, alert, asynq.Queue(queue)); err != nil {
			return fmt.Errorf("tasks: enqueue %s alert: %w", ev.Topic, err)
		}
	}
	return nil
}
