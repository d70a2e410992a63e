package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WebhookHandler posts domain events to the configured endpoint. Non-2xx
// responses are errors so asynq retries with backoff.
type WebhookHandler struct {
	Endpoint string
	Client   *http.Client
	Logger   zerolog.Logger
}

// NewWebhookHandler wires a traced HTTP client for outbound deliveries.
func NewWebhookHandler(endpoint string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		Endpoint: endpoint,
		Client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Logger: logger,
	}
}

// ProcessTask handles TypeEventWebhook tasks.
func (h *WebhookHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload EventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode event payload: %w: %w", err, asynq.SkipRetry)
	}
	if h.Endpoint == "" {
		h.Logger.Debug().Str("topic", payload.Topic).Msg("webhook endpoint not configured, dropping event")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook body: %w: %w", err, asynq.SkipRetry)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Topic", payload.Topic)
	req.Header.Set("X-Event-ID", payload.EventID)
	req.Header.Set("X-Shop-ID", payload.ShopID)

	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}

	h.Logger.Info().
		Str("topic", payload.Topic).
		Str("event_id", payload.EventID).
		Int("status", resp.StatusCode).
		Msg("webhook delivered")
	return nil
}

// LowStockHandler surfaces low-stock alerts to shop staff. Delivery channels
// beyond the structured log (email, chat) hang off this handler.
type LowStockHandler struct {
	Logger zerolog.Logger
}

type lowStockPayload struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Remaining int32  `json:"remaining"`
}

// ProcessTask handles TypeLowStockAlert tasks.
func (h *LowStockHandler) ProcessTask(_ context.Context, task *asynq.Task) error {
	var payload EventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode event payload: %w: %w", err, asynq.SkipRetry)
	}
	var alert lowStockPayload
	if err := json.Unmarshal(payload.Payload, &alert); err != nil {
		return fmt.Errorf("decode low stock payload: %w: %w", err, asynq.SkipRetry)
	}
	h.Logger.Warn().
		Str("shop_id", payload.ShopID).
		Str("product_id", alert.ProductID).
		Str("variant_id", alert.VariantID).
		Int32("remaining", alert.Remaining).
		Msg("product stock running low")
	return nil
}
