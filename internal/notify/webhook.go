// Package notify pushes terminal-batch summaries to an operator
// webhook. Delivery is best effort; the pipeline's outcome is already
// durable in the batch ledger before any notification fires.
package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mvieira/scanledger/internal/config"
	"github.com/mvieira/scanledger/internal/logger"
)

// Event is the payload posted when a batch reaches a terminal status.
type Event struct {
	BatchID   string    `json:"batch_id"`
	Dataset   string    `json:"dataset"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Upserted  int       `json:"upserted,omitempty"`
	Updated   int       `json:"updated,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	Seconds   float64   `json:"processing_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier posts batch events to a configured webhook URL. A nil
// *Notifier is a valid no-op.
type Notifier struct {
	client *resty.Client
	url    string
}

// New builds a Notifier from config, or nil when no URL is set.
func New(cfg *config.WebhookConfig) *Notifier {
	if cfg == nil || cfg.URL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Notifier{client: client, url: cfg.URL}
}

// BatchFinished posts one event. Failures are logged, never returned.
func (n *Notifier) BatchFinished(ctx context.Context, event Event) {
	if n == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(n.url)
	if err != nil {
		logger.CtxWarn(ctx, "Webhook delivery failed for batch %s: %v", event.BatchID, err)
		return
	}
	if resp.IsError() {
		logger.CtxWarn(ctx, "Webhook returned %d for batch %s", resp.StatusCode(), event.BatchID)
		return
	}
	logger.CtxDebug(ctx, "Webhook delivered for batch %s (%s)", event.BatchID, event.Status)
}
