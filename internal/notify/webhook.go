package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/trailguard/trailguard/internal/alert"
)

const (
	webhookAttempts = 3
	webhookTimeout  = 10 * time.Second
)

// webhookEnvelope is the wire body POSTed to the configured endpoint.
type webhookEnvelope struct {
	Alerts []alert.Alert `json:"alerts"`
}

// Webhook delivers alerts to a configured HTTP endpoint with bounded retries.
// Delivery is best-effort: after exhausting retries the terminal failure is
// logged and reported in the Outcome, never raised.
type Webhook struct {
	url    string
	client *http.Client

	// backoffUnit is the base of the exponential backoff (1<<attempt units
	// after each failed attempt). Overridable in tests.
	backoffUnit time.Duration
}

// NewWebhook creates a Webhook targeting url. An empty url disables the
// channel; Send then reports a skip.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:         url,
		client:      &http.Client{Timeout: webhookTimeout},
		backoffUnit: time.Second,
	}
}

// Send POSTs {"alerts": [...]} to the endpoint. Any non-2xx response or
// transport error fails the attempt; up to 3 attempts are made with
// exponential backoff (1s, 2s, 4s after the 1st, 2nd and 3rd failures).
func (w *Webhook) Send(ctx context.Context, alerts []alert.Alert) Outcome {
	if w.url == "" {
		slog.Warn("webhook not configured; skipping dispatch")
		return Outcome{Channel: ChannelWebhook}
	}

	body, err := json.Marshal(webhookEnvelope{Alerts: alerts})
	if err != nil {
		return Outcome{Channel: ChannelWebhook, Attempted: true, LastError: fmt.Errorf("encode envelope: %w", err)}
	}

	var lastErr error
	for attempt := 0; attempt < webhookAttempts; attempt++ {
		err := w.post(ctx, body)
		if err == nil {
			return Outcome{Channel: ChannelWebhook, Attempted: true, Succeeded: true}
		}
		lastErr = err
		slog.Warn("webhook attempt failed",
			"attempt", attempt+1,
			"url", w.url,
			"err", err,
		)
		if !sleepCtx(ctx, w.backoffUnit<<attempt) {
			break
		}
	}

	slog.Error("webhook delivery failed after retries", "url", w.url, "err", lastErr)
	return Outcome{Channel: ChannelWebhook, Attempted: true, LastError: lastErr}
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// sleepCtx waits for d or until ctx is done. It returns false when the wait
// was cut short by cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
