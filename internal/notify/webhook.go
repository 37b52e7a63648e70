package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const webhookAttempts = 3

// Webhook POSTs notifications as JSON, retrying server errors and transport failures.
type Webhook struct {
	url     string
	client  *http.Client
	backoff time.Duration
}

// NewWebhook creates a webhook notifier.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		backoff: 200 * time.Millisecond,
	}
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	b := retry.WithMaxRetries(webhookAttempts-1, retry.NewExponential(w.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("request failed: %w", err))
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("webhook error (status %d): %s", resp.StatusCode, string(body)))
		case resp.StatusCode >= 300:
			return fmt.Errorf("webhook rejected notification (status %d): %s", resp.StatusCode, string(body))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("webhook notify: %w", err)
	}
	return nil
}
