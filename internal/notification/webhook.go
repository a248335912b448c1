package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dolarwatch/internal/httpx"
)

// WebhookNotifier sends messages to a generic HTTP webhook endpoint.
type WebhookNotifier struct {
	url    string
	client *httpx.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewWebhookNotifier creates a webhook notifier.
// url: The HTTP endpoint to POST messages to.
func NewWebhookNotifier(url string, logger *slog.Logger) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		url:    url,
		client: httpx.New(10 * time.Second),
		logger: logger.With(slog.String("component", "webhook")),
		now:    time.Now,
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"chat_id": msg.ChatID,
		"text":    msg.Text,
		"format":  string(msg.Format),
		"ts":      w.now().UTC().Format(time.RFC3339Nano),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &SendError{Channel: "webhook", Err: fmt.Errorf("marshal: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &SendError{Channel: "webhook", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(ctx, req)
	if err != nil {
		return &SendError{Channel: "webhook", Err: fmt.Errorf("send: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SendError{Channel: "webhook", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	w.logger.DebugContext(ctx, "sent message", "url", w.url)
	return nil
}
