package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Item is one match in a delivery payload, already ordered by priority.
type Item struct {
	ProductName       string  `json:"product_name"`
	RecallTitle       string  `json:"recall_title"`
	RecallDescription string  `json:"recall_description"`
	Severity          string  `json:"severity"`
	Confidence        float64 `json:"confidence"`
}

// Sink is the external delivery boundary. Implementations are black boxes;
// the batcher only cares about success or failure per user batch.
type Sink interface {
	Deliver(ctx context.Context, userID string, items []Item) error
}

// WebhookSink delivers batches as JSON POSTs to a configured endpoint.
type WebhookSink struct {
	url        string
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

var _ Sink = (*WebhookSink)(nil)

func NewWebhookSink(url string, httpClient *http.Client, userAgent string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		url:        url,
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

type webhookPayload struct {
	UserID string `json:"user_id"`
	Items  []Item `json:"items"`
}

func (s *WebhookSink) Deliver(ctx context.Context, userID string, items []Item) error {
	body, err := json.Marshal(webhookPayload{UserID: userID, Items: items})
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "POST", s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delivery rejected: %d %s", resp.StatusCode, resp.Status)
	}

	return nil
}

// LogSink writes batches to the log. Used when no webhook URL is configured,
// which keeps local runs observable without external dependencies.
type LogSink struct{}

var _ Sink = (*LogSink)(nil)

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Deliver(_ context.Context, userID string, items []Item) error {
	slog.Info("Notification batch", "user_id", userID, "items", len(items))
	for _, item := range items {
		slog.Info("Notification item", "user_id", userID,
			"product", item.ProductName, "recall", item.RecallTitle,
			"severity", item.Severity, "confidence", item.Confidence)
	}
	return nil
}
