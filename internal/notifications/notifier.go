package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel/source-connectors/internal/fetch"
)

type Message struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Context map[string]any `json:"context,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, message Message) error
}

// LogNotifier writes messages to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, message Message) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info(message.Title, "body", message.Body, "context", message.Context)
	return nil
}

// WebhookNotifier posts messages as JSON through the shared fetch client.
type WebhookNotifier struct {
	url  string
	doer fetch.Doer
}

func NewWebhookNotifier(webhookURL string, doer fetch.Doer) (*WebhookNotifier, error) {
	trimmed := strings.TrimSpace(webhookURL)
	if trimmed == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if doer == nil {
		return nil, fmt.Errorf("webhook doer is required")
	}
	return &WebhookNotifier{url: trimmed, doer: doer}, nil
}

func (w *WebhookNotifier) Notify(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	_, err = w.doer.Do(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    w.url,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   payload,
	})
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	return nil
}

type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(items ...Notifier) *MultiNotifier {
	filtered := make([]Notifier, 0, len(items))
	for _, item := range items {
		if item != nil {
			filtered = append(filtered, item)
		}
	}
	return &MultiNotifier{notifiers: filtered}
}

// Notify delivers to every notifier and returns the first failure.
func (m *MultiNotifier) Notify(ctx context.Context, message Message) error {
	var firstErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
