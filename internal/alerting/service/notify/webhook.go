package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/telemon/telemon/internal/alerting/model"
)

// Webhook payload kinds.
const (
	WebhookSlack   = "slack"
	WebhookGeneric = "http"
)

// WebhookNotifier posts alert payloads to an HTTP endpoint. The kind selects
// the payload shape: Slack text messages or a generic JSON envelope.
type WebhookNotifier struct {
	name   string
	kind   string
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier. Unknown kinds fall back to
// the generic JSON payload.
func NewWebhookNotifier(name, kind, url string) *WebhookNotifier {
	if kind != WebhookSlack {
		kind = WebhookGeneric
	}
	if name == "" {
		name = kind
	}
	return &WebhookNotifier{
		name:   name,
		kind:   kind,
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Name() string { return "webhook:" + w.name }

func (w *WebhookNotifier) SendAlert(ctx context.Context, alert *model.Alert) error {
	return w.send(ctx, alert, "firing")
}

func (w *WebhookNotifier) SendResolved(ctx context.Context, alert *model.Alert) error {
	return w.send(ctx, alert, "resolved")
}

func (w *WebhookNotifier) send(ctx context.Context, alert *model.Alert, state string) error {
	var body []byte
	switch w.kind {
	case WebhookSlack:
		prefix := severityUpper(alert.Severity)
		if state == "resolved" {
			prefix = "RESOLVED"
		}
		body, _ = json.Marshal(map[string]string{
			"text": fmt.Sprintf("*[%s]* %s", prefix, alert.Message),
		})
	default:
		body, _ = json.Marshal(map[string]any{
			"state": state,
			"alert": alert,
		})
	}

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
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
