package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/telemon/telemon/internal/alerting/model"
)

// TelegramNotifier delivers formatted alert messages to a Telegram chat via
// the Bot API sendMessage endpoint.
type TelegramNotifier struct {
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegramNotifier creates a notifier for the given bot token and chat id.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		chatID:  chatID,
		baseURL: "https://api.telegram.org/bot" + botToken,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// SendAlert sends a Markdown-formatted firing notification.
func (t *TelegramNotifier) SendAlert(ctx context.Context, alert *model.Alert) error {
	text := fmt.Sprintf(
		"%s *%s*\n\n"+
			"*Message:* %s\n"+
			"*Metric:* `%s`\n"+
			"*Current value:* `%.2f`\n"+
			"*Threshold:* `%g`\n"+
			"*Time:* %s\n\n"+
			"*Status:* %s",
		severityEmoji(alert.Severity), alert.RuleName,
		alert.Message,
		alert.MetricName,
		alert.CurrentValue,
		alert.Threshold,
		alert.FiredAt.Format("2006-01-02 15:04:05"),
		severityUpper(alert.Severity),
	)
	return t.sendMessage(ctx, text)
}

// SendResolved sends a resolution notice for a previously fired alert.
func (t *TelegramNotifier) SendResolved(ctx context.Context, alert *model.Alert) error {
	if alert.ResolvedAt == nil {
		return fmt.Errorf("alert %s is not resolved", alert.ID)
	}
	text := fmt.Sprintf(
		"✅ *Alert resolved*\n\n"+
			"*Name:* %s\n"+
			"*Metric:* `%s`\n"+
			"*Resolved at:* %s",
		alert.RuleName,
		alert.MetricName,
		alert.ResolvedAt.Format("2006-01-02 15:04:05"),
	)
	return t.sendMessage(ctx, text)
}

// TestConnection verifies the bot token against the getMe endpoint.
func (t *TelegramNotifier) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/getMe", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		OK     bool `json:"ok"`
		Result struct {
			Username string `json:"username"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode getMe response: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("telegram API rejected bot token")
	}
	log.Info().Str("bot", body.Result.Username).Msg("telegram bot connected")
	return nil
}

func (t *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	payload, _ := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityEmoji(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "🚨"
	case model.SeverityWarning:
		return "⚠️"
	case model.SeverityInfo:
		return "ℹ️"
	}
	return "📢"
}

func severityUpper(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "CRITICAL"
	case model.SeverityWarning:
		return "WARNING"
	case model.SeverityInfo:
		return "INFO"
	}
	return string(s)
}
