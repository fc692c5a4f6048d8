// Package notify provides notification delivery for triggered alerts.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stock-alerter/internal/config"
	apperrors "stock-alerter/internal/errors"
)

// Notifier delivers a notification message. Send fails with a
// *apperrors.SendError when dispatch fails.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Channel is a single delivery mechanism behind a MultiNotifier.
type Channel interface {
	Name() string
	Send(ctx context.Context, subject, body string) error
	IsEnabled() bool
}

// MultiNotifier fans a notification out to all enabled channels. A
// failing channel does not prevent delivery on the others; failures
// are aggregated into the returned error.
type MultiNotifier struct {
	channels []Channel
}

// NewMultiNotifier creates a MultiNotifier from configuration.
func NewMultiNotifier(cfg config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{}
	if cfg.Email.Enabled {
		mn.channels = append(mn.channels, NewEmailNotifier(cfg.Email))
	}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}
	return mn
}

// AddChannel adds a delivery channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.channels = append(mn.channels, ch)
}

// Send delivers the message on every enabled channel.
func (mn *MultiNotifier) Send(ctx context.Context, subject, body string) error {
	var failures []string
	for _, ch := range mn.channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, subject, body); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}
	if len(failures) > 0 {
		return apperrors.NewSendError("multi", subject, errors.New(strings.Join(failures, "; ")))
	}
	return nil
}

// WebhookNotifier posts notifications as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Send posts the notification to the webhook URL.
func (w *WebhookNotifier) Send(ctx context.Context, subject, body string) error {
	payload := map[string]interface{}{
		"subject":   subject,
		"body":      body,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewSendError(w.Name(), subject, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return apperrors.NewSendError(w.Name(), subject, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "StockAlerter/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return apperrors.NewSendError(w.Name(), subject, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewSendError(w.Name(), subject, fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}
	return nil
}

// TelegramNotifier sends notifications via a Telegram bot.
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// NewTelegramNotifier creates a new TelegramNotifier.
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the notifier.
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// IsEnabled returns whether the notifier is enabled.
func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

// Send sends the notification via the Telegram bot API.
func (t *TelegramNotifier) Send(ctx context.Context, subject, body string) error {
	text := fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(subject), escapeHTML(body))
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewSendError(t.Name(), subject, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return apperrors.NewSendError(t.Name(), subject, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return apperrors.NewSendError(t.Name(), subject, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewSendError(t.Name(), subject, fmt.Errorf("telegram API returned status %d", resp.StatusCode))
	}
	return nil
}

// escapeHTML escapes HTML special characters for Telegram.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// NoOpNotifier is a notifier that does nothing (for testing or
// disabled notifications).
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing.
func (n *NoOpNotifier) Send(ctx context.Context, subject, body string) error {
	return nil
}
