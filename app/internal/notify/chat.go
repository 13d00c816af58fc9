package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pulse/app/internal/alerts"
)

var severityColor = map[alerts.Severity]int{
	alerts.SeverityCritical: 0xef4444,
	alerts.SeverityWarning:  0xeab308,
	alerts.SeverityRecovery: 0x22c55e,
}

var severityEmoji = map[alerts.Severity]string{
	alerts.SeverityCritical: ":red_circle:",
	alerts.SeverityWarning:  ":warning:",
	alerts.SeverityRecovery: ":white_check_mark:",
}

func subject(a alerts.Alert) string {
	switch a.Severity {
	case alerts.SeverityCritical:
		return "🔴 Endpoint Down: " + a.Endpoint
	case alerts.SeverityWarning:
		return "⚠️ Endpoint Warning: " + a.Endpoint
	}
	return "✅ Endpoint Recovered: " + a.Endpoint
}

// ── Discord ─────────────────────────────────────────────────────────

// Discord sends a rich embed via a Discord webhook
type Discord struct {
	WebhookURL string
	Client     *http.Client
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Notify(ctx context.Context, a alerts.Alert) error {
	payload := map[string]interface{}{
		"username": "pulse",
		"embeds": []map[string]interface{}{
			{
				"title":       subject(a),
				"description": a.Message,
				"color":       severityColor[a.Severity],
				"fields": []map[string]interface{}{
					{"name": "Endpoint", "value": a.Endpoint, "inline": true},
					{"name": "Status", "value": a.Current.Label(), "inline": true},
					{"name": "Time", "value": a.Timestamp.Format(time.RFC1123), "inline": false},
				},
				"footer": map[string]string{"text": "pulse monitor"},
			},
		},
	}
	return postJSON(ctx, clientOrDefault(d.Client), d.WebhookURL, payload, nil)
}

// ── Slack ────────────────────────────────────────────────────────────

// Slack sends an attachment message via a Slack incoming webhook
type Slack struct {
	WebhookURL string
	Client     *http.Client
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Notify(ctx context.Context, a alerts.Alert) error {
	payload := map[string]interface{}{
		"username":   "pulse",
		"icon_emoji": severityEmoji[a.Severity],
		"attachments": []map[string]interface{}{
			{
				"color": fmt.Sprintf("#%06x", severityColor[a.Severity]),
				"title": subject(a),
				"text":  a.Message,
				"fields": []map[string]interface{}{
					{"title": "Endpoint", "value": a.Endpoint, "short": true},
					{"title": "Status", "value": a.Current.Label(), "short": true},
				},
				"footer": "pulse monitor",
				"ts":     a.Timestamp.Unix(),
			},
		},
	}
	return postJSON(ctx, clientOrDefault(s.Client), s.WebhookURL, payload, nil)
}

// ── Telegram ────────────────────────────────────────────────────────

// TelegramAPI is the Bot API base URL
const TelegramAPI = "https://api.telegram.org"

// Telegram sends an HTML message via the Telegram Bot API
type Telegram struct {
	BotToken string
	ChatID   string
	// BaseURL overrides TelegramAPI
	BaseURL string
	Client  *http.Client
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, a alerts.Alert) error {
	text := fmt.Sprintf("<b>%s</b>\n\n%s\n\n🕒 %s", subject(a), a.Message, a.Timestamp.Format(time.RFC1123))
	payload := map[string]interface{}{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	base := t.BaseURL
	if base == "" {
		base = TelegramAPI
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(base, "/"), t.BotToken)
	if err := postJSON(ctx, clientOrDefault(t.Client), url, payload, nil); err != nil {
		// transport errors quote the URL, which carries the token
		return errors.New(strings.ReplaceAll(err.Error(), t.BotToken, "<token>"))
	}
	return nil
}
