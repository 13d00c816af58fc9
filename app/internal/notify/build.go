package notify

import (
	"io"
	"net/http"

	"pulse/app/internal/models"
)

// Build creates every sink enabled in settings. Sinks that need a live
// connection (MQTT, Redis) connect here so misconfiguration fails at startup.
func Build(settings models.NotifySettings, endpoints []models.Endpoint, out io.Writer) ([]Sink, error) {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	var sinks []Sink

	if console := NewConsole(out, settings, endpoints); console.Active() {
		sinks = append(sinks, console)
	}
	if settings.WebhookURL != "" {
		sinks = append(sinks, &Webhook{URL: settings.WebhookURL, Secret: settings.WebhookSecret, Client: client})
	}
	if settings.DiscordWebhookURL != "" {
		sinks = append(sinks, &Discord{WebhookURL: settings.DiscordWebhookURL, Client: client})
	}
	if settings.SlackWebhookURL != "" {
		sinks = append(sinks, &Slack{WebhookURL: settings.SlackWebhookURL, Client: client})
	}
	if settings.TelegramBotToken != "" && settings.TelegramChatID != "" {
		sinks = append(sinks, &Telegram{BotToken: settings.TelegramBotToken, ChatID: settings.TelegramChatID, Client: client})
	}
	if settings.SMTPHost != "" && settings.EmailTo != "" {
		sinks = append(sinks, &Email{
			Host:       settings.SMTPHost,
			Port:       settings.SMTPPort,
			User:       settings.SMTPUser,
			Password:   settings.SMTPPassword,
			From:       settings.EmailFrom,
			To:         settings.EmailTo,
			SkipVerify: settings.SMTPSkipVerify,
		})
	}
	if len(settings.ShoutrrrURLs) > 0 {
		s, err := NewShoutrrr(settings.ShoutrrrURLs...)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if settings.MQTTBroker != "" {
		m, err := NewMQTT(settings.MQTTBroker, settings.MQTTClientID, settings.MQTTTopic, timeout)
		if err != nil {
			closeAll(sinks)
			return nil, err
		}
		sinks = append(sinks, m)
	}
	if settings.RedisAddr != "" {
		r, err := NewRedis(settings.RedisAddr, settings.RedisChannel, timeout)
		if err != nil {
			closeAll(sinks)
			return nil, err
		}
		sinks = append(sinks, r)
	}
	if settings.Journal {
		sinks = append(sinks, Journal{})
	}
	return sinks, nil
}

func closeAll(sinks []Sink) {
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
