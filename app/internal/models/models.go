package models

import "time"

// Status is the classification of a single probe result
type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusWarning Status = "warning"
)

// IsFailing reports whether the status counts towards a failure streak
func (s Status) IsFailing() bool {
	return s == StatusDown || s == StatusWarning
}

// Label returns the upper-case form used in messages and logs
func (s Status) Label() string {
	switch s {
	case StatusUp:
		return "UP"
	case StatusDown:
		return "DOWN"
	case StatusWarning:
		return "WARNING"
	}
	return "UNKNOWN"
}

// ErrorKind categorizes transport failures for diagnostics
type ErrorKind string

const (
	ErrorNone       ErrorKind = ""
	ErrorTimeout    ErrorKind = "timeout"
	ErrorConnection ErrorKind = "connection"
	ErrorOther      ErrorKind = "other"
)

// Sample is the immutable result of one probe
type Sample struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    Status         `json:"status"`
	Latency   *time.Duration `json:"latency,omitempty"`
	Code      *int           `json:"code,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind ErrorKind      `json:"error_kind,omitempty"`
}

// LatencyMS returns the latency in whole milliseconds, or nil when none was measured
func (s Sample) LatencyMS() *int64 {
	if s.Latency == nil {
		return nil
	}
	ms := s.Latency.Milliseconds()
	return &ms
}

// Endpoint is a monitored target. It is immutable after load.
type Endpoint struct {
	Name     string          `mapstructure:"name" json:"name"`
	Target   string          `mapstructure:"url" json:"url"`
	Expected int             `mapstructure:"expected_status" json:"expected_status"`
	Interval *time.Duration  `mapstructure:"check_interval" json:"check_interval,omitempty"`
	Alerts   *AlertOverride  `mapstructure:"alerts" json:"alerts,omitempty"`
	Notify   *NotifyOverride `mapstructure:"notify" json:"notify,omitempty"`
}

// EffectiveInterval returns the wait between two probes of this endpoint
func (e Endpoint) EffectiveInterval(defaultInterval time.Duration) time.Duration {
	if e.Interval != nil && *e.Interval > defaultInterval {
		return *e.Interval
	}
	return defaultInterval
}

// TransitionFlags enables alerting per transition kind
type TransitionFlags struct {
	UpToDown   bool `mapstructure:"up_to_down" json:"up_to_down"`
	UpToWarn   bool `mapstructure:"up_to_warn" json:"up_to_warn"`
	DownToUp   bool `mapstructure:"down_to_up" json:"down_to_up"`
	WarnToDown bool `mapstructure:"warn_to_down" json:"warn_to_down"`
	WarnToUp   bool `mapstructure:"warn_to_up" json:"warn_to_up"`
	DownToWarn bool `mapstructure:"down_to_warn" json:"down_to_warn"`
}

// AlertPolicy is a fully resolved alerting policy
type AlertPolicy struct {
	Enabled     bool            `mapstructure:"enabled" json:"enabled"`
	Threshold   int             `mapstructure:"consecutive_failures" json:"consecutive_failures"`
	Cooldown    time.Duration   `mapstructure:"cooldown" json:"cooldown"`
	Transitions TransitionFlags `mapstructure:"transitions" json:"transitions"`
}

// AlertOverride holds optional per-endpoint policy fields. Nil fields fall back to the global policy.
type AlertOverride struct {
	Enabled   *bool          `mapstructure:"enabled" json:"enabled,omitempty"`
	Threshold *int           `mapstructure:"consecutive_failures" json:"consecutive_failures,omitempty"`
	Cooldown  *time.Duration `mapstructure:"cooldown" json:"cooldown,omitempty"`
}

// NotifyOverride holds optional per-endpoint delivery toggles
type NotifyOverride struct {
	TerminalBell *bool `mapstructure:"terminal_bell" json:"terminal_bell,omitempty"`
	Console      *bool `mapstructure:"console" json:"console,omitempty"`
}

// NotifySettings configures the notification sinks
type NotifySettings struct {
	Console      bool          `mapstructure:"console"`
	TerminalBell bool          `mapstructure:"terminal_bell"`
	Timeout      time.Duration `mapstructure:"timeout"`

	WebhookURL    string `mapstructure:"webhook_url"`
	WebhookSecret string `mapstructure:"webhook_secret"`

	DiscordWebhookURL string `mapstructure:"discord_webhook_url"`
	SlackWebhookURL   string `mapstructure:"slack_webhook_url"`

	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`

	ShoutrrrURLs []string `mapstructure:"shoutrrr_urls"`

	MQTTBroker   string `mapstructure:"mqtt_broker"`
	MQTTTopic    string `mapstructure:"mqtt_topic"`
	MQTTClientID string `mapstructure:"mqtt_client_id"`

	RedisAddr    string `mapstructure:"redis_addr"`
	RedisChannel string `mapstructure:"redis_channel"`

	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SMTPUser       string `mapstructure:"smtp_user"`
	SMTPPassword   string `mapstructure:"smtp_password"`
	SMTPSkipVerify bool   `mapstructure:"smtp_skip_verify"`
	EmailFrom      string `mapstructure:"email_from"`
	EmailTo        string `mapstructure:"email_to"`

	Journal bool `mapstructure:"journal"`
}

// Settings holds the global monitoring settings
type Settings struct {
	DefaultInterval  time.Duration  `mapstructure:"refresh_interval"`
	Timeout          time.Duration  `mapstructure:"request_timeout"`
	HistorySize      int            `mapstructure:"history_size"`
	AlertHistorySize int            `mapstructure:"alert_history_size"`
	WarningLatency   time.Duration  `mapstructure:"warning_threshold"`
	ResultBuffer     int            `mapstructure:"result_buffer"`
	Alerts           AlertPolicy    `mapstructure:"alerts"`
	Notify           NotifySettings `mapstructure:"notify"`
}

// Config is the validated monitoring configuration handed to the core
type Config struct {
	Settings  Settings   `mapstructure:"settings"`
	Endpoints []Endpoint `mapstructure:"sites"`
}

// Endpoint finds an endpoint by name
func (c *Config) Endpoint(name string) (Endpoint, bool) {
	for _, e := range c.Endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}
