package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"pulse/app/internal/checker"
	"pulse/app/internal/models"
)

const (
	envPrefix  = "PULSE"
	configName = "sites"
)

var (
	ErrNoConfigFile      = errors.New("no configuration file found")
	ErrNoEndpoints       = errors.New("configuration must define at least one site")
	ErrMissingName       = errors.New("site name is required")
	ErrInvalidTarget     = errors.New("invalid site url")
	ErrInvalidExpected   = errors.New("invalid expected_status")
	ErrDuplicateEndpoint = errors.New("duplicate site name")
	ErrInvalidSettings   = errors.New("invalid settings")
)

// Config holds all application configuration
type Config struct {
	Settings models.Settings   `mapstructure:"settings"`
	Sites    []models.Endpoint `mapstructure:"sites"`
	Logging  LoggingConfig     `mapstructure:"logging"`
	HTTP     HTTPConfig        `mapstructure:"http"`
	Admin    AdminConfig       `mapstructure:"admin"`
	Database DatabaseConfig    `mapstructure:"database"`

	// File is the config file that was read
	File string `mapstructure:"-"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPConfig configures the read API and live streams
type HTTPConfig struct {
	Listen           string   `mapstructure:"listen"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	TrustProxy       bool     `mapstructure:"trust_proxy"`
	RefreshPerMinute int      `mapstructure:"refresh_per_minute"`
}

// AdminConfig holds the credentials of the admin endpoints.
// Password may be plain text or a bcrypt hash; Load always leaves a hash in Hash.
type AdminConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Hash     []byte `mapstructure:"-"`
}

// DatabaseConfig configures the SQLite journal
type DatabaseConfig struct {
	Path       string `mapstructure:"path"`
	LogJournal bool   `mapstructure:"log_journal"`
	KeepAlerts int    `mapstructure:"keep_alerts"`
	KeepLogs   int    `mapstructure:"keep_logs"`
}

// JournalEnabled reports whether anything writes to the journal database
func (c *Config) JournalEnabled() bool {
	return c.Settings.Notify.Journal || c.Database.LogJournal
}

// Monitor returns the validated core configuration
func (c *Config) Monitor() models.Config {
	return models.Config{Settings: c.Settings, Endpoints: c.Sites}
}

// SearchPaths lists the directories searched for sites.{toml,yaml,json}, in priority order
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "pulse"))
	}
	return append(paths, "/etc/pulse")
}

// Load reads the configuration from path, or from the first sites file on the
// search path when path is empty. Environment variables prefixed PULSE_ override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w, checked: %s", ErrNoConfigFile, strings.Join(SearchPaths(), ", "))
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		secondsHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Admin.resolveHash(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// monitoring defaults
	v.SetDefault("settings.refresh_interval", "5s")
	v.SetDefault("settings.request_timeout", "3s")
	v.SetDefault("settings.history_size", 100)
	v.SetDefault("settings.alert_history_size", 200)
	v.SetDefault("settings.warning_threshold", "0s")
	v.SetDefault("settings.result_buffer", 100)

	// alert defaults
	v.SetDefault("settings.alerts.enabled", true)
	v.SetDefault("settings.alerts.consecutive_failures", 2)
	v.SetDefault("settings.alerts.cooldown", "300s")
	v.SetDefault("settings.alerts.transitions.up_to_down", true)
	v.SetDefault("settings.alerts.transitions.up_to_warn", false)
	v.SetDefault("settings.alerts.transitions.down_to_up", true)
	v.SetDefault("settings.alerts.transitions.warn_to_down", true)
	v.SetDefault("settings.alerts.transitions.warn_to_up", true)
	v.SetDefault("settings.alerts.transitions.down_to_warn", false)

	// notification defaults
	v.SetDefault("settings.notify.console", true)
	v.SetDefault("settings.notify.terminal_bell", true)
	v.SetDefault("settings.notify.timeout", "10s")
	v.SetDefault("settings.notify.mqtt_topic", "pulse/alerts")
	v.SetDefault("settings.notify.mqtt_client_id", "pulse")
	v.SetDefault("settings.notify.redis_channel", "pulse:alerts")
	v.SetDefault("settings.notify.journal", false)

	// logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// http defaults
	v.SetDefault("http.listen", ":4555")
	v.SetDefault("http.trust_proxy", false)
	v.SetDefault("http.refresh_per_minute", 6)

	// admin defaults
	v.SetDefault("admin.user", "admin")
	v.SetDefault("admin.password", "")

	// database defaults
	v.SetDefault("database.path", "./pulse.db")
	v.SetDefault("database.log_journal", false)
	v.SetDefault("database.keep_alerts", 1000)
	v.SetDefault("database.keep_logs", 5000)
}

// secondsHook reads bare numbers as seconds when decoding durations
func secondsHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch n := data.(type) {
	case int:
		return time.Duration(n) * time.Second, nil
	case int64:
		return time.Duration(n) * time.Second, nil
	case uint64:
		return time.Duration(n) * time.Second, nil
	case float64:
		return time.Duration(n * float64(time.Second)), nil
	}
	return data, nil
}

// Validate checks the loaded configuration
func Validate(cfg *Config) error {
	if len(cfg.Sites) == 0 {
		return ErrNoEndpoints
	}

	seen := make(map[string]bool, len(cfg.Sites))
	for i, site := range cfg.Sites {
		if strings.TrimSpace(site.Name) == "" {
			return fmt.Errorf("site #%d: %w", i+1, ErrMissingName)
		}
		if seen[site.Name] {
			return fmt.Errorf("site %q: %w", site.Name, ErrDuplicateEndpoint)
		}
		seen[site.Name] = true

		if err := checker.ValidateTarget(site.Target); err != nil {
			return fmt.Errorf("site %q: %w: %w", site.Name, ErrInvalidTarget, err)
		}
		if checker.IsHTTP(site.Target) && (site.Expected < 100 || site.Expected > 599) {
			return fmt.Errorf("site %q: %w %d, must be 100-599", site.Name, ErrInvalidExpected, site.Expected)
		}
		if checker.IsDNS(site.Target) && site.Expected < 0 {
			return fmt.Errorf("site %q: %w %d, must be a dns rcode", site.Name, ErrInvalidExpected, site.Expected)
		}
		if site.Interval != nil && *site.Interval <= 0 {
			return fmt.Errorf("site %q: %w: check_interval must be positive", site.Name, ErrInvalidSettings)
		}
		if o := site.Alerts; o != nil {
			if o.Threshold != nil && *o.Threshold < 1 {
				return fmt.Errorf("site %q: %w: consecutive_failures must be at least 1", site.Name, ErrInvalidSettings)
			}
			if o.Cooldown != nil && *o.Cooldown < 0 {
				return fmt.Errorf("site %q: %w: cooldown must not be negative", site.Name, ErrInvalidSettings)
			}
		}
	}

	s := cfg.Settings
	switch {
	case s.DefaultInterval <= 0:
		return fmt.Errorf("%w: refresh_interval must be positive", ErrInvalidSettings)
	case s.Timeout <= 0:
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidSettings)
	case s.HistorySize < 1:
		return fmt.Errorf("%w: history_size must be at least 1", ErrInvalidSettings)
	case s.AlertHistorySize < 1:
		return fmt.Errorf("%w: alert_history_size must be at least 1", ErrInvalidSettings)
	case s.ResultBuffer < 1:
		return fmt.Errorf("%w: result_buffer must be at least 1", ErrInvalidSettings)
	case s.WarningLatency < 0:
		return fmt.Errorf("%w: warning_threshold must not be negative", ErrInvalidSettings)
	case s.Alerts.Threshold < 1:
		return fmt.Errorf("%w: consecutive_failures must be at least 1", ErrInvalidSettings)
	case s.Alerts.Cooldown < 0:
		return fmt.Errorf("%w: cooldown must not be negative", ErrInvalidSettings)
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidSettings, cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidSettings, cfg.Logging.Format)
	}

	if cfg.Settings.Notify.TelegramBotToken != "" && cfg.Settings.Notify.TelegramChatID == "" {
		return fmt.Errorf("%w: telegram_chat_id is required with telegram_bot_token", ErrInvalidSettings)
	}
	if cfg.JournalEnabled() && cfg.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required when the journal is enabled", ErrInvalidSettings)
	}
	return nil
}

// resolveHash hashes a plain-text admin password. An empty password disables admin access.
func (a *AdminConfig) resolveHash() error {
	if a.Password == "" {
		a.Hash = nil
		return nil
	}
	if strings.HasPrefix(a.Password, "$2") {
		if _, err := bcrypt.Cost([]byte(a.Password)); err == nil {
			a.Hash = []byte(a.Password)
			return nil
		}
	}
	h, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	a.Hash = h
	a.Password = ""
	return nil
}
