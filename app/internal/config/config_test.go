package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pulse/app/internal/models"
)

// --- helpers ---

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Settings: models.Settings{
			DefaultInterval:  5 * time.Second,
			Timeout:          3 * time.Second,
			HistorySize:      100,
			AlertHistorySize: 200,
			ResultBuffer:     100,
			Alerts:           models.AlertPolicy{Enabled: true, Threshold: 2, Cooldown: 300 * time.Second},
		},
		Sites: []models.Endpoint{
			{Name: "api", Target: "https://example.com/health", Expected: 200},
		},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Path: "./pulse.db"},
	}
}

const minimalTOML = `
[[sites]]
name = "example"
url = "https://example.com"
expected_status = 200
`

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "sites.toml", minimalTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := cfg.Settings
	if s.DefaultInterval != 5*time.Second {
		t.Errorf("refresh_interval = %v, want 5s", s.DefaultInterval)
	}
	if s.Timeout != 3*time.Second {
		t.Errorf("request_timeout = %v, want 3s", s.Timeout)
	}
	if s.HistorySize != 100 || s.AlertHistorySize != 200 {
		t.Errorf("history sizes = %d/%d, want 100/200", s.HistorySize, s.AlertHistorySize)
	}
	if s.WarningLatency != 0 {
		t.Errorf("warning_threshold = %v, want 0", s.WarningLatency)
	}
	if s.ResultBuffer != 100 {
		t.Errorf("result_buffer = %d, want 100", s.ResultBuffer)
	}
	if !s.Alerts.Enabled || s.Alerts.Threshold != 2 || s.Alerts.Cooldown != 300*time.Second {
		t.Errorf("unexpected alert defaults: %+v", s.Alerts)
	}
	want := models.TransitionFlags{UpToDown: true, DownToUp: true, WarnToDown: true, WarnToUp: true}
	if s.Alerts.Transitions != want {
		t.Errorf("transitions = %+v, want %+v", s.Alerts.Transitions, want)
	}
	if cfg.HTTP.Listen != ":4555" {
		t.Errorf("http.listen = %q, want :4555", cfg.HTTP.Listen)
	}
	if cfg.Admin.Hash != nil {
		t.Error("admin should be disabled without a password")
	}
	if cfg.JournalEnabled() {
		t.Error("journal should be disabled by default")
	}
	if cfg.File == "" {
		t.Error("expected the used config file to be recorded")
	}
}

func TestLoad_TOMLOverridesAndSeconds(t *testing.T) {
	body := `
[settings]
refresh_interval = 10
request_timeout = "1500ms"
history_size = 50
warning_threshold = 2

[settings.alerts]
consecutive_failures = 3
cooldown = 60

[settings.alerts.transitions]
up_to_warn = true

[[sites]]
name = "slow"
url = "https://slow.example.com"
expected_status = 204
check_interval = 30

[sites.alerts]
consecutive_failures = 5

[sites.notify]
terminal_bell = false

[[sites]]
name = "db"
url = "tcp://10.0.0.5:5432"
`
	cfg, err := Load(writeConfig(t, "sites.toml", body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Settings.DefaultInterval != 10*time.Second {
		t.Errorf("refresh_interval = %v, want 10s", cfg.Settings.DefaultInterval)
	}
	if cfg.Settings.Timeout != 1500*time.Millisecond {
		t.Errorf("request_timeout = %v, want 1.5s", cfg.Settings.Timeout)
	}
	if cfg.Settings.WarningLatency != 2*time.Second {
		t.Errorf("warning_threshold = %v, want 2s", cfg.Settings.WarningLatency)
	}
	if cfg.Settings.Alerts.Cooldown != time.Minute {
		t.Errorf("cooldown = %v, want 1m", cfg.Settings.Alerts.Cooldown)
	}
	if !cfg.Settings.Alerts.Transitions.UpToWarn || !cfg.Settings.Alerts.Transitions.UpToDown {
		t.Errorf("transition overrides not merged with defaults: %+v", cfg.Settings.Alerts.Transitions)
	}

	if len(cfg.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(cfg.Sites))
	}
	slow := cfg.Sites[0]
	if slow.Interval == nil || *slow.Interval != 30*time.Second {
		t.Errorf("check_interval = %v, want 30s", slow.Interval)
	}
	if slow.Alerts == nil || slow.Alerts.Threshold == nil || *slow.Alerts.Threshold != 5 {
		t.Errorf("unexpected alert override: %+v", slow.Alerts)
	}
	if slow.Notify == nil || slow.Notify.TerminalBell == nil || *slow.Notify.TerminalBell {
		t.Errorf("unexpected notify override: %+v", slow.Notify)
	}
	if cfg.Sites[1].Interval != nil {
		t.Error("site without check_interval should have no override")
	}

	mc := cfg.Monitor()
	if len(mc.Endpoints) != 2 || mc.Settings.HistorySize != 50 {
		t.Errorf("Monitor() did not carry the config: %+v", mc.Settings)
	}
}

func TestLoad_YAML(t *testing.T) {
	body := `
settings:
  refresh_interval: 15s
sites:
  - name: resolver
    url: dns://1.1.1.1/example.com
logging:
  level: debug
  format: json
`
	cfg, err := Load(writeConfig(t, "sites.yaml", body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings.DefaultInterval != 15*time.Second {
		t.Errorf("refresh_interval = %v, want 15s", cfg.Settings.DefaultInterval)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PULSE_HTTP_LISTEN", "127.0.0.1:9999")
	t.Setenv("PULSE_SETTINGS_HISTORY_SIZE", "42")

	cfg, err := Load(writeConfig(t, "sites.toml", minimalTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Listen != "127.0.0.1:9999" {
		t.Errorf("http.listen = %q, want env override", cfg.HTTP.Listen)
	}
	if cfg.Settings.HistorySize != 42 {
		t.Errorf("history_size = %d, want 42", cfg.Settings.HistorySize)
	}
}

func TestLoad_PlainPasswordIsHashed(t *testing.T) {
	body := minimalTOML + `
[admin]
user = "ops"
password = "hunter2"
`
	cfg, err := Load(writeConfig(t, "sites.toml", body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Admin.Password != "" {
		t.Error("plain-text password should be cleared after hashing")
	}
	if err := bcrypt.CompareHashAndPassword(cfg.Admin.Hash, []byte("hunter2")); err != nil {
		t.Errorf("hash does not match password: %v", err)
	}
}

func TestLoad_BcryptPasswordKept(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("PULSE_ADMIN_PASSWORD", string(hash))

	cfg, err := Load(writeConfig(t, "sites.toml", minimalTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(cfg.Admin.Hash) != string(hash) {
		t.Error("bcrypt hash should be used as-is")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoad_InvalidConfigIsWrapped(t *testing.T) {
	body := `
[[sites]]
name = "bad"
url = "ftp://example.com"
expected_status = 200
`
	_, err := Load(writeConfig(t, "sites.toml", body))
	if !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
}

// --- Validate ---

func TestValidate_OK(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	neg := -time.Second
	zero := 0

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"no sites", func(c *Config) { c.Sites = nil }, ErrNoEndpoints},
		{"missing name", func(c *Config) { c.Sites[0].Name = " " }, ErrMissingName},
		{"duplicate", func(c *Config) { c.Sites = append(c.Sites, c.Sites[0]) }, ErrDuplicateEndpoint},
		{"bad scheme", func(c *Config) { c.Sites[0].Target = "ftp://example.com" }, ErrInvalidTarget},
		{"empty url", func(c *Config) { c.Sites[0].Target = "" }, ErrInvalidTarget},
		{"metadata host", func(c *Config) { c.Sites[0].Target = "http://169.254.169.254/latest" }, ErrInvalidTarget},
		{"status too low", func(c *Config) { c.Sites[0].Expected = 99 }, ErrInvalidExpected},
		{"status too high", func(c *Config) { c.Sites[0].Expected = 600 }, ErrInvalidExpected},
		{"negative site interval", func(c *Config) { c.Sites[0].Interval = &neg }, ErrInvalidSettings},
		{"zero site threshold", func(c *Config) { c.Sites[0].Alerts = &models.AlertOverride{Threshold: &zero} }, ErrInvalidSettings},
		{"zero interval", func(c *Config) { c.Settings.DefaultInterval = 0 }, ErrInvalidSettings},
		{"zero timeout", func(c *Config) { c.Settings.Timeout = 0 }, ErrInvalidSettings},
		{"zero history", func(c *Config) { c.Settings.HistorySize = 0 }, ErrInvalidSettings},
		{"zero threshold", func(c *Config) { c.Settings.Alerts.Threshold = 0 }, ErrInvalidSettings},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalidSettings},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidSettings},
		{"telegram without chat", func(c *Config) { c.Settings.Notify.TelegramBotToken = "t" }, ErrInvalidSettings},
		{"journal without path", func(c *Config) {
			c.Settings.Notify.Journal = true
			c.Database.Path = ""
		}, ErrInvalidSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidate_NonHTTPTargetsSkipStatusRange(t *testing.T) {
	cfg := validConfig()
	cfg.Sites = []models.Endpoint{
		{Name: "ssh", Target: "tcp://10.0.0.2:22"},
		{Name: "dns", Target: "dns://1.1.1.1/example.com"},
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}


func TestSearchPaths(t *testing.T) {
	paths := SearchPaths()
	if paths[0] != "." {
		t.Errorf("first search path = %q, want .", paths[0])
	}
	if paths[len(paths)-1] != "/etc/pulse" {
		t.Errorf("last search path = %q, want /etc/pulse", paths[len(paths)-1])
	}
}
