package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every DIALASCHEDULE_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, envPrefix) {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIURL != defaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.ScheduleFormat != "json" {
		t.Errorf("ScheduleFormat = %q, want json", cfg.ScheduleFormat)
	}
	if cfg.WebhookAddress != "0.0.0.0:8000" {
		t.Errorf("WebhookAddress = %q, want 0.0.0.0:8000", cfg.WebhookAddress)
	}
	if cfg.ObservabilityAddress != "127.0.0.1:9090" {
		t.Errorf("ObservabilityAddress = %q, want 127.0.0.1:9090", cfg.ObservabilityAddress)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %s, want 10s", cfg.FetchTimeout)
	}
	if cfg.RateLimit != 2 || cfg.RateBurst != 10 {
		t.Errorf("rate limit = %v/%d, want 2/10", cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.CallLogEnabled() {
		t.Error("call log should be disabled by default")
	}
	if cfg.LogLevel != defaultLogLevel || cfg.LogFormat != defaultLogFormat {
		t.Errorf("logging = %s/%s, want %s/%s", cfg.LogLevel, cfg.LogFormat, defaultLogLevel, defaultLogFormat)
	}
	if cfg.Location().String() != "Europe/London" {
		t.Errorf("Location = %s, want Europe/London", cfg.Location())
	}
}

func TestEnvVarOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIALASCHEDULE_API_URL", "http://localhost:8080/schedule.json")
	t.Setenv("DIALASCHEDULE_DATA_DIR", "/tmp/dialaschedule-test")
	t.Setenv("DIALASCHEDULE_FETCH_TIMEOUT", "3s")
	t.Setenv("DIALASCHEDULE_LOG_LEVEL", "DEBUG")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIURL != "http://localhost:8080/schedule.json" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.DataDir != "/tmp/dialaschedule-test" || !cfg.CallLogEnabled() {
		t.Errorf("DataDir = %q, want /tmp/dialaschedule-test", cfg.DataDir)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout = %s, want 3s", cfg.FetchTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestCLIFlagsPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIALASCHEDULE_WEBHOOK_ADDRESS", "0.0.0.0:9000")
	t.Setenv("DIALASCHEDULE_LOG_LEVEL", "debug")

	cfg, err := Load([]string{"-webhook-address", "127.0.0.1:3000", "--log-level", "warn"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WebhookAddress != "127.0.0.1:3000" {
		t.Errorf("WebhookAddress = %q, want 127.0.0.1:3000 (CLI should override env)", cfg.WebhookAddress)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn (CLI should override env)", cfg.LogLevel)
	}
}

func TestConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
api_url: https://example.org/schedule.ics
schedule_format: ics
timezone: UTC
rate_limit: 2.5
rate_burst: 5
fetch_timeout: 1m
`)

	cfg, err := Load([]string{"-config", path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIURL != "https://example.org/schedule.ics" || cfg.ScheduleFormat != "ics" {
		t.Errorf("schedule = %q (%s)", cfg.APIURL, cfg.ScheduleFormat)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location = %s, want UTC", cfg.Location())
	}
	if cfg.RateLimit != 2.5 || cfg.RateBurst != 5 {
		t.Errorf("rate limit = %v/%d, want 2.5/5", cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.FetchTimeout != time.Minute {
		t.Errorf("FetchTimeout = %s, want 1m", cfg.FetchTimeout)
	}
	if cfg.LogFormat != defaultLogFormat {
		t.Errorf("unset keys should keep defaults, LogFormat = %q", cfg.LogFormat)
	}
}

func TestConfigFilePrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "timezone: UTC\nlog_format: json\nrate_burst: 5\n")
	t.Setenv("DIALASCHEDULE_CONFIG", path)
	t.Setenv("DIALASCHEDULE_LOG_FORMAT", "text")

	cfg, err := Load([]string{"-rate-burst", "7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC from file", cfg.Timezone)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text (env should override file)", cfg.LogFormat)
	}
	if cfg.RateBurst != 7 {
		t.Errorf("RateBurst = %d, want 7 (CLI should override file)", cfg.RateBurst)
	}
}

func TestConfigFileUnknownKey(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "api_uri: https://example.org\n")

	if _, err := Load([]string{"-config", path}); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestConfigFileMissing(t *testing.T) {
	clearEnv(t)

	if _, err := Load([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigFileEmpty(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "")

	cfg, err := Load([]string{"-config", path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Errorf("APIURL = %q, want default", cfg.APIURL)
	}
}

func TestInvalidEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIALASCHEDULE_RATE_BURST", "lots")

	if _, err := Load(nil); err == nil {
		t.Fatal("expected error for non-numeric rate burst")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIURL:               defaultAPIURL,
			ScheduleFormat:       "json",
			WebhookAddress:       defaultWebhookAddress,
			ObservabilityAddress: defaultObservabilityAddress,
			Timezone:             "UTC",
			FetchTimeout:         time.Second,
			RateLimit:            1,
			RateBurst:            1,
			LogLevel:             "info",
			LogFormat:            "text",
		}
	}

	if err := valid().validate(); err != nil {
		t.Fatalf("baseline config should be valid: %v", err)
	}

	tests := map[string]func(c *Config){
		"relative api url":   func(c *Config) { c.APIURL = "/schedule" },
		"ftp api url":        func(c *Config) { c.APIURL = "ftp://example.org/schedule" },
		"unknown format":     func(c *Config) { c.ScheduleFormat = "xml" },
		"bad webhook addr":   func(c *Config) { c.WebhookAddress = "8000" },
		"bad metrics addr":   func(c *Config) { c.ObservabilityAddress = "localhost" },
		"unknown timezone":   func(c *Config) { c.Timezone = "Mars/Olympus_Mons" },
		"zero timeout":       func(c *Config) { c.FetchTimeout = 0 },
		"negative rate":      func(c *Config) { c.RateLimit = -1 },
		"zero burst":         func(c *Config) { c.RateBurst = 0 },
		"invalid log level":  func(c *Config) { c.LogLevel = "verbose" },
		"invalid log format": func(c *Config) { c.LogFormat = "xml" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			if err := c.validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateRateLimitDisabled(t *testing.T) {
	c := &Config{
		APIURL:               defaultAPIURL,
		ScheduleFormat:       "ICS",
		WebhookAddress:       defaultWebhookAddress,
		ObservabilityAddress: defaultObservabilityAddress,
		Timezone:             "UTC",
		FetchTimeout:         time.Second,
		RateLimit:            0,
		RateBurst:            0,
		LogLevel:             "info",
		LogFormat:            "JSON",
	}
	if err := c.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ScheduleFormat != "ics" || c.LogFormat != "json" {
		t.Errorf("expected normalised values, got %s/%s", c.ScheduleFormat, c.LogFormat)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSlogHandlerFormat(t *testing.T) {
	cfg := &Config{LogLevel: "info", LogFormat: "json"}
	if _, ok := cfg.SlogHandler(os.Stderr).(*slog.JSONHandler); !ok {
		t.Error("expected JSON handler")
	}
	cfg.LogFormat = "text"
	if _, ok := cfg.SlogHandler(os.Stderr).(*slog.TextHandler); !ok {
		t.Error("expected text handler")
	}
}
