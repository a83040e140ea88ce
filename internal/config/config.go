package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the Dial-a-Schedule service.
// Precedence: CLI flags > env vars > config file > defaults.
type Config struct {
	ConfigFile           string
	APIURL               string
	ScheduleFormat       string // "json" or "ics"
	WebhookAddress       string
	ObservabilityAddress string
	Timezone             string
	FetchTimeout         time.Duration
	RateLimit            float64 // requests per second per call; 0 disables limiting
	RateBurst            int
	DataDir              string // empty disables the call log
	LogLevel             string
	LogFormat            string // "text" or "json"

	location *time.Location
}

// defaults
const (
	defaultAPIURL               = "https://schedule.emfcamp.dan-nixon.com/schedule"
	defaultScheduleFormat       = "json"
	defaultWebhookAddress       = "0.0.0.0:8000"
	defaultObservabilityAddress = "127.0.0.1:9090"
	defaultTimezone             = "Europe/London"
	defaultFetchTimeout         = 10 * time.Second
	defaultRateLimit            = 2
	defaultRateBurst            = 10
	defaultLogLevel             = "info"
	defaultLogFormat            = "text"
)

// envPrefix is the prefix for all Dial-a-Schedule environment variables.
const envPrefix = "DIALASCHEDULE_"

// dotEnvFile is loaded into the environment, if present, before anything
// else is read. Variables already set in the environment win.
const dotEnvFile = ".env"

// fileConfig is the YAML config file layout. Unset keys leave the default in
// place.
type fileConfig struct {
	APIURL               *string  `yaml:"api_url"`
	ScheduleFormat       *string  `yaml:"schedule_format"`
	WebhookAddress       *string  `yaml:"webhook_address"`
	ObservabilityAddress *string  `yaml:"observability_address"`
	Timezone             *string  `yaml:"timezone"`
	FetchTimeout         *string  `yaml:"fetch_timeout"`
	RateLimit            *float64 `yaml:"rate_limit"`
	RateBurst            *int     `yaml:"rate_burst"`
	DataDir              *string  `yaml:"data_dir"`
	LogLevel             *string  `yaml:"log_level"`
	LogFormat            *string  `yaml:"log_format"`
}

// values returns the keys present in the file, by flag name.
func (f *fileConfig) values() map[string]string {
	out := make(map[string]string)
	str := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	str("api-url", f.APIURL)
	str("schedule-format", f.ScheduleFormat)
	str("webhook-address", f.WebhookAddress)
	str("observability-address", f.ObservabilityAddress)
	str("timezone", f.Timezone)
	str("fetch-timeout", f.FetchTimeout)
	str("data-dir", f.DataDir)
	str("log-level", f.LogLevel)
	str("log-format", f.LogFormat)
	if f.RateLimit != nil {
		out["rate-limit"] = strconv.FormatFloat(*f.RateLimit, 'f', -1, 64)
	}
	if f.RateBurst != nil {
		out["rate-burst"] = strconv.Itoa(*f.RateBurst)
	}
	return out
}

// Load parses configuration from args (without the program name), the
// environment and the optional YAML file named by -config.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", dotEnvFile, err)
	}

	cfg := &Config{}
	flags := newFlagSet(cfg)

	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	explicit := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	if !explicit["config"] {
		if v, ok := os.LookupEnv(envName("config")); ok && v != "" {
			cfg.ConfigFile = v
		}
	}
	if cfg.ConfigFile != "" {
		values, err := readFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		if err := applyValues(flags, explicit, values, "config file"); err != nil {
			return nil, err
		}
	}

	if err := applyValues(flags, explicit, envValues(flags), "environment"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("dialaschedule", flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigFile, "config", "", "path to a YAML config file")
	fs.StringVar(&cfg.APIURL, "api-url", defaultAPIURL, "URL of the event schedule")
	fs.StringVar(&cfg.ScheduleFormat, "schedule-format", defaultScheduleFormat, "schedule format (json, ics)")
	fs.StringVar(&cfg.WebhookAddress, "webhook-address", defaultWebhookAddress, "address to listen on for jambonz webhooks")
	fs.StringVar(&cfg.ObservabilityAddress, "observability-address", defaultObservabilityAddress, "address to serve metrics and health on")
	fs.StringVar(&cfg.Timezone, "timezone", defaultTimezone, "IANA timezone times are spoken in")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", defaultFetchTimeout, "timeout for fetching the schedule")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", defaultRateLimit, "webhook requests per second per call (0 disables)")
	fs.IntVar(&cfg.RateBurst, "rate-burst", defaultRateBurst, "webhook request burst per call")
	fs.StringVar(&cfg.DataDir, "data-dir", "", "directory for the call status log (empty disables it)")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")

	return fs
}

// envName maps a flag name to its environment variable, e.g. api-url to
// DIALASCHEDULE_API_URL.
func envName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func envValues(fs *flag.FlagSet) map[string]string {
	out := make(map[string]string)
	fs.VisitAll(func(f *flag.Flag) {
		if f.Name == "config" {
			return
		}
		if v, ok := os.LookupEnv(envName(f.Name)); ok && v != "" {
			out[f.Name] = v
		}
	})
	return out
}

func readFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return fc.values(), nil
}

// applyValues sets every flag not given on the command line from values.
func applyValues(fs *flag.FlagSet, explicit map[string]bool, values map[string]string, source string) error {
	for name, val := range values {
		if explicit[name] {
			continue
		}
		if err := fs.Set(name, val); err != nil {
			return fmt.Errorf("%s: invalid %s %q: %w", source, name, val, err)
		}
	}
	return nil
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api-url must be an absolute http(s) URL, got %q", c.APIURL)
	}

	c.ScheduleFormat = strings.ToLower(c.ScheduleFormat)
	if c.ScheduleFormat != "json" && c.ScheduleFormat != "ics" {
		return fmt.Errorf("schedule-format must be one of json, ics; got %q", c.ScheduleFormat)
	}

	if _, _, err := net.SplitHostPort(c.WebhookAddress); err != nil {
		return fmt.Errorf("webhook-address must be host:port, got %q", c.WebhookAddress)
	}
	if _, _, err := net.SplitHostPort(c.ObservabilityAddress); err != nil {
		return fmt.Errorf("observability-address must be host:port, got %q", c.ObservabilityAddress)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch-timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate-limit must not be negative, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate-burst must be at least 1 when rate limiting, got %d", c.RateBurst)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	return nil
}

// Location returns the timezone times are spoken in. It is UTC until the
// config has been validated.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// CallLogEnabled reports whether call status reports are stored.
func (c *Config) CallLogEnabled() bool {
	return c.DataDir != ""
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
