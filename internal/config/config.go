// Package config handles loading, parsing, and validating the YAML
// configuration file for the election monitor. It supports environment
// variable overrides for the backend location and notification secrets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Guliveer/election-monitor-go/internal/backoff"
	"github.com/Guliveer/election-monitor-go/internal/constants"
)

// DefaultConfigPath is the default location of the configuration file.
const DefaultConfigPath = "configs/monitor.yaml"

// Default returns a configuration with every default applied and
// environment overrides overlaid.
func Default() *MonitorConfig {
	var cfg MonitorConfig
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg
}

// Load loads the monitor configuration from a YAML file, then overlays
// environment variables. A missing file at the default path is not an
// error; defaults are used instead.
func Load(path string) (*MonitorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultConfigPath {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg MonitorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *MonitorConfig) {
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = constants.DefaultBackendURL
	}
	if cfg.Backend.PushPath == "" {
		cfg.Backend.PushPath = constants.PushPath
	}
	if cfg.Backend.HTTPTimeout == 0 {
		cfg.Backend.HTTPTimeout = constants.DefaultHTTPTimeout
	}
	if cfg.Backend.MaxRetries == 0 {
		cfg.Backend.MaxRetries = constants.DefaultPollMaxRetries
	}

	if cfg.Live.MaxReconnectAttempts == 0 {
		cfg.Live.MaxReconnectAttempts = constants.DefaultMaxReconnectAttempts
	}
	if cfg.Live.ReconnectBaseDelay == 0 {
		cfg.Live.ReconnectBaseDelay = constants.DefaultReconnectBaseDelay
	}
	if cfg.Live.ReconnectMaxDelay == 0 {
		cfg.Live.ReconnectMaxDelay = constants.DefaultReconnectMaxDelay
	}
	if cfg.Live.ConnectTimeout == 0 {
		cfg.Live.ConnectTimeout = constants.DefaultConnectTimeout
	}
	if cfg.Live.PollInterval == 0 {
		cfg.Live.PollInterval = constants.DefaultPollInterval
	}
	if cfg.Live.PollMaxRetries == 0 {
		cfg.Live.PollMaxRetries = constants.DefaultPollMaxRetries
	}

	if cfg.Bootstrap.Timeout == 0 {
		cfg.Bootstrap.Timeout = constants.DefaultBootstrapTimeout
	}

	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = constants.DefaultSearchDebounce
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = constants.DefaultSearchLimit
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}

	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 7
	}

	if cfg.Prefs.Path == "" {
		cfg.Prefs.Path = "data/preferences.yaml"
	}
}

// applyEnvOverrides overlays environment variables for the backend location
// and notification secrets.
func applyEnvOverrides(cfg *MonitorConfig) {
	if v := os.Getenv("ELECTION_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("MONITOR_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if cfg.Notifications.Telegram != nil {
		if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
			cfg.Notifications.Telegram.Token = v
		}
		if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
			cfg.Notifications.Telegram.ChatID = v
		}
	}

	if cfg.Notifications.Discord != nil {
		if v := os.Getenv("DISCORD_WEBHOOK"); v != "" {
			cfg.Notifications.Discord.WebhookURL = v
		}
	}

	if cfg.Notifications.Webhook != nil {
		if v := os.Getenv("WEBHOOK_URL"); v != "" {
			cfg.Notifications.Webhook.Endpoint = v
		}
	}
}

// ReconnectPolicy returns the live channel's reconnect policy.
func (cfg *MonitorConfig) ReconnectPolicy() backoff.Policy {
	return backoff.Policy{
		Base:        cfg.Live.ReconnectBaseDelay,
		MaxDelay:    cfg.Live.ReconnectMaxDelay,
		MaxAttempts: cfg.Live.MaxReconnectAttempts,
	}
}

// RetryPolicy returns the policy used to retry a single backend request.
// It shares the reconnect delays but has its own bound.
func (cfg *MonitorConfig) RetryPolicy() backoff.Policy {
	return backoff.Policy{
		Base:        cfg.Live.ReconnectBaseDelay,
		MaxDelay:    cfg.Live.ReconnectMaxDelay,
		MaxAttempts: cfg.Backend.MaxRetries,
	}
}

// PushURL returns the WebSocket URL for push events derived from the backend URL.
func (cfg *MonitorConfig) PushURL() (string, error) {
	u, err := url.Parse(cfg.Backend.URL)
	if err != nil {
		return "", fmt.Errorf("parsing backend url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + cfg.Backend.PushPath
	return u.String(), nil
}

// Validate checks the configuration for common errors.
func Validate(cfg *MonitorConfig) error {
	u, err := url.Parse(cfg.Backend.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("backend url %q is not a valid absolute url", cfg.Backend.URL)
	}
	if _, err := cfg.PushURL(); err != nil {
		return err
	}

	if cfg.Live.MaxReconnectAttempts < 0 {
		return fmt.Errorf("live.max_reconnect_attempts must not be negative")
	}
	if cfg.Live.ReconnectMaxDelay < cfg.Live.ReconnectBaseDelay {
		return fmt.Errorf("live.reconnect_max_delay (%s) is smaller than reconnect_base_delay (%s)",
			cfg.Live.ReconnectMaxDelay, cfg.Live.ReconnectBaseDelay)
	}
	if cfg.Live.PollInterval <= 0 {
		return fmt.Errorf("live.poll_interval must be positive")
	}

	if cfg.Notifications.Telegram != nil && cfg.Notifications.Telegram.Enabled {
		if cfg.Notifications.Telegram.Token == "" || cfg.Notifications.Telegram.ChatID == "" {
			return fmt.Errorf("telegram enabled but token or chat_id not set (use env vars TELEGRAM_TOKEN and TELEGRAM_CHAT_ID)")
		}
	}

	if cfg.Notifications.Discord != nil && cfg.Notifications.Discord.Enabled {
		if cfg.Notifications.Discord.WebhookURL == "" {
			return fmt.Errorf("discord enabled but webhook_url not set (use env var DISCORD_WEBHOOK)")
		}
	}

	if cfg.Notifications.Webhook != nil && cfg.Notifications.Webhook.Enabled {
		if cfg.Notifications.Webhook.Endpoint == "" {
			return fmt.Errorf("webhook enabled but endpoint not set (use env var WEBHOOK_URL)")
		}
	}

	return nil
}
