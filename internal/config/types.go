package config

import "time"

// MonitorConfig represents the full configuration of the election monitor.
// It is loaded from a YAML file and optionally overlaid with environment variables.
type MonitorConfig struct {
	Backend BackendConfig `yaml:"backend"`

	Live LiveConfig `yaml:"live"`

	Bootstrap BootstrapConfig `yaml:"bootstrap"`

	Search SearchConfig `yaml:"search"`

	Server ServerConfig `yaml:"server"`

	Log LogConfig `yaml:"log"`

	Prefs PrefsConfig `yaml:"prefs"`

	Notifications NotificationsConfig `yaml:"notifications"`
}

// BackendConfig locates the election analytics backend.
type BackendConfig struct {
	URL         string        `yaml:"url"`
	PushPath    string        `yaml:"push_path"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// LiveConfig tunes the live update channel.
type LiveConfig struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	PollInterval         time.Duration `yaml:"poll_interval"`
	PollMaxRetries       int           `yaml:"poll_max_retries"`
}

// BootstrapConfig bounds the initial-load sequence.
type BootstrapConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// SearchConfig tunes constituency search.
type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Limit    int           `yaml:"limit"`
}

// ServerConfig holds settings for the local dashboard server.
type ServerConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr"`
}

// IsEnabled reports whether the dashboard server should run. Defaults to true.
func (s ServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LogConfig holds log file settings. Console level is controlled by flags.
type LogConfig struct {
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// PrefsConfig locates the persisted user preference file.
type PrefsConfig struct {
	Path string `yaml:"path"`
}

// NotificationsConfig holds all notification provider configurations.
type NotificationsConfig struct {
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`
	Discord  *DiscordConfig  `yaml:"discord,omitempty"`
	Webhook  *WebhookConfig  `yaml:"webhook,omitempty"`
}

// TelegramConfig holds Telegram notification settings.
type TelegramConfig struct {
	Enabled             bool     `yaml:"enabled"`
	Token               string   `yaml:"token,omitempty"`
	ChatID              string   `yaml:"chat_id,omitempty"`
	Events              []string `yaml:"events"`
	DisableNotification bool     `yaml:"disable_notification"`
}

// DiscordConfig holds Discord notification settings.
type DiscordConfig struct {
	Enabled    bool     `yaml:"enabled"`
	WebhookURL string   `yaml:"webhook_url,omitempty"`
	Events     []string `yaml:"events"`
}

// WebhookConfig holds generic webhook notification settings.
type WebhookConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Endpoint string            `yaml:"endpoint,omitempty"`
	Method   string            `yaml:"method"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Events   []string          `yaml:"events"`
}
