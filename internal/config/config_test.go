package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("ELECTION_BACKEND_URL", "")
	path := writeConfig(t, "backend:\n  url: http://backend.local:8080\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Backend.URL != "http://backend.local:8080" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
	if cfg.Live.MaxReconnectAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", cfg.Live.MaxReconnectAttempts)
	}
	if cfg.Live.PollInterval != 10*time.Second {
		t.Errorf("poll interval = %v, want 10s", cfg.Live.PollInterval)
	}
	if cfg.Live.ConnectTimeout != 20*time.Second {
		t.Errorf("connect timeout = %v, want 20s", cfg.Live.ConnectTimeout)
	}
	if cfg.Bootstrap.Timeout != 15*time.Second {
		t.Errorf("bootstrap timeout = %v, want 15s", cfg.Bootstrap.Timeout)
	}
	if !cfg.Server.IsEnabled() {
		t.Error("server should be enabled by default")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_ParsesDurations(t *testing.T) {
	path := writeConfig(t, `
live:
  reconnect_base_delay: 500ms
  reconnect_max_delay: 8s
  poll_interval: 3s
search:
  debounce: 150ms
server:
  enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := cfg.ReconnectPolicy()
	if p.Base != 500*time.Millisecond || p.MaxDelay != 8*time.Second {
		t.Errorf("unexpected policy %+v", p)
	}
	if cfg.Live.PollInterval != 3*time.Second {
		t.Errorf("poll interval = %v", cfg.Live.PollInterval)
	}
	if cfg.Search.Debounce != 150*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Search.Debounce)
	}
	if cfg.Server.IsEnabled() {
		t.Error("server should be disabled")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ELECTION_BACKEND_URL", "https://elections.example.org")
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	path := writeConfig(t, "notifications:\n  telegram:\n    enabled: true\n    events: [LEADER_CHANGED]\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Backend.URL != "https://elections.example.org" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
	if cfg.Notifications.Telegram.Token != "tok" || cfg.Notifications.Telegram.ChatID != "42" {
		t.Errorf("telegram secrets not applied: %+v", cfg.Notifications.Telegram)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}

	push, err := cfg.PushURL()
	if err != nil {
		t.Fatalf("PushURL: %v", err)
	}
	if push != "wss://elections.example.org/ws" {
		t.Errorf("push url = %q", push)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MonitorConfig)
	}{
		{"relative url", func(c *MonitorConfig) { c.Backend.URL = "backend" }},
		{"bad scheme", func(c *MonitorConfig) { c.Backend.URL = "ftp://backend" }},
		{"cap below base", func(c *MonitorConfig) { c.Live.ReconnectMaxDelay = time.Millisecond }},
		{"discord without url", func(c *MonitorConfig) {
			c.Notifications.Discord = &DiscordConfig{Enabled: true}
		}},
		{"telegram without token", func(c *MonitorConfig) {
			c.Notifications.Telegram = &TelegramConfig{Enabled: true}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ELECTION_BACKEND_URL", "")
			t.Setenv("TELEGRAM_TOKEN", "")
			t.Setenv("DISCORD_WEBHOOK", "")
			cfg := Default()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
