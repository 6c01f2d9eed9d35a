package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
server:
  listen_addr: ":9080"
  read_timeout: 10s

storage:
  database_path: "/tmp/rotapost.db"
  history_path: "/tmp/history.db"

scheduler:
  timezone: "Europe/Berlin"
  dispatch_interval: 30s
  plan_cron: "15 0 * * *"

telegram:
  token: "123:abc"
  chat_id: -100987654321

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  listen_addr: ":9091"
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":9080" {
		t.Errorf("ListenAddr = %v, want :9080", cfg.Server.ListenAddr)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Scheduler.Timezone != "Europe/Berlin" {
		t.Errorf("Timezone = %v, want Europe/Berlin", cfg.Scheduler.Timezone)
	}
	if cfg.Scheduler.DispatchInterval != 30*time.Second {
		t.Errorf("DispatchInterval = %v, want 30s", cfg.Scheduler.DispatchInterval)
	}
	if cfg.Scheduler.PlanCron != "15 0 * * *" {
		t.Errorf("PlanCron = %v", cfg.Scheduler.PlanCron)
	}
	if !cfg.HasTelegram() || cfg.Telegram.ChatID != -100987654321 {
		t.Errorf("Telegram = %+v", cfg.Telegram)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.ListenAddr != ":9091" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}

	// Unset values fall back to defaults.
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout default = %v, want 30s", cfg.Server.WriteTimeout)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path default = %v, want /metrics", cfg.Metrics.Path)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %v, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Scheduler.Timezone != "UTC" {
		t.Errorf("Timezone = %v, want UTC", cfg.Scheduler.Timezone)
	}
	if cfg.Scheduler.DispatchInterval != time.Minute {
		t.Errorf("DispatchInterval = %v, want 1m", cfg.Scheduler.DispatchInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestTelegramEnvFallback(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100555")

	cfg := Default()
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("Token = %v, want env-token", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChatID != -100555 {
		t.Errorf("ChatID = %v, want -100555", cfg.Telegram.ChatID)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{"tiny dispatch interval", func(c *Config) { c.Scheduler.DispatchInterval = 100 * time.Millisecond }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
