package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig contains HTTP API server settings
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`     // Default: :8080
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // Default: 15s
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // Default: 30s
	IdleTimeout    time.Duration `yaml:"idle_timeout"`    // Default: 60s
	RequestTimeout time.Duration `yaml:"request_timeout"` // Default: 30s
}

// StorageConfig contains storage settings
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"` // SQLite schedule database
	HistoryPath  string `yaml:"history_path"`  // BoltDB delivery log
}

// SchedulerConfig contains planning and dispatch settings
type SchedulerConfig struct {
	Timezone         string        `yaml:"timezone"`          // IANA name, default UTC
	DispatchInterval time.Duration `yaml:"dispatch_interval"` // Tick period, default 1m
	SendTimeout      time.Duration `yaml:"send_timeout"`      // Per-delivery timeout, default 2m
	PlanCron         string        `yaml:"plan_cron"`         // Daily planning schedule, default "5 0 * * *"
}

// TelegramConfig contains delivery channel settings
type TelegramConfig struct {
	Token  string `yaml:"token"`   // Falls back to TELEGRAM_BOT_TOKEN
	ChatID int64  `yaml:"chat_id"` // Falls back to TELEGRAM_CHAT_ID
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"` // Default: :9090
	Path       string `yaml:"path"`        // Default: /metrics
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with all defaults applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}

	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "data/rotapost.db"
	}
	if c.Storage.HistoryPath == "" {
		c.Storage.HistoryPath = "data/history.db"
	}

	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "UTC"
	}
	if c.Scheduler.DispatchInterval == 0 {
		c.Scheduler.DispatchInterval = time.Minute
	}
	if c.Scheduler.SendTimeout == 0 {
		c.Scheduler.SendTimeout = 2 * time.Minute
	}
	if c.Scheduler.PlanCron == "" {
		// Shortly after midnight, so the day is planned before the window opens.
		c.Scheduler.PlanCron = "5 0 * * *"
	}

	if c.Telegram.Token == "" {
		c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if c.Telegram.ChatID == 0 {
		if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				c.Telegram.ChatID = id
			}
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler.timezone: %w", err)
	}
	if c.Scheduler.DispatchInterval < time.Second {
		return fmt.Errorf("scheduler.dispatch_interval must be at least 1s")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

// HasTelegram reports whether a delivery channel is configured.
func (c *Config) HasTelegram() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != 0
}
