// Package config loads the engine's YAML configuration with environment
// overrides for deployment-sensitive values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Entity    EntityConfig    `yaml:"entity"`
	Engine    EngineConfig    `yaml:"engine"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Retention RetentionConfig `yaml:"retention"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8085".
}

// DatabaseConfig configures the engine database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // Postgres DSN or sqlite path.
}

// RedisConfig configures the optional rule cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig configures API authentication.
type AuthConfig struct {
	Secret string `yaml:"secret"` // Shared JWT signing secret.
}

// EntityConfig points at the platform's internal entity API.
type EntityConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// EngineConfig bounds the dispatch pipeline.
type EngineConfig struct {
	QueueDepth            int `yaml:"queue_depth"`
	Workers               int `yaml:"workers"`
	WebhookTimeoutSeconds int `yaml:"webhook_timeout_seconds"`
}

// SchedulerConfig bounds the scheduled-rule scan.
type SchedulerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	BatchLimit      int `yaml:"batch_limit"`
}

// RetentionConfig configures the operational execution cleanup. Zero keeps
// executions forever.
type RetentionConfig struct {
	ExecutionDays int `yaml:"execution_days"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error.
	File       string `yaml:"file"`        // Log file path; empty logs to stdout only.
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotate size.
	MaxBackups int    `yaml:"max_backups"` // Rotated files kept.
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates required values.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, fmt.Errorf("config: database.dsn is required")
	}
	if strings.TrimSpace(cfg.Auth.Secret) == "" {
		return nil, fmt.Errorf("config: auth.secret is required")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AUTOMATION_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("AUTOMATION_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("AUTOMATION_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("AUTOMATION_AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("AUTOMATION_ENTITY_URL"); v != "" {
		c.Entity.BaseURL = v
	}
	if v := os.Getenv("AUTOMATION_ENTITY_TOKEN"); v != "" {
		c.Entity.Token = v
	}
	if v := os.Getenv("AUTOMATION_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("AUTOMATION_RETENTION_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.Retention.ExecutionDays = parsed
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8085"
	}
	if c.Entity.TimeoutSeconds <= 0 {
		c.Entity.TimeoutSeconds = 10
	}
	if c.Engine.QueueDepth <= 0 {
		c.Engine.QueueDepth = 256
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = 4
	}
	if c.Engine.WebhookTimeoutSeconds <= 0 {
		c.Engine.WebhookTimeoutSeconds = 15
	}
	if c.Scheduler.IntervalSeconds <= 0 {
		c.Scheduler.IntervalSeconds = 120
	}
	if c.Scheduler.BatchLimit <= 0 {
		c.Scheduler.BatchLimit = 500
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 30
	}
}

// WebhookTimeout returns the webhook timeout as a duration.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Engine.WebhookTimeoutSeconds) * time.Second
}

// EntityTimeout returns the entity API timeout as a duration.
func (c *Config) EntityTimeout() time.Duration {
	return time.Duration(c.Entity.TimeoutSeconds) * time.Second
}

// SchedulerInterval returns the scheduler tick cadence as a duration.
func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}
