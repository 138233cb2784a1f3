// Package config loads the scheduler's environment-driven options (spec
// §6.4), grounded directly on the teacher's config.Load pattern: caarlos0/env
// for parsing, go-playground/validator for constraint checking.
package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	AgentRunnerBaseURL string `env:"AGENT_RUNNER_BASE_URL,required" validate:"required,url"`

	CheckIntervalSec    int  `env:"CHECK_INTERVAL_SEC" envDefault:"60" validate:"min=1,max=3600"`
	MaxConcurrentAgents int  `env:"MAX_CONCURRENT_AGENTS" envDefault:"5" validate:"min=1,max=1000"`
	RunMissedOnStartup  bool `env:"RUN_MISSED_ON_STARTUP" envDefault:"false"`
	AutoStart           bool `env:"AUTO_START" envDefault:"false"`

	RetryMaxAttempts    int `env:"RETRY_MAX_ATTEMPTS" envDefault:"3" validate:"min=0,max=20"`
	RetryBaseBackoffSec int `env:"RETRY_BASE_BACKOFF_SEC" envDefault:"1" validate:"min=1,max=3600"`
	RetryMaxBackoffSec  int `env:"RETRY_MAX_BACKOFF_SEC" envDefault:"300" validate:"min=1,max=86400"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`

	JWTSecret string `env:"JWT_SECRET,required" validate:"required"`

	OTelExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel converts the LOG_LEVEL string to a slog.Level.
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
