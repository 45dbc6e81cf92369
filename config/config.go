// Package config loads server configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment
// variables. Command-line flags in cmd/server override the basics.
type Config struct {
	// General
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	DBPath   string `envconfig:"DB_PATH" default:"kpi.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Status engine
	WarningDays int `envconfig:"WARNING_DAYS" default:"3"`

	// Reminder scheduler
	SchedulerEnabled bool `envconfig:"SCHEDULER_ENABLED" default:"true"`
	// Hour of day (server-local) at which the daily reminder run fires.
	ReminderHour int `envconfig:"REMINDER_HOUR" default:"8"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.ReminderHour < 0 || cfg.ReminderHour > 23 {
		return nil, fmt.Errorf("REMINDER_HOUR must be 0-23, got %d", cfg.ReminderHour)
	}
	if cfg.WarningDays < 1 {
		return nil, fmt.Errorf("WARNING_DAYS must be at least 1, got %d", cfg.WarningDays)
	}
	return &cfg, nil
}
