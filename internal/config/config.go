// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package config

import (
	"time"

	"github.com/tomtom215/tablemates/internal/recommend"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig   `koanf:"database"`
	Server    ServerConfig     `koanf:"server"`
	Security  SecurityConfig   `koanf:"security"`
	Logging   LoggingConfig    `koanf:"logging"`
	Training  TrainingConfig   `koanf:"training"`
	Recommend recommend.Config `koanf:"recommend"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // 0 = use NumCPU
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // DuckDB default is true
	SeedDemoData           bool   `koanf:"seed_demo_data"`           // Insert a small demo dataset into an empty database
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds request admission settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// TrainingConfig schedules model training in the background service.
//
// Environment Variables:
//   - TRAIN_INTERVAL: time between scheduled runs, 0 means the default (default: 24h)
//   - TRAIN_ON_STARTUP: train when no persisted model loads (default: true)
//   - TRAIN_TRIGGER_RATE: manual triggers allowed per hour (default: 6)
type TrainingConfig struct {
	Interval    time.Duration `koanf:"interval"`
	OnStartup   bool          `koanf:"on_startup"`
	TriggerRate int           `koanf:"trigger_rate"`
}
