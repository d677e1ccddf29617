// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/tablemates/internal/recommend"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Path != "/data/tablemates.duckdb" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Training.Interval != 24*time.Hour || !cfg.Training.OnStartup {
		t.Errorf("Training = %+v, want daily with startup run", cfg.Training)
	}
	if cfg.Recommend.Hybrid.RuleWeight != 0.7 || cfg.Recommend.Hybrid.GNNWeight != 0.3 {
		t.Errorf("Recommend.Hybrid weights = %v/%v, want 0.7/0.3", cfg.Recommend.Hybrid.RuleWeight, cfg.Recommend.Hybrid.GNNWeight)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig().Validate() error = %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"DUCKDB_PATH", "database.path"},
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"TRAIN_INTERVAL", "training.interval"},
		{"RECOMMEND_EPOCHS", "recommend.training.epochs"},
		{"RECOMMEND_RULE_WEIGHT", "recommend.hybrid.rule_weight"},
		{"GROUP_RESULT_LIMIT", "recommend.group.result_limit"},
		{"HOME", ""},
		{"PATH", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := envTransformFunc(tt.key); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRAIN_INTERVAL", "2h")
	t.Setenv("RECOMMEND_EPOCHS", "7")
	t.Setenv("RECOMMEND_PREDICTION_TIMEOUT", "500ms")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := load("")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Training.Interval != 2*time.Hour {
		t.Errorf("Training.Interval = %v, want 2h", cfg.Training.Interval)
	}
	if cfg.Recommend.Training.Epochs != 7 {
		t.Errorf("Recommend.Training.Epochs = %d, want 7", cfg.Recommend.Training.Epochs)
	}
	if cfg.Recommend.Hybrid.PredictionTimeout != 500*time.Millisecond {
		t.Errorf("PredictionTimeout = %v, want 500ms", cfg.Recommend.Hybrid.PredictionTimeout)
	}
	if !slices.Equal(cfg.Security.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	// Untouched defaults survive.
	if cfg.Recommend.Model.EmbeddingDim != 64 {
		t.Errorf("EmbeddingDim = %d, want 64", cfg.Recommend.Model.EmbeddingDim)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 7000
recommend:
  model:
    embedding_dim: 16
  group:
    result_limit: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_PORT", "7001")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("Server.Port = %d, want env to win with 7001", cfg.Server.Port)
	}
	if cfg.Recommend.Model.EmbeddingDim != 16 {
		t.Errorf("EmbeddingDim = %d, want 16", cfg.Recommend.Model.EmbeddingDim)
	}
	if cfg.Recommend.Group.ResultLimit != 5 {
		t.Errorf("Group.ResultLimit = %d, want 5", cfg.Recommend.Group.ResultLimit)
	}
}

func TestLoad_InvalidRecommend(t *testing.T) {
	t.Setenv("RECOMMEND_RULE_WEIGHT", "0.9")

	_, err := load("")
	if !errors.Is(err, recommend.ErrInvalidConfig) {
		t.Errorf("load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"bad environment", func(c *Config) { c.Server.Environment = "qa" }, "ENVIRONMENT"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "DUCKDB_PATH"},
		{"negative interval", func(c *Config) { c.Training.Interval = -time.Second }, "TRAIN_INTERVAL"},
		{"zero trigger rate", func(c *Config) { c.Training.TriggerRate = 0 }, "TRAIN_TRIGGER_RATE"},
		{"wildcard cors in production", func(c *Config) { c.Server.Environment = "production" }, "CORS_ORIGINS"},
		{"rate limit disabled skips checks", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
