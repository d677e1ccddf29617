// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/tablemates/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tablemates/config.yaml",
	"/etc/tablemates/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/tablemates.duckdb",
			MaxMemory:              "1GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Training: TrainingConfig{
			Interval:    24 * time.Hour,
			OnStartup:   true,
			TriggerRate: 6,
		},
		Recommend: *recommend.DefaultConfig(),
	}
}

// Load reads configuration from defaults, the optional config file, and
// the environment, in increasing priority, then validates it.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_demo_data":    "database.seed_demo_data",

	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Training schedule
	"train_interval":     "training.interval",
	"train_on_startup":   "training.on_startup",
	"train_trigger_rate": "training.trigger_rate",

	// Recommendation engine
	"recommend_min_interactions":        "recommend.graph.min_interactions",
	"recommend_include_friendships":     "recommend.graph.include_friendships",
	"recommend_embedding_dim":           "recommend.model.embedding_dim",
	"recommend_num_layers":              "recommend.model.num_layers",
	"recommend_epochs":                  "recommend.training.epochs",
	"recommend_batch_size":              "recommend.training.batch_size",
	"recommend_learning_rate":           "recommend.training.learning_rate",
	"recommend_seed":                    "recommend.training.seed",
	"recommend_train_timeout":           "recommend.training.timeout",
	"recommend_filter_negatives":        "recommend.training.filter_negative_collisions",
	"recommend_compatibility_threshold": "recommend.scoring.compatibility_threshold",
	"recommend_default_max_distance_km": "recommend.scoring.default_max_distance_km",
	"recommend_rule_weight":             "recommend.hybrid.rule_weight",
	"recommend_gnn_weight":              "recommend.hybrid.gnn_weight",
	"recommend_prediction_timeout":      "recommend.hybrid.prediction_timeout",
	"recommend_surface_placeholder":     "recommend.hybrid.surface_placeholder",
	"recommend_model_path":              "recommend.storage.model_path",
	"recommend_retain_versions":         "recommend.storage.retain_versions",
	"recommend_rebuild_graph_on_load":   "recommend.storage.rebuild_graph_on_load",
	"group_max_distance_km":             "recommend.group.default_max_distance_km",
	"group_result_limit":                "recommend.group.result_limit",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped keys return "" and are skipped.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - RECOMMEND_EPOCHS -> recommend.training.epochs
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
