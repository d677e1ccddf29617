// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package recommend

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}

	t.Run("venue fit weights sum to 1", func(t *testing.T) {
		if sum := cfg.Scoring.VenueFit.Sum(); math.Abs(sum-1) > 1e-9 {
			t.Errorf("VenueFit.Sum() = %f, want 1", sum)
		}
	})

	t.Run("compatibility weights sum to 1", func(t *testing.T) {
		if sum := cfg.Scoring.Compatibility.Sum(); math.Abs(sum-1) > 1e-9 {
			t.Errorf("Compatibility.Sum() = %f, want 1", sum)
		}
	})

	t.Run("model defaults", func(t *testing.T) {
		if cfg.Model.EmbeddingDim != 64 {
			t.Errorf("EmbeddingDim = %d, want 64", cfg.Model.EmbeddingDim)
		}
		if cfg.Model.NumLayers != 3 {
			t.Errorf("NumLayers = %d, want 3", cfg.Model.NumLayers)
		}
	})

	t.Run("hybrid defaults", func(t *testing.T) {
		if cfg.Hybrid.RuleWeight != 0.7 || cfg.Hybrid.GNNWeight != 0.3 {
			t.Errorf("hybrid weights = %f/%f, want 0.7/0.3", cfg.Hybrid.RuleWeight, cfg.Hybrid.GNNWeight)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default config is valid", func(*Config) {}, false},
		{"zero embedding dim", func(c *Config) { c.Model.EmbeddingDim = 0 }, true},
		{"negative layers", func(c *Config) { c.Model.NumLayers = -1 }, true},
		{"zero layers allowed", func(c *Config) { c.Model.NumLayers = 0 }, false},
		{"dropout of one", func(c *Config) { c.Model.Dropout = 1 }, true},
		{"zero epochs", func(c *Config) { c.Training.Epochs = 0 }, true},
		{"zero batch size", func(c *Config) { c.Training.BatchSize = 0 }, true},
		{"zero learning rate", func(c *Config) { c.Training.LearningRate = 0 }, true},
		{"zero timeout", func(c *Config) { c.Training.Timeout = 0 }, true},
		{"threshold above one", func(c *Config) { c.Scoring.CompatibilityThreshold = 1.5 }, true},
		{"max limit below default", func(c *Config) { c.Scoring.MaxLimit = 5 }, true},
		{"venue fit weights off", func(c *Config) { c.Scoring.VenueFit.Distance = 0.5 }, true},
		{"compatibility weights off", func(c *Config) { c.Scoring.Compatibility.Openness = 0 }, true},
		{"hybrid weights do not sum to one", func(c *Config) { c.Hybrid.GNNWeight = 0.5 }, true},
		{"hybrid weights rebalanced", func(c *Config) { c.Hybrid.RuleWeight, c.Hybrid.GNNWeight = 0.5, 0.5 }, false},
		{"zero prediction timeout", func(c *Config) { c.Hybrid.PredictionTimeout = 0 }, true},
		{"zero group limit", func(c *Config) { c.Group.ResultLimit = 0 }, true},
		{"zero retained versions", func(c *Config) { c.Storage.RetainVersions = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want wrapping ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Training.Epochs = 7
	clone.Hybrid.PredictionTimeout = time.Millisecond

	if cfg.Training.Epochs == 7 {
		t.Error("Clone() shares training config with original")
	}
	if cfg.Hybrid.PredictionTimeout == time.Millisecond {
		t.Error("Clone() shares hybrid config with original")
	}
}

func TestTrainingConfig_EffectiveSeed(t *testing.T) {
	t.Parallel()
	tc := TrainingConfig{}
	if got := tc.EffectiveSeed(); got != DefaultSeed {
		t.Errorf("EffectiveSeed() = %d, want %d", got, DefaultSeed)
	}
	tc.Seed = 7
	if got := tc.EffectiveSeed(); got != 7 {
		t.Errorf("EffectiveSeed() = %d, want 7", got)
	}
}

func TestSentinelErrors(t *testing.T) {
	t.Parallel()
	for _, err := range []error{ErrEmptyGraph, ErrNoPositivePairs} {
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%v does not wrap ErrInvalidConfig", err)
		}
	}
	if errors.Is(ErrNotFound, ErrInvalidConfig) {
		t.Error("ErrNotFound must not wrap ErrInvalidConfig")
	}
}
