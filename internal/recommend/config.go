// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package recommend

import (
	"fmt"
	"math"
	"time"
)

// DefaultSeed is used when Training.Seed is zero.
const DefaultSeed int64 = 42

// weightSumTolerance bounds floating point drift when checking weight sums.
const weightSumTolerance = 1e-6

// Config contains all configuration for the recommender core.
type Config struct {
	Graph    GraphConfig    `koanf:"graph" json:"graph"`
	Model    ModelConfig    `koanf:"model" json:"model"`
	Training TrainingConfig `koanf:"training" json:"training"`
	Scoring  ScoringConfig  `koanf:"scoring" json:"scoring"`
	Hybrid   HybridConfig   `koanf:"hybrid" json:"hybrid"`
	Group    GroupConfig    `koanf:"group" json:"group"`
	Storage  StorageConfig  `koanf:"storage" json:"storage"`
}

// GraphConfig controls graph construction.
type GraphConfig struct {
	// MinInteractions is the interaction count a user or venue needs to be
	// included without any interest record.
	MinInteractions int `koanf:"min_interactions" json:"min_interactions"`

	// IncludeFriendships adds user-user edges in both directions.
	IncludeFriendships bool `koanf:"include_friendships" json:"include_friendships"`
}

// ModelConfig contains embedding propagation model parameters.
type ModelConfig struct {
	// EmbeddingDim is the width of each node embedding.
	// Default: 64.
	EmbeddingDim int `koanf:"embedding_dim" json:"embedding_dim"`

	// NumLayers is the propagation depth.
	// Default: 3.
	NumLayers int `koanf:"num_layers" json:"num_layers"`

	// Dropout is the per-element dropout rate applied between layers while
	// training. Zero disables dropout.
	Dropout float64 `koanf:"dropout" json:"dropout"`

	// InitStd is the standard deviation of the normal initializer.
	// Default: 0.1.
	InitStd float64 `koanf:"init_std" json:"init_std"`
}

// TrainingConfig contains BPR optimization parameters.
type TrainingConfig struct {
	Epochs       int     `koanf:"epochs" json:"epochs"`
	BatchSize    int     `koanf:"batch_size" json:"batch_size"`
	LearningRate float64 `koanf:"learning_rate" json:"learning_rate"`

	// Regularization is the L2 penalty on the batch embeddings.
	Regularization float64 `koanf:"regularization" json:"regularization"`

	// Seed drives initialization, sampling, and shuffling. Zero means DefaultSeed.
	Seed int64 `koanf:"seed" json:"seed"`

	// FilterNegativeCollisions resamples negatives that hit a true positive.
	FilterNegativeCollisions bool `koanf:"filter_negative_collisions" json:"filter_negative_collisions"`

	// Timeout bounds one training run.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// LogEvery controls how often epoch progress is logged.
	LogEvery int `koanf:"log_every" json:"log_every"`
}

// VenueFitWeights weights the venue-fit factors. They must sum to 1.
type VenueFitWeights struct {
	Distance   float64 `koanf:"distance" json:"distance"`
	Price      float64 `koanf:"price" json:"price"`
	Rating     float64 `koanf:"rating" json:"rating"`
	Popularity float64 `koanf:"popularity" json:"popularity"`
	Cuisine    float64 `koanf:"cuisine" json:"cuisine"`
	Trending   float64 `koanf:"trending" json:"trending"`
}

// Sum returns the total weight.
func (w VenueFitWeights) Sum() float64 {
	return w.Distance + w.Price + w.Rating + w.Popularity + w.Cuisine + w.Trending
}

// CompatibilityWeights weights the social-compatibility factors. They must
// sum to 1.
type CompatibilityWeights struct {
	Relationship   float64 `koanf:"relationship" json:"relationship"`
	Preference     float64 `koanf:"preference" json:"preference"`
	SharedInterest float64 `koanf:"shared_interest" json:"shared_interest"`
	Activity       float64 `koanf:"activity" json:"activity"`
	Openness       float64 `koanf:"openness" json:"openness"`
}

// Sum returns the total weight.
func (w CompatibilityWeights) Sum() float64 {
	return w.Relationship + w.Preference + w.SharedInterest + w.Activity + w.Openness
}

// ScoringConfig contains rule-based scoring parameters.
type ScoringConfig struct {
	// DefaultMaxDistanceKm applies when a user has no distance preference.
	DefaultMaxDistanceKm float64 `koanf:"default_max_distance_km" json:"default_max_distance_km"`

	// CompatibilityThreshold is the minimum score for a companion result.
	CompatibilityThreshold float64 `koanf:"compatibility_threshold" json:"compatibility_threshold"`

	DefaultLimit int `koanf:"default_limit" json:"default_limit"`
	MaxLimit     int `koanf:"max_limit" json:"max_limit"`

	VenueFit      VenueFitWeights      `koanf:"venue_fit" json:"venue_fit"`
	Compatibility CompatibilityWeights `koanf:"compatibility" json:"compatibility"`
}

// BreakerConfig configures the circuit breaker around model lookups.
type BreakerConfig struct {
	MaxRequests         uint32        `koanf:"max_requests" json:"max_requests"`
	Interval            time.Duration `koanf:"interval" json:"interval"`
	Timeout             time.Duration `koanf:"timeout" json:"timeout"`
	ConsecutiveFailures uint32        `koanf:"consecutive_failures" json:"consecutive_failures"`
}

// HybridConfig controls fusion of rule and model scores.
type HybridConfig struct {
	RuleWeight float64 `koanf:"rule_weight" json:"rule_weight"`
	GNNWeight  float64 `koanf:"gnn_weight" json:"gnn_weight"`

	// PredictionTimeout bounds model scoring for one request. Candidates
	// left unscored when it expires use rule-only scores.
	PredictionTimeout time.Duration `koanf:"prediction_timeout" json:"prediction_timeout"`

	// SurfacePlaceholder reports a neutral 0.5 GNN score for candidates the
	// model could not score instead of omitting it. Final scores are
	// unaffected.
	SurfacePlaceholder bool `koanf:"surface_placeholder" json:"surface_placeholder"`

	Breaker BreakerConfig `koanf:"breaker" json:"breaker"`
}

// GroupConfig contains group optimization parameters.
type GroupConfig struct {
	// FallbackLocation is the centroid used when no member has a location.
	FallbackLocation Location `koanf:"fallback_location" json:"fallback_location"`

	// DefaultMaxDistanceKm applies to members without a distance preference.
	DefaultMaxDistanceKm float64 `koanf:"default_max_distance_km" json:"default_max_distance_km"`

	ResultLimit int `koanf:"result_limit" json:"result_limit"`
}

// StorageConfig controls model persistence.
type StorageConfig struct {
	// ModelPath is the directory holding weight artifacts and metadata.
	ModelPath string `koanf:"model_path" json:"model_path"`

	// RetainVersions is how many model versions survive pruning.
	RetainVersions int `koanf:"retain_versions" json:"retain_versions"`

	// RebuildGraphOnLoad rebuilds the edge list from current records when a
	// persisted model is loaded.
	RebuildGraphOnLoad bool `koanf:"rebuild_graph_on_load" json:"rebuild_graph_on_load"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			MinInteractions:    1,
			IncludeFriendships: true,
		},
		Model: ModelConfig{
			EmbeddingDim: 64,
			NumLayers:    3,
			Dropout:      0,
			InitStd:      0.1,
		},
		Training: TrainingConfig{
			Epochs:       100,
			BatchSize:    2048,
			LearningRate: 0.001,
			Seed:         DefaultSeed,
			Timeout:      30 * time.Minute,
			LogEvery:     10,
		},
		Scoring: ScoringConfig{
			DefaultMaxDistanceKm:   50,
			CompatibilityThreshold: 0.5,
			DefaultLimit:           10,
			MaxLimit:               50,
			VenueFit: VenueFitWeights{
				Distance:   0.30,
				Price:      0.15,
				Rating:     0.20,
				Popularity: 0.10,
				Cuisine:    0.15,
				Trending:   0.10,
			},
			Compatibility: CompatibilityWeights{
				Relationship:   0.25,
				Preference:     0.25,
				SharedInterest: 0.20,
				Activity:       0.15,
				Openness:       0.15,
			},
		},
		Hybrid: HybridConfig{
			RuleWeight:        0.7,
			GNNWeight:         0.3,
			PredictionTimeout: 2 * time.Second,
			Breaker: BreakerConfig{
				MaxRequests:         1,
				Interval:            time.Minute,
				Timeout:             30 * time.Second,
				ConsecutiveFailures: 5,
			},
		},
		Group: GroupConfig{
			FallbackLocation:     Location{Latitude: 40.7128, Longitude: -74.0060},
			DefaultMaxDistanceKm: 10,
			ResultLimit:          10,
		},
		Storage: StorageConfig{
			ModelPath:          "./data/models",
			RetainVersions:     3,
			RebuildGraphOnLoad: true,
		},
	}
}

// Validate checks the configuration for errors. Every returned error wraps
// ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Graph.MinInteractions < 0 {
		return fmt.Errorf("graph.min_interactions must be non-negative, got %d", c.Graph.MinInteractions)
	}

	if c.Model.EmbeddingDim < 1 {
		return fmt.Errorf("model.embedding_dim must be positive, got %d", c.Model.EmbeddingDim)
	}
	if c.Model.NumLayers < 0 {
		return fmt.Errorf("model.num_layers must be non-negative, got %d", c.Model.NumLayers)
	}
	if c.Model.Dropout < 0 || c.Model.Dropout >= 1 {
		return fmt.Errorf("model.dropout must be in [0, 1), got %f", c.Model.Dropout)
	}
	if c.Model.InitStd <= 0 {
		return fmt.Errorf("model.init_std must be positive, got %f", c.Model.InitStd)
	}

	if c.Training.Epochs < 1 {
		return fmt.Errorf("training.epochs must be positive, got %d", c.Training.Epochs)
	}
	if c.Training.BatchSize < 1 {
		return fmt.Errorf("training.batch_size must be positive, got %d", c.Training.BatchSize)
	}
	if c.Training.LearningRate <= 0 {
		return fmt.Errorf("training.learning_rate must be positive, got %f", c.Training.LearningRate)
	}
	if c.Training.Regularization < 0 {
		return fmt.Errorf("training.regularization must be non-negative, got %f", c.Training.Regularization)
	}
	if c.Training.Timeout <= 0 {
		return fmt.Errorf("training.timeout must be positive, got %v", c.Training.Timeout)
	}

	if c.Scoring.DefaultMaxDistanceKm <= 0 {
		return fmt.Errorf("scoring.default_max_distance_km must be positive, got %f", c.Scoring.DefaultMaxDistanceKm)
	}
	if c.Scoring.CompatibilityThreshold < 0 || c.Scoring.CompatibilityThreshold > 1 {
		return fmt.Errorf("scoring.compatibility_threshold must be in [0, 1], got %f", c.Scoring.CompatibilityThreshold)
	}
	if c.Scoring.DefaultLimit < 1 {
		return fmt.Errorf("scoring.default_limit must be positive, got %d", c.Scoring.DefaultLimit)
	}
	if c.Scoring.MaxLimit < c.Scoring.DefaultLimit {
		return fmt.Errorf("scoring.max_limit must be >= scoring.default_limit, got %d < %d", c.Scoring.MaxLimit, c.Scoring.DefaultLimit)
	}
	if sum := c.Scoring.VenueFit.Sum(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("scoring.venue_fit weights must sum to 1, got %f", sum)
	}
	if sum := c.Scoring.Compatibility.Sum(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("scoring.compatibility weights must sum to 1, got %f", sum)
	}

	if c.Hybrid.RuleWeight < 0 || c.Hybrid.RuleWeight > 1 {
		return fmt.Errorf("hybrid.rule_weight must be in [0, 1], got %f", c.Hybrid.RuleWeight)
	}
	if c.Hybrid.GNNWeight < 0 || c.Hybrid.GNNWeight > 1 {
		return fmt.Errorf("hybrid.gnn_weight must be in [0, 1], got %f", c.Hybrid.GNNWeight)
	}
	if sum := c.Hybrid.RuleWeight + c.Hybrid.GNNWeight; math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("hybrid.rule_weight + hybrid.gnn_weight must be 1, got %f", sum)
	}
	if c.Hybrid.PredictionTimeout <= 0 {
		return fmt.Errorf("hybrid.prediction_timeout must be positive, got %v", c.Hybrid.PredictionTimeout)
	}

	if c.Group.DefaultMaxDistanceKm <= 0 {
		return fmt.Errorf("group.default_max_distance_km must be positive, got %f", c.Group.DefaultMaxDistanceKm)
	}
	if c.Group.ResultLimit < 1 {
		return fmt.Errorf("group.result_limit must be positive, got %d", c.Group.ResultLimit)
	}

	if c.Storage.RetainVersions < 1 {
		return fmt.Errorf("storage.retain_versions must be positive, got %d", c.Storage.RetainVersions)
	}

	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// EffectiveSeed returns the configured seed or DefaultSeed when unset.
func (c *TrainingConfig) EffectiveSeed() int64 {
	if c.Seed == 0 {
		return DefaultSeed
	}
	return c.Seed
}
