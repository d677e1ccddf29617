// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tomtom215/tablemates/internal/config"
	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/engine"
	"github.com/tomtom215/tablemates/internal/recommend/storage"
)

// RecommendComponents holds the engine and the stores it owns.
type RecommendComponents struct {
	Engine *engine.Engine
	meta   *storage.MetadataStore
}

// Close releases the metadata store.
func (c *RecommendComponents) Close() {
	if c.meta == nil {
		return
	}
	if err := c.meta.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing model metadata store")
	}
}

// initRecommend opens the model stores under the configured model path,
// creates the engine, and restores the latest persisted model. A missing
// model is not an error: rule-based scoring serves until the first run.
func initRecommend(ctx context.Context, cfg *config.Config, store engine.Store) (*RecommendComponents, error) {
	logger := logging.WithComponent("recommend")
	modelPath := cfg.Recommend.Storage.ModelPath

	weights, err := storage.NewWeightStore(modelPath)
	if err != nil {
		return nil, fmt.Errorf("open weight store: %w", err)
	}
	meta, err := storage.OpenMetadataStore(filepath.Join(modelPath, "meta"))
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	eng, err := engine.New(&cfg.Recommend, store, weights, meta, logger)
	if err != nil {
		if closeErr := meta.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("Error closing model metadata store")
		}
		return nil, fmt.Errorf("create recommendation engine: %w", err)
	}

	switch err := eng.LoadLatest(ctx); {
	case err == nil:
		st := eng.Status()
		logger.Info().Int("version", st.Version).Time("trained_at", st.TrainedAt).Msg("Restored persisted model")
	case errors.Is(err, recommend.ErrNotFound):
		logger.Info().Msg("No persisted model, serving rule-based scores until first training run")
	default:
		logger.Warn().Err(err).Msg("Failed to restore persisted model, serving rule-based scores")
	}

	return &RecommendComponents{Engine: eng, meta: meta}, nil
}
