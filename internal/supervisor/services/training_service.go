// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package services provides suture service wrappers for Tablemates
// components.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/engine"
)

// ModelEngine is the part of the recommendation engine the training
// service drives.
type ModelEngine interface {
	HasModel() bool
	Train(ctx context.Context) (engine.Status, error)
	Prune(ctx context.Context) ([]int, error)
}

// TrainingServiceConfig controls scheduled and on-demand training.
type TrainingServiceConfig struct {
	// Interval between scheduled runs. Zero or negative means 24h.
	Interval time.Duration

	// OnStartup trains once at start when no model is serving.
	OnStartup bool

	// TriggerRate caps on-demand triggers per hour. Zero means unlimited.
	TriggerRate int
}

// TrainingService runs the training loop: once at startup when no model
// is loaded, on a fixed interval, and when triggered. Triggers are queued
// one deep; a trigger while one is already queued reports
// recommend.ErrTrainingInProgress.
type TrainingService struct {
	engine   ModelEngine
	config   TrainingServiceConfig
	logger   zerolog.Logger
	limiter  *rate.Limiter
	triggers chan struct{}
	name     string
}

// NewTrainingService creates a training service.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func NewTrainingService(eng ModelEngine, cfg TrainingServiceConfig, logger zerolog.Logger) *TrainingService {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	limit := rate.Inf
	if cfg.TriggerRate > 0 {
		limit = rate.Limit(float64(cfg.TriggerRate) / time.Hour.Seconds())
	}
	return &TrainingService{
		engine:   eng,
		config:   cfg,
		logger:   logger.With().Str("service", "training").Logger(),
		limiter:  rate.NewLimiter(limit, 1),
		triggers: make(chan struct{}, 1),
		name:     "training-service",
	}
}

// Trigger queues an on-demand training run. It fails with
// recommend.ErrTrainingThrottled above the configured rate and with
// recommend.ErrTrainingInProgress when a run is already queued.
func (s *TrainingService) Trigger(_ context.Context) error {
	if !s.limiter.Allow() {
		return recommend.ErrTrainingThrottled
	}
	select {
	case s.triggers <- struct{}{}:
		return nil
	default:
		return recommend.ErrTrainingInProgress
	}
}

// Serve implements suture.Service.
func (s *TrainingService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("on_startup", s.config.OnStartup).
		Dur("interval", s.config.Interval).
		Int("trigger_rate_per_hour", s.config.TriggerRate).
		Msg("training service starting")

	if s.config.OnStartup && !s.engine.HasModel() {
		s.run(ctx, "startup")
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx, "schedule")
		case <-s.triggers:
			s.run(ctx, "trigger")
		}
	}
}

// run trains once and prunes old versions. Failures are logged; the
// previous model keeps serving.
func (s *TrainingService) run(ctx context.Context, reason string) {
	logger := s.logger.With().Str("run_id", uuid.NewString()).Str("reason", reason).Logger()
	start := time.Now()
	logger.Info().Msg("training run starting")

	status, err := s.engine.Train(ctx)
	switch {
	case errors.Is(err, recommend.ErrTrainingInProgress):
		logger.Debug().Msg("training already running, skipped")
		return
	case errors.Is(err, recommend.ErrInvalidConfig):
		logger.Warn().Err(err).Msg("training skipped: unusable data or configuration")
		return
	case err != nil:
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("training run failed")
		return
	}

	logger.Info().
		Int("version", status.Version).
		Float64("best_loss", status.BestLoss).
		Int("users", status.NumUsers).
		Int("venues", status.NumVenues).
		Dur("duration", time.Since(start)).
		Msg("training run complete")

	removed, err := s.engine.Prune(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("pruning old model versions failed")
		return
	}
	if len(removed) > 0 {
		logger.Info().Ints("removed_versions", removed).Msg("pruned old model versions")
	}
}

// String implements fmt.Stringer for suture event logs.
func (s *TrainingService) String() string {
	return s.name
}
