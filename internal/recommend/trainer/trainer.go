// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package trainer builds the interaction graph, fits the embedding model
// with BPR, and persists the result as versioned weight and metadata
// artifacts.
//
// Training runs are serialized: a second Train call while one is running
// fails with recommend.ErrTrainingInProgress instead of racing on the
// checkpoint target.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/graph"
	"github.com/tomtom215/tablemates/internal/recommend/model"
	"github.com/tomtom215/tablemates/internal/recommend/storage"
)

// Result is a trained or reloaded model ready for serving.
type Result struct {
	Model    *model.Model
	Edges    []graph.Edge
	Metadata *storage.Metadata
}

// Trainer orchestrates graph construction, fitting, and persistence.
type Trainer struct {
	builder *graph.Builder
	weights *storage.WeightStore
	meta    *storage.MetadataStore
	logger  zerolog.Logger

	mu      sync.Mutex
	onEpoch EpochFunc
}

// New creates a trainer. The stores may be nil, in which case trained
// models are not persisted and Load always fails with ErrNotFound.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func New(builder *graph.Builder, weights *storage.WeightStore, meta *storage.MetadataStore, logger zerolog.Logger) *Trainer {
	return &Trainer{
		builder: builder,
		weights: weights,
		meta:    meta,
		logger:  logger.With().Str("component", "trainer").Logger(),
	}
}

// OnEpoch registers an observer for epoch losses.
func (t *Trainer) OnEpoch(fn EpochFunc) {
	t.onEpoch = fn
}

func (t *Trainer) persistent() bool {
	return t.weights != nil && t.meta != nil
}

// Train builds the graph from current records, fits a model, and persists
// it as the new active version. Nothing is persisted on failure.
func (t *Trainer) Train(ctx context.Context, cfg *recommend.Config) (*Result, error) {
	if !t.mu.TryLock() {
		return nil, recommend.ErrTrainingInProgress
	}
	defer t.mu.Unlock()

	runID := uuid.New().String()
	logger := t.logger.With().Str("run_id", runID).Logger()

	g, err := t.builder.Build(ctx, graph.Config{
		MinInteractions:    cfg.Graph.MinInteractions,
		IncludeFriendships: cfg.Graph.IncludeFriendships,
	})
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	m, stats, err := Fit(ctx, g, cfg, logger, t.onEpoch)
	if err != nil {
		return nil, err
	}

	meta := &storage.Metadata{
		RunID:         runID,
		TrainedAt:     time.Now().UTC(),
		DurationMS:    stats.Duration.Milliseconds(),
		EmbeddingDim:  m.Dim(),
		NumLayers:     m.NumLayers(),
		Graph:         g.Meta,
		EpochLosses:   stats.EpochLosses,
		BestLoss:      stats.BestLoss,
		PositivePairs: stats.PositivePairs,
	}

	if t.persistent() {
		if err := t.persist(ctx, m, g.Edges, meta); err != nil {
			return nil, err
		}
		logger.Info().Int("version", meta.Version).Msg("model persisted")
	}

	return &Result{Model: m, Edges: g.Edges, Metadata: meta}, nil
}

func (t *Trainer) persist(ctx context.Context, m *model.Model, edges []graph.Edge, meta *storage.Metadata) error {
	version, err := t.meta.NextVersion(ctx)
	if err != nil {
		return fmt.Errorf("allocate model version: %w", err)
	}
	// A weight file may outlive its metadata after a partial failure.
	version = max(version, t.weights.LatestVersion()+1)
	meta.Version = version

	if _, err := t.weights.Save(ctx, &storage.Weights{
		Version:      version,
		EmbeddingDim: m.Dim(),
		NumLayers:    m.NumLayers(),
		NumUsers:     m.NumUsers(),
		NumVenues:    m.NumVenues(),
		Table:        m.Weights(),
		Edges:        edges,
	}); err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	if err := t.meta.Put(ctx, meta); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	if err := t.meta.SetActive(ctx, version); err != nil {
		return fmt.Errorf("activate model v%d: %w", version, err)
	}
	return nil
}

// LoadOptions controls model reload.
type LoadOptions struct {
	// Version to load. Zero loads the active version, falling back to the
	// newest stored one.
	Version int

	// RebuildGraph replaces the stored edge list with one built from
	// current records, restricted to entities the model knows.
	RebuildGraph bool
}

// Load restores a persisted model. It fails with an error wrapping
// recommend.ErrNotFound when nothing is stored.
func (t *Trainer) Load(ctx context.Context, opts LoadOptions) (*Result, error) {
	if !t.persistent() {
		return nil, fmt.Errorf("model store not configured: %w", recommend.ErrNotFound)
	}

	version := opts.Version
	if version == 0 {
		active, err := t.meta.ActiveVersion(ctx)
		if err != nil {
			return nil, err
		}
		version = active
	}
	if version == 0 {
		version = t.weights.LatestVersion()
	}
	if version == 0 {
		return nil, fmt.Errorf("no persisted model: %w", recommend.ErrNotFound)
	}

	meta, err := t.meta.Get(ctx, version)
	if err != nil {
		return nil, err
	}
	w, _, err := t.weights.Load(ctx, version)
	if err != nil {
		return nil, err
	}
	if w.NumUsers != meta.Graph.NumUsers || w.NumVenues != meta.Graph.NumVenues {
		return nil, fmt.Errorf("%w: weights v%d sized %d/%d but mapping has %d/%d", recommend.ErrInvalidConfig,
			version, w.NumUsers, w.NumVenues, meta.Graph.NumUsers, meta.Graph.NumVenues)
	}

	m, err := model.FromWeights(w.NumUsers, w.NumVenues, w.EmbeddingDim, w.NumLayers, w.Table)
	if err != nil {
		return nil, fmt.Errorf("restore model v%d: %w", version, err)
	}

	edges := w.Edges
	if opts.RebuildGraph {
		rebuilt, err := t.rebuildEdges(ctx, meta.Graph)
		switch {
		case err != nil:
			return nil, err
		case len(rebuilt) == 0:
			t.logger.Warn().Int("version", version).Msg("no edges found when rebuilding graph, keeping stored edges")
		default:
			edges = rebuilt
		}
	}

	t.logger.Info().
		Int("version", version).
		Int("edges", len(edges)).
		Bool("rebuilt", opts.RebuildGraph).
		Msg("model loaded")

	return &Result{Model: m, Edges: edges, Metadata: meta}, nil
}

func (t *Trainer) rebuildEdges(ctx context.Context, target *graph.Metadata) ([]graph.Edge, error) {
	g, err := t.builder.Build(ctx, graph.Config{MinInteractions: 1, IncludeFriendships: true})
	if err != nil {
		return nil, fmt.Errorf("rebuild graph: %w", err)
	}
	return graph.Remap(g, target), nil
}

// Prune deletes all but the newest keep versions from both stores and
// returns the removed versions.
func (t *Trainer) Prune(ctx context.Context, keep int) ([]int, error) {
	if !t.persistent() {
		return nil, nil
	}
	keep = max(keep, 1)
	removed, err := t.weights.Prune(ctx, keep)
	if err != nil {
		return nil, fmt.Errorf("prune weights: %w", err)
	}

	versions, err := t.meta.Versions(ctx)
	if err != nil {
		return removed, err
	}
	var errs []error
	if len(versions) > keep {
		for _, v := range versions[:len(versions)-keep] {
			if err := t.meta.Delete(ctx, v); err != nil {
				errs = append(errs, fmt.Errorf("delete metadata v%d: %w", v, err))
			}
		}
	}
	return removed, errors.Join(errs...)
}
