// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package engine owns the serving model and answers recommendation
// requests.
//
// The engine wires the record readers to the rule scorer, the hybrid
// recommender, the group optimizer, and the trainer. Training runs are
// serialized by the trainer; a finished run is swapped into serving with
// an atomic pointer store, so in-flight requests keep the snapshot they
// started with. The forward pass runs once per load or train and its
// output is shared by every request.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tablemates/internal/cache"
	"github.com/tomtom215/tablemates/internal/metrics"
	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/graph"
	"github.com/tomtom215/tablemates/internal/recommend/group"
	"github.com/tomtom215/tablemates/internal/recommend/hybrid"
	"github.com/tomtom215/tablemates/internal/recommend/model"
	"github.com/tomtom215/tablemates/internal/recommend/scoring"
	"github.com/tomtom215/tablemates/internal/recommend/storage"
	"github.com/tomtom215/tablemates/internal/recommend/trainer"
)

const (
	// DefaultInterestedLimit bounds users-interested-in-venue results.
	DefaultInterestedLimit = 20

	venueCacheSize = 1000
	venueCacheTTL  = time.Minute
)

// Store is everything the engine reads and writes.
type Store interface {
	recommend.RecordSource
	recommend.EntityReader
	recommend.InteractionWriter
	recommend.InterestWriter
}

// Engine answers recommendation requests against the serving model.
// It is safe for concurrent use.
type Engine struct {
	cfg    *recommend.Config
	store  Store
	logger zerolog.Logger

	scorer  *scoring.Scorer
	hybrid  *hybrid.Recommender
	group   *group.Optimizer
	trainer *trainer.Trainer

	venueCache *cache.LRU[[]recommend.VenueRecommendation]

	// publishMu orders snapshot swaps so an older run never replaces a
	// newer one.
	publishMu sync.Mutex

	statusMu sync.RWMutex
	status   Status
}

// Status describes the serving model and the last training run.
type Status struct {
	HasModel      bool      `json:"has_model"`
	Version       int       `json:"version"`
	TrainedAt     time.Time `json:"trained_at,omitempty"`
	BestLoss      float64   `json:"best_loss"`
	EpochLosses   []float64 `json:"epoch_losses,omitempty"`
	NumUsers      int       `json:"num_users"`
	NumVenues     int       `json:"num_venues"`
	NumEdges      int       `json:"num_edges"`
	PositivePairs int       `json:"positive_pairs"`

	Training      bool      `json:"training"`
	LastError     string    `json:"last_error,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
}

// New creates an engine. The stores may be nil to train without
// persistence.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func New(cfg *recommend.Config, store Store, weights *storage.WeightStore, meta *storage.MetadataStore, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", recommend.ErrInvalidConfig)
	}

	scorer := scoring.New(cfg.Scoring)
	builder := graph.NewBuilder(store, logger)
	e := &Engine{
		cfg:        cfg,
		store:      store,
		logger:     logger.With().Str("component", "engine").Logger(),
		scorer:     scorer,
		hybrid:     hybrid.New(scorer, cfg.Hybrid, logger),
		group:      group.New(cfg.Group),
		trainer:    trainer.New(builder, weights, meta, logger),
		venueCache: cache.NewLRU[[]recommend.VenueRecommendation](venueCacheSize, venueCacheTTL).Named("venue_recommendations"),
	}
	e.trainer.OnEpoch(func(_ int, loss float64) {
		metrics.TrainingEpochLoss.Set(loss)
	})
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *recommend.Config {
	return e.cfg
}

// HasModel reports whether a trained model is serving.
func (e *Engine) HasModel() bool {
	return e.hybrid.HasModel()
}

// Status returns a copy of the current status.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	s := e.status
	s.EpochLosses = append([]float64(nil), e.status.EpochLosses...)
	return s
}

// Train fits a new model from current records and swaps it into serving.
// A concurrent call fails with recommend.ErrTrainingInProgress. On failure
// the previous model keeps serving.
func (e *Engine) Train(ctx context.Context) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Training.Timeout)
	defer cancel()

	start := time.Now()
	e.setTraining(true)
	res, err := e.trainer.Train(ctx, e.cfg)
	metrics.RecordTrainingRun(metrics.TrainingResult(err, recommend.ErrInvalidConfig, recommend.ErrTrainingInProgress), time.Since(start))

	if errors.Is(err, recommend.ErrTrainingInProgress) {
		// The running job owns the training flag.
		return e.Status(), err
	}
	if err != nil {
		e.finishTraining(err)
		e.logger.Error().Err(err).Msg("training failed")
		return e.Status(), err
	}

	if err := e.serve(res); err != nil {
		e.finishTraining(err)
		return e.Status(), err
	}
	e.finishTraining(nil)
	return e.Status(), nil
}

// LoadLatest restores the newest persisted model into serving. It returns
// an error wrapping recommend.ErrNotFound when nothing is stored.
func (e *Engine) LoadLatest(ctx context.Context) error {
	res, err := e.trainer.Load(ctx, trainer.LoadOptions{RebuildGraph: e.cfg.Storage.RebuildGraphOnLoad})
	if err != nil {
		return err
	}
	return e.serve(res)
}

// Prune removes persisted model versions beyond the retention limit.
func (e *Engine) Prune(ctx context.Context) ([]int, error) {
	return e.trainer.Prune(ctx, e.cfg.Storage.RetainVersions)
}

// serve runs the forward pass once and publishes the snapshot. A result
// trained before the serving model is dropped.
func (e *Engine) serve(res *trainer.Result) error {
	meta := res.Metadata
	adj := model.NewAdjacency(res.Edges, res.Model.NumUsers()+res.Model.NumVenues())
	emb, err := res.Model.Forward(adj)
	if err != nil {
		return fmt.Errorf("forward pass: %w", err)
	}

	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	e.statusMu.RLock()
	serving, servingAt := e.status.HasModel, e.status.TrainedAt
	e.statusMu.RUnlock()
	if serving && servingAt.After(meta.TrainedAt) {
		e.logger.Info().
			Int("version", meta.Version).
			Time("trained_at", meta.TrainedAt).
			Time("serving_trained_at", servingAt).
			Msg("newer model already serving, result not published")
		return nil
	}

	e.hybrid.SetModel(&hybrid.Snapshot{
		Version:   meta.Version,
		TrainedAt: meta.TrainedAt,
		Affinity:  emb,
		Graph:     meta.Graph,
	})
	// Unpersisted runs all carry version 0.
	e.venueCache.Clear()
	metrics.RecordGraph(meta.Graph.NumUsers, meta.Graph.NumVenues, adj.NumEdges())

	e.statusMu.Lock()
	e.status.HasModel = true
	e.status.Version = meta.Version
	e.status.TrainedAt = meta.TrainedAt
	e.status.BestLoss = meta.BestLoss
	e.status.EpochLosses = meta.EpochLosses
	e.status.NumUsers = meta.Graph.NumUsers
	e.status.NumVenues = meta.Graph.NumVenues
	e.status.NumEdges = adj.NumEdges()
	e.status.PositivePairs = meta.PositivePairs
	e.statusMu.Unlock()

	e.logger.Info().
		Int("version", meta.Version).
		Int("users", meta.Graph.NumUsers).
		Int("venues", meta.Graph.NumVenues).
		Int("edges", adj.NumEdges()).
		Msg("model serving")
	return nil
}

func (e *Engine) setTraining(on bool) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.Training = on
	if on {
		e.status.LastAttemptAt = time.Now().UTC()
	}
}

func (e *Engine) finishTraining(err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.Training = false
	e.status.LastError = ""
	if err != nil {
		e.status.LastError = err.Error()
	}
}

// VenueRequest asks for personalized venue recommendations.
type VenueRequest struct {
	UserID    int64
	Limit     int
	Category  string
	MinRating float64
}

// RecommendVenues ranks venues for a user with the hybrid scorer. Venues
// with a final score of 0 are dropped. An unknown user fails with
// recommend.ErrNotFound.
func (e *Engine) RecommendVenues(ctx context.Context, req VenueRequest) ([]recommend.VenueRecommendation, error) {
	start := time.Now()
	defer func() { metrics.RecommendLatency.WithLabelValues("venues").Observe(time.Since(start).Seconds()) }()

	limit := e.limit(req.Limit)
	user, err := e.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	version := 0
	if snap := e.hybrid.Model(); snap != nil {
		version = snap.Version
	}
	key := venueCacheKey(req.UserID, version, req.Category, req.MinRating, limit)
	if recs, ok := e.venueCache.Get(key); ok {
		return recs, nil
	}

	venues, err := e.store.ListVenues(ctx, recommend.VenueFilter{Category: req.Category, MinRating: req.MinRating})
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}

	ranked := e.hybrid.Rank(ctx, user, venues)
	out := make([]recommend.VenueRecommendation, 0, min(limit, len(ranked)))
	for _, r := range ranked {
		if len(out) == limit {
			break
		}
		if r.FinalScore > 0 {
			out = append(out, r)
		}
	}

	e.venueCache.Add(key, out)
	return out, nil
}

func venueCacheKey(userID int64, version int, category string, minRating float64, limit int) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(userID, 10))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(version))
	b.WriteByte('|')
	b.WriteString(category)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(minRating, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(limit))
	return b.String()
}

func (e *Engine) limit(requested int) int {
	switch {
	case requested <= 0:
		return e.cfg.Scoring.DefaultLimit
	case requested > e.cfg.Scoring.MaxLimit:
		return e.cfg.Scoring.MaxLimit
	default:
		return requested
	}
}
