// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package hybrid fuses rule-based venue-fit scores with learned affinity
// from the embedding propagation model.
//
// For each candidate, finalScore = RuleWeight*ruleScore + GNNWeight*gnnScore
// where gnnScore = sigmoid(affinity). Whenever the model cannot answer for a
// candidate (no model loaded, user or venue unknown to the model, index out
// of range, open circuit breaker, expired prediction budget, or any other
// failure) the candidate keeps finalScore == ruleScore. Ranking never fails
// because of the model.
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tablemates/internal/metrics"
	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/graph"
	"github.com/tomtom215/tablemates/internal/recommend/model"
	"github.com/tomtom215/tablemates/internal/recommend/scoring"
)

// NeutralGNNScore is surfaced as the GNN score of unscored candidates when
// placeholders are enabled. It never enters finalScore.
const NeutralGNNScore = 0.5

// predictChunk is the number of venues scored per model call. The
// prediction budget is checked between chunks.
const predictChunk = 256

const breakerName = "gnn-affinity"

// Fallback reasons, used as metric labels.
const (
	reasonNoModel     = "no_model"
	reasonColdStart   = "cold_start"
	reasonOutOfRange  = "out_of_range"
	reasonBreakerOpen = "breaker_open"
	reasonTimeout     = "timeout"
	reasonError       = "error"
)

// Snapshot is a loaded model ready for serving: the cached forward pass
// output and the ID mapping it was trained with. Snapshots are immutable.
type Snapshot struct {
	Version   int
	TrainedAt time.Time
	Affinity  Predictor
	Graph     *graph.Metadata
}

// Predictor computes affinities for one user against a batch of venues in
// local index space. *model.Embeddings implements it.
type Predictor interface {
	Predict(user int, venues []int) ([]float64, error)
}

var _ Predictor = (*model.Embeddings)(nil)

// Recommender ranks venues for a user. It is safe for concurrent use; the
// serving snapshot is swapped atomically.
type Recommender struct {
	scorer *scoring.Scorer
	cfg    recommend.HybridConfig
	logger zerolog.Logger

	snapshot atomic.Pointer[Snapshot]
	breaker  *gobreaker.CircuitBreaker[[]float64]
}

// New creates a recommender with no model loaded.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func New(scorer *scoring.Scorer, cfg recommend.HybridConfig, logger zerolog.Logger) *Recommender {
	r := &Recommender{
		scorer: scorer,
		cfg:    cfg,
		logger: logger.With().Str("component", "hybrid").Logger(),
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	failures := cfg.Breaker.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	r.breaker = gobreaker.NewCircuitBreaker[[]float64](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Index errors mean a cold-start or stale mapping, not a sick model.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, recommend.ErrIndexOutOfRange)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("model circuit breaker state change")
			metrics.RecordBreakerTransition(name, from, to)
		},
	})
	return r
}

// SetModel swaps the serving snapshot. Nil unloads the model.
func (r *Recommender) SetModel(s *Snapshot) {
	r.snapshot.Store(s)
	if s == nil {
		metrics.ModelVersion.Set(0)
		return
	}
	metrics.ModelVersion.Set(float64(s.Version))
}

// Model returns the serving snapshot, or nil.
func (r *Recommender) Model() *Snapshot {
	return r.snapshot.Load()
}

// HasModel reports whether a trained model is serving.
func (r *Recommender) HasModel() bool {
	s := r.snapshot.Load()
	return s != nil && s.Affinity != nil && s.Graph != nil
}

// Rank scores every candidate and returns them sorted by final score,
// descending. Ties keep candidate order.
func (r *Recommender) Rank(ctx context.Context, user *recommend.User, venues []recommend.Venue) []recommend.VenueRecommendation {
	out := make([]recommend.VenueRecommendation, len(venues))
	for i := range venues {
		fit := r.scorer.VenueFit(user, &venues[i])
		out[i] = recommend.VenueRecommendation{
			Venue:      venues[i],
			RuleScore:  fit.Score,
			FinalScore: fit.Score,
			DistanceKm: fit.DistanceKm,
		}
	}

	gnn := r.affinities(ctx, user.ID, venues)
	for i := range out {
		score, ok := gnn[i]
		switch {
		case ok:
			s := score
			out[i].GNNScore = &s
			out[i].FinalScore = r.cfg.RuleWeight*out[i].RuleScore + r.cfg.GNNWeight*s
		case r.cfg.SurfacePlaceholder:
			s := NeutralGNNScore
			out[i].GNNScore = &s
		}
	}

	slices.SortStableFunc(out, func(a, b recommend.VenueRecommendation) int {
		switch {
		case a.FinalScore > b.FinalScore:
			return -1
		case a.FinalScore < b.FinalScore:
			return 1
		default:
			return 0
		}
	})
	return out
}

// affinities returns sigmoid(affinity) keyed by candidate position for
// every candidate the model could score. It never fails; unscored
// candidates are logged and counted by reason.
func (r *Recommender) affinities(ctx context.Context, userID int64, venues []recommend.Venue) map[int]float64 {
	if len(venues) == 0 {
		return nil
	}
	snap := r.snapshot.Load()
	if snap == nil || snap.Affinity == nil || snap.Graph == nil {
		metrics.RecordFallback(reasonNoModel, len(venues))
		return nil
	}

	logger := r.logger.With().Int64("user_id", userID).Int("model_version", snap.Version).Logger()

	userIdx, ok := snap.Graph.UserIndex(userID)
	if !ok {
		logger.Debug().Msg("user unknown to model, using rule scores")
		metrics.RecordFallback(reasonColdStart, len(venues))
		return nil
	}

	positions := make([]int, 0, len(venues))
	indices := make([]int, 0, len(venues))
	for i := range venues {
		v, ok := snap.Graph.VenueIndex(venues[i].ID)
		if !ok {
			continue
		}
		positions = append(positions, i)
		indices = append(indices, v)
	}
	metrics.RecordFallback(reasonColdStart, len(venues)-len(indices))
	if len(indices) == 0 {
		return nil
	}

	if r.cfg.PredictionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.PredictionTimeout)
		defer cancel()
	}

	out := make(map[int]float64, len(indices))
	for start := 0; start < len(indices); start += predictChunk {
		end := min(start+predictChunk, len(indices))
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Int("unscored", len(indices)-start).Msg("prediction budget exhausted, using rule scores")
			metrics.RecordFallback(reasonTimeout, len(indices)-start)
			break
		}

		scores, err := r.predict(snap.Affinity, userIdx, indices[start:end])
		if err != nil {
			reason := fallbackReason(err)
			logger.Warn().Err(err).Str("reason", reason).Int("unscored", end-start).Msg("model prediction failed, using rule scores")
			metrics.RecordFallback(reason, end-start)
			continue
		}
		nonFinite := 0
		for k, s := range scores {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				nonFinite++
				continue
			}
			out[positions[start+k]] = clamp01(model.Sigmoid(s))
		}
		if nonFinite > 0 {
			logger.Warn().Int("unscored", nonFinite).Msg("model returned non-finite affinity, using rule scores")
			metrics.RecordFallback(reasonError, nonFinite)
		}
	}
	return out
}

// predict calls the model through the circuit breaker, converting panics
// into errors.
func (r *Recommender) predict(p Predictor, user int, venues []int) ([]float64, error) {
	return r.breaker.Execute(func() (scores []float64, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("model panic: %v", rec)
			}
		}()
		return p.Predict(user, venues)
	})
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, recommend.ErrIndexOutOfRange):
		return reasonOutOfRange
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return reasonBreakerOpen
	default:
		return reasonError
	}
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
