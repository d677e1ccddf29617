// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package trainer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/graph"
	"github.com/tomtom215/tablemates/internal/recommend/model"
)

// maxNegativeResamples bounds collision filtering per positive pair.
const maxNegativeResamples = 10

// EpochFunc observes the average loss of each completed epoch.
type EpochFunc func(epoch int, avgLoss float64)

// FitStats summarizes one optimization run.
type FitStats struct {
	EpochLosses   []float64
	BestLoss      float64
	PositivePairs int
	Duration      time.Duration
}

// Fit trains a fresh model on g. It fails with recommend.ErrEmptyGraph or
// recommend.ErrNoPositivePairs before allocating a model when the graph is
// degenerate.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func Fit(ctx context.Context, g *graph.Graph, cfg *recommend.Config, logger zerolog.Logger, onEpoch EpochFunc) (*model.Model, *FitStats, error) {
	if g.Empty() {
		return nil, nil, recommend.ErrEmptyGraph
	}
	pairs := g.UserVenuePairs()
	if len(pairs) == 0 {
		return nil, nil, recommend.ErrNoPositivePairs
	}

	start := time.Now()
	//nolint:gosec // G404: math/rand is acceptable for ML initialization (not security)
	rng := rand.New(rand.NewSource(cfg.Training.EffectiveSeed()))

	m, err := model.New(g.Meta.NumUsers, g.Meta.NumVenues, model.Config{
		EmbeddingDim: cfg.Model.EmbeddingDim,
		NumLayers:    cfg.Model.NumLayers,
		Dropout:      cfg.Model.Dropout,
		InitStd:      cfg.Model.InitStd,
	}, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("create model: %w", err)
	}
	adj := model.NewAdjacency(g.Edges, g.Meta.NumNodes())

	triplets := samplePairs(pairs, g.Meta.NumVenues, cfg.Training.FilterNegativeCollisions, rng)

	stats := &FitStats{
		EpochLosses:   make([]float64, 0, cfg.Training.Epochs),
		BestLoss:      math.Inf(1),
		PositivePairs: len(pairs),
	}
	opts := model.StepOptions{
		LearningRate:   cfg.Training.LearningRate,
		Regularization: cfg.Training.Regularization,
		Rng:            rng,
	}
	batchSize := cfg.Training.BatchSize
	logEvery := max(cfg.Training.LogEvery, 1)

	logger.Info().
		Int("users", g.Meta.NumUsers).
		Int("venues", g.Meta.NumVenues).
		Int("edges", len(g.Edges)).
		Int("positive_pairs", len(pairs)).
		Int("epochs", cfg.Training.Epochs).
		Int("batch_size", batchSize).
		Msg("starting training")

	for epoch := 0; epoch < cfg.Training.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("training interrupted at epoch %d: %w", epoch, err)
		}

		rng.Shuffle(len(triplets), func(i, j int) {
			triplets[i], triplets[j] = triplets[j], triplets[i]
		})

		var sum float64
		var batches int
		for startIdx := 0; startIdx < len(triplets); startIdx += batchSize {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("training interrupted at epoch %d: %w", epoch, err)
			}
			loss, err := m.TrainStep(adj, toBatch(triplets[startIdx:min(startIdx+batchSize, len(triplets))]), opts)
			if err != nil {
				return nil, nil, fmt.Errorf("train step: %w", err)
			}
			sum += loss
			batches++
		}

		avg := sum / float64(batches)
		if math.IsNaN(avg) || math.IsInf(avg, 0) || !m.Finite() {
			return nil, nil, fmt.Errorf("epoch %d (loss %v): %w", epoch+1, avg, recommend.ErrTrainingDiverged)
		}
		stats.EpochLosses = append(stats.EpochLosses, avg)
		stats.BestLoss = math.Min(stats.BestLoss, avg)
		if onEpoch != nil {
			onEpoch(epoch+1, avg)
		}
		if (epoch+1)%logEvery == 0 {
			logger.Info().
				Int("epoch", epoch+1).
				Int("epochs", cfg.Training.Epochs).
				Float64("loss", avg).
				Msg("training progress")
		}
	}

	stats.Duration = time.Since(start)
	logger.Info().
		Float64("best_loss", stats.BestLoss).
		Dur("duration", stats.Duration).
		Msg("training complete")

	return m, stats, nil
}

type triplet struct {
	user, pos, neg int
}

// samplePairs draws one uniformly random negative venue per positive pair.
// Collisions with the user's positives are kept unless filter is set, in
// which case up to maxNegativeResamples draws are attempted.
func samplePairs(pairs [][2]int, numVenues int, filter bool, rng *rand.Rand) []triplet {
	var positives map[[2]int]struct{}
	if filter {
		positives = make(map[[2]int]struct{}, len(pairs))
		for _, p := range pairs {
			positives[p] = struct{}{}
		}
	}

	out := make([]triplet, len(pairs))
	for i, p := range pairs {
		neg := rng.Intn(numVenues)
		if filter {
			for tries := 0; tries < maxNegativeResamples; tries++ {
				if _, hit := positives[[2]int{p[0], neg}]; !hit {
					break
				}
				neg = rng.Intn(numVenues)
			}
		}
		out[i] = triplet{user: p[0], pos: p[1], neg: neg}
	}
	return out
}

func toBatch(ts []triplet) model.Batch {
	b := model.Batch{
		Users: make([]int, len(ts)),
		Pos:   make([]int, len(ts)),
		Neg:   make([]int, len(ts)),
	}
	for i, t := range ts {
		b.Users[i], b.Pos[i], b.Neg[i] = t.user, t.pos, t.neg
	}
	return b
}
