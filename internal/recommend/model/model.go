// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/tomtom215/tablemates/internal/recommend"
)

// Config holds the model hyperparameters.
type Config struct {
	EmbeddingDim int
	NumLayers    int
	Dropout      float64
	InitStd      float64
}

// Model is the embedding table plus its propagation hyperparameters.
// A Model is not safe for concurrent mutation; Embeddings derived from it
// are immutable and safe to share.
type Model struct {
	numUsers  int
	numVenues int
	dim       int
	numLayers int
	dropout   float64

	// weights is the (numUsers+numVenues) x dim table, row-major.
	weights []float64
}

// New creates a model sized for the graph with weights drawn from
// N(0, InitStd^2).
func New(numUsers, numVenues int, cfg Config, rng *rand.Rand) (*Model, error) {
	if err := checkShape(numUsers, numVenues, cfg.EmbeddingDim, cfg.NumLayers); err != nil {
		return nil, err
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("%w: dropout must be in [0, 1), got %f", recommend.ErrInvalidConfig, cfg.Dropout)
	}

	m := &Model{
		numUsers:  numUsers,
		numVenues: numVenues,
		dim:       cfg.EmbeddingDim,
		numLayers: cfg.NumLayers,
		dropout:   cfg.Dropout,
		weights:   make([]float64, (numUsers+numVenues)*cfg.EmbeddingDim),
	}
	for i := range m.weights {
		m.weights[i] = rng.NormFloat64() * cfg.InitStd
	}
	return m, nil
}

// FromWeights restores a model from a persisted weight table.
func FromWeights(numUsers, numVenues, dim, numLayers int, weights []float64) (*Model, error) {
	if err := checkShape(numUsers, numVenues, dim, numLayers); err != nil {
		return nil, err
	}
	if want := (numUsers + numVenues) * dim; len(weights) != want {
		return nil, fmt.Errorf("%w: weight table has %d values, want %d", recommend.ErrInvalidConfig, len(weights), want)
	}
	if i := firstNonFinite(weights); i >= 0 {
		return nil, fmt.Errorf("%w: weight %d is %v", recommend.ErrInvalidConfig, i, weights[i])
	}
	w := make([]float64, len(weights))
	copy(w, weights)
	return &Model{
		numUsers:  numUsers,
		numVenues: numVenues,
		dim:       dim,
		numLayers: numLayers,
		weights:   w,
	}, nil
}

func checkShape(numUsers, numVenues, dim, numLayers int) error {
	switch {
	case numUsers < 0 || numVenues < 0:
		return fmt.Errorf("%w: negative node count %d/%d", recommend.ErrInvalidConfig, numUsers, numVenues)
	case dim < 1:
		return fmt.Errorf("%w: embedding dim must be positive, got %d", recommend.ErrInvalidConfig, dim)
	case numLayers < 0:
		return fmt.Errorf("%w: num layers must be non-negative, got %d", recommend.ErrInvalidConfig, numLayers)
	}
	return nil
}

// NumUsers returns the user count.
func (m *Model) NumUsers() int { return m.numUsers }

// NumVenues returns the venue count.
func (m *Model) NumVenues() int { return m.numVenues }

// Dim returns the embedding width.
func (m *Model) Dim() int { return m.dim }

// NumLayers returns the propagation depth.
func (m *Model) NumLayers() int { return m.numLayers }

// Weights returns a copy of the embedding table, row-major.
func (m *Model) Weights() []float64 {
	w := make([]float64, len(m.weights))
	copy(w, m.weights)
	return w
}

// Finite reports whether every weight is a finite number.
func (m *Model) Finite() bool { return firstNonFinite(m.weights) < 0 }

func firstNonFinite(xs []float64) int {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}

func (m *Model) numNodes() int { return m.numUsers + m.numVenues }

// Forward runs inference propagation over adj and returns the final
// embeddings. Dropout is never applied.
func (m *Model) Forward(adj *Adjacency) (*Embeddings, error) {
	if adj.NumNodes() != m.numNodes() {
		return nil, fmt.Errorf("%w: adjacency has %d nodes, model has %d", recommend.ErrInvalidConfig, adj.NumNodes(), m.numNodes())
	}
	final, _ := m.forward(adj, nil)
	return &Embeddings{
		numUsers:  m.numUsers,
		numVenues: m.numVenues,
		dim:       m.dim,
		table:     final,
	}, nil
}

// forward returns the mean over layers and, when rng is non-nil and dropout
// is enabled, the per-layer dropout scale masks.
func (m *Model) forward(adj *Adjacency, rng *rand.Rand) (final []float64, masks [][]float64) {
	n := len(m.weights)
	final = make([]float64, n)
	copy(final, m.weights)

	cur := make([]float64, n)
	copy(cur, m.weights)
	next := make([]float64, n)

	useDropout := rng != nil && m.dropout > 0
	if useDropout {
		masks = make([][]float64, m.numLayers)
	}
	keepScale := 1 / (1 - m.dropout)

	for l := 0; l < m.numLayers; l++ {
		adj.propagate(cur, next, m.dim)
		if useDropout {
			mask := make([]float64, n)
			for i := range mask {
				if rng.Float64() >= m.dropout {
					mask[i] = keepScale
				}
			}
			for i := range next {
				next[i] *= mask[i]
			}
			masks[l] = mask
		}
		for i := range final {
			final[i] += next[i]
		}
		cur, next = next, cur
	}

	inv := 1 / float64(m.numLayers+1)
	for i := range final {
		final[i] *= inv
	}
	return final, masks
}

// backward maps dL/dFinal onto dL/dWeights through every layer.
func (m *Model) backward(adj *Adjacency, gradFinal []float64, masks [][]float64) []float64 {
	n := len(gradFinal)
	inv := 1 / float64(m.numLayers+1)

	// h holds dL/dE_l, starting from the deepest layer.
	h := make([]float64, n)
	for i := range h {
		h[i] = gradFinal[i] * inv
	}
	tmp := make([]float64, n)
	for l := m.numLayers - 1; l >= 0; l-- {
		if masks != nil {
			for i := range h {
				h[i] *= masks[l][i]
			}
		}
		adj.propagateTranspose(h, tmp, m.dim)
		for i := range tmp {
			tmp[i] += gradFinal[i] * inv
		}
		h, tmp = tmp, h
	}
	return h
}

// Embeddings is the immutable output of a forward pass.
type Embeddings struct {
	numUsers  int
	numVenues int
	dim       int
	table     []float64
}

// NumUsers returns the user count.
func (e *Embeddings) NumUsers() int { return e.numUsers }

// NumVenues returns the venue count.
func (e *Embeddings) NumVenues() int { return e.numVenues }

// Dim returns the embedding width.
func (e *Embeddings) Dim() int { return e.dim }

func (e *Embeddings) userRow(i int) []float64 {
	return e.table[i*e.dim : (i+1)*e.dim]
}

func (e *Embeddings) venueRow(i int) []float64 {
	r := e.numUsers + i
	return e.table[r*e.dim : (r+1)*e.dim]
}

func (e *Embeddings) checkUser(i int) error {
	if i < 0 || i >= e.numUsers {
		return fmt.Errorf("user index %d outside [0, %d): %w", i, e.numUsers, recommend.ErrIndexOutOfRange)
	}
	return nil
}

func (e *Embeddings) checkVenue(i int) error {
	if i < 0 || i >= e.numVenues {
		return fmt.Errorf("venue index %d outside [0, %d): %w", i, e.numVenues, recommend.ErrIndexOutOfRange)
	}
	return nil
}

// Users returns the (numUsers x dim) user embeddings. With indices, only
// those rows are returned, in the given order.
func (e *Embeddings) Users(indices ...int) ([][]float64, error) {
	return e.rows(e.numUsers, e.checkUser, e.userRow, indices)
}

// Venues returns the (numVenues x dim) venue embeddings. With indices,
// only those rows are returned, in the given order.
func (e *Embeddings) Venues(indices ...int) ([][]float64, error) {
	return e.rows(e.numVenues, e.checkVenue, e.venueRow, indices)
}

func (e *Embeddings) rows(count int, check func(int) error, row func(int) []float64, indices []int) ([][]float64, error) {
	if indices == nil {
		out := make([][]float64, count)
		for i := range out {
			out[i] = append([]float64(nil), row(i)...)
		}
		return out, nil
	}
	out := make([][]float64, len(indices))
	for k, i := range indices {
		if err := check(i); err != nil {
			return nil, err
		}
		out[k] = append([]float64(nil), row(i)...)
	}
	return out, nil
}

// Predict returns the affinity of one user to each venue. Any index out of
// range fails the whole call with ErrIndexOutOfRange.
func (e *Embeddings) Predict(user int, venues []int) ([]float64, error) {
	if err := e.checkUser(user); err != nil {
		return nil, err
	}
	for _, v := range venues {
		if err := e.checkVenue(v); err != nil {
			return nil, err
		}
	}
	u := e.userRow(user)
	scores := make([]float64, len(venues))
	for k, v := range venues {
		scores[k] = dot(u, e.venueRow(v))
	}
	return scores, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
