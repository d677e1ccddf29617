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

// LossEpsilon bounds the BPR log term away from log(0).
const LossEpsilon = 1e-10

var maxPairLoss = -math.Log(LossEpsilon)

// Sigmoid is the logistic function, stable for large |x|.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	z := math.Exp(x)
	return z / (1 + z)
}

// pairLoss returns -log(sigmoid(x)), floored at LossEpsilon inside the log.
func pairLoss(x float64) float64 {
	var l float64
	if x >= 0 {
		l = math.Log1p(math.Exp(-x))
	} else {
		l = -x + math.Log1p(math.Exp(x))
	}
	return math.Min(l, maxPairLoss)
}

// BPRLoss returns -mean(log(sigmoid(pos - neg) + eps)) over paired scores.
// The result is positive for finite inputs and shrinks as positive scores
// rise above negative ones.
func BPRLoss(pos, neg []float64) float64 {
	if len(pos) == 0 || len(pos) != len(neg) {
		return 0
	}
	var sum float64
	for i := range pos {
		sum += pairLoss(pos[i] - neg[i])
	}
	return sum / float64(len(pos))
}

// Batch is a set of BPR triplets in local indices. Users index the user
// range, Pos and Neg the venue range.
type Batch struct {
	Users []int
	Pos   []int
	Neg   []int
}

// Len returns the number of triplets.
func (b Batch) Len() int { return len(b.Users) }

// StepOptions configures one optimization step.
type StepOptions struct {
	LearningRate   float64
	Regularization float64

	// Rng drives dropout. Nil disables dropout for the step.
	Rng *rand.Rand
}

// TrainStep runs a forward pass, computes the BPR loss of the batch, and
// applies one gradient descent update to the embedding table. It returns
// the batch loss before the update.
func (m *Model) TrainStep(adj *Adjacency, b Batch, opts StepOptions) (float64, error) {
	if err := m.checkBatch(adj, b); err != nil {
		return 0, err
	}
	size := b.Len()
	if size == 0 {
		return 0, nil
	}

	final, masks := m.forward(adj, opts.Rng)
	row := func(t []float64, node int) []float64 { return t[node*m.dim : (node+1)*m.dim] }

	grad := make([]float64, len(final))
	invB := 1 / float64(size)
	var loss float64

	for k := 0; k < size; k++ {
		u := b.Users[k]
		p := m.numUsers + b.Pos[k]
		n := m.numUsers + b.Neg[k]

		eu, ep, en := row(final, u), row(final, p), row(final, n)
		x := dot(eu, ep) - dot(eu, en)
		loss += pairLoss(x)

		// d/dx of -log(sigmoid(x)), averaged over the batch.
		dx := -Sigmoid(-x) * invB
		gu, gp, gn := row(grad, u), row(grad, p), row(grad, n)
		for f := 0; f < m.dim; f++ {
			gu[f] += dx * (ep[f] - en[f])
			gp[f] += dx * eu[f]
			gn[f] -= dx * eu[f]
		}
	}
	loss *= invB

	gradW := m.backward(adj, grad, masks)

	if reg := opts.Regularization; reg > 0 {
		var penalty float64
		for k := 0; k < size; k++ {
			for _, node := range [3]int{b.Users[k], m.numUsers + b.Pos[k], m.numUsers + b.Neg[k]} {
				w, g := row(m.weights, node), row(gradW, node)
				for f := range w {
					penalty += w[f] * w[f]
					g[f] += reg * w[f] * invB
				}
			}
		}
		loss += reg * penalty * invB / 2
	}

	lr := opts.LearningRate
	for i := range m.weights {
		m.weights[i] -= lr * gradW[i]
	}
	return loss, nil
}

func (m *Model) checkBatch(adj *Adjacency, b Batch) error {
	if adj.NumNodes() != m.numNodes() {
		return fmt.Errorf("%w: adjacency has %d nodes, model has %d", recommend.ErrInvalidConfig, adj.NumNodes(), m.numNodes())
	}
	if len(b.Pos) != len(b.Users) || len(b.Neg) != len(b.Users) {
		return fmt.Errorf("%w: batch slices differ in length", recommend.ErrInvalidConfig)
	}
	for k := range b.Users {
		if b.Users[k] < 0 || b.Users[k] >= m.numUsers {
			return fmt.Errorf("user index %d: %w", b.Users[k], recommend.ErrIndexOutOfRange)
		}
		if b.Pos[k] < 0 || b.Pos[k] >= m.numVenues || b.Neg[k] < 0 || b.Neg[k] >= m.numVenues {
			return fmt.Errorf("venue index %d/%d: %w", b.Pos[k], b.Neg[k], recommend.ErrIndexOutOfRange)
		}
	}
	return nil
}
