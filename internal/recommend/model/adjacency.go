// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package model implements a LightGCN-style embedding propagation network.
//
// One embedding table holds every graph node. A forward pass repeatedly
// replaces each node's vector with the degree-normalized sum of its
// neighbors' vectors, with no feature transform or nonlinearity, and the
// final representation is the mean over all propagation depths including
// depth zero. Affinity between a user and a venue is the dot product of
// their final embeddings.
//
// Training uses the Bayesian Personalized Ranking loss with gradients
// propagated back through every layer to the embedding table.
//
// Reference: "LightGCN: Simplifying and Powering Graph Convolution Network
// for Recommendation" (He et al., SIGIR 2020).
package model

import (
	"math"

	"github.com/tomtom215/tablemates/internal/recommend/graph"
)

// Adjacency is the symmetric-normalized propagation operator of a graph.
//
// For edge k, a layer adds E[Src] * Norm[k] into the next value of Dst.
// Norm[k] = deg(Src)^-1/2 * deg(Dst)^-1/2, where every edge adds one to the
// degree of both of its endpoints.
type Adjacency struct {
	numNodes int
	edges    []graph.Edge
	norm     []float64
	degree   []int
}

// NewAdjacency precomputes edge normalization for numNodes nodes. Edges
// with an endpoint outside [0, numNodes) are dropped.
func NewAdjacency(edges []graph.Edge, numNodes int) *Adjacency {
	a := &Adjacency{
		numNodes: numNodes,
		degree:   make([]int, numNodes),
	}
	a.edges = make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Src < 0 || e.Src >= numNodes || e.Dst < 0 || e.Dst >= numNodes {
			continue
		}
		a.edges = append(a.edges, e)
		a.degree[e.Src]++
		a.degree[e.Dst]++
	}

	invSqrt := make([]float64, numNodes)
	for i, d := range a.degree {
		invSqrt[i] = 1 / math.Sqrt(float64(max(d, 1)))
	}

	a.norm = make([]float64, len(a.edges))
	for k, e := range a.edges {
		a.norm[k] = invSqrt[e.Src] * invSqrt[e.Dst]
	}
	return a
}

// NumNodes returns the node count the operator was built for.
func (a *Adjacency) NumNodes() int { return a.numNodes }

// NumEdges returns the number of in-range edges.
func (a *Adjacency) NumEdges() int { return len(a.edges) }

// Degree returns the incident edge count of a node.
func (a *Adjacency) Degree(node int) int { return a.degree[node] }

// propagate computes dst = A * src for row-major tables of width dim.
func (a *Adjacency) propagate(src, dst []float64, dim int) {
	clear(dst)
	for k, e := range a.edges {
		w := a.norm[k]
		s := src[e.Src*dim : (e.Src+1)*dim]
		d := dst[e.Dst*dim : (e.Dst+1)*dim]
		for f := range d {
			d[f] += s[f] * w
		}
	}
}

// propagateTranspose computes dst = A^T * src for row-major tables.
func (a *Adjacency) propagateTranspose(src, dst []float64, dim int) {
	clear(dst)
	for k, e := range a.edges {
		w := a.norm[k]
		s := src[e.Dst*dim : (e.Dst+1)*dim]
		d := dst[e.Src*dim : (e.Src+1)*dim]
		for f := range d {
			d[f] += s[f] * w
		}
	}
}
