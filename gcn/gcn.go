// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gcn implements graph convolution and readout on batched
// disjoint-union graphs (see the graphs package).
//
// The convolution follows the classic GCN update rule: each node averages
// the hidden states of its neighbors and passes the result through a dense
// layer and an activation. Aggregation is expressed with Gather/Scatter over
// the batch's COO edge lists, so one convolution updates every node of every
// graph in the batch at once.
package gcn

import (
	graph "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
)

// MeanNeighbors aggregates, for every node, the mean of its neighbors'
// states along the directed edges (edgeSources[i] -> edgeTargets[i]).
// Nodes without incoming edges keep a zero state.
//
//   - state: (float)[numNodes, stateDim].
//   - edgeSources, edgeTargets: (int)[numEdges].
//
// Returns a (float)[numNodes, stateDim] node.
func MeanNeighbors(state, edgeSources, edgeTargets *graph.Node) *graph.Node {
	g := state.Graph()
	dtype := state.DType()
	numNodes := state.Shape().Dimensions[0]
	stateDim := state.Shape().Dimensions[1]
	numEdges := edgeSources.Shape().Dimensions[0]
	if edgeSources.Rank() == 1 {
		edgeSources = graph.InsertAxes(edgeSources, -1)
		edgeTargets = graph.InsertAxes(edgeTargets, -1)
	}

	// One message per directed edge, summed into the edge's target node.
	messages := graph.Gather(state, edgeSources)
	summed := graph.Scatter(edgeTargets, messages, shapes.Make(dtype, numNodes, stateDim), false, false)

	// Mean: divide by the in-degree count, guarding against isolated nodes.
	ones := graph.Ones(g, shapes.Make(dtype, numEdges, 1))
	counts := graph.Scatter(edgeTargets, ones, shapes.Make(dtype, numNodes, 1), false, false)
	counts = graph.MaxScalar(counts, 1)
	return graph.Div(summed, counts)
}

// Convolve runs one graph convolution layer: mean-aggregate neighbor states,
// then a dense layer to outputDim followed by a ReLU.
//
// The dense layer's variables live in the given ctx scope, so each layer of
// a model must be called with its own scope.
func Convolve(ctx *context.Context, state, edgeSources, edgeTargets *graph.Node, outputDim int) *graph.Node {
	pooled := MeanNeighbors(state, edgeSources, edgeTargets)
	return activations.Relu(layers.DenseWithBias(ctx, pooled, outputDim))
}

// MeanNodesReadout aggregates per-node states into one fixed-size vector per
// graph of the batch: the masked mean of each graph's node states.
//
//   - state: (float)[numNodes, stateDim].
//   - segmentIDs: (int)[numNodes], the graph each node belongs to; ghost
//     (padding) nodes must use segment id numGraphs.
//   - mask: (bool)[numNodes], false on ghost nodes. May be nil if the batch
//     holds no padding.
//
// Returns a (float)[numGraphs, stateDim] node.
func MeanNodesReadout(state, segmentIDs, mask *graph.Node, numGraphs int) *graph.Node {
	g := state.Graph()
	dtype := state.DType()
	numNodes := state.Shape().Dimensions[0]
	stateDim := state.Shape().Dimensions[1]
	if segmentIDs.Rank() == 1 {
		segmentIDs = graph.InsertAxes(segmentIDs, -1)
	}

	weights := graph.Ones(g, shapes.Make(dtype, numNodes, 1))
	if mask != nil {
		if mask.Rank() == 1 {
			mask = graph.InsertAxes(mask, -1)
		}
		weights = graph.Where(mask, weights, graph.ZerosLike(weights))
		state = graph.Mul(state, weights)
	}

	// Ghost nodes scatter into row numGraphs, dropped by the final slice.
	summed := graph.Scatter(segmentIDs, state, shapes.Make(dtype, numGraphs+1, stateDim), false, false)
	counts := graph.Scatter(segmentIDs, weights, shapes.Make(dtype, numGraphs+1, 1), false, false)
	summed = graph.Slice(summed, graph.AxisRange(0, numGraphs))
	counts = graph.Slice(counts, graph.AxisRange(0, numGraphs))
	counts = graph.MaxScalar(counts, 1)
	return graph.Div(summed, counts)
}
