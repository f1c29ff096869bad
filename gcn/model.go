// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gcn

import (
	"github.com/gomlx/exceptions"
	graph "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/fnn"
	"github.com/gomlx/minigc/graphs"
)

var (
	// ParamNumLayers context hyperparameter sets the number of graph
	// convolution layers. Default is 2.
	ParamNumLayers = "gcn_num_layers"

	// ParamHiddenDim context hyperparameter sets the width of the hidden
	// node states. Default is 256.
	ParamHiddenDim = "gcn_hidden_dim"

	// ParamFnnHiddenLayers and ParamFnnHiddenDim configure the FNN baseline
	// model (see FnnClassifierGraph). Defaults are 2 layers of 64 nodes.
	ParamFnnHiddenLayers = "fnn_num_hidden_layers"
	ParamFnnHiddenDim    = "fnn_hidden_dim"
)

// batchInputs unpacks the input tensors yielded by a minigc dataset and the
// accompanying spec. The order must match graphs.Batched.Tensors.
func batchInputs(spec any, inputs []*graph.Node) (batchSpec graphs.BatchSpec, degrees, edgeSources, edgeTargets, segmentIDs, mask *graph.Node) {
	var ok bool
	batchSpec, ok = spec.(graphs.BatchSpec)
	if !ok {
		exceptions.Panicf("model expected a graphs.BatchSpec dataset spec, got %T", spec)
	}
	if len(inputs) != 5 {
		exceptions.Panicf("model expected 5 inputs (degrees, edge sources, edge targets, segment ids, mask), got %d", len(inputs))
	}
	degrees, edgeSources, edgeTargets, segmentIDs, mask = inputs[0], inputs[1], inputs[2], inputs[3], inputs[4]
	return
}

// ClassifierGraph is a train.ModelFn that classifies each graph of a batch
// into one of graphs.NumClasses shape families.
//
// Node states start as the scalar node degree, go through ParamNumLayers
// graph convolutions of width ParamHiddenDim, are averaged per graph by the
// readout, and a final dense layer produces the class logits, shaped
// (float32)[batchSpec.NumGraphs, graphs.NumClasses].
func ClassifierGraph(ctx *context.Context, spec any, inputs []*graph.Node) []*graph.Node {
	batchSpec, state, edgeSources, edgeTargets, segmentIDs, mask := batchInputs(spec, inputs)
	numLayers := context.GetParamOr(ctx, ParamNumLayers, 2)
	hiddenDim := context.GetParamOr(ctx, ParamHiddenDim, 256)
	for layerIdx := range numLayers {
		state = Convolve(ctx.Inf("conv_%d", layerIdx), state, edgeSources, edgeTargets, hiddenDim)
	}
	readout := MeanNodesReadout(state, segmentIDs, mask, batchSpec.NumGraphs)
	logits := layers.DenseWithBias(ctx.In("readout"), readout, graphs.NumClasses)
	return []*graph.Node{logits}
}

// FnnClassifierGraph is a train.ModelFn baseline that ignores the graph
// structure: it reads out the mean node degree per graph and classifies it
// with a feed-forward network. Useful to measure how much the message
// passing actually contributes.
func FnnClassifierGraph(ctx *context.Context, spec any, inputs []*graph.Node) []*graph.Node {
	batchSpec, degrees, _, _, segmentIDs, mask := batchInputs(spec, inputs)
	readout := MeanNodesReadout(degrees, segmentIDs, mask, batchSpec.NumGraphs)
	numHiddenLayers := context.GetParamOr(ctx, ParamFnnHiddenLayers, 2)
	hiddenDim := context.GetParamOr(ctx, ParamFnnHiddenDim, 64)
	logits := fnn.New(ctx.In("fnn"), readout, graphs.NumClasses).
		NumHiddenLayers(numHiddenLayers, hiddenDim).
		Done()
	return []*graph.Node{logits}
}
