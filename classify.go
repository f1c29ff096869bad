// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package minigc

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/compute/dtypes"
	"github.com/gomlx/minigc/graphs"
	"github.com/pkg/errors"
)

// Classify runs the trained model configured in ctx over the given graphs
// and returns the predicted class of each. The context must already hold the
// model's trained variables -- typically loaded from a checkpoint.
//
// The graphs are batched (and minimally padded) into a single disjoint-union
// graph, so they are all classified in one execution.
func Classify(backend backends.Backend, ctx *context.Context, gs ...*graphs.Graph) ([]graphs.Class, error) {
	if len(gs) == 0 {
		return nil, nil
	}
	modelType := context.GetParamOr(ctx, "model", "gcn")
	modelFn, found := ValidModels[modelType]
	if !found {
		return nil, errors.Errorf("parameter \"model\" is set to unknown model type %q", modelType)
	}

	b := graphs.Batch(gs...)
	spec := graphs.BatchSpec{
		NumGraphs: b.NumGraphs,
		MaxNodes:  b.NumNodes + 1, // One ghost node for the padding.
		MaxEdges:  b.NumEdges,
	}
	b.Pad(spec.MaxNodes, spec.MaxEdges)
	degrees, edgeSources, edgeTargets, segmentIDs, mask := b.Tensors()

	// Reuse() for extra sanity checking: it is an error if the model function
	// attempts to create a new (that is, untrained) variable.
	execCtx := ctx.In("model").Reuse()
	var choices *tensors.Tensor
	err := exceptions.TryCatch[error](func() {
		choices = context.MustExecOnce(backend, execCtx,
			func(ctx *context.Context, inputs []*graph.Node) *graph.Node {
				logits := modelFn(ctx, spec, inputs)[0]
				return graph.ArgMax(logits, -1, dtypes.Int32)
			}, degrees, edgeSources, edgeTargets, segmentIDs, mask)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "while classifying %d graphs", len(gs))
	}

	classes := make([]graphs.Class, len(gs))
	tensors.MustConstFlatData[int32](choices, func(flat []int32) {
		for ii, class := range flat {
			classes[ii] = graphs.Class(class)
		}
	})
	return classes, nil
}
