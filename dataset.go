// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package minigc trains graph neural networks to classify small synthetic
// graphs by their shape family (cycle, star, wheel, lollipop, hypercube,
// grid, clique or circular ladder).
//
// It is a worked example of graph batching: every training step merges a
// batch of variable-sized graphs into one disjoint-union graph (see the
// graphs package) and classifies all of them in a single pass of a
// graph-convolution model (see the gcn package).
package minigc

import (
	"io"
	"math/rand"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/minigc/graphs"
)

// NewSamples generates numGraphs labeled graphs with node counts drawn
// uniformly from [minNodes, maxNodes). Classes are balanced: the 8 shape
// families are cycled through before shuffling.
//
// Some shape families round the node count down to the nearest valid size,
// so individual graphs may be slightly smaller than drawn.
func NewSamples(rng *rand.Rand, numGraphs, minNodes, maxNodes int) []*graphs.Graph {
	if minNodes < graphs.MinNumNodes || maxNodes <= minNodes {
		exceptions.Panicf("minigc.NewSamples: invalid node count range [%d, %d), minimum is %d",
			minNodes, maxNodes, graphs.MinNumNodes)
	}
	samples := make([]*graphs.Graph, numGraphs)
	for ii := range samples {
		class := graphs.Class(ii % graphs.NumClasses)
		numNodes := minNodes + rng.Intn(maxNodes-minNodes)
		samples[ii] = graphs.New(class, numNodes)
	}
	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
	return samples
}

// PaddedSpec returns the batch geometry that can hold any batchSize graphs
// with node counts below maxNodes: the worst case is a batch of cliques,
// plus one ghost node for the padding.
func PaddedSpec(batchSize, maxNodes int) graphs.BatchSpec {
	largest := maxNodes - 1 // Node counts are drawn from [minNodes, maxNodes).
	return graphs.BatchSpec{
		NumGraphs: batchSize,
		MaxNodes:  batchSize*largest + 1,
		MaxEdges:  batchSize * largest * (largest - 1),
	}
}

// Dataset implements train.Dataset, yielding padded batches of graphs. It
// allows for concurrent Yield calls, so it can be wrapped in
// datasets.Parallel.
type Dataset struct {
	name      string
	samples   []*graphs.Graph
	batchSize int
	spec      graphs.BatchSpec

	// muSelection protects the sample order and position, the only mutable
	// parts, allowing concurrent Yield calls.
	muSelection               sync.Mutex
	pos                       int
	infinite, withReplacement bool
	rng                       *rand.Rand
}

// Assert *Dataset implements train.Dataset.
var _ train.Dataset = &Dataset{}

// NewDataset creates a Dataset over the given samples. All its batches are
// padded to the geometry given by spec, which must be able to hold any
// batchSize of the samples (see PaddedSpec).
//
// If infinite, Yield never returns io.EOF and reshuffles at every epoch;
// otherwise it yields each full batch once per epoch. The trailing partial
// batch of an epoch is dropped. The rng seeds the shuffling; if nil the
// samples are visited in order.
//
// The samples slice is copied: several datasets can share one slice (e.g.
// a shuffling training dataset and an in-order evaluation dataset over the
// same split) without racing on its order.
func NewDataset(name string, samples []*graphs.Graph, batchSize int, spec graphs.BatchSpec, infinite bool, rng *rand.Rand) *Dataset {
	if batchSize <= 0 || batchSize > len(samples) {
		exceptions.Panicf("minigc.NewDataset: batchSize=%d must be in [1, %d]", batchSize, len(samples))
	}
	if spec.NumGraphs != batchSize {
		exceptions.Panicf("minigc.NewDataset: spec %s doesn't match batchSize=%d", spec, batchSize)
	}
	ds := &Dataset{
		name:      name,
		samples:   slices.Clone(samples),
		batchSize: batchSize,
		spec:      spec,
		infinite:  infinite,
		rng:       rng,
	}
	ds.Reset()
	return ds
}

// WithReplacement makes an infinite Dataset sample batches independently
// with replacement, instead of shuffled epochs. It returns the updated
// dataset for chaining.
func (ds *Dataset) WithReplacement() *Dataset {
	if !ds.infinite || ds.rng == nil {
		exceptions.Panicf("Dataset.WithReplacement requires an infinite dataset with a rng")
	}
	ds.withReplacement = true
	return ds
}

// Name implements train.Dataset.
func (ds *Dataset) Name() string { return ds.name }

// Spec returns the fixed geometry of the yielded batches. It is also
// returned by Yield as the dataset spec.
func (ds *Dataset) Spec() graphs.BatchSpec { return ds.spec }

// Yield implements train.Dataset. It returns the batch geometry
// (graphs.BatchSpec) as spec, the 5 input tensors documented in
// graphs.Batched.Tensors as inputs, and the class labels, shaped
// (int32)[batchSize, 1], as the single labels tensor.
func (ds *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	// Lock only while selecting the batch's samples.
	ds.muSelection.Lock()
	if !ds.infinite && ds.pos+ds.batchSize > len(ds.samples) {
		ds.muSelection.Unlock()
		return nil, nil, nil, io.EOF
	}
	if ds.pos+ds.batchSize > len(ds.samples) {
		ds.resetLocked()
	}
	batch := make([]*graphs.Graph, ds.batchSize)
	if ds.infinite && ds.withReplacement {
		for ii := range batch {
			batch[ii] = ds.samples[ds.rng.Intn(len(ds.samples))]
		}
	} else {
		copy(batch, ds.samples[ds.pos:ds.pos+ds.batchSize])
		ds.pos += ds.batchSize
	}
	ds.muSelection.Unlock()

	b := graphs.Batch(batch...)
	b.Pad(ds.spec.MaxNodes, ds.spec.MaxEdges)
	degrees, edgeSources, edgeTargets, segmentIDs, mask := b.Tensors()
	labelsData := make([]int32, ds.batchSize)
	for ii, g := range batch {
		labelsData[ii] = int32(g.Class)
	}
	inputs = []*tensors.Tensor{degrees, edgeSources, edgeTargets, segmentIDs, mask}
	labels = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(labelsData, ds.batchSize, 1)}
	return ds.spec, inputs, labels, nil
}

// Reset implements train.Dataset. It restarts the dataset from the
// beginning, reshuffling if a rng was given.
func (ds *Dataset) Reset() {
	ds.muSelection.Lock()
	defer ds.muSelection.Unlock()
	ds.resetLocked()
}

func (ds *Dataset) resetLocked() {
	if ds.rng != nil && !ds.withReplacement {
		ds.rng.Shuffle(len(ds.samples), func(i, j int) {
			ds.samples[i], ds.samples[j] = ds.samples[j], ds.samples[i]
		})
	}
	ds.pos = 0
}
