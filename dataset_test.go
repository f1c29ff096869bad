// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package minigc

import (
	"io"
	"math/rand"
	"slices"
	"sync"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/minigc/graphs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := NewSamples(rng, 160, 10, 20)
	require.Len(t, samples, 160)

	classCounts := make(map[graphs.Class]int)
	for _, g := range samples {
		classCounts[g.Class]++
		// Generators may round sizes down (hypercube as far as the previous
		// power of 2), but never above the drawn count.
		assert.GreaterOrEqual(t, g.NumNodes, 4)
		assert.Less(t, g.NumNodes, 20)
	}
	// Classes are balanced.
	for class := graphs.Class(0); class < graphs.NumClasses; class++ {
		assert.Equal(t, 160/graphs.NumClasses, classCounts[class], "class %s", class)
	}
}

func TestNewSamplesPanicsOnBadRange(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	require.Panics(t, func() { NewSamples(rng, 8, 10, 10) })
	require.Panics(t, func() { NewSamples(rng, 8, graphs.MinNumNodes-1, 20) })
}

func TestPaddedSpecHoldsWorstCase(t *testing.T) {
	const batchSize, maxNodes = 4, 12
	spec := PaddedSpec(batchSize, maxNodes)

	// Worst case batch: all graphs are the largest possible cliques.
	worst := make([]*graphs.Graph, batchSize)
	for ii := range worst {
		worst[ii] = graphs.New(graphs.Clique, maxNodes-1)
	}
	b := graphs.Batch(worst...)
	require.Less(t, b.NumNodes, spec.MaxNodes)
	require.LessOrEqual(t, b.NumEdges, spec.MaxEdges)
	require.NotPanics(t, func() { b.Pad(spec.MaxNodes, spec.MaxEdges) })
}

func TestDatasetYield(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := NewSamples(rng, 24, 8, 12)
	const batchSize = 8
	spec := PaddedSpec(batchSize, 12)
	ds := NewDataset("test", samples, batchSize, spec, false, rng)

	for epoch := 0; epoch < 2; epoch++ {
		for batchIdx := 0; batchIdx < 3; batchIdx++ {
			gotSpec, inputs, labels, err := ds.Yield()
			require.NoError(t, err, "epoch %d, batch %d", epoch, batchIdx)
			require.Equal(t, spec, gotSpec)
			require.Len(t, inputs, 5)
			require.Len(t, labels, 1)

			degrees, edgeSources, segmentIDs := inputs[0], inputs[1], inputs[3]
			assert.Equal(t, []int{spec.MaxNodes, 1}, degrees.Shape().Dimensions)
			assert.Equal(t, []int{spec.MaxEdges}, edgeSources.Shape().Dimensions)
			assert.Equal(t, []int{spec.MaxNodes}, segmentIDs.Shape().Dimensions)
			assert.Equal(t, []int{batchSize, 1}, labels[0].Shape().Dimensions)

			tensors.MustConstFlatData[int32](labels[0], func(flat []int32) {
				for _, label := range flat {
					assert.GreaterOrEqual(t, label, int32(0))
					assert.Less(t, label, int32(graphs.NumClasses))
				}
			})
		}
		// Only full batches: the 3 batches exhaust the 24 samples.
		_, _, _, err := ds.Yield()
		require.Equal(t, io.EOF, err)
		ds.Reset()
	}
}

func TestDatasetsShareSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	samples := NewSamples(rng, 24, 8, 12)
	original := slices.Clone(samples)
	const batchSize = 8
	spec := PaddedSpec(batchSize, 12)

	// A shuffling (infinite) dataset and an in-order (finite) one over the
	// same slice: each takes its own copy, so the training dataset's
	// reshuffling never disturbs the evaluation epoch nor the caller's
	// slice. Meaningful under -race.
	trainDS := NewDataset("train", samples, batchSize, spec, true, rng)
	evalDS := NewDataset("eval", samples, batchSize, spec, false, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Several epochs worth of yields, each epoch boundary reshuffles.
		for ii := 0; ii < 12; ii++ {
			_, _, _, err := trainDS.Yield()
			assert.NoError(t, err)
		}
	}()

	// The eval epoch visits every sample exactly once, in the caller's
	// order.
	var gotLabels []int32
	for {
		_, _, labels, err := evalDS.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		tensors.MustConstFlatData[int32](labels[0], func(flat []int32) {
			gotLabels = append(gotLabels, flat...)
		})
	}
	wg.Wait()

	wantLabels := make([]int32, len(original))
	for ii, g := range original {
		wantLabels[ii] = int32(g.Class)
	}
	assert.Equal(t, wantLabels, gotLabels)

	// The caller's slice was left untouched.
	for ii := range original {
		assert.Same(t, original[ii], samples[ii], "sample %d", ii)
	}
}

func TestDatasetInfinite(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := NewSamples(rng, 16, 8, 12)
	spec := PaddedSpec(4, 12)
	ds := NewDataset("train", samples, 4, spec, true, rng)

	// More yields than one epoch holds: io.EOF is never returned.
	for ii := 0; ii < 10; ii++ {
		_, inputs, _, err := ds.Yield()
		require.NoError(t, err)
		require.Len(t, inputs, 5)
	}

	// Same for sampling with replacement.
	ds = NewDataset("train", samples, 4, spec, true, rng).WithReplacement()
	for ii := 0; ii < 10; ii++ {
		_, _, _, err := ds.Yield()
		require.NoError(t, err)
	}
}
