// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// BatchSpec is the fixed geometry of the padded batches of a dataset. It is
// passed around as the dataset "spec": models need NumGraphs to size their
// readout, and the training loop re-uses the same JIT-compiled program for
// all batches with the same spec.
type BatchSpec struct {
	// NumGraphs per batch (the batch size of the classification task).
	NumGraphs int

	// MaxNodes and MaxEdges are the padded node and directed-edge counts.
	MaxNodes, MaxEdges int
}

// String implements fmt.Stringer.
func (s BatchSpec) String() string {
	return fmt.Sprintf("BatchSpec(graphs=%d, nodes=%d, edges=%d)", s.NumGraphs, s.MaxNodes, s.MaxEdges)
}

// Batched is the disjoint union of a list of graphs: one larger graph whose
// connected components are the original graphs. Node ids of graph k are
// shifted by the total number of nodes of graphs 0..k-1, and SegmentIDs
// records for every node which graph it came from, so per-node results can
// be aggregated (or split) back per original graph.
//
// A Batched can be padded (see Pad) to a fixed geometry, so that batches of
// different composition still present identical tensor shapes: GoMLX
// JIT-compiles one program per distinct input shape, and without padding
// every batch would trigger a fresh compilation.
type Batched struct {
	NumGraphs int

	// NumNodes and NumEdges count real (unpadded) nodes and directed edges.
	NumNodes, NumEdges int

	// NodeCounts has the number of nodes of each original graph.
	NodeCounts []int32

	// Per-node data, len NumNodes before padding.
	Degrees    []float32
	SegmentIDs []int32

	// Per-directed-edge data, len NumEdges before padding.
	EdgeSources, EdgeTargets []int32

	// Mask is true for real nodes, false for padding. Nil before Pad.
	Mask []bool
}

// Batch merges the given graphs into their disjoint union.
func Batch(gs ...*Graph) *Batched {
	if len(gs) == 0 {
		exceptions.Panicf("graphs.Batch requires at least one graph")
	}
	b := &Batched{
		NumGraphs:  len(gs),
		NodeCounts: make([]int32, 0, len(gs)),
	}
	for _, g := range gs {
		b.NumNodes += g.NumNodes
		b.NumEdges += 2 * g.NumUndirectedEdges()
		b.NodeCounts = append(b.NodeCounts, int32(g.NumNodes))
	}
	b.Degrees = make([]float32, 0, b.NumNodes)
	b.SegmentIDs = make([]int32, 0, b.NumNodes)
	b.EdgeSources = make([]int32, 0, b.NumEdges)
	b.EdgeTargets = make([]int32, 0, b.NumEdges)
	var nodeOffset int32
	for graphIdx, g := range gs {
		b.Degrees = append(b.Degrees, g.Degrees()...)
		for range g.NumNodes {
			b.SegmentIDs = append(b.SegmentIDs, int32(graphIdx))
		}
		sources, targets := g.DirectedEdges()
		for ii := range sources {
			b.EdgeSources = append(b.EdgeSources, nodeOffset+sources[ii])
			b.EdgeTargets = append(b.EdgeTargets, nodeOffset+targets[ii])
		}
		nodeOffset += int32(g.NumNodes)
	}
	return b
}

// Pad extends the batch to exactly maxNodes nodes and maxEdges directed
// edges. Ghost nodes have degree 0, a false Mask entry and segment id
// NumGraphs -- readouts scatter them into an extra row that is sliced off.
// Ghost edges self-loop on the first ghost node, so they never deliver
// messages to a real node. At least one ghost node is required, hence
// maxNodes must be > NumNodes.
func (b *Batched) Pad(maxNodes, maxEdges int) {
	if maxNodes <= b.NumNodes {
		exceptions.Panicf("Batched.Pad: maxNodes=%d must be larger than the %d nodes in the batch (at least one ghost node is required)",
			maxNodes, b.NumNodes)
	}
	if maxEdges < b.NumEdges {
		exceptions.Panicf("Batched.Pad: maxEdges=%d cannot hold the %d directed edges in the batch",
			maxEdges, b.NumEdges)
	}
	b.Mask = make([]bool, maxNodes)
	for ii := 0; ii < b.NumNodes; ii++ {
		b.Mask[ii] = true
	}
	ghost := int32(b.NumNodes)
	for ii := b.NumNodes; ii < maxNodes; ii++ {
		b.Degrees = append(b.Degrees, 0)
		b.SegmentIDs = append(b.SegmentIDs, int32(b.NumGraphs))
	}
	for ii := b.NumEdges; ii < maxEdges; ii++ {
		b.EdgeSources = append(b.EdgeSources, ghost)
		b.EdgeTargets = append(b.EdgeTargets, ghost)
	}
}

// Tensors converts the batch to the model's input tensors:
//
//   - degrees: (float32)[numNodes, 1], the initial node features;
//   - edgeSources, edgeTargets: (int32)[numEdges];
//   - segmentIDs: (int32)[numNodes];
//   - mask: (bool)[numNodes], false on ghost nodes.
//
// Call after Pad when feeding a training loop, so shapes stay constant
// across batches.
func (b *Batched) Tensors() (degrees, edgeSources, edgeTargets, segmentIDs, mask *tensors.Tensor) {
	numNodes := len(b.SegmentIDs)
	maskData := b.Mask
	if maskData == nil {
		maskData = make([]bool, numNodes)
		for ii := range maskData {
			maskData[ii] = true
		}
	}
	degrees = tensors.FromFlatDataAndDimensions(b.Degrees, numNodes, 1)
	edgeSources = tensors.FromValue(b.EdgeSources)
	edgeTargets = tensors.FromValue(b.EdgeTargets)
	segmentIDs = tensors.FromValue(b.SegmentIDs)
	mask = tensors.FromValue(maskData)
	return
}

// Unbatch splits a flat per-node slice back into one slice per original
// graph, using the batch's node counts. Padding entries (beyond the real
// nodes) are discarded. The returned slices alias perNode.
func Unbatch[T any](b *Batched, perNode []T) [][]T {
	if len(perNode) < b.NumNodes {
		exceptions.Panicf("graphs.Unbatch: got %d per-node values, batch has %d nodes", len(perNode), b.NumNodes)
	}
	parts := make([][]T, b.NumGraphs)
	var offset int32
	for graphIdx, count := range b.NodeCounts {
		parts[graphIdx] = perNode[offset : offset+count]
		offset += count
	}
	return parts
}
