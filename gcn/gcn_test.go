// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gcn

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/support/xslices"
)

func TestMeanNeighbors(t *testing.T) {
	graphtest.RunTestGraphFn(
		t, "MeanNeighbors()",
		func(g *Graph) (inputs, outputs []*Node) {
			// Path graph 0-1-2 plus the isolated node 3.
			state := Const(g, [][]float32{{1, 0}, {2, 1}, {4, 3}, {7, 7}})
			edgeSources := Const(g, []int32{0, 1, 1, 2})
			edgeTargets := Const(g, []int32{1, 0, 2, 1})
			output := MeanNeighbors(state, edgeSources, edgeTargets)
			inputs = []*Node{state, edgeSources, edgeTargets}
			outputs = []*Node{output}
			return
		}, []any{
			[][]float32{
				{2, 1},     // Node 0: only neighbor is node 1.
				{2.5, 1.5}, // Node 1: mean of nodes 0 and 2.
				{2, 1},     // Node 2: only neighbor is node 1.
				{0, 0},     // Node 3: no incoming edges.
			},
		}, xslices.Epsilon)
}

func TestMeanNodesReadout(t *testing.T) {
	graphtest.RunTestGraphFn(
		t, "MeanNodesReadout()",
		func(g *Graph) (inputs, outputs []*Node) {
			// 2 graphs of 2 nodes each, plus one ghost node (segment id 2,
			// masked out); its large state must not leak into any mean.
			state := Const(g, [][]float32{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {1000, 1000}})
			segmentIDs := Const(g, []int32{0, 0, 1, 1, 2})
			mask := Const(g, []bool{true, true, true, true, false})
			output := MeanNodesReadout(state, segmentIDs, mask, 2)
			inputs = []*Node{state, segmentIDs, mask}
			outputs = []*Node{output}
			return
		}, []any{
			[][]float32{
				{2, 3},
				{6, 7},
			},
		}, xslices.Epsilon)
}

func TestMeanNodesReadoutWithoutMask(t *testing.T) {
	graphtest.RunTestGraphFn(
		t, "MeanNodesReadout(mask=nil)",
		func(g *Graph) (inputs, outputs []*Node) {
			state := Const(g, [][]float32{{2, 0}, {4, 2}, {9, 3}})
			segmentIDs := Const(g, []int32{0, 0, 1})
			output := MeanNodesReadout(state, segmentIDs, nil, 2)
			inputs = []*Node{state, segmentIDs}
			outputs = []*Node{output}
			return
		}, []any{
			[][]float32{
				{3, 1},
				{9, 3},
			},
		}, xslices.Epsilon)
}
