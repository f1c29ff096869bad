// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphs generates the small synthetic graph shapes used for the
// graph classification task, and implements batching of many variable-sized
// graphs into a single disjoint-union graph (see batch.go).
//
// Each generator builds one of the 8 classic shape families (cycle, star,
// wheel, lollipop, hypercube, 2d-grid, clique and circular ladder) for a
// requested number of nodes. Some families only exist for certain sizes
// (a hypercube has a power-of-2 number of nodes, a square grid a perfect
// square), in which case the generator rounds the size down to the nearest
// valid one -- the resulting graph may have fewer nodes than requested.
package graphs

import (
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/graph/simple"
)

// Class enumerates the shape families. It doubles as the label of the
// classification task.
type Class int

const (
	Cycle Class = iota
	Star
	Wheel
	Lollipop
	Hypercube
	Grid
	Clique
	CircularLadder
)

// NumClasses is the number of shape families, and the number of labels of
// the classification task.
const NumClasses = 8

// MinNumNodes is the smallest size for which every shape family is
// well-defined.
const MinNumNodes = 6

var classNames = [NumClasses]string{
	"cycle", "star", "wheel", "lollipop", "hypercube", "grid", "clique", "circular ladder"}

// String implements fmt.Stringer.
func (c Class) String() string {
	if c < 0 || int(c) >= NumClasses {
		return fmt.Sprintf("invalid class (%d)", int(c))
	}
	return classNames[c]
}

// Graph is one undirected graph with a class label. Each undirected edge is
// stored exactly once, with Edges[i][0] < Edges[i][1], sorted
// lexicographically. Nodes are implicit: 0 to NumNodes-1.
type Graph struct {
	Class    Class
	NumNodes int
	Edges    [][2]int32
}

// New builds a graph of the given class with at most numNodes nodes.
// numNodes must be at least MinNumNodes.
func New(class Class, numNodes int) *Graph {
	if numNodes < MinNumNodes {
		exceptions.Panicf("graphs.New: numNodes=%d, must be at least %d", numNodes, MinNumNodes)
	}
	var edges func(numNodes int) *simple.UndirectedGraph
	switch class {
	case Cycle:
		edges = cycleEdges
	case Star:
		edges = starEdges
	case Wheel:
		edges = wheelEdges
	case Lollipop:
		edges = lollipopEdges
	case Hypercube:
		numNodes = 1 << (bits.Len(uint(numNodes)) - 1)
		edges = hypercubeEdges
	case Grid:
		side := int(math.Sqrt(float64(numNodes)))
		numNodes = side * side
		edges = gridEdges
	case Clique:
		edges = cliqueEdges
	case CircularLadder:
		numNodes = numNodes - numNodes%2
		edges = circularLadderEdges
	default:
		exceptions.Panicf("graphs.New: invalid class %d", int(class))
	}
	return &Graph{
		Class:    class,
		NumNodes: numNodes,
		Edges:    sortedEdgeList(edges(numNodes)),
	}
}

// NumUndirectedEdges returns the number of undirected edges.
func (g *Graph) NumUndirectedEdges() int { return len(g.Edges) }

// DirectedEdges returns the edges as two parallel COO index slices, with
// every undirected edge listed in both directions. Message passing and
// degree counting operate on this directed view.
func (g *Graph) DirectedEdges() (sources, targets []int32) {
	sources = make([]int32, 0, 2*len(g.Edges))
	targets = make([]int32, 0, 2*len(g.Edges))
	for _, e := range g.Edges {
		sources = append(sources, e[0], e[1])
		targets = append(targets, e[1], e[0])
	}
	return
}

// Degrees returns the degree of each node as float32, the initial node
// feature of the classifier.
func (g *Graph) Degrees() []float32 {
	degrees := make([]float32, g.NumNodes)
	for _, e := range g.Edges {
		degrees[e[0]]++
		degrees[e[1]]++
	}
	return degrees
}

// newShape returns an undirected gonum graph with nodes 0 to numNodes-1 and
// no edges yet.
func newShape(numNodes int) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for ii := 0; ii < numNodes; ii++ {
		g.AddNode(simple.Node(ii))
	}
	return g
}

func setEdge(g *simple.UndirectedGraph, from, to int) {
	g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
}

// sortedEdgeList extracts the edges of a gonum graph as a deterministic,
// lexicographically sorted list with from < to.
func sortedEdgeList(g *simple.UndirectedGraph) [][2]int32 {
	it := g.Edges()
	edges := make([][2]int32, 0, it.Len())
	for it.Next() {
		e := it.Edge()
		from, to := int32(e.From().ID()), int32(e.To().ID())
		if from > to {
			from, to = to, from
		}
		edges = append(edges, [2]int32{from, to})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

func cycleEdges(numNodes int) *simple.UndirectedGraph {
	g := newShape(numNodes)
	for ii := 0; ii < numNodes; ii++ {
		setEdge(g, ii, (ii+1)%numNodes)
	}
	return g
}

func starEdges(numNodes int) *simple.UndirectedGraph {
	g := newShape(numNodes)
	for ii := 1; ii < numNodes; ii++ {
		setEdge(g, 0, ii)
	}
	return g
}

// wheelEdges: node 0 is the hub, nodes 1 to numNodes-1 form the rim.
func wheelEdges(numNodes int) *simple.UndirectedGraph {
	g := newShape(numNodes)
	rim := numNodes - 1
	for ii := 1; ii <= rim; ii++ {
		setEdge(g, 0, ii)
		setEdge(g, ii, 1+ii%rim)
	}
	return g
}

// lollipopEdges: a clique over the first half of the nodes, with a path
// hanging off it over the second half.
func lollipopEdges(numNodes int) *simple.UndirectedGraph {
	g := newShape(numNodes)
	cliqueSize := numNodes / 2
	for ii := 0; ii < cliqueSize; ii++ {
		for jj := ii + 1; jj < cliqueSize; jj++ {
			setEdge(g, ii, jj)
		}
	}
	for ii := cliqueSize; ii < numNodes; ii++ {
		setEdge(g, ii-1, ii)
	}
	return g
}

// hypercubeEdges: numNodes must be a power of 2; nodes are connected iff
// their ids differ in exactly one bit.
func hypercubeEdges(numNodes int) *simple.UndirectedGraph {
	g := newShape(numNodes)
	for ii := 0; ii < numNodes; ii++ {
		for bit := 1; bit < numNodes; bit <<= 1 {
			setEdge(g, ii, ii^bit)
		}
	}
	return g
}

// gridEdges: numNodes must be a perfect square; nodes are laid out row-major
// on a side x side grid.
func gridEdges(numNodes int) *simple.UndirectedGraph {
	g := newShape(numNodes)
	side := int(math.Sqrt(float64(numNodes)))
	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			node := row*side + col
			if col+1 < side {
				setEdge(g, node, node+1)
			}
			if row+1 < side {
				setEdge(g, node, node+side)
			}
		}
	}
	return g
}

func cliqueEdges(numNodes int) *simple.UndirectedGraph {
	g := newShape(numNodes)
	for ii := 0; ii < numNodes; ii++ {
		for jj := ii + 1; jj < numNodes; jj++ {
			setEdge(g, ii, jj)
		}
	}
	return g
}

// circularLadderEdges: numNodes must be even; two concentric cycles of
// numNodes/2 nodes each, connected by rungs.
func circularLadderEdges(numNodes int) *simple.UndirectedGraph {
	g := newShape(numNodes)
	half := numNodes / 2
	for ii := 0; ii < half; ii++ {
		setEdge(g, ii, (ii+1)%half)
		setEdge(g, half+ii, half+(ii+1)%half)
		setEdge(g, ii, half+ii)
	}
	return g
}
