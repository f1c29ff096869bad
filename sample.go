// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package minigc

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/minigc/graphs"
	"gonum.org/v1/gonum/stat"
)

var sampleStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	Padding(1, 4, 1, 4).
	Width(60)

// PrintSample generates and pretty-prints n random graphs, one box per
// graph, with their class and degree statistics. Handy to eyeball what the
// dataset looks like.
func PrintSample(n, minNodes, maxNodes int) {
	rng := rand.New(rand.NewSource(time.Now().UTC().UnixNano()))
	for ii, g := range NewSamples(rng, n, minNodes, maxNodes) {
		fmt.Println(sampleStyle.Render(
			fmt.Sprintf("[Sample %d - label %d (%s)]\n%s", ii, int(g.Class), g.Class, graphToString(g))))
	}
	fmt.Println()
}

// graphToString renders a one-graph summary: node/edge counts, degree
// statistics and the degree histogram.
func graphToString(g *graphs.Graph) string {
	degrees := g.Degrees()
	stats := make([]float64, len(degrees))
	histogram := make(map[int]int)
	maxDegree := 0
	for ii, degree := range degrees {
		d := int(degree)
		stats[ii] = float64(degree)
		histogram[d]++
		maxDegree = max(maxDegree, d)
	}
	mean, std := stat.MeanStdDev(stats, nil)

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "nodes=%d, undirected edges=%d\n", g.NumNodes, g.NumUndirectedEdges())
	_, _ = fmt.Fprintf(&sb, "degree: mean=%.2f, stddev=%.2f\n", mean, std)
	for d := 0; d <= maxDegree; d++ {
		if histogram[d] == 0 {
			continue
		}
		_, _ = fmt.Fprintf(&sb, "  degree %2d: %s (%d)\n", d, strings.Repeat("▪", histogram[d]), histogram[d])
	}
	return sb.String()
}
