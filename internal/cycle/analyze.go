package cycle

import (
	"sort"
	"strings"

	"github.com/arolang/aro/internal/ast"
)

// color marks a node's DFS state: unvisited, on the current path, or
// fully explored.
type color int

const (
	white color = iota
	gray
	black
)

// Cycle is one closed walk in the emit graph, reported once no matter
// how many distinct DFS traversals would otherwise find it.
type Cycle struct {
	Path        []string // event types, first node repeated at the end
	FeatureSets []string // handlers whose emit statements form the cycle
	Span        ast.Span // location of the edge that closed the cycle
}

// Analyze builds the emit graph for program and returns every cycle in
// it, each reported exactly once via canonical dedup.
func Analyze(program ast.Program) []Cycle {
	g := buildGraph(program)
	a := &analyzer{graph: g, colors: make(map[string]color), seen: make(map[string]bool)}
	for _, node := range g.sortedNodes() {
		if a.colors[node] == white {
			a.visit(node)
		}
	}
	sort.SliceStable(a.cycles, func(i, j int) bool {
		return strings.Join(a.cycles[i].Path, ",") < strings.Join(a.cycles[j].Path, ",")
	})
	return a.cycles
}

type analyzer struct {
	graph      graph
	colors     map[string]color
	stack      []string // current DFS path, root-to-leaf
	stackEdges []edge   // stackEdges[i] is the edge used to reach stack[i+1] from stack[i]
	seen       map[string]bool
	cycles     []Cycle
}

func (a *analyzer) visit(node string) {
	a.colors[node] = gray
	a.stack = append(a.stack, node)

	for _, e := range a.graph[node] {
		switch a.colors[e.To] {
		case white:
			a.stackEdges = append(a.stackEdges, e)
			a.visit(e.To)
			a.stackEdges = a.stackEdges[:len(a.stackEdges)-1]
		case gray:
			a.recordCycle(e)
		case black:
			// already fully explored, no new cycle through it
		}
	}

	a.stack = a.stack[:len(a.stack)-1]
	a.colors[node] = black
}

// recordCycle closes the cycle formed by the back-edge e into an
// in-path node, canonicalizing it (sorted, deduplicated node set joined
// by commas) so equivalent cycles discovered from different starting
// points are reported only once.
func (a *analyzer) recordCycle(e edge) {
	start := indexOf(a.stack, e.To)
	if start < 0 {
		return
	}
	path := append([]string{}, a.stack[start:]...)
	path = append(path, e.To)

	canon := canonicalize(path)
	if a.seen[canon] {
		return
	}
	a.seen[canon] = true

	featureSets := make([]string, 0, len(path))
	fsSeen := make(map[string]bool)
	for _, used := range a.stackEdges[start:] {
		if !fsSeen[used.FeatureSet] {
			fsSeen[used.FeatureSet] = true
			featureSets = append(featureSets, used.FeatureSet)
		}
	}
	if !fsSeen[e.FeatureSet] {
		featureSets = append(featureSets, e.FeatureSet)
	}
	sort.Strings(featureSets)

	a.cycles = append(a.cycles, Cycle{Path: path, FeatureSets: featureSets, Span: e.Span})
}

func indexOf(stack []string, node string) int {
	for i, n := range stack {
		if n == node {
			return i
		}
	}
	return -1
}

// canonicalize returns a stable string key for a cycle's node set: the
// non-repeated nodes sorted and comma-joined.
func canonicalize(path []string) string {
	seen := make(map[string]bool, len(path))
	var nodes []string
	for _, n := range path {
		if !seen[n] {
			seen[n] = true
			nodes = append(nodes, n)
		}
	}
	sort.Strings(nodes)
	return strings.Join(nodes, ",")
}
