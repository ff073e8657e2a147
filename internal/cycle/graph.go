// Package cycle builds the directed event-emission graph of an analyzed
// program and detects cycles in it before the program ever runs.
package cycle

import (
	"sort"
	"strings"

	"github.com/arolang/aro/internal/ast"
)

// edge is one event-type → event-type arc: handler for From emits To,
// discovered inside the named feature set at span.
type edge struct {
	To         string
	FeatureSet string
	Span       ast.Span
}

// graph is the adjacency list of the emit graph, keyed by event type.
type graph map[string][]edge

// buildGraph walks every handler feature set's statement tree looking
// for emit action statements and records one edge per occurrence. A
// handler excluded from registration (Socket Event, File Event,
// Application-End) contributes no node and no edges: it never runs
// through the event bus, so it cannot participate in a cycle.
func buildGraph(program ast.Program) graph {
	g := make(graph)
	for _, fs := range program.FeatureSets {
		if !fs.IsHandler() || excluded(fs.BusinessActivity) {
			continue
		}
		eventType := fs.HandlerEventType()
		if eventType == "" {
			continue
		}
		if _, ok := g[eventType]; !ok {
			g[eventType] = nil
		}
		for _, stmt := range emitStatements(fs.Statements) {
			g[eventType] = append(g[eventType], edge{
				To:         stmt.Result.Base,
				FeatureSet: fs.Name,
				Span:       stmt.Span,
			})
		}
	}
	for node, edges := range g {
		sort.SliceStable(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return edges[i].FeatureSet < edges[j].FeatureSet
		})
		g[node] = edges
	}
	return g
}

func excluded(businessActivity string) bool {
	return strings.Contains(businessActivity, "Socket Event") ||
		strings.Contains(businessActivity, "File Event") ||
		strings.Contains(businessActivity, "Application-End")
}

// emitStatements collects every action statement with verb "emit"
// anywhere in stmts, recursing into match-case bodies, the otherwise
// arm, and for-each loop bodies. A guarded emit still counts: the
// analyzer reasons about what a handler *can* emit, not what it emits
// on every path.
func emitStatements(stmts []ast.Statement) []ast.Statement {
	var out []ast.Statement
	for _, stmt := range stmts {
		switch stmt.Kind {
		case ast.KindAction:
			if strings.EqualFold(stmt.Verb, "emit") {
				out = append(out, stmt)
			}
		case ast.KindMatch:
			for _, c := range stmt.Cases {
				out = append(out, emitStatements(c.Body)...)
			}
			if stmt.HasOtherwise {
				out = append(out, emitStatements(stmt.Otherwise)...)
			}
		case ast.KindForEach:
			out = append(out, emitStatements(stmt.Body)...)
		}
	}
	return out
}

// sortedNodes returns the graph's node set in a stable order so
// repeated analysis runs visit nodes (and therefore report cycles) in
// the same order.
func (g graph) sortedNodes() []string {
	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}
