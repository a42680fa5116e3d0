package trace

import (
	"fmt"
	"sort"
)

// TraceGraph holds one finding's taint chain: source, intermediate and
// sink nodes sorted by offset and linked into a single linear path. After
// clustering a graph may hold the concatenated lists of several findings.
type TraceGraph struct {
	RuleID       string
	FindingIndex int

	Sources       []*Node
	Intermediates []*Node
	Sinks         []*Node

	// Findings counts how many findings' graphs were merged into this one.
	Findings int
}

// EmptyChainError reports a finding whose dataflow trace cannot form a
// chain. It identifies the offending finding instead of surfacing an index
// error from inside chain construction.
type EmptyChainError struct {
	RuleID       string
	FindingIndex int
	Missing      string // "sources" or "sinks"
}

func (e *EmptyChainError) Error() string {
	return fmt.Sprintf("finding %d of rule %s has no usable %s", e.FindingIndex, e.RuleID, e.Missing)
}

// sortNodes orders nodes ascending by offset. The sort is stable so nodes
// at the same offset keep their input order.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Key.Offset < nodes[j].Key.Offset
	})
}

// link assigns next as a node's successor. A node appearing more than
// once in one finding's trace keeps its earlier continuation: the new one
// is unioned in rather than overwriting it.
func link(n, next *Node) {
	if n.Chained() {
		n.UnionSuccessors(next)
		return
	}
	n.SetSuccessors(next)
}

// NewTraceGraph builds the linear chain for one finding: consecutive
// sources linked, last source to the first intermediate (or straight to the
// first sink), consecutive intermediates linked, last intermediate to the
// first sink. A finding with no sources or no sink is a contract violation
// by the upstream data.
func NewTraceGraph(ruleID string, findingIndex int, sources, intermediates, sinks []*Node) (*TraceGraph, error) {
	if len(sources) == 0 {
		return nil, &EmptyChainError{RuleID: ruleID, FindingIndex: findingIndex, Missing: "sources"}
	}
	if len(sinks) == 0 {
		return nil, &EmptyChainError{RuleID: ruleID, FindingIndex: findingIndex, Missing: "sinks"}
	}

	sortNodes(sources)
	sortNodes(intermediates)
	sortNodes(sinks)

	for i := 0; i+1 < len(sources); i++ {
		link(sources[i], sources[i+1])
	}
	next := sinks[0]
	if len(intermediates) > 0 {
		next = intermediates[0]
	}
	link(sources[len(sources)-1], next)

	for i := 0; i+1 < len(intermediates); i++ {
		link(intermediates[i], intermediates[i+1])
	}
	if len(intermediates) > 0 {
		link(intermediates[len(intermediates)-1], sinks[0])
	}

	return &TraceGraph{
		RuleID:        ruleID,
		FindingIndex:  findingIndex,
		Sources:       sources,
		Intermediates: intermediates,
		Sinks:         sinks,
		Findings:      1,
	}, nil
}

// Intersects reports whether the two graphs share a node in the same role.
// A node acting as a source in one graph and a sink in the other does not
// count. Symmetric by construction.
func (g *TraceGraph) Intersects(other *TraceGraph) bool {
	return overlaps(g.Sources, other.Sources) ||
		overlaps(g.Intermediates, other.Intermediates) ||
		overlaps(g.Sinks, other.Sinks)
}

func overlaps(a, b []*Node) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	keys := make(map[NodeKey]struct{}, len(a))
	for _, n := range a {
		keys[n.Key] = struct{}{}
	}
	for _, n := range b {
		if _, ok := keys[n.Key]; ok {
			return true
		}
	}
	return false
}

// Merge appends other's role lists onto this graph's, in order and without
// deduplication. A node present in both graphs appears twice afterwards;
// rendering deduplicates by key.
func (g *TraceGraph) Merge(other *TraceGraph) {
	g.Sources = append(g.Sources, other.Sources...)
	g.Intermediates = append(g.Intermediates, other.Intermediates...)
	g.Sinks = append(g.Sinks, other.Sinks...)
	g.Findings += other.Findings
}

// Edges collects every (node, successor) pair across all three role lists,
// deduplicated and in deterministic order.
func (g *TraceGraph) Edges() []Edge {
	seen := make(map[Edge]struct{})
	var edges []Edge
	for _, list := range [][]*Node{g.Sources, g.Intermediates, g.Sinks} {
		for _, n := range list {
			for _, e := range n.Edges() {
				if _, ok := seen[e]; ok {
					continue
				}
				seen[e] = struct{}{}
				edges = append(edges, e)
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			if edges[i].From.Offset != edges[j].From.Offset {
				return edges[i].From.Offset < edges[j].From.Offset
			}
			return edges[i].From.Context < edges[j].From.Context
		}
		if edges[i].To.Offset != edges[j].To.Offset {
			return edges[i].To.Offset < edges[j].To.Offset
		}
		return edges[i].To.Context < edges[j].To.Context
	})
	return edges
}

// UniqueNodes returns the distinct nodes of a role list in key order.
func UniqueNodes(nodes []*Node) []*Node {
	seen := make(map[NodeKey]*Node, len(nodes))
	keys := make([]NodeKey, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n.Key]; ok {
			continue
		}
		seen[n.Key] = n
		keys = append(keys, n.Key)
	}
	sortKeys(keys)
	out := make([]*Node, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out
}
