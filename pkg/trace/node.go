package trace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/minio/highwayhash"
)

// Position is a line/column location in a scanned file, plus the absolute
// byte offset the scanner reports alongside it.
type Position struct {
	Line   int `json:"line"`
	Col    int `json:"col"`
	Offset int `json:"offset"`
}

// NodeKey is the value identity of a trace node. Two spans with identical
// text at the same byte offset are the same logical node, even when they
// came from different findings.
type NodeKey struct {
	Offset  int
	Context string
}

// hashKey is fixed so node identifiers are stable across runs.
var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// ID returns the diagram identifier for this key.
func (k NodeKey) ID() string {
	sum := highwayhash.Sum64([]byte(fmt.Sprintf("%d:%s", k.Offset, k.Context)), hashKey)
	return fmt.Sprintf("n%x", sum)
}

// sortKeys orders keys by offset, then context, for deterministic output.
func sortKeys(keys []NodeKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Offset != keys[j].Offset {
			return keys[i].Offset < keys[j].Offset
		}
		return keys[i].Context < keys[j].Context
	})
}

// escaper rewrites characters that would break diagram labels.
var escaper = strings.NewReplacer(
	`"`, "#quot;",
	`'`, "#apos;",
	"<", "&lt;",
	">", "&gt;",
	"\n", "<br>",
)

// Escape applies the diagram label escaping rules to raw source text.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Node is a deduplicated taint-trace endpoint: a source, intermediate or
// sink span joined with the source text it covers.
type Node struct {
	Key         NodeKey
	Start       Position
	End         Position
	DisplayText string

	// successors holds the node keys reachable by one forward trace step.
	// Set once when a finding's chain is built, only ever grown afterwards.
	successors map[NodeKey]struct{}
	chained    bool
}

// contextOf extracts the exact substring the span covers. Out-of-range
// spans yield an empty context rather than an error.
func contextOf(span Span, source string) string {
	start, end := span.Start.Offset, span.End.Offset
	if start < 0 || end < start || end > len(source) {
		return ""
	}
	return source[start:end]
}

// NewNode materializes a span against the original source text.
func NewNode(span Span, source string) *Node {
	ctx := contextOf(span, source)
	return &Node{
		Key:         NodeKey{Offset: span.Start.Offset, Context: ctx},
		Start:       span.Start,
		End:         span.End,
		DisplayText: Escape(ctx),
		successors:  make(map[NodeKey]struct{}),
	}
}

// SetSuccessors replaces the successor set.
func (n *Node) SetSuccessors(nodes ...*Node) {
	n.successors = make(map[NodeKey]struct{}, len(nodes))
	for _, succ := range nodes {
		n.successors[succ.Key] = struct{}{}
	}
	n.chained = true
}

// UnionSuccessors adds to the successor set without removing anything. A
// node shared by several findings keeps every continuation it has seen.
func (n *Node) UnionSuccessors(nodes ...*Node) {
	for _, succ := range nodes {
		n.successors[succ.Key] = struct{}{}
	}
	n.chained = true
}

// Chained reports whether a chain-construction step has assigned this
// node's successors at least once.
func (n *Node) Chained() bool {
	return n.chained
}

// Edge is a directed step between two trace nodes.
type Edge struct {
	From NodeKey
	To   NodeKey
}

// Edges returns one edge per successor in deterministic key order. A
// terminal node, typically a sink, has none.
func (n *Node) Edges() []Edge {
	if len(n.successors) == 0 {
		return nil
	}
	keys := make([]NodeKey, 0, len(n.successors))
	for k := range n.successors {
		keys = append(keys, k)
	}
	sortKeys(keys)
	edges := make([]Edge, len(keys))
	for i, k := range keys {
		edges[i] = Edge{From: n.Key, To: k}
	}
	return edges
}

// Registry deduplicates nodes by key within one finding's trace. Each
// finding interns into its own registry; graphs relate to each other by
// node key only, so one finding's chain never mutates another's.
type Registry struct {
	nodes map[NodeKey]*Node
}

// NewRegistry creates an empty node registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[NodeKey]*Node)}
}

// Intern returns the canonical node for the span, creating it on first
// sight.
func (r *Registry) Intern(span Span, source string) *Node {
	n := NewNode(span, source)
	if existing, ok := r.nodes[n.Key]; ok {
		return existing
	}
	r.nodes[n.Key] = n
	return n
}

// Lookup returns the node registered under the given key, if any.
func (r *Registry) Lookup(key NodeKey) (*Node, bool) {
	n, ok := r.nodes[key]
	return n, ok
}

// Len returns the number of distinct nodes seen so far.
func (r *Registry) Len() int {
	return len(r.nodes)
}
