// Package mermaid serializes clustered taint-trace graphs as Mermaid
// flowchart blocks for embedding in markdown review comments.
package mermaid

import (
	"fmt"
	"strings"

	"taintlens/pkg/trace"
)

// Render emits one diagram block for a clustered trace graph: a sources
// subgraph, ungrouped intermediates, a sinks subgraph, one edge line per
// (node, successor) pair, and role styling. Node declarations are
// deduplicated by key and everything is emitted in key order, so output is
// stable across runs.
func Render(g *trace.TraceGraph) string {
	sources := trace.UniqueNodes(g.Sources)
	intermediates := trace.UniqueNodes(g.Intermediates)
	sinks := trace.UniqueNodes(g.Sinks)

	var b strings.Builder
	b.WriteString("```mermaid\n")
	b.WriteString("graph LR;\n")

	b.WriteString("    subgraph sources\n")
	for _, n := range sources {
		fmt.Fprintf(&b, "        %s\n", declare(n))
	}
	b.WriteString("    end\n")

	for _, n := range intermediates {
		fmt.Fprintf(&b, "    %s\n", declare(n))
	}

	b.WriteString("    subgraph sinks\n")
	for _, n := range sinks {
		fmt.Fprintf(&b, "        %s\n", declare(n))
	}
	b.WriteString("    end\n")

	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "    %s --> %s\n", e.From.ID(), e.To.ID())
	}

	b.WriteString("    classDef source fill:#ebf2fc,stroke:#193c47\n")
	b.WriteString("    classDef im fill:#ebf2fc,stroke:#193c47,stroke-dasharray: 5 5\n")
	b.WriteString("    classDef sink fill:#ebf2fc,stroke:#193c47,stroke-width: 2px\n")
	writeClass(&b, sources, "source")
	writeClass(&b, intermediates, "im")
	writeClass(&b, sinks, "sink")

	b.WriteString("```\n")
	return b.String()
}

// declare formats a node declaration with its escaped label.
func declare(n *trace.Node) string {
	return fmt.Sprintf("%s[\"%s\"]", n.Key.ID(), n.DisplayText)
}

// writeClass assigns a style class to every node of a role.
func writeClass(b *strings.Builder, nodes []*trace.Node, class string) {
	if len(nodes) == 0 {
		return
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Key.ID()
	}
	fmt.Fprintf(b, "    class %s %s\n", strings.Join(ids, ","), class)
}
