package trace

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ClusterComponents groups graphs into exact connected components under
// the shares-a-node relation. Unlike ClusterGreedy it is insensitive to
// input order: if A links to B and B links to C, all three always end up
// in one cluster. Components are returned in first-seen order and merged
// in original graph order.
func ClusterComponents(graphs []*TraceGraph) []*TraceGraph {
	if len(graphs) == 0 {
		return nil
	}

	ug := simple.NewUndirectedGraph()
	for i := range graphs {
		ug.AddNode(simple.Node(int64(i)))
	}
	for i := 0; i < len(graphs); i++ {
		for j := i + 1; j < len(graphs); j++ {
			if graphs[i].Intersects(graphs[j]) {
				ug.SetEdge(ug.NewEdge(simple.Node(int64(i)), simple.Node(int64(j))))
			}
		}
	}

	components := topo.ConnectedComponents(ug)
	members := make([][]int, 0, len(components))
	for _, component := range components {
		idx := make([]int, 0, len(component))
		for _, n := range component {
			idx = append(idx, int(n.ID()))
		}
		sort.Ints(idx)
		members = append(members, idx)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i][0] < members[j][0]
	})

	final := make([]*TraceGraph, 0, len(members))
	for _, idx := range members {
		root := graphs[idx[0]]
		for _, k := range idx[1:] {
			root.Merge(graphs[k])
		}
		final = append(final, root)
	}
	return final
}
