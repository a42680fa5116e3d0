package trace

import "testing"

func TestComponentsOrderInsensitive(t *testing.T) {
	orders := []struct {
		name string
		perm func(a, b, c *TraceGraph) []*TraceGraph
	}{
		{"in order", func(a, b, c *TraceGraph) []*TraceGraph { return []*TraceGraph{a, b, c} }},
		{"bridge last", func(a, b, c *TraceGraph) []*TraceGraph { return []*TraceGraph{a, c, b} }},
		{"reversed", func(a, b, c *TraceGraph) []*TraceGraph { return []*TraceGraph{c, b, a} }},
	}

	for _, tc := range orders {
		t.Run(tc.name, func(t *testing.T) {
			a, b, c := transitiveChain(t)
			clusters := ClusterComponents(tc.perm(a, b, c))
			if len(clusters) != 1 {
				t.Fatalf("expected 1 component, got %d", len(clusters))
			}
			if clusters[0].Findings != 3 {
				t.Errorf("expected all 3 findings in the component, got %d", clusters[0].Findings)
			}
		})
	}
}

func TestComponentsDisjointGraphs(t *testing.T) {
	reg := NewRegistry()
	g1 := mustGraph(t, "rule", 0,
		[]*Node{internAt(t, reg, 0, 4)}, nil, []*Node{internAt(t, reg, 30, 34)})
	g2 := mustGraph(t, "rule", 1,
		[]*Node{internAt(t, reg, 10, 14)}, nil, []*Node{internAt(t, reg, 40, 44)})

	clusters := ClusterComponents([]*TraceGraph{g1, g2})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 components, got %d", len(clusters))
	}
	if clusters[0] != g1 || clusters[1] != g2 {
		t.Error("components should come out in first-seen order")
	}
}

func TestComponentsEmptyInput(t *testing.T) {
	if clusters := ClusterComponents(nil); clusters != nil {
		t.Errorf("expected nil for empty input, got %v", clusters)
	}
}

func TestClusterDispatch(t *testing.T) {
	a, b, c := transitiveChain(t)
	if got := Cluster(ClusterModeComponents, []*TraceGraph{a, c, b}); len(got) != 1 {
		t.Errorf("components mode: expected 1 cluster, got %d", len(got))
	}

	a, b, c = transitiveChain(t)
	if got := Cluster(ClusterModeGreedy, []*TraceGraph{a, c, b}); len(got) != 2 {
		t.Errorf("greedy mode: expected 2 clusters, got %d", len(got))
	}
}
