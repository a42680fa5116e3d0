package trace

import (
	"reflect"
	"testing"
)

func TestParseClusterMode(t *testing.T) {
	for _, s := range []string{"greedy", "components"} {
		if _, err := ParseClusterMode(s); err != nil {
			t.Errorf("ParseClusterMode(%q) = %v", s, err)
		}
	}
	if _, err := ParseClusterMode("transitive"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestGreedySharedSink(t *testing.T) {
	reg1 := NewRegistry()
	src1 := internAt(t, reg1, 0, 4)
	sink := internAt(t, reg1, 30, 34)
	g1 := mustGraph(t, "rule", 0, []*Node{src1}, nil, []*Node{sink})

	reg2 := NewRegistry()
	src2 := internAt(t, reg2, 10, 14)
	sink2 := internAt(t, reg2, 30, 34)
	g2 := mustGraph(t, "rule", 1, []*Node{src2}, nil, []*Node{sink2})

	clusters := ClusterGreedy([]*TraceGraph{g1, g2})
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}

	c := clusters[0]
	if c.Findings != 2 {
		t.Errorf("expected 2 findings in the cluster, got %d", c.Findings)
	}
	if len(c.Sources) != 2 {
		t.Errorf("expected both sources, got %d", len(c.Sources))
	}
	if len(c.Sinks) != 2 || c.Sinks[0].Key != sink.Key || c.Sinks[1].Key != sink.Key {
		t.Error("the shared sink should appear twice in the merged list")
	}
}

// transitiveChain builds three findings where A and B share a sink, B and C
// share a source, and A and C share nothing directly. Each finding interns
// into its own registry, matching how the runner builds graphs.
func transitiveChain(t *testing.T) (a, b, c *TraceGraph) {
	t.Helper()
	regA := NewRegistry()
	a = mustGraph(t, "rule", 0,
		[]*Node{internAt(t, regA, 0, 4)}, nil, []*Node{internAt(t, regA, 30, 34)})

	regB := NewRegistry()
	b = mustGraph(t, "rule", 1,
		[]*Node{internAt(t, regB, 10, 14)}, nil, []*Node{internAt(t, regB, 30, 34)})

	regC := NewRegistry()
	c = mustGraph(t, "rule", 2,
		[]*Node{internAt(t, regC, 10, 14)}, nil, []*Node{internAt(t, regC, 40, 44)})
	return a, b, c
}

func TestGreedyTransitiveInOrder(t *testing.T) {
	a, b, c := transitiveChain(t)

	clusters := ClusterGreedy([]*TraceGraph{a, b, c})
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Findings != 3 {
		t.Errorf("expected 3 findings, got %d", clusters[0].Findings)
	}
}

func TestGreedyOrderSensitivity(t *testing.T) {
	a, b, c := transitiveChain(t)

	// With C between A and B, the sweep for A merges only B; the sweep
	// for C then rediscovers the already-emitted first cluster through
	// the source it shares with B and absorbs it a second time. The
	// single pass neither splits nor repairs this; components mode does.
	clusters := ClusterGreedy([]*TraceGraph{a, c, b})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Findings != 2 {
		t.Errorf("first cluster should hold A and B, got %d findings", clusters[0].Findings)
	}
	if clusters[1].Findings != 3 {
		t.Errorf("second cluster should have re-absorbed the first, got %d findings", clusters[1].Findings)
	}
}

func TestUnmergedClustersKeepChainsIsolated(t *testing.T) {
	// The span at offset 0 is a source in the first finding and an
	// intermediate in the second. Role mismatch keeps the findings in
	// separate clusters, and neither chain may leak edges into the other.
	reg1 := NewRegistry()
	a1 := internAt(t, reg1, 0, 4)
	d1 := internAt(t, reg1, 30, 34)
	g1 := mustGraph(t, "rule", 0, []*Node{a1}, nil, []*Node{d1})

	reg2 := NewRegistry()
	b2 := internAt(t, reg2, 10, 14)
	a2 := internAt(t, reg2, 0, 4)
	c2 := internAt(t, reg2, 20, 24)
	g2 := mustGraph(t, "rule", 1, []*Node{b2}, []*Node{a2}, []*Node{c2})

	clusters := ClusterGreedy([]*TraceGraph{g1, g2})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}

	want1 := []Edge{{From: a1.Key, To: d1.Key}}
	if got := clusters[0].Edges(); !reflect.DeepEqual(got, want1) {
		t.Errorf("first chain = %v, want %v", got, want1)
	}

	want2 := []Edge{
		{From: a2.Key, To: c2.Key},
		{From: b2.Key, To: a2.Key},
	}
	if got := clusters[1].Edges(); !reflect.DeepEqual(got, want2) {
		t.Errorf("second chain = %v, want %v", got, want2)
	}
}

func TestGreedyDisjointGraphsStaySeparate(t *testing.T) {
	reg := NewRegistry()
	g1 := mustGraph(t, "rule", 0,
		[]*Node{internAt(t, reg, 0, 4)}, nil, []*Node{internAt(t, reg, 30, 34)})
	g2 := mustGraph(t, "rule", 1,
		[]*Node{internAt(t, reg, 10, 14)}, nil, []*Node{internAt(t, reg, 40, 44)})

	clusters := ClusterGreedy([]*TraceGraph{g1, g2})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0] != g1 || clusters[1] != g2 {
		t.Error("clusters should come out in first-seen order")
	}
}
