package trace

import "fmt"

// ClusterMode selects how graphs of one rule are grouped.
type ClusterMode string

const (
	// ClusterModeGreedy is a single left-to-right sweep over the graphs in
	// original order. It does not recheck transitive connections that are
	// discovered out of order, so the result can depend on input order.
	ClusterModeGreedy ClusterMode = "greedy"

	// ClusterModeComponents computes exact connected components under the
	// shares-a-node relation.
	ClusterModeComponents ClusterMode = "components"
)

// ParseClusterMode validates a configured clustering mode.
func ParseClusterMode(s string) (ClusterMode, error) {
	switch ClusterMode(s) {
	case ClusterModeGreedy, ClusterModeComponents:
		return ClusterMode(s), nil
	}
	return "", fmt.Errorf("unknown clustering mode %q (want %q or %q)", s, ClusterModeGreedy, ClusterModeComponents)
}

// Cluster groups graphs using the selected mode. Graphs must all belong to
// the same rule; distinct rules are never clustered together.
func Cluster(mode ClusterMode, graphs []*TraceGraph) []*TraceGraph {
	if mode == ClusterModeComponents {
		return ClusterComponents(graphs)
	}
	return ClusterGreedy(graphs)
}

// ClusterGreedy merges intersecting graphs in a single pass. Each surviving
// graph absorbs every not-yet-absorbed graph it intersects, including ones
// it only reaches through nodes absorbed earlier in the same inner sweep.
// A connection that would only be found by revisiting an earlier survivor
// is left split; clusters come out in first-seen order.
func ClusterGreedy(graphs []*TraceGraph) []*TraceGraph {
	absorbed := make(map[*TraceGraph]bool)
	var final []*TraceGraph
	for _, g := range graphs {
		if absorbed[g] {
			continue
		}
		for _, h := range graphs {
			if h == g || absorbed[h] {
				continue
			}
			if g.Intersects(h) {
				g.Merge(h)
				absorbed[h] = true
			}
		}
		final = append(final, g)
	}
	return final
}
