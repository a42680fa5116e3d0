// Package report holds the rendered result of an analysis run and the
// console/markdown writers that present it.
package report

import "time"

// Report is the outcome of one analysis run.
type Report struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Findings    int          `json:"findings"`
	Skipped     int          `json:"skipped"` // findings without a dataflow trace
	Failed      int          `json:"failed"`  // findings whose chain could not be built
	Rules       []RuleReport `json:"rules"`
}

// RuleReport is the clustering result for one check id.
type RuleReport struct {
	RuleID   string    `json:"rule_id"`
	Findings int       `json:"findings"`
	Clusters []Cluster `json:"clusters"`
}

// Cluster describes one merged trace graph and its rendered diagram.
// Node counts are unique-by-key, matching what the diagram displays.
type Cluster struct {
	Findings      int    `json:"findings"`
	Sources       int    `json:"sources"`
	Intermediates int    `json:"intermediates"`
	Sinks         int    `json:"sinks"`
	Diagram       string `json:"diagram"`
}

// ClusterCount sums clusters across all rules.
func (r *Report) ClusterCount() int {
	total := 0
	for _, rule := range r.Rules {
		total += len(rule.Clusters)
	}
	return total
}
