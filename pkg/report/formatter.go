package report

import (
	"fmt"

	"github.com/fatih/color"
)

// PrintSummary prints a colorized per-rule clustering summary to the
// console.
func PrintSummary(r *Report) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Println("Taint Trace Clustering Report")
	bold.Println("=============================")
	fmt.Printf("Findings: %d processed", r.Findings)
	if r.Skipped > 0 {
		fmt.Printf(", %d without dataflow trace", r.Skipped)
	}
	if r.Failed > 0 {
		yellow.Printf(", %d with broken chains", r.Failed)
	}
	fmt.Println()
	fmt.Println()

	for _, rule := range r.Rules {
		cyan.Printf("%s\n", rule.RuleID)
		fmt.Printf("  %d finding(s) -> %d cluster(s)\n", rule.Findings, len(rule.Clusters))
		for i, cluster := range rule.Clusters {
			fmt.Printf("    cluster %d: %d finding(s), %d source(s), %d intermediate(s), %d sink(s)\n",
				i+1, cluster.Findings, cluster.Sources, cluster.Intermediates, cluster.Sinks)
		}
		fmt.Println()
	}

	if len(r.Rules) == 0 {
		green.Println("No taint findings to cluster.")
		return
	}
	fmt.Printf("Summary: %d rule(s), %d cluster(s)\n", len(r.Rules), r.ClusterCount())
}
