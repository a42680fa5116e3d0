package report

import (
	"fmt"
	"io"
)

// WriteMarkdown renders the report as markdown with one collapsible
// diagram block per cluster, the shape used for scanner review comments.
func WriteMarkdown(w io.Writer, r *Report) error {
	if _, err := fmt.Fprintf(w, "# Taint Trace Report\n\n"); err != nil {
		return err
	}

	for _, rule := range r.Rules {
		if _, err := fmt.Fprintf(w, "## %s\n\n%d finding(s) in %d cluster(s)\n\n",
			rule.RuleID, rule.Findings, len(rule.Clusters)); err != nil {
			return err
		}
		for _, cluster := range rule.Clusters {
			if err := writeCluster(w, cluster); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCluster(w io.Writer, c Cluster) error {
	if _, err := fmt.Fprintf(w, "<sub>\n<details>\n<summary>View Taint Trace (%d finding(s))</summary>\n\n", c.Findings); err != nil {
		return err
	}
	if _, err := io.WriteString(w, c.Diagram); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n</details>\n</sub>\n\n")
	return err
}
