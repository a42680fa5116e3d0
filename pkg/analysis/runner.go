// Package analysis orchestrates one run: load findings, build per-finding
// trace graphs, cluster them per rule, and render diagrams.
package analysis

import (
	"fmt"
	"sync"
	"time"

	"taintlens/pkg/logging"
	"taintlens/pkg/mermaid"
	"taintlens/pkg/report"
	"taintlens/pkg/semgrep"
	"taintlens/pkg/trace"
	"taintlens/pkg/web"
)

// Runner executes analysis runs. The finding and source-text collaborators
// are injected so the pipeline is testable without real files.
type Runner struct {
	findings semgrep.FindingSource
	sources  semgrep.SourceText
	mode     trace.ClusterMode
	server   *web.Server // optional; nil outside web mode
	mu       sync.Mutex  // prevents concurrent runs in watch mode
}

// Options configures a single run.
type Options struct {
	Reason string // e.g. "initial analysis", "findings changed"
}

// NewRunner creates a runner over the given collaborators.
func NewRunner(findings semgrep.FindingSource, sources semgrep.SourceText, mode trace.ClusterMode) *Runner {
	return &Runner{
		findings: findings,
		sources:  sources,
		mode:     mode,
	}
}

// AttachServer makes the runner publish progress and results to a report
// server.
func (r *Runner) AttachServer(s *web.Server) {
	r.server = s
}

func (r *Runner) publishStatus(state, message string, step, total int) {
	if r.server == nil {
		return
	}
	if err := r.server.PublishStatus(state, message, step, total); err != nil {
		logging.Debug("publishing status", "error", err)
	}
}

// Run executes one full analysis pass.
func (r *Runner) Run(opts Options) (*report.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	logging.Info("starting analysis", "reason", opts.Reason)

	r.publishStatus("loading", "Loading findings...", 1, 3)
	scan, err := r.findings.LoadFindings()
	if err != nil {
		r.publishStatus("error", fmt.Sprintf("Loading findings failed: %v", err), 1, 3)
		return nil, fmt.Errorf("loading findings: %w", err)
	}

	rep := &report.Report{
		GeneratedAt: time.Now(),
		Findings:    len(scan.Results),
	}

	r.publishStatus("clustering", "Clustering taint traces...", 2, 3)
	for _, rule := range scan.ByRule() {
		graphs, skipped, failed := r.buildRuleGraphs(rule)
		rep.Skipped += skipped
		rep.Failed += failed
		if len(graphs) == 0 {
			continue
		}

		clusters := trace.Cluster(r.mode, graphs)
		logging.Info("clustered rule", "rule", rule.RuleID, "graphs", len(graphs), "clusters", len(clusters))

		rr := report.RuleReport{
			RuleID:   rule.RuleID,
			Findings: len(graphs),
		}
		for _, cluster := range clusters {
			rr.Clusters = append(rr.Clusters, report.Cluster{
				Findings:      cluster.Findings,
				Sources:       len(trace.UniqueNodes(cluster.Sources)),
				Intermediates: len(trace.UniqueNodes(cluster.Intermediates)),
				Sinks:         len(trace.UniqueNodes(cluster.Sinks)),
				Diagram:       mermaid.Render(cluster),
			})
		}
		rep.Rules = append(rep.Rules, rr)
	}

	r.publishStatus("rendering", "Publishing report...", 3, 3)
	if r.server != nil {
		r.server.SetReport(rep)
		if err := r.server.PublishReport("complete", true); err != nil {
			logging.Debug("publishing report", "error", err)
		}
	}
	r.publishStatus("ready", "Analysis complete", 3, 3)

	logging.Info("analysis complete",
		"findings", rep.Findings,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"rules", len(rep.Rules),
		"clusters", rep.ClusterCount(),
		"durationMs", time.Since(start).Milliseconds(),
	)
	return rep, nil
}

// buildRuleGraphs builds one trace graph per finding of a rule. Each
// finding gets its own node registry: graphs compare and merge by node
// key, never by shared instances, so an unmerged graph's chain stays
// untouched by other findings routing through the same span. Findings
// without a dataflow trace are skipped; findings whose chain cannot be
// built are reported and dropped without affecting the rest of the rule.
func (r *Runner) buildRuleGraphs(rule semgrep.RuleFindings) (graphs []*trace.TraceGraph, skipped, failed int) {
	for i, finding := range rule.Findings {
		if !finding.HasDataflowTrace() {
			logging.Debug("skipping finding without dataflow trace", "rule", rule.RuleID, "finding", i)
			skipped++
			continue
		}

		text, err := r.sources.Load(finding.Path)
		if err != nil {
			logging.Warn("skipping finding, source unavailable", "rule", rule.RuleID, "finding", i, "error", err)
			failed++
			continue
		}

		registry := trace.NewRegistry()
		flow := finding.Extra.DataflowTrace
		sources := trace.ConvertSpans(registry, flow.TaintSource, text)
		intermediates := trace.ConvertSpans(registry, flow.IntermediateVars, text)
		sinks := trace.ConvertSpans(registry, []trace.Span{finding.SinkSpan()}, text)

		g, err := trace.NewTraceGraph(rule.RuleID, i, sources, intermediates, sinks)
		if err != nil {
			logging.Error("skipping finding with broken taint chain", "rule", rule.RuleID, "finding", i, "error", err)
			failed++
			continue
		}
		graphs = append(graphs, g)
	}
	return graphs, skipped, failed
}
