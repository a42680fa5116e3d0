package semgrep

import (
	"encoding/json"
	"fmt"
	"io"

	"taintlens/pkg/trace"
)

// Report is the top-level structure of semgrep's JSON output. Only the
// fields this tool consumes are modeled; unknown fields are ignored by the
// decoder.
type Report struct {
	Results []Finding `json:"results"`
}

// Finding is one reported issue. Its own start/end span doubles as the
// sink of the taint trace.
type Finding struct {
	CheckID string         `json:"check_id"`
	Path    string         `json:"path"`
	Start   trace.Position `json:"start"`
	End     trace.Position `json:"end"`
	Extra   Extra          `json:"extra"`
}

// Extra carries the scanner's per-finding metadata.
type Extra struct {
	Message       string         `json:"message,omitempty"`
	Severity      string         `json:"severity,omitempty"`
	DataflowTrace *DataflowTrace `json:"dataflow_trace,omitempty"`
}

// DataflowTrace is the source/intermediate span data attached to a taint
// finding.
type DataflowTrace struct {
	TaintSource      []trace.Span `json:"taint_source"`
	IntermediateVars []trace.Span `json:"intermediate_vars"`
}

// HasDataflowTrace reports whether this finding carries taint trace data.
// Findings without one are not processed.
func (f *Finding) HasDataflowTrace() bool {
	return f.Extra.DataflowTrace != nil
}

// SinkSpan returns the finding's own location as the sink span of its
// trace.
func (f *Finding) SinkSpan() trace.Span {
	return trace.Span{Start: f.Start, End: f.End}
}

// Decode parses a semgrep JSON report.
func Decode(r io.Reader) (*Report, error) {
	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding semgrep report: %w", err)
	}
	return &report, nil
}

// RuleFindings groups one rule's findings, keeping their report order.
type RuleFindings struct {
	RuleID   string
	Findings []Finding
}

// ByRule groups findings by check id in first-seen order. Findings without
// a dataflow trace are included; the caller decides how to skip them.
func (r *Report) ByRule() []RuleFindings {
	index := make(map[string]int)
	var groups []RuleFindings
	for _, f := range r.Results {
		i, ok := index[f.CheckID]
		if !ok {
			i = len(groups)
			index[f.CheckID] = i
			groups = append(groups, RuleFindings{RuleID: f.CheckID})
		}
		groups[i].Findings = append(groups[i].Findings, f)
	}
	return groups
}
