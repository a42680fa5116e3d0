package trace

import (
	"fmt"

	"taintlens/pkg/logging"
)

// Span is a raw scanner location range. Offsets are byte positions into
// the scanned file.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// degenerateContext is what the scanner emits for an empty reference. It
// carries no information and is filtered out, not treated as an error.
const degenerateContext = "."

// Validate checks that the span can address source text of the given
// length.
func (s Span) Validate(sourceLen int) error {
	switch {
	case s.Start.Offset < 0:
		return fmt.Errorf("span start offset %d is negative", s.Start.Offset)
	case s.End.Offset < s.Start.Offset:
		return fmt.Errorf("span end offset %d precedes start offset %d", s.End.Offset, s.Start.Offset)
	case s.End.Offset > sourceLen:
		return fmt.Errorf("span end offset %d is past end of source (%d bytes)", s.End.Offset, sourceLen)
	}
	return nil
}

// ConvertSpans materializes spans against source text, interning each node
// in the registry. Malformed spans are skipped with a warning rather than
// failing the whole finding; degenerate "." references are dropped
// silently. Input order is preserved.
func ConvertSpans(reg *Registry, spans []Span, source string) []*Node {
	var nodes []*Node
	for _, span := range spans {
		if err := span.Validate(len(source)); err != nil {
			logging.Warn("skipping malformed span", "line", span.Start.Line, "error", err)
			continue
		}
		if contextOf(span, source) == degenerateContext {
			continue
		}
		nodes = append(nodes, reg.Intern(span, source))
	}
	return nodes
}
