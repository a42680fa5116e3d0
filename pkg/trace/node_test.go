package trace

import (
	"reflect"
	"strings"
	"testing"
)

// testSource places recognizable tokens at fixed offsets:
// AAAA at 0, BBBB at 10, CCCC at 20, DDDD at 30, EEEE at 40.
const testSource = "AAAA......BBBB......CCCC......DDDD......EEEE"

func internAt(t *testing.T, reg *Registry, start, end int) *Node {
	t.Helper()
	return reg.Intern(Span{
		Start: Position{Line: 1, Col: start + 1, Offset: start},
		End:   Position{Line: 1, Col: end + 1, Offset: end},
	}, testSource)
}

func TestRegistryDeduplicatesByKey(t *testing.T) {
	reg := NewRegistry()

	a := internAt(t, reg, 0, 4)
	b := internAt(t, reg, 0, 4)
	if a != b {
		t.Error("interning the same span twice should return the same node")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 registered node, got %d", reg.Len())
	}

	c := internAt(t, reg, 10, 14)
	if c == a {
		t.Error("spans at different offsets must not share a node")
	}
	if reg.Len() != 2 {
		t.Errorf("expected 2 registered nodes, got %d", reg.Len())
	}

	got, ok := reg.Lookup(a.Key)
	if !ok || got != a {
		t.Error("lookup by key should return the interned node")
	}
}

func TestNodeKeyEquality(t *testing.T) {
	k1 := NodeKey{Offset: 5, Context: "query"}
	k2 := NodeKey{Offset: 5, Context: "query"}
	if k1 != k2 {
		t.Error("keys with equal offset and context must be equal")
	}
	if k1.ID() != k2.ID() {
		t.Error("equal keys must produce equal identifiers")
	}

	if (NodeKey{Offset: 6, Context: "query"}).ID() == k1.ID() {
		t.Error("different offset should produce a different identifier")
	}
	if (NodeKey{Offset: 5, Context: "other"}).ID() == k1.ID() {
		t.Error("different context should produce a different identifier")
	}

	if !strings.HasPrefix(k1.ID(), "n") {
		t.Errorf("identifier %q should start with a letter for diagram compatibility", k1.ID())
	}
}

func TestEscape(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`say "hi"`, "say #quot;hi#quot;"},
		{"it's", "it#apos;s"},
		{"a < b > c", "a &lt; b &gt; c"},
		{"line1\nline2", "line1<br>line2"},
		{"plain text", "plain text"},
	}
	for _, tc := range cases {
		if got := Escape(tc.in); got != tc.want {
			t.Errorf("Escape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEscapeIdempotentOnCharacterRules(t *testing.T) {
	once := Escape(`"a" < 'b' > c`)
	if twice := Escape(once); twice != once {
		t.Errorf("re-escaping changed the text: %q -> %q", once, twice)
	}
}

func TestConstructOutOfBoundsSpan(t *testing.T) {
	n := NewNode(Span{
		Start: Position{Offset: 100},
		End:   Position{Offset: 104},
	}, testSource)
	if n.Key.Context != "" {
		t.Errorf("out-of-bounds span should yield empty context, got %q", n.Key.Context)
	}
	if n.DisplayText != "" {
		t.Errorf("out-of-bounds span should yield empty display text, got %q", n.DisplayText)
	}
}

func TestEdgesDeterministic(t *testing.T) {
	reg := NewRegistry()
	a := internAt(t, reg, 0, 4)
	b := internAt(t, reg, 10, 14)
	c := internAt(t, reg, 20, 24)

	// Successors given out of offset order; Edges must sort them.
	a.SetSuccessors(c, b)

	want := []Edge{{From: a.Key, To: b.Key}, {From: a.Key, To: c.Key}}
	if got := a.Edges(); !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(a.Edges(), a.Edges()) {
		t.Error("repeated Edges calls should return identical results")
	}

	if edges := c.Edges(); len(edges) != 0 {
		t.Errorf("terminal node should have no edges, got %v", edges)
	}
}

func TestUnionSuccessorsGrows(t *testing.T) {
	reg := NewRegistry()
	a := internAt(t, reg, 0, 4)
	b := internAt(t, reg, 10, 14)
	c := internAt(t, reg, 20, 24)

	if a.Chained() {
		t.Error("fresh node should not be chained")
	}
	a.SetSuccessors(b)
	if !a.Chained() {
		t.Error("node should be chained after SetSuccessors")
	}
	a.UnionSuccessors(c)
	if len(a.Edges()) != 2 {
		t.Errorf("expected 2 successors after union, got %d", len(a.Edges()))
	}
	a.UnionSuccessors(b)
	if len(a.Edges()) != 2 {
		t.Errorf("union with an existing successor should not grow the set, got %d", len(a.Edges()))
	}
}
