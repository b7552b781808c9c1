package ast

// Arena owns every node produced by one parse and the span side-table
// keyed by node pointer identity (spec §4.2.6). Nodes never carry their
// own Span field; looking one up always goes through the Arena that
// parsed it, matching the teacher's separation of tree shape from
// position bookkeeping in internal/ast/ast.go's Pos-on-every-node
// style, generalized here into an explicit side-table per spec §3.4.
type Arena struct {
	spans map[Node]Span
}

// NewArena creates an empty node arena.
func NewArena() *Arena {
	return &Arena{spans: make(map[Node]Span)}
}

// SetSpan records the span for n. Called once, by the parser, at the
// point a node is fully constructed.
func (a *Arena) SetSpan(n Node, s Span) {
	a.spans[n] = s
}

// Span looks up n's span. Returns the zero Span if n was never
// registered (a programmer error in the parser, not a user-facing
// condition).
func (a *Arena) Span(n Node) Span {
	return a.spans[n]
}
