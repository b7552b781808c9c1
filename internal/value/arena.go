// Package value implements melbi's raw/dynamic/typed value runtime
// (spec §3.2-§3.3, §4.1): a tagged-union Raw cell interpreted only in
// the presence of a *types.Type, a safe (Type, Raw) Dynamic value, and
// typed FFI helpers layered on top.
package value

// Arena is a value-arena: every Value produced during one
// CompiledExpression.run lives in (is reachable from) exactly one
// Arena, and the whole arena is released together when run returns
// (spec §3.6, 'values lifetime).
//
// Go is garbage collected, so Arena does not hand-manage memory the
// way the original Rust bumpalo::Bump arena does (see
// original_source/types/src/arena_builder.rs); it instead exists to
// make the *scoping discipline* explicit and checkable: native
// functions are only ever given the current run's Arena (never the
// engine's), and nothing stored in an Arena can reference a later,
// unrelated Arena. Treat Arena as a capability token, not a bump
// allocator — the GC manages the actual storage it scopes.
type Arena struct {
	generation uint64
}

// NewArena creates a fresh, empty value arena for one run.
func NewArena() *Arena {
	return &Arena{}
}

// Generation returns the arena's generation counter. NewArena leaves
// it at zero and nothing increments it, so it does not tell the arenas
// of successive runs apart.
func (a *Arena) Generation() uint64 { return a.generation }
