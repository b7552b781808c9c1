package types

import "fmt"

// Registry interns Types for the lifetime of one Engine ('types in
// spec §3.6). Every constructor is idempotent by structural key:
// constructing the same type twice returns the same *Type pointer.
//
// Grounded on the teacher's builder.go (AILANG's TypeEnv/Scheme
// builder) for the "construct-once, cache by key" shape, generalized
// here to full structural interning rather than AILANG's row-based
// scheme normalization.
type Registry struct {
	interned map[string]*Type
}

// NewRegistry creates an empty type registry with the five primitive
// types pre-interned.
func NewRegistry() *Registry {
	r := &Registry{interned: make(map[string]*Type)}
	r.intern(&Type{Kind: KInt})
	r.intern(&Type{Kind: KFloat})
	r.intern(&Type{Kind: KBool})
	r.intern(&Type{Kind: KStr})
	r.intern(&Type{Kind: KBytes})
	return r
}

func (r *Registry) intern(t *Type) *Type {
	key := structuralKey(t.Kind, t)
	if existing, ok := r.interned[key]; ok {
		return existing
	}
	t.key = key
	r.interned[key] = t
	return t
}

func (r *Registry) byKind(k Kind) *Type {
	return r.interned[k.String()]
}

// Int, Float, Bool, Str, Bytes return the interned primitive types.
// They cannot fail (spec §4.1.2).
func (r *Registry) Int() *Type   { return r.byKind(KInt) }
func (r *Registry) Float() *Type { return r.byKind(KFloat) }
func (r *Registry) Bool() *Type  { return r.byKind(KBool) }
func (r *Registry) Str() *Type   { return r.byKind(KStr) }
func (r *Registry) Bytes() *Type { return r.byKind(KBytes) }

// Array interns Array(elem).
func (r *Registry) Array(elem *Type) *Type {
	return r.intern(&Type{Kind: KArray, Elem: elem})
}

// Option interns Option(inner).
func (r *Registry) Option(inner *Type) *Type {
	return r.intern(&Type{Kind: KOption, Elem: inner})
}

// Map interns Map(key, value). Key must satisfy Hashable; callers
// (the analyzer, or FFI constructors) are responsible for checking
// that before calling Map, since the registry itself has no value-level
// knowledge of where the type came from.
func (r *Registry) Map(key, value *Type) *Type {
	return r.intern(&Type{Kind: KMap, Key: key, Value: value})
}

// Record interns Record(fields), sorting fields by name first. It
// fails if two fields share a name.
func (r *Registry) Record(fields []Field) (*Type, error) {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	SortFields(sorted)
	if name, dup := DuplicateFieldName(sorted); dup {
		return nil, fmt.Errorf("duplicate record field %q", name)
	}
	return r.intern(&Type{Kind: KRecord, Fields: sorted}), nil
}

// Function interns Function{params, ret}.
func (r *Registry) Function(params []*Type, ret *Type) *Type {
	return r.intern(&Type{Kind: KFunction, Params: params, Ret: ret})
}

// Symbol interns a nominal Symbol(name) tag. Reserved for future use
// per spec §3.1; exposed so the analyzer and FFI layer have a stable
// handle to build against.
func (r *Registry) Symbol(name string) *Type {
	return r.intern(&Type{Kind: KSymbol, Name: name})
}

// TypeVar interns a de Bruijn-style inference variable. Internal use
// by internal/analyzer only: a TypeVar must never survive into a
// runtime Value (spec §3.1).
func (r *Registry) TypeVar(index uint16) *Type {
	return r.intern(&Type{Kind: KTypeVar, Var: index})
}
