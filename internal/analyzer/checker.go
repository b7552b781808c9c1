// Package analyzer implements melbi's untyped-AST-to-typed-AST
// compiler stage (spec §4.3): Hindley-Milner-style unification with
// ad-hoc type-class constraints, let-polymorphism over `where`-bound
// lambdas, numeric defaulting, and lambda capture/instantiation
// discovery feeding internal/compiler's monomorphization.
//
// Grounded on the teacher's internal/types package: a Substitution map
// plus an occurs-checked Unify function (unification.go), a dedicated
// defaulting pass run after solving (typechecker_defaulting.go), and
// diagnostics accumulated rather than returned on first error
// (typechecker.go's error-collection style) — generalized here from
// AILANG's row-polymorphic record unification to melbi's simpler
// closed-record, type-class-constrained system.
package analyzer

import (
	"fmt"

	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/typedast"
	"github.com/melbi-lang/melbi/internal/types"
)

// substitution maps a TypeVar index to its current binding. Entries
// are added only by unify's variable case and never removed; applying
// it is always safe even mid-inference since TypeVar Types are
// otherwise inert (spec §3.1: "a TypeVar must never survive into a
// runtime Value").
type substitution map[uint16]*types.Type

// constraint is one pending type-class obligation, checked once
// inference finishes and every variable is as resolved as it will get
// (spec §4.3.2 "Constraint solving").
type constraint struct {
	class types.Class
	typ   *types.Type
	span  errors.Span
	what  string // human-readable operator/context for the diagnostic
}

// containableConstraint is Containable's two-argument shape, kept
// separate from constraint since Containable is a relation, not a
// single-type class (spec §4.1.5, confirmed against
// original_source/core/src/types/type_class.rs).
type containableConstraint struct {
	needle, haystack *types.Type
	span             errors.Span
}

const maxDiagnostics = 100

// Checker carries all mutable state for one compile: the type
// registry, the growing substitution, pending constraints, scope
// stack, and accumulated diagnostics.
type Checker struct {
	Reg   *types.Registry
	arena *ast.Arena

	sub         substitution
	constraints []constraint
	containable []containableConstraint
	nextVar     uint16
	allVars     []uint16
	varSpans    map[uint16]errors.Span

	scopes       []map[string]*types.Type
	lambdaScopes []map[string]*lambdaInfo

	// selfRef holds the name of the where-binding whose own lambda body
	// is currently being checked, if any. Recursive lambdas are
	// unsupported (spec §9, resolved in SPEC_FULL.md): a name appearing
	// in its own initializer is a compile error, not an unbound name.
	selfRef []string

	instTable   typedastInstantiations
	lambdaNodes map[*ast.Lambda]*typedast.Lambda

	diags []*errors.Diagnostic
}

// typedastInstantiations maps each lambda node to its lambdaInfo,
// which is defined in instantiate.go alongside the logic that populates it.
type typedastInstantiations = map[*ast.Lambda]*lambdaInfo

// New creates a Checker over reg, seeded with the given globals
// (spec §4.3.1: "a sorted globals list [(name, type)]").
func New(reg *types.Registry, arena *ast.Arena, globals map[string]*types.Type) *Checker {
	c := &Checker{
		Reg:       reg,
		arena:     arena,
		sub:       make(substitution),
		varSpans:    make(map[uint16]errors.Span),
		instTable:   make(typedastInstantiations),
		lambdaNodes: make(map[*ast.Lambda]*typedast.Lambda),
	}
	root := make(map[string]*types.Type, len(globals))
	for name, t := range globals {
		root[name] = t
	}
	c.scopes = []map[string]*types.Type{root}
	c.lambdaScopes = []map[string]*lambdaInfo{{}}
	return c
}

func (c *Checker) fresh() *types.Type {
	return c.freshAt(errors.Span{})
}

func (c *Checker) freshAt(span errors.Span) *types.Type {
	v := c.Reg.TypeVar(c.nextVar)
	c.allVars = append(c.allVars, c.nextVar)
	c.varSpans[c.nextVar] = span
	c.nextVar++
	return v
}

func (c *Checker) pushScope() {
	c.scopes = append(c.scopes, map[string]*types.Type{})
	c.lambdaScopes = append(c.lambdaScopes, map[string]*lambdaInfo{})
}

func (c *Checker) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.lambdaScopes = c.lambdaScopes[:len(c.lambdaScopes)-1]
}

func (c *Checker) define(name string, t *types.Type) {
	c.scopes[len(c.scopes)-1][name] = t
}

func (c *Checker) lookup(name string) (*types.Type, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if t, ok := c.scopes[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

// defineLambda registers name as a let-polymorphic lambda binding in
// the current scope (spec §4.3.3): call sites resolved by name go
// through per-call-site instantiation instead of plain unification.
func (c *Checker) defineLambda(name string, li *lambdaInfo) {
	c.lambdaScopes[len(c.lambdaScopes)-1][name] = li
}

func (c *Checker) lookupLambda(name string) (*lambdaInfo, bool) {
	for i := len(c.lambdaScopes) - 1; i >= 0; i-- {
		if li, ok := c.lambdaScopes[i][name]; ok {
			return li, true
		}
	}
	return nil, false
}

func (c *Checker) pushSelfRef(name string) { c.selfRef = append(c.selfRef, name) }
func (c *Checker) popSelfRef()             { c.selfRef = c.selfRef[:len(c.selfRef)-1] }

func (c *Checker) isSelfRef(name string) bool {
	for _, n := range c.selfRef {
		if n == name {
			return true
		}
	}
	return false
}

// apply recursively dereferences t through the current substitution,
// rebuilding compound types with their (now-resolved-as-far-as-
// possible) children so the result never hides an already-bound var
// one level down.
func (c *Checker) apply(t *types.Type) *types.Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case types.KTypeVar:
		if bound, ok := c.sub[t.Var]; ok {
			return c.apply(bound)
		}
		return t
	case types.KArray:
		return c.Reg.Array(c.apply(t.Elem))
	case types.KOption:
		return c.Reg.Option(c.apply(t.Elem))
	case types.KMap:
		return c.Reg.Map(c.apply(t.Key), c.apply(t.Value))
	case types.KRecord:
		fields := make([]types.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = types.Field{Name: f.Name, Type: c.apply(f.Type)}
		}
		rec, _ := c.Reg.Record(fields) // already validated distinct at construction
		return rec
	case types.KFunction:
		params := make([]*types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.apply(p)
		}
		return c.Reg.Function(params, c.apply(t.Ret))
	default:
		return t
	}
}

// occurs reports whether var v appears free in t (after substitution),
// preventing infinite types via self-referential unification.
func (c *Checker) occurs(v uint16, t *types.Type) bool {
	t = c.apply(t)
	switch t.Kind {
	case types.KTypeVar:
		return t.Var == v
	case types.KArray, types.KOption:
		return c.occurs(v, t.Elem)
	case types.KMap:
		return c.occurs(v, t.Key) || c.occurs(v, t.Value)
	case types.KRecord:
		for _, f := range t.Fields {
			if c.occurs(v, f.Type) {
				return true
			}
		}
		return false
	case types.KFunction:
		for _, p := range t.Params {
			if c.occurs(v, p) {
				return true
			}
		}
		return c.occurs(v, t.Ret)
	default:
		return false
	}
}

// unify attempts to make a and b equal, extending the substitution in
// place. On mismatch it records a diagnostic at span and returns
// false; callers that can't usefully continue should bail, but most
// inference continues with the best type available so errors
// accumulate (spec §4.3.4).
func (c *Checker) unify(a, b *types.Type, span errors.Span) bool {
	a, b = c.apply(a), c.apply(b)
	if a.Equals(b) {
		return true
	}
	if a.Kind == types.KTypeVar {
		return c.bind(a.Var, b, span)
	}
	if b.Kind == types.KTypeVar {
		return c.bind(b.Var, a, span)
	}
	if a.Kind != b.Kind {
		c.errorf(errors.TypUnifyMismatch, span, "type mismatch: expected %s, found %s", a, b)
		return false
	}
	switch a.Kind {
	case types.KArray, types.KOption:
		return c.unify(a.Elem, b.Elem, span)
	case types.KMap:
		ok1 := c.unify(a.Key, b.Key, span)
		ok2 := c.unify(a.Value, b.Value, span)
		return ok1 && ok2
	case types.KRecord:
		if len(a.Fields) != len(b.Fields) {
			c.errorf(errors.TypUnifyMismatch, span, "record shape mismatch: %s vs %s", a, b)
			return false
		}
		ok := true
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name {
				c.errorf(errors.TypUnifyMismatch, span, "record field mismatch: %s vs %s", a, b)
				return false
			}
			if !c.unify(a.Fields[i].Type, b.Fields[i].Type, span) {
				ok = false
			}
		}
		return ok
	case types.KFunction:
		if len(a.Params) != len(b.Params) {
			c.errorf(errors.TypArityMismatch, span, "function arity mismatch: %s vs %s", a, b)
			return false
		}
		ok := true
		for i := range a.Params {
			if !c.unify(a.Params[i], b.Params[i], span) {
				ok = false
			}
		}
		return c.unify(a.Ret, b.Ret, span) && ok
	default:
		c.errorf(errors.TypUnifyMismatch, span, "type mismatch: expected %s, found %s", a, b)
		return false
	}
}

func (c *Checker) bind(v uint16, t *types.Type, span errors.Span) bool {
	if t.Kind == types.KTypeVar && t.Var == v {
		return true
	}
	if c.occurs(v, t) {
		c.errorf(errors.TypOccursCheck, span, "infinite type: %s occurs in %s", c.Reg.TypeVar(v), t)
		return false
	}
	c.sub[v] = t
	return true
}

func (c *Checker) addConstraint(class types.Class, t *types.Type, span errors.Span, what string) {
	c.constraints = append(c.constraints, constraint{class: class, typ: t, span: span, what: what})
}

func (c *Checker) addContainable(needle, haystack *types.Type, span errors.Span) {
	c.containable = append(c.containable, containableConstraint{needle: needle, haystack: haystack, span: span})
}

func (c *Checker) errorf(code string, span errors.Span, format string, args ...any) {
	if len(c.diags) >= maxDiagnostics {
		return
	}
	c.diags = append(c.diags, errors.New(code, fmt.Sprintf(format, args...), span))
}

func (c *Checker) spanOf(n ast.Node) errors.Span {
	s := c.arena.Span(n)
	return errors.Span{StartLine: s.Start.Line, StartCol: s.Start.Column, EndLine: s.End.Line, EndCol: s.End.Column}
}
