// Package typedast is the output of internal/analyzer: every untyped
// AST node annotated with its resolved Type, plus the lambda
// instantiation table used to drive monomorphization in
// internal/compiler (spec §3.4, §4.3.3).
//
// Mirrors internal/ast's per-kind-struct shape (the teacher's own
// typed-IR style in internal/eval): one small struct per node kind,
// a common Node interface, type switches at every consumer instead of
// a single tagged union.
package typedast

import (
	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/types"
)

// Node is any typed expression node; every node knows its resolved
// Type. Only Lambda keeps a pointer to the untyped node it was checked
// from (Source).
type Node interface {
	typedNode()
	ResolvedType() *types.Type
}

// Base carries the one field every typed node has: its resolved Type.
// Exported so analyzer (a different package) can build node literals
// directly, e.g. `&IntLit{Base: Base{Type: intType}, Value: 1}`.
type Base struct{ Type *types.Type }

func (b Base) ResolvedType() *types.Type { return b.Type }
func (Base) typedNode()                  {}

type IntLit struct {
	Base
	Value int64
}

type FloatLit struct {
	Base
	Value float64
}

type BoolLit struct {
	Base
	Value bool
}

type StrLit struct {
	Base
	Value string
}

type BytesLit struct {
	Base
	Value []byte
}

type NoneLit struct{ Base }

type SomeExpr struct {
	Base
	Value Node
}

// FormatStr is a resolved f-string: Strs[0] Exprs[0] Strs[1] ... same
// invariant as ast.FormatStr.
type FormatStr struct {
	Base
	Strs  []string
	Exprs []Node
}

// Ident is an identifier used as an expression, still resolved only by
// name: internal/compiler's scope stack decides at compile time
// whether a given name is a Local, a Capture, or a Global (spec
// §4.4.1) — the analyzer's job stops at "this name, this type".
type Ident struct {
	Base
	Name string
}

type ArrayLit struct {
	Base
	Elements []Node
}

// RecordField is one resolved `name = value` record-literal entry.
type RecordField struct {
	Name  string
	Value Node
}

type RecordLit struct {
	Base
	Fields []RecordField
}

// MapEntry is one resolved `key: value` map-literal entry.
type MapEntry struct{ Key, Value Node }

type MapLit struct {
	Base
	Entries []MapEntry
}

type FieldAccess struct {
	Base
	Target   Node
	Field    string
	FieldIdx int // pre-resolved record field index (spec §4.4.2)
}

type IndexAccess struct {
	Base
	Target, Index Node
}

type Call struct {
	Base
	Callee Node
	Args   []Node
}

// Param is one resolved lambda parameter.
type Param struct {
	Name string
	Type *types.Type
}

// Instantiation is one concrete parameter-type tuple a polymorphic
// lambda was observed under, plus the monomorphic body checked
// against it (spec §4.3.3).
type Instantiation struct {
	ParamTypes []*types.Type
	Body       Node
}

// Lambda is a function literal. Captures lists the free identifiers of
// Body, minus Params, in discovery order. Instantiations is the set of
// concrete substitutions this lambda was used at; a single entry means
// monomorphic, more than one means polymorphic and compiled to N
// specialized bodies plus a dispatch entry (spec §4.3.3, §9).
type Lambda struct {
	Base
	Source         *ast.Lambda // pointer identity keys the instantiation table
	Params         []Param
	Captures       []string
	Instantiations []Instantiation
}

type Where struct {
	Base
	Bindings []Binding
	Body     Node
}

type Binding struct {
	Name  string
	Value Node
}

type If struct {
	Base
	Cond, Then, Else Node
}

// Pattern mirrors ast.Pattern; VarPattern bindings are kept by name.
type Pattern interface{ patternNode() }

type WildcardPattern struct{}
type VarPattern struct{ Name string }
type LiteralPattern struct{ Value Node }
type NonePattern struct{}
type SomePattern struct{ Inner Pattern }

func (WildcardPattern) patternNode() {}
func (VarPattern) patternNode()      {}
func (LiteralPattern) patternNode()  {}
func (NonePattern) patternNode()     {}
func (SomePattern) patternNode()     {}

type MatchArm struct {
	Pattern Pattern
	Body    Node
}

type Match struct {
	Base
	Scrutinee Node
	Arms      []MatchArm
}

type Otherwise struct {
	Base
	Primary, Fallback Node
}

type Cast struct {
	Base
	Value  Node
	Target *types.Type
}

type Unary struct {
	Base
	Op      ast.UnaryOp
	Operand Node
}

type Binary struct {
	Base
	Op          ast.BinaryOp
	Left, Right Node
}

// InstantiationTable maps each lambda's untyped AST identity to its
// typed Lambda record, so the compiler can ask how many code bodies a
// given lambda needs (spec §3.4).
type InstantiationTable map[*ast.Lambda]*Lambda

// Expr is one fully type-checked expression: its typed root plus the
// instantiation table describing every lambda reachable from it.
type Expr struct {
	Root          Node
	Instantiation InstantiationTable
}
