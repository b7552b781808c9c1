package compiler

import (
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

// Code is one compiled function body: melbi's top-level expression
// body, or one monomorphic instantiation of a lambda (spec §4.3.3,
// §4.4.1). internal/vm executes a *Code directly; internal/treeeval
// does not consume Code at all and walks internal/typedast on its own,
// with its own closure-instantiation selection, so the two backends
// stay independent implementations and a cross-validation mismatch
// (spec §8, Engine "both" mode) can only mean a genuine semantic bug
// rather than two paths sharing the same lookup table.
type Code struct {
	Instrs     []Instr
	Constants  []value.Value
	Types      []*types.Type // operand pool for OpPushType (array/record/map/option construction, OpCast)
	Signatures []string      // operand pool for OpCallSig (dispatch key at a polymorphic call site)
	Formats    []FormatTemplate
	NumLocals  int
	Lambdas    []*LambdaTemplate
}

// FormatTemplate is one f-string's literal segments (spec §4.1.3); the
// interpolated expressions themselves compile to ordinary instructions
// pushed just before OpFormat.
type FormatTemplate struct {
	Strs []string
}

// LambdaTemplate is a compiled lambda: its free-variable capture list
// (in the order internal/analyzer's capture discovery produced them,
// spec §4.3.3) plus one compiled Code per concrete parameter-type
// instantiation, keyed by that instantiation's function-type String()
// so value.Closure.Dispatch can be built once and shared by every
// closure value created from this template (closures differ only in
// their captured values, never in their code).
// Dispatch is declared map[string]any (not map[string]*Code) so the
// exact same map can be handed straight to value.Closure.Dispatch,
// which is typed `any` to avoid internal/value importing
// internal/compiler (spec's layering: value <- compiler, never back).
type LambdaTemplate struct {
	Captures   []string
	StaticType *types.Type // type of the closure value itself (first instantiation's function type)
	Dispatch   map[string]any
}
