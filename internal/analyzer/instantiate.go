package analyzer

import (
	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/typedast"
	"github.com/melbi-lang/melbi/internal/types"
)

// lambdaInfo is the analyzer's working record for one lambda literal,
// built incrementally as inference discovers call sites and finalized
// into a typedast.Lambda once Check finishes (spec §4.3.3, §9
// "polymorphism without runtime dictionaries": every specialization a
// lambda is used at is recorded at analysis time, never generated at
// run time).
type lambdaInfo struct {
	source   *ast.Lambda
	captures []string
	paramAST []ast.Param

	// name is the where-binding this lambda is bound to, if any; empty
	// for an anonymous lambda literal. Used only to guard against the
	// lambda's body referencing its own binding (recursive lambdas are
	// unsupported, spec §9).
	name string

	// instantiations holds one entry per distinct concrete parameter
	// tuple this lambda's body was checked against. A where-bound
	// lambda called at N structurally distinct argument-type tuples
	// gets N entries; an anonymous lambda checked once (the common
	// case: applied immediately, or never called polymorphically)
	// gets exactly one.
	instantiations []typedast.Instantiation
}

// instantiationKey renders a parameter-type tuple into a string so
// repeated call sites with the same concrete types reuse one
// monomorphic body instead of recompiling it (spec §8 "constant
// deduplication" extended to instantiation dedup).
func instantiationKey(paramTypes []*types.Type) string {
	key := ""
	for i, t := range paramTypes {
		if i > 0 {
			key += ","
		}
		key += t.String()
	}
	return key
}

func (li *lambdaInfo) find(paramTypes []*types.Type) (int, bool) {
	key := instantiationKey(paramTypes)
	for i, inst := range li.instantiations {
		if instantiationKey(inst.ParamTypes) == key {
			return i, true
		}
	}
	return -1, false
}
