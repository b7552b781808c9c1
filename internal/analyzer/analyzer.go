package analyzer

import (
	"fmt"
	"sort"

	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/typedast"
	"github.com/melbi-lang/melbi/internal/types"
)

// Global is one entry of the sorted globals list an Engine is
// constructed with (spec §4.3.1, §6.1): a parameter or a pre-bound
// name visible to every compiled expression.
type Global struct {
	Name string
	Type *types.Type
}

// ValidateGlobals rejects a globals list containing a duplicate name
// (spec §6.1 Engine::new "rejects a duplicate global name").
func ValidateGlobals(globals []Global) error {
	names := make([]string, len(globals))
	for i, g := range globals {
		names[i] = g.Name
	}
	sort.Strings(names)
	for i := 1; i < len(names); i++ {
		if names[i] == names[i-1] {
			return fmt.Errorf("duplicate global %q", names[i])
		}
	}
	return nil
}

// Check type-checks root against globals (engine-wide names plus
// per-compile parameters, already merged by the caller) and produces
// melbi's typed IR plus the lambda instantiation table (spec §3.4,
// §4.3). Diagnostics accumulate up to a fixed budget rather than
// stopping at the first error (spec §4.3.4); the returned *typedast.Expr
// is still safe to inspect structurally even when diagnostics is
// non-empty, but internal/engine must refuse to compile or run it.
func Check(reg *types.Registry, arena *ast.Arena, root ast.Expr, globals []Global) (*typedast.Expr, []*errors.Diagnostic) {
	env := make(map[string]*types.Type, len(globals))
	for _, g := range globals {
		env[g.Name] = g.Type
	}
	c := New(reg, arena, env)

	typedRoot, _ := c.inferExpr(root)
	c.solve()
	table := c.buildDefaulting()
	c.finalizeTree(typedRoot, table)

	instTable := make(typedast.InstantiationTable, len(c.lambdaNodes))
	for src, node := range c.lambdaNodes {
		instTable[src] = node
	}

	return &typedast.Expr{Root: typedRoot, Instantiation: instTable}, c.diags
}
