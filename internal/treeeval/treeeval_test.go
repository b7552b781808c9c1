package treeeval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/analyzer"
	"github.com/melbi-lang/melbi/internal/parser"
	"github.com/melbi-lang/melbi/internal/treeeval"
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

func run(t *testing.T, src string, globals []analyzer.Global, globalVals map[string]value.Value) value.Value {
	t.Helper()
	arena, root, pdiags := parser.ParseExpr(src)
	require.Empty(t, pdiags, "parse diagnostics for %q", src)
	reg := types.NewRegistry()
	typed, diags := analyzer.Check(reg, arena, root, globals)
	require.Empty(t, diags, "type diagnostics for %q", src)

	ev := treeeval.New(reg, value.NewFfiContext(reg, value.NewArena()), treeeval.DefaultLimits)
	result, err := ev.Run(typed.Root, globalVals)
	require.NoError(t, err)
	return result
}

func TestArithmetic(t *testing.T) {
	v := run(t, "1 + 2 * 3", nil, nil)
	assert.Equal(t, int64(7), v.AsInt())
}

func TestEuclideanDivision(t *testing.T) {
	v := run(t, "(-7) / 2", nil, nil)
	assert.Equal(t, int64(-4), v.AsInt())
}

func TestIfExpression(t *testing.T) {
	v := run(t, "if 3 < 5 then 1 else 0", nil, nil)
	assert.Equal(t, int64(1), v.AsInt())
}

func TestWhereBinding(t *testing.T) {
	v := run(t, "x * x where { x = 6 }", nil, nil)
	assert.Equal(t, int64(36), v.AsInt())
}

func TestArrayIndexingNegative(t *testing.T) {
	v := run(t, "[10, 20, 30][-1]", nil, nil)
	assert.Equal(t, int64(30), v.AsInt())
}

func TestArrayIndexOutOfBoundsIsCatchable(t *testing.T) {
	v := run(t, "[1, 2, 3][10] otherwise 42", nil, nil)
	assert.Equal(t, int64(42), v.AsInt())
}

func TestDivisionByZeroIsCatchable(t *testing.T) {
	v := run(t, "(1 / 0) otherwise (-1)", nil, nil)
	assert.Equal(t, int64(-1), v.AsInt())
}

func TestMapLookup(t *testing.T) {
	v := run(t, `{1: "a", 2: "b"}[2]`, nil, nil)
	assert.Equal(t, "b", v.AsStr())
}

func TestMapMissingKeyCatchable(t *testing.T) {
	v := run(t, `{1: "a"}[9] otherwise "none"`, nil, nil)
	assert.Equal(t, "none", v.AsStr())
}

func TestRecordFieldAccess(t *testing.T) {
	v := run(t, `{x = 1, y = 2}.y`, nil, nil)
	assert.Equal(t, int64(2), v.AsInt())
}

func TestMatchOption(t *testing.T) {
	v := run(t, `some(7) match { some(n) => n, none => 0 }`, nil, nil)
	assert.Equal(t, int64(7), v.AsInt())

	v = run(t, `none match { some(n) => n, none => -1 }`, nil, nil)
	assert.Equal(t, int64(-1), v.AsInt())
}

func TestShortCircuitAnd(t *testing.T) {
	v := run(t, "(false) and ((1 / 0) == 0)", nil, nil)
	assert.False(t, v.AsBool())
}

func TestShortCircuitOr(t *testing.T) {
	v := run(t, "(true) or ((1 / 0) == 0)", nil, nil)
	assert.True(t, v.AsBool())
}

func TestImmediatelyAppliedLambda(t *testing.T) {
	v := run(t, "((x) => x * 2)(21)", nil, nil)
	assert.Equal(t, int64(42), v.AsInt())
}

func TestPolymorphicLambdaInstantiations(t *testing.T) {
	v := run(t, "id(1) + 1 where { id = (x) => x }", nil, nil)
	assert.Equal(t, int64(2), v.AsInt())
}

func TestClosureCapture(t *testing.T) {
	v := run(t, "add5(10) where { n = 5, add5 = (x) => x + n }", nil, nil)
	assert.Equal(t, int64(15), v.AsInt())
}

func TestGlobals(t *testing.T) {
	reg := types.NewRegistry()
	globals := []analyzer.Global{{Name: "x", Type: reg.Int()}}
	v := run(t, "x + 1", globals, map[string]value.Value{"x": value.Int(reg, 41)})
	assert.Equal(t, int64(42), v.AsInt())
}

func TestFormatString(t *testing.T) {
	v := run(t, `f"n = {1 + 1}"`, nil, nil)
	assert.Equal(t, "n = 2", v.AsStr())
}

func TestCastIntToFloat(t *testing.T) {
	v := run(t, "(1 as Float) / 2", nil, nil)
	assert.InDelta(t, 0.5, v.AsFloat(), 1e-9)
}

func TestContainsOperator(t *testing.T) {
	assert.True(t, run(t, "3 in [1, 2, 3]", nil, nil).AsBool())
	assert.True(t, run(t, "4 not in [1, 2, 3]", nil, nil).AsBool())
}

func TestMutualLambdaCaptureOrderIndependent(t *testing.T) {
	// `helper` is bound after `main` textually but both see each other's
	// slot by the time either is actually called — where-bindings are
	// sibling-visible, not declaration-ordered, for lambda values.
	v := run(t, "main(3) where { main = (x) => helper(x) + 1, helper = (x) => x * 10 }", nil, nil)
	assert.Equal(t, int64(31), v.AsInt())
}
