package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/analyzer"
	"github.com/melbi-lang/melbi/internal/parser"
	"github.com/melbi-lang/melbi/internal/types"
)

func check(t *testing.T, src string, globals []analyzer.Global) (*types.Type, []string) {
	t.Helper()
	arena, root, diags := parser.ParseExpr(src)
	require.Empty(t, diags, "parse diagnostics for %q", src)
	reg := types.NewRegistry()
	typed, tdiags := analyzer.Check(reg, arena, root, globals)
	msgs := make([]string, len(tdiags))
	for i, d := range tdiags {
		msgs[i] = d.Message
	}
	return typed.Root.ResolvedType(), msgs
}

func TestArithmeticInfersInt(t *testing.T) {
	typ, diags := check(t, "1 + 2", nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)
}

func TestMixedArithmeticIsTypeError(t *testing.T) {
	_, diags := check(t, "1 + 2.0", nil)
	assert.NotEmpty(t, diags)
}

func TestComparisonRequiresOrd(t *testing.T) {
	typ, diags := check(t, "1 < 2", nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KBool, typ.Kind)
}

func TestEqualityHasNoClassRestriction(t *testing.T) {
	typ, diags := check(t, `{a = 1} == {a = 2}`, nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KBool, typ.Kind)
}

func TestInOperatorOnArray(t *testing.T) {
	typ, diags := check(t, "3 in [1, 2, 3]", nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KBool, typ.Kind)
}

func TestIndexingArrayYieldsElementType(t *testing.T) {
	typ, diags := check(t, "[1, 2, 3][0]", nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)
}

func TestMapConstructionTypes(t *testing.T) {
	typ, diags := check(t, `{1: "a", 2: "b"}`, nil)
	assert.Empty(t, diags)
	require.Equal(t, types.KMap, typ.Kind)
	assert.Equal(t, types.KInt, typ.Key.Kind)
	assert.Equal(t, types.KStr, typ.Value.Kind)
}

func TestWhereBindingIntroducesLocals(t *testing.T) {
	typ, diags := check(t, "x + y where { x = 10, y = 32 }", nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)
}

func TestImmediatelyAppliedLambdaDefaultsParamToInt(t *testing.T) {
	typ, diags := check(t, "((x) => x * 2)(21)", nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)
}

func TestShortCircuitAndStillTypeChecksBothSides(t *testing.T) {
	typ, diags := check(t, "(false) and (1 / 0 == 0)", nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KBool, typ.Kind)
}

func TestIfBranchesMustUnify(t *testing.T) {
	typ, diags := check(t, `if true then 1 else 2`, nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)

	_, diags = check(t, `if true then 1 else "x"`, nil)
	assert.NotEmpty(t, diags)
}

func TestOtherwiseUnifiesPrimaryAndFallback(t *testing.T) {
	typ, diags := check(t, "[1, 2, 3][10] otherwise 42", nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)
}

func TestMatchOptionPattern(t *testing.T) {
	typ, diags := check(t, `some(1) match { some(v) => v, none => 0 }`, nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)
}

func TestGlobalsAreVisible(t *testing.T) {
	reg := types.NewRegistry()
	globals := []analyzer.Global{{Name: "x", Type: reg.Int()}, {Name: "y", Type: reg.Int()}}
	typ, diags := check(t, "x + y", globals)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)
}

func TestUnboundNameIsError(t *testing.T) {
	_, diags := check(t, "nope + 1", nil)
	assert.NotEmpty(t, diags)
}

func TestFieldAccessResolvesRecordShape(t *testing.T) {
	typ, diags := check(t, `{x = 1, y = 2}.x`, nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)
}

func TestPolymorphicWhereLambdaCalledTwiceAtInt(t *testing.T) {
	arena, root, pdiags := parser.ParseExpr(`id(1) + (id(10) * 2) where { id = (x) => x }`)
	require.Empty(t, pdiags)
	reg := types.NewRegistry()
	typed, diags := analyzer.Check(reg, arena, root, nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typed.Root.ResolvedType().Kind)
}

func TestRecursiveLambdaCallIsRejected(t *testing.T) {
	_, diags := check(t, "f(1) where { f = (n) => f(n) }", nil)
	assert.NotEmpty(t, diags)
}

func TestRecursiveLambdaSelfValueIsRejected(t *testing.T) {
	_, diags := check(t, "f(1) where { f = (n) => f }", nil)
	assert.NotEmpty(t, diags)
}

func TestNonRecursiveSiblingBindingsStillWork(t *testing.T) {
	typ, diags := check(t, "g(1) where { f = (n) => n + 1, g = (n) => f(n) }", nil)
	assert.Empty(t, diags)
	assert.Equal(t, types.KInt, typ.Kind)
}

func TestValidateGlobalsRejectsDuplicate(t *testing.T) {
	reg := types.NewRegistry()
	err := analyzer.ValidateGlobals([]analyzer.Global{
		{Name: "x", Type: reg.Int()},
		{Name: "x", Type: reg.Float()},
	})
	assert.Error(t, err)
}

func TestValidateGlobalsAcceptsUnique(t *testing.T) {
	reg := types.NewRegistry()
	err := analyzer.ValidateGlobals([]analyzer.Global{
		{Name: "x", Type: reg.Int()},
		{Name: "y", Type: reg.Float()},
	})
	assert.NoError(t, err)
}
