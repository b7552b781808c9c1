package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/parser"
)

func parseOK(t *testing.T, src string) ast.Expr {
	t.Helper()
	_, expr, diags := parser.ParseExpr(src)
	require.Empty(t, diags, "unexpected diagnostics for %q", src)
	require.NotNil(t, expr)
	return expr
}

func TestLiterals(t *testing.T) {
	require.IsType(t, &ast.IntLit{}, parseOK(t, "42"))
	require.IsType(t, &ast.FloatLit{}, parseOK(t, "3.14"))
	require.IsType(t, &ast.StrLit{}, parseOK(t, `"hi"`))
	require.IsType(t, &ast.BoolLit{}, parseOK(t, "true"))
	require.IsType(t, &ast.NoneLit{}, parseOK(t, "none"))
}

func TestArithmeticPrecedence(t *testing.T) {
	expr := parseOK(t, "1 + 2 * 3")
	bin := expr.(*ast.Binary)
	require.Equal(t, ast.OpAdd, bin.Op)
	rhs := bin.Right.(*ast.Binary)
	require.Equal(t, ast.OpMul, rhs.Op)
}

func TestPowerIsRightOfUnaryMinus(t *testing.T) {
	expr := parseOK(t, "-2 ^ 2")
	un := expr.(*ast.Unary)
	require.Equal(t, ast.OpNeg, un.Op)
	require.IsType(t, &ast.Binary{}, un.Operand)
}

func TestLambdaOneParamShorthand(t *testing.T) {
	expr := parseOK(t, "x => x + 1")
	lam := expr.(*ast.Lambda)
	require.Len(t, lam.Params, 1)
	require.Equal(t, "x", lam.Params[0].Name)
}

func TestLambdaMultiParamWithTypes(t *testing.T) {
	expr := parseOK(t, "(a: Int, b: Int) => a + b")
	lam := expr.(*ast.Lambda)
	require.Len(t, lam.Params, 2)
	require.IsType(t, &ast.NamedType{}, lam.Params[0].Type)
}

func TestParenGroupingNotLambda(t *testing.T) {
	expr := parseOK(t, "(1 + 2) * 3")
	bin := expr.(*ast.Binary)
	require.Equal(t, ast.OpMul, bin.Op)
	require.IsType(t, &ast.Binary{}, bin.Left)
}

func TestRecordLiteral(t *testing.T) {
	expr := parseOK(t, `{ name = "a", age = 1 }`)
	rec := expr.(*ast.RecordLit)
	require.Len(t, rec.Fields, 2)
	require.Equal(t, "name", rec.Fields[0].Name)
}

func TestMapLiteral(t *testing.T) {
	expr := parseOK(t, `{"a": 1, "b": 2}`)
	m := expr.(*ast.MapLit)
	require.Len(t, m.Entries, 2)
}

func TestEmptyBraceIsRecord(t *testing.T) {
	expr := parseOK(t, "{}")
	require.IsType(t, &ast.RecordLit{}, expr)
}

func TestWhereSuffix(t *testing.T) {
	expr := parseOK(t, "x + 1 where { x = 10 }")
	w := expr.(*ast.Where)
	require.Len(t, w.Bindings, 1)
	require.Equal(t, "x", w.Bindings[0].Name)
}

func TestMatchSuffix(t *testing.T) {
	expr := parseOK(t, "x match { 1 -> \"one\", _ -> \"other\" }")
	m := expr.(*ast.Match)
	require.Len(t, m.Arms, 2)
	require.IsType(t, &ast.LiteralPattern{}, m.Arms[0].Pattern)
	require.IsType(t, &ast.WildcardPattern{}, m.Arms[1].Pattern)
}

func TestOptionPattern(t *testing.T) {
	expr := parseOK(t, "x match { some(v) -> v, none -> 0 }")
	m := expr.(*ast.Match)
	require.IsType(t, &ast.SomePattern{}, m.Arms[0].Pattern)
	require.IsType(t, &ast.NonePattern{}, m.Arms[1].Pattern)
}

func TestIfExpr(t *testing.T) {
	expr := parseOK(t, "if x > 0 then 1 else -1")
	ifExpr := expr.(*ast.If)
	require.IsType(t, &ast.Binary{}, ifExpr.Cond)
}

func TestOtherwiseSuffix(t *testing.T) {
	expr := parseOK(t, "risky() otherwise 0")
	o := expr.(*ast.Otherwise)
	require.IsType(t, &ast.Call{}, o.Primary)
}

func TestCastExpr(t *testing.T) {
	expr := parseOK(t, "x as Float")
	c := expr.(*ast.Cast)
	require.IsType(t, &ast.NamedType{}, c.Target)
}

func TestFormatStringWithExpr(t *testing.T) {
	expr := parseOK(t, `f"count={n+1} done"`)
	fs := expr.(*ast.FormatStr)
	require.Len(t, fs.Exprs, 1)
	require.Len(t, fs.Strs, 2)
}

func TestNotInOperator(t *testing.T) {
	expr := parseOK(t, "x not in xs")
	bin := expr.(*ast.Binary)
	require.Equal(t, ast.OpNotIn, bin.Op)
}

func TestFieldAndIndexChain(t *testing.T) {
	expr := parseOK(t, "a.b[0].c")
	fa := expr.(*ast.FieldAccess)
	require.Equal(t, "c", fa.Field)
	idx := fa.Target.(*ast.IndexAccess)
	require.IsType(t, &ast.FieldAccess{}, idx.Target)
}

func TestSomeExprAndCall(t *testing.T) {
	expr := parseOK(t, "some f(1, 2)")
	some := expr.(*ast.SomeExpr)
	call := some.Value.(*ast.Call)
	require.Len(t, call.Args, 2)
}

func TestRecordTypeAnnotationInCast(t *testing.T) {
	expr := parseOK(t, "x as Record[name: Str, age: Int]")
	c := expr.(*ast.Cast)
	rt := c.Target.(*ast.RecordTypeLit)
	require.Len(t, rt.Fields, 2)
}

func TestMapAndArrayTypeAnnotationsInLambdaParams(t *testing.T) {
	expr := parseOK(t, "(m: Map[Str, Int], xs: [Int]) => xs")
	lam := expr.(*ast.Lambda)
	require.IsType(t, &ast.MapType{}, lam.Params[0].Type)
	require.IsType(t, &ast.ArrayType{}, lam.Params[1].Type)
}

func TestDepthLimitIsEnforced(t *testing.T) {
	src := ""
	for i := 0; i < 2000; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < 2000; i++ {
		src += ")"
	}
	_, _, diags := parser.ParseExpr(src)
	require.NotEmpty(t, diags)
}
