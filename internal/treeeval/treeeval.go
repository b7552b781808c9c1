// Package treeeval is melbi's second execution backend: a direct
// tree-walking evaluator over internal/typedast, used to
// cross-validate internal/vm's bytecode execution (spec §4.4.3, §8 —
// an Engine run in "both" mode executes each expression through both
// backends and faults if they disagree). It shares error codes,
// arithmetic semantics, and short-circuit laws with internal/vm by
// construction: both switch on the same ast.BinaryOp/UnaryOp and the
// same value.Value.Typ.Kind, so a semantic change made in one without
// the other is the exact class of bug this package exists to catch.
//
// Grounded on the teacher's own internal/eval package: melbi's typed
// tree shape mirrors the teacher's own dependency-graph evaluator in
// spirit (recursive eval, environment threaded by value, no bytecode)
// even though melbi's tree here is typedast rather than the teacher's
// resolved-graph IR.
package treeeval

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/typedast"
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

// Limits mirrors vm.Limits; duplicated here (rather than imported) so
// treeeval has no dependency on internal/vm — the two backends must
// stay independent implementations for cross-validation to mean
// anything (spec §8).
type Limits struct {
	MaxDepth      int
	MaxIterations uint64
}

var DefaultLimits = Limits{MaxDepth: 1000, MaxIterations: 0}

type env struct {
	parent *env
	vars   map[string]value.Value
	// closures holds where-bound lambda nodes, materialized into a
	// value.Value lazily on first reference (see evalIdent) rather than
	// eagerly at bind time, so where-siblings can capture each other
	// regardless of textual order.
	closures map[string]*typedast.Lambda
}

func newEnv(parent *env) *env {
	return &env{parent: parent, vars: map[string]value.Value{}, closures: map[string]*typedast.Lambda{}}
}

func (e *env) lookup(name string) (value.Value, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

func (e *env) lookupClosure(name string) (*typedast.Lambda, bool) {
	for s := e; s != nil; s = s.parent {
		if c, ok := s.closures[name]; ok {
			return c, true
		}
	}
	return nil, false
}

// Evaluator walks a typedast.Expr. One Evaluator per Run call.
type Evaluator struct {
	reg    *types.Registry
	ffi    *value.FfiContext
	limits Limits
	depth  int
	steps  uint64
}

func New(reg *types.Registry, ffi *value.FfiContext, limits Limits) *Evaluator {
	return &Evaluator{reg: reg, ffi: ffi, limits: limits}
}

// Run evaluates expr.Root with globals bound by name.
func (ev *Evaluator) Run(root typedast.Node, globals map[string]value.Value) (value.Value, error) {
	top := newEnv(nil)
	for name, v := range globals {
		top.vars[name] = v
	}
	return ev.eval(root, top)
}

func (ev *Evaluator) tick() error {
	ev.steps++
	if ev.limits.MaxIterations != 0 && ev.steps > ev.limits.MaxIterations {
		return &errors.ResourceExceededError{Message: "iteration limit exceeded"}
	}
	return nil
}

func rtErr(code, msg string) error {
	return &errors.RuntimeError{Diagnostic: errors.New(code, msg, errors.Span{})}
}

func (ev *Evaluator) eval(n typedast.Node, e *env) (value.Value, error) {
	if err := ev.tick(); err != nil {
		return value.Value{}, err
	}
	switch node := n.(type) {
	case *typedast.IntLit:
		return value.Int(ev.reg, node.Value), nil
	case *typedast.FloatLit:
		return value.Float(ev.reg, node.Value), nil
	case *typedast.BoolLit:
		return value.Bool(ev.reg, node.Value), nil
	case *typedast.StrLit:
		return value.Str(ev.reg, node.Value), nil
	case *typedast.BytesLit:
		return value.Bytes(ev.reg, node.Value), nil
	case *typedast.NoneLit:
		return value.None(ev.reg, node.ResolvedType().Elem), nil
	case *typedast.SomeExpr:
		v, err := ev.eval(node.Value, e)
		if err != nil {
			return value.Value{}, err
		}
		return value.Some(ev.reg, node.ResolvedType().Elem, v)
	case *typedast.FormatStr:
		return ev.evalFormat(node, e)
	case *typedast.Ident:
		return ev.evalIdent(node, e)
	case *typedast.ArrayLit:
		return ev.evalArray(node, e)
	case *typedast.RecordLit:
		return ev.evalRecord(node, e)
	case *typedast.MapLit:
		return ev.evalMap(node, e)
	case *typedast.FieldAccess:
		target, err := ev.eval(node.Target, e)
		if err != nil {
			return value.Value{}, err
		}
		return target.Field(node.FieldIdx), nil
	case *typedast.IndexAccess:
		return ev.evalIndex(node, e)
	case *typedast.Call:
		return ev.evalCall(node, e)
	case *typedast.Lambda:
		return ev.makeClosureValue(node, e), nil
	case *typedast.Where:
		return ev.evalWhere(node, e)
	case *typedast.If:
		return ev.evalIf(node, e)
	case *typedast.Match:
		return ev.evalMatch(node, e)
	case *typedast.Otherwise:
		return ev.evalOtherwise(node, e)
	case *typedast.Cast:
		v, err := ev.eval(node.Value, e)
		if err != nil {
			return value.Value{}, err
		}
		out, err := castValue(ev.reg, v, node.Target)
		if err != nil {
			return value.Value{}, rtErr(errors.RunCastFailed, err.Error())
		}
		return out, nil
	case *typedast.Unary:
		return ev.evalUnary(node, e)
	case *typedast.Binary:
		return ev.evalBinary(node, e)
	default:
		return value.Value{}, fmt.Errorf("treeeval: unhandled node %T", n)
	}
}

func (ev *Evaluator) evalIdent(node *typedast.Ident, e *env) (value.Value, error) {
	if v, ok := e.lookup(node.Name); ok {
		return v, nil
	}
	if lam, ok := e.lookupClosure(node.Name); ok {
		return ev.makeClosureValue(lam, e), nil
	}
	return value.Value{}, fmt.Errorf("treeeval: unbound name %q", node.Name)
}

func (ev *Evaluator) evalFormat(node *typedast.FormatStr, e *env) (value.Value, error) {
	var b strings.Builder
	for i, s := range node.Strs {
		b.WriteString(s)
		if i < len(node.Exprs) {
			v, err := ev.eval(node.Exprs[i], e)
			if err != nil {
				return value.Value{}, err
			}
			b.WriteString(formatValue(v))
		}
	}
	return value.Str(ev.reg, b.String()), nil
}

func (ev *Evaluator) evalArray(node *typedast.ArrayLit, e *env) (value.Value, error) {
	elems := make([]value.Value, len(node.Elements))
	for i, el := range node.Elements {
		v, err := ev.eval(el, e)
		if err != nil {
			return value.Value{}, err
		}
		elems[i] = v
	}
	return value.Array(ev.reg, node.ResolvedType().Elem, elems)
}

func (ev *Evaluator) evalRecord(node *typedast.RecordLit, e *env) (value.Value, error) {
	fields := make(map[string]value.Value, len(node.Fields))
	for _, f := range node.Fields {
		v, err := ev.eval(f.Value, e)
		if err != nil {
			return value.Value{}, err
		}
		fields[f.Name] = v
	}
	return value.Record(node.ResolvedType(), fields)
}

func (ev *Evaluator) evalMap(node *typedast.MapLit, e *env) (value.Value, error) {
	pairs := make([]struct {
		Key value.Value
		Val value.Value
	}, len(node.Entries))
	for i, entry := range node.Entries {
		k, err := ev.eval(entry.Key, e)
		if err != nil {
			return value.Value{}, err
		}
		v, err := ev.eval(entry.Value, e)
		if err != nil {
			return value.Value{}, err
		}
		pairs[i] = struct {
			Key value.Value
			Val value.Value
		}{k, v}
	}
	rt := node.ResolvedType()
	return value.Map(ev.reg, rt.Key, rt.Value, pairs)
}

func (ev *Evaluator) evalIndex(node *typedast.IndexAccess, e *env) (value.Value, error) {
	target, err := ev.eval(node.Target, e)
	if err != nil {
		return value.Value{}, err
	}
	index, err := ev.eval(node.Index, e)
	if err != nil {
		return value.Value{}, err
	}
	switch target.Typ.Kind {
	case types.KArray:
		idx := index.AsInt()
		n := int64(target.ArrayLen())
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return value.Value{}, rtErr(errors.RunIndexOutOfBounds, "array index out of bounds")
		}
		return target.ArrayAt(int(idx)), nil
	case types.KBytes:
		b := target.AsBytes()
		idx := index.AsInt()
		n := int64(len(b))
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return value.Value{}, rtErr(errors.RunIndexOutOfBounds, "bytes index out of bounds")
		}
		return value.Int(ev.reg, int64(b[idx])), nil
	case types.KMap:
		v, ok := target.MapGet(index)
		if !ok {
			return value.Value{}, rtErr(errors.RunKeyNotFound, "key not found")
		}
		return v, nil
	default:
		return value.Value{}, fmt.Errorf("treeeval: index on non-indexable type %s", target.Typ)
	}
}

func (ev *Evaluator) evalCall(node *typedast.Call, e *env) (value.Value, error) {
	callee, err := ev.eval(node.Callee, e)
	if err != nil {
		return value.Value{}, err
	}
	args := make([]value.Value, len(node.Args))
	for i, a := range node.Args {
		v, err := ev.eval(a, e)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	fo := callee.AsFunc()
	if ev.limits.MaxDepth != 0 && ev.depth >= ev.limits.MaxDepth {
		return value.Value{}, &errors.ResourceExceededError{Message: "call depth exceeded"}
	}
	ev.depth++
	defer func() { ev.depth-- }()
	v, err := fo.Native(ev.ffi, args)
	if err != nil {
		if _, isDiag := err.(*errors.RuntimeError); isDiag {
			return value.Value{}, err
		}
		if _, isRes := err.(*errors.ResourceExceededError); isRes {
			return value.Value{}, err
		}
		return value.Value{}, &errors.RuntimeError{Diagnostic: errors.New(errors.RunNativeError, err.Error(), errors.Span{})}
	}
	return v, nil
}

func (ev *Evaluator) evalIf(node *typedast.If, e *env) (value.Value, error) {
	cond, err := ev.eval(node.Cond, e)
	if err != nil {
		return value.Value{}, err
	}
	if cond.AsBool() {
		return ev.eval(node.Then, e)
	}
	return ev.eval(node.Else, e)
}

func (ev *Evaluator) evalOtherwise(node *typedast.Otherwise, e *env) (value.Value, error) {
	v, err := ev.eval(node.Primary, e)
	if err == nil {
		return v, nil
	}
	if _, fatal := err.(*errors.ResourceExceededError); fatal {
		return value.Value{}, err
	}
	if !errors.IsCatchableByOtherwise(err) {
		return value.Value{}, err
	}
	return ev.eval(node.Fallback, e)
}

func (ev *Evaluator) evalWhere(node *typedast.Where, e *env) (value.Value, error) {
	inner := newEnv(e)
	for _, b := range node.Bindings {
		if lam, ok := b.Value.(*typedast.Lambda); ok {
			inner.closures[b.Name] = lam
			continue
		}
		v, err := ev.eval(b.Value, inner)
		if err != nil {
			return value.Value{}, err
		}
		inner.vars[b.Name] = v
	}
	return ev.eval(node.Body, inner)
}

func (ev *Evaluator) evalMatch(node *typedast.Match, e *env) (value.Value, error) {
	scrut, err := ev.eval(node.Scrutinee, e)
	if err != nil {
		return value.Value{}, err
	}
	for _, arm := range node.Arms {
		inner := newEnv(e)
		matched, err := ev.matchPattern(arm.Pattern, scrut, inner)
		if err != nil {
			return value.Value{}, err
		}
		if matched {
			return ev.eval(arm.Body, inner)
		}
	}
	return value.Value{}, rtErr(errors.RunPatternExhausted, "no match arm matched")
}

func (ev *Evaluator) matchPattern(p typedast.Pattern, v value.Value, e *env) (bool, error) {
	switch pt := p.(type) {
	case typedast.WildcardPattern:
		return true, nil
	case typedast.VarPattern:
		e.vars[pt.Name] = v
		return true, nil
	case typedast.LiteralPattern:
		lit, err := ev.eval(pt.Value, e)
		if err != nil {
			return false, err
		}
		return value.Equal(lit, v), nil
	case typedast.NonePattern:
		return v.IsNone(), nil
	case typedast.SomePattern:
		if v.IsNone() {
			return false, nil
		}
		return ev.matchPattern(pt.Inner, v.Unwrap(), e)
	}
	return false, nil
}

func (ev *Evaluator) evalUnary(node *typedast.Unary, e *env) (value.Value, error) {
	v, err := ev.eval(node.Operand, e)
	if err != nil {
		return value.Value{}, err
	}
	switch node.Op {
	case ast.OpNot:
		return value.Bool(ev.reg, !v.AsBool()), nil
	case ast.OpNeg:
		switch v.Typ.Kind {
		case types.KInt:
			if v.AsInt() == math.MinInt64 {
				return value.Value{}, rtErr(errors.RunIntegerOverflow, "integer overflow in negation")
			}
			return value.Int(ev.reg, -v.AsInt()), nil
		case types.KFloat:
			return value.Float(ev.reg, -v.AsFloat()), nil
		}
	}
	return value.Value{}, fmt.Errorf("treeeval: bad unary on %s", v.Typ)
}

func (ev *Evaluator) evalBinary(node *typedast.Binary, e *env) (value.Value, error) {
	switch node.Op {
	case ast.OpAnd:
		left, err := ev.eval(node.Left, e)
		if err != nil {
			return value.Value{}, err
		}
		if !left.AsBool() {
			return left, nil
		}
		return ev.eval(node.Right, e)
	case ast.OpOr:
		left, err := ev.eval(node.Left, e)
		if err != nil {
			return value.Value{}, err
		}
		if left.AsBool() {
			return left, nil
		}
		return ev.eval(node.Right, e)
	}

	left, err := ev.eval(node.Left, e)
	if err != nil {
		return value.Value{}, err
	}
	right, err := ev.eval(node.Right, e)
	if err != nil {
		return value.Value{}, err
	}

	switch node.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpPow:
		return arith(ev.reg, node.Op, left, right)
	case ast.OpLt, ast.OpGt, ast.OpLte, ast.OpGte:
		c := value.Compare(left, right)
		var r bool
		switch node.Op {
		case ast.OpLt:
			r = c < 0
		case ast.OpGt:
			r = c > 0
		case ast.OpLte:
			r = c <= 0
		case ast.OpGte:
			r = c >= 0
		}
		return value.Bool(ev.reg, r), nil
	case ast.OpEq:
		return value.Bool(ev.reg, value.Equal(left, right)), nil
	case ast.OpNeq:
		return value.Bool(ev.reg, !value.Equal(left, right)), nil
	case ast.OpIn, ast.OpNotIn:
		found, err := contains(right, left)
		if err != nil {
			return value.Value{}, err
		}
		if node.Op == ast.OpNotIn {
			found = !found
		}
		return value.Bool(ev.reg, found), nil
	}
	return value.Value{}, fmt.Errorf("treeeval: bad binary op %s", node.Op)
}

func contains(haystack, needle value.Value) (bool, error) {
	switch haystack.Typ.Kind {
	case types.KStr:
		return strings.Contains(haystack.AsStr(), needle.AsStr()), nil
	case types.KBytes:
		return bytes.Contains(haystack.AsBytes(), needle.AsBytes()), nil
	case types.KArray:
		for i := 0; i < haystack.ArrayLen(); i++ {
			if value.Equal(haystack.ArrayAt(i), needle) {
				return true, nil
			}
		}
		return false, nil
	case types.KMap:
		_, ok := haystack.MapGet(needle)
		return ok, nil
	default:
		return false, fmt.Errorf("treeeval: `in` on non-containable type %s", haystack.Typ)
	}
}

func arith(reg *types.Registry, op ast.BinaryOp, left, right value.Value) (value.Value, error) {
	switch left.Typ.Kind {
	case types.KInt:
		r, err := intArith(op, left.AsInt(), right.AsInt())
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(reg, r), nil
	case types.KFloat:
		return value.Float(reg, floatArith(op, left.AsFloat(), right.AsFloat())), nil
	default:
		return value.Value{}, fmt.Errorf("treeeval: arith on non-numeric type %s", left.Typ)
	}
}

func intArith(op ast.BinaryOp, a, b int64) (int64, error) {
	switch op {
	case ast.OpAdd:
		r := a + b
		if (b > 0 && r < a) || (b < 0 && r > a) {
			return 0, rtErr(errors.RunIntegerOverflow, "integer overflow in addition")
		}
		return r, nil
	case ast.OpSub:
		r := a - b
		if (b < 0 && r < a) || (b > 0 && r > a) {
			return 0, rtErr(errors.RunIntegerOverflow, "integer overflow in subtraction")
		}
		return r, nil
	case ast.OpMul:
		if a == 0 || b == 0 {
			return 0, nil
		}
		r := a * b
		if r/b != a {
			return 0, rtErr(errors.RunIntegerOverflow, "integer overflow in multiplication")
		}
		return r, nil
	case ast.OpDiv:
		if b == 0 {
			return 0, rtErr(errors.RunDivisionByZero, "division by zero")
		}
		if a == math.MinInt64 && b == -1 {
			return 0, rtErr(errors.RunIntegerOverflow, "integer overflow in division")
		}
		q, r := a/b, a%b
		if r < 0 {
			if b > 0 {
				q--
			} else {
				q++
			}
		}
		return q, nil
	case ast.OpPow:
		if b < 0 {
			return 0, rtErr(errors.RunIntegerOverflow, "negative exponent for Int ^")
		}
		result := int64(1)
		for i := int64(0); i < b; i++ {
			if result != 0 && a != 0 {
				next := result * a
				if next/a != result {
					return 0, rtErr(errors.RunIntegerOverflow, "integer overflow in power")
				}
				result = next
			} else {
				result = 0
			}
		}
		return result, nil
	default:
		return 0, fmt.Errorf("treeeval: unknown arith op %s", op)
	}
}

func floatArith(op ast.BinaryOp, a, b float64) float64 {
	switch op {
	case ast.OpAdd:
		return a + b
	case ast.OpSub:
		return a - b
	case ast.OpMul:
		return a * b
	case ast.OpDiv:
		return a / b
	case ast.OpPow:
		return math.Pow(a, b)
	default:
		return 0
	}
}

// castValue mirrors internal/vm/ops.go's castValue exactly (same cases,
// same panic-on-unsupported-combination behavior) since a cross-backend
// cast mismatch would otherwise look like a genuine bug under
// cross-validation rather than the shared latent analyzer gap it is:
// resolveTypeExpr does not itself check that the cast pair is
// supported, so any pair neither backend recognizes reaches here.
func castValue(reg *types.Registry, v value.Value, target *types.Type) (value.Value, error) {
	if v.Typ.Equals(target) {
		return v, nil
	}
	switch {
	case v.Typ.Kind == types.KInt && target.Kind == types.KFloat:
		return value.Float(reg, float64(v.AsInt())), nil
	case v.Typ.Kind == types.KFloat && target.Kind == types.KInt:
		f := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return value.Value{}, fmt.Errorf("cannot cast %g to Int", f)
		}
		return value.Int(reg, int64(f)), nil
	case target.Kind == types.KStr:
		return value.Str(reg, formatValue(v)), nil
	case v.Typ.Kind == types.KStr && target.Kind == types.KInt:
		n, err := strconv.ParseInt(strings.TrimSpace(v.AsStr()), 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("cannot cast %q to Int", v.AsStr())
		}
		return value.Int(reg, n), nil
	case v.Typ.Kind == types.KStr && target.Kind == types.KFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsStr()), 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("cannot cast %q to Float", v.AsStr())
		}
		return value.Float(reg, f), nil
	default:
		panic(fmt.Sprintf("treeeval: unsupported cast %s -> %s", v.Typ, target))
	}
}

func formatValue(v value.Value) string {
	if v.Typ.Kind == types.KStr {
		return v.AsStr()
	}
	return v.String()
}

// makeClosureValue turns a Lambda node into a callable Go closure. It
// does not flatten captures into a snapshot map: the returned value's
// native function chains a fresh call-local env onto defEnv itself, so
// free-variable lookups fall through to defEnv's normal chain (vars
// and, for sibling where-bound lambdas, the lazily-materialized
// closures map) exactly as if the call were inlined at the point of
// definition. That keeps mutually-recursive where-siblings (each
// capturing the other by name) working without eagerly resolving one
// to build the other, which would recurse forever.
func (ev *Evaluator) makeClosureValue(lam *typedast.Lambda, defEnv *env) value.Value {
	inst := lam.Instantiations[0]
	fnType := ev.reg.Function(paramTypes(inst), inst.Body.ResolvedType())
	native := func(ffi *value.FfiContext, args []value.Value) (value.Value, error) {
		callEnv := newEnv(defEnv)
		body, params := selectInstantiation(lam, args)
		for i, p := range params {
			callEnv.vars[p.Name] = args[i]
		}
		return ev.eval(body, callEnv)
	}
	return value.Function(ev.reg, fnType, &value.FuncObj{Name: "<lambda>", Native: native})
}

func selectInstantiation(lam *typedast.Lambda, args []value.Value) (typedast.Node, []typedast.Param) {
	for _, inst := range lam.Instantiations {
		if instMatches(inst.ParamTypes, args) {
			return inst.Body, paramsWithTypes(lam.Params, inst.ParamTypes)
		}
	}
	inst := lam.Instantiations[0]
	return inst.Body, paramsWithTypes(lam.Params, inst.ParamTypes)
}

func instMatches(paramTypes []*types.Type, args []value.Value) bool {
	if len(paramTypes) != len(args) {
		return false
	}
	for i, pt := range paramTypes {
		if !pt.Equals(args[i].Typ) {
			return false
		}
	}
	return true
}

func paramsWithTypes(params []typedast.Param, ptypes []*types.Type) []typedast.Param {
	out := make([]typedast.Param, len(params))
	for i, p := range params {
		t := p.Type
		if i < len(ptypes) {
			t = ptypes[i]
		}
		out[i] = typedast.Param{Name: p.Name, Type: t}
	}
	return out
}

func paramTypes(inst typedast.Instantiation) []*types.Type { return inst.ParamTypes }
