package vm

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/melbi-lang/melbi/internal/compiler"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

// step executes one instruction against fr, the current top frame.
// Returning an error lets loop decide whether it's otherwise-catchable
// (RuntimeError) or fatal (ResourceExceededError) or simply bubbles up
// (engine.Run surfaces it to the caller).
func (m *VM) step(fr *frame, instr compiler.Instr) error {
	switch instr.Op {
	case compiler.OpNop, compiler.OpWideArg:
		// no-op

	case compiler.OpConst:
		m.push(fr.code.Constants[instr.Arg])
	case compiler.OpPop:
		m.pop()
	case compiler.OpDup:
		m.push(m.stack[len(m.stack)-1])

	case compiler.OpLoadLocal:
		m.push(fr.locals[instr.Arg])
	case compiler.OpStoreLocal:
		fr.locals[instr.Arg] = m.pop()
	case compiler.OpLoadCapture:
		m.push(fr.captures[instr.Arg])
	case compiler.OpLoadGlobal:
		m.push(m.globals[instr.Arg])

	case compiler.OpArith:
		return m.doArith(compiler.ArithOp(instr.Arg))
	case compiler.OpCompare:
		m.doCompare(compiler.CompareOp(instr.Arg))
	case compiler.OpEq:
		right, left := m.pop(), m.pop()
		m.push(value.Bool(m.reg, value.Equal(left, right)))
	case compiler.OpNeq:
		right, left := m.pop(), m.pop()
		m.push(value.Bool(m.reg, !value.Equal(left, right)))
	case compiler.OpNot:
		v := m.pop()
		m.push(value.Bool(m.reg, !v.AsBool()))
	case compiler.OpNeg:
		return m.doNeg()
	case compiler.OpContains:
		return m.doContains(instr.Arg == 1)

	case compiler.OpJump:
		fr.ip = int(instr.Arg)
	case compiler.OpJumpIfFalse:
		if !m.stack[len(m.stack)-1].AsBool() {
			fr.ip = int(instr.Arg)
		}
	case compiler.OpJumpIfTrue:
		if m.stack[len(m.stack)-1].AsBool() {
			fr.ip = int(instr.Arg)
		}
	case compiler.OpPopJumpIfFalse:
		if !m.pop().AsBool() {
			fr.ip = int(instr.Arg)
		}
	case compiler.OpPopJumpIfTrue:
		if m.pop().AsBool() {
			fr.ip = int(instr.Arg)
		}

	case compiler.OpPushOtherwise:
		m.otherwise = append(m.otherwise, otherwiseEntry{
			frameDepth: len(m.frames),
			fallbackIP: int(instr.Arg),
			stackDepth: len(m.stack),
		})
	case compiler.OpPopOtherwise:
		m.otherwise = m.otherwise[:len(m.otherwise)-1]

	case compiler.OpPushType:
		m.pendingTyp = append(m.pendingTyp, fr.code.Types[instr.Arg])
	case compiler.OpMakeArray:
		return m.doMakeArray(int(instr.Arg))
	case compiler.OpMakeRecord:
		return m.doMakeRecord(int(instr.Arg))
	case compiler.OpMakeMap:
		return m.doMakeMap(int(instr.Arg))
	case compiler.OpMakeSome:
		t := m.takeType()
		v := m.pop()
		some, err := value.Some(m.reg, t, v)
		if err != nil {
			return m.runtimeErr(errors.RunCastFailed, err.Error())
		}
		m.push(some)
	case compiler.OpMakeNone:
		t := m.takeType()
		m.push(value.None(m.reg, t))

	case compiler.OpFieldGet:
		v := m.pop()
		m.push(v.Field(int(instr.Arg)))
	case compiler.OpIndexGet:
		return m.doIndexGet()

	case compiler.OpMatchSome:
		v := m.pop()
		if v.IsNone() {
			fr.ip = int(instr.Arg)
		} else {
			m.push(v.Unwrap())
		}
	case compiler.OpMatchNone:
		v := m.pop()
		if !v.IsNone() {
			fr.ip = int(instr.Arg)
		}

	case compiler.OpMakeClosure:
		m.doMakeClosure(fr, int(instr.Arg))
	case compiler.OpCallSig:
		m.pendingSig = fr.code.Signatures[instr.Arg]
	case compiler.OpCall:
		return m.doCall(int(instr.Arg))
	case compiler.OpCast:
		return m.doCast()
	case compiler.OpFormat:
		return m.doFormat(fr.code.Formats[instr.Arg])

	case compiler.OpReturn:
		m.frames = m.frames[:len(m.frames)-1]

	case compiler.OpTrace:
		if m.trace != nil {
			m.trace(fr.code.Constants[instr.Arg].AsStr())
		}

	default:
		return fmt.Errorf("vm: unhandled opcode %s", instr.Op)
	}
	return nil
}

func (m *VM) takeType() *types.Type {
	t := m.pendingTyp[0]
	m.pendingTyp = m.pendingTyp[1:]
	return t
}

func (m *VM) doArith(op compiler.ArithOp) error {
	right, left := m.pop(), m.pop()
	switch left.Typ.Kind {
	case types.KInt:
		r, err := intArith(op, left.AsInt(), right.AsInt())
		if err != nil {
			return err
		}
		m.push(value.Int(m.reg, r))
	case types.KFloat:
		m.push(value.Float(m.reg, floatArith(op, left.AsFloat(), right.AsFloat())))
	default:
		return fmt.Errorf("vm: arith on non-numeric type %s", left.Typ)
	}
	return nil
}

func intArith(op compiler.ArithOp, a, b int64) (int64, error) {
	switch op {
	case compiler.ArithAdd:
		r := a + b
		if (b > 0 && r < a) || (b < 0 && r > a) {
			return 0, &errors.RuntimeError{Diagnostic: errors.New(errors.RunIntegerOverflow, "integer overflow in addition", errors.Span{})}
		}
		return r, nil
	case compiler.ArithSub:
		r := a - b
		if (b < 0 && r < a) || (b > 0 && r > a) {
			return 0, &errors.RuntimeError{Diagnostic: errors.New(errors.RunIntegerOverflow, "integer overflow in subtraction", errors.Span{})}
		}
		return r, nil
	case compiler.ArithMul:
		if a != 0 && b != 0 {
			r := a * b
			if r/b != a {
				return 0, &errors.RuntimeError{Diagnostic: errors.New(errors.RunIntegerOverflow, "integer overflow in multiplication", errors.Span{})}
			}
			return r, nil
		}
		return 0, nil
	case compiler.ArithDiv:
		if b == 0 {
			return 0, &errors.RuntimeError{Diagnostic: errors.New(errors.RunDivisionByZero, "division by zero", errors.Span{})}
		}
		if a == math.MinInt64 && b == -1 {
			return 0, &errors.RuntimeError{Diagnostic: errors.New(errors.RunIntegerOverflow, "integer overflow in division", errors.Span{})}
		}
		// Euclidean division: remainder is always in [0, |b|).
		q := a / b
		r := a % b
		if r < 0 {
			if b > 0 {
				q--
			} else {
				q++
			}
		}
		return q, nil
	case compiler.ArithPow:
		if b < 0 {
			return 0, &errors.RuntimeError{Diagnostic: errors.New(errors.RunIntegerOverflow, "negative exponent for Int ^", errors.Span{})}
		}
		result := int64(1)
		base := a
		exp := b
		for exp > 0 {
			if exp&1 == 1 {
				if result != 0 && base != 0 {
					next := result * base
					if next/base != result {
						return 0, &errors.RuntimeError{Diagnostic: errors.New(errors.RunIntegerOverflow, "integer overflow in power", errors.Span{})}
					}
					result = next
				} else {
					result = 0
				}
			}
			exp >>= 1
			if exp > 0 {
				if base != 0 {
					next := base * base
					if next/base != base {
						return 0, &errors.RuntimeError{Diagnostic: errors.New(errors.RunIntegerOverflow, "integer overflow in power", errors.Span{})}
					}
					base = next
				}
			}
		}
		return result, nil
	default:
		return 0, fmt.Errorf("vm: unknown arith op %d", op)
	}
}

func floatArith(op compiler.ArithOp, a, b float64) float64 {
	switch op {
	case compiler.ArithAdd:
		return a + b
	case compiler.ArithSub:
		return a - b
	case compiler.ArithMul:
		return a * b
	case compiler.ArithDiv:
		return a / b // IEEE semantics: division by zero yields +/-Inf or NaN, not an error
	case compiler.ArithPow:
		return math.Pow(a, b)
	default:
		return 0
	}
}

func (m *VM) doCompare(op compiler.CompareOp) {
	right, left := m.pop(), m.pop()
	c := value.Compare(left, right)
	var result bool
	switch op {
	case compiler.CmpLt:
		result = c < 0
	case compiler.CmpGt:
		result = c > 0
	case compiler.CmpLte:
		result = c <= 0
	case compiler.CmpGte:
		result = c >= 0
	}
	m.push(value.Bool(m.reg, result))
}

func (m *VM) doNeg() error {
	v := m.pop()
	switch v.Typ.Kind {
	case types.KInt:
		if v.AsInt() == math.MinInt64 {
			return &errors.RuntimeError{Diagnostic: errors.New(errors.RunIntegerOverflow, "integer overflow in negation", errors.Span{})}
		}
		m.push(value.Int(m.reg, -v.AsInt()))
	case types.KFloat:
		m.push(value.Float(m.reg, -v.AsFloat()))
	default:
		return fmt.Errorf("vm: negate on non-numeric type %s", v.Typ)
	}
	return nil
}

func (m *VM) doContains(negate bool) error {
	haystack, needle := m.pop(), m.pop()
	var found bool
	switch haystack.Typ.Kind {
	case types.KStr:
		found = strings.Contains(haystack.AsStr(), needle.AsStr())
	case types.KBytes:
		found = bytes.Contains(haystack.AsBytes(), needle.AsBytes())
	case types.KArray:
		for i := 0; i < haystack.ArrayLen(); i++ {
			if value.Equal(haystack.ArrayAt(i), needle) {
				found = true
				break
			}
		}
	case types.KMap:
		_, found = haystack.MapGet(needle)
	default:
		return fmt.Errorf("vm: `in` on non-containable type %s", haystack.Typ)
	}
	if negate {
		found = !found
	}
	m.push(value.Bool(m.reg, found))
	return nil
}

func (m *VM) doMakeArray(count int) error {
	elemType := m.takeType()
	elems := m.popN(count)
	arr, err := value.Array(m.reg, elemType, elems)
	if err != nil {
		return fmt.Errorf("vm: internal: %w", err)
	}
	m.push(arr)
	return nil
}

func (m *VM) doMakeRecord(count int) error {
	rt := m.takeType()
	vals := m.popN(count)
	fields := make(map[string]value.Value, count)
	for i, f := range rt.Fields {
		fields[f.Name] = vals[i]
	}
	rec, err := value.Record(rt, fields)
	if err != nil {
		return fmt.Errorf("vm: internal: %w", err)
	}
	m.push(rec)
	return nil
}

func (m *VM) doMakeMap(entryCount int) error {
	keyType := m.takeType()
	valType := m.takeType()
	raws := m.popN(entryCount * 2)
	pairs := make([]struct {
		Key value.Value
		Val value.Value
	}, entryCount)
	for i := 0; i < entryCount; i++ {
		pairs[i].Key = raws[2*i]
		pairs[i].Val = raws[2*i+1]
	}
	mp, err := value.Map(m.reg, keyType, valType, pairs)
	if err != nil {
		return fmt.Errorf("vm: internal: %w", err)
	}
	m.push(mp)
	return nil
}

func (m *VM) doIndexGet() error {
	index, target := m.pop(), m.pop()
	switch target.Typ.Kind {
	case types.KArray:
		idx := index.AsInt()
		n := int64(target.ArrayLen())
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return &errors.RuntimeError{Diagnostic: errors.New(errors.RunIndexOutOfBounds, "array index out of bounds", errors.Span{})}
		}
		m.push(target.ArrayAt(int(idx)))
	case types.KBytes:
		b := target.AsBytes()
		idx := index.AsInt()
		n := int64(len(b))
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return &errors.RuntimeError{Diagnostic: errors.New(errors.RunIndexOutOfBounds, "bytes index out of bounds", errors.Span{})}
		}
		m.push(value.Int(m.reg, int64(b[idx])))
	case types.KMap:
		v, ok := target.MapGet(index)
		if !ok {
			return &errors.RuntimeError{Diagnostic: errors.New(errors.RunKeyNotFound, "key not found", errors.Span{})}
		}
		m.push(v)
	default:
		return fmt.Errorf("vm: index on non-indexable type %s", target.Typ)
	}
	return nil
}

func (m *VM) doMakeClosure(fr *frame, idx int) {
	tmpl := fr.code.Lambdas[idx]
	captures := m.popN(len(tmpl.Captures))
	obj := &value.FuncObj{Closure: &value.Closure{Captures: captures, Dispatch: tmpl.Dispatch}}
	m.push(value.Function(m.reg, tmpl.StaticType, obj))
}

func (m *VM) doCall(argc int) error {
	args := m.popN(argc)
	callee := m.pop()
	fo := callee.AsFunc()
	sig := m.pendingSig
	if fo.Native != nil {
		v, err := fo.Native(m.ffi, args)
		if err != nil {
			return &errors.RuntimeError{Diagnostic: errors.New(errors.RunNativeError, err.Error(), errors.Span{})}
		}
		m.push(v)
		return nil
	}
	entry, ok := fo.Closure.Dispatch[sig]
	if !ok {
		for _, only := range fo.Closure.Dispatch {
			entry, ok = only, true
			break
		}
	}
	if !ok {
		return fmt.Errorf("vm: no dispatch entry for signature %s", sig)
	}
	code := entry.(*compiler.Code)
	if m.limits.MaxDepth != 0 && len(m.frames) >= m.limits.MaxDepth {
		return &errors.ResourceExceededError{Message: "call depth exceeded"}
	}
	locals := make([]value.Value, code.NumLocals)
	copy(locals, args)
	m.frames = append(m.frames, &frame{code: code, locals: locals, captures: fo.Closure.Captures})
	return nil
}

func (m *VM) doCast() error {
	target := m.takeType()
	v := m.pop()
	out, err := castValue(m.reg, v, target)
	if err != nil {
		return &errors.RuntimeError{Diagnostic: errors.New(errors.RunCastFailed, err.Error(), errors.Span{})}
	}
	m.push(out)
	return nil
}

// castValue implements melbi's explicit numeric/string conversions
// (spec §4.1.3 Cast). Anything else the analyzer accepted but this
// function doesn't recognize is an internal inconsistency, not a user
// error, so it panics rather than returning RunCastFailed.
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
		panic(fmt.Sprintf("vm: unsupported cast %s -> %s", v.Typ, target))
	}
}

func (m *VM) doFormat(tmpl compiler.FormatTemplate) error {
	n := len(tmpl.Strs) - 1
	args := m.popN(n)
	var b strings.Builder
	for i, s := range tmpl.Strs {
		b.WriteString(s)
		if i < n {
			b.WriteString(formatValue(args[i]))
		}
	}
	m.push(value.Str(m.reg, b.String()))
	return nil
}

// formatValue renders v the way f-string interpolation displays it:
// Str values appear unquoted (unlike Value.String, which quotes them
// for debug/Show output), everything else matches Value.String.
func formatValue(v value.Value) string {
	if v.Typ.Kind == types.KStr {
		return v.AsStr()
	}
	return v.String()
}
