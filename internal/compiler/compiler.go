package compiler

import (
	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/typedast"
	"github.com/melbi-lang/melbi/internal/types"
	"github.com/melbi-lang/melbi/internal/value"
)

// Compiler lowers one typedast.Expr into a root *Code plus, for every
// lambda reachable from it, one *Code per monomorphic instantiation
// (spec §4.3.3, §4.4.1). A Compiler is single-use: call Compile once
// per expression.
type Compiler struct {
	reg     *types.Registry
	globals map[string]int
	cur     *unit
}

// Compile produces the root Code for expr. globals maps every global
// name visible to the expression (engine-wide bindings plus this
// compile's parameters, spec §6.1) to its slot in the runtime globals
// array internal/engine assembles before calling into the VM.
func Compile(reg *types.Registry, globals map[string]int, expr *typedast.Expr) *Code {
	c := &Compiler{reg: reg, globals: globals, cur: newUnit(nil)}
	c.compileExpr(expr.Root)
	c.emit(OpReturn, 0)
	return c.cur.code
}

func (c *Compiler) emit(op Opcode, arg int32) int {
	c.cur.code.Instrs = append(c.cur.code.Instrs, Instr{Op: op, Arg: arg})
	return len(c.cur.code.Instrs) - 1
}

func (c *Compiler) emitJump(op Opcode) int { return c.emit(op, -1) }

func (c *Compiler) patch(idx, target int) { c.cur.code.Instrs[idx].Arg = int32(target) }

func (c *Compiler) here() int { return len(c.cur.code.Instrs) }

func (c *Compiler) internConstant(v value.Value) int {
	c.cur.code.Constants = append(c.cur.code.Constants, v)
	return len(c.cur.code.Constants) - 1
}

func (c *Compiler) internType(t *types.Type) int {
	for i, existing := range c.cur.code.Types {
		if existing.Equals(t) {
			return i
		}
	}
	c.cur.code.Types = append(c.cur.code.Types, t)
	return len(c.cur.code.Types) - 1
}

func (c *Compiler) internSignature(s string) int {
	for i, existing := range c.cur.code.Signatures {
		if existing == s {
			return i
		}
	}
	c.cur.code.Signatures = append(c.cur.code.Signatures, s)
	return len(c.cur.code.Signatures) - 1
}

func (c *Compiler) internFormat(f FormatTemplate) int {
	c.cur.code.Formats = append(c.cur.code.Formats, f)
	return len(c.cur.code.Formats) - 1
}

func (c *Compiler) emitLoad(b binding) {
	switch b.kind {
	case slotLocal:
		c.emit(OpLoadLocal, int32(b.idx))
	case slotCapture:
		c.emit(OpLoadCapture, int32(b.idx))
	case slotGlobal:
		c.emit(OpLoadGlobal, int32(b.idx))
	}
}

// compileExpr lowers n, leaving exactly one value on the operand stack.
func (c *Compiler) compileExpr(n typedast.Node) {
	switch e := n.(type) {
	case *typedast.IntLit:
		c.emit(OpConst, int32(c.internConstant(value.Int(c.reg, e.Value))))
	case *typedast.FloatLit:
		c.emit(OpConst, int32(c.internConstant(value.Float(c.reg, e.Value))))
	case *typedast.BoolLit:
		c.emit(OpConst, int32(c.internConstant(value.Bool(c.reg, e.Value))))
	case *typedast.StrLit:
		c.emit(OpConst, int32(c.internConstant(value.Str(c.reg, e.Value))))
	case *typedast.BytesLit:
		c.emit(OpConst, int32(c.internConstant(value.Bytes(c.reg, e.Value))))
	case *typedast.NoneLit:
		c.emit(OpPushType, int32(c.internType(e.ResolvedType())))
		c.emit(OpMakeNone, 0)
	case *typedast.SomeExpr:
		c.compileExpr(e.Value)
		c.emit(OpPushType, int32(c.internType(e.ResolvedType())))
		c.emit(OpMakeSome, 0)
	case *typedast.FormatStr:
		for _, x := range e.Exprs {
			c.compileExpr(x)
		}
		idx := c.internFormat(FormatTemplate{Strs: e.Strs})
		c.emit(OpFormat, int32(idx))
	case *typedast.Ident:
		c.emitLoad(c.resolve(c.cur, e.Name))
	case *typedast.ArrayLit:
		for _, el := range e.Elements {
			c.compileExpr(el)
		}
		c.emit(OpPushType, int32(c.internType(e.ResolvedType().Elem)))
		c.emit(OpMakeArray, int32(len(e.Elements)))
	case *typedast.RecordLit:
		c.compileRecordLit(e)
	case *typedast.MapLit:
		c.compileMapLit(e)
	case *typedast.FieldAccess:
		c.compileExpr(e.Target)
		c.emit(OpFieldGet, int32(e.FieldIdx))
	case *typedast.IndexAccess:
		c.compileExpr(e.Target)
		c.compileExpr(e.Index)
		c.emit(OpIndexGet, 0)
	case *typedast.Call:
		c.compileCall(e)
	case *typedast.Lambda:
		c.compileLambdaLiteral(e)
	case *typedast.Where:
		c.compileWhere(e)
	case *typedast.If:
		c.compileIf(e)
	case *typedast.Match:
		c.compileMatch(e)
	case *typedast.Otherwise:
		c.compileOtherwise(e)
	case *typedast.Cast:
		c.compileExpr(e.Value)
		c.emit(OpPushType, int32(c.internType(e.Target)))
		c.emit(OpCast, 0)
	case *typedast.Unary:
		c.compileExpr(e.Operand)
		switch e.Op {
		case ast.OpNeg:
			c.emit(OpNeg, 0)
		case ast.OpNot:
			c.emit(OpNot, 0)
		}
	case *typedast.Binary:
		c.compileBinary(e)
	default:
		panic("compiler: unhandled typedast node")
	}
}

func (c *Compiler) compileRecordLit(e *typedast.RecordLit) {
	rt := e.ResolvedType()
	byName := make(map[string]typedast.Node, len(e.Fields))
	for _, f := range e.Fields {
		byName[f.Name] = f.Value
	}
	for _, f := range rt.Fields {
		c.compileExpr(byName[f.Name])
	}
	c.emit(OpPushType, int32(c.internType(rt)))
	c.emit(OpMakeRecord, int32(len(rt.Fields)))
}

func (c *Compiler) compileMapLit(e *typedast.MapLit) {
	for _, entry := range e.Entries {
		c.compileExpr(entry.Key)
		c.compileExpr(entry.Value)
	}
	rt := e.ResolvedType()
	c.emit(OpPushType, int32(c.internType(rt.Key)))
	c.emit(OpPushType, int32(c.internType(rt.Value)))
	c.emit(OpMakeMap, int32(len(e.Entries)))
}

func (c *Compiler) compileCall(e *typedast.Call) {
	c.compileExpr(e.Callee)
	for _, a := range e.Args {
		c.compileExpr(a)
	}
	sig := e.Callee.ResolvedType().String()
	c.emit(OpCallSig, int32(c.internSignature(sig)))
	c.emit(OpCall, int32(len(e.Args)))
}

func (c *Compiler) compileIf(e *typedast.If) {
	c.compileExpr(e.Cond)
	elseJump := c.emitJump(OpPopJumpIfFalse)
	c.compileExpr(e.Then)
	endJump := c.emitJump(OpJump)
	c.patch(elseJump, c.here())
	c.compileExpr(e.Else)
	c.patch(endJump, c.here())
}

func (c *Compiler) compileOtherwise(e *typedast.Otherwise) {
	fallback := c.emitJump(OpPushOtherwise)
	c.compileExpr(e.Primary)
	c.emit(OpPopOtherwise, 0)
	endJump := c.emitJump(OpJump)
	c.patch(fallback, c.here())
	c.compileExpr(e.Fallback)
	c.patch(endJump, c.here())
}

func (c *Compiler) compileBinary(e *typedast.Binary) {
	switch e.Op {
	case ast.OpAnd:
		c.compileExpr(e.Left)
		skip := c.emitJump(OpJumpIfFalse)
		c.emit(OpPop, 0)
		c.compileExpr(e.Right)
		c.patch(skip, c.here())
		return
	case ast.OpOr:
		c.compileExpr(e.Left)
		skip := c.emitJump(OpJumpIfTrue)
		c.emit(OpPop, 0)
		c.compileExpr(e.Right)
		c.patch(skip, c.here())
		return
	}

	c.compileExpr(e.Left)
	c.compileExpr(e.Right)
	switch e.Op {
	case ast.OpAdd:
		c.emit(OpArith, int32(ArithAdd))
	case ast.OpSub:
		c.emit(OpArith, int32(ArithSub))
	case ast.OpMul:
		c.emit(OpArith, int32(ArithMul))
	case ast.OpDiv:
		c.emit(OpArith, int32(ArithDiv))
	case ast.OpPow:
		c.emit(OpArith, int32(ArithPow))
	case ast.OpLt:
		c.emit(OpCompare, int32(CmpLt))
	case ast.OpGt:
		c.emit(OpCompare, int32(CmpGt))
	case ast.OpLte:
		c.emit(OpCompare, int32(CmpLte))
	case ast.OpGte:
		c.emit(OpCompare, int32(CmpGte))
	case ast.OpEq:
		c.emit(OpEq, 0)
	case ast.OpNeq:
		c.emit(OpNeq, 0)
	case ast.OpIn:
		c.emit(OpContains, 0)
	case ast.OpNotIn:
		c.emit(OpContains, 1)
	}
}

func (c *Compiler) compileWhere(e *typedast.Where) {
	type saved struct {
		name string
		had  bool
		slot int
	}
	saves := make([]saved, len(e.Bindings))
	for i, b := range e.Bindings {
		prev, had := c.cur.locals[b.Name]
		saves[i] = saved{b.Name, had, prev}
		slot := c.cur.declareLocal(b.Name)
		if lam, ok := b.Value.(*typedast.Lambda); ok {
			c.compileLambdaLiteral(lam)
		} else {
			c.compileExpr(b.Value)
		}
		c.emit(OpStoreLocal, int32(slot))
	}
	c.compileExpr(e.Body)
	for _, s := range saves {
		if s.had {
			c.cur.locals[s.name] = s.slot
		} else {
			delete(c.cur.locals, s.name)
		}
	}
}

// compileLambdaLiteral compiles every instantiation of a lambda into
// its own child unit, then emits the capture loads (evaluated in the
// enclosing unit, before the closure is built) followed by
// OpMakeClosure (spec §4.3.3 "compiled to N specialized bodies plus a
// dispatch entry").
func (c *Compiler) compileLambdaLiteral(lam *typedast.Lambda) {
	tmpl := &LambdaTemplate{Captures: lam.Captures, Dispatch: map[string]any{}}
	for _, name := range tmpl.Captures {
		c.emitLoad(c.resolve(c.cur, name))
	}

	parent := c.cur
	for _, inst := range lam.Instantiations {
		fnType := c.reg.Function(inst.ParamTypes, inst.Body.ResolvedType())
		if tmpl.StaticType == nil {
			tmpl.StaticType = fnType
		}
		child := newUnit(parent)
		for _, name := range tmpl.Captures {
			child.captureIdx[name] = len(child.captures)
			child.captures = append(child.captures, name)
		}
		c.cur = child
		for _, p := range lam.Params {
			child.declareLocal(p.Name)
		}
		c.compileExpr(inst.Body)
		c.emit(OpReturn, 0)
		c.cur = parent
		tmpl.Dispatch[fnType.String()] = child.code
	}

	idx := len(c.cur.code.Lambdas)
	c.cur.code.Lambdas = append(c.cur.code.Lambdas, tmpl)
	c.emit(OpMakeClosure, int32(idx))
}

func (c *Compiler) compileMatch(m *typedast.Match) {
	c.compileExpr(m.Scrutinee)
	slot := c.cur.declareLocal("")
	c.emit(OpStoreLocal, int32(slot))

	var endJumps []int
	for i, arm := range m.Arms {
		c.emit(OpLoadLocal, int32(slot))
		fails := c.compilePatternTest(arm.Pattern)
		c.compileExpr(arm.Body)
		if i < len(m.Arms)-1 {
			endJumps = append(endJumps, c.emitJump(OpJump))
		}
		target := c.here()
		for _, f := range fails {
			c.patch(f, target)
		}
	}
	for _, j := range endJumps {
		c.patch(j, c.here())
	}
}

// compilePatternTest consumes the value the caller just pushed (the
// scrutinee for this pattern) and returns the jump instructions to
// patch to "try the next arm" on a failed match; a pattern that always
// succeeds (wildcard, var) returns nil.
func (c *Compiler) compilePatternTest(p typedast.Pattern) []int {
	switch pt := p.(type) {
	case typedast.WildcardPattern:
		c.emit(OpPop, 0)
		return nil
	case typedast.VarPattern:
		slot := c.cur.declareLocal(pt.Name)
		c.emit(OpStoreLocal, int32(slot))
		return nil
	case typedast.LiteralPattern:
		c.compileExpr(pt.Value)
		c.emit(OpEq, 0)
		return []int{c.emitJump(OpPopJumpIfFalse)}
	case typedast.NonePattern:
		return []int{c.emitJump(OpMatchNone)}
	case typedast.SomePattern:
		fail := c.emitJump(OpMatchSome)
		inner := c.compilePatternTest(pt.Inner)
		return append([]int{fail}, inner...)
	}
	return nil
}
