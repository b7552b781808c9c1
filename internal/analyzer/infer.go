package analyzer

import (
	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/typedast"
	"github.com/melbi-lang/melbi/internal/types"
)

// inferExpr type-checks one untyped expression node, extending the
// substitution and constraint set as it goes, and returns the typed
// node plus its resolved-so-far type (spec §4.3.2). Types returned
// here may still contain free TypeVars; solve() and finalize() run
// once, after the whole tree has been visited.
func (c *Checker) inferExpr(n ast.Expr) (typedast.Node, *types.Type) {
	span := c.spanOf(n)
	switch e := n.(type) {

	case *ast.IntLit:
		t := c.Reg.Int()
		return &typedast.IntLit{Base: typedast.Base{Type: t}, Value: e.Value}, t

	case *ast.FloatLit:
		t := c.Reg.Float()
		return &typedast.FloatLit{Base: typedast.Base{Type: t}, Value: e.Value}, t

	case *ast.BoolLit:
		t := c.Reg.Bool()
		return &typedast.BoolLit{Base: typedast.Base{Type: t}, Value: e.Value}, t

	case *ast.StrLit:
		t := c.Reg.Str()
		return &typedast.StrLit{Base: typedast.Base{Type: t}, Value: e.Value}, t

	case *ast.BytesLit:
		t := c.Reg.Bytes()
		return &typedast.BytesLit{Base: typedast.Base{Type: t}, Value: e.Value}, t

	case *ast.NoneLit:
		t := c.Reg.Option(c.freshAt(span))
		return &typedast.NoneLit{Base: typedast.Base{Type: t}}, t

	case *ast.SomeExpr:
		valNode, valType := c.inferExpr(e.Value)
		t := c.Reg.Option(valType)
		return &typedast.SomeExpr{Base: typedast.Base{Type: t}, Value: valNode}, t

	case *ast.FormatStr:
		exprs := make([]typedast.Node, len(e.Exprs))
		for i, x := range e.Exprs {
			node, _ := c.inferExpr(x)
			exprs[i] = node
		}
		strs := append([]string(nil), e.Strs...)
		t := c.Reg.Str()
		return &typedast.FormatStr{Base: typedast.Base{Type: t}, Strs: strs, Exprs: exprs}, t

	case *ast.Ident:
		if c.isSelfRef(e.Name) {
			c.errorf(errors.TypRecursiveBinding, span, "%q cannot reference itself in its own initializer: recursive lambdas are unsupported", e.Name)
			t := c.freshAt(span)
			return &typedast.Ident{Base: typedast.Base{Type: t}, Name: e.Name}, t
		}
		t, ok := c.lookup(e.Name)
		if !ok {
			c.errorf(errors.TypUnboundName, span, "unbound name %q", e.Name)
			t = c.freshAt(span)
		}
		return &typedast.Ident{Base: typedast.Base{Type: t}, Name: e.Name}, t

	case *ast.ArrayLit:
		if len(e.Elements) == 0 {
			t := c.Reg.Array(c.freshAt(span))
			return &typedast.ArrayLit{Base: typedast.Base{Type: t}}, t
		}
		nodes := make([]typedast.Node, len(e.Elements))
		first, elemType := c.inferExpr(e.Elements[0])
		nodes[0] = first
		for i := 1; i < len(e.Elements); i++ {
			node, t := c.inferExpr(e.Elements[i])
			c.unify(elemType, t, span)
			nodes[i] = node
		}
		t := c.Reg.Array(elemType)
		return &typedast.ArrayLit{Base: typedast.Base{Type: t}, Elements: nodes}, t

	case *ast.RecordLit:
		fields := make([]typedast.RecordField, len(e.Fields))
		typeFields := make([]types.Field, len(e.Fields))
		for i, f := range e.Fields {
			node, t := c.inferExpr(f.Value)
			fields[i] = typedast.RecordField{Name: f.Name, Value: node}
			typeFields[i] = types.Field{Name: f.Name, Type: t}
		}
		rec, err := c.Reg.Record(typeFields)
		if err != nil {
			c.errorf(errors.TypDuplicateField, span, "%s", err)
			rec = c.freshAt(span)
		}
		return &typedast.RecordLit{Base: typedast.Base{Type: rec}, Fields: fields}, rec

	case *ast.MapLit:
		if len(e.Entries) == 0 {
			t := c.Reg.Map(c.freshAt(span), c.freshAt(span))
			return &typedast.MapLit{Base: typedast.Base{Type: t}}, t
		}
		entries := make([]typedast.MapEntry, len(e.Entries))
		keyNode, keyType := c.inferExpr(e.Entries[0].Key)
		valNode, valType := c.inferExpr(e.Entries[0].Value)
		entries[0] = typedast.MapEntry{Key: keyNode, Value: valNode}
		for i := 1; i < len(e.Entries); i++ {
			kn, kt := c.inferExpr(e.Entries[i].Key)
			vn, vt := c.inferExpr(e.Entries[i].Value)
			c.unify(keyType, kt, span)
			c.unify(valType, vt, span)
			entries[i] = typedast.MapEntry{Key: kn, Value: vn}
		}
		c.addConstraint(types.Hashable, keyType, span, "map key")
		t := c.Reg.Map(keyType, valType)
		return &typedast.MapLit{Base: typedast.Base{Type: t}, Entries: entries}, t

	case *ast.FieldAccess:
		targetNode, targetType := c.inferExpr(e.Target)
		resolved := c.apply(targetType)
		switch resolved.Kind {
		case types.KRecord:
			idx := -1
			for i, f := range resolved.Fields {
				if f.Name == e.Field {
					idx = i
					break
				}
			}
			if idx < 0 {
				c.errorf(errors.TypUnifyMismatch, span, "record %s has no field %q", resolved, e.Field)
				t := c.freshAt(span)
				return &typedast.FieldAccess{Base: typedast.Base{Type: t}, Target: targetNode, Field: e.Field, FieldIdx: -1}, t
			}
			t := resolved.Fields[idx].Type
			return &typedast.FieldAccess{Base: typedast.Base{Type: t}, Target: targetNode, Field: e.Field, FieldIdx: idx}, t
		case types.KTypeVar:
			c.errorf(errors.TypAnnotationNeeded, span, "type annotation required to resolve field %q", e.Field)
			t := c.freshAt(span)
			return &typedast.FieldAccess{Base: typedast.Base{Type: t}, Target: targetNode, Field: e.Field, FieldIdx: -1}, t
		default:
			c.errorf(errors.TypUnifyMismatch, span, "%s is not a record", resolved)
			t := c.freshAt(span)
			return &typedast.FieldAccess{Base: typedast.Base{Type: t}, Target: targetNode, Field: e.Field, FieldIdx: -1}, t
		}

	case *ast.IndexAccess:
		targetNode, targetType := c.inferExpr(e.Target)
		indexNode, indexType := c.inferExpr(e.Index)
		c.addConstraint(types.Indexable, targetType, span, "index")
		resolved := c.apply(targetType)
		var resultType *types.Type
		switch resolved.Kind {
		case types.KArray:
			c.unify(indexType, c.Reg.Int(), span)
			resultType = resolved.Elem
		case types.KBytes:
			c.unify(indexType, c.Reg.Int(), span)
			resultType = c.Reg.Int()
		case types.KMap:
			c.unify(indexType, resolved.Key, span)
			resultType = resolved.Value
		default:
			resultType = c.freshAt(span)
		}
		return &typedast.IndexAccess{Base: typedast.Base{Type: resultType}, Target: targetNode, Index: indexNode}, resultType

	case *ast.Call:
		return c.inferCall(e, span)

	case *ast.Lambda:
		return c.inferPlainLambda(e, span)

	case *ast.Where:
		return c.inferWhere(e, span)

	case *ast.If:
		condNode, condType := c.inferExpr(e.Cond)
		c.unify(condType, c.Reg.Bool(), span)
		thenNode, thenType := c.inferExpr(e.Then)
		elseNode, elseType := c.inferExpr(e.Else)
		c.unify(thenType, elseType, span)
		return &typedast.If{Base: typedast.Base{Type: thenType}, Cond: condNode, Then: thenNode, Else: elseNode}, thenType

	case *ast.Match:
		return c.inferMatch(e, span)

	case *ast.Otherwise:
		primaryNode, primaryType := c.inferExpr(e.Primary)
		fallbackNode, fallbackType := c.inferExpr(e.Fallback)
		c.unify(primaryType, fallbackType, span)
		return &typedast.Otherwise{Base: typedast.Base{Type: primaryType}, Primary: primaryNode, Fallback: fallbackNode}, primaryType

	case *ast.Cast:
		valueNode, _ := c.inferExpr(e.Value)
		target := c.resolveTypeExpr(e.Target)
		return &typedast.Cast{Base: typedast.Base{Type: target}, Value: valueNode, Target: target}, target

	case *ast.Unary:
		operandNode, operandType := c.inferExpr(e.Operand)
		switch e.Op {
		case ast.OpNeg:
			c.addConstraint(types.Numeric, operandType, span, "unary -")
			return &typedast.Unary{Base: typedast.Base{Type: operandType}, Op: e.Op, Operand: operandNode}, operandType
		case ast.OpNot:
			c.unify(operandType, c.Reg.Bool(), span)
			t := c.Reg.Bool()
			return &typedast.Unary{Base: typedast.Base{Type: t}, Op: e.Op, Operand: operandNode}, t
		}
		t := c.freshAt(span)
		return &typedast.Unary{Base: typedast.Base{Type: t}, Op: e.Op, Operand: operandNode}, t

	case *ast.Binary:
		return c.inferBinary(e, span)

	default:
		c.errorf(errors.TypUnifyMismatch, span, "internal: unsupported expression node")
		t := c.freshAt(span)
		return &typedast.IntLit{Base: typedast.Base{Type: t}}, t
	}
}

func (c *Checker) inferBinary(e *ast.Binary, span errors.Span) (typedast.Node, *types.Type) {
	leftNode, leftType := c.inferExpr(e.Left)
	rightNode, rightType := c.inferExpr(e.Right)

	build := func(t *types.Type) (typedast.Node, *types.Type) {
		return &typedast.Binary{Base: typedast.Base{Type: t}, Op: e.Op, Left: leftNode, Right: rightNode}, t
	}

	switch e.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpPow:
		c.unify(leftType, rightType, span)
		c.addConstraint(types.Numeric, leftType, span, string(e.Op))
		return build(leftType)
	case ast.OpLt, ast.OpGt, ast.OpLte, ast.OpGte:
		c.unify(leftType, rightType, span)
		c.addConstraint(types.Ord, leftType, span, string(e.Op))
		return build(c.Reg.Bool())
	case ast.OpEq, ast.OpNeq:
		c.unify(leftType, rightType, span)
		return build(c.Reg.Bool())
	case ast.OpIn, ast.OpNotIn:
		c.addContainable(leftType, rightType, span)
		return build(c.Reg.Bool())
	case ast.OpAnd, ast.OpOr:
		c.unify(leftType, c.Reg.Bool(), span)
		c.unify(rightType, c.Reg.Bool(), span)
		return build(c.Reg.Bool())
	default:
		c.errorf(errors.TypUnifyMismatch, span, "internal: unsupported operator %q", e.Op)
		return build(c.freshAt(span))
	}
}

func (c *Checker) inferCall(e *ast.Call, span errors.Span) (typedast.Node, *types.Type) {
	if id, ok := e.Callee.(*ast.Ident); ok {
		if c.isSelfRef(id.Name) {
			c.errorf(errors.TypRecursiveBinding, span, "%q cannot call itself in its own initializer: recursive lambdas are unsupported", id.Name)
			t := c.freshAt(span)
			return &typedast.Ident{Base: typedast.Base{Type: t}, Name: id.Name}, t
		}
		if li, ok := c.lookupLambda(id.Name); ok {
			argNodes := make([]typedast.Node, len(e.Args))
			argTypes := make([]*types.Type, len(e.Args))
			for i, a := range e.Args {
				node, t := c.inferExpr(a)
				argNodes[i] = node
				argTypes[i] = c.apply(t)
			}
			idx, found := li.find(argTypes)
			if !found {
				idx = c.instantiate(li, argTypes, span)
			}
			inst := li.instantiations[idx]
			retType := inst.Body.ResolvedType()
			fnType := c.Reg.Function(inst.ParamTypes, retType)
			callee := &typedast.Ident{Base: typedast.Base{Type: fnType}, Name: id.Name}
			return &typedast.Call{Base: typedast.Base{Type: retType}, Callee: callee, Args: argNodes}, retType
		}
	}

	calleeNode, calleeType := c.inferExpr(e.Callee)
	argNodes := make([]typedast.Node, len(e.Args))
	argTypes := make([]*types.Type, len(e.Args))
	for i, a := range e.Args {
		node, t := c.inferExpr(a)
		argNodes[i] = node
		argTypes[i] = t
	}
	resolved := c.apply(calleeType)
	if resolved.Kind == types.KTypeVar {
		params := make([]*types.Type, len(argTypes))
		copy(params, argTypes)
		ret := c.freshAt(span)
		c.unify(resolved, c.Reg.Function(params, ret), span)
		return &typedast.Call{Base: typedast.Base{Type: ret}, Callee: calleeNode, Args: argNodes}, ret
	}
	if resolved.Kind != types.KFunction {
		c.errorf(errors.TypUnifyMismatch, span, "%s is not callable", resolved)
		t := c.freshAt(span)
		return &typedast.Call{Base: typedast.Base{Type: t}, Callee: calleeNode, Args: argNodes}, t
	}
	if len(resolved.Params) != len(argTypes) {
		c.errorf(errors.TypArityMismatch, span, "expected %d argument(s), found %d", len(resolved.Params), len(argTypes))
	} else {
		for i, p := range resolved.Params {
			c.unify(p, argTypes[i], span)
		}
	}
	return &typedast.Call{Base: typedast.Base{Type: resolved.Ret}, Callee: calleeNode, Args: argNodes}, resolved.Ret
}

// inferPlainLambda type-checks an anonymous lambda literal that is
// not the direct Value of a `where` binding: ordinary Algorithm-W,
// exactly one instantiation recorded up front (spec §4.3.3's "empty
// substitution set" case — compiled to a single monomorphic body).
// Any later unification against the call site that applies it (e.g.
// `((x) => x*2)(21)`) narrows its still-free parameter vars normally.
func (c *Checker) inferPlainLambda(e *ast.Lambda, span errors.Span) (typedast.Node, *types.Type) {
	li := &lambdaInfo{source: e, paramAST: e.Params}
	bound := make(map[string]bool, len(e.Params))
	for _, p := range e.Params {
		bound[p.Name] = true
	}
	li.captures = freeVars(bound, e.Body)
	c.instTable[e] = li

	c.pushScope()
	params := make([]typedast.Param, len(e.Params))
	paramTypes := make([]*types.Type, len(e.Params))
	for i, p := range e.Params {
		var pt *types.Type
		if p.Type != nil {
			pt = c.resolveTypeExpr(p.Type)
		} else {
			pt = c.freshAt(span)
		}
		c.define(p.Name, pt)
		params[i] = typedast.Param{Name: p.Name, Type: pt}
		paramTypes[i] = pt
	}
	bodyNode, bodyType := c.inferExpr(e.Body)
	c.popScope()

	li.instantiations = append(li.instantiations, typedast.Instantiation{ParamTypes: paramTypes, Body: bodyNode})
	fnType := c.Reg.Function(paramTypes, bodyType)
	node := &typedast.Lambda{
		Base:           typedast.Base{Type: fnType},
		Source:         e,
		Params:         params,
		Captures:       li.captures,
		Instantiations: li.instantiations,
	}
	c.lambdaNodes[e] = node
	return node, fnType
}

// instantiate checks li's body once against a concrete parameter-type
// tuple, records the result, and returns its index. Called both for a
// freshly-observed call-site argument tuple and (with fresh/annotated
// placeholder types) as the fallback for a binding never directly
// called by name.
func (c *Checker) instantiate(li *lambdaInfo, argTypes []*types.Type, span errors.Span) int {
	c.pushScope()
	params := make([]typedast.Param, len(li.paramAST))
	paramTypes := make([]*types.Type, len(li.paramAST))
	for i, p := range li.paramAST {
		pt := argTypes[i]
		if p.Type != nil {
			annotated := c.resolveTypeExpr(p.Type)
			c.unify(annotated, pt, span)
			pt = annotated
		}
		c.define(p.Name, pt)
		params[i] = typedast.Param{Name: p.Name, Type: pt}
		paramTypes[i] = pt
	}
	if li.name != "" {
		c.pushSelfRef(li.name)
	}
	bodyNode, _ := c.inferExpr(li.source.Body)
	if li.name != "" {
		c.popSelfRef()
	}
	c.popScope()
	li.instantiations = append(li.instantiations, typedast.Instantiation{ParamTypes: paramTypes, Body: bodyNode})
	return len(li.instantiations) - 1
}

func (c *Checker) inferWhere(e *ast.Where, span errors.Span) (typedast.Node, *types.Type) {
	c.pushScope()
	type pending struct {
		name   string
		lambda bool
		li     *lambdaInfo
		node   typedast.Node
	}
	plan := make([]pending, len(e.Bindings))

	for i, b := range e.Bindings {
		if lam, ok := b.Value.(*ast.Lambda); ok {
			li := &lambdaInfo{source: lam, paramAST: lam.Params, name: b.Name}
			bound := make(map[string]bool, len(lam.Params))
			for _, p := range lam.Params {
				bound[p.Name] = true
			}
			li.captures = freeVars(bound, lam.Body)
			c.instTable[lam] = li
			c.defineLambda(b.Name, li)
			// Placeholder type for non-call-site uses (e.g. passing the
			// binding around as a value); refined once an instantiation
			// exists, see below.
			placeholder := make([]*types.Type, len(lam.Params))
			for j, p := range lam.Params {
				if p.Type != nil {
					placeholder[j] = c.resolveTypeExpr(p.Type)
				} else {
					placeholder[j] = c.freshAt(span)
				}
			}
			c.define(b.Name, c.Reg.Function(placeholder, c.freshAt(span)))
			plan[i] = pending{name: b.Name, lambda: true, li: li}
		} else {
			node, t := c.inferExpr(b.Value)
			c.define(b.Name, t)
			plan[i] = pending{name: b.Name, node: node}
		}
	}

	bodyNode, bodyType := c.inferExpr(e.Body)

	// Every lambda binding that was never called by name still needs at
	// least one instantiation so the compiler always sees a non-empty
	// Instantiations slice (spec §4.3.3).
	for _, p := range plan {
		if p.lambda && len(p.li.instantiations) == 0 {
			argTypes := make([]*types.Type, len(p.li.paramAST))
			for j, param := range p.li.paramAST {
				if param.Type != nil {
					argTypes[j] = c.resolveTypeExpr(param.Type)
				} else {
					argTypes[j] = c.freshAt(span)
				}
			}
			c.instantiate(p.li, argTypes, span)
		}
	}

	bindings := make([]typedast.Binding, len(plan))
	for i, p := range plan {
		if p.lambda {
			first := p.li.instantiations[0]
			fnType := c.Reg.Function(first.ParamTypes, first.Body.ResolvedType())
			lambdaNode := &typedast.Lambda{
				Base:           typedast.Base{Type: fnType},
				Source:         p.li.source,
				Params:         paramsFromAST(p.li.paramAST, first.ParamTypes),
				Captures:       p.li.captures,
				Instantiations: p.li.instantiations,
			}
			c.lambdaNodes[p.li.source] = lambdaNode
			bindings[i] = typedast.Binding{Name: p.name, Value: lambdaNode}
		} else {
			bindings[i] = typedast.Binding{Name: p.name, Value: p.node}
		}
	}

	c.popScope()
	return &typedast.Where{Base: typedast.Base{Type: bodyType}, Bindings: bindings, Body: bodyNode}, bodyType
}

func paramsFromAST(astParams []ast.Param, paramTypes []*types.Type) []typedast.Param {
	out := make([]typedast.Param, len(astParams))
	for i, p := range astParams {
		out[i] = typedast.Param{Name: p.Name, Type: paramTypes[i]}
	}
	return out
}

func (c *Checker) inferMatch(e *ast.Match, span errors.Span) (typedast.Node, *types.Type) {
	scrutNode, scrutType := c.inferExpr(e.Scrutinee)
	arms := make([]typedast.MatchArm, len(e.Arms))
	var resultType *types.Type
	for i, arm := range e.Arms {
		c.pushScope()
		pat := c.checkPattern(arm.Pattern, scrutType, span)
		bodyNode, bodyType := c.inferExpr(arm.Body)
		c.popScope()
		if i == 0 {
			resultType = bodyType
		} else {
			c.unify(resultType, bodyType, span)
		}
		arms[i] = typedast.MatchArm{Pattern: pat, Body: bodyNode}
	}
	if resultType == nil {
		resultType = c.freshAt(span)
	}
	return &typedast.Match{Base: typedast.Base{Type: resultType}, Scrutinee: scrutNode, Arms: arms}, resultType
}

func (c *Checker) checkPattern(p ast.Pattern, scrutType *types.Type, span errors.Span) typedast.Pattern {
	switch pt := p.(type) {
	case *ast.WildcardPattern:
		return typedast.WildcardPattern{}
	case *ast.VarPattern:
		c.define(pt.Name, scrutType)
		return typedast.VarPattern{Name: pt.Name}
	case *ast.LiteralPattern:
		node, t := c.inferExpr(pt.Value)
		c.unify(t, scrutType, span)
		return typedast.LiteralPattern{Value: node}
	case *ast.NonePattern:
		c.unify(scrutType, c.Reg.Option(c.freshAt(span)), span)
		return typedast.NonePattern{}
	case *ast.SomePattern:
		inner := c.freshAt(span)
		c.unify(scrutType, c.Reg.Option(inner), span)
		return typedast.SomePattern{Inner: c.checkPattern(pt.Inner, inner, span)}
	default:
		return typedast.WildcardPattern{}
	}
}

func (c *Checker) resolveTypeExpr(te ast.TypeExpr) *types.Type {
	switch t := te.(type) {
	case *ast.NamedType:
		switch t.Name {
		case "Int":
			return c.Reg.Int()
		case "Float":
			return c.Reg.Float()
		case "Bool":
			return c.Reg.Bool()
		case "Str":
			return c.Reg.Str()
		case "Bytes":
			return c.Reg.Bytes()
		default:
			c.errorf(errors.TypUnboundName, c.spanOf(te), "unknown type %q", t.Name)
			return c.Reg.Int()
		}
	case *ast.ArrayType:
		return c.Reg.Array(c.resolveTypeExpr(t.Elem))
	case *ast.OptionType:
		return c.Reg.Option(c.resolveTypeExpr(t.Elem))
	case *ast.MapType:
		return c.Reg.Map(c.resolveTypeExpr(t.Key), c.resolveTypeExpr(t.Value))
	case *ast.FuncType:
		params := make([]*types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.resolveTypeExpr(p)
		}
		return c.Reg.Function(params, c.resolveTypeExpr(t.Ret))
	case *ast.RecordTypeLit:
		fields := make([]types.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = types.Field{Name: f.Name, Type: c.resolveTypeExpr(f.Type)}
		}
		rec, err := c.Reg.Record(fields)
		if err != nil {
			c.errorf(errors.TypDuplicateField, c.spanOf(te), "%s", err)
			return c.Reg.Int()
		}
		return rec
	default:
		c.errorf(errors.ParUnexpectedToken, c.spanOf(te), "unsupported type expression")
		return c.Reg.Int()
	}
}
