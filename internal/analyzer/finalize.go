package analyzer

import (
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/typedast"
	"github.com/melbi-lang/melbi/internal/types"
)

// defaultingTable decides, once inference and constraint solving are
// done, the final type for every TypeVar created during the compile.
// An unresolved var constrained Numeric defaults to Int; anything
// else unresolved is a "type annotation required" error (spec
// §4.3.2's defaulting rule).
type defaultingTable map[uint16]*types.Type

func (c *Checker) buildDefaulting() defaultingTable {
	numeric := map[uint16]bool{}
	for _, ct := range c.constraints {
		if ct.class != types.Numeric {
			continue
		}
		resolved := c.apply(ct.typ)
		if resolved.Kind == types.KTypeVar {
			numeric[resolved.Var] = true
		}
	}
	table := defaultingTable{}
	for _, v := range c.allVars {
		if _, bound := c.sub[v]; bound {
			continue
		}
		if numeric[v] {
			table[v] = c.Reg.Int()
			continue
		}
		span := c.varSpans[v]
		c.errorf(errors.TypAnnotationNeeded, span, "type annotation required: %s is never constrained to a concrete type", c.Reg.TypeVar(v))
		table[v] = c.Reg.Int() // keep the typed tree well-formed so later passes don't see a bare TypeVar
	}
	return table
}

// resolveFinal fully dereferences t: substitution first, then
// defaulting for anything still free.
func (c *Checker) resolveFinal(t *types.Type, table defaultingTable) *types.Type {
	t = c.apply(t)
	switch t.Kind {
	case types.KTypeVar:
		if resolved, ok := table[t.Var]; ok {
			return resolved
		}
		return c.Reg.Int()
	case types.KArray:
		return c.Reg.Array(c.resolveFinal(t.Elem, table))
	case types.KOption:
		return c.Reg.Option(c.resolveFinal(t.Elem, table))
	case types.KMap:
		return c.Reg.Map(c.resolveFinal(t.Key, table), c.resolveFinal(t.Value, table))
	case types.KRecord:
		fields := make([]types.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = types.Field{Name: f.Name, Type: c.resolveFinal(f.Type, table)}
		}
		rec, _ := c.Reg.Record(fields)
		return rec
	case types.KFunction:
		params := make([]*types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.resolveFinal(p, table)
		}
		return c.Reg.Function(params, c.resolveFinal(t.Ret, table))
	default:
		return t
	}
}

// finalizeTree walks every node reachable from root (including every
// lambda's every instantiation body, whether or not root reaches it
// directly through a Call) and rewrites its Type in place to the
// fully-resolved, fully-defaulted type.
func (c *Checker) finalizeTree(root typedast.Node, table defaultingTable) {
	seen := map[typedast.Node]bool{}
	var walk func(n typedast.Node)
	walk = func(n typedast.Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		switch node := n.(type) {
		case *typedast.IntLit:
			node.Type = c.resolveFinal(node.Type, table)
		case *typedast.FloatLit:
			node.Type = c.resolveFinal(node.Type, table)
		case *typedast.BoolLit:
			node.Type = c.resolveFinal(node.Type, table)
		case *typedast.StrLit:
			node.Type = c.resolveFinal(node.Type, table)
		case *typedast.BytesLit:
			node.Type = c.resolveFinal(node.Type, table)
		case *typedast.NoneLit:
			node.Type = c.resolveFinal(node.Type, table)
		case *typedast.SomeExpr:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Value)
		case *typedast.FormatStr:
			node.Type = c.resolveFinal(node.Type, table)
			for _, x := range node.Exprs {
				walk(x)
			}
		case *typedast.Ident:
			node.Type = c.resolveFinal(node.Type, table)
		case *typedast.ArrayLit:
			node.Type = c.resolveFinal(node.Type, table)
			for _, x := range node.Elements {
				walk(x)
			}
		case *typedast.RecordLit:
			node.Type = c.resolveFinal(node.Type, table)
			for i := range node.Fields {
				walk(node.Fields[i].Value)
			}
		case *typedast.MapLit:
			node.Type = c.resolveFinal(node.Type, table)
			for i := range node.Entries {
				walk(node.Entries[i].Key)
				walk(node.Entries[i].Value)
			}
		case *typedast.FieldAccess:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Target)
		case *typedast.IndexAccess:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Target)
			walk(node.Index)
		case *typedast.Call:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Callee)
			for _, a := range node.Args {
				walk(a)
			}
		case *typedast.Lambda:
			node.Type = c.resolveFinal(node.Type, table)
			for i := range node.Params {
				node.Params[i].Type = c.resolveFinal(node.Params[i].Type, table)
			}
			for i := range node.Instantiations {
				for j := range node.Instantiations[i].ParamTypes {
					node.Instantiations[i].ParamTypes[j] = c.resolveFinal(node.Instantiations[i].ParamTypes[j], table)
				}
				walk(node.Instantiations[i].Body)
			}
		case *typedast.Where:
			node.Type = c.resolveFinal(node.Type, table)
			for i := range node.Bindings {
				walk(node.Bindings[i].Value)
			}
			walk(node.Body)
		case *typedast.If:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Cond)
			walk(node.Then)
			walk(node.Else)
		case *typedast.Match:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Scrutinee)
			for i := range node.Arms {
				walkPattern(node.Arms[i].Pattern, walk)
				walk(node.Arms[i].Body)
			}
		case *typedast.Otherwise:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Primary)
			walk(node.Fallback)
		case *typedast.Cast:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Value)
		case *typedast.Unary:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Operand)
		case *typedast.Binary:
			node.Type = c.resolveFinal(node.Type, table)
			walk(node.Left)
			walk(node.Right)
		}
	}
	walk(root)
}

func walkPattern(p typedast.Pattern, walk func(typedast.Node)) {
	switch pt := p.(type) {
	case typedast.LiteralPattern:
		walk(pt.Value)
	case typedast.SomePattern:
		walkPattern(pt.Inner, walk)
	}
}
