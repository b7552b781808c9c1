package analyzer

import "github.com/melbi-lang/melbi/internal/ast"

// freeVars walks body and returns the free identifiers referenced in
// it, excluding names in bound (lambda params plus any name already
// closed over by an enclosing scope), in first-discovery order with
// no duplicates. This is melbi's lambda-capture rule (spec §4.3.3):
// "the free identifiers of Body, minus Params, in discovery order."
//
// Purely syntactic — independent of type information — so it runs
// once per Lambda node regardless of how many concrete instantiations
// that lambda ends up with.
func freeVars(bound map[string]bool, body ast.Expr) []string {
	seen := map[string]bool{}
	var order []string
	record := func(name string) {
		if bound[name] || seen[name] {
			return
		}
		seen[name] = true
		order = append(order, name)
	}
	var walk func(n ast.Expr)
	var walkPattern func(p ast.Pattern, bind func(string))

	walkPattern = func(p ast.Pattern, bind func(string)) {
		switch pt := p.(type) {
		case *ast.VarPattern:
			bind(pt.Name)
		case *ast.SomePattern:
			walkPattern(pt.Inner, bind)
		case *ast.LiteralPattern:
			walk(pt.Value)
		}
	}

	walk = func(n ast.Expr) {
		switch e := n.(type) {
		case *ast.IntLit, *ast.FloatLit, *ast.BoolLit, *ast.StrLit, *ast.BytesLit, *ast.NoneLit:
			// no free identifiers
		case *ast.FormatStr:
			for _, x := range e.Exprs {
				walk(x)
			}
		case *ast.Ident:
			record(e.Name)
		case *ast.ArrayLit:
			for _, x := range e.Elements {
				walk(x)
			}
		case *ast.RecordLit:
			for _, f := range e.Fields {
				walk(f.Value)
			}
		case *ast.MapLit:
			for _, en := range e.Entries {
				walk(en.Key)
				walk(en.Value)
			}
		case *ast.FieldAccess:
			walk(e.Target)
		case *ast.IndexAccess:
			walk(e.Target)
			walk(e.Index)
		case *ast.Call:
			walk(e.Callee)
			for _, a := range e.Args {
				walk(a)
			}
		case *ast.Lambda:
			inner := make(map[string]bool, len(bound)+len(e.Params))
			for k := range bound {
				inner[k] = true
			}
			for _, p := range e.Params {
				inner[p.Name] = true
			}
			for _, nested := range freeVars(inner, e.Body) {
				record(nested)
			}
		case *ast.Where:
			local := make(map[string]bool, len(bound)+len(e.Bindings))
			for k := range bound {
				local[k] = true
			}
			// Bindings see each other and themselves (no recursion
			// allowed, but siblings are visible per spec's where-block
			// scoping), so collect names first.
			for _, b := range e.Bindings {
				local[b.Name] = true
			}
			savedBound := bound
			bound = local
			for _, b := range e.Bindings {
				walk(b.Value)
			}
			walk(e.Body)
			bound = savedBound
		case *ast.If:
			walk(e.Cond)
			walk(e.Then)
			walk(e.Else)
		case *ast.Match:
			walk(e.Scrutinee)
			for _, arm := range e.Arms {
				local := make(map[string]bool, len(bound))
				for k := range bound {
					local[k] = true
				}
				walkPattern(arm.Pattern, func(name string) { local[name] = true })
				savedBound := bound
				bound = local
				walk(arm.Body)
				bound = savedBound
			}
		case *ast.Otherwise:
			walk(e.Primary)
			walk(e.Fallback)
		case *ast.Cast:
			walk(e.Value)
		case *ast.SomeExpr:
			walk(e.Value)
		case *ast.Unary:
			walk(e.Operand)
		case *ast.Binary:
			walk(e.Left)
			walk(e.Right)
		}
	}
	walk(body)
	return order
}
