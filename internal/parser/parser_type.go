package parser

import (
	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/lexer"
)

// parseTypeExpr parses a type annotation or cast target (spec §4.2.1):
// a named primitive/symbol type, `[T]` array, `Option[T]`, `Map[K, V]`,
// `(T, ...) => T` function type, or `Record[name: T, ...]`.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	return p.parseTypeExprPrimary()
}

func (p *Parser) parseTypeExprPrimary() ast.TypeExpr {
	start := p.cur
	switch p.cur.Type {
	case lexer.IDENT:
		name := p.cur.Literal
		p.next()
		if name == "Map" && p.curIs(lexer.LBRACKET) {
			p.next()
			key := p.parseTypeExpr()
			p.expect(lexer.COMMA)
			val := p.parseTypeExpr()
			p.expect(lexer.RBRACKET)
			n := &ast.MapType{Key: key, Value: val}
			p.build(n, start)
			return n
		}
		if name == "Option" && p.curIs(lexer.LBRACKET) {
			p.next()
			elem := p.parseTypeExpr()
			p.expect(lexer.RBRACKET)
			n := &ast.OptionType{Elem: elem}
			p.build(n, start)
			return n
		}
		if name == "Record" && p.curIs(lexer.LBRACKET) {
			p.next()
			var fields []ast.TypedRecordField
			for !p.curIs(lexer.RBRACKET) && !p.curIs(lexer.EOF) {
				fname := p.cur.Literal
				p.expect(lexer.IDENT)
				p.expect(lexer.COLON)
				ftyp := p.parseTypeExpr()
				fields = append(fields, ast.TypedRecordField{Name: fname, Type: ftyp})
				if p.curIs(lexer.COMMA) {
					p.next()
				}
			}
			p.expect(lexer.RBRACKET)
			n := &ast.RecordTypeLit{Fields: fields}
			p.build(n, start)
			return n
		}
		n := &ast.NamedType{Name: name}
		p.build(n, start)
		return n
	case lexer.LBRACKET:
		p.next()
		elem := p.parseTypeExpr()
		p.expect(lexer.RBRACKET)
		n := &ast.ArrayType{Elem: elem}
		p.build(n, start)
		return n
	case lexer.LPAREN:
		p.next()
		var params []ast.TypeExpr
		for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
			params = append(params, p.parseTypeExpr())
			if p.curIs(lexer.COMMA) {
				p.next()
			}
		}
		p.expect(lexer.RPAREN)
		p.expect(lexer.ARROW)
		ret := p.parseTypeExpr()
		n := &ast.FuncType{Params: params, Ret: ret}
		p.build(n, start)
		return n
	default:
		p.errorf(errors.ParUnexpectedToken, "unexpected token %s in type", p.cur.Type)
		p.next()
		n := &ast.NamedType{Name: "Int"}
		p.build(n, start)
		return n
	}
}
