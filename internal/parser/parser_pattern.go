package parser

import (
	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/lexer"
)

// parsePattern parses a single match-arm pattern (spec §4.2.3):
// a wildcard `_`, a binding name, a literal, `none`, or `some(pattern)`.
func (p *Parser) parsePattern() ast.Pattern {
	start := p.cur
	switch p.cur.Type {
	case lexer.IDENT:
		if p.cur.Literal == "_" {
			p.next()
			n := &ast.WildcardPattern{}
			p.build(n, start)
			return n
		}
		name := p.cur.Literal
		p.next()
		n := &ast.VarPattern{Name: name}
		p.build(n, start)
		return n
	case lexer.NONE:
		p.next()
		n := &ast.NonePattern{}
		p.build(n, start)
		return n
	case lexer.SOME:
		p.next()
		p.expect(lexer.LPAREN)
		inner := p.parsePattern()
		p.expect(lexer.RPAREN)
		n := &ast.SomePattern{Inner: inner}
		p.build(n, start)
		return n
	case lexer.INT, lexer.FLOAT, lexer.STRING, lexer.BYTES, lexer.TRUE, lexer.FALSE:
		lit := p.parsePrefix(start)
		n := &ast.LiteralPattern{Value: lit}
		p.build(n, start)
		return n
	case lexer.MINUS:
		// Negative numeric literal pattern, e.g. `-1 -> ...`.
		lit := p.parseUnary()
		n := &ast.LiteralPattern{Value: lit}
		p.build(n, start)
		return n
	default:
		p.errorf(errors.ParInvalidPattern, "unexpected token %s in pattern", p.cur.Type)
		p.next()
		n := &ast.WildcardPattern{}
		p.build(n, start)
		return n
	}
}
