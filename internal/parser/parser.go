// Package parser implements melbi's depth-bounded Pratt parser over a
// PEG-style grammar (spec §4.2): source text to untyped AST.
//
// Grounded on the teacher's internal/parser/parser.go, which uses the
// exact same prefix/infix-function-table Pratt engine; melbi's grammar
// and precedence table are rebuilt from spec §4.2.1/§4.2.2 rather than
// AILANG's (melbi has no effect annotations, no module/import/test
// syntax — those AILANG parser files were dropped, see DESIGN.md).
package parser

import (
	"fmt"

	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/lexer"
)

// DefaultMaxDepth is the default nesting-depth limit (spec §4.2.4).
const DefaultMaxDepth = 500

// Precedence levels, low to high (spec §4.2.2).
const (
	LOWEST int = iota
	PrecLambda
	PrecWhere
	PrecMatch
	PrecOtherwise
	PrecIfPrefix
	PrecOr
	PrecAnd
	PrecNotPrefix
	PrecComparison
	PrecAddSub
	PrecMulDiv
	PrecUnaryMinusSome
	PrecPow
	PrecPostfix
)

var precedences = map[lexer.TokenType]int{
	lexer.OTHERWISE: PrecOtherwise,
	lexer.OR:        PrecOr,
	lexer.AND:       PrecAnd,
	lexer.EQ:        PrecComparison,
	lexer.NEQ:       PrecComparison,
	lexer.LT:        PrecComparison,
	lexer.GT:        PrecComparison,
	lexer.LTE:       PrecComparison,
	lexer.GTE:       PrecComparison,
	lexer.IN:        PrecComparison,
	lexer.NOT:       PrecComparison, // only valid as the `not in` infix form
	lexer.PLUS:      PrecAddSub,
	lexer.MINUS:     PrecAddSub,
	lexer.STAR:      PrecMulDiv,
	lexer.SLASH:     PrecMulDiv,
	lexer.CARET:     PrecPow,
	lexer.LPAREN:    PrecPostfix,
	lexer.LBRACKET:  PrecPostfix,
	lexer.DOT:       PrecPostfix,
	lexer.AS:        PrecPostfix,
}

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

// Parser turns a token stream into an untyped AST.
type Parser struct {
	l   *lexer.Lexer
	cur lexer.Token
	peek lexer.Token

	arena *ast.Arena
	diags []*errors.Diagnostic

	maxDepth int
	depth    int

	prefixFns map[lexer.TokenType]prefixParseFn
	infixFns  map[lexer.TokenType]infixParseFn
}

// New creates a Parser with the default depth limit.
func New(src string) *Parser {
	p := &Parser{
		l:        lexer.New(src),
		arena:    ast.NewArena(),
		maxDepth: DefaultMaxDepth,
	}
	p.prefixFns = map[lexer.TokenType]prefixParseFn{
		lexer.INT:           p.parseInt,
		lexer.FLOAT:         p.parseFloat,
		lexer.STRING:        p.parseString,
		lexer.BYTES:         p.parseBytes,
		lexer.TRUE:          p.parseBool,
		lexer.FALSE:         p.parseBool,
		lexer.NONE:          p.parseNone,
		lexer.SOME:          p.parseSome,
		lexer.IDENT:         p.parseIdentOrLambda,
		lexer.LPAREN:        p.parseParenOrLambda,
		lexer.LBRACKET:      p.parseArray,
		lexer.LBRACE:        p.parseBraceLiteral,
		lexer.MINUS:         p.parseUnary,
		lexer.NOT:           p.parseUnary,
		lexer.IF:            p.parseIf,
		lexer.FSTRING_START: p.parseFormatString,
		lexer.FSTRING_END:   p.parseFormatString,
	}
	p.infixFns = map[lexer.TokenType]infixParseFn{
		lexer.PLUS: p.parseBinary, lexer.MINUS: p.parseBinary,
		lexer.STAR: p.parseBinary, lexer.SLASH: p.parseBinary, lexer.CARET: p.parseBinary,
		lexer.EQ: p.parseBinary, lexer.NEQ: p.parseBinary,
		lexer.LT: p.parseBinary, lexer.GT: p.parseBinary,
		lexer.LTE: p.parseBinary, lexer.GTE: p.parseBinary,
		lexer.IN: p.parseBinary, lexer.AND: p.parseBinary, lexer.OR: p.parseBinary,
		lexer.LPAREN:    p.parseCall,
		lexer.LBRACKET:  p.parseIndex,
		lexer.DOT:       p.parseFieldAccess,
		lexer.AS:        p.parseCast,
		lexer.OTHERWISE: p.parseOtherwise,
		lexer.NOT:       p.parseNotIn,
	}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t lexer.TokenType) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peek.Type == t }

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curIs(t) {
		p.next()
		return true
	}
	p.errorf(errors.ParUnexpectedToken, "expected %s, got %s", t, p.cur.Type)
	return false
}

func (p *Parser) errorf(code, format string, args ...any) {
	sp := p.span(p.cur)
	p.diags = append(p.diags, errors.New(code, fmt.Sprintf(format, args...), sp))
}

func (p *Parser) span(tok lexer.Token) errors.Span {
	return errors.Span{StartLine: tok.Line, StartCol: tok.Column, EndLine: tok.Line, EndCol: tok.Column}
}

func (p *Parser) setSpan(n ast.Node, start lexer.Token) {
	p.arena.SetSpan(n, ast.Span{
		Start: ast.Pos{Line: start.Line, Column: start.Column, Offset: start.Offset},
		End:   ast.Pos{Line: p.cur.Line, Column: p.cur.Column, Offset: p.cur.Offset},
	})
}

func (p *Parser) enterDepth() bool {
	p.depth++
	if p.depth > p.maxDepth {
		p.errorf(errors.ParDepthExceeded, "expression nesting exceeds max depth %d", p.maxDepth)
		return false
	}
	return true
}
func (p *Parser) leaveDepth() { p.depth-- }

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peek.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseExpr is the package entry point: parse a whole expression,
// returning the AST arena (with spans), the root expression, and any
// diagnostics collected (parse failure is fatal per spec §4.3.4, but
// the caller decides what "fatal" means — ParseExpr always returns
// whatever it managed to build alongside diagnostics).
func ParseExpr(src string) (*ast.Arena, ast.Expr, []*errors.Diagnostic) {
	p := New(src)
	expr := p.parseExpression(LOWEST)
	if !p.curIs(lexer.EOF) {
		p.errorf(errors.ParUnexpectedToken, "unexpected trailing token %s", p.cur.Type)
	}
	return p.arena, expr, p.diags
}

func (p *Parser) parseExpression(precedence int) ast.Expr {
	if !p.enterDepth() {
		return nil
	}
	defer p.leaveDepth()

	start := p.cur
	left := p.parsePrefix(start)
	if left == nil {
		return nil
	}

	for !p.curIs(lexer.EOF) && precedence < p.curPrecedenceOfInfix() {
		infix, ok := p.infixFns[p.cur.Type]
		if !ok {
			break
		}
		left = infix(left)
	}
	for precedence < PrecWhere && (p.curIs(lexer.WHERE) || p.curIs(lexer.MATCH)) {
		if p.curIs(lexer.WHERE) {
			left = p.parseWhereSuffix(left, start)
		} else {
			left = p.parseMatchSuffix(left, start)
		}
	}
	return left
}

// curPrecedenceOfInfix mirrors peekPrecedence but for the *current*
// token, since this parser, like the teacher's, advances to the
// operator before dispatching to its infix handler.
func (p *Parser) curPrecedenceOfInfix() int {
	if pr, ok := precedences[p.cur.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) parsePrefix(start lexer.Token) ast.Expr {
	// Lambdas are prefix forms reached via parseIdentOrLambda/
	// parseParenOrLambda; `where` and `match` suffixes are attached by
	// parseExpression after its infix loop, not here.
	fn, ok := p.prefixFns[p.cur.Type]
	if !ok {
		p.errorf(errors.ParUnexpectedToken, "unexpected token %s in expression", p.cur.Type)
		p.next()
		return nil
	}
	return fn()
}

func (p *Parser) parseWhereSuffix(expr ast.Expr, start lexer.Token) ast.Expr {
	p.next()
	p.expect(lexer.LBRACE)
	var bindings []ast.Binding
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		name := p.cur.Literal
		p.expect(lexer.IDENT)
		p.expect(lexer.ASSIGN)
		val := p.parseExpression(LOWEST)
		bindings = append(bindings, ast.Binding{Name: name, Value: val})
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	w := &ast.Where{Body: expr, Bindings: bindings}
	p.setSpan(w, start)
	return w
}

// parseMatchSuffix parses melbi's postfix pattern match,
// `scrutinee match { pattern -> expr, ... }` (spec §4.2.2 groups
// `match` postfix with `where` postfix at the lowest precedence band).
// `=>` is accepted in place of `->` between a pattern and its body.
func (p *Parser) parseMatchSuffix(expr ast.Expr, start lexer.Token) ast.Expr {
	p.next() // consume `match`
	p.expect(lexer.LBRACE)
	var arms []ast.MatchArm
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		pat := p.parsePattern()
		if p.curIs(lexer.MINUS) && p.peekIs(lexer.GT) {
			p.next() // `->` lexes as MINUS GT
			p.next()
		} else if !p.expect(lexer.ARROW) {
			break
		}
		body := p.parseExpression(LOWEST)
		arms = append(arms, ast.MatchArm{Pattern: pat, Body: body})
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	m := &ast.Match{Scrutinee: expr, Arms: arms}
	p.setSpan(m, start)
	return m
}
