package parser

import (
	"strconv"

	"github.com/melbi-lang/melbi/internal/ast"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/lexer"
)

func (p *Parser) build(n ast.Node, start lexer.Token) ast.Node {
	p.setSpan(n, start)
	return n
}

func (p *Parser) parseInt() ast.Expr {
	start := p.cur
	v, err := strconv.ParseInt(trimSuffix(p.cur.Literal), 10, 64)
	if err != nil {
		p.errorf(errors.ParInvalidLiteral, "invalid integer literal %q", p.cur.Literal)
	}
	p.next()
	n := &ast.IntLit{Value: v}
	p.build(n, start)
	return n
}

func (p *Parser) parseFloat() ast.Expr {
	start := p.cur
	v, err := strconv.ParseFloat(trimSuffix(p.cur.Literal), 64)
	if err != nil {
		p.errorf(errors.ParInvalidLiteral, "invalid float literal %q", p.cur.Literal)
	}
	p.next()
	n := &ast.FloatLit{Value: v}
	p.build(n, start)
	return n
}

// trimSuffix drops a trailing alphabetic literal suffix (spec §4.2.1)
// before numeric parsing; melbi's core does not assign suffixes
// separate semantics, so they are accepted syntactically and ignored,
// matching spec's silence on what they mean beyond "numeric ...
// literals (with suffix)".
func trimSuffix(lit string) string {
	i := len(lit)
	for i > 0 && isAlpha(lit[i-1]) {
		i--
	}
	return lit[:i]
}
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func (p *Parser) parseString() ast.Expr {
	start := p.cur
	n := &ast.StrLit{Value: p.cur.Literal}
	p.next()
	p.build(n, start)
	return n
}

func (p *Parser) parseBytes() ast.Expr {
	start := p.cur
	n := &ast.BytesLit{Value: []byte(p.cur.Literal)}
	p.next()
	p.build(n, start)
	return n
}

func (p *Parser) parseBool() ast.Expr {
	start := p.cur
	n := &ast.BoolLit{Value: p.cur.Type == lexer.TRUE}
	p.next()
	p.build(n, start)
	return n
}

func (p *Parser) parseNone() ast.Expr {
	start := p.cur
	p.next()
	n := &ast.NoneLit{}
	p.build(n, start)
	return n
}

func (p *Parser) parseSome() ast.Expr {
	start := p.cur
	p.next()
	val := p.parseExpression(PrecUnaryMinusSome)
	n := &ast.SomeExpr{Value: val}
	p.build(n, start)
	return n
}

// parseIdentOrLambda handles a bare identifier, or the start of a
// parenthesised/typed lambda parameter list disambiguated elsewhere;
// a single bare identifier followed by `=>` is the one-param,
// no-parens lambda shorthand.
func (p *Parser) parseIdentOrLambda() ast.Expr {
	start := p.cur
	name := p.cur.Literal
	if p.peekIs(lexer.ARROW) {
		p.next() // consume ident
		p.next() // consume =>
		body := p.parseExpression(PrecLambda)
		n := &ast.Lambda{Params: []ast.Param{{Name: name}}, Body: body}
		p.build(n, start)
		return n
	}
	p.next()
	n := &ast.Ident{Name: name}
	p.build(n, start)
	return n
}

// parseParenOrLambda disambiguates `(expr)`, `()`, and `(params) =>
// body` by scanning ahead; melbi's grammar makes this decidable by
// checking for `)` immediately followed by `=>`, or an empty `()=>`.
func (p *Parser) parseParenOrLambda() ast.Expr {
	start := p.cur
	if p.isLambdaAhead() {
		return p.parseLambda(start)
	}
	p.next() // consume (
	expr := p.parseExpression(LOWEST)
	p.expect(lexer.RPAREN)
	return expr
}

// isLambdaAhead performs a bounded lookahead scan (without consuming
// tokens from the real cursor — it walks a throwaway lexer clone) to
// decide whether `(` opens a lambda parameter list.
func (p *Parser) isLambdaAhead() bool {
	clone := *p.l
	cur, peek := p.cur, p.peek
	depth := 0
	for {
		if cur.Type == lexer.LPAREN {
			depth++
		} else if cur.Type == lexer.RPAREN {
			depth--
			if depth == 0 {
				return peek.Type == lexer.ARROW
			}
		} else if cur.Type == lexer.EOF {
			return false
		}
		cur = peek
		peek = clone.NextToken()
	}
}

func (p *Parser) parseLambda(start lexer.Token) ast.Expr {
	p.expect(lexer.LPAREN)
	var params []ast.Param
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		name := p.cur.Literal
		p.expect(lexer.IDENT)
		var typ ast.TypeExpr
		if p.curIs(lexer.COLON) {
			p.next()
			typ = p.parseTypeExpr()
		}
		params = append(params, ast.Param{Name: name, Type: typ})
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RPAREN)
	p.expect(lexer.ARROW)
	body := p.parseExpression(PrecLambda)
	n := &ast.Lambda{Params: params, Body: body}
	p.build(n, start)
	return n
}

func (p *Parser) parseArray() ast.Expr {
	start := p.cur
	p.next() // [
	var elems []ast.Expr
	for !p.curIs(lexer.RBRACKET) && !p.curIs(lexer.EOF) {
		elems = append(elems, p.parseExpression(LOWEST))
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACKET)
	n := &ast.ArrayLit{Elements: elems}
	p.build(n, start)
	return n
}

// parseBraceLiteral disambiguates `{ name = expr, ... }` (record) from
// `{ key: value, ... }` (map) by checking the token after the first
// identifier/key.
func (p *Parser) parseBraceLiteral() ast.Expr {
	start := p.cur
	p.next() // {
	if p.curIs(lexer.RBRACE) {
		p.next()
		n := &ast.RecordLit{}
		p.build(n, start)
		return n
	}
	// Disambiguate: IDENT '=' starts a record field; anything else
	// parses as a map entry `key: value`.
	if p.curIs(lexer.IDENT) && p.peekIs(lexer.ASSIGN) {
		var fields []ast.RecordField
		for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
			name := p.cur.Literal
			p.expect(lexer.IDENT)
			p.expect(lexer.ASSIGN)
			val := p.parseExpression(LOWEST)
			fields = append(fields, ast.RecordField{Name: name, Value: val})
			if p.curIs(lexer.COMMA) {
				p.next()
			}
		}
		p.expect(lexer.RBRACE)
		n := &ast.RecordLit{Fields: fields}
		p.build(n, start)
		return n
	}
	var entries []ast.MapEntry
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		key := p.parseExpression(LOWEST)
		p.expect(lexer.COLON)
		val := p.parseExpression(LOWEST)
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	n := &ast.MapLit{Entries: entries}
	p.build(n, start)
	return n
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.cur
	var op ast.UnaryOp
	var prec int
	switch p.cur.Type {
	case lexer.MINUS:
		op, prec = ast.OpNeg, PrecUnaryMinusSome
	case lexer.NOT:
		op, prec = ast.OpNot, PrecNotPrefix
	}
	p.next()
	operand := p.parseExpression(prec)
	n := &ast.Unary{Op: op, Operand: operand}
	p.build(n, start)
	return n
}

func (p *Parser) parseIf() ast.Expr {
	start := p.cur
	p.next() // if
	cond := p.parseExpression(PrecIfPrefix)
	p.expect(lexer.THEN)
	then := p.parseExpression(PrecIfPrefix)
	p.expect(lexer.ELSE)
	els := p.parseExpression(PrecIfPrefix)
	n := &ast.If{Cond: cond, Then: then, Else: els}
	p.build(n, start)
	return n
}

func (p *Parser) parseFormatString() ast.Expr {
	start := p.cur
	strs := []string{p.cur.Literal}
	var exprs []ast.Expr
	if p.cur.Type == lexer.FSTRING_END {
		p.next()
		n := &ast.FormatStr{Strs: strs, Exprs: exprs}
		p.build(n, start)
		return n
	}
	p.next() // consume FSTRING_START
	for {
		exprs = append(exprs, p.parseExpression(LOWEST))
		strs = append(strs, p.cur.Literal)
		if p.cur.Type == lexer.FSTRING_END {
			p.next()
			break
		}
		if p.cur.Type != lexer.FSTRING_MID {
			p.errorf(errors.ParUnexpectedToken, "unterminated format string")
			break
		}
		p.next()
	}
	n := &ast.FormatStr{Strs: strs, Exprs: exprs}
	p.build(n, start)
	return n
}

var binOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.PLUS: ast.OpAdd, lexer.MINUS: ast.OpSub, lexer.STAR: ast.OpMul,
	lexer.SLASH: ast.OpDiv, lexer.CARET: ast.OpPow,
	lexer.EQ: ast.OpEq, lexer.NEQ: ast.OpNeq,
	lexer.LT: ast.OpLt, lexer.GT: ast.OpGt, lexer.LTE: ast.OpLte, lexer.GTE: ast.OpGte,
	lexer.IN: ast.OpIn, lexer.AND: ast.OpAnd, lexer.OR: ast.OpOr,
}

func (p *Parser) parseBinary(left ast.Expr) ast.Expr {
	start := p.cur
	opTok := p.cur.Type
	op := binOps[opTok]
	prec := precedences[opTok]
	p.next()
	right := p.parseExpression(prec)
	n := &ast.Binary{Op: op, Left: left, Right: right}
	p.build(n, start)
	return n
}

// parseNotIn handles the two-keyword infix operator `not in` (spec
// §4.2.1's comparison set includes `in` and `not in`); `not` has no
// other valid meaning in infix position, so seeing it there always
// commits to this form.
func (p *Parser) parseNotIn(left ast.Expr) ast.Expr {
	start := p.cur
	p.next() // not
	p.expect(lexer.IN)
	right := p.parseExpression(PrecComparison)
	n := &ast.Binary{Op: ast.OpNotIn, Left: left, Right: right}
	p.build(n, start)
	return n
}

func (p *Parser) parseCall(callee ast.Expr) ast.Expr {
	start := p.cur
	p.next() // (
	var args []ast.Expr
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		args = append(args, p.parseExpression(LOWEST))
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RPAREN)
	n := &ast.Call{Callee: callee, Args: args}
	p.build(n, start)
	return n
}

func (p *Parser) parseIndex(target ast.Expr) ast.Expr {
	start := p.cur
	p.next() // [
	idx := p.parseExpression(LOWEST)
	p.expect(lexer.RBRACKET)
	n := &ast.IndexAccess{Target: target, Index: idx}
	p.build(n, start)
	return n
}

func (p *Parser) parseFieldAccess(target ast.Expr) ast.Expr {
	start := p.cur
	p.next() // .
	name := p.cur.Literal
	p.expect(lexer.IDENT)
	n := &ast.FieldAccess{Target: target, Field: name}
	p.build(n, start)
	return n
}

func (p *Parser) parseCast(value ast.Expr) ast.Expr {
	start := p.cur
	p.next() // as
	target := p.parseTypeExpr()
	n := &ast.Cast{Value: value, Target: target}
	p.build(n, start)
	return n
}

func (p *Parser) parseOtherwise(primary ast.Expr) ast.Expr {
	start := p.cur
	p.next() // otherwise
	fallback := p.parseExpression(PrecOtherwise)
	n := &ast.Otherwise{Primary: primary, Fallback: fallback}
	p.build(n, start)
	return n
}
