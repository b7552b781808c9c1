package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/melbi-lang/melbi/internal/lexer"
)

func tokenTypes(src string) []lexer.TokenType {
	l := lexer.New(src)
	var out []lexer.TokenType
	for {
		tok := l.NextToken()
		out = append(out, tok.Type)
		if tok.Type == lexer.EOF {
			return out
		}
	}
}

func TestBasicTokens(t *testing.T) {
	got := tokenTypes("1 + 2")
	require.Equal(t, []lexer.TokenType{lexer.INT, lexer.PLUS, lexer.INT, lexer.EOF}, got)
}

func TestKeywords(t *testing.T) {
	l := lexer.New("if x then y else z")
	require.Equal(t, lexer.IF, l.NextToken().Type)
	require.Equal(t, lexer.IDENT, l.NextToken().Type)
	require.Equal(t, lexer.THEN, l.NextToken().Type)
}

func TestStringEscapes(t *testing.T) {
	l := lexer.New(`"a\nb\x41é"`)
	tok := l.NextToken()
	require.Equal(t, lexer.STRING, tok.Type)
	require.Equal(t, "a\nbAé", tok.Literal)
}

func TestFormatStringNoExprs(t *testing.T) {
	l := lexer.New(`f"hello {{world}}"`)
	tok := l.NextToken()
	require.Equal(t, lexer.FSTRING_END, tok.Type)
	require.Equal(t, "hello {world}", tok.Literal)
}

func TestFormatStringWithExpr(t *testing.T) {
	l := lexer.New(`f"x={x}!"`)
	start := l.NextToken()
	require.Equal(t, lexer.FSTRING_START, start.Type)
	require.Equal(t, "x=", start.Literal)

	ident := l.NextToken()
	require.Equal(t, lexer.IDENT, ident.Type)
	require.Equal(t, "x", ident.Literal)

	end := l.NextToken()
	require.Equal(t, lexer.FSTRING_END, end.Type)
	require.Equal(t, "!", end.Literal)
}

func TestFormatStringWithNestedRecordBraces(t *testing.T) {
	// the embedded expression itself contains braces (a record literal);
	// the lexer must not treat the record's closing brace as the
	// f-string's own closing delimiter.
	l := lexer.New(`f"r={ {a = 1} }"`)
	require.Equal(t, lexer.FSTRING_START, l.NextToken().Type)
	require.Equal(t, lexer.LBRACE, l.NextToken().Type)
	require.Equal(t, lexer.IDENT, l.NextToken().Type)
	require.Equal(t, lexer.ASSIGN, l.NextToken().Type)
	require.Equal(t, lexer.INT, l.NextToken().Type)
	require.Equal(t, lexer.RBRACE, l.NextToken().Type)
	end := l.NextToken()
	require.Equal(t, lexer.FSTRING_END, end.Type)
}

func TestBytesLiteral(t *testing.T) {
	l := lexer.New(`b"ab\x00"`)
	tok := l.NextToken()
	require.Equal(t, lexer.BYTES, tok.Type)
	require.Equal(t, "ab\x00", tok.Literal)
}
