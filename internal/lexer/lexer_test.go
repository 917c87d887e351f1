package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varro-lang/varro/internal/source"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestScanSimpleType(t *testing.T) {
	buf := source.NewBuffer("test.varro", `type Post { title: string; }`)
	tokens, bag := Scan(buf)
	require.False(t, bag.HasErrors())

	assert.Equal(t, []Kind{
		Ident, Ident, LBrace, Ident, Colon, Ident, Semi, RBrace, EOF,
	}, kinds(tokens))
	assert.Equal(t, "type", tokens[0].Text)
	assert.Equal(t, "Post", tokens[1].Text)
}

func TestScanSpans(t *testing.T) {
	buf := source.NewBuffer("test.varro", "type Post")
	tokens, bag := Scan(buf)
	require.False(t, bag.HasErrors())

	assert.Equal(t, source.Span{Path: "test.varro", Start: 0, End: 4}, tokens[0].Span)
	assert.Equal(t, source.Span{Path: "test.varro", Start: 5, End: 9}, tokens[1].Span)
}

func TestScanPunctuation(t *testing.T) {
	buf := source.NewBuffer("test.varro", `:: -> [ ] { } ( ) ; , * ? # = . -`)
	tokens, bag := Scan(buf)
	require.False(t, bag.HasErrors())

	assert.Equal(t, []Kind{
		Scope, Arrow, LBracket, RBracket, LBrace, RBrace, LParen, RParen,
		Semi, Comma, Star, Question, Hash, Eq, Dot, Minus, EOF,
	}, kinds(tokens))
}

func TestScanStringEscapes(t *testing.T) {
	buf := source.NewBuffer("test.varro", `"a\nb\t\"c\" A"`)
	tokens, bag := Scan(buf)
	require.False(t, bag.HasErrors())

	require.Equal(t, String, tokens[0].Kind)
	assert.Equal(t, "a\nb\t\"c\" A", tokens[0].Text)
}

func TestScanUnterminatedStringIsFatal(t *testing.T) {
	buf := source.NewBuffer("test.varro", `type A { b: "oops`)
	tokens, bag := Scan(buf)

	assert.True(t, bag.HasErrors())
	findings := bag.Findings()
	require.NotEmpty(t, findings)
	assert.Equal(t, ErrUnterminatedString, findings[0].Code)
	// The stream still terminates with EOF so parsers see a bounded input.
	assert.Equal(t, EOF, tokens[len(tokens)-1].Kind)
}

func TestScanComments(t *testing.T) {
	src := "// line comment\n/* block\ncomment */ type"
	tokens, bag := Scan(source.NewBuffer("test.varro", src))
	require.False(t, bag.HasErrors())

	assert.Equal(t, []Kind{Ident, EOF}, kinds(tokens))
}

func TestScanUnterminatedBlockCommentIsFatal(t *testing.T) {
	_, bag := Scan(source.NewBuffer("test.varro", "/* never closed"))
	assert.True(t, bag.HasErrors())
	assert.Equal(t, ErrUnterminatedComment, bag.Findings()[0].Code)
}

func TestScanDocComments(t *testing.T) {
	src := "/// The post title.\n/// Second line.\ntype"
	tokens, bag := Scan(source.NewBuffer("test.varro", src))
	require.False(t, bag.HasErrors())

	require.Equal(t, Doc, tokens[0].Kind)
	assert.Equal(t, "The post title.", tokens[0].Text)
	require.Equal(t, Doc, tokens[1].Kind)
	assert.Equal(t, "Second line.", tokens[1].Text)
	assert.Equal(t, Ident, tokens[2].Kind)
}

func TestScanNumber(t *testing.T) {
	tokens, bag := Scan(source.NewBuffer("test.varro", "42"))
	require.False(t, bag.HasErrors())
	require.Equal(t, Number, tokens[0].Kind)
	assert.Equal(t, "42", tokens[0].Text)
}

func TestScanUnexpectedCharRecovers(t *testing.T) {
	tokens, bag := Scan(source.NewBuffer("test.varro", "type @ Post"))
	assert.True(t, bag.HasErrors())
	assert.Equal(t, ErrUnexpectedChar, bag.Findings()[0].Code)
	// Lexing continues past the bad character.
	assert.Equal(t, []Kind{Ident, Ident, EOF}, kinds(tokens))
}
