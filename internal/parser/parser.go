// Package parser builds the AST from a token stream.
//
// The parser is recovering: an unexpected token inside a declaration
// records a finding and skips to the next top-level declaration, so one
// broken declaration does not hide findings in the rest of the file.
// Fatal lex errors (unterminated string or comment) abort the file.
package parser

import (
	"strconv"

	"github.com/varro-lang/varro/internal/ast"
	"github.com/varro-lang/varro/internal/diag"
	"github.com/varro-lang/varro/internal/lexer"
	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/vrange"
)

// Parse error codes (E11x).
const (
	ErrUnexpectedToken = "E110"
	ErrBadRange        = "E111"
	ErrBadLiteral      = "E112"
	ErrDuplicateAlias  = "E113"
)

var declKeywords = map[string]bool{
	"type": true, "interface": true, "enum": true, "tuple": true, "service": true,
}

// Parse lexes and parses one buffer. The file is always non-nil; when
// the bag carries errors the file holds whatever parsed cleanly.
func Parse(buf *source.Buffer) (*ast.File, *diag.Bag) {
	tokens, bag := lexer.Scan(buf)
	p := &parser{buf: buf, toks: tokens, bag: bag}
	file := &ast.File{Path: buf.Path}
	p.parseFile(file)
	return file, bag
}

type parser struct {
	buf  *source.Buffer
	toks []lexer.Token
	pos  int
	bag  *diag.Bag
}

func (p *parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *parser) peek() lexer.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) peekN(n int) lexer.Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() lexer.Token {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) at(kind lexer.Kind) bool { return p.cur().Kind == kind }

// expect consumes a token of the given kind or records an error.
func (p *parser) expect(kind lexer.Kind, what string) (lexer.Token, bool) {
	if p.at(kind) {
		return p.advance(), true
	}
	p.errorHere("expected %s", what)
	return p.cur(), false
}

func (p *parser) errorHere(format string, args ...any) {
	p.bag.Errorf(ErrUnexpectedToken, p.cur().Span, format, args...)
}

// meta is pending doc lines and attributes collected before an item.
type meta struct {
	doc   string
	attrs []*ast.Attribute
}

// collectMeta gathers consecutive doc comments and attributes. Doc
// lines concatenate with a single newline separator.
func (p *parser) collectMeta() meta {
	var m meta
	for {
		switch {
		case p.at(lexer.Doc):
			tok := p.advance()
			if m.doc != "" {
				m.doc += "\n"
			}
			m.doc += tok.Text
		case p.at(lexer.Hash):
			attr := p.parseAttribute()
			if attr != nil {
				m.attrs = append(m.attrs, attr)
			}
		default:
			return m
		}
	}
}

func (p *parser) parseFile(file *ast.File) {
	aliases := map[string]source.Span{}
	for !p.at(lexer.EOF) {
		m := p.collectMeta()
		switch {
		case p.cur().Is("use"):
			if m.doc != "" || len(m.attrs) > 0 {
				// File-level attributes bind to the file, not the use.
				file.Attrs = append(file.Attrs, m.attrs...)
			}
			if u := p.parseUse(); u != nil {
				if prev, ok := aliases[u.Alias]; ok {
					p.bag.Add(diag.Finding{
						Severity:  diag.Error,
						Code:      ErrDuplicateAlias,
						Message:   "alias " + u.Alias + " already in use",
						Span:      u.Span,
						Secondary: []source.Span{prev},
					})
				} else {
					aliases[u.Alias] = u.Span
					file.Uses = append(file.Uses, u)
				}
			}
		case declKeywords[p.cur().Text] && p.at(lexer.Ident):
			if d := p.parseDecl(m); d != nil {
				file.Decls = append(file.Decls, d)
			}
		case p.at(lexer.EOF):
			file.Attrs = append(file.Attrs, m.attrs...)
			return
		default:
			p.errorHere("expected declaration, found %q", p.tokenText())
			p.recoverTopLevel()
		}
	}
}

func (p *parser) tokenText() string {
	tok := p.cur()
	if tok.Text != "" {
		return tok.Text
	}
	return string(tok.Kind)
}

// recoverTopLevel skips tokens until the next plausible top-level
// declaration start, balancing braces along the way.
func (p *parser) recoverTopLevel() {
	depth := 0
	for !p.at(lexer.EOF) {
		switch p.cur().Kind {
		case lexer.LBrace:
			depth++
		case lexer.RBrace:
			if depth > 0 {
				depth--
			}
			p.advance()
			if depth == 0 {
				return
			}
			continue
		case lexer.Ident:
			if depth == 0 && (declKeywords[p.cur().Text] || p.cur().Is("use")) {
				return
			}
		}
		p.advance()
	}
}

// parseUse parses `use <path> ["<range>"] [as <alias>] ;`.
func (p *parser) parseUse() *ast.UseDecl {
	start := p.advance() // `use`
	u := &ast.UseDecl{Span: start.Span}

	pkg, ok := p.parseDottedPath()
	if !ok {
		p.recoverTopLevel()
		return nil
	}
	u.Package = pkg

	u.Range = vrange.Any()
	if p.at(lexer.String) {
		tok := p.advance()
		u.RangeRaw = tok.Text
		rng, err := vrange.ParseRange(tok.Text)
		if err != nil {
			p.bag.Errorf(ErrBadRange, tok.Span, "bad version requirement: %v", err)
		} else {
			u.Range = rng
		}
	}

	if p.cur().Is("as") {
		p.advance()
		tok, ok := p.expect(lexer.Ident, "alias identifier")
		if !ok {
			p.recoverTopLevel()
			return nil
		}
		u.Alias = tok.Text
	} else {
		parts := splitDotted(u.Package)
		u.Alias = parts[len(parts)-1]
	}

	if semi, ok := p.expect(lexer.Semi, "';' after use declaration"); ok {
		u.Span = u.Span.To(semi.Span)
	}
	return u
}

func (p *parser) parseDottedPath() (string, bool) {
	tok, ok := p.expect(lexer.Ident, "package path")
	if !ok {
		return "", false
	}
	path := tok.Text
	for p.at(lexer.Dot) {
		p.advance()
		seg, ok := p.expect(lexer.Ident, "package path segment")
		if !ok {
			return path, false
		}
		path += "." + seg.Text
	}
	return path, true
}

func splitDotted(path string) []string {
	var parts []string
	cur := ""
	for _, r := range path {
		if r == '.' {
			parts = append(parts, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	return append(parts, cur)
}

// parseAttribute parses `#[name]` or `#[name(args)]`.
func (p *parser) parseAttribute() *ast.Attribute {
	hash := p.advance() // `#`
	if _, ok := p.expect(lexer.LBracket, "'[' after '#'"); !ok {
		return nil
	}
	nameTok, ok := p.expect(lexer.Ident, "attribute name")
	if !ok {
		p.skipUntil(lexer.RBracket)
		return nil
	}
	attr := &ast.Attribute{Name: nameTok.Text, Span: hash.Span}

	if p.at(lexer.LParen) {
		p.advance()
		for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
			if p.at(lexer.Ident) && p.peek().Kind == lexer.Eq {
				keyTok := p.advance()
				p.advance() // `=`
				val, ok := p.parseAttrValue()
				if !ok {
					p.skipUntil(lexer.RBracket)
					return attr
				}
				attr.Values = append(attr.Values, ast.AttrKeyValue{
					Key: keyTok.Text, KeySpan: keyTok.Span, Value: val,
				})
			} else {
				val, ok := p.parseAttrValue()
				if !ok {
					p.skipUntil(lexer.RBracket)
					return attr
				}
				attr.Words = append(attr.Words, val)
			}
			if p.at(lexer.Comma) {
				p.advance()
			}
		}
		p.expect(lexer.RParen, "')' closing attribute arguments")
	}

	if end, ok := p.expect(lexer.RBracket, "']' closing attribute"); ok {
		attr.Span = attr.Span.To(end.Span)
	}
	return attr
}

func (p *parser) parseAttrValue() (ast.AttrValue, bool) {
	switch p.cur().Kind {
	case lexer.String:
		tok := p.advance()
		return ast.AttrValue{Kind: ast.AttrString, Str: tok.Text, Span: tok.Span}, true
	case lexer.Ident:
		tok := p.advance()
		return ast.AttrValue{Kind: ast.AttrIdent, Str: tok.Text, Span: tok.Span}, true
	case lexer.Number, lexer.Minus:
		n, span, ok := p.parseInt()
		if !ok {
			return ast.AttrValue{}, false
		}
		return ast.AttrValue{Kind: ast.AttrInt, Int: n, Span: span}, true
	default:
		p.errorHere("expected attribute value")
		return ast.AttrValue{}, false
	}
}

func (p *parser) parseInt() (int64, source.Span, bool) {
	neg := false
	span := p.cur().Span
	if p.at(lexer.Minus) {
		neg = true
		p.advance()
	}
	tok, ok := p.expect(lexer.Number, "number")
	if !ok {
		return 0, span, false
	}
	span = span.To(tok.Span)
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		p.bag.Errorf(ErrBadLiteral, tok.Span, "bad integer literal %q", tok.Text)
		return 0, span, false
	}
	if neg {
		n = -n
	}
	return n, span, true
}

func (p *parser) skipUntil(kind lexer.Kind) {
	for !p.at(kind) && !p.at(lexer.EOF) {
		p.advance()
	}
	if p.at(kind) {
		p.advance()
	}
}
