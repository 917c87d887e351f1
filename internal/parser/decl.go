package parser

import (
	"github.com/varro-lang/varro/internal/ast"
	"github.com/varro-lang/varro/internal/lexer"
)

// parseDecl parses one declaration starting at its keyword.
func (p *parser) parseDecl(m meta) ast.Decl {
	keyword := p.advance()
	nameTok, ok := p.expect(lexer.Ident, "declaration name")
	if !ok {
		p.recoverTopLevel()
		return nil
	}

	header := ast.DeclHeader{
		Name:  nameTok.Text,
		Span:  keyword.Span.To(nameTok.Span),
		Doc:   m.doc,
		Attrs: m.attrs,
	}

	switch keyword.Text {
	case "type":
		return p.parseTypeBody(header)
	case "interface":
		return p.parseInterfaceBody(header)
	case "enum":
		return p.parseEnumBody(header)
	case "tuple":
		return p.parseTupleBody(header)
	case "service":
		return p.parseServiceBody(header)
	}
	p.errorHere("expected declaration keyword")
	p.recoverTopLevel()
	return nil
}

// atNestedDecl reports whether the current position starts a nested
// declaration: a decl keyword followed by a name and a body opener.
func (p *parser) atNestedDecl() bool {
	if !p.at(lexer.Ident) || !declKeywords[p.cur().Text] {
		return false
	}
	if p.peek().Kind != lexer.Ident {
		return false
	}
	next := p.peekN(2)
	// `enum Name as prim {` and the others `Name {`.
	return next.Kind == lexer.LBrace || next.Is("as")
}

func (p *parser) parseTypeBody(header ast.DeclHeader) ast.Decl {
	d := &ast.TypeDecl{DeclHeader: header}
	if _, ok := p.expect(lexer.LBrace, "'{' opening type body"); !ok {
		p.recoverTopLevel()
		return nil
	}
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		m := p.collectMeta()
		switch {
		case p.atNestedDecl():
			if nested := p.parseDecl(m); nested != nil {
				d.Decls = append(d.Decls, nested)
			}
		case p.at(lexer.Ident):
			f := p.parseField(m)
			if f == nil {
				// parseField already recovered to the next top-level
				// declaration; stop consuming this body.
				return d
			}
			d.Fields = append(d.Fields, f)
		default:
			p.errorHere("expected field or nested declaration, found %q", p.tokenText())
			p.recoverTopLevel()
			return d
		}
	}
	p.expect(lexer.RBrace, "'}' closing type body")
	return d
}

func (p *parser) parseInterfaceBody(header ast.DeclHeader) ast.Decl {
	d := &ast.InterfaceDecl{DeclHeader: header}
	if _, ok := p.expect(lexer.LBrace, "'{' opening interface body"); !ok {
		p.recoverTopLevel()
		return nil
	}
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		m := p.collectMeta()
		switch {
		case p.atNestedDecl():
			if nested := p.parseDecl(m); nested != nil {
				d.Decls = append(d.Decls, nested)
			}
		case p.at(lexer.Ident) && (p.peek().Kind == lexer.Colon || p.peek().Kind == lexer.Question):
			f := p.parseField(m)
			if f == nil {
				return d
			}
			d.Fields = append(d.Fields, f)
		case p.at(lexer.Ident):
			sub := p.parseSubType(m)
			if sub == nil {
				return d
			}
			d.SubTypes = append(d.SubTypes, sub)
		default:
			p.errorHere("expected field or sub-type, found %q", p.tokenText())
			p.recoverTopLevel()
			return d
		}
	}
	p.expect(lexer.RBrace, "'}' closing interface body")
	return d
}

// parseSubType parses `A;`, `A as "foo";`, or `A { fields }`.
func (p *parser) parseSubType(m meta) *ast.SubType {
	nameTok := p.advance()
	sub := &ast.SubType{
		Name:  nameTok.Text,
		Span:  nameTok.Span,
		Doc:   m.doc,
		Attrs: m.attrs,
	}

	if p.cur().Is("as") {
		p.advance()
		tok, ok := p.expect(lexer.String, "wire name string")
		if !ok {
			p.recoverTopLevel()
			return nil
		}
		sub.Alias = tok.Text
	}

	switch {
	case p.at(lexer.Semi):
		end := p.advance()
		sub.Span = sub.Span.To(end.Span)
		return sub
	case p.at(lexer.LBrace):
		sub.Body = true
		p.advance()
		for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
			fm := p.collectMeta()
			switch {
			case p.atNestedDecl():
				if nested := p.parseDecl(fm); nested != nil {
					sub.Decls = append(sub.Decls, nested)
				}
			case p.at(lexer.Ident):
				f := p.parseField(fm)
				if f == nil {
					return sub
				}
				sub.Fields = append(sub.Fields, f)
			default:
				p.errorHere("expected field in sub-type body, found %q", p.tokenText())
				p.recoverTopLevel()
				return sub
			}
		}
		if end, ok := p.expect(lexer.RBrace, "'}' closing sub-type body"); ok {
			sub.Span = sub.Span.To(end.Span)
		}
		return sub
	default:
		p.errorHere("expected ';' or '{' after sub-type name")
		p.recoverTopLevel()
		return nil
	}
}

func (p *parser) parseEnumBody(header ast.DeclHeader) ast.Decl {
	d := &ast.EnumDecl{DeclHeader: header}

	if !p.cur().Is("as") {
		p.errorHere("expected 'as' and a primitive type after enum name")
		p.recoverTopLevel()
		return nil
	}
	p.advance()
	primTok, ok := p.expect(lexer.Ident, "primitive type")
	if !ok {
		p.recoverTopLevel()
		return nil
	}
	prim, known := ast.Primitives[primTok.Text]
	if !known {
		p.bag.Errorf(ErrUnexpectedToken, primTok.Span, "unknown primitive type %q", primTok.Text)
		prim = ast.PrimString
	}
	d.Primitive = prim

	if _, ok := p.expect(lexer.LBrace, "'{' opening enum body"); !ok {
		p.recoverTopLevel()
		return nil
	}
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		m := p.collectMeta()
		switch {
		case p.atNestedDecl():
			if nested := p.parseDecl(m); nested != nil {
				d.Decls = append(d.Decls, nested)
			}
		case p.at(lexer.Ident):
			v := p.parseVariant(m)
			if v == nil {
				return d
			}
			d.Variants = append(d.Variants, v)
		default:
			p.errorHere("expected enum variant, found %q", p.tokenText())
			p.recoverTopLevel()
			return d
		}
	}
	p.expect(lexer.RBrace, "'}' closing enum body")
	return d
}

func (p *parser) parseVariant(m meta) *ast.Variant {
	nameTok := p.advance()
	v := &ast.Variant{Name: nameTok.Text, Span: nameTok.Span, Doc: m.doc}

	if p.cur().Is("as") {
		p.advance()
		switch p.cur().Kind {
		case lexer.String:
			tok := p.advance()
			v.Literal = &ast.Literal{Kind: ast.LitString, Str: tok.Text, Span: tok.Span}
		case lexer.Number, lexer.Minus:
			n, span, ok := p.parseInt()
			if !ok {
				p.recoverTopLevel()
				return nil
			}
			v.Literal = &ast.Literal{Kind: ast.LitInt, Int: n, Span: span}
		default:
			p.errorHere("expected string or integer literal after 'as'")
			p.recoverTopLevel()
			return nil
		}
	}

	if end, ok := p.expect(lexer.Semi, "';' after enum variant"); ok {
		v.Span = v.Span.To(end.Span)
	}
	return v
}

func (p *parser) parseTupleBody(header ast.DeclHeader) ast.Decl {
	d := &ast.TupleDecl{DeclHeader: header}
	if _, ok := p.expect(lexer.LBrace, "'{' opening tuple body"); !ok {
		p.recoverTopLevel()
		return nil
	}
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		m := p.collectMeta()
		switch {
		case p.atNestedDecl():
			if nested := p.parseDecl(m); nested != nil {
				d.Decls = append(d.Decls, nested)
			}
		case p.at(lexer.Ident):
			f := p.parseField(m)
			if f == nil {
				return d
			}
			d.Fields = append(d.Fields, f)
		default:
			p.errorHere("expected tuple field, found %q", p.tokenText())
			p.recoverTopLevel()
			return d
		}
	}
	p.expect(lexer.RBrace, "'}' closing tuple body")
	return d
}

func (p *parser) parseServiceBody(header ast.DeclHeader) ast.Decl {
	d := &ast.ServiceDecl{DeclHeader: header}
	if _, ok := p.expect(lexer.LBrace, "'{' opening service body"); !ok {
		p.recoverTopLevel()
		return nil
	}
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		m := p.collectMeta()
		switch {
		case p.atNestedDecl():
			if nested := p.parseDecl(m); nested != nil {
				d.Decls = append(d.Decls, nested)
			}
		case p.at(lexer.Ident) && p.peek().Kind == lexer.LParen:
			e := p.parseEndpoint(m)
			if e == nil {
				return d
			}
			d.Endpoints = append(d.Endpoints, e)
		default:
			p.errorHere("expected endpoint, found %q", p.tokenText())
			p.recoverTopLevel()
			return d
		}
	}
	p.expect(lexer.RBrace, "'}' closing service body")
	return d
}

// parseEndpoint parses `name(arg: T, ...) [-> [stream] T] ;`.
func (p *parser) parseEndpoint(m meta) *ast.Endpoint {
	nameTok := p.advance()
	e := &ast.Endpoint{Name: nameTok.Text, Span: nameTok.Span, Doc: m.doc, Attrs: m.attrs}

	p.advance() // `(`
	for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
		argTok, ok := p.expect(lexer.Ident, "argument name")
		if !ok {
			p.recoverTopLevel()
			return nil
		}
		if _, ok := p.expect(lexer.Colon, "':' after argument name"); !ok {
			p.recoverTopLevel()
			return nil
		}
		arg := &ast.Arg{Name: argTok.Text, Span: argTok.Span}
		if p.cur().Is("stream") {
			arg.Stream = true
			p.advance()
		}
		ty, ok := p.parseType()
		if !ok {
			p.recoverTopLevel()
			return nil
		}
		arg.Type = ty
		e.Args = append(e.Args, arg)
		if p.at(lexer.Comma) {
			p.advance()
		}
	}
	p.expect(lexer.RParen, "')' closing endpoint arguments")

	if p.at(lexer.Arrow) {
		arrow := p.advance()
		res := &ast.Result{Span: arrow.Span}
		if p.cur().Is("stream") {
			res.Stream = true
			p.advance()
		}
		ty, ok := p.parseType()
		if !ok {
			p.recoverTopLevel()
			return nil
		}
		res.Type = ty
		res.Span = res.Span.To(ty.TypeSpan())
		e.Result = res
	}

	if end, ok := p.expect(lexer.Semi, "';' after endpoint"); ok {
		e.Span = e.Span.To(end.Span)
	}
	return e
}

// parseField parses `name[?]: type [as "alias"] ;`.
func (p *parser) parseField(m meta) *ast.Field {
	nameTok := p.advance()
	f := &ast.Field{Name: nameTok.Text, Span: nameTok.Span, Doc: m.doc, Attrs: m.attrs}

	if p.at(lexer.Question) {
		f.Optional = true
		p.advance()
	}
	if _, ok := p.expect(lexer.Colon, "':' after field name"); !ok {
		p.recoverTopLevel()
		return nil
	}
	ty, ok := p.parseType()
	if !ok {
		p.recoverTopLevel()
		return nil
	}
	f.Type = ty

	if p.cur().Is("as") {
		p.advance()
		tok, ok := p.expect(lexer.String, "field alias string")
		if !ok {
			p.recoverTopLevel()
			return nil
		}
		f.Alias = tok.Text
	}

	if end, ok := p.expect(lexer.Semi, "';' after field"); ok {
		f.Span = f.Span.To(end.Span)
	}
	return f
}

// parseType parses a type expression with postfix `?`.
func (p *parser) parseType() (ast.TypeExpr, bool) {
	ty, ok := p.parseBaseType()
	if !ok {
		return nil, false
	}
	for p.at(lexer.Question) {
		q := p.advance()
		ty = &ast.OptionalType{Elem: ty, Span: ty.TypeSpan().To(q.Span)}
	}
	return ty, true
}

func (p *parser) parseBaseType() (ast.TypeExpr, bool) {
	switch p.cur().Kind {
	case lexer.LBracket:
		open := p.advance()
		elem, ok := p.parseType()
		if !ok {
			return nil, false
		}
		end, ok := p.expect(lexer.RBracket, "']' closing array type")
		if !ok {
			return nil, false
		}
		return &ast.ArrayType{Elem: elem, Span: open.Span.To(end.Span)}, true
	case lexer.LBrace:
		open := p.advance()
		key, ok := p.parseType()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(lexer.Colon, "':' between map key and value"); !ok {
			return nil, false
		}
		value, ok := p.parseType()
		if !ok {
			return nil, false
		}
		end, ok := p.expect(lexer.RBrace, "'}' closing map type")
		if !ok {
			return nil, false
		}
		return &ast.MapType{Key: key, Value: value, Span: open.Span.To(end.Span)}, true
	case lexer.Scope:
		open := p.advance()
		named, ok := p.parseNamedTail(&ast.NamedType{Rooted: true, Span: open.Span})
		return named, ok
	case lexer.Ident:
		if prim, ok := ast.Primitives[p.cur().Text]; ok {
			tok := p.advance()
			return &ast.PrimitiveType{Prim: prim, Span: tok.Span}, true
		}
		tok := p.advance()
		named := &ast.NamedType{Parts: []string{tok.Text}, Span: tok.Span}
		return p.parseNamedTail(named)
	default:
		p.errorHere("expected type, found %q", p.tokenText())
		return nil, false
	}
}

func (p *parser) parseNamedTail(named *ast.NamedType) (ast.TypeExpr, bool) {
	if named.Rooted && len(named.Parts) == 0 {
		tok, ok := p.expect(lexer.Ident, "name after '::'")
		if !ok {
			return nil, false
		}
		named.Parts = append(named.Parts, tok.Text)
		named.Span = named.Span.To(tok.Span)
	}
	for p.at(lexer.Scope) {
		p.advance()
		tok, ok := p.expect(lexer.Ident, "name after '::'")
		if !ok {
			return nil, false
		}
		named.Parts = append(named.Parts, tok.Text)
		named.Span = named.Span.To(tok.Span)
	}
	return named, true
}
