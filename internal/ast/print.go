package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a file back to IDL source. The output reparses to an
// AST equal to the input modulo spans; formatting is normalized (two
// space indent, one declaration per block).
func Print(f *File) string {
	p := &printer{}
	// An attribute group binds to the file only when a use or the end of
	// input follows it, so without uses file attributes go last.
	attrsFirst := len(f.Uses) > 0 || len(f.Decls) == 0
	if attrsFirst {
		for _, a := range f.Attrs {
			p.attr(a)
			p.nl()
		}
	}
	for _, u := range f.Uses {
		p.printf("use %s", u.Package)
		if u.RangeRaw != "" {
			p.printf(" %q", u.RangeRaw)
		}
		if u.Alias != "" {
			p.printf(" as %s", u.Alias)
		}
		p.printf(";")
		p.nl()
	}
	if len(f.Uses) > 0 || (attrsFirst && len(f.Attrs) > 0) {
		p.nl()
	}
	for i, d := range f.Decls {
		if i > 0 {
			p.nl()
		}
		p.decl(d)
	}
	if !attrsFirst && len(f.Attrs) > 0 {
		p.nl()
		for _, a := range f.Attrs {
			p.attr(a)
			p.nl()
		}
	}
	return p.String()
}

type printer struct {
	buf    strings.Builder
	indent int
	atBOL  bool
}

func (p *printer) String() string { return p.buf.String() }

func (p *printer) printf(format string, args ...any) {
	if p.atBOL {
		p.buf.WriteString(strings.Repeat("  ", p.indent))
		p.atBOL = false
	}
	fmt.Fprintf(&p.buf, format, args...)
}

func (p *printer) nl() {
	p.buf.WriteByte('\n')
	p.atBOL = true
}

func (p *printer) doc(doc string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		p.printf("/// %s", line)
		p.nl()
	}
}

func (p *printer) attr(a *Attribute) {
	p.printf("#[%s", a.Name)
	if len(a.Words) > 0 || len(a.Values) > 0 {
		p.printf("(")
		first := true
		for _, w := range a.Words {
			if !first {
				p.printf(", ")
			}
			first = false
			p.value(w)
		}
		for _, kv := range a.Values {
			if !first {
				p.printf(", ")
			}
			first = false
			p.printf("%s = ", kv.Key)
			p.value(kv.Value)
		}
		p.printf(")")
	}
	p.printf("]")
}

func (p *printer) value(v AttrValue) {
	switch v.Kind {
	case AttrString:
		p.printf("%s", strconv.Quote(v.Str))
	case AttrIdent:
		p.printf("%s", v.Str)
	case AttrInt:
		p.printf("%d", v.Int)
	}
}

func (p *printer) attrs(attrs []*Attribute) {
	for _, a := range attrs {
		p.attr(a)
		p.nl()
	}
}

func (p *printer) decl(d Decl) {
	h := d.Header()
	p.doc(h.Doc)
	p.attrs(h.Attrs)
	switch t := d.(type) {
	case *TypeDecl:
		p.printf("type %s {", h.Name)
		p.nl()
		p.indent++
		p.fields(t.Fields)
		p.decls(t.Decls)
		p.indent--
		p.printf("}")
		p.nl()
	case *InterfaceDecl:
		p.printf("interface %s {", h.Name)
		p.nl()
		p.indent++
		p.fields(t.Fields)
		for _, sub := range t.SubTypes {
			p.subType(sub)
		}
		p.decls(t.Decls)
		p.indent--
		p.printf("}")
		p.nl()
	case *EnumDecl:
		p.printf("enum %s as %s {", h.Name, t.Primitive)
		p.nl()
		p.indent++
		for _, v := range t.Variants {
			p.doc(v.Doc)
			p.printf("%s", v.Name)
			if v.Literal != nil {
				switch v.Literal.Kind {
				case LitString:
					p.printf(" as %s", strconv.Quote(v.Literal.Str))
				case LitInt:
					p.printf(" as %d", v.Literal.Int)
				}
			}
			p.printf(";")
			p.nl()
		}
		p.decls(t.Decls)
		p.indent--
		p.printf("}")
		p.nl()
	case *TupleDecl:
		p.printf("tuple %s {", h.Name)
		p.nl()
		p.indent++
		p.fields(t.Fields)
		p.decls(t.Decls)
		p.indent--
		p.printf("}")
		p.nl()
	case *ServiceDecl:
		p.printf("service %s {", h.Name)
		p.nl()
		p.indent++
		for _, e := range t.Endpoints {
			p.endpoint(e)
		}
		p.decls(t.Decls)
		p.indent--
		p.printf("}")
		p.nl()
	}
}

func (p *printer) decls(decls []Decl) {
	for _, d := range decls {
		p.decl(d)
	}
}

func (p *printer) subType(s *SubType) {
	p.doc(s.Doc)
	p.attrs(s.Attrs)
	p.printf("%s", s.Name)
	if s.Alias != "" {
		p.printf(" as %s", strconv.Quote(s.Alias))
	}
	if !s.Body {
		p.printf(";")
		p.nl()
		return
	}
	p.printf(" {")
	p.nl()
	p.indent++
	p.fields(s.Fields)
	p.decls(s.Decls)
	p.indent--
	p.printf("}")
	p.nl()
}

func (p *printer) endpoint(e *Endpoint) {
	p.doc(e.Doc)
	p.attrs(e.Attrs)
	p.printf("%s(", e.Name)
	for i, a := range e.Args {
		if i > 0 {
			p.printf(", ")
		}
		p.printf("%s: ", a.Name)
		if a.Stream {
			p.printf("stream ")
		}
		p.typeExpr(a.Type)
	}
	p.printf(")")
	if e.Result != nil {
		p.printf(" -> ")
		if e.Result.Stream {
			p.printf("stream ")
		}
		p.typeExpr(e.Result.Type)
	}
	p.printf(";")
	p.nl()
}

func (p *printer) fields(fields []*Field) {
	for _, f := range fields {
		p.doc(f.Doc)
		p.attrs(f.Attrs)
		p.printf("%s", f.Name)
		if f.Optional {
			p.printf("?")
		}
		p.printf(": ")
		p.typeExpr(f.Type)
		if f.Alias != "" {
			p.printf(" as %s", strconv.Quote(f.Alias))
		}
		p.printf(";")
		p.nl()
	}
}

func (p *printer) typeExpr(t TypeExpr) {
	switch v := t.(type) {
	case *PrimitiveType:
		p.printf("%s", v.Prim)
	case *ArrayType:
		p.printf("[")
		p.typeExpr(v.Elem)
		p.printf("]")
	case *MapType:
		p.printf("{")
		p.typeExpr(v.Key)
		p.printf(": ")
		p.typeExpr(v.Value)
		p.printf("}")
	case *OptionalType:
		p.typeExpr(v.Elem)
		p.printf("?")
	case *NamedType:
		p.printf("%s", v.PathString())
	}
}
