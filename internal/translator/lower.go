package translator

import (
	"github.com/varro-lang/varro/internal/ast"
	"github.com/varro-lang/varro/internal/ir"
)

// Type error codes (E40x).
const (
	ErrDuplicateField    = "E401"
	ErrDuplicateVariant  = "E402"
	ErrDuplicateLiteral  = "E403"
	ErrDuplicateWireName = "E404"
	ErrMapKeyNotString   = "E405"
	ErrRequiredCycle     = "E406"
	ErrReservedField     = "E407"
	ErrTagCollision      = "E408"
	ErrBadEnumLiteral    = "E409"
	ErrBadEnumPrimitive  = "E410"
)

// lowerer lowers one file's declarations against its alias map.
type lowerer struct {
	env     *environment
	pkg     ir.Package
	table   *symbolTable
	aliases map[string]ir.Package
}

// lowerDecl lowers a declaration and its nested declarations into the
// arena. Nested declarations keep the outer names as canonical-name
// prefix but become first-class entries.
func (lw *lowerer) lowerDecl(d ast.Decl, parent ir.Name, enclosing []string) {
	h := d.Header()
	name := parent.Nested(h.Name)

	decl := &ir.Decl{
		Name: name,
		Span: h.Span,
		Doc:  h.Doc,
	}

	inner := append(append([]string{}, enclosing...), h.Name)

	switch t := d.(type) {
	case *ast.TypeDecl:
		decl.Kind = ir.KindType
		decl.Attrs = lw.lowerAttrs(h.Attrs, attrContextDecl)
		decl.Type = &ir.Type{Fields: lw.lowerFields(t.Fields, inner)}
	case *ast.TupleDecl:
		decl.Kind = ir.KindTuple
		decl.Attrs = lw.lowerAttrs(h.Attrs, attrContextDecl)
		decl.Tuple = &ir.Tuple{Fields: lw.lowerFields(t.Fields, inner)}
	case *ast.EnumDecl:
		decl.Kind = ir.KindEnum
		decl.Attrs = lw.lowerAttrs(h.Attrs, attrContextDecl)
		decl.Enum = lw.lowerEnum(t)
	case *ast.InterfaceDecl:
		decl.Kind = ir.KindInterface
		decl.Interface = lw.lowerInterface(t, inner, &decl.Attrs)
	case *ast.ServiceDecl:
		decl.Kind = ir.KindService
		decl.Attrs = lw.lowerAttrs(h.Attrs, attrContextDecl)
		decl.Service = lw.lowerService(t, inner)
	default:
		return
	}

	// collectSymbols already reported duplicates; the first
	// declaration wins the arena slot.
	lw.env.arena.Add(decl)

	for _, nested := range d.Nested() {
		lw.lowerDecl(nested, name, inner)
	}
}

// lowerFields lowers a field list, assigning stable declaration-order
// indices. An unresolvable field type degrades to `any` so lowering
// can keep finding issues; the recorded error already blocks IR
// emission.
func (lw *lowerer) lowerFields(fields []*ast.Field, enclosing []string) []*ir.Field {
	out := make([]*ir.Field, 0, len(fields))
	for i, f := range fields {
		ref, ok := lw.lowerType(f.Type, enclosing)
		if !ok {
			ref = ir.PrimitiveRef(ir.PrimAny)
		}
		optional := f.Optional
		if ref.Kind == ir.RefOptional {
			// `name: T?` and `name?: T` mean the same field;
			// optional-of-optional collapses here.
			optional = true
			ref = *ref.Elem
		}
		out = append(out, &ir.Field{
			Name:     f.Name,
			Alias:    f.Alias,
			Type:     ref,
			Optional: optional,
			Index:    i,
			Span:     f.Span,
			Doc:      f.Doc,
		})
		lw.warnUnknownAttrs(f.Attrs, attrContextField)
	}
	return out
}

// lowerType lowers a type expression to a resolved reference.
func (lw *lowerer) lowerType(t ast.TypeExpr, enclosing []string) (ir.TypeRef, bool) {
	switch v := t.(type) {
	case *ast.PrimitiveType:
		return ir.PrimitiveRef(ir.Primitive(v.Prim)), true
	case *ast.ArrayType:
		elem, ok := lw.lowerType(v.Elem, enclosing)
		if !ok {
			return ir.TypeRef{}, false
		}
		return ir.ArrayRef(elem), true
	case *ast.MapType:
		key, ok := lw.lowerType(v.Key, enclosing)
		if !ok {
			return ir.TypeRef{}, false
		}
		if key.Kind != ir.RefPrimitive || key.Primitive != ir.PrimString {
			lw.env.bag.Errorf(ErrMapKeyNotString, v.Key.TypeSpan(),
				"map keys must be string, found %s", key)
			return ir.TypeRef{}, false
		}
		value, ok := lw.lowerType(v.Value, enclosing)
		if !ok {
			return ir.TypeRef{}, false
		}
		return ir.MapRef(key, value), true
	case *ast.OptionalType:
		elem, ok := lw.lowerType(v.Elem, enclosing)
		if !ok {
			return ir.TypeRef{}, false
		}
		return ir.OptionalRef(elem), true
	case *ast.NamedType:
		return lw.resolveNamed(v, enclosing)
	}
	return ir.TypeRef{}, false
}

// lowerEnum lowers an enum body. String enums default missing literals
// to the variant name; integer enums require explicit literals.
func (lw *lowerer) lowerEnum(d *ast.EnumDecl) *ir.Enum {
	prim := ir.Primitive(d.Primitive)
	if prim != ir.PrimString && !prim.IsInteger() {
		lw.env.bag.Errorf(ErrBadEnumPrimitive, d.Span,
			"enum representation must be string or an integer type, found %s", prim)
		prim = ir.PrimString
	}

	out := &ir.Enum{Primitive: prim}
	for _, v := range d.Variants {
		variant := &ir.Variant{Name: v.Name, Span: v.Span, Doc: v.Doc}
		switch {
		case v.Literal == nil && prim == ir.PrimString:
			variant.Str = v.Name
		case v.Literal == nil:
			lw.env.bag.Errorf(ErrBadEnumLiteral, v.Span,
				"variant %s of a %s enum needs an explicit literal", v.Name, prim)
			continue
		case v.Literal.Kind == ast.LitString && prim == ir.PrimString:
			variant.Str = v.Literal.Str
		case v.Literal.Kind == ast.LitInt && prim.IsInteger():
			variant.Int = v.Literal.Int
		default:
			lw.env.bag.Errorf(ErrBadEnumLiteral, v.Literal.Span,
				"variant %s literal does not match enum representation %s", v.Name, prim)
			continue
		}
		out.Variants = append(out.Variants, variant)
	}
	return out
}

// lowerInterface lowers an interface body, interpreting its type_info
// strategy.
func (lw *lowerer) lowerInterface(d *ast.InterfaceDecl, enclosing []string, attrs *ir.Attrs) *ir.Interface {
	out := &ir.Interface{Strategy: ir.Tagged, TagField: "type"}

	rest := d.Attrs
	if ti := ast.FindAttr(d.Attrs, "type_info"); ti != nil {
		rest = withoutAttr(d.Attrs, ti)
		if v := ti.Value("strategy"); v != nil {
			switch v.Str {
			case string(ir.Tagged):
				out.Strategy = ir.Tagged
			case string(ir.Untagged):
				out.Strategy = ir.Untagged
				out.TagField = ""
			default:
				lw.env.bag.Errorf(ErrBadAttrValue, v.Span,
					"unknown type_info strategy %q", v.Str)
			}
		}
		if v := ti.Value("tag"); v != nil {
			if out.Strategy == ir.Untagged {
				lw.env.bag.Warnf(WarnUnknownAttr, v.Span,
					"tag has no effect on an untagged interface")
			} else if v.Str == "" {
				lw.env.bag.Errorf(ErrBadAttrValue, v.Span, "tag must be a non-empty string")
			} else {
				out.TagField = v.Str
			}
		}
	}
	*attrs = lw.lowerAttrs(rest, attrContextDecl)

	out.SharedFields = lw.lowerFields(d.Fields, enclosing)
	for _, sub := range d.SubTypes {
		lw.warnUnknownAttrs(sub.Attrs, attrContextDecl)
		out.SubTypes = append(out.SubTypes, &ir.SubType{
			Name:     sub.Name,
			WireName: sub.WireName(),
			Fields:   lw.lowerFields(sub.Fields, enclosing),
			Span:     sub.Span,
			Doc:      sub.Doc,
		})
	}
	return out
}

// lowerService lowers endpoints, including their HTTP metadata.
func (lw *lowerer) lowerService(d *ast.ServiceDecl, enclosing []string) *ir.Service {
	out := &ir.Service{}
	for _, e := range d.Endpoints {
		ep := &ir.Endpoint{Name: e.Name, Span: e.Span, Doc: e.Doc}
		for _, arg := range e.Args {
			ref, ok := lw.lowerType(arg.Type, enclosing)
			if !ok {
				ref = ir.PrimitiveRef(ir.PrimAny)
			}
			ep.Args = append(ep.Args, &ir.Arg{Name: arg.Name, Stream: arg.Stream, Type: ref})
		}
		if e.Result != nil {
			ref, ok := lw.lowerType(e.Result.Type, enclosing)
			if !ok {
				ref = ir.PrimitiveRef(ir.PrimAny)
			}
			ep.Result = &ir.Result{Stream: e.Result.Stream, Type: ref}
		}
		ep.HTTP = lw.lowerHTTP(e.Attrs)
		out.Endpoints = append(out.Endpoints, ep)
	}
	return out
}

func withoutAttr(attrs []*ast.Attribute, drop *ast.Attribute) []*ast.Attribute {
	out := make([]*ast.Attribute, 0, len(attrs))
	for _, a := range attrs {
		if a != drop {
			out = append(out, a)
		}
	}
	return out
}
