package translator

import (
	"fmt"

	"github.com/varro-lang/varro/internal/ast"
	"github.com/varro-lang/varro/internal/ir"
)

// Attribute error codes (E50x, W50x).
const (
	ErrBadAttrValue   = "E501"
	ErrBadNaming      = "E502"
	WarnUnknownAttr   = "W504"
	WarnUntaggedOrder = "W505"
)

type attrContext int

const (
	attrContextDecl attrContext = iota
	attrContextField
	attrContextFile
)

// validNamings are the accepted naming-policy attribute values.
var validNamings = map[string]bool{
	"lower_camel": true,
	"upper_camel": true,
	"lower_snake": true,
	"upper_snake": true,
}

// lowerAttrs interprets recognized declaration attributes and keeps
// everything else as an inspectable unknown with a warning.
func (lw *lowerer) lowerAttrs(attrs []*ast.Attribute, ctx attrContext) ir.Attrs {
	var out ir.Attrs
	for _, a := range attrs {
		switch a.Name {
		case "reserved":
			if ctx != attrContextDecl {
				lw.env.bag.Warnf(WarnUnknownAttr, a.Span, "reserved applies to declarations only")
				continue
			}
			for _, w := range a.Words {
				if w.Kind == ast.AttrInt {
					lw.env.bag.Errorf(ErrBadAttrValue, w.Span, "reserved names must be strings")
					continue
				}
				out.Reserved = append(out.Reserved, w.Str)
			}
			for _, kv := range a.Values {
				lw.env.bag.Errorf(ErrBadAttrValue, kv.KeySpan, "reserved takes no %s argument", kv.Key)
			}
		default:
			out.Unknown = append(out.Unknown, unknownAttr(a))
			lw.env.bag.Warnf(WarnUnknownAttr, a.Span, "unknown attribute %s", a.Name)
		}
	}
	return out
}

// warnUnknownAttrs reports attributes in a position where none are
// recognized.
func (lw *lowerer) warnUnknownAttrs(attrs []*ast.Attribute, _ attrContext) {
	for _, a := range attrs {
		lw.env.bag.Warnf(WarnUnknownAttr, a.Span, "unknown attribute %s", a.Name)
	}
}

// lowerHTTP extracts the recognized #[http(...)] endpoint attribute.
func (lw *lowerer) lowerHTTP(attrs []*ast.Attribute) *ir.HTTPOptions {
	a := ast.FindAttr(attrs, "http")
	for _, other := range attrs {
		if other != a {
			lw.env.bag.Warnf(WarnUnknownAttr, other.Span, "unknown attribute %s", other.Name)
		}
	}
	if a == nil {
		return nil
	}

	out := &ir.HTTPOptions{}
	for _, w := range a.Words {
		lw.env.bag.Errorf(ErrBadAttrValue, w.Span, "http takes key = value arguments only")
	}
	for _, kv := range a.Values {
		if kv.Value.Kind == ast.AttrInt {
			lw.env.bag.Errorf(ErrBadAttrValue, kv.Value.Span, "http %s must be a string", kv.Key)
			continue
		}
		switch kv.Key {
		case "url":
			out.URL = kv.Value.Str
		case "path":
			out.Path = kv.Value.Str
		case "method":
			out.Method = kv.Value.Str
		default:
			lw.env.bag.Warnf(WarnUnknownAttr, kv.KeySpan, "unknown http key %s", kv.Key)
		}
	}
	return out
}

// applyFileAttrs interprets file-level attributes of root-package
// files: naming policies recorded on the module for backends.
func (e *environment) applyFileAttrs(module *ir.Module, file *ast.File) {
	for _, a := range file.Attrs {
		switch a.Name {
		case "field_naming", "endpoint_naming":
			value, ok := singleNaming(a)
			if !ok {
				e.bag.Errorf(ErrBadNaming, a.Span,
					"%s expects one of lower_camel, upper_camel, lower_snake, upper_snake", a.Name)
				continue
			}
			if a.Name == "field_naming" {
				module.Attrs.FieldNaming = value
			} else {
				module.Attrs.EndpointNaming = value
			}
		default:
			module.Attrs.Unknown = append(module.Attrs.Unknown, unknownAttr(a))
			e.bag.Warnf(WarnUnknownAttr, a.Span, "unknown attribute %s", a.Name)
		}
	}
}

func singleNaming(a *ast.Attribute) (string, bool) {
	if len(a.Words) != 1 || len(a.Values) != 0 {
		return "", false
	}
	w := a.Words[0]
	if w.Kind == ast.AttrInt || !validNamings[w.Str] {
		return "", false
	}
	return w.Str, true
}

func unknownAttr(a *ast.Attribute) ir.UnknownAttr {
	out := ir.UnknownAttr{Name: a.Name}
	for _, w := range a.Words {
		out.Words = append(out.Words, attrValueString(w))
	}
	if len(a.Values) > 0 {
		out.Values = make(map[string]string, len(a.Values))
		for _, kv := range a.Values {
			out.Values[kv.Key] = attrValueString(kv.Value)
		}
	}
	return out
}

func attrValueString(v ast.AttrValue) string {
	if v.Kind == ast.AttrInt {
		return fmt.Sprintf("%d", v.Int)
	}
	return v.Str
}
