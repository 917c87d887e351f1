package ast

import "github.com/varro-lang/varro/internal/source"

// Attribute is `#[name]` or `#[name(word, key = value, ...)]`.
//
// Positional arguments are Words; key = value pairs are Values. Both
// keep their spans so attribute validation can point at the exact
// argument.
type Attribute struct {
	Name   string
	Words  []AttrValue
	Values []AttrKeyValue
	Span   source.Span
}

// Value returns the value for a key, or nil.
func (a *Attribute) Value(key string) *AttrValue {
	for i := range a.Values {
		if a.Values[i].Key == key {
			return &a.Values[i].Value
		}
	}
	return nil
}

// AttrValueKind discriminates attribute argument values.
type AttrValueKind string

const (
	AttrString AttrValueKind = "string"
	AttrIdent  AttrValueKind = "ident"
	AttrInt    AttrValueKind = "int"
)

// AttrValue is one attribute argument value.
type AttrValue struct {
	Kind AttrValueKind
	Str  string // for AttrString and AttrIdent
	Int  int64  // for AttrInt
	Span source.Span
}

// AttrKeyValue is one `key = value` attribute argument.
type AttrKeyValue struct {
	Key     string
	KeySpan source.Span
	Value   AttrValue
}

// FindAttr returns the first attribute with the given name, or nil.
func FindAttr(attrs []*Attribute, name string) *Attribute {
	for _, a := range attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}
