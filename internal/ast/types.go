package ast

import (
	"strings"

	"github.com/varro-lang/varro/internal/source"
)

// TypeExpr is a parsed type expression.
type TypeExpr interface {
	TypeSpan() source.Span
	typeExpr()
}

// PrimitiveKind enumerates the built-in scalar types.
type PrimitiveKind string

const (
	PrimBoolean  PrimitiveKind = "boolean"
	PrimString   PrimitiveKind = "string"
	PrimBytes    PrimitiveKind = "bytes"
	PrimDateTime PrimitiveKind = "datetime"
	PrimAny      PrimitiveKind = "any"
	PrimU32      PrimitiveKind = "u32"
	PrimU64      PrimitiveKind = "u64"
	PrimI32      PrimitiveKind = "i32"
	PrimI64      PrimitiveKind = "i64"
	PrimFloat    PrimitiveKind = "float"
	PrimDouble   PrimitiveKind = "double"
)

// Primitives maps keyword spellings to primitive kinds.
var Primitives = map[string]PrimitiveKind{
	"boolean":  PrimBoolean,
	"string":   PrimString,
	"bytes":    PrimBytes,
	"datetime": PrimDateTime,
	"any":      PrimAny,
	"u32":      PrimU32,
	"u64":      PrimU64,
	"i32":      PrimI32,
	"i64":      PrimI64,
	"float":    PrimFloat,
	"double":   PrimDouble,
}

// PrimitiveType is a built-in scalar.
type PrimitiveType struct {
	Prim PrimitiveKind
	Span source.Span
}

func (t *PrimitiveType) TypeSpan() source.Span { return t.Span }
func (t *PrimitiveType) typeExpr()             {}

// ArrayType is `[T]`.
type ArrayType struct {
	Elem TypeExpr
	Span source.Span
}

func (t *ArrayType) TypeSpan() source.Span { return t.Span }
func (t *ArrayType) typeExpr()             {}

// MapType is `{K: V}`. The grammar admits any key expression; the
// translator restricts keys to string.
type MapType struct {
	Key   TypeExpr
	Value TypeExpr
	Span  source.Span
}

func (t *MapType) TypeSpan() source.Span { return t.Span }
func (t *MapType) typeExpr()             {}

// OptionalType is `T?` in type position. Optional-of-optional collapses
// during lowering.
type OptionalType struct {
	Elem TypeExpr
	Span source.Span
}

func (t *OptionalType) TypeSpan() source.Span { return t.Span }
func (t *OptionalType) typeExpr()             {}

// NamedType is a path of one or more segments, possibly rooted at the
// file's package (`::X::Y`). The first segment may be an import alias;
// which scope wins is decided by the translator.
type NamedType struct {
	Rooted bool
	Parts  []string
	Span   source.Span
}

func (t *NamedType) TypeSpan() source.Span { return t.Span }
func (t *NamedType) typeExpr()             {}

// PathString renders the path as written.
func (t *NamedType) PathString() string {
	s := strings.Join(t.Parts, "::")
	if t.Rooted {
		return "::" + s
	}
	return s
}
