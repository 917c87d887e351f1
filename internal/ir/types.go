package ir

import "strings"

// Primitive enumerates the built-in scalar types.
type Primitive string

const (
	PrimBoolean  Primitive = "boolean"
	PrimString   Primitive = "string"
	PrimBytes    Primitive = "bytes"
	PrimDateTime Primitive = "datetime"
	PrimAny      Primitive = "any"
	PrimU32      Primitive = "u32"
	PrimU64      Primitive = "u64"
	PrimI32      Primitive = "i32"
	PrimI64      Primitive = "i64"
	PrimFloat    Primitive = "float"
	PrimDouble   Primitive = "double"
)

// IsInteger reports whether the primitive is an integer type.
func (p Primitive) IsInteger() bool {
	switch p {
	case PrimU32, PrimU64, PrimI32, PrimI64:
		return true
	}
	return false
}

// IsSigned reports signedness for integer primitives.
func (p Primitive) IsSigned() bool { return p == PrimI32 || p == PrimI64 }

// Width returns the bit width for integer primitives, 0 otherwise.
func (p Primitive) Width() int {
	switch p {
	case PrimU32, PrimI32:
		return 32
	case PrimU64, PrimI64:
		return 64
	}
	return 0
}

// TypeRefKind discriminates type references.
type TypeRefKind string

const (
	RefPrimitive TypeRefKind = "primitive"
	RefArray     TypeRefKind = "array"
	RefMap       TypeRefKind = "map"
	RefOptional  TypeRefKind = "optional"
	RefNamed     TypeRefKind = "named"
)

// TypeRef is a resolved type expression. Named references hold the
// canonical name of their target; following the reference goes through
// the arena, never through a pointer.
type TypeRef struct {
	Kind      TypeRefKind `json:"kind"`
	Primitive Primitive   `json:"primitive,omitempty"`
	Elem      *TypeRef    `json:"elem,omitempty"`  // array, optional
	Key       *TypeRef    `json:"key,omitempty"`   // map
	Value     *TypeRef    `json:"value,omitempty"` // map
	Named     *Name       `json:"named,omitempty"`
}

// PrimitiveRef builds a primitive reference.
func PrimitiveRef(p Primitive) TypeRef {
	return TypeRef{Kind: RefPrimitive, Primitive: p}
}

// ArrayRef builds an array reference.
func ArrayRef(elem TypeRef) TypeRef {
	return TypeRef{Kind: RefArray, Elem: &elem}
}

// MapRef builds a map reference.
func MapRef(key, value TypeRef) TypeRef {
	return TypeRef{Kind: RefMap, Key: &key, Value: &value}
}

// OptionalRef wraps a reference in optionality. Optional-of-optional
// collapses to a single optional.
func OptionalRef(elem TypeRef) TypeRef {
	if elem.Kind == RefOptional {
		return elem
	}
	return TypeRef{Kind: RefOptional, Elem: &elem}
}

// NamedRef builds a reference to a canonical name.
func NamedRef(name Name) TypeRef {
	return TypeRef{Kind: RefNamed, Named: &name}
}

// String renders the reference for diagnostics.
func (t TypeRef) String() string {
	switch t.Kind {
	case RefPrimitive:
		return string(t.Primitive)
	case RefArray:
		return "[" + t.Elem.String() + "]"
	case RefMap:
		return "{" + t.Key.String() + ": " + t.Value.String() + "}"
	case RefOptional:
		return t.Elem.String() + "?"
	case RefNamed:
		return t.Named.Key()
	}
	return "<invalid>"
}

// Equal reports structural equality of two references.
func (t TypeRef) Equal(other TypeRef) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case RefPrimitive:
		return t.Primitive == other.Primitive
	case RefArray, RefOptional:
		return t.Elem.Equal(*other.Elem)
	case RefMap:
		return t.Key.Equal(*other.Key) && t.Value.Equal(*other.Value)
	case RefNamed:
		return t.Named.Key() == other.Named.Key()
	}
	return false
}

// EqualIgnoringVersion compares references with package versions
// stripped from named targets. The compatibility checker matches
// declarations of the same package path across two versions, so a
// reference to old::Foo and new::Foo counts as the same type there.
func (t TypeRef) EqualIgnoringVersion(other TypeRef) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case RefPrimitive:
		return t.Primitive == other.Primitive
	case RefArray, RefOptional:
		return t.Elem.EqualIgnoringVersion(*other.Elem)
	case RefMap:
		return t.Key.EqualIgnoringVersion(*other.Key) && t.Value.EqualIgnoringVersion(*other.Value)
	case RefNamed:
		return t.Named.Package.Path == other.Named.Package.Path &&
			strings.Join(t.Named.Path, ".") == strings.Join(other.Named.Path, ".")
	}
	return false
}

// CycleSafe reports whether a reference may appear on a type cycle:
// arrays, maps, and optionals break the cycle because their encodings
// stay finite.
func (t TypeRef) CycleSafe() bool {
	switch t.Kind {
	case RefOptional, RefArray, RefMap:
		return true
	}
	return false
}
