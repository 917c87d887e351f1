// Package ast is the parsed model of a Varro IDL file.
//
// Every node carries the byte-range span it was parsed from. The AST is
// untyped and unresolved: names are paths as written, imports are alias
// strings, and nothing is flattened. The translator lowers this model
// into IR.
package ast

import (
	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/vrange"
)

// File is one parsed source file.
type File struct {
	Path  string
	Uses  []*UseDecl
	Attrs []*Attribute
	Decls []Decl
}

// UseDecl is an import of another package at a version range, bound to
// a local alias.
type UseDecl struct {
	Span     source.Span
	Package  string // dotted path, e.g. "example.common"
	RangeRaw string // range string as written, "" for any
	Range    vrange.Range
	Alias    string // explicit alias, or the last package segment
}

// DeclKind discriminates the declaration variants.
type DeclKind string

const (
	KindType      DeclKind = "type"
	KindInterface DeclKind = "interface"
	KindEnum      DeclKind = "enum"
	KindTuple     DeclKind = "tuple"
	KindService   DeclKind = "service"
)

// Decl is one top-level or nested declaration.
type Decl interface {
	Kind() DeclKind
	Header() *DeclHeader
	// Nested returns declarations declared inside this one, including
	// those inside interface sub-type bodies.
	Nested() []Decl
}

// DeclHeader is the common part of every declaration.
type DeclHeader struct {
	Name  string
	Span  source.Span
	Doc   string
	Attrs []*Attribute
}

// TypeDecl is a record with named, typed fields.
type TypeDecl struct {
	DeclHeader
	Fields []*Field
	Decls  []Decl
}

func (d *TypeDecl) Kind() DeclKind      { return KindType }
func (d *TypeDecl) Header() *DeclHeader { return &d.DeclHeader }
func (d *TypeDecl) Nested() []Decl      { return d.Decls }

// InterfaceDecl is a sum of sub-types with optional shared fields.
type InterfaceDecl struct {
	DeclHeader
	Fields   []*Field // shared fields
	SubTypes []*SubType
	Decls    []Decl
}

func (d *InterfaceDecl) Kind() DeclKind      { return KindInterface }
func (d *InterfaceDecl) Header() *DeclHeader { return &d.DeclHeader }

func (d *InterfaceDecl) Nested() []Decl {
	out := append([]Decl{}, d.Decls...)
	for _, sub := range d.SubTypes {
		out = append(out, sub.Decls...)
	}
	return out
}

// SubType is one alternative of an interface: unit (`A;`), aliased unit
// (`A as "foo";`), or record (`A { fields }`).
type SubType struct {
	Name   string
	Alias  string // wire name override, "" means the sub-type name
	Body   bool   // true for record sub-types, even with empty bodies
	Span   source.Span
	Doc    string
	Attrs  []*Attribute
	Fields []*Field
	Decls  []Decl
}

// WireName is the name used on the wire for this sub-type.
func (s *SubType) WireName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// EnumDecl is a finite set of named variants over a string or integer
// representation.
type EnumDecl struct {
	DeclHeader
	Primitive PrimitiveKind // PrimString or an integer kind
	Variants  []*Variant
	Decls     []Decl
}

func (d *EnumDecl) Kind() DeclKind      { return KindEnum }
func (d *EnumDecl) Header() *DeclHeader { return &d.DeclHeader }
func (d *EnumDecl) Nested() []Decl      { return d.Decls }

// Variant is one enum member. Literal is nil when no `as` clause was
// written; string enums then default to the variant name.
type Variant struct {
	Name    string
	Literal *Literal
	Span    source.Span
	Doc     string
}

// LiteralKind discriminates variant literals.
type LiteralKind string

const (
	LitString LiteralKind = "string"
	LitInt    LiteralKind = "int"
)

// Literal is a variant representation literal.
type Literal struct {
	Kind LiteralKind
	Str  string
	Int  int64
	Span source.Span
}

// TupleDecl is an ordered sequence of typed, named positions.
type TupleDecl struct {
	DeclHeader
	Fields []*Field
	Decls  []Decl
}

func (d *TupleDecl) Kind() DeclKind      { return KindTuple }
func (d *TupleDecl) Header() *DeclHeader { return &d.DeclHeader }
func (d *TupleDecl) Nested() []Decl      { return d.Decls }

// ServiceDecl is a set of endpoints.
type ServiceDecl struct {
	DeclHeader
	Endpoints []*Endpoint
	Decls     []Decl
}

func (d *ServiceDecl) Kind() DeclKind      { return KindService }
func (d *ServiceDecl) Header() *DeclHeader { return &d.DeclHeader }
func (d *ServiceDecl) Nested() []Decl      { return d.Decls }

// Endpoint is one service operation.
type Endpoint struct {
	Name   string
	Args   []*Arg
	Result *Result // nil when the endpoint returns nothing
	Span   source.Span
	Doc    string
	Attrs  []*Attribute
}

// Arg is one endpoint argument. Stream marks a streamed request.
type Arg struct {
	Name   string
	Stream bool
	Type   TypeExpr
	Span   source.Span
}

// Result is an endpoint response. Stream marks a streamed response.
type Result struct {
	Stream bool
	Type   TypeExpr
	Span   source.Span
}

// Field is a named, typed member of a type, tuple, interface, or
// sub-type body.
type Field struct {
	Name     string
	Optional bool
	Type     TypeExpr
	Alias    string // serialization rename, "" means the field name
	Span     source.Span
	Doc      string
	Attrs    []*Attribute
}

// WireName is the on-wire name of the field.
func (f *Field) WireName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}
