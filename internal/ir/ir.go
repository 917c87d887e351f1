// Package ir is the canonical, typed intermediate representation.
//
// Declarations live in an arena keyed by canonical name; type
// references hold canonical-name keys rather than pointers, so the
// object graph has acyclic ownership even when the type graph is
// cyclic. Backends consume this package and never see the AST.
//
// This package imports only source and vrange. Everything else imports
// ir; keeping it at the bottom of the dependency graph is what lets
// translator, compat, and backends share one vocabulary.
package ir

import (
	"fmt"
	"strings"

	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/vrange"
)

// Package identifies a versioned namespace.
type Package struct {
	Path    string         `json:"path"`
	Version vrange.Version `json:"version,omitempty"`
}

// String renders "path#version", or just the path when unversioned.
func (p Package) String() string {
	if p.Version.IsZero() {
		return p.Path
	}
	return p.Path + "#" + p.Version.String()
}

// Equal reports package identity (path and version).
func (p Package) Equal(other Package) bool {
	return p.Path == other.Path && p.Version.Equal(other.Version)
}

// Name is the canonical name of a declaration: package plus dotted
// local path. Canonical names are stable across compilations.
type Name struct {
	Package Package  `json:"package"`
	Path    []string `json:"path"`
}

// Key is the arena key, e.g. "example.common#1.0.0::Message.Inner".
func (n Name) Key() string {
	return n.Package.String() + "::" + strings.Join(n.Path, ".")
}

func (n Name) String() string { return n.Key() }

// Nested returns the canonical name of a declaration nested under this
// one.
func (n Name) Nested(ident string) Name {
	path := make([]string, 0, len(n.Path)+1)
	path = append(path, n.Path...)
	path = append(path, ident)
	return Name{Package: n.Package, Path: path}
}

// Ident is the last path segment.
func (n Name) Ident() string {
	if len(n.Path) == 0 {
		return ""
	}
	return n.Path[len(n.Path)-1]
}

// Kind discriminates declaration payloads.
type Kind string

const (
	KindType      Kind = "type"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
	KindTuple     Kind = "tuple"
	KindService   Kind = "service"
)

// Decl is one lowered declaration: a common header plus exactly one
// kind-specific payload.
type Decl struct {
	Name  Name        `json:"name"`
	Kind  Kind        `json:"kind"`
	Span  source.Span `json:"span"`
	Doc   string      `json:"doc,omitempty"`
	Attrs Attrs       `json:"attrs,omitempty"`

	Type      *Type      `json:"type,omitempty"`
	Interface *Interface `json:"interface,omitempty"`
	Enum      *Enum      `json:"enum,omitempty"`
	Tuple     *Tuple     `json:"tuple,omitempty"`
	Service   *Service   `json:"service,omitempty"`
}

// Fields returns the declaration's own fields (type and tuple kinds).
func (d *Decl) Fields() []*Field {
	switch d.Kind {
	case KindType:
		return d.Type.Fields
	case KindTuple:
		return d.Tuple.Fields
	}
	return nil
}

// Attrs is the typed record of recognized attributes plus the bag of
// unknown ones, which backends may still inspect.
type Attrs struct {
	Reserved       []string      `json:"reserved,omitempty"`
	FieldNaming    string        `json:"field_naming,omitempty"`
	EndpointNaming string        `json:"endpoint_naming,omitempty"`
	Unknown        []UnknownAttr `json:"unknown,omitempty"`
}

// UnknownAttr preserves an unrecognized attribute verbatim.
type UnknownAttr struct {
	Name   string            `json:"name"`
	Words  []string          `json:"words,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

// Type is a record with named, typed fields.
type Type struct {
	Fields []*Field `json:"fields"`
}

// Field is a numbered, typed member. Index is the stable positional
// identity used by compatibility analysis.
type Field struct {
	Name     string      `json:"name"`
	Alias    string      `json:"alias,omitempty"`
	Type     TypeRef     `json:"type"`
	Optional bool        `json:"optional,omitempty"`
	Index    int         `json:"index"`
	Span     source.Span `json:"span"`
	Doc      string      `json:"doc,omitempty"`
}

// WireName is the on-wire name of the field.
func (f *Field) WireName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Strategy is an interface polymorphism strategy.
type Strategy string

const (
	Tagged   Strategy = "tagged"
	Untagged Strategy = "untagged"
)

// Interface is a sum of sub-types.
type Interface struct {
	Strategy     Strategy   `json:"strategy"`
	TagField     string     `json:"tag_field,omitempty"` // discriminator field for tagged
	SharedFields []*Field   `json:"shared_fields,omitempty"`
	SubTypes     []*SubType `json:"sub_types"`
}

// SubType is one interface alternative. Sub-type fields are its own
// fields only; shared fields live on the interface.
type SubType struct {
	Name     string      `json:"name"`
	WireName string      `json:"wire_name"`
	Fields   []*Field    `json:"fields,omitempty"`
	Span     source.Span `json:"span"`
	Doc      string      `json:"doc,omitempty"`
}

// Enum is a finite set of variants over a primitive representation.
type Enum struct {
	Primitive Primitive  `json:"primitive"`
	Variants  []*Variant `json:"variants"`
}

// Variant is one enum member with its literal representation.
type Variant struct {
	Name string      `json:"name"`
	Str  string      `json:"str,omitempty"`
	Int  int64       `json:"int,omitempty"`
	Span source.Span `json:"span"`
	Doc  string      `json:"doc,omitempty"`
}

// LiteralString renders the variant's representation for diagnostics.
func (v *Variant) LiteralString(p Primitive) string {
	if p == PrimString {
		return fmt.Sprintf("%q", v.Str)
	}
	return fmt.Sprintf("%d", v.Int)
}

// Tuple is an ordered sequence of typed positions.
type Tuple struct {
	Fields []*Field `json:"fields"`
}

// Service is a set of endpoints.
type Service struct {
	Endpoints []*Endpoint `json:"endpoints"`
}

// Endpoint is one service operation.
type Endpoint struct {
	Name   string       `json:"name"`
	Args   []*Arg       `json:"args,omitempty"`
	Result *Result      `json:"result,omitempty"`
	HTTP   *HTTPOptions `json:"http,omitempty"`
	Span   source.Span  `json:"span"`
	Doc    string       `json:"doc,omitempty"`
}

// Arg is one endpoint argument.
type Arg struct {
	Name   string  `json:"name"`
	Stream bool    `json:"stream,omitempty"`
	Type   TypeRef `json:"type"`
}

// Result is an endpoint response.
type Result struct {
	Stream bool    `json:"stream,omitempty"`
	Type   TypeRef `json:"type"`
}

// HTTPOptions is the recognized shape of the #[http(...)] attribute.
type HTTPOptions struct {
	URL    string `json:"url,omitempty"`
	Path   string `json:"path,omitempty"`
	Method string `json:"method,omitempty"`
}
