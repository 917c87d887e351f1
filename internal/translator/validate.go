package translator

import (
	"strings"

	"github.com/varro-lang/varro/internal/diag"
	"github.com/varro-lang/varro/internal/ir"
	"github.com/varro-lang/varro/internal/source"
)

// validatePackage runs the intra-version invariant checks over the
// declarations of one package after lowering. Violations are findings,
// never panics.
func validatePackage(e *environment, pkg ir.Package) {
	var decls []*ir.Decl
	for _, d := range e.arena.Decls() {
		if d.Name.Package.Equal(pkg) {
			decls = append(decls, d)
		}
	}

	for _, d := range decls {
		switch d.Kind {
		case ir.KindType:
			checkFieldNames(e, d, d.Type.Fields)
			checkReserved(e, d, d.Type.Fields)
		case ir.KindTuple:
			checkFieldNames(e, d, d.Tuple.Fields)
		case ir.KindEnum:
			checkEnum(e, d)
		case ir.KindInterface:
			checkInterface(e, d)
		}
	}

	checkRequiredCycles(e, decls)
}

// checkFieldNames enforces unique field names within a declaration.
func checkFieldNames(e *environment, d *ir.Decl, fields []*ir.Field) {
	seen := make(map[string]source.Span, len(fields))
	for _, f := range fields {
		if prev, ok := seen[f.Name]; ok {
			e.bag.Add(finding(ErrDuplicateField, f.Span, prev,
				"duplicate field "+f.Name+" in "+d.Name.Key()))
			continue
		}
		seen[f.Name] = f.Span
	}
}

// checkReserved enforces that declared fields do not use reserved
// names.
func checkReserved(e *environment, d *ir.Decl, fields []*ir.Field) {
	if len(d.Attrs.Reserved) == 0 {
		return
	}
	reserved := make(map[string]bool, len(d.Attrs.Reserved))
	for _, name := range d.Attrs.Reserved {
		reserved[name] = true
	}
	for _, f := range fields {
		if reserved[f.Name] {
			e.bag.Errorf(ErrReservedField, f.Span,
				"field %s of %s uses a reserved name", f.Name, d.Name.Key())
		}
	}
}

// checkEnum enforces unique variant names and unique literal
// representations.
func checkEnum(e *environment, d *ir.Decl) {
	names := make(map[string]source.Span)
	literals := make(map[string]source.Span)
	for _, v := range d.Enum.Variants {
		if prev, ok := names[v.Name]; ok {
			e.bag.Add(finding(ErrDuplicateVariant, v.Span, prev,
				"duplicate variant "+v.Name+" in "+d.Name.Key()))
		} else {
			names[v.Name] = v.Span
		}
		lit := v.LiteralString(d.Enum.Primitive)
		if prev, ok := literals[lit]; ok {
			e.bag.Add(finding(ErrDuplicateLiteral, v.Span, prev,
				"duplicate representation "+lit+" in "+d.Name.Key()))
		} else {
			literals[lit] = v.Span
		}
	}
}

// checkInterface enforces wire-name uniqueness, tag discipline, and
// the untagged distinguishability heuristic.
func checkInterface(e *environment, d *ir.Decl) {
	iface := d.Interface

	checkFieldNames(e, d, iface.SharedFields)
	shared := make(map[string]bool, len(iface.SharedFields))
	for _, f := range iface.SharedFields {
		shared[f.Name] = true
	}

	wires := make(map[string]source.Span, len(iface.SubTypes))
	for _, sub := range iface.SubTypes {
		if prev, ok := wires[sub.WireName]; ok {
			e.bag.Add(finding(ErrDuplicateWireName, sub.Span, prev,
				"duplicate wire name "+sub.WireName+" in "+d.Name.Key()))
		} else {
			wires[sub.WireName] = sub.Span
		}

		// Sub-type fields must not collide with each other or with
		// shared fields.
		seen := make(map[string]source.Span, len(sub.Fields))
		for _, f := range sub.Fields {
			if shared[f.Name] {
				e.bag.Errorf(ErrDuplicateField, f.Span,
					"field %s of sub-type %s shadows a shared field of %s",
					f.Name, sub.Name, d.Name.Key())
				continue
			}
			if prev, ok := seen[f.Name]; ok {
				e.bag.Add(finding(ErrDuplicateField, f.Span, prev,
					"duplicate field "+f.Name+" in sub-type "+sub.Name))
				continue
			}
			seen[f.Name] = f.Span
		}
	}

	if iface.Strategy == ir.Tagged {
		for _, sub := range iface.SubTypes {
			for _, f := range sub.Fields {
				if f.WireName() == iface.TagField {
					e.bag.Errorf(ErrTagCollision, f.Span,
						"field %s of sub-type %s collides with discriminator %q",
						f.Name, sub.Name, iface.TagField)
				}
			}
		}
		for _, f := range iface.SharedFields {
			if f.WireName() == iface.TagField {
				e.bag.Errorf(ErrTagCollision, f.Span,
					"shared field %s collides with discriminator %q", f.Name, iface.TagField)
			}
		}
		return
	}

	checkUntaggedOrder(e, d)
}

// checkUntaggedOrder warns when a sub-type cannot be distinguished
// from a later one by a required field the later lacks or by the type
// of a shared field. Matching then depends on declaration order, which
// stays valid, so this is a warning rather than an error.
func checkUntaggedOrder(e *environment, d *ir.Decl) {
	subs := d.Interface.SubTypes
	for i, earlier := range subs {
		for _, later := range subs[i+1:] {
			if untaggedDistinguishable(earlier, later) {
				continue
			}
			e.bag.Warnf(WarnUntaggedOrder, later.Span,
				"sub-types %s and %s of %s are only distinguished by declaration order",
				earlier.Name, later.Name, d.Name.Key())
		}
	}
}

// untaggedDistinguishable reports whether `earlier` has a required
// field that `later` lacks, or a same-named required field of a
// different type.
func untaggedDistinguishable(earlier, later *ir.SubType) bool {
	laterFields := make(map[string]*ir.Field, len(later.Fields))
	for _, f := range later.Fields {
		laterFields[f.Name] = f
	}
	for _, f := range earlier.Fields {
		if f.Optional {
			continue
		}
		other, ok := laterFields[f.Name]
		if !ok {
			return true
		}
		if !f.Type.Equal(other.Type) {
			return true
		}
	}
	return false
}

// checkRequiredCycles rejects cycles that pass only through required,
// non-container fields; such types have no finite encoding. Cycles
// through arrays, maps, or optional fields are legal.
func checkRequiredCycles(e *environment, decls []*ir.Decl) {
	// Edges follow required named references only.
	type edge struct {
		to   string
		span source.Span
		name string
	}
	edges := make(map[string][]edge)
	addField := func(from string, f *ir.Field) {
		if f.Optional || f.Type.Kind != ir.RefNamed {
			return
		}
		edges[from] = append(edges[from], edge{to: f.Type.Named.Key(), span: f.Span, name: f.Name})
	}
	for _, d := range decls {
		key := d.Name.Key()
		switch d.Kind {
		case ir.KindType:
			for _, f := range d.Type.Fields {
				addField(key, f)
			}
		case ir.KindTuple:
			for _, f := range d.Tuple.Fields {
				addField(key, f)
			}
		case ir.KindInterface:
			for _, f := range d.Interface.SharedFields {
				addField(key, f)
			}
			for _, sub := range d.Interface.SubTypes {
				for _, f := range sub.Fields {
					addField(key, f)
				}
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var stack []string

	var visit func(key string)
	visit = func(key string) {
		color[key] = gray
		stack = append(stack, key)
		for _, out := range edges[key] {
			switch color[out.to] {
			case white:
				visit(out.to)
			case gray:
				// Back edge: report the cycle at this field.
				cycleStart := 0
				for i, k := range stack {
					if k == out.to {
						cycleStart = i
						break
					}
				}
				e.bag.Errorf(ErrRequiredCycle, out.span,
					"cycle through required fields: %s; make a field optional or use a container",
					strings.Join(append(append([]string{}, stack[cycleStart:]...), out.to), " -> "))
			}
		}
		stack = stack[:len(stack)-1]
		color[key] = black
	}

	for _, d := range decls {
		if color[d.Name.Key()] == white {
			visit(d.Name.Key())
		}
	}
}

// finding builds an error finding with a secondary span pointing at
// the first occurrence.
func finding(code string, span, prev source.Span, msg string) diag.Finding {
	return diag.Finding{
		Severity:  diag.Error,
		Code:      code,
		Message:   msg,
		Span:      span,
		Secondary: []source.Span{prev},
	}
}
