package translator

import (
	"strings"

	"github.com/varro-lang/varro/internal/ast"
	"github.com/varro-lang/varro/internal/diag"
	"github.com/varro-lang/varro/internal/ir"
	"github.com/varro-lang/varro/internal/source"
)

// symbolTable maps dotted local paths to declarations of one package,
// including nested declarations ("Outer.Inner").
type symbolTable struct {
	pkg     ir.Package
	symbols map[string]source.Span
}

func (t *symbolTable) has(path string) bool {
	_, ok := t.symbols[path]
	return ok
}

// collectSymbols walks every file of a package and registers all
// declarations. Duplicate dotted paths report both locations.
func collectSymbols(e *environment, pkg ir.Package, files []*ast.File) *symbolTable {
	table := &symbolTable{pkg: pkg, symbols: make(map[string]source.Span)}
	var walk func(decls []ast.Decl, prefix []string)
	walk = func(decls []ast.Decl, prefix []string) {
		for _, d := range decls {
			h := d.Header()
			path := strings.Join(append(append([]string{}, prefix...), h.Name), ".")
			if prev, ok := table.symbols[path]; ok {
				e.bag.Add(diag.Finding{
					Severity:  diag.Error,
					Code:      ErrDuplicateDecl,
					Message:   "duplicate declaration " + path + " in package " + pkg.String(),
					Span:      h.Span,
					Secondary: []source.Span{prev},
				})
				continue
			}
			table.symbols[path] = h.Span
			walk(d.Nested(), append(append([]string{}, prefix...), h.Name))
		}
	}
	walk(topDecls(files), nil)
	return table
}

func topDecls(files []*ast.File) []ast.Decl {
	var out []ast.Decl
	for _, f := range files {
		out = append(out, f.Decls...)
	}
	return out
}

// resolveNamed resolves one named type expression against, in order:
// the enclosing declaration scopes (inner to outer), the file's
// package root, and the file's import aliases. A name visible both
// locally and through an alias is ambiguous; a `::`-rooted path skips
// scope search entirely.
func (lw *lowerer) resolveNamed(n *ast.NamedType, enclosing []string) (ir.TypeRef, bool) {
	if n.Rooted {
		path := strings.Join(n.Parts, ".")
		if !lw.table.has(path) {
			lw.env.bag.Errorf(ErrUnresolved, n.Span,
				"unresolved name ::%s in package %s", strings.Join(n.Parts, "::"), lw.pkg.String())
			return ir.TypeRef{}, false
		}
		return ir.NamedRef(ir.Name{Package: lw.pkg, Path: n.Parts}), true
	}

	// Inner-to-outer local search; the innermost match shadows outer
	// ones, so at most one local candidate survives.
	var local *ir.Name
	for i := len(enclosing); i >= 0; i-- {
		candidate := append(append([]string{}, enclosing[:i]...), n.Parts...)
		if lw.table.has(strings.Join(candidate, ".")) {
			name := ir.Name{Package: lw.pkg, Path: candidate}
			local = &name
			break
		}
	}

	// Alias search: the first segment may name an imported package.
	var imported *ir.Name
	if len(n.Parts) > 1 {
		if pkg, ok := lw.aliases[n.Parts[0]]; ok {
			name := ir.Name{Package: pkg, Path: n.Parts[1:]}
			if _, found := lw.env.arena.Lookup(name); found {
				imported = &name
			}
		}
	}

	switch {
	case local != nil && imported != nil:
		lw.env.bag.Add(diag.Finding{
			Severity: diag.Error,
			Code:     ErrAmbiguousName,
			Message: "ambiguous name " + n.PathString() + ": matches " + local.Key() +
				" and " + imported.Key(),
			Span: n.Span,
		})
		return ir.TypeRef{}, false
	case local != nil:
		return ir.NamedRef(*local), true
	case imported != nil:
		return ir.NamedRef(*imported), true
	default:
		lw.env.bag.Errorf(ErrUnresolved, n.Span, "unresolved name %s", n.PathString())
		return ir.TypeRef{}, false
	}
}
