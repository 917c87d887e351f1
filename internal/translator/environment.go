// Package translator resolves names and lowers parsed files into IR.
//
// The translator is a pure function of (root sources, resolver): given
// identical resolver responses it produces byte-identical IR and an
// identical, source-ordered finding list. Its only suspension points
// are resolver calls, so cancellation is honored exactly there.
//
// Error policy: batching. An error inside one declaration skips to the
// next declaration boundary, so a compilation surfaces as many
// findings as possible, but no IR is emitted when any error-severity
// finding exists.
package translator

import (
	"context"
	"errors"

	"github.com/varro-lang/varro/internal/ast"
	"github.com/varro-lang/varro/internal/diag"
	"github.com/varro-lang/varro/internal/ir"
	"github.com/varro-lang/varro/internal/parser"
	"github.com/varro-lang/varro/internal/resolver"
	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/vrange"
)

// Name resolution error codes (E30x).
const (
	ErrDuplicateDecl = "E302"
	ErrAmbiguousName = "E303"
	ErrUnresolved    = "E304"
	ErrCrossVersion  = "E305"
)

// Translate lowers the root package plus everything it transitively
// imports. The module is nil when any error-severity finding exists;
// the bag is always populated. The returned error is reserved for
// infrastructure failures (context cancellation), never for findings.
func Translate(ctx context.Context, roots []*source.Buffer, pkg ir.Package, res resolver.Resolver) (*ir.Module, *diag.Bag, error) {
	module, bag, _, err := TranslateWithInfo(ctx, roots, pkg, res)
	return module, bag, err
}

// Info carries the source buffers loaded during a translation, for
// rendering positions in findings.
type Info struct {
	Buffers map[string]*source.Buffer
}

// TranslateWithInfo is Translate plus the loaded source buffers.
func TranslateWithInfo(ctx context.Context, roots []*source.Buffer, pkg ir.Package, res resolver.Resolver) (*ir.Module, *diag.Bag, Info, error) {
	pinned, ok := res.(*resolver.Pinned)
	if !ok {
		pinned = resolver.NewPinned(res, vrange.NewPins())
	}
	env := &environment{
		res:     pinned,
		arena:   ir.NewArena(),
		bag:     &diag.Bag{},
		buffers: make(map[string]*source.Buffer),
		lowered: make(map[string]bool),
		loading: make(map[string]bool),
		visited: make(map[string]visit),
	}
	module := &ir.Module{Package: pkg, Arena: env.arena}
	env.loading[pkg.Path] = true
	env.lowerFiles(ctx, module, pkg, roots)
	delete(env.loading, pkg.Path)
	info := Info{Buffers: env.buffers}
	if err := ctx.Err(); err != nil {
		return nil, env.bag, info, err
	}
	env.checkCrossVersion(module)
	if env.bag.HasErrors() {
		return nil, env.bag, info, nil
	}
	return module, env.bag, info, nil
}

type visit struct {
	pkg ir.Package
	ok  bool
}

type environment struct {
	res     *resolver.Pinned
	arena   *ir.Arena
	bag     *diag.Bag
	buffers map[string]*source.Buffer
	// lowered marks fully processed versioned packages.
	lowered map[string]bool
	// loading marks package paths on the import stack; hitting one
	// again is an import cycle.
	loading map[string]bool
	// visited memoizes (path, range) import outcomes.
	visited map[string]visit
}

// lowerFiles parses and lowers one package's source set.
func (e *environment) lowerFiles(ctx context.Context, module *ir.Module, pkg ir.Package, buffers []*source.Buffer) {
	var files []*ast.File
	parseFailed := false
	for _, buf := range buffers {
		e.buffers[buf.Path] = buf
		file, bag := parser.Parse(buf)
		if bag.HasErrors() {
			parseFailed = true
		}
		e.bag.Extend(bag)
		files = append(files, file)
	}
	if parseFailed {
		return
	}

	// Per-file alias maps; imports lower recursively before the
	// importing package resolves any of its own types.
	aliasMaps := make([]map[string]ir.Package, len(files))
	for i, file := range files {
		aliasMaps[i] = e.processUses(ctx, file)
		if ctx.Err() != nil {
			return
		}
	}

	table := collectSymbols(e, pkg, files)

	for i, file := range files {
		if module != nil && pkg.Equal(module.Package) {
			e.applyFileAttrs(module, file)
		}
		lw := &lowerer{
			env:     e,
			pkg:     pkg,
			table:   table,
			aliases: aliasMaps[i],
		}
		for _, decl := range file.Decls {
			lw.lowerDecl(decl, ir.Name{Package: pkg}, nil)
		}
	}

	validatePackage(e, pkg)
}

// processUses resolves each use declaration and recursively lowers the
// imported package, returning the alias map for the file.
func (e *environment) processUses(ctx context.Context, file *ast.File) map[string]ir.Package {
	aliases := make(map[string]ir.Package)
	for _, use := range file.Uses {
		pkg, ok := e.importPackage(ctx, use)
		if !ok {
			continue
		}
		aliases[use.Alias] = pkg
	}
	return aliases
}

// importPackage resolves a use site. Outcomes memoize per
// (path, range), so every use site of the same requirement converges
// on one version.
func (e *environment) importPackage(ctx context.Context, use *ast.UseDecl) (ir.Package, bool) {
	key := use.Package + "\x00" + use.Range.String()
	if v, ok := e.visited[key]; ok {
		return v.pkg, v.ok
	}

	if e.loading[use.Package] {
		e.bag.Errorf(resolver.ErrCycleCode, use.Span, "import cycle through package %s", use.Package)
		e.visited[key] = visit{}
		return ir.Package{}, false
	}

	res, err := e.res.Resolve(ctx, use.Package, use.Range)
	if err != nil {
		var noVersion *resolver.NoVersionError
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// Cancellation surfaces from Translate; no finding.
		case errors.As(err, &noVersion):
			e.bag.Errorf(resolver.ErrNoVersionCode, use.Span, "%v", err)
		default:
			e.bag.Errorf(resolver.ErrProviderCode, use.Span, "resolving %s: %v", use.Package, err)
		}
		e.visited[key] = visit{}
		return ir.Package{}, false
	}

	pkg := ir.Package{Path: use.Package, Version: res.Version}
	if !e.lowered[pkg.String()] {
		e.loading[use.Package] = true
		e.lowerFiles(ctx, nil, pkg, res.Files)
		delete(e.loading, use.Package)
		e.lowered[pkg.String()] = true
	}

	e.visited[key] = visit{pkg: pkg, ok: true}
	return pkg, true
}

// checkCrossVersion flags references that would unify two pinned
// versions of the same package path in one program.
func (e *environment) checkCrossVersion(module *ir.Module) {
	// Two versions of one path may coexist in the arena (diamond
	// imports); the error is a reference set that reaches both.
	seen := make(map[string]vrange.Version)
	for _, d := range e.arena.Decls() {
		walkRefs(d, func(ref ir.TypeRef, span source.Span) {
			if ref.Kind != ir.RefNamed {
				return
			}
			p := ref.Named.Package
			if prev, ok := seen[p.Path]; ok && !prev.Equal(p.Version) {
				e.bag.Add(diag.Finding{
					Severity: diag.Error,
					Code:     ErrCrossVersion,
					Message: "reference to " + ref.Named.Key() +
						" requires unifying versions " + prev.String() + " and " +
						p.Version.String() + " of package " + p.Path,
					Span: span,
				})
				return
			}
			seen[p.Path] = p.Version
		})
	}
}

// walkRefs visits every type reference in a declaration, including
// references nested inside containers, together with the span each
// should be reported at.
func walkRefs(d *ir.Decl, fn func(ir.TypeRef, source.Span)) {
	var visitRef func(ref ir.TypeRef, span source.Span)
	visitRef = func(ref ir.TypeRef, span source.Span) {
		fn(ref, span)
		switch ref.Kind {
		case ir.RefArray, ir.RefOptional:
			visitRef(*ref.Elem, span)
		case ir.RefMap:
			visitRef(*ref.Key, span)
			visitRef(*ref.Value, span)
		}
	}
	visitFields := func(fields []*ir.Field) {
		for _, f := range fields {
			visitRef(f.Type, f.Span)
		}
	}
	switch d.Kind {
	case ir.KindType:
		visitFields(d.Type.Fields)
	case ir.KindTuple:
		visitFields(d.Tuple.Fields)
	case ir.KindInterface:
		visitFields(d.Interface.SharedFields)
		for _, sub := range d.Interface.SubTypes {
			visitFields(sub.Fields)
		}
	case ir.KindService:
		for _, ep := range d.Service.Endpoints {
			for _, arg := range ep.Args {
				visitRef(arg.Type, ep.Span)
			}
			if ep.Result != nil {
				visitRef(ep.Result.Type, ep.Span)
			}
		}
	}
}
