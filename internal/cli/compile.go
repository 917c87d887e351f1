package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/varro-lang/varro/internal/backend"
	"github.com/varro-lang/varro/internal/ir"
	"github.com/varro-lang/varro/internal/manifest"
	"github.com/varro-lang/varro/internal/resolver"
	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/translator"
	"github.com/varro-lang/varro/internal/vrange"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Package  string
	Version  string
	Output   string
	Backend  string
	Manifest string
	Provider string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [<file|dir>...]",
		Short: "Compile IDL sources to canonical IR",
		Long: `Compile a root package's IDL sources, resolving imports through the
configured providers, and emit the canonical IR snapshot.

Findings print to standard output; machine-readable mode (--format
json) emits a stable array sorted by (file, start).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Package, "package", "p", "main", "root package path")
	cmd.Flags().StringVar(&opts.Version, "pkg-version", "", "root package version")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory for emitted files")
	cmd.Flags().StringVar(&opts.Backend, "backend", "json", "backend to emit with")
	cmd.Flags().StringVarP(&opts.Manifest, "manifest", "m", "", "build manifest (varro.yaml)")
	cmd.Flags().StringVar(&opts.Provider, "path", "", "local provider root for imports")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	formatter.VerboseLog("build %s", uuid.Must(uuid.NewV7()))

	in, err := compileInputs(opts, args, formatter)
	if err != nil {
		return err
	}
	defer in.close()
	res, roots, pkg := in.res, in.roots, in.pkg

	module, bag, info, err := translator.TranslateWithInfo(cmd.Context(), roots, pkg, res)
	if err != nil {
		return WrapExitError(ExitCommandError, "compilation aborted", err)
	}

	if err := printFindings(formatter, bag, info.Buffers); err != nil {
		return err
	}
	if bag.HasErrors() {
		return NewExitError(ExitFailure, "compilation failed")
	}

	b, err := backend.Get(opts.Backend)
	if err != nil {
		return WrapExitError(ExitCommandError, "selecting backend", err)
	}
	files, err := b.Emit(module, in.options)
	if err != nil {
		return WrapExitError(ExitCommandError, "emitting", err)
	}

	if opts.Output == "" {
		for _, f := range files {
			formatter.VerboseLog("emitted %s (%d bytes)", f.Path, len(f.Content))
		}
		if opts.Format == "text" {
			formatter.Printf("compiled %s: %d declarations\n", module.Package, module.Arena.Len())
		}
		return nil
	}

	for _, f := range files {
		target := filepath.Join(opts.Output, f.Path)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return WrapExitError(ExitCommandError, "creating output directory", err)
		}
		if err := os.WriteFile(target, f.Content, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "writing "+target, err)
		}
		formatter.VerboseLog("wrote %s", target)
	}
	if opts.Format == "text" {
		formatter.Printf("compiled %s: %d declarations, %d files\n",
			module.Package, module.Arena.Len(), len(files))
	}
	return nil
}

// compileIn is everything a compile run needs: sources, root package
// identity, the resolver, and target options.
type compileIn struct {
	res     resolver.Resolver
	close   func() error
	roots   []*source.Buffer
	pkg     ir.Package
	options map[string]string
}

// compileInputs assembles inputs from flags or the manifest.
func compileInputs(opts *CompileOptions, args []string, formatter *OutputFormatter) (*compileIn, error) {
	pkg := ir.Package{Path: opts.Package}
	if opts.Version != "" {
		v, err := vrange.ParseVersion(opts.Version)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "bad --pkg-version", err)
		}
		pkg.Version = v
	}

	if opts.Manifest == "" {
		if len(args) == 0 {
			return nil, NewExitError(ExitCommandError, "no input files (pass sources or --manifest)")
		}
		roots, err := LoadSources(args)
		if err != nil {
			return nil, err
		}
		var res resolver.Resolver = resolver.NewMemory()
		if opts.Provider != "" {
			res = resolver.NewLocal(opts.Provider)
		}
		return &compileIn{
			res:   res,
			close: func() error { return nil },
			roots: roots,
			pkg:   pkg,
		}, nil
	}

	m, err := manifest.Load(opts.Manifest)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading manifest", err)
	}
	if errs := m.Validate(); len(errs) > 0 {
		for _, e := range errs {
			formatter.Printf("%v\n", e)
		}
		return nil, NewExitError(ExitCommandError, "invalid manifest")
	}

	root := m.Roots[0]
	if len(m.Roots) > 1 {
		formatter.VerboseLog("compiling first of %d roots: %s", len(m.Roots), root.Package)
	}
	pkg = ir.Package{Path: root.Package}
	if root.Version != "" {
		pkg.Version, _ = vrange.ParseVersion(root.Version)
	}

	res, closeRes, err := m.BuildResolver()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "building resolver", err)
	}

	sources := root.Paths
	if len(sources) == 0 && len(args) > 0 {
		sources = args
	}
	if len(sources) == 0 {
		closeRes()
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("root %s lists no source paths", root.Package))
	}
	roots, err := LoadSources(sources)
	if err != nil {
		closeRes()
		return nil, err
	}
	return &compileIn{
		res:     res,
		close:   closeRes,
		roots:   roots,
		pkg:     pkg,
		options: m.Targets[opts.Backend],
	}, nil
}
