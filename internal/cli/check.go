package cli

import (
	"github.com/spf13/cobra"

	"github.com/varro-lang/varro/internal/compat"
	"github.com/varro-lang/varro/internal/diag"
	"github.com/varro-lang/varro/internal/ir"
	"github.com/varro-lang/varro/internal/resolver"
	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/translator"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Package        string
	Provider       string
	StrictUntagged bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <old> <new>",
		Short: "Check backward compatibility between two package versions",
		Long: `Lower two versions of the same package and report every difference,
classified as compatible, minor-breaking, or breaking.

Exit code is 1 when any breaking finding exists; minor-breaking and
compatible findings never fail the check.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Package, "package", "p", "main", "package path of both versions")
	cmd.Flags().StringVar(&opts.Provider, "path", "", "local provider root for imports")
	cmd.Flags().BoolVar(&opts.StrictUntagged, "strict-untagged", false,
		"treat untagged sub-type additions as breaking")

	return cmd
}

func runCheck(opts *CheckOptions, oldArg, newArg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	oldModule, buffers, err := lowerForCheck(opts, oldArg, "old", cmd, formatter)
	if err != nil {
		return err
	}
	newModule, newBuffers, err := lowerForCheck(opts, newArg, "new", cmd, formatter)
	if err != nil {
		return err
	}
	for path, buf := range newBuffers {
		buffers[path] = buf
	}

	findings := compat.Check(oldModule, newModule, compat.Options{
		StrictUntagged: opts.StrictUntagged,
	})

	bag := &diag.Bag{}
	breaking := 0
	for _, f := range findings {
		if f.Level == compat.Breaking {
			breaking++
		}
		bag.Add(f.ToDiag())
	}

	if formatter.Format == "json" {
		if err := formatter.PrintJSON(findings); err != nil {
			return err
		}
	} else {
		if err := bag.WriteText(formatter.Writer, buffers); err != nil {
			return err
		}
		formatter.Printf("%d findings, %d breaking\n", len(findings), breaking)
	}

	if breaking > 0 {
		return NewExitError(ExitFailure, "breaking changes found")
	}
	return nil
}

// lowerForCheck compiles one side of the comparison; lowering errors
// are command errors here, because compat needs valid IR on both
// sides.
func lowerForCheck(opts *CheckOptions, arg, label string, cmd *cobra.Command, formatter *OutputFormatter) (*ir.Module, map[string]*source.Buffer, error) {
	roots, err := LoadSources([]string{arg})
	if err != nil {
		return nil, nil, err
	}
	var res resolver.Resolver = resolver.NewMemory()
	if opts.Provider != "" {
		res = resolver.NewLocal(opts.Provider)
	}
	module, bag, info, err := translator.TranslateWithInfo(
		cmd.Context(), roots, ir.Package{Path: opts.Package}, res)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "compilation aborted", err)
	}
	if module == nil {
		if printErr := printFindings(formatter, bag, info.Buffers); printErr != nil {
			return nil, nil, printErr
		}
		return nil, nil, NewExitError(ExitCommandError, label+" version does not lower cleanly")
	}
	return module, info.Buffers, nil
}
