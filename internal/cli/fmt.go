package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/varro-lang/varro/internal/ast"
	"github.com/varro-lang/varro/internal/parser"
	"github.com/varro-lang/varro/internal/source"
)

// FmtOptions holds flags for the fmt command.
type FmtOptions struct {
	*RootOptions
	Write bool
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FmtOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Format IDL sources",
		Long: `Parse and pretty-print IDL sources with normalized formatting.
The output parses back to the same AST.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "rewrite files in place")

	return cmd
}

func runFmt(opts *FmtOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	buffers, err := LoadSources(args)
	if err != nil {
		return err
	}

	for _, buf := range buffers {
		file, bag := parser.Parse(buf)
		if bag.HasErrors() {
			buffersByPath := map[string]*source.Buffer{buf.Path: buf}
			if printErr := printFindings(formatter, bag, buffersByPath); printErr != nil {
				return printErr
			}
			return NewExitError(ExitCommandError, buf.Path+" does not parse")
		}
		text := ast.Print(file)
		if opts.Write {
			if err := os.WriteFile(buf.Path, []byte(text), 0o644); err != nil {
				return WrapExitError(ExitCommandError, "writing "+buf.Path, err)
			}
			formatter.VerboseLog("formatted %s", buf.Path)
			continue
		}
		formatter.Printf("%s", text)
	}
	return nil
}
