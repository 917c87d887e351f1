package backend

import (
	"fmt"
	"strings"

	"github.com/varro-lang/varro/internal/ir"
)

func init() {
	Register(&JSON{})
}

// JSON emits the canonical IR snapshot. Because the snapshot encoding
// is canonical, the output is byte-identical across runs for identical
// resolver responses.
type JSON struct{}

func (b *JSON) Name() string { return "json" }

// Emit writes one snapshot file named after the root package.
// Options: "filename" overrides the output file name.
func (b *JSON) Emit(module *ir.Module, options map[string]string) ([]OutputFile, error) {
	data, err := ir.Snapshot(module)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	name := options["filename"]
	if name == "" {
		name = strings.ReplaceAll(module.Package.Path, ".", "_") + ".ir.json"
	}
	return []OutputFile{{Path: name, Content: data}}, nil
}
