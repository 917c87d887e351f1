// Package backend defines the emitter boundary. Backends consume IR
// only; they never see the AST.
package backend

import (
	"fmt"
	"sort"

	"github.com/varro-lang/varro/internal/ir"
)

// OutputFile is one emitted artifact.
type OutputFile struct {
	Path    string
	Content []byte
}

// Backend turns a lowered module into output files.
type Backend interface {
	Name() string
	Emit(module *ir.Module, options map[string]string) ([]OutputFile, error)
}

var registry = map[string]Backend{}

// Register adds a backend to the registry. Called from init.
func Register(b Backend) {
	registry[b.Name()] = b
}

// Get looks up a backend by name.
func Get(name string) (Backend, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, Names())
	}
	return b, nil
}

// Names lists registered backends, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
