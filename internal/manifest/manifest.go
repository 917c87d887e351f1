// Package manifest loads the build manifest: root packages, resolver
// providers, and per-target options.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/varro-lang/varro/internal/resolver"
	"github.com/varro-lang/varro/internal/vrange"
)

// Manifest error codes (M10x).
const (
	ErrNoRoots         = "M101"
	ErrBadRootPackage  = "M102"
	ErrBadRootVersion  = "M103"
	ErrUnknownProvider = "M104"
	ErrProviderPath    = "M105"
)

// Manifest is the typed configuration record the core accepts.
type Manifest struct {
	Roots     []Root                       `yaml:"roots"`
	Providers []Provider                   `yaml:"providers"`
	Targets   map[string]map[string]string `yaml:"targets,omitempty"`
}

// Root names one root package to compile.
type Root struct {
	Package string   `yaml:"package"`
	Version string   `yaml:"version,omitempty"`
	Paths   []string `yaml:"paths,omitempty"` // explicit source files
}

// Provider configures one resolver provider.
type Provider struct {
	Kind  string `yaml:"kind"` // "local"
	Path  string `yaml:"path,omitempty"`
	Index string `yaml:"index,omitempty"` // optional sqlite cache
}

// ValidationError is one manifest validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}

// Parse parses manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// Validate returns all validation errors; it does not fail fast.
func (m *Manifest) Validate() []ValidationError {
	var errs []ValidationError

	if len(m.Roots) == 0 {
		errs = append(errs, ValidationError{
			Field: "roots", Code: ErrNoRoots,
			Message: "at least one root package is required",
		})
	}
	for i, root := range m.Roots {
		field := fmt.Sprintf("roots[%d]", i)
		if root.Package == "" {
			errs = append(errs, ValidationError{
				Field: field + ".package", Code: ErrBadRootPackage,
				Message: "package path is required",
			})
		}
		if root.Version != "" {
			if _, err := vrange.ParseVersion(root.Version); err != nil {
				errs = append(errs, ValidationError{
					Field: field + ".version", Code: ErrBadRootVersion,
					Message: err.Error(),
				})
			}
		}
	}
	for i, p := range m.Providers {
		field := fmt.Sprintf("providers[%d]", i)
		switch p.Kind {
		case "local":
			if p.Path == "" {
				errs = append(errs, ValidationError{
					Field: field + ".path", Code: ErrProviderPath,
					Message: "local provider needs a path",
				})
			}
		default:
			errs = append(errs, ValidationError{
				Field: field + ".kind", Code: ErrUnknownProvider,
				Message: fmt.Sprintf("unknown provider kind %q", p.Kind),
			})
		}
	}
	return errs
}

// BuildResolver assembles the provider chain described by the
// manifest. The returned closer releases any index databases.
func (m *Manifest) BuildResolver() (resolver.Resolver, func() error, error) {
	var providers []resolver.Resolver
	var indexes []*resolver.Index

	closeAll := func() error {
		var firstErr error
		for _, ix := range indexes {
			if err := ix.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, p := range m.Providers {
		switch p.Kind {
		case "local":
			var prov resolver.Resolver = resolver.NewLocal(p.Path)
			if p.Index != "" {
				ix, err := resolver.OpenIndex(p.Index)
				if err != nil {
					closeAll()
					return nil, nil, err
				}
				indexes = append(indexes, ix)
				prov = resolver.NewCached(prov, ix)
			}
			providers = append(providers, prov)
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown provider kind %q", p.Kind)
		}
	}
	return resolver.NewChain(providers...), closeAll, nil
}
