// Package resolver locates package sources by path and version range.
//
// A Resolver returns the source files of the highest version within a
// range. The translator only ever talks to this interface; where the
// bytes come from (memory, a source tree, a cached repository) is a
// provider concern. Resolution is the compilation's only suspension
// point, so every provider honors context cancellation.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/vrange"
)

// Resolve error codes (E20x).
const (
	ErrNoVersionCode = "E201"
	ErrProviderCode  = "E202"
	ErrCycleCode     = "E203"
)

// Resolved is the outcome of a successful resolve: the version chosen
// and the package's source files tagged with logical paths.
type Resolved struct {
	Version vrange.Version
	Files   []*source.Buffer
}

// Resolver locates a package by path and version range.
type Resolver interface {
	Resolve(ctx context.Context, path string, rng vrange.Range) (Resolved, error)
}

// NoVersionError reports that no discoverable version satisfies the
// range.
type NoVersionError struct {
	Path  string
	Range vrange.Range
}

func (e *NoVersionError) Error() string {
	return fmt.Sprintf("no version of %s in range %q", e.Path, e.Range)
}

// Memory is an in-memory resolver for tests and programmatic use.
type Memory struct {
	packages map[string][]memoryEntry
}

type memoryEntry struct {
	version vrange.Version
	files   []*source.Buffer
}

// NewMemory creates an empty in-memory resolver.
func NewMemory() *Memory {
	return &Memory{packages: make(map[string][]memoryEntry)}
}

// Add registers one version of a package.
func (m *Memory) Add(path string, version vrange.Version, files ...*source.Buffer) {
	m.packages[path] = append(m.packages[path], memoryEntry{version: version, files: files})
}

// AddSource registers a single-file package version from a string.
func (m *Memory) AddSource(path, version, content string) {
	v := vrange.MustVersion(version)
	logical := fmt.Sprintf("%s-%s.varro", path, version)
	m.Add(path, v, source.NewBuffer(logical, content))
}

// Resolve returns the highest registered version within the range.
func (m *Memory) Resolve(ctx context.Context, path string, rng vrange.Range) (Resolved, error) {
	if err := ctx.Err(); err != nil {
		return Resolved{}, err
	}
	var best *memoryEntry
	for i := range m.packages[path] {
		entry := &m.packages[path][i]
		if !rng.Matches(entry.version) {
			continue
		}
		if best == nil || entry.version.Compare(best.version) > 0 {
			best = entry
		}
	}
	if best == nil {
		return Resolved{}, &NoVersionError{Path: path, Range: rng}
	}
	return Resolved{Version: best.version, Files: best.files}, nil
}

// Chain queries several providers and picks the highest version found
// across all of them.
type Chain struct {
	providers []Resolver
}

// NewChain builds a chain over providers in query order.
func NewChain(providers ...Resolver) *Chain {
	return &Chain{providers: providers}
}

// Resolve queries every provider; the highest matching version wins.
// Provider failures other than "no version" abort the resolve.
func (c *Chain) Resolve(ctx context.Context, path string, rng vrange.Range) (Resolved, error) {
	var best Resolved
	found := false
	for _, p := range c.providers {
		res, err := p.Resolve(ctx, path, rng)
		if err != nil {
			var noVersion *NoVersionError
			if errors.As(err, &noVersion) {
				continue
			}
			return Resolved{}, err
		}
		if !found || res.Version.Compare(best.Version) > 0 {
			best = res
			found = true
		}
	}
	if !found {
		return Resolved{}, &NoVersionError{Path: path, Range: rng}
	}
	return best, nil
}

// Pinned wraps a resolver with the per-compilation pin memo: the same
// (path, range) always resolves to the same version and the same file
// set, no matter how many use sites ask.
type Pinned struct {
	inner Resolver
	pins  *vrange.Pins
	memo  map[string]Resolved
}

// NewPinned wraps a resolver with a pin memo.
func NewPinned(inner Resolver, pins *vrange.Pins) *Pinned {
	return &Pinned{inner: inner, pins: pins, memo: make(map[string]Resolved)}
}

// Pins exposes the pin memo.
func (p *Pinned) Pins() *vrange.Pins { return p.pins }

// Resolve resolves through the memo.
func (p *Pinned) Resolve(ctx context.Context, path string, rng vrange.Range) (Resolved, error) {
	key := path + "\x00" + rng.String()
	if res, ok := p.memo[key]; ok {
		return res, nil
	}
	res, err := p.inner.Resolve(ctx, path, rng)
	if err != nil {
		return Resolved{}, err
	}
	res.Version = p.pins.Pin(path, rng, res.Version)
	p.memo[key] = res
	return res, nil
}
