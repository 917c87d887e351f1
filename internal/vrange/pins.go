package vrange

import "sync"

// Pins memoizes (package path, range) -> version for one compilation.
//
// Two use sites with the same path and range must converge on the same
// version no matter which one is resolved first; the memo is the only
// mutable state the resolver layer shares. Different ranges for the
// same path may pin different versions; whether that is legal depends
// on whether a type crosses the boundary, which the translator checks.
type Pins struct {
	mu     sync.Mutex
	byKey  map[pinKey]Version
	byPath map[string][]Version
}

type pinKey struct {
	path string
	rng  string
}

// NewPins creates an empty pin memo.
func NewPins() *Pins {
	return &Pins{
		byKey:  make(map[pinKey]Version),
		byPath: make(map[string][]Version),
	}
}

// Lookup returns the pinned version for (path, range), if any.
func (p *Pins) Lookup(path string, rng Range) (Version, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.byKey[pinKey{path: path, rng: rng.String()}]
	return v, ok
}

// Pin records the version chosen for (path, range). Pinning the same
// key twice with a different version is a programming error upstream,
// so the first pin wins and is returned.
func (p *Pins) Pin(path string, rng Range, v Version) Version {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := pinKey{path: path, rng: rng.String()}
	if existing, ok := p.byKey[key]; ok {
		return existing
	}
	p.byKey[key] = v
	p.byPath[path] = append(p.byPath[path], v)
	return v
}

// VersionsOf returns every distinct version pinned for a package path,
// across all ranges seen during the compilation.
func (p *Pins) VersionsOf(path string) []Version {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Version
	for _, v := range p.byPath[path] {
		dup := false
		for _, seen := range out {
			if seen.Equal(v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}
