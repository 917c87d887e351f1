package ir

// Arena owns every lowered declaration, keyed by canonical name.
//
// Insertion order is preserved and is the only iteration order, which
// keeps IR output byte-identical across runs for identical inputs.
type Arena struct {
	byName map[string]*Decl
	order  []string
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{byName: make(map[string]*Decl)}
}

// Add inserts a declaration. When the canonical name is already taken
// the arena is unchanged and the existing declaration is returned with
// ok=false.
func (a *Arena) Add(d *Decl) (existing *Decl, ok bool) {
	key := d.Name.Key()
	if prev, taken := a.byName[key]; taken {
		return prev, false
	}
	a.byName[key] = d
	a.order = append(a.order, key)
	return d, true
}

// Get returns the declaration for a canonical name key.
func (a *Arena) Get(key string) (*Decl, bool) {
	d, ok := a.byName[key]
	return d, ok
}

// Lookup returns the declaration for a canonical name.
func (a *Arena) Lookup(name Name) (*Decl, bool) {
	return a.Get(name.Key())
}

// Len returns the number of declarations.
func (a *Arena) Len() int { return len(a.order) }

// Decls returns all declarations in insertion order.
func (a *Arena) Decls() []*Decl {
	out := make([]*Decl, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, a.byName[key])
	}
	return out
}

// Module is the lowered result of one compilation: the root package,
// naming policy from file-level attributes, and the arena holding the
// root declarations plus every transitively imported one.
type Module struct {
	Package Package `json:"package"`
	Attrs   Attrs   `json:"attrs,omitempty"`
	Arena   *Arena  `json:"-"`
}

// Decls returns every declaration in the arena in insertion order.
func (m *Module) Decls() []*Decl { return m.Arena.Decls() }

// RootDecls returns the declarations belonging to the root package.
func (m *Module) RootDecls() []*Decl {
	var out []*Decl
	for _, d := range m.Arena.Decls() {
		if d.Name.Package.Equal(m.Package) {
			out = append(out, d)
		}
	}
	return out
}

// Lookup finds a declaration by canonical name.
func (m *Module) Lookup(name Name) (*Decl, bool) { return m.Arena.Lookup(name) }
