package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/vrange"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"b": int64(1),
		"a": int64(2),
		"c": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":"x"}`, string(data))
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"k": "<a> & </a>"})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"<a> & </a>"}`, string(data))
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"f": 1.5})
	assert.Error(t, err)
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"n": nil})
	assert.Error(t, err)
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "é" as 'e' + combining acute must normalize to the composed form.
	decomposed := "é"
	data, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, `"é"`, string(data))
}

func TestMarshalCanonicalEscapes(t *testing.T) {
	data, err := MarshalCanonical("a\nb\tc\x01")
	require.NoError(t, err)
	assert.Equal(t, "\"a\\nb\\tc\\u0001\"", string(data))
}

func demoModule(t *testing.T) *Module {
	t.Helper()
	pkg := Package{Path: "demo", Version: vrange.MustVersion("1.0.0")}
	arena := NewArena()
	decl := &Decl{
		Name: Name{Package: pkg, Path: []string{"Post"}},
		Kind: KindType,
		Span: source.Span{Path: "demo.varro", Start: 0, End: 10},
		Type: &Type{Fields: []*Field{
			{
				Name:  "title",
				Type:  PrimitiveRef(PrimString),
				Index: 0,
				Span:  source.Span{Path: "demo.varro", Start: 2, End: 8},
			},
		}},
	}
	_, ok := arena.Add(decl)
	require.True(t, ok)
	return &Module{Package: pkg, Arena: arena}
}

func TestSnapshotDeterministic(t *testing.T) {
	module := demoModule(t)

	first, err := Snapshot(module)
	require.NoError(t, err)
	second, err := Snapshot(module)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeclHashStable(t *testing.T) {
	module := demoModule(t)
	decl := module.Decls()[0]

	h1, err := DeclHash(decl)
	require.NoError(t, err)
	h2, err := DeclHash(decl)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Different content hashes differently.
	other := *decl
	other.Name = Name{Package: decl.Name.Package, Path: []string{"Other"}}
	h3, err := DeclHash(&other)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestArenaRejectsDuplicates(t *testing.T) {
	pkg := Package{Path: "demo"}
	arena := NewArena()
	a := &Decl{Name: Name{Package: pkg, Path: []string{"T"}}, Kind: KindType, Type: &Type{}}
	b := &Decl{Name: Name{Package: pkg, Path: []string{"T"}}, Kind: KindEnum, Enum: &Enum{}}

	_, ok := arena.Add(a)
	require.True(t, ok)
	existing, ok := arena.Add(b)
	assert.False(t, ok)
	assert.Same(t, a, existing)
	assert.Equal(t, 1, arena.Len())
}

func TestOptionalRefCollapses(t *testing.T) {
	inner := OptionalRef(PrimitiveRef(PrimString))
	outer := OptionalRef(inner)
	assert.Equal(t, inner, outer)
}

func TestNameKey(t *testing.T) {
	pkg := Package{Path: "example.common", Version: vrange.MustVersion("1.0.0")}
	name := Name{Package: pkg, Path: []string{"Message"}}
	assert.Equal(t, "example.common#1.0.0::Message", name.Key())
	assert.Equal(t, "example.common#1.0.0::Message.Inner", name.Nested("Inner").Key())
}

func TestTypeRefEqualIgnoringVersion(t *testing.T) {
	a := NamedRef(Name{Package: Package{Path: "p", Version: vrange.MustVersion("1.0.0")}, Path: []string{"T"}})
	b := NamedRef(Name{Package: Package{Path: "p", Version: vrange.MustVersion("2.0.0")}, Path: []string{"T"}})
	assert.False(t, a.Equal(b))
	assert.True(t, a.EqualIgnoringVersion(b))
}
