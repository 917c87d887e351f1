package resolver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/vrange"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestIndexPutGet(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	v := vrange.MustVersion("1.0.0")
	files := []*source.Buffer{source.NewBuffer("p-1.0.0.varro", "type A {}")}

	require.NoError(t, ix.Put(ctx, "p", v, files))

	got, ok, err := ix.Get(ctx, "p", v)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "type A {}", got[0].Text())
}

func TestIndexGetMiss(t *testing.T) {
	ix := openTestIndex(t)
	_, ok, err := ix.Get(context.Background(), "p", vrange.MustVersion("1.0.0"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexPutIsImmutable(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	v := vrange.MustVersion("1.0.0")

	require.NoError(t, ix.Put(ctx, "p", v,
		[]*source.Buffer{source.NewBuffer("a.varro", "type A {}")}))
	// A second put for the same (path, version) is ignored.
	require.NoError(t, ix.Put(ctx, "p", v,
		[]*source.Buffer{source.NewBuffer("b.varro", "type B {}")}))

	got, ok, err := ix.Get(ctx, "p", v)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "a.varro", got[0].Path)
}

func TestIndexVersions(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Put(ctx, "p", vrange.MustVersion("1.0.0"), nil))
	require.NoError(t, ix.Put(ctx, "p", vrange.MustVersion("1.2.0"), nil))

	versions, err := ix.Versions(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestCachedReadThrough(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	inner := NewMemory()
	inner.AddSource("p", "1.1.0", "type A {}")

	cached := NewCached(inner, ix)

	// Miss fills the cache.
	res, err := cached.Resolve(ctx, "p", vrange.MustRange("^1"))
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", res.Version.String())

	// The cache now serves the package even if the inner provider
	// loses it.
	empty := NewCached(NewMemory(), ix)
	res, err = empty.Resolve(ctx, "p", vrange.MustRange("^1"))
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", res.Version.String())
	require.Len(t, res.Files, 1)
	assert.Equal(t, "type A {}", res.Files[0].Text())
}
