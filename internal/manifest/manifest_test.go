package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	data := []byte(`
roots:
  - package: example.api
    version: 1.2.0
    paths:
      - idl/api.varro
providers:
  - kind: local
    path: vendor/idl
    index: .varro/index.db
targets:
  json:
    filename: api.ir.json
`)
	m, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, m.Roots, 1)
	assert.Equal(t, "example.api", m.Roots[0].Package)
	assert.Equal(t, "1.2.0", m.Roots[0].Version)
	assert.Equal(t, []string{"idl/api.varro"}, m.Roots[0].Paths)

	require.Len(t, m.Providers, 1)
	assert.Equal(t, "local", m.Providers[0].Kind)
	assert.Equal(t, ".varro/index.db", m.Providers[0].Index)

	assert.Equal(t, "api.ir.json", m.Targets["json"]["filename"])
	assert.Empty(t, m.Validate())
}

func TestValidateNoRoots(t *testing.T) {
	m := &Manifest{}
	errs := m.Validate()
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrNoRoots, errs[0].Code)
}

func TestValidateCollectsAll(t *testing.T) {
	m := &Manifest{
		Roots: []Root{
			{Package: "", Version: "not.a.version"},
		},
		Providers: []Provider{
			{Kind: "ftp"},
			{Kind: "local"},
		},
	}
	errs := m.Validate()

	var gotCodes []string
	for _, e := range errs {
		gotCodes = append(gotCodes, e.Code)
	}
	assert.Contains(t, gotCodes, ErrBadRootPackage)
	assert.Contains(t, gotCodes, ErrBadRootVersion)
	assert.Contains(t, gotCodes, ErrUnknownProvider)
	assert.Contains(t, gotCodes, ErrProviderPath)
}

func TestParseBadYAML(t *testing.T) {
	_, err := Parse([]byte("roots: ["))
	assert.Error(t, err)
}

func TestBuildResolverUnknownProvider(t *testing.T) {
	m := &Manifest{Providers: []Provider{{Kind: "ftp"}}}
	_, _, err := m.BuildResolver()
	assert.Error(t, err)
}

func TestBuildResolverLocal(t *testing.T) {
	m := &Manifest{Providers: []Provider{{Kind: "local", Path: t.TempDir()}}}
	res, closeRes, err := m.BuildResolver()
	require.NoError(t, err)
	defer closeRes()
	assert.NotNil(t, res)
}
