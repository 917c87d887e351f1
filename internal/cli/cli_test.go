package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, _, err := runCommand(t, "--format", "xml", "compile", "x")
	assert.Error(t, err)
}

func TestCompileCleanSource(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "post.varro", "type Post { title: string; }\n")

	out, _, err := runCommand(t, "compile", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "compiled main: 1 declarations")
}

func TestCompileJSONFindingsAreStable(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "post.varro", "type Post { title: string; }\n")

	out, _, err := runCommand(t, "--format", "json", "compile", dir)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestCompileErrorsExitOne(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "bad.varro", "type T { x: Missing; }\n")

	out, _, err := runCommand(t, "compile", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E304")
}

func TestCompileMissingInputExitTwo(t *testing.T) {
	_, _, err := runCommand(t, "compile", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileWritesOutput(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "post.varro", "type Post { title: string; }\n")
	outDir := filepath.Join(dir, "out")

	_, _, err := runCommand(t, "compile", "-p", "demo", "-o", outDir,
		filepath.Join(dir, "post.varro"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "demo.ir.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"format_version":"varro-ir/1"`)
}

func TestCompileWithManifest(t *testing.T) {
	dir := t.TempDir()
	src := writeFixture(t, dir, "api.varro",
		"use example.common \"^1\" as c;\ntype E { m: c::Message; }\n")
	writeFixture(t, dir, filepath.Join("vendor", "example", "common-1.2.0.varro"),
		"type Message { body: string; }\n")
	manifestPath := writeFixture(t, dir, "varro.yaml", `
roots:
  - package: example.api
    paths:
      - `+src+`
providers:
  - kind: local
    path: `+filepath.Join(dir, "vendor")+`
`)

	out, _, err := runCommand(t, "compile", "-m", manifestPath)
	require.NoError(t, err)
	assert.Contains(t, out, "compiled example.api")
}

func TestCheckCompatibleExitsZero(t *testing.T) {
	dir := t.TempDir()
	oldFile := writeFixture(t, dir, "old.varro",
		`enum State as string { Open as "open"; }`)
	newFile := writeFixture(t, dir, "new.varro",
		`enum State as string { Open as "open"; Half as "half"; }`)

	out, _, err := runCommand(t, "check", oldFile, newFile)
	require.NoError(t, err)
	assert.Contains(t, out, "0 breaking")
}

func TestCheckBreakingExitsOne(t *testing.T) {
	dir := t.TempDir()
	oldFile := writeFixture(t, dir, "old.varro", "type T { a: string; b: string; }")
	newFile := writeFixture(t, dir, "new.varro", "type T { a: string; }")

	out, _, err := runCommand(t, "check", oldFile, newFile)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "1 breaking")
}

func TestCheckJSONOutput(t *testing.T) {
	dir := t.TempDir()
	oldFile := writeFixture(t, dir, "old.varro", "type T { a: string; }")
	newFile := writeFixture(t, dir, "new.varro", "type T { a: string; b?: u32; }")

	out, _, err := runCommand(t, "--format", "json", "check", oldFile, newFile)
	require.NoError(t, err)
	assert.Contains(t, out, `"level": "compatible"`)
	assert.Contains(t, out, `"C110"`)
}

func TestCheckUnparsableInputExitsTwo(t *testing.T) {
	dir := t.TempDir()
	oldFile := writeFixture(t, dir, "old.varro", "type T {")
	newFile := writeFixture(t, dir, "new.varro", "type T {}")

	_, _, err := runCommand(t, "check", oldFile, newFile)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFmtPrintsNormalizedSource(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "messy.varro",
		"type   Post{title:string;tags:[string];}")

	out, _, err := runCommand(t, "fmt", path)
	require.NoError(t, err)
	assert.Equal(t, "type Post {\n  title: string;\n  tags: [string];\n}\n", out)
}

func TestFmtWriteRewritesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "messy.varro", "type Post{title:string;}")

	_, _, err := runCommand(t, "fmt", "--write", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "type Post {\n  title: string;\n}\n", string(data))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError,
		GetExitCode(WrapExitError(ExitCommandError, "wrap", errors.New("inner"))))
}
