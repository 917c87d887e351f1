package compat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varro-lang/varro/internal/ir"
	"github.com/varro-lang/varro/internal/resolver"
	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/translator"
)

func lower(t *testing.T, src string) *ir.Module {
	t.Helper()
	roots := []*source.Buffer{source.NewBuffer("pkg.varro", src)}
	module, bag, err := translator.Translate(
		context.Background(), roots, ir.Package{Path: "pkg"}, resolver.NewMemory())
	require.NoError(t, err)
	require.NotNil(t, module, "findings: %v", bag.Findings())
	return module
}

func check(t *testing.T, oldSrc, newSrc string) []Finding {
	t.Helper()
	return Check(lower(t, oldSrc), lower(t, newSrc), Options{})
}

func levels(findings []Finding) map[Level]int {
	out := map[Level]int{}
	for _, f := range findings {
		out[f.Level]++
	}
	return out
}

func onlyCode(t *testing.T, findings []Finding, code string) Finding {
	t.Helper()
	var out []Finding
	for _, f := range findings {
		if f.Code == code {
			out = append(out, f)
		}
	}
	require.Len(t, out, 1, "findings: %v", findings)
	return out[0]
}

func TestCheckIdenticalIsClean(t *testing.T) {
	src := `type T { a: string; b?: u32; }
enum E as string { X; }
tuple P { a: string; b: u64; }
interface I { A; B { v: string; } }
service S { get(id: string) -> T; }`
	findings := check(t, src, src)
	assert.Empty(t, findings)
}

func TestCheckEnumVariantAdded(t *testing.T) {
	oldSrc := `enum State as string { Open as "open"; Closed as "closed"; }`
	newSrc := `enum State as string { Open as "open"; Closed as "closed"; Half as "half"; }`

	findings := check(t, oldSrc, newSrc)
	require.Len(t, findings, 1)
	assert.Equal(t, Compatible, findings[0].Level)
	assert.Equal(t, CodeVariantAdded, findings[0].Code)
	assert.Zero(t, levels(findings)[Breaking])
}

func TestCheckRequiredFieldRemoved(t *testing.T) {
	oldSrc := `type T { a: string; b: string; }`
	newSrc := `type T { a: string; }`

	findings := check(t, oldSrc, newSrc)
	f := onlyCode(t, findings, CodeFieldRemoved)
	assert.Equal(t, Breaking, f.Level)
	assert.Contains(t, f.Message, "b")
}

func TestCheckOptionalFieldRemovedIsMinor(t *testing.T) {
	findings := check(t, `type T { a: string; b?: string; }`, `type T { a: string; }`)
	f := onlyCode(t, findings, CodeFieldRemoved)
	assert.Equal(t, MinorBreaking, f.Level)
}

func TestCheckRemovedAndReservedIsMinor(t *testing.T) {
	oldSrc := `type T { a: string; b: string; }`
	newSrc := `#[reserved("b")]
type T { a: string; }`

	findings := check(t, oldSrc, newSrc)
	f := onlyCode(t, findings, CodeFieldRemoved)
	assert.Equal(t, MinorBreaking, f.Level)
}

func TestCheckFieldAdded(t *testing.T) {
	findings := check(t, `type T { a: string; }`, `type T { a: string; b?: u32; }`)
	f := onlyCode(t, findings, CodeFieldAdded)
	assert.Equal(t, Compatible, f.Level)

	findings = check(t, `type T { a: string; }`, `type T { a: string; b: u32; }`)
	f = onlyCode(t, findings, CodeFieldAdded)
	assert.Equal(t, Breaking, f.Level)
}

func TestCheckRenameWithAliasIsCompatible(t *testing.T) {
	oldSrc := `type T { title: string; }`
	newSrc := `type T { heading: string as "title"; }`

	findings := check(t, oldSrc, newSrc)
	f := onlyCode(t, findings, CodeFieldRenamed)
	assert.Equal(t, Compatible, f.Level)
}

func TestCheckRenameWithoutAliasIsBreaking(t *testing.T) {
	oldSrc := `type T { title: string; }`
	newSrc := `type T { heading: string; }`

	findings := check(t, oldSrc, newSrc)
	// Reads as a removal plus an addition, both breaking.
	counts := levels(findings)
	assert.Equal(t, 2, counts[Breaking])
}

func TestCheckWireNameChangeIsBreaking(t *testing.T) {
	findings := check(t,
		`type T { a: string; }`,
		`type T { a: string as "b"; }`)
	f := onlyCode(t, findings, CodeFieldRenamed)
	assert.Equal(t, Breaking, f.Level)
}

func TestCheckIntegerWidening(t *testing.T) {
	f := onlyCode(t, check(t, `type T { n: u32; }`, `type T { n: u64; }`), CodeTypeChanged)
	assert.Equal(t, Compatible, f.Level)

	f = onlyCode(t, check(t, `type T { n: i32; }`, `type T { n: i64; }`), CodeTypeChanged)
	assert.Equal(t, Compatible, f.Level)

	// Narrowing breaks.
	f = onlyCode(t, check(t, `type T { n: u64; }`, `type T { n: u32; }`), CodeTypeChanged)
	assert.Equal(t, Breaking, f.Level)

	// Signedness change breaks.
	f = onlyCode(t, check(t, `type T { n: u32; }`, `type T { n: i64; }`), CodeTypeChanged)
	assert.Equal(t, Breaking, f.Level)

	// float -> double is not whitelisted.
	f = onlyCode(t, check(t, `type T { n: float; }`, `type T { n: double; }`), CodeTypeChanged)
	assert.Equal(t, Breaking, f.Level)
}

func TestCheckOptionality(t *testing.T) {
	f := onlyCode(t, check(t, `type T { a: string; }`, `type T { a?: string; }`), CodeOptionalized)
	assert.Equal(t, Compatible, f.Level)

	f = onlyCode(t, check(t, `type T { a?: string; }`, `type T { a: string; }`), CodeDeoptionalized)
	assert.Equal(t, Breaking, f.Level)
}

func TestCheckEnumRules(t *testing.T) {
	f := onlyCode(t, check(t,
		`enum E as string { A; B; }`,
		`enum E as string { A; }`), CodeVariantRemoved)
	assert.Equal(t, Breaking, f.Level)

	f = onlyCode(t, check(t,
		`enum E as string { A as "a"; }`,
		`enum E as string { A as "other"; }`), CodeLiteralChanged)
	assert.Equal(t, Breaking, f.Level)

	f = onlyCode(t, check(t,
		`enum E as string { A as "1"; }`,
		`enum E as u32 { A as 1; }`), CodeEnumPrimitive)
	assert.Equal(t, Breaking, f.Level)
}

func TestCheckTupleRules(t *testing.T) {
	f := onlyCode(t, check(t,
		`tuple P { a: string; }`,
		`tuple P { a: string; b: u32; }`), CodeTupleShape)
	assert.Equal(t, Breaking, f.Level)

	f = onlyCode(t, check(t,
		`tuple P { a: string; b: u32; }`,
		`tuple P { a: string; b: u64; }`), CodeTupleShape)
	assert.Equal(t, Breaking, f.Level)
}

func TestCheckInterfaceRules(t *testing.T) {
	f := onlyCode(t, check(t,
		`interface I { A; }`,
		`interface I { A; B; }`), CodeSubTypeAdded)
	assert.Equal(t, Compatible, f.Level)

	f = onlyCode(t, check(t,
		`#[type_info(strategy = "untagged")]
interface I { A { x: string; } }`,
		`#[type_info(strategy = "untagged")]
interface I { A { x: string; } B { y: u32; } }`), CodeSubTypeAdded)
	assert.Equal(t, MinorBreaking, f.Level)

	f = onlyCode(t, check(t,
		`interface I { A; B; }`,
		`interface I { A; }`), CodeSubTypeRemoved)
	assert.Equal(t, Breaking, f.Level)

	f = onlyCode(t, check(t,
		`interface I { A; }`,
		`#[type_info(strategy = "untagged")]
interface I { A { x: string; } }`), CodeStrategy)
	assert.Equal(t, Breaking, f.Level)

	f = onlyCode(t, check(t,
		`#[type_info(strategy = "tagged", tag = "kind")]
interface I { A; }`,
		`#[type_info(strategy = "tagged", tag = "@type")]
interface I { A; }`), CodeTagChanged)
	assert.Equal(t, Breaking, f.Level)
}

func TestCheckStrictUntagged(t *testing.T) {
	oldModule := lower(t, `#[type_info(strategy = "untagged")]
interface I { A { x: string; } }`)
	newModule := lower(t, `#[type_info(strategy = "untagged")]
interface I { A { x: string; } B { y: u32; } }`)

	findings := Check(oldModule, newModule, Options{StrictUntagged: true})
	require.Len(t, findings, 1)
	assert.Equal(t, Breaking, findings[0].Level)
}

func TestCheckServiceRules(t *testing.T) {
	base := "type Post { title: string; }\n"

	f := onlyCode(t, check(t,
		base+`service S { get(id: string) -> Post; }`,
		base+`service S { get(id: string) -> Post; list() -> Post; }`), CodeEndpointAdded)
	assert.Equal(t, Compatible, f.Level)

	f = onlyCode(t, check(t,
		base+`service S { get(id: string) -> Post; }`,
		base+`service S { }`), CodeEndpointGone)
	assert.Equal(t, Breaking, f.Level)

	f = onlyCode(t, check(t,
		base+`service S { watch() -> Post; }`,
		base+`service S { watch() -> stream Post; }`), CodeStreaming)
	assert.Equal(t, Breaking, f.Level)
}

func TestCheckServiceResponseTypeRecurses(t *testing.T) {
	oldSrc := `type A { v: string; }
type B { v: string; w: string; }
service S { get() -> A; }`
	newSrc := `type A { v: string; }
type B { v: string; }
service S { get() -> B; }`

	findings := check(t, oldSrc, newSrc)

	// The reference change itself is minor-breaking, and the recursion
	// into A(old) vs B(new) finds nothing beyond A's surviving fields.
	var recursed bool
	for _, f := range findings {
		if f.Code == CodeEndpointType {
			assert.Equal(t, MinorBreaking, f.Level)
			recursed = true
		}
	}
	assert.True(t, recursed)
}

func TestCheckDeclRemovedAndAdded(t *testing.T) {
	findings := check(t, `type A {}`, `type B {}`)
	require.Len(t, findings, 2)
	assert.Equal(t, Breaking, onlyCode(t, findings, CodeDeclRemoved).Level)
	assert.Equal(t, Compatible, onlyCode(t, findings, CodeDeclAdded).Level)
}

func TestCheckKindChanged(t *testing.T) {
	f := onlyCode(t, check(t, `type X {}`, `enum X as string { A; }`), CodeKindChanged)
	assert.Equal(t, Breaking, f.Level)
}

func TestCheckSymmetryNeverPanics(t *testing.T) {
	oldSrc := `type T { a: string; b?: u32; }
enum E as string { A; }
interface I { A; B { v: string; } }`
	newSrc := `type T { a: string; }
enum E as u32 { A as 1; }
interface I { A; }`

	oldModule, newModule := lower(t, oldSrc), lower(t, newSrc)

	forward := Check(oldModule, newModule, Options{})
	backward := Check(newModule, oldModule, Options{})
	assert.NotEmpty(t, forward)
	assert.NotEmpty(t, backward)
}
