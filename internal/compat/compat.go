// Package compat compares two versions of a package and classifies
// every difference as compatible, minor-breaking, or breaking.
//
// The checker always runs to completion and returns the full finding
// list; it never refuses input that lowered cleanly. Declarations are
// matched by dotted local path, fields by logical name with
// alias-aware rename detection.
package compat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/varro-lang/varro/internal/diag"
	"github.com/varro-lang/varro/internal/ir"
	"github.com/varro-lang/varro/internal/source"
)

// Level classifies one finding.
type Level string

const (
	Compatible    Level = "compatible"
	MinorBreaking Level = "minor-breaking"
	Breaking      Level = "breaking"
)

// Compat finding codes (C1xx).
const (
	CodeDeclAdded      = "C101"
	CodeDeclRemoved    = "C102"
	CodeKindChanged    = "C103"
	CodeFieldAdded     = "C110"
	CodeFieldRemoved   = "C112"
	CodeFieldRenamed   = "C114"
	CodeTypeChanged    = "C115"
	CodeOptionalized   = "C116"
	CodeDeoptionalized = "C117"
	CodeVariantAdded   = "C120"
	CodeVariantRemoved = "C121"
	CodeLiteralChanged = "C122"
	CodeEnumPrimitive  = "C123"
	CodeTupleShape     = "C130"
	CodeSubTypeAdded   = "C140"
	CodeSubTypeRemoved = "C141"
	CodeStrategy       = "C142"
	CodeTagChanged     = "C143"
	CodeEndpointAdded  = "C150"
	CodeEndpointGone   = "C151"
	CodeEndpointType   = "C152"
	CodeStreaming      = "C153"
)

// Finding is one compatibility report entry with both spans.
type Finding struct {
	Level   Level       `json:"level"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	OldSpan source.Span `json:"old_span"`
	NewSpan source.Span `json:"new_span"`
}

// ToDiag converts a compat finding for the diagnostics pipeline:
// breaking maps to error, minor-breaking to warning, compatible to
// info. The primary span is the new version's.
func (f Finding) ToDiag() diag.Finding {
	severity := diag.Info
	switch f.Level {
	case Breaking:
		severity = diag.Error
	case MinorBreaking:
		severity = diag.Warning
	}
	out := diag.Finding{
		Severity: severity,
		Code:     f.Code,
		Message:  f.Message,
		Span:     f.NewSpan,
	}
	if f.OldSpan.IsValid() {
		out.Secondary = []source.Span{f.OldSpan}
	}
	return out
}

// Options tunes checker strictness.
type Options struct {
	// StrictUntagged upgrades the untagged sub-type-added finding
	// from minor-breaking to breaking.
	StrictUntagged bool
}

// checker accumulates findings for one comparison.
type checker struct {
	opts     Options
	findings []Finding
	// checked guards against unbounded recursion when endpoint type
	// references recurse into record compatibility.
	checked map[string]bool
	old     *ir.Module
	new     *ir.Module
}

// Check compares two lowered versions of the same package path.
func Check(oldModule, newModule *ir.Module, opts Options) []Finding {
	c := &checker{opts: opts, checked: make(map[string]bool), old: oldModule, new: newModule}

	oldDecls := byLocalPath(oldModule.RootDecls())
	newDecls := byLocalPath(newModule.RootDecls())

	for _, path := range sortedKeys(oldDecls) {
		oldDecl := oldDecls[path]
		newDecl, ok := newDecls[path]
		if !ok {
			c.add(Breaking, CodeDeclRemoved, oldDecl.Span, source.Span{},
				"%s %s was removed", oldDecl.Kind, path)
			continue
		}
		c.checkDecl(path, oldDecl, newDecl)
	}
	for _, path := range sortedKeys(newDecls) {
		if _, ok := oldDecls[path]; !ok {
			d := newDecls[path]
			c.add(Compatible, CodeDeclAdded, source.Span{}, d.Span,
				"%s %s was added", d.Kind, path)
		}
	}

	sort.SliceStable(c.findings, func(i, j int) bool {
		a, b := c.findings[i], c.findings[j]
		if a.NewSpan.Path != b.NewSpan.Path {
			return a.NewSpan.Path < b.NewSpan.Path
		}
		if a.NewSpan.Start != b.NewSpan.Start {
			return a.NewSpan.Start < b.NewSpan.Start
		}
		return a.Code < b.Code
	})
	return c.findings
}

func (c *checker) add(level Level, code string, oldSpan, newSpan source.Span, format string, args ...any) {
	c.findings = append(c.findings, Finding{
		Level:   level,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		OldSpan: oldSpan,
		NewSpan: newSpan,
	})
}

func (c *checker) checkDecl(path string, oldDecl, newDecl *ir.Decl) {
	if c.checked[path] {
		return
	}
	c.checked[path] = true

	if oldDecl.Kind != newDecl.Kind {
		c.add(Breaking, CodeKindChanged, oldDecl.Span, newDecl.Span,
			"%s changed from %s to %s", path, oldDecl.Kind, newDecl.Kind)
		return
	}

	switch oldDecl.Kind {
	case ir.KindType:
		c.checkFields(path, oldDecl, newDecl, oldDecl.Type.Fields, newDecl.Type.Fields)
	case ir.KindTuple:
		c.checkTuple(path, oldDecl, newDecl)
	case ir.KindEnum:
		c.checkEnum(path, oldDecl, newDecl)
	case ir.KindInterface:
		c.checkInterface(path, oldDecl, newDecl)
	case ir.KindService:
		c.checkService(path, oldDecl, newDecl)
	}
}

func byLocalPath(decls []*ir.Decl) map[string]*ir.Decl {
	out := make(map[string]*ir.Decl, len(decls))
	for _, d := range decls {
		out[strings.Join(d.Name.Path, ".")] = d
	}
	return out
}

func sortedKeys(m map[string]*ir.Decl) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
