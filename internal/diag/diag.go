// Package diag collects compiler findings.
//
// A Bag is append-only: once a finding is added it is never mutated or
// removed, so concurrent readers of an already-built bag are safe and
// the rendered order is reproducible. Sorting happens once, at the
// reporting boundary, by (file, start offset).
package diag

import (
	"fmt"
	"io"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/varro-lang/varro/internal/source"
)

// Severity classifies a finding.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// Finding is a single diagnostic with a stable code and source spans.
type Finding struct {
	Severity  Severity      `json:"severity"`
	Code      string        `json:"code"`
	Message   string        `json:"message"`
	Span      source.Span   `json:"span"`
	Secondary []source.Span `json:"secondary,omitempty"`
	Notes     []string      `json:"notes,omitempty"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s[%s]: %s", f.Severity, f.Code, f.Message)
}

// Bag accumulates findings during a compilation.
type Bag struct {
	findings []Finding
}

// Add appends a finding.
func (b *Bag) Add(f Finding) {
	b.findings = append(b.findings, f)
}

// Errorf appends an error finding at the given span.
func (b *Bag) Errorf(code string, span source.Span, format string, args ...any) {
	b.Add(Finding{Severity: Error, Code: code, Message: fmt.Sprintf(format, args...), Span: span})
}

// Warnf appends a warning finding at the given span.
func (b *Bag) Warnf(code string, span source.Span, format string, args ...any) {
	b.Add(Finding{Severity: Warning, Code: code, Message: fmt.Sprintf(format, args...), Span: span})
}

// Infof appends an info finding at the given span.
func (b *Bag) Infof(code string, span source.Span, format string, args ...any) {
	b.Add(Finding{Severity: Info, Code: code, Message: fmt.Sprintf(format, args...), Span: span})
}

// Extend appends all findings from another bag.
func (b *Bag) Extend(other *Bag) {
	b.findings = append(b.findings, other.findings...)
}

// HasErrors reports whether any finding has error severity.
func (b *Bag) HasErrors() bool {
	for _, f := range b.findings {
		if f.Severity == Error {
			return true
		}
	}
	return false
}

// Len returns the number of findings.
func (b *Bag) Len() int {
	return len(b.findings)
}

// Findings returns the findings sorted by (file, start, code).
// The returned slice is a copy; the bag itself stays append-only.
func (b *Bag) Findings() []Finding {
	out := make([]Finding, len(b.findings))
	copy(out, b.findings)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Span.Path != out[j].Span.Path {
			return out[i].Span.Path < out[j].Span.Path
		}
		if out[i].Span.Start != out[j].Span.Start {
			return out[i].Span.Start < out[j].Span.Start
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// WriteJSON renders the sorted findings as a stable JSON array.
func (b *Bag) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b.Findings())
}

// WriteText renders findings as human-readable lines. Line/column
// positions are resolved through the provided buffers when available.
func (b *Bag) WriteText(w io.Writer, buffers map[string]*source.Buffer) error {
	for _, f := range b.Findings() {
		loc := f.Span.Path
		if buf, ok := buffers[f.Span.Path]; ok && f.Span.IsValid() {
			pos := source.PositionOf(buf.Content, f.Span.Start)
			loc = fmt.Sprintf("%s:%d:%d", f.Span.Path, pos.Line, pos.Column)
		}
		if _, err := fmt.Fprintf(w, "%s: %s[%s]: %s\n", loc, f.Severity, f.Code, f.Message); err != nil {
			return err
		}
		for _, note := range f.Notes {
			if _, err := fmt.Fprintf(w, "  note: %s\n", note); err != nil {
				return err
			}
		}
	}
	return nil
}
