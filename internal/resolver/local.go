package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/varro-lang/varro/internal/source"
	"github.com/varro-lang/varro/internal/vrange"
)

// SourceExt is the file extension of IDL sources.
const SourceExt = ".varro"

// Local resolves packages from a source tree on disk.
//
// Layout: package `example.common` maps to `<root>/example/`, holding
// either version-named files `common-1.0.0.varro` or an unversioned
// `common.varro`. Unversioned files only satisfy the any-range.
type Local struct {
	root string
}

// NewLocal creates a filesystem provider rooted at a directory.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// Resolve scans the package directory for version-named candidates and
// returns the highest one within the range.
func (l *Local) Resolve(ctx context.Context, path string, rng vrange.Range) (Resolved, error) {
	if err := ctx.Err(); err != nil {
		return Resolved{}, err
	}
	parts := strings.Split(path, ".")
	base := parts[len(parts)-1]
	dir := filepath.Join(append([]string{l.root}, parts[:len(parts)-1]...)...)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Resolved{}, &NoVersionError{Path: path, Range: rng}
	}
	if err != nil {
		return Resolved{}, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var (
		bestVersion vrange.Version
		bestFile    string
		plainFile   string
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, SourceExt) {
			continue
		}
		stem := strings.TrimSuffix(name, SourceExt)
		if stem == base {
			plainFile = filepath.Join(dir, name)
			continue
		}
		if !strings.HasPrefix(stem, base+"-") {
			continue
		}
		version, err := vrange.ParseVersion(strings.TrimPrefix(stem, base+"-"))
		if err != nil {
			continue // not a version-named source
		}
		if !rng.Matches(version) {
			continue
		}
		if bestFile == "" || version.Compare(bestVersion) > 0 {
			bestVersion = version
			bestFile = filepath.Join(dir, name)
		}
	}

	switch {
	case bestFile != "":
		buf, err := readBuffer(bestFile)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Version: bestVersion, Files: []*source.Buffer{buf}}, nil
	case plainFile != "" && rng.String() == "*":
		buf, err := readBuffer(plainFile)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Files: []*source.Buffer{buf}}, nil
	default:
		return Resolved{}, &NoVersionError{Path: path, Range: rng}
	}
}

func readBuffer(path string) (*source.Buffer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &source.Buffer{Path: path, Content: content}, nil
}
