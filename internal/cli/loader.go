package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/varro-lang/varro/internal/resolver"
	"github.com/varro-lang/varro/internal/source"
)

// LoadSources loads root sources from file and directory arguments.
// Directories are scanned recursively for *.varro files; results are
// sorted by path so compilation order is deterministic.
func LoadSources(args []string) ([]*source.Buffer, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "cannot read input", err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := FindSourceFiles(arg)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "scanning directory", err)
		}
		if len(found) == 0 {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("no %s files found in %s", resolver.SourceExt, arg))
		}
		paths = append(paths, found...)
	}
	sort.Strings(paths)

	buffers := make([]*source.Buffer, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "reading "+path, err)
		}
		buffers = append(buffers, &source.Buffer{Path: path, Content: content})
	}
	return buffers, nil
}

// FindSourceFiles walks a directory collecting IDL sources.
func FindSourceFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, resolver.SourceExt) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
