// Package archive walks files stored in zip archives.
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/maruel/natural"
)

// WalkFunc is called for each archived file accepted by Walk. The archive
// argument is the path passed to Walk. Returning an error stops the walk.
type WalkFunc func(archive string, file *zip.File) error

// Walk visits archived files in natural name order. Pattern selects files:
// a glob (doublestar syntax, "**" crosses directories) is matched against
// whole entry name, anything else is treated as a name prefix. Directory
// entries are never visited. Archives with absolute or traversing entry
// names are rejected as a whole.
func Walk(archive, pattern string, walkFn WalkFunc) error {
	accept, err := selector(pattern)
	if err != nil {
		return err
	}

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	files := slices.Clone(r.File)
	for _, f := range files {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
	}
	slices.SortStableFunc(files, func(a, b *zip.File) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		}
		return 0
	})

	for _, f := range files {
		if f.FileInfo().IsDir() || !accept(f.Name) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// IsPattern reports whether s uses glob syntax.
func IsPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func selector(pattern string) (func(string) bool, error) {
	if !IsPattern(pattern) {
		return func(name string) bool { return strings.HasPrefix(name, pattern) }, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("bad archive pattern %q", pattern)
	}
	return func(name string) bool {
		ok, err := doublestar.Match(pattern, name)
		return err == nil && ok
	}, nil
}

// isSafePath returns false for absolute names and names with ".." parts.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	return !slices.Contains(strings.Split(strings.ReplaceAll(name, `\`, "/"), "/"), "..")
}
