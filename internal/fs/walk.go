package fs

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// WalkOptions filters which files Walk reports.
type WalkOptions struct {
	IncludeHidden bool
	// SkipPatterns are filepath.Match globs tested against base names.
	SkipPatterns []string
}

// DefaultWalkOptions imports everything.
var DefaultWalkOptions = WalkOptions{IncludeHidden: true}

// Walk collects the regular files beneath root in lexical order.
//
// Traversal is best effort: if an error occurs partway through, the files
// found before it are still returned together with that error, and nothing
// after it is visited. Symlinks are not followed.
func Walk(root string, opts WalkOptions) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path != root && ShouldSkip(d.Name(), opts) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, nil
}

// ShouldSkip reports whether an entry with the given base name is filtered out.
func ShouldSkip(name string, opts WalkOptions) bool {
	if ShouldSkipHidden(name, opts.IncludeHidden) {
		return true
	}
	for _, pattern := range opts.SkipPatterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// ShouldSkipHidden reports whether a dot-prefixed name is excluded.
func ShouldSkipHidden(name string, includeHidden bool) bool {
	if includeHidden {
		return false
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
