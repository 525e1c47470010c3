// Package importer scans directory trees into a deduplication table.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/substantialcattle5/backup/internal/constants"
	"github.com/substantialcattle5/backup/internal/deduplication"
	"github.com/substantialcattle5/backup/internal/fs"
	"github.com/substantialcattle5/backup/internal/logger"
	"github.com/substantialcattle5/backup/internal/progress"
)

var (
	// ErrNotADirectory is returned when an import root is missing or not a directory.
	ErrNotADirectory = errors.New("not a directory")
	// ErrRead is returned when a file cannot be opened or read.
	ErrRead = errors.New("cannot read file")
)

// Options controls a single import.
type Options struct {
	Walk     fs.WalkOptions
	Logger   *zap.Logger
	Progress *progress.Manager

	// Prefix is prepended to every stored path. RootPrefixes assigns one per
	// root when several roots share a table.
	Prefix string
}

// FileError records a file that was skipped.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Result summarizes one ImportTree call.
type Result struct {
	Root           string
	Prefix         string
	Discovered     int
	NewContent     int
	SharedContent  int
	AlreadyTracked int
	Failures       []FileError
	// WalkErr is the error that cut the traversal short, if any. Files found
	// before it were still imported.
	WalkErr error
}

// Imported is the number of files that reached the table.
func (r Result) Imported() int {
	return r.NewContent + r.SharedContent + r.AlreadyTracked
}

func (r *Result) count(outcome deduplication.Outcome) {
	switch outcome {
	case deduplication.OutcomeNewContent:
		r.NewContent++
	case deduplication.OutcomeSharedContent:
		r.SharedContent++
	case deduplication.OutcomeAlreadyTracked:
		r.AlreadyTracked++
	}
}

// ImportTree imports every regular file beneath root into table.
//
// The table is untouched when root is not a directory. Unreadable files are
// skipped and reported in the result. A cancelled ctx stops the batch between
// files and is returned as the error; files imported before that stay in the
// table.
func ImportTree(ctx context.Context, table *deduplication.Table, root string, opts Options) (Result, error) {
	log := logger.OrNop(opts.Logger)
	result := Result{Root: root, Prefix: opts.Prefix}

	if !fs.IsDirectory(root) {
		return result, fmt.Errorf("%w: %s", ErrNotADirectory, root)
	}

	files, walkErr := fs.Walk(root, opts.Walk)
	result.Discovered = len(files)
	if walkErr != nil {
		result.WalkErr = walkErr
		log.Warn("directory walk ended early", zap.String("root", root), zap.Error(walkErr))
	}

	if opts.Progress != nil {
		opts.Progress.InitItemProgress(len(files), fmt.Sprintf("Importing %s", root))
		defer opts.Progress.FinishItemProgress()
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("import of %s interrupted: %w", root, err)
		}

		_, outcome, err := ImportFile(ctx, table, root, file, opts)
		if opts.Progress != nil {
			opts.Progress.AdvanceItem()
		}
		if err != nil {
			result.Failures = append(result.Failures, FileError{Path: file, Err: err})
			log.Warn("skipping file", zap.String("path", file), zap.Error(err))
			continue
		}
		result.count(outcome)
	}

	log.Info("import finished",
		zap.String("root", root),
		zap.Int("files", result.Imported()),
		zap.Int("new", result.NewContent),
		zap.Int("shared", result.SharedContent),
		zap.Int("already_tracked", result.AlreadyTracked),
		zap.Int("failed", len(result.Failures)),
	)

	return result, nil
}

// ImportFile reads file and adds it to table under its location relative to
// root, behind opts.Prefix when set. It returns the content fingerprint and
// what the import did.
func ImportFile(ctx context.Context, table *deduplication.Table, root, file string, opts Options) (string, deduplication.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	data, modTime, err := fs.ReadFile(file)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrRead, err)
	}

	stored := StoredPath(root, file)
	if opts.Prefix != "" {
		stored = path.Join(opts.Prefix, stored)
	}
	fp, outcome := table.Add(stored, modTime, data)

	logger.OrNop(opts.Logger).Debug(outcome.String(),
		zap.String("fingerprint", fp),
		zap.String("path", stored),
	)
	if opts.Progress != nil {
		opts.Progress.PrintVerbose("%s  %s (%s)", fp[:min(len(fp), constants.HashDisplayLength)], stored, outcome)
	}

	return fp, outcome, nil
}

// StoredPath is the slash-separated form of path relative to root, which is
// how paths are kept in the table. Paths outside root are kept as given.
func StoredPath(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || hasParentPrefix(rel) {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}

// RootPrefixes returns the stored-path prefix for each root of one import
// batch. A single root gets no prefix. With several roots each distinct root
// is named by its base name, suffixed with -2, -3... when base names clash.
// The same root listed twice gets the same prefix.
func RootPrefixes(roots []string) []string {
	prefixes := make([]string, len(roots))
	if len(roots) < 2 {
		return prefixes
	}

	byRoot := make(map[string]string, len(roots))
	used := make(map[string]bool, len(roots))
	for i, root := range roots {
		key := filepath.Clean(root)
		if abs, err := filepath.Abs(root); err == nil {
			key = abs
		}
		if prefix, ok := byRoot[key]; ok {
			prefixes[i] = prefix
			continue
		}

		base := filepath.Base(key)
		if base == "." || base == ".." || base == string(filepath.Separator) {
			base = "root"
		}
		prefix := base
		for n := 2; used[prefix]; n++ {
			prefix = base + "-" + strconv.Itoa(n)
		}
		used[prefix] = true
		byRoot[key] = prefix
		prefixes[i] = prefix
	}
	return prefixes
}
