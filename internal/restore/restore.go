// Package restore writes the contents of a deduplication table back to disk.
package restore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/substantialcattle5/backup/internal/deduplication"
	"github.com/substantialcattle5/backup/internal/fs"
	"github.com/substantialcattle5/backup/internal/logger"
	"github.com/substantialcattle5/backup/internal/progress"
)

var (
	// ErrInvalidTarget is returned when the restore target is not a directory.
	ErrInvalidTarget = errors.New("invalid restore target")
	// ErrUnsafePath is recorded for stored paths that would land outside the target.
	ErrUnsafePath = errors.New("unsafe path")
	// ErrAborted is returned when the user declines to write into a non-empty target.
	ErrAborted = errors.New("restore aborted")
)

// Confirmer asks the user a yes/no question.
type Confirmer func(prompt string) (bool, error)

// Options controls a restore.
type Options struct {
	Logger   *zap.Logger
	Progress *progress.Manager
	// Confirm, when set, is asked once before writing into a non-empty target.
	Confirm Confirmer
}

// EntryError records a path that could not be restored.
type EntryError struct {
	Path string
	Err  error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e EntryError) Unwrap() error {
	return e.Err
}

// Result summarizes one RestoreTree call.
type Result struct {
	Target   string
	Created  bool
	Written  int
	Bytes    uint64
	Failures []EntryError
}

// RestoreTree writes every path of every record in table beneath target.
//
// The target is created when it does not exist. Entries that fail are
// recorded and skipped. Records are visited in fingerprint order and paths in
// stored order, so when two records claim the same path the later write wins.
func RestoreTree(ctx context.Context, table *deduplication.Table, target string, opts Options) (Result, error) {
	log := logger.OrNop(opts.Logger)
	result := Result{Target: target}

	existed := fs.IsDirectory(target)
	pathType, err := fs.EnsureDirectoryExists(target)
	if err != nil || pathType != fs.PathTypeDir {
		if err == nil {
			err = fmt.Errorf("%s is a %s", target, pathType)
		}
		return result, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	result.Created = !existed

	if opts.Confirm != nil && existed {
		empty, err := fs.IsEmptyDirectory(target)
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
		if !empty {
			ok, err := opts.Confirm(fmt.Sprintf("%s is not empty. Overwrite existing files", target))
			if err != nil {
				return result, fmt.Errorf("%w: %w", ErrAborted, err)
			}
			if !ok {
				return result, ErrAborted
			}
		}
	}

	records := table.Records()
	if opts.Progress != nil {
		opts.Progress.InitItemProgress(table.PathCount(), fmt.Sprintf("Restoring to %s", target))
		defer opts.Progress.FinishItemProgress()
	}

	for _, rec := range records {
		for _, meta := range rec.Paths {
			if err := ctx.Err(); err != nil {
				return result, fmt.Errorf("restore into %s interrupted: %w", target, err)
			}

			err := restoreEntry(target, meta.Path, rec.Data)
			if opts.Progress != nil {
				opts.Progress.AdvanceItem()
			}
			if err != nil {
				result.Failures = append(result.Failures, EntryError{Path: meta.Path, Err: err})
				log.Warn("skipping entry", zap.String("path", meta.Path), zap.Error(err))
				continue
			}

			result.Written++
			result.Bytes += rec.Size
			log.Debug("restored",
				zap.String("fingerprint", rec.Fingerprint),
				zap.String("path", meta.Path),
			)
			if opts.Progress != nil {
				opts.Progress.PrintVerbose("restored %s", meta.Path)
			}
		}
	}

	log.Info("restore finished",
		zap.String("target", target),
		zap.Int("files", result.Written),
		zap.Uint64("bytes", result.Bytes),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

func restoreEntry(target, stored string, data []byte) error {
	full, err := Destination(target, stored)
	if err != nil {
		return err
	}
	if err := fs.EnsureParentDirectory(full); err != nil {
		return err
	}
	return fs.WriteFile(full, data)
}

// Destination maps a stored path to its location beneath target. Absolute
// paths and paths that climb out of target are rejected with ErrUnsafePath.
func Destination(target, stored string) (string, error) {
	if stored == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	if strings.HasPrefix(stored, "/") || filepath.IsAbs(stored) || filepath.VolumeName(stored) != "" {
		return "", fmt.Errorf("%w: %s is absolute", ErrUnsafePath, stored)
	}

	local := filepath.Clean(filepath.FromSlash(stored))
	if local == "." || local == ".." || strings.HasPrefix(local, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s leaves the restore target", ErrUnsafePath, stored)
	}
	return filepath.Join(target, local), nil
}
