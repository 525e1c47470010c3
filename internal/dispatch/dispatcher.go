package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/substantialcattle5/backup/internal/archive"
	"github.com/substantialcattle5/backup/internal/config"
	"github.com/substantialcattle5/backup/internal/deduplication"
	"github.com/substantialcattle5/backup/internal/fingerprint"
	"github.com/substantialcattle5/backup/internal/fs"
	"github.com/substantialcattle5/backup/internal/importer"
	"github.com/substantialcattle5/backup/internal/logger"
	"github.com/substantialcattle5/backup/internal/progress"
	"github.com/substantialcattle5/backup/internal/restore"
	"github.com/substantialcattle5/backup/internal/ui"
)

// Dispatcher runs invocations. Each Run owns exactly one table.
type Dispatcher struct {
	Config   config.Config
	Logger   *zap.Logger
	Progress *progress.Manager
	// Out receives the human-readable summaries. Nil discards them.
	Out io.Writer
	// Confirm is consulted by extract when Config.Restore.Interactive is set.
	Confirm restore.Confirmer
}

// Report is what a Run did.
type Report struct {
	Action  Action
	Imports []importer.Result
	// ImportErrors holds roots that could not be imported at all.
	ImportErrors []error
	Loaded       *archive.Info
	Written      *archive.Info
	Restore      *restore.Result
	Pruned       deduplication.PruneResult
	// LoadErr and WriteErr are archive open or write failures that were
	// recovered from.
	LoadErr  error
	WriteErr error
	// Table is the session table after the run. Nil for ActionError.
	Table *deduplication.Table
}

type handler func(d *Dispatcher, ctx context.Context, inv Invocation, rep *Report) error

var handlers = map[Action]handler{
	ActionCreate:  (*Dispatcher).create,
	ActionUpdate:  (*Dispatcher).update,
	ActionCheck:   (*Dispatcher).check,
	ActionExtract: (*Dispatcher).extract,
	ActionError:   (*Dispatcher).fail,
}

// Run executes inv. Per-item failures are reported, not returned. The
// returned error is ErrUsage for ActionError, a wrapped
// archive.ErrCorruptArchive when an existing archive cannot be decoded, or the
// context error when the run was interrupted.
func (d *Dispatcher) Run(ctx context.Context, inv Invocation) (Report, error) {
	if inv.Action != ActionError && (inv.Archive == "" || len(inv.Dirs) == 0) {
		inv = Invocation{Action: ActionError, HashOnly: inv.HashOnly, Reason: "missing <archive> or <directory> parameters"}
	}
	rep := Report{Action: inv.Action}

	h, ok := handlers[inv.Action]
	if !ok {
		h = (*Dispatcher).fail
	}

	d.log().Debug("dispatching",
		zap.Stringer("action", inv.Action),
		zap.String("archive", inv.Archive),
		zap.Strings("dirs", inv.Dirs),
		zap.Bool("hash_only", inv.HashOnly),
	)
	return rep, h(d, ctx, inv, &rep)
}

func (d *Dispatcher) create(ctx context.Context, inv Invocation, rep *Report) error {
	h, err := fingerprint.New(d.Config.Archive.Fingerprint)
	if err != nil {
		return err
	}
	rep.Table = deduplication.NewTable(h)

	if err := d.importAll(ctx, rep.Table, inv.Dirs, rep); err != nil {
		return err
	}
	d.persist(rep.Table, inv.Archive, d.Config.Archive.Format, rep)
	return nil
}

func (d *Dispatcher) update(ctx context.Context, inv Invocation, rep *Report) error {
	h, err := fingerprint.New(d.Config.Archive.Fingerprint)
	if err != nil {
		return err
	}
	rep.Table = deduplication.NewTable(h)

	// A missing archive starts an empty table, the same as create.
	if err := d.load(rep.Table, inv.Archive, rep); err != nil {
		return err
	}

	if err := d.importAll(ctx, rep.Table, inv.Dirs, rep); err != nil {
		return err
	}

	if d.Config.Update.PruneStale {
		rep.Pruned = rep.Table.PruneStale()
		d.log().Info("pruned stale paths",
			zap.Int("paths", rep.Pruned.RemovedPaths),
			zap.Int("records", rep.Pruned.RemovedRecords),
		)
		ui.PrintPruneSummary(d.out(), rep.Pruned)
	}

	// An existing archive keeps its container and algorithm.
	format := d.Config.Archive.Format
	if rep.Loaded != nil {
		format = rep.Loaded.Format
	}
	d.persist(rep.Table, inv.Archive, format, rep)
	return nil
}

func (d *Dispatcher) check(ctx context.Context, inv Invocation, rep *Report) error {
	rep.Table = deduplication.NewTable(nil)
	if err := d.load(rep.Table, inv.Archive, rep); err != nil {
		return err
	}

	if err := d.importAll(ctx, rep.Table, inv.Dirs[:1], rep); err != nil {
		return err
	}

	d.log().Warn("comparison not implemented; archive left unchanged",
		zap.String("archive", inv.Archive),
		zap.String("dir", inv.Dirs[0]),
	)
	d.info("Check complete: comparison not implemented, archive left unchanged\n")
	return nil
}

func (d *Dispatcher) extract(ctx context.Context, inv Invocation, rep *Report) error {
	rep.Table = deduplication.NewTable(nil)
	if err := d.load(rep.Table, inv.Archive, rep); err != nil {
		return err
	}

	opts := restore.Options{Logger: d.Logger, Progress: d.Progress}
	if d.Config.Restore.Interactive {
		opts.Confirm = d.Confirm
	}

	result, err := restore.RestoreTree(ctx, rep.Table, inv.Dirs[0], opts)
	rep.Restore = &result
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		d.log().Error("restore failed", zap.String("target", inv.Dirs[0]), zap.Error(err))
		d.info("Restore failed: %v\n", err)
		return nil
	}

	ui.PrintRestoreSummary(d.out(), result)
	return nil
}

func (d *Dispatcher) fail(_ context.Context, inv Invocation, _ *Report) error {
	return inv.Err()
}

// load reads the archive into table. Open failures leave the table empty and
// are recovered; decode failures are returned.
func (d *Dispatcher) load(table *deduplication.Table, path string, rep *Report) error {
	info, err := archive.Deserialize(table, path, d.archiveOptions())
	switch {
	case err == nil:
		rep.Loaded = &info
		return nil
	case errors.Is(err, archive.ErrArchiveOpen):
		rep.LoadErr = err
		d.log().Warn("archive not loaded, starting empty", zap.String("archive", path), zap.Error(err))
		return nil
	default:
		return err
	}
}

// persist writes table to path. Write failures are logged and recorded.
func (d *Dispatcher) persist(table *deduplication.Table, path, format string, rep *Report) {
	opts := d.archiveOptions()
	opts.Format = format
	info, err := archive.Serialize(table, path, opts)
	if err != nil {
		rep.WriteErr = err
		d.log().Error("archive not written", zap.String("archive", path), zap.Error(err))
		d.info("Failed to write archive: %v\n", err)
		return
	}
	rep.Written = &info
	ui.PrintArchiveWritten(d.out(), path, info)
}

// importAll imports each root in order. Roots that are not directories are
// skipped; only interruption stops the batch. Several roots are kept apart in
// the table by a per-root path prefix.
func (d *Dispatcher) importAll(ctx context.Context, table *deduplication.Table, roots []string, rep *Report) error {
	opts := importer.Options{
		Walk: fs.WalkOptions{
			IncludeHidden: d.Config.Import.IncludeHidden,
			SkipPatterns:  d.Config.Import.SkipPatterns,
		},
		Logger:   d.Logger,
		Progress: d.Progress,
	}

	prefixes := importer.RootPrefixes(roots)
	for i, root := range roots {
		opts.Prefix = prefixes[i]
		result, err := importer.ImportTree(ctx, table, root, opts)
		if err != nil {
			if errors.Is(err, importer.ErrNotADirectory) {
				rep.ImportErrors = append(rep.ImportErrors, err)
				d.log().Warn("skipping import root", zap.String("root", root), zap.Error(err))
				d.info("Skipping %s: %v\n", root, err)
				continue
			}
			return err
		}
		rep.Imports = append(rep.Imports, result)
		ui.PrintImportSummary(d.out(), result)
	}
	return nil
}

func (d *Dispatcher) archiveOptions() archive.Options {
	return archive.Options{
		Format:             d.Config.Archive.Format,
		VerifyFingerprints: d.Config.Archive.VerifyFingerprints,
		Logger:             d.Logger,
	}
}

func (d *Dispatcher) log() *zap.Logger {
	return logger.OrNop(d.Logger)
}

// info prints a status line through the progress manager, which drops it in
// quiet mode. Without a manager it goes to Out.
func (d *Dispatcher) info(format string, args ...interface{}) {
	if d.Progress != nil {
		d.Progress.PrintInfo(format, args...)
		return
	}
	fmt.Fprintf(d.out(), format, args...)
}

func (d *Dispatcher) out() io.Writer {
	if d.Out == nil {
		return io.Discard
	}
	return d.Out
}
