package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/substantialcattle5/backup/internal/archive"
	"github.com/substantialcattle5/backup/internal/deduplication"
	"github.com/substantialcattle5/backup/internal/importer"
	"github.com/substantialcattle5/backup/internal/restore"
	"github.com/substantialcattle5/backup/util"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	labelColor   = color.New(color.Faint)
)

const separatorWidth = 50

func separator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("─", separatorWidth))
}

func row(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "  %s %v\n", labelColor.Sprintf("%-16s", label+":"), value)
}

// PrintImportSummary reports what one import root contributed.
func PrintImportSummary(w io.Writer, result importer.Result) {
	headerColor.Fprintf(w, "Imported %s\n", result.Root)
	if result.Prefix != "" {
		row(w, "Stored under", result.Prefix+"/")
	}
	row(w, "Files", result.Imported())
	row(w, "New content", result.NewContent)
	row(w, "Shared content", result.SharedContent)
	row(w, "Already tracked", result.AlreadyTracked)

	if n := len(result.Failures); n > 0 {
		warnColor.Fprintf(w, "  %d file(s) skipped:\n", n)
		for _, f := range result.Failures {
			fmt.Fprintf(w, "    - %v\n", f)
		}
	}
	if result.WalkErr != nil {
		warnColor.Fprintf(w, "  Walk stopped early: %v\n", result.WalkErr)
	}
}

// PrintArchiveWritten reports a successful write.
func PrintArchiveWritten(w io.Writer, path string, info archive.Info) {
	successColor.Fprintf(w, "✅ Archive written: %s\n", path)
	row(w, "Format", fmt.Sprintf("%s (%s)", info.Format, info.Algorithm))
	row(w, "Records", info.Records)
	row(w, "Paths", info.Paths)
	row(w, "Size", util.HumanReadableSize(int64(info.Bytes)))
}

// PrintRestoreSummary reports the outcome of an extract.
func PrintRestoreSummary(w io.Writer, result restore.Result) {
	if len(result.Failures) == 0 {
		successColor.Fprintf(w, "✅ Restored %d file(s) to %s\n", result.Written, result.Target)
	} else {
		warnColor.Fprintf(w, "Restored %d file(s) to %s, %d skipped\n",
			result.Written, result.Target, len(result.Failures))
		for _, f := range result.Failures {
			fmt.Fprintf(w, "    - %v\n", f)
		}
	}
	row(w, "Data written", util.HumanReadableSize(int64(result.Bytes)))
}

// PrintPruneSummary reports what stale pruning removed.
func PrintPruneSummary(w io.Writer, res deduplication.PruneResult) {
	if res.RemovedPaths == 0 && res.RemovedRecords == 0 {
		return
	}
	warnColor.Fprintf(w, "Pruned %d stale path(s) and %d unreferenced record(s)\n",
		res.RemovedPaths, res.RemovedRecords)
}

// PrintStats prints table statistics for an archive.
func PrintStats(w io.Writer, path string, info archive.Info, stats deduplication.Stats) {
	fmt.Fprintln(w)
	headerColor.Fprintln(w, "📦 Archive Statistics")
	separator(w)
	row(w, "Archive", path)
	row(w, "Format", fmt.Sprintf("%s (%s)", info.Format, info.Algorithm))
	row(w, "File size", util.HumanReadableSize(int64(info.Bytes)))
	fmt.Fprintln(w)
	row(w, "Unique records", stats.UniqueRecords)
	row(w, "Tracked paths", stats.TrackedPaths)
	row(w, "Stored bytes", util.HumanReadableSize(int64(stats.StoredBytes)))
	row(w, "Logical bytes", util.HumanReadableSize(int64(stats.LogicalBytes)))
	row(w, "Bytes saved", util.HumanReadableSize(int64(stats.SavedBytes)))
	row(w, "Dedup ratio", fmt.Sprintf("%.1f%%", stats.Ratio()))
	separator(w)
}
