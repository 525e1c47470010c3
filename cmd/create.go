/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/substantialcattle5/backup/internal/dispatch"
)

// newCreateCmd represents the create command
func newCreateCmd(opts *rootOptions) *cobra.Command {
	return newVerbCmd(opts, dispatch.ActionCreate, verbHelp{
		use:   "create [hash-only] <archive> <directory>+",
		short: "Create a new archive from one or more directories",
		long: `Create scans every directory, stores each distinct file content once and
writes a fresh archive, replacing any file already at <archive>.

Directories that do not exist are skipped. Unreadable files are reported
and skipped.`,
		example: `  backup create photos.ddb ~/Pictures ~/Phone/DCIM
  backup create --format framed --fingerprint blake3 docs.ddb ~/Documents`,
	}, registerArchiveFlags)
}
