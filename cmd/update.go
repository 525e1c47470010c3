/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/substantialcattle5/backup/internal/dispatch"
)

// newUpdateCmd represents the update command
func newUpdateCmd(opts *rootOptions) *cobra.Command {
	return newVerbCmd(opts, dispatch.ActionUpdate, verbHelp{
		use:   "update [hash-only] <archive> <directory>+",
		short: "Add directories to an existing archive",
		long: `Update loads <archive>, imports every directory into it and writes it back.
A missing archive behaves like create. An archive that cannot be decoded is
left untouched and the command fails. An existing archive keeps its format
and fingerprint algorithm.

Paths whose content changed are kept under both the old and the new content
unless --prune-stale is given.`,
		example: `  backup update photos.ddb ~/Pictures
  backup update --prune-stale photos.ddb ~/Pictures`,
	}, func(cmd *cobra.Command, vf *verbFlags) {
		registerArchiveFlags(cmd, vf)
		cmd.Flags().BoolVar(&vf.pruneStale, "prune-stale", false, "drop paths that now hold different content, and records left without paths")
	})
}
