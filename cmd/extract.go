/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/substantialcattle5/backup/internal/dispatch"
)

// newExtractCmd represents the extract command
func newExtractCmd(opts *rootOptions) *cobra.Command {
	return newVerbCmd(opts, dispatch.ActionExtract, verbHelp{
		use:   "extract [hash-only] <archive> <directory>",
		short: "Restore every tracked path from an archive",
		long: `Extract loads <archive> and writes every tracked path beneath the directory,
creating it when needed. Existing files are overwritten. Only the first
directory is used.`,
		example: `  backup extract photos.ddb /mnt/restore
  backup extract --interactive photos.ddb ~/Pictures`,
	}, func(cmd *cobra.Command, vf *verbFlags) {
		cmd.Flags().BoolVarP(&vf.interactive, "interactive", "i", false, "ask before writing into a non-empty directory")
	})
}
