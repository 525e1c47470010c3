/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/substantialcattle5/backup/internal/dispatch"
)

// newCheckCmd represents the check command
func newCheckCmd(opts *rootOptions) *cobra.Command {
	return newVerbCmd(opts, dispatch.ActionCheck, verbHelp{
		use:   "check [hash-only] <archive> <directory>",
		short: "Import a directory against an archive without saving",
		long: `Check loads <archive> and imports the directory into the loaded table,
reporting what is new, shared and already tracked. The archive is never
written. Only the first directory is used.`,
		example: `  backup check photos.ddb ~/Pictures`,
	}, nil)
}
