/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/substantialcattle5/backup/internal/archive"
	"github.com/substantialcattle5/backup/internal/deduplication"
	"github.com/substantialcattle5/backup/internal/ui"
)

// newStatsCmd represents the stats command
func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <archive>",
		Short: "Show deduplication statistics for an archive",
		Long: `Display statistics about an archive: unique contents, tracked paths,
stored and logical sizes, and the space deduplication saved.`,
		Example: "  backup stats photos.ddb",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			table := deduplication.NewTable(nil)
			info, err := archive.Deserialize(table, args[0], archive.Options{
				VerifyFingerprints: s.cfg.Archive.VerifyFingerprints,
				Logger:             s.log,
			})
			if err != nil {
				return fmt.Errorf("failed to load archive: %w", err)
			}

			ui.PrintStats(cmd.OutOrStdout(), args[0], info, table.Stats())
			return nil
		},
	}
}
