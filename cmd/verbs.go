/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/substantialcattle5/backup/internal/config"
	"github.com/substantialcattle5/backup/internal/constants"
	"github.com/substantialcattle5/backup/internal/dispatch"
)

// verbFlags are the per-verb overrides of config values.
type verbFlags struct {
	format      string
	algorithm   string
	pruneStale  bool
	interactive bool
}

type verbHelp struct {
	use     string
	short   string
	long    string
	example string
}

// newVerbCmd builds a command that hands its raw arguments to the dispatcher.
// Grammar errors are reported by dispatch.Parse, not by cobra.
func newVerbCmd(opts *rootOptions, action dispatch.Action, help verbHelp, register func(*cobra.Command, *verbFlags)) *cobra.Command {
	vf := &verbFlags{}

	cmd := &cobra.Command{
		Use:                   help.use,
		Short:                 help.short,
		Long:                  help.long,
		Example:               help.example,
		Args:                  cobra.ArbitraryArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv := dispatch.Parse(append([]string{action.String()}, args...))
			if err := inv.Err(); err != nil {
				return err
			}

			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			applyFlagOverrides(cmd.Flags(), vf, &s.cfg)
			if err := s.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}

			ctx := s.progress.SetupCancellation(cmd.Context())
			_, err = s.dispatcher(cmd).Run(ctx, inv)
			return interrupted(s.progress, err)
		},
	}

	if register != nil {
		register(cmd, vf)
	}
	return cmd
}

// applyFlagOverrides copies explicitly set verb flags over the loaded config.
// Flags left at their defaults never override a config file value.
func applyFlagOverrides(flags *pflag.FlagSet, vf *verbFlags, cfg *config.Config) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "format":
			cfg.Archive.Format = vf.format
		case "fingerprint":
			cfg.Archive.Fingerprint = vf.algorithm
		case "prune-stale":
			cfg.Update.PruneStale = vf.pruneStale
		case "interactive":
			cfg.Restore.Interactive = vf.interactive
		}
	})
}

func registerArchiveFlags(cmd *cobra.Command, vf *verbFlags) {
	cmd.Flags().StringVar(&vf.format, "format", constants.ArchiveFormatBaseline, "archive container for new archives: baseline or framed")
	cmd.Flags().StringVar(&vf.algorithm, "fingerprint", constants.FingerprintFNV1a64, "fingerprint algorithm for new archives: fnv1a64 or blake3 (framed only)")
}
