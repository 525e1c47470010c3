/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/substantialcattle5/backup/internal/config"
	"github.com/substantialcattle5/backup/internal/dispatch"
	"github.com/substantialcattle5/backup/internal/logger"
	"github.com/substantialcattle5/backup/internal/progress"
	"github.com/substantialcattle5/backup/internal/ui"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configFile string
	logLevel   string
	verbose    bool
	quiet      bool
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "backup - a deduplicating file archiver",
		Long: `backup scans directory trees and stores every distinct file content once,
keyed by a content fingerprint, together with every path that held it.
Archives can be updated with new trees and extracted back to disk.

Usage:
  backup create|update|check|extract [hash-only] <archive> <directory>+`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Anything that reaches the root is not a known verb.
			return dispatch.Parse(args).Err()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./backup.yaml when present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Disable progress bars and reduce output")

	cmd.AddCommand(
		newCreateCmd(opts),
		newUpdateCmd(opts),
		newCheckCmd(opts),
		newExtractCmd(opts),
		newStatsCmd(opts),
		newInitCmd(),
	)
	return cmd
}

// session is the per-invocation state shared by every verb.
type session struct {
	cfg      config.Config
	log      *zap.Logger
	progress *progress.Manager
}

func newSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	cfg, used, err := config.Resolve(opts.configFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	switch {
	case opts.logLevel != "":
		level = opts.logLevel
	case opts.verbose:
		level = "debug"
	case opts.quiet:
		level = "error"
	}

	log, err := logger.New(level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("run_id", uuid.NewString()), zap.String("command", cmd.Name()))
	if used != "" {
		log.Debug("configuration loaded", zap.String("path", used))
	}

	return &session{
		cfg: cfg,
		log: log,
		progress: progress.NewManager(progress.Options{
			Quiet:   opts.quiet,
			Verbose: opts.verbose,
			Output:  cmd.OutOrStdout(),
		}),
	}, nil
}

func (s *session) dispatcher(cmd *cobra.Command) *dispatch.Dispatcher {
	return &dispatch.Dispatcher{
		Config:   s.cfg,
		Logger:   s.log,
		Progress: s.progress,
		Out:      cmd.OutOrStdout(),
		Confirm:  ui.Confirmer(cmd.InOrStdin(), cmd.OutOrStdout()),
	}
}

func (s *session) close() {
	s.progress.Cleanup()
	_ = s.log.Sync()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// interrupted names a run that SIGINT or SIGTERM stopped.
func interrupted(pm *progress.Manager, err error) error {
	if err != nil && pm.IsCancelled() {
		return fmt.Errorf("interrupted before completion: %w", err)
	}
	return err
}

func init() {
	cobra.EnableCaseInsensitive = true
}
