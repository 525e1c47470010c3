package config

import (
	"fmt"
	"path/filepath"

	"github.com/substantialcattle5/backup/internal/constants"
	"github.com/substantialcattle5/backup/internal/logger"
)

// Config holds every setting the commands read.
type Config struct {
	Archive ArchiveConfig `yaml:"archive"`
	Import  ImportConfig  `yaml:"import"`
	Update  UpdateConfig  `yaml:"update"`
	Restore RestoreConfig `yaml:"restore"`
	Log     LogConfig     `yaml:"log"`
}

// ArchiveConfig selects the on-disk container.
type ArchiveConfig struct {
	Format             string `yaml:"format"`
	Fingerprint        string `yaml:"fingerprint"`
	VerifyFingerprints bool   `yaml:"verify_fingerprints"`
}

// ImportConfig filters what a directory walk picks up.
type ImportConfig struct {
	IncludeHidden bool     `yaml:"include_hidden"`
	SkipPatterns  []string `yaml:"skip_patterns"`
}

// UpdateConfig controls the update command.
type UpdateConfig struct {
	PruneStale bool `yaml:"prune_stale"`
}

// RestoreConfig controls the extract command.
type RestoreConfig struct {
	Interactive bool `yaml:"interactive"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the settings used when no configuration file exists.
func Default() Config {
	return Config{
		Archive: ArchiveConfig{
			Format:             constants.ArchiveFormatBaseline,
			Fingerprint:        constants.FingerprintFNV1a64,
			VerifyFingerprints: true,
		},
		Import: ImportConfig{
			IncludeHidden: true,
			SkipPatterns:  []string{},
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: logger.EncodingConsole,
		},
	}
}

// Validate checks that every value is one the commands understand.
func (c Config) Validate() error {
	switch c.Archive.Format {
	case constants.ArchiveFormatBaseline, constants.ArchiveFormatFramed:
	default:
		return fmt.Errorf("archive.format must be %q or %q, got %q",
			constants.ArchiveFormatBaseline, constants.ArchiveFormatFramed, c.Archive.Format)
	}

	switch c.Archive.Fingerprint {
	case constants.FingerprintFNV1a64:
	case constants.FingerprintBLAKE3:
		if c.Archive.Format != constants.ArchiveFormatFramed {
			return fmt.Errorf("archive.fingerprint %q requires archive.format %q",
				constants.FingerprintBLAKE3, constants.ArchiveFormatFramed)
		}
	default:
		return fmt.Errorf("archive.fingerprint must be %q or %q, got %q",
			constants.FingerprintFNV1a64, constants.FingerprintBLAKE3, c.Archive.Fingerprint)
	}

	for _, pattern := range c.Import.SkipPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("import.skip_patterns: invalid pattern %q: %w", pattern, err)
		}
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Encoding {
	case logger.EncodingConsole, logger.EncodingJSON:
	default:
		return fmt.Errorf("log.encoding must be %q or %q, got %q",
			logger.EncodingConsole, logger.EncodingJSON, c.Log.Encoding)
	}

	return nil
}
