// Package archive persists a deduplication table to disk and loads it back.
//
// Two containers are understood. The baseline container is the bare record
// payload. The framed container wraps the same payload with a magic, a version,
// the fingerprint algorithm and a trailing checksum. Readers detect which one
// they were given from the first bytes.
package archive

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio"
	"go.uber.org/zap"

	"github.com/substantialcattle5/backup/internal/constants"
	"github.com/substantialcattle5/backup/internal/deduplication"
	"github.com/substantialcattle5/backup/internal/fingerprint"
	"github.com/substantialcattle5/backup/internal/logger"
)

var (
	// ErrArchiveOpen is returned when the archive cannot be opened for reading.
	ErrArchiveOpen = errors.New("cannot open archive")
	// ErrArchiveWrite is returned when the archive cannot be written.
	ErrArchiveWrite = errors.New("cannot write archive")
	// ErrCorruptArchive is returned when archive content is malformed.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrUnsupported is returned for formats, versions or algorithms this build does not know.
	ErrUnsupported = errors.New("unsupported")
)

// Options controls how archives are written and read.
type Options struct {
	// Format is constants.ArchiveFormatBaseline (default) or constants.ArchiveFormatFramed.
	Format string
	// VerifyFingerprints re-hashes record data while loading.
	VerifyFingerprints bool
	Logger             *zap.Logger
}

// Info describes a loaded or written archive.
type Info struct {
	Format    string
	Algorithm string
	Records   int
	Paths     int
	Bytes     int
}

// Encode renders table in the requested format.
func Encode(table *deduplication.Table, format string) ([]byte, error) {
	payload := appendPayload(nil, table.Records())

	switch format {
	case constants.ArchiveFormatBaseline, "":
		if name := table.Hasher().Name(); name != constants.FingerprintFNV1a64 {
			return nil, fmt.Errorf("%w: baseline archives require %s fingerprints, table uses %s",
				ErrUnsupported, constants.FingerprintFNV1a64, name)
		}
		return payload, nil
	case constants.ArchiveFormatFramed:
		return appendFrame(make([]byte, 0, framedHeaderLen+len(payload)+checksumLen), table.Hasher(), payload)
	default:
		return nil, fmt.Errorf("%w: archive format %q", ErrUnsupported, format)
	}
}

// Decode replaces the contents of table with the records in data.
//
// On failure the table is left empty. On success it is rekeyed with the
// algorithm the archive was written with.
func Decode(table *deduplication.Table, data []byte, verify bool) (Info, error) {
	info := Info{Format: constants.ArchiveFormatBaseline, Bytes: len(data)}
	payload := data
	hasher := fingerprint.FNV1a64

	if isFramed(data) {
		info.Format = constants.ArchiveFormatFramed
		var err error
		payload, hasher, err = openFrame(data)
		if err != nil {
			table.Reset(nil)
			return info, err
		}
	}
	info.Algorithm = hasher.Name()

	records, err := decodePayload(payload, hasher, verify)
	table.Reset(hasher)
	if err != nil {
		return info, err
	}

	// Later records win when two share a fingerprint.
	for _, rec := range records {
		table.Put(rec)
	}
	info.Records = table.Len()
	info.Paths = table.PathCount()
	return info, nil
}

// Serialize writes table to path, replacing any existing file atomically.
func Serialize(table *deduplication.Table, path string, opts Options) (Info, error) {
	log := logger.OrNop(opts.Logger)

	data, err := Encode(table, opts.Format)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrArchiveWrite, err)
	}

	pending, err := renameio.TempFile("", path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, path, err)
	}
	defer pending.Cleanup()

	if err := pending.Chmod(constants.StandardFilePerms); err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, path, err)
	}
	if _, err := pending.Write(data); err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrArchiveWrite, path, err)
	}

	info := Info{
		Format:    formatName(opts.Format),
		Algorithm: table.Hasher().Name(),
		Records:   table.Len(),
		Paths:     table.PathCount(),
		Bytes:     len(data),
	}
	log.Info("archive written",
		zap.String("path", path),
		zap.String("format", info.Format),
		zap.String("algorithm", info.Algorithm),
		zap.Int("records", info.Records),
		zap.Int("paths", info.Paths),
		zap.Int("bytes", info.Bytes),
	)
	return info, nil
}

// Deserialize loads the archive at path into table.
//
// ErrArchiveOpen leaves the table as it was. Any decoding failure wraps
// ErrCorruptArchive and leaves the table empty.
func Deserialize(table *deduplication.Table, path string, opts Options) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrArchiveOpen, err)
	}

	info, err := Decode(table, data, opts.VerifyFingerprints)
	if err != nil {
		return info, fmt.Errorf("%s: %w", path, err)
	}

	logger.OrNop(opts.Logger).Info("archive loaded",
		zap.String("path", path),
		zap.String("format", info.Format),
		zap.String("algorithm", info.Algorithm),
		zap.Int("records", info.Records),
		zap.Int("paths", info.Paths),
	)
	return info, nil
}

func formatName(format string) string {
	if format == "" {
		return constants.ArchiveFormatBaseline
	}
	return format
}
