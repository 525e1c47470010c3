package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/substantialcattle5/backup/internal/deduplication"
	"github.com/substantialcattle5/backup/internal/fingerprint"
)

// Smallest encodings, used to reject counts that cannot fit in what is left.
const (
	minRecordLen = 4 * 8 // pathCount, hashLen, size, dataLen
	minPathLen   = 2 * 8 // pathLen, lastModified
)

// appendPayload encodes records in the baseline layout: every integer is a
// little-endian u64 and every byte string is prefixed with its length.
func appendPayload(buf []byte, records []*deduplication.UniqueContentRecord) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(records)))
	for _, rec := range records {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(rec.Paths)))
		for _, meta := range rec.Paths {
			buf = appendBytes(buf, []byte(meta.Path))
			buf = binary.LittleEndian.AppendUint64(buf, uint64(meta.LastModified))
		}
		buf = appendBytes(buf, []byte(rec.Fingerprint))
		buf = binary.LittleEndian.AppendUint64(buf, rec.Size)
		buf = appendBytes(buf, rec.Data)
	}
	return buf
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(b)))
	return append(buf, b...)
}

// reader decodes fields from an in-memory archive. Every read is checked
// against the bytes that remain.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() uint64 {
	return uint64(len(r.buf) - r.off)
}

func (r *reader) u64(field string) (uint64, error) {
	if r.remaining() < 8 {
		return 0, fmt.Errorf("%w: reading %s at offset %d: need 8 bytes, have %d",
			ErrCorruptArchive, field, r.off, r.remaining())
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// bytes returns a copy of the next length-prefixed byte string.
func (r *reader) bytes(field string) ([]byte, error) {
	n, err := r.u64(field + " length")
	if err != nil {
		return nil, err
	}
	if n > r.remaining() {
		return nil, fmt.Errorf("%w: %s length %d exceeds remaining %d bytes",
			ErrCorruptArchive, field, n, r.remaining())
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:])
	r.off += int(n)
	return out, nil
}

// decodePayload parses a complete baseline payload. When verify is set, each
// record's data is re-hashed with h and must match its stored fingerprint.
func decodePayload(payload []byte, h fingerprint.Hasher, verify bool) ([]*deduplication.UniqueContentRecord, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: archive is empty", ErrCorruptArchive)
	}

	r := &reader{buf: payload}
	count, err := r.u64("record count")
	if err != nil {
		return nil, err
	}
	if count > r.remaining()/minRecordLen {
		return nil, fmt.Errorf("%w: record count %d cannot fit in %d bytes",
			ErrCorruptArchive, count, r.remaining())
	}

	records := make([]*deduplication.UniqueContentRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		rec, err := decodeRecord(r, i)
		if err != nil {
			return nil, err
		}
		if verify {
			if got := h.Sum(rec.Data); got != rec.Fingerprint {
				return nil, fmt.Errorf("%w: record %d fingerprint %s does not match its data (%s %s)",
					ErrCorruptArchive, i, rec.Fingerprint, h.Name(), got)
			}
		}
		records = append(records, rec)
	}

	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d records",
			ErrCorruptArchive, r.remaining(), count)
	}
	return records, nil
}

func decodeRecord(r *reader, i uint64) (*deduplication.UniqueContentRecord, error) {
	pathCount, err := r.u64(fmt.Sprintf("record %d path count", i))
	if err != nil {
		return nil, err
	}
	if pathCount > r.remaining()/minPathLen {
		return nil, fmt.Errorf("%w: record %d path count %d cannot fit in %d bytes",
			ErrCorruptArchive, i, pathCount, r.remaining())
	}

	rec := &deduplication.UniqueContentRecord{
		Paths: make([]deduplication.FileMetadata, 0, pathCount),
	}
	for j := uint64(0); j < pathCount; j++ {
		path, err := r.bytes(fmt.Sprintf("record %d path %d", i, j))
		if err != nil {
			return nil, err
		}
		modTime, err := r.u64(fmt.Sprintf("record %d path %d modification time", i, j))
		if err != nil {
			return nil, err
		}
		rec.Paths = append(rec.Paths, deduplication.FileMetadata{
			Path:         string(path),
			LastModified: int64(modTime),
		})
	}

	hash, err := r.bytes(fmt.Sprintf("record %d hash", i))
	if err != nil {
		return nil, err
	}
	rec.Fingerprint = string(hash)

	if rec.Size, err = r.u64(fmt.Sprintf("record %d size", i)); err != nil {
		return nil, err
	}
	if rec.Data, err = r.bytes(fmt.Sprintf("record %d data", i)); err != nil {
		return nil, err
	}
	if uint64(len(rec.Data)) != rec.Size {
		return nil, fmt.Errorf("%w: record %d size %d does not match data length %d",
			ErrCorruptArchive, i, rec.Size, len(rec.Data))
	}

	return rec, nil
}
