package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/substantialcattle5/backup/internal/fingerprint"
)

// Framed header layout: magic, version, fingerprint algorithm. The payload is
// followed by an xxh3-64 checksum of the payload bytes.
const (
	framedVersion   = 1
	framedHeaderLen = len(framedMagic) + 8 + 8
	checksumLen     = 8
)

var framedMagic = [8]byte{'D', 'D', 'A', 'R', 'C', 'H', 'V', 0}

// Algorithm identifiers stored in the framed header.
var algorithmIDs = map[string]uint64{
	fingerprint.FNV1a64.Name(): 0,
	fingerprint.BLAKE3.Name():  1,
}

func hasherForID(id uint64) (fingerprint.Hasher, bool) {
	for name, candidate := range algorithmIDs {
		if candidate == id {
			h, err := fingerprint.New(name)
			return h, err == nil
		}
	}
	return nil, false
}

// isFramed reports whether data begins with the framed magic.
func isFramed(data []byte) bool {
	return len(data) >= len(framedMagic) && bytes.Equal(data[:len(framedMagic)], framedMagic[:])
}

func appendFrame(buf []byte, h fingerprint.Hasher, payload []byte) ([]byte, error) {
	id, ok := algorithmIDs[h.Name()]
	if !ok {
		return nil, fmt.Errorf("%w: fingerprint algorithm %s", ErrUnsupported, h.Name())
	}
	buf = append(buf, framedMagic[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, framedVersion)
	buf = binary.LittleEndian.AppendUint64(buf, id)
	buf = append(buf, payload...)
	buf = binary.LittleEndian.AppendUint64(buf, xxh3.Hash(payload))
	return buf, nil
}

// openFrame validates the header and checksum and returns the payload with
// the hasher its fingerprints were computed with.
func openFrame(data []byte) ([]byte, fingerprint.Hasher, error) {
	if len(data) < framedHeaderLen+checksumLen {
		return nil, nil, fmt.Errorf("%w: framed archive truncated at %d bytes", ErrCorruptArchive, len(data))
	}

	r := &reader{buf: data[:framedHeaderLen], off: len(framedMagic)}
	version, _ := r.u64("version")
	if version != framedVersion {
		return nil, nil, fmt.Errorf("%w: %w: archive version %d", ErrCorruptArchive, ErrUnsupported, version)
	}
	id, _ := r.u64("algorithm")
	h, ok := hasherForID(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %w: fingerprint algorithm id %d", ErrCorruptArchive, ErrUnsupported, id)
	}

	payload := data[framedHeaderLen : len(data)-checksumLen]
	want := binary.LittleEndian.Uint64(data[len(data)-checksumLen:])
	if got := xxh3.Hash(payload); got != want {
		return nil, nil, fmt.Errorf("%w: checksum mismatch: stored %016x, computed %016x", ErrCorruptArchive, want, got)
	}

	return payload, h, nil
}
