// Package fingerprint maps file content to the key the deduplication table
// stores it under.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"

	"github.com/zeebo/blake3"

	"github.com/substantialcattle5/backup/internal/constants"
)

// Hasher computes content fingerprints.
type Hasher interface {
	// Name is the algorithm identifier stored in config and framed archives.
	Name() string
	// Sum returns the lowercase hex fingerprint of data.
	Sum(data []byte) string
}

type fnv1a64 struct{}

func (fnv1a64) Name() string { return constants.FingerprintFNV1a64 }

// Sum renders the 64-bit FNV-1a digest as 16 zero-padded hex digits.
func (fnv1a64) Sum(data []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(data) // hash.Hash never returns an error
	return fmt.Sprintf("%016x", h.Sum64())
}

type blake3256 struct{}

func (blake3256) Name() string { return constants.FingerprintBLAKE3 }

func (blake3256) Sum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FNV1a64 is the baseline hasher every baseline archive is keyed with.
var FNV1a64 Hasher = fnv1a64{}

// BLAKE3 is the 256-bit hasher available to framed archives.
var BLAKE3 Hasher = blake3256{}

// New returns the hasher registered under algorithm. An empty name selects FNV1a64.
func New(algorithm string) (Hasher, error) {
	switch algorithm {
	case constants.FingerprintFNV1a64, "":
		return FNV1a64, nil
	case constants.FingerprintBLAKE3:
		return BLAKE3, nil
	default:
		return nil, fmt.Errorf("unsupported fingerprint algorithm: %s", algorithm)
	}
}
