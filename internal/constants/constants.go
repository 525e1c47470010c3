package constants

// Fingerprint algorithms
const (
	FingerprintFNV1a64 = "fnv1a64"
	FingerprintBLAKE3  = "blake3"
)

// Archive container formats
const (
	ArchiveFormatBaseline = "baseline"
	ArchiveFormatFramed   = "framed"
)

// File permissions
const (
	StandardDirPerms  = 0o755 // Standard directory permissions
	StandardFilePerms = 0o644 // Standard file permissions
)

// DefaultConfigFile is looked up in the working directory when --config is not given.
const DefaultConfigFile = "backup.yaml"

// HashDisplayLength is how many fingerprint characters user-facing output shows.
const HashDisplayLength = 12
