package deduplication

// FileMetadata is one filesystem location that held a given content when it was imported.
type FileMetadata struct {
	// Path is slash-separated and relative to the import root.
	Path string `json:"path"`
	// LastModified is an opaque ordinal (Unix nanoseconds of the file's mtime).
	LastModified int64 `json:"last_modified"`
}

// UniqueContentRecord holds one distinct content and every path known to carry it.
type UniqueContentRecord struct {
	Fingerprint string         `json:"fingerprint"`
	Size        uint64         `json:"size"`
	Data        []byte         `json:"-"`
	Paths       []FileMetadata `json:"paths"`
}

// Outcome classifies what an import did to the table. It is observational only.
type Outcome int

const (
	// OutcomeNewContent means the path is the first one attached to its record.
	OutcomeNewContent Outcome = iota
	// OutcomeSharedContent means the path joined a record that already had paths.
	OutcomeSharedContent
	// OutcomeAlreadyTracked means the path was already recorded for this content.
	OutcomeAlreadyTracked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNewContent:
		return "new unique content"
	case OutcomeSharedContent:
		return "additional path sharing existing content"
	case OutcomeAlreadyTracked:
		return "already tracked"
	default:
		return "unknown"
	}
}

// Stats contains statistics about a table
type Stats struct {
	UniqueRecords int    `json:"unique_records"`
	TrackedPaths  int    `json:"tracked_paths"`
	StoredBytes   uint64 `json:"stored_bytes"`
	LogicalBytes  uint64 `json:"logical_bytes"`
	SavedBytes    uint64 `json:"saved_bytes"`
}

// Ratio is the share of logical bytes that deduplication avoided storing, in percent.
func (s Stats) Ratio() float64 {
	if s.LogicalBytes == 0 {
		return 0
	}
	return float64(s.SavedBytes) / float64(s.LogicalBytes) * 100
}

// PruneResult reports what PruneStale removed.
type PruneResult struct {
	RemovedPaths   int `json:"removed_paths"`
	RemovedRecords int `json:"removed_records"`
}
