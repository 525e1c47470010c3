package deduplication

import (
	"bytes"
	"sort"

	"github.com/substantialcattle5/backup/internal/fingerprint"
)

// Table maps fingerprints to the unique content records they identify.
// A Table belongs to a single session and is not safe for concurrent use.
type Table struct {
	hasher  fingerprint.Hasher
	records map[string]*UniqueContentRecord
	// touched remembers the fingerprint every path was imported under this session.
	touched map[string]string
}

// NewTable creates an empty table keyed by h. A nil h selects FNV-1a/64.
func NewTable(h fingerprint.Hasher) *Table {
	if h == nil {
		h = fingerprint.FNV1a64
	}
	return &Table{
		hasher:  h,
		records: make(map[string]*UniqueContentRecord),
		touched: make(map[string]string),
	}
}

// Hasher returns the algorithm the table's keys are computed with.
func (t *Table) Hasher() fingerprint.Hasher {
	return t.hasher
}

// Reset drops every record and rekeys the table with h.
func (t *Table) Reset(h fingerprint.Hasher) {
	if h == nil {
		h = fingerprint.FNV1a64
	}
	t.hasher = h
	t.records = make(map[string]*UniqueContentRecord)
	t.touched = make(map[string]string)
}

// Add records that path held data at modTime.
// The bytes are copied, so callers may reuse their buffer.
func (t *Table) Add(path string, modTime int64, data []byte) (string, Outcome) {
	fp := t.hasher.Sum(data)
	t.touched[path] = fp

	rec, exists := t.records[fp]
	if !exists {
		rec = &UniqueContentRecord{
			Fingerprint: fp,
			Size:        uint64(len(data)),
			Data:        bytes.Clone(data),
		}
		if rec.Data == nil {
			rec.Data = []byte{}
		}
		t.records[fp] = rec
	}

	if rec.indexOf(path) >= 0 {
		return fp, OutcomeAlreadyTracked
	}

	outcome := OutcomeSharedContent
	if len(rec.Paths) == 0 {
		outcome = OutcomeNewContent
	}
	rec.Paths = append(rec.Paths, FileMetadata{Path: path, LastModified: modTime})
	return fp, outcome
}

// Put stores rec under its fingerprint, replacing any record already there.
func (t *Table) Put(rec *UniqueContentRecord) {
	t.records[rec.Fingerprint] = rec
}

// Get returns the record stored under fp. The record must not be modified.
func (t *Table) Get(fp string) (*UniqueContentRecord, bool) {
	rec, ok := t.records[fp]
	return rec, ok
}

// Len returns the number of unique records.
func (t *Table) Len() int {
	return len(t.records)
}

// PathCount returns the number of path entries across all records.
func (t *Table) PathCount() int {
	n := 0
	for _, rec := range t.records {
		n += len(rec.Paths)
	}
	return n
}

// Records returns every record ordered by fingerprint.
func (t *Table) Records() []*UniqueContentRecord {
	out := make([]*UniqueContentRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

// Stats returns statistics about the table
func (t *Table) Stats() Stats {
	var s Stats
	for _, rec := range t.records {
		s.UniqueRecords++
		s.TrackedPaths += len(rec.Paths)
		s.StoredBytes += rec.Size
		s.LogicalBytes += rec.Size * uint64(len(rec.Paths))
		if len(rec.Paths) > 1 {
			s.SavedBytes += rec.Size * uint64(len(rec.Paths)-1)
		}
	}
	return s
}

// PruneStale removes path entries that this session re-imported under a
// different fingerprint, then drops records left without paths.
func (t *Table) PruneStale() PruneResult {
	var res PruneResult

	for fp, rec := range t.records {
		kept := rec.Paths[:0]
		for _, meta := range rec.Paths {
			if current, seen := t.touched[meta.Path]; seen && current != fp {
				res.RemovedPaths++
				continue
			}
			kept = append(kept, meta)
		}
		rec.Paths = kept

		if len(rec.Paths) == 0 {
			delete(t.records, fp)
			res.RemovedRecords++
		}
	}

	return res
}

func (r *UniqueContentRecord) indexOf(path string) int {
	for i, meta := range r.Paths {
		if meta.Path == path {
			return i
		}
	}
	return -1
}

// HasPath reports whether path is among the record's locations.
func (r *UniqueContentRecord) HasPath(path string) bool {
	return r.indexOf(path) >= 0
}
