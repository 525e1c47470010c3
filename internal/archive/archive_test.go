package archive

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/substantialcattle5/backup/internal/constants"
	"github.com/substantialcattle5/backup/internal/deduplication"
	"github.com/substantialcattle5/backup/internal/fingerprint"
	"github.com/substantialcattle5/backup/testutil"
)

func sampleTable(t *testing.T, h fingerprint.Hasher) *deduplication.Table {
	t.Helper()
	table := deduplication.NewTable(h)
	table.Add("a.txt", 100, []byte("Hello"))
	table.Add("dir/b.txt", 200, []byte("Hello"))
	table.Add("c.bin", 300, []byte{0x00, 0xff, 0x10})
	table.Add("empty", 400, nil)
	return table
}

func assertTablesEqual(t *testing.T, want, got *deduplication.Table) {
	t.Helper()
	if got.Len() != want.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), want.Len())
	}
	if got.Hasher().Name() != want.Hasher().Name() {
		t.Errorf("Hasher() = %s, want %s", got.Hasher().Name(), want.Hasher().Name())
	}
	wantRecords, gotRecords := want.Records(), got.Records()
	for i := range wantRecords {
		w, g := wantRecords[i], gotRecords[i]
		if g.Fingerprint != w.Fingerprint || g.Size != w.Size {
			t.Errorf("record %d = %s/%d, want %s/%d", i, g.Fingerprint, g.Size, w.Fingerprint, w.Size)
		}
		testutil.CompareBytes(t, w.Data, g.Data, "record data")
		if !reflect.DeepEqual(g.Paths, w.Paths) {
			t.Errorf("record %d paths = %v, want %v", i, g.Paths, w.Paths)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format string
		hasher fingerprint.Hasher
	}{
		{name: "baseline", format: constants.ArchiveFormatBaseline, hasher: fingerprint.FNV1a64},
		{name: "default format", format: "", hasher: fingerprint.FNV1a64},
		{name: "framed fnv", format: constants.ArchiveFormatFramed, hasher: fingerprint.FNV1a64},
		{name: "framed blake3", format: constants.ArchiveFormatFramed, hasher: fingerprint.BLAKE3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.TempDir(t, "archive-roundtrip")
			path := filepath.Join(dir, "backup.ddb")
			want := sampleTable(t, tt.hasher)

			written, err := Serialize(want, path, Options{Format: tt.format})
			if err != nil {
				t.Fatalf("Serialize() unexpected error: %v", err)
			}
			testutil.AssertFileSize(t, path, int64(written.Bytes))

			got := deduplication.NewTable(nil)
			info, err := Deserialize(got, path, Options{VerifyFingerprints: true})
			if err != nil {
				t.Fatalf("Deserialize() unexpected error: %v", err)
			}
			if info.Records != 3 || info.Paths != 4 {
				t.Errorf("info = %+v, want 3 records and 4 paths", info)
			}
			if info.Format != formatName(tt.format) {
				t.Errorf("info.Format = %s, want %s", info.Format, formatName(tt.format))
			}
			assertTablesEqual(t, want, got)
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	first, err := Encode(sampleTable(t, nil), constants.ArchiveFormatBaseline)
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Encode(sampleTable(t, nil), constants.ArchiveFormatBaseline)
		if err != nil {
			t.Fatalf("Encode() unexpected error: %v", err)
		}
		testutil.CompareBytes(t, first, again, "repeated encoding")
	}
}

func TestEncodeLayout(t *testing.T) {
	table := deduplication.NewTable(nil)
	table.Add("x.txt", 7, []byte("abc"))

	data, err := Encode(table, constants.ArchiveFormatBaseline)
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}

	fp := fingerprint.FNV1a64.Sum([]byte("abc"))
	var want []byte
	u64 := func(v uint64) { want = binary.LittleEndian.AppendUint64(want, v) }
	u64(1) // record count
	u64(1) // path count
	u64(5) // path length
	want = append(want, "x.txt"...)
	u64(7)               // last modified
	u64(uint64(len(fp))) // hash length
	want = append(want, fp...)
	u64(3) // size
	u64(3) // data length
	want = append(want, "abc"...)

	testutil.CompareBytes(t, want, data, "baseline layout")
}

func TestEncodeEmptyTable(t *testing.T) {
	data, err := Encode(deduplication.NewTable(nil), constants.ArchiveFormatBaseline)
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	testutil.CompareBytes(t, make([]byte, 8), data, "empty table")

	table := deduplication.NewTable(nil)
	if _, err := Decode(table, data, true); err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
}

func TestEncodeRejectsUnsupported(t *testing.T) {
	tests := []struct {
		name   string
		table  *deduplication.Table
		format string
	}{
		{name: "blake3 in baseline", table: sampleTable(t, fingerprint.BLAKE3), format: constants.ArchiveFormatBaseline},
		{name: "unknown format", table: sampleTable(t, nil), format: "zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.table, tt.format); !errors.Is(err, ErrUnsupported) {
				t.Errorf("Encode() error = %v, want ErrUnsupported", err)
			}
		})
	}
}

func TestDeserializeZeroByteArchive(t *testing.T) {
	dir := testutil.TempDir(t, "archive-empty")
	path := testutil.CreateTestFile(t, dir, "empty.ddb", "")

	table := sampleTable(t, nil)
	_, err := Deserialize(table, path, Options{})
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("Deserialize() error = %v, want ErrCorruptArchive", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after a corrupt load", table.Len())
	}
}

func TestDeserializeMissingArchive(t *testing.T) {
	dir := testutil.TempDir(t, "archive-missing")

	table := sampleTable(t, nil)
	_, err := Deserialize(table, filepath.Join(dir, "nope.ddb"), Options{})
	if !errors.Is(err, ErrArchiveOpen) {
		t.Fatalf("Deserialize() error = %v, want ErrArchiveOpen", err)
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, want the table untouched", table.Len())
	}
}

func TestDecodeTruncated(t *testing.T) {
	for _, format := range []string{constants.ArchiveFormatBaseline, constants.ArchiveFormatFramed} {
		data, err := Encode(sampleTable(t, nil), format)
		if err != nil {
			t.Fatalf("Encode() unexpected error: %v", err)
		}

		for cut := 0; cut < len(data); cut++ {
			table := sampleTable(t, nil)
			_, err := Decode(table, data[:cut], true)
			if !errors.Is(err, ErrCorruptArchive) {
				t.Fatalf("%s: Decode(%d of %d bytes) error = %v, want ErrCorruptArchive", format, cut, len(data), err)
			}
			if table.Len() != 0 {
				t.Fatalf("%s: Decode(%d bytes) left %d records", format, cut, table.Len())
			}
		}
	}
}

func TestDecodeRejectsMalformedBaseline(t *testing.T) {
	u64 := func(vals ...uint64) []byte {
		var b []byte
		for _, v := range vals {
			b = binary.LittleEndian.AppendUint64(b, v)
		}
		return b
	}
	valid, err := Encode(sampleTable(t, nil), constants.ArchiveFormatBaseline)
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}

	fp := fingerprint.FNV1a64.Sum([]byte("abc"))
	sizeMismatch := u64(1, 0, uint64(len(fp)))
	sizeMismatch = append(sizeMismatch, fp...)
	sizeMismatch = append(sizeMismatch, u64(4, 3)...)
	sizeMismatch = append(sizeMismatch, "abc"...)

	wrongHash := u64(1, 0, 16)
	wrongHash = append(wrongHash, "0000000000000000"...)
	wrongHash = append(wrongHash, u64(3, 3)...)
	wrongHash = append(wrongHash, "abc"...)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "huge record count", data: u64(1 << 62)},
		{name: "huge path count", data: u64(1, 1<<40, 0, 0, 0)},
		{name: "path length past end", data: u64(1, 1, 1000)},
		{name: "size differs from data length", data: sizeMismatch},
		{name: "fingerprint does not match data", data: wrongHash},
		{name: "trailing bytes", data: append(append([]byte{}, valid...), 0x01)},
		{name: "short count", data: []byte{1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := deduplication.NewTable(nil)
			if _, err := Decode(table, tt.data, true); !errors.Is(err, ErrCorruptArchive) {
				t.Errorf("Decode() error = %v, want ErrCorruptArchive", err)
			}
			if table.Len() != 0 {
				t.Errorf("Len() = %d, want 0", table.Len())
			}
		})
	}
}

func TestDecodeWithoutVerification(t *testing.T) {
	data := binary.LittleEndian.AppendUint64(nil, 1)
	data = binary.LittleEndian.AppendUint64(data, 1)
	data = binary.LittleEndian.AppendUint64(data, 1)
	data = append(data, 'p')
	data = binary.LittleEndian.AppendUint64(data, 9)
	data = binary.LittleEndian.AppendUint64(data, 4)
	data = append(data, "beef"...)
	data = binary.LittleEndian.AppendUint64(data, 1)
	data = binary.LittleEndian.AppendUint64(data, 1)
	data = append(data, 'z')

	table := deduplication.NewTable(nil)
	if _, err := Decode(table, data, false); err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	rec, ok := table.Get("beef")
	if !ok {
		t.Fatal("record stored under its decoded fingerprint not found")
	}
	if rec.Paths[0].Path != "p" || rec.Paths[0].LastModified != 9 || string(rec.Data) != "z" {
		t.Errorf("record = %+v", rec)
	}
}

func TestDecodeDuplicateFingerprintLastWins(t *testing.T) {
	record := func(path string) []byte {
		var b []byte
		b = binary.LittleEndian.AppendUint64(b, 1)
		b = binary.LittleEndian.AppendUint64(b, uint64(len(path)))
		b = append(b, path...)
		b = binary.LittleEndian.AppendUint64(b, 0)
		b = binary.LittleEndian.AppendUint64(b, 2)
		b = append(b, "fp"...)
		b = binary.LittleEndian.AppendUint64(b, 1)
		b = binary.LittleEndian.AppendUint64(b, 1)
		return append(b, 'x')
	}
	data := binary.LittleEndian.AppendUint64(nil, 2)
	data = append(data, record("first")...)
	data = append(data, record("second")...)

	table := deduplication.NewTable(nil)
	if _, err := Decode(table, data, false); err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	rec, _ := table.Get("fp")
	if table.Len() != 1 || rec.Paths[0].Path != "second" {
		t.Errorf("Len() = %d, paths = %v; want the second record", table.Len(), rec.Paths)
	}
}

func TestFramedDetection(t *testing.T) {
	framed, err := Encode(sampleTable(t, fingerprint.BLAKE3), constants.ArchiveFormatFramed)
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	if !isFramed(framed) {
		t.Fatal("framed output does not start with the magic")
	}

	baseline, err := Encode(sampleTable(t, nil), constants.ArchiveFormatBaseline)
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	if isFramed(baseline) {
		t.Fatal("baseline output detected as framed")
	}

	table := deduplication.NewTable(nil)
	info, err := Decode(table, framed, true)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if info.Algorithm != constants.FingerprintBLAKE3 || table.Hasher().Name() != constants.FingerprintBLAKE3 {
		t.Errorf("algorithm = %s, table hasher = %s; want blake3", info.Algorithm, table.Hasher().Name())
	}
}

func TestFramedCorruption(t *testing.T) {
	valid, err := Encode(sampleTable(t, nil), constants.ArchiveFormatFramed)
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	mutate := func(f func(b []byte)) []byte {
		b := append([]byte{}, valid...)
		f(b)
		return b
	}

	tests := []struct {
		name            string
		data            []byte
		wantUnsupported bool
	}{
		{name: "flipped payload byte", data: mutate(func(b []byte) { b[framedHeaderLen+3] ^= 0xff })},
		{name: "flipped checksum byte", data: mutate(func(b []byte) { b[len(b)-1] ^= 0xff })},
		{name: "future version", data: mutate(func(b []byte) { b[8] = 2 }), wantUnsupported: true},
		{name: "unknown algorithm", data: mutate(func(b []byte) { b[16] = 9 }), wantUnsupported: true},
		{name: "header only", data: valid[:framedHeaderLen]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := sampleTable(t, nil)
			_, err := Decode(table, tt.data, true)
			if !errors.Is(err, ErrCorruptArchive) {
				t.Fatalf("Decode() error = %v, want ErrCorruptArchive", err)
			}
			if errors.Is(err, ErrUnsupported) != tt.wantUnsupported {
				t.Errorf("errors.Is(err, ErrUnsupported) = %v, want %v", !tt.wantUnsupported, tt.wantUnsupported)
			}
			if table.Len() != 0 {
				t.Errorf("Len() = %d, want 0", table.Len())
			}
		})
	}
}

func TestSerializeReplacesExisting(t *testing.T) {
	dir := testutil.TempDir(t, "archive-replace")
	path := testutil.CreateTestFile(t, dir, "backup.ddb", "old content that is not an archive")

	if _, err := Serialize(sampleTable(t, nil), path, Options{}); err != nil {
		t.Fatalf("Serialize() unexpected error: %v", err)
	}

	table := deduplication.NewTable(nil)
	if _, err := Deserialize(table, path, Options{VerifyFingerprints: true}); err != nil {
		t.Fatalf("Deserialize() unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the archive", len(entries))
	}
}

func TestSerializeUnwritableTarget(t *testing.T) {
	dir := testutil.TempDir(t, "archive-unwritable")
	path := filepath.Join(dir, "missing-dir", "backup.ddb")

	_, err := Serialize(sampleTable(t, nil), path, Options{})
	if !errors.Is(err, ErrArchiveWrite) {
		t.Fatalf("Serialize() error = %v, want ErrArchiveWrite", err)
	}
	testutil.AssertFileNotExists(t, path)
}
