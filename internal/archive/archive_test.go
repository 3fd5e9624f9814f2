package archive

import (
	"path/filepath"
	"testing"

	"github.com/selphi-project/srp/internal/errs"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.srp")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteEntry(EntryMetadata, []byte(`{"chromosome":"chr1"}`)); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	raw := []byte{1, 2, 3, 4, 5}
	compressed, err := Compress(raw)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if err := w.WriteRawEntry(HaplotypeEntry(0), compressed); err != nil {
		t.Fatalf("WriteRawEntry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if !r.Has(EntryMetadata) {
		t.Error("Has(metadata) = false, want true")
	}
	if r.Has(EntryIDs) {
		t.Error("Has(IDs) = true, want false (never written)")
	}

	meta, err := r.ReadEntry(EntryMetadata)
	if err != nil {
		t.Fatalf("ReadEntry(metadata): %v", err)
	}
	if string(meta) != `{"chromosome":"chr1"}` {
		t.Errorf("metadata = %q, want the original JSON", meta)
	}

	// ReadEntry decompresses an entry written raw just as it does one
	// written by WriteEntry.
	decompressed, err := r.ReadEntry(HaplotypeEntry(0))
	if err != nil {
		t.Fatalf("ReadEntry(haplotypes/0): %v", err)
	}
	if again, err := Decompress(compressed); err != nil || len(again) != len(raw) {
		t.Fatalf("Decompress(Compress(raw)) = %v, %v; want %d bytes", again, err, len(raw))
	}
	if len(decompressed) != len(raw) {
		t.Fatalf("decompressed length = %d, want %d", len(decompressed), len(raw))
	}
	for i := range raw {
		if decompressed[i] != raw[i] {
			t.Errorf("decompressed[%d] = %d, want %d", i, decompressed[i], raw[i])
		}
	}
}

func TestReadMissingEntryIsCorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.srp")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	_, err = r.ReadEntry(EntryMetadata)
	if !errs.Is(err, errs.CorruptArchive) {
		t.Errorf("ReadEntry(missing) error = %v, want errs.CorruptArchive", err)
	}
}

func TestOpenNonexistentFileIsCorruptArchive(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "does-not-exist.srp"))
	if !errs.Is(err, errs.CorruptArchive) {
		t.Errorf("Open(missing file) error = %v, want errs.CorruptArchive", err)
	}
}
