package chunkstore

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/selphi-project/srp/internal/archive"
	"github.com/selphi-project/srp/internal/sparsematrix"
)

func sampleChunk() sparsematrix.RawCSC {
	// column-major 3x4: col0={0,1}, col1={1}, col2={2}, col3={1,2}
	m, _ := sparsematrix.NewCSC(3, 4, []int{0, 2, 3, 4, 6}, []int{0, 1, 1, 2, 1, 2})
	return m
}

func TestEncodeDecodeChunkRoundTrip(t *testing.T) {
	want := sampleChunk()
	encoded, err := EncodeChunk(want)
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	got, err := decodeChunk(encoded)
	if err != nil {
		t.Fatalf("decodeChunk: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("decodeChunk(EncodeChunk(m)) = %+v, want %+v", got, want)
	}
}

func TestStoreReadThroughArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.srp")
	chunk := sampleChunk()
	encoded, err := EncodeChunk(chunk)
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	compressed, err := archive.Compress(encoded)
	if err != nil {
		t.Fatalf("archive.Compress: %v", err)
	}

	w, err := archive.Create(path)
	if err != nil {
		t.Fatalf("archive.Create: %v", err)
	}
	if err := w.WriteRawEntry(archive.HaplotypeEntry(0), compressed); err != nil {
		t.Fatalf("WriteRawEntry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := archive.Open(path)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	defer r.Close()

	store := Open(r)
	got, err := store.Read(0)
	if err != nil {
		t.Fatalf("store.Read(0): %v", err)
	}
	if !reflect.DeepEqual(chunk, got) {
		t.Errorf("store.Read(0) = %+v, want %+v", got, chunk)
	}

	if _, err := store.Read(1); err == nil {
		t.Error("store.Read(1) on missing chunk should error")
	}
}
