package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/selphi-project/srp/internal/archive"
	"github.com/selphi-project/srp/internal/chunkstore"
	"github.com/selphi-project/srp/internal/errs"
	"github.com/selphi-project/srp/internal/upstream"
)

// fakeTool is an in-memory upstream.Tool double: positions, genotype rows
// and sample/original IDs are all fixed at construction, with VariantRows
// and GenotypeRows filtering by the requested [start,end] range the way
// bcftools' -r/-t region queries would.
type fakeTool struct {
	chrom       string
	length      int64
	numVariants int
	rows        []upstream.VariantRow
	genotypes   map[int64]string // position -> pipe-joined tokens, no leading "|"
	sampleIDs   []string
	originalIDs []string
	contigField string
}

func (f *fakeTool) Stats(ctx context.Context, path string) (upstream.Stats, error) {
	return upstream.Stats{Chromosome: f.chrom, Length: f.length, NumVariants: f.numVariants}, nil
}

func (f *fakeTool) VariantRows(ctx context.Context, path, chrom string, start, end int64) ([]upstream.VariantRow, error) {
	var out []upstream.VariantRow
	for _, r := range f.rows {
		if r.Position >= start && r.Position <= end {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeTool) GenotypeRows(ctx context.Context, path, chrom string, start, end int64) ([]string, error) {
	var out []string
	for _, r := range f.rows {
		if r.Position >= start && r.Position <= end {
			out = append(out, "|"+f.genotypes[r.Position])
		}
	}
	return out, nil
}

func (f *fakeTool) OriginalIDs(ctx context.Context, path string) ([]string, error) {
	return f.originalIDs, nil
}

func (f *fakeTool) ContigHeader(ctx context.Context, path, chrom string) (string, error) {
	return f.contigField, nil
}

func (f *fakeTool) SampleIDs(ctx context.Context, path string) ([]string, error) {
	return f.sampleIDs, nil
}

func newFakeTool() *fakeTool {
	positions := []int64{100, 200, 300, 400, 500, 600}
	genotypes := map[int64]string{
		100: "1|0|0|1",
		200: "0|1|1|0",
		300: "1|1|0|0",
		400: "0|0|1|1",
		500: "1|0|1|0",
		600: "0|1|0|1",
	}
	rows := make([]upstream.VariantRow, len(positions))
	originalIDs := make([]string, len(positions))
	for i, pos := range positions {
		originalIDs[i] = "rs" + strconv.Itoa(i)
		rows[i] = upstream.VariantRow{
			Chromosome: "chr1",
			Position:   pos,
			Ref:        "A",
			Alt:        "G",
			ID:         originalIDs[i],
		}
	}
	return &fakeTool{
		chrom:       "chr1",
		length:      1000,
		numVariants: len(positions),
		rows:        rows,
		genotypes:   genotypes,
		sampleIDs:   []string{"sampleA", "sampleB"},
		originalIDs: originalIDs,
		contigField: "##contig=<ID=chr1,length=1000>",
	}
}

func writeArchive(t *testing.T, r Result) *archive.Reader {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "panel.srp")

	w, err := archive.Create(path)
	if err != nil {
		t.Fatalf("archive.Create: %v", err)
	}
	if err := Finalize(w, r); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Writer.Close: %v", err)
	}

	reader, err := archive.Open(path)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() { reader.Close() })
	return reader
}

func TestFromUpstreamAndFinalize(t *testing.T) {
	tool := newFakeTool()
	source := filepath.Join(t.TempDir(), "input.vcf.gz")
	if err := os.WriteFile(source, []byte("placeholder"), 0o644); err != nil {
		t.Fatalf("seeding source file: %v", err)
	}

	opts := Options{ChunkSize: 4, Threads: 2}
	result, err := FromUpstream(context.Background(), tool, source, opts)
	if err != nil {
		t.Fatalf("FromUpstream: %v", err)
	}
	defer result.Cleanup()

	if result.Metadata.NVariants != 6 {
		t.Errorf("NVariants = %d, want 6", result.Metadata.NVariants)
	}
	if result.Metadata.NChunks != 2 {
		t.Errorf("NChunks = %d, want 2", result.Metadata.NChunks)
	}
	if result.Metadata.NHaps != 4 {
		t.Errorf("NHaps = %d, want 4", result.Metadata.NHaps)
	}
	if result.Metadata.NSamples != 2 {
		t.Errorf("NSamples = %d, want 2", result.Metadata.NSamples)
	}
	if result.Metadata.ContigField != tool.contigField {
		t.Errorf("ContigField = %q, want %q", result.Metadata.ContigField, tool.contigField)
	}

	reader := writeArchive(t, result)
	store := chunkstore.Open(reader)

	chunk0, err := store.Read(0)
	if err != nil {
		t.Fatalf("Read chunk 0: %v", err)
	}
	if chunk0.Rows != 4 || chunk0.Cols != 4 {
		t.Errorf("chunk 0 shape = %dx%d, want 4x4", chunk0.Rows, chunk0.Cols)
	}

	chunk1, err := store.Read(1)
	if err != nil {
		t.Fatalf("Read chunk 1: %v", err)
	}
	if chunk1.Rows != 2 || chunk1.Cols != 4 {
		t.Errorf("chunk 1 shape = %dx%d, want 2x4", chunk1.Rows, chunk1.Cols)
	}

	if !reader.Has(archive.EntrySampleIDs) {
		t.Error("archive missing sample_ids entry")
	}
}

func TestFromUpstreamMissingSourceFile(t *testing.T) {
	tool := newFakeTool()
	_, err := FromUpstream(context.Background(), tool, "/does/not/exist.vcf.gz", Options{})
	if !errs.Is(err, errs.FileNotFound) {
		t.Errorf("FromUpstream(missing file) error = %v, want errs.FileNotFound", err)
	}
}

func TestFromSidecarAndFinalize(t *testing.T) {
	tool := newFakeTool()
	dir := t.TempDir()
	source := filepath.Join(dir, "panel_var.bcf")
	if err := os.WriteFile(source, []byte("placeholder"), 0o644); err != nil {
		t.Fatalf("seeding source file: %v", err)
	}

	base := filepath.Join(dir, "panel")
	sites := "chr1\t100\tA\tG\nchr1\t200\tA\tG\nchr1\t300\tA\tG\nchr1\t400\tA\tG\nchr1\t500\tA\tG\nchr1\t600\tA\tG\n"
	if err := os.WriteFile(base+".sites", []byte(sites), 0o644); err != nil {
		t.Fatalf("writing sites sidecar: %v", err)
	}
	samples := "sampleA\nsampleB\n"
	if err := os.WriteFile(base+".samples", []byte(samples), 0o644); err != nil {
		t.Fatalf("writing samples sidecar: %v", err)
	}

	opts := Options{ChunkSize: 4, Threads: 2}
	result, err := FromSidecar(context.Background(), tool, source, base, opts)
	if err != nil {
		t.Fatalf("FromSidecar: %v", err)
	}
	defer result.Cleanup()

	if result.Metadata.NVariants != 6 {
		t.Errorf("NVariants = %d, want 6", result.Metadata.NVariants)
	}
	if result.Metadata.NChunks != 2 {
		t.Errorf("NChunks = %d, want 2", result.Metadata.NChunks)
	}
	if len(result.Table.OriginalIDs) != 6 || result.Table.OriginalIDs[0] != tool.originalIDs[0] {
		t.Errorf("OriginalIDs = %v, want %v", result.Table.OriginalIDs, tool.originalIDs)
	}

	writeArchive(t, result)
}

func TestFromSidecarMissingSidecarFile(t *testing.T) {
	tool := newFakeTool()
	dir := t.TempDir()
	source := filepath.Join(dir, "panel_var.bcf")
	if err := os.WriteFile(source, []byte("placeholder"), 0o644); err != nil {
		t.Fatalf("seeding source file: %v", err)
	}

	_, err := FromSidecar(context.Background(), tool, source, filepath.Join(dir, "panel"), Options{})
	if !errs.Is(err, errs.FileNotFound) {
		t.Errorf("FromSidecar(missing sidecar) error = %v, want errs.FileNotFound", err)
	}
}
