package variant

import (
	"reflect"
	"testing"
)

func sampleRows() []Row {
	return []Row{
		{Chromosome: "chr1", Position: 100, Ref: "A", Alt: "G", OriginalID: "rs1"},
		{Chromosome: "chr1", Position: 200, Ref: "C", Alt: "T", OriginalID: "rs2"},
		{Chromosome: "chr1", Position: 300, Ref: "G", Alt: "A", OriginalID: "rs3"},
	}
}

func TestBuildTable(t *testing.T) {
	table, err := BuildTable(sampleRows())
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	if table.Chromosome != "chr1" {
		t.Errorf("Chromosome = %q, want chr1", table.Chromosome)
	}
	if len(table.Variants) != 3 {
		t.Fatalf("len(Variants) = %d, want 3", len(table.Variants))
	}
	if len(table.Variants[0].RefHash) != 16 || len(table.Variants[0].AltHash) != 16 {
		t.Errorf("hash width = %d/%d, want 16/16", len(table.Variants[0].RefHash), len(table.Variants[0].AltHash))
	}
	if table.OriginalIDs[1] != "rs2" {
		t.Errorf("OriginalIDs[1] = %q, want rs2", table.OriginalIDs[1])
	}
}

func TestBuildTableRejectsMultiChromosome(t *testing.T) {
	rows := sampleRows()
	rows[2].Chromosome = "chr2"
	if _, err := BuildTable(rows); err == nil {
		t.Error("BuildTable with mixed chromosomes should error")
	}
}

func TestBuildTableRejectsDecreasingPositions(t *testing.T) {
	rows := sampleRows()
	rows[2].Position = 50
	if _, err := BuildTable(rows); err == nil {
		t.Error("BuildTable with decreasing positions should error")
	}
}

func TestHashAlleleIsDeterministic(t *testing.T) {
	a, err := HashAllele("ACGTACGTACGTACGTACGT")
	if err != nil {
		t.Fatalf("HashAllele: %v", err)
	}
	b, err := HashAllele("ACGTACGTACGTACGTACGT")
	if err != nil {
		t.Fatalf("HashAllele: %v", err)
	}
	if a != b {
		t.Errorf("HashAllele not deterministic: %q != %q", a, b)
	}
	c, _ := HashAllele("different allele")
	if a == c {
		t.Error("HashAllele collided on distinct input (extremely unlikely, check implementation)")
	}
}

func TestBuildChunkIndex(t *testing.T) {
	table, _ := BuildTable(sampleRows())
	idx, err := BuildChunkIndex(table.Positions(), 2)
	if err != nil {
		t.Fatalf("BuildChunkIndex: %v", err)
	}
	want := ChunkIndex{
		{ChunkID: 0, FirstPos: 100, LastPos: 200},
		{ChunkID: 1, FirstPos: 300, LastPos: 300},
	}
	if !reflect.DeepEqual(idx, want) {
		t.Errorf("BuildChunkIndex = %+v, want %+v", idx, want)
	}
	if idx.RowCount(0, 3, 2) != 2 {
		t.Errorf("RowCount(chunk 0) = %d, want 2", idx.RowCount(0, 3, 2))
	}
	if idx.RowCount(1, 3, 2) != 1 {
		t.Errorf("RowCount(chunk 1) = %d, want 1", idx.RowCount(1, 3, 2))
	}
}

func TestChunkForPosition(t *testing.T) {
	idx := ChunkIndex{
		{ChunkID: 0, FirstPos: 100, LastPos: 200},
		{ChunkID: 1, FirstPos: 300, LastPos: 300},
	}
	if id, ok := idx.ChunkForPosition(150); !ok || id != 0 {
		t.Errorf("ChunkForPosition(150) = (%d,%v), want (0,true)", id, ok)
	}
	if id, ok := idx.ChunkForPosition(300); !ok || id != 1 {
		t.Errorf("ChunkForPosition(300) = (%d,%v), want (1,true)", id, ok)
	}
	if _, ok := idx.ChunkForPosition(50); ok {
		t.Error("ChunkForPosition(50) should not be found")
	}
}

func TestSearchSorted(t *testing.T) {
	positions := []int64{100, 200, 300}
	tests := []struct {
		target int64
		want   int
	}{
		{50, 0},
		{100, 0},
		{150, 1},
		{300, 2},
		{301, 3},
	}
	for _, tt := range tests {
		if got := SearchSorted(positions, tt.target); got != tt.want {
			t.Errorf("SearchSorted(%d) = %d, want %d", tt.target, got, tt.want)
		}
	}
}

func TestTableWireRoundTrip(t *testing.T) {
	table, _ := BuildTable(sampleRows())
	fields := Dtypes(len(table.Chromosome))

	encoded, err := EncodeTable(table.Variants, fields)
	if err != nil {
		t.Fatalf("EncodeTable: %v", err)
	}
	decoded, err := DecodeTable(encoded, fields)
	if err != nil {
		t.Fatalf("DecodeTable: %v", err)
	}
	if !reflect.DeepEqual(table.Variants, decoded) {
		t.Errorf("DecodeTable(EncodeTable(v)) = %+v, want %+v", decoded, table.Variants)
	}
}

func TestChunkIndexWireRoundTrip(t *testing.T) {
	table, _ := BuildTable(sampleRows())
	idx, _ := BuildChunkIndex(table.Positions(), 2)

	encoded, err := EncodeChunkIndex(idx)
	if err != nil {
		t.Fatalf("EncodeChunkIndex: %v", err)
	}
	decoded, err := DecodeChunkIndex(encoded)
	if err != nil {
		t.Fatalf("DecodeChunkIndex: %v", err)
	}
	if !reflect.DeepEqual(idx, decoded) {
		t.Errorf("DecodeChunkIndex(EncodeChunkIndex(idx)) = %+v, want %+v", decoded, idx)
	}
}
