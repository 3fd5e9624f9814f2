package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/selphi-project/srp/internal/archive"
	"github.com/selphi-project/srp/internal/chunkstore"
	"github.com/selphi-project/srp/internal/errs"
	"github.com/selphi-project/srp/internal/sparsematrix"
	"github.com/selphi-project/srp/internal/upstream"
	"github.com/selphi-project/srp/internal/variant"
)

// ingestHaplotypes queries each chunk's genotype rows in parallel (up to
// threads workers), parses the "|h0|h1|..." text into a boolean CSC chunk,
// trims the duplicate-position offset at chunk boundaries, and stages the
// compressed wire bytes to a temp directory. Returns that directory (the
// caller removes it after Finalize) and the n_haps column count every
// chunk agreed on. On failure the directory is removed here and "" is
// returned.
func ingestHaplotypes(ctx context.Context, tool upstream.Tool, path, chrom string, table variant.Table, idx variant.ChunkIndex, chunkSize, threads int) (string, int, error) {
	stagedDir, err := os.MkdirTemp("", "srp-ingest-*")
	if err != nil {
		return "", 0, err
	}

	nHapsPerChunk := make([]int, len(idx))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, entry := range idx {
		i, entry := i, entry
		g.Go(func() error {
			rows, err := tool.GenotypeRows(gctx, path, chrom, entry.FirstPos, entry.LastPos)
			if err != nil {
				os.RemoveAll(stagedDir)
				return err
			}

			expectedRows := idx.RowCount(entry.ChunkID, len(table.Variants), chunkSize)
			offset := boundaryOffset(table, idx, entry.ChunkID, chunkSize)

			chunk, err := parseGenotypeChunk(rows, offset, expectedRows)
			if err != nil {
				os.RemoveAll(stagedDir)
				return errs.UpstreamErrorf(err, "chunk %d (%s:%d-%d)", entry.ChunkID, chrom, entry.FirstPos, entry.LastPos)
			}
			nHapsPerChunk[i] = chunk.Cols

			encoded, err := chunkstore.EncodeChunk(chunk)
			if err != nil {
				os.RemoveAll(stagedDir)
				return err
			}
			compressed, err := archive.Compress(encoded)
			if err != nil {
				os.RemoveAll(stagedDir)
				return err
			}
			if err := os.WriteFile(StagedChunkPath(stagedDir, entry.ChunkID), compressed, 0o644); err != nil {
				os.RemoveAll(stagedDir)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, err
	}

	nHaps := 0
	for i, n := range nHapsPerChunk {
		if i == 0 {
			nHaps = n
			continue
		}
		if n != nHaps {
			os.RemoveAll(stagedDir)
			return "", 0, errs.InvariantViolationf("chunk %d reports %d haplotype columns, want %d", i, n, nHaps)
		}
	}
	return stagedDir, nHaps, nil
}

// StagedChunkPath returns the staging file path for a chunk id within
// dir, shared by the haplotype-ingest writer and Finalize's reader.
func StagedChunkPath(dir string, chunkID int) string {
	return filepath.Join(dir, strconv.Itoa(chunkID)+".chunk")
}

// boundaryOffset computes the number of leading rows to trim from chunk
// chunkID's genotype stream: variants at the exact position where this
// chunk's range starts and the previous chunk's range ended belong to the
// previous chunk, not this one. Chunk 0 has no predecessor, so the offset
// is always 0 for it.
func boundaryOffset(table variant.Table, idx variant.ChunkIndex, chunkID, chunkSize int) int {
	if chunkID == 0 || idx[chunkID].FirstPos != idx[chunkID-1].LastPos {
		return 0
	}
	offset := 0
	boundaryPos := idx[chunkID].FirstPos
	for v := chunkID*chunkSize - 1; v >= 0; v-- {
		if table.Variants[v].Position == boundaryPos {
			offset++
		} else {
			break
		}
	}
	return offset
}

// parseGenotypeChunk parses "|h0|h1|..." lines into a boolean CSC matrix,
// dropping the first offset rows, and validates the result has exactly
// expectedRows rows.
func parseGenotypeChunk(lines []string, offset, expectedRows int) (sparsematrix.RawCSC, error) {
	if offset < 0 || offset > len(lines) {
		return sparsematrix.RawCSC{}, errs.InvariantViolationf("boundary offset %d exceeds %d returned rows", offset, len(lines))
	}
	kept := lines[offset:]
	if len(kept) != expectedRows {
		return sparsematrix.RawCSC{}, errs.InvariantViolationf("parsed %d rows, want %d", len(kept), expectedRows)
	}
	if len(kept) == 0 {
		return sparsematrix.NewCSC(0, 0, []int{0}, nil)
	}

	indptr := make([]int, 1, len(kept)+1)
	indptr[0] = 0
	var indices []int
	cols := -1
	for _, line := range kept {
		tokens := strings.Split(strings.TrimPrefix(line, "|"), "|")
		if cols == -1 {
			cols = len(tokens)
		} else if len(tokens) != cols {
			return sparsematrix.RawCSC{}, errs.CorruptArchivef("genotype row column count %d, want %d", len(tokens), cols)
		}
		for col, tok := range tokens {
			switch tok {
			case "1":
				indices = append(indices, col)
			case "0":
				// false entry, nothing stored
			default:
				return sparsematrix.RawCSC{}, errs.CorruptArchivef("malformed genotype token %q", tok)
			}
		}
		indptr = append(indptr, len(indices))
	}
	rowsCSR, err := sparsematrix.NewCSR(len(kept), cols, indptr, indices)
	if err != nil {
		return sparsematrix.RawCSC{}, err
	}
	return rowsCSR.ToCSC(), nil
}
