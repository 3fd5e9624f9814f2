// Package chunkstore maps chunk ids onto the archive's haplotype entries:
// it is the thin layer between internal/archive's named-blob container and
// the chunk cache (internal/chunkcache) that sits in front of it. Each
// chunk entry is written exactly once at ingest, so unlike a general blob
// store there is no tmp-file-then-rename or cache-invalidation path to
// carry here — reads are the only operation this package performs at
// query time.
package chunkstore

import (
	"encoding/binary"
	"fmt"

	"github.com/selphi-project/srp/internal/archive"
	"github.com/selphi-project/srp/internal/errs"
	"github.com/selphi-project/srp/internal/sparsematrix"
)

// Store reads haplotype chunks out of an open archive. archive.Reader's
// underlying zip.ReadCloser hands out an independent io.Reader per
// entry.Open() call, so concurrent Read calls for distinct chunk ids never
// contend with each other; Store itself holds no mutable state.
type Store struct {
	r *archive.Reader
}

// Open wraps an already-open archive reader for chunk access.
func Open(r *archive.Reader) *Store {
	return &Store{r: r}
}

// Read fetches, decompresses and parses chunk id's haplotype matrix.
func (s *Store) Read(chunkID int) (sparsematrix.RawCSC, error) {
	data, err := s.r.ReadEntry(archive.HaplotypeEntry(chunkID))
	if err != nil {
		return sparsematrix.RawCSC{}, err
	}
	return decodeChunk(data)
}

// wire layout for a haplotype chunk: three little-endian int64 header
// fields (rows, cols, nnz) followed by indptr (cols+1 int64s) then indices
// (nnz int64s). No value array — the matrix is boolean.
const chunkHeaderSize = 3 * 8

func decodeChunk(data []byte) (sparsematrix.RawCSC, error) {
	if len(data) < chunkHeaderSize {
		return sparsematrix.RawCSC{}, errs.CorruptArchivef("chunk header truncated: %d bytes", len(data))
	}
	rows := int(binary.LittleEndian.Uint64(data[0:8]))
	cols := int(binary.LittleEndian.Uint64(data[8:16]))
	nnz := int(binary.LittleEndian.Uint64(data[16:24]))

	want := chunkHeaderSize + (cols+1)*8 + nnz*8
	if len(data) != want {
		return sparsematrix.RawCSC{}, errs.CorruptArchivef("chunk body length %d, want %d", len(data), want)
	}

	off := chunkHeaderSize
	indptr := make([]int, cols+1)
	for i := range indptr {
		indptr[i] = int(binary.LittleEndian.Uint64(data[off : off+8]))
		off += 8
	}
	indices := make([]int, nnz)
	for i := range indices {
		indices[i] = int(binary.LittleEndian.Uint64(data[off : off+8]))
		off += 8
	}

	return sparsematrix.NewCSC(rows, cols, indptr, indices)
}

// EncodeChunk serializes a RawCSC to the wire layout decodeChunk parses.
// Exported for the staging writer (internal/ingest) and for tests.
func EncodeChunk(m sparsematrix.RawCSC) ([]byte, error) {
	if len(m.Indptr) != m.Cols+1 {
		return nil, fmt.Errorf("chunkstore: indptr length %d, want %d", len(m.Indptr), m.Cols+1)
	}
	buf := make([]byte, chunkHeaderSize+(m.Cols+1)*8+len(m.Indices)*8)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(m.Rows))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(m.Cols))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(m.Indices)))

	off := chunkHeaderSize
	for _, v := range m.Indptr {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(v))
		off += 8
	}
	for _, v := range m.Indices {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(v))
		off += 8
	}
	return buf, nil
}
