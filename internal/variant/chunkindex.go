package variant

import "fmt"

// ChunkEntry is one row of the chunk index: a contiguous run of variants
// persisted as a single haplotype chunk.
type ChunkEntry struct {
	ChunkID  int
	FirstPos int64
	LastPos  int64
}

// ChunkIndex is the ordered sequence of ChunkEntry rows for an archive.
type ChunkIndex []ChunkEntry

// BuildChunkIndex groups positions into chunkSize-sized runs (the last run
// may be shorter) and records each run's (chunk_id, first_pos, last_pos).
func BuildChunkIndex(positions []int64, chunkSize int) (ChunkIndex, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("variant: chunkSize must be positive, got %d", chunkSize)
	}
	if len(positions) == 0 {
		return ChunkIndex{}, nil
	}

	var index ChunkIndex
	for start, id := 0, 0; start < len(positions); start, id = start+chunkSize, id+1 {
		end := start + chunkSize
		if end > len(positions) {
			end = len(positions)
		}
		index = append(index, ChunkEntry{
			ChunkID:  id,
			FirstPos: positions[start],
			LastPos:  positions[end-1],
		})
	}
	return index, nil
}

// RowCount returns how many variant rows belong to chunk id, given the
// total variant count and configured chunk size (the last chunk may be
// shorter than chunkSize).
func (idx ChunkIndex) RowCount(chunkID, nVariants, chunkSize int) int {
	if chunkID < len(idx)-1 {
		return chunkSize
	}
	return nVariants - chunkID*chunkSize
}

// Valid reports whether chunkID is a valid index into this ChunkIndex.
func (idx ChunkIndex) Valid(chunkID int) bool {
	return chunkID >= 0 && chunkID < len(idx)
}

// ChunkForPosition returns the id of the chunk whose [FirstPos,LastPos]
// range contains pos, found via binary search on FirstPos, and true if
// found.
func (idx ChunkIndex) ChunkForPosition(pos int64) (int, bool) {
	// largest i such that idx[i].FirstPos <= pos
	lo, hi := 0, len(idx)-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if idx[mid].FirstPos <= pos {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == -1 || pos > idx[best].LastPos {
		return 0, false
	}
	return best, true
}
