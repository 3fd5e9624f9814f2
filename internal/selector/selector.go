// Package selector resolves row/column selections against a panel's
// chunked haplotype matrix without ever materializing the whole thing:
// every selector kind (single index, slice, index list, positional range)
// reduces to an absolute row-index list, which is grouped by chunk id
// (preserving the order each chunk is first needed), gathered one load per
// chunk through a Loader, vertically stacked, and finally narrowed by the
// column selector.
package selector

import (
	"github.com/selphi-project/srp/internal/errs"
	"github.com/selphi-project/srp/internal/sparsematrix"
	"github.com/selphi-project/srp/internal/variant"
)

// Loader fetches a decoded chunk by id. Implemented by *chunkcache.Cache.
type Loader interface {
	Get(chunkID int) (sparsematrix.RawCSC, error)
}

// RowKind tags which case a RowSelector represents.
type RowKind int

const (
	RowSingle RowKind = iota
	RowSlice
	RowList
)

// RowSelector is a tagged union over the three row-selection shapes the
// panel accepts: a single index, a Python-style slice (Start/Stop nil
// means unbounded), or an ordered list of indices.
type RowSelector struct {
	Kind  RowKind
	Index int64 // RowSingle

	Start, Stop *int64 // RowSlice; nil means unbounded
	Step        int    // RowSlice; nonzero

	List []int64 // RowList
}

// NewSingleRow selects one row by index.
func NewSingleRow(i int64) RowSelector {
	return RowSelector{Kind: RowSingle, Index: i}
}

// NewRowSlice selects rows [start, stop) with the given step. A nil start
// means 0; a nil stop means the full extent. step must be nonzero.
func NewRowSlice(start, stop *int64, step int) RowSelector {
	if step == 0 {
		step = 1
	}
	return RowSelector{Kind: RowSlice, Start: start, Stop: stop, Step: step}
}

// NewRowList selects rows by an explicit, possibly unordered, index list.
func NewRowList(idx []int64) RowSelector {
	return RowSelector{Kind: RowList, List: idx}
}

// ColKind tags which case a ColumnSelector represents.
type ColKind int

const (
	ColAll ColKind = iota
	ColSingle
	ColList
	ColSlice
	ColMask
)

// ColumnSelector is a tagged union mirroring the index specifications a
// column-major sparse matrix accepts: everything, one column, a list, a
// slice, or a boolean mask.
type ColumnSelector struct {
	Kind ColKind

	Index int   // ColSingle
	List  []int // ColList

	Start, Stop *int // ColSlice; nil means unbounded
	Step        int  // ColSlice; nonzero

	Mask []bool // ColMask
}

// AllColumns selects every column.
func AllColumns() ColumnSelector { return ColumnSelector{Kind: ColAll} }

// NewSingleColumn selects one column by index.
func NewSingleColumn(i int) ColumnSelector { return ColumnSelector{Kind: ColSingle, Index: i} }

// NewColumnList selects columns by an explicit index list.
func NewColumnList(idx []int) ColumnSelector { return ColumnSelector{Kind: ColList, List: idx} }

// NewColumnSlice selects columns [start, stop) with the given step.
func NewColumnSlice(start, stop *int, step int) ColumnSelector {
	if step == 0 {
		step = 1
	}
	return ColumnSelector{Kind: ColSlice, Start: start, Stop: stop, Step: step}
}

// NewColumnMask selects columns where mask[j] is true.
func NewColumnMask(mask []bool) ColumnSelector { return ColumnSelector{Kind: ColMask, Mask: mask} }

// Resolver answers row/column queries against one panel's chunk layout.
type Resolver struct {
	loader    Loader
	idx       variant.ChunkIndex
	chunkSize int
	nVariants int
	positions []int64
}

// NewResolver builds a resolver over idx's chunk layout, with positions
// the ascending per-variant positions used for positional-range queries.
func NewResolver(loader Loader, idx variant.ChunkIndex, chunkSize int, positions []int64) *Resolver {
	return &Resolver{loader: loader, idx: idx, chunkSize: chunkSize, nVariants: len(positions), positions: positions}
}

// Resolve answers a (rows, cols) query.
func (r *Resolver) Resolve(rows RowSelector, cols ColumnSelector) (sparsematrix.RawCSC, error) {
	switch rows.Kind {
	case RowSingle:
		if rows.Index < 0 || rows.Index >= int64(r.nVariants) {
			return sparsematrix.RawCSC{}, errs.IndexOutOfRangef("index %d out of range for %d variants", rows.Index, r.nVariants)
		}
		return r.gather([]int64{rows.Index}, cols)
	case RowSlice:
		if rows.Step == 0 {
			return sparsematrix.RawCSC{}, errs.TypeMismatchf("row slice step cannot be 0")
		}
		indices, err := r.sliceRowIndices(rows.Start, rows.Stop, rows.Step)
		if err != nil {
			return sparsematrix.RawCSC{}, err
		}
		return r.gather(indices, cols)
	case RowList:
		return r.gather(rows.List, cols)
	default:
		return sparsematrix.RawCSC{}, errs.TypeMismatchf("unrecognized row selector kind %d", rows.Kind)
	}
}

// ResolveRange translates a base-pair span into a row slice via binary
// search on the cached positions array, then defers to the bounded-slice
// path. A zero-width span after translation is not an error: it yields a
// zero-row matrix.
func (r *Resolver) ResolveRange(minBP, maxBP int64, inclusive bool, cols ColumnSelector) (sparsematrix.RawCSC, error) {
	upper := maxBP
	if inclusive {
		upper++
	}
	start := int64(variant.SearchSorted(r.positions, minBP))
	stop := int64(variant.SearchSorted(r.positions, upper))
	return r.Resolve(NewRowSlice(&start, &stop, 1), cols)
}

// ResolveAll returns every row, narrowed by cols.
func (r *Resolver) ResolveAll(cols ColumnSelector) (sparsematrix.RawCSC, error) {
	return r.Resolve(NewRowSlice(nil, nil, 1), cols)
}

// sliceRowIndices expands a Python-style (start, stop, step) row slice
// into the absolute, ascending-decimated row indices over [start, stop),
// reversed when step is negative — so a negative-step slice always
// returns the reversal of the positive-step selection over the same
// bounds, matching the equal-bounds reverse-step behavior callers expect.
//
// Before building the index list it checks the inclusive chunk span the
// bounds fall in, the same way as the bounded-slice rule: a span whose
// start lies in a chunk beyond the one containing the last in-range row
// is out of bounds and returns IndexOutOfRange, even though the
// resulting row list would otherwise just be empty. A span that is
// zero-width but whose start chunk is still within range (e.g. an empty
// positional range translated to start==stop at row 0) is not an error:
// it returns no rows.
func (r *Resolver) sliceRowIndices(start, stop *int64, step int) ([]int64, error) {
	lo, hi := int64(0), int64(r.nVariants)
	if start != nil {
		lo = *start
	}
	if stop != nil && *stop < hi {
		hi = *stop
	}
	if hi < 0 {
		hi = 0
	}

	lastRow := hi - 1
	if lastRow < 0 {
		lastRow = 0
	}
	loChunk := lo / int64(r.chunkSize)
	hiChunkExclusive := lastRow/int64(r.chunkSize) + 1
	if loChunk >= hiChunkExclusive {
		return nil, errs.IndexOutOfRangef("row slice [%d:%d] out of range for %d variants", lo, hi, r.nVariants)
	}

	if lo < 0 {
		lo = 0
	}
	if hi > int64(r.nVariants) {
		hi = int64(r.nVariants)
	}

	var rows []int64
	if step > 0 {
		for i := lo; i < hi; i += int64(step) {
			rows = append(rows, i)
		}
		return rows, nil
	}
	for i := lo; i < hi; i += int64(-step) {
		rows = append(rows, i)
	}
	for l, rr := 0, len(rows)-1; l < rr; l, rr = l+1, rr-1 {
		rows[l], rows[rr] = rows[rr], rows[l]
	}
	return rows, nil
}

// gather groups row indices by chunk id, preserving the order each chunk
// id is first seen in rows, loads each needed chunk exactly once,
// row-selects within it, vertically stacks the per-chunk results in that
// encounter order, then applies the column selector once on the result.
func (r *Resolver) gather(rows []int64, cols ColumnSelector) (sparsematrix.RawCSC, error) {
	if len(rows) == 0 {
		cols := r.columnCount()
		return sparsematrix.NewCSC(0, cols, make([]int, cols+1), nil)
	}

	type group struct {
		chunkID int
		rows    []int
	}
	var order []int
	groups := make(map[int]*group)
	for _, idx := range rows {
		if idx < 0 || idx >= int64(r.nVariants) {
			return sparsematrix.RawCSC{}, errs.IndexOutOfRangef("index %d out of range for %d variants", idx, r.nVariants)
		}
		chunkID := int(idx / int64(r.chunkSize))
		row := int(idx % int64(r.chunkSize))
		g, ok := groups[chunkID]
		if !ok {
			g = &group{chunkID: chunkID}
			groups[chunkID] = g
			order = append(order, chunkID)
		}
		g.rows = append(g.rows, row)
	}

	parts := make([]sparsematrix.RawCSR, 0, len(order))
	for _, chunkID := range order {
		chunk, err := r.loadCSR(chunkID)
		if err != nil {
			return sparsematrix.RawCSC{}, err
		}
		selected, err := chunk.SelectRows(groups[chunkID].rows)
		if err != nil {
			return sparsematrix.RawCSC{}, err
		}
		parts = append(parts, selected)
	}
	stacked, err := sparsematrix.VStackCSR(parts)
	if err != nil {
		return sparsematrix.RawCSC{}, err
	}
	return r.applyColumns(stacked, cols)
}

func (r *Resolver) loadCSR(chunkID int) (sparsematrix.RawCSR, error) {
	if !r.idx.Valid(chunkID) {
		return sparsematrix.RawCSR{}, errs.IndexOutOfRangef("chunk %d out of range for %d chunks", chunkID, len(r.idx))
	}
	csc, err := r.loader.Get(chunkID)
	if err != nil {
		return sparsematrix.RawCSR{}, err
	}
	return csc.ToCSR(), nil
}

// columnCount reports the panel's column count for an empty-row result,
// by peeking at chunk 0; an archive with no chunks at all has 0 columns.
func (r *Resolver) columnCount() int {
	if len(r.idx) == 0 {
		return 0
	}
	chunk, err := r.loadCSR(0)
	if err != nil {
		return 0
	}
	return chunk.Cols
}

func (r *Resolver) applyColumns(m sparsematrix.RawCSR, cols ColumnSelector) (sparsematrix.RawCSC, error) {
	csc := m.ToCSC()
	switch cols.Kind {
	case ColAll:
		return csc, nil
	case ColSingle:
		return csc.Columns([]int{cols.Index})
	case ColList:
		return csc.Columns(cols.List)
	case ColSlice:
		start, stop := resolveColumnBounds(csc.Cols, cols.Start, cols.Stop, cols.Step)
		return csc.SliceColumns(start, stop, cols.Step)
	case ColMask:
		return csc.ColumnMask(cols.Mask)
	default:
		return sparsematrix.RawCSC{}, errs.TypeMismatchf("unrecognized column selector kind %d", cols.Kind)
	}
}

func resolveColumnBounds(cols int, start, stop *int, step int) (int, int) {
	if step == 0 {
		step = 1
	}
	var lo, hi int
	if step > 0 {
		lo, hi = 0, cols
	} else {
		lo, hi = cols-1, -1
	}
	if start != nil {
		lo = *start
	}
	if stop != nil {
		hi = *stop
	}
	return lo, hi
}
