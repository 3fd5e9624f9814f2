// Package sparsematrix implements the boolean sparse-matrix primitives the
// panel's slicing engine is built on: row-major (CSR) and column-major
// (CSC) index-only representations (values are always true, so only the
// nonzero pattern is stored), plus the handful of structural operations
// the slicing engine in internal/selector needs — vertical stacking, row
// gather, row/column slicing. The raw types are deliberately plain index
// arrays, matching the archive's own on-disk wire format, so the store
// and the cache can hand decoded chunks around without an extra
// conversion step.
//
// At the package boundary (ToSparseCSR/ToSparseCSC) these convert to
// github.com/james-bowman/sparse's CSR/CSC, which implement
// gonum.org/v1/gonum/mat.Matrix — the numeric-library contract downstream
// consumers are expected to already use.
package sparsematrix

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

// RawCSR is a row-major boolean sparse matrix: Indices[Indptr[i]:Indptr[i+1]]
// holds the (sorted) column indices with a true value in row i.
type RawCSR struct {
	Rows, Cols int
	Indptr     []int
	Indices    []int
}

// RawCSC is a column-major boolean sparse matrix: Indices[Indptr[j]:Indptr[j+1]]
// holds the (sorted) row indices with a true value in column j.
type RawCSC struct {
	Rows, Cols int
	Indptr     []int
	Indices    []int
}

// NNZ returns the number of stored (true) entries.
func (m RawCSR) NNZ() int { return len(m.Indices) }

// NNZ returns the number of stored (true) entries.
func (m RawCSC) NNZ() int { return len(m.Indices) }

// NewCSR validates and wraps raw index arrays as a RawCSR.
func NewCSR(rows, cols int, indptr, indices []int) (RawCSR, error) {
	if len(indptr) != rows+1 {
		return RawCSR{}, fmt.Errorf("sparsematrix: indptr length %d, want %d", len(indptr), rows+1)
	}
	return RawCSR{Rows: rows, Cols: cols, Indptr: indptr, Indices: indices}, nil
}

// NewCSC validates and wraps raw index arrays as a RawCSC.
func NewCSC(rows, cols int, indptr, indices []int) (RawCSC, error) {
	if len(indptr) != cols+1 {
		return RawCSC{}, fmt.Errorf("sparsematrix: indptr length %d, want %d", len(indptr), cols+1)
	}
	return RawCSC{Rows: rows, Cols: cols, Indptr: indptr, Indices: indices}, nil
}

// ToCSC converts a row-major matrix to column-major form.
func (m RawCSR) ToCSC() RawCSC {
	colCounts := make([]int, m.Cols+1)
	for _, c := range m.Indices {
		colCounts[c+1]++
	}
	for c := 0; c < m.Cols; c++ {
		colCounts[c+1] += colCounts[c]
	}

	indices := make([]int, len(m.Indices))
	cursor := append([]int(nil), colCounts[:m.Cols]...)
	for row := 0; row < m.Rows; row++ {
		for _, col := range m.Indices[m.Indptr[row]:m.Indptr[row+1]] {
			indices[cursor[col]] = row
			cursor[col]++
		}
	}
	return RawCSC{Rows: m.Rows, Cols: m.Cols, Indptr: colCounts, Indices: indices}
}

// ToCSR converts a column-major matrix to row-major form.
func (m RawCSC) ToCSR() RawCSR {
	rowCounts := make([]int, m.Rows+1)
	for _, r := range m.Indices {
		rowCounts[r+1]++
	}
	for r := 0; r < m.Rows; r++ {
		rowCounts[r+1] += rowCounts[r]
	}

	indices := make([]int, len(m.Indices))
	cursor := append([]int(nil), rowCounts[:m.Rows]...)
	for col := 0; col < m.Cols; col++ {
		for _, row := range m.Indices[m.Indptr[col]:m.Indptr[col+1]] {
			indices[cursor[row]] = col
			cursor[row]++
		}
	}
	return RawCSR{Rows: m.Rows, Cols: m.Cols, Indptr: rowCounts, Indices: indices}
}

// ToSparseCSR converts to github.com/james-bowman/sparse's CSR representation.
func (m RawCSR) ToSparseCSR() *sparse.CSR {
	return sparse.NewCSR(m.Rows, m.Cols, append([]int(nil), m.Indptr...), append([]int(nil), m.Indices...), ones(len(m.Indices)))
}

// ToSparseCSC converts to github.com/james-bowman/sparse's CSC representation.
func (m RawCSC) ToSparseCSC() *sparse.CSC {
	return sparse.NewCSC(m.Rows, m.Cols, append([]int(nil), m.Indptr...), append([]int(nil), m.Indices...), ones(len(m.Indices)))
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// VStackCSR vertically stacks row-major chunks, in order, into a single
// matrix. All inputs must share the same column count.
func VStackCSR(mats []RawCSR) (RawCSR, error) {
	if len(mats) == 0 {
		return RawCSR{Rows: 0, Cols: 0, Indptr: []int{0}}, nil
	}
	cols := mats[0].Cols
	totalRows := 0
	totalNNZ := 0
	for _, m := range mats {
		if m.Cols != cols {
			return RawCSR{}, fmt.Errorf("sparsematrix: VStackCSR column mismatch: %d vs %d", m.Cols, cols)
		}
		totalRows += m.Rows
		totalNNZ += len(m.Indices)
	}

	indptr := make([]int, 1, totalRows+1)
	indptr[0] = 0
	indices := make([]int, 0, totalNNZ)
	for _, m := range mats {
		for row := 0; row < m.Rows; row++ {
			lo, hi := m.Indptr[row], m.Indptr[row+1]
			indices = append(indices, m.Indices[lo:hi]...)
			indptr = append(indptr, len(indices))
		}
	}

	return RawCSR{Rows: totalRows, Cols: cols, Indptr: indptr, Indices: indices}, nil
}

// SelectRows gathers rows by index, preserving the caller's order
// (duplicates and repeats are allowed).
func (m RawCSR) SelectRows(rows []int) (RawCSR, error) {
	indptr := make([]int, 1, len(rows)+1)
	indptr[0] = 0
	var indices []int
	for _, r := range rows {
		if r < 0 || r >= m.Rows {
			return RawCSR{}, fmt.Errorf("sparsematrix: row %d out of range [0,%d)", r, m.Rows)
		}
		indices = append(indices, m.Indices[m.Indptr[r]:m.Indptr[r+1]]...)
		indptr = append(indptr, len(indices))
	}
	return RawCSR{Rows: len(rows), Cols: m.Cols, Indptr: indptr, Indices: indices}, nil
}

// SliceRows applies a Python-style slice (start, stop, step) to the rows,
// returning a new matrix with rows in traversal order (reversed when step
// is negative).
func (m RawCSR) SliceRows(start, stop, step int) (RawCSR, error) {
	if step == 0 {
		return RawCSR{}, fmt.Errorf("sparsematrix: slice step cannot be 0")
	}
	var rows []int
	if step > 0 {
		for i := start; i < stop; i += step {
			rows = append(rows, i)
		}
	} else {
		for i := start; i > stop; i += step {
			rows = append(rows, i)
		}
	}
	return m.SelectRows(rows)
}

// Columns selects an arbitrary, order-preserving list of columns.
func (m RawCSC) Columns(cols []int) (RawCSC, error) {
	indptr := make([]int, 1, len(cols)+1)
	indptr[0] = 0
	var indices []int
	for _, c := range cols {
		if c < 0 || c >= m.Cols {
			return RawCSC{}, fmt.Errorf("sparsematrix: column %d out of range [0,%d)", c, m.Cols)
		}
		indices = append(indices, m.Indices[m.Indptr[c]:m.Indptr[c+1]]...)
		indptr = append(indptr, len(indices))
	}
	return RawCSC{Rows: m.Rows, Cols: len(cols), Indptr: indptr, Indices: indices}, nil
}

// SliceColumns applies a Python-style slice to the columns.
func (m RawCSC) SliceColumns(start, stop, step int) (RawCSC, error) {
	if step == 0 {
		return RawCSC{}, fmt.Errorf("sparsematrix: slice step cannot be 0")
	}
	var cols []int
	if step > 0 {
		for i := start; i < stop; i += step {
			cols = append(cols, i)
		}
	} else {
		for i := start; i > stop; i += step {
			cols = append(cols, i)
		}
	}
	return m.Columns(cols)
}

// ColumnMask selects columns where mask[j] is true, in ascending order.
func (m RawCSC) ColumnMask(mask []bool) (RawCSC, error) {
	if len(mask) != m.Cols {
		return RawCSC{}, fmt.Errorf("sparsematrix: mask length %d, want %d", len(mask), m.Cols)
	}
	var cols []int
	for j, keep := range mask {
		if keep {
			cols = append(cols, j)
		}
	}
	return m.Columns(cols)
}
