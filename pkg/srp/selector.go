package srp

import "github.com/selphi-project/srp/internal/selector"

// RowSelector and ColumnSelector are aliased from internal/selector so
// callers outside this module never need to know that package exists;
// every constructor below is a thin forward into it.
type (
	RowSelector    = selector.RowSelector
	ColumnSelector = selector.ColumnSelector
)

// NewSingleRow selects one row by index.
func NewSingleRow(i int64) RowSelector { return selector.NewSingleRow(i) }

// NewRowSlice selects rows [start, stop) with the given step. A nil start
// means 0; a nil stop means the full extent.
func NewRowSlice(start, stop *int64, step int) RowSelector {
	return selector.NewRowSlice(start, stop, step)
}

// NewRowList selects rows by an explicit, possibly unordered, index list.
func NewRowList(idx []int64) RowSelector { return selector.NewRowList(idx) }

// AllColumns selects every column.
func AllColumns() ColumnSelector { return selector.AllColumns() }

// NewSingleColumn selects one column by index.
func NewSingleColumn(i int) ColumnSelector { return selector.NewSingleColumn(i) }

// NewColumnList selects columns by an explicit index list.
func NewColumnList(idx []int) ColumnSelector { return selector.NewColumnList(idx) }

// NewColumnSlice selects columns [start, stop) with the given step.
func NewColumnSlice(start, stop *int, step int) ColumnSelector {
	return selector.NewColumnSlice(start, stop, step)
}

// NewColumnMask selects columns where mask[j] is true.
func NewColumnMask(mask []bool) ColumnSelector { return selector.NewColumnMask(mask) }
