package compress

import (
	"io"

	"gonum.org/v1/gonum/mat"
)

var _ ColGroup = (*EmptyGroup)(nil)

// EmptyGroup covers columns containing only zero values.  It stores no value
// data at all; every cell reads as 0.
type EmptyGroup struct {
	cols    []int
	numRows int
}

// NewEmptyGroup creates a column group of all zero columns.
func NewEmptyGroup(cols []int, numRows int) *EmptyGroup {
	return &EmptyGroup{cols: cols, numRows: numRows}
}

// Cols returns the column indices covered by the group.
func (g *EmptyGroup) Cols() []int { return g.cols }

// NumRows returns the number of rows the group spans.
func (g *EmptyGroup) NumRows() int { return g.numRows }

// At returns the value of the cell at row r and matrix column c, which for an
// empty group is always 0.
func (g *EmptyGroup) At(r, c int) float64 {
	mustSearchCols(g.cols, c)
	return 0
}

// DecompressTo is a no-op: an empty group contributes nothing.
func (g *EmptyGroup) DecompressTo(dst *mat.Dense, rl, ru, rowOff, colOff int) {}

// Sum returns 0.
func (g *EmptyGroup) Sum(square bool) float64 { return 0 }

// RowSums adds nothing.
func (g *EmptyGroup) RowSums(dst []float64, rl, ru int, square bool) {}

// ColSums adds nothing.
func (g *EmptyGroup) ColSums(dst []float64, square bool) {}

// Extremum returns 0, the value of every cell.
func (g *EmptyGroup) Extremum(max bool) float64 { return 0 }

// RowExtrema merges 0 into every row.
func (g *EmptyGroup) RowExtrema(dst []float64, max bool) {
	for r := 0; r < g.numRows; r++ {
		dst[r] = extremum2(dst[r], 0, max)
	}
}

// ColExtrema merges 0 into every covered column.
func (g *EmptyGroup) ColExtrema(dst []float64, max bool) {
	for _, c := range g.cols {
		dst[c] = extremum2(dst[c], 0, max)
	}
}

// Product returns 0.
func (g *EmptyGroup) Product() float64 { return 0 }

// RowProducts multiplies 0 into every row.
func (g *EmptyGroup) RowProducts(dst []float64) {
	for r := 0; r < g.numRows; r++ {
		dst[r] = 0
	}
}

// ColProducts multiplies 0 into every covered column.
func (g *EmptyGroup) ColProducts(dst []float64) {
	for _, c := range g.cols {
		dst[c] = 0
	}
}

// ApplyScalar returns the receiver unchanged when op preserves zero, and a
// constant group of op(0) otherwise.
func (g *EmptyGroup) ApplyScalar(op ScalarOp) ColGroup {
	z := op.Apply(0)
	if z == 0 {
		return g.Clone()
	}
	tuple := make([]float64, len(g.cols))
	for j := range tuple {
		tuple[j] = z
	}
	return NewConstGroup(cloneInts(g.cols), g.numRows, NewDict(tuple))
}

// ApplyBinaryRow combines the zero columns with v, producing a constant group
// when the result is non zero.
func (g *EmptyGroup) ApplyBinaryRow(op BinaryOp, v []float64, left bool) ColGroup {
	tuple := make([]float64, len(g.cols))
	zero := true
	for j, c := range g.cols {
		if left {
			tuple[j] = op.Apply(v[c], 0)
		} else {
			tuple[j] = op.Apply(0, v[c])
		}
		if tuple[j] != 0 {
			zero = false
		}
	}
	if zero {
		return g.Clone()
	}
	return NewConstGroup(cloneInts(g.cols), g.numRows, NewDict(tuple))
}

// ReplaceValue substitutes the implicit zeros when pattern is 0.
func (g *EmptyGroup) ReplaceValue(pattern, replacement float64) ColGroup {
	if pattern == 0 && replacement != 0 {
		tuple := make([]float64, len(g.cols))
		for j := range tuple {
			tuple[j] = replacement
		}
		return NewConstGroup(cloneInts(g.cols), g.numRows, NewDict(tuple))
	}
	return g.Clone()
}

// RightMultByMatrix returns nil: the product of zero columns is structurally
// empty.
func (g *EmptyGroup) RightMultByMatrix(right mat.Matrix) ColGroup { return nil }

// LeftMultByMatrix accumulates nothing.
func (g *EmptyGroup) LeftMultByMatrix(left mat.Matrix, dst *mat.Dense, rl, ru int) {}

// TSMM accumulates nothing.
func (g *EmptyGroup) TSMM(dst *mat.Dense) {}

// SliceCols projects the group onto [lo, hi).
func (g *EmptyGroup) SliceCols(lo, hi int) ColGroup {
	jl, ju := sliceColRange(g.cols, lo, hi)
	if jl == ju {
		return nil
	}
	return NewEmptyGroup(shiftedCols(g.cols[jl:ju], -lo), g.numRows)
}

// Contains reports whether v occurs in the group.
func (g *EmptyGroup) Contains(v float64) bool {
	return v == 0 && g.numRows > 0
}

// NNZ returns 0.
func (g *EmptyGroup) NNZ() int { return 0 }

// Clone returns a deep copy of the group.
func (g *EmptyGroup) Clone() ColGroup {
	return NewEmptyGroup(cloneInts(g.cols), g.numRows)
}

func (g *EmptyGroup) remapCols(cols []int) ColGroup {
	return &EmptyGroup{cols: cols, numRows: g.numRows}
}

func (g *EmptyGroup) tag() groupTag { return tagEmpty }

func (g *EmptyGroup) diskSize() int { return 0 }

func (g *EmptyGroup) marshalTo(w io.Writer) (int, error) { return 0, nil }

func (g *EmptyGroup) memSize() int {
	return groupHeaderSize + len(g.cols)*sizeInt
}
