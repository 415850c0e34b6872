package compress

import (
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
)

var _ ColGroup = (*ConstGroup)(nil)

// ConstGroup covers columns whose value tuple is identical in every row.  Its
// dictionary holds exactly one tuple and no row assignment is stored.
type ConstGroup struct {
	cols    []int
	numRows int
	dict    *Dict
}

// NewConstGroup creates a column group with the dictionary's single tuple in
// every row.
func NewConstGroup(cols []int, numRows int, dict *Dict) *ConstGroup {
	if dict.NumTuples(len(cols)) != 1 {
		panic(mat.ErrShape)
	}
	return &ConstGroup{cols: cols, numRows: numRows, dict: dict}
}

// Cols returns the column indices covered by the group.
func (g *ConstGroup) Cols() []int { return g.cols }

// NumRows returns the number of rows the group spans.
func (g *ConstGroup) NumRows() int { return g.numRows }

// Dict returns the group's dictionary.
func (g *ConstGroup) Dict() *Dict { return g.dict }

// At returns the value of the cell at row r and matrix column c.
func (g *ConstGroup) At(r, c int) float64 {
	return g.dict.Value(mustSearchCols(g.cols, c))
}

// DecompressTo adds the constant tuple into rows [rl, ru) of dst.
func (g *ConstGroup) DecompressTo(dst *mat.Dense, rl, ru, rowOff, colOff int) {
	rm := dst.RawMatrix()
	for r := rl; r < ru; r++ {
		row := rm.Data[(r+rowOff)*rm.Stride:]
		for j, c := range g.cols {
			row[c+colOff] += g.dict.Value(j)
		}
	}
}

// Sum returns the sum of the group's cells, or of their squares.
func (g *ConstGroup) Sum(square bool) float64 {
	return g.dict.TupleSums(square, len(g.cols))[0] * float64(g.numRows)
}

// RowSums adds the constant tuple sum into every row of dst.
func (g *ConstGroup) RowSums(dst []float64, rl, ru int, square bool) {
	ts := g.dict.TupleSums(square, len(g.cols))[0]
	for r := rl; r < ru; r++ {
		dst[r-rl] += ts
	}
}

// ColSums adds each column's sum into dst.
func (g *ConstGroup) ColSums(dst []float64, square bool) {
	for j, c := range g.cols {
		v := g.dict.Value(j)
		if square {
			v *= v
		}
		dst[c] += v * float64(g.numRows)
	}
}

// Extremum returns the extreme value of the constant tuple.
func (g *ConstGroup) Extremum(max bool) float64 {
	return g.dict.TupleExtrema(max, len(g.cols))[0]
}

// RowExtrema merges the tuple extremum into every row.
func (g *ConstGroup) RowExtrema(dst []float64, max bool) {
	e := g.Extremum(max)
	for r := 0; r < g.numRows; r++ {
		dst[r] = extremum2(dst[r], e, max)
	}
}

// ColExtrema merges each column's value into dst.
func (g *ConstGroup) ColExtrema(dst []float64, max bool) {
	for j, c := range g.cols {
		dst[c] = extremum2(dst[c], g.dict.Value(j), max)
	}
}

// Product returns the product of the group's cells.
func (g *ConstGroup) Product() float64 {
	return math.Pow(g.dict.TupleProducts(len(g.cols))[0], float64(g.numRows))
}

// RowProducts multiplies the tuple product into every row.
func (g *ConstGroup) RowProducts(dst []float64) {
	p := g.dict.TupleProducts(len(g.cols))[0]
	for r := 0; r < g.numRows; r++ {
		dst[r] *= p
	}
}

// ColProducts multiplies each column's product into dst.
func (g *ConstGroup) ColProducts(dst []float64) {
	for j, c := range g.cols {
		dst[c] *= math.Pow(g.dict.Value(j), float64(g.numRows))
	}
}

// ApplyScalar returns a new constant group with op applied to the tuple.
func (g *ConstGroup) ApplyScalar(op ScalarOp) ColGroup {
	return &ConstGroup{cols: g.cols, numRows: g.numRows, dict: g.dict.Apply(op.fn)}
}

// ApplyBinaryRow returns a new constant group with v applied to the tuple.
func (g *ConstGroup) ApplyBinaryRow(op BinaryOp, v []float64, left bool) ColGroup {
	return &ConstGroup{cols: g.cols, numRows: g.numRows, dict: g.dict.ApplyBinaryRow(op.fn, v, g.cols, left)}
}

// ReplaceValue substitutes pattern in the tuple.
func (g *ConstGroup) ReplaceValue(pattern, replacement float64) ColGroup {
	return &ConstGroup{cols: g.cols, numRows: g.numRows, dict: g.dict.Replace(pattern, replacement)}
}

// RightMultByMatrix multiplies the constant tuple with right, yielding a new
// constant group over the product's columns.
func (g *ConstGroup) RightMultByMatrix(right mat.Matrix) ColGroup {
	_, rc := right.Dims()
	if rc == 0 {
		return nil
	}
	values := rightMultTuples(g.dict.values, g.cols, right)
	return &ConstGroup{cols: iotaCols(rc), numRows: g.numRows, dict: NewDict(values)}
}

// LeftMultByMatrix accumulates rows [rl, ru) of left x group into dst.  For a
// constant group the pre aggregate of each output row collapses to the plain
// row sum of left.
func (g *ConstGroup) LeftMultByMatrix(left mat.Matrix, dst *mat.Dense, rl, ru int) {
	rm := dst.RawMatrix()
	for i := rl; i < ru; i++ {
		row, release := leftRow(left, i, g.numRows)
		var s float64
		for _, v := range row {
			s += v
		}
		release()
		if s == 0 {
			continue
		}
		out := rm.Data[i*rm.Stride:]
		for j, c := range g.cols {
			out[c] += s * g.dict.Value(j)
		}
	}
}

// TSMM accumulates the upper triangle of transpose(group) x group into dst.
func (g *ConstGroup) TSMM(dst *mat.Dense) {
	tsmmTuples(dst, g.dict.values, []int{g.numRows}, g.cols)
}

// SliceCols projects the group onto [lo, hi).
func (g *ConstGroup) SliceCols(lo, hi int) ColGroup {
	jl, ju := sliceColRange(g.cols, lo, hi)
	if jl == ju {
		return nil
	}
	return &ConstGroup{
		cols:    shiftedCols(g.cols[jl:ju], -lo),
		numRows: g.numRows,
		dict:    g.dict.SliceRange(jl, ju, len(g.cols)),
	}
}

// Contains reports whether v occurs in the group.
func (g *ConstGroup) Contains(v float64) bool {
	return g.numRows > 0 && g.dict.Contains(v)
}

// NNZ returns the number of non zero cells in the group.
func (g *ConstGroup) NNZ() int {
	return g.dict.NonZeros([]int{1}, len(g.cols)) * g.numRows
}

// Clone returns a deep copy of the group.
func (g *ConstGroup) Clone() ColGroup {
	return &ConstGroup{
		cols:    cloneInts(g.cols),
		numRows: g.numRows,
		dict:    NewDict(cloneFloats(g.dict.values)),
	}
}

func (g *ConstGroup) remapCols(cols []int) ColGroup {
	return &ConstGroup{cols: cols, numRows: g.numRows, dict: g.dict}
}

func (g *ConstGroup) tag() groupTag { return tagConst }

func (g *ConstGroup) diskSize() int { return dictDiskSize(g.dict) }

func (g *ConstGroup) marshalTo(w io.Writer) (int, error) {
	return writeDict(w, g.dict)
}

func (g *ConstGroup) memSize() int {
	return groupHeaderSize + len(g.cols)*sizeInt + g.dict.memSize()
}
