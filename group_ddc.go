package compress

import (
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
)

var _ ColGroup = (*DDCGroup)(nil)

// DDCGroup is a Dense Dictionary Coded column group.  Every row carries a
// code indexing the dictionary tuple holding its values, so decompression and
// row aggregates are a single indirection per row while full aggregates and
// multiplications run over the distinct tuples only.
type DDCGroup struct {
	cols    []int
	dict    *Dict
	codes   []int
	counts  []int
	numRows int
}

// NewDDCGroup creates a dense dictionary coded column group with one code per
// row.  The slices are used directly as backing storage.
func NewDDCGroup(cols []int, dict *Dict, codes []int) *DDCGroup {
	return &DDCGroup{
		cols:    cols,
		dict:    dict,
		codes:   codes,
		counts:  countsFromCodes(codes, dict.NumTuples(len(cols))),
		numRows: len(codes),
	}
}

// Cols returns the column indices covered by the group.
func (g *DDCGroup) Cols() []int { return g.cols }

// NumRows returns the number of rows the group spans.
func (g *DDCGroup) NumRows() int { return g.numRows }

// Dict returns the group's dictionary.
func (g *DDCGroup) Dict() *Dict { return g.dict }

// At returns the value of the cell at row r and matrix column c.
func (g *DDCGroup) At(r, c int) float64 {
	j := mustSearchCols(g.cols, c)
	return g.dict.Value(g.codes[r]*len(g.cols) + j)
}

// DecompressTo adds the coded tuples for rows [rl, ru) into dst.
func (g *DDCGroup) DecompressTo(dst *mat.Dense, rl, ru, rowOff, colOff int) {
	nCols := len(g.cols)
	rm := dst.RawMatrix()
	for r := rl; r < ru; r++ {
		tuple := g.dict.values[g.codes[r]*nCols : (g.codes[r]+1)*nCols]
		row := rm.Data[(r+rowOff)*rm.Stride:]
		for j, c := range g.cols {
			row[c+colOff] += tuple[j]
		}
	}
}

// Sum returns the sum of the group's cells, or of their squares, computed
// over the dictionary weighted by tuple counts.
func (g *DDCGroup) Sum(square bool) float64 {
	if square {
		return g.dict.SumSq(g.counts, len(g.cols))
	}
	return g.dict.Sum(g.counts, len(g.cols))
}

// RowSums adds each row's tuple sum for rows [rl, ru) into dst.
func (g *DDCGroup) RowSums(dst []float64, rl, ru int, square bool) {
	ts := g.dict.TupleSums(square, len(g.cols))
	for r := rl; r < ru; r++ {
		dst[r-rl] += ts[g.codes[r]]
	}
}

// ColSums adds each covered column's sum into dst.
func (g *DDCGroup) ColSums(dst []float64, square bool) {
	nCols := len(g.cols)
	for k, n := range g.counts {
		if n == 0 {
			continue
		}
		tuple := g.dict.values[k*nCols : (k+1)*nCols]
		for j, c := range g.cols {
			v := tuple[j]
			if square {
				v *= v
			}
			dst[c] += v * float64(n)
		}
	}
}

// Extremum returns the extreme cell value.
func (g *DDCGroup) Extremum(max bool) float64 {
	e := math.Inf(1)
	if max {
		e = math.Inf(-1)
	}
	nCols := len(g.cols)
	for k, n := range g.counts {
		if n == 0 {
			continue
		}
		for _, v := range g.dict.values[k*nCols : (k+1)*nCols] {
			e = extremum2(e, v, max)
		}
	}
	return e
}

// RowExtrema merges each row's extremum over the group's columns into dst.
func (g *DDCGroup) RowExtrema(dst []float64, max bool) {
	te := g.dict.TupleExtrema(max, len(g.cols))
	for r, code := range g.codes {
		dst[r] = extremum2(dst[r], te[code], max)
	}
}

// ColExtrema merges each covered column's extremum into dst.
func (g *DDCGroup) ColExtrema(dst []float64, max bool) {
	nCols := len(g.cols)
	for k, n := range g.counts {
		if n == 0 {
			continue
		}
		tuple := g.dict.values[k*nCols : (k+1)*nCols]
		for j, c := range g.cols {
			dst[c] = extremum2(dst[c], tuple[j], max)
		}
	}
}

// Product returns the product of the group's cells.
func (g *DDCGroup) Product() float64 {
	tp := g.dict.TupleProducts(len(g.cols))
	p := 1.0
	for k, n := range g.counts {
		if n == 0 {
			continue
		}
		p *= math.Pow(tp[k], float64(n))
	}
	return p
}

// RowProducts multiplies each row's tuple product into dst.
func (g *DDCGroup) RowProducts(dst []float64) {
	tp := g.dict.TupleProducts(len(g.cols))
	for r, code := range g.codes {
		dst[r] *= tp[code]
	}
}

// ColProducts multiplies each covered column's product into dst.
func (g *DDCGroup) ColProducts(dst []float64) {
	nCols := len(g.cols)
	for j, c := range g.cols {
		p := 1.0
		for k, n := range g.counts {
			if n == 0 {
				continue
			}
			p *= math.Pow(g.dict.values[k*nCols+j], float64(n))
		}
		dst[c] *= p
	}
}

// ApplyScalar returns a new group with op applied to the dictionary; the row
// assignment is shared with the receiver.
func (g *DDCGroup) ApplyScalar(op ScalarOp) ColGroup {
	return g.withDict(g.dict.Apply(op.fn))
}

// ApplyBinaryRow returns a new group with v applied to the dictionary.
func (g *DDCGroup) ApplyBinaryRow(op BinaryOp, v []float64, left bool) ColGroup {
	return g.withDict(g.dict.ApplyBinaryRow(op.fn, v, g.cols, left))
}

// ReplaceValue substitutes pattern in the dictionary.
func (g *DDCGroup) ReplaceValue(pattern, replacement float64) ColGroup {
	return g.withDict(g.dict.Replace(pattern, replacement))
}

// RightMultByMatrix multiplies the dictionary with right, preserving the row
// assignment.
func (g *DDCGroup) RightMultByMatrix(right mat.Matrix) ColGroup {
	_, rc := right.Dims()
	if rc == 0 {
		return nil
	}
	return &DDCGroup{
		cols:    iotaCols(rc),
		dict:    NewDict(rightMultTuples(g.dict.values, g.cols, right)),
		codes:   g.codes,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

// LeftMultByMatrix accumulates rows [rl, ru) of left x group into dst.  The
// rows of left are pre aggregated by code before a single pass over the
// dictionary.
func (g *DDCGroup) LeftMultByMatrix(left mat.Matrix, dst *mat.Dense, rl, ru int) {
	nTuples := len(g.counts)
	preAgg := getFloats(nTuples, false)
	defer putFloats(preAgg)
	for i := rl; i < ru; i++ {
		for k := range preAgg {
			preAgg[k] = 0
		}
		row, release := leftRow(left, i, g.numRows)
		for r, code := range g.codes {
			preAgg[code] += row[r]
		}
		release()
		leftMultPostScale(dst, i, preAgg, g.dict.values, g.cols)
	}
}

// TSMM accumulates the upper triangle of transpose(group) x group into dst.
func (g *DDCGroup) TSMM(dst *mat.Dense) {
	tsmmTuples(dst, g.dict.values, g.counts, g.cols)
}

// SliceCols projects the group onto [lo, hi).
func (g *DDCGroup) SliceCols(lo, hi int) ColGroup {
	jl, ju := sliceColRange(g.cols, lo, hi)
	if jl == ju {
		return nil
	}
	return &DDCGroup{
		cols:    shiftedCols(g.cols[jl:ju], -lo),
		dict:    g.dict.SliceRange(jl, ju, len(g.cols)),
		codes:   g.codes,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

// Contains reports whether v occurs in the group.
func (g *DDCGroup) Contains(v float64) bool {
	nCols := len(g.cols)
	for k, n := range g.counts {
		if n == 0 {
			continue
		}
		for _, e := range g.dict.values[k*nCols : (k+1)*nCols] {
			if e == v {
				return true
			}
		}
	}
	return false
}

// NNZ returns the number of non zero cells in the group.
func (g *DDCGroup) NNZ() int {
	return g.dict.NonZeros(g.counts, len(g.cols))
}

// Clone returns a deep copy of the group.
func (g *DDCGroup) Clone() ColGroup {
	return &DDCGroup{
		cols:    cloneInts(g.cols),
		dict:    NewDict(cloneFloats(g.dict.values)),
		codes:   cloneInts(g.codes),
		counts:  cloneInts(g.counts),
		numRows: g.numRows,
	}
}

func (g *DDCGroup) remapCols(cols []int) ColGroup {
	return &DDCGroup{cols: cols, dict: g.dict, codes: g.codes, counts: g.counts, numRows: g.numRows}
}

func (g *DDCGroup) withDict(dict *Dict) *DDCGroup {
	return &DDCGroup{cols: g.cols, dict: dict, codes: g.codes, counts: g.counts, numRows: g.numRows}
}

func (g *DDCGroup) tag() groupTag { return tagDDC }

func (g *DDCGroup) diskSize() int {
	return dictDiskSize(g.dict) + sizeUint32 + len(g.codes)*sizeUint32
}

func (g *DDCGroup) marshalTo(w io.Writer) (int, error) {
	n, err := writeDict(w, g.dict)
	if err != nil {
		return n, err
	}
	nn, err := writeIntsUint32(w, g.codes)
	n += nn
	return n, err
}

func (g *DDCGroup) memSize() int {
	return groupHeaderSize + (len(g.cols)+len(g.codes)+len(g.counts))*sizeInt + g.dict.memSize()
}
