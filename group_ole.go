package compress

import (
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var _ ColGroup = (*OLEGroup)(nil)

// OLEGroup is an Offset List Encoded column group.  Each dictionary tuple
// owns a sorted list of the rows holding it; rows not listed under any tuple
// hold the zero tuple.  The offsets of tuple k occupy offs[ptr[k]:ptr[k+1]].
type OLEGroup struct {
	cols    []int
	dict    *Dict
	ptr     []int
	offs    []int
	counts  []int
	numRows int
}

// NewOLEGroup creates an offset list encoded column group.  ptr must have one
// entry per dictionary tuple plus a terminator, indexing the sorted row
// offsets in offs.
func NewOLEGroup(cols []int, numRows int, dict *Dict, ptr, offs []int) *OLEGroup {
	counts := make([]int, len(ptr)-1)
	for k := range counts {
		counts[k] = ptr[k+1] - ptr[k]
	}
	return &OLEGroup{cols: cols, dict: dict, ptr: ptr, offs: offs, counts: counts, numRows: numRows}
}

// coveredRows returns the total number of rows assigned to any tuple.
func (g *OLEGroup) coveredRows() int { return len(g.offs) }

// hasZeros reports whether any row holds the implicit zero tuple.
func (g *OLEGroup) hasZeros() bool { return g.coveredRows() < g.numRows }

// Cols returns the column indices covered by the group.
func (g *OLEGroup) Cols() []int { return g.cols }

// NumRows returns the number of rows the group spans.
func (g *OLEGroup) NumRows() int { return g.numRows }

// Dict returns the group's dictionary.
func (g *OLEGroup) Dict() *Dict { return g.dict }

// codeAt returns the dictionary code assigned to row r, or -1 when r holds
// the implicit zero tuple.
func (g *OLEGroup) codeAt(r int) int {
	for k := 0; k < len(g.ptr)-1; k++ {
		offs := g.offs[g.ptr[k]:g.ptr[k+1]]
		i := sort.SearchInts(offs, r)
		if i < len(offs) && offs[i] == r {
			return k
		}
	}
	return -1
}

// At returns the value of the cell at row r and matrix column c.
func (g *OLEGroup) At(r, c int) float64 {
	j := mustSearchCols(g.cols, c)
	k := g.codeAt(r)
	if k < 0 {
		return 0
	}
	return g.dict.Value(k*len(g.cols) + j)
}

// forEachOffset calls fn for every (tuple, row) assignment.
func (g *OLEGroup) forEachOffset(fn func(k, r int)) {
	for k := 0; k < len(g.ptr)-1; k++ {
		for _, r := range g.offs[g.ptr[k]:g.ptr[k+1]] {
			fn(k, r)
		}
	}
}

// DecompressTo adds the group's rows [rl, ru) into dst.
func (g *OLEGroup) DecompressTo(dst *mat.Dense, rl, ru, rowOff, colOff int) {
	nCols := len(g.cols)
	rm := dst.RawMatrix()
	for k := 0; k < len(g.ptr)-1; k++ {
		tuple := g.dict.values[k*nCols : (k+1)*nCols]
		offs := g.offs[g.ptr[k]:g.ptr[k+1]]
		il := sort.SearchInts(offs, rl)
		for _, r := range offs[il:] {
			if r >= ru {
				break
			}
			row := rm.Data[(r+rowOff)*rm.Stride:]
			for j, c := range g.cols {
				row[c+colOff] += tuple[j]
			}
		}
	}
}

// Sum returns the sum of the group's cells, or of their squares.
func (g *OLEGroup) Sum(square bool) float64 {
	if square {
		return g.dict.SumSq(g.counts, len(g.cols))
	}
	return g.dict.Sum(g.counts, len(g.cols))
}

// RowSums adds each row's sum for rows [rl, ru) into dst.
func (g *OLEGroup) RowSums(dst []float64, rl, ru int, square bool) {
	ts := g.dict.TupleSums(square, len(g.cols))
	for k := 0; k < len(g.ptr)-1; k++ {
		offs := g.offs[g.ptr[k]:g.ptr[k+1]]
		il := sort.SearchInts(offs, rl)
		for _, r := range offs[il:] {
			if r >= ru {
				break
			}
			dst[r-rl] += ts[k]
		}
	}
}

// ColSums adds each covered column's sum into dst.
func (g *OLEGroup) ColSums(dst []float64, square bool) {
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

// Extremum returns the extreme cell value, accounting for implicit zeros.
func (g *OLEGroup) Extremum(max bool) float64 {
	e := math.Inf(1)
	if max {
		e = math.Inf(-1)
	}
	if g.hasZeros() {
		e = extremum2(e, 0, max)
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
func (g *OLEGroup) RowExtrema(dst []float64, max bool) {
	te := g.dict.TupleExtrema(max, len(g.cols))
	covered := make([]bool, g.numRows)
	g.forEachOffset(func(k, r int) {
		dst[r] = extremum2(dst[r], te[k], max)
		covered[r] = true
	})
	for r, c := range covered {
		if !c {
			dst[r] = extremum2(dst[r], 0, max)
		}
	}
}

// ColExtrema merges each covered column's extremum into dst.
func (g *OLEGroup) ColExtrema(dst []float64, max bool) {
	nCols := len(g.cols)
	zeros := g.hasZeros()
	for j, c := range g.cols {
		e := math.Inf(1)
		if max {
			e = math.Inf(-1)
		}
		if zeros {
			e = extremum2(e, 0, max)
		}
		for k, n := range g.counts {
			if n == 0 {
				continue
			}
			e = extremum2(e, g.dict.values[k*nCols+j], max)
		}
		dst[c] = extremum2(dst[c], e, max)
	}
}

// Product returns the product of the group's cells.
func (g *OLEGroup) Product() float64 {
	if g.hasZeros() {
		return 0
	}
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

// RowProducts multiplies each row's product into dst.
func (g *OLEGroup) RowProducts(dst []float64) {
	tp := g.dict.TupleProducts(len(g.cols))
	covered := make([]bool, g.numRows)
	g.forEachOffset(func(k, r int) {
		dst[r] *= tp[k]
		covered[r] = true
	})
	for r, c := range covered {
		if !c {
			dst[r] = 0
		}
	}
}

// ColProducts multiplies each covered column's product into dst.
func (g *OLEGroup) ColProducts(dst []float64) {
	nCols := len(g.cols)
	if g.hasZeros() {
		for _, c := range g.cols {
			dst[c] = 0
		}
		return
	}
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

// toDDC materialises the offset assignment into per row codes, appending an
// explicit zero tuple for uncovered rows.
func (g *OLEGroup) toDDC() *DDCGroup {
	nCols := len(g.cols)
	values := g.dict.values
	zeroCode := -1
	if g.hasZeros() {
		zeroCode = g.dict.NumTuples(nCols)
		values = append(cloneFloats(values), make([]float64, nCols)...)
	}
	codes := make([]int, g.numRows)
	if zeroCode >= 0 {
		for r := range codes {
			codes[r] = zeroCode
		}
	}
	g.forEachOffset(func(k, r int) {
		codes[r] = k
	})
	return NewDDCGroup(g.cols, NewDict(values), codes)
}

// ApplyScalar returns a new group with op applied, materialising to dense
// dictionary coding when op does not preserve the implicit zeros.
func (g *OLEGroup) ApplyScalar(op ScalarOp) ColGroup {
	if g.hasZeros() && op.Apply(0) != 0 {
		return g.toDDC().ApplyScalar(op)
	}
	return g.withDict(g.dict.Apply(op.fn))
}

// ApplyBinaryRow returns a new group with v applied.
func (g *OLEGroup) ApplyBinaryRow(op BinaryOp, v []float64, left bool) ColGroup {
	if g.hasZeros() && !zeroSafeRow(op, v, g.cols, left) {
		return g.toDDC().ApplyBinaryRow(op, v, left)
	}
	return g.withDict(g.dict.ApplyBinaryRow(op.fn, v, g.cols, left))
}

// ReplaceValue substitutes pattern in the dictionary, materialising first
// when the implicit zeros match the pattern.
func (g *OLEGroup) ReplaceValue(pattern, replacement float64) ColGroup {
	if g.hasZeros() && pattern == 0 && replacement != 0 {
		return g.toDDC().ReplaceValue(pattern, replacement)
	}
	return g.withDict(g.dict.Replace(pattern, replacement))
}

// RightMultByMatrix multiplies the dictionary with right, preserving the
// offset structure.
func (g *OLEGroup) RightMultByMatrix(right mat.Matrix) ColGroup {
	_, rc := right.Dims()
	if rc == 0 {
		return nil
	}
	return &OLEGroup{
		cols:    iotaCols(rc),
		dict:    NewDict(rightMultTuples(g.dict.values, g.cols, right)),
		ptr:     g.ptr,
		offs:    g.offs,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

// LeftMultByMatrix accumulates rows [rl, ru) of left x group into dst.
func (g *OLEGroup) LeftMultByMatrix(left mat.Matrix, dst *mat.Dense, rl, ru int) {
	nTuples := len(g.counts)
	preAgg := getFloats(nTuples, false)
	defer putFloats(preAgg)
	for i := rl; i < ru; i++ {
		for k := range preAgg {
			preAgg[k] = 0
		}
		row, release := leftRow(left, i, g.numRows)
		g.forEachOffset(func(k, r int) {
			preAgg[k] += row[r]
		})
		release()
		leftMultPostScale(dst, i, preAgg, g.dict.values, g.cols)
	}
}

// TSMM accumulates the upper triangle of transpose(group) x group into dst.
func (g *OLEGroup) TSMM(dst *mat.Dense) {
	tsmmTuples(dst, g.dict.values, g.counts, g.cols)
}

// SliceCols projects the group onto [lo, hi).
func (g *OLEGroup) SliceCols(lo, hi int) ColGroup {
	jl, ju := sliceColRange(g.cols, lo, hi)
	if jl == ju {
		return nil
	}
	return &OLEGroup{
		cols:    shiftedCols(g.cols[jl:ju], -lo),
		dict:    g.dict.SliceRange(jl, ju, len(g.cols)),
		ptr:     g.ptr,
		offs:    g.offs,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

// Contains reports whether v occurs in the group.
func (g *OLEGroup) Contains(v float64) bool {
	if v == 0 && g.hasZeros() {
		return true
	}
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
func (g *OLEGroup) NNZ() int {
	return g.dict.NonZeros(g.counts, len(g.cols))
}

// Clone returns a deep copy of the group.
func (g *OLEGroup) Clone() ColGroup {
	return &OLEGroup{
		cols:    cloneInts(g.cols),
		dict:    NewDict(cloneFloats(g.dict.values)),
		ptr:     cloneInts(g.ptr),
		offs:    cloneInts(g.offs),
		counts:  cloneInts(g.counts),
		numRows: g.numRows,
	}
}

func (g *OLEGroup) remapCols(cols []int) ColGroup {
	h := *g
	h.cols = cols
	return &h
}

func (g *OLEGroup) withDict(dict *Dict) *OLEGroup {
	return &OLEGroup{
		cols:    g.cols,
		dict:    dict,
		ptr:     g.ptr,
		offs:    g.offs,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

func (g *OLEGroup) tag() groupTag { return tagOLE }

func (g *OLEGroup) diskSize() int {
	return dictDiskSize(g.dict) +
		sizeUint32 + len(g.ptr)*sizeUint32 +
		sizeUint32 + len(g.offs)*sizeUint32
}

func (g *OLEGroup) marshalTo(w io.Writer) (int, error) {
	n, err := writeDict(w, g.dict)
	if err != nil {
		return n, err
	}
	nn, err := writeIntsUint32(w, g.ptr)
	n += nn
	if err != nil {
		return n, err
	}
	nn, err = writeIntsUint32(w, g.offs)
	n += nn
	return n, err
}

func (g *OLEGroup) memSize() int {
	return groupHeaderSize +
		(len(g.cols)+len(g.ptr)+len(g.offs)+len(g.counts))*sizeInt +
		g.dict.memSize()
}
