package compress

import (
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
)

var _ ColGroup = (*RLEGroup)(nil)

// RLEGroup is a Run Length Encoded column group.  Each dictionary tuple owns
// a list of row runs; rows not covered by any run hold the zero tuple.  The
// runs of tuple k occupy the (start, length) pairs
// runs[ptr[k]:ptr[k+1]].
type RLEGroup struct {
	cols    []int
	dict    *Dict
	ptr     []int
	runs    []int
	counts  []int
	numRows int
}

// NewRLEGroup creates a run length encoded column group.  ptr must have one
// entry per dictionary tuple plus a terminator, indexing the flattened
// (start, length) pairs in runs.
func NewRLEGroup(cols []int, numRows int, dict *Dict, ptr, runs []int) *RLEGroup {
	g := &RLEGroup{cols: cols, dict: dict, ptr: ptr, runs: runs, numRows: numRows}
	g.counts = g.runCounts()
	return g
}

func (g *RLEGroup) runCounts() []int {
	counts := make([]int, len(g.ptr)-1)
	for k := range counts {
		for p := g.ptr[k]; p < g.ptr[k+1]; p += 2 {
			counts[k] += g.runs[p+1]
		}
	}
	return counts
}

// coveredRows returns the total number of rows assigned to any tuple.
func (g *RLEGroup) coveredRows() int {
	var n int
	for _, c := range g.counts {
		n += c
	}
	return n
}

// hasZeros reports whether any row holds the implicit zero tuple.
func (g *RLEGroup) hasZeros() bool {
	return g.coveredRows() < g.numRows
}

// Cols returns the column indices covered by the group.
func (g *RLEGroup) Cols() []int { return g.cols }

// NumRows returns the number of rows the group spans.
func (g *RLEGroup) NumRows() int { return g.numRows }

// Dict returns the group's dictionary.
func (g *RLEGroup) Dict() *Dict { return g.dict }

// codeAt returns the dictionary code assigned to row r, or -1 when r holds
// the implicit zero tuple.
func (g *RLEGroup) codeAt(r int) int {
	for k := 0; k < len(g.ptr)-1; k++ {
		for p := g.ptr[k]; p < g.ptr[k+1]; p += 2 {
			if r >= g.runs[p] && r < g.runs[p]+g.runs[p+1] {
				return k
			}
		}
	}
	return -1
}

// At returns the value of the cell at row r and matrix column c.
func (g *RLEGroup) At(r, c int) float64 {
	j := mustSearchCols(g.cols, c)
	k := g.codeAt(r)
	if k < 0 {
		return 0
	}
	return g.dict.Value(k*len(g.cols) + j)
}

// DecompressTo adds the group's rows [rl, ru) into dst.
func (g *RLEGroup) DecompressTo(dst *mat.Dense, rl, ru, rowOff, colOff int) {
	nCols := len(g.cols)
	rm := dst.RawMatrix()
	for k := 0; k < len(g.ptr)-1; k++ {
		tuple := g.dict.values[k*nCols : (k+1)*nCols]
		for p := g.ptr[k]; p < g.ptr[k+1]; p += 2 {
			start, end := g.runs[p], g.runs[p]+g.runs[p+1]
			if start < rl {
				start = rl
			}
			if end > ru {
				end = ru
			}
			for r := start; r < end; r++ {
				row := rm.Data[(r+rowOff)*rm.Stride:]
				for j, c := range g.cols {
					row[c+colOff] += tuple[j]
				}
			}
		}
	}
}

// Sum returns the sum of the group's cells, or of their squares.
func (g *RLEGroup) Sum(square bool) float64 {
	if square {
		return g.dict.SumSq(g.counts, len(g.cols))
	}
	return g.dict.Sum(g.counts, len(g.cols))
}

// RowSums adds each row's sum for rows [rl, ru) into dst.
func (g *RLEGroup) RowSums(dst []float64, rl, ru int, square bool) {
	ts := g.dict.TupleSums(square, len(g.cols))
	for k := 0; k < len(g.ptr)-1; k++ {
		for p := g.ptr[k]; p < g.ptr[k+1]; p += 2 {
			start, end := g.runs[p], g.runs[p]+g.runs[p+1]
			if start < rl {
				start = rl
			}
			if end > ru {
				end = ru
			}
			for r := start; r < end; r++ {
				dst[r-rl] += ts[k]
			}
		}
	}
}

// ColSums adds each covered column's sum into dst.
func (g *RLEGroup) ColSums(dst []float64, square bool) {
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
func (g *RLEGroup) Extremum(max bool) float64 {
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

// forEachRun calls fn for every run of every tuple.
func (g *RLEGroup) forEachRun(fn func(k, start, end int)) {
	for k := 0; k < len(g.ptr)-1; k++ {
		for p := g.ptr[k]; p < g.ptr[k+1]; p += 2 {
			fn(k, g.runs[p], g.runs[p]+g.runs[p+1])
		}
	}
}

// RowExtrema merges each row's extremum over the group's columns into dst.
func (g *RLEGroup) RowExtrema(dst []float64, max bool) {
	te := g.dict.TupleExtrema(max, len(g.cols))
	covered := make([]bool, g.numRows)
	g.forEachRun(func(k, start, end int) {
		for r := start; r < end; r++ {
			dst[r] = extremum2(dst[r], te[k], max)
			covered[r] = true
		}
	})
	for r, c := range covered {
		if !c {
			dst[r] = extremum2(dst[r], 0, max)
		}
	}
}

// ColExtrema merges each covered column's extremum into dst.
func (g *RLEGroup) ColExtrema(dst []float64, max bool) {
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
func (g *RLEGroup) Product() float64 {
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
func (g *RLEGroup) RowProducts(dst []float64) {
	tp := g.dict.TupleProducts(len(g.cols))
	covered := make([]bool, g.numRows)
	g.forEachRun(func(k, start, end int) {
		for r := start; r < end; r++ {
			dst[r] *= tp[k]
			covered[r] = true
		}
	})
	for r, c := range covered {
		if !c {
			dst[r] = 0
		}
	}
}

// ColProducts multiplies each covered column's product into dst.
func (g *RLEGroup) ColProducts(dst []float64) {
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

// toDDC materialises the run assignment into per row codes, appending an
// explicit zero tuple for uncovered rows.  Used by transforms that are not
// sparse safe.
func (g *RLEGroup) toDDC() *DDCGroup {
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
	g.forEachRun(func(k, start, end int) {
		for r := start; r < end; r++ {
			codes[r] = k
		}
	})
	return NewDDCGroup(g.cols, NewDict(values), codes)
}

// ApplyScalar returns a new group with op applied.  When op does not
// preserve zero and uncovered rows exist, the group is first materialised to
// dense dictionary coding.
func (g *RLEGroup) ApplyScalar(op ScalarOp) ColGroup {
	if g.hasZeros() && op.Apply(0) != 0 {
		return g.toDDC().ApplyScalar(op)
	}
	return g.withDict(g.dict.Apply(op.fn))
}

// ApplyBinaryRow returns a new group with v applied.
func (g *RLEGroup) ApplyBinaryRow(op BinaryOp, v []float64, left bool) ColGroup {
	if g.hasZeros() && !zeroSafeRow(op, v, g.cols, left) {
		return g.toDDC().ApplyBinaryRow(op, v, left)
	}
	return g.withDict(g.dict.ApplyBinaryRow(op.fn, v, g.cols, left))
}

// ReplaceValue substitutes pattern in the dictionary, materialising first
// when the implicit zeros match the pattern.
func (g *RLEGroup) ReplaceValue(pattern, replacement float64) ColGroup {
	if g.hasZeros() && pattern == 0 && replacement != 0 {
		return g.toDDC().ReplaceValue(pattern, replacement)
	}
	return g.withDict(g.dict.Replace(pattern, replacement))
}

// RightMultByMatrix multiplies the dictionary with right, preserving the run
// structure.  Uncovered rows remain zero in the product.
func (g *RLEGroup) RightMultByMatrix(right mat.Matrix) ColGroup {
	_, rc := right.Dims()
	if rc == 0 {
		return nil
	}
	return &RLEGroup{
		cols:    iotaCols(rc),
		dict:    NewDict(rightMultTuples(g.dict.values, g.cols, right)),
		ptr:     g.ptr,
		runs:    g.runs,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

// LeftMultByMatrix accumulates rows [rl, ru) of left x group into dst.
func (g *RLEGroup) LeftMultByMatrix(left mat.Matrix, dst *mat.Dense, rl, ru int) {
	nTuples := len(g.counts)
	preAgg := getFloats(nTuples, false)
	defer putFloats(preAgg)
	for i := rl; i < ru; i++ {
		for k := range preAgg {
			preAgg[k] = 0
		}
		row, release := leftRow(left, i, g.numRows)
		g.forEachRun(func(k, start, end int) {
			for r := start; r < end; r++ {
				preAgg[k] += row[r]
			}
		})
		release()
		leftMultPostScale(dst, i, preAgg, g.dict.values, g.cols)
	}
}

// TSMM accumulates the upper triangle of transpose(group) x group into dst.
func (g *RLEGroup) TSMM(dst *mat.Dense) {
	tsmmTuples(dst, g.dict.values, g.counts, g.cols)
}

// SliceCols projects the group onto [lo, hi).
func (g *RLEGroup) SliceCols(lo, hi int) ColGroup {
	jl, ju := sliceColRange(g.cols, lo, hi)
	if jl == ju {
		return nil
	}
	return &RLEGroup{
		cols:    shiftedCols(g.cols[jl:ju], -lo),
		dict:    g.dict.SliceRange(jl, ju, len(g.cols)),
		ptr:     g.ptr,
		runs:    g.runs,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

// Contains reports whether v occurs in the group.
func (g *RLEGroup) Contains(v float64) bool {
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
func (g *RLEGroup) NNZ() int {
	return g.dict.NonZeros(g.counts, len(g.cols))
}

// Clone returns a deep copy of the group.
func (g *RLEGroup) Clone() ColGroup {
	return &RLEGroup{
		cols:    cloneInts(g.cols),
		dict:    NewDict(cloneFloats(g.dict.values)),
		ptr:     cloneInts(g.ptr),
		runs:    cloneInts(g.runs),
		counts:  cloneInts(g.counts),
		numRows: g.numRows,
	}
}

func (g *RLEGroup) remapCols(cols []int) ColGroup {
	h := *g
	h.cols = cols
	return &h
}

func (g *RLEGroup) withDict(dict *Dict) *RLEGroup {
	return &RLEGroup{
		cols:    g.cols,
		dict:    dict,
		ptr:     g.ptr,
		runs:    g.runs,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

func (g *RLEGroup) tag() groupTag { return tagRLE }

func (g *RLEGroup) diskSize() int {
	return dictDiskSize(g.dict) +
		sizeUint32 + len(g.ptr)*sizeUint32 +
		sizeUint32 + len(g.runs)*sizeUint32
}

func (g *RLEGroup) marshalTo(w io.Writer) (int, error) {
	n, err := writeDict(w, g.dict)
	if err != nil {
		return n, err
	}
	nn, err := writeIntsUint32(w, g.ptr)
	n += nn
	if err != nil {
		return n, err
	}
	nn, err = writeIntsUint32(w, g.runs)
	n += nn
	return n, err
}

func (g *RLEGroup) memSize() int {
	return groupHeaderSize +
		(len(g.cols)+len(g.ptr)+len(g.runs)+len(g.counts))*sizeInt +
		g.dict.memSize()
}

// zeroSafeRow reports whether applying op with v leaves the implicit zero
// tuple at zero for every covered column.
func zeroSafeRow(op BinaryOp, v []float64, cols []int, left bool) bool {
	for _, c := range cols {
		var r float64
		if left {
			r = op.Apply(v[c], 0)
		} else {
			r = op.Apply(0, v[c])
		}
		if r != 0 {
			return false
		}
	}
	return true
}
