package compress

import (
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var _ ColGroup = (*SDCGroup)(nil)

// SDCGroup is a Sparse Dictionary Coded column group.  Most rows carry the
// default tuple; the exceptions are stored as a sorted list of row indices
// with one dictionary code each.  Kernels process the default once, scaled by
// the number of defaulted rows, and touch only the exception rows
// individually.
type SDCGroup struct {
	cols    []int
	dict    *Dict
	def     []float64
	rows    []int
	codes   []int
	counts  []int
	numRows int
}

// NewSDCGroup creates a sparse dictionary coded column group.  def is the
// tuple held by every row not listed in rows; rows must be strictly
// increasing with codes[i] the dictionary code of rows[i].
func NewSDCGroup(cols []int, numRows int, def []float64, dict *Dict, rows, codes []int) *SDCGroup {
	if len(def) != len(cols) || len(rows) != len(codes) {
		panic(mat.ErrShape)
	}
	return &SDCGroup{
		cols:    cols,
		dict:    dict,
		def:     def,
		rows:    rows,
		codes:   codes,
		counts:  countsFromCodes(codes, dict.NumTuples(len(cols))),
		numRows: numRows,
	}
}

// Cols returns the column indices covered by the group.
func (g *SDCGroup) Cols() []int { return g.cols }

// NumRows returns the number of rows the group spans.
func (g *SDCGroup) NumRows() int { return g.numRows }

// Dict returns the group's dictionary of exception tuples.
func (g *SDCGroup) Dict() *Dict { return g.dict }

// defCount returns the number of rows holding the default tuple.
func (g *SDCGroup) defCount() int { return g.numRows - len(g.rows) }

// exceptionAt returns the exception index for row r, or -1 when r holds the
// default tuple.
func (g *SDCGroup) exceptionAt(r int) int {
	i := sort.SearchInts(g.rows, r)
	if i < len(g.rows) && g.rows[i] == r {
		return i
	}
	return -1
}

// At returns the value of the cell at row r and matrix column c.
func (g *SDCGroup) At(r, c int) float64 {
	j := mustSearchCols(g.cols, c)
	if i := g.exceptionAt(r); i >= 0 {
		return g.dict.Value(g.codes[i]*len(g.cols) + j)
	}
	return g.def[j]
}

// DecompressTo adds the group's rows [rl, ru) into dst.  The default tuple is
// added across the whole range and the in range exceptions are patched with
// the difference to their dictionary tuple.
func (g *SDCGroup) DecompressTo(dst *mat.Dense, rl, ru, rowOff, colOff int) {
	nCols := len(g.cols)
	rm := dst.RawMatrix()
	for r := rl; r < ru; r++ {
		row := rm.Data[(r+rowOff)*rm.Stride:]
		for j, c := range g.cols {
			row[c+colOff] += g.def[j]
		}
	}
	il := sort.SearchInts(g.rows, rl)
	for i := il; i < len(g.rows) && g.rows[i] < ru; i++ {
		tuple := g.dict.values[g.codes[i]*nCols : (g.codes[i]+1)*nCols]
		row := rm.Data[(g.rows[i]+rowOff)*rm.Stride:]
		for j, c := range g.cols {
			row[c+colOff] += tuple[j] - g.def[j]
		}
	}
}

func tupleSum(tuple []float64, square bool) float64 {
	var s float64
	for _, v := range tuple {
		if square {
			s += v * v
		} else {
			s += v
		}
	}
	return s
}

// Sum returns the sum of the group's cells, or of their squares.
func (g *SDCGroup) Sum(square bool) float64 {
	s := tupleSum(g.def, square) * float64(g.defCount())
	if square {
		return s + g.dict.SumSq(g.counts, len(g.cols))
	}
	return s + g.dict.Sum(g.counts, len(g.cols))
}

// RowSums adds each row's sum for rows [rl, ru) into dst.
func (g *SDCGroup) RowSums(dst []float64, rl, ru int, square bool) {
	ds := tupleSum(g.def, square)
	for r := rl; r < ru; r++ {
		dst[r-rl] += ds
	}
	ts := g.dict.TupleSums(square, len(g.cols))
	il := sort.SearchInts(g.rows, rl)
	for i := il; i < len(g.rows) && g.rows[i] < ru; i++ {
		dst[g.rows[i]-rl] += ts[g.codes[i]] - ds
	}
}

// ColSums adds each covered column's sum into dst.
func (g *SDCGroup) ColSums(dst []float64, square bool) {
	nCols := len(g.cols)
	dc := float64(g.defCount())
	for j, c := range g.cols {
		v := g.def[j]
		if square {
			v *= v
		}
		dst[c] += v * dc
	}
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
func (g *SDCGroup) Extremum(max bool) float64 {
	e := math.Inf(1)
	if max {
		e = math.Inf(-1)
	}
	if g.defCount() > 0 {
		for _, v := range g.def {
			e = extremum2(e, v, max)
		}
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
func (g *SDCGroup) RowExtrema(dst []float64, max bool) {
	de := math.Inf(1)
	if max {
		de = math.Inf(-1)
	}
	for _, v := range g.def {
		de = extremum2(de, v, max)
	}
	te := g.dict.TupleExtrema(max, len(g.cols))
	next := 0
	for r := 0; r < g.numRows; r++ {
		if next < len(g.rows) && g.rows[next] == r {
			dst[r] = extremum2(dst[r], te[g.codes[next]], max)
			next++
			continue
		}
		dst[r] = extremum2(dst[r], de, max)
	}
}

// ColExtrema merges each covered column's extremum into dst.
func (g *SDCGroup) ColExtrema(dst []float64, max bool) {
	nCols := len(g.cols)
	if g.defCount() > 0 {
		for j, c := range g.cols {
			dst[c] = extremum2(dst[c], g.def[j], max)
		}
	}
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
func (g *SDCGroup) Product() float64 {
	var dp float64 = 1
	for _, v := range g.def {
		dp *= v
	}
	p := math.Pow(dp, float64(g.defCount()))
	tp := g.dict.TupleProducts(len(g.cols))
	for k, n := range g.counts {
		if n == 0 {
			continue
		}
		p *= math.Pow(tp[k], float64(n))
	}
	return p
}

// RowProducts multiplies each row's product into dst.
func (g *SDCGroup) RowProducts(dst []float64) {
	var dp float64 = 1
	for _, v := range g.def {
		dp *= v
	}
	tp := g.dict.TupleProducts(len(g.cols))
	next := 0
	for r := 0; r < g.numRows; r++ {
		if next < len(g.rows) && g.rows[next] == r {
			dst[r] *= tp[g.codes[next]]
			next++
			continue
		}
		dst[r] *= dp
	}
}

// ColProducts multiplies each covered column's product into dst.
func (g *SDCGroup) ColProducts(dst []float64) {
	nCols := len(g.cols)
	for j, c := range g.cols {
		p := math.Pow(g.def[j], float64(g.defCount()))
		for k, n := range g.counts {
			if n == 0 {
				continue
			}
			p *= math.Pow(g.dict.values[k*nCols+j], float64(n))
		}
		dst[c] *= p
	}
}

// ApplyScalar returns a new group with op applied to the default tuple and
// the dictionary; the row assignment is shared with the receiver.
func (g *SDCGroup) ApplyScalar(op ScalarOp) ColGroup {
	def := make([]float64, len(g.def))
	for j, v := range g.def {
		def[j] = op.Apply(v)
	}
	return g.with(def, g.dict.Apply(op.fn))
}

// ApplyBinaryRow returns a new group with v applied to the default tuple and
// the dictionary.
func (g *SDCGroup) ApplyBinaryRow(op BinaryOp, v []float64, left bool) ColGroup {
	def := make([]float64, len(g.def))
	for j, c := range g.cols {
		if left {
			def[j] = op.Apply(v[c], g.def[j])
		} else {
			def[j] = op.Apply(g.def[j], v[c])
		}
	}
	return g.with(def, g.dict.ApplyBinaryRow(op.fn, v, g.cols, left))
}

// ReplaceValue substitutes pattern in the default tuple and the dictionary.
func (g *SDCGroup) ReplaceValue(pattern, replacement float64) ColGroup {
	def := make([]float64, len(g.def))
	patternNaN := math.IsNaN(pattern)
	for j, v := range g.def {
		if v == pattern || (patternNaN && math.IsNaN(v)) {
			def[j] = replacement
		} else {
			def[j] = v
		}
	}
	return g.with(def, g.dict.Replace(pattern, replacement))
}

// RightMultByMatrix multiplies the default tuple and the dictionary with
// right, preserving the exception structure.
func (g *SDCGroup) RightMultByMatrix(right mat.Matrix) ColGroup {
	_, rc := right.Dims()
	if rc == 0 {
		return nil
	}
	return &SDCGroup{
		cols:    iotaCols(rc),
		dict:    NewDict(rightMultTuples(g.dict.values, g.cols, right)),
		def:     rightMultTuples(g.def, g.cols, right),
		rows:    g.rows,
		codes:   g.codes,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

// LeftMultByMatrix accumulates rows [rl, ru) of left x group into dst.  The
// default contribution is the total row sum of left minus the exception rows;
// exceptions are pre aggregated by code.
func (g *SDCGroup) LeftMultByMatrix(left mat.Matrix, dst *mat.Dense, rl, ru int) {
	nTuples := len(g.counts)
	preAgg := getFloats(nTuples, false)
	defer putFloats(preAgg)
	rm := dst.RawMatrix()
	for i := rl; i < ru; i++ {
		for k := range preAgg {
			preAgg[k] = 0
		}
		row, release := leftRow(left, i, g.numRows)
		var total float64
		for _, v := range row {
			total += v
		}
		var exc float64
		for e, r := range g.rows {
			preAgg[g.codes[e]] += row[r]
			exc += row[r]
		}
		release()
		if defAgg := total - exc; defAgg != 0 {
			out := rm.Data[i*rm.Stride:]
			for j, c := range g.cols {
				out[c] += defAgg * g.def[j]
			}
		}
		leftMultPostScale(dst, i, preAgg, g.dict.values, g.cols)
	}
}

// TSMM accumulates the upper triangle of transpose(group) x group into dst.
// Each row holds exactly one tuple so the result is the weighted sum of
// tuple outer products over the dictionary plus the default.
func (g *SDCGroup) TSMM(dst *mat.Dense) {
	tsmmTuples(dst, g.dict.values, g.counts, g.cols)
	tsmmTuples(dst, g.def, []int{g.defCount()}, g.cols)
}

// SliceCols projects the group onto [lo, hi).
func (g *SDCGroup) SliceCols(lo, hi int) ColGroup {
	jl, ju := sliceColRange(g.cols, lo, hi)
	if jl == ju {
		return nil
	}
	return &SDCGroup{
		cols:    shiftedCols(g.cols[jl:ju], -lo),
		dict:    g.dict.SliceRange(jl, ju, len(g.cols)),
		def:     cloneFloats(g.def[jl:ju]),
		rows:    g.rows,
		codes:   g.codes,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

// Contains reports whether v occurs in the group.
func (g *SDCGroup) Contains(v float64) bool {
	if g.defCount() > 0 {
		for _, e := range g.def {
			if e == v {
				return true
			}
		}
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
func (g *SDCGroup) NNZ() int {
	var dz int
	for _, v := range g.def {
		if v != 0 {
			dz++
		}
	}
	return dz*g.defCount() + g.dict.NonZeros(g.counts, len(g.cols))
}

// Clone returns a deep copy of the group.
func (g *SDCGroup) Clone() ColGroup {
	return &SDCGroup{
		cols:    cloneInts(g.cols),
		dict:    NewDict(cloneFloats(g.dict.values)),
		def:     cloneFloats(g.def),
		rows:    cloneInts(g.rows),
		codes:   cloneInts(g.codes),
		counts:  cloneInts(g.counts),
		numRows: g.numRows,
	}
}

func (g *SDCGroup) remapCols(cols []int) ColGroup {
	h := *g
	h.cols = cols
	return &h
}

func (g *SDCGroup) with(def []float64, dict *Dict) *SDCGroup {
	return &SDCGroup{
		cols:    g.cols,
		dict:    dict,
		def:     def,
		rows:    g.rows,
		codes:   g.codes,
		counts:  g.counts,
		numRows: g.numRows,
	}
}

func (g *SDCGroup) tag() groupTag { return tagSDC }

func (g *SDCGroup) diskSize() int {
	return dictDiskSize(g.dict) +
		len(g.def)*sizeFloat64 +
		sizeUint32 + len(g.rows)*sizeUint32 +
		sizeUint32 + len(g.codes)*sizeUint32
}

func (g *SDCGroup) marshalTo(w io.Writer) (int, error) {
	n, err := writeDict(w, g.dict)
	if err != nil {
		return n, err
	}
	nn, err := writeFloat64s(w, g.def)
	n += nn
	if err != nil {
		return n, err
	}
	nn, err = writeIntsUint32(w, g.rows)
	n += nn
	if err != nil {
		return n, err
	}
	nn, err = writeIntsUint32(w, g.codes)
	n += nn
	return n, err
}

func (g *SDCGroup) memSize() int {
	return groupHeaderSize +
		(len(g.cols)+len(g.rows)+len(g.codes)+len(g.counts))*sizeInt +
		len(g.def)*sizeFloat64 +
		g.dict.memSize()
}
