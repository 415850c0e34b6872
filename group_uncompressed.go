package compress

import (
	"io"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

var _ ColGroup = (*UncompressedGroup)(nil)

// UncompressedGroup embeds its columns as a plain dense or sparse matrix of
// shape numRows x len(cols).  It is the pass through encoding used when a
// column set does not compress, and the fallback representation written by
// the size adaptive serialiser.
type UncompressedGroup struct {
	cols []int
	data mat.Matrix
}

// NewUncompressedGroup creates a column group embedding data, which must be a
// *mat.Dense or *sparse.CSR of shape rows x len(cols); column j of data holds
// matrix column cols[j].
func NewUncompressedGroup(cols []int, data mat.Matrix) *UncompressedGroup {
	switch data.(type) {
	case *mat.Dense, *sparse.CSR:
	default:
		panic(ErrCompressedMisuse)
	}
	_, c := data.Dims()
	if c != len(cols) {
		panic(mat.ErrShape)
	}
	return &UncompressedGroup{cols: cols, data: data}
}

// Cols returns the column indices covered by the group.
func (g *UncompressedGroup) Cols() []int { return g.cols }

// NumRows returns the number of rows the group spans.
func (g *UncompressedGroup) NumRows() int {
	r, _ := g.data.Dims()
	return r
}

// Data returns the embedded matrix.
func (g *UncompressedGroup) Data() mat.Matrix { return g.data }

// At returns the value of the cell at row r and matrix column c.
func (g *UncompressedGroup) At(r, c int) float64 {
	return g.data.At(r, mustSearchCols(g.cols, c))
}

// DecompressTo adds the embedded values for rows [rl, ru) into dst.
func (g *UncompressedGroup) DecompressTo(dst *mat.Dense, rl, ru, rowOff, colOff int) {
	rm := dst.RawMatrix()
	if csr, ok := g.data.(*sparse.CSR); ok {
		for r := rl; r < ru; r++ {
			row := rm.Data[(r+rowOff)*rm.Stride:]
			csr.DoRowNonZero(r, func(_, j int, v float64) {
				row[g.cols[j]+colOff] += v
			})
		}
		return
	}
	d := g.data.(*mat.Dense)
	dm := d.RawMatrix()
	for r := rl; r < ru; r++ {
		src := dm.Data[r*dm.Stride : r*dm.Stride+dm.Cols]
		row := rm.Data[(r+rowOff)*rm.Stride:]
		for j, c := range g.cols {
			row[c+colOff] += src[j]
		}
	}
}

// doNonZero calls fn for every non zero cell (r, j, v) of the embedded
// matrix, where j is the tuple column index.
func (g *UncompressedGroup) doNonZero(fn func(r, j int, v float64)) {
	if csr, ok := g.data.(*sparse.CSR); ok {
		csr.DoNonZero(fn)
		return
	}
	d := g.data.(*mat.Dense)
	dm := d.RawMatrix()
	for r := 0; r < dm.Rows; r++ {
		for j, v := range dm.Data[r*dm.Stride : r*dm.Stride+dm.Cols] {
			if v != 0 {
				fn(r, j, v)
			}
		}
	}
}

// Sum returns the sum of the group's cells, or of their squares.
func (g *UncompressedGroup) Sum(square bool) float64 {
	var s float64
	g.doNonZero(func(r, j int, v float64) {
		if square {
			s += v * v
		} else {
			s += v
		}
	})
	return s
}

// RowSums adds each row's sum for rows [rl, ru) into dst.
func (g *UncompressedGroup) RowSums(dst []float64, rl, ru int, square bool) {
	g.doNonZero(func(r, j int, v float64) {
		if r < rl || r >= ru {
			return
		}
		if square {
			dst[r-rl] += v * v
		} else {
			dst[r-rl] += v
		}
	})
}

// ColSums adds each covered column's sum into dst.
func (g *UncompressedGroup) ColSums(dst []float64, square bool) {
	g.doNonZero(func(r, j int, v float64) {
		if square {
			dst[g.cols[j]] += v * v
		} else {
			dst[g.cols[j]] += v
		}
	})
}

// nnzIsFull reports whether the embedded matrix stores a value in every cell.
func (g *UncompressedGroup) nnzIsFull() bool {
	csr, ok := g.data.(*sparse.CSR)
	if !ok {
		return true
	}
	r, c := csr.Dims()
	return csr.NNZ() == r*c
}

// Extremum returns the extreme cell value.
func (g *UncompressedGroup) Extremum(max bool) float64 {
	e := math.Inf(1)
	if max {
		e = math.Inf(-1)
	}
	if csr, ok := g.data.(*sparse.CSR); ok {
		if !g.nnzIsFull() {
			e = 0
		}
		csr.DoNonZero(func(r, j int, v float64) {
			e = extremum2(e, v, max)
		})
		if math.IsInf(e, 0) {
			// no stored values at all
			return 0
		}
		return e
	}
	dm := g.data.(*mat.Dense).RawMatrix()
	for r := 0; r < dm.Rows; r++ {
		for _, v := range dm.Data[r*dm.Stride : r*dm.Stride+dm.Cols] {
			e = extremum2(e, v, max)
		}
	}
	return e
}

// RowExtrema merges each row's extremum over the group's columns into dst.
func (g *UncompressedGroup) RowExtrema(dst []float64, max bool) {
	rows := g.NumRows()
	for r := 0; r < rows; r++ {
		e := math.Inf(1)
		if max {
			e = math.Inf(-1)
		}
		for j := range g.cols {
			e = extremum2(e, g.data.At(r, j), max)
		}
		dst[r] = extremum2(dst[r], e, max)
	}
}

// ColExtrema merges each covered column's extremum into dst.
func (g *UncompressedGroup) ColExtrema(dst []float64, max bool) {
	rows := g.NumRows()
	for j, c := range g.cols {
		e := math.Inf(1)
		if max {
			e = math.Inf(-1)
		}
		for r := 0; r < rows; r++ {
			e = extremum2(e, g.data.At(r, j), max)
		}
		dst[c] = extremum2(dst[c], e, max)
	}
}

// Product returns the product of the group's cells.
func (g *UncompressedGroup) Product() float64 {
	p := 1.0
	rows := g.NumRows()
	for r := 0; r < rows; r++ {
		for j := range g.cols {
			p *= g.data.At(r, j)
		}
	}
	return p
}

// RowProducts multiplies each row's product into dst.
func (g *UncompressedGroup) RowProducts(dst []float64) {
	rows := g.NumRows()
	for r := 0; r < rows; r++ {
		for j := range g.cols {
			dst[r] *= g.data.At(r, j)
		}
	}
}

// ColProducts multiplies each covered column's product into dst.
func (g *UncompressedGroup) ColProducts(dst []float64) {
	rows := g.NumRows()
	for j, c := range g.cols {
		for r := 0; r < rows; r++ {
			dst[c] *= g.data.At(r, j)
		}
	}
}

// applyDense materialises the embedded matrix as dense and applies fn cell
// wise, returning a new group.
func (g *UncompressedGroup) applyDense(fn func(r, j int, v float64) float64) ColGroup {
	rows := g.NumRows()
	d := mat.NewDense(rows, len(g.cols), nil)
	for r := 0; r < rows; r++ {
		for j := range g.cols {
			d.Set(r, j, fn(r, j, g.data.At(r, j)))
		}
	}
	return &UncompressedGroup{cols: g.cols, data: d}
}

// applySparseSafe applies fn to the non zero cells only, preserving the
// sparse embedding.
func (g *UncompressedGroup) applySparseSafe(csr *sparse.CSR, fn func(v float64) float64) ColGroup {
	raw := csr.RawMatrix()
	data := make([]float64, len(raw.Data))
	for i, v := range raw.Data {
		data[i] = fn(v)
	}
	out := sparse.NewCSR(raw.I, raw.J, cloneInts(raw.Indptr), cloneInts(raw.Ind), data)
	return &UncompressedGroup{cols: g.cols, data: out}
}

// ApplyScalar returns a new group with op applied to every cell.  A sparse
// embedding is preserved when op preserves zero.
func (g *UncompressedGroup) ApplyScalar(op ScalarOp) ColGroup {
	if csr, ok := g.data.(*sparse.CSR); ok && op.Apply(0) == 0 {
		return g.applySparseSafe(csr, op.fn)
	}
	return g.applyDense(func(r, j int, v float64) float64 { return op.Apply(v) })
}

// ApplyBinaryRow returns a new group with v applied cell wise.
func (g *UncompressedGroup) ApplyBinaryRow(op BinaryOp, v []float64, left bool) ColGroup {
	return g.applyDense(func(r, j int, e float64) float64 {
		if left {
			return op.Apply(v[g.cols[j]], e)
		}
		return op.Apply(e, v[g.cols[j]])
	})
}

// ReplaceValue substitutes pattern in the embedded matrix.
func (g *UncompressedGroup) ReplaceValue(pattern, replacement float64) ColGroup {
	patternNaN := math.IsNaN(pattern)
	if csr, ok := g.data.(*sparse.CSR); ok && pattern != 0 {
		return g.applySparseSafe(csr, func(v float64) float64 {
			if v == pattern || (patternNaN && math.IsNaN(v)) {
				return replacement
			}
			return v
		})
	}
	return g.applyDense(func(r, j int, v float64) float64 {
		if v == pattern || (patternNaN && math.IsNaN(v)) {
			return replacement
		}
		return v
	})
}

// RightMultByMatrix multiplies the embedded matrix with the rows of right
// selected by the group's columns.
func (g *UncompressedGroup) RightMultByMatrix(right mat.Matrix) ColGroup {
	_, rc := right.Dims()
	if rc == 0 {
		return nil
	}
	rows := g.NumRows()
	out := mat.NewDense(rows, rc, nil)
	om := out.RawMatrix()
	g.doNonZero(func(r, j int, v float64) {
		dst := om.Data[r*om.Stride : r*om.Stride+rc]
		for c := 0; c < rc; c++ {
			dst[c] += v * right.At(g.cols[j], c)
		}
	})
	return &UncompressedGroup{cols: iotaCols(rc), data: out}
}

// LeftMultByMatrix accumulates rows [rl, ru) of left x group into dst.
func (g *UncompressedGroup) LeftMultByMatrix(left mat.Matrix, dst *mat.Dense, rl, ru int) {
	rows := g.NumRows()
	rm := dst.RawMatrix()
	for i := rl; i < ru; i++ {
		row, release := leftRow(left, i, rows)
		out := rm.Data[i*rm.Stride:]
		g.doNonZero(func(r, j int, v float64) {
			out[g.cols[j]] += row[r] * v
		})
		release()
	}
}

// TSMM accumulates the upper triangle of transpose(group) x group into dst.
func (g *UncompressedGroup) TSMM(dst *mat.Dense) {
	rows := g.NumRows()
	nCols := len(g.cols)
	rm := dst.RawMatrix()
	tuple := getFloats(nCols, false)
	defer putFloats(tuple)
	for r := 0; r < rows; r++ {
		for j := range g.cols {
			tuple[j] = g.data.At(r, j)
		}
		for i := 0; i < nCols; i++ {
			v := tuple[i]
			if v == 0 {
				continue
			}
			row := rm.Data[g.cols[i]*rm.Stride:]
			for j := i; j < nCols; j++ {
				row[g.cols[j]] += v * tuple[j]
			}
		}
	}
}

// SliceCols projects the group onto [lo, hi).
func (g *UncompressedGroup) SliceCols(lo, hi int) ColGroup {
	jl, ju := sliceColRange(g.cols, lo, hi)
	if jl == ju {
		return nil
	}
	rows := g.NumRows()
	out := mat.NewDense(rows, ju-jl, nil)
	for r := 0; r < rows; r++ {
		for j := jl; j < ju; j++ {
			out.Set(r, j-jl, g.data.At(r, j))
		}
	}
	return &UncompressedGroup{cols: shiftedCols(g.cols[jl:ju], -lo), data: out}
}

// Contains reports whether v occurs in the group.
func (g *UncompressedGroup) Contains(v float64) bool {
	if v == 0 && !g.nnzIsFull() {
		return true
	}
	found := false
	g.doNonZero(func(r, j int, e float64) {
		if e == v {
			found = true
		}
	})
	if found {
		return true
	}
	if v == 0 {
		if d, ok := g.data.(*mat.Dense); ok {
			dm := d.RawMatrix()
			for r := 0; r < dm.Rows; r++ {
				for _, e := range dm.Data[r*dm.Stride : r*dm.Stride+dm.Cols] {
					if e == 0 {
						return true
					}
				}
			}
		}
	}
	return false
}

// NNZ returns the number of non zero cells in the group.
func (g *UncompressedGroup) NNZ() int {
	if csr, ok := g.data.(*sparse.CSR); ok {
		return csr.NNZ()
	}
	var nnz int
	g.doNonZero(func(r, j int, v float64) { nnz++ })
	return nnz
}

// Clone returns a deep copy of the group.
func (g *UncompressedGroup) Clone() ColGroup {
	if csr, ok := g.data.(*sparse.CSR); ok {
		raw := csr.RawMatrix()
		cp := sparse.NewCSR(raw.I, raw.J, cloneInts(raw.Indptr), cloneInts(raw.Ind), cloneFloats(raw.Data))
		return &UncompressedGroup{cols: cloneInts(g.cols), data: cp}
	}
	return &UncompressedGroup{cols: cloneInts(g.cols), data: mat.DenseCopyOf(g.data)}
}

func (g *UncompressedGroup) remapCols(cols []int) ColGroup {
	return &UncompressedGroup{cols: cols, data: g.data}
}

func (g *UncompressedGroup) tag() groupTag { return tagUncompressed }

func (g *UncompressedGroup) diskSize() int {
	if csr, ok := g.data.(*sparse.CSR); ok {
		raw := csr.RawMatrix()
		return 1 + sizeUint32 + len(raw.Indptr)*sizeUint32 +
			sizeUint32 + len(raw.Ind)*sizeUint32 + len(raw.Data)*sizeFloat64
	}
	rows := g.NumRows()
	return 1 + rows*len(g.cols)*sizeFloat64
}

func (g *UncompressedGroup) marshalTo(w io.Writer) (int, error) {
	if csr, ok := g.data.(*sparse.CSR); ok {
		n, err := writeUint8(w, 1)
		if err != nil {
			return n, err
		}
		raw := csr.RawMatrix()
		nn, err := writeIntsUint32(w, raw.Indptr)
		n += nn
		if err != nil {
			return n, err
		}
		nn, err = writeIntsUint32(w, raw.Ind)
		n += nn
		if err != nil {
			return n, err
		}
		nn, err = writeFloat64s(w, raw.Data)
		n += nn
		return n, err
	}
	n, err := writeUint8(w, 0)
	if err != nil {
		return n, err
	}
	d := g.data.(*mat.Dense)
	dm := d.RawMatrix()
	for r := 0; r < dm.Rows; r++ {
		nn, err := writeFloat64s(w, dm.Data[r*dm.Stride:r*dm.Stride+dm.Cols])
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (g *UncompressedGroup) memSize() int {
	if csr, ok := g.data.(*sparse.CSR); ok {
		raw := csr.RawMatrix()
		return groupHeaderSize + len(g.cols)*sizeInt +
			(len(raw.Indptr)+len(raw.Ind))*sizeInt + len(raw.Data)*sizeFloat64
	}
	rows := g.NumRows()
	return groupHeaderSize + len(g.cols)*sizeInt + rows*len(g.cols)*sizeFloat64
}
