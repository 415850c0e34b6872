package compress

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Append concatenates rhs to the receiver, returning a new matrix.  With
// cbind true the concatenation is columnwise and stays compressed: the group
// lists are merged with rhs's column indices shifted past the receiver's
// columns.  Rowwise concatenation has no compressed form and falls back to
// the decompressed representation.
func (m *Matrix) Append(rhs *Matrix, cbind bool, k int) *Matrix {
	if cbind {
		if rhs.rows != m.rows {
			panic(mat.ErrShape)
		}
		groups := make([]ColGroup, 0, len(m.groups)+len(rhs.groups))
		groups = append(groups, m.groups...)
		for _, g := range rhs.groups {
			groups = append(groups, g.remapCols(shiftedCols(g.Cols(), m.cols)))
		}
		out := NewMatrix(m.rows, m.cols+rhs.cols, groups, m.overlapping || rhs.overlapping)
		if m.nnz >= 0 && rhs.nnz >= 0 {
			out.nnz = m.nnz + rhs.nnz
		}
		return out
	}
	if rhs.cols != m.cols {
		panic(mat.ErrShape)
	}
	logFallback("rbind append")
	top := m.Decompress(k)
	bottom := rhs.Decompress(k)
	out := mat.NewDense(m.rows+rhs.rows, m.cols, nil)
	out.Slice(0, m.rows, 0, m.cols).(*mat.Dense).Copy(top)
	out.Slice(m.rows, m.rows+rhs.rows, 0, m.cols).(*mat.Dense).Copy(bottom)
	return NewFromDense(out)
}

// Slice extracts the submatrix [rl, ru) x [cl, cu).  Column slicing stays
// compressed by projecting every group; row slicing decompresses the row
// range into a dense result, which is returned wrapped as a compressed
// matrix holding a single uncompressed group.
func (m *Matrix) Slice(rl, ru, cl, cu, k int) *Matrix {
	if rl < 0 || ru > m.rows || rl >= ru {
		panic(mat.ErrRowAccess)
	}
	if cl < 0 || cu > m.cols || cl >= cu {
		panic(mat.ErrColAccess)
	}
	cm := NewMatrix(m.rows, m.cols, m.groups, m.overlapping)
	if cl > 0 || cu < m.cols {
		groups := make([]ColGroup, 0, len(m.groups))
		for _, g := range m.groups {
			if s := g.SliceCols(cl, cu); s != nil {
				groups = append(groups, s)
			}
		}
		if len(groups) == 0 {
			groups = append(groups, NewEmptyGroup(iotaCols(cu-cl), m.rows))
		}
		cm = NewMatrix(m.rows, cu-cl, groups, m.overlapping)
	}
	if rl == 0 && ru == m.rows {
		cm.RecomputeNonZeros()
		return cm
	}
	logFallback("row slice")
	out := mat.NewDense(ru-rl, cm.cols, nil)
	runStripes(ru-rl, k, func(sl, su int) {
		for _, g := range cm.groups {
			g.DecompressTo(out, rl+sl, rl+su, -rl, 0)
		}
	})
	return NewFromDense(out)
}

// Squash collapses an overlapping matrix into a plain non overlapping one by
// decompressing and re encoding column by column.  Squashing a non
// overlapping matrix re encodes it unchanged.
func (m *Matrix) Squash(k int) *Matrix {
	d := m.Decompress(k)
	return CompressDense(d, nil)
}

// ReExpand one hot expands a single column matrix of codes into a rows x max
// compressed matrix: cell (r, v-1) is 1 when row r holds the integral value v
// in [1, max], and rows holding any other value are all zero.  The result is
// a single DDC group whose dictionary carries the zero tuple and the max unit
// tuples, so the expansion never materialises.
func (m *Matrix) ReExpand(max, k int) *Matrix {
	if m.cols != 1 {
		panic(mat.ErrShape)
	}
	if max < 1 {
		panic(mat.ErrShape)
	}
	values := make([]float64, (max+1)*max)
	for v := 1; v <= max; v++ {
		values[v*max+(v-1)] = 1
	}
	codes := make([]int, m.rows)
	for r := 0; r < m.rows; r++ {
		v := m.At(r, 0)
		if v == math.Trunc(v) && v >= 1 && v <= float64(max) {
			codes[r] = int(v)
		}
	}
	g := NewDDCGroup(iotaCols(max), NewDict(values), codes)
	out := NewMatrix(m.rows, max, []ColGroup{g}, false)
	out.RecomputeNonZeros()
	return out
}

// ChainMult computes the matrix multiplication chain t(X) * (X * v) where X
// is the receiver, or t(X) * (w . (X * v)) when weighted, with w a rows x 1
// weight vector applied cell wise.  The intermediate X*v is produced by
// RightMult with overlap permitted whenever v has more than one column, so
// the chain never materialises X.
func (m *Matrix) ChainMult(v *mat.Dense, w *mat.Dense, weighted bool, k int) *mat.Dense {
	vr, vc := v.Dims()
	if vr != m.cols {
		panic(mat.ErrShape)
	}
	if weighted {
		wr, wc := w.Dims()
		if wr != m.rows || wc != 1 {
			panic(mat.ErrShape)
		}
	}

	tmp := m.RightMult(v, k, vc > 1)
	var td *mat.Dense
	switch t := tmp.(type) {
	case *Matrix:
		td = t.Decompress(k)
	case *mat.Dense:
		td = t
	}
	if weighted {
		scaled := mat.NewDense(m.rows, vc, nil)
		tm := td.RawMatrix()
		sm := scaled.RawMatrix()
		for r := 0; r < m.rows; r++ {
			wv := w.At(r, 0)
			in := tm.Data[r*tm.Stride : r*tm.Stride+vc]
			out := sm.Data[r*sm.Stride : r*sm.Stride+vc]
			for i, e := range in {
				out[i] = e * wv
			}
		}
		td = scaled
	}

	// t(X) * tmp as the transpose of tmp' * X
	left := td.T()
	prod := m.LeftMult(left, k)
	out := mat.NewDense(m.cols, vc, nil)
	for i := 0; i < m.cols; i++ {
		for j := 0; j < vc; j++ {
			out.Set(i, j, prod.At(j, i))
		}
	}
	return out
}
