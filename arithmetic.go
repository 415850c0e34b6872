package compress

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ApplyScalar applies the scalar operator op to every cell, returning a new
// compressed matrix.  The row assignment of every group is preserved; only
// dictionaries are transformed.
//
// On an overlapping matrix the per group transform is only exact for
// operators that distribute over the group summation.  Multiplicative
// operators are applied per group; additive operators are expressed exactly
// by appending a constant group carrying the addend; any other operator falls
// back to the decompressed form.
func (m *Matrix) ApplyScalar(op ScalarOp, k int) *Matrix {
	if m.overlapping {
		switch op.kind {
		case opMul:
			// c*(g1+g2) == c*g1 + c*g2
		case opAdd:
			groups := append(cloneGroups(m.groups), constantGroup(m.rows, m.cols, op.c))
			out := NewMatrix(m.rows, m.cols, groups, true)
			return out
		default:
			logFallback("scalar operation")
			d := m.Decompress(k)
			out := mat.NewDense(m.rows, m.cols, nil)
			applyDense(out, d, op.fn)
			return NewFromDense(out)
		}
	}
	groups := make([]ColGroup, len(m.groups))
	for i, g := range m.groups {
		groups[i] = g.ApplyScalar(op)
	}
	out := NewMatrix(m.rows, m.cols, groups, m.overlapping)
	out.RecomputeNonZeros()
	return out
}

// constantGroup builds a CONST group with value c in every cell of every
// column.
func constantGroup(rows, cols int, c float64) *ConstGroup {
	tuple := make([]float64, cols)
	for j := range tuple {
		tuple[j] = c
	}
	return NewConstGroup(iotaCols(cols), rows, NewDict(tuple))
}

// constantRowGroup builds a CONST group holding the row vector v.
func constantRowGroup(rows int, v []float64) *ConstGroup {
	return NewConstGroup(iotaCols(len(v)), rows, NewDict(cloneFloats(v)))
}

func cloneGroups(groups []ColGroup) []ColGroup {
	res := make([]ColGroup, len(groups))
	copy(res, groups)
	return res
}

func applyDense(dst, src *mat.Dense, fn func(float64) float64) {
	sm := src.RawMatrix()
	dm := dst.RawMatrix()
	for r := 0; r < sm.Rows; r++ {
		in := sm.Data[r*sm.Stride : r*sm.Stride+sm.Cols]
		out := dm.Data[r*dm.Stride : r*dm.Stride+dm.Cols]
		for i, v := range in {
			out[i] = fn(v)
		}
	}
}

// BinaryCell applies the cell wise operator op between the matrix and rhs,
// with the matrix as the left operand unless rhsLeft is true.  The kernel
// specialises on the shape of rhs:
//
//   - a 1x1 rhs broadcasts as a scalar and is rewritten into ApplyScalar;
//   - a 1xcols rhs broadcasts as a row vector and is delegated to the per
//     group row operators, staying compressed;
//   - a rows x cols or rows x 1 rhs decompresses and computes cell wise,
//     returning dense; any other shape panics with mat.ErrShape.
//
// The result is a *Matrix when the compressed path applies, otherwise a
// *mat.Dense.
func (m *Matrix) BinaryCell(op BinaryOp, rhs mat.Matrix, rhsLeft bool, k int) mat.Matrix {
	rr, rc := rhs.Dims()
	switch {
	case rr == 1 && rc == 1:
		return m.ApplyScalar(scalarFromBinary(op, rhs.At(0, 0), rhsLeft), k)
	case rr == 1 && rc == m.cols:
		return m.binaryRowVector(op, rhs, rhsLeft, k)
	default:
		if rr != m.rows || (rc != m.cols && rc != 1) {
			panic(mat.ErrShape)
		}
		logFallback("binary cell operation")
		return denseBinary(m.Decompress(k), op, rhs, rhsLeft)
	}
}

// scalarFromBinary rewrites a scalar broadcast binary operator into a
// ScalarOp, retaining the algebraic kind where the operand order allows.
func scalarFromBinary(op BinaryOp, c float64, rhsLeft bool) ScalarOp {
	fn := func(v float64) float64 { return op.Apply(v, c) }
	if rhsLeft {
		fn = func(v float64) float64 { return op.Apply(c, v) }
	}
	kind := opGeneric
	var addend float64
	switch op.kind {
	case opAdd:
		// v+c and c+v keep the additive structure; c-v does not.
		if !rhsLeft || fn(1)-fn(0) == 1 {
			kind = opAdd
			addend = fn(0)
		}
	case opMul:
		// v*c, c*v and v/c are linear in v; c/v is not.
		if !rhsLeft || fn(2) == 2*fn(1) {
			kind = opMul
		}
	}
	return ScalarOp{fn: fn, kind: kind, c: addend}
}

func (m *Matrix) binaryRowVector(op BinaryOp, rhs mat.Matrix, rhsLeft bool, k int) mat.Matrix {
	v := make([]float64, m.cols)
	for j := range v {
		v[j] = rhs.At(0, j)
	}
	if m.overlapping {
		switch op.kind {
		case opMul:
			// v broadcasts over each group's columns and distributes over
			// the group sums.
		case opAdd:
			addend := v
			if !rhsLeft && op.Apply(0, 1) < 0 {
				// x - v: append the negated vector
				addend = make([]float64, len(v))
				for j := range v {
					addend[j] = -v[j]
				}
			} else if rhsLeft && op.Apply(0, 1) < 0 {
				// v - x does not distribute over the group sums
				logFallback("binary row operation")
				return denseBinary(m.Decompress(k), op, rhs, rhsLeft)
			}
			groups := append(cloneGroups(m.groups), constantRowGroup(m.rows, addend))
			return NewMatrix(m.rows, m.cols, groups, true)
		default:
			logFallback("binary row operation")
			return denseBinary(m.Decompress(k), op, rhs, rhsLeft)
		}
	}
	groups := make([]ColGroup, len(m.groups))
	for i, g := range m.groups {
		groups[i] = g.ApplyBinaryRow(op, v, rhsLeft)
	}
	out := NewMatrix(m.rows, m.cols, groups, m.overlapping)
	out.RecomputeNonZeros()
	return out
}

// denseBinary computes the cell wise operation on the dense form.  rhs may be
// a full matrix or a column vector broadcast across columns.
func denseBinary(d *mat.Dense, op BinaryOp, rhs mat.Matrix, rhsLeft bool) *mat.Dense {
	rows, cols := d.Dims()
	_, rc := rhs.Dims()
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			b := rhs.At(r, 0)
			if rc != 1 {
				b = rhs.At(r, c)
			}
			if rhsLeft {
				out.Set(r, c, op.Apply(b, d.At(r, c)))
			} else {
				out.Set(r, c, op.Apply(d.At(r, c), b))
			}
		}
	}
	return out
}

// ReplaceValue returns a new matrix with every cell matching pattern
// substituted by replacement.  A NaN pattern matches NaN cells.  An
// overlapping matrix first collapses to dense: per group substitution would
// operate on contributions rather than cell values.
func (m *Matrix) ReplaceValue(pattern, replacement float64, k int) *Matrix {
	if m.overlapping {
		logFallback("replace")
		d := m.Decompress(k)
		out := mat.NewDense(m.rows, m.cols, nil)
		patternNaN := math.IsNaN(pattern)
		applyDense(out, d, func(v float64) float64 {
			if v == pattern || (patternNaN && math.IsNaN(v)) {
				return replacement
			}
			return v
		})
		return NewFromDense(out)
	}
	groups := make([]ColGroup, len(m.groups))
	for i, g := range m.groups {
		groups[i] = g.ReplaceValue(pattern, replacement)
	}
	out := NewMatrix(m.rows, m.cols, groups, m.overlapping)
	out.RecomputeNonZeros()
	return out
}
