package compress

import (
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// groupTag identifies a column group encoding on the wire and in dispatch.
type groupTag uint8

const (
	tagEmpty groupTag = iota
	tagUncompressed
	tagConst
	tagDDC
	tagSDC
	tagRLE
	tagOLE
)

// ScalarOp is a scalar operator applied element wise to a matrix.  The kind
// classifies operators whose algebraic structure the compressed kernels can
// exploit: additive and multiplicative operators remain exact on overlapping
// matrices without decompression.
type ScalarOp struct {
	fn   func(float64) float64
	kind opKind
	c    float64
}

// BinaryOp is a cell wise binary operator.  As with ScalarOp the kind drives
// the overlapping strategy.
type BinaryOp struct {
	fn   func(a, b float64) float64
	kind opKind
}

type opKind uint8

const (
	opGeneric opKind = iota
	opAdd
	opMul
)

// ScalarAdd returns the scalar operator x + c.
func ScalarAdd(c float64) ScalarOp {
	return ScalarOp{fn: func(v float64) float64 { return v + c }, kind: opAdd, c: c}
}

// ScalarSub returns the scalar operator x - c.
func ScalarSub(c float64) ScalarOp {
	return ScalarAdd(-c)
}

// ScalarMul returns the scalar operator x * c.
func ScalarMul(c float64) ScalarOp {
	return ScalarOp{fn: func(v float64) float64 { return v * c }, kind: opMul, c: c}
}

// ScalarDiv returns the scalar operator x / c.
func ScalarDiv(c float64) ScalarOp {
	return ScalarOp{fn: func(v float64) float64 { return v / c }, kind: opMul, c: 1 / c}
}

// ScalarApply returns a scalar operator evaluating an arbitrary function.
// Generic operators force decompression on overlapping matrices because they
// do not distribute over the per group sums.
func ScalarApply(fn func(float64) float64) ScalarOp {
	return ScalarOp{fn: fn, kind: opGeneric}
}

// Apply evaluates the operator on v.
func (op ScalarOp) Apply(v float64) float64 { return op.fn(v) }

// Binary operator constructors.  Plus and Minus are additive, Times and Div
// multiplicative; the relational operators are generic.
var (
	Plus    = BinaryOp{fn: func(a, b float64) float64 { return a + b }, kind: opAdd}
	Minus   = BinaryOp{fn: func(a, b float64) float64 { return a - b }, kind: opAdd}
	Times   = BinaryOp{fn: func(a, b float64) float64 { return a * b }, kind: opMul}
	Div     = BinaryOp{fn: func(a, b float64) float64 { return a / b }, kind: opMul}
	Less    = BinaryOp{fn: bool2bin(func(a, b float64) bool { return a < b })}
	LessEq  = BinaryOp{fn: bool2bin(func(a, b float64) bool { return a <= b })}
	Greater = BinaryOp{fn: bool2bin(func(a, b float64) bool { return a > b })}
	GreatEq = BinaryOp{fn: bool2bin(func(a, b float64) bool { return a >= b })}
	Equal   = BinaryOp{fn: bool2bin(func(a, b float64) bool { return a == b })}
	NotEq   = BinaryOp{fn: bool2bin(func(a, b float64) bool { return a != b })}
)

// BinaryApply returns a generic cell wise operator evaluating fn.
func BinaryApply(fn func(a, b float64) float64) BinaryOp {
	return BinaryOp{fn: fn}
}

// Apply evaluates the operator on a and b.
func (op BinaryOp) Apply(a, b float64) float64 { return op.fn(a, b) }

func bool2bin(fn func(a, b float64) bool) func(a, b float64) float64 {
	return func(a, b float64) float64 {
		if fn(a, b) {
			return 1
		}
		return 0
	}
}

// ColGroup is a single encoding covering a subset of the columns of a
// compressed matrix.  All implementations are immutable after construction;
// the transforming operations (ApplyScalar, ReplaceValue, ...) return new
// groups sharing row assignment structure where the encoding permits.
//
// Aggregation methods accumulate into caller supplied destinations so cross
// group dispatch can combine contributions without intermediate allocation:
// sums add into dst, extrema merge into dst (which the caller initialises to
// +/-Inf) and products multiply into dst (initialised to 1).
type ColGroup interface {
	// Cols returns the strictly increasing column indices covered by the
	// group.  The returned slice is backing storage and must not be modified.
	Cols() []int

	// NumRows returns the number of matrix rows the group spans.
	NumRows() int

	// At returns the value of the cell at row r and matrix column c.  At
	// panics if c is not one of the group's columns.
	At(r, c int) float64

	// DecompressTo adds the group's contribution for rows [rl, ru) into dst.
	// The cell (r, c) is added to dst at (r+rowOff, c+colOff).
	DecompressTo(dst *mat.Dense, rl, ru, rowOff, colOff int)

	// Sum returns the sum of the group's cells, or of their squares if
	// square is true.
	Sum(square bool) float64

	// RowSums adds each row's sum (of values or squares) for rows [rl, ru)
	// into dst, where dst[i] accumulates row rl+i.
	RowSums(dst []float64, rl, ru int, square bool)

	// ColSums adds each covered column's sum (of values or squares) into dst
	// indexed by matrix column.
	ColSums(dst []float64, square bool)

	// Extremum returns the minimum (or maximum if max is true) cell value.
	Extremum(max bool) float64

	// RowExtrema merges each row's extremum over the group's columns into
	// dst indexed by row.
	RowExtrema(dst []float64, max bool)

	// ColExtrema merges each covered column's extremum into dst indexed by
	// matrix column.
	ColExtrema(dst []float64, max bool)

	// Product returns the product of the group's cells.
	Product() float64

	// RowProducts multiplies each row's product over the group's columns
	// into dst indexed by row.
	RowProducts(dst []float64)

	// ColProducts multiplies each covered column's product into dst indexed
	// by matrix column.
	ColProducts(dst []float64)

	// ApplyScalar returns a new group with op applied to every cell.  The
	// row assignment is preserved; only value storage is transformed.
	ApplyScalar(op ScalarOp) ColGroup

	// ApplyBinaryRow returns a new group with the full width row vector v
	// applied cell wise; each cell in matrix column c combines with v[c].
	// If left is true v supplies the left hand operand.
	ApplyBinaryRow(op BinaryOp, v []float64, left bool) ColGroup

	// ReplaceValue returns a new group with every cell matching pattern
	// substituted by replacement.  A NaN pattern matches NaN cells.
	ReplaceValue(pattern, replacement float64) ColGroup

	// RightMultByMatrix returns the group representing group x right.  The
	// result covers columns 0..rc-1 of the product and preserves the row
	// assignment, so multiplying a dictionary coded group costs
	// O(distinct x rc) regardless of the row count.  A nil group is
	// returned when the product is structurally empty.
	RightMultByMatrix(right mat.Matrix) ColGroup

	// LeftMultByMatrix accumulates rows [rl, ru) of left x group into dst at
	// the group's column indices.
	LeftMultByMatrix(left mat.Matrix, dst *mat.Dense, rl, ru int)

	// TSMM accumulates the upper triangle of transpose(group) x group into
	// dst at the group's column indices.
	TSMM(dst *mat.Dense)

	// SliceCols projects the group onto the matrix column range [lo, hi).
	// The surviving columns are shifted down by lo.  SliceCols returns nil
	// when the intersection is empty.
	SliceCols(lo, hi int) ColGroup

	// Contains reports whether any cell of the group equals v.
	Contains(v float64) bool

	// NNZ returns the number of non zero cells in the group.
	NNZ() int

	// Clone returns a deep copy of the group.
	Clone() ColGroup

	// remapCols returns a shallow copy of the group covering cols, which
	// must have the same length as the current column set.  Value storage
	// is shared with the receiver.
	remapCols(cols []int) ColGroup

	tag() groupTag
	diskSize() int
	marshalTo(w io.Writer) (int, error)
	memSize() int
}

// searchCols locates matrix column c within the group's sorted column set,
// returning the tuple column index or -1 when not covered.
func searchCols(cols []int, c int) int {
	j := sort.SearchInts(cols, c)
	if j < len(cols) && cols[j] == c {
		return j
	}
	return -1
}

// mustSearchCols is searchCols for callers holding the group contract that c
// is covered.
func mustSearchCols(cols []int, c int) int {
	j := searchCols(cols, c)
	if j < 0 {
		panic(mat.ErrColAccess)
	}
	return j
}

// sliceColRange returns the index range [jl, ju) of cols falling within the
// matrix column range [lo, hi).
func sliceColRange(cols []int, lo, hi int) (jl, ju int) {
	jl = sort.SearchInts(cols, lo)
	ju = sort.SearchInts(cols, hi)
	return jl, ju
}

// shiftedCols returns a copy of cols with off added to every index.
func shiftedCols(cols []int, off int) []int {
	res := make([]int, len(cols))
	for i, c := range cols {
		res[i] = c + off
	}
	return res
}

// iotaCols returns the column set {0..n-1}.
func iotaCols(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = i
	}
	return res
}

// tsmmTuples accumulates the upper triangle contributions of the weighted
// tuple outer products into dst:
//
//	dst[cols[i], cols[j]] += count_k * values[k,i] * values[k,j]   for i <= j
//
// This is the core transpose self multiplication kernel shared by all
// dictionary coded groups; cost is O(distinct x width^2) independent of the
// row count.
func tsmmTuples(dst *mat.Dense, values []float64, counts []int, cols []int) {
	nCols := len(cols)
	rm := dst.RawMatrix()
	for k, c := range counts {
		if c == 0 {
			continue
		}
		tuple := values[k*nCols : (k+1)*nCols]
		for i := 0; i < nCols; i++ {
			v := tuple[i] * float64(c)
			if v == 0 {
				continue
			}
			row := rm.Data[cols[i]*rm.Stride:]
			for j := i; j < nCols; j++ {
				row[cols[j]] += v * tuple[j]
			}
		}
	}
}

// rightMultTuples computes the product of the tuple storage with the rows of
// right selected by cols, producing the tuple storage for the result group:
//
//	res[k, c] = sum_j values[k, j] * right[cols[j], c]
func rightMultTuples(values []float64, cols []int, right mat.Matrix) []float64 {
	nCols := len(cols)
	_, rc := right.Dims()
	nTuples := 0
	if nCols > 0 {
		nTuples = len(values) / nCols
	}
	res := make([]float64, nTuples*rc)
	if rd, ok := right.(*mat.Dense); ok {
		rm := rd.RawMatrix()
		for k := 0; k < nTuples; k++ {
			tuple := values[k*nCols : (k+1)*nCols]
			out := res[k*rc : (k+1)*rc]
			for j, v := range tuple {
				if v == 0 {
					continue
				}
				row := rm.Data[cols[j]*rm.Stride : cols[j]*rm.Stride+rc]
				for c, rv := range row {
					out[c] += v * rv
				}
			}
		}
		return res
	}
	for k := 0; k < nTuples; k++ {
		tuple := values[k*nCols : (k+1)*nCols]
		out := res[k*rc : (k+1)*rc]
		for j, v := range tuple {
			if v == 0 {
				continue
			}
			for c := 0; c < rc; c++ {
				out[c] += v * right.At(cols[j], c)
			}
		}
	}
	return res
}

// leftMultPostScale folds the pre aggregated row sums per tuple into dst:
//
//	dst[i, cols[j]] += preAgg[k] * values[k, j]
//
// preAgg holds, for output row i, the sum of left[i, r] over all rows r
// assigned to tuple k.  Pre aggregation reduces the multiplication to
// O(distinct x width) FLOPs per output row.
func leftMultPostScale(dst *mat.Dense, i int, preAgg, values []float64, cols []int) {
	nCols := len(cols)
	rm := dst.RawMatrix()
	row := rm.Data[i*rm.Stride:]
	for k, a := range preAgg {
		if a == 0 {
			continue
		}
		tuple := values[k*nCols : (k+1)*nCols]
		for j, v := range tuple {
			row[cols[j]] += a * v
		}
	}
}

// leftRow exposes row i of left as a []float64, copying through the pooled
// buffer when left is not dense.  The returned release function must be
// called once the row is no longer needed.
func leftRow(left mat.Matrix, i, n int) (row []float64, release func()) {
	if ld, ok := left.(*mat.Dense); ok {
		return ld.RawRowView(i), func() {}
	}
	buf := getFloats(n, false)
	for j := range buf {
		buf[j] = left.At(i, j)
	}
	return buf, func() { putFloats(buf) }
}

// extremum2 merges b into a under min or max.
func extremum2(a, b float64, max bool) float64 {
	if max {
		return math.Max(a, b)
	}
	return math.Min(a, b)
}

// countsFromCodes recomputes the per tuple row counts from a code sequence.
func countsFromCodes(codes []int, nTuples int) []int {
	counts := make([]int, nTuples)
	for _, c := range codes {
		counts[c]++
	}
	return counts
}
