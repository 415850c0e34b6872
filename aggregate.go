package compress

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// AggOp identifies a unary aggregate operation.
type AggOp int

const (
	// AggSum sums all cells.
	AggSum AggOp = iota
	// AggSumSq sums the squares of all cells.
	AggSumSq
	// AggMean averages all cells.
	AggMean
	// AggMin takes the minimum cell value.
	AggMin
	// AggMax takes the maximum cell value.
	AggMax
	// AggProduct multiplies all cells.
	AggProduct
)

func (op AggOp) String() string {
	switch op {
	case AggSum:
		return "sum"
	case AggSumSq:
		return "sumsq"
	case AggMean:
		return "mean"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggProduct:
		return "product"
	}
	return "unknown"
}

// distributesOverlap reports whether the aggregate can be computed from per
// group results when groups overlap.  Sums (and the mean derived from them)
// distribute over the cell summation; squares, extrema and products do not.
func (op AggOp) distributesOverlap() bool {
	return op == AggSum || op == AggMean
}

// Aggregate reduces the whole matrix to a single value using up to k
// goroutines.  Aggregates that cannot be combined across overlapping groups
// fall back to the decompressed form.
func (m *Matrix) Aggregate(op AggOp, k int) float64 {
	if m.overlapping && !op.distributesOverlap() {
		logFallback("aggregate " + op.String())
		return denseAggregate(m.Decompress(k), op)
	}
	switch op {
	case AggSum, AggSumSq:
		return m.groupSums(op == AggSumSq, k)
	case AggMean:
		n := float64(m.rows) * float64(m.cols)
		return m.groupSums(false, k) / n
	case AggMin, AggMax:
		maxOp := op == AggMax
		e := math.Inf(1)
		if maxOp {
			e = math.Inf(-1)
		}
		for _, g := range m.groups {
			e = extremum2(e, g.Extremum(maxOp), maxOp)
		}
		return e
	case AggProduct:
		p := 1.0
		for _, g := range m.groups {
			p *= g.Product()
			if p == 0 {
				break
			}
		}
		return p
	}
	logFallback("aggregate " + op.String())
	return denseAggregate(m.Decompress(k), op)
}

// groupSums computes the per group sums in parallel and reduces them in
// group order so the result is reproducible for any k.
func (m *Matrix) groupSums(square bool, k int) float64 {
	partials := make([]float64, len(m.groups))
	if k <= 1 || len(m.groups) == 1 {
		for i, g := range m.groups {
			partials[i] = g.Sum(square)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, k)
		wg.Add(len(m.groups))
		for i, g := range m.groups {
			sem <- struct{}{}
			go func(i int, g ColGroup) {
				defer wg.Done()
				partials[i] = g.Sum(square)
				<-sem
			}(i, g)
		}
		wg.Wait()
	}
	var s float64
	for _, p := range partials {
		s += p
	}
	return s
}

// AggregateRows reduces each row to a single value, returning a rows x 1
// dense matrix.
func (m *Matrix) AggregateRows(op AggOp, k int) *mat.Dense {
	if m.overlapping && !op.distributesOverlap() {
		logFallback("row aggregate " + op.String())
		return denseAggregateRows(m.Decompress(k), op)
	}
	out := mat.NewDense(m.rows, 1, nil)
	dst := out.RawMatrix().Data
	switch op {
	case AggSum, AggSumSq, AggMean:
		square := op == AggSumSq
		runStripes(m.rows, k, func(rl, ru int) {
			for _, g := range m.groups {
				g.RowSums(dst[rl:ru], rl, ru, square)
			}
		})
		if op == AggMean {
			n := float64(m.cols)
			for i := range dst {
				dst[i] /= n
			}
		}
	case AggMin, AggMax:
		maxOp := op == AggMax
		init := math.Inf(1)
		if maxOp {
			init = math.Inf(-1)
		}
		for i := range dst {
			dst[i] = init
		}
		for _, g := range m.groups {
			g.RowExtrema(dst, maxOp)
		}
	case AggProduct:
		for i := range dst {
			dst[i] = 1
		}
		for _, g := range m.groups {
			g.RowProducts(dst)
		}
	default:
		logFallback("row aggregate " + op.String())
		return denseAggregateRows(m.Decompress(k), op)
	}
	return out
}

// AggregateCols reduces each column to a single value, returning a 1 x cols
// dense matrix.
func (m *Matrix) AggregateCols(op AggOp, k int) *mat.Dense {
	if m.overlapping && !op.distributesOverlap() {
		logFallback("col aggregate " + op.String())
		return denseAggregateCols(m.Decompress(k), op)
	}
	out := mat.NewDense(1, m.cols, nil)
	dst := out.RawMatrix().Data
	switch op {
	case AggSum, AggSumSq, AggMean:
		square := op == AggSumSq
		for _, g := range m.groups {
			g.ColSums(dst, square)
		}
		if op == AggMean {
			n := float64(m.rows)
			for i := range dst {
				dst[i] /= n
			}
		}
	case AggMin, AggMax:
		maxOp := op == AggMax
		init := math.Inf(1)
		if maxOp {
			init = math.Inf(-1)
		}
		for i := range dst {
			dst[i] = init
		}
		for _, g := range m.groups {
			g.ColExtrema(dst, maxOp)
		}
	case AggProduct:
		for i := range dst {
			dst[i] = 1
		}
		for _, g := range m.groups {
			g.ColProducts(dst)
		}
	default:
		logFallback("col aggregate " + op.String())
		return denseAggregateCols(m.Decompress(k), op)
	}
	return out
}

// denseAggregate is the decompressed fallback for full aggregates.
func denseAggregate(d *mat.Dense, op AggOp) float64 {
	rm := d.RawMatrix()
	switch op {
	case AggSum, AggSumSq, AggMean:
		var s float64
		for r := 0; r < rm.Rows; r++ {
			for _, v := range rm.Data[r*rm.Stride : r*rm.Stride+rm.Cols] {
				if op == AggSumSq {
					s += v * v
				} else {
					s += v
				}
			}
		}
		if op == AggMean {
			return s / (float64(rm.Rows) * float64(rm.Cols))
		}
		return s
	case AggMin, AggMax:
		maxOp := op == AggMax
		e := math.Inf(1)
		if maxOp {
			e = math.Inf(-1)
		}
		for r := 0; r < rm.Rows; r++ {
			for _, v := range rm.Data[r*rm.Stride : r*rm.Stride+rm.Cols] {
				e = extremum2(e, v, maxOp)
			}
		}
		return e
	case AggProduct:
		p := 1.0
		for r := 0; r < rm.Rows; r++ {
			for _, v := range rm.Data[r*rm.Stride : r*rm.Stride+rm.Cols] {
				p *= v
			}
		}
		return p
	}
	panic(ErrUnsupported)
}

func denseAggregateRows(d *mat.Dense, op AggOp) *mat.Dense {
	rm := d.RawMatrix()
	out := mat.NewDense(rm.Rows, 1, nil)
	for r := 0; r < rm.Rows; r++ {
		row := d.RawRowView(r)
		out.Set(r, 0, denseAggregate(mat.NewDense(1, rm.Cols, row), op))
	}
	return out
}

func denseAggregateCols(d *mat.Dense, op AggOp) *mat.Dense {
	rm := d.RawMatrix()
	out := mat.NewDense(1, rm.Cols, nil)
	col := make([]float64, rm.Rows)
	for c := 0; c < rm.Cols; c++ {
		mat.Col(col, c, d)
		out.Set(0, c, denseAggregate(mat.NewDense(rm.Rows, 1, col), op))
	}
	return out
}
