package compress

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Dict stores the distinct value tuples referenced by a column group.  The
// tuples are laid out contiguously in row major order so a dictionary holding
// t distinct tuples for a group of c columns is backed by a []float64 of
// length t*c.  Tuple i occupies values[i*c : (i+1)*c].
//
// The dictionary is the unit of work for most compressed kernels: aggregates
// and element wise operators run over the distinct tuples (scaled by per tuple
// row counts where required) rather than over the matrix rows.
type Dict struct {
	values []float64
	lossy  bool
}

// NewDict creates a new dictionary backed by the supplied slice of tuple
// values.  The slice is used directly as backing storage and must not be
// modified by the caller afterwards.
func NewDict(values []float64) *Dict {
	return &Dict{values: values}
}

// Value returns the i'th value of the flattened tuple storage.
func (d *Dict) Value(i int) float64 {
	return d.values[i]
}

// Len returns the total number of stored values (tuples x tuple width).
func (d *Dict) Len() int {
	return len(d.values)
}

// NumTuples returns the number of distinct tuples held by the dictionary for
// a group of nCols columns.
func (d *Dict) NumTuples(nCols int) int {
	if nCols == 0 {
		return 0
	}
	return len(d.values) / nCols
}

// IsLossy reports whether the dictionary values were produced by a lossy
// compression plan.
func (d *Dict) IsLossy() bool {
	return d.lossy
}

// Aggregate reduces every value of the dictionary into init using fn.
func (d *Dict) Aggregate(init float64, fn func(a, b float64) float64) float64 {
	acc := init
	for _, v := range d.values {
		acc = fn(acc, v)
	}
	return acc
}

// AggregateCols reduces the dictionary column wise into acc using fn.  The
// j'th tuple column is folded into acc[cols[j]], allowing callers to
// accumulate directly into a result indexed by the enclosing matrix columns.
func (d *Dict) AggregateCols(acc []float64, fn func(a, b float64) float64, cols []int) {
	nCols := len(cols)
	for i := 0; i < len(d.values); i += nCols {
		for j, c := range cols {
			acc[c] = fn(acc[c], d.values[i+j])
		}
	}
}

// AggregateTuples reduces each tuple into a single value using fn, starting
// from init, and returns the per tuple results.
func (d *Dict) AggregateTuples(init float64, fn func(a, b float64) float64, nCols int) []float64 {
	if nCols == 0 {
		return nil
	}
	res := make([]float64, d.NumTuples(nCols))
	for k := range res {
		acc := init
		for _, v := range d.values[k*nCols : (k+1)*nCols] {
			acc = fn(acc, v)
		}
		res[k] = acc
	}
	return res
}

// Sum returns the sum of all dictionary values weighted by the number of rows
// referencing each tuple.
func (d *Dict) Sum(counts []int, nCols int) float64 {
	var acc float64
	for k, c := range counts {
		tuple := d.values[k*nCols : (k+1)*nCols]
		var ts float64
		for _, v := range tuple {
			ts += v
		}
		acc += ts * float64(c)
	}
	return acc
}

// SumSq returns the sum of all squared dictionary values weighted by the
// number of rows referencing each tuple.
func (d *Dict) SumSq(counts []int, nCols int) float64 {
	var acc float64
	for k, c := range counts {
		tuple := d.values[k*nCols : (k+1)*nCols]
		var ts float64
		for _, v := range tuple {
			ts += v * v
		}
		acc += ts * float64(c)
	}
	return acc
}

// TupleSums returns the sum (or sum of squares if square is true) of each
// tuple's values.  The result is indexed by tuple and is the building block
// for row aggregates: the row sum contribution of a coded row is the sum of
// the tuple it references.
func (d *Dict) TupleSums(square bool, nCols int) []float64 {
	if nCols == 0 {
		return nil
	}
	res := make([]float64, d.NumTuples(nCols))
	for k := range res {
		var acc float64
		for _, v := range d.values[k*nCols : (k+1)*nCols] {
			if square {
				acc += v * v
			} else {
				acc += v
			}
		}
		res[k] = acc
	}
	return res
}

// TupleExtrema returns the minimum (or maximum if max is true) value of each
// tuple.
func (d *Dict) TupleExtrema(max bool, nCols int) []float64 {
	fn := math.Min
	if max {
		fn = math.Max
	}
	init := math.Inf(1)
	if max {
		init = math.Inf(-1)
	}
	return d.AggregateTuples(init, fn, nCols)
}

// TupleProducts returns the product of each tuple's values.
func (d *Dict) TupleProducts(nCols int) []float64 {
	return d.AggregateTuples(1, func(a, b float64) float64 { return a * b }, nCols)
}

// Apply returns a new dictionary with fn applied to every value.  Values that
// become non finite are stored as produced; apply never fails.
func (d *Dict) Apply(fn func(float64) float64) *Dict {
	values := make([]float64, len(d.values))
	for i, v := range d.values {
		values[i] = fn(v)
	}
	return &Dict{values: values, lossy: d.lossy}
}

// ApplyBinaryRow returns a new dictionary with the row vector v applied to
// every tuple using fn.  The j'th tuple column is combined with v[cols[j]].
// If left is true v supplies the left hand operand, otherwise the right.
func (d *Dict) ApplyBinaryRow(fn func(a, b float64) float64, v []float64, cols []int, left bool) *Dict {
	nCols := len(cols)
	values := make([]float64, len(d.values))
	for i := 0; i < len(d.values); i += nCols {
		for j, c := range cols {
			if left {
				values[i+j] = fn(v[c], d.values[i+j])
			} else {
				values[i+j] = fn(d.values[i+j], v[c])
			}
		}
	}
	return &Dict{values: values, lossy: d.lossy}
}

// Replace returns a new dictionary with every value matching pattern
// substituted by replacement.  A NaN pattern matches NaN values.
func (d *Dict) Replace(pattern, replacement float64) *Dict {
	values := make([]float64, len(d.values))
	patternNaN := math.IsNaN(pattern)
	for i, v := range d.values {
		if v == pattern || (patternNaN && math.IsNaN(v)) {
			values[i] = replacement
		} else {
			values[i] = v
		}
	}
	return &Dict{values: values, lossy: d.lossy}
}

// SliceRange returns a new dictionary projected onto tuple columns [lo, hi).
func (d *Dict) SliceRange(lo, hi, nCols int) *Dict {
	width := hi - lo
	values := make([]float64, 0, d.NumTuples(nCols)*width)
	for i := 0; i < len(d.values); i += nCols {
		values = append(values, d.values[i+lo:i+hi]...)
	}
	return &Dict{values: values, lossy: d.lossy}
}

// Contains reports whether any dictionary value equals v.
func (d *Dict) Contains(v float64) bool {
	for _, e := range d.values {
		if e == v {
			return true
		}
	}
	return false
}

// NonZeros returns the number of non zero cells represented by the
// dictionary: the per tuple non zero count weighted by the number of rows
// referencing each tuple.
func (d *Dict) NonZeros(counts []int, nCols int) int {
	var nnz int
	for k, c := range counts {
		tuple := d.values[k*nCols : (k+1)*nCols]
		var tz int
		for _, v := range tuple {
			if v != 0 {
				tz++
			}
		}
		nnz += tz * c
	}
	return nnz
}

// MatrixView exposes the dictionary tuples as a distinct x nCols dense matrix
// without copying the backing storage, suitable for BLAS style kernels.
func (d *Dict) MatrixView(nCols int) *mat.Dense {
	return mat.NewDense(d.NumTuples(nCols), nCols, d.values)
}

// memSize returns an upper bound on the in memory footprint of the
// dictionary in bytes.
func (d *Dict) memSize() int {
	return sliceHeaderSize + len(d.values)*sizeFloat64 + 1
}
