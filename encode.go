package compress

import (
	"encoding/binary"
	"math"

	"gonum.org/v1/gonum/mat"
)

// CompressDense exactly encodes the dense matrix d as a compressed matrix.
// parts lists the column sets to co-code, each strictly increasing; together
// they must partition the columns.  A nil parts encodes every column as its
// own group.
//
// The encoder picks the cheapest exact encoding per partition: EMPTY for all
// zero columns, CONST for a single distinct tuple and DDC otherwise.  It is
// deliberately not a compression planner - sample based co-coding and the
// SDC/RLE/OLE trade offs belong to the host system - but it is sufficient to
// build compressed matrices from materialised data, which is what Squash and
// the test suites need.
func CompressDense(d *mat.Dense, parts [][]int) *Matrix {
	rows, cols := d.Dims()
	if parts == nil {
		parts = make([][]int, cols)
		for c := 0; c < cols; c++ {
			parts[c] = []int{c}
		}
	}
	groups := make([]ColGroup, 0, len(parts))
	for _, part := range parts {
		groups = append(groups, encodePart(d, rows, part))
	}
	m := NewMatrix(rows, cols, groups, false)
	m.RecomputeNonZeros()
	return m
}

// encodePart builds the exact encoding of the columns in part.
func encodePart(d *mat.Dense, rows int, part []int) ColGroup {
	nCols := len(part)
	tuple := make([]float64, nCols)
	key := make([]byte, nCols*sizeFloat64)
	distinct := make(map[string]int)
	var values []float64
	codes := make([]int, rows)
	zero := true
	for r := 0; r < rows; r++ {
		for j, c := range part {
			tuple[j] = d.At(r, c)
			if tuple[j] != 0 {
				zero = false
			}
			binary.LittleEndian.PutUint64(key[j*sizeFloat64:], math.Float64bits(tuple[j]))
		}
		code, ok := distinct[string(key)]
		if !ok {
			code = len(distinct)
			distinct[string(key)] = code
			values = append(values, tuple...)
		}
		codes[r] = code
	}
	cols := cloneInts(part)
	switch {
	case zero:
		return NewEmptyGroup(cols, rows)
	case len(distinct) == 1:
		return NewConstGroup(cols, rows, NewDict(values))
	default:
		return NewDDCGroup(cols, NewDict(values), codes)
	}
}
