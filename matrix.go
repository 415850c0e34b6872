package compress

import (
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
)

var (
	_ mat.Matrix = (*Matrix)(nil)
)

// nnzUnknown is the sentinel stored when the number of non zero cells has not
// been computed.
const nnzUnknown = -1

// Matrix is a column compressed matrix: an ordered collection of column
// groups which together cover the column index space.  When the matrix is not
// overlapping the groups partition the columns and each cell is held by
// exactly one group.  When it is overlapping (a state produced by right
// multiplication) the groups may share columns and the logical cell value is
// the sum of every group's contribution at that cell.
//
// A Matrix is created by a compression planner (or the reference encoder in
// this package) and is thereafter read only with respect to its column group
// list except through AllocateColGroup, AllocateColGroupList and
// RecomputeNonZeros.  Reads may therefore be freely shared across goroutines.
//
// Matrix implements the gonum mat.Matrix interface.  Cell wise access through
// At is supported but slow; kernels should use the bulk operations.
type Matrix struct {
	rows, cols  int
	nnz         int64
	overlapping bool
	groups      []ColGroup

	// cache is the single slot decompression cache.  It stands in for the
	// soft reference of managed runtimes: the host evicts it with ClearCache
	// under memory pressure and no consumer may rely on a hit.
	cache         atomic.Pointer[mat.Dense]
	decompressCnt atomic.Uint64
}

// NewMatrix creates a compressed matrix of the given shape from a list of
// column groups.  When overlapping is false the groups' column sets must
// partition {0..cols-1}; when true each set need only be a subset.  A matrix
// holding fewer than two groups is never overlapping in effect.
func NewMatrix(rows, cols int, groups []ColGroup, overlapping bool) *Matrix {
	if len(groups) < 2 {
		overlapping = false
	}
	validateGroups(rows, cols, groups, overlapping)
	return &Matrix{
		rows:        rows,
		cols:        cols,
		nnz:         nnzUnknown,
		overlapping: overlapping,
		groups:      groups,
	}
}

// NewFromDense creates a compressed matrix holding d as a single uncompressed
// column group.  The dense form is retained in the decompression cache.  The
// caller must not modify d afterwards.
func NewFromDense(d *mat.Dense) *Matrix {
	rows, cols := d.Dims()
	m := &Matrix{
		rows:        rows,
		cols:        cols,
		nnz:         nnzUnknown,
		overlapping: false,
		groups:      []ColGroup{NewUncompressedGroup(iotaCols(cols), d)},
	}
	m.RecomputeNonZeros()
	m.cache.Store(d)
	return m
}

func validateGroups(rows, cols int, groups []ColGroup, overlapping bool) {
	seen := make([]int, cols)
	for _, g := range groups {
		if g.NumRows() != rows {
			panic(mat.ErrShape)
		}
		prev := -1
		for _, c := range g.Cols() {
			if c <= prev || c >= cols {
				panic(mat.ErrShape)
			}
			prev = c
			seen[c]++
		}
	}
	if overlapping {
		// overlapping groups need only be subsets of the column range
		return
	}
	for _, n := range seen {
		if n > 1 {
			panic(ErrOverlapping)
		}
		if n == 0 {
			panic(mat.ErrShape)
		}
	}
}

// Dims returns the dimensions of the matrix.
func (m *Matrix) Dims() (int, int) {
	return m.rows, m.cols
}

// At returns the value of the cell at row i and column j.  On an overlapping
// matrix the contributions of every group covering j are summed.
func (m *Matrix) At(i, j int) float64 {
	if uint(i) >= uint(m.rows) {
		panic(mat.ErrRowAccess)
	}
	if uint(j) >= uint(m.cols) {
		panic(mat.ErrColAccess)
	}
	if d := m.CachedDecompressed(); d != nil {
		return d.At(i, j)
	}
	var v float64
	for _, g := range m.groups {
		if searchCols(g.Cols(), j) < 0 {
			continue
		}
		if !m.overlapping {
			return g.At(i, j)
		}
		v += g.At(i, j)
	}
	return v
}

// T performs an implicit transpose by returning the receiver inside a
// mat.Transpose.
func (m *Matrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// NNZ returns the number of non zero cells, or -1 when unknown.  For an
// overlapping matrix the count is a conservative upper bound until a full
// decompression refreshes it.
func (m *Matrix) NNZ() int64 {
	return m.nnz
}

// IsOverlapping reports whether the matrix is in overlapping read mode.
func (m *Matrix) IsOverlapping() bool {
	return m.overlapping
}

// Groups returns the matrix's column groups.  The returned slice is backing
// storage and must not be modified.
func (m *Matrix) Groups() []ColGroup {
	return m.groups
}

// AllocateColGroup replaces the column group list with the single group g.
// It is used by the serialiser when falling back to an uncompressed layout.
func (m *Matrix) AllocateColGroup(g ColGroup) {
	m.groups = []ColGroup{g}
	m.overlapping = false
	m.nnz = nnzUnknown
	m.ClearCache()
}

// AllocateColGroupList replaces the column group list wholesale.  The new
// list must satisfy the matrix's overlap mode: supplying groups with shared
// columns to a non overlapping matrix panics with ErrOverlapping.
func (m *Matrix) AllocateColGroupList(groups []ColGroup) {
	if len(groups) < 2 {
		m.overlapping = false
	}
	validateGroups(m.rows, m.cols, groups, m.overlapping)
	m.groups = groups
	m.nnz = nnzUnknown
	m.ClearCache()
}

// RecomputeNonZeros refreshes the non zero count from the column groups and
// returns it.  A matrix found to be entirely zero is compacted to a single
// EMPTY group.  For an overlapping matrix the count is the conservative
// rows*cols bound.
func (m *Matrix) RecomputeNonZeros() int64 {
	if m.overlapping {
		m.nnz = int64(m.rows) * int64(m.cols)
		return m.nnz
	}
	var nnz int64
	for _, g := range m.groups {
		nnz += int64(g.NNZ())
	}
	m.nnz = nnz
	if nnz == 0 && m.cols > 0 {
		m.groups = []ColGroup{NewEmptyGroup(iotaCols(m.cols), m.rows)}
	}
	return nnz
}

// MemSize returns an upper bound on the in memory footprint of the matrix in
// bytes, covering the header fields, the group list container, the cache
// slot and every column group.
func (m *Matrix) MemSize() int {
	size := matrixHeaderSize + sliceHeaderSize + len(m.groups)*sizeInt
	for _, g := range m.groups {
		size += g.memSize()
	}
	return size
}

// Contains reports whether any cell of the matrix equals v.  Contains is not
// supported on an overlapping matrix: the per group values no longer equal
// the cell values and the summation semantics are unspecified, so the call
// panics with ErrUnsupported rather than guessing.
func (m *Matrix) Contains(v float64) bool {
	if m.overlapping {
		panic(ErrUnsupported)
	}
	for _, g := range m.groups {
		if g.Contains(v) {
			return true
		}
	}
	return false
}

// Set is unsupported: a compressed matrix does not allow cell mutation.  Set
// always panics with ErrCompressedMisuse.
func (m *Matrix) Set(i, j int, v float64) {
	panic(ErrCompressedMisuse)
}

// Reset is unsupported: a compressed matrix cannot be reused as a target
// buffer.  Reset always panics with ErrCompressedMisuse.
func (m *Matrix) Reset() {
	panic(ErrCompressedMisuse)
}

func cloneInts(s []int) []int {
	res := make([]int, len(s))
	copy(res, s)
	return res
}

func cloneFloats(s []float64) []float64 {
	res := make([]float64, len(s))
	copy(res, s)
	return res
}
