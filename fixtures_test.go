package compress

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

// fixture pairs a compressed matrix builder with its dense reference.  The
// builders construct fresh instances per test so mutation driven tests
// (serialisation fallback, cache checks) cannot interfere with each other.
type fixture struct {
	name  string
	dense []float64
	r, c  int
	build func() *Matrix
}

// constFixture is a 3x3 matrix with a single CONST group over all columns.
func constFixture() fixture {
	return fixture{
		name: "const",
		r:    3, c: 3,
		dense: []float64{
			1, 1, 2,
			1, 1, 2,
			1, 1, 2,
		},
		build: func() *Matrix {
			g := NewConstGroup([]int{0, 1, 2}, 3, NewDict([]float64{1, 1, 2}))
			m := NewMatrix(3, 3, []ColGroup{g}, false)
			m.RecomputeNonZeros()
			return m
		},
	}
}

// identityFixture is the 4x4 identity encoded as four single column DDC
// groups, each with the distinct tuples {1, 0}.
func identityFixture() fixture {
	return fixture{
		name: "identity-ddc",
		r:    4, c: 4,
		dense: []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		},
		build: func() *Matrix {
			groups := make([]ColGroup, 4)
			for c := 0; c < 4; c++ {
				codes := []int{1, 1, 1, 1}
				codes[c] = 0
				groups[c] = NewDDCGroup([]int{c}, NewDict([]float64{1, 0}), codes)
			}
			m := NewMatrix(4, 4, groups, false)
			m.RecomputeNonZeros()
			return m
		},
	}
}

// mixedFixture exercises every dictionary coded variant plus EMPTY and
// UNCOMPRESSED in a single 6x7 matrix:
//
//	cols 0-1  DDC over co-coded tuples
//	col  2    SDC with default 5 and exceptions at rows 1 and 4
//	col  3    RLE with a zero row at row 3
//	col  4    OLE with zeros outside rows 0 and 5
//	col  5    EMPTY
//	col  6    UNCOMPRESSED dense
func mixedFixture() fixture {
	return fixture{
		name: "mixed",
		r:    6, c: 7,
		dense: []float64{
			1, 2, 5, 2, 3, 0, 0.5,
			3, 4, 7, 2, 0, 0, -1,
			1, 2, 5, 2, 0, 0, 0,
			3, 4, 5, 0, 0, 0, 2,
			1, 2, 9, 4, 0, 0, 0,
			1, 2, 5, 4, 3, 0, 1.5,
		},
		build: func() *Matrix {
			ddc := NewDDCGroup(
				[]int{0, 1},
				NewDict([]float64{1, 2, 3, 4}),
				[]int{0, 1, 0, 1, 0, 0},
			)
			sdc := NewSDCGroup(
				[]int{2}, 6,
				[]float64{5},
				NewDict([]float64{7, 9}),
				[]int{1, 4},
				[]int{0, 1},
			)
			rle := NewRLEGroup(
				[]int{3}, 6,
				NewDict([]float64{2, 4}),
				[]int{0, 2, 4},
				[]int{0, 3, 4, 2},
			)
			ole := NewOLEGroup(
				[]int{4}, 6,
				NewDict([]float64{3}),
				[]int{0, 2},
				[]int{0, 5},
			)
			empty := NewEmptyGroup([]int{5}, 6)
			unc := NewUncompressedGroup(
				[]int{6},
				mat.NewDense(6, 1, []float64{0.5, -1, 0, 2, 0, 1.5}),
			)
			m := NewMatrix(6, 7, []ColGroup{ddc, sdc, rle, ole, empty, unc}, false)
			m.RecomputeNonZeros()
			return m
		},
	}
}

func allFixtures() []fixture {
	return []fixture{constFixture(), identityFixture(), mixedFixture()}
}

func (f fixture) ref() *mat.Dense {
	return mat.NewDense(f.r, f.c, f.dense)
}

func checkDense(t *testing.T, name string, got mat.Matrix, want *mat.Dense) {
	t.Helper()
	if got == nil {
		t.Errorf("%s: got nil matrix", name)
		return
	}
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Errorf("%s: matrix mismatch.\n got=%v\nwant=%v\n",
			name, mat.Formatted(got), mat.Formatted(want))
	}
}

func mustPanic(t *testing.T, name string, want error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("%s: expected panic", name)
			return
		}
		if want != nil && r != want {
			t.Errorf("%s: panic value: got=%v want=%v", name, r, want)
		}
	}()
	fn()
}
