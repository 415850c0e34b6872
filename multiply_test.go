package compress

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestRightMultCollapsed(t *testing.T) {
	for _, f := range allFixtures() {
		right := mat.NewDense(f.c, 2, nil)
		for i := 0; i < f.c; i++ {
			right.Set(i, 0, float64(i+1))
			right.Set(i, 1, 0.5*float64(i)-1)
		}
		m := f.build()
		got := m.RightMult(right, 1, false)

		var want mat.Dense
		want.Mul(f.ref(), right)
		checkDense(t, f.name+" right mult", got, &want)
		if _, dense := got.(*mat.Dense); !dense {
			t.Errorf("%s: collapsed right mult should be dense", f.name)
		}
	}
}

// overlappingProduct builds the compressed product of a two group matrix
// with a multi column right operand, which stays compressed in overlapping
// mode, together with its dense reference.  The operand is tall with small
// per column dictionaries so the compressed layout also survives the size
// adaptive serialiser.
func overlappingProduct(t *testing.T) (*Matrix, *mat.Dense) {
	t.Helper()
	const rows = 30
	d := mat.NewDense(rows, 2, nil)
	for r := 0; r < rows; r++ {
		d.Set(r, 0, float64(r%3+1))
		d.Set(r, 1, float64(r%5+4))
	}
	m := CompressDense(d, nil)
	right := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	got := m.RightMult(right, 1, true)
	om, ok := got.(*Matrix)
	if !ok {
		t.Fatalf("overlap permitted product should stay compressed")
	}
	var want mat.Dense
	want.Mul(d, right)
	return om, &want
}

func TestRightMultOverlapping(t *testing.T) {
	om, want := overlappingProduct(t)
	if !om.IsOverlapping() {
		t.Fatalf("product should be overlapping")
	}
	if len(om.Groups()) != 2 {
		t.Fatalf("groups: got=%d want=2", len(om.Groups()))
	}
	// cell reads sum the group contributions
	rows, cols := want.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if got := om.At(r, c); got != want.At(r, c) {
				t.Errorf("At(%d,%d): got=%v want=%v", r, c, got, want.At(r, c))
			}
		}
	}
	checkDense(t, "overlapping decompress", om.Decompress(1), want)
}

func TestRightMultSingleColumnNeverOverlaps(t *testing.T) {
	m := mixedFixture().build()
	right := mat.NewDense(7, 1, []float64{1, -1, 2, 0, 1, 3, 0.5})
	got := m.RightMult(right, 1, true)
	if _, dense := got.(*mat.Dense); !dense {
		t.Errorf("single column product must collapse to dense")
	}
	var want mat.Dense
	want.Mul(mixedFixture().ref(), right)
	checkDense(t, "single col right mult", got, &want)
}

func TestLeftMult(t *testing.T) {
	for _, f := range allFixtures() {
		left := mat.NewDense(2, f.r, nil)
		for i := 0; i < f.r; i++ {
			left.Set(0, i, float64(i)-1)
			left.Set(1, i, 0.25*float64(i*i))
		}
		m := f.build()
		got := m.LeftMult(left, 1)

		var want mat.Dense
		want.Mul(left, f.ref())
		checkDense(t, f.name+" left mult", got, &want)
	}
}

func TestLeftMultParallelDeterministic(t *testing.T) {
	f := mixedFixture()
	left := mat.NewDense(5, f.r, nil)
	for i := 0; i < 5; i++ {
		for j := 0; j < f.r; j++ {
			left.Set(i, j, float64(i*j)/3-1)
		}
	}
	a := f.build().LeftMult(left, 1)
	b := f.build().LeftMult(left, 8)
	if !mat.Equal(a, b) {
		t.Errorf("left mult must be bitwise reproducible across k")
	}
}

func TestTSMM(t *testing.T) {
	for _, f := range allFixtures() {
		m := f.build()
		got := m.TSMM(1)

		var want mat.Dense
		want.Mul(f.ref().T(), f.ref())
		checkDense(t, f.name+" tsmm", got, &want)
	}
}

func TestTSMMScenarioUpperTriangle(t *testing.T) {
	m := constFixture().build()
	got := m.TSMM(1)
	want := mat.NewDense(3, 3, []float64{
		3, 3, 6,
		3, 3, 6,
		6, 6, 12,
	})
	checkDense(t, "const tsmm", got, want)

	id := identityFixture().build()
	checkDense(t, "identity tsmm", id.TSMM(1), mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}))
}

func TestTSMMOverlapping(t *testing.T) {
	om, d := overlappingProduct(t)
	got := om.TSMM(1)

	var want mat.Dense
	want.Mul(d.T(), d)
	checkDense(t, "overlapping tsmm", got, &want)
}

func TestRightMultByCompressedOperand(t *testing.T) {
	a := constFixture()
	b := CompressDense(mat.NewDense(3, 2, []float64{
		1, 0,
		2, 1,
		0, 3,
	}), nil)
	got := a.build().RightMult(b, 1, false)
	var want mat.Dense
	want.Mul(a.ref(), b.Decompress(1))
	checkDense(t, "compressed rhs", got, &want)
}
