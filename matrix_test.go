package compress

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMatrixDecompressMatchesDense(t *testing.T) {
	for _, f := range allFixtures() {
		m := f.build()
		checkDense(t, f.name, m.Decompress(1), f.ref())
	}
}

func TestMatrixAt(t *testing.T) {
	for _, f := range allFixtures() {
		m := f.build()
		m.ClearCache()
		ref := f.ref()
		for r := 0; r < f.r; r++ {
			for c := 0; c < f.c; c++ {
				if got, want := m.At(r, c), ref.At(r, c); got != want {
					t.Errorf("%s: At(%d,%d): got=%v want=%v", f.name, r, c, got, want)
				}
			}
		}
	}
}

func TestMatrixAggregates(t *testing.T) {
	ops := []AggOp{AggSum, AggSumSq, AggMean, AggMin, AggMax, AggProduct}
	for _, f := range allFixtures() {
		ref := f.ref()
		for _, op := range ops {
			m := f.build()
			if got, want := m.Aggregate(op, 1), denseAggregate(ref, op); math.Abs(got-want) > 1e-12 {
				t.Errorf("%s: aggregate %v: got=%v want=%v", f.name, op, got, want)
			}
			m = f.build()
			checkDense(t, f.name+" rows "+op.String(), m.AggregateRows(op, 1), denseAggregateRows(ref, op))
			m = f.build()
			checkDense(t, f.name+" cols "+op.String(), m.AggregateCols(op, 1), denseAggregateCols(ref, op))
		}
	}
}

func TestMatrixAggregateScenario(t *testing.T) {
	// a 3x3 constant matrix compresses to one CONST group
	f := constFixture()
	m := f.build()
	if got := m.Aggregate(AggSum, 1); got != 12 {
		t.Errorf("sum: got=%v want=12", got)
	}
	colSums := m.AggregateCols(AggSum, 1)
	want := mat.NewDense(1, 3, []float64{3, 3, 6})
	checkDense(t, "colSums", colSums, want)
	if got := m.Aggregate(AggMin, 1); got != 1 {
		t.Errorf("min: got=%v want=1", got)
	}
	if got := m.Aggregate(AggMax, 1); got != 2 {
		t.Errorf("max: got=%v want=2", got)
	}
}

func TestIdentityRowSums(t *testing.T) {
	m := identityFixture().build()
	rowSums := m.AggregateRows(AggSum, 1)
	want := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	checkDense(t, "identity row sums", rowSums, want)
	if m.NNZ() != 4 {
		t.Errorf("identity nnz: got=%d want=4", m.NNZ())
	}
}

func TestMatrixApplyScalar(t *testing.T) {
	ops := []struct {
		name string
		op   ScalarOp
	}{
		{name: "mul", op: ScalarMul(2.5)},
		{name: "add", op: ScalarAdd(-1)},
		{name: "div", op: ScalarDiv(4)},
		{name: "generic", op: ScalarApply(func(v float64) float64 { return v*v + 1 })},
	}
	for _, f := range allFixtures() {
		for _, test := range ops {
			m := f.build()
			got := m.ApplyScalar(test.op, 1)

			want := mat.NewDense(f.r, f.c, nil)
			applyDense(want, f.ref(), test.op.fn)
			checkDense(t, f.name+" scalar "+test.name, got.Decompress(1), want)
		}
	}
}

func TestMatrixBinaryCellRowVector(t *testing.T) {
	ops := []struct {
		name string
		op   BinaryOp
	}{
		{name: "plus", op: Plus},
		{name: "minus", op: Minus},
		{name: "times", op: Times},
		{name: "div", op: Div},
		{name: "leq", op: LessEq},
		{name: "greater", op: Greater},
	}
	for _, f := range allFixtures() {
		v := make([]float64, f.c)
		for j := range v {
			v[j] = float64(j) - 1.5
		}
		rhs := mat.NewDense(1, f.c, v)
		for _, test := range ops {
			m := f.build()
			got := m.BinaryCell(test.op, rhs, false, 1)

			want := mat.NewDense(f.r, f.c, nil)
			ref := f.ref()
			for r := 0; r < f.r; r++ {
				for c := 0; c < f.c; c++ {
					want.Set(r, c, test.op.Apply(ref.At(r, c), v[c]))
				}
			}
			var gd *mat.Dense
			switch g := got.(type) {
			case *Matrix:
				gd = g.Decompress(1)
			case *mat.Dense:
				gd = g
			}
			checkDense(t, f.name+" row "+test.name, gd, want)
		}
	}
}

func TestMatrixBinaryCellScalar(t *testing.T) {
	for _, f := range allFixtures() {
		m := f.build()
		rhs := mat.NewDense(1, 1, []float64{2})
		got := m.BinaryCell(Times, rhs, false, 1)
		want := mat.NewDense(f.r, f.c, nil)
		applyDense(want, f.ref(), func(v float64) float64 { return v * 2 })
		checkDense(t, f.name+" scalar broadcast", got.(*Matrix).Decompress(1), want)
	}
}

func TestMatrixBinaryCellMatrix(t *testing.T) {
	f := mixedFixture()
	m := f.build()
	rhs := mat.NewDense(f.r, f.c, nil)
	for r := 0; r < f.r; r++ {
		for c := 0; c < f.c; c++ {
			rhs.Set(r, c, float64(r*f.c+c)/10)
		}
	}
	got := m.BinaryCell(Plus, rhs, false, 1)
	want := mat.NewDense(f.r, f.c, nil)
	want.Add(f.ref(), rhs)
	checkDense(t, "full matrix rhs", got, want)
	if _, dense := got.(*mat.Dense); !dense {
		t.Errorf("full matrix rhs should produce a dense result")
	}
}

func TestMatrixReplace(t *testing.T) {
	var tests = []struct {
		f       fixture
		pattern float64
		repl    float64
	}{
		{f: constFixture(), pattern: 2, repl: -3},
		{f: identityFixture(), pattern: 0, repl: 0.5},
		{f: mixedFixture(), pattern: 5, repl: 0},
		{f: mixedFixture(), pattern: 0, repl: 9},
	}
	for _, test := range tests {
		m := test.f.build()
		got := m.ReplaceValue(test.pattern, test.repl, 1)

		want := mat.NewDense(test.f.r, test.f.c, nil)
		applyDense(want, test.f.ref(), func(v float64) float64 {
			if v == test.pattern {
				return test.repl
			}
			return v
		})
		checkDense(t, test.f.name+" replace", got.Decompress(1), want)
	}
}

func TestMatrixSliceCols(t *testing.T) {
	f := mixedFixture()
	var tests = []struct{ cl, cu int }{
		{0, 7}, {0, 2}, {1, 4}, {2, 3}, {4, 7},
	}
	for _, test := range tests {
		m := f.build()
		got := m.Slice(0, f.r, test.cl, test.cu, 1)
		if gr, gc := got.Dims(); gr != f.r || gc != test.cu-test.cl {
			t.Fatalf("slice [%d,%d): dims got=(%d,%d)", test.cl, test.cu, gr, gc)
		}
		want := mat.DenseCopyOf(f.ref().Slice(0, f.r, test.cl, test.cu))
		checkDense(t, "col slice", got.Decompress(1), want)
	}
}

func TestMatrixSliceRows(t *testing.T) {
	f := mixedFixture()
	m := f.build()
	got := m.Slice(1, 5, 1, 6, 1)
	want := mat.DenseCopyOf(f.ref().Slice(1, 5, 1, 6))
	checkDense(t, "row slice", got.Decompress(1), want)
	if len(got.Groups()) != 1 {
		t.Errorf("row slice should produce a single uncompressed group")
	}
}

func TestMatrixAppendCbind(t *testing.T) {
	a := constFixture()
	ib := CompressDense(mat.NewDense(3, 2, []float64{1, 0, 0, 1, 0, 0}), nil)
	m := a.build().Append(ib, true, 1)
	if r, c := m.Dims(); r != 3 || c != 5 {
		t.Fatalf("append dims: got=(%d,%d) want=(3,5)", r, c)
	}
	want := mat.NewDense(3, 5, []float64{
		1, 1, 2, 1, 0,
		1, 1, 2, 0, 1,
		1, 1, 2, 0, 0,
	})
	checkDense(t, "cbind", m.Decompress(1), want)
}

func TestMatrixAppendRbind(t *testing.T) {
	f := constFixture()
	m := f.build().Append(f.build(), false, 1)
	if r, c := m.Dims(); r != 6 || c != 3 {
		t.Fatalf("rbind dims: got=(%d,%d)", r, c)
	}
	want := mat.NewDense(6, 3, nil)
	want.Stack(f.ref(), f.ref())
	checkDense(t, "rbind", m.Decompress(1), want)
}

func TestMatrixContains(t *testing.T) {
	m := mixedFixture().build()
	for _, v := range []float64{7, 9, 0, 2, -1} {
		if !m.Contains(v) {
			t.Errorf("contains(%v): got=false want=true", v)
		}
	}
	if m.Contains(42) {
		t.Errorf("contains(42): got=true want=false")
	}
}

func TestMatrixMisuse(t *testing.T) {
	m := constFixture().build()
	mustPanic(t, "Set", ErrCompressedMisuse, func() { m.Set(0, 0, 1) })
	mustPanic(t, "Reset", ErrCompressedMisuse, func() { m.Reset() })
	mustPanic(t, "At out of range", mat.ErrRowAccess, func() { m.At(99, 0) })
}

func TestOverlappingContainsUnsupported(t *testing.T) {
	m, _ := overlappingProduct(t)
	mustPanic(t, "overlapping contains", ErrUnsupported, func() { m.Contains(1) })
}

func TestMatrixMemSize(t *testing.T) {
	m := mixedFixture().build()
	if m.MemSize() <= 0 {
		t.Errorf("mem size should be positive")
	}
	d := constFixture().build()
	if d.MemSize() >= m.MemSize() {
		t.Errorf("const fixture should report a smaller footprint than mixed")
	}
}

func TestRecomputeNonZerosCompactsToEmpty(t *testing.T) {
	m := CompressDense(mat.NewDense(3, 2, make([]float64, 6)), nil)
	if m.NNZ() != 0 {
		t.Fatalf("nnz: got=%d want=0", m.NNZ())
	}
	if len(m.Groups()) != 1 {
		t.Fatalf("groups: got=%d want=1", len(m.Groups()))
	}
	if _, ok := m.Groups()[0].(*EmptyGroup); !ok {
		t.Errorf("all zero matrix should compact to a single EMPTY group")
	}
}

func TestOverlappingApplyScalar(t *testing.T) {
	ops := []struct {
		name       string
		op         ScalarOp
		compressed bool
	}{
		{name: "mul", op: ScalarMul(-0.5), compressed: true},
		{name: "add", op: ScalarAdd(3), compressed: true},
		{name: "generic", op: ScalarApply(math.Abs), compressed: false},
	}
	for _, test := range ops {
		om, ref := overlappingProduct(t)
		got := om.ApplyScalar(test.op, 1)
		r, c := ref.Dims()
		want := mat.NewDense(r, c, nil)
		applyDense(want, ref, test.op.fn)
		checkDense(t, "overlapping scalar "+test.name, got.Decompress(1), want)
		if test.compressed && len(got.Groups()) < 2 {
			t.Errorf("%s: overlapping scalar op should stay compressed", test.name)
		}
	}
}

func TestOverlappingBinaryRowVector(t *testing.T) {
	om, ref := overlappingProduct(t)
	_, c := ref.Dims()
	v := make([]float64, c)
	for j := range v {
		v[j] = float64(j + 1)
	}
	rhs := mat.NewDense(1, c, v)

	got := om.BinaryCell(Minus, rhs, false, 1)
	gm, ok := got.(*Matrix)
	if !ok {
		t.Fatalf("additive row op on overlapping matrix should stay compressed")
	}
	r, _ := ref.Dims()
	want := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			want.Set(i, j, ref.At(i, j)-v[j])
		}
	}
	checkDense(t, "overlapping minus row vector", gm.Decompress(1), want)
}

func TestAllocateColGroupListValidatesOverlap(t *testing.T) {
	m := constFixture().build()
	g1 := NewConstGroup([]int{0, 1, 2}, 3, NewDict([]float64{1, 1, 2}))
	g2 := NewEmptyGroup([]int{1}, 3)
	mustPanic(t, "overlapping list", ErrOverlapping, func() {
		m.AllocateColGroupList([]ColGroup{g1, g2})
	})
	partial := NewEmptyGroup([]int{0}, 3)
	mustPanic(t, "partial cover", mat.ErrShape, func() {
		m.AllocateColGroupList([]ColGroup{partial})
	})
}

func TestMatrixT(t *testing.T) {
	f := constFixture()
	m := f.build()
	want := mat.DenseCopyOf(f.ref().T())
	if !mat.Equal(m.T(), want) {
		t.Errorf("transpose mismatch")
	}
}
