package compress

import (
	"math"
	"testing"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

func TestGroupAtAgainstDecompress(t *testing.T) {
	f := mixedFixture()
	m := f.build()
	ref := f.ref()
	for _, g := range m.Groups() {
		for r := 0; r < f.r; r++ {
			for _, c := range g.Cols() {
				if got, want := g.At(r, c), ref.At(r, c); got != want {
					t.Errorf("%T: At(%d,%d): got=%v want=%v", g, r, c, got, want)
				}
			}
		}
		mustPanic(t, "At uncovered column", mat.ErrColAccess, func() {
			uncovered := f.c + 1
			g.At(0, uncovered)
		})
	}
}

func TestGroupDecompressRange(t *testing.T) {
	f := mixedFixture()
	m := f.build()
	ref := f.ref()
	dst := mat.NewDense(3, f.c, nil)
	for _, g := range m.Groups() {
		g.DecompressTo(dst, 2, 5, -2, 0)
	}
	want := mat.DenseCopyOf(ref.Slice(2, 5, 0, f.c))
	checkDense(t, "range decompress", dst, want)
}

func TestGroupCloneIsIndependent(t *testing.T) {
	f := mixedFixture()
	m := f.build()
	ref := f.ref()
	for _, g := range m.Groups() {
		clone := g.Clone()
		dst := mat.NewDense(f.r, f.c, nil)
		clone.DecompressTo(dst, 0, f.r, 0, 0)
		for r := 0; r < f.r; r++ {
			for _, c := range clone.Cols() {
				if dst.At(r, c) != ref.At(r, c) {
					t.Errorf("%T: clone content mismatch at (%d,%d)", g, r, c)
				}
			}
		}
	}
}

func TestGroupNNZ(t *testing.T) {
	f := mixedFixture()
	m := f.build()
	ref := f.ref()
	var want int64
	for r := 0; r < f.r; r++ {
		for c := 0; c < f.c; c++ {
			if ref.At(r, c) != 0 {
				want++
			}
		}
	}
	if m.NNZ() != want {
		t.Errorf("nnz: got=%d want=%d", m.NNZ(), want)
	}
}

func TestRLEOLECodeLookups(t *testing.T) {
	rle := NewRLEGroup([]int{0}, 6, NewDict([]float64{2, 4}), []int{0, 2, 4}, []int{0, 3, 4, 2})
	wantRLE := []int{0, 0, 0, -1, 1, 1}
	for r, want := range wantRLE {
		if got := rle.codeAt(r); got != want {
			t.Errorf("rle codeAt(%d): got=%d want=%d", r, got, want)
		}
	}

	ole := NewOLEGroup([]int{0}, 6, NewDict([]float64{3}), []int{0, 2}, []int{0, 5})
	wantOLE := []int{0, -1, -1, -1, -1, 0}
	for r, want := range wantOLE {
		if got := ole.codeAt(r); got != want {
			t.Errorf("ole codeAt(%d): got=%d want=%d", r, got, want)
		}
	}
}

func TestRLEToDDCMaterialisesZeros(t *testing.T) {
	rle := NewRLEGroup([]int{0}, 6, NewDict([]float64{2, 4}), []int{0, 2, 4}, []int{0, 3, 4, 2})
	applied := rle.ApplyScalar(ScalarAdd(1))
	ddc, ok := applied.(*DDCGroup)
	if !ok {
		t.Fatalf("non sparse safe scalar op on zero bearing RLE should materialise to DDC, got %T", applied)
	}
	want := []float64{3, 3, 3, 1, 5, 5}
	for r, w := range want {
		if got := ddc.At(r, 0); got != w {
			t.Errorf("At(%d,0): got=%v want=%v", r, got, w)
		}
	}
}

func TestSparseUncompressedGroup(t *testing.T) {
	csr := sparse.NewCSR(4, 2,
		[]int{0, 1, 1, 3, 4},
		[]int{0, 0, 1, 1},
		[]float64{1.5, 2, -1, 4},
	)
	g := NewUncompressedGroup([]int{1, 3}, csr)
	ref := mat.NewDense(4, 4, []float64{
		0, 1.5, 0, 0,
		0, 0, 0, 0,
		0, 2, 0, -1,
		0, 0, 0, 4,
	})

	dst := mat.NewDense(4, 4, nil)
	g.DecompressTo(dst, 0, 4, 0, 0)
	checkDense(t, "sparse group decompress", dst, ref)

	if got := g.Sum(false); got != 6.5 {
		t.Errorf("sum: got=%v want=6.5", got)
	}
	if got := g.Extremum(false); got != -1 {
		t.Errorf("min: got=%v want=-1", got)
	}
	if got := g.Extremum(true); got != 4 {
		t.Errorf("max: got=%v want=4", got)
	}
	if got := g.NNZ(); got != 4 {
		t.Errorf("nnz: got=%d want=4", got)
	}
	if !g.Contains(0) || !g.Contains(2) || g.Contains(9) {
		t.Errorf("contains gave wrong answers")
	}

	// zero preserving scalar ops keep the sparse embedding
	scaled := g.ApplyScalar(ScalarMul(2)).(*UncompressedGroup)
	if _, ok := scaled.Data().(*sparse.CSR); !ok {
		t.Errorf("zero preserving op should keep the CSR embedding")
	}
	shifted := g.ApplyScalar(ScalarAdd(1)).(*UncompressedGroup)
	if _, ok := shifted.Data().(*mat.Dense); !ok {
		t.Errorf("non zero preserving op should densify")
	}
}

func TestGroupRowExtremaMergesImplicitZeros(t *testing.T) {
	ole := NewOLEGroup([]int{0}, 3, NewDict([]float64{-2}), []int{0, 1}, []int{1})
	dst := []float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	ole.RowExtrema(dst, false)
	want := []float64{0, -2, 0}
	for r, w := range want {
		if dst[r] != w {
			t.Errorf("row %d min: got=%v want=%v", r, dst[r], w)
		}
	}
}

func TestConstGroupRightMult(t *testing.T) {
	g := NewConstGroup([]int{0, 1}, 3, NewDict([]float64{2, 3}))
	right := mat.NewDense(2, 2, []float64{
		1, -1,
		2, 0.5,
	})
	p := g.RightMultByMatrix(right)
	cg, ok := p.(*ConstGroup)
	if !ok {
		t.Fatalf("const right mult should stay const, got %T", p)
	}
	if cg.Dict().Value(0) != 2*1+3*2 || cg.Dict().Value(1) != 2*-1+3*0.5 {
		t.Errorf("const product tuple: got=%v", cg.Dict().values)
	}
}

func TestEmptyGroupRightMultIsNil(t *testing.T) {
	g := NewEmptyGroup([]int{0, 1}, 3)
	if g.RightMultByMatrix(mat.NewDense(2, 2, []float64{1, 2, 3, 4})) != nil {
		t.Errorf("empty group product should be nil")
	}
}

func TestGroupSliceColsEmptyIntersection(t *testing.T) {
	f := mixedFixture()
	for _, g := range f.build().Groups() {
		lo := g.Cols()[len(g.Cols())-1] + 1
		if s := g.SliceCols(lo, lo+1); s != nil && len(s.Cols()) != 0 {
			t.Errorf("%T: slice beyond the column set should be nil", g)
		}
	}
}
