package compress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestChainMult(t *testing.T) {
	x := mat.NewDense(4, 3, []float64{
		1, 0, 2,
		0, 1, 1,
		3, 0, 0,
		1, 2, 1,
	})
	m := CompressDense(x, nil)
	v := mat.NewDense(3, 1, []float64{1, -2, 0.5})

	got := m.ChainMult(v, nil, false, 2)

	var xv, want mat.Dense
	xv.Mul(x, v)
	want.Mul(x.T(), &xv)
	require.Equal(t, []int{3, 1}, dims(got))
	assert.True(t, mat.EqualApprox(got, &want, 1e-12), "t(X)(Xv) mismatch:\n got=%v\nwant=%v", mat.Formatted(got), mat.Formatted(&want))
}

func TestChainMultWeighted(t *testing.T) {
	x := mat.NewDense(4, 3, []float64{
		1, 0, 2,
		0, 1, 1,
		3, 0, 0,
		1, 2, 1,
	})
	m := CompressDense(x, nil)
	v := mat.NewDense(3, 2, []float64{1, 0, -2, 1, 0.5, 2})
	w := mat.NewDense(4, 1, []float64{0.5, 1, 2, 0})

	got := m.ChainMult(v, w, true, 1)

	var xv mat.Dense
	xv.Mul(x, v)
	weighted := mat.NewDense(4, 2, nil)
	for r := 0; r < 4; r++ {
		for c := 0; c < 2; c++ {
			weighted.Set(r, c, xv.At(r, c)*w.At(r, 0))
		}
	}
	var want mat.Dense
	want.Mul(x.T(), weighted)
	assert.True(t, mat.EqualApprox(got, &want, 1e-12), "t(X)(w.(Xv)) mismatch")
}

func TestChainMultShapeMismatch(t *testing.T) {
	m := CompressDense(mat.NewDense(2, 2, []float64{1, 2, 3, 4}), nil)
	assert.PanicsWithValue(t, mat.ErrShape, func() {
		m.ChainMult(mat.NewDense(3, 1, []float64{1, 2, 3}), nil, false, 1)
	})
}

func TestSquashCollapsesOverlap(t *testing.T) {
	om, want := overlappingProduct(t)

	s := om.Squash(1)

	require.False(t, s.IsOverlapping())
	assert.True(t, mat.EqualApprox(s.Decompress(1), want, 1e-12))
	assert.EqualValues(t, 90, s.NNZ())
}

func TestReExpand(t *testing.T) {
	codes := mat.NewDense(6, 1, []float64{1, 3, 2, 0, 3, 7})
	m := CompressDense(codes, nil)

	got := m.ReExpand(3, 1)

	want := mat.NewDense(6, 3, []float64{
		1, 0, 0,
		0, 0, 1,
		0, 1, 0,
		0, 0, 0, // zero codes expand to an all zero row
		0, 0, 1,
		0, 0, 0, // out of range codes expand to an all zero row
	})
	require.Equal(t, []int{6, 3}, dims(got))
	assert.True(t, mat.Equal(got.Decompress(1), want), "one hot expansion mismatch:\n got=%v", mat.Formatted(got.Decompress(1)))
	require.Len(t, got.Groups(), 1)
	_, isDDC := got.Groups()[0].(*DDCGroup)
	assert.True(t, isDDC, "re-expansion should produce a DDC group")
}

func TestReExpandRequiresSingleColumn(t *testing.T) {
	m := CompressDense(mat.NewDense(2, 2, []float64{1, 2, 3, 4}), nil)
	assert.PanicsWithValue(t, mat.ErrShape, func() { m.ReExpand(4, 1) })
}

func dims(m mat.Matrix) []int {
	r, c := m.Dims()
	return []int{r, c}
}
