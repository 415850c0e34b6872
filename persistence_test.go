package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func TestMatrixMarshalRoundTrip(t *testing.T) {
	for _, f := range allFixtures() {
		m := f.build()
		want := mat.DenseCopyOf(m.Decompress(1))

		buf, err := m.MarshalBinary()
		require.NoError(t, err, f.name)

		var got Matrix
		require.NoError(t, got.UnmarshalBinary(buf), f.name)

		assert.Equal(t, []int{f.r, f.c}, dims(&got), f.name)
		assert.Equal(t, m.NNZ(), got.NNZ(), f.name)
		assert.True(t, mat.Equal(got.Decompress(1), want), "%s: round trip content mismatch", f.name)
	}
}

func TestMatrixMarshalToLength(t *testing.T) {
	m := mixedFixture().build()
	size := m.DiskSize()

	var buf bytes.Buffer
	n, err := m.MarshalBinaryTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, size, n, "DiskSize must match the bytes written")
	assert.Equal(t, size, buf.Len())
}

func TestMarshalOverlappingRoundTrip(t *testing.T) {
	om, want := overlappingProduct(t)

	buf, err := om.MarshalBinary()
	require.NoError(t, err)

	var got Matrix
	require.NoError(t, got.UnmarshalBinary(buf))
	require.True(t, got.IsOverlapping())
	assert.True(t, mat.EqualApprox(got.Decompress(1), want, 1e-12))
}

func TestMarshalSizeAdaptiveFallback(t *testing.T) {
	// a dense random matrix has no repeated tuples, so the dictionary coded
	// layout is strictly larger than the raw dense form and the writer must
	// fall back to a single uncompressed group
	rnd := rand.New(rand.NewSource(42))
	rows, cols := 100, 100
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rnd.Float64()
	}
	d := mat.NewDense(rows, cols, data)
	m := CompressDense(d, [][]int{iotaCols(cols)})
	require.Greater(t, m.DiskSize(), estimateDenseDiskSize(rows, cols, m.NNZ()))

	buf, err := m.MarshalBinary()
	require.NoError(t, err)

	// the fallback rewrites the writer's own group list
	require.Len(t, m.Groups(), 1)
	_, unc := m.Groups()[0].(*UncompressedGroup)
	require.True(t, unc, "fallback must leave a single uncompressed group")
	assert.Nil(t, m.CachedDecompressed(), "fallback must clear the soft cache")
	assert.Equal(t, estimateDenseDiskSize(rows, cols, m.NNZ()), len(buf),
		"written length must equal the dense estimate")

	var got Matrix
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Len(t, got.Groups(), 1)
	_, unc = got.Groups()[0].(*UncompressedGroup)
	require.True(t, unc)
	assert.True(t, mat.Equal(got.Decompress(1), d))
}

func TestMarshalSparseFallbackEmbedding(t *testing.T) {
	// mostly zero random data with unique non zero values defeats the
	// dictionary but favours the sparse embedding on fallback
	rnd := rand.New(rand.NewSource(7))
	rows, cols := 60, 40
	d := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		d.Set(i, rnd.Intn(cols), rnd.Float64()+1)
	}
	m := CompressDense(d, [][]int{iotaCols(cols)})
	buf, err := m.MarshalBinary()
	require.NoError(t, err)

	var got Matrix
	require.NoError(t, got.UnmarshalBinary(buf))
	assert.True(t, mat.Equal(got.Decompress(1), d))
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	m := constFixture().build()
	buf, err := m.MarshalBinary()
	require.NoError(t, err)
	var got Matrix
	assert.Error(t, got.UnmarshalBinary(append(buf, 0)))
}

func TestUnmarshalRejectsTruncatedInput(t *testing.T) {
	m := mixedFixture().build()
	buf, err := m.MarshalBinary()
	require.NoError(t, err)
	var got Matrix
	assert.Error(t, got.UnmarshalBinary(buf[:len(buf)/2]))
}

func TestMarshalBinaryToUnmarshalBinaryFrom(t *testing.T) {
	m := identityFixture().build()
	var buf bytes.Buffer
	n, err := m.MarshalBinaryTo(&buf)
	require.NoError(t, err)

	var got Matrix
	nn, err := got.UnmarshalBinaryFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, n, nn, "reader must consume exactly the written bytes")
	assert.True(t, mat.Equal(got.Decompress(1), identityFixture().ref()))
}
