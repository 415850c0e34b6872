package compress

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDecompressIdempotentAndCached(t *testing.T) {
	for _, f := range allFixtures() {
		m := f.build()
		m.ClearCache()
		first := m.Decompress(1)
		second := m.Decompress(1)
		if first != second {
			t.Errorf("%s: second decompress should return the cached dense form", f.name)
		}
		if m.Decompressions() != 1 {
			t.Errorf("%s: decompression count: got=%d want=1", f.name, m.Decompressions())
		}
		checkDense(t, f.name+" repeated decompress", second, f.ref())
	}
}

func TestDecompressAfterCacheEviction(t *testing.T) {
	m := mixedFixture().build()
	m.ClearCache()
	first := mat.DenseCopyOf(m.Decompress(1))
	m.ClearCache()
	if m.CachedDecompressed() != nil {
		t.Fatalf("cache should be empty after eviction")
	}
	second := m.Decompress(1)
	if !mat.Equal(first, second) {
		t.Errorf("decompress after eviction should reproduce the same content")
	}
	if m.Decompressions() != 2 {
		t.Errorf("decompression count: got=%d want=2", m.Decompressions())
	}
}

func TestDecompressParallelBitwiseIdentical(t *testing.T) {
	for _, f := range allFixtures() {
		serial := f.build()
		serial.ClearCache()
		parallel := f.build()
		parallel.ClearCache()
		a := serial.Decompress(1)
		b := parallel.Decompress(8)
		am := a.RawMatrix()
		bm := b.RawMatrix()
		for r := 0; r < am.Rows; r++ {
			for c := 0; c < am.Cols; c++ {
				if am.Data[r*am.Stride+c] != bm.Data[r*bm.Stride+c] {
					t.Fatalf("%s: k=1 and k=8 disagree at (%d,%d)", f.name, r, c)
				}
			}
		}
	}
}

func TestDecompressSeedsFromUncompressedGroup(t *testing.T) {
	d := mat.NewDense(4, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		0, 0, 0,
		7, 8, 9,
	})
	m := NewFromDense(mat.DenseCopyOf(d))
	m.ClearCache()
	got := m.Decompress(2)
	checkDense(t, "seeded decompress", got, d)
}

func TestNewFromDensePopulatesCache(t *testing.T) {
	d := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	m := NewFromDense(d)
	if m.CachedDecompressed() != d {
		t.Errorf("construction from dense should retain the dense form in the cache")
	}
	if m.Decompress(1) != d {
		t.Errorf("decompress should serve the construction cache")
	}
	if m.Decompressions() != 0 {
		t.Errorf("cache hits must not count as decompressions")
	}
}

func TestOverlappingDecompressRefreshesNNZ(t *testing.T) {
	om, want := overlappingProduct(t)
	if om.NNZ() != 90 {
		t.Fatalf("conservative nnz: got=%d want=90", om.NNZ())
	}
	om.Decompress(1)
	var nnz int64
	rows, cols := want.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if want.At(r, c) != 0 {
				nnz++
			}
		}
	}
	if om.NNZ() != nnz {
		t.Errorf("nnz after decompress: got=%d want=%d", om.NNZ(), nnz)
	}
}
