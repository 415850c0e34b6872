package compress

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// rowStripes splits [0, rows) into at most k contiguous stripes of equal
// ceiling size.  The partitioning depends only on rows and k so parallel
// kernels produce reproducible results for a fixed k; stripe assembly is
// additionally order independent for pure per row work, making decompression
// bitwise identical across all k.
func rowStripes(rows, k int) [][2]int {
	if k < 1 {
		k = 1
	}
	if k > rows {
		k = rows
	}
	if k <= 1 {
		if rows == 0 {
			return nil
		}
		return [][2]int{{0, rows}}
	}
	size := (rows + k - 1) / k
	stripes := make([][2]int, 0, k)
	for rl := 0; rl < rows; rl += size {
		ru := rl + size
		if ru > rows {
			ru = rows
		}
		stripes = append(stripes, [2]int{rl, ru})
	}
	return stripes
}

// runStripes executes fn over the row stripes of [0, rows) on up to k
// goroutines and waits for completion.
func runStripes(rows, k int, fn func(rl, ru int)) {
	stripes := rowStripes(rows, k)
	if len(stripes) <= 1 {
		for _, s := range stripes {
			fn(s[0], s[1])
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(stripes))
	for _, s := range stripes {
		go func(rl, ru int) {
			defer wg.Done()
			fn(rl, ru)
		}(s[0], s[1])
	}
	wg.Wait()
}

// Decompress materialises the matrix as dense, using up to k goroutines.
// The result is retained in the decompression cache; repeated calls return
// the cached form without recomputation.  Callers must not modify the
// returned matrix.
func (m *Matrix) Decompress(k int) *mat.Dense {
	if d := m.cache.Load(); d != nil {
		return d
	}
	m.decompressCnt.Add(1)
	dst := mat.NewDense(m.rows, m.cols, nil)
	m.decompressInto(dst, k)
	if m.overlapping {
		// the conservative bound can now be replaced with the true count
		var nnz int64
		rm := dst.RawMatrix()
		for r := 0; r < rm.Rows; r++ {
			for _, v := range rm.Data[r*rm.Stride : r*rm.Stride+rm.Cols] {
				if v != 0 {
					nnz++
				}
			}
		}
		m.nnz = nnz
	}
	m.cache.Store(dst)
	return dst
}

// decompressInto adds every group's contribution into dst.  A dense
// uncompressed group spanning the full matrix seeds the target by direct copy
// and is skipped during the additive pass.
func (m *Matrix) decompressInto(dst *mat.Dense, k int) {
	groups := m.groups
	if seed := m.seedGroup(); seed >= 0 {
		g := groups[seed].(*UncompressedGroup)
		dst.Copy(g.data)
		groups = make([]ColGroup, 0, len(m.groups)-1)
		for i, h := range m.groups {
			if i != seed {
				groups = append(groups, h)
			}
		}
	}
	runStripes(m.rows, k, func(rl, ru int) {
		for _, g := range groups {
			g.DecompressTo(dst, rl, ru, 0, 0)
		}
	})
}

// seedGroup returns the index of a dense uncompressed group covering the
// whole matrix, or -1.
func (m *Matrix) seedGroup() int {
	for i, g := range m.groups {
		u, ok := g.(*UncompressedGroup)
		if !ok {
			continue
		}
		if _, dense := u.data.(*mat.Dense); !dense {
			continue
		}
		if len(u.cols) != m.cols {
			continue
		}
		full := true
		for j, c := range u.cols {
			if c != j {
				full = false
				break
			}
		}
		if full {
			return i
		}
	}
	return -1
}

// CachedDecompressed returns the cached dense form if one is live, without
// forcing decompression.  Callers must tolerate a nil result.
func (m *Matrix) CachedDecompressed() *mat.Dense {
	return m.cache.Load()
}

// ClearCache drops the cached dense form.  The host memory manager calls
// this under pressure; correctness never depends on the cache surviving.
func (m *Matrix) ClearCache() {
	m.cache.Store(nil)
}

// Decompressions returns the number of decompression passes performed.  The
// counter excludes cache hits and is primarily an observability hook.
func (m *Matrix) Decompressions() uint64 {
	return m.decompressCnt.Load()
}
