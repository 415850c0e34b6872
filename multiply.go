package compress

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// RightMult computes the matrix product m x right using up to k goroutines.
// Each column group multiplies its dictionary with right, preserving its row
// assignment, so the per group cost is proportional to the number of distinct
// tuples rather than the number of rows.
//
// The per group products all span the full column range of right.  When
// allowOverlap is true and right has more than one column the products are
// returned directly as a compressed matrix without any materialisation,
// overlapping when more than one group contributes; otherwise they are sum
// collapsed into a dense result.
// RightMult returns nil when right has no columns.
func (m *Matrix) RightMult(right mat.Matrix, k int, allowOverlap bool) mat.Matrix {
	rr, rc := right.Dims()
	if rr != m.cols {
		panic(mat.ErrShape)
	}
	if rc == 0 {
		return nil
	}
	if cm, ok := right.(*Matrix); ok {
		logFallback("right multiplication by compressed operand")
		right = cm.Decompress(k)
	}

	results := make([]ColGroup, len(m.groups))
	var wg sync.WaitGroup
	sem := make(chan struct{}, parallelism(k))
	wg.Add(len(m.groups))
	for i, g := range m.groups {
		sem <- struct{}{}
		go func(i int, g ColGroup) {
			defer wg.Done()
			results[i] = g.RightMultByMatrix(right)
			<-sem
		}(i, g)
	}
	wg.Wait()

	groups := results[:0]
	for _, g := range results {
		if g != nil {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return mat.NewDense(m.rows, rc, nil)
	}
	if allowOverlap && rc > 1 {
		out := NewMatrix(m.rows, rc, groups, true)
		out.RecomputeNonZeros()
		return out
	}
	out := mat.NewDense(m.rows, rc, nil)
	runStripes(m.rows, k, func(rl, ru int) {
		for _, g := range groups {
			g.DecompressTo(out, rl, ru, 0, 0)
		}
	})
	return out
}

// LeftMult computes the matrix product left x m using up to k goroutines.
// The output rows are partitioned into stripes; within a stripe each group
// pre aggregates the rows of left by value index and multiplies its
// dictionary once.
func (m *Matrix) LeftMult(left mat.Matrix, k int) *mat.Dense {
	lr, lc := left.Dims()
	if lc != m.rows {
		panic(mat.ErrShape)
	}
	if cm, ok := left.(*Matrix); ok {
		logFallback("left multiplication by compressed operand")
		left = cm.Decompress(k)
	}
	out := mat.NewDense(lr, m.cols, nil)
	runStripes(lr, k, func(rl, ru int) {
		for _, g := range m.groups {
			g.LeftMultByMatrix(left, out, rl, ru)
		}
	})
	return out
}

// TSMM computes transpose(m) x m using up to k goroutines, returning a dense
// cols x cols matrix.  Per group self products run on the dictionaries
// directly; with more than one group the cross products between group pairs
// are accumulated from compact decompressed panels.  The upper triangle is
// computed and mirrored into the lower.
func (m *Matrix) TSMM(k int) *mat.Dense {
	out := mat.NewDense(m.cols, m.cols, nil)
	for _, g := range m.groups {
		g.TSMM(out)
	}
	if len(m.groups) > 1 {
		m.tsmmCross(out, k)
	}
	mirrorUpper(out)
	return out
}

// tsmmCross adds the cross group products into the upper triangle of dst.
// For ordered groups a < b every (i, j) column pair contributes
// sum_r a[r,i]*b[r,j] once to the symmetric result cell; contributions on the
// diagonal count twice because both orientations collapse onto it.
func (m *Matrix) tsmmCross(dst *mat.Dense, k int) {
	panels := make([]*mat.Dense, len(m.groups))
	var wg sync.WaitGroup
	sem := make(chan struct{}, parallelism(k))
	wg.Add(len(m.groups))
	for i, g := range m.groups {
		sem <- struct{}{}
		go func(i int, g ColGroup) {
			defer wg.Done()
			panels[i] = groupPanel(g)
			<-sem
		}(i, g)
	}
	wg.Wait()

	type pair struct{ a, b int }
	var pairs []pair
	for a := range m.groups {
		for b := a + 1; b < len(m.groups); b++ {
			pairs = append(pairs, pair{a, b})
		}
	}
	accumulate := func(p pair) {
		crossTSMM(dst, panels[p.a], panels[p.b], m.groups[p.a].Cols(), m.groups[p.b].Cols())
	}
	if m.overlapping || k <= 1 {
		// overlapping groups share result cells; keep accumulation ordered
		for _, p := range pairs {
			accumulate(p)
		}
		return
	}
	wg.Add(len(pairs))
	for _, p := range pairs {
		sem <- struct{}{}
		go func(p pair) {
			defer wg.Done()
			accumulate(p)
			<-sem
		}(p)
	}
	wg.Wait()
}

// groupPanel materialises a group as a compact rows x width dense panel.
func groupPanel(g ColGroup) *mat.Dense {
	nCols := len(g.Cols())
	panel := mat.NewDense(g.NumRows(), nCols, nil)
	g.remapCols(iotaCols(nCols)).DecompressTo(panel, 0, g.NumRows(), 0, 0)
	return panel
}

// crossTSMM accumulates sum_r pa[r,i]*pb[r,j] for every column pair into the
// upper triangle of dst at (colsA[i], colsB[j]).
func crossTSMM(dst *mat.Dense, pa, pb *mat.Dense, colsA, colsB []int) {
	am := pa.RawMatrix()
	bm := pb.RawMatrix()
	dm := dst.RawMatrix()
	rows := am.Rows
	for i, a := range colsA {
		for j, b := range colsB {
			var s float64
			for r := 0; r < rows; r++ {
				s += am.Data[r*am.Stride+i] * bm.Data[r*bm.Stride+j]
			}
			if s == 0 {
				continue
			}
			switch {
			case a == b:
				dm.Data[a*dm.Stride+b] += 2 * s
			case a < b:
				dm.Data[a*dm.Stride+b] += s
			default:
				dm.Data[b*dm.Stride+a] += s
			}
		}
	}
}

// mirrorUpper copies the strict upper triangle into the lower.
func mirrorUpper(d *mat.Dense) {
	rm := d.RawMatrix()
	for i := 0; i < rm.Rows; i++ {
		for j := i + 1; j < rm.Cols; j++ {
			rm.Data[j*rm.Stride+i] = rm.Data[i*rm.Stride+j]
		}
	}
}

func parallelism(k int) int {
	if k < 1 {
		return 1
	}
	return k
}
