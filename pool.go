package compress

import (
	"sync"
)

const (
	pooledFloatSize = 200
	pooledIntSize   = 200
)

var (
	floatPool = sync.Pool{
		New: func() interface{} {
			return make([]float64, pooledFloatSize)
		},
	}
	intPool = sync.Pool{
		New: func() interface{} {
			return make([]int, pooledIntSize)
		},
	}
)

// getFloats returns a []float64 of length l. If clear is true,
// the slice visible is zeroed.
func getFloats(l int, clear bool) []float64 {
	w := floatPool.Get().([]float64)
	return useFloats(w, l, clear)
}

// putFloats replaces a used []float64 into the appropriate size
// workspace pool. putFloats must not be called with a slice
// where references to the underlying data have been kept.
func putFloats(w []float64) {
	if cap(w) > pooledFloatSize {
		floatPool.Put(w)
	}
}

// getInts returns a []int of length l. If clear is true,
// the slice visible is zeroed.
func getInts(l int, clear bool) []int {
	w := intPool.Get().([]int)
	return useInts(w, l, clear)
}

// putInts replaces a used []int into the pool.
func putInts(w []int) {
	if cap(w) > pooledIntSize {
		intPool.Put(w)
	}
}

// useFloats returns a []float64 of length l. If the cap of the given
// slice is less than l a new slice is allocated, otherwise the given
// slice is resliced.  If clear is true, the slice visible is zeroed.
func useFloats(w []float64, l int, clear bool) []float64 {
	if l <= cap(w) {
		w = w[:l]
		if clear {
			for i := range w {
				w[i] = 0
			}
		}
		return w
	}
	return make([]float64, l)
}

// useInts returns a []int of length l. If the cap of the given
// slice is less than l a new slice is allocated, otherwise the given
// slice is resliced.  If clear is true, the slice visible is zeroed.
func useInts(w []int, l int, clear bool) []int {
	if l <= cap(w) {
		w = w[:l]
		if clear {
			for i := range w {
				w[i] = 0
			}
		}
		return w
	}
	return make([]int, l)
}
