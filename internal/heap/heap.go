// Package heap implements a min-heap over a slice ordered by a caller
// supplied comparison function.
package heap

// Push adds item to x while preserving the min-heap invariant
// determined by less.
func Push[T any](x *[]T, item T, less func(a, b T) bool) {
	*x = append(*x, item)
	up(*x, len(*x)-1, less)
}

// Pop removes and returns the smallest element of x.
// It panics if x is empty.
func Pop[T any](x *[]T, less func(a, b T) bool) T {
	h := *x
	ret := h[0]
	last := len(h) - 1
	h[0] = h[last]
	var zero T
	h[last] = zero
	h = h[:last]
	if len(h) > 0 {
		down(h, 0, less)
	}
	*x = h
	return ret
}

// Init orders x into a min-heap.
func Init[T any](x []T, less func(a, b T) bool) {
	for i := len(x)/2 - 1; i >= 0; i-- {
		down(x, i, less)
	}
}

func up[T any](x []T, i int, less func(a, b T) bool) {
	for i > 0 {
		p := (i - 1) / 2
		if !less(x[i], x[p]) {
			break
		}
		x[p], x[i] = x[i], x[p]
		i = p
	}
}

func down[T any](x []T, i int, less func(a, b T) bool) {
	for {
		l := 2*i + 1
		if l >= len(x) {
			return
		}
		c := l
		if r := l + 1; r < len(x) && less(x[r], x[l]) {
			c = r
		}
		if !less(x[c], x[i]) {
			return
		}
		x[c], x[i] = x[i], x[c]
		i = c
	}
}
