// Package predicate provides element-wise checks over slices. Each check
// returns a mask with one entry per input element.
package predicate

import "math"

// IsNumeric reports which values are finite (neither NaN nor ±Inf).
func IsNumeric(xs []float64) []bool {
	out := make([]bool, len(xs))
	for i, x := range xs {
		out[i] = !math.IsNaN(x) && !math.IsInf(x, 0)
	}
	return out
}

// IsValue reports which values equal v.
func IsValue[T comparable](xs []T, v T) []bool {
	out := make([]bool, len(xs))
	for i, x := range xs {
		out[i] = x == v
	}
	return out
}

// Count returns the number of true entries in mask.
func Count(mask []bool) int {
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	return n
}

// Indices returns the positions of true entries in mask.
func Indices(mask []bool) []int {
	out := make([]int, 0, Count(mask))
	for i, m := range mask {
		if m {
			out = append(out, i)
		}
	}
	return out
}
