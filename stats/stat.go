// Package stats holds the small summary statistics used on history windows.
package stats

import (
	"errors"
	"math"
	"slices"
)

var ErrNoFiniteValues = errors.New("no finite values")

// Finite returns a copy of the values dropping NaN and infinities
func Finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Median returns the median of the finite values, averaging the two middle values of an
// even count.
func Median(vals []float64) (float64, error) {
	x := Finite(vals)
	if len(x) == 0 {
		return 0, ErrNoFiniteValues
	}
	slices.Sort(x)
	mid := len(x) / 2
	if len(x)%2 == 1 {
		return x[mid], nil
	}
	return (x[mid-1] + x[mid]) / 2, nil
}

// Tail returns a copy of at most the last n values
func Tail(vals []float64, n int) []float64 {
	if n < 0 {
		n = 0
	}
	if n > len(vals) {
		n = len(vals)
	}
	return slices.Clone(vals[len(vals)-n:])
}
