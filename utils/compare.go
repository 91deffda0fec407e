package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AllClose reports whether |a-b| <= atol + rtol*|b| elementwise, as numpy.allclose does
func AllClose(a, b []float64, rtol, atol float64) (ok bool, err error) {
	if len(a) != len(b) {
		return false, fmt.Errorf("length mismatch: %d and %d", len(a), len(b))
	}
	for i := range a {
		if !IsClose(a[i], b[i], rtol, atol) {
			return false, nil
		}
	}
	return true, nil
}

// IsClose is the scalar form of AllClose
func IsClose(a, b, rtol, atol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	if a == b {
		return true
	}
	return math.Abs(a-b) <= atol+rtol*math.Abs(b)
}

// RelativeL2Error returns ||approx - exact||_2 / ||exact||_2
func RelativeL2Error(exact, approx []float64) (e float64, err error) {
	if len(exact) != len(approx) {
		return 0, fmt.Errorf("length mismatch: %d and %d", len(exact), len(approx))
	}
	norm := floats.Norm(exact, 2)
	if norm == 0 {
		return 0, fmt.Errorf("exact solution has zero norm")
	}
	return floats.Distance(approx, exact, 2) / norm, nil
}

// MaxAbsDiff returns max |a-b|
func MaxAbsDiff(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

func SumAbs(x []float64) float64 {
	return floats.Norm(x, 1)
}

func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// PopStdDev is the population standard deviation, numpy's default
func PopStdDev(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return math.Sqrt(stat.PopVariance(x, nil))
}
