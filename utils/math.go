package utils

import (
	"math"
)

func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

// POW is an integer power, small exponents avoid math.Pow
func POW(x float64, p int) (y float64) {
	if p < 0 {
		return 1. / POW(x, -p)
	}
	if p > 8 {
		return math.Pow(x, float64(p))
	}
	y = 1
	for ; p > 0; p-- {
		y *= x
	}
	return
}

// RoundHalfEven rounds to the nearest integer, ties go to the even neighbor
func RoundHalfEven(x float64) int {
	return int(math.RoundToEven(x))
}

// Sign returns -1, 0 or 1
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
