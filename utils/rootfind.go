package utils

import (
	"fmt"
	"math"
)

const (
	RootTol     = 1.e-14
	RootMaxIter = 200
)

/*
FindRoot returns x with f(x) = 0 starting from the guess x0. A bracket is grown
geometrically away from x0 until f changes sign, then refined with Brent's method.
*/
func FindRoot(f func(x float64) float64, x0 float64) (x float64, err error) {
	var (
		a, b   float64
		fa, fb float64
	)
	if fa = f(x0); fa == 0 {
		return x0, nil
	}
	if a, b, err = Bracket(f, x0); err != nil {
		return
	}
	fa, fb = f(a), f(b)
	return Brent(f, a, b, fa, fb)
}

// Bracket grows an interval around x0 until f has opposite signs at its ends
func Bracket(f func(x float64) float64, x0 float64) (a, b float64, err error) {
	var (
		step = math.Max(math.Abs(x0), 1.) * 1.e-3
		f0   = f(x0)
	)
	for n := 0; n < RootMaxIter; n++ {
		for _, s := range []float64{step, -step} {
			x := x0 + s
			fx := f(x)
			if math.IsNaN(fx) {
				continue
			}
			if fx*f0 <= 0 {
				a, b = math.Min(x0, x), math.Max(x0, x)
				return
			}
		}
		step *= 2
	}
	err = fmt.Errorf("unable to bracket a root starting from %g", x0)
	return
}

// Brent finds the root of f in [a, b] given f(a) and f(b) of opposite sign
func Brent(f func(x float64) float64, a, b, fa, fb float64) (x float64, err error) {
	if fa*fb > 0 {
		return 0, fmt.Errorf("root is not bracketed by [%g, %g]", a, b)
	}
	var (
		c, fc = a, fa
		d     = b - a
		e     = d
	)
	for iter := 0; iter < RootMaxIter; iter++ {
		if fb*fc > 0 {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol := 2*RootTol*math.Abs(b) + 0.5*RootTol
		m := 0.5 * (c - b)
		if math.Abs(m) <= tol || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q, r float64
			s := fb / fa
			if a == c {
				// Secant step
				p = 2 * m * s
				q = 1 - s
			} else {
				// Inverse quadratic interpolation
				q = fa / fc
				r = fb / fc
				p = s * (2*m*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = m
			}
		} else {
			d = m
			e = m
		}
		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else if m > 0 {
			b += tol
		} else {
			b -= tol
		}
		fb = f(b)
	}
	return b, fmt.Errorf("root finding did not converge in %d iterations", RootMaxIter)
}
