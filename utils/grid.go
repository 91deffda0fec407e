package utils

// CellCenters returns the n cell centers of a uniform grid starting at xmin with total width w
func CellCenters(xmin, w float64, n int) (x []float64) {
	x = make([]float64, n)
	dx := w / float64(n)
	for i := range x {
		x[i] = xmin + dx*(0.5+float64(i))
	}
	return
}

// Linspace returns n evenly spaced values from start to stop inclusive
func Linspace(start, stop float64, n int) (x []float64) {
	if n <= 0 {
		return nil
	}
	x = make([]float64, n)
	if n == 1 {
		x[0] = start
		return
	}
	step := (stop - start) / float64(n-1)
	for i := range x {
		x[i] = start + step*float64(i)
	}
	x[n-1] = stop
	return
}
