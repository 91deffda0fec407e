package types

import "fmt"

/*
Field is a uniform, cell centered array over a box, stored in Fortran order
(first index fastest). It is the result of a covering grid extraction. Unused
directions have extent 1, so a 2D field is indexed as At(i, j, 0).
*/
type Field struct {
	Name string
	Dims IntVect
	Data []float64
}

func NewField(name string, dims IntVect) *Field {
	for d := range dims {
		if dims[d] < 1 {
			dims[d] = 1
		}
	}
	return &Field{
		Name: name,
		Dims: dims,
		Data: make([]float64, dims[0]*dims[1]*dims[2]),
	}
}

func (f *Field) Index(i, j, k int) int {
	return i + f.Dims[0]*(j+f.Dims[1]*k)
}

func (f *Field) At(i, j, k int) float64 {
	return f.Data[f.Index(i, j, k)]
}

func (f *Field) Set(i, j, k int, val float64) {
	f.Data[f.Index(i, j, k)] = val
}

// Line extracts a 1D slice along direction dir through the fixed indices of the other two directions
func (f *Field) Line(dir int, fixed [2]int) (line []float64, err error) {
	if dir < 0 || dir > 2 {
		return nil, fmt.Errorf("invalid direction %d", dir)
	}
	var (
		iv IntVect
		o  = 0
	)
	for d := 0; d < 3; d++ {
		if d == dir {
			continue
		}
		if fixed[o] < 0 || fixed[o] >= f.Dims[d] {
			return nil, fmt.Errorf("index %d out of range [0,%d) in direction %d", fixed[o], f.Dims[d], d)
		}
		iv[d] = fixed[o]
		o++
	}
	line = make([]float64, f.Dims[dir])
	for n := range line {
		iv[dir] = n
		line[n] = f.At(iv[0], iv[1], iv[2])
	}
	return
}
