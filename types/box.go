package types

import (
	"fmt"
	"strconv"
	"strings"
)

// IntVect is an AMReX index vector, unused directions are zero
type IntVect [3]int

// Box is an index space box with inclusive lo/hi corners
type Box struct {
	Lo, Hi IntVect
	Dim    int
}

// ParseBox parses the AMReX text form of a box, e.g. "((0,0,0) (63,63,63) (0,0,0))".
// The trailing index type triple is optional.
func ParseBox(s string) (b Box, err error) {
	var (
		groups []string
	)
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "((") {
		err = fmt.Errorf("malformed box %q", s)
		return
	}
	depth := 0
	start := -1
	for i, c := range s {
		switch c {
		case '(':
			depth++
			if depth == 2 {
				start = i + 1
			}
		case ')':
			if depth == 2 && start >= 0 {
				groups = append(groups, s[start:i])
				start = -1
			}
			depth--
		}
	}
	if depth != 0 || len(groups) < 2 {
		err = fmt.Errorf("malformed box %q", s)
		return
	}
	var lo, hi []int
	if lo, err = parseTuple(groups[0]); err != nil {
		return
	}
	if hi, err = parseTuple(groups[1]); err != nil {
		return
	}
	if len(lo) != len(hi) || len(lo) == 0 || len(lo) > 3 {
		err = fmt.Errorf("box %q has inconsistent dimensions", s)
		return
	}
	b.Dim = len(lo)
	for d := 0; d < b.Dim; d++ {
		b.Lo[d], b.Hi[d] = lo[d], hi[d]
	}
	return
}

func parseTuple(s string) (vals []int, err error) {
	for _, f := range strings.Split(s, ",") {
		var v int
		if v, err = strconv.Atoi(strings.TrimSpace(f)); err != nil {
			return nil, fmt.Errorf("bad index %q: %w", f, err)
		}
		vals = append(vals, v)
	}
	return
}

// Size returns the number of cells along each direction, 1 for unused directions
func (b Box) Size() (n IntVect) {
	for d := 0; d < 3; d++ {
		if d < b.Dim {
			n[d] = b.Hi[d] - b.Lo[d] + 1
		} else {
			n[d] = 1
		}
	}
	return
}

func (b Box) NumPts() int {
	n := b.Size()
	return n[0] * n[1] * n[2]
}

func (b Box) Contains(iv IntVect) bool {
	for d := 0; d < b.Dim; d++ {
		if iv[d] < b.Lo[d] || iv[d] > b.Hi[d] {
			return false
		}
	}
	return true
}

func (b Box) String() string {
	lo, hi, typ := make([]string, b.Dim), make([]string, b.Dim), make([]string, b.Dim)
	for d := 0; d < b.Dim; d++ {
		lo[d] = strconv.Itoa(b.Lo[d])
		hi[d] = strconv.Itoa(b.Hi[d])
		typ[d] = "0"
	}
	return fmt.Sprintf("((%s) (%s) (%s))",
		strings.Join(lo, ","), strings.Join(hi, ","), strings.Join(typ, ","))
}
