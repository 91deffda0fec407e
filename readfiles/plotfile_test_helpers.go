package readfiles

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/notargets/picval/types"
)

// TestPlotfile describes a synthetic single level plotfile for tests
type TestPlotfile struct {
	Dim         int
	Time        float64
	Step        int
	ProbLo      [3]float64
	ProbHi      [3]float64
	NCell       types.IntVect
	MaxGridSize int // boxes are chopped to this size in every direction, 0 means one box
	Coord       types.CoordSys
	Fields      []*types.Field // full domain arrays, field names become plotfile variables
	Particles   []*types.Particles
	Params      map[string]string
	Single      bool // write particle reals as float32
}

// WritePlotfile writes tp to dir in the AMReX plotfile layout read by OpenPlotfile
func WritePlotfile(dir string, tp *TestPlotfile) (err error) {
	if err = os.MkdirAll(filepath.Join(dir, "Level_0"), 0755); err != nil {
		return
	}
	for d := tp.Dim; d < 3; d++ {
		tp.NCell[d] = 1
	}
	boxes := tp.chopDomain()
	if err = tp.writeHeader(dir, boxes); err != nil {
		return
	}
	if err = tp.writeFabs(filepath.Join(dir, "Level_0"), boxes); err != nil {
		return
	}
	for _, p := range tp.Particles {
		if err = tp.writeSpecies(filepath.Join(dir, p.Species), p); err != nil {
			return
		}
	}
	if tp.Params != nil {
		var buf bytes.Buffer
		keys := make([]string, 0, len(tp.Params))
		for k := range tp.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&buf, "%s = %s\n", k, tp.Params[k])
		}
		err = os.WriteFile(filepath.Join(dir, usedInputsFile), buf.Bytes(), 0644)
	}
	return
}

func (tp *TestPlotfile) chopDomain() (boxes []types.Box) {
	var (
		size = tp.MaxGridSize
		n    = tp.NCell
	)
	if size <= 0 {
		size = n[0] * n[1] * n[2]
	}
	for k := 0; k < n[2]; k += size {
		for j := 0; j < n[1]; j += size {
			for i := 0; i < n[0]; i += size {
				b := types.Box{Dim: tp.Dim}
				lo := types.IntVect{i, j, k}
				for d := 0; d < tp.Dim; d++ {
					b.Lo[d] = lo[d]
					b.Hi[d] = min(lo[d]+size, n[d]) - 1
				}
				boxes = append(boxes, b)
			}
		}
	}
	return
}

func (tp *TestPlotfile) cellSize() (dx [3]float64) {
	for d := 0; d < tp.Dim; d++ {
		dx[d] = (tp.ProbHi[d] - tp.ProbLo[d]) / float64(tp.NCell[d])
	}
	return
}

func joinFloats(vals []float64) string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = fmt.Sprintf("%.17g", v)
	}
	return strings.Join(s, " ")
}

func (tp *TestPlotfile) writeHeader(dir string, boxes []types.Box) error {
	var (
		buf bytes.Buffer
		dx  = tp.cellSize()
		dom = types.Box{Dim: tp.Dim}
	)
	for d := 0; d < tp.Dim; d++ {
		dom.Hi[d] = tp.NCell[d] - 1
	}
	fmt.Fprintln(&buf, "HyperCLaw-V1.1")
	fmt.Fprintln(&buf, len(tp.Fields))
	for _, f := range tp.Fields {
		fmt.Fprintln(&buf, f.Name)
	}
	fmt.Fprintln(&buf, tp.Dim)
	fmt.Fprintf(&buf, "%.17g\n", tp.Time)
	fmt.Fprintln(&buf, 0)
	fmt.Fprintln(&buf, joinFloats(tp.ProbLo[:tp.Dim]))
	fmt.Fprintln(&buf, joinFloats(tp.ProbHi[:tp.Dim]))
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, dom.String())
	fmt.Fprintln(&buf, tp.Step)
	fmt.Fprintln(&buf, joinFloats(dx[:tp.Dim]))
	fmt.Fprintln(&buf, int(tp.Coord))
	fmt.Fprintln(&buf, 0)
	fmt.Fprintf(&buf, "0 %d %.17g\n", len(boxes), tp.Time)
	fmt.Fprintln(&buf, tp.Step)
	for _, b := range boxes {
		for d := 0; d < tp.Dim; d++ {
			lo := tp.ProbLo[d] + float64(b.Lo[d])*dx[d]
			hi := tp.ProbLo[d] + float64(b.Hi[d]+1)*dx[d]
			fmt.Fprintf(&buf, "%.17g %.17g\n", lo, hi)
		}
	}
	fmt.Fprintln(&buf, "Level_0/Cell")
	return os.WriteFile(filepath.Join(dir, "Header"), buf.Bytes(), 0644)
}

func (tp *TestPlotfile) writeFabs(levelDir string, boxes []types.Box) (err error) {
	var (
		data    bytes.Buffer
		hdr     bytes.Buffer
		offsets = make([]int, len(boxes))
	)
	for n, b := range boxes {
		offsets[n] = data.Len()
		fmt.Fprintf(&data, "FAB ((8, (64 11 52 0 1 12 0 1023)),(8, (8 7 6 5 4 3 2 1)))%s %d\n",
			b.String(), len(tp.Fields))
		sz := b.Size()
		for _, f := range tp.Fields {
			vals := make([]float64, 0, b.NumPts())
			for k := 0; k < sz[2]; k++ {
				for j := 0; j < sz[1]; j++ {
					for i := 0; i < sz[0]; i++ {
						vals = append(vals, f.At(b.Lo[0]+i, b.Lo[1]+j, b.Lo[2]+k))
					}
				}
			}
			if err = binary.Write(&data, binary.LittleEndian, vals); err != nil {
				return
			}
		}
	}
	fmt.Fprintln(&hdr, 1)
	fmt.Fprintln(&hdr, 0)
	fmt.Fprintln(&hdr, len(tp.Fields))
	fmt.Fprintln(&hdr, 0)
	fmt.Fprintf(&hdr, "(%d 0\n", len(boxes))
	for _, b := range boxes {
		fmt.Fprintln(&hdr, b.String())
	}
	fmt.Fprintln(&hdr, ")")
	fmt.Fprintln(&hdr, len(boxes))
	for n := range boxes {
		fmt.Fprintf(&hdr, "FabOnDisk: Cell_D_00000 %d\n", offsets[n])
	}
	if err = os.WriteFile(filepath.Join(levelDir, "Cell_D_00000"), data.Bytes(), 0644); err != nil {
		return
	}
	return os.WriteFile(filepath.Join(levelDir, "Cell_H"), hdr.Bytes(), 0644)
}

func (tp *TestPlotfile) writeSpecies(sdir string, p *types.Particles) (err error) {
	var (
		realNames, intNames []string
		isPosition          = map[string]bool{}
		count               = p.Len()
	)
	if err = os.MkdirAll(filepath.Join(sdir, "Level_0"), 0755); err != nil {
		return
	}
	for d := 0; d < tp.Dim; d++ {
		isPosition[positionNames[d]] = true
	}
	for _, name := range p.RealNames {
		if !isPosition[name] {
			realNames = append(realNames, name)
		}
	}
	for _, name := range p.IntNames {
		if name != "id" && name != "cpu" {
			intNames = append(intNames, name)
		}
	}
	column := func(name string) []float64 {
		if v, ok := p.Reals[name]; ok {
			return v
		}
		return make([]float64, count)
	}
	intColumn := func(name string) []int64 {
		if v, ok := p.Ints[name]; ok {
			return v
		}
		return make([]int64, count)
	}
	// Two grids exercise the per grid offsets
	var (
		data   bytes.Buffer
		splits = [][2]int{{0, count / 2}, {count / 2, count}}
		grids  []ParticleGrid
	)
	for _, s := range splits {
		grids = append(grids, ParticleGrid{Which: 0, Count: s[1] - s[0], Offset: int64(data.Len())})
		w := bufio.NewWriter(&data)
		for n := s[0]; n < s[1]; n++ {
			row := []int32{int32(intColumn("id")[n]), int32(intColumn("cpu")[n])}
			for _, name := range intNames {
				row = append(row, int32(p.Ints[name][n]))
			}
			if err = binary.Write(w, binary.LittleEndian, row); err != nil {
				return
			}
		}
		for n := s[0]; n < s[1]; n++ {
			var row []float64
			for d := 0; d < tp.Dim; d++ {
				row = append(row, column(positionNames[d])[n])
			}
			for _, name := range realNames {
				row = append(row, p.Reals[name][n])
			}
			if tp.Single {
				row32 := make([]float32, len(row))
				for i, v := range row {
					row32[i] = float32(v)
				}
				err = binary.Write(w, binary.LittleEndian, row32)
			} else {
				err = binary.Write(w, binary.LittleEndian, row)
			}
			if err != nil {
				return
			}
		}
		if err = w.Flush(); err != nil {
			return
		}
	}
	var hdr bytes.Buffer
	if tp.Single {
		fmt.Fprintln(&hdr, "Version_Two_Dot_Zero_single")
	} else {
		fmt.Fprintln(&hdr, "Version_Two_Dot_Zero_double")
	}
	fmt.Fprintln(&hdr, tp.Dim)
	fmt.Fprintln(&hdr, len(realNames))
	for _, name := range realNames {
		fmt.Fprintln(&hdr, name)
	}
	fmt.Fprintln(&hdr, len(intNames))
	for _, name := range intNames {
		fmt.Fprintln(&hdr, name)
	}
	fmt.Fprintln(&hdr, 0)
	fmt.Fprintln(&hdr, count)
	fmt.Fprintln(&hdr, count+1)
	fmt.Fprintln(&hdr, 0)
	fmt.Fprintln(&hdr, len(grids))
	for _, g := range grids {
		fmt.Fprintf(&hdr, "%d %d %d\n", g.Which, g.Count, g.Offset)
	}
	if err = os.WriteFile(filepath.Join(sdir, "Level_0", "DATA_00000"), data.Bytes(), 0644); err != nil {
		return
	}
	return os.WriteFile(filepath.Join(sdir, "Header"), hdr.Bytes(), 0644)
}

// UniformField builds a full domain field from a function of the cell indices
func UniformField(name string, n types.IntVect, fn func(i, j, k int) float64) *types.Field {
	f := types.NewField(name, n)
	for k := 0; k < f.Dims[2]; k++ {
		for j := 0; j < f.Dims[1]; j++ {
			for i := 0; i < f.Dims[0]; i++ {
				f.Set(i, j, k, fn(i, j, k))
			}
		}
	}
	return f
}
