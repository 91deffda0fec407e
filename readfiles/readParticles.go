package readfiles

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/notargets/picval/types"
)

// ParticleHeader is the parsed <species>/Header of a particle container
type ParticleHeader struct {
	Version      string
	Dim          int
	RealNames    []string // excluding positions
	IntNames     []string
	IsCheckpoint bool
	NParticles   int64
	NextID       int64
	FinestLevel  int
	Grids        [][]ParticleGrid // per level
	RealBytes    int
}

type ParticleGrid struct {
	Which  int
	Count  int
	Offset int64
}

var positionNames = [3]string{"position_x", "position_y", "position_z"}

// Species lists the particle containers stored in the plotfile, sorted by name
func (pf *Plotfile) Species() (species []string, err error) {
	var entries []os.DirEntry
	if entries, err = os.ReadDir(pf.Dir); err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var b []byte
		if b, err = readFirstBytes(filepath.Join(pf.Dir, e.Name(), "Header"), 8); err != nil {
			err = nil
			continue
		}
		if strings.HasPrefix(string(b), "Version_") {
			species = append(species, e.Name())
		}
	}
	sort.Strings(species)
	return
}

func (pf *Plotfile) HasSpecies(name string) bool {
	_, err := os.Stat(filepath.Join(pf.Dir, name, "Header"))
	return err == nil
}

func readFirstBytes(name string, n int) (b []byte, err error) {
	var f *os.File
	if f, err = os.Open(name); err != nil {
		return
	}
	defer f.Close()
	b = make([]byte, n)
	_, err = io.ReadFull(f, b)
	return
}

func ReadParticleHeader(name string) (ph *ParticleHeader, err error) {
	var (
		file *os.File
		line string
		n    int
	)
	if file, err = os.Open(name); err != nil {
		return nil, fmt.Errorf("unable to open particle header: %w", err)
	}
	defer file.Close()
	lr := newLineReader(name, file)
	ph = &ParticleHeader{}
	if ph.Version, err = lr.getLine(); err != nil {
		return
	}
	switch {
	case !strings.HasPrefix(ph.Version, "Version_Two_Dot_"):
		return nil, lr.errorf("unsupported particle version %q", ph.Version)
	case strings.HasSuffix(ph.Version, "_double"):
		ph.RealBytes = 8
	case strings.HasSuffix(ph.Version, "_single"):
		ph.RealBytes = 4
	default:
		return nil, lr.errorf("unknown real precision in %q", ph.Version)
	}
	if ph.Dim, err = lr.readNumber(); err != nil {
		return
	}
	if n, err = lr.readNumber(); err != nil {
		return
	}
	ph.RealNames = make([]string, n)
	for i := range ph.RealNames {
		if ph.RealNames[i], err = lr.getLine(); err != nil {
			return
		}
	}
	if n, err = lr.readNumber(); err != nil {
		return
	}
	ph.IntNames = make([]string, n)
	for i := range ph.IntNames {
		if ph.IntNames[i], err = lr.getLine(); err != nil {
			return
		}
	}
	if n, err = lr.readNumber(); err != nil {
		return
	}
	ph.IsCheckpoint = n != 0
	if line, err = lr.getLine(); err != nil {
		return
	}
	if ph.NParticles, err = strconv.ParseInt(line, 10, 64); err != nil {
		return nil, lr.errorf("particle count: %v", err)
	}
	if line, err = lr.getLine(); err != nil {
		return
	}
	if ph.NextID, err = strconv.ParseInt(line, 10, 64); err != nil {
		return nil, lr.errorf("next id: %v", err)
	}
	if ph.FinestLevel, err = lr.readNumber(); err != nil {
		return
	}
	ph.Grids = make([][]ParticleGrid, ph.FinestLevel+1)
	for lev := range ph.Grids {
		var nGrids int
		if nGrids, err = lr.readNumber(); err != nil {
			return
		}
		ph.Grids[lev] = make([]ParticleGrid, nGrids)
		for g := 0; g < nGrids; g++ {
			var vals []int
			if line, err = lr.getLine(); err != nil {
				return
			}
			if vals, err = parseInts(line); err != nil || len(vals) != 3 {
				return nil, lr.errorf("malformed grid entry [%s]", line)
			}
			ph.Grids[lev][g] = ParticleGrid{Which: vals[0], Count: vals[1], Offset: int64(vals[2])}
		}
	}
	return
}

// ReadParticles reads every particle of a species on all levels
func (pf *Plotfile) ReadParticles(species string) (p *types.Particles, err error) {
	var (
		ph   *ParticleHeader
		sdir = filepath.Join(pf.Dir, species)
	)
	if ph, err = ReadParticleHeader(filepath.Join(sdir, "Header")); err != nil {
		return nil, fmt.Errorf("species %s: %w", species, err)
	}
	var (
		nInt  = 2 + len(ph.IntNames)
		nReal = ph.Dim + len(ph.RealNames)
		ints  = make([][]int64, nInt)
		reals = make([][]float64, nReal)
	)
	for lev, grids := range ph.Grids {
		for _, g := range grids {
			if g.Count == 0 {
				continue
			}
			name := filepath.Join(sdir, fmt.Sprintf("Level_%d", lev), fmt.Sprintf("DATA_%05d", g.Which))
			if err = readParticleGrid(name, g, ph, ints, reals); err != nil {
				return nil, fmt.Errorf("species %s: %w", species, err)
			}
		}
	}
	p = types.NewParticles(species)
	p.AddInt("id", ints[0])
	p.AddInt("cpu", ints[1])
	for i, name := range ph.IntNames {
		p.AddInt(name, ints[2+i])
	}
	for d := 0; d < ph.Dim; d++ {
		p.AddReal(positionNames[d], reals[d])
	}
	for i, name := range ph.RealNames {
		p.AddReal(name, reals[ph.Dim+i])
	}
	if int64(p.Len()) != ph.NParticles {
		return nil, fmt.Errorf("species %s: header declares %d particles, read %d", species, ph.NParticles, p.Len())
	}
	return
}

// Particle data is stored per grid as count*(2+nint) int32 values followed by
// count*(dim+nreal) reals, both particle-major
func readParticleGrid(name string, g ParticleGrid, ph *ParticleHeader, ints [][]int64, reals [][]float64) (err error) {
	var (
		f     *os.File
		nInt  = len(ints)
		nReal = len(reals)
	)
	if f, err = os.Open(name); err != nil {
		return
	}
	defer f.Close()
	if _, err = f.Seek(g.Offset, io.SeekStart); err != nil {
		return
	}
	r := bufio.NewReader(f)
	ibuf := make([]int32, g.Count*nInt)
	if err = binary.Read(r, binary.LittleEndian, ibuf); err != nil {
		return fmt.Errorf("%s: integer data: %w", name, err)
	}
	var rbuf []float64
	if rbuf, err = readReals(r, binary.LittleEndian, ph.RealBytes, g.Count*nReal); err != nil {
		return fmt.Errorf("%s: real data: %w", name, err)
	}
	for n := 0; n < g.Count; n++ {
		for c := 0; c < nInt; c++ {
			ints[c] = append(ints[c], int64(ibuf[n*nInt+c]))
		}
		for c := 0; c < nReal; c++ {
			reals[c] = append(reals[c], rbuf[n*nReal+c])
		}
	}
	return
}
