package readfiles

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/notargets/picval/types"
)

// Plotfile holds the metadata of an AMReX plotfile directory, field and particle
// data are read on demand
type Plotfile struct {
	Dir         string
	Version     string
	VarNames    []string
	Dim         int
	Time        float64
	FinestLevel int
	ProbLo      [3]float64
	ProbHi      [3]float64
	RefRatio    []int
	ProbDomain  []types.Box
	LevelSteps  []int
	CellSize    [][3]float64
	Coord       types.CoordSys
	Levels      []*Level

	mu     sync.Mutex
	params map[string]string
}

// Level is one refinement level of the plotfile
type Level struct {
	Level      int
	Time       float64
	Step       int
	GridLo     [][3]float64
	GridHi     [][3]float64
	CellPrefix string // e.g. Level_0/Cell
	mf         *MultiFab
}

type lineReader struct {
	name    string
	scanner *bufio.Scanner
	lineNo  int
}

func newLineReader(name string, file *os.File) *lineReader {
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	return &lineReader{name: name, scanner: sc}
}

func (lr *lineReader) getLine() (line string, err error) {
	if !lr.scanner.Scan() {
		if err = lr.scanner.Err(); err == nil {
			err = fmt.Errorf("%s: unexpected end of file after line %d", lr.name, lr.lineNo)
		}
		return
	}
	lr.lineNo++
	line = strings.TrimSpace(lr.scanner.Text())
	return
}

func (lr *lineReader) readNumber() (num int, err error) {
	var line string
	if line, err = lr.getLine(); err != nil {
		return
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, lr.errorf("unable to read number from empty line")
	}
	if num, err = strconv.Atoi(fields[0]); err != nil {
		err = lr.errorf("unable to read number from [%s]", line)
	}
	return
}

func (lr *lineReader) readFloats() (vals []float64, err error) {
	var line string
	if line, err = lr.getLine(); err != nil {
		return
	}
	return parseFloats(line)
}

func (lr *lineReader) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%s:%d: %s", lr.name, lr.lineNo, fmt.Sprintf(format, args...))
}

func parseFloats(line string) (vals []float64, err error) {
	for _, f := range strings.Fields(line) {
		var v float64
		if v, err = strconv.ParseFloat(f, 64); err != nil {
			return nil, fmt.Errorf("bad real %q: %w", f, err)
		}
		vals = append(vals, v)
	}
	return
}

func parseInts(line string) (vals []int, err error) {
	for _, f := range strings.Fields(line) {
		var v int
		if v, err = strconv.Atoi(f); err != nil {
			return nil, fmt.Errorf("bad integer %q: %w", f, err)
		}
		vals = append(vals, v)
	}
	return
}

// splitBoxes splits a line holding several boxes separated by whitespace
func splitBoxes(line string) (boxes []types.Box, err error) {
	depth, start := 0, -1
	for i, c := range line {
		switch c {
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			depth--
			if depth == 0 && start >= 0 {
				var b types.Box
				if b, err = types.ParseBox(line[start : i+1]); err != nil {
					return
				}
				boxes = append(boxes, b)
				start = -1
			}
		}
	}
	if depth != 0 {
		err = fmt.Errorf("unbalanced parentheses in %q", line)
	}
	return
}

// OpenPlotfile parses the top level Header of a plotfile directory
func OpenPlotfile(dir string) (pf *Plotfile, err error) {
	var (
		file *os.File
		name = filepath.Join(dir, "Header")
	)
	if file, err = os.Open(name); err != nil {
		return nil, fmt.Errorf("unable to open plotfile %s: %w", dir, err)
	}
	defer file.Close()
	pf = &Plotfile{Dir: filepath.Clean(dir)}
	if err = pf.readHeader(newLineReader(name, file)); err != nil {
		return nil, err
	}
	return
}

func (pf *Plotfile) readHeader(lr *lineReader) (err error) {
	var (
		line  string
		nVars int
		vals  []float64
	)
	if pf.Version, err = lr.getLine(); err != nil {
		return
	}
	if !strings.HasPrefix(pf.Version, "HyperCLaw") {
		return lr.errorf("unsupported plotfile version %q", pf.Version)
	}
	if nVars, err = lr.readNumber(); err != nil {
		return
	}
	pf.VarNames = make([]string, nVars)
	for n := 0; n < nVars; n++ {
		if pf.VarNames[n], err = lr.getLine(); err != nil {
			return
		}
	}
	if pf.Dim, err = lr.readNumber(); err != nil {
		return
	}
	if pf.Dim < 1 || pf.Dim > 3 {
		return lr.errorf("invalid dimensionality %d", pf.Dim)
	}
	if vals, err = lr.readFloats(); err != nil || len(vals) != 1 {
		return lr.errorf("unable to read time")
	}
	pf.Time = vals[0]
	if pf.FinestLevel, err = lr.readNumber(); err != nil {
		return
	}
	nLevels := pf.FinestLevel + 1
	if vals, err = lr.readFloats(); err != nil || len(vals) != pf.Dim {
		return lr.errorf("unable to read prob_lo")
	}
	copy(pf.ProbLo[:], vals)
	if vals, err = lr.readFloats(); err != nil || len(vals) != pf.Dim {
		return lr.errorf("unable to read prob_hi")
	}
	copy(pf.ProbHi[:], vals)
	if line, err = lr.getLine(); err != nil {
		return
	}
	if pf.RefRatio, err = parseInts(line); err != nil {
		return lr.errorf("ref_ratio: %v", err)
	}
	if line, err = lr.getLine(); err != nil {
		return
	}
	if pf.ProbDomain, err = splitBoxes(line); err != nil {
		return lr.errorf("prob_domain: %v", err)
	}
	if len(pf.ProbDomain) != nLevels {
		return lr.errorf("expected %d level domains, found %d", nLevels, len(pf.ProbDomain))
	}
	if line, err = lr.getLine(); err != nil {
		return
	}
	if pf.LevelSteps, err = parseInts(line); err != nil {
		return lr.errorf("level steps: %v", err)
	}
	pf.CellSize = make([][3]float64, nLevels)
	for lev := 0; lev < nLevels; lev++ {
		if vals, err = lr.readFloats(); err != nil || len(vals) != pf.Dim {
			return lr.errorf("unable to read cell size for level %d", lev)
		}
		copy(pf.CellSize[lev][:], vals)
	}
	var coord int
	if coord, err = lr.readNumber(); err != nil {
		return
	}
	pf.Coord = types.CoordSys(coord)
	if _, err = lr.readNumber(); err != nil { // boundary width
		return
	}
	pf.Levels = make([]*Level, nLevels)
	for lev := 0; lev < nLevels; lev++ {
		if pf.Levels[lev], err = readLevel(lr, pf.Dim); err != nil {
			return
		}
	}
	return
}

func readLevel(lr *lineReader, dim int) (l *Level, err error) {
	var (
		line   string
		fields []string
		nGrids int
	)
	if line, err = lr.getLine(); err != nil {
		return
	}
	if fields = strings.Fields(line); len(fields) != 3 {
		return nil, lr.errorf("malformed level line [%s]", line)
	}
	l = &Level{}
	if l.Level, err = strconv.Atoi(fields[0]); err != nil {
		return nil, lr.errorf("level number: %v", err)
	}
	if nGrids, err = strconv.Atoi(fields[1]); err != nil {
		return nil, lr.errorf("grid count: %v", err)
	}
	if l.Time, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return nil, lr.errorf("level time: %v", err)
	}
	if l.Step, err = lr.readNumber(); err != nil {
		return
	}
	l.GridLo = make([][3]float64, nGrids)
	l.GridHi = make([][3]float64, nGrids)
	for g := 0; g < nGrids; g++ {
		for d := 0; d < dim; d++ {
			var vals []float64
			if vals, err = lr.readFloats(); err != nil || len(vals) != 2 {
				return nil, lr.errorf("grid %d extent in direction %d", g, d)
			}
			l.GridLo[g][d], l.GridHi[g][d] = vals[0], vals[1]
		}
	}
	if l.CellPrefix, err = lr.getLine(); err != nil {
		return
	}
	return
}

// DomainDimensions is the number of level 0 cells per direction, 1 in unused directions
func (pf *Plotfile) DomainDimensions() types.IntVect {
	return pf.ProbDomain[0].Size()
}

func (pf *Plotfile) DomainLeftEdge() [3]float64 {
	return pf.ProbLo
}

func (pf *Plotfile) DomainWidth() (w [3]float64) {
	for d := 0; d < pf.Dim; d++ {
		w[d] = pf.ProbHi[d] - pf.ProbLo[d]
	}
	return
}

// Dimensionality counts the domain directions holding more than one cell
func (pf *Plotfile) Dimensionality() (n int) {
	for _, c := range pf.DomainDimensions() {
		if c > 1 {
			n++
		}
	}
	return
}

// CurrentTime is the simulation time the plotfile was written at
func (pf *Plotfile) CurrentTime() float64 {
	return pf.Time
}

// Step is the level 0 time step index
func (pf *Plotfile) Step() int {
	if len(pf.LevelSteps) == 0 {
		return 0
	}
	return pf.LevelSteps[0]
}

func (pf *Plotfile) HasField(name string) bool {
	return pf.fieldIndex(name) >= 0
}

func (pf *Plotfile) fieldIndex(name string) int {
	for i, v := range pf.VarNames {
		if v == name {
			return i
		}
	}
	return -1
}
