package readfiles

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/notargets/picval/types"
)

// MultiFab is the parsed VisMF header of one level, e.g. Level_0/Cell_H
type MultiFab struct {
	NComp  int
	NGhost int
	Boxes  []types.Box
	Fabs   []FabOnDisk
}

type FabOnDisk struct {
	File   string
	Offset int64
}

// FabHeader is the ASCII header preceding every FAB in a Cell_D file
type FabHeader struct {
	RealBytes int
	Order     binary.ByteOrder
	Box       types.Box
	NComp     int
	DataStart int64
}

var fabHeaderRE = regexp.MustCompile(
	`^FAB\s*\(\((\d+),\s*\(([^)]*)\)\),\((\d+),\s*\(([^)]*)\)\)\)(\(\(.*\)\))\s*(\d+)\s*$`)

func readMultiFabHeader(name string) (mf *MultiFab, err error) {
	var (
		file  *os.File
		line  string
		nBox  int
		nFabs int
	)
	if file, err = os.Open(name); err != nil {
		return nil, fmt.Errorf("unable to open multifab header: %w", err)
	}
	defer file.Close()
	lr := newLineReader(name, file)
	mf = &MultiFab{}
	if _, err = lr.readNumber(); err != nil { // version
		return
	}
	if _, err = lr.readNumber(); err != nil { // how
		return
	}
	if mf.NComp, err = lr.readNumber(); err != nil {
		return
	}
	// Ghost width is an int in older headers and an IntVect in newer ones
	if line, err = lr.getLine(); err != nil {
		return
	}
	line = strings.Trim(line, "()")
	if ng, err2 := parseInts(strings.ReplaceAll(line, ",", " ")); err2 == nil && len(ng) > 0 {
		mf.NGhost = ng[0]
	}
	// Box array: "(n 0" followed by n boxes and ")"
	if line, err = lr.getLine(); err != nil {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(line, "("))
	if len(fields) == 0 {
		return nil, lr.errorf("malformed box array header [%s]", line)
	}
	if nBox, err = strconv.Atoi(fields[0]); err != nil {
		return nil, lr.errorf("box count: %v", err)
	}
	mf.Boxes = make([]types.Box, nBox)
	for n := 0; n < nBox; n++ {
		if line, err = lr.getLine(); err != nil {
			return
		}
		if mf.Boxes[n], err = types.ParseBox(line); err != nil {
			return nil, lr.errorf("%v", err)
		}
	}
	if line, err = lr.getLine(); err != nil {
		return
	}
	if line != ")" {
		return nil, lr.errorf("expected end of box array, found [%s]", line)
	}
	if nFabs, err = lr.readNumber(); err != nil {
		return
	}
	if nFabs != nBox {
		return nil, lr.errorf("%d fabs on disk for %d boxes", nFabs, nBox)
	}
	mf.Fabs = make([]FabOnDisk, nFabs)
	for n := 0; n < nFabs; n++ {
		if line, err = lr.getLine(); err != nil {
			return
		}
		fields = strings.Fields(line)
		if len(fields) != 3 || fields[0] != "FabOnDisk:" {
			return nil, lr.errorf("malformed FabOnDisk entry [%s]", line)
		}
		mf.Fabs[n].File = fields[1]
		if mf.Fabs[n].Offset, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
			return nil, lr.errorf("fab offset: %v", err)
		}
	}
	return
}

// ParseFabHeader decodes a FAB header line such as
// FAB ((8, (64 11 52 0 1 12 0 1023)),(8, (8 7 6 5 4 3 2 1)))((0,0,0) (31,31,31) (0,0,0)) 3
func ParseFabHeader(line string) (fh FabHeader, err error) {
	m := fabHeaderRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		err = fmt.Errorf("malformed FAB header %q", line)
		return
	}
	if fh.RealBytes, err = strconv.Atoi(m[3]); err != nil {
		return
	}
	if fh.RealBytes != 4 && fh.RealBytes != 8 {
		err = fmt.Errorf("unsupported real size %d in FAB header", fh.RealBytes)
		return
	}
	var order []int
	if order, err = parseInts(m[4]); err != nil || len(order) != fh.RealBytes {
		err = fmt.Errorf("malformed byte order %q in FAB header", m[4])
		return
	}
	// (1 2 ... n) is big endian, (n ... 2 1) little endian
	if order[0] == 1 {
		fh.Order = binary.BigEndian
	} else {
		fh.Order = binary.LittleEndian
	}
	if fh.Box, err = types.ParseBox(m[5]); err != nil {
		return
	}
	fh.NComp, err = strconv.Atoi(m[6])
	return
}

func readFabHeader(f *os.File, offset int64) (fh FabHeader, err error) {
	if _, err = f.Seek(offset, io.SeekStart); err != nil {
		return
	}
	var line string
	if line, err = bufio.NewReader(f).ReadString('\n'); err != nil {
		err = fmt.Errorf("unable to read FAB header at offset %d: %w", offset, err)
		return
	}
	if fh, err = ParseFabHeader(line); err != nil {
		return
	}
	fh.DataStart = offset + int64(len(line))
	return
}

// readFabComponent reads component comp of the FAB at fod into a float64 slice of npts values
func readFabComponent(dir string, fod FabOnDisk, comp int) (fh FabHeader, data []float64, err error) {
	var (
		f *os.File
	)
	if f, err = os.Open(filepath.Join(dir, fod.File)); err != nil {
		return
	}
	defer f.Close()
	if fh, err = readFabHeader(f, fod.Offset); err != nil {
		return
	}
	if comp < 0 || comp >= fh.NComp {
		err = fmt.Errorf("component %d out of range for FAB with %d components", comp, fh.NComp)
		return
	}
	npts := fh.Box.NumPts()
	start := fh.DataStart + int64(comp)*int64(npts)*int64(fh.RealBytes)
	if _, err = f.Seek(start, io.SeekStart); err != nil {
		return
	}
	data, err = readReals(bufio.NewReader(f), fh.Order, fh.RealBytes, npts)
	return
}

func readReals(r io.Reader, order binary.ByteOrder, realBytes, n int) (data []float64, err error) {
	data = make([]float64, n)
	switch realBytes {
	case 8:
		err = binary.Read(r, order, data)
	case 4:
		buf := make([]float32, n)
		if err = binary.Read(r, order, buf); err != nil {
			return
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
	default:
		err = fmt.Errorf("unsupported real size %d", realBytes)
	}
	return
}

// MultiFab returns the lazily parsed VisMF header of a level
func (pf *Plotfile) MultiFab(lev int) (mf *MultiFab, err error) {
	if lev < 0 || lev >= len(pf.Levels) {
		return nil, fmt.Errorf("level %d out of range, finest level is %d", lev, pf.FinestLevel)
	}
	pf.mu.Lock()
	defer pf.mu.Unlock()
	l := pf.Levels[lev]
	if l.mf == nil {
		if l.mf, err = readMultiFabHeader(filepath.Join(pf.Dir, l.CellPrefix+"_H")); err != nil {
			return nil, err
		}
	}
	return l.mf, nil
}

func (pf *Plotfile) levelDir(lev int) string {
	return filepath.Join(pf.Dir, filepath.Dir(pf.Levels[lev].CellPrefix))
}

// CoveringGrid assembles a uniform level 0 array of the named field over the whole domain
func (pf *Plotfile) CoveringGrid(field string) (f *types.Field, err error) {
	var (
		mf   *MultiFab
		comp = pf.fieldIndex(field)
		dom  = pf.ProbDomain[0]
	)
	if comp < 0 {
		return nil, fmt.Errorf("plotfile %s has no field %q, available: %v", pf.Dir, field, pf.VarNames)
	}
	if mf, err = pf.MultiFab(0); err != nil {
		return
	}
	f = types.NewField(field, pf.DomainDimensions())
	for n, fod := range mf.Fabs {
		var (
			fh   FabHeader
			data []float64
		)
		if fh, data, err = readFabComponent(pf.levelDir(0), fod, comp); err != nil {
			return nil, fmt.Errorf("field %s, box %d: %w", field, n, err)
		}
		b, sz := fh.Box, fh.Box.Size()
		for k := 0; k < sz[2]; k++ {
			for j := 0; j < sz[1]; j++ {
				for i := 0; i < sz[0]; i++ {
					iv := types.IntVect{b.Lo[0] + i, b.Lo[1] + j, b.Lo[2] + k}
					// Ghost cells are outside the valid box of the domain
					if !dom.Contains(iv) {
						continue
					}
					f.Set(iv[0]-dom.Lo[0], iv[1]-dom.Lo[1], iv[2]-dom.Lo[2],
						data[i+sz[0]*(j+sz[1]*k)])
				}
			}
		}
	}
	return
}

// LevelAbsSum returns sum(|Q|) of the named field over the valid cells of every box on a level
func (pf *Plotfile) LevelAbsSum(lev int, field string) (sum float64, err error) {
	var (
		mf   *MultiFab
		comp = pf.fieldIndex(field)
	)
	if comp < 0 {
		return 0, fmt.Errorf("plotfile %s has no field %q", pf.Dir, field)
	}
	if mf, err = pf.MultiFab(lev); err != nil {
		return
	}
	for n, fod := range mf.Fabs {
		var (
			fh   FabHeader
			data []float64
		)
		if fh, data, err = readFabComponent(pf.levelDir(lev), fod, comp); err != nil {
			return 0, fmt.Errorf("field %s, level %d, box %d: %w", field, lev, n, err)
		}
		valid, sz := mf.Boxes[n], fh.Box.Size()
		for k := 0; k < sz[2]; k++ {
			for j := 0; j < sz[1]; j++ {
				for i := 0; i < sz[0]; i++ {
					iv := types.IntVect{fh.Box.Lo[0] + i, fh.Box.Lo[1] + j, fh.Box.Lo[2] + k}
					if valid.Contains(iv) {
						sum += math.Abs(data[i+sz[0]*(j+sz[1]*k)])
					}
				}
			}
		}
	}
	return
}
