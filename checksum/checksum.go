// Package checksum reduces simulation output to per field and per particle
// component sums of absolute values and compares them with a stored benchmark.
package checksum

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/notargets/picval/openpmd"
	"github.com/notargets/picval/readfiles"
	"github.com/notargets/picval/utils"
)

const (
	DefaultRtol = 1.e-9
	DefaultAtol = 1.e-40
)

// Data maps an outer key ("lev=0" or a species name) to quantity -> sum(|Q|)
type Data map[string]map[string]float64

func LevelKey(lev int) string {
	return "lev=" + strconv.Itoa(lev)
}

// Keys returns the sorted outer keys
func (d Data) Keys() (keys []string) {
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

// FromPlotfile sums every plotfile variable per level and every particle component per species
func FromPlotfile(pf *readfiles.Plotfile, doFields, doParticles bool) (d Data, err error) {
	d = make(Data)
	if doFields {
		for lev := 0; lev <= pf.FinestLevel; lev++ {
			lvl := make(map[string]float64, len(pf.VarNames))
			for _, name := range pf.VarNames {
				if lvl[name], err = pf.LevelAbsSum(lev, name); err != nil {
					return nil, err
				}
			}
			d[LevelKey(lev)] = lvl
		}
	}
	if doParticles {
		var species []string
		if species, err = pf.Species(); err != nil {
			return nil, err
		}
		for _, sp := range species {
			p, perr := pf.ReadParticles(sp)
			if perr != nil {
				return nil, perr
			}
			sums := make(map[string]float64)
			for _, name := range p.RealNames {
				sums["particle_"+name] = utils.SumAbs(p.Reals[name])
			}
			for _, name := range p.IntNames {
				var s float64
				for _, v := range p.Ints[name] {
					if v < 0 {
						v = -v
					}
					s += float64(v)
				}
				sums["particle_"+name] = s
			}
			d[sp] = sums
		}
	}
	return
}

// FromOpenPMD sums the mesh record components and the particle quantities (x, ux, w, ...)
// of the last iteration of a series
func FromOpenPMD(s *openpmd.Series, doFields, doParticles bool) (d Data, err error) {
	var (
		it = s.LastIteration()
	)
	d = make(Data)
	if doFields {
		var meshes []string
		if meshes, err = s.Meshes(it); err != nil {
			meshes, err = nil, nil
		}
		lvl := make(map[string]float64)
		for _, rec := range meshes {
			if err = sumRecord(s, it, "fields/"+rec, rec, lvl); err != nil {
				return nil, err
			}
		}
		if len(lvl) > 0 {
			d[LevelKey(0)] = lvl
		}
	}
	if doParticles {
		var species []string
		if species, err = s.Species(it); err != nil {
			species, err = nil, nil
		}
		for _, sp := range species {
			var (
				avail []string
				q     [][]float64
			)
			if avail, err = s.AvailableRecordComponents(sp, it); err != nil {
				return nil, err
			}
			if q, err = s.GetParticle(sp, avail, it); err != nil {
				return nil, err
			}
			sums := make(map[string]float64, len(avail))
			for i, name := range avail {
				sums[name] = utils.SumAbs(q[i])
			}
			d[sp] = sums
		}
	}
	return
}

// sumRecord adds sum(|Q|) of every component of a record, keyed name+component
func sumRecord(s *openpmd.Series, it int, path, name string, sums map[string]float64) (err error) {
	var comps []string
	if comps, err = s.List(it, path); err != nil {
		return
	}
	if len(comps) == 0 {
		var c *openpmd.Component
		if c, err = s.Component(it, path); err != nil {
			return
		}
		sums[name] = utils.SumAbs(c.Values(c.Len()))
		return
	}
	for _, comp := range comps {
		var c *openpmd.Component
		if c, err = s.Component(it, path+"/"+comp); err != nil {
			return
		}
		sums[name+comp] = utils.SumAbs(c.Values(c.Len()))
	}
	return
}

// MismatchError lists every difference between a result and its benchmark
type MismatchError struct {
	Problems []string
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("checksum comparison failed with %d problem(s)", len(e.Problems))
	for _, p := range e.Problems {
		msg += "\n  " + p
	}
	return msg
}

// Compare checks that result and benchmark have the same outer keys, the same inner
// keys and values that are close within rtol and atol
func Compare(result, benchmark Data, rtol, atol float64) error {
	var problems []string
	outerR, outerB := result.Keys(), benchmark.Keys()
	if !equalStrings(outerR, outerB) {
		return &MismatchError{Problems: []string{
			fmt.Sprintf("benchmark and output file have different outer keys: benchmark %v, output %v", outerB, outerR),
		}}
	}
	for _, k1 := range outerR {
		innerR, innerB := sortedKeys(result[k1]), sortedKeys(benchmark[k1])
		if !equalStrings(innerR, innerB) {
			problems = append(problems, fmt.Sprintf(
				"benchmark and output file have different inner keys for %s: benchmark %v, output %v",
				k1, innerB, innerR))
		}
	}
	if len(problems) > 0 {
		return &MismatchError{Problems: problems}
	}
	for _, k1 := range outerR {
		for _, k2 := range sortedKeys(result[k1]) {
			got, want := result[k1][k2], benchmark[k1][k2]
			if utils.IsClose(got, want, rtol, atol) {
				continue
			}
			absErr := got - want
			if absErr < 0 {
				absErr = -absErr
			}
			relErr := absErr
			if want != 0 {
				relErr = absErr / want
				if relErr < 0 {
					relErr = -relErr
				}
			}
			problems = append(problems, fmt.Sprintf(
				"different value for key [%s,%s]: benchmark %.16g, output %.16g, abs error %.3e, rel error %.3e",
				k1, k2, want, got, absErr, relErr))
		}
	}
	if len(problems) > 0 {
		return &MismatchError{Problems: problems}
	}
	return nil
}

func sortedKeys(m map[string]float64) (keys []string) {
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
