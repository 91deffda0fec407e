// Package openpmd reads particle and mesh records from openPMD time series in
// the way openPMD-viewer names them: positions x, y, z in meters, normalized
// momenta ux, uy, uz, weights w and any other scalar record by its own name.
package openpmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notargets/picval/utils"
)

// SpeedOfLight in m/s
const SpeedOfLight = utils.SpeedOfLight

// Component is one openPMD record component, either a dataset or a constant
type Component struct {
	Data     []float64
	Constant bool
	Value    float64
	Shape    []int
	UnitSI   float64
}

func (c *Component) Len() int {
	if !c.Constant {
		return len(c.Data)
	}
	n := 1
	for _, s := range c.Shape {
		n *= s
	}
	return n
}

// Values returns the component in SI units, constants are expanded to n values when
// they carry no shape
func (c *Component) Values(n int) (vals []float64) {
	unit := c.UnitSI
	if unit == 0 {
		unit = 1
	}
	if c.Constant {
		if len(c.Shape) > 0 {
			n = c.Len()
		}
		vals = make([]float64, n)
		for i := range vals {
			vals[i] = c.Value * unit
		}
		return
	}
	vals = make([]float64, len(c.Data))
	for i, v := range c.Data {
		vals[i] = v * unit
	}
	return
}

// Backend is the storage of a series. Paths are relative to an iteration, e.g.
// "particles/electron/momentum/x" or "fields/E/x".
type Backend interface {
	Iterations() ([]int, error)
	// List returns the sorted child names of a group, nil for a component
	List(iteration int, path string) ([]string, error)
	Component(iteration int, path string) (*Component, error)
	Close() error
}

type Series struct {
	Path       string
	backend    Backend
	iterations []int
}

func NewSeries(path string, b Backend) (s *Series, err error) {
	s = &Series{Path: path, backend: b}
	if s.iterations, err = b.Iterations(); err != nil {
		return nil, fmt.Errorf("openPMD series %s: %w", path, err)
	}
	if len(s.iterations) == 0 {
		return nil, fmt.Errorf("openPMD series %s has no iterations", path)
	}
	sort.Ints(s.iterations)
	return
}

// Iterations are sorted ascending
func (s *Series) Iterations() []int {
	return s.iterations
}

func (s *Series) LastIteration() int {
	return s.iterations[len(s.iterations)-1]
}

func (s *Series) Close() error {
	return s.backend.Close()
}

func (s *Series) Species(iteration int) ([]string, error) {
	return s.backend.List(iteration, "particles")
}

func (s *Series) Meshes(iteration int) ([]string, error) {
	return s.backend.List(iteration, "fields")
}

// Records lists the records of a species with their components, nil for scalar records
func (s *Series) Records(species string, iteration int) (records map[string][]string, err error) {
	var names []string
	if names, err = s.backend.List(iteration, "particles/"+species); err != nil {
		return
	}
	records = make(map[string][]string, len(names))
	for _, name := range names {
		var comps []string
		if comps, err = s.backend.List(iteration, "particles/"+species+"/"+name); err != nil {
			return
		}
		records[name] = comps
	}
	return
}

// AvailableRecordComponents lists the quantities GetParticle accepts for a species
func (s *Series) AvailableRecordComponents(species string, iteration int) (avail []string, err error) {
	var records map[string][]string
	if records, err = s.Records(species, iteration); err != nil {
		return
	}
	for rec, comps := range records {
		switch {
		case rec == "positionOffset":
		case rec == "position":
			avail = append(avail, comps...)
		case rec == "momentum":
			for _, c := range comps {
				avail = append(avail, "u"+c)
			}
		case rec == "weighting":
			avail = append(avail, "w")
		case len(comps) == 0:
			avail = append(avail, rec)
		default:
			for _, c := range comps {
				avail = append(avail, rec+"_"+c)
			}
		}
	}
	sort.Strings(avail)
	return
}

func (s *Series) HasRecordComponent(species, quantity string, iteration int) bool {
	avail, err := s.AvailableRecordComponents(species, iteration)
	if err != nil {
		return false
	}
	i := sort.SearchStrings(avail, quantity)
	return i < len(avail) && avail[i] == quantity
}

// GetParticle returns one array per requested quantity for a species at an iteration
func (s *Series) GetParticle(species string, quantities []string, iteration int) (out [][]float64, err error) {
	var n int
	if n, err = s.particleCount(species, iteration); err != nil {
		return
	}
	out = make([][]float64, len(quantities))
	for q, name := range quantities {
		if out[q], err = s.quantity(species, name, iteration, n); err != nil {
			return nil, fmt.Errorf("openPMD series %s, iteration %d, species %s: %w",
				s.Path, iteration, species, err)
		}
	}
	return
}

func (s *Series) particleCount(species string, iteration int) (n int, err error) {
	var records map[string][]string
	if records, err = s.Records(species, iteration); err != nil {
		return
	}
	for _, rec := range []string{"id", "weighting", "position"} {
		comps, ok := records[rec]
		if !ok {
			continue
		}
		path := "particles/" + species + "/" + rec
		if len(comps) > 0 {
			path += "/" + comps[0]
		}
		var c *Component
		if c, err = s.backend.Component(iteration, path); err != nil {
			return
		}
		if !c.Constant || len(c.Shape) > 0 {
			return c.Len(), nil
		}
	}
	return 0, fmt.Errorf("unable to determine particle count of species %s", species)
}

func (s *Series) component(species, path string, iteration, n int) (vals []float64, err error) {
	var c *Component
	if c, err = s.backend.Component(iteration, "particles/"+species+"/"+path); err != nil {
		return
	}
	return c.Values(n), nil
}

func (s *Series) quantity(species, name string, iteration, n int) (vals []float64, err error) {
	switch name {
	case "x", "y", "z":
		var off []float64
		if vals, err = s.component(species, "position/"+name, iteration, n); err != nil {
			return
		}
		if off, err = s.component(species, "positionOffset/"+name, iteration, n); err != nil {
			// positionOffset is optional
			return vals, nil
		}
		for i := range vals {
			vals[i] += off[i]
		}
		return
	case "ux", "uy", "uz":
		var mass []float64
		if vals, err = s.component(species, "momentum/"+name[1:], iteration, n); err != nil {
			return
		}
		if mass, err = s.component(species, "mass", iteration, n); err != nil {
			return
		}
		for i := range vals {
			vals[i] /= mass[i] * SpeedOfLight
		}
		return
	case "w":
		return s.component(species, "weighting", iteration, n)
	}
	if ind := strings.LastIndex(name, "_"); ind > 0 {
		if vals, err = s.component(species, name[:ind]+"/"+name[ind+1:], iteration, n); err == nil {
			return
		}
	}
	return s.component(species, name, iteration, n)
}

// List returns the children of a group path within an iteration, nil for a component
func (s *Series) List(iteration int, path string) ([]string, error) {
	return s.backend.List(iteration, path)
}

// Component returns a raw record component, path is relative to the iteration
func (s *Series) Component(iteration int, path string) (*Component, error) {
	return s.backend.Component(iteration, path)
}

// GetField returns a mesh record component as a flat array in SI units, use an
// empty component for scalar meshes
func (s *Series) GetField(record, component string, iteration int) (vals []float64, err error) {
	path := "fields/" + record
	if component != "" {
		path += "/" + component
	}
	var c *Component
	if c, err = s.backend.Component(iteration, path); err != nil {
		return nil, fmt.Errorf("openPMD series %s, iteration %d: %w", s.Path, iteration, err)
	}
	return c.Values(c.Len()), nil
}
