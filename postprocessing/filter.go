// Package postprocessing checks the particle filters of reduced plotfile
// diagnostics against the full particle output of the same step.
package postprocessing

import (
	"fmt"
	"math"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/notargets/picval/types"
)

// Filter decides whether a particle is kept by a diagnostic
type Filter func(x, y, z, px, py, pz, w float64, id, cpu int64) bool

const filterSource = `package main

import "math"

var _ = math.Sqrt

func Keep(x, y, z, px, py, pz, w float64, id, cpu int64) bool {
	return %s
}
`

// CompileFilter interprets a Go boolean expression over x y z px py pz w (float64)
// and id cpu (int64). The math package is available.
func CompileFilter(expression string) (f Filter, err error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("empty filter expression")
	}
	i := interp.New(interp.Options{})
	if err = i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("unable to load interpreter symbols: %w", err)
	}
	if _, err = i.Eval(fmt.Sprintf(filterSource, expression)); err != nil {
		return nil, fmt.Errorf("unable to compile filter %q: %w", expression, err)
	}
	v, err := i.Eval("main.Keep")
	if err != nil {
		return nil, fmt.Errorf("unable to compile filter %q: %w", expression, err)
	}
	keep, ok := v.Interface().(func(x, y, z, px, py, pz, w float64, id, cpu int64) bool)
	if !ok {
		return nil, fmt.Errorf("filter %q does not evaluate to a boolean", expression)
	}
	return keep, nil
}

// Apply returns the indices of the particles kept by the filter. Components missing
// from the species (y in 2D, cpu) are zero.
func (f Filter) Apply(p *types.Particles) (idx []int, err error) {
	var (
		n    = p.Len()
		cols = make([][]float64, 7)
		id   []int64
		cpu  []int64
	)
	for c, name := range []string{"position_x", "position_y", "position_z",
		"momentum_x", "momentum_y", "momentum_z", "weight"} {
		if !p.Has(name) {
			cols[c] = make([]float64, n)
			continue
		}
		if cols[c], err = p.Real(name); err != nil {
			return
		}
	}
	if id, err = p.Int("id"); err != nil {
		return
	}
	if cpu, err = p.Int("cpu"); err != nil {
		cpu, err = make([]int64, n), nil
	}
	for i := 0; i < n; i++ {
		if f(cols[0][i], cols[1][i], cols[2][i], cols[3][i], cols[4][i], cols[5][i], cols[6][i], id[i], cpu[i]) {
			idx = append(idx, i)
		}
	}
	return
}

// CheckParticleFilter applies the expression to the full particle set and requires
// the result to match the filtered diagnostic component by component
func CheckParticleFilter(full, filtered *types.Particles, expression string) (err error) {
	var (
		f   Filter
		idx []int
	)
	if f, err = CompileFilter(expression); err != nil {
		return
	}
	if idx, err = f.Apply(full); err != nil {
		return
	}
	want, wantKeys, err := full.Select(idx).SortedByKey()
	if err != nil {
		return
	}
	got, gotKeys, err := filtered.SortedByKey()
	if err != nil {
		return
	}
	if len(wantKeys) != len(gotKeys) {
		return fmt.Errorf("filter %q on species %s: expected %d particles, diagnostic has %d",
			expression, full.Species, len(wantKeys), len(gotKeys))
	}
	for i := range wantKeys {
		if wantKeys[i] != gotKeys[i] {
			cpu, id := wantKeys[i].Split()
			return fmt.Errorf("filter %q on species %s: particle (cpu %d, id %d) differs from the diagnostic",
				expression, full.Species, cpu, id)
		}
	}
	for _, name := range want.RealNames {
		var g []float64
		if g, err = got.Real(name); err != nil {
			return
		}
		for i, v := range want.Reals[name] {
			if g[i] != v && !(math.IsNaN(g[i]) && math.IsNaN(v)) {
				return fmt.Errorf("filter %q on species %s: component %s differs at particle %d: %g != %g",
					expression, full.Species, name, i, g[i], v)
			}
		}
	}
	for _, name := range want.IntNames {
		var g []int64
		if g, err = got.Int(name); err != nil {
			return
		}
		for i, v := range want.Ints[name] {
			if g[i] != v {
				return fmt.Errorf("filter %q on species %s: component %s differs at particle %d: %d != %d",
					expression, full.Species, name, i, g[i], v)
			}
		}
	}
	return
}

// CheckRandomFilter requires the filtered particles to be a subset of the full set
// and their number to be within 5 binomial standard deviations of fraction*N
func CheckRandomFilter(full, filtered *types.Particles, fraction float64) (err error) {
	var (
		fullKeys, filteredKeys []types.ParticleKey
	)
	if fraction < 0 || fraction > 1 {
		return fmt.Errorf("random filter fraction %g outside [0,1]", fraction)
	}
	if fullKeys, err = full.Keys(); err != nil {
		return
	}
	if filteredKeys, err = filtered.Keys(); err != nil {
		return
	}
	present := make(map[types.ParticleKey]bool, len(fullKeys))
	for _, k := range fullKeys {
		present[k] = true
	}
	for _, k := range filteredKeys {
		if !present[k] {
			cpu, id := k.Split()
			return fmt.Errorf("random filter on species %s: particle (cpu %d, id %d) is not in the full output",
				full.Species, cpu, id)
		}
	}
	var (
		n        = float64(len(fullKeys))
		expected = fraction * n
		sigma    = math.Sqrt(n * fraction * (1 - fraction))
		diff     = math.Abs(float64(len(filteredKeys)) - expected)
	)
	if diff > 5*sigma {
		return fmt.Errorf("random filter on species %s: %d particles kept, expected %g +/- %g",
			full.Species, len(filteredKeys), expected, 5*sigma)
	}
	return
}
