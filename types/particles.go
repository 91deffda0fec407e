package types

import (
	"fmt"
	"math"
	"sort"
)

/*
ParticleKey packs a particle's (cpu, id) pair into a single unsigned value that
is unique within a run and sorts by cpu first, then id.
*/
type ParticleKey uint64

func NewParticleKey(cpu, id int64) (pk ParticleKey, err error) {
	var (
		limit = int64(math.MaxUint32)
	)
	if cpu < 0 || cpu > limit || id < 0 || id > limit {
		return 0, fmt.Errorf("unable to pack cpu %d and id %d into a particle key", cpu, id)
	}
	return ParticleKey(uint64(cpu)<<32 | uint64(id)), nil
}

func (pk ParticleKey) Split() (cpu, id int64) {
	cpu = int64(pk >> 32)
	id = int64(pk & math.MaxUint32)
	return
}

// Particles is a columnar view of one species, components are keyed by name
type Particles struct {
	Species string
	Reals   map[string][]float64
	Ints    map[string][]int64
	// Ordered component names as they appear on disk
	RealNames, IntNames []string
}

func NewParticles(species string) *Particles {
	return &Particles{
		Species: species,
		Reals:   make(map[string][]float64),
		Ints:    make(map[string][]int64),
	}
}

func (p *Particles) Len() int {
	if ids, ok := p.Ints["id"]; ok {
		return len(ids)
	}
	for _, name := range p.RealNames {
		return len(p.Reals[name])
	}
	return 0
}

func (p *Particles) AddReal(name string, vals []float64) {
	if _, ok := p.Reals[name]; !ok {
		p.RealNames = append(p.RealNames, name)
	}
	p.Reals[name] = vals
}

func (p *Particles) AddInt(name string, vals []int64) {
	if _, ok := p.Ints[name]; !ok {
		p.IntNames = append(p.IntNames, name)
	}
	p.Ints[name] = vals
}

// Real looks up a real component, accepting both "momentum_x" and "particle_momentum_x"
func (p *Particles) Real(name string) (vals []float64, err error) {
	var ok bool
	if vals, ok = p.Reals[trimPrefix(name)]; ok {
		return
	}
	if iv, ok := p.Ints[trimPrefix(name)]; ok {
		vals = make([]float64, len(iv))
		for i, v := range iv {
			vals[i] = float64(v)
		}
		return
	}
	return nil, fmt.Errorf("species %s has no component %q", p.Species, name)
}

func (p *Particles) Int(name string) (vals []int64, err error) {
	var ok bool
	if vals, ok = p.Ints[trimPrefix(name)]; ok {
		return
	}
	return nil, fmt.Errorf("species %s has no integer component %q", p.Species, name)
}

func (p *Particles) Has(name string) bool {
	name = trimPrefix(name)
	_, okR := p.Reals[name]
	_, okI := p.Ints[name]
	return okR || okI
}

// Keys returns the packed (cpu, id) key of every particle
func (p *Particles) Keys() (keys []ParticleKey, err error) {
	var ids, cpus []int64
	if ids, err = p.Int("id"); err != nil {
		return
	}
	if cpus, err = p.Int("cpu"); err != nil {
		cpus = make([]int64, len(ids))
		err = nil
	}
	keys = make([]ParticleKey, len(ids))
	for i := range ids {
		if keys[i], err = NewParticleKey(cpus[i], ids[i]); err != nil {
			return nil, fmt.Errorf("species %s, particle %d: %w", p.Species, i, err)
		}
	}
	return
}

// Select returns a new set holding the particles at the given indices, in order
func (p *Particles) Select(idx []int) *Particles {
	out := NewParticles(p.Species)
	for _, name := range p.RealNames {
		src := p.Reals[name]
		dst := make([]float64, len(idx))
		for i, n := range idx {
			dst[i] = src[n]
		}
		out.AddReal(name, dst)
	}
	for _, name := range p.IntNames {
		src := p.Ints[name]
		dst := make([]int64, len(idx))
		for i, n := range idx {
			dst[i] = src[n]
		}
		out.AddInt(name, dst)
	}
	return out
}

// SortedByKey returns a copy ordered by (cpu, id)
func (p *Particles) SortedByKey() (sorted *Particles, keys []ParticleKey, err error) {
	var all []ParticleKey
	if all, err = p.Keys(); err != nil {
		return
	}
	idx := make([]int, len(all))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return all[idx[a]] < all[idx[b]] })
	keys = make([]ParticleKey, len(idx))
	for i, n := range idx {
		keys[i] = all[n]
	}
	sorted = p.Select(idx)
	return
}

func trimPrefix(name string) string {
	const prefix = "particle_"
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}
