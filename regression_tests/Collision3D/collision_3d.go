/*
Package Collision3D checks electron-ion temperature relaxation through binary
collisions in 3D. Electrons and ions start in Gaussian equilibria of different
temperatures; the drift velocity difference of every dump is compared with an
exponential fit of reference runs. The last dump is also used to check the
parser, uniform and random particle filters of the reduced diagnostics.
*/
package Collision3D

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/picval/postprocessing"
	"github.com/notargets/picval/regression_tests"
	"github.com/notargets/picval/types"
	"github.com/notargets/picval/utils"
)

const (
	// Exponential fit of the drift velocity difference a*exp(b*j)
	FitA         = 0.041817463099883
	FitB         = -0.083851393560288
	Tolerance    = 0.001
	ElectronMass = utils.ElectronMass
	IonMassRatio = 5.

	ElectronSpecies = "electron"
	IonSpecies      = "ion"

	ParserFilterExpression  = "px*py*pz < 0 && math.Sqrt(x*x+y*y+z*z) < 100"
	UniformFilterExpression = "id%11 == 0"
	RandomFilterFraction    = 0.88

	ParserFilterPrefix  = "diags/diag_parser_filter"
	UniformFilterPrefix = "diags/diag_uniform_filter"
	RandomFilterPrefix  = "diags/diag_random_filter"
)

type Analysis struct {
	*regression_tests.Config
	Filename string
	Workers  int // dumps loaded concurrently, 0 means 4
}

func New(cfg *regression_tests.Config, filename string) *Analysis {
	return &Analysis{Config: cfg, Filename: filename}
}

// dump is the reduced content of one plotfile
type dump struct {
	name string
	step int
	vxd  float64
}

// SplitDumpName splits diags/diag1000150 into the series prefix diags/diag1 and
// the iteration suffix 000150
func SplitDumpName(name string) (prefix, iteration string, err error) {
	name = strings.TrimSuffix(name, "/")
	if len(name) < 6 {
		return "", "", fmt.Errorf("plotfile name %q has no iteration suffix", name)
	}
	return name[:len(name)-6], name[len(name)-6:], nil
}

// Fit is the drift velocity difference expected at step j
func Fit(j int) float64 {
	return FitA * math.Exp(FitB*float64(j))
}

func (a *Analysis) Run(ctx context.Context) (err error) {
	prefix, lastIt, err := SplitDumpName(a.Filename)
	if err != nil {
		return
	}
	names, err := a.Glob(prefix + "*[0-9]")
	if err != nil {
		return
	}
	if len(names) == 0 {
		return fmt.Errorf("test %s: no dumps match %s*[0-9]", a.TestName, prefix)
	}
	dumps, err := a.loadDumps(ctx, names)
	if err != nil {
		return
	}
	var meanErr float64
	for _, d := range dumps {
		fit := Fit(d.step)
		meanErr += math.Abs(fit - d.vxd)
		a.Log().Debug("drift velocity", zap.String("dump", d.name), zap.Int("j", d.step),
			zap.Float64("vxd", d.vxd), zap.Float64("fit", fit))
	}
	meanErr /= float64(len(dumps))
	tol := a.Constant("Tolerance", Tolerance)
	if err = a.Require("temperature relaxation fit", meanErr < tol, meanErr, tol); err != nil {
		return
	}
	if err = a.checkFilters(lastIt); err != nil {
		return
	}
	return a.EvaluateChecksum(ctx, strings.TrimSuffix(a.Filename, "/"), a.ChecksumOptions())
}

func (a *Analysis) loadDumps(ctx context.Context, names []string) (dumps []dump, err error) {
	var (
		mu      sync.Mutex
		workers = a.Workers
	)
	if workers <= 0 {
		workers = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := a.loadDump(name)
			if err != nil {
				return err
			}
			mu.Lock()
			dumps = append(dumps, d)
			mu.Unlock()
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return
}

func (a *Analysis) loadDump(name string) (d dump, err error) {
	d.name = name
	// Dump names end in a 5 digit step
	if len(name) < 5 {
		return d, fmt.Errorf("dump %s: name too short to hold a step number", name)
	}
	if d.step, err = strconv.Atoi(name[len(name)-5:]); err != nil {
		return d, fmt.Errorf("dump %s: %w", name, err)
	}
	pf, err := a.Plotfile(name)
	if err != nil {
		return
	}
	var (
		me   = a.Constant("ElectronMass", ElectronMass)
		mi   = me * a.Constant("IonMassRatio", IonMassRatio)
		mean = func(species string) (float64, error) {
			p, err := pf.ReadParticles(species)
			if err != nil {
				return 0, err
			}
			px, err := p.Real("particle_momentum_x")
			if err != nil {
				return 0, err
			}
			return utils.Mean(px), nil
		}
		pxe, pxi float64
	)
	if pxe, err = mean(ElectronSpecies); err != nil {
		return
	}
	if pxi, err = mean(IonSpecies); err != nil {
		return
	}
	d.vxd = pxe/me/utils.SpeedOfLight - pxi/mi/utils.SpeedOfLight
	return
}

func (a *Analysis) readElectrons(name string) (p *types.Particles, err error) {
	pf, err := a.Plotfile(name)
	if err != nil {
		return
	}
	return pf.ReadParticles(ElectronSpecies)
}

func (a *Analysis) checkFilters(lastIt string) (err error) {
	var full, filtered *types.Particles
	if full, err = a.readElectrons(strings.TrimSuffix(a.Filename, "/")); err != nil {
		return
	}
	for _, check := range []struct {
		prefix, expression string
	}{
		{ParserFilterPrefix, ParserFilterExpression},
		{UniformFilterPrefix, UniformFilterExpression},
	} {
		if filtered, err = a.readElectrons(check.prefix + lastIt); err != nil {
			return
		}
		if err = postprocessing.CheckParticleFilter(full, filtered, check.expression); err != nil {
			return fmt.Errorf("test %s: %w", a.TestName, err)
		}
		a.Log().Info("particle filter matches", zap.String("diagnostic", check.prefix+lastIt),
			zap.String("filter", check.expression), zap.Int("particles", filtered.Len()))
	}
	if filtered, err = a.readElectrons(RandomFilterPrefix + lastIt); err != nil {
		return
	}
	fraction := a.Constant("RandomFilterFraction", RandomFilterFraction)
	if err = postprocessing.CheckRandomFilter(full, filtered, fraction); err != nil {
		return fmt.Errorf("test %s: %w", a.TestName, err)
	}
	a.Log().Info("random filter matches", zap.Float64("fraction", fraction),
		zap.Int("kept", filtered.Len()), zap.Int("particles", full.Len()))
	return
}
