/*
Package FieldIonization checks the field ionization of a uniform nitrogen plasma
by a plane wave laser pulse: after the pulse has gone through, about 32 % of the
nitrogen ions are N5+ (Chen, JCP 2013, figure 2).
*/
package FieldIonization

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/picval/readfiles"
	"github.com/notargets/picval/regression_tests"
)

const (
	N5Fraction   = 0.32
	ToleranceRel = 0.07
	OrigZMax     = 1.5e-5
	IonSpecies   = "ions"
	// The runtime orig_z component only exists in the lab frame run
	ElectronSpecies = "electrons"
)

type Analysis struct {
	*regression_tests.Config
	Filename string
}

func New(cfg *regression_tests.Config, filename string) *Analysis {
	return &Analysis{Config: cfg, Filename: filename}
}

func (a *Analysis) Run(ctx context.Context) (err error) {
	pf, err := a.Plotfile(a.Filename)
	if err != nil {
		return
	}
	ions, err := pf.ReadParticles(IonSpecies)
	if err != nil {
		return
	}
	ilev, err := ions.Int("ionizationLevel")
	if err != nil {
		return
	}
	if len(ilev) == 0 {
		return fmt.Errorf("test %s: no %s in %s", a.TestName, IonSpecies, a.Filename)
	}
	var n5 int
	for _, l := range ilev {
		if l == 5 {
			n5++
		}
	}
	var (
		target   = a.Constant("N5Fraction", N5Fraction)
		tol      = a.Constant("ToleranceRel", ToleranceRel)
		fraction = float64(n5) / float64(len(ilev))
		errRel   = math.Abs(fraction-target) / target
	)
	a.Log().Info("ionization levels", zap.Int("ions", len(ilev)), zap.Int("N5+", n5),
		zap.Float64("N5_fraction", fraction))
	if err = a.Require("N5+ fraction", errRel < tol, errRel, tol); err != nil {
		return
	}
	if err = a.checkOrigZ(pf); err != nil {
		return
	}
	return a.EvaluateChecksum(ctx, a.Filename, a.ChecksumOptions())
}

func (a *Analysis) checkOrigZ(pf *readfiles.Plotfile) (err error) {
	if !pf.HasSpecies(ElectronSpecies) {
		return
	}
	electrons, err := pf.ReadParticles(ElectronSpecies)
	if err != nil || !electrons.Has("orig_z") {
		return
	}
	origZ, err := electrons.Real("orig_z")
	if err != nil || len(origZ) == 0 {
		return
	}
	var (
		zmax   = a.Constant("OrigZMax", OrigZMax)
		lo, hi = floats.Min(origZ), floats.Max(origZ)
		value  = hi
	)
	a.Log().Info("orig_z", zap.Float64("min", lo), zap.Float64("max", hi))
	if lo <= 0 {
		value = lo
	}
	return a.Require("orig_z in (0, OrigZMax)", lo > 0 && hi < zmax, value, zmax)
}
