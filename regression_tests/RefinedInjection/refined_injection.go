/*
Package RefinedInjection checks plasma injection with warpx.refine_plasma=1 in a
moving window: the number of electrons at the end of the run follows from the
coarse and fine particle streams, and rho stays uniform across the edge of the
refined injection region.
*/
package RefinedInjection

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/notargets/picval/regression_tests"
	"github.com/notargets/picval/utils"
)

const (
	Species = "electrons"
	// Particle streams in the coarse and the fine region
	NCoarse = 10
	NFine   = 64
	// Particles per stream at time 0
	N0 = 15
	// Moving window shifts, c*t/dz on level 0
	NMove = 192
	// The refinement is transverse only
	RefRatioLongitudinal = 1

	// rho[SliceLo:SliceHi, SliceColumn] crosses the edge of the refined injection
	// region ahead of the refinement patch
	SliceLo       = 13
	SliceHi       = 51
	SliceColumn   = 475
	RhoUniformity = 0.005
)

// ExpectedElectrons is the electron count at the end of the run
func ExpectedElectrons() int {
	return (NCoarse + NFine*RefRatioLongitudinal) * (N0 + NMove)
}

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
	electrons, err := pf.ReadParticles(Species)
	if err != nil {
		return
	}
	expected := ExpectedElectrons()
	if err = a.Require("electron count", electrons.Len() == expected,
		float64(electrons.Len()-expected), 0); err != nil {
		return
	}
	rho, err := pf.CoveringGrid("rho")
	if err != nil {
		return
	}
	if SliceHi > rho.Dims[0] || SliceColumn >= rho.Dims[1] {
		return fmt.Errorf("test %s: rho of shape %v does not hold the slice [%d:%d, %d]",
			a.TestName, rho.Dims, SliceLo, SliceHi, SliceColumn)
	}
	slice := make([]float64, 0, SliceHi-SliceLo)
	for i := SliceLo; i < SliceHi; i++ {
		slice = append(slice, rho.At(i, SliceColumn, 0))
	}
	var (
		std  = utils.PopStdDev(slice)
		mean = math.Abs(utils.Mean(slice))
		tol  = a.Constant("RhoUniformity", RhoUniformity)
	)
	a.Log().Info("rho slice", zap.Float64("std", std), zap.Float64("abs_mean", mean))
	if err = a.Require("rho uniformity", std < tol*mean, std/mean, tol); err != nil {
		return
	}
	return a.EvaluateChecksum(ctx, a.Filename, a.ChecksumOptions())
}
