/*
Package SpaceChargeInit checks the space charge field initialization of a
Gaussian beam against the analytic field of a Gaussian charge distribution. In
2D the z direction is treated as y.
*/
package SpaceChargeInit

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"

	"github.com/notargets/picval/readfiles"
	"github.com/notargets/picval/regression_tests"
	"github.com/notargets/picval/types"
	"github.com/notargets/picval/utils"
)

const (
	Qtot         = -1.e-20
	R0           = 2.e-6
	ToleranceRel = 0.165
	// rtol of the elementwise comparison, atol is ToleranceRel*max(E_th)
	Rtol = 1.e-5
)

type Analysis struct {
	*regression_tests.Config
	Filename string
}

func New(cfg *regression_tests.Config, filename string) *Analysis {
	return &Analysis{Config: cfg, Filename: filename}
}

// Beam is a Gaussian charge distribution of total charge Qtot and rms radius R0
type Beam struct {
	Qtot, R0 float64
}

// Field2D is the field of the beam at (x, y) in 2D. The charge is divided by R0
// to obtain a line charge density.
func (b Beam) Field2D(x, y float64) (ex, ey float64) {
	r2 := x*x + y*y
	if r2 == 0 {
		return
	}
	factor := (b.Qtot / b.R0) / (2 * math.Pi * utils.Epsilon0 * r2) * (1 - math.Exp(-r2/(2*b.R0*b.R0)))
	return x * factor, y * factor
}

func (b Beam) Field3D(x, y, z float64) (ex, ey, ez float64) {
	r2 := x*x + y*y + z*z
	if r2 == 0 {
		return
	}
	factor := b.Qtot / (4 * math.Pi * utils.Epsilon0 * math.Pow(r2, 1.5)) *
		mathext.GammaIncReg(1.5, r2/(2*b.R0*b.R0))
	return factor * x, factor * y, factor * z
}

// Theory evaluates the beam field at the cell centers of the plotfile domain
func (b Beam) Theory(pf *readfiles.Plotfile) (fields []*types.Field, err error) {
	var (
		ndims = pf.Dimensionality()
		n     = pf.DomainDimensions()
		lo    = pf.DomainLeftEdge()
		w     = pf.DomainWidth()
		x     = utils.CellCenters(lo[0], w[0], n[0])
		y     = utils.CellCenters(lo[1], w[1], n[1])
		z     = utils.CellCenters(lo[2], w[2], n[2])
	)
	switch ndims {
	case 2:
		ex, ey := types.NewField("Ex", n), types.NewField("Ey", n)
		for j := 0; j < n[1]; j++ {
			for i := 0; i < n[0]; i++ {
				vx, vy := b.Field2D(x[i], y[j])
				ex.Set(i, j, 0, vx)
				ey.Set(i, j, 0, vy)
			}
		}
		return []*types.Field{ex, ey}, nil
	case 3:
		ex, ey, ez := types.NewField("Ex", n), types.NewField("Ey", n), types.NewField("Ez", n)
		for k := 0; k < n[2]; k++ {
			for j := 0; j < n[1]; j++ {
				for i := 0; i < n[0]; i++ {
					vx, vy, vz := b.Field3D(x[i], y[j], z[k])
					ex.Set(i, j, k, vx)
					ey.Set(i, j, k, vy)
					ez.Set(i, j, k, vz)
				}
			}
		}
		return []*types.Field{ex, ey, ez}, nil
	}
	return nil, fmt.Errorf("space charge field is only known in 2D and 3D, domain has %d dimensions", ndims)
}

func (a *Analysis) Run(ctx context.Context) (err error) {
	pf, err := a.Plotfile(a.Filename)
	if err != nil {
		return
	}
	beam := Beam{Qtot: a.Constant("Qtot", Qtot), R0: a.Constant("R0", R0)}
	theory, err := beam.Theory(pf)
	if err != nil {
		return
	}
	// In 2D the simulation's Ez plays the role of Ey
	names := []string{"Ex", "Ez"}
	if len(theory) == 3 {
		names = []string{"Ex", "Ey", "Ez"}
	}
	for n, th := range theory {
		var sim *types.Field
		if !pf.HasField(names[n]) {
			return fmt.Errorf("test %s: %s has no %s field", a.TestName, a.Filename, names[n])
		}
		if sim, err = pf.CoveringGrid(names[n]); err != nil {
			return
		}
		if err = a.check(sim, th); err != nil {
			return
		}
	}
	opts := a.ChecksumOptions()
	opts.DoParticles = false
	return a.EvaluateChecksum(ctx, a.Filename, opts)
}

func (a *Analysis) check(sim, th *types.Field) (err error) {
	var (
		tol   = a.Constant("ToleranceRel", ToleranceRel)
		thMax = floats.Max(th.Data)
		ok    bool
	)
	if ok, err = utils.AllClose(sim.Data, th.Data, a.Constant("Rtol", Rtol), tol*thMax); err != nil {
		return fmt.Errorf("test %s, field %s: %w", a.TestName, th.Name, err)
	}
	relErr := utils.MaxAbsDiff(sim.Data, th.Data) / thMax
	a.Log().Info("space charge field", zap.String("field", th.Name), zap.Float64("relative_error", relErr))
	return a.Require(th.Name+" space charge field", ok, relErr, tol)
}
