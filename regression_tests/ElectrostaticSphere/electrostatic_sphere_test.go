package ElectrostaticSphere

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/picval/checksum"
	"github.com/notargets/picval/openpmd"
	"github.com/notargets/picval/readfiles"
	"github.com/notargets/picval/regression_tests"
	"github.com/notargets/picval/types"
	"github.com/notargets/picval/utils"
)

var sphere = Sphere{Me: ElectronMass, Qe: ElectronCharge, Qtot: Qtot, R0: R0}

func TestSphereRadius(t *testing.T) {
	assert.Equal(t, 0., sphere.Time(R0))
	assert.True(t, math.IsNaN(sphere.Time(R0/2)))
	for _, r := range []float64{0.1001, 0.15, 0.2, 0.35} {
		got, err := sphere.Radius(sphere.Time(r))
		require.NoError(t, err)
		assert.InEpsilon(t, r, got, 1.e-9)
	}
	heavy := sphere
	heavy.Me = HeavyElectronMass
	got, err := heavy.Radius(heavy.Time(0.12))
	require.NoError(t, err)
	assert.InEpsilon(t, 0.12, got, 1.e-9)

	assert.Equal(t, 0., sphere.Velocity(R0))
	assert.Greater(t, sphere.Velocity(0.2), sphere.Velocity(0.15))
}

func TestSphereField(t *testing.T) {
	rEnd := 0.2
	outside := Qtot / (4 * math.Pi * utils.Epsilon0 * 0.3 * 0.3)
	assert.InEpsilon(t, outside, sphere.Field(0.3, rEnd), 1.e-12)
	assert.InEpsilon(t, -outside, sphere.Field(-0.3, rEnd), 1.e-12)
	// Continuous at the surface
	assert.InEpsilon(t, sphere.Field(rEnd, rEnd), sphere.Field(rEnd*(1-1.e-12), rEnd), 1.e-9)
	assert.Equal(t, 0., sphere.Field(0, rEnd))
}

const rEnd = 0.2

func axisField(name string, n types.IntVect, centers [3][]float64, dir int, scale float64) *types.Field {
	return readfiles.UniformField(name, n, func(i, j, k int) float64 {
		idx := [3]int{i, j, k}[dir]
		return scale * sphere.Field(centers[dir][idx], rEnd)
	})
}

func write3D(t *testing.T, scale float64) string {
	t.Helper()
	var (
		n       = types.IntVect{16, 16, 16}
		lo, hi  = [3]float64{-0.5, -0.5, -0.5}, [3]float64{0.5, 0.5, 0.5}
		centers [3][]float64
	)
	for d := 0; d < 3; d++ {
		centers[d] = utils.CellCenters(lo[d], hi[d]-lo[d], n[d])
	}
	dir := filepath.Join(t.TempDir(), "diags", "diag1000030")
	require.NoError(t, readfiles.WritePlotfile(dir, &readfiles.TestPlotfile{
		Dim:         3,
		Time:        sphere.Time(rEnd),
		Step:        30,
		ProbLo:      lo,
		ProbHi:      hi,
		NCell:       n,
		MaxGridSize: 8,
		Fields: []*types.Field{
			axisField("Ex", n, centers, 0, scale),
			axisField("Ey", n, centers, 1, scale),
			axisField("Ez", n, centers, 2, scale),
		},
		Params: map[string]string{
			"geometry.dims":    "3",
			"geometry.prob_lo": "-0.5 -0.5 -0.5",
			"geometry.prob_hi": "0.5 0.5 0.5",
			"amr.n_cell":       "16 16 16",
		},
	}))
	return dir
}

func writeRZ(t *testing.T, heavy bool) string {
	t.Helper()
	var (
		n       = types.IntVect{8, 16}
		lo, hi  = [3]float64{0, -0.5}, [3]float64{0.5, 0.5}
		centers [3][]float64
		s       = sphere
	)
	if heavy {
		s.Me = HeavyElectronMass
	}
	for d := 0; d < 2; d++ {
		centers[d] = utils.CellCenters(lo[d], hi[d]-lo[d], n[d])
	}
	dir := filepath.Join(t.TempDir(), "diags", "diag1000030")
	require.NoError(t, readfiles.WritePlotfile(dir, &readfiles.TestPlotfile{
		Dim:    2,
		Time:   s.Time(rEnd),
		ProbLo: lo,
		ProbHi: hi,
		NCell:  n,
		Coord:  types.RZ,
		Fields: []*types.Field{
			axisField("Er", n, centers, 0, 1),
			axisField("Ez", n, centers, 1, 1),
		},
		Params: map[string]string{
			"geometry.dims":    "RZ",
			"geometry.prob_lo": "0 -0.5",
			"geometry.prob_hi": "0.5 0.5",
			"amr.n_cell":       "8 16",
		},
	}))
	return dir
}

// energySeries holds 4 electrons with unit rest energy and phi = -10 at iteration 0.
// At iteration 30 phi is finalPhi and the kinetic energy takes over the potential
// energy released plus the given excess.
func energySeries(t *testing.T, withPhi bool, finalPhi, excess float64) func(string) (*openpmd.Series, error) {
	t.Helper()
	var (
		b  = openpmd.NewMemoryBackend()
		np = 4
		c  = utils.SpeedOfLight
		m  = 1 / (c * c)
		sp = "particles/" + Species + "/"
	)
	for _, it := range []int{0, 30} {
		phi, u := -10., 0.
		if it == 30 {
			// The potential energy of an electron is -phi/2
			released := (finalPhi - phi) / 2
			phi = finalPhi
			// w*m*c^2*(sqrt(1+u^2)-1) = released*(1+excess)
			g := 1 + released*(1+excess)
			u = math.Sqrt(g*g - 1)
		}
		b.SetData(it, sp+"momentum/x", utils.ConstArray(np, u*m*c))
		b.SetData(it, sp+"momentum/y", utils.ConstArray(np, 0))
		b.SetData(it, sp+"momentum/z", utils.ConstArray(np, 0))
		b.SetConstant(it, sp+"mass", m, np)
		b.SetConstant(it, sp+"charge", -1, np)
		b.SetData(it, sp+"weighting", utils.ConstArray(np, 1))
		b.SetData(it, sp+"position/x", utils.ConstArray(np, 0))
		if withPhi {
			b.SetData(it, sp+"phi", utils.ConstArray(np, phi))
		}
	}
	return func(path string) (*openpmd.Series, error) {
		return openpmd.NewSeries(path, b)
	}
}

func TestElectrostaticSphere3D(t *testing.T) {
	ev := &checksum.RecordingEvaluator{}
	cfg := &regression_tests.Config{
		TestName:   "electrostatic_sphere",
		Checksum:   ev,
		OpenSeries: energySeries(t, true, -5, 0),
	}
	require.NoError(t, New(cfg, write3D(t, 1)).Run(context.Background()))
	assert.Len(t, ev.Calls, 1)

	// Without phi only the fields are checked
	cfg.OpenSeries = energySeries(t, false, -5, 1)
	require.NoError(t, New(cfg, write3D(t, 1.02)).Run(context.Background()))
	assert.Len(t, ev.Calls, 2)
}

func TestElectrostaticSphere3DFails(t *testing.T) {
	var (
		ev  = &checksum.RecordingEvaluator{}
		f   *regression_tests.Failure
		cfg = &regression_tests.Config{
			TestName:   "electrostatic_sphere",
			Checksum:   ev,
			OpenSeries: energySeries(t, true, -5, 0),
		}
	)
	err := New(cfg, write3D(t, 1.1)).Run(context.Background())
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "L2 error along x-axis", f.Check)
	assert.InDelta(t, 0.1, f.Value, 1.e-9)

	cfg.OpenSeries = energySeries(t, true, -5, 0.01)
	err = New(cfg, write3D(t, 1)).Run(context.Background())
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "energy conservation", f.Check)
	assert.Empty(t, ev.Calls)

	// phi does not change, nothing is released
	cfg.OpenSeries = energySeries(t, true, -10, 0)
	err = New(cfg, write3D(t, 1)).Run(context.Background())
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "potential energy drop", f.Check)
	assert.InDelta(t, 20, f.Value, 1.e-9)
	assert.InDelta(t, 14, f.Tolerance, 1.e-9)
	assert.Empty(t, ev.Calls)

	cfg.OpenSeries = func(path string) (*openpmd.Series, error) {
		return nil, errors.New("no such series")
	}
	assert.Error(t, New(cfg, write3D(t, 1)).Run(context.Background()))
}

func TestElectrostaticSphereRZ(t *testing.T) {
	for _, heavy := range []bool{false, true} {
		var (
			ev   = &checksum.RecordingEvaluator{}
			name = "electrostatic_sphere_rz"
		)
		if heavy {
			name = "electrostatic_sphere_rz_emass_10"
		}
		cfg := &regression_tests.Config{TestName: name, Checksum: ev, OpenSeries: energySeries(t, false, -5, 0)}
		require.NoError(t, New(cfg, writeRZ(t, heavy)).Run(context.Background()), name)
		assert.Len(t, ev.Calls, 1)
	}
}
