package Collision3D

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/notargets/picval/checksum"
	"github.com/notargets/picval/readfiles"
	"github.com/notargets/picval/regression_tests"
	"github.com/notargets/picval/types"
	"github.com/notargets/picval/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const nPart = 200

func electrons(vx float64) *types.Particles {
	var (
		p          = types.NewParticles(ElectronSpecies)
		id, cpu    = make([]int64, nPart), make([]int64, nPart)
		x, y, z    = make([]float64, nPart), make([]float64, nPart), make([]float64, nPart)
		px, py, pz = make([]float64, nPart), make([]float64, nPart), make([]float64, nPart)
		w          = make([]float64, nPart)
	)
	for i := 0; i < nPart; i++ {
		id[i], cpu[i] = int64(i+1), int64(i%2)
		x[i] = float64(i%30) * 5
		y[i] = float64(i%7) - 3
		z[i] = -float64(i % 11)
		px[i] = vx * utils.ElectronMass * utils.SpeedOfLight
		py[i] = float64(i%5) - 2
		pz[i] = float64(i%3) - 1
		w[i] = 1.e10
	}
	p.AddInt("id", id)
	p.AddInt("cpu", cpu)
	for _, c := range []struct {
		name string
		v    []float64
	}{{"position_x", x}, {"position_y", y}, {"position_z", z},
		{"momentum_x", px}, {"momentum_y", py}, {"momentum_z", pz}, {"weight", w}} {
		p.AddReal(c.name, c.v)
	}
	return p
}

func ions() *types.Particles {
	p := types.NewParticles(IonSpecies)
	ids := make([]int64, nPart)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	p.AddInt("id", ids)
	p.AddInt("cpu", make([]int64, nPart))
	p.AddReal("position_x", make([]float64, nPart))
	p.AddReal("position_y", make([]float64, nPart))
	p.AddReal("position_z", make([]float64, nPart))
	p.AddReal("momentum_x", make([]float64, nPart))
	return p
}

func write(t *testing.T, dir string, species ...*types.Particles) {
	t.Helper()
	n := types.IntVect{4, 4, 4}
	require.NoError(t, readfiles.WritePlotfile(dir, &readfiles.TestPlotfile{
		Dim:       3,
		ProbLo:    [3]float64{-200, -200, -200},
		ProbHi:    [3]float64{200, 200, 200},
		NCell:     n,
		Fields:    []*types.Field{readfiles.UniformField("rho", n, func(i, j, k int) float64 { return 1 })},
		Particles: species,
	}))
}

func keep(p *types.Particles, fn func(i int) bool) *types.Particles {
	var idx []int
	for i := 0; i < p.Len(); i++ {
		if fn(i) {
			idx = append(idx, i)
		}
	}
	return p.Select(idx)
}

// writeRun writes dumps at steps 0, 50 and 150 matching the fit, with an offset added
// to the drift velocity, and the three filtered diagnostics of the last step
func writeRun(t *testing.T, offset float64, brokenFilter bool) string {
	t.Helper()
	work := t.TempDir()
	var last *types.Particles
	for _, step := range []int{0, 50, 150} {
		last = electrons(Fit(step) + offset)
		write(t, filepath.Join(work, "diags", fmt.Sprintf("diag1%06d", step)), last, ions())
	}
	var (
		x, _  = last.Real("position_x")
		y, _  = last.Real("position_y")
		z, _  = last.Real("position_z")
		px, _ = last.Real("momentum_x")
		py, _ = last.Real("momentum_y")
		pz, _ = last.Real("momentum_z")
	)
	parser := keep(last, func(i int) bool {
		return px[i]*py[i]*pz[i] < 0 && math.Sqrt(x[i]*x[i]+y[i]*y[i]+z[i]*z[i]) < 100
	})
	if brokenFilter {
		parser = keep(last, func(i int) bool { return px[i]*py[i]*pz[i] < 0 })
	}
	uniform := keep(last, func(i int) bool { return last.Ints["id"][i]%11 == 0 })
	random := keep(last, func(i int) bool { return i%25 >= 3 })
	write(t, filepath.Join(work, "diags", "diag_parser_filter000150"), parser)
	write(t, filepath.Join(work, "diags", "diag_uniform_filter000150"), uniform)
	write(t, filepath.Join(work, "diags", "diag_random_filter000150"), random)
	return work
}

func TestSplitDumpName(t *testing.T) {
	prefix, it, err := SplitDumpName("diags/diag1000150/")
	require.NoError(t, err)
	assert.Equal(t, "diags/diag1", prefix)
	assert.Equal(t, "000150", it)
	_, _, err = SplitDumpName("plt")
	assert.Error(t, err)
	assert.Equal(t, FitA, Fit(0))
}

func TestCollision3D(t *testing.T) {
	work := writeRun(t, 0, false)
	ev := &checksum.RecordingEvaluator{}
	cfg := &regression_tests.Config{TestName: "collisionXYZ", WorkDir: work, Checksum: ev}
	a := New(cfg, "diags/diag1000150/")
	a.Workers = 2
	require.NoError(t, a.Run(context.Background()))
	require.Len(t, ev.Calls, 1)
	assert.Equal(t, filepath.Join(work, "diags", "diag1000150"), ev.Calls[0].Path)
}

func TestCollision3DFitFails(t *testing.T) {
	work := writeRun(t, 2*Tolerance, false)
	ev := &checksum.RecordingEvaluator{}
	err := New(&regression_tests.Config{TestName: "collisionXYZ", WorkDir: work, Checksum: ev},
		"diags/diag1000150").Run(context.Background())
	var f *regression_tests.Failure
	require.True(t, errors.As(err, &f))
	assert.InDelta(t, 2*Tolerance, f.Value, 1.e-9)
	assert.Empty(t, ev.Calls)
}

func TestCollision3DFilterFails(t *testing.T) {
	work := writeRun(t, 0, true)
	ev := &checksum.RecordingEvaluator{}
	err := New(&regression_tests.Config{TestName: "collisionXYZ", WorkDir: work, Checksum: ev},
		"diags/diag1000150").Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter")
	assert.Empty(t, ev.Calls)
}

func TestCollision3DCanceled(t *testing.T) {
	work := writeRun(t, 0, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(&regression_tests.Config{TestName: "collisionXYZ", WorkDir: work,
		Checksum: &checksum.RecordingEvaluator{}}, "diags/diag1000150").Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollision3DShortDumpName(t *testing.T) {
	// A bare step leaves an empty prefix, so every name ending in a digit matches
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, "7"), []byte("not a plotfile"), 0644))
	err := New(&regression_tests.Config{TestName: "collisionXYZ", WorkDir: work,
		Checksum: &checksum.RecordingEvaluator{}}, "000150").Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
