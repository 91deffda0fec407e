package RefinedInjection

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/picval/checksum"
	"github.com/notargets/picval/readfiles"
	"github.com/notargets/picval/regression_tests"
	"github.com/notargets/picval/types"
	"github.com/notargets/picval/utils"
)

func writeRun(t *testing.T, nElectrons int, ripple float64) string {
	t.Helper()
	p := types.NewParticles(Species)
	ids := make([]int64, nElectrons)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	p.AddInt("id", ids)
	p.AddInt("cpu", make([]int64, nElectrons))
	p.AddReal("position_x", utils.ConstArray(nElectrons, 1.e-6))
	p.AddReal("position_y", utils.ConstArray(nElectrons, 2.e-6))
	p.AddReal("weight", utils.ConstArray(nElectrons, 1.e8))
	n := types.IntVect{64, 480}
	rho := readfiles.UniformField("rho", n, func(i, j, k int) float64 {
		if i%2 == 0 {
			return -1.e-3 * (1 + ripple)
		}
		return -1.e-3 * (1 - ripple)
	})
	dir := filepath.Join(t.TempDir(), "diags", "diag1000200")
	require.NoError(t, readfiles.WritePlotfile(dir, &readfiles.TestPlotfile{
		Dim:         2,
		ProbLo:      [3]float64{-3.e-5, -5.6e-5},
		ProbHi:      [3]float64{3.e-5, 1.e-5},
		NCell:       n,
		MaxGridSize: 64,
		Fields:      []*types.Field{rho},
		Particles:   []*types.Particles{p},
	}))
	return dir
}

func TestExpectedElectrons(t *testing.T) {
	assert.Equal(t, 15318, ExpectedElectrons())
}

func TestRefinedInjection(t *testing.T) {
	ev := &checksum.RecordingEvaluator{}
	require.NoError(t, New(&regression_tests.Config{TestName: "RefinedInjection", Checksum: ev},
		writeRun(t, ExpectedElectrons(), 0.001)).Run(context.Background()))
	assert.Len(t, ev.Calls, 1)
}

func TestRefinedInjectionFails(t *testing.T) {
	var (
		ev = &checksum.RecordingEvaluator{}
		f  *regression_tests.Failure
	)
	err := New(&regression_tests.Config{TestName: "RefinedInjection", Checksum: ev},
		writeRun(t, ExpectedElectrons()-1, 0)).Run(context.Background())
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "electron count", f.Check)

	err = New(&regression_tests.Config{TestName: "RefinedInjection", Checksum: ev},
		writeRun(t, ExpectedElectrons(), 0.01)).Run(context.Background())
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "rho uniformity", f.Check)
	assert.InDelta(t, 0.01, f.Value, 1.e-9)
	assert.Empty(t, ev.Calls)
}
