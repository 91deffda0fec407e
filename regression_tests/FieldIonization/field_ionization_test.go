package FieldIonization

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
)

func writeRun(t *testing.T, nIons, nN5 int, origZ []float64) string {
	t.Helper()
	var (
		ions = types.NewParticles("ions")
		ids  = make([]int64, nIons)
		lev  = make([]int64, nIons)
		xs   = make([]float64, nIons)
	)
	for i := range ids {
		ids[i] = int64(i + 1)
		lev[i] = 4
		if i < nN5 {
			lev[i] = 5
		}
		xs[i] = float64(i) * 1.e-7
	}
	ions.AddInt("id", ids)
	ions.AddInt("cpu", make([]int64, nIons))
	ions.AddReal("position_x", xs)
	ions.AddReal("position_y", xs)
	ions.AddReal("weight", make([]float64, nIons))
	ions.AddInt("ionizationLevel", lev)
	species := []*types.Particles{ions}
	if origZ != nil {
		e := types.NewParticles("electrons")
		n := len(origZ)
		eid := make([]int64, n)
		for i := range eid {
			eid[i] = int64(i + 1)
		}
		e.AddInt("id", eid)
		e.AddInt("cpu", make([]int64, n))
		e.AddReal("position_x", make([]float64, n))
		e.AddReal("position_y", make([]float64, n))
		e.AddReal("orig_z", origZ)
		species = append(species, e)
	}
	n := types.IntVect{8, 8}
	dir := filepath.Join(t.TempDir(), "diags", "diag1000200")
	require.NoError(t, readfiles.WritePlotfile(dir, &readfiles.TestPlotfile{
		Dim:       2,
		ProbHi:    [3]float64{1.e-5, 1.e-5},
		NCell:     n,
		Fields:    []*types.Field{readfiles.UniformField("Ex", n, func(i, j, k int) float64 { return float64(i) })},
		Particles: species,
	}))
	return dir
}

func newConfig(ev checksum.Evaluator) *regression_tests.Config {
	return &regression_tests.Config{TestName: "ionization_lab", Checksum: ev}
}

func TestFieldIonizationPasses(t *testing.T) {
	ev := &checksum.RecordingEvaluator{}
	dir := writeRun(t, 100, 32, []float64{1.e-6, 7.e-6, 1.4e-5})
	require.NoError(t, New(newConfig(ev), dir).Run(context.Background()))
	require.Len(t, ev.Calls, 1)
	assert.Equal(t, "ionization_lab", ev.Calls[0].TestName)
	assert.Equal(t, dir, ev.Calls[0].Path)
	assert.Equal(t, checksum.DefaultOptions(), ev.Calls[0].Options)

	// The boosted frame run carries no orig_z
	ev = &checksum.RecordingEvaluator{}
	require.NoError(t, New(newConfig(ev), writeRun(t, 50, 17, nil)).Run(context.Background()))
	assert.Len(t, ev.Calls, 1)
}

func TestFieldIonizationFails(t *testing.T) {
	ev := &checksum.RecordingEvaluator{}
	err := New(newConfig(ev), writeRun(t, 100, 20, nil)).Run(context.Background())
	var f *regression_tests.Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "N5+ fraction", f.Check)
	assert.InDelta(t, 0.375, f.Value, 1.e-12)
	assert.Empty(t, ev.Calls)

	err = New(newConfig(ev), writeRun(t, 100, 32, []float64{1.e-6, 2.e-5})).Run(context.Background())
	require.True(t, errors.As(err, &f))
	assert.Equal(t, 2.e-5, f.Value)

	err = New(newConfig(ev), writeRun(t, 100, 32, []float64{0, 1.e-6})).Run(context.Background())
	require.True(t, errors.As(err, &f))
	assert.Equal(t, 0., f.Value)
	assert.Empty(t, ev.Calls)

	ev.Err = errors.New("checksum mismatch")
	err = New(newConfig(ev), writeRun(t, 100, 32, nil)).Run(context.Background())
	assert.ErrorIs(t, err, ev.Err)

	_, err = readfiles.OpenPlotfile(filepath.Join(t.TempDir(), "nothing"))
	require.Error(t, err)
	assert.Error(t, New(newConfig(ev), filepath.Join(t.TempDir(), "nothing")).Run(context.Background()))
}
