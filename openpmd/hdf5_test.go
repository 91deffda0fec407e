package openpmd

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/scigolib/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeIterations writes a minimal openPMD layout for each iteration into one HDF5
// file: 3 electrons with positions, weights and ids, a scalar rho and a vector E mesh.
// Values are offset by the iteration so the iterations can be told apart.
func writeIterations(t *testing.T, name string, its ...int) {
	t.Helper()
	fw, err := hdf5.CreateForWrite(name, hdf5.CreateTruncate)
	require.NoError(t, err)
	_, err = fw.CreateGroup("/data")
	require.NoError(t, err)
	for _, it := range its {
		var (
			base = fmt.Sprintf("/data/%d", it)
			off  = float64(it)
			sp   = base + "/particles/electron"
		)
		for _, g := range []string{base, base + "/particles", sp, sp + "/position",
			base + "/fields", base + "/fields/E"} {
			_, err = fw.CreateGroup(g)
			require.NoError(t, err)
		}
		for _, d := range []struct {
			path string
			data []float64
		}{
			{sp + "/position/x", []float64{1 + off, 2 + off, 3 + off}},
			{sp + "/position/y", []float64{0, 0, 0}},
			{sp + "/position/z", []float64{-1, -2, -3}},
			{sp + "/weighting", []float64{5, 5, 5}},
			{base + "/fields/rho", []float64{-1, 4 + off}},
			{base + "/fields/E/x", []float64{off, 2}},
		} {
			ds, err := fw.CreateDataset(d.path, hdf5.Float64, []uint64{uint64(len(d.data))})
			require.NoError(t, err)
			require.NoError(t, ds.Write(d.data))
		}
		ds, err := fw.CreateDataset(sp+"/id", hdf5.Int64, []uint64{3})
		require.NoError(t, err)
		require.NoError(t, ds.Write([]int64{7, 8, 9}))
	}
	require.NoError(t, fw.Close())
}

func checkIteration(t *testing.T, s *Series, it int) {
	t.Helper()
	off := float64(it)
	species, err := s.Species(it)
	require.NoError(t, err)
	assert.Equal(t, []string{"electron"}, species)
	meshes, err := s.Meshes(it)
	require.NoError(t, err)
	assert.Equal(t, []string{"E", "rho"}, meshes)

	avail, err := s.AvailableRecordComponents("electron", it)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "w", "x", "y", "z"}, avail)

	q, err := s.GetParticle("electron", []string{"x", "z", "w", "id"}, it)
	require.NoError(t, err)
	assert.Equal(t, []float64{1 + off, 2 + off, 3 + off}, q[0])
	assert.Equal(t, []float64{-1, -2, -3}, q[1])
	assert.Equal(t, []float64{5, 5, 5}, q[2])
	assert.Equal(t, []float64{7, 8, 9}, q[3])

	rho, err := s.GetField("rho", "", it)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 4 + off}, rho)
	ex, err := s.GetField("E", "x", it)
	require.NoError(t, err)
	assert.Equal(t, []float64{off, 2}, ex)

	// Datasets have no children, groups are not record components
	comps, err := s.List(it, "particles/electron/position")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, comps)
	comps, err = s.List(it, "particles/electron/weighting")
	require.NoError(t, err)
	assert.Nil(t, comps)
	_, err = s.Component(it, "particles/electron/position")
	assert.Error(t, err)
	_, err = s.Component(it, "particles/electron/momentum/x")
	assert.Error(t, err)
	_, err = s.List(it, "particles/ions")
	assert.Error(t, err)
}

func TestOpenSeriesFileBased(t *testing.T) {
	dir := t.TempDir()
	for _, it := range []int{20, 10} {
		writeIterations(t, filepath.Join(dir, fmt.Sprintf("openpmd_%06d.h5", it)), it)
	}
	s, err := OpenSeries(dir)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, []int{10, 20}, s.Iterations())
	assert.Equal(t, 20, s.LastIteration())
	checkIteration(t, s, 10)
	checkIteration(t, s, 20)
	_, err = s.GetParticle("electron", []string{"x"}, 15)
	assert.Error(t, err)
}

func TestOpenSeriesGroupBased(t *testing.T) {
	name := filepath.Join(t.TempDir(), "openpmd.h5")
	writeIterations(t, name, 0, 5)
	s, err := OpenSeries(name)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, []int{0, 5}, s.Iterations())
	checkIteration(t, s, 0)
	checkIteration(t, s, 5)
}

func TestOpenSeriesNoFiles(t *testing.T) {
	_, err := OpenSeries(t.TempDir())
	assert.Error(t, err)
	_, err = OpenSeries(filepath.Join(t.TempDir(), "missing.h5"))
	assert.Error(t, err)
}
