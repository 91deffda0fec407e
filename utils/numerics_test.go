package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	{ // Simple polynomial
		x, err := FindRoot(func(x float64) float64 { return x*x - 2 }, 1)
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt2, x, 1e-12)
	}
	{ // Root far from the guess, function undefined below the guess
		f := func(x float64) float64 {
			if x < 0.1 {
				return math.NaN()
			}
			return math.Sqrt(x/0.1-1) - 30
		}
		x, err := FindRoot(f, 0.1)
		require.NoError(t, err)
		assert.InDelta(t, 90.1, x, 1e-9)
	}
	{ // Guess is the root
		x, err := FindRoot(func(x float64) float64 { return x - 3 }, 3)
		require.NoError(t, err)
		assert.Equal(t, 3., x)
	}
	{ // No root
		_, err := FindRoot(func(x float64) float64 { return x*x + 1 }, 0)
		assert.Error(t, err)
	}
	_, err := Brent(math.Sin, 1, 2, math.Sin(1), math.Sin(2))
	assert.Error(t, err)
	x, err := Brent(math.Sin, 3, 4, math.Sin(3), math.Sin(4))
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, x, 1e-12)
}

func TestAllClose(t *testing.T) {
	ok, err := AllClose([]float64{1, 2, 3}, []float64{1.05, 2, 2.95}, 0, 0.1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = AllClose([]float64{1, 2, 3}, []float64{1.2, 2, 3}, 0, 0.1)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, _ = AllClose([]float64{100}, []float64{101}, 0.01, 0)
	assert.True(t, ok)
	_, err = AllClose([]float64{1}, []float64{1, 2}, 0, 0)
	assert.Error(t, err)
	assert.False(t, IsClose(math.NaN(), 1, 1, 1))
	assert.True(t, IsClose(1e-41, 0, 1e-9, 1e-40))
}

func TestNorms(t *testing.T) {
	e, err := RelativeL2Error([]float64{3, 4}, []float64{3, 4.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, e, 1e-15)
	_, err = RelativeL2Error([]float64{0, 0}, []float64{1, 1})
	assert.Error(t, err)
	assert.Equal(t, 2., MaxAbsDiff([]float64{1, 5}, []float64{0, 3}))
	assert.Equal(t, 6., SumAbs([]float64{1, -2, 3}))
	assert.Equal(t, 2., Mean([]float64{1, 2, 3}))
	assert.InDelta(t, math.Sqrt(2./3.), PopStdDev([]float64{1, 2, 3}), 1e-15)
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestGridAndMath(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.75, 1.25, 1.75}, CellCenters(0, 2, 4))
	assert.Equal(t, []float64{-1, 0, 1}, Linspace(-1, 1, 3))
	assert.Equal(t, []float64{5}, Linspace(5, 7, 1))
	assert.Nil(t, Linspace(0, 1, 0))
	assert.Equal(t, 2, RoundHalfEven(2.5))
	assert.Equal(t, 4, RoundHalfEven(3.5))
	assert.Equal(t, -2, RoundHalfEven(-1.5))
	assert.Equal(t, 27., POW(3, 3))
	assert.Equal(t, 0.25, POW(2, -2))
	assert.InDelta(t, math.Pow(1.1, 12), POW(1.1, 12), 1e-12)
	assert.Equal(t, []float64{7, 7}, ConstArray(2, 7))
	assert.Equal(t, -1., Sign(-3))
	assert.Equal(t, 0., Sign(0))
}

func TestGetMemUsage(t *testing.T) {
	assert.Contains(t, GetMemUsage(), "Alloc = ")
}
