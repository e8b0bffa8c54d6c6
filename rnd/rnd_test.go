package rnd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/dvanegeren/evo-sim/rnd"
)

func sample(n int, draw func() float64) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = draw()
	}
	return xs
}

func TestUniformBounds(t *testing.T) {
	src := rnd.New(1)
	for i := 0; i < 1000; i++ {
		u := src.Uniform()
		assert.GreaterOrEqual(t, u, 0.0)
		assert.Less(t, u, 1.0)
	}
}

func TestExpMean(t *testing.T) {
	src := rnd.New(2)
	xs := sample(50000, func() float64 { return src.Exp(4) })
	assert.InDelta(t, 0.25, stat.Mean(xs, nil), 0.005)
}

func TestLogNormalMoments(t *testing.T) {
	src := rnd.New(3)
	const mean, variance = 1.5, 0.2
	xs := sample(200000, func() float64 { return src.LogNormal(mean, variance) })
	assert.InDelta(t, mean, stat.Mean(xs, nil), 0.01)
	assert.InDelta(t, variance, stat.Variance(xs, nil), 0.02)
}

func TestGammaMoments(t *testing.T) {
	src := rnd.New(4)
	const mean, variance = 2.0, 0.5
	xs := sample(200000, func() float64 { return src.Gamma(mean, variance) })
	assert.InDelta(t, mean, stat.Mean(xs, nil), 0.01)
	assert.InDelta(t, variance, stat.Variance(xs, nil), 0.02)
}

func TestDoubleExpMoments(t *testing.T) {
	src := rnd.New(5)
	const mean, variance = 1.0, 0.3
	xs := sample(200000, func() float64 { return src.DoubleExp(mean, variance) })
	assert.InDelta(t, mean, stat.Mean(xs, nil), 0.01)
	assert.InDelta(t, variance, stat.Variance(xs, nil), 0.02)
}

func TestNormalMoments(t *testing.T) {
	src := rnd.New(6)
	xs := sample(100000, func() float64 { return src.Normal(-0.5, 0.09) })
	assert.InDelta(t, -0.5, stat.Mean(xs, nil), 0.01)
	assert.InDelta(t, 0.09, stat.Variance(xs, nil), 0.01)
}

func TestCategoricalBoundary(t *testing.T) {
	src := rnd.New(7)
	cum := []float64{0.25, 0.25, 1.0} // middle candidate has zero mass
	counts := make([]int, 3)
	for i := 0; i < 20000; i++ {
		counts[src.Categorical(cum)]++
	}
	assert.Zero(t, counts[1])
	assert.InDelta(t, 0.25, float64(counts[0])/20000, 0.02)
}

func TestEmpirical(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dist.txt")
	require.NoError(t, os.WriteFile(path, []byte("0.5\n1.0\n1.5\n# comment\n\n2.0\n"), 0o644))

	emp, err := rnd.LoadEmpirical(path)
	require.NoError(t, err)
	assert.Equal(t, 4, emp.Len())

	src := rnd.New(8)
	seen := map[float64]int{}
	for i := 0; i < 8000; i++ {
		seen[emp.Sample(src)]++
	}
	assert.Len(t, seen, 4)
	for _, v := range []float64{0.5, 1.0, 1.5, 2.0} {
		assert.InDelta(t, 2000, seen[v], 300)
	}
}

func TestEmpiricalErrors(t *testing.T) {
	_, err := rnd.LoadEmpirical(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n"), 0o644))
	_, err = rnd.LoadEmpirical(path)
	assert.Error(t, err)
}
