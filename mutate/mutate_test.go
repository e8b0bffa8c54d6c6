package mutate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvanegeren/evo-sim/mutate"
	"github.com/dvanegeren/evo-sim/pop"
	"github.com/dvanegeren/evo-sim/rnd"
)

func newPop(t *testing.T, kernel pop.MutationKernel, maxTypes int, seed uint64) *pop.Population {
	t.Helper()
	return pop.New(0, kernel, maxTypes, rnd.New(seed), zerolog.Nop())
}

func mustKernel(t *testing.T, name string, src *rnd.Source, params ...string) pop.MutationKernel {
	t.Helper()
	k, err := mutate.New(name, src)
	require.NoError(t, err)
	require.NoError(t, k.(mutate.Reader).Read(params))
	return k
}

func TestNoMutationRejectsInvocation(t *testing.T) {
	k := mustKernel(t, "NoMutation", rnd.New(1))
	p := newPop(t, k, 4, 1)
	ct, err := p.NewRootType(0)
	require.NoError(t, err)
	_, err = k.GenerateMutant(ct, 1.0, 0.1)
	assert.Error(t, err)
}

func TestNeutralFreshIndex(t *testing.T) {
	k := mustKernel(t, "Neutral", rnd.New(2))
	p := newPop(t, k, 3, 2)
	ct, err := p.NewRootType(0)
	require.NoError(t, err)

	m, err := k.GenerateMutant(ct, 1.2, 0.05)
	require.NoError(t, err)
	assert.True(t, m.Mutated)
	assert.Equal(t, 1, m.Type.Index())
	assert.Equal(t, 1.2, m.Birth)
	assert.Equal(t, 0.05, m.MutProb)
	assert.Equal(t, ct, m.Type.Parent())

	_, err = k.GenerateMutant(ct, 1.2, 0.05)
	require.NoError(t, err)
	_, err = k.GenerateMutant(ct, 1.2, 0.05)
	assert.Error(t, err, "typespace exhausted")
}

func TestThreeTypesAdditive(t *testing.T) {
	k := mustKernel(t, "ThreeTypes", rnd.New(3), "mu2,0.001", "fit1,1.1", "fit2,1.3")
	p := newPop(t, k, 3, 3)
	t0, err := p.NewRootType(0)
	require.NoError(t, err)

	m, err := k.GenerateMutant(t0, 1.0, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Type.Index())
	assert.InDelta(t, 1.0+1.1-1, m.Birth, 1e-12)
	assert.Equal(t, 0.001, m.MutProb)

	m2, err := k.GenerateMutant(m.Type, m.Birth, m.MutProb)
	require.NoError(t, err)
	assert.Equal(t, 2, m2.Type.Index())
	assert.InDelta(t, 1.1+1.3-1.1-1, m2.Birth, 1e-12)
	assert.Zero(t, m2.MutProb, "type 2 is absorbing")

	_, err = k.GenerateMutant(m2.Type, m2.Birth, 0)
	assert.Error(t, err, "only types 0 and 1 mutate")
}

func TestThreeTypesMultiplicative(t *testing.T) {
	k := mustKernel(t, "ThreeTypesMult", rnd.New(4), "mu2,0.001", "fit1,1.1", "fit2,1.32")
	p := newPop(t, k, 3, 4)
	t0, err := p.NewRootType(0)
	require.NoError(t, err)

	m, err := k.GenerateMutant(t0, 1.0, 0.01)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, m.Birth, 1e-12)

	m2, err := k.GenerateMutant(m.Type, m.Birth, m.MutProb)
	require.NoError(t, err)
	assert.InDelta(t, 1.1*1.32/1.1, m2.Birth, 1e-12)
}

func TestThreeTypesFlexRouting(t *testing.T) {
	direct := mustKernel(t, "ThreeTypesFlex", rnd.New(5), "mu2,0.01", "fit1,1.1", "fit2,1.3", "p1,1")
	p := newPop(t, direct, 3, 5)
	t0, err := p.NewRootType(0)
	require.NoError(t, err)
	m, err := direct.GenerateMutant(t0, 1.0, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Type.Index(), "p1=1 always jumps straight to type 2")
	assert.Equal(t, 1.3, m.Birth)
	assert.Zero(t, m.MutProb)

	stepwise := mustKernel(t, "ThreeTypesFlex", rnd.New(6), "mu2,0.01", "fit1,1.1", "fit2,1.3", "p1,0")
	q := newPop(t, stepwise, 3, 6)
	q0, err := q.NewRootType(0)
	require.NoError(t, err)
	m, err = stepwise.GenerateMutant(q0, 1.0, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Type.Index())
	assert.Equal(t, 1.1, m.Birth)
	assert.Equal(t, 0.01, m.MutProb)
}

func TestManyTypesFlexBlocks(t *testing.T) {
	k := mustKernel(t, "ManyTypesFlex", rnd.New(7),
		"mu2,0.01", "fit1,1.1", "fit2,1.3", "p1,0", "num,4")
	p := newPop(t, k, 12, 7)
	t2, err := p.NewRootType(2)
	require.NoError(t, err)

	m, err := k.GenerateMutant(t2, 1.0, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 6, m.Type.Index(), "block 0 routes to i+num")

	m2, err := k.GenerateMutant(m.Type, m.Birth, m.MutProb)
	require.NoError(t, err)
	assert.Equal(t, 10, m2.Type.Index(), "block 1 routes to its absorbing partner")
	assert.Zero(t, m2.MutProb)

	_, err = k.GenerateMutant(m2.Type, m2.Birth, 0)
	assert.Error(t, err, "block 2 does not mutate")
}

func TestDimReturnsUnif(t *testing.T) {
	k := mustKernel(t, "DimReturnsUnif", rnd.New(8), "dim,0.5", "fit,0.2")
	p := newPop(t, k, 10, 8)
	t0, err := p.NewRootType(0)
	require.NoError(t, err)

	m, err := k.GenerateMutant(t0, 1.0, 0.01)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Birth, 1.0)
	assert.LessOrEqual(t, m.Birth, 1.2, "depth 0 gain bounded by max_gain")
	assert.InDelta(t, m.Birth-1.0, m.Type.MutEffect(), 1e-12)

	// one level deeper the gain is scaled by dim_rate
	m2, err := k.GenerateMutant(m.Type, m.Birth, 0.01)
	require.NoError(t, err)
	assert.LessOrEqual(t, m2.Birth-m.Birth, 0.1+1e-12)
}

func TestParamDistFixedAndClamp(t *testing.T) {
	fixed := mustKernel(t, "ParamDist", rnd.New(9),
		"type,unif", "low,0.5", "high,0.5", "fixed,true")
	p := newPop(t, fixed, 10, 9)
	t0, err := p.NewRootType(0)
	require.NoError(t, err)
	m, err := fixed.GenerateMutant(t0, 2.0, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.Birth, "fixed mode ignores the parent rate")
	assert.Equal(t, 0.01, m.MutProb)

	zero := mustKernel(t, "ParamDist", rnd.New(10),
		"type,unif", "low,0.1", "high,0.2", "fixed,false", "zero,1")
	q := newPop(t, zero, 10, 10)
	q0, err := q.NewRootType(0)
	require.NoError(t, err)
	m, err = zero.GenerateMutant(q0, 1.0, 0.01)
	require.NoError(t, err)
	assert.Zero(t, m.Birth, "zero_prob forces an extinct offspring rate")

	neg := mustKernel(t, "ParamDist", rnd.New(11),
		"type,unif", "low,-5", "high,-4", "fixed,false")
	r := newPop(t, neg, 10, 11)
	r0, err := r.NewRootType(0)
	require.NoError(t, err)
	m, err = neg.GenerateMutant(r0, 1.0, 0.01)
	require.NoError(t, err)
	assert.Zero(t, m.Birth, "negative draws clamp to zero")
}

func TestParamDistRead(t *testing.T) {
	k, err := mutate.New("ParamDist", rnd.New(12))
	require.NoError(t, err)
	r := k.(mutate.Reader)
	assert.Error(t, r.Read([]string{"type,lognorm", "mean,1", "fixed,true"}), "missing variance")
	assert.Error(t, r.Read([]string{"type,lognorm", "mean,1", "var,-1", "fixed,true"}), "non-positive variance")
	assert.Error(t, r.Read([]string{"type,cauchy", "mean,1", "var,1", "fixed,true"}), "unknown distribution")
	assert.NoError(t, r.Read([]string{"type,lognorm", "mean,1", "var,0.1", "fixed,true"}))
}

func TestFixedSites(t *testing.T) {
	dir := t.TempDir()
	fit := filepath.Join(dir, "fit.txt")
	adj := filepath.Join(dir, "adj.txt")
	require.NoError(t, os.WriteFile(fit, []byte("1.0\n1.2\n1.5\n"), 0o644))
	// type 0 can reach 1, type 1 can reach 2, type 2 is a sink
	require.NoError(t, os.WriteFile(adj, []byte("1\n2\n"), 0o644))

	k := mustKernel(t, "FixedSites", rnd.New(13), "3", "0", fit, adj)
	p := newPop(t, k, 3, 13)
	t0, err := p.NewRootType(0)
	require.NoError(t, err)

	m, err := k.GenerateMutant(t0, 1.0, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Type.Index())
	assert.InDelta(t, 1.2, m.Birth, 1e-12, "additive composition")
	assert.True(t, m.Mutated)

	m2, err := k.GenerateMutant(m.Type, m.Birth, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 2, m2.Type.Index())
	assert.InDelta(t, 1.5, m2.Birth, 1e-12)

	// a sink type produces a non-mutant daughter in place
	m3, err := k.GenerateMutant(m2.Type, m2.Birth, 0.01)
	require.NoError(t, err)
	assert.False(t, m3.Mutated)
	assert.Equal(t, m2.Type, m3.Type)
}

func TestKernelRegistry(t *testing.T) {
	_, err := mutate.New("NotAKernel", rnd.New(14))
	assert.Error(t, err)
	for _, name := range []string{
		"NoMutation", "Neutral", "ThreeTypes", "ThreeTypesMult",
		"ThreeTypesFlex", "ManyTypesFlex", "DimReturnsUnif",
		"FixedSites", "ParamDist", "FathersCurse",
	} {
		k, err := mutate.New(name, rnd.New(14))
		require.NoError(t, err, name)
		_, ok := k.(mutate.Reader)
		assert.True(t, ok, name)
	}
}
