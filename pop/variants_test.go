package pop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoranCountConservation(t *testing.T) {
	p := newTestPop(t, 0, noMutation{}, 4, 21)
	rootWithSimple(t, p, 0, 1.0, 0, 60)
	rootWithSimple(t, p, 1, 1.5, 0, 40)
	m := NewMoran(p)
	require.NoError(t, m.CheckInit())

	for i := 0; i < 2000; i++ {
		require.NoError(t, m.Advance())
		require.Equal(t, int64(100), p.NumCells(), "Moran conserves the cell count")
		checkConsistency(t, p)
	}
}

func TestMoranWaitingTimes(t *testing.T) {
	p := newTestPop(t, 0, noMutation{}, 4, 22)
	rootWithSimple(t, p, 0, 1.0, 0, 100)
	m := NewMoran(p)

	const events = 20000
	prev := 0.0
	mean := 0.0
	for i := 0; i < events; i++ {
		require.NoError(t, m.Advance())
		mean += p.Time() - prev
		prev = p.Time()
	}
	mean /= events
	// inter-event times are Exp(100): mean 0.01, sd of the sample mean
	// is 0.01/sqrt(events)
	assert.InDelta(t, 0.01, mean, 4*0.01/math.Sqrt(events))
}

func TestMoranFixationProbability(t *testing.T) {
	// one mutant with relative fitness s in a population of N: fixation
	// probability (1-1/s)/(1-1/s^N)
	const (
		n    = 10
		s    = 2.0
		reps = 300
	)
	fixed := 0
	for rep := 0; rep < reps; rep++ {
		p := newTestPop(t, 0, noMutation{}, 4, uint64(100+rep))
		rootWithSimple(t, p, 0, 1.0, 0, n-1)
		mutant := rootWithSimple(t, p, 1, s, 0, 1)
		m := NewMoran(p)
		for mutant.NumCells() != 0 && mutant.NumCells() != n {
			require.NoError(t, m.Advance())
		}
		if mutant.NumCells() == n {
			fixed++
		}
	}
	want := (1 - 1/s) / (1 - math.Pow(1/s, n))
	assert.InDelta(t, want, float64(fixed)/reps, 0.1)
}

func TestPassageThinsToTarget(t *testing.T) {
	p := newTestPop(t, 0, noMutation{}, 4, 23)
	rootWithSimple(t, p, 0, 1.0, 0, 200)
	pp := NewPassage(p)
	require.Error(t, pp.CheckInit(), "no schedule yet")
	require.NoError(t, pp.SetSchedule([]float64{0.5, 1.0}, []int64{100, 100}))
	require.NoError(t, pp.CheckInit())

	for len(pp.times) > 1 {
		require.NoError(t, pp.Advance())
	}
	assert.Equal(t, 0.5, p.Time())
	assert.LessOrEqual(t, p.NumCells(), int64(100))
	checkConsistency(t, p)

	for len(pp.times) > 0 {
		require.NoError(t, pp.Advance())
	}
	assert.Equal(t, 1.0, p.Time())
	assert.LessOrEqual(t, p.NumCells(), int64(100))

	pp.RefreshSim()
	assert.Equal(t, []float64{0.5, 1.0}, pp.times, "refresh restores the frozen schedule")
	assert.Equal(t, []int64{100, 100}, pp.nums)
}

func TestUpdateAllStep(t *testing.T) {
	p := newTestPop(t, 0, noMutation{}, 4, 24)
	rootWithSimple(t, p, 0, 1.0, 0, 1000)
	u := NewUpdateAll(p)
	require.Error(t, u.CheckInit(), "no timestep yet")
	require.NoError(t, u.SetTimestep(0.1))
	require.NoError(t, u.CheckInit())

	require.NoError(t, u.Advance())
	assert.Equal(t, 0.1, p.Time(), "clock advances by exactly the timestep")
	// each of 1000 cells reproduced with probability 0.1
	assert.InDelta(t, 1100, float64(p.NumCells()), 50)
	checkConsistency(t, p)
}

func TestHerResetFIFOLength(t *testing.T) {
	p := newTestPop(t, 0, noMutation{}, 4, 25)
	ct, err := p.NewRootType(0)
	require.NoError(t, err)
	NewHerReset(ct, 1.0, 0.01, 0, 5, StochOpts{})

	for i := 0; i < 200; i++ {
		require.NoError(t, p.Advance())
		for c := ct.rootClone; c != nil; c = c.next {
			require.Equal(t, 5, c.ActiveDiffLen(), "FIFO always holds num_gen_persist values")
		}
	}
	checkConsistency(t, p)
}

func TestPureBirthGrowth(t *testing.T) {
	// Yule process: E[N(t)] = e^t from a single cell
	const (
		maxTime = 3.0
		reps    = 300
	)
	total := 0.0
	for rep := 0; rep < reps; rep++ {
		p := newTestPop(t, 0, noMutation{}, 4, uint64(500+rep))
		rootWithSimple(t, p, 0, 1.0, 0, 1)
		for p.Time() < maxTime && !p.IsExtinct() {
			require.NoError(t, p.Advance())
		}
		total += float64(p.NumCells())
	}
	want := math.Exp(maxTime)
	// Var[N(t)] = e^t(e^t - 1), so the sample mean has sd ~ 1.13
	sd := math.Sqrt(want*(want-1)) / math.Sqrt(reps)
	assert.InDelta(t, want, total/reps, 4*sd)
}

func TestSubcriticalExtinction(t *testing.T) {
	p := newTestPop(t, 1.5, noMutation{}, 4, 26)
	rootWithSimple(t, p, 0, 1.0, 0, 50)
	for i := 0; i < 200000 && !p.IsExtinct(); i++ {
		require.NoError(t, p.Advance())
	}
	assert.True(t, p.IsExtinct(), "subcritical branching dies out")
	assert.True(t, p.Time() < math.Inf(1))
}

// pairKernel derives every child deterministically into the mother's
// type so sexual scheduling can be tested without the genetics.
type pairKernel struct{}

func (pairKernel) GenerateMutant(parent *CellType, birth, mutProb float64) (Mutant, error) {
	return Mutant{}, assert.AnError
}

func (pairKernel) GenerateChild(mother, father *CellType, birth, mutProb float64) (Mutant, error) {
	return Mutant{Birth: birth, MutProb: mutProb, Type: mother, Mutated: false}, nil
}

func TestSexReprExtinctionEitherSex(t *testing.T) {
	p := newTestPop(t, 1.2, pairKernel{}, 10, 27)
	rootWithSimple(t, p, 0, 1.0, 0, 20) // females
	rootWithSimple(t, p, 3, 1.0, 0, 3)  // males
	s := NewSexRepr(p)
	s.AddFemaleType(0)
	s.AddMaleType(3)
	require.NoError(t, s.CheckInit())

	for i := 0; i < 100000 && !s.IsExtinct(); i++ {
		require.NoError(t, s.Advance())
	}
	require.True(t, s.IsExtinct())
	assert.True(t, s.poolCells(s.maleTypes) == 0 || s.poolCells(s.femaleTypes) == 0)

	// extinction is absorbing even though cells of one sex may remain
	cells := p.NumCells()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Advance())
		assert.Equal(t, cells, p.NumCells())
	}
}

func TestSexReprRequiresSexualKernel(t *testing.T) {
	p := newTestPop(t, 0, noMutation{}, 10, 28)
	rootWithSimple(t, p, 0, 1.0, 0, 5)
	rootWithSimple(t, p, 3, 1.0, 0, 5)
	s := NewSexRepr(p)
	s.AddFemaleType(0)
	s.AddMaleType(3)
	assert.Error(t, s.CheckInit())
}
