// Package rnd provides the single stream of randomness consumed by a
// simulation. Every draw an engine, clone, or mutation kernel makes goes
// through one Source, so a run is reproducible given the seed.
//
// Parameterisation follows the conventions of the rest of the module:
// the normal, gamma, log-normal, and double-exponential draws are
// specified by mean and variance, not by their natural parameters. The
// exponential takes its rate and the ranged uniform its bounds.
package rnd

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Source wraps a seeded PRNG and exposes the distribution draws used by
// the simulator. It is not safe for concurrent use; the engine consumes
// it from a single goroutine.
type Source struct {
	rng *rand.Rand
}

// New returns a Source seeded with the given value.
func New(seed uint64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Uniform returns a draw from U(0,1).
func (s *Source) Uniform() float64 {
	return s.rng.Float64()
}

// UniformRange returns a draw from U(low,high).
func (s *Source) UniformRange(low, high float64) float64 {
	return s.rng.Float64()*(high-low) + low
}

// Bernoulli returns true with probability p.
func (s *Source) Bernoulli(p float64) bool {
	return s.rng.Float64() < p
}

// Intn returns a uniform integer in [0,n).
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// Exp returns an exponentially distributed waiting time with the given
// rate.
func (s *Source) Exp(rate float64) float64 {
	e := distuv.Exponential{Rate: rate, Src: s.rng}
	return e.Rand()
}

// Normal returns a draw from N(mean, variance).
func (s *Source) Normal(mean, variance float64) float64 {
	n := distuv.Normal{Mu: mean, Sigma: math.Sqrt(variance), Src: s.rng}
	return n.Rand()
}

// Gamma returns a gamma draw with the given mean and variance. The shape
// and scale are recovered as scale = v/mu, shape = mu/scale.
func (s *Source) Gamma(mean, variance float64) float64 {
	scale := variance / mean
	alpha := mean / scale
	g := distuv.Gamma{Alpha: alpha, Beta: 1 / scale, Src: s.rng}
	return g.Rand()
}

// LogNormal returns a log-normal draw with the given mean and variance.
// The location and scale of the underlying normal are
// loc = log(mu^2/sqrt(v+mu^2)) and scale = sqrt(log(1+v/mu^2)).
func (s *Source) LogNormal(mean, variance float64) float64 {
	loc := math.Log(mean * mean / math.Sqrt(variance+mean*mean))
	scale := math.Sqrt(math.Log(1 + variance/(mean*mean)))
	ln := distuv.LogNormal{Mu: loc, Sigma: scale, Src: s.rng}
	return ln.Rand()
}

// DoubleExp returns a draw from a double-exponential (Laplace) centred at
// mean with the given variance: an Exp(1/sqrt(v/2)) magnitude with a fair
// sign flip, shifted by the mean.
func (s *Source) DoubleExp(mean, variance float64) float64 {
	e := distuv.Exponential{Rate: 1 / math.Sqrt(variance/2), Src: s.rng}
	x := e.Rand()
	if s.rng.Float64() < 0.5 {
		x = -x
	}
	return x + mean
}

// Categorical draws an index from the cumulative weight array cum, whose
// last entry is the total mass. Accumulation is left to right and a draw
// that lands exactly on a boundary belongs to the earlier candidate.
func (s *Source) Categorical(cum []float64) int {
	x := s.rng.Float64() * cum[len(cum)-1]
	for i, c := range cum {
		if x <= c {
			return i
		}
	}
	return len(cum) - 1
}
