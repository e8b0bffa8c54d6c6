package pop

import (
	"github.com/dvanegeren/evo-sim/rnd"
)

// A Clone is a cohort of cells identical in type, per-cell birth rate,
// and mutation probability. Variants differ only in how a daughter's
// birth rate is drawn on a non-mutant reproduction; that policy is the
// clone's birthPolicy.
type Clone struct {
	prev *Clone
	next *Clone
	typ  *CellType

	count  int64
	birth  float64
	mut    float64
	policy birthPolicy
}

// CellCount returns the number of cells in the cohort.
func (c *Clone) CellCount() int64 { return c.count }

// BirthRate returns the per-cell birth rate.
func (c *Clone) BirthRate() float64 { return c.birth }

// MutProb returns the per-reproduction mutation probability.
func (c *Clone) MutProb() float64 { return c.mut }

// TotalBirth returns cell count times per-cell birth rate.
func (c *Clone) TotalBirth() float64 { return c.birth * float64(c.count) }

// Type returns the owning cell type.
func (c *Clone) Type() *CellType { return c.typ }

// NextWithinType returns the next clone in the owning type's list, or nil.
func (c *Clone) NextWithinType() *Clone { return c.next }

// IsSingleCell reports whether the cohort holds exactly one cell.
func (c *Clone) IsSingleCell() bool { return c.count == 1 }

// Reproduce produces one daughter cell. Exactly one entry of randomness
// decides whether the daughter is a mutant; mutants are described by the
// population's mutation kernel and committed by the engine, while
// non-mutants inherit according to the clone's variant policy.
func (c *Clone) Reproduce() error {
	p := c.typ.pop
	if p.src.Bernoulli(c.mut) {
		m, err := p.kernel.GenerateMutant(c.typ, c.birth, c.mut)
		if err != nil {
			return err
		}
		p.commitDaughter(c, m.Type, m.Birth, m.MutProb, c.policy.mutant(m.Birth), m.Mutated)
		return nil
	}
	birth, pol := c.policy.daughter(c.birth, p.src)
	p.commitDaughter(c, c.typ, birth, c.mut, pol, false)
	return nil
}

// A birthPolicy draws the birth rate of a non-mutant daughter and yields
// the policy the daughter clone will carry. mutant builds the policy for
// a kernel-produced daughter whose rate is already decided. Policies that
// report merges may fold matching daughters into an existing cohort;
// the stochastic policies keep every cell as its own singleton clone so
// fitness variance is preserved.
type birthPolicy interface {
	daughter(parentBirth float64, src *rnd.Source) (float64, birthPolicy)
	mutant(birth float64) birthPolicy
	merges() bool
}

// DistName selects the analytical distribution a stochastic clone draws
// from.
type DistName string

const (
	DistLogNorm   DistName = "lognorm"
	DistGamma     DistName = "gamma"
	DistDoubleExp DistName = "doubleexp"
)

// drawFromDist draws a birth rate with the given centre and variance. In
// multiplicative mode the draw is a unit-mean factor scaling the centre.
// Negative draws clamp to zero; zero-rate cells are retained but never
// reproduce.
func drawFromDist(dist DistName, mult bool, mean, variance float64, src *rnd.Source) float64 {
	centre := mean
	if mult {
		centre = 1
	}
	var x float64
	switch dist {
	case DistGamma:
		x = src.Gamma(centre, variance)
	case DistDoubleExp:
		x = src.DoubleExp(centre, variance)
	default:
		x = src.LogNormal(centre, variance)
	}
	if mult {
		x *= mean
	}
	if x < 0 {
		x = 0
	}
	return x
}

// simplePolicy: the whole cohort shares one fixed birth rate and
// non-mutant daughters merge back into it.
type simplePolicy struct{}

func (simplePolicy) daughter(parentBirth float64, _ *rnd.Source) (float64, birthPolicy) {
	return parentBirth, simplePolicy{}
}
func (simplePolicy) mutant(float64) birthPolicy { return simplePolicy{} }
func (simplePolicy) merges() bool               { return true }

// typeSpecificPolicy: every daughter draws its own rate from a type-wide
// distribution.
type typeSpecificPolicy struct {
	mean     float64
	variance float64
	dist     DistName
	mult     bool
}

func (p *typeSpecificPolicy) daughter(_ float64, src *rnd.Source) (float64, birthPolicy) {
	return drawFromDist(p.dist, p.mult, p.mean, p.variance, src), p
}

func (p *typeSpecificPolicy) mutant(birth float64) birthPolicy {
	return &typeSpecificPolicy{mean: birth, variance: p.variance, dist: p.dist, mult: p.mult}
}
func (p *typeSpecificPolicy) merges() bool { return false }

// heritablePolicy: daughters draw from a distribution centred at the
// parent's current rate with fixed variance.
type heritablePolicy struct {
	variance float64
	dist     DistName
	mult     bool
}

func (p *heritablePolicy) daughter(parentBirth float64, src *rnd.Source) (float64, birthPolicy) {
	return drawFromDist(p.dist, p.mult, parentBirth, p.variance, src), p
}
func (p *heritablePolicy) mutant(float64) birthPolicy { return p }
func (p *heritablePolicy) merges() bool               { return false }

// herResetPolicy: heritable with a FIFO of the last numGenPersist parent
// offsets. Each daughter pushes its fresh offset and pops the oldest,
// drifting back toward the original mean after numGenPersist generations.
// The FIFO always holds exactly numGenPersist values.
type herResetPolicy struct {
	variance      float64
	dist          DistName
	mult          bool
	numGenPersist int
	activeDiff    []float64
}

func (p *herResetPolicy) daughter(parentBirth float64, src *rnd.Source) (float64, birthPolicy) {
	drawn := drawFromDist(p.dist, p.mult, parentBirth, p.variance, src)
	diffs := make([]float64, p.numGenPersist)
	copy(diffs, p.activeDiff[1:])
	diffs[p.numGenPersist-1] = drawn - parentBirth
	birth := drawn - p.activeDiff[0]
	if birth < 0 {
		birth = 0
	}
	child := &herResetPolicy{
		variance:      p.variance,
		dist:          p.dist,
		mult:          p.mult,
		numGenPersist: p.numGenPersist,
		activeDiff:    diffs,
	}
	return birth, child
}

func (p *herResetPolicy) mutant(float64) birthPolicy {
	return &herResetPolicy{
		variance:      p.variance,
		dist:          p.dist,
		mult:          p.mult,
		numGenPersist: p.numGenPersist,
		activeDiff:    make([]float64, p.numGenPersist),
	}
}
func (p *herResetPolicy) merges() bool { return false }

// ActiveDiffLen reports the FIFO length of a reset-policy clone, or -1
// for other variants.
func (c *Clone) ActiveDiffLen() int {
	switch p := c.policy.(type) {
	case *herResetPolicy:
		return len(p.activeDiff)
	case *herResetEmpiricPolicy:
		return len(p.activeDiff)
	}
	return -1
}

// drawEmpirical draws a birth rate from a recorded sample set, shifted by
// the centre, or scaling it in multiplicative mode.
func drawEmpirical(emp *rnd.Empirical, mult bool, mean float64, src *rnd.Source) float64 {
	x := emp.Sample(src)
	if mult {
		x *= mean
	} else {
		x += mean
	}
	if x < 0 {
		x = 0
	}
	return x
}

// typeEmpiricPolicy is typeSpecificPolicy over a file-backed sample set.
type typeEmpiricPolicy struct {
	mean float64
	mult bool
	emp  *rnd.Empirical
}

func (p *typeEmpiricPolicy) daughter(_ float64, src *rnd.Source) (float64, birthPolicy) {
	return drawEmpirical(p.emp, p.mult, p.mean, src), p
}

func (p *typeEmpiricPolicy) mutant(birth float64) birthPolicy {
	return &typeEmpiricPolicy{mean: birth, mult: p.mult, emp: p.emp}
}
func (p *typeEmpiricPolicy) merges() bool { return false }

// herEmpiricPolicy is heritablePolicy over a file-backed sample set.
type herEmpiricPolicy struct {
	mult bool
	emp  *rnd.Empirical
}

func (p *herEmpiricPolicy) daughter(parentBirth float64, src *rnd.Source) (float64, birthPolicy) {
	return drawEmpirical(p.emp, p.mult, parentBirth, src), p
}
func (p *herEmpiricPolicy) mutant(float64) birthPolicy { return p }
func (p *herEmpiricPolicy) merges() bool               { return false }

// herResetEmpiricPolicy is herResetPolicy over a file-backed sample set.
type herResetEmpiricPolicy struct {
	mult          bool
	emp           *rnd.Empirical
	numGenPersist int
	activeDiff    []float64
}

func (p *herResetEmpiricPolicy) daughter(parentBirth float64, src *rnd.Source) (float64, birthPolicy) {
	drawn := drawEmpirical(p.emp, p.mult, parentBirth, src)
	diffs := make([]float64, p.numGenPersist)
	copy(diffs, p.activeDiff[1:])
	diffs[p.numGenPersist-1] = drawn - parentBirth
	birth := drawn - p.activeDiff[0]
	if birth < 0 {
		birth = 0
	}
	child := &herResetEmpiricPolicy{
		mult:          p.mult,
		emp:           p.emp,
		numGenPersist: p.numGenPersist,
		activeDiff:    diffs,
	}
	return birth, child
}

func (p *herResetEmpiricPolicy) mutant(float64) birthPolicy {
	return &herResetEmpiricPolicy{
		mult:          p.mult,
		emp:           p.emp,
		numGenPersist: p.numGenPersist,
		activeDiff:    make([]float64, p.numGenPersist),
	}
}
func (p *herResetEmpiricPolicy) merges() bool { return false }

// StochOpts carries the shared knobs of the stochastic clone variants.
type StochOpts struct {
	Dist DistName
	Mult bool
}

func (o StochOpts) dist() DistName {
	if o.Dist == "" {
		return DistLogNorm
	}
	return o.Dist
}

// NewSimple inserts a Simple cohort of count cells into t.
func NewSimple(t *CellType, birth, mut float64, count int64) *Clone {
	c := &Clone{count: count, birth: birth, mut: mut, policy: simplePolicy{}}
	t.insertClone(c)
	return c
}

// NewTypeSpecific inserts one TypeSpecific singleton whose initial rate
// is drawn from the type-wide distribution.
func NewTypeSpecific(t *CellType, mean, variance, mut float64, o StochOpts) *Clone {
	pol := &typeSpecificPolicy{mean: mean, variance: variance, dist: o.dist(), mult: o.Mult}
	birth := drawFromDist(pol.dist, pol.mult, mean, variance, t.pop.src)
	c := &Clone{count: 1, birth: birth, mut: mut, policy: pol}
	t.insertClone(c)
	return c
}

// NewHeritable inserts one Heritable singleton with the given initial
// mean; its daughters recentre on the parent rate.
func NewHeritable(t *CellType, mean, variance, mut float64, o StochOpts) *Clone {
	pol := &heritablePolicy{variance: variance, dist: o.dist(), mult: o.Mult}
	birth := drawFromDist(pol.dist, pol.mult, mean, variance, t.pop.src)
	c := &Clone{count: 1, birth: birth, mut: mut, policy: pol}
	t.insertClone(c)
	return c
}

// NewHerReset inserts one HerReset singleton with an all-zero offset FIFO
// of length numGenPersist.
func NewHerReset(t *CellType, mean, variance, mut float64, numGenPersist int, o StochOpts) *Clone {
	pol := &herResetPolicy{
		variance:      variance,
		dist:          o.dist(),
		mult:          o.Mult,
		numGenPersist: numGenPersist,
		activeDiff:    make([]float64, numGenPersist),
	}
	birth := drawFromDist(pol.dist, pol.mult, mean, variance, t.pop.src)
	c := &Clone{count: 1, birth: birth, mut: mut, policy: pol}
	t.insertClone(c)
	return c
}

// NewTypeEmpiric inserts one TypeEmpiric singleton drawing from emp.
func NewTypeEmpiric(t *CellType, mean, mut float64, mult bool, emp *rnd.Empirical) *Clone {
	pol := &typeEmpiricPolicy{mean: mean, mult: mult, emp: emp}
	birth := drawEmpirical(emp, mult, mean, t.pop.src)
	c := &Clone{count: 1, birth: birth, mut: mut, policy: pol}
	t.insertClone(c)
	return c
}

// NewHerEmpiric inserts one HerEmpiric singleton drawing from emp.
func NewHerEmpiric(t *CellType, mean, mut float64, mult bool, emp *rnd.Empirical) *Clone {
	pol := &herEmpiricPolicy{mult: mult, emp: emp}
	birth := drawEmpirical(emp, mult, mean, t.pop.src)
	c := &Clone{count: 1, birth: birth, mut: mut, policy: pol}
	t.insertClone(c)
	return c
}

// NewHerResetEmpiric inserts one HerResetEmpiric singleton with an
// all-zero offset FIFO of length numGenPersist.
func NewHerResetEmpiric(t *CellType, mean, mut float64, mult bool, numGenPersist int, emp *rnd.Empirical) *Clone {
	pol := &herResetEmpiricPolicy{
		mult:          mult,
		emp:           emp,
		numGenPersist: numGenPersist,
		activeDiff:    make([]float64, numGenPersist),
	}
	birth := drawEmpirical(emp, mult, mean, t.pop.src)
	c := &Clone{count: 1, birth: birth, mut: mut, policy: pol}
	t.insertClone(c)
	return c
}
