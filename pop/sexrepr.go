package pop

import (
	"github.com/pkg/errors"
)

// SexRepr is the sexual-reproduction variant. Types are split into a
// male pool and a female pool; a reproduction samples a mother from the
// female pool and a father from the male pool, both birth-weighted, and
// the sexual mutation kernel derives the child from both parents. The
// population is extinct as soon as either sex is empty.
type SexRepr struct {
	*Population
	maleTypes   []int
	femaleTypes []int
	extinct     bool
}

// NewSexRepr wraps a population in the sexual-reproduction policy.
func NewSexRepr(p *Population) *SexRepr {
	return &SexRepr{Population: p}
}

// AddMaleType registers a type index in the male pool.
func (s *SexRepr) AddMaleType(index int) { s.maleTypes = append(s.maleTypes, index) }

// AddFemaleType registers a type index in the female pool.
func (s *SexRepr) AddFemaleType(index int) { s.femaleTypes = append(s.femaleTypes, index) }

// IsExtinct reports whether either sex has died out.
func (s *SexRepr) IsExtinct() bool { return s.extinct }

// CheckInit additionally requires a sexual kernel and both sexes
// populated.
func (s *SexRepr) CheckInit() error {
	if err := s.Population.CheckInit(); err != nil {
		return err
	}
	if _, ok := s.kernel.(SexualKernel); !ok {
		return errors.New("sexual population requires a sexual mutation kernel")
	}
	if s.poolCells(s.maleTypes) == 0 || s.poolCells(s.femaleTypes) == 0 {
		return errors.New("sexual population requires cells of both sexes")
	}
	return nil
}

// RefreshSim clears the extinction flag along with the base state. The
// sex pools are type-index sets and survive the refresh.
func (s *SexRepr) RefreshSim() {
	s.Population.RefreshSim()
	s.extinct = false
}

func (s *SexRepr) poolCells(idxs []int) int64 {
	var n int64
	for _, i := range idxs {
		if t := s.TypeByIndex(i); t != nil {
			n += t.numCells
		}
	}
	return n
}

func (s *SexRepr) poolBirth(idxs []int) float64 {
	total := 0.0
	for _, i := range idxs {
		if t := s.TypeByIndex(i); t != nil {
			total += t.totalBirth
		}
	}
	return total
}

// chooseParent picks a clone birth-weighted among the listed types.
func (s *SexRepr) chooseParent(idxs []int) *Clone {
	total := s.poolBirth(idxs)
	if total <= 0 {
		return nil
	}
	x := s.src.Uniform() * total
	acc := 0.0
	var last *Clone
	for _, i := range idxs {
		t := s.TypeByIndex(i)
		if t == nil || t.totalBirth <= 0 {
			continue
		}
		if x <= acc+t.totalBirth {
			return t.pickCloneByBirth(x - acc)
		}
		acc += t.totalBirth
		for c := t.endClone; c != nil; c = c.prev {
			if c.TotalBirth() > 0 {
				last = c
				break
			}
		}
	}
	return last
}

// Advance executes one event. Births invoke the sexual kernel with both
// parents on every reproduction; deaths are symmetric per-cell, or
// sampled by per-type death mass when per-type death rates are enabled.
func (s *SexRepr) Advance() error {
	p := s.Population
	if s.extinct {
		return nil
	}
	p.resetScratch()
	totalDeath := p.TotalDeath()
	total := p.totBirth + totalDeath
	if total <= 0 {
		s.extinct = true
		return nil
	}
	p.t += p.src.Exp(total)
	if p.src.Uniform() < p.totBirth/total {
		mother := s.chooseParent(s.femaleTypes)
		father := s.chooseParent(s.maleTypes)
		if mother == nil || father == nil {
			s.extinct = true
			return nil
		}
		kernel := p.kernel.(SexualKernel)
		m, err := kernel.GenerateChild(mother.typ, father.typ, mother.birth, mother.mut)
		if err != nil {
			return err
		}
		p.commitDaughter(mother, m.Type, m.Birth, m.MutProb, mother.policy.mutant(m.Birth), m.Mutated)
	} else {
		var c *Clone
		if p.deathVar {
			c = p.chooseDeadVar(totalDeath)
		} else {
			c = p.chooseDead()
		}
		if c != nil {
			p.killCell(c)
		}
	}
	if s.poolCells(s.maleTypes) == 0 || s.poolCells(s.femaleTypes) == 0 {
		s.extinct = true
	}
	return nil
}
