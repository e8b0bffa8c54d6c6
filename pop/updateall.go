package pop

import (
	"github.com/pkg/errors"
)

// UpdateAll is the synchronous variant: every cell attempts reproduction
// once per fixed timestep, and deaths are drawn against the same
// pre-step state. The cumulative changes are applied at the step end and
// the clock advances by exactly the timestep.
type UpdateAll struct {
	*Population
	step float64
}

// NewUpdateAll wraps a population in the synchronous policy.
func NewUpdateAll(p *Population) *UpdateAll {
	return &UpdateAll{Population: p}
}

// SetTimestep sets the fixed step length.
func (u *UpdateAll) SetTimestep(step float64) error {
	if step <= 0 {
		return errors.Errorf("timestep must be positive, got %v", step)
	}
	u.step = step
	return nil
}

// CheckInit additionally requires a configured timestep.
func (u *UpdateAll) CheckInit() error {
	if err := u.Population.CheckInit(); err != nil {
		return err
	}
	if u.step <= 0 {
		return errors.New("synchronous population has no timestep")
	}
	return nil
}

// Advance runs one synchronous step. Per-cell birth and death decisions
// are Bernoulli draws with probability rate times timestep against the
// pre-step membership; reproductions and deaths then commit together.
func (u *UpdateAll) Advance() error {
	p := u.Population
	p.resetScratch()
	if p.totCells == 0 {
		return nil
	}
	p.t += u.step

	var clones []*Clone
	for t := p.ringRoot; t != nil; t = t.nextType {
		for c := t.rootClone; c != nil; c = c.next {
			clones = append(clones, c)
		}
	}

	births := make([]int64, len(clones))
	deaths := make([]int64, len(clones))
	for i, c := range clones {
		pb := c.birth * u.step
		if pb > 1 {
			pb = 1
		}
		pd := c.typ.deathRate * u.step
		if !p.deathVar {
			pd = p.d * u.step
		}
		if pd > 1 {
			pd = 1
		}
		for n := int64(0); n < c.count; n++ {
			if p.src.Bernoulli(pb) {
				births[i]++
			}
			if p.src.Bernoulli(pd) {
				deaths[i]++
			}
		}
	}
	for i, c := range clones {
		for n := int64(0); n < births[i]; n++ {
			if err := c.Reproduce(); err != nil {
				return err
			}
		}
		kill := deaths[i]
		if kill > c.count {
			kill = c.count
		}
		for n := int64(0); n < kill; n++ {
			p.killCell(c)
		}
	}
	return nil
}
