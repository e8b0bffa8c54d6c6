package evosim

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/dvanegeren/evo-sim/pop"
)

// An Observer inspects the population around the event loop. Begin runs
// before the first event of a simulation, PerEvent after every committed
// event, and Final after the last. Observers are invoked in registration
// order and must not mutate engine state.
type Observer interface {
	Begin(p *pop.Population, sim int) error
	PerEvent(p *pop.Population) error
	Final(p *pop.Population) error
}

// Params bounds a run of simulations.
type Params struct {
	NumSims  int
	MaxTime  float64
	MaxCells int64
}

// Run drives NumSims simulations of the model to completion. Each
// simulation advances events until the clock reaches MaxTime, the
// population reaches MaxCells, the type space is exhausted, or the
// population is extinct. Between simulations the model is refreshed via
// the supplied callback, which re-seeds the initial clones.
//
// Observers implementing io.Closer are closed when the run ends.
func Run(m pop.Model, ps Params, observers []Observer, refresh func() error, log zerolog.Logger) error {
	defer func() {
		for _, o := range observers {
			if c, ok := o.(io.Closer); ok {
				c.Close()
			}
		}
	}()

	if err := m.CheckInit(); err != nil {
		return err
	}
	p := m.Pop()
	for sim := 1; sim <= ps.NumSims; sim++ {
		for _, o := range observers {
			if err := o.Begin(p, sim); err != nil {
				return err
			}
		}
		events := 0
		for p.Time() < ps.MaxTime && p.NumCells() < ps.MaxCells && !p.NoTypesLeft() && !m.IsExtinct() {
			if err := m.Advance(); err != nil {
				return err
			}
			events++
			for _, o := range observers {
				if err := o.PerEvent(p); err != nil {
					return err
				}
			}
		}
		for _, o := range observers {
			if err := o.Final(p); err != nil {
				return err
			}
		}
		log.Debug().
			Int("sim", sim).
			Int("events", events).
			Float64("time", p.Time()).
			Int64("cells", p.NumCells()).
			Msg("simulation finished")
		if sim < ps.NumSims {
			m.RefreshSim()
			if refresh != nil {
				if err := refresh(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
