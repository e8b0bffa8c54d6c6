// Package writer implements the observers that record simulation output
// as text files. During-writers act after every committed event, final
// writers only once per simulation; all are registered with the engine
// through the evosim.Observer capability and keyed by distinct output
// filename templates.
package writer

import (
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/dvanegeren/evo-sim/pop"
)

// base carries the output location prefix and the current simulation
// number shared by every writer.
type base struct {
	loc string
	sim int
	out *os.File
}

func (b *base) open(name string) error {
	f, err := os.OpenFile(b.loc+name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open output %q", b.loc+name)
	}
	b.out = f
	return nil
}

func (b *base) closeFile() error {
	if b.out == nil {
		return nil
	}
	err := b.out.Close()
	b.out = nil
	return err
}

// Close releases the output stream if still open.
func (b *base) Close() error { return b.closeFile() }

// throttle implements the writing-period gate: with a period p, a line
// is written whenever the floored simulation time enters a new multiple
// of p. Period zero writes every event.
type throttle struct {
	period int
	last   int
}

func (w *throttle) should(t float64) bool {
	if w.period == 0 {
		return true
	}
	floored := int(math.Floor(t))
	if floored%w.period == 0 && floored != w.last {
		w.last = floored
		return true
	}
	return false
}

func (w *throttle) reset() { w.last = 0 }

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CellCount writes "<time>, <count>" lines for one type over a
// simulation.
type CellCount struct {
	base
	throttle
	index int
}

// NewCellCount returns a per-type cell count writer.
func NewCellCount(loc string, period, index int) *CellCount {
	return &CellCount{base: base{loc: loc}, throttle: throttle{period: period}, index: index}
}

// Begin implements evosim.Observer.
func (w *CellCount) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if err := w.open(fmt.Sprintf("count_sim_%dtype_%d.oevo", sim, w.index)); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "data for cell type %d sim number %d\n", w.index, sim)
	if t := p.TypeByIndex(w.index); t != nil {
		fmt.Fprintf(w.out, "%g, %d\n", p.Time(), t.NumCells())
	}
	return nil
}

// PerEvent implements evosim.Observer.
func (w *CellCount) PerEvent(p *pop.Population) error {
	t := p.TypeByIndex(w.index)
	if w.should(p.Time()) && t != nil && t.NumCells() > 0 {
		fmt.Fprintf(w.out, "%g, %d\n", p.Time(), t.NumCells())
	}
	return nil
}

// Final implements evosim.Observer.
func (w *CellCount) Final(p *pop.Population) error {
	if t := p.TypeByIndex(w.index); t != nil {
		fmt.Fprintf(w.out, "%g, %d\n", p.Time(), t.NumCells())
	} else {
		fmt.Fprintf(w.out, "%g, 0\n", p.Time())
	}
	w.reset()
	return w.closeFile()
}

// TypeIndex returns the watched type index.
func (w *CellCount) TypeIndex() int { return w.index }

// CountStep writes "<step>, <count>" lines, counting committed events
// rather than simulation time.
type CountStep struct {
	base
	throttle
	index    int
	timestep int
}

// NewCountStep returns an event-count writer for one type.
func NewCountStep(loc string, period, index int) *CountStep {
	return &CountStep{base: base{loc: loc}, throttle: throttle{period: period}, index: index}
}

// Begin implements evosim.Observer.
func (w *CountStep) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	w.timestep = 0
	if err := w.open(fmt.Sprintf("count_step_sim_%dtype_%d.oevo", sim, w.index)); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "data for cell type %d sim number %d\n", w.index, sim)
	if t := p.TypeByIndex(w.index); t != nil {
		fmt.Fprintf(w.out, "%d, %d\n", w.timestep, t.NumCells())
	}
	return nil
}

// PerEvent implements evosim.Observer.
func (w *CountStep) PerEvent(p *pop.Population) error {
	w.timestep++
	t := p.TypeByIndex(w.index)
	if w.should(p.Time()) && t != nil && t.NumCells() > 0 {
		fmt.Fprintf(w.out, "%d, %d\n", w.timestep, t.NumCells())
	}
	return nil
}

// Final implements evosim.Observer.
func (w *CountStep) Final(p *pop.Population) error {
	w.reset()
	return w.closeFile()
}

// TypeIndex returns the watched type index.
func (w *CountStep) TypeIndex() int { return w.index }

// NumMutations writes the simulation time of every mutation event that
// lands in the watched type.
type NumMutations struct {
	base
	throttle
	index int
}

// NewNumMutations returns a mutation arrival-time writer for one type.
func NewNumMutations(loc string, index int) *NumMutations {
	return &NumMutations{base: base{loc: loc}, index: index}
}

// Begin implements evosim.Observer.
func (w *NumMutations) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if err := w.open(fmt.Sprintf("muts_sim_%dtype_%d.oevo", sim, w.index)); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "data for cell type %d sim number %d\n", w.index, sim)
	return nil
}

// PerEvent implements evosim.Observer.
func (w *NumMutations) PerEvent(p *pop.Population) error {
	if w.should(p.Time()) && p.HasMut() && p.MutType() == w.index {
		fmt.Fprintf(w.out, "%g\n", p.Time())
	}
	return nil
}

// Final implements evosim.Observer.
func (w *NumMutations) Final(p *pop.Population) error {
	w.reset()
	return w.closeFile()
}

// TypeIndex returns the watched type index.
func (w *NumMutations) TypeIndex() int { return w.index }

// MotherDaughter writes "<time>, <mother birth>, <daughter birth>" for
// events while the watched type is alive.
type MotherDaughter struct {
	base
	throttle
	index int
}

// NewMotherDaughter returns a parent/offspring birth-rate writer.
func NewMotherDaughter(loc string, period, index int) *MotherDaughter {
	return &MotherDaughter{base: base{loc: loc}, throttle: throttle{period: period}, index: index}
}

// Begin implements evosim.Observer.
func (w *MotherDaughter) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if err := w.open(fmt.Sprintf("mother_daughter_%dtype_%d.oevo", sim, w.index)); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "data for cell type %d sim number %d\n", w.index, sim)
	return nil
}

// PerEvent implements evosim.Observer.
func (w *MotherDaughter) PerEvent(p *pop.Population) error {
	t := p.TypeByIndex(w.index)
	if w.should(p.Time()) && t != nil && t.NumCells() > 0 {
		fmt.Fprintf(w.out, "%g, %g, %g\n", p.Time(), p.MotherBirth(), p.DaughterBirth())
	}
	return nil
}

// Final implements evosim.Observer.
func (w *MotherDaughter) Final(p *pop.Population) error {
	w.reset()
	return w.closeFile()
}

// TypeIndex returns the watched type index.
func (w *MotherDaughter) TypeIndex() int { return w.index }

// NewMutant writes "<sim>, <time>, <daughter birth>, <total birth>" for
// every mutation into the watched type.
type NewMutant struct {
	base
	index int
}

// NewNewMutant returns a new-mutant event writer for one type.
func NewNewMutant(loc string, index int) *NewMutant {
	return &NewMutant{base: base{loc: loc}, index: index}
}

// Begin implements evosim.Observer.
func (w *NewMutant) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	return w.open(fmt.Sprintf("sim_num_%d_new_mutant_%d.oevo", sim, w.index))
}

// PerEvent implements evosim.Observer.
func (w *NewMutant) PerEvent(p *pop.Population) error {
	if p.HasMut() && p.MutType() == w.index {
		fmt.Fprintf(w.out, "%d, %g, %g, %g\n", w.sim, p.Time(), p.DaughterBirth(), p.TotalBirth())
	}
	return nil
}

// Final implements evosim.Observer.
func (w *NewMutant) Final(p *pop.Population) error {
	return w.closeFile()
}

// TypeIndex returns the watched type index.
func (w *NewMutant) TypeIndex() int { return w.index }

// FitnessDist writes "<time>, <fit>, <fit>, ..." snapshots of the birth
// rate of every cell of the watched type.
type FitnessDist struct {
	base
	throttle
	index int
}

// NewFitnessDist returns a fitness-distribution snapshot writer.
func NewFitnessDist(loc string, period, index int) *FitnessDist {
	return &FitnessDist{base: base{loc: loc}, throttle: throttle{period: period}, index: index}
}

// Begin implements evosim.Observer.
func (w *FitnessDist) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if err := w.open(fmt.Sprintf("fit_sim_%dtype_%d.oevo", sim, w.index)); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "data for cell type %d sim number %d\n", w.index, sim)
	return nil
}

// PerEvent implements evosim.Observer.
func (w *FitnessDist) PerEvent(p *pop.Population) error {
	t := p.TypeByIndex(w.index)
	if w.should(p.Time()) && t != nil && t.NumCells() > 0 {
		fmt.Fprintf(w.out, "%g", p.Time())
		for c := t.RootClone(); c != nil; c = c.NextWithinType() {
			for i := int64(0); i < c.CellCount(); i++ {
				fmt.Fprintf(w.out, ", %g", c.BirthRate())
			}
		}
		fmt.Fprintln(w.out)
	}
	return nil
}

// Final implements evosim.Observer.
func (w *FitnessDist) Final(p *pop.Population) error {
	w.reset()
	return w.closeFile()
}

// TypeIndex returns the watched type index.
func (w *FitnessDist) TypeIndex() int { return w.index }

// MeanFit writes "<time>, <mean birth rate>" lines for the watched type.
type MeanFit struct {
	base
	throttle
	index int
}

// NewMeanFit returns a mean-fitness writer for one type.
func NewMeanFit(loc string, period, index int) *MeanFit {
	return &MeanFit{base: base{loc: loc}, throttle: throttle{period: period}, index: index}
}

// Begin implements evosim.Observer.
func (w *MeanFit) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if err := w.open(fmt.Sprintf("mean_fit_sim_%dtype_%d.oevo", sim, w.index)); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "data for cell type %d sim number %d\n", w.index, sim)
	return nil
}

// meanBirth is the type's aggregate birth rate per cell.
func meanBirth(t *pop.CellType) float64 {
	return t.TotalBirth() / float64(t.NumCells())
}

// PerEvent implements evosim.Observer.
func (w *MeanFit) PerEvent(p *pop.Population) error {
	t := p.TypeByIndex(w.index)
	if w.should(p.Time()) && t != nil && t.NumCells() > 0 {
		fmt.Fprintf(w.out, "%g, %g\n", p.Time(), meanBirth(t))
	}
	return nil
}

// Final implements evosim.Observer.
func (w *MeanFit) Final(p *pop.Population) error {
	if t := p.TypeByIndex(w.index); t != nil && t.NumCells() > 0 {
		fmt.Fprintf(w.out, "%g, %g\n", p.Time(), meanBirth(t))
	}
	w.reset()
	return w.closeFile()
}

// TypeIndex returns the watched type index.
func (w *MeanFit) TypeIndex() int { return w.index }

// AllTypesWide writes "<time>, <count_0>, <count_1>, ..." lines covering
// the visible type slots.
type AllTypesWide struct {
	base
	throttle
}

// NewAllTypesWide returns the wide-format population writer.
func NewAllTypesWide(loc string, period int) *AllTypesWide {
	return &AllTypesWide{base: base{loc: loc}, throttle: throttle{period: period}}
}

func (w *AllTypesWide) writeLine(p *pop.Population) {
	fmt.Fprintf(w.out, "%g", p.Time())
	for i := 0; i < p.VisibleTypes(); i++ {
		if t := p.TypeByIndex(i); t != nil {
			fmt.Fprintf(w.out, ", %d", t.NumCells())
		} else {
			fmt.Fprint(w.out, ", 0")
		}
	}
	fmt.Fprintln(w.out)
}

// Begin implements evosim.Observer.
func (w *AllTypesWide) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if err := w.open(fmt.Sprintf("all_types_wide_%d.oevo", sim)); err != nil {
		return err
	}
	w.writeLine(p)
	return nil
}

// PerEvent implements evosim.Observer.
func (w *AllTypesWide) PerEvent(p *pop.Population) error {
	if w.should(p.Time()) {
		w.writeLine(p)
	}
	return nil
}

// Final implements evosim.Observer.
func (w *AllTypesWide) Final(p *pop.Population) error {
	w.writeLine(p)
	w.reset()
	return w.closeFile()
}
