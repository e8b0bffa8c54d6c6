package writer

import (
	"fmt"

	"github.com/dvanegeren/evo-sim/pop"
)

// Final-state writers append one record per simulation to a file shared
// across the whole run: one line, or for EndPopTypes one block of lines.
// The stream opens lazily at the first Begin and stays open until the run
// closes its observers. TypeStructure is the exception: it writes a
// separate file per simulation and closes it in Final.

// TypeStructure writes the phylogeny at the end of each simulation: a
// depth-first walk from each root type, one "<index>, <parent index>"
// line per type, -1 standing for no parent.
type TypeStructure struct {
	base
}

// NewTypeStructure returns the phylogeny writer.
func NewTypeStructure(loc string) *TypeStructure {
	return &TypeStructure{base: base{loc: loc}}
}

// Begin implements evosim.Observer.
func (w *TypeStructure) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	return w.open(fmt.Sprintf("sim_%dtype_tree.oevo", sim))
}

// PerEvent implements evosim.Observer.
func (w *TypeStructure) PerEvent(p *pop.Population) error { return nil }

// Final implements evosim.Observer.
func (w *TypeStructure) Final(p *pop.Population) error {
	for _, root := range p.RootTypes() {
		root.Walk(func(t *pop.CellType) {
			parent := -1
			if t.Parent() != nil {
				parent = t.Parent().Index()
			}
			fmt.Fprintf(w.out, "%d, %d\n", t.Index(), parent)
		})
	}
	return w.closeFile()
}

// IsExtinct records whether each simulation ended extinct.
type IsExtinct struct {
	base
}

// NewIsExtinct returns the extinction-flag writer.
func NewIsExtinct(loc string) *IsExtinct {
	return &IsExtinct{base: base{loc: loc}}
}

// Begin implements evosim.Observer.
func (w *IsExtinct) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if w.out == nil {
		return w.open("extinction.oevo")
	}
	return nil
}

// PerEvent implements evosim.Observer.
func (w *IsExtinct) PerEvent(p *pop.Population) error { return nil }

// Final implements evosim.Observer.
func (w *IsExtinct) Final(p *pop.Population) error {
	fmt.Fprintf(w.out, "%d, %d\n", w.sim, boolFlag(p.IsExtinct()))
	return nil
}

// EndTime records the final clock value of each simulation.
type EndTime struct {
	base
}

// NewEndTime returns the end-time writer.
func NewEndTime(loc string) *EndTime {
	return &EndTime{base: base{loc: loc}}
}

// Begin implements evosim.Observer.
func (w *EndTime) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if w.out == nil {
		return w.open("end_time.oevo")
	}
	return nil
}

// PerEvent implements evosim.Observer.
func (w *EndTime) PerEvent(p *pop.Population) error { return nil }

// Final implements evosim.Observer.
func (w *EndTime) Final(p *pop.Population) error {
	fmt.Fprintf(w.out, "%d, %g\n", w.sim, p.Time())
	return nil
}

// EndPop records the final cell count of each simulation.
type EndPop struct {
	base
}

// NewEndPop returns the end-population writer.
func NewEndPop(loc string) *EndPop {
	return &EndPop{base: base{loc: loc}}
}

// Begin implements evosim.Observer.
func (w *EndPop) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if w.out == nil {
		return w.open("end_pop.oevo")
	}
	return nil
}

// PerEvent implements evosim.Observer.
func (w *EndPop) PerEvent(p *pop.Population) error { return nil }

// Final implements evosim.Observer.
func (w *EndPop) Final(p *pop.Population) error {
	fmt.Fprintf(w.out, "%d, %d\n", w.sim, p.NumCells())
	return nil
}

// EndPopTypes records the per-type final cell counts of each simulation.
type EndPopTypes struct {
	base
}

// NewEndPopTypes returns the per-type end-population writer.
func NewEndPopTypes(loc string) *EndPopTypes {
	return &EndPopTypes{base: base{loc: loc}}
}

// Begin implements evosim.Observer.
func (w *EndPopTypes) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if w.out == nil {
		return w.open("end_pop_types.oevo")
	}
	return nil
}

// PerEvent implements evosim.Observer.
func (w *EndPopTypes) PerEvent(p *pop.Population) error { return nil }

// Final implements evosim.Observer.
func (w *EndPopTypes) Final(p *pop.Population) error {
	fmt.Fprintf(w.out, "%d\n", w.sim)
	for i := 0; i < p.VisibleTypes(); i++ {
		if t := p.TypeByIndex(i); t != nil {
			fmt.Fprintf(w.out, "%d, %d\n", i, t.NumCells())
		}
	}
	fmt.Fprintln(w.out)
	return nil
}

// IfType records whether the watched type had fixed (its cells are the
// whole population) when each simulation ended.
type IfType struct {
	base
	index int
}

// NewIfType returns the fixation-flag writer for one type.
func NewIfType(loc string, index int) *IfType {
	return &IfType{base: base{loc: loc}, index: index}
}

// Begin implements evosim.Observer.
func (w *IfType) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if w.out == nil {
		return w.open("iftype.oevo")
	}
	return nil
}

// PerEvent implements evosim.Observer.
func (w *IfType) PerEvent(p *pop.Population) error { return nil }

// Final implements evosim.Observer.
func (w *IfType) Final(p *pop.Population) error {
	t := p.TypeByIndex(w.index)
	fixed := t != nil && t.NumCells() == p.NumCells()
	fmt.Fprintf(w.out, "%d, %d\n", w.sim, boolFlag(fixed))
	return nil
}

// TypeIndex returns the watched type index.
func (w *IfType) TypeIndex() int { return w.index }

// Tunnel records whether the watched intermediate type was skipped on
// the way to fixation of type 2: true when type 2 fixed without the
// watched type ever having been the whole population.
type Tunnel struct {
	base
	index    int
	tunneled bool
}

// NewTunnel returns the tunnelling-flag writer.
func NewTunnel(loc string, index int) *Tunnel {
	return &Tunnel{base: base{loc: loc}, index: index, tunneled: true}
}

// Begin implements evosim.Observer.
func (w *Tunnel) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	if w.out == nil {
		return w.open(fmt.Sprintf("type_%d_tunnel.oevo", w.index))
	}
	return nil
}

// PerEvent implements evosim.Observer.
func (w *Tunnel) PerEvent(p *pop.Population) error {
	t := p.TypeByIndex(w.index)
	if t == nil {
		return nil
	}
	if t.NumCells() == p.NumCells() {
		w.tunneled = false
	}
	return nil
}

// Final implements evosim.Observer.
func (w *Tunnel) Final(p *pop.Population) error {
	t2 := p.TypeByIndex(2)
	fixed := t2 != nil && t2.NumCells() == p.NumCells()
	fmt.Fprintf(w.out, "%d, %d\n", w.sim, boolFlag(fixed && w.tunneled))
	w.tunneled = true
	return nil
}

// TypeIndex returns the watched type index.
func (w *Tunnel) TypeIndex() int { return w.index }
