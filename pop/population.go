package pop

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dvanegeren/evo-sim/rnd"
)

// A Model is one runnable simulation: the shared population data model
// under one of the scheduling policies.
type Model interface {
	// Advance executes the next event. Once the population is extinct
	// further calls are no-ops.
	Advance() error
	// CheckInit verifies the model is runnable before the first event.
	CheckInit() error
	// RefreshSim resets the clock and transient clones between
	// simulations while preserving the type index allocations.
	RefreshSim()
	// IsExtinct reports whether the population can produce further
	// events.
	IsExtinct() bool
	// Pop exposes the shared data model.
	Pop() *Population
}

// Population owns the cell types of a simulation, the aggregate rates,
// and the clock, and advances the standard branching process one event
// at a time. The scheduling variants embed it and replace Advance.
type Population struct {
	d        float64
	totBirth float64
	totCells int64
	t        float64

	maxTypes  int
	numTypes  int
	nextScan  int // cursor of the free-index scan
	lastAlloc int // most recently allocated index

	ringRoot *CellType
	ringEnd  *CellType
	byIndex  []*CellType
	roots    []*CellType

	kernel   MutationKernel
	src      *rnd.Source
	log      zerolog.Logger
	deathVar bool

	// last-event scratch for observers
	prevFit float64
	newFit  float64
	newType int
	hasMut  bool
}

// New returns an empty population with the given symmetric per-cell death
// rate, mutation kernel, and type bound.
func New(death float64, kernel MutationKernel, maxTypes int, src *rnd.Source, log zerolog.Logger) *Population {
	return &Population{
		d:        death,
		maxTypes: maxTypes,
		byIndex:  make([]*CellType, maxTypes),
		kernel:    kernel,
		src:       src,
		log:       log,
		newType:   -1,
		lastAlloc: -1,
	}
}

// Pop implements Model.
func (p *Population) Pop() *Population { return p }

// Time returns the simulation clock.
func (p *Population) Time() float64 { return p.t }

// NumCells returns the total cell count.
func (p *Population) NumCells() int64 { return p.totCells }

// TotalBirth returns the aggregate birth rate over all types.
func (p *Population) TotalBirth() float64 { return p.totBirth }

// DeathRate returns the symmetric per-cell death rate.
func (p *Population) DeathRate() float64 { return p.d }

// TotalDeath returns the aggregate death rate. With per-type death rates
// enabled it is the sum of per-type death mass; otherwise d times the
// cell count.
func (p *Population) TotalDeath() float64 {
	if !p.deathVar {
		return p.d * float64(p.totCells)
	}
	total := 0.0
	for t := p.ringRoot; t != nil; t = t.nextType {
		total += t.deathRate * float64(t.numCells)
	}
	return total
}

// SetDeathVar switches the engine to per-type death sampling.
func (p *Population) SetDeathVar(on bool) { p.deathVar = on }

// Kernel returns the mutation kernel.
func (p *Population) Kernel() MutationKernel { return p.kernel }

// SetKernel replaces the mutation kernel.
func (p *Population) SetKernel(k MutationKernel) { p.kernel = k }

// MaxTypes returns the bound on type indices.
func (p *Population) MaxTypes() int { return p.maxTypes }

// VisibleTypes returns the number of type slots swept by the per-type
// writers. The highest slot is reserved for the absorbing terminal type,
// which has dedicated observers.
func (p *Population) VisibleTypes() int { return p.maxTypes - 1 }

// NumTypes returns the number of types created so far.
func (p *Population) NumTypes() int { return p.numTypes }

// NoTypesLeft reports whether the type space is exhausted.
func (p *Population) NoTypesLeft() bool { return p.numTypes == p.maxTypes }

// IsExtinct reports whether no cells remain.
func (p *Population) IsExtinct() bool { return p.totCells == 0 }

// IsOneType reports whether exactly one type currently has live cells.
func (p *Population) IsOneType() bool {
	return p.ringRoot != nil && p.ringRoot == p.ringEnd
}

// RootTypes returns the types present at the start of the simulation.
func (p *Population) RootTypes() []*CellType { return p.roots }

// TypeByIndex returns the type registered at index i, or nil.
func (p *Population) TypeByIndex(i int) *CellType {
	if i < 0 || i >= len(p.byIndex) {
		return nil
	}
	return p.byIndex[i]
}

// HasType reports whether a type was ever created at index i.
func (p *Population) HasType(i int) bool { return p.TypeByIndex(i) != nil }

// NewestType returns the index of the most recently allocated type, or -1.
func (p *Population) NewestType() int { return p.lastAlloc }

// MotherBirth returns the parent birth rate of the last event.
func (p *Population) MotherBirth() float64 { return p.prevFit }

// DaughterBirth returns the daughter birth rate of the last event.
func (p *Population) DaughterBirth() float64 { return p.newFit }

// MutType returns the daughter type index of the last event, or -1.
func (p *Population) MutType() int { return p.newType }

// HasMut reports whether the last event produced a mutant.
func (p *Population) HasMut() bool { return p.hasMut }

// NextType returns the smallest never-used index for a fresh type. It
// must not be called when the type space is exhausted.
func (p *Population) NextType() int {
	for p.nextScan < p.maxTypes && p.byIndex[p.nextScan] != nil {
		p.nextScan++
	}
	if p.nextScan >= p.maxTypes {
		panic("no free cell type indices left")
	}
	return p.nextScan
}

// NewRootType creates and registers a root type at the given index.
func (p *Population) NewRootType(index int) (*CellType, error) {
	if p.byIndex[index] != nil {
		return nil, errors.Errorf("cell type %d already exists", index)
	}
	t := p.allocType(index, nil)
	p.roots = append(p.roots, t)
	return t, nil
}

// GetOrCreateType returns the type at the given index, creating and
// wiring it under parent if the slot is empty. Mutation kernels use this
// to register the daughter type they chose.
func (p *Population) GetOrCreateType(index int, parent *CellType) (*CellType, error) {
	if index < 0 || index >= p.maxTypes {
		return nil, errors.Errorf("cell type index %d outside typespace [0,%d)", index, p.maxTypes)
	}
	if t := p.byIndex[index]; t != nil {
		return t, nil
	}
	t := p.allocType(index, parent)
	if parent != nil {
		parent.addChild(t)
	}
	return t, nil
}

func (p *Population) allocType(index int, parent *CellType) *CellType {
	t := &CellType{index: index, parent: parent, pop: p, deathRate: p.d}
	p.byIndex[index] = t
	p.numTypes++
	p.lastAlloc = index
	return t
}

// relink threads a type back onto the end of the membership ring.
func (p *Population) relink(t *CellType) {
	t.prevType = p.ringEnd
	t.nextType = nil
	if p.ringEnd == nil {
		p.ringRoot = t
	} else {
		p.ringEnd.nextType = t
	}
	p.ringEnd = t
	t.inRing = true
}

func (p *Population) resetScratch() {
	p.hasMut = false
	p.newType = -1
	p.prevFit = 0
	p.newFit = 0
}

// Advance executes one event of the continuous-time branching process:
// draw the waiting time from the total rate, classify the event as birth
// or death, sample the participating clone hierarchically, and commit.
func (p *Population) Advance() error {
	p.resetScratch()
	totalDeath := p.TotalDeath()
	total := p.totBirth + totalDeath
	if total <= 0 {
		return nil
	}
	p.t += p.src.Exp(total)
	return p.executeEvent(totalDeath)
}

// executeEvent classifies the next event as birth or death and commits
// it. The clock has already advanced.
func (p *Population) executeEvent(totalDeath float64) error {
	total := p.totBirth + totalDeath
	if p.src.Uniform() < p.totBirth/total {
		c := p.chooseReproducer()
		if c == nil {
			return nil
		}
		return c.Reproduce()
	}
	var c *Clone
	if p.deathVar {
		c = p.chooseDeadVar(totalDeath)
	} else {
		c = p.chooseDead()
	}
	if c != nil {
		p.killCell(c)
	}
	return nil
}

// CheckInit verifies the population is runnable.
func (p *Population) CheckInit() error {
	if p.numTypes == 0 {
		return errors.New("population has no cell types")
	}
	if p.totCells == 0 {
		return errors.New("population has no cells")
	}
	if p.totBirth+p.TotalDeath() <= 0 {
		return errors.New("population has zero total event rate")
	}
	return nil
}

// RefreshSim resets the clock and drops every clone while preserving the
// type index allocations, so observer output across simulations
// references comparable indices. Aggregates are rebuilt from scratch as
// clones are re-seeded.
func (p *Population) RefreshSim() {
	p.t = 0
	p.resetScratch()
	for _, t := range p.byIndex {
		if t != nil {
			t.clearClones()
		}
	}
	p.totCells = 0
	p.totBirth = 0
}

// commitDaughter installs one daughter cell of the given rate in type t,
// merging into a matching cohort when the variant allows it, and records
// the event for observers.
func (p *Population) commitDaughter(parent *Clone, t *CellType, birth, mut float64, pol birthPolicy, mutated bool) {
	p.prevFit = parent.birth
	p.newFit = birth
	p.newType = t.index
	p.hasMut = mutated
	if pol.merges() {
		if ex := t.findClone(birth, mut); ex != nil {
			ex.count++
			t.addCells(1, birth)
			return
		}
	}
	t.insertClone(&Clone{count: 1, birth: birth, mut: mut, policy: pol})
}

// killCell removes one cell from the clone. An emptied clone is unlinked
// unless it is its type's sole clone; an emptied type leaves the ring.
func (p *Population) killCell(c *Clone) {
	c.count--
	t := c.typ
	t.subtractOneCell(c.birth)
	if c.count == 0 && !(t.rootClone == c && t.endClone == c) {
		t.removeClone(c)
	}
}
