package pop

// Moran is the fixed-size variant: every event is a simultaneous birth
// and death, so the total cell count is conserved. The reproducer is
// birth-weighted, the victim uniform, and time advances by an
// exponential with rate equal to the cell count.
type Moran struct {
	*Population
}

// NewMoran wraps a population in the Moran scheduling policy.
func NewMoran(p *Population) *Moran {
	return &Moran{Population: p}
}

// Advance executes one paired birth+death event.
func (m *Moran) Advance() error {
	p := m.Population
	p.resetScratch()
	if p.totCells == 0 {
		return nil
	}
	p.t += p.src.Exp(float64(p.totCells))
	rep := p.chooseReproducer()
	if rep == nil {
		return nil
	}
	if err := rep.Reproduce(); err != nil {
		return err
	}
	// victim drawn uniformly from the post-birth population
	if victim := p.chooseDead(); victim != nil {
		p.killCell(victim)
	}
	return nil
}
