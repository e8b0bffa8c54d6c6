package pop

// A CellType is a node in the phylogeny of genotypes. It owns the clones
// of its genotype as a doubly-linked list and keeps the aggregate cell
// count and birth rate of its members.
//
// Non-extinct types are threaded onto the population's membership ring, a
// second doubly-linked structure walked during event sampling. Extinct
// types are unlinked from the ring but stay registered by index for later
// reference.
type CellType struct {
	index  int
	parent *CellType
	childs []*CellType
	pop    *Population

	// intra-type clone list
	rootClone *Clone
	endClone  *Clone

	// membership ring links
	prevType *CellType
	nextType *CellType
	inRing   bool

	numCells   int64
	totalBirth float64
	deathRate  float64
	mutEffect  float64
}

// Index returns the stable integer identity of the type.
func (t *CellType) Index() int { return t.index }

// Parent returns the type this one mutated from, or nil for a root type.
func (t *CellType) Parent() *CellType { return t.parent }

// Children returns the types that mutated from this one.
func (t *CellType) Children() []*CellType { return t.childs }

// Pop returns the population that owns the type.
func (t *CellType) Pop() *Population { return t.pop }

// NumCells returns the aggregate cell count over the owned clones.
func (t *CellType) NumCells() int64 { return t.numCells }

// TotalBirth returns the aggregate birth rate over the owned clones.
func (t *CellType) TotalBirth() float64 { return t.totalBirth }

// DeathRate returns the per-cell death rate of the type.
func (t *CellType) DeathRate() float64 { return t.deathRate }

// SetDeathRate overrides the per-cell death rate of the type. Only
// consulted when the population samples deaths per type.
func (t *CellType) SetDeathRate(d float64) { t.deathRate = d }

// MutEffect returns the fitness offset recorded when the type was created
// by a mutation kernel, if any.
func (t *CellType) MutEffect() float64 { return t.mutEffect }

// SetMutEffect records the fitness offset that created the type.
func (t *CellType) SetMutEffect(e float64) { t.mutEffect = e }

// RootClone returns the head of the intra-type clone list, or nil.
func (t *CellType) RootClone() *Clone { return t.rootClone }

// IsExtinct reports whether the type currently has no cells.
func (t *CellType) IsExtinct() bool { return t.numCells == 0 }

// Depth returns the number of mutation steps between the type and its
// phylogenetic root.
func (t *CellType) Depth() int {
	d := 0
	for p := t.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

func (t *CellType) setParent(p *CellType) {
	t.parent = p
}

func (t *CellType) addChild(c *CellType) {
	t.childs = append(t.childs, c)
}

// insertClone appends a clone to the intra-type list and folds its cells
// into the aggregates.
func (t *CellType) insertClone(c *Clone) {
	c.typ = t
	c.next = nil
	c.prev = t.endClone
	if t.endClone == nil {
		t.rootClone = c
	} else {
		t.endClone.next = c
	}
	t.endClone = c
	t.addCells(c.count, c.birth)
}

// removeClone unlinks a clone from the intra-type list. Aggregates are
// untouched; the caller accounts for the cells separately.
func (t *CellType) removeClone(c *Clone) {
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		t.rootClone = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	} else {
		t.endClone = c.prev
	}
	c.prev = nil
	c.next = nil
}

// addCells folds n cells of the given per-cell birth rate into the type
// and population aggregates, relinking the type into the membership ring
// if it was extinct.
func (t *CellType) addCells(n int64, perCellBirth float64) {
	t.numCells += n
	t.totalBirth += float64(n) * perCellBirth
	t.pop.totCells += n
	t.pop.totBirth += float64(n) * perCellBirth
	if t.numCells > 0 && !t.inRing {
		t.pop.relink(t)
	}
}

// subtractOneCell removes exactly one cell with the given birth rate from
// the aggregates, unlinking the type from the ring if it goes extinct.
func (t *CellType) subtractOneCell(perCellBirth float64) {
	t.numCells--
	t.totalBirth -= perCellBirth
	t.pop.totCells--
	t.pop.totBirth -= perCellBirth
	if t.numCells == 0 {
		t.totalBirth = 0 // absorb accumulated round-off
		t.unlink()
	}
}

// unlink removes the type from the active membership ring. The type stays
// registered in the population's index table.
func (t *CellType) unlink() {
	if !t.inRing {
		return
	}
	if t.prevType != nil {
		t.prevType.nextType = t.nextType
	} else {
		t.pop.ringRoot = t.nextType
	}
	if t.nextType != nil {
		t.nextType.prevType = t.prevType
	} else {
		t.pop.ringEnd = t.prevType
	}
	t.prevType = nil
	t.nextType = nil
	t.inRing = false
}

// findClone returns an owned clone with matching birth rate and mutation
// probability, or nil.
func (t *CellType) findClone(birth, mut float64) *Clone {
	for c := t.rootClone; c != nil; c = c.next {
		if c.birth == birth && c.mut == mut {
			return c
		}
	}
	return nil
}

// Walk visits the subtree rooted at the type depth-first, parents before
// children.
func (t *CellType) Walk(visit func(*CellType)) {
	visit(t)
	for _, c := range t.childs {
		c.Walk(visit)
	}
}

// clearClones drops every clone of the type and removes their cells from
// the aggregates. Used at refresh boundaries.
func (t *CellType) clearClones() {
	for c := t.rootClone; c != nil; c = c.next {
		t.pop.totCells -= c.count
		t.pop.totBirth -= c.TotalBirth()
	}
	t.rootClone = nil
	t.endClone = nil
	t.numCells = 0
	t.totalBirth = 0
	t.unlink()
}
