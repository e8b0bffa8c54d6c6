package pop

// Hierarchical categorical sampling. A draw u over the relevant total
// rate first picks a type by walking the membership ring and accumulating
// per-type mass left to right, then picks a clone the same way within the
// type. A draw that lands exactly on a boundary belongs to the earlier
// candidate.

// chooseReproducer picks a clone with probability proportional to its
// total birth rate.
func (p *Population) chooseReproducer() *Clone {
	if p.totBirth <= 0 {
		return nil
	}
	x := p.src.Uniform() * p.totBirth
	acc := 0.0
	for t := p.ringRoot; t != nil; t = t.nextType {
		if t.totalBirth > 0 && x <= acc+t.totalBirth {
			return t.pickCloneByBirth(x - acc)
		}
		acc += t.totalBirth
	}
	// accumulated round-off pushed the draw past the last boundary
	return p.lastCloneWithBirth()
}

func (t *CellType) pickCloneByBirth(x float64) *Clone {
	acc := 0.0
	var last *Clone
	for c := t.rootClone; c != nil; c = c.next {
		w := c.TotalBirth()
		if w > 0 {
			if x <= acc+w {
				return c
			}
			last = c
		}
		acc += w
	}
	return last
}

func (p *Population) lastCloneWithBirth() *Clone {
	for t := p.ringEnd; t != nil; t = t.prevType {
		for c := t.endClone; c != nil; c = c.prev {
			if c.TotalBirth() > 0 {
				return c
			}
		}
	}
	return nil
}

// chooseDead picks a clone with probability proportional to its cell
// count, the victim distribution under a symmetric per-cell death rate.
func (p *Population) chooseDead() *Clone {
	if p.totCells == 0 {
		return nil
	}
	x := p.src.Uniform() * float64(p.totCells)
	acc := 0.0
	for t := p.ringRoot; t != nil; t = t.nextType {
		w := float64(t.numCells)
		if w > 0 && x <= acc+w {
			return t.pickCloneByCount(x - acc)
		}
		acc += w
	}
	return p.lastCloneWithCells()
}

func (t *CellType) pickCloneByCount(x float64) *Clone {
	acc := 0.0
	var last *Clone
	for c := t.rootClone; c != nil; c = c.next {
		w := float64(c.count)
		if w > 0 {
			if x <= acc+w {
				return c
			}
			last = c
		}
		acc += w
	}
	return last
}

func (p *Population) lastCloneWithCells() *Clone {
	for t := p.ringEnd; t != nil; t = t.prevType {
		for c := t.endClone; c != nil; c = c.prev {
			if c.count > 0 {
				return c
			}
		}
	}
	return nil
}

// chooseDeadVar picks the victim proportionally to per-type death mass,
// then uniformly within the chosen type.
func (p *Population) chooseDeadVar(totalDeath float64) *Clone {
	if totalDeath <= 0 {
		return nil
	}
	x := p.src.Uniform() * totalDeath
	acc := 0.0
	for t := p.ringRoot; t != nil; t = t.nextType {
		w := t.deathRate * float64(t.numCells)
		if w > 0 && x <= acc+w {
			return t.pickCloneByCount((x - acc) / t.deathRate)
		}
		acc += w
	}
	return p.lastCloneWithCells()
}
