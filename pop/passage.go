package pop

import (
	"github.com/pkg/errors"
)

// Passage runs the standard branching process between a series of
// scheduled passaging events. At each passage time the population is
// thinned uniformly down to a target cell count. Times and targets are
// consumed from two queues; a refresh restores them from frozen copies.
type Passage struct {
	*Population

	frozenTimes []float64
	frozenNums  []int64
	times       []float64
	nums        []int64
}

// NewPassage wraps a population in the passaging policy.
func NewPassage(p *Population) *Passage {
	return &Passage{Population: p}
}

// SetSchedule installs the passage times and cell-count targets. The
// frozen copies survive refreshes.
func (pp *Passage) SetSchedule(times []float64, nums []int64) error {
	if len(times) != len(nums) {
		return errors.Errorf("passage schedule mismatch: %d times, %d targets", len(times), len(nums))
	}
	pp.frozenTimes = append([]float64(nil), times...)
	pp.frozenNums = append([]int64(nil), nums...)
	pp.times = append([]float64(nil), times...)
	pp.nums = append([]int64(nil), nums...)
	return nil
}

// CheckInit additionally requires a non-empty passage schedule.
func (pp *Passage) CheckInit() error {
	if err := pp.Population.CheckInit(); err != nil {
		return err
	}
	if len(pp.times) == 0 {
		return errors.New("passage population has no passage schedule")
	}
	return nil
}

// RefreshSim restores the passage queues from their frozen copies.
func (pp *Passage) RefreshSim() {
	pp.Population.RefreshSim()
	pp.times = append(pp.times[:0], pp.frozenTimes...)
	pp.nums = append(pp.nums[:0], pp.frozenNums...)
}

// Advance executes the next event, which is a passage when the drawn
// waiting time would cross the next scheduled passage time.
func (pp *Passage) Advance() error {
	p := pp.Population
	p.resetScratch()
	totalDeath := p.TotalDeath()
	total := p.totBirth + totalDeath
	if total <= 0 {
		return nil
	}
	dt := p.src.Exp(total)
	if len(pp.times) > 0 && p.t+dt >= pp.times[0] {
		p.t = pp.times[0]
		pp.passage(pp.nums[0])
		pp.times = pp.times[1:]
		pp.nums = pp.nums[1:]
		return nil
	}
	p.t += dt
	return p.executeEvent(totalDeath)
}

// passage thins the population uniformly down to the target count:
// victims are removed one at a time by uniform sampling without
// replacement until the target is reached.
func (pp *Passage) passage(target int64) {
	p := pp.Population
	for p.totCells > target {
		c := p.chooseDead()
		if c == nil {
			return
		}
		p.killCell(c)
	}
}
