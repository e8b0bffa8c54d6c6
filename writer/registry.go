package writer

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	evosim "github.com/dvanegeren/evo-sim"
	"github.com/dvanegeren/evo-sim/pop"
)

// New builds the writer registered under the given kind. loc is the
// output path prefix shared by the run; params are the positional tokens
// from the writer's config line.
func New(kind, loc string, params []string) (evosim.Observer, error) {
	switch kind {
	case "CellCount":
		period, index, err := periodIndex(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewCellCount(loc, period, index), nil
	case "CountStep":
		period, index, err := periodIndex(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewCountStep(loc, period, index), nil
	case "FitnessDist":
		period, index, err := periodIndex(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewFitnessDist(loc, period, index), nil
	case "MeanFit":
		period, index, err := periodIndex(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewMeanFit(loc, period, index), nil
	case "MotherDaughter":
		period, index, err := periodIndex(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewMotherDaughter(loc, period, index), nil
	case "AllTypesWide":
		period, err := oneInt(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewAllTypesWide(loc, period), nil
	case "NumMutations":
		index, err := oneInt(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewNumMutations(loc, index), nil
	case "NewMutant":
		index, err := oneInt(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewNewMutant(loc, index), nil
	case "IfType":
		index, err := oneInt(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewIfType(loc, index), nil
	case "IfType2":
		return NewIfType(loc, 2), nil
	case "Tunnel":
		index, err := oneInt(params)
		if err != nil {
			return nil, errors.Wrap(err, kind)
		}
		return NewTunnel(loc, index), nil
	case "TypeStructure":
		return NewTypeStructure(loc), nil
	case "IsExtinct":
		return NewIsExtinct(loc), nil
	case "EndTime":
		return NewEndTime(loc), nil
	case "EndPop":
		return NewEndPop(loc), nil
	case "EndPopTypes":
		return NewEndPopTypes(loc), nil
	case "AllTypes":
		if len(params) == 0 {
			return nil, errors.New("AllTypes requires a child writer kind")
		}
		return NewAllTypes(loc, params[0], params[1:]), nil
	}
	return nil, errors.Errorf("unknown writer kind %q", kind)
}

func periodIndex(params []string) (int, int, error) {
	if len(params) != 2 {
		return 0, 0, errors.Errorf("want 2 parameters, got %d", len(params))
	}
	period, err := cast.ToIntE(params[0])
	if err != nil {
		return 0, 0, errors.Wrap(err, "period")
	}
	index, err := cast.ToIntE(params[1])
	if err != nil {
		return 0, 0, errors.Wrap(err, "type index")
	}
	return period, index, nil
}

func oneInt(params []string) (int, error) {
	if len(params) != 1 {
		return 0, errors.Errorf("want 1 parameter, got %d", len(params))
	}
	v, err := cast.ToIntE(params[0])
	if err != nil {
		return 0, err
	}
	return v, nil
}

// AllTypes spawns one child writer of the configured kind per visible
// type, covering root types at Begin and types created by mutation as
// they appear.
type AllTypes struct {
	loc     string
	kind    string
	params  []string
	sim     int
	writers []evosim.Observer
	indexed map[int]bool
}

// NewAllTypes returns the per-type composite writer. The child kind must
// take a type index as its final parameter.
func NewAllTypes(loc, kind string, params []string) *AllTypes {
	return &AllTypes{loc: loc, kind: kind, params: params, indexed: map[int]bool{}}
}

func (w *AllTypes) spawn(p *pop.Population, index int) error {
	child, err := New(w.kind, w.loc, append(append([]string(nil), w.params...), cast.ToString(index)))
	if err != nil {
		return err
	}
	if err := child.Begin(p, w.sim); err != nil {
		return err
	}
	w.writers = append(w.writers, child)
	w.indexed[index] = true
	return nil
}

// Begin implements evosim.Observer.
func (w *AllTypes) Begin(p *pop.Population, sim int) error {
	w.sim = sim
	for _, root := range p.RootTypes() {
		if err := w.spawn(p, root.Index()); err != nil {
			return err
		}
	}
	return nil
}

// PerEvent implements evosim.Observer.
func (w *AllTypes) PerEvent(p *pop.Population) error {
	for _, child := range w.writers {
		if err := child.PerEvent(p); err != nil {
			return err
		}
	}
	if len(w.indexed) == p.VisibleTypes() {
		return nil
	}
	for i := 0; i < p.VisibleTypes(); i++ {
		if p.TypeByIndex(i) == nil || w.indexed[i] {
			continue
		}
		if err := w.spawn(p, i); err != nil {
			return err
		}
	}
	return nil
}

// Final implements evosim.Observer.
func (w *AllTypes) Final(p *pop.Population) error {
	for _, child := range w.writers {
		if err := child.Final(p); err != nil {
			return err
		}
	}
	w.writers = nil
	w.indexed = map[int]bool{}
	return nil
}
