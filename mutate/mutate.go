// Package mutate implements the mutation kernels: given a reproducing
// parent, a kernel chooses the daughter's type, birth rate, and mutation
// probability. Kernels register daughter types through the population's
// type-lookup helper but never commit cells; the engine does.
//
// Kernel parameters arrive as tokens from the config file, consumed by
// each kernel's Read method. Most kernels take "key,value" tokens;
// FixedSites takes positional tokens.
package mutate

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/dvanegeren/evo-sim/pop"
	"github.com/dvanegeren/evo-sim/rnd"
)

// New returns the kernel registered under the given name. Kernels that
// consume randomness share the engine's source.
func New(name string, src *rnd.Source) (pop.MutationKernel, error) {
	switch name {
	case "NoMutation", "None":
		return &NoMutation{}, nil
	case "Neutral":
		return &Neutral{}, nil
	case "ThreeTypes":
		return &ThreeTypes{}, nil
	case "ThreeTypesMult":
		return &ThreeTypesMult{}, nil
	case "ThreeTypesFlex":
		return &ThreeTypesFlex{src: src}, nil
	case "ManyTypesFlex":
		return &ManyTypesFlex{ThreeTypesFlex: ThreeTypesFlex{src: src}}, nil
	case "DimReturnsUnif":
		return &DimReturnsUnif{src: src}, nil
	case "FixedSites":
		return &FixedSites{src: src}, nil
	case "ParamDist":
		return &ParamDist{src: src}, nil
	case "FathersCurse":
		return NewFathersCurse(src), nil
	}
	return nil, errors.Errorf("unknown mutation kernel %q", name)
}

// A Reader consumes the kernel's "key,value" parameter tokens. Every
// kernel implements it; kernels without parameters accept an empty list.
type Reader interface {
	Read(params []string) error
}

// splitKV splits one "key,value" token.
func splitKV(tok string) (string, string, error) {
	k, v, ok := strings.Cut(tok, ",")
	if !ok {
		return "", "", errors.Errorf("malformed parameter token %q, want key,value", tok)
	}
	return k, v, nil
}

// NoMutation signals an error if ever invoked. It is the kernel of
// simulations whose clones all carry zero mutation probability.
type NoMutation struct{}

// GenerateMutant implements pop.MutationKernel.
func (*NoMutation) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	return pop.Mutant{}, errors.New("mutation event in a simulation configured without mutation")
}

// Read implements Reader.
func (*NoMutation) Read(params []string) error { return nil }

// Neutral gives the daughter a fresh unused type index and the parent's
// birth and mutation rates.
type Neutral struct{}

// GenerateMutant implements pop.MutationKernel.
func (*Neutral) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	p := parent.Pop()
	if p.NoTypesLeft() {
		return pop.Mutant{}, errors.New("requested new cell type when no types left")
	}
	t, err := p.GetOrCreateType(p.NextType(), parent)
	if err != nil {
		return pop.Mutant{}, err
	}
	return pop.Mutant{Birth: birth, MutProb: mutProb, Type: t, Mutated: true}, nil
}

// Read implements Reader.
func (*Neutral) Read(params []string) error { return nil }

// ThreeTypes is the forward-only three-type kernel over the typespace
// {0,1,2} with additive fitness steps: type 0 mutates to 1 with daughter
// rate b+fit1-1, type 1 mutates to the absorbing type 2 with daughter
// rate b+fit2-fit1-1.
type ThreeTypes struct {
	mu2  float64
	fit1 float64
	fit2 float64
}

// GenerateMutant implements pop.MutationKernel.
func (k *ThreeTypes) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	switch parent.Index() {
	case 0:
		t, err := parent.Pop().GetOrCreateType(1, parent)
		if err != nil {
			return pop.Mutant{}, err
		}
		return pop.Mutant{Birth: birth + k.fit1 - 1, MutProb: k.mu2, Type: t, Mutated: true}, nil
	case 1:
		t, err := parent.Pop().GetOrCreateType(2, parent)
		if err != nil {
			return pop.Mutant{}, err
		}
		return pop.Mutant{Birth: birth + k.fit2 - k.fit1 - 1, MutProb: 0, Type: t, Mutated: true}, nil
	}
	return pop.Mutant{}, errors.Errorf("three-type kernel cannot mutate cell type %d", parent.Index())
}

// Read implements Reader. Required keys: mu2, fit1, fit2.
func (k *ThreeTypes) Read(params []string) error {
	return readThreeTypes(params, &k.mu2, &k.fit1, &k.fit2)
}

func readThreeTypes(params []string, mu2, fit1, fit2 *float64) error {
	var hasMu2, hasFit1, hasFit2 bool
	for _, tok := range params {
		key, val, err := splitKV(tok)
		if err != nil {
			return err
		}
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return errors.Wrapf(err, "parameter %q", key)
		}
		switch key {
		case "mu2":
			*mu2, hasMu2 = f, true
		case "fit1":
			*fit1, hasFit1 = f, true
		case "fit2":
			*fit2, hasFit2 = f, true
		default:
			return errors.Errorf("unknown parameter %q", key)
		}
	}
	if !hasMu2 || !hasFit1 || !hasFit2 {
		return errors.New("three-type kernel requires mu2, fit1, and fit2")
	}
	return nil
}

// ThreeTypesMult is ThreeTypes with multiplicative fitness steps: the
// daughter rate is scaled by fit1 (or fit2/fit1).
type ThreeTypesMult struct {
	ThreeTypes
}

// GenerateMutant implements pop.MutationKernel.
func (k *ThreeTypesMult) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	switch parent.Index() {
	case 0:
		t, err := parent.Pop().GetOrCreateType(1, parent)
		if err != nil {
			return pop.Mutant{}, err
		}
		return pop.Mutant{Birth: birth * k.fit1, MutProb: k.mu2, Type: t, Mutated: true}, nil
	case 1:
		t, err := parent.Pop().GetOrCreateType(2, parent)
		if err != nil {
			return pop.Mutant{}, err
		}
		return pop.Mutant{Birth: birth * k.fit2 / k.fit1, MutProb: 0, Type: t, Mutated: true}, nil
	}
	return pop.Mutant{}, errors.Errorf("three-type kernel cannot mutate cell type %d", parent.Index())
}

// ThreeTypesFlex lets type 0 jump directly to the absorbing type 2 with
// probability p1, otherwise to type 1. Daughter rates are the absolute
// fitnesses fit1 and fit2.
type ThreeTypesFlex struct {
	mu2  float64
	fit1 float64
	fit2 float64
	p1   float64
	src  *rnd.Source
}

// GenerateMutant implements pop.MutationKernel.
func (k *ThreeTypesFlex) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	p := parent.Pop()
	switch parent.Index() {
	case 0:
		if k.src.Uniform() < k.p1 {
			t, err := p.GetOrCreateType(2, parent)
			if err != nil {
				return pop.Mutant{}, err
			}
			return pop.Mutant{Birth: k.fit2, MutProb: 0, Type: t, Mutated: true}, nil
		}
		t, err := p.GetOrCreateType(1, parent)
		if err != nil {
			return pop.Mutant{}, err
		}
		return pop.Mutant{Birth: k.fit1, MutProb: k.mu2, Type: t, Mutated: true}, nil
	case 1:
		t, err := p.GetOrCreateType(2, parent)
		if err != nil {
			return pop.Mutant{}, err
		}
		return pop.Mutant{Birth: k.fit2, MutProb: 0, Type: t, Mutated: true}, nil
	}
	return pop.Mutant{}, errors.Errorf("three-type kernel cannot mutate cell type %d", parent.Index())
}

// Read implements Reader. Required keys: mu2, fit1, fit2, p1.
func (k *ThreeTypesFlex) Read(params []string) error {
	var hasP1 bool
	rest := params[:0:0]
	for _, tok := range params {
		if key, val, err := splitKV(tok); err == nil && key == "p1" {
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return errors.Wrap(err, "parameter p1")
			}
			k.p1, hasP1 = f, true
			continue
		}
		rest = append(rest, tok)
	}
	if !hasP1 {
		return errors.New("flex kernel requires p1")
	}
	return readThreeTypes(rest, &k.mu2, &k.fit1, &k.fit2)
}

// ManyTypesFlex generalises ThreeTypesFlex to blocks of size num: type i
// in block 0 routes to i+num with probability 1-p1 or i+2*num with
// probability p1; types in block 1 route to their absorbing partner in
// block 2.
type ManyTypesFlex struct {
	ThreeTypesFlex
	num int
}

// GenerateMutant implements pop.MutationKernel.
func (k *ManyTypesFlex) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	p := parent.Pop()
	switch parent.Index() / k.num {
	case 0:
		if k.src.Uniform() < k.p1 {
			t, err := p.GetOrCreateType(parent.Index()+2*k.num, parent)
			if err != nil {
				return pop.Mutant{}, err
			}
			return pop.Mutant{Birth: k.fit2, MutProb: 0, Type: t, Mutated: true}, nil
		}
		t, err := p.GetOrCreateType(parent.Index()+k.num, parent)
		if err != nil {
			return pop.Mutant{}, err
		}
		return pop.Mutant{Birth: k.fit1, MutProb: k.mu2, Type: t, Mutated: true}, nil
	case 1:
		t, err := p.GetOrCreateType(parent.Index()+k.num, parent)
		if err != nil {
			return pop.Mutant{}, err
		}
		return pop.Mutant{Birth: k.fit2, MutProb: 0, Type: t, Mutated: true}, nil
	}
	return pop.Mutant{}, errors.Errorf("flex kernel cannot mutate cell type %d", parent.Index())
}

// Read implements Reader. Required keys: mu2, fit1, fit2, p1, num.
func (k *ManyTypesFlex) Read(params []string) error {
	var hasNum bool
	rest := params[:0:0]
	for _, tok := range params {
		if key, val, err := splitKV(tok); err == nil && key == "num" {
			n, err := cast.ToIntE(val)
			if err != nil {
				return errors.Wrap(err, "parameter num")
			}
			k.num, hasNum = n, true
			continue
		}
		rest = append(rest, tok)
	}
	if !hasNum {
		return errors.New("many-type flex kernel requires num")
	}
	return k.ThreeTypesFlex.Read(rest)
}

// DimReturnsUnif gives the daughter a fresh index and a uniform fitness
// gain that diminishes geometrically with the parent's depth in the
// phylogeny.
type DimReturnsUnif struct {
	dimRate float64
	maxGain float64
	src     *rnd.Source
}

// GenerateMutant implements pop.MutationKernel.
func (k *DimReturnsUnif) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	p := parent.Pop()
	if p.NoTypesLeft() {
		return pop.Mutant{}, errors.New("requested new cell type when no types left")
	}
	t, err := p.GetOrCreateType(p.NextType(), parent)
	if err != nil {
		return pop.Mutant{}, err
	}
	offset := k.src.Uniform() * k.maxGain * math.Pow(k.dimRate, float64(parent.Depth()))
	t.SetMutEffect(offset)
	return pop.Mutant{Birth: birth + offset, MutProb: mutProb, Type: t, Mutated: true}, nil
}

// Read implements Reader. Required keys: dim, fit.
func (k *DimReturnsUnif) Read(params []string) error {
	var hasDim, hasFit bool
	for _, tok := range params {
		key, val, err := splitKV(tok)
		if err != nil {
			return err
		}
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return errors.Wrapf(err, "parameter %q", key)
		}
		switch key {
		case "dim":
			k.dimRate, hasDim = f, true
		case "fit":
			k.maxGain, hasFit = f, true
		default:
			return errors.Errorf("unknown parameter %q", key)
		}
	}
	if !hasDim || !hasFit {
		return errors.New("diminishing-returns kernel requires dim and fit")
	}
	return nil
}

// ParamDist gives the daughter a fresh index and a fitness change drawn
// from a named distribution. In fixed mode the draw is the daughter rate
// itself; otherwise it is an offset from the parent rate. Negative rates
// clamp to zero, as does the rate with probability zeroProb.
type ParamDist struct {
	param1   float64
	param2   float64
	zeroProb float64
	isFixed  bool
	distType string
	src      *rnd.Source
}

// GenerateMutant implements pop.MutationKernel.
func (k *ParamDist) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	p := parent.Pop()
	if p.NoTypesLeft() {
		return pop.Mutant{}, errors.New("requested new cell type when no types left")
	}
	t, err := p.GetOrCreateType(p.NextType(), parent)
	if err != nil {
		return pop.Mutant{}, err
	}
	var drawn float64
	switch k.distType {
	case "lognorm":
		drawn = k.src.LogNormal(k.param1, k.param2)
	case "norm":
		drawn = k.src.Normal(k.param1, k.param2)
	case "gamma":
		drawn = k.src.Gamma(k.param1, k.param2)
	case "doubleexp":
		drawn = k.src.DoubleExp(k.param1, k.param2)
	case "unif":
		drawn = k.src.UniformRange(k.param1, k.param2)
	default:
		return pop.Mutant{}, errors.Errorf("unknown distribution %q", k.distType)
	}
	rate := birth + drawn
	if k.isFixed {
		rate = drawn
	}
	if rate < 0 || k.src.Bernoulli(k.zeroProb) {
		rate = 0
	}
	t.SetMutEffect(rate - birth)
	return pop.Mutant{Birth: rate, MutProb: mutProb, Type: t, Mutated: true}, nil
}

// Read implements Reader. Required keys: mean (or low), var (or high),
// type, fixed; optional: zero.
func (k *ParamDist) Read(params []string) error {
	var hasP1, hasP2, hasType, hasFixed bool
	for _, tok := range params {
		key, val, err := splitKV(tok)
		if err != nil {
			return err
		}
		switch key {
		case "mean", "low":
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return errors.Wrapf(err, "parameter %q", key)
			}
			k.param1, hasP1 = f, true
		case "var", "high":
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return errors.Wrapf(err, "parameter %q", key)
			}
			k.param2, hasP2 = f, true
		case "type":
			k.distType, hasType = val, true
		case "fixed":
			k.isFixed, hasFixed = val == "true", true
		case "zero":
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return errors.Wrap(err, "parameter zero")
			}
			k.zeroProb = f
		default:
			return errors.Errorf("unknown parameter %q", key)
		}
	}
	if !hasP1 || !hasP2 || !hasType || !hasFixed {
		return errors.New("distribution kernel requires mean/low, var/high, type, and fixed")
	}
	switch k.distType {
	case "lognorm", "norm", "gamma", "doubleexp":
		if k.param2 <= 0 {
			return errors.Errorf("distribution %q requires a positive variance", k.distType)
		}
	case "unif":
	default:
		return errors.Errorf("unknown distribution %q", k.distType)
	}
	return nil
}
