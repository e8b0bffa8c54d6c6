package mutate

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/dvanegeren/evo-sim/pop"
	"github.com/dvanegeren/evo-sim/rnd"
)

// FathersCurse is the sexual kernel of the father's-curse model:
// Mendelian inheritance over a three-genotype autosome and a binary
// Y-linked marker, with sex drawn independently. The nine genotypes map
// to cell type indices:
//
//	females: 0 AA XX, 1 Aa XX, 2 aa XX
//	males:   3 AA XY, 4 Aa XY, 5 aa XY, 6 AA Xy, 7 Aa Xy, 8 aa Xy
//
// Per-locus mutation applies symmetric Aa heterozygote reversion on the
// autosome and toggles the father's Y state with probability yMut.
type FathersCurse struct {
	fAA  float64
	fAa  float64
	faa  float64
	fAAy float64
	fAay float64
	faay float64

	autosomeMut float64
	yMut        float64
	maleProb    float64

	src *rnd.Source
}

// NewFathersCurse returns an unread FathersCurse kernel.
func NewFathersCurse(src *rnd.Source) *FathersCurse {
	return &FathersCurse{
		fAA: -1, fAa: -1, faa: -1,
		fAAy: -1, fAay: -1, faay: -1,
		autosomeMut: -1, yMut: -1,
		maleProb: 0.5,
		src:      src,
	}
}

// GenerateMutant implements pop.MutationKernel for interface parity;
// sexual reproduction always supplies two parents.
func (k *FathersCurse) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	return pop.Mutant{}, errors.New("sexual mutation kernel requires two parents")
}

const (
	genoAA = iota
	genoAa
	genoaa
)

// GenerateChild implements pop.SexualKernel. It is called for every
// reproduction event of a sexual population.
func (k *FathersCurse) GenerateChild(mother, father *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	if mother.Index() > 2 {
		return pop.Mutant{}, errors.Errorf("bad mother cell type %d", mother.Index())
	}
	if father.Index() < 3 || father.Index() > 8 {
		return pop.Mutant{}, errors.Errorf("bad father cell type %d", father.Index())
	}

	fatherGeno := (father.Index() - 3) % 3
	geno := k.crossAutosome(mother.Index(), fatherGeno)

	// symmetric heterozygote reversion on the autosome
	mutated := k.src.Bernoulli(k.autosomeMut)
	if mutated {
		switch geno {
		case genoAA, genoaa:
			geno = genoAa
		case genoAa:
			if k.src.Bernoulli(0.5) {
				geno = genoAA
			} else {
				geno = genoaa
			}
		}
	}

	mutatedY := k.src.Bernoulli(k.yMut)
	isMale := k.src.Bernoulli(k.maleProb)
	fatherMarked := father.Index() > 5

	var index int
	var rate float64
	switch {
	case !isMale:
		index = geno
		rate = [3]float64{k.fAA, k.fAa, k.faa}[geno]
	case fatherMarked != mutatedY: // inherits the marked Y
		index = 6 + geno
		rate = [3]float64{k.fAAy, k.fAay, k.faay}[geno]
	default:
		index = 3 + geno
		rate = [3]float64{k.fAA, k.fAa, k.faa}[geno]
	}

	t, err := mother.Pop().GetOrCreateType(index, mother)
	if err != nil {
		return pop.Mutant{}, err
	}
	return pop.Mutant{Birth: rate, MutProb: mutProb, Type: t, Mutated: mutated}, nil
}

// crossAutosome draws the child autosome genotype from the parental
// cross. Ratios follow Mendel: each parent contributes one allele.
func (k *FathersCurse) crossAutosome(motherGeno, fatherGeno int) int {
	switch motherGeno {
	case genoAA:
		switch fatherGeno {
		case genoAA:
			return genoAA
		case genoAa:
			if k.src.Bernoulli(0.5) {
				return genoAA
			}
			return genoAa
		default:
			return genoAa
		}
	case genoAa:
		u := k.src.Uniform()
		switch fatherGeno {
		case genoAA:
			if u < 0.5 {
				return genoAA
			}
			return genoAa
		case genoAa:
			if u < 0.25 {
				return genoAA
			} else if u < 0.75 {
				return genoAa
			}
			return genoaa
		default:
			if u < 0.5 {
				return genoaa
			}
			return genoAa
		}
	default: // aa
		switch fatherGeno {
		case genoAA:
			return genoAa
		case genoAa:
			if k.src.Bernoulli(0.5) {
				return genoaa
			}
			return genoAa
		default:
			return genoaa
		}
	}
}

// Read implements Reader. Required keys: f_AA, f_Aa, f_aa, f_AA_y,
// f_Aa_y, f_aa_y, autosome_mut, y_mut; optional: male_prob (default 0.5).
func (k *FathersCurse) Read(params []string) error {
	dst := map[string]*float64{
		"f_AA":         &k.fAA,
		"f_Aa":         &k.fAa,
		"f_aa":         &k.faa,
		"f_AA_y":       &k.fAAy,
		"f_Aa_y":       &k.fAay,
		"f_aa_y":       &k.faay,
		"autosome_mut": &k.autosomeMut,
		"y_mut":        &k.yMut,
		"male_prob":    &k.maleProb,
	}
	for _, tok := range params {
		key, val, err := splitKV(tok)
		if err != nil {
			return err
		}
		p, ok := dst[key]
		if !ok {
			return errors.Errorf("unknown parameter %q", key)
		}
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return errors.Wrapf(err, "parameter %q", key)
		}
		*p = f
	}
	for key, p := range dst {
		if *p < 0 {
			return errors.Errorf("father's-curse kernel requires parameter %q", key)
		}
	}
	return nil
}
