package mutate

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/dvanegeren/evo-sim/pop"
	"github.com/dvanegeren/evo-sim/rnd"
)

// FixedSites walks a loaded fitness landscape: an adjacency matrix of
// permitted type transitions and a per-type fitness vector. A mutation
// samples uniformly among the parent's outgoing edges and composes the
// fitness change additively or multiplicatively.
type FixedSites struct {
	maxTypes  int
	isMult    bool
	fitnesses []float64
	adjMat    []int
	src       *rnd.Source
}

func (k *FixedSites) adjIndex(cellType, adjType int) int {
	return cellType*k.maxTypes + adjType
}

// GenerateMutant implements pop.MutationKernel. A parent type with no
// outgoing edges produces a non-mutant daughter in place.
func (k *FixedSites) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	orig := parent.Index()
	if orig >= k.maxTypes {
		return pop.Mutant{}, errors.Errorf("cell type %d outside the loaded landscape", orig)
	}
	var out []int
	for i := 0; i < k.maxTypes; i++ {
		if k.adjMat[k.adjIndex(orig, i)] > 0 {
			out = append(out, k.adjMat[k.adjIndex(orig, i)])
		}
	}
	if len(out) == 0 {
		return pop.Mutant{Birth: birth, MutProb: 0, Type: parent, Mutated: false}, nil
	}
	newID := out[int(float64(len(out))*k.src.Uniform())]
	t, err := parent.Pop().GetOrCreateType(newID, parent)
	if err != nil {
		return pop.Mutant{}, err
	}
	rate := birth + k.fitnesses[newID] - k.fitnesses[orig]
	if k.isMult {
		rate = birth * k.fitnesses[newID] / k.fitnesses[orig]
	}
	return pop.Mutant{Birth: rate, MutProb: mutProb, Type: t, Mutated: true}, nil
}

// Read implements Reader. The parameters are positional:
// [max types] [is mult] [fitness file] [adjacency file].
func (k *FixedSites) Read(params []string) error {
	if len(params) != 4 {
		return errors.Errorf("fixed-sites kernel takes 4 parameters, got %d", len(params))
	}
	n, err := cast.ToIntE(params[0])
	if err != nil {
		return errors.Wrap(err, "max types")
	}
	k.maxTypes = n
	mult, err := cast.ToIntE(params[1])
	if err != nil {
		return errors.Wrap(err, "is mult")
	}
	k.isMult = mult != 0
	if err := k.readFitnesses(params[2]); err != nil {
		return err
	}
	return k.readAdjacency(params[3])
}

func (k *FixedSites) readFitnesses(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "fitness file %q", path)
	}
	defer f.Close()
	k.fitnesses = make([]float64, k.maxTypes)
	count := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if count >= k.maxTypes {
			return errors.Errorf("fitness file %q has more than %d entries", path, k.maxTypes)
		}
		v, err := cast.ToFloat64E(strings.TrimSpace(sc.Text()))
		if err != nil {
			return errors.Wrapf(err, "fitness file %q line %d", path, count+1)
		}
		k.fitnesses[count] = v
		count++
	}
	if count != k.maxTypes {
		return errors.Errorf("fitness file %q has %d entries, want %d", path, count, k.maxTypes)
	}
	return nil
}

func (k *FixedSites) readAdjacency(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "adjacency file %q", path)
	}
	defer f.Close()
	k.adjMat = make([]int, k.maxTypes*k.maxTypes)
	for i := range k.adjMat {
		k.adjMat[i] = -1
	}
	row := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if row >= k.maxTypes {
			return errors.Errorf("adjacency file %q has more than %d rows", path, k.maxTypes)
		}
		col := 0
		for _, tok := range strings.Split(sc.Text(), ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			v, err := cast.ToIntE(tok)
			if err != nil {
				return errors.Wrapf(err, "adjacency file %q row %d", path, row+1)
			}
			if v >= k.maxTypes {
				return errors.Errorf("adjacency file %q row %d references type %d outside the landscape", path, row+1, v)
			}
			k.adjMat[k.adjIndex(row, col)] = v
			col++
		}
		row++
	}
	return nil
}
