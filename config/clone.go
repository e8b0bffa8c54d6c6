package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/dvanegeren/evo-sim/pop"
	"github.com/dvanegeren/evo-sim/rnd"
)

// applyCloneLine seeds the cohorts of one clone directive:
//
//	clone Simple <type> <num_cells> <birth> <mut_prob>
//	clone TypeSpecific|Heritable <type> <num_cells> <mean> <var> <mut_prob> [k,v ...]
//	clone HerReset <type> <num_cells> <mean> <var> <mut_prob> kgen,<n> [k,v ...]
//	clone TypeEmpiric|HerEmpiric <type> <num_cells> <mean> <mut_prob> file,<path> [k,v ...]
//	clone HerResetEmpiric <type> <num_cells> <mean> <mut_prob> file,<path> kgen,<n> [k,v ...]
//
// Optional k,v tokens: dist,<lognorm|gamma|doubleexp> and mult,<0|1>.
// Stochastic kinds produce num_cells singleton clones; Simple produces
// one cohort.
func (c *Config) applyCloneLine(l line) error {
	if len(l.toks) < 3 {
		return catErr(CatParams, errors.New("clone line needs a kind, type index, and cell count"))
	}
	kind := l.toks[0]
	index, err := cast.ToIntE(l.toks[1])
	if err != nil {
		return catErr(CatNumber, errors.Wrap(err, "type index"))
	}
	count, err := cast.ToInt64E(l.toks[2])
	if err != nil {
		return catErr(CatNumber, errors.Wrap(err, "cell count"))
	}
	if count <= 0 {
		return catErr(CatNumber, errors.Errorf("cell count must be positive, got %d", count))
	}

	t := c.pop.TypeByIndex(index)
	if t == nil {
		if index < 0 || index >= c.pop.MaxTypes() {
			return catErr(CatIndex, errors.Errorf("type index %d outside typespace [0,%d)", index, c.pop.MaxTypes()))
		}
		t, err = c.pop.NewRootType(index)
		if err != nil {
			return catErr(CatIndex, err)
		}
	}

	rest := l.toks[3:]
	switch kind {
	case "Simple":
		if len(rest) != 2 {
			return catErr(CatParams, errors.New("Simple clone takes birth rate and mutation probability"))
		}
		birth, err := cast.ToFloat64E(rest[0])
		if err != nil {
			return catErr(CatNumber, errors.Wrap(err, "birth rate"))
		}
		mut, err := cast.ToFloat64E(rest[1])
		if err != nil {
			return catErr(CatNumber, errors.Wrap(err, "mutation probability"))
		}
		if birth < 0 || mut < 0 || mut > 1 {
			return catErr(CatNumber, errors.New("birth rate must be non-negative and mutation probability in [0,1]"))
		}
		pop.NewSimple(t, birth, mut, count)
		return nil
	case "TypeSpecific", "Heritable", "HerReset":
		return c.applyStochClone(kind, t, count, rest)
	case "TypeEmpiric", "HerEmpiric", "HerResetEmpiric":
		return c.applyEmpiricClone(kind, t, count, rest)
	}
	return catErr(CatKeyword, errors.Errorf("unknown clone kind %q", kind))
}

func (c *Config) applyStochClone(kind string, t *pop.CellType, count int64, rest []string) error {
	if len(rest) < 3 {
		return catErr(CatParams, errors.Errorf("%s clone takes mean, variance, and mutation probability", kind))
	}
	mean, err := cast.ToFloat64E(rest[0])
	if err != nil {
		return catErr(CatNumber, errors.Wrap(err, "mean"))
	}
	variance, err := cast.ToFloat64E(rest[1])
	if err != nil {
		return catErr(CatNumber, errors.Wrap(err, "variance"))
	}
	mut, err := cast.ToFloat64E(rest[2])
	if err != nil {
		return catErr(CatNumber, errors.Wrap(err, "mutation probability"))
	}
	if mean <= 0 || variance <= 0 {
		return catErr(CatNumber, errors.Errorf("%s clone requires positive mean and variance", kind))
	}
	opts, kvs, err := stochOpts(rest[3:])
	if err != nil {
		return catErr(CatParams, err)
	}
	kgen, hasKgen := kvs["kgen"]
	for i := int64(0); i < count; i++ {
		switch kind {
		case "TypeSpecific":
			pop.NewTypeSpecific(t, mean, variance, mut, opts)
		case "Heritable":
			pop.NewHeritable(t, mean, variance, mut, opts)
		case "HerReset":
			if !hasKgen {
				return catErr(CatMissingKey, errors.New("HerReset clone requires kgen,<n>"))
			}
			n, err := cast.ToIntE(kgen)
			if err != nil || n <= 0 {
				return catErr(CatNumber, errors.Errorf("kgen must be a positive integer, got %q", kgen))
			}
			pop.NewHerReset(t, mean, variance, mut, n, opts)
		}
	}
	return nil
}

func (c *Config) applyEmpiricClone(kind string, t *pop.CellType, count int64, rest []string) error {
	if len(rest) < 2 {
		return catErr(CatParams, errors.Errorf("%s clone takes mean and mutation probability", kind))
	}
	mean, err := cast.ToFloat64E(rest[0])
	if err != nil {
		return catErr(CatNumber, errors.Wrap(err, "mean"))
	}
	mut, err := cast.ToFloat64E(rest[1])
	if err != nil {
		return catErr(CatNumber, errors.Wrap(err, "mutation probability"))
	}
	opts, kvs, err := stochOpts(rest[2:])
	if err != nil {
		return catErr(CatParams, err)
	}
	path, ok := kvs["file"]
	if !ok {
		return catErr(CatMissingKey, errors.Errorf("%s clone requires file,<path>", kind))
	}
	emp, err := c.empirical(path)
	if err != nil {
		return catErr(CatFile, err)
	}
	kgen, hasKgen := kvs["kgen"]
	for i := int64(0); i < count; i++ {
		switch kind {
		case "TypeEmpiric":
			pop.NewTypeEmpiric(t, mean, mut, opts.Mult, emp)
		case "HerEmpiric":
			pop.NewHerEmpiric(t, mean, mut, opts.Mult, emp)
		case "HerResetEmpiric":
			if !hasKgen {
				return catErr(CatMissingKey, errors.New("HerResetEmpiric clone requires kgen,<n>"))
			}
			n, err := cast.ToIntE(kgen)
			if err != nil || n <= 0 {
				return catErr(CatNumber, errors.Errorf("kgen must be a positive integer, got %q", kgen))
			}
			pop.NewHerResetEmpiric(t, mean, mut, opts.Mult, n, emp)
		}
	}
	return nil
}

// empirical loads an empirical distribution file once per run.
func (c *Config) empirical(path string) (*rnd.Empirical, error) {
	if emp, ok := c.empiricals[path]; ok {
		return emp, nil
	}
	emp, err := rnd.LoadEmpirical(path)
	if err != nil {
		return nil, err
	}
	c.empiricals[path] = emp
	return emp, nil
}

// stochOpts consumes trailing k,v tokens of a clone line.
func stochOpts(toks []string) (pop.StochOpts, map[string]string, error) {
	opts := pop.StochOpts{}
	kvs := map[string]string{}
	for _, tok := range toks {
		key, val, ok := strings.Cut(tok, ",")
		if !ok {
			return opts, nil, errors.Errorf("malformed clone option %q, want key,value", tok)
		}
		switch key {
		case "dist":
			switch val {
			case "lognorm", "gamma", "doubleexp":
				opts.Dist = pop.DistName(val)
			default:
				return opts, nil, errors.Errorf("unknown clone distribution %q", val)
			}
		case "mult":
			opts.Mult = val == "1" || val == "true"
		case "kgen", "file":
			kvs[key] = val
		default:
			return opts, nil, errors.Errorf("unknown clone option %q", key)
		}
	}
	return opts, kvs, nil
}
