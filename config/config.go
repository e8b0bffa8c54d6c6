// Package config reads the tab-separated simulation configuration
// dialect: sim_params lines bound the run and select the mutation
// kernel, pop_params lines configure the population variant, clone lines
// seed the initial cohorts, and writer lines register observers.
//
// Parse failures do not stop the line scan; each problem found is
// recorded with its line number and category so the whole ledger can be
// written to input_err.eevo before the process exits. An unknown
// mutation kernel or an unusable population setup ends the checks early,
// so clone and writer lines are not examined in that case.
package config

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	evosim "github.com/dvanegeren/evo-sim"
	"github.com/dvanegeren/evo-sim/mutate"
	"github.com/dvanegeren/evo-sim/pop"
	"github.com/dvanegeren/evo-sim/rnd"
	"github.com/dvanegeren/evo-sim/writer"
)

// Error categories recorded in the ledger.
const (
	CatKeyword    = "keyword"
	CatMissingKey = "missing_key"
	CatNumber     = "number"
	CatIndex      = "index_conflict"
	CatEmptyPop   = "empty_population"
	CatFile       = "file"
	CatParams     = "params"
)

// A ParseError is one recorded config problem.
type ParseError struct {
	Line     int
	Category string
	Msg      string
}

// An ErrorLog collects parse errors for the input_err.eevo ledger.
type ErrorLog struct {
	errs []ParseError
	log  zerolog.Logger
}

// Record appends one error to the ledger.
func (e *ErrorLog) Record(line int, category, format string, args ...interface{}) {
	err := ParseError{Line: line, Category: category, Msg: fmt.Sprintf(format, args...)}
	e.errs = append(e.errs, err)
	e.log.Error().Int("line", line).Str("category", category).Msg(err.Msg)
}

// Empty reports whether no errors were recorded.
func (e *ErrorLog) Empty() bool { return len(e.errs) == 0 }

// Errors returns the recorded errors in order.
func (e *ErrorLog) Errors() []ParseError { return e.errs }

// WriteFile writes the ledger to input_err.eevo in the output folder.
func (e *ErrorLog) WriteFile(outDir string) error {
	f, err := os.Create(filepath.Join(outDir, "input_err.eevo"))
	if err != nil {
		return errors.Wrap(err, "create error ledger")
	}
	defer f.Close()
	for _, pe := range e.errs {
		fmt.Fprintf(f, "line %d: %s: %s\n", pe.Line, pe.Category, pe.Msg)
	}
	return nil
}

// A Config is a fully wired run: the model, its observers, and the run
// bounds. Refresh re-seeds the initial clones between simulations.
type Config struct {
	Params    evosim.Params
	SimID     string
	Model     pop.Model
	Observers []evosim.Observer

	pop        *pop.Population
	cloneLines []line
	empiricals map[string]*rnd.Empirical
}

type line struct {
	num  int
	toks []string
}

// Load parses the config file and wires the simulation. The returned
// ErrorLog is non-empty exactly when the config is unusable.
func Load(path, outDir string, src *rnd.Source, log zerolog.Logger) (*Config, *ErrorLog) {
	elog := &ErrorLog{log: log}
	f, err := os.Open(path)
	if err != nil {
		elog.Record(0, CatFile, "open config: %v", err)
		return nil, elog
	}
	defer f.Close()

	var simLines, popLines, cloneLines, writerLines []line
	sc := bufio.NewScanner(f)
	num := 0
	for sc.Scan() {
		num++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		toks := strings.Split(text, "\t")
		l := line{num: num, toks: toks[1:]}
		switch toks[0] {
		case "sim_params":
			simLines = append(simLines, l)
		case "pop_params":
			popLines = append(popLines, l)
		case "clone":
			cloneLines = append(cloneLines, l)
		case "writer":
			writerLines = append(writerLines, l)
		default:
			elog.Record(num, CatKeyword, "unknown keyword %q", toks[0])
		}
	}
	if err := sc.Err(); err != nil {
		elog.Record(num, CatFile, "read config: %v", err)
		return nil, elog
	}

	c := &Config{
		Params:     evosim.Params{NumSims: 1, MaxTime: math.MaxFloat64, MaxCells: math.MaxInt64},
		cloneLines: cloneLines,
		empiricals: map[string]*rnd.Empirical{},
	}

	kernelName := "NoMutation"
	var kernelParams []string
	var kernelLine int
	for _, l := range simLines {
		if len(l.toks) == 0 {
			elog.Record(l.num, CatParams, "sim_params line has no key")
			continue
		}
		key, vals := l.toks[0], l.toks[1:]
		switch key {
		case "num_simulations":
			c.Params.NumSims = intVal(l, vals, elog)
		case "max_time":
			c.Params.MaxTime = floatVal(l, vals, elog)
		case "max_cells":
			c.Params.MaxCells = int64(intVal(l, vals, elog))
		case "sim_id":
			if len(vals) == 1 {
				c.SimID = vals[0]
			} else {
				elog.Record(l.num, CatParams, "sim_id takes one value")
			}
		case "mut_handler_type":
			if len(vals) == 1 {
				kernelName = vals[0]
				kernelLine = l.num
			} else {
				elog.Record(l.num, CatParams, "mut_handler_type takes one value")
			}
		case "mut_handler_params":
			kernelParams = vals
			if kernelLine == 0 {
				kernelLine = l.num
			}
		default:
			elog.Record(l.num, CatKeyword, "unknown sim_params key %q", key)
		}
	}

	kernel, err := mutate.New(kernelName, src)
	if err != nil {
		elog.Record(kernelLine, CatKeyword, "%v", err)
		return nil, elog
	}
	if r, ok := kernel.(mutate.Reader); ok {
		if err := r.Read(kernelParams); err != nil {
			elog.Record(kernelLine, CatParams, "mutation kernel: %v", err)
		}
	}

	c.buildModel(popLines, kernel, src, log, elog)
	if c.Model == nil {
		return nil, elog
	}

	for _, l := range cloneLines {
		if err := c.applyCloneLine(l); err != nil {
			elog.Record(l.num, categoryOf(err), "%v", err)
		}
	}
	if c.pop.NumCells() == 0 {
		elog.Record(0, CatEmptyPop, "no cells after loading clones")
	}

	loc := outDir + string(os.PathSeparator)
	if c.SimID != "" {
		loc += c.SimID + "_"
	}
	for _, l := range writerLines {
		if len(l.toks) == 0 {
			elog.Record(l.num, CatParams, "writer line has no kind")
			continue
		}
		w, err := writer.New(l.toks[0], loc, l.toks[1:])
		if err != nil {
			elog.Record(l.num, CatKeyword, "%v", err)
			continue
		}
		c.Observers = append(c.Observers, w)
	}

	if !elog.Empty() {
		return nil, elog
	}
	return c, elog
}

func intVal(l line, vals []string, elog *ErrorLog) int {
	if len(vals) != 1 {
		elog.Record(l.num, CatParams, "%s takes one value", l.toks[0])
		return 0
	}
	v, err := cast.ToIntE(vals[0])
	if err != nil {
		elog.Record(l.num, CatNumber, "%s: %v", l.toks[0], err)
	}
	return v
}

func floatVal(l line, vals []string, elog *ErrorLog) float64 {
	if len(vals) != 1 {
		elog.Record(l.num, CatParams, "%s takes one value", l.toks[0])
		return 0
	}
	v, err := cast.ToFloat64E(vals[0])
	if err != nil {
		elog.Record(l.num, CatNumber, "%s: %v", l.toks[0], err)
	}
	return v
}

// buildModel consumes the pop_params lines and constructs the population
// under the selected scheduling variant.
func (c *Config) buildModel(popLines []line, kernel pop.MutationKernel, src *rnd.Source, log zerolog.Logger, elog *ErrorLog) {
	popType := "Branching"
	death := 0.0
	maxTypes := 100
	deathVar := false
	timestep := 0.0
	var passTimes []float64
	var passNums []int64
	var maleTypes, femaleTypes []int

	for _, l := range popLines {
		if len(l.toks) == 0 {
			elog.Record(l.num, CatParams, "pop_params line has no key")
			continue
		}
		key, vals := l.toks[0], l.toks[1:]
		switch key {
		case "pop_type":
			if len(vals) == 1 {
				popType = vals[0]
			} else {
				elog.Record(l.num, CatParams, "pop_type takes one value")
			}
		case "death":
			death = floatVal(l, vals, elog)
		case "max_types":
			maxTypes = intVal(l, vals, elog)
		case "death_var":
			deathVar = intVal(l, vals, elog) != 0
		case "timestep":
			timestep = floatVal(l, vals, elog)
		case "passage_times":
			for _, tok := range splitList(vals) {
				v, err := cast.ToFloat64E(tok)
				if err != nil {
					elog.Record(l.num, CatNumber, "passage_times: %v", err)
					continue
				}
				passTimes = append(passTimes, v)
			}
		case "passage_cellnums":
			for _, tok := range splitList(vals) {
				v, err := cast.ToInt64E(tok)
				if err != nil {
					elog.Record(l.num, CatNumber, "passage_cellnums: %v", err)
					continue
				}
				passNums = append(passNums, v)
			}
		case "male_type":
			maleTypes = append(maleTypes, intVal(l, vals, elog))
		case "female_type":
			femaleTypes = append(femaleTypes, intVal(l, vals, elog))
		default:
			elog.Record(l.num, CatKeyword, "unknown pop_params key %q", key)
		}
	}

	if maxTypes <= 0 {
		elog.Record(0, CatNumber, "max_types must be positive")
		return
	}
	p := pop.New(death, kernel, maxTypes, src, log)
	p.SetDeathVar(deathVar)
	c.pop = p

	switch popType {
	case "Branching":
		c.Model = p
	case "Moran":
		c.Model = pop.NewMoran(p)
	case "UpdateAll":
		u := pop.NewUpdateAll(p)
		if err := u.SetTimestep(timestep); err != nil {
			elog.Record(0, CatNumber, "%v", err)
		}
		c.Model = u
	case "Passage":
		pp := pop.NewPassage(p)
		if err := pp.SetSchedule(passTimes, passNums); err != nil {
			elog.Record(0, CatParams, "%v", err)
		}
		c.Model = pp
	case "SexRepr":
		s := pop.NewSexRepr(p)
		for _, i := range maleTypes {
			s.AddMaleType(i)
		}
		for _, i := range femaleTypes {
			s.AddFemaleType(i)
		}
		c.Model = s
	default:
		elog.Record(0, CatKeyword, "unknown pop_type %q", popType)
	}
}

// splitList flattens whitespace- or comma-separated value tokens.
func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, tok := range strings.Split(v, ",") {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

// Refresh re-seeds the initial clones after the model's state was reset
// between simulations.
func (c *Config) Refresh() error {
	for _, l := range c.cloneLines {
		if err := c.applyCloneLine(l); err != nil {
			return errors.Wrapf(err, "refresh clone line %d", l.num)
		}
	}
	return nil
}

type categorized struct {
	error
	category string
}

func categoryOf(err error) string {
	var c categorized
	if errors.As(err, &c) {
		return c.category
	}
	return CatParams
}

func catErr(category string, err error) error {
	if err == nil {
		return nil
	}
	return categorized{error: err, category: category}
}
