package rnd

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Empirical is a distribution backed by a file of recorded sample values.
// Sampling inverts the empirical CDF: a uniform draw selects one of the
// recorded values, each carrying equal mass.
type Empirical struct {
	values []float64
}

// LoadEmpirical reads one sample value per line. Blank lines and lines
// starting with '#' are skipped.
func LoadEmpirical(path string) (*Empirical, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "empirical distribution %q", path)
	}
	defer f.Close()

	var vals []float64
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		txt := strings.TrimSpace(sc.Text())
		if txt == "" || strings.HasPrefix(txt, "#") {
			continue
		}
		v, err := strconv.ParseFloat(txt, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "empirical distribution %q line %d", path, line)
		}
		vals = append(vals, v)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "empirical distribution %q", path)
	}
	if len(vals) == 0 {
		return nil, errors.Errorf("empirical distribution %q is empty", path)
	}
	sort.Float64s(vals)
	return &Empirical{values: vals}, nil
}

// Sample returns one of the recorded values, chosen uniformly.
func (e *Empirical) Sample(s *Source) float64 {
	return e.values[s.Intn(len(e.values))]
}

// Len returns the number of recorded values.
func (e *Empirical) Len() int {
	return len(e.values)
}
