package writer_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvanegeren/evo-sim/pop"
	"github.com/dvanegeren/evo-sim/rnd"
	"github.com/dvanegeren/evo-sim/writer"
)

type noMutation struct{}

func (noMutation) GenerateMutant(parent *pop.CellType, birth, mutProb float64) (pop.Mutant, error) {
	return pop.Mutant{}, errors.New("unexpected mutation")
}

func testPop(t *testing.T, seed uint64) *pop.Population {
	t.Helper()
	p := pop.New(0, noMutation{}, 8, rnd.New(seed), zerolog.Nop())
	ct, err := p.NewRootType(0)
	require.NoError(t, err)
	pop.NewSimple(ct, 1.0, 0, 25)
	return p
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestCellCountOutput(t *testing.T) {
	dir := t.TempDir()
	loc := dir + string(os.PathSeparator)
	p := testPop(t, 1)

	w := writer.NewCellCount(loc, 0, 0)
	require.NoError(t, w.Begin(p, 1))
	require.NoError(t, p.Advance())
	require.NoError(t, w.PerEvent(p))
	require.NoError(t, w.Final(p))

	lines := readLines(t, filepath.Join(dir, "count_sim_1type_0.oevo"))
	assert.Equal(t, "data for cell type 0 sim number 1", lines[0])
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "0, 25", lines[1], "initial count at time zero")
	last := lines[len(lines)-1]
	assert.True(t, strings.HasSuffix(last, ", 26"), "one birth committed: %q", last)
}

func TestAllTypesWideOutput(t *testing.T) {
	dir := t.TempDir()
	loc := dir + string(os.PathSeparator)
	p := testPop(t, 2)

	w := writer.NewAllTypesWide(loc, 0)
	require.NoError(t, w.Begin(p, 3))
	require.NoError(t, w.Final(p))

	lines := readLines(t, filepath.Join(dir, "all_types_wide_3.oevo"))
	for _, line := range lines {
		cols := strings.Split(line, ", ")
		assert.Len(t, cols, 1+p.VisibleTypes(), "time plus one column per visible type slot")
		assert.Equal(t, "25", cols[1])
		assert.Equal(t, "0", cols[2], "unregistered slots report zero")
	}
}

func TestFitnessDistOutput(t *testing.T) {
	dir := t.TempDir()
	loc := dir + string(os.PathSeparator)
	p := pop.New(0, noMutation{}, 8, rnd.New(3), zerolog.Nop())
	ct, err := p.NewRootType(0)
	require.NoError(t, err)
	pop.NewSimple(ct, 1.5, 0, 3)

	w := writer.NewFitnessDist(loc, 0, 0)
	require.NoError(t, w.Begin(p, 1))
	require.NoError(t, p.Advance())
	require.NoError(t, w.PerEvent(p))
	require.NoError(t, w.Final(p))

	lines := readLines(t, filepath.Join(dir, "fit_sim_1type_0.oevo"))
	require.Len(t, lines, 2)
	assert.Equal(t, 4, strings.Count(lines[1], ", 1.5"), "one fitness entry per cell")
}

func TestMeanFitOutput(t *testing.T) {
	dir := t.TempDir()
	loc := dir + string(os.PathSeparator)
	p := testPop(t, 4)

	w := writer.NewMeanFit(loc, 0, 0)
	require.NoError(t, w.Begin(p, 1))
	require.NoError(t, p.Advance())
	require.NoError(t, w.PerEvent(p))
	require.NoError(t, w.Final(p))

	lines := readLines(t, filepath.Join(dir, "mean_fit_sim_1type_0.oevo"))
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasSuffix(lines[1], ", 1"), "all cells share birth rate 1: %q", lines[1])
}

func TestTypeStructureOutput(t *testing.T) {
	dir := t.TempDir()
	loc := dir + string(os.PathSeparator)
	p := testPop(t, 5)
	child, err := p.GetOrCreateType(1, p.TypeByIndex(0))
	require.NoError(t, err)
	_ = child

	w := writer.NewTypeStructure(loc)
	require.NoError(t, w.Begin(p, 1))
	require.NoError(t, w.Final(p))

	lines := readLines(t, filepath.Join(dir, "sim_1type_tree.oevo"))
	assert.Equal(t, []string{"0, -1", "1, 0"}, lines)
}

func TestFinalWritersAccumulateAcrossSims(t *testing.T) {
	dir := t.TempDir()
	loc := dir + string(os.PathSeparator)
	p := testPop(t, 6)

	w := writer.NewEndTime(loc)
	for sim := 1; sim <= 3; sim++ {
		require.NoError(t, w.Begin(p, sim))
		require.NoError(t, w.Final(p))
	}
	require.NoError(t, w.Close())

	lines := readLines(t, filepath.Join(dir, "end_time.oevo"))
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "3, "))
}

func TestIfTypeFixation(t *testing.T) {
	dir := t.TempDir()
	loc := dir + string(os.PathSeparator)
	p := testPop(t, 7) // only type 0 exists, so it is fixed

	w := writer.NewIfType(loc, 0)
	require.NoError(t, w.Begin(p, 1))
	require.NoError(t, w.Final(p))
	require.NoError(t, w.Close())

	lines := readLines(t, filepath.Join(dir, "iftype.oevo"))
	assert.Equal(t, "1, 1", lines[0])
}

func TestAllTypesSpawnsPerType(t *testing.T) {
	dir := t.TempDir()
	loc := dir + string(os.PathSeparator)
	p := testPop(t, 8)

	w, err := writer.New("AllTypes", loc, []string{"CellCount", "0"})
	require.NoError(t, err)
	require.NoError(t, w.Begin(p, 1))

	// a type created mid-simulation gets its own child writer
	child, err := p.GetOrCreateType(1, p.TypeByIndex(0))
	require.NoError(t, err)
	pop.NewSimple(child, 1.0, 0, 5)
	require.NoError(t, w.PerEvent(p))
	require.NoError(t, w.Final(p))

	assert.FileExists(t, filepath.Join(dir, "count_sim_1type_0.oevo"))
	assert.FileExists(t, filepath.Join(dir, "count_sim_1type_1.oevo"))
}

func TestRegistryRejectsUnknownKind(t *testing.T) {
	_, err := writer.New("NotAWriter", t.TempDir(), nil)
	assert.Error(t, err)
}
