package evosim_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evosim "github.com/dvanegeren/evo-sim"
	"github.com/dvanegeren/evo-sim/mutate"
	"github.com/dvanegeren/evo-sim/pop"
	"github.com/dvanegeren/evo-sim/rnd"
	"github.com/dvanegeren/evo-sim/writer"
)

func TestRunPureBirth(t *testing.T) {
	dir := t.TempDir()
	loc := dir + string(os.PathSeparator)
	src := rnd.New(42)
	kernel, err := mutate.New("NoMutation", src)
	require.NoError(t, err)

	p := pop.New(0, kernel, 4, src, zerolog.Nop())
	seed := func() error {
		ct := p.TypeByIndex(0)
		if ct == nil {
			var err error
			ct, err = p.NewRootType(0)
			if err != nil {
				return err
			}
		}
		pop.NewSimple(ct, 1.0, 0, 1)
		return nil
	}
	require.NoError(t, seed())

	observers := []evosim.Observer{
		writer.NewCellCount(loc, 0, 0),
		writer.NewEndPop(loc),
		writer.NewEndTime(loc),
		writer.NewIsExtinct(loc),
	}
	params := evosim.Params{NumSims: 2, MaxTime: 2.0, MaxCells: 1 << 30}
	require.NoError(t, evosim.Run(p, params, observers, seed, zerolog.Nop()))

	for _, name := range []string{
		"count_sim_1type_0.oevo", "count_sim_2type_0.oevo",
		"end_pop.oevo", "end_time.oevo", "extinction.oevo",
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	endPop, err := os.ReadFile(filepath.Join(dir, "end_pop.oevo"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(endPop)), "\n")
	require.Len(t, lines, 2, "one final line per simulation")
	assert.True(t, strings.HasPrefix(lines[0], "1, "))
	assert.True(t, strings.HasPrefix(lines[1], "2, "))

	ext, err := os.ReadFile(filepath.Join(dir, "extinction.oevo"))
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(ext)), "\n") {
		assert.True(t, strings.HasSuffix(line, ", 0"), "pure birth never goes extinct")
	}
}

func TestRunStopsAtMaxCells(t *testing.T) {
	src := rnd.New(7)
	kernel, err := mutate.New("NoMutation", src)
	require.NoError(t, err)
	p := pop.New(0, kernel, 4, src, zerolog.Nop())
	ct, err := p.NewRootType(0)
	require.NoError(t, err)
	pop.NewSimple(ct, 1.0, 0, 10)

	params := evosim.Params{NumSims: 1, MaxTime: 1e9, MaxCells: 500}
	require.NoError(t, evosim.Run(p, params, nil, nil, zerolog.Nop()))
	assert.GreaterOrEqual(t, p.NumCells(), int64(500))
	assert.Less(t, p.NumCells(), int64(520), "the loop stops at the first event past the cap")
}

func TestRunThreeTypesForwardMutation(t *testing.T) {
	src := rnd.New(99)
	kernel, err := mutate.New("ThreeTypes", src)
	require.NoError(t, err)
	require.NoError(t, kernel.(mutate.Reader).Read([]string{"mu2,0.05", "fit1,1.1", "fit2,1.2"}))

	p := pop.New(0, kernel, 3, src, zerolog.Nop())
	ct, err := p.NewRootType(0)
	require.NoError(t, err)
	pop.NewSimple(ct, 1.0, 0.05, 1000)

	params := evosim.Params{NumSims: 1, MaxTime: 1e9, MaxCells: 20000}
	require.NoError(t, evosim.Run(p, params, nil, nil, zerolog.Nop()))
	assert.True(t, p.HasType(1), "forward mutants arise on the way to the cap")
}

func TestRunRejectsUninitialised(t *testing.T) {
	src := rnd.New(1)
	kernel, err := mutate.New("NoMutation", src)
	require.NoError(t, err)
	p := pop.New(0, kernel, 4, src, zerolog.Nop())
	err = evosim.Run(p, evosim.Params{NumSims: 1, MaxTime: 1, MaxCells: 10}, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}
