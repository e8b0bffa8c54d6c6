// Command evosim runs branching-process simulations described by a
// config file and writes the observers' output into a folder.
//
// usage: evosim -i <input_config> -o <output_folder>
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	evosim "github.com/dvanegeren/evo-sim"
	"github.com/dvanegeren/evo-sim/config"
	"github.com/dvanegeren/evo-sim/rnd"
)

func main() {
	var (
		infile  string
		outdir  string
		seed    uint64
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "evosim -i <input_config> -o <output_folder>",
		Short:         "continuous-time stochastic simulator of branching cell populations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			src := rnd.New(seed)

			c, elog := config.Load(infile, outdir, src, log)
			if !elog.Empty() {
				if err := elog.WriteFile(outdir); err != nil {
					log.Error().Err(err).Msg("write error ledger")
				}
				log.Error().Int("errors", len(elog.Errors())).Msg("config rejected")
				os.Exit(1)
			}

			log.Info().
				Str("config", infile).
				Uint64("seed", seed).
				Int("simulations", c.Params.NumSims).
				Msg("starting run")
			return evosim.Run(c.Model, c.Params, c.Observers, c.Refresh, log)
		},
	}
	cmd.Flags().StringVarP(&infile, "input", "i", "", "input config file")
	cmd.Flags().StringVarP(&outdir, "output", "o", "", "output folder")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "PRNG seed (0 seeds from the clock)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	if err := cmd.Execute(); err != nil {
		zerolog.New(os.Stderr).Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}
