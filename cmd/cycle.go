package cmd

import (
	"context"
	"fmt"

	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/orchestration"
	"github.com/spf13/cobra"
)

var (
	cycleModes      []string
	cycleRuns       int
	cycleSkipEvolve bool
	cycleForceBuild bool
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run every game mode several times in a row",
	Long: `Runs each mode --runs times, forcing the genome's active mode before every
run and pausing between runs (run.pause). Exits with status 1 if any run failed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDirector(cmd, func(ctx context.Context, cfg *configuration.Config, d *orchestration.Director) error {
			runs := cycleRuns
			if runs <= 0 {
				runs = cfg.Run.RunsPerMode
			}
			results := d.Cycle(ctx, cycleModes, runs, cfg.Run.Pause, orchestration.RunOptions{
				SkipEvolve: cycleSkipEvolve,
				ForceBuild: cycleForceBuild,
			})

			failed := 0
			for _, r := range results {
				printRunResult(r)
				if !r.OK() {
					failed++
				}
			}
			fmt.Println(colorize(statusColor(failed == 0), fmt.Sprintf("%d run(s), %d failed", len(results), failed)))
			if failed > 0 {
				return errRunFailed
			}
			return nil
		})
	},
}

func init() {
	cycleCmd.Flags().StringSliceVar(&cycleModes, "modes", nil, "modes to cycle through (default: run.modes)")
	cycleCmd.Flags().IntVar(&cycleRuns, "runs", 0, "runs per mode (default: run.runs_per_mode)")
	cycleCmd.Flags().BoolVar(&cycleSkipEvolve, "skip-evolve", false, "do not evolve genomes")
	cycleCmd.Flags().BoolVar(&cycleForceBuild, "force-build", false, "rebuild on every run")
}
