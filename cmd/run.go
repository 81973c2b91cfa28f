package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/evolution"
	"github.com/alantheprice/director/pkg/orchestration"
	"github.com/alantheprice/director/pkg/plan"
	"github.com/spf13/cobra"
)

var (
	runPlanFile   string
	runSkipEvolve bool
	runForceBuild bool
	runMode       string
)

var runCmd = &cobra.Command{
	Use:   "run [goal]",
	Short: "Build the game, run the simulation and evolve the genome",
	Long: `Runs one full cycle for a game mode.

When the built game already exists the planning phase is skipped unless
--force-build is given. With --plan the saved plan is executed instead of
asking the model for one. The process exits with status 1 when the run fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDirector(cmd, func(ctx context.Context, cfg *configuration.Config, d *orchestration.Director) error {
			opts := orchestration.RunOptions{
				Mode:       runMode,
				SkipEvolve: runSkipEvolve,
				ForceBuild: runForceBuild,
			}
			if len(args) == 1 {
				opts.Goal = args[0]
			}
			if runPlanFile != "" {
				p, err := plan.Load(runPlanFile)
				if err != nil {
					return err
				}
				opts.Plan = &p
			}

			res := d.Run(ctx, opts)
			printRunResult(res)
			if !res.OK() {
				return errRunFailed
			}
			return nil
		})
	},
}

func init() {
	runCmd.Flags().StringVar(&runPlanFile, "plan", "", "execute a saved plan file instead of planning")
	runCmd.Flags().BoolVar(&runSkipEvolve, "skip-evolve", false, "do not evolve the genome after the simulation")
	runCmd.Flags().BoolVar(&runForceBuild, "force-build", false, "plan and build even when the game is already built")
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "game mode to play (default: the genome's active mode)")
}

func printRunResult(res *orchestration.RunResult) {
	header := fmt.Sprintf("[%s] %s", modeTitle(res.Mode), strings.ToUpper(res.Status))
	if res.Bypassed {
		header += " (existing build)"
	}
	fmt.Println(colorize(statusColor(res.OK()), header))
	if res.Outcome != nil {
		fmt.Printf("  run %s: %d attempt(s)\n", res.Outcome.RunID, len(res.Outcome.Attempts))
		if res.Outcome.RunLog != "" {
			fmt.Printf("  run log: %s\n", res.Outcome.RunLog)
		}
	}
	if res.Reason != "" {
		fmt.Printf("  reason: %s\n", res.Reason)
	}
	if res.Metrics != nil {
		fmt.Printf("  win rate: %.2f\n", res.Metrics.WinRate())
	}
	if res.Evolution != nil {
		printEvolution(*res.Evolution)
	}
}

func printEvolution(ev evolution.Result) {
	if !ev.OK {
		fmt.Println(colorize(yellow, "  evolution skipped: "+ev.Reason))
		return
	}
	fmt.Println(colorize(cyan, fmt.Sprintf("  new %s genome (seed %d)", modeTitle(ev.Mode), ev.Genome.Seed)))
	fmt.Printf("  report: %s\n", ev.Report)
	if ev.Archived != "" {
		fmt.Println(colorize(yellow, "  hall of fame: "+ev.Archived))
	}
	if ev.Changes != "" {
		fmt.Print(indent(ev.Changes, "    "))
	}
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix + l)
	}
	return b.String()
}
