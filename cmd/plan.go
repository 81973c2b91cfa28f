package cmd

import (
	"context"
	"fmt"

	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/orchestration"
	"github.com/spf13/cobra"
)

var planForce bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate the master setup plan",
	Long: `Asks the model for a setup plan that passes the tool contract and writes
every file in planner.master_plan_files, retrying up to
planner.master_plan_retries times. The plan is saved to paths.master_plan and
can be replayed with "director run --plan".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDirector(cmd, func(ctx context.Context, cfg *configuration.Config, d *orchestration.Director) error {
			p, created, err := d.MasterPlan(ctx, planForce)
			if err != nil {
				return err
			}
			if created {
				fmt.Println(colorize(green, "Master plan saved to "+cfg.Paths.MasterPlan))
			} else {
				fmt.Println("Master plan already exists at " + cfg.Paths.MasterPlan)
			}
			for i, s := range p.Steps {
				fmt.Printf("  %d. %s (%d call(s))\n", i+1, s.Title, len(s.ToolCalls))
			}
			return nil
		})
	},
}

func init() {
	planCmd.Flags().BoolVarP(&planForce, "force", "f", false, "regenerate even if a plan exists")
}
