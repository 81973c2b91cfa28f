package cmd

import (
	"context"

	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/orchestration"
	"github.com/spf13/cobra"
)

var (
	evolveMode    string
	evolveMetrics string
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Evolve a genome from a simulation metrics file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDirector(cmd, func(ctx context.Context, cfg *configuration.Config, d *orchestration.Director) error {
			res, err := d.Evolve(ctx, evolveMode, evolveMetrics)
			if err != nil {
				return err
			}
			printEvolution(res)
			if !res.OK {
				return errRunFailed
			}
			return nil
		})
	},
}

func init() {
	evolveCmd.Flags().StringVarP(&evolveMode, "mode", "m", "", "mode to evolve (default: the active mode)")
	evolveCmd.Flags().StringVar(&evolveMetrics, "metrics", "", "metrics file (default: the project's metrics file)")
}
