package cmd

import (
	"fmt"

	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/history"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configuration.Load(cfgFile)
		if err != nil {
			return err
		}
		entries, err := history.NewStore(cfg.Paths.State).Recent(historyLimit)
		if err != nil {
			return err
		}
		fmt.Print(history.Format(entries))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show (0 for all)")
}
