package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alantheprice/director/pkg/configuration"
	"github.com/alantheprice/director/pkg/llm"
	"github.com/alantheprice/director/pkg/metrics"
	"github.com/alantheprice/director/pkg/orchestration"
	"github.com/alantheprice/director/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	quiet   bool
)

// errRunFailed makes the process exit with status 1 after the command has
// already reported why.
var errRunFailed = errors.New("run failed")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "director",
	Short: "Plans, builds and evolves a simulated game with a local model",
	Long: `Director asks a local model for a JSON plan, checks it against a tool
contract, executes it through the game engine's command line and replans on
failure. After a successful build it runs the simulation and asks the model to
rebalance the game genome for the next run.

Available commands:
  run      - Build (or reuse) the game, simulate and evolve
  cycle    - Repeat runs over several game modes
  evolve   - Evolve a genome from an existing metrics file
  plan     - Generate the reusable master setup plan
  history  - Show recent runs`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errRunFailed) {
		fmt.Fprintln(os.Stderr, colorize(red, "Error: "+err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./director.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only write progress to the log file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(evolveCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(historyCmd)
}

// withDirector loads configuration, wires a Director against the configured
// model and runs fn. Metrics are written to the textfile afterwards, also
// when fn fails.
func withDirector(cmd *cobra.Command, fn func(ctx context.Context, cfg *configuration.Config, d *orchestration.Director) error) error {
	cfg, err := configuration.Load(cfgFile)
	if err != nil {
		return err
	}
	logger := utils.GetLogger(quiet)

	client, err := llm.NewOllamaClient(cfg.Ollama.Host, cfg.Ollama.Model, cfg.Ollama.Timeout)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rec := metrics.New()
	d, err := orchestration.New(ctx, cfg, client,
		orchestration.WithMetrics(rec),
		orchestration.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer d.Close()

	runErr := fn(ctx, cfg, d)
	if err := rec.WriteTextfile(cfg.Paths.MetricsTextfile); err != nil {
		logger.LogError(err)
	}
	return runErr
}
